package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/compliance-radar/internal/gateway"
	"github.com/ppiankov/compliance-radar/internal/model"
	"github.com/ppiankov/compliance-radar/internal/pipeline"
	"github.com/ppiankov/compliance-radar/internal/report"
	"github.com/ppiankov/compliance-radar/internal/validate"
)

var (
	scoreCategory     string
	scoreIncidentDate string
	scoreClassify     bool
	scoreEntities     bool
	scoreJSON         bool
	scoreAsOf         string
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score <narrative...>",
	Short: "Score a single narrative",
	Long: `Extract amounts and dates from one narrative and compute its risk score,
listing every rule that contributed.

Without --category or --classify the narrative is scored as "other". Pass
--category to score with a category you already know, or --classify to ask
the configured classification service.

Examples:
  radar score "Se ofrecio un soborno de $500 el 12/03/2024"
  radar score --category "contact with organized crime" --as-of 2024-03-15 "hombres armados en el puerto"
  radar score --classify --entities --json "Contacto con mafia en Guayaquil"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringVarP(&scoreCategory, "category", "c", "", "known category (skips classification)")
	scoreCmd.Flags().StringVar(&scoreIncidentDate, "incident-date", "", "stated incident date (YYYY-MM-DD or dd/mm/yyyy)")
	scoreCmd.Flags().BoolVar(&scoreClassify, "classify", false, "classify the narrative with the configured provider")
	scoreCmd.Flags().BoolVar(&scoreEntities, "entities", false, "extract named entities with the NER service")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "output the assessment as JSON")
	scoreCmd.Flags().StringVar(&scoreAsOf, "as-of", "", "reference date for the recency rule (default: today)")
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := pipeline.ValidateDateSource(cfg.Scoring.DateSource); err != nil {
		return err
	}

	if scoreCategory != "" && scoreClassify {
		return fmt.Errorf("--category and --classify are mutually exclusive")
	}

	incident := model.Incident{Narrative: strings.Join(args, " ")}
	if scoreIncidentDate != "" {
		d, err := validate.ParseIncidentDate(scoreIncidentDate)
		if err != nil {
			return fmt.Errorf("--incident-date: %w", err)
		}
		incident.IncidentDate = d
	}

	opts := []pipeline.Option{pipeline.WithLogger(logger)}

	if scoreAsOf != "" {
		asOf, err := validate.ParseIncidentDate(scoreAsOf)
		if err != nil {
			return fmt.Errorf("--as-of: %w", err)
		}
		ref := *asOf
		opts = append(opts, pipeline.WithClock(func() time.Time { return ref }))
	}

	if scoreCategory != "" {
		category, ok := model.ParseCategory(scoreCategory)
		if !ok {
			return fmt.Errorf("unknown category %q (known: %s)", scoreCategory, strings.Join(model.Labels(model.Categories()), ", "))
		}
		opts = append(opts, pipeline.WithClassifier(gateway.FixedClassifier{Category: category}))
	}

	if scoreClassify || scoreEntities {
		gateways, err := buildGateways(cfg, logger, scoreClassify, scoreEntities)
		if err != nil {
			return err
		}
		if scoreClassify && gateways.classifier == nil {
			return fmt.Errorf("--classify: no classification provider is configured (set %s or %s)", envHFToken, envOpenAIKey)
		}
		opts = append(opts, gateways.options()...)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	assessment, err := pipeline.NewPipeline(cfg, opts...).Triage(ctx, incident)
	if err != nil {
		return err
	}

	if scoreJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(assessment)
	}

	printAssessment(cmd.OutOrStdout(), assessment)
	return nil
}

func printAssessment(w io.Writer, a *model.Assessment) {
	fmt.Fprintf(w, "Category:    %s (%s, %s)\n", a.Prediction.Category, report.FormatConfidence(a.Prediction.Confidence), a.Prediction.Status)
	fmt.Fprintf(w, "Amounts:     %s\n", listOrNone(a.Fields.Amounts))
	fmt.Fprintf(w, "Dates:       %s\n", listOrNone(a.Fields.Dates))
	if len(a.Entities) > 0 {
		fmt.Fprintf(w, "Entities:    %s\n", strings.Join(a.EntityNames(), ", "))
	}
	fmt.Fprintf(w, "Risk:        %d\n", a.Risk.Score)

	for _, s := range a.Risk.Signals {
		fmt.Fprintf(w, "  +%d  %-18s %s\n", s.Weight, s.Rule, s.Description)
	}
	for _, warning := range a.Warnings {
		fmt.Fprintf(w, "✗ %s\n", warning)
	}
}

func listOrNone(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}
