package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/compliance-radar/internal/gateway"
	"github.com/ppiankov/compliance-radar/internal/model"
	"github.com/ppiankov/compliance-radar/internal/report"
)

const (
	diagSampleText    = "Intento de soborno de $500 en Quito. Contacto con mafia en Guayaquil."
	diagMaxInputChars = 1500
	diagTimeout       = 25
	diagTopLabels     = 4
	diagTopEntities   = 5
)

var errDiagFailed = errors.New("diagnostics failed")

// diagCmd represents the diag command
var diagCmd = &cobra.Command{
	Use:   "diag [text]",
	Short: "Check the classification and entity services",
	Long: `Send a short sample text to the configured classification service and to
the entity recognition service and print what they return.

Use it to check the API token, the model names and network access before
analyzing a batch. Caching is disabled and each request is retried once.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDiag,
}

func init() {
	rootCmd.AddCommand(diagCmd)
}

func runDiag(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Gateway.MaxInputChars = diagMaxInputChars
	cfg.Gateway.Timeout = diagTimeout
	cfg.Gateway.MaxRetries = 1
	cfg.Gateway.EntitiesEnabled = true
	cfg.Cache.Enabled = false

	text := diagSampleText
	if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
		text = args[0]
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	banner(out, "Compliance Radar Diagnostics")
	fmt.Fprintf(out, "  Provider:   %s\n", cfg.Gateway.Provider)
	fmt.Fprintf(out, "  Token OK:   %t\n", strings.HasPrefix(cfg.Gateway.Token, "hf_"))
	fmt.Fprintf(out, "  Text:       %s\n\n", text)

	deps := gateway.NewDeps(cfg, logger)
	failed := false

	classifier, err := gateway.NewClassifier(cfg, deps)
	if err != nil {
		fmt.Fprintf(out, "✗ Zero-shot: %v\n", err)
		failed = true
	} else if !checkClassifier(ctx, out, classifier, text) {
		failed = true
	}
	fmt.Fprintln(out)

	recognizer, err := gateway.NewEntityRecognizer(cfg, deps)
	if err != nil {
		fmt.Fprintf(out, "✗ NER: %v\n", err)
		failed = true
	} else if !checkRecognizer(ctx, out, recognizer, text) {
		failed = true
	}
	fmt.Fprintln(out)

	if failed {
		return errDiagFailed
	}
	return nil
}

func checkClassifier(ctx context.Context, w io.Writer, c gateway.Classifier, text string) bool {
	start := time.Now()
	predictions, err := c.Classify(ctx, text, model.DiagnosticCategories())
	if err != nil {
		fmt.Fprintf(w, "✗ Zero-shot (%s): %v\n", c.Name(), err)
		return false
	}

	fmt.Fprintf(w, "✓ Zero-shot (%s) in %v\n", c.Name(), time.Since(start).Round(time.Millisecond))
	for i, p := range predictions {
		if i == diagTopLabels {
			break
		}
		fmt.Fprintf(w, "    %-22s %s\n", p.Category, report.FormatConfidence(p.Confidence))
	}
	return true
}

func checkRecognizer(ctx context.Context, w io.Writer, r gateway.EntityRecognizer, text string) bool {
	start := time.Now()
	entities, err := r.Recognize(ctx, text)
	if err != nil {
		fmt.Fprintf(w, "✗ NER (%s): %v\n", r.Name(), err)
		return false
	}

	fmt.Fprintf(w, "✓ NER (%s) in %v\n", r.Name(), time.Since(start).Round(time.Millisecond))
	if len(entities) == 0 {
		fmt.Fprintf(w, "    no entities\n")
	}
	for i, e := range entities {
		if i == diagTopEntities {
			break
		}
		fmt.Fprintf(w, "    %-22s %-14s %s\n", e.Text, e.Type, report.FormatConfidence(e.Confidence))
	}
	return true
}
