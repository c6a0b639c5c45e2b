package cli

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/compliance-radar/internal/model"
	"github.com/ppiankov/compliance-radar/internal/pipeline"
	"github.com/ppiankov/compliance-radar/internal/report"
)

const defaultResultsFile = "incidentes_priorizados.csv"

var (
	analyzeOut        string
	analyzeTop        int
	analyzeWorkers    int
	analyzeTimeout    time.Duration
	analyzeNoCache    bool
	analyzeProvider   string
	analyzeDateSource string
	analyzeOffline    bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|url|->",
	Short: "Triage a table of incident reports",
	Long: `Read an incident table (CSV with the columns rama, grado, unidad, provincia,
canton, fecha_incidente, relato or their English names), classify and score
every report, and write the table sorted by risk with the derived columns
appended.

The category counts and the highest priority reports are printed as tables.

Examples:
  radar analyze incidentes_compliance.csv
  radar analyze --workers 4 --out priorizados.csv reports.csv
  cat reports.csv | radar analyze --offline -`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", defaultResultsFile, "output CSV path (- for stdout)")
	analyzeCmd.Flags().IntVar(&analyzeTop, "top", 10, "rows shown in the priority table")
	analyzeCmd.Flags().IntVarP(&analyzeWorkers, "workers", "w", 1, "incidents triaged concurrently")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 60*time.Second, "timeout for each gateway request")
	analyzeCmd.Flags().BoolVar(&analyzeNoCache, "no-cache", false, "disable the gateway response cache")
	analyzeCmd.Flags().StringVar(&analyzeProvider, "provider", "huggingface", "classification provider (huggingface, openai, none)")
	analyzeCmd.Flags().StringVar(&analyzeDateSource, "date-source", model.DateSourceMerge, "dates used by the recency rule (merge, incident, narrative)")
	analyzeCmd.Flags().BoolVar(&analyzeOffline, "offline", false, "skip the remote gateways (scoring and extraction only)")
}

// timeoutSeconds converts a --timeout value to whole seconds, rounding up so
// 500ms becomes 1s rather than 0
func timeoutSeconds(d time.Duration) (int, error) {
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %s", d)
	}
	return int(math.Ceil(d.Seconds())), nil
}

// applyAnalyzeFlags overrides cfg with the flags the user actually set
func applyAnalyzeFlags(cmd *cobra.Command, cfg *model.Config) error {
	flags := cmd.Flags()
	if flags.Changed("top") {
		cfg.Output.TopN = analyzeTop
	}
	if flags.Changed("workers") {
		cfg.Concurrency.Workers = analyzeWorkers
	}
	if flags.Changed("timeout") {
		secs, err := timeoutSeconds(analyzeTimeout)
		if err != nil {
			return err
		}
		cfg.Gateway.Timeout = secs
	}
	if flags.Changed("no-cache") {
		cfg.Cache.Enabled = !analyzeNoCache
	}
	if flags.Changed("provider") {
		cfg.Gateway.Provider = analyzeProvider
	}
	if flags.Changed("date-source") {
		cfg.Scoring.DateSource = analyzeDateSource
	}
	if analyzeOffline {
		cfg.Gateway.Provider = "none"
		cfg.Gateway.EntitiesEnabled = false
	}

	if cfg.Concurrency.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", cfg.Concurrency.Workers)
	}
	return pipeline.ValidateDateSource(cfg.Scoring.DateSource)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyAnalyzeFlags(cmd, cfg); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	stderr := cmd.ErrOrStderr()
	location := args[0]

	banner(stderr, "Compliance Radar Analysis")
	fmt.Fprintf(stderr, "  Input:        %s\n", location)
	fmt.Fprintf(stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(stderr, "  Date source:  %s\n", cfg.Scoring.DateSource)

	gateways, err := buildGateways(cfg, logger, true, true)
	if err != nil {
		return err
	}
	fmt.Fprintf(stderr, "  Classifier:   %s\n", describeClassifier(gateways))
	fmt.Fprintf(stderr, "  Entities:     %s\n", describeRecognizer(gateways))
	fmt.Fprintf(stderr, "\n")

	fetcher := pipeline.NewFetcher(
		time.Duration(cfg.Gateway.Timeout)*time.Second,
		cfg.HTTP.UserAgent,
		cfg.HTTP.MaxBytes,
		cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy,
	)
	fetched, err := fetcher.Fetch(ctx, location)
	if err != nil {
		return err
	}

	table, err := report.ReadTable(fetched.Reader())
	if err != nil {
		return fmt.Errorf("%s: %w", fetched.Location, err)
	}
	fmt.Fprintf(stderr, "✓ Loaded %d incidents from %s\n", len(table.Records), fetched.Location)
	if len(table.Records) == 0 {
		fmt.Fprintf(stderr, "Nothing to analyze.\n")
		return nil
	}
	fmt.Fprintf(stderr, "⚙️  Triaging with %d worker(s)...\n", cfg.Concurrency.Workers)

	p := pipeline.NewPipeline(cfg, append(gateways.options(), pipeline.WithLogger(logger))...)
	result, err := p.Analyze(ctx, table, cfg.Concurrency.Workers, progressPrinter(stderr, cfg.Output.Verbose))
	if err != nil {
		return err
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(stderr, "✗ %s\n", w)
	}

	tables := cmd.OutOrStdout()
	if analyzeOut == "-" {
		if err := report.WriteResults(cmd.OutOrStdout(), result.Header, result.Rows); err != nil {
			return err
		}
		tables = stderr
	} else if err := writeResultsFile(analyzeOut, result); err != nil {
		return err
	}

	fmt.Fprintln(tables)
	report.RenderCounts(tables, result.Counts)
	fmt.Fprintln(tables)
	report.RenderTop(tables, result.Rows, cfg.Output.TopN)

	printAnalyzeSummary(stderr, result, analyzeOut)
	logger.Debug("analysis complete", zap.Int("incidents", len(result.Rows)), zap.Int("warnings", len(result.Warnings)))
	return nil
}

func writeResultsFile(path string, result *pipeline.BatchResult) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close output: %w", closeErr)
		}
	}()
	return report.WriteResults(f, result.Header, result.Rows)
}

// progressPrinter reports progress every 10% (every row when verbose)
func progressPrinter(w io.Writer, verbose bool) func(done, total int) {
	step := 1
	return func(done, total int) {
		if !verbose {
			step = total / 10
			if step < 1 {
				step = 1
			}
		}
		if done%step == 0 || done == total {
			fmt.Fprintf(w, "  %d/%d\n", done, total)
		}
	}
}

func printAnalyzeSummary(w io.Writer, result *pipeline.BatchResult, out string) {
	classified := 0
	for _, row := range result.Rows {
		if row.Assessment.Prediction.Available() {
			classified++
		}
	}

	banner(w, "Analysis Complete")
	fmt.Fprintf(w, "  Total:       %d incidents\n", len(result.Rows))
	fmt.Fprintf(w, "  Classified:  %d\n", classified)
	fmt.Fprintf(w, "  Warnings:    %d\n", len(result.Warnings))
	if out != "-" {
		fmt.Fprintf(w, "  Output:      %s\n", out)
	}
	fmt.Fprintf(w, "\n")
}

func describeClassifier(g gatewaySet) string {
	if g.classifier == nil {
		return "off (every incident is \"other\")"
	}
	return g.classifier.Name()
}

func describeRecognizer(g gatewaySet) string {
	if g.recognizer == nil {
		return "off"
	}
	return g.recognizer.Name()
}
