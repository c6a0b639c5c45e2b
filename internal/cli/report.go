package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ppiankov/compliance-radar/internal/model"
	"github.com/ppiankov/compliance-radar/internal/report"
	"github.com/ppiankov/compliance-radar/internal/validate"
)

const defaultRecordsFile = "incidentes_compliance.csv"

var (
	reportInput  validate.RecordInput
	reportOut    string
	reportAppend bool
	reportNow    = time.Now
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Record a new incident report",
	Long: `Validate one incident report and save it as a CSV record that
"radar analyze" can read.

The branch accepts army, navy or air force (or ejercito, marina/armada,
aviacion/fuerza aerea). The rank accepts troop or officer (tropa, oficial).
The incident date defaults to today and cannot be in the future.

Examples:
  radar report --branch army --rank troop --province Pichincha --canton Quito \
    --narrative "Se ofrecio un soborno de $500 en el control"
  radar report --append --branch marina --rank oficial --date 2024-03-01 --narrative "..."`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	flags := reportCmd.Flags()
	flags.StringVar(&reportInput.Branch, "branch", "", "branch: army, navy, air force (required)")
	flags.StringVar(&reportInput.Rank, "rank", "", "rank: troop, officer (required)")
	flags.StringVar(&reportInput.Unit, "unit", "", "unit or detachment")
	flags.StringVar(&reportInput.Province, "province", "", "province")
	flags.StringVar(&reportInput.Canton, "canton", "", "canton or district")
	flags.StringVar(&reportInput.IncidentDate, "date", "", "incident date (default: today)")
	flags.StringVar(&reportInput.Narrative, "narrative", "", "what happened (required)")
	flags.StringVarP(&reportOut, "out", "o", defaultRecordsFile, "CSV file to write")
	flags.BoolVarP(&reportAppend, "append", "a", false, "append to an existing file instead of overwriting it")
}

func runReport(cmd *cobra.Command, args []string) error {
	now := reportNow()

	input := reportInput
	if strings.TrimSpace(input.IncidentDate) == "" {
		input.IncidentDate = now.Format(model.DateLayout)
	}

	incident, err := validate.NewIncident(input, now)
	if err != nil {
		return fmt.Errorf("invalid report:\n%w", err)
	}
	incident.ID = uuid.NewString()

	if err := report.WriteIncident(reportOut, incident, reportAppend); err != nil {
		return err
	}

	action := "Saved"
	if reportAppend {
		action = "Appended"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s report %s to %s\n", action, incident.ID, reportOut)
	return nil
}
