package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	therrors "github.com/gear6io/tablehealth/pkg/errors"
	"github.com/gear6io/tablehealth/server/analyzer"
	"github.com/gear6io/tablehealth/server/config"
	"github.com/gear6io/tablehealth/server/delta"
	"github.com/gear6io/tablehealth/server/iceberg"
	"github.com/gear6io/tablehealth/server/model"
	"github.com/gear6io/tablehealth/server/objectstore"
	"github.com/gear6io/tablehealth/server/tableformat"
	"github.com/gear6io/tablehealth/utils"
)

// Exit codes, per the analyzer's recommended CLI collaborator contract.
const (
	exitSuccess            = 0
	exitInvalidConfig      = 2
	exitUnreachableStorage = 3
	exitUnknownFormat      = 4
	exitParseError         = 5
)

var (
	flagConfigPath string
	flagForce      string
	flagTimeout    time.Duration
	flagOutput     string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <storage-path>",
	Short: "Analyze a table and print its health report",
	Long: `Analyze walks a table's storage layout, reconstructs its current
reference set, and prints a health report.

Examples:
  tablehealth analyze s3://warehouse/orders
  tablehealth analyze gs://lake/events --format iceberg
  tablehealth analyze s3://warehouse/orders --output json`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&flagConfigPath, "config", "", "path to a tablehealth.yml config file")
	analyzeCmd.Flags().StringVar(&flagForce, "format", "", "force table format detection: \"delta\" or \"iceberg\"")
	analyzeCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "override the analysis timeout (e.g. 2m)")
	analyzeCmd.Flags().StringVar(&flagOutput, "output", "text", "output format: \"text\" or \"json\"")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	storagePath := args[0]
	runID := utils.NewRunIDString()
	logger := loggerFromCmd(cmd).With().Str("run_id", runID).Str("table_path", storagePath).Logger()

	cfg, err := loadConfig()
	if err != nil {
		logger.Error().Err(err).Msg("failed to load configuration")
		return exitWithCode(exitInvalidConfig, err)
	}
	if flagForce != "" {
		cfg.Analyze.ForceFormat = flagForce
	}
	if flagTimeout > 0 {
		cfg.Analyze.Timeout = flagTimeout
	}
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return exitWithCode(exitInvalidConfig, err)
	}

	logger.Info().Msg("starting analysis")
	start := time.Now()

	report, err := analyzer.Analyze(context.Background(), storagePath, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("analysis failed")
		return exitWithCode(classifyError(err), err)
	}

	logger.Info().Dur("elapsed", time.Since(start)).Float64("health_score", report.HealthScore).Msg("analysis complete")

	switch flagOutput {
	case "json":
		return printJSON(report)
	default:
		printText(report, runID)
		return nil
	}
}

func loadConfig() (*config.Config, error) {
	if flagConfigPath != "" {
		return config.LoadFromFile(flagConfigPath)
	}
	return config.Load()
}

// classifyError maps a typed error's code onto the recommended CLI exit
// code table: unreachable/unauthorized storage, unrecognized format, or a
// table-format parse error.
func classifyError(err error) int {
	code := therrors.GetCode(err)
	switch {
	case code == objectstore.ErrUnsupportedScheme.String() || code == objectstore.ErrConfig.String():
		return exitInvalidConfig
	case code == objectstore.ErrNotFound.String() || code == objectstore.ErrTransport.String() || code == objectstore.ErrListing.String():
		return exitUnreachableStorage
	case code == tableformat.ErrUnknown.String() || code == analyzer.ErrUnsupportedType.String():
		return exitUnknownFormat
	case code == delta.ErrGapAtVersion.String() || code == delta.ErrCheckpointCorrupt.String() ||
		code == iceberg.ErrNoMetadata.String() || code == iceberg.ErrDanglingReference.String():
		return exitParseError
	default:
		return exitUnreachableStorage
	}
}

// exitWithCode records code and returns err unchanged; cobra is silenced, so
// printing err to stderr and the actual os.Exit call both happen in
// cmd/tablehealth, which inspects the code this function stashed.
func exitWithCode(code int, err error) error {
	pendingExitCode = code
	return err
}

// pendingExitCode is read by cmd/tablehealth/main.go after Execute returns
// an error, to choose the process exit code the spec's CLI contract wants
// rather than cobra's blanket exit(1).
var pendingExitCode = exitSuccess

// PendingExitCode returns the exit code the last failing command selected,
// or exitSuccess if none failed.
func PendingExitCode() int {
	return pendingExitCode
}

func printJSON(report *model.HealthReport) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func printText(report *model.HealthReport, runID string) {
	pterm.DefaultHeader.WithFullWidth().Println(fmt.Sprintf("tablehealth report: %s", report.TablePath))
	pterm.Info.Printfln("run %s · table type %s · analyzed %s", runID, report.TableType, report.AnalysisTimestamp.Format(time.RFC3339))

	scoreBar := pterm.DefaultBulletList.WithItems([]pterm.BulletListItem{
		{Level: 0, Text: healthScoreLine(report.HealthScore)},
		{Level: 0, Text: fmt.Sprintf("total files: %d (%s)", report.Metrics.TotalFiles, humanBytes(report.Metrics.TotalSizeBytes))},
		{Level: 0, Text: fmt.Sprintf("unreferenced files: %d (%s)", len(report.Metrics.UnreferencedFiles), humanBytes(report.Metrics.UnreferencedSizeBytes))},
		{Level: 0, Text: fmt.Sprintf("partitions: %d", report.Metrics.PartitionCount)},
		{Level: 0, Text: fmt.Sprintf("snapshots: %d (retention risk %.2f)", report.Metrics.SnapshotHealth.SnapshotCount, report.Metrics.SnapshotHealth.SnapshotRetentionRisk)},
	})
	_ = scoreBar.Render()

	tableData := pterm.TableData{{"bucket", "count"}}
	d := report.Metrics.FileSizeDistribution
	tableData = append(tableData,
		[]string{"small (<16MiB)", fmt.Sprintf("%d", d.SmallFiles)},
		[]string{"medium (16-128MiB)", fmt.Sprintf("%d", d.MediumFiles)},
		[]string{"large (128MiB-1GiB)", fmt.Sprintf("%d", d.LargeFiles)},
		[]string{"very large (>1GiB)", fmt.Sprintf("%d", d.VeryLargeFiles)},
	)
	_ = pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()

	if len(report.Metrics.Recommendations) > 0 {
		pterm.Warning.Println("recommendations:")
		for _, r := range report.Metrics.Recommendations {
			pterm.Println(" -", r)
		}
	}
	if len(report.Warnings) > 0 {
		pterm.Warning.Println("warnings:")
		for _, w := range report.Warnings {
			pterm.Println(" -", w)
		}
	}
}

func healthScoreLine(score float64) string {
	pct := fmt.Sprintf("%.4f", score)
	switch {
	case score >= 0.8:
		return pterm.LightGreen.Sprint("health score: " + pct)
	case score >= 0.5:
		return pterm.Yellow.Sprint("health score: " + pct)
	default:
		return pterm.LightRed.Sprint("health score: " + pct)
	}
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
