package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-consistency/internal/ingest"
	"github.com/kozaktomas/face-consistency/internal/metrics"
	"github.com/kozaktomas/face-consistency/internal/report"
	"github.com/kozaktomas/face-consistency/internal/verification"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify every registrant listed in an attendance sheet",
	Long: `Read an attendance sheet (CSV or XLSX) with the columns "Reg ID", "Day", "Shift"
and "Image URL", verify every registrant's photos and write a workbook with the
"Detailed Results" and "Verification Summary" sheets.

Examples:
  face-consistency verify --input attendance.csv
  face-consistency verify --input attendance.xlsx --sheet Sheet1 --output results.xlsx --concurrency 4
  face-consistency verify --input attendance.csv --metrics-file /var/lib/node_exporter/face_consistency.prom`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().String("input", "", "Attendance sheet to read (.csv or .xlsx)")
	verifyCmd.Flags().String("output", "comparison_results.xlsx", "Workbook to write")
	verifyCmd.Flags().String("sheet", "", "XLSX sheet to read (defaults to the first sheet)")
	verifyCmd.Flags().Int("concurrency", 0, "Registrants verified in parallel (defaults to VERIFY_CONCURRENCY)")
	verifyCmd.Flags().Bool("no-progress", false, "Disable the progress bar")
	verifyCmd.Flags().String("metrics-file", "", "Write run metrics in Prometheus text format to this file")
	_ = verifyCmd.MarkFlagRequired("input")
}

// registrationVerifier is the part of the pipeline the batch runner needs.
type registrationVerifier interface {
	Verify(ctx context.Context, group verification.RegistrationGroup) verification.Result
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	input := mustGetString(cmd, "input")
	output := mustGetString(cmd, "output")
	concurrency := mustGetInt(cmd, "concurrency")
	if concurrency <= 0 {
		concurrency = cfg.Verify.Concurrency
	}

	runID := uuid.New().String()
	log := zap.L().With(zap.String("run_id", runID))

	groups, err := ingest.Load(input, ingest.Options{
		Sheet:  mustGetString(cmd, "sheet"),
		Logger: log.Named("ingest"),
	})
	if err != nil {
		return fmt.Errorf("reading %s: %w", input, err)
	}
	if len(groups) == 0 {
		fmt.Println("No registrants found.")
		return nil
	}

	reg := prometheus.NewRegistry()
	pipeline := newVerifyPipeline(newCollaborators(cfg, log), reg, log)

	log.Info("verifying registrants",
		zap.String("input", input),
		zap.Int("registrants", len(groups)),
		zap.Int("concurrency", concurrency),
	)

	var bar *progressbar.ProgressBar
	if !mustGetBool(cmd, "no-progress") {
		bar = newVerifyProgressBar(len(groups))
	}

	start := time.Now()
	results := verifyGroups(ctx, pipeline, groups, concurrency, bar)

	if err := report.WriteXLSX(output, results, report.Options{
		DetailedSheet: cfg.Verify.SheetDetailed,
		SummarySheet:  cfg.Verify.SheetSummary,
	}); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}

	if path := mustGetString(cmd, "metrics-file"); path != "" {
		if err := prometheus.WriteToTextfile(path, reg); err != nil {
			return fmt.Errorf("writing metrics to %s: %w", path, err)
		}
		log.Info("metrics written", zap.String("path", path))
	}

	printVerifySummary(results, output, time.Since(start))
	return nil
}

// newVerifyPipeline builds a pipeline that records its metrics on reg.
func newVerifyPipeline(collab verification.Collaborators, reg prometheus.Registerer, log *zap.Logger) *verification.Pipeline {
	return verification.NewPipeline(collab,
		verification.WithLogger(log.Named("verify")),
		verification.WithMetrics(metrics.New(reg)),
	)
}

// verifyGroups verifies every group with at most concurrency goroutines.
// Results keep the order of groups.
func verifyGroups(ctx context.Context, v registrationVerifier, groups []verification.RegistrationGroup,
	concurrency int, bar *progressbar.ProgressBar) []verification.Result {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]verification.Result, len(groups))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, group := range groups {
		g.Go(func() error {
			results[i] = v.Verify(ctx, group)
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	if bar != nil {
		_ = bar.Finish()
	}
	return results
}

// newVerifyProgressBar creates a progress bar for registrant verification.
func newVerifyProgressBar(count int) *progressbar.ProgressBar {
	return progressbar.NewOptions(count,
		progressbar.OptionSetDescription("Verifying registrants"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("registrants"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
}

func printVerifySummary(results []verification.Result, output string, elapsed time.Duration) {
	var verified int
	var failed []verification.RegistrationVerdict
	for _, r := range results {
		if r.Verdict.AllVerified {
			verified++
		} else {
			failed = append(failed, r.Verdict)
		}
	}

	fmt.Printf("\nVerified %d registrants in %s\n", len(results), elapsed.Round(time.Millisecond))
	fmt.Printf("  All matched: %d\n", verified)
	fmt.Printf("  Failed:      %d\n", len(failed))
	for _, v := range failed {
		fmt.Printf("  - %s: %s\n", v.RegistrantID, v.FailureLocus)
	}
	fmt.Printf("Results written to %s\n", output)
}
