// Package main provides the CLI entrypoint for mesa.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mikexyl/mesa/internal/batch"
	"github.com/mikexyl/mesa/internal/config"
	"github.com/mikexyl/mesa/internal/convergence"
	"github.com/mikexyl/mesa/internal/model"
	"github.com/mikexyl/mesa/internal/seriesio"
	"github.com/mikexyl/mesa/internal/stats"
	"github.com/mikexyl/mesa/internal/statsui"
	"github.com/mikexyl/mesa/internal/store"
)

const (
	defaultThreshold  = 1.0
	defaultResultsDir = "data/results/seq"
	defaultCSVName    = "convergence_analysis.csv"
	defaultPlotHeight = 10
)

var (
	analyzeThreshold float64
	analyzeStrategy  string

	batchResultsDir string
	batchThreshold  float64
	batchStrategy   string
	batchCSVPath    string
	batchReportPath string

	timingResultsDir string

	relchangeTolerances []float64

	addCSVPath string

	exportOutPath string

	plotAlgorithm string
	plotWidth     int
	plotHeight    int

	reportAlgorithm string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "mesa",
		Short:         "Convergence analysis for multi-robot trajectory estimation experiments",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newTimingCmd())
	rootCmd.AddCommand(newRelchangeCmd())
	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newPlotCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <residual_and_ate.txt>",
		Short: "Analyze convergence of a single experiment file",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyzeCmd,
	}
	cmd.Flags().Float64VarP(&analyzeThreshold, "threshold", "t", defaultThreshold, "percentage threshold for convergence")
	cmd.Flags().StringVar(&analyzeStrategy, "strategy", "", "convergence strategy (monotonic-upper-bound or symmetric-relative)")
	return cmd
}

func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFloatConfig(cmd, "threshold", &analyzeThreshold, fileCfg.Analysis.Threshold)
	applyStringConfig(cmd, "strategy", &analyzeStrategy, fileCfg.Analysis.Strategy)

	strategy, err := convergence.ParseStrategy(analyzeStrategy)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(out, "Analyzing file: %s\nThreshold: %g%% (%s)\n%s\n",
		args[0], analyzeThreshold, strategy, strings.Repeat("=", 60)); err != nil {
		return err
	}
	analysis, err := batch.AnalyzeFile(args[0], analyzeThreshold, strategy)
	if err != nil {
		return err
	}
	return stats.RenderFileAnalysis(out, analysis, analyzeThreshold)
}

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Analyze all experiment folders and store the results",
		Args:  cobra.NoArgs,
		RunE:  runBatchCmd,
	}
	cmd.Flags().StringVar(&batchResultsDir, "results-dir", defaultResultsDir, "directory with experiment folders")
	cmd.Flags().Float64VarP(&batchThreshold, "threshold", "t", defaultThreshold, "percentage threshold for convergence")
	cmd.Flags().StringVar(&batchStrategy, "strategy", "", "convergence strategy (monotonic-upper-bound or symmetric-relative)")
	cmd.Flags().StringVar(&batchCSVPath, "csv", defaultCSVName, "CSV output path (empty to skip)")
	cmd.Flags().StringVar(&batchReportPath, "report", "", "detailed text report output path")
	return cmd
}

func runBatchCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "results-dir", &batchResultsDir, fileCfg.Analysis.ResultsDir)
	applyFloatConfig(cmd, "threshold", &batchThreshold, fileCfg.Analysis.Threshold)
	applyStringConfig(cmd, "strategy", &batchStrategy, fileCfg.Analysis.Strategy)

	strategy, err := convergence.ParseStrategy(batchStrategy)
	if err != nil {
		return err
	}

	summary, err := batch.Run(batch.Options{
		ResultsDir:       batchResultsDir,
		ThresholdPercent: batchThreshold,
		Strategy:         strategy,
	}, logErrf)
	if err != nil {
		return fmt.Errorf("batch analysis failed: %w", err)
	}
	logErrf("processed %d experiments, skipped %d", summary.Processed, summary.Skipped)

	if len(summary.Results) > 0 {
		st, err := openStore(fileCfg)
		if err != nil {
			return err
		}
		defer closeStore(st)
		if err := st.UpsertResults(context.Background(), summary.Results); err != nil {
			return fmt.Errorf("failed to store results: %w", err)
		}
	}

	if batchCSVPath != "" {
		if err := writeCSVFile(batchCSVPath, summary.Results); err != nil {
			return err
		}
		logErrf("wrote %s", batchCSVPath)
	}
	if batchReportPath != "" {
		if err := writeReportFile(batchReportPath, summary.Results, summary.Skipped); err != nil {
			return err
		}
		logErrf("wrote %s", batchReportPath)
	}

	return stats.RenderSummary(cmd.OutOrStdout(), summary.Results)
}

func newTimingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timing",
		Short: "Join stored results with iteration-timing files",
		Args:  cobra.NoArgs,
		RunE:  runTimingCmd,
	}
	cmd.Flags().StringVar(&timingResultsDir, "results-dir", defaultResultsDir, "directory with experiment folders")
	return cmd
}

func runTimingCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "results-dir", &timingResultsDir, fileCfg.Analysis.ResultsDir)

	st, err := openStore(fileCfg)
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := context.Background()
	results, err := st.ListResults(ctx, store.Filter{})
	if err != nil {
		return fmt.Errorf("failed to list results: %w", err)
	}
	if len(results) == 0 {
		return fmt.Errorf("no stored results; run: mesa batch")
	}

	joined := 0
	updated := make([]model.ExperimentResult, 0, len(results))
	for _, res := range results {
		timingPath := filepath.Join(timingResultsDir, res.Experiment, batch.TimingFileName)
		timing, _, err := seriesio.LoadTimings(timingPath)
		if err != nil {
			logErrf("skipping %s: %v", res.Experiment, err)
			continue
		}
		res.Position = convergence.JoinResult(res.Position.ConvergenceResult, timing)
		res.Rotation = convergence.JoinResult(res.Rotation.ConvergenceResult, timing)
		updated = append(updated, res)
		joined++
	}
	if len(updated) > 0 {
		if err := st.UpsertResults(ctx, updated); err != nil {
			return fmt.Errorf("failed to store results: %w", err)
		}
	}
	logErrf("joined timing data for %d of %d experiments", joined, len(results))
	return stats.RenderResultsTable(cmd.OutOrStdout(), updated)
}

func newRelchangeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relchange <residual_and_ate.txt>",
		Short: "Find where the residual's relative change drops below tolerance",
		Args:  cobra.ExactArgs(1),
		RunE:  runRelchangeCmd,
	}
	cmd.Flags().Float64SliceVar(&relchangeTolerances, "tolerance", []float64{0.01, 0.001}, "relative-change tolerances")
	return cmd
}

func runRelchangeCmd(cmd *cobra.Command, args []string) error {
	records, _, err := seriesio.LoadRecords(args[0])
	if err != nil {
		return err
	}
	changes := convergence.RelativeChanges(model.ResidualSeries(records))
	out := cmd.OutOrStdout()
	for _, tolerance := range relchangeTolerances {
		counter, ok := convergence.FirstBelow(changes, tolerance)
		if ok {
			if _, err := fmt.Fprintf(out, "First communication where relative change < %g: %d\n", tolerance, counter); err != nil {
				return err
			}
		} else {
			if _, err := fmt.Fprintf(out, "Relative change never drops below %g\n", tolerance); err != nil {
				return err
			}
		}
	}
	return nil
}

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Merge externally produced result rows into the store",
		Args:  cobra.NoArgs,
		RunE:  runAddCmd,
	}
	cmd.Flags().StringVar(&addCSVPath, "csv", "", "CSV file with result rows")
	if err := cmd.MarkFlagRequired("csv"); err != nil {
		// MarkFlagRequired only fails for unknown flag names.
		panic(err)
	}
	return cmd
}

func runAddCmd(_ *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	f, err := os.Open(addCSVPath)
	if err != nil {
		return fmt.Errorf("failed to open csv: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close of a read-only file.
			_ = cerr
		}
	}()
	results, err := batch.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", addCSVPath, err)
	}

	st, err := openStore(fileCfg)
	if err != nil {
		return err
	}
	defer closeStore(st)
	if err := st.UpsertResults(context.Background(), results); err != nil {
		return fmt.Errorf("failed to store results: %w", err)
	}
	logErrf("merged %d result rows from %s", len(results), addCSVPath)
	return nil
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored results as CSV",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVarP(&exportOutPath, "out", "o", "", "output path (default stdout)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	st, err := openStore(fileCfg)
	if err != nil {
		return err
	}
	defer closeStore(st)

	results, err := st.ListResults(context.Background(), store.Filter{})
	if err != nil {
		return fmt.Errorf("failed to list results: %w", err)
	}
	if exportOutPath == "" {
		return batch.WriteCSV(cmd.OutOrStdout(), results)
	}
	if err := writeCSVFile(exportOutPath, results); err != nil {
		return err
	}
	logErrf("wrote %s", exportOutPath)
	return nil
}

func newPlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render convergence charts for stored results",
		Args:  cobra.NoArgs,
		RunE:  runPlotCmd,
	}
	cmd.Flags().StringVar(&plotAlgorithm, "algorithm", "", "algorithm filter")
	cmd.Flags().IntVar(&plotWidth, "width", 0, "plot width in cells (default: terminal width)")
	cmd.Flags().IntVar(&plotHeight, "height", defaultPlotHeight, "plot height in cells")
	return cmd
}

func runPlotCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	display, err := config.ResolveDisplay(fileCfg.Display)
	if err != nil {
		return err
	}
	st, err := openStore(fileCfg)
	if err != nil {
		return err
	}
	defer closeStore(st)

	results, err := st.ListResults(context.Background(), store.Filter{Algorithm: plotAlgorithm})
	if err != nil {
		return fmt.Errorf("failed to list results: %w", err)
	}
	if len(results) == 0 {
		return fmt.Errorf("no stored results; run: mesa batch")
	}
	for _, plot := range stats.BuildConvergencePlots(results, display) {
		if err := stats.RenderPlot(cmd.OutOrStdout(), plot, plotWidth, plotHeight, false); err != nil {
			return err
		}
	}
	return nil
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Browse stored results interactively",
		Args:  cobra.NoArgs,
		RunE:  runReportCmd,
	}
	cmd.Flags().StringVar(&reportAlgorithm, "algorithm", "", "algorithm filter")
	return cmd
}

func runReportCmd(_ *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	display, err := config.ResolveDisplay(fileCfg.Display)
	if err != nil {
		return err
	}
	st, err := openStore(fileCfg)
	if err != nil {
		return err
	}
	defer closeStore(st)

	ui := statsui.NewModel(st, display, store.Filter{Algorithm: reportAlgorithm})
	program := tea.NewProgram(ui, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run report TUI: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# mesa configuration
# Uncomment a value to enable it. CLI flags override config values.

[analysis]
# results-dir = %q     # Directory with experiment folders
# threshold = %.1f                  # Convergence threshold in percent
# strategy = "monotonic-upper-bound" # Or "symmetric-relative"
# db-path = ""                      # SQLite database override

[display.colors]
# Per-algorithm chart colors. Known algorithms: asapp, dgs,
# geodesic-mesa, cbs. Known colors: red, green, yellow, blue,
# magenta, purple, cyan, white.
# asapp = "red"
# dgs = "blue"
# geodesic-mesa = "green"
# cbs = "purple"
`,
		defaultResultsDir,
		defaultThreshold,
	)
}

func openStore(fileCfg config.FileConfig) (*store.Store, error) {
	path := config.DefaultDBPath()
	if fileCfg.Analysis.DBPath != nil && *fileCfg.Analysis.DBPath != "" {
		path = *fileCfg.Analysis.DBPath
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v", cerr)
	}
}

func writeCSVFile(path string, results []model.ExperimentResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := batch.WriteCSV(f, results); err != nil {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close after write failure.
			_ = cerr
		}
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func writeReportFile(path string, results []model.ExperimentResult, skipped int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := stats.RenderBatchReport(f, results, skipped); err != nil {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close after write failure.
			_ = cerr
		}
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format+"\n", args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
