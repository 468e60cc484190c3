package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/rs/xid"
	"github.com/sarchlab/milbus/analysis"
	"github.com/sarchlab/milbus/bus"
	"github.com/sarchlab/milbus/config"
	"github.com/sarchlab/milbus/datarecording"
	"github.com/sarchlab/milbus/descriptor"
	"github.com/sarchlab/milbus/tracing"
	"github.com/spf13/cobra"
)

var errUnschedulable = errors.New("some messages are not schedulable")

func newAnalyzeCommand() *cobra.Command {
	analyzeCmd := &cobra.Command{
		Use:   "analyze INPUT",
		Short: "Analyze the messages described in an XML or YAML file.",
		Long: "`analyze INPUT` prints the transmission delay, priority, " +
			"worst-case response time and verdict of every message in INPUT. " +
			"Use --output to also write the results to an XML, YAML or CSV " +
			"file and --record to store them into a SQLite database.",
		Args: cobra.ExactArgs(1),
		RunE: runAnalyze,
	}

	defaults := config.Default()
	flags := analyzeCmd.Flags()
	flags.String("bus-controller", defaults.BusController,
		"Name of the bus controller node.")
	flags.Float64("link-speed", defaults.LinkSpeed, "Link speed in Mbit/s.")
	flags.Int("max-iterations", defaults.MaxIterations,
		"Maximum number of response time iterations per message.")
	flags.Float64("horizon-factor", defaults.HorizonFactor,
		"Give up on a response time once it exceeds this many periods.")
	flags.Int("workers", defaults.NumWorkers,
		"Number of response times computed concurrently.")
	flags.StringP("output", "o", "",
		"Write the results to this file (.xml, .yaml or .csv).")
	flags.Bool("priority", !defaults.OmitPriority,
		"Include the priorities in the output file.")
	flags.Bool("record", false,
		"Record the results into a SQLite database.")
	flags.String("db", defaults.DBPath,
		"Database file used by --record. A new file is created if empty.")
	flags.Bool("trace-iterations", defaults.TraceIterations,
		"Also record every response time iteration.")
	flags.Bool("fail-unschedulable", false,
		"Exit with an error if a message is not schedulable.")

	return analyzeCmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	descs, err := descriptor.ReadFile(args[0])
	if err != nil {
		return err
	}

	analyzer := cfg.AnalyzerBuilder().WithLogger(slog.Default()).Build()
	if verbose(cmd) {
		analyzer.AcceptHook(analysis.NewIterationLogger(slog.Default()))
	}

	slog.Debug("analyzing", "input", args[0], "analyzer", analyzer.String())

	var exec *datarecording.ExecRecorder

	record, _ := cmd.Flags().GetBool("record")
	if record || cfg.DBPath != "" {
		recorder := datarecording.New(cfg.DBPath)
		defer recorder.Close()

		exec = datarecording.NewExecRecorder(recorder, xid.New().String())
		exec.Start()

		analyzer.AcceptHook(tracing.NewDBTracer(recorder, cfg.TraceIterations))
	}

	report, err := analyzer.Analyze(cmd.Context(), descs)
	if report == nil {
		return err
	}

	if exec != nil {
		exec.Record(datarecording.AnalysisRunProperty, report.RunID)
		exec.End()
	}

	printReport(cmd.OutOrStdout(), report)

	output, _ := cmd.Flags().GetString("output")
	if output != "" {
		err := descriptor.WriteFile(output, report.Results(),
			descriptor.WriteOptions{OmitPriority: cfg.OmitPriority})
		if err != nil {
			return err
		}

		slog.Info("results written", "file", output)
	}

	failUnschedulable, _ := cmd.Flags().GetBool("fail-unschedulable")
	if failUnschedulable && !report.AllSchedulable() {
		return fmt.Errorf("%w: %d of %d", errUnschedulable,
			len(report.Messages)-numSchedulable(report), len(report.Messages))
	}

	return nil
}

func numSchedulable(r *analysis.RunReport) int {
	n := 0

	for _, m := range r.Messages {
		if m.Verdict() == bus.Schedulable {
			n++
		}
	}

	return n
}
