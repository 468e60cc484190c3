// Package cmd provides the command-line interface of milbus.
package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/lmittmann/tint"
	"github.com/sarchlab/milbus/config"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use: "milbus",
		Short: "milbus checks if the periodic messages of a MIL-STD-1553 " +
			"bus meet their deadlines.",
		Long: `milbus computes the transmission delay, the Rate-Monotonic ` +
			`priority and the worst-case response time of every periodic ` +
			`message of a MIL-STD-1553 bus, and tells which messages are ` +
			`schedulable. Results can be written to XML, YAML or CSV files ` +
			`and recorded into SQLite databases that "milbus view" serves.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			setupLogger(cmd)
		},
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false,
		"Log every step of the analysis.")
	rootCmd.PersistentFlags().String("env", "",
		"Read settings from this .env file instead of "+config.DefaultEnvFile+".")

	rootCmd.AddCommand(newAnalyzeCommand())
	rootCmd.AddCommand(newNodesCommand())
	rootCmd.AddCommand(newViewCommand())

	return rootCmd
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := newRootCommand().ExecuteContext(ctx)

	stop()

	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func setupLogger(cmd *cobra.Command) {
	level := slog.LevelInfo
	if verbose(cmd) {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(
		tint.NewHandler(cmd.ErrOrStderr(), &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
		}),
	))
}

func verbose(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("verbose")
	return v
}

// loadConfig reads the settings from the .env file and the environment, and
// applies the flags set on the command line.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	var files []string
	if envFile, _ := cmd.Flags().GetString("env"); envFile != "" {
		files = append(files, envFile)
	}

	cfg, err := config.Load(files...)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	changed := func(name string) bool {
		return flags.Lookup(name) != nil && flags.Changed(name)
	}

	if changed("bus-controller") {
		cfg.BusController, _ = flags.GetString("bus-controller")
	}

	if changed("link-speed") {
		cfg.LinkSpeed, _ = flags.GetFloat64("link-speed")
	}

	if changed("max-iterations") {
		cfg.MaxIterations, _ = flags.GetInt("max-iterations")
	}

	if changed("horizon-factor") {
		cfg.HorizonFactor, _ = flags.GetFloat64("horizon-factor")
	}

	if changed("workers") {
		cfg.NumWorkers, _ = flags.GetInt("workers")
	}

	if changed("priority") {
		withPriority, _ := flags.GetBool("priority")
		cfg.OmitPriority = !withPriority
	}

	if changed("db") {
		cfg.DBPath, _ = flags.GetString("db")
	}

	if changed("trace-iterations") {
		cfg.TraceIterations, _ = flags.GetBool("trace-iterations")
	}

	return cfg, cfg.Validate()
}
