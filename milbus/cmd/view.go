package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/browser"
	"github.com/sarchlab/milbus/datarecording"
	"github.com/sarchlab/milbus/monitoring"
	"github.com/spf13/cobra"
)

func newViewCommand() *cobra.Command {
	viewCmd := &cobra.Command{
		Use:   "view DB",
		Short: "Browse the runs recorded in a SQLite database.",
		Long: "`view DB` starts a web server that shows the runs recorded " +
			"by `analyze --record`. It stops on interrupt.",
		Args: cobra.ExactArgs(1),
		RunE: runView,
	}

	viewCmd.Flags().IntP("port", "p", 0,
		"Port of the web server. A random port is used if 0.")
	viewCmd.Flags().Bool("open", false, "Open the viewer in a browser.")

	return viewCmd
}

func runView(cmd *cobra.Command, args []string) error {
	_, err := os.Stat(args[0])
	if err != nil {
		return err
	}

	reader := datarecording.NewReader(args[0])
	defer reader.Close()

	port, _ := cmd.Flags().GetInt("port")
	monitor := monitoring.NewMonitor(reader).
		WithLogger(slog.Default()).
		WithPortNumber(port)

	url, err := monitor.StartServer()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Viewing %s at %s\n", args[0], url)

	open, _ := cmd.Flags().GetBool("open")
	if open {
		err = browser.OpenURL(url)
		if err != nil {
			slog.Warn("cannot open browser", "error", err)
		}
	}

	<-cmd.Context().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return monitor.Shutdown(ctx)
}
