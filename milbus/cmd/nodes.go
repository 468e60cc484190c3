package cmd

import (
	"fmt"

	"github.com/sarchlab/milbus/bus"
	"github.com/sarchlab/milbus/config"
	"github.com/sarchlab/milbus/descriptor"
	"github.com/spf13/cobra"
)

func newNodesCommand() *cobra.Command {
	nodesCmd := &cobra.Command{
		Use:   "nodes INPUT",
		Short: "List the nodes that send or receive messages.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			descs, err := descriptor.ReadFile(args[0])
			if err != nil {
				return err
			}

			for _, n := range bus.Nodes(descs) {
				if n == cfg.BusController {
					fmt.Fprintf(cmd.OutOrStdout(), "%s (bus controller)\n", n)
					continue
				}

				fmt.Fprintln(cmd.OutOrStdout(), n)
			}

			return nil
		},
	}

	nodesCmd.Flags().String("bus-controller", config.Default().BusController,
		"Name of the bus controller node.")

	return nodesCmd
}
