package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(flags *rootFlags) *cobra.Command {
	var destination string

	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Send a single message to the travel planner",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			const sessionID = "cli"
			if destination != "" {
				a.mesh.SetDestination(sessionID, destination)
			}

			res, err := a.mesh.Ask(cmd.Context(), sessionID, strings.Join(args, " "))
			if res != nil {
				fmt.Fprintln(cmd.OutOrStdout(), res.Output)
			}

			return err
		},
	}

	cmd.Flags().StringVarP(&destination, "destination", "d", "", "trip destination")

	return cmd
}
