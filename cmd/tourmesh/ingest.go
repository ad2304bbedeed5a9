package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newIngestCmd(flags *rootFlags) *cobra.Command {
	var (
		destination string
		reset       bool
	)

	cmd := &cobra.Command{
		Use:   "ingest --destination <place> <file>...",
		Short: "Add text or markdown guides to the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if destination == "" {
				return errors.New("--destination is required")
			}

			cfg, err := flags.load()
			if err != nil {
				return err
			}

			a, err := openStores(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()

			if reset {
				if err := a.knowledge.Reset(ctx, destination); err != nil {
					return fmt.Errorf("reset %s: %w", destination, err)
				}
			}

			total := 0

			for _, path := range args {
				content, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}

				added, err := a.knowledge.Index(ctx, destination, filepath.Base(path), string(content))
				if err != nil {
					return fmt.Errorf("index %s: %w", path, err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d new chunks\n", path, added)
				total += added
			}

			count, err := a.knowledge.Count(ctx, destination)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added %d chunks; %s now has %d.\n", total, destination, count)

			return nil
		},
	}

	cmd.Flags().StringVarP(&destination, "destination", "d", "", "destination the documents describe")
	cmd.Flags().BoolVar(&reset, "reset", false, "remove the destination's existing chunks first")

	return cmd
}
