package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/tourmesh/toolkit/calendar"
)

func newCalendarsCmd(flags *rootFlags) *cobra.Command {
	var events bool

	cmd := &cobra.Command{
		Use:   "calendars",
		Short: "List the local calendars",
		RunE: func(cmd *cobra.Command, _ []string) error {
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
			out := cmd.OutOrStdout()

			calendars, err := a.calendar.ListCalendars(ctx, calendar.DefaultCalendarLimit)
			if err != nil {
				return err
			}

			for _, c := range calendars {
				fmt.Fprintf(out, "%s\t%s\n", c.ID, c.Summary)

				if !events {
					continue
				}

				evs, err := a.calendar.ListEvents(ctx, c.ID, calendar.DefaultEventLimit)
				if err != nil {
					return err
				}

				for _, e := range evs {
					fmt.Fprintf(out, "  %s - %s  %s\n", e.Start.Format("2006-01-02 15:04"), e.End.Format("15:04"), e.Summary)
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(&events, "events", "e", false, "also list the events of each calendar")

	return cmd
}
