package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hupe1980/tourmesh"
)

func newChatCmd(flags *rootFlags) *cobra.Command {
	var (
		sessionID   string
		destination string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the travel planner interactively",
		Long: `Start an interactive conversation with the travel planner.

Commands inside the chat:
  /destination <place>   set the trip destination
  /reset                 forget the conversation
  /quit                  leave`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if sessionID == "" {
				sessionID = uuid.NewString()[:8]
			}

			if destination != "" {
				a.mesh.SetDestination(sessionID, destination)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			fmt.Fprintf(cmd.ErrOrStderr(), "tourmesh chat (session %s). Type /quit to leave.\n\n", sessionID)

			return runChat(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), a.mesh, sessionID)
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id (default: random)")
	cmd.Flags().StringVarP(&destination, "destination", "d", "", "initial trip destination")

	return cmd
}

// runChat reads one message per line from in until EOF or /quit.
func runChat(ctx context.Context, in io.Reader, out io.Writer, mesh *tourmesh.TourMesh, sessionID string) error {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "You: ")

		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())

		switch {
		case input == "":
			continue
		case input == "/quit" || input == "/exit":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		case input == "/reset":
			dest := ""
			if snap, ok := mesh.Session(sessionID); ok {
				dest = snap.Vars["destination"]
			}

			mesh.Reset(sessionID)

			if dest != "" {
				mesh.SetDestination(sessionID, dest)
			}

			fmt.Fprintln(out, "Conversation cleared.")

			continue
		case strings.HasPrefix(input, "/destination"):
			dest := strings.TrimSpace(strings.TrimPrefix(input, "/destination"))
			if dest == "" {
				fmt.Fprintln(out, "Usage: /destination <place>")
				continue
			}

			mesh.SetDestination(sessionID, dest)
			fmt.Fprintf(out, "Destination set to %s.\n", dest)

			continue
		case strings.HasPrefix(input, "/"):
			fmt.Fprintf(out, "Unknown command %s.\n", input)
			continue
		}

		res, err := mesh.Ask(ctx, sessionID, input)
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}

		if res != nil {
			fmt.Fprintf(out, "\nAssistant: %s\n\n", res.Output)
		} else if err != nil {
			fmt.Fprintf(out, "\nError: %v\n\n", err)
		}
	}
}
