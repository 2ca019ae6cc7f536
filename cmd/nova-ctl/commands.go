package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"nova/internal/feed"
	"nova/internal/ipc"
	"nova/internal/model"
	"nova/internal/music"
	"nova/internal/tailview"
)

func newSocketCmd(g *globals, name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ipc.Send(g.socket, name); err != nil {
				return fmt.Errorf("nova daemon not reachable on %s: %w", g.socket, err)
			}
			return nil
		},
	}
}

func newStatusCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the assistant status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := g.api().Status(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (since %s)\n", rec.Status, rec.Timestamp)
			return nil
		},
	}
}

func newEventsCmd(g *globals) *cobra.Command {
	now := time.Now()
	month := int(now.Month())
	year := now.Year()

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List calendar events of a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if month < 1 || month > 12 {
				return fmt.Errorf("month must be 1-12, got %d", month)
			}
			events, err := g.api().Events(cmd.Context(), month-1, year)
			if err != nil {
				return err
			}
			return printEvents(cmd, events)
		},
	}

	cmd.Flags().IntVarP(&month, "month", "m", month, "Month, 1-12")
	cmd.Flags().IntVarP(&year, "year", "y", year, "Year")
	return cmd
}

func printEvents(cmd *cobra.Command, events []model.CalendarEvent) error {
	out := cmd.OutOrStdout()
	if len(events) == 0 {
		_, err := fmt.Fprintln(out, "no events")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTIME\tTITLE\tSOURCE")
	for _, ev := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", ev.ID, ev.Date, ev.Time, ev.Title, ev.Source)
	}
	return tw.Flush()
}

func newAddEventCmd(g *globals) *cobra.Command {
	var f model.EventFields

	cmd := &cobra.Command{
		Use:   "add-event <title> <date>",
		Short: "Add a calendar event",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Title, f.Date = args[0], args[1]
			ev, err := g.api().AddEvent(cmd.Context(), f)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "added %s on %s at %s (id %s)\n", ev.Title, ev.Date, ev.Time, ev.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.Time, "time", "", "Time, HH:MM")
	cmd.Flags().StringVar(&f.Description, "description", "", "Description")
	return cmd
}

func newTailCmd(g *globals) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow the live feed of logs, status and calendar changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var r tailview.Renderer = tailview.NewTextRenderer(cmd.OutOrStdout(), time.Local)
			if asJSON {
				r = tailview.NewJSONRenderer(cmd.OutOrStdout())
			}

			client := feed.New(feed.URLFor(g.api().BaseURL()), feed.DefaultReconnect)
			err := client.Run(cmd.Context(), func(env model.Envelope) {
				_ = r.Render(env)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw JSON envelopes")
	return cmd
}

func newSpotifyLoginCmd() *cobra.Command {
	var tokenPath string

	cmd := &cobra.Command{
		Use:   "spotify-login",
		Short: "Authorize Nova to control Spotify playback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds := music.CredentialsFromEnv()
			if !creds.Configured() {
				return errors.New("set SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET and SPOTIFY_REDIRECT_URI")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			tok, err := music.Login(ctx, creds, func(url string) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Open this URL to authorize Nova:\n"+url)
			})
			if err != nil {
				return err
			}
			if err := music.SaveToken(tokenPath, tok); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "token saved to", tokenPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&tokenPath, "token", music.DefaultTokenPath(), "Token file")
	return cmd
}
