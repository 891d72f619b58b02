package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"channelposter/internal/app"
	"channelposter/internal/poster"
	"channelposter/internal/storage"
)

func newPublishCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Publish one post now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := f.newApp(app.ModePublish)
			if err != nil {
				return err
			}
			defer a.Close()
			return reportOutcome(cmd, a.Publish(cmd.Context()))
		},
	}
}

// reportOutcome prints the run result for the operator and maps failures to
// their exit status.
func reportOutcome(cmd *cobra.Command, out poster.Outcome) error {
	if out.OK() {
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Post published successfully at %s\n", time.Now().Format(time.RFC3339))
		fmt.Fprintf(cmd.OutOrStdout(), "📝 Post type: %s\n", out.Selection.Post.Type)
		return nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "❌ Error publishing post: %v\n", out.Err)
	if out.Kind == poster.PartiallySent {
		fmt.Fprintln(cmd.ErrOrStderr(), "   part of the message is public and was recorded; do not re-send it")
	}
	if out.Kind == poster.RecordFailed {
		fmt.Fprintln(cmd.ErrOrStderr(), "   the message was sent; only the publication log entry is missing")
	}
	return &exitError{code: out.ExitCode(), err: errors.New(out.Error()), reported: true}
}

func newRunCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Publish on a schedule until interrupted",
		Long: `run keeps the process alive and publishes once per schedule tick.

Schedules: cron ("0 9 * * *", "@daily"), a daily time ("at:09:30"),
an interval ("6h") or HH:MM interval ("02:30"). Ticks never overlap.
With schedule.watch_catalog the catalog file is reloaded when it changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := f.newApp(app.ModePublish)
			if err != nil {
				return err
			}
			defer a.Close()
			if strings.TrimSpace(a.Config().Schedule.Spec) == "" {
				return configFailure(errors.New("no schedule: set --schedule, SCHEDULE or schedule.spec"))
			}
			if err := a.RunScheduled(cmd.Context()); err != nil {
				return configFailure(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&f.schedule, "schedule", "", "publish schedule (overrides SCHEDULE)")
	return cmd
}

func newCatalogCmd(f *rootFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the posts in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := f.newApp(app.ModeInspect)
			if err != nil {
				return err
			}
			defer a.Close()
			c, err := a.Catalog()
			if err != nil {
				return configFailure(err)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(c.Posts())
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tID\tTYPE\tCONTENT")
			for i, p := range c.Posts() {
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", i+1, p.ID, p.Type, firstLine(p.Content, 60))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print posts as JSON")
	return cmd
}

func newPreviewCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Select and format a post without sending it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := f.newApp(app.ModeInspect)
			if err != nil {
				return err
			}
			defer a.Close()
			sel, msg, err := a.Preview()
			if err != nil {
				return configFailure(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "post %d (%s), selected by %s\n\n%s\n", sel.Post.ID, sel.Post.Type, sel.Method, msg)
			return nil
		},
	}
}

func newHistoryCmd(f *rootFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded publications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := f.newApp(app.ModeHistory)
			if err != nil {
				return err
			}
			defer a.Close()
			entries, err := a.History(cmd.Context())
			if errors.Is(err, storage.ErrDisabled) {
				fmt.Fprintln(cmd.OutOrStdout(), "publication log disabled (storage.driver=none)")
				return nil
			}
			if err != nil {
				return exitWith(poster.RecordFailed, err)
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIMESTAMP\tPOST\tTYPE\tCHANNEL")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", e.Timestamp, e.PostID, e.PostType, e.Channel)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show only the last n entries")
	return cmd
}

func firstLine(s string, maxRunes int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	r := []rune(s)
	return string(r[:maxRunes-1]) + "…"
}
