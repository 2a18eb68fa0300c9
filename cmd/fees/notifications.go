package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-fees-must-flow/internal/cli"
	"github.com/Veraticus/the-fees-must-flow/internal/engine"
	"github.com/Veraticus/the-fees-must-flow/internal/model"
	"github.com/Veraticus/the-fees-must-flow/internal/notify"
	"github.com/Veraticus/the-fees-must-flow/internal/scheduler"
	"github.com/Veraticus/the-fees-must-flow/internal/tui"
	"github.com/Veraticus/the-fees-must-flow/internal/tui/themes"
)

func notificationsCmd() *cobra.Command {
	var track, date string

	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"due", "notify"},
		Short:   "Show which payments are due, grouped by client",
		Long: `Show the pending installments that should be surfaced today: every
overdue payment plus those coming due within the notification window,
grouped by client with the most urgent first.

Orphaned installments are swept before the evaluation.`,
		Example: `  fees notifications
  fees notifications --track all
  fees notifications --track tarot --date 2024-03-05`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if track == "" {
				track = string(settings.Track)
			}
			tracks, err := parseTracks(track)
			if err != nil {
				return err
			}

			return withEngine(cmd.Context(), func(e *engine.Engine) error {
				today := e.Today()
				if date != "" {
					if today, err = parseDate(date); err != nil {
						return err
					}
				}

				for _, t := range tracks {
					summary, err := e.Notifications(cmd.Context(), t, today)
					if err != nil {
						return err
					}
					fmt.Println(cli.RenderSummary(summary, settings.Currency)) //nolint:forbidigo // User-facing output
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&track, "track", "", "track to show: principal, tarot or all (default from notifications.track)")
	cmd.Flags().StringVar(&date, "date", "", "evaluate as of this date (YYYY-MM-DD)")

	return cmd
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove installments whose record no longer exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd.Context(), func(e *engine.Engine) error {
				removed, err := e.Sweep(cmd.Context())
				if err != nil {
					return err
				}
				if removed == 0 {
					fmt.Println(cli.FormatSuccess("No orphaned installments.")) //nolint:forbidigo // User-facing output
					return nil
				}
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Removed %d orphaned installments", removed))) //nolint:forbidigo // User-facing output
				return nil
			})
		},
	}
}

func watchCmd() *cobra.Command {
	var track, schedule string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep printing due payments as days pass and plans change",
		Long: `Evaluate notifications now, then again on a schedule and whenever the
installment store changes. A summary is printed only when what it shows
has changed.`,
		Example: `  fees watch --track all --schedule "@every 5m"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if track == "" {
				track = string(settings.Track)
			}
			tracks, err := parseTracks(track)
			if err != nil {
				return err
			}
			if schedule == "" {
				schedule = settings.WatchSchedule
			}

			return withEngine(cmd.Context(), func(e *engine.Engine) error {
				var mu sync.Mutex
				w, err := scheduler.New(e, scheduler.Config{
					Schedule: schedule,
					Tracks:   tracks,
					OnSummary: func(reason string, summary notify.Summary) {
						mu.Lock()
						defer mu.Unlock()
						fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("[%s]", reason))) //nolint:forbidigo // User-facing output
						fmt.Println(cli.RenderSummary(summary, settings.Currency))      //nolint:forbidigo // User-facing output
					},
				})
				if err != nil {
					return err
				}

				ctx := cli.NewInterruptHandler(os.Stderr).HandleInterrupts(cmd.Context(), "Watch")
				return w.Run(ctx)
			})
		},
	}

	cmd.Flags().StringVar(&track, "track", "", "track to watch: principal, tarot or all (default from notifications.track)")
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron schedule for re-evaluation (default from watch.schedule)")

	return cmd
}

func tuiCmd() *cobra.Command {
	var track, theme string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Interactive view of due payments",
		Long: `Browse due payments and mark them paid, postponed or deleted. The view
refreshes whenever the installment store changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			selected := settings.Track
			if track != "" {
				var err error
				if selected, err = model.ParseTrack(track); err != nil {
					return err
				}
			}

			return withEngine(cmd.Context(), func(e *engine.Engine) error {
				return tui.Run(cmd.Context(),
					tui.WithEngine(e),
					tui.WithCurrency(settings.Currency),
					tui.WithTrack(selected),
					tui.WithTheme(themes.ByName(theme)),
				)
			})
		},
	}

	cmd.Flags().StringVar(&track, "track", "", "initial track: principal or tarot")
	cmd.Flags().StringVar(&theme, "theme", "default", "color theme (default or catppuccin)")

	return cmd
}
