package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-fees-must-flow/internal/cli"
	"github.com/Veraticus/the-fees-must-flow/internal/engine"
	"github.com/Veraticus/the-fees-must-flow/internal/model"
)

func installmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "installments",
		Aliases: []string{"inst"},
		Short:   "List, pay and postpone individual installments",
		Example: `  # Everything Ana still owes
  fees installments list --client "Ana Souza" --pending

  # Record a payment, then undo it
  fees installments pay ana-souza:monthly:1
  fees installments unpay ana-souza:monthly:1

  # Move one installment two weeks out
  fees installments postpone ana-souza:monthly:2 --days 14`,
	}

	cmd.AddCommand(listInstallmentsCmd())
	cmd.AddCommand(payInstallmentCmd())
	cmd.AddCommand(unpayInstallmentCmd())
	cmd.AddCommand(postponeInstallmentCmd())
	cmd.AddCommand(deleteInstallmentCmd())

	return cmd
}

// installmentFilter narrows a listing.
type installmentFilter struct {
	client  string
	track   string
	pending bool
}

func (f installmentFilter) apply(installments []model.Installment) ([]model.Installment, error) {
	var tracks []model.Track
	if f.track != "" {
		var err error
		if tracks, err = parseTracks(f.track); err != nil {
			return nil, err
		}
	}

	out := make([]model.Installment, 0, len(installments))
	for _, inst := range installments {
		if strings.TrimSpace(f.client) != "" && !model.SameClient(inst.OwnerClientName, f.client) {
			continue
		}
		if f.pending && !inst.Pending {
			continue
		}
		if len(tracks) > 0 && !containsTrack(tracks, inst.Track()) {
			continue
		}
		out = append(out, inst)
	}
	return out, nil
}

func containsTrack(tracks []model.Track, track model.Track) bool {
	for _, t := range tracks {
		if t == track {
			return true
		}
	}
	return false
}

func listInstallmentsCmd() *cobra.Command {
	var filter installmentFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored installments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd.Context(), func(e *engine.Engine) error {
				all, err := e.Storage().GetAll(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to load installments: %w", err)
				}
				installments, err := filter.apply(all)
				if err != nil {
					return err
				}

				if len(installments) == 0 {
					fmt.Println(cli.InfoStyle.Render("No installments found.")) //nolint:forbidigo // User-facing output
					return nil
				}
				fmt.Println(cli.RenderInstallments(installments, settings.Currency)) //nolint:forbidigo // User-facing output
				fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("%d installments", len(installments)))) //nolint:forbidigo // User-facing output
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&filter.client, "client", "", "only this client")
	cmd.Flags().StringVar(&filter.track, "track", "", "only this track (principal, tarot or all)")
	cmd.Flags().BoolVar(&filter.pending, "pending", false, "only unpaid installments")

	return cmd
}

func payInstallmentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pay <id>...",
		Short: "Mark installments as paid",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(e *engine.Engine) error {
				for _, id := range args {
					inst, err := e.MarkPaid(cmd.Context(), id)
					if err != nil {
						return err
					}
					fmt.Println(cli.FormatSuccess(fmt.Sprintf("Paid %s (%s, %s)", //nolint:forbidigo // User-facing output
						inst.ID, inst.OwnerClientName, cli.FormatAmount(inst.Amount, settings.Currency))))
				}
				return nil
			})
		},
	}
}

func unpayInstallmentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unpay <id>...",
		Short: "Restore paid installments to pending",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(e *engine.Engine) error {
				for _, id := range args {
					inst, err := e.MarkPending(cmd.Context(), id)
					if err != nil {
						return err
					}
					fmt.Println(cli.FormatSuccess(fmt.Sprintf("%s is pending again", inst.ID))) //nolint:forbidigo // User-facing output
				}
				return nil
			})
		},
	}
}

func postponeInstallmentCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "postpone <id>",
		Short: "Move the due date of a pending installment",
		Long: `Move the due date of one pending installment. Other installments of the
plan keep their dates. Without --days the configured default is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 0 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}
			return withEngine(cmd.Context(), func(e *engine.Engine) error {
				inst, err := e.Postpone(cmd.Context(), args[0], days)
				if err != nil {
					return err
				}
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("%s is now due %s", //nolint:forbidigo // User-facing output
					inst.ID, inst.DueDate.Format(model.DateLayout))))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "days to postpone by (default from plans.postpone_days)")

	return cmd
}

func deleteInstallmentCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a single installment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(e *engine.Engine) error {
				ctx := cmd.Context()
				inst, err := e.Storage().GetInstallment(ctx, args[0])
				if err != nil {
					return err
				}

				if !force {
					ok, err := confirm(ctx, fmt.Sprintf("%s Delete installment %s of %s?",
						cli.WarningIcon, cli.InfoStyle.Render(inst.ID), inst.OwnerClientName))
					if err != nil || !ok {
						fmt.Println(cli.SubtitleStyle.Render("Deletion cancelled.")) //nolint:forbidigo // User-facing output
						return err
					}
				}

				if err := e.Delete(ctx, inst.ID); err != nil {
					return err
				}
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted installment %s", inst.ID))) //nolint:forbidigo // User-facing output
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}
