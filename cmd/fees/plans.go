package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/the-fees-must-flow/internal/cli"
	"github.com/Veraticus/the-fees-must-flow/internal/engine"
	"github.com/Veraticus/the-fees-must-flow/internal/model"
)

func plansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Inspect and regenerate payment plans",
		Long: `Plans are normally managed through their records (appointments and
analyses). These commands work on a plan directly, by owner.

A plan whose owner matches no record is removed by the next sweep.`,
	}

	cmd.AddCommand(setPlanCmd())
	cmd.AddCommand(showPlanCmd())
	cmd.AddCommand(deletePlanCmd())
	cmd.AddCommand(regenerateAllCmd())

	return cmd
}

// ownerFlags selects a plan owner by client name and optional analysis id.
type ownerFlags struct {
	client string
	record string
}

func newOwnerFlags(cmd *cobra.Command) *ownerFlags {
	f := &ownerFlags{}
	cmd.Flags().StringVar(&f.client, "client", "", "client name (required)")
	cmd.Flags().StringVar(&f.record, "record", "", "analysis id for tarot plans")
	_ = cmd.MarkFlagRequired("client")
	return f
}

func (f *ownerFlags) owner(cadence model.Cadence) model.PlanOwner {
	return model.PlanOwner{ClientName: f.client, LinkedRecordID: f.record, Cadence: cadence}
}

func setPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Generate or replace a plan",
		Long: `Generate the installments of a plan, replacing any existing plan of the
same owner and cadence. Installments already paid stay paid.`,
		Example: `  fees plans set --client "Ana Souza" --monthly-amount 200 --monthly-periods 6`,
		Args:    cobra.NoArgs,
	}
	owner := newOwnerFlags(cmd)
	monthly := newTermsFlags(cmd, model.CadenceMonthly, false)
	weekly := newTermsFlags(cmd, model.CadenceWeekly, false)

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		if !monthly.changed(cmd) && !weekly.changed(cmd) {
			return fmt.Errorf("no plan terms given: use --monthly-* or --weekly-* flags")
		}

		return withEngine(cmd.Context(), func(e *engine.Engine) error {
			var generated []model.Installment
			for _, tf := range []*termsFlags{monthly, weekly} {
				terms, err := tf.apply(cmd, nil, e.Today())
				if err != nil {
					return err
				}
				if terms == nil {
					continue
				}
				cfg := model.PlanConfiguration{
					PlanTerms:       *terms,
					OwnerClientName: owner.client,
					LinkedRecordID:  owner.record,
					Cadence:         tf.cadence,
				}
				installments, err := e.SavePlan(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Saved %s with %d installments", cfg.Owner(), len(installments)))) //nolint:forbidigo // User-facing output
				generated = append(generated, installments...)
			}

			fmt.Println(cli.RenderInstallments(generated, settings.Currency)) //nolint:forbidigo // User-facing output
			return nil
		})
	}

	return cmd
}

func showPlanCmd() *cobra.Command {
	var cadence string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the installments of a client's plans",
		Args:  cobra.NoArgs,
	}
	owner := newOwnerFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		cadences := model.Cadences()
		if cadence != "" {
			c, err := model.ParseCadence(cadence)
			if err != nil {
				return err
			}
			cadences = []model.Cadence{c}
		}

		return withEngine(cmd.Context(), func(e *engine.Engine) error {
			var installments []model.Installment
			for _, c := range cadences {
				owned, err := e.Storage().GetByOwner(cmd.Context(), owner.owner(c))
				if err != nil {
					return fmt.Errorf("failed to load plan: %w", err)
				}
				installments = append(installments, owned...)
			}

			if len(installments) == 0 {
				fmt.Println(cli.InfoStyle.Render(fmt.Sprintf("No plans found for %s.", owner.client))) //nolint:forbidigo // User-facing output
				return nil
			}
			fmt.Println(cli.FormatTitle(fmt.Sprintf("%s Plans of %s", cli.CalendarIcon, owner.client))) //nolint:forbidigo // User-facing output
			fmt.Println(cli.RenderInstallments(installments, settings.Currency))                      //nolint:forbidigo // User-facing output
			return nil
		})
	}

	cmd.Flags().StringVar(&cadence, "cadence", "", "only show this cadence (monthly or weekly)")

	return cmd
}

func deletePlanCmd() *cobra.Command {
	var (
		cadence string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete every installment of one plan",
		Args:  cobra.NoArgs,
	}
	owner := newOwnerFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		c, err := model.ParseCadence(cadence)
		if err != nil {
			return err
		}
		target := owner.owner(c)

		return withEngine(cmd.Context(), func(e *engine.Engine) error {
			ctx := cmd.Context()
			if !force {
				ok, err := confirm(ctx, fmt.Sprintf("%s Delete every installment of %s?",
					cli.WarningIcon, cli.InfoStyle.Render(target.String())))
				if err != nil || !ok {
					fmt.Println(cli.SubtitleStyle.Render("Deletion cancelled.")) //nolint:forbidigo // User-facing output
					return err
				}
			}

			removed, err := e.DeletePlanFor(ctx, target)
			if err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Removed %d installments of %s", removed, target))) //nolint:forbidigo // User-facing output
			return nil
		})
	}

	cmd.Flags().StringVar(&cadence, "cadence", "", "cadence of the plan (monthly or weekly, required)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")
	_ = cmd.MarkFlagRequired("cadence")

	return cmd
}

func regenerateAllCmd() *cobra.Command {
	var noCheckpoint bool

	cmd := &cobra.Command{
		Use:   "regenerate-all",
		Short: "Regenerate every plan from its record",
		Long: `Regenerate the plans of every stored appointment and analysis. Paid
installments stay paid. A checkpoint is taken first so the result can be
rolled back with 'fees checkpoint restore'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer closeStorage(store)

			var checkpointID string
			if !noCheckpoint {
				manager, err := store.Checkpoints()
				if err != nil {
					return fmt.Errorf("failed to create checkpoint manager: %w", err)
				}
				info, err := manager.AutoCheckpoint(ctx, "regenerate")
				if err != nil {
					return fmt.Errorf("failed to create checkpoint: %w", err)
				}
				checkpointID = info.ID
			}

			e := newEngine(store)
			configs, err := e.RecordPlans(ctx)
			if err != nil {
				return err
			}
			if len(configs) == 0 {
				fmt.Println(cli.InfoStyle.Render("No plans to regenerate.")) //nolint:forbidigo // User-facing output
				return nil
			}

			bar := progressbar.NewOptions(len(configs),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("[cyan][bold]Regenerating plans...[reset]"),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(os.Stderr)
				}),
			)

			var failed, installments int
			for _, cfg := range configs {
				generated, err := e.SavePlan(ctx, cfg)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					failed++
					slog.Warn("failed to regenerate plan", "owner", cfg.Owner().String(), "error", err)
				}
				installments += len(generated)
				_ = bar.Add(1)
			}

			fields := []cli.ReportField{
				{Label: "Plans", Value: strconv.Itoa(len(configs) - failed)},
				{Label: "Installments", Value: strconv.Itoa(installments)},
			}
			if checkpointID != "" {
				fields = append(fields, cli.ReportField{Label: "Checkpoint", Value: checkpointID})
			}
			fmt.Println(cli.RenderReport(cli.SuccessIcon+" Plans regenerated", fields)) //nolint:forbidigo // User-facing output
			if failed > 0 {
				fmt.Println(cli.FormatWarning(fmt.Sprintf("%d plans failed; see the log for details", failed))) //nolint:forbidigo // User-facing output
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noCheckpoint, "no-checkpoint", false, "Skip the automatic checkpoint")

	return cmd
}
