package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-fees-must-flow/internal/cli"
	"github.com/Veraticus/the-fees-must-flow/internal/engine"
	"github.com/Veraticus/the-fees-must-flow/internal/model"
)

func appointmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "appointments",
		Aliases: []string{"appointment", "appt"},
		Short:   "Manage appointment records and their principal plans",
		Long: `Appointments own principal-track plans. Plans are keyed by client name,
so every appointment of the same client shares one monthly and one weekly plan.`,
		Example: `  # A six month plan due on the 10th
  fees appointments add --client "Ana Souza" --monthly-amount 200 --monthly-periods 6 --monthly-day 10

  # Add a weekly plan to an existing appointment
  fees appointments edit <id> --weekly-amount 50 --weekly-periods 8 --weekly-weekday fri`,
	}

	cmd.AddCommand(addAppointmentCmd())
	cmd.AddCommand(editAppointmentCmd())
	cmd.AddCommand(deleteAppointmentCmd())
	cmd.AddCommand(listAppointmentsCmd())

	return cmd
}

func addAppointmentCmd() *cobra.Command {
	var client, notes string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an appointment and generate its plans",
		Args:  cobra.NoArgs,
	}
	monthly := newTermsFlags(cmd, model.CadenceMonthly, false)
	weekly := newTermsFlags(cmd, model.CadenceWeekly, false)

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return withEngine(cmd.Context(), func(e *engine.Engine) error {
			appt := &model.Appointment{ClientName: client, Notes: notes}

			var err error
			if appt.MonthlyPlan, err = monthly.apply(cmd, nil, e.Today()); err != nil {
				return err
			}
			if appt.WeeklyPlan, err = weekly.apply(cmd, nil, e.Today()); err != nil {
				return err
			}

			if err := e.SaveAppointment(cmd.Context(), appt); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created appointment %s for %s", appt.ID, appt.ClientName))) //nolint:forbidigo // User-facing output
			return printPlansOf(cmd.Context(), e, appt.PlanConfigurations())
		})
	}

	cmd.Flags().StringVar(&client, "client", "", "client name (required)")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("client")

	return cmd
}

func editAppointmentCmd() *cobra.Command {
	var client, notes string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change an appointment and regenerate its plans",
		Long: `Change an appointment. Paid installments stay paid when their plan is
regenerated; renaming the client moves the plans to the new name.`,
		Args: cobra.ExactArgs(1),
	}
	monthly := newTermsFlags(cmd, model.CadenceMonthly, true)
	weekly := newTermsFlags(cmd, model.CadenceWeekly, true)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd.Context(), func(e *engine.Engine) error {
			ctx := cmd.Context()
			appt, err := e.Storage().GetAppointment(ctx, args[0])
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("client") {
				appt.ClientName = client
			}
			if cmd.Flags().Changed("notes") {
				appt.Notes = notes
			}
			if appt.MonthlyPlan, err = monthly.apply(cmd, appt.MonthlyPlan, e.Today()); err != nil {
				return err
			}
			if appt.WeeklyPlan, err = weekly.apply(cmd, appt.WeeklyPlan, e.Today()); err != nil {
				return err
			}

			if err := e.SaveAppointment(ctx, appt); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Updated appointment %s", appt.ID))) //nolint:forbidigo // User-facing output
			return printPlansOf(ctx, e, appt.PlanConfigurations())
		})
	}

	cmd.Flags().StringVar(&client, "client", "", "new client name")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")

	return cmd
}

func deleteAppointmentCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an appointment",
		Long: `Delete an appointment. The client's plans are removed too once no other
appointment of the same client remains.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(e *engine.Engine) error {
				ctx := cmd.Context()
				appt, err := e.Storage().GetAppointment(ctx, args[0])
				if err != nil {
					return err
				}

				if !force {
					ok, err := confirm(ctx, fmt.Sprintf("%s Delete the appointment of %s?",
						cli.WarningIcon, cli.InfoStyle.Render(appt.ClientName)))
					if err != nil || !ok {
						fmt.Println(cli.SubtitleStyle.Render("Deletion cancelled.")) //nolint:forbidigo // User-facing output
						return err
					}
				}

				if err := e.DeleteAppointment(ctx, appt.ID); err != nil {
					return err
				}
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted appointment %s", appt.ID))) //nolint:forbidigo // User-facing output
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func listAppointmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List appointments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd.Context(), func(e *engine.Engine) error {
				appointments, err := e.Storage().ListAppointments(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to list appointments: %w", err)
				}
				if len(appointments) == 0 {
					fmt.Println(cli.InfoStyle.Render("No appointments found. Use 'fees appointments add' to create one.")) //nolint:forbidigo // User-facing output
					return nil
				}

				rows := make([][]string, 0, len(appointments))
				for _, a := range appointments {
					rows = append(rows, []string{
						a.ID, a.ClientName,
						describeTerms(a.MonthlyPlan, model.CadenceMonthly),
						describeTerms(a.WeeklyPlan, model.CadenceWeekly),
						a.Notes,
					})
				}
				fmt.Println(cli.FormatTitle("Appointments"))                                           //nolint:forbidigo // User-facing output
				fmt.Println(cli.RenderTable([]string{"ID", "CLIENT", "MONTHLY", "WEEKLY", "NOTES"}, rows)) //nolint:forbidigo // User-facing output
				return nil
			})
		},
	}
}

func analysesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "analyses",
		Aliases: []string{"analysis"},
		Short:   "Manage analysis records and their tarot plans",
		Long: `Analyses own tarot-track plans, scoped to the analysis itself: two
analyses of the same client keep separate plans.`,
		Example: `  fees analyses add --client "Carla Dias" --monthly-amount 300 --monthly-periods 2`,
	}

	cmd.AddCommand(addAnalysisCmd())
	cmd.AddCommand(editAnalysisCmd())
	cmd.AddCommand(deleteAnalysisCmd())
	cmd.AddCommand(listAnalysesCmd())

	return cmd
}

func addAnalysisCmd() *cobra.Command {
	var client, notes string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an analysis and generate its plans",
		Args:  cobra.NoArgs,
	}
	monthly := newTermsFlags(cmd, model.CadenceMonthly, false)
	weekly := newTermsFlags(cmd, model.CadenceWeekly, false)

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return withEngine(cmd.Context(), func(e *engine.Engine) error {
			analysis := &model.Analysis{ClientName: client, Notes: notes}

			var err error
			if analysis.MonthlyPlan, err = monthly.apply(cmd, nil, e.Today()); err != nil {
				return err
			}
			if analysis.WeeklyPlan, err = weekly.apply(cmd, nil, e.Today()); err != nil {
				return err
			}

			if err := e.SaveAnalysis(cmd.Context(), analysis); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created analysis %s for %s", analysis.ID, analysis.OwnerName()))) //nolint:forbidigo // User-facing output
			return printPlansOf(cmd.Context(), e, analysis.PlanConfigurations())
		})
	}

	cmd.Flags().StringVar(&client, "client", "", "client name (required)")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("client")

	return cmd
}

func editAnalysisCmd() *cobra.Command {
	var client, notes string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change an analysis and regenerate its plans",
		Args:  cobra.ExactArgs(1),
	}
	monthly := newTermsFlags(cmd, model.CadenceMonthly, true)
	weekly := newTermsFlags(cmd, model.CadenceWeekly, true)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd.Context(), func(e *engine.Engine) error {
			ctx := cmd.Context()
			analysis, err := e.Storage().GetAnalysis(ctx, args[0])
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("client") {
				analysis.ClientName = client
			}
			if cmd.Flags().Changed("notes") {
				analysis.Notes = notes
			}
			if analysis.MonthlyPlan, err = monthly.apply(cmd, analysis.MonthlyPlan, e.Today()); err != nil {
				return err
			}
			if analysis.WeeklyPlan, err = weekly.apply(cmd, analysis.WeeklyPlan, e.Today()); err != nil {
				return err
			}

			if err := e.SaveAnalysis(ctx, analysis); err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Updated analysis %s", analysis.ID))) //nolint:forbidigo // User-facing output
			return printPlansOf(ctx, e, analysis.PlanConfigurations())
		})
	}

	cmd.Flags().StringVar(&client, "client", "", "new client name")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")

	return cmd
}

func deleteAnalysisCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an analysis and its plans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(e *engine.Engine) error {
				ctx := cmd.Context()
				analysis, err := e.Storage().GetAnalysis(ctx, args[0])
				if err != nil {
					return err
				}

				if !force {
					ok, err := confirm(ctx, fmt.Sprintf("%s Delete the analysis of %s and its plans?",
						cli.WarningIcon, cli.InfoStyle.Render(analysis.OwnerName())))
					if err != nil || !ok {
						fmt.Println(cli.SubtitleStyle.Render("Deletion cancelled.")) //nolint:forbidigo // User-facing output
						return err
					}
				}

				if err := e.DeleteAnalysis(ctx, analysis.ID); err != nil {
					return err
				}
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted analysis %s", analysis.ID))) //nolint:forbidigo // User-facing output
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func listAnalysesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List analyses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd.Context(), func(e *engine.Engine) error {
				analyses, err := e.Storage().ListAnalyses(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to list analyses: %w", err)
				}
				if len(analyses) == 0 {
					fmt.Println(cli.InfoStyle.Render("No analyses found. Use 'fees analyses add' to create one.")) //nolint:forbidigo // User-facing output
					return nil
				}

				rows := make([][]string, 0, len(analyses))
				for _, a := range analyses {
					rows = append(rows, []string{
						a.ID, a.OwnerName(),
						describeTerms(a.MonthlyPlan, model.CadenceMonthly),
						describeTerms(a.WeeklyPlan, model.CadenceWeekly),
						a.Notes,
					})
				}
				fmt.Println(cli.FormatTitle("Analyses"))                                               //nolint:forbidigo // User-facing output
				fmt.Println(cli.RenderTable([]string{"ID", "CLIENT", "MONTHLY", "WEEKLY", "NOTES"}, rows)) //nolint:forbidigo // User-facing output
				return nil
			})
		},
	}
}

// describeTerms summarizes plan terms for a table cell.
func describeTerms(terms *model.PlanTerms, cadence model.Cadence) string {
	if terms == nil {
		return "-"
	}
	due := fmt.Sprintf("day %d", terms.DueDayOfMonth)
	if cadence == model.CadenceWeekly {
		wd := model.DefaultDueWeekday
		if terms.DueWeekday != nil {
			wd = *terms.DueWeekday
		}
		due = strings.ToLower(wd.String()[:3])
	} else if terms.DueDayOfMonth == 0 {
		due = fmt.Sprintf("day %d", model.DefaultDueDayOfMonth)
	}
	return fmt.Sprintf("%d x %s (%s)",
		terms.TotalPeriods, cli.FormatAmount(terms.AmountPerPeriod, settings.Currency), due)
}

// printPlansOf lists the installments generated for configs.
func printPlansOf(ctx context.Context, e *engine.Engine, configs []model.PlanConfiguration) error {
	var installments []model.Installment
	for _, cfg := range configs {
		owned, err := e.Storage().GetByOwner(ctx, cfg.Owner())
		if err != nil {
			return fmt.Errorf("failed to load plan for %s: %w", cfg.Owner(), err)
		}
		installments = append(installments, owned...)
	}
	if len(installments) == 0 {
		return nil
	}
	fmt.Println(cli.RenderInstallments(installments, settings.Currency)) //nolint:forbidigo // User-facing output
	return nil
}

// confirm asks a yes/no question on the terminal.
func confirm(ctx context.Context, question string) (bool, error) {
	return cli.Confirm(ctx, cli.NewPromptReader(os.Stdin), os.Stdout, question)
}
