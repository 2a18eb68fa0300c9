package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"github.com/Veraticus/the-fees-must-flow/internal/cli"
	"github.com/Veraticus/the-fees-must-flow/internal/engine"
	"github.com/Veraticus/the-fees-must-flow/internal/model"
)

// Export formats.
const (
	formatJSON = "json"
	formatCSV  = "csv"
)

// installmentRow is the CSV layout of one installment.
type installmentRow struct {
	ID                 string `csv:"id"`
	Client             string `csv:"client"`
	LinkedRecordID     string `csv:"linked_record_id"`
	Track              string `csv:"track"`
	Cadence            string `csv:"cadence"`
	SequenceIndex      int    `csv:"sequence"`
	TotalPeriods       int    `csv:"total_periods"`
	Amount             string `csv:"amount"`
	DueDate            string `csv:"due_date"`
	Status             string `csv:"status"`
	Postponed          bool   `csv:"postponed"`
	NotificationTiming string `csv:"notification_timing"`
}

func toRow(inst model.Installment) installmentRow {
	status := "pending"
	if !inst.Pending {
		status = "paid"
	}
	return installmentRow{
		ID:                 inst.ID,
		Client:             inst.OwnerClientName,
		LinkedRecordID:     inst.LinkedRecordID,
		Track:              string(inst.Track()),
		Cadence:            string(inst.Cadence),
		SequenceIndex:      inst.SequenceIndex,
		TotalPeriods:       inst.TotalPeriods,
		Amount:             inst.Amount.StringFixed(2),
		DueDate:            inst.DueDate.Format(model.DateLayout),
		Status:             status,
		Postponed:          inst.Postponed,
		NotificationTiming: string(inst.NotificationTiming),
	}
}

// writeExport encodes installments to w in the given format.
func writeExport(w io.Writer, installments []model.Installment, format string) error {
	switch strings.ToLower(format) {
	case formatJSON:
		if installments == nil {
			installments = []model.Installment{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(installments)
	case formatCSV:
		rows := make([]installmentRow, 0, len(installments))
		for _, inst := range installments {
			rows = append(rows, toRow(inst))
		}
		if err := gocsv.Marshal(&rows, w); err != nil {
			return fmt.Errorf("failed to write CSV: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown export format %q (want %s or %s)", format, formatJSON, formatCSV)
	}
}

func exportCmd() *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every installment as JSON or CSV",
		Example: `  fees export > installments.json
  fees export --format csv --output installments.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd.Context(), func(e *engine.Engine) error {
				installments, err := e.Storage().GetAll(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to load installments: %w", err)
				}

				if output == "" || output == "-" {
					return writeExport(os.Stdout, installments, format)
				}

				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer func() {
					if cerr := f.Close(); cerr != nil {
						slog.Error("failed to close export file", "path", output, "error", cerr)
					}
				}()

				if err := writeExport(f, installments, format); err != nil {
					return err
				}
				fmt.Fprintln(os.Stderr, cli.FormatSuccess(fmt.Sprintf("Exported %d installments to %s", len(installments), output)))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", formatJSON, "output format (json or csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")

	return cmd
}
