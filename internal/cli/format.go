package cli

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/the-fees-must-flow/internal/model"
	"github.com/Veraticus/the-fees-must-flow/internal/notify"
)

// FormatAmount renders amount in the given ISO-4217 currency, rounded to
// the currency's minor unit.
func FormatAmount(amount decimal.Decimal, currencyCode string) string {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		return amount.StringFixed(2)
	}
	minor := amount.Shift(int32(currency.Fraction)).Round(0).IntPart()
	return money.New(minor, currency.Code).Display()
}

// urgencyColors maps each urgency to its badge color.
var urgencyColors = map[notify.Urgency]lipgloss.Color{
	notify.UrgencyOverdue: ErrorColor,
	notify.UrgencyToday:   lipgloss.Color("#FF9F1C"),
	notify.UrgencyUrgent:  WarningColor,
	notify.UrgencyWarning: InfoColor,
	notify.UrgencyNormal:  SubtleColor,
}

// UrgencyBadge renders a colored badge for an urgency level.
func UrgencyBadge(u notify.Urgency) string {
	color, ok := urgencyColors[u]
	if !ok {
		color = SubtleColor
	}
	return BadgeStyle.Foreground(color).Render(strings.ToUpper(string(u)))
}

// DueLabel describes how far away a due date is in words.
func DueLabel(daysUntilDue int) string {
	switch {
	case daysUntilDue == 0:
		return "due today"
	case daysUntilDue == 1:
		return "due tomorrow"
	case daysUntilDue == -1:
		return "1 day overdue"
	case daysUntilDue < 0:
		return fmt.Sprintf("%d days overdue", -daysUntilDue)
	default:
		return fmt.Sprintf("due in %d days", daysUntilDue)
	}
}

// RenderSummary renders the notification view of one track.
func RenderSummary(summary notify.Summary, currencyCode string) string {
	title := FormatTitle(fmt.Sprintf("%s %s payments on %s: %d",
		BellIcon, summary.Track, summary.Today.Format(model.DateLayout), summary.Count))
	if summary.Count == 0 {
		return title + "\n" + FormatSuccess("Nothing due. All caught up!")
	}

	var b strings.Builder
	b.WriteString(title)
	for _, group := range summary.Groups {
		b.WriteString("\n")
		b.WriteString(BoldStyle.Render(group.ClientName))
		b.WriteString(SubtleStyle.Render(fmt.Sprintf("  %d payment(s), %s",
			group.Count(), FormatAmount(group.Total(), currencyCode))))
		for _, p := range group.Payments() {
			b.WriteString("\n  ")
			b.WriteString(RenderPayment(p, currencyCode))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderPayment renders one surfaced installment on a single line.
func RenderPayment(p notify.Payment, currencyCode string) string {
	return fmt.Sprintf("%s %s  %s  %s  %s",
		UrgencyBadge(p.Urgency),
		p.DueDate.Format(model.DateLayout),
		FormatAmount(p.Amount, currencyCode),
		SubtleStyle.Render(fmt.Sprintf("%s %d/%d", p.Cadence, p.SequenceIndex, p.TotalPeriods)),
		SubtleStyle.Render(DueLabel(p.DaysUntilDue)))
}

// RenderInstallments renders installments as a table.
func RenderInstallments(installments []model.Installment, currencyCode string) string {
	headers := []string{"ID", "CLIENT", "PERIOD", "DUE", "AMOUNT", "STATUS"}
	rows := make([][]string, 0, len(installments))
	for _, inst := range installments {
		status := WarningStyle.Render("pending")
		if !inst.Pending {
			status = SuccessStyle.Render("paid")
		}
		if inst.Postponed {
			status += SubtleStyle.Render(" (postponed)")
		}
		rows = append(rows, []string{
			inst.ID,
			inst.OwnerClientName,
			fmt.Sprintf("%s %d/%d", inst.Cadence, inst.SequenceIndex, inst.TotalPeriods),
			inst.DueDate.Format(model.DateLayout),
			FormatAmount(inst.Amount, currencyCode),
			status,
		})
	}
	return RenderTable(headers, rows)
}

// RenderTable lays out rows under headers with padded columns.
func RenderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	renderRow := func(cells []string, style lipgloss.Style) string {
		out := make([]string, len(cells))
		for i, cell := range cells {
			out[i] = style.Width(widths[i] + 2).Render(cell)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, out...)
	}

	lines := []string{renderRow(headers, BoldStyle)}
	for _, row := range rows {
		lines = append(lines, renderRow(row, TableCellStyle))
	}
	return strings.Join(lines, "\n")
}
