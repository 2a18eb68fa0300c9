package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/the-fees-must-flow/internal/cli"
	"github.com/Veraticus/the-fees-must-flow/internal/model"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.loading && len(m.payments) == 0 && m.err == nil {
		return m.renderLoading()
	}

	sections := []string{m.renderHeader(), m.renderPayments()}
	if line := m.renderStatus(); line != "" {
		sections = append(sections, line)
	}
	sections = append(sections, m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderLoading() string {
	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		m.theme.Subtitle.Render("Loading payments..."),
	)
}

func (m Model) renderHeader() string {
	title := m.theme.Title.Render(fmt.Sprintf("%s %s payments", cli.BellIcon, m.track))
	date := m.summary.Today
	if date.IsZero() {
		date = m.engine.Today()
	}
	sub := m.theme.Subtitle.Render(fmt.Sprintf("%s %s  %d due",
		cli.CalendarIcon, date.Format(model.DateLayout), m.summary.Count))
	return lipgloss.JoinVertical(lipgloss.Left, title, sub)
}

func (m Model) renderPayments() string {
	if len(m.payments) == 0 {
		return m.theme.StatusSuccess.Render("\nNothing due. All caught up!\n")
	}

	var b strings.Builder
	index := 0
	for _, group := range m.summary.Groups {
		b.WriteString(m.theme.Group.Render(fmt.Sprintf("%s  %s",
			group.ClientName,
			m.theme.Subtitle.Render(fmt.Sprintf("%d payment(s), %s",
				group.Count(), cli.FormatAmount(group.Total(), m.currency))))))
		b.WriteString("\n")

		for _, p := range group.Payments() {
			line := fmt.Sprintf("%s  %s  %s %d/%d  %s",
				p.DueDate.Format(model.DateLayout),
				cli.FormatAmount(p.Amount, m.currency),
				p.Cadence, p.SequenceIndex, p.TotalPeriods,
				cli.DueLabel(p.DaysUntilDue))
			if p.Postponed {
				line += " (postponed)"
			}

			if index == m.cursor {
				b.WriteString("> " + cli.UrgencyBadge(p.Urgency) + " " + m.theme.Selected.Render(line))
			} else {
				b.WriteString("  " + cli.UrgencyBadge(p.Urgency) + " " + m.theme.Normal.Render(line))
			}
			b.WriteString("\n")
			index++
		}
	}
	return m.theme.Box.Width(max(m.width-4, 40)).Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderStatus() string {
	switch {
	case m.err != nil:
		return m.theme.StatusError.Render(cli.ErrorIcon + " " + m.err.Error())
	case m.status != "":
		return m.theme.StatusSuccess.Render(cli.SuccessIcon + " " + m.status)
	default:
		return ""
	}
}
