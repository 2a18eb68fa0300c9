package tui

import (
	"github.com/Veraticus/the-fees-must-flow/internal/notify"
)

// summaryLoadedMsg carries a freshly computed notification summary.
type summaryLoadedMsg struct {
	summary notify.Summary
}

// storeChangedMsg is sent whenever the installment store publishes a change.
type storeChangedMsg struct{}

// actionDoneMsg reports the outcome of a user action on one installment.
type actionDoneMsg struct {
	action string
	id     string
}

type errorMsg struct {
	err error
}
