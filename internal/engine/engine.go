// Package engine ties plan generation, installment lifecycle, orphan sweeps
// and notification selection to the storage layer.
package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/Veraticus/the-fees-must-flow/internal/calendar"
	"github.com/Veraticus/the-fees-must-flow/internal/plan"
	"github.com/Veraticus/the-fees-must-flow/internal/service"
)

// ErrNotPending is returned when postponing an installment that is already paid.
var ErrNotPending = errors.New("installment is not pending")

// DefaultPostponeDays is how far Postpone moves a due date when no explicit
// number of days is given.
const DefaultPostponeDays = 7

// Engine orchestrates every installment write made on behalf of the user.
type Engine struct {
	storage      service.Storage
	generator    *plan.Generator
	now          func() time.Time
	postponeDays int
	// mu serializes engine operations that read installments before writing
	// them back, so a payment cannot be lost to a concurrent regeneration.
	mu sync.Mutex
}

// Config holds configuration options for the engine.
type Config struct {
	Now               func() time.Time
	PostponeDays      int
	PreservePostponed bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Now:          time.Now,
		PostponeDays: DefaultPostponeDays,
	}
}

// New creates an engine with the default configuration.
func New(storage service.Storage) *Engine {
	return NewWithConfig(storage, DefaultConfig())
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(storage service.Storage, config Config) *Engine {
	now := config.Now
	if now == nil {
		now = time.Now
	}
	postponeDays := config.PostponeDays
	if postponeDays <= 0 {
		postponeDays = DefaultPostponeDays
	}
	return &Engine{
		storage: storage,
		generator: plan.NewGenerator(plan.Config{
			Now:               now,
			PreservePostponed: config.PreservePostponed,
		}),
		now:          now,
		postponeDays: postponeDays,
	}
}

// Today returns the current calendar date as seen by the engine's clock.
func (e *Engine) Today() time.Time {
	return calendar.Midnight(e.now())
}

// Storage returns the underlying store, mainly for read-only listings and
// change subscriptions.
func (e *Engine) Storage() service.Storage {
	return e.storage
}
