// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/the-fees-must-flow/internal/model"
)

// ChangeKind names the write that produced a ChangeEvent.
type ChangeKind string

// Change kinds published by the installment store.
const (
	ChangeReplaced ChangeKind = "replaced"
	ChangeUpserted ChangeKind = "upserted"
	ChangeRemoved  ChangeKind = "removed"
)

// ChangeEvent is published after every successful installment write.
// Consumers re-query the store rather than trusting the payload.
type ChangeEvent struct {
	At    time.Time
	Owner *model.PlanOwner
	Kind  ChangeKind
	IDs   []string
}

// ChangeListener receives store change events. Listeners run synchronously
// on the writer's goroutine after the write has committed, so they must not
// block or issue writes of their own; signal another goroutine instead.
type ChangeListener func(ChangeEvent)

// InstallmentStore persists the flat installment collection.
type InstallmentStore interface {
	GetAll(ctx context.Context) ([]model.Installment, error)
	GetInstallment(ctx context.Context, id string) (*model.Installment, error)
	GetByOwner(ctx context.Context, owner model.PlanOwner) ([]model.Installment, error)

	// ReplaceForOwner atomically removes every installment of owner and
	// inserts installments in their place.
	ReplaceForOwner(ctx context.Context, owner model.PlanOwner, installments []model.Installment) error
	Upsert(ctx context.Context, installment model.Installment) error
	// Mutate applies fn to one installment as a single serialized
	// read-modify-write and returns the stored result.
	Mutate(ctx context.Context, id string, fn func(*model.Installment) error) (*model.Installment, error)
	Remove(ctx context.Context, id string) error
	RemoveMany(ctx context.Context, ids []string) (int, error)
	RemoveByOwner(ctx context.Context, owner model.PlanOwner) (int, error)

	Subscribe(listener ChangeListener) (unsubscribe func())
}

// RecordStore persists the appointment and analysis records that own plans.
type RecordStore interface {
	SaveAppointment(ctx context.Context, appointment *model.Appointment) error
	GetAppointment(ctx context.Context, id string) (*model.Appointment, error)
	ListAppointments(ctx context.Context) ([]model.Appointment, error)
	DeleteAppointment(ctx context.Context, id string) error

	SaveAnalysis(ctx context.Context, analysis *model.Analysis) error
	GetAnalysis(ctx context.Context, id string) (*model.Analysis, error)
	ListAnalyses(ctx context.Context) ([]model.Analysis, error)
	DeleteAnalysis(ctx context.Context, id string) error
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	InstallmentStore
	RecordStore

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
