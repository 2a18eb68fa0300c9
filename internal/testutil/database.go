// Package testutil provides test utilities for the fees-must-flow project.
// It offers in-memory storage with proper test isolation and builders for
// plan terms and client records.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/the-fees-must-flow/internal/model"
	"github.com/Veraticus/the-fees-must-flow/internal/service"
	"github.com/Veraticus/the-fees-must-flow/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestDB creates a new migrated in-memory test database.
// It automatically handles cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	db.MustSaveAppointment(testutil.Appointment("Ana").WithMonthly(terms))
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup    func(context.Context, service.Storage) error
	SkipMigrations bool
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	ctx := context.Background()

	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// MustSaveAppointment stores an appointment record directly, bypassing plan
// generation, or fails the test.
func (db *TestDB) MustSaveAppointment(appt *model.Appointment) *model.Appointment {
	db.t.Helper()
	if err := db.Storage.SaveAppointment(context.Background(), appt); err != nil {
		db.t.Fatalf("failed to save appointment %q: %v", appt.ClientName, err)
	}
	return appt
}

// MustSaveAnalysis stores an analysis record directly or fails the test.
func (db *TestDB) MustSaveAnalysis(analysis *model.Analysis) *model.Analysis {
	db.t.Helper()
	if err := db.Storage.SaveAnalysis(context.Background(), analysis); err != nil {
		db.t.Fatalf("failed to save analysis %q: %v", analysis.OwnerName(), err)
	}
	return analysis
}

// MustGetPlan returns the stored installments of one plan or fails the test.
func (db *TestDB) MustGetPlan(owner model.PlanOwner) []model.Installment {
	db.t.Helper()
	installments, err := db.Storage.GetByOwner(context.Background(), owner)
	if err != nil {
		db.t.Fatalf("failed to load plan %s: %v", owner, err)
	}
	return installments
}

// MustGetAll returns every stored installment or fails the test.
func (db *TestDB) MustGetAll() []model.Installment {
	db.t.Helper()
	installments, err := db.Storage.GetAll(context.Background())
	if err != nil {
		db.t.Fatalf("failed to load installments: %v", err)
	}
	return installments
}
