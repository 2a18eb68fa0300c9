package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Veraticus/the-fees-must-flow/internal/model"
	"github.com/Veraticus/the-fees-must-flow/internal/service"
)

const installmentColumns = `id, owner_client_name, linked_record_id, cadence, sequence_index,
	total_periods, amount, due_date, active, postponed, notification_timing, created_at`

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstallment(row rowScanner) (model.Installment, error) {
	var (
		inst      model.Installment
		cadence   string
		timing    string
		dueDate   string
		createdAt string
	)
	if err := row.Scan(
		&inst.ID, &inst.OwnerClientName, &inst.LinkedRecordID, &cadence, &inst.SequenceIndex,
		&inst.TotalPeriods, &inst.Amount, &dueDate, &inst.Pending, &inst.Postponed, &timing, &createdAt,
	); err != nil {
		return model.Installment{}, err
	}

	due, err := time.Parse(model.DateLayout, dueDate)
	if err != nil {
		return model.Installment{}, fmt.Errorf("installment %s has invalid due date %q: %w", inst.ID, dueDate, err)
	}
	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return model.Installment{}, fmt.Errorf("installment %s has invalid created_at %q: %w", inst.ID, createdAt, err)
	}

	inst.Cadence = model.Cadence(cadence)
	inst.NotificationTiming = model.NotificationTiming(timing)
	inst.DueDate = due
	inst.CreatedAt = created
	return inst, nil
}

func queryInstallments(ctx context.Context, q queryer, where string, args ...any) ([]model.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments ` + where +
		` ORDER BY owner_client_name, linked_record_id, cadence, sequence_index`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query installments: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var installments []model.Installment
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan installment: %w", err)
		}
		installments = append(installments, inst)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating installments: %w", err)
	}
	return installments, nil
}

func getInstallment(ctx context.Context, q queryer, id string) (*model.Installment, error) {
	row := q.QueryRowContext(ctx, `SELECT `+installmentColumns+` FROM installments WHERE id = ?`, id)
	inst, err := scanInstallment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrInstallmentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query installment: %w", err)
	}
	return &inst, nil
}

func upsertInstallment(ctx context.Context, q queryer, inst model.Installment) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO installments (`+installmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_client_name = excluded.owner_client_name,
			linked_record_id = excluded.linked_record_id,
			cadence = excluded.cadence,
			sequence_index = excluded.sequence_index,
			total_periods = excluded.total_periods,
			amount = excluded.amount,
			due_date = excluded.due_date,
			active = excluded.active,
			postponed = excluded.postponed,
			notification_timing = excluded.notification_timing,
			created_at = excluded.created_at`,
		inst.ID, inst.OwnerClientName, inst.LinkedRecordID, string(inst.Cadence), inst.SequenceIndex,
		inst.TotalPeriods, inst.Amount, inst.DueDate.Format(model.DateLayout), inst.Pending, inst.Postponed,
		string(inst.NotificationTiming), inst.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save installment %s: %w", inst.ID, err)
	}
	return nil
}

// planInstallments loads the rows belonging to owner's plan. Principal rows
// are matched on the id key rather than the stored spelling of the name.
func planInstallments(ctx context.Context, q queryer, owner model.PlanOwner) ([]model.Installment, error) {
	candidates, err := queryInstallments(ctx, q, `WHERE linked_record_id = ? AND cadence = ?`,
		owner.LinkedRecordID, string(owner.Cadence))
	if err != nil {
		return nil, err
	}

	var plan []model.Installment
	for _, inst := range candidates {
		if owner.SamePlan(inst.Owner()) {
			plan = append(plan, inst)
		}
	}
	sort.SliceStable(plan, func(i, j int) bool {
		return plan[i].SequenceIndex < plan[j].SequenceIndex
	})
	return plan, nil
}

// deleteInstallments removes ids inside tx and returns the ones that existed.
func deleteInstallments(ctx context.Context, tx *sql.Tx, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM installments WHERE id = ?`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare delete: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			slog.Error("failed to close statement", "error", err)
		}
	}()

	var removed []string
	for _, id := range ids {
		result, err := stmt.ExecContext(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to delete installment %s: %w", id, err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			removed = append(removed, id)
		}
	}
	return removed, nil
}

func installmentIDs(installments []model.Installment) []string {
	ids := make([]string, len(installments))
	for i, inst := range installments {
		ids[i] = inst.ID
	}
	return ids
}

// GetAll returns every stored installment ordered by plan and sequence.
func (s *SQLiteStorage) GetAll(ctx context.Context) ([]model.Installment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	installments, err := queryInstallments(ctx, s.db, "")
	if err != nil {
		return nil, err
	}

	slog.Debug("retrieved installments", "count", len(installments))
	return installments, nil
}

// GetInstallment returns one installment by id.
func (s *SQLiteStorage) GetInstallment(ctx context.Context, id string) (*model.Installment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return getInstallment(ctx, s.db, id)
}

// GetByOwner returns the installments of one plan ordered by sequence.
func (s *SQLiteStorage) GetByOwner(ctx context.Context, owner model.PlanOwner) ([]model.Installment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	return planInstallments(ctx, s.db, owner)
}

// ReplaceForOwner atomically swaps the installment set of one plan.
func (s *SQLiteStorage) ReplaceForOwner(ctx context.Context, owner model.PlanOwner, installments []model.Installment) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateInstallmentSet(owner, installments); err != nil {
		return err
	}

	ids := installmentIDs(installments)

	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		existing, err := planInstallments(ctx, tx, owner)
		if err != nil {
			return err
		}
		removed, err := deleteInstallments(ctx, tx, installmentIDs(existing))
		if err != nil {
			return fmt.Errorf("failed to clear plan: %w", err)
		}

		for _, inst := range installments {
			if err := upsertInstallment(ctx, tx, inst); err != nil {
				return err
			}
		}

		slog.Info("replaced plan installments",
			"owner", owner.String(),
			"removed", len(removed),
			"inserted", len(installments))
		return nil
	})
	if err != nil {
		return err
	}

	s.bus.publish(service.ChangeReplaced, &owner, ids)
	return nil
}

// Upsert inserts or overwrites one installment.
func (s *SQLiteStorage) Upsert(ctx context.Context, installment model.Installment) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateInstallment(&installment); err != nil {
		return err
	}

	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		return upsertInstallment(ctx, tx, installment)
	})
	if err != nil {
		return err
	}

	owner := installment.Owner()
	s.bus.publish(service.ChangeUpserted, &owner, []string{installment.ID})
	return nil
}

// Mutate applies fn to one installment under the write lock and persists
// the result. Nothing is written when fn returns an error.
func (s *SQLiteStorage) Mutate(ctx context.Context, id string, fn func(*model.Installment) error) (*model.Installment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: mutation", ErrNilParameter)
	}

	var updated *model.Installment
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		inst, err := getInstallment(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(inst); err != nil {
			return err
		}
		// The id is the row identity; fn may not move the installment.
		inst.ID = id
		if err := validateInstallment(inst); err != nil {
			return err
		}
		if err := upsertInstallment(ctx, tx, *inst); err != nil {
			return err
		}
		updated = inst
		return nil
	})
	if err != nil {
		return nil, err
	}

	owner := updated.Owner()
	s.bus.publish(service.ChangeUpserted, &owner, []string{id})
	return updated, nil
}

// Remove deletes one installment.
func (s *SQLiteStorage) Remove(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	var owner model.PlanOwner
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		inst, err := getInstallment(ctx, tx, id)
		if err != nil {
			return err
		}
		owner = inst.Owner()
		if _, err := tx.ExecContext(ctx, `DELETE FROM installments WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete installment: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("deleted installment", "id", id)
	s.bus.publish(service.ChangeRemoved, &owner, []string{id})
	return nil
}

// RemoveMany deletes the given installments and reports how many existed.
// Unknown ids are skipped.
func (s *SQLiteStorage) RemoveMany(ctx context.Context, ids []string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var removed []string
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		var err error
		removed, err = deleteInstallments(ctx, tx, ids)
		return err
	})
	if err != nil {
		return 0, err
	}

	if len(removed) > 0 {
		slog.Info("deleted installments", "count", len(removed))
		s.bus.publish(service.ChangeRemoved, nil, removed)
	}
	return len(removed), nil
}

// RemoveByOwner deletes every installment of one plan.
func (s *SQLiteStorage) RemoveByOwner(ctx context.Context, owner model.PlanOwner) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateOwner(owner); err != nil {
		return 0, err
	}

	var ids []string
	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		existing, err := planInstallments(ctx, tx, owner)
		if err != nil {
			return err
		}
		ids, err = deleteInstallments(ctx, tx, installmentIDs(existing))
		if err != nil {
			return fmt.Errorf("failed to delete plan: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if len(ids) > 0 {
		slog.Info("deleted plan", "owner", owner.String(), "count", len(ids))
		s.bus.publish(service.ChangeRemoved, &owner, ids)
	}
	return len(ids), nil
}

// withWriteTx runs fn in a transaction while holding the store write lock.
func (s *SQLiteStorage) withWriteTx(ctx context.Context, fn func(*sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Error("failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
