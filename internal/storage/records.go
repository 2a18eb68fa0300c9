package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/the-fees-must-flow/internal/model"
)

func marshalTerms(terms *model.PlanTerms) (*string, error) {
	if terms == nil {
		return nil, nil
	}
	data, err := json.Marshal(terms)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plan terms: %w", err)
	}
	str := string(data)
	return &str, nil
}

func unmarshalTerms(raw sql.NullString) (*model.PlanTerms, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var terms model.PlanTerms
	if err := json.Unmarshal([]byte(raw.String), &terms); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan terms: %w", err)
	}
	return &terms, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamps(created, updated string) (time.Time, time.Time, error) {
	c, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid created_at %q: %w", created, err)
	}
	u, err := time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid updated_at %q: %w", updated, err)
	}
	return c, u, nil
}

// SaveAppointment inserts or updates an appointment record.
func (s *SQLiteStorage) SaveAppointment(ctx context.Context, a *model.Appointment) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAppointment(a); err != nil {
		return err
	}

	monthly, err := marshalTerms(a.MonthlyPlan)
	if err != nil {
		return err
	}
	weekly, err := marshalTerms(a.WeeklyPlan)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	a.ClientName = strings.TrimSpace(a.ClientName)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO appointments (id, client_name, notes, monthly_plan, weekly_plan, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			client_name = excluded.client_name,
			notes = excluded.notes,
			monthly_plan = excluded.monthly_plan,
			weekly_plan = excluded.weekly_plan,
			updated_at = excluded.updated_at`,
		a.ID, a.ClientName, a.Notes, monthly, weekly, formatTimestamp(a.CreatedAt), formatTimestamp(a.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save appointment: %w", err)
	}

	slog.Debug("saved appointment", "id", a.ID, "client", a.ClientName)
	return nil
}

const appointmentColumns = `id, client_name, notes, monthly_plan, weekly_plan, created_at, updated_at`

func scanAppointment(row rowScanner) (model.Appointment, error) {
	var (
		a                model.Appointment
		monthly, weekly  sql.NullString
		created, updated string
	)
	if err := row.Scan(&a.ID, &a.ClientName, &a.Notes, &monthly, &weekly, &created, &updated); err != nil {
		return model.Appointment{}, err
	}

	var err error
	if a.MonthlyPlan, err = unmarshalTerms(monthly); err != nil {
		return model.Appointment{}, err
	}
	if a.WeeklyPlan, err = unmarshalTerms(weekly); err != nil {
		return model.Appointment{}, err
	}
	if a.CreatedAt, a.UpdatedAt, err = parseTimestamps(created, updated); err != nil {
		return model.Appointment{}, err
	}
	return a, nil
}

// GetAppointment returns one appointment by id.
func (s *SQLiteStorage) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id)
	a, err := scanAppointment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: appointment %s", ErrRecordNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query appointment: %w", err)
	}
	return &a, nil
}

// ListAppointments returns every appointment ordered by client name.
func (s *SQLiteStorage) ListAppointments(ctx context.Context) ([]model.Appointment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+appointmentColumns+` FROM appointments ORDER BY client_name, created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var appointments []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appointments = append(appointments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating appointments: %w", err)
	}
	return appointments, nil
}

// DeleteAppointment removes one appointment record.
func (s *SQLiteStorage) DeleteAppointment(ctx context.Context, id string) error {
	return s.deleteRecord(ctx, "appointments", id)
}

// SaveAnalysis inserts or updates an analysis record.
func (s *SQLiteStorage) SaveAnalysis(ctx context.Context, a *model.Analysis) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAnalysis(a); err != nil {
		return err
	}

	monthly, err := marshalTerms(a.MonthlyPlan)
	if err != nil {
		return err
	}
	weekly, err := marshalTerms(a.WeeklyPlan)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analyses (id, client_name, legacy_name, notes, monthly_plan, weekly_plan, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			client_name = excluded.client_name,
			legacy_name = excluded.legacy_name,
			notes = excluded.notes,
			monthly_plan = excluded.monthly_plan,
			weekly_plan = excluded.weekly_plan,
			updated_at = excluded.updated_at`,
		a.ID, a.ClientName, a.LegacyName, a.Notes, monthly, weekly, formatTimestamp(a.CreatedAt), formatTimestamp(a.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	slog.Debug("saved analysis", "id", a.ID, "client", a.OwnerName())
	return nil
}

const analysisColumns = `id, client_name, legacy_name, notes, monthly_plan, weekly_plan, created_at, updated_at`

func scanAnalysis(row rowScanner) (model.Analysis, error) {
	var (
		a                model.Analysis
		monthly, weekly  sql.NullString
		created, updated string
	)
	if err := row.Scan(&a.ID, &a.ClientName, &a.LegacyName, &a.Notes, &monthly, &weekly, &created, &updated); err != nil {
		return model.Analysis{}, err
	}

	var err error
	if a.MonthlyPlan, err = unmarshalTerms(monthly); err != nil {
		return model.Analysis{}, err
	}
	if a.WeeklyPlan, err = unmarshalTerms(weekly); err != nil {
		return model.Analysis{}, err
	}
	if a.CreatedAt, a.UpdatedAt, err = parseTimestamps(created, updated); err != nil {
		return model.Analysis{}, err
	}
	return a, nil
}

// GetAnalysis returns one analysis by id.
func (s *SQLiteStorage) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+analysisColumns+` FROM analyses WHERE id = ?`, id)
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: analysis %s", ErrRecordNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis: %w", err)
	}
	return &a, nil
}

// ListAnalyses returns every analysis record.
func (s *SQLiteStorage) ListAnalyses(ctx context.Context) ([]model.Analysis, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+analysisColumns+` FROM analyses ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var analyses []model.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analyses: %w", err)
	}
	return analyses, nil
}

// DeleteAnalysis removes one analysis record.
func (s *SQLiteStorage) DeleteAnalysis(ctx context.Context, id string) error {
	return s.deleteRecord(ctx, "analyses", id)
}

func (s *SQLiteStorage) deleteRecord(ctx context.Context, table, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	// table is one of two constants, never user input.
	result, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s %s", ErrRecordNotFound, table, id)
	}

	slog.Info("deleted record", "table", table, "id", id)
	return nil
}
