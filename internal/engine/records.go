package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Veraticus/the-fees-must-flow/internal/common"
	"github.com/Veraticus/the-fees-must-flow/internal/model"
	"github.com/Veraticus/the-fees-must-flow/internal/plan"
)

// validateConfigurations rejects a record whose plans cannot be generated,
// before the record or any installment is written.
func validateConfigurations(configs []model.PlanConfiguration) error {
	var errs []error
	for _, cfg := range configs {
		if err := plan.Validate(cfg); err != nil {
			errs = append(errs, fmt.Errorf("%s plan: %w", cfg.Cadence, err))
		}
	}
	if len(errs) > 0 {
		return common.NewUserError("could not save plan", errors.Join(errs...))
	}
	return nil
}

func configsByCadence(configs []model.PlanConfiguration) map[model.Cadence]model.PlanConfiguration {
	out := make(map[model.Cadence]model.PlanConfiguration, len(configs))
	for _, cfg := range configs {
		out[cfg.Cadence] = cfg
	}
	return out
}

// SaveAppointment stores an appointment and brings the client's principal
// plans in line with it. Appointments of the same client share plans, so a
// plan missing from this appointment is only removed when no other
// appointment of the client still carries it.
func (e *Engine) SaveAppointment(ctx context.Context, appt *model.Appointment) error {
	if appt == nil {
		return fmt.Errorf("appointment cannot be nil")
	}
	appt.ClientName = strings.TrimSpace(appt.ClientName)
	if appt.ClientName == "" {
		return common.NewUserError("could not save appointment", fmt.Errorf("%w: client name is required", common.ErrInvalidConfiguration))
	}

	configs := appt.PlanConfigurations()
	if err := validateConfigurations(configs); err != nil {
		return err
	}
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	previous, err := e.storage.GetAppointment(ctx, appt.ID)
	if err != nil && !common.IsNotFound(err) {
		return fmt.Errorf("failed to load appointment: %w", err)
	}
	if err := e.storage.SaveAppointment(ctx, appt); err != nil {
		return fmt.Errorf("failed to save appointment: %w", err)
	}

	others, err := e.otherAppointments(ctx, appt.ID)
	if err != nil {
		return err
	}

	renamed := previous != nil && !model.SameClient(previous.ClientName, appt.ClientName)
	oldNameInUse := renamed && anyAppointmentNamed(others, previous.ClientName)
	wanted := configsByCadence(configs)

	for _, cadence := range model.Cadences() {
		owner := model.PlanOwner{ClientName: appt.ClientName, Cadence: cadence}
		cfg, ok := wanted[cadence]
		switch {
		case ok:
			prior := owner
			// A renamed client keeps the payments recorded under the old
			// name, unless another appointment still owns that plan.
			if renamed && !oldNameInUse {
				existing, err := e.storage.GetByOwner(ctx, owner)
				if err != nil {
					return fmt.Errorf("failed to load existing plan: %w", err)
				}
				if len(existing) == 0 {
					prior = model.PlanOwner{ClientName: previous.ClientName, Cadence: cadence}
				}
			}
			if _, err := e.savePlan(ctx, cfg, prior); err != nil {
				return err
			}
		case !anyAppointmentCarries(others, appt.ClientName, cadence):
			if _, err := e.storage.RemoveByOwner(ctx, owner); err != nil {
				return fmt.Errorf("failed to remove deactivated plan: %w", err)
			}
		}
	}

	if renamed && !oldNameInUse {
		for _, cadence := range model.Cadences() {
			old := model.PlanOwner{ClientName: previous.ClientName, Cadence: cadence}
			if _, err := e.storage.RemoveByOwner(ctx, old); err != nil {
				return fmt.Errorf("failed to remove plans of renamed client: %w", err)
			}
		}
	}

	slog.Info("saved appointment", "id", appt.ID, "client", appt.ClientName, "plans", len(configs))
	return nil
}

// DeleteAppointment removes an appointment. The client's principal plans go
// with it once no other appointment of the client remains.
func (e *Engine) DeleteAppointment(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	appt, err := e.storage.GetAppointment(ctx, id)
	if err != nil {
		return err
	}
	if err := e.storage.DeleteAppointment(ctx, id); err != nil {
		return err
	}

	others, err := e.otherAppointments(ctx, id)
	if err != nil {
		return err
	}
	if anyAppointmentNamed(others, appt.ClientName) {
		slog.Info("deleted appointment", "id", id, "client", appt.ClientName, "plans_kept", true)
		return nil
	}

	removed := 0
	for _, cadence := range model.Cadences() {
		n, err := e.storage.RemoveByOwner(ctx, model.PlanOwner{ClientName: appt.ClientName, Cadence: cadence})
		if err != nil {
			return fmt.Errorf("failed to remove client plans: %w", err)
		}
		removed += n
	}

	slog.Info("deleted appointment", "id", id, "client", appt.ClientName, "installments_removed", removed)
	return nil
}

// SaveAnalysis stores an analysis and regenerates the tarot plans scoped to
// it. A plan missing from the analysis is removed.
func (e *Engine) SaveAnalysis(ctx context.Context, analysis *model.Analysis) error {
	if analysis == nil {
		return fmt.Errorf("analysis cannot be nil")
	}
	analysis.ClientName = strings.TrimSpace(analysis.ClientName)
	analysis.LegacyName = strings.TrimSpace(analysis.LegacyName)
	if analysis.OwnerName() == "" {
		return common.NewUserError("could not save analysis", fmt.Errorf("%w: client name is required", common.ErrInvalidConfiguration))
	}
	if analysis.ID == "" {
		analysis.ID = uuid.NewString()
	}

	configs := analysis.PlanConfigurations()
	if err := validateConfigurations(configs); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.storage.SaveAnalysis(ctx, analysis); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	// Tarot plans are keyed by the analysis id and survive a client rename.
	name := analysis.OwnerName()
	wanted := configsByCadence(configs)
	for _, cadence := range model.Cadences() {
		owner := model.PlanOwner{ClientName: name, LinkedRecordID: analysis.ID, Cadence: cadence}
		if cfg, ok := wanted[cadence]; ok {
			if _, err := e.savePlan(ctx, cfg, owner); err != nil {
				return err
			}
			continue
		}
		if _, err := e.storage.RemoveByOwner(ctx, owner); err != nil {
			return fmt.Errorf("failed to remove deactivated plan: %w", err)
		}
	}

	slog.Info("saved analysis", "id", analysis.ID, "client", name, "plans", len(configs))
	return nil
}

// DeleteAnalysis removes an analysis together with the plans scoped to it.
func (e *Engine) DeleteAnalysis(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	analysis, err := e.storage.GetAnalysis(ctx, id)
	if err != nil {
		return err
	}
	if err := e.storage.DeleteAnalysis(ctx, id); err != nil {
		return err
	}

	removed := 0
	for _, cadence := range model.Cadences() {
		owner := model.PlanOwner{ClientName: analysis.OwnerName(), LinkedRecordID: id, Cadence: cadence}
		n, err := e.storage.RemoveByOwner(ctx, owner)
		if err != nil {
			return fmt.Errorf("failed to remove analysis plans: %w", err)
		}
		removed += n
	}

	slog.Info("deleted analysis", "id", id, "installments_removed", removed)
	return nil
}

// RecordPlans lists the plan configurations carried by every stored record.
// Principal plans shared by several appointments of one client appear once,
// taken from the most recently updated appointment.
func (e *Engine) RecordPlans(ctx context.Context) ([]model.PlanConfiguration, error) {
	appointments, err := e.storage.ListAppointments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	analyses, err := e.storage.ListAnalyses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}

	latest := make(map[string]model.Appointment)
	var order []string
	for _, appt := range appointments {
		for _, cfg := range appt.PlanConfigurations() {
			id := cfg.Owner().PlanID()
			current, seen := latest[id]
			if !seen {
				order = append(order, id)
			}
			if !seen || appt.UpdatedAt.After(current.UpdatedAt) {
				latest[id] = appt
			}
		}
	}

	var configs []model.PlanConfiguration
	for _, id := range order {
		for _, cfg := range latest[id].PlanConfigurations() {
			if cfg.Owner().PlanID() == id {
				configs = append(configs, cfg)
			}
		}
	}
	for _, analysis := range analyses {
		configs = append(configs, analysis.PlanConfigurations()...)
	}
	return configs, nil
}

func (e *Engine) otherAppointments(ctx context.Context, excludeID string) ([]model.Appointment, error) {
	all, err := e.storage.ListAppointments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	others := all[:0]
	for _, appt := range all {
		if appt.ID != excludeID {
			others = append(others, appt)
		}
	}
	return others, nil
}

func anyAppointmentNamed(appointments []model.Appointment, name string) bool {
	for _, appt := range appointments {
		if model.SameClient(appt.ClientName, name) {
			return true
		}
	}
	return false
}

func anyAppointmentCarries(appointments []model.Appointment, name string, cadence model.Cadence) bool {
	for _, appt := range appointments {
		if !model.SameClient(appt.ClientName, name) {
			continue
		}
		for _, cfg := range appt.PlanConfigurations() {
			if cfg.Cadence == cadence {
				return true
			}
		}
	}
	return false
}
