package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/the-fees-must-flow/internal/common"
	"github.com/Veraticus/the-fees-must-flow/internal/model"
	"github.com/Veraticus/the-fees-must-flow/internal/plan"
)

// SavePlan regenerates the installments of cfg's owner, carrying paid state
// forward from whatever is currently stored for that plan. Invalid
// configurations are rejected before anything is written.
func (e *Engine) SavePlan(ctx context.Context, cfg model.PlanConfiguration) ([]model.Installment, error) {
	cfg.OwnerClientName = strings.TrimSpace(cfg.OwnerClientName)
	if err := plan.Validate(cfg); err != nil {
		return nil, common.NewUserError("could not save plan", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.savePlan(ctx, cfg, cfg.Owner())
}

// savePlan regenerates cfg using the installments stored under priorOwner as
// carry-forward state. priorOwner names a different plan only on rename, in
// which case the old plan is removed once the new one is written.
func (e *Engine) savePlan(ctx context.Context, cfg model.PlanConfiguration, priorOwner model.PlanOwner) ([]model.Installment, error) {
	prior, err := e.storage.GetByOwner(ctx, priorOwner)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing plan: %w", err)
	}

	installments, err := e.generator.Regenerate(cfg, prior)
	if err != nil {
		return nil, common.NewUserError("could not save plan", err)
	}

	owner := cfg.Owner()
	if err := e.storage.ReplaceForOwner(ctx, owner, installments); err != nil {
		return nil, fmt.Errorf("failed to store plan %s: %w", owner, err)
	}

	if !priorOwner.SamePlan(owner) {
		if _, err := e.storage.RemoveByOwner(ctx, priorOwner); err != nil {
			return nil, fmt.Errorf("failed to remove renamed plan %s: %w", priorOwner, err)
		}
	}

	slog.Info("saved plan",
		"owner", owner.String(),
		"periods", len(installments),
		"carried_from", len(prior))
	return installments, nil
}

// MarkPaid records an installment as paid. Marking a paid installment again
// is a no-op.
func (e *Engine) MarkPaid(ctx context.Context, id string) (*model.Installment, error) {
	return e.setPending(ctx, id, false)
}

// MarkPending reopens an installment marked paid by mistake.
func (e *Engine) MarkPending(ctx context.Context, id string) (*model.Installment, error) {
	return e.setPending(ctx, id, true)
}

func (e *Engine) setPending(ctx context.Context, id string, pending bool) (*model.Installment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, err := e.storage.Mutate(ctx, id, func(inst *model.Installment) error {
		inst.Pending = pending
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("updated installment", "id", id, "pending", pending)
	return inst, nil
}

// Postpone moves the due date of one pending installment by days. Siblings
// are not shifted. A non-positive days uses the configured default.
func (e *Engine) Postpone(ctx context.Context, id string, days int) (*model.Installment, error) {
	if days <= 0 {
		days = e.postponeDays
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	inst, err := e.storage.Mutate(ctx, id, func(inst *model.Installment) error {
		if !inst.Pending {
			return fmt.Errorf("%w: %s", ErrNotPending, inst.ID)
		}
		inst.DueDate = inst.DueDate.AddDate(0, 0, days)
		inst.Postponed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("postponed installment",
		"id", id,
		"days", days,
		"due_date", inst.DueDate.Format(model.DateLayout))
	return inst, nil
}

// Delete removes a single installment.
func (e *Engine) Delete(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.storage.Remove(ctx, id)
}

// DeletePlanFor removes every installment of one plan and reports how many
// were removed.
func (e *Engine) DeletePlanFor(ctx context.Context, owner model.PlanOwner) (int, error) {
	owner.ClientName = strings.TrimSpace(owner.ClientName)

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.storage.RemoveByOwner(ctx, owner)
}
