// Package storage provides the data persistence layer for the fees application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-fees-must-flow/internal/common"
	"github.com/Veraticus/the-fees-must-flow/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidInstallment = errors.New("invalid installment")
	ErrInvalidPlanSet     = errors.New("invalid installment set")
	ErrInvalidRecord      = errors.New("invalid record")
)

// Lookup errors.
var (
	ErrInstallmentNotFound = fmt.Errorf("installment %w", common.ErrNotFound)
	ErrRecordNotFound      = fmt.Errorf("record %w", common.ErrNotFound)
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateOwner checks the identifying fields of a plan owner.
func validateOwner(owner model.PlanOwner) error {
	if strings.TrimSpace(owner.ClientName) == "" {
		return fmt.Errorf("%w: missing client name", ErrInvalidPlanSet)
	}
	switch owner.Cadence {
	case model.CadenceMonthly, model.CadenceWeekly:
	default:
		return fmt.Errorf("%w: unknown cadence %q", ErrInvalidPlanSet, owner.Cadence)
	}
	return nil
}

// validateInstallment validates a single installment.
func validateInstallment(inst *model.Installment) error {
	if inst == nil {
		return fmt.Errorf("%w: installment", ErrNilParameter)
	}
	if inst.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidInstallment)
	}
	if strings.TrimSpace(inst.OwnerClientName) == "" {
		return fmt.Errorf("%w: missing client name", ErrInvalidInstallment)
	}
	if inst.SequenceIndex < 1 || inst.SequenceIndex > inst.TotalPeriods {
		return fmt.Errorf("%w: sequence index %d outside 1..%d", ErrInvalidInstallment, inst.SequenceIndex, inst.TotalPeriods)
	}
	if inst.DueDate.IsZero() {
		return fmt.Errorf("%w: missing due date", ErrInvalidInstallment)
	}
	switch inst.Cadence {
	case model.CadenceMonthly, model.CadenceWeekly:
	default:
		return fmt.Errorf("%w: unknown cadence %q", ErrInvalidInstallment, inst.Cadence)
	}
	return nil
}

// validateInstallmentSet checks that installments form one complete plan for
// owner: every index 1..totalPeriods exactly once.
func validateInstallmentSet(owner model.PlanOwner, installments []model.Installment) error {
	if err := validateOwner(owner); err != nil {
		return err
	}
	if len(installments) == 0 {
		return nil
	}

	total := installments[0].TotalPeriods
	if len(installments) != total {
		return fmt.Errorf("%w: %d installments for a %d period plan", ErrInvalidPlanSet, len(installments), total)
	}

	seen := make(map[int]bool, len(installments))
	for i := range installments {
		inst := &installments[i]
		if err := validateInstallment(inst); err != nil {
			return fmt.Errorf("installment at index %d: %w", i, err)
		}
		if inst.Owner() != owner {
			return fmt.Errorf("%w: installment %s belongs to %s, not %s", ErrInvalidPlanSet, inst.ID, inst.Owner(), owner)
		}
		if inst.TotalPeriods != total {
			return fmt.Errorf("%w: mixed period counts %d and %d", ErrInvalidPlanSet, total, inst.TotalPeriods)
		}
		if seen[inst.SequenceIndex] {
			return fmt.Errorf("%w: duplicate sequence index %d", ErrInvalidPlanSet, inst.SequenceIndex)
		}
		seen[inst.SequenceIndex] = true
	}
	return nil
}

// validateAppointment validates an appointment record.
func validateAppointment(a *model.Appointment) error {
	if a == nil {
		return fmt.Errorf("%w: appointment", ErrNilParameter)
	}
	if a.ID == "" {
		return fmt.Errorf("%w: missing appointment ID", ErrInvalidRecord)
	}
	if strings.TrimSpace(a.ClientName) == "" {
		return fmt.Errorf("%w: missing client name", ErrInvalidRecord)
	}
	return nil
}

// validateAnalysis validates an analysis record.
func validateAnalysis(a *model.Analysis) error {
	if a == nil {
		return fmt.Errorf("%w: analysis", ErrNilParameter)
	}
	if a.ID == "" {
		return fmt.Errorf("%w: missing analysis ID", ErrInvalidRecord)
	}
	if a.OwnerName() == "" {
		return fmt.Errorf("%w: missing client name", ErrInvalidRecord)
	}
	return nil
}
