package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/the-fees-must-flow/internal/model"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		ctx     context.Context
		name    string
		wantErr bool
	}{
		{
			name:    "valid context",
			ctx:     context.Background(),
			wantErr: false,
		},
		{
			name:    "nil context",
			ctx:     nil,
			wantErr: true,
		},
		{
			name: "canceled context still valid",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			}(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContext(tt.ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateContext() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateString(t *testing.T) {
	tests := []struct {
		name      string
		str       string
		paramName string
		wantErr   bool
	}{
		{
			name:      "valid string",
			str:       "test",
			paramName: "param",
			wantErr:   false,
		},
		{
			name:      "empty string",
			str:       "",
			paramName: "param",
			wantErr:   true,
		},
		{
			name:      "whitespace only",
			str:       "   ",
			paramName: "param",
			wantErr:   true,
		},
		{
			name:      "string with spaces",
			str:       "  test  ",
			paramName: "param",
			wantErr:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateString(tt.str, tt.paramName)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), tt.paramName) {
				t.Errorf("validateString() error should contain param name %s, got %v", tt.paramName, err)
			}
		})
	}
}

func TestValidateInstallment(t *testing.T) {
	valid := func() model.Installment {
		return model.Installment{
			ID:              model.InstallmentID(anaMonthly, 1),
			OwnerClientName: "Ana",
			Cadence:         model.CadenceMonthly,
			SequenceIndex:   1,
			TotalPeriods:    3,
			Amount:          decimal.NewFromInt(200),
			DueDate:         time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC),
			Pending:         true,
		}
	}

	tests := []struct {
		mutate  func(*model.Installment)
		wantErr error
		name    string
	}{
		{name: "valid", mutate: func(*model.Installment) {}},
		{name: "missing id", mutate: func(i *model.Installment) { i.ID = "" }, wantErr: ErrInvalidInstallment},
		{name: "blank client", mutate: func(i *model.Installment) { i.OwnerClientName = " " }, wantErr: ErrInvalidInstallment},
		{name: "index zero", mutate: func(i *model.Installment) { i.SequenceIndex = 0 }, wantErr: ErrInvalidInstallment},
		{name: "index past total", mutate: func(i *model.Installment) { i.SequenceIndex = 4 }, wantErr: ErrInvalidInstallment},
		{name: "zero due date", mutate: func(i *model.Installment) { i.DueDate = time.Time{} }, wantErr: ErrInvalidInstallment},
		{name: "unknown cadence", mutate: func(i *model.Installment) { i.Cadence = "yearly" }, wantErr: ErrInvalidInstallment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := valid()
			tt.mutate(&inst)
			err := validateInstallment(&inst)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.ErrorIs(t, validateInstallment(nil), ErrNilParameter)
}

func TestValidateInstallmentSet(t *testing.T) {
	tests := []struct {
		build   func() []model.Installment
		wantErr error
		name    string
		owner   model.PlanOwner
	}{
		{
			name:  "complete plan",
			owner: anaMonthly,
			build: func() []model.Installment { return createTestPlan(anaMonthly, 3, "10") },
		},
		{
			name:  "empty set clears the plan",
			owner: anaMonthly,
			build: func() []model.Installment { return nil },
		},
		{
			name:    "missing index",
			owner:   anaMonthly,
			build:   func() []model.Installment { return createTestPlan(anaMonthly, 3, "10")[:2] },
			wantErr: ErrInvalidPlanSet,
		},
		{
			name:  "duplicate index",
			owner: anaMonthly,
			build: func() []model.Installment {
				plan := createTestPlan(anaMonthly, 3, "10")
				plan[2].SequenceIndex = 2
				return plan
			},
			wantErr: ErrInvalidPlanSet,
		},
		{
			name:    "foreign owner",
			owner:   anaWeekly,
			build:   func() []model.Installment { return createTestPlan(anaMonthly, 2, "10") },
			wantErr: ErrInvalidPlanSet,
		},
		{
			name:    "blank owner",
			owner:   model.PlanOwner{Cadence: model.CadenceMonthly},
			build:   func() []model.Installment { return nil },
			wantErr: ErrInvalidPlanSet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateInstallmentSet(tt.owner, tt.build())
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
