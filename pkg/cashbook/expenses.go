package cashbook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mastermind064/RT06/models"
)

// ExpenseInput carries the editable fields of a cash expense.
type ExpenseInput struct {
	ExpenseDate time.Time
	Description string
	Amount      decimal.Decimal
	IsActive    bool
}

func (in ExpenseInput) validate() error {
	desc := strings.TrimSpace(in.Description)
	switch {
	case in.ExpenseDate.IsZero():
		return fmt.Errorf("%w: expense date required", ErrInvalidExpense)
	case desc == "":
		return fmt.Errorf("%w: description required", ErrInvalidExpense)
	case utf8.RuneCountInString(desc) > 255:
		return fmt.Errorf("%w: description longer than 255 characters", ErrInvalidExpense)
	case !in.Amount.IsPositive():
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidExpense)
	}
	return nil
}

type expensePayload struct {
	ExpenseId   uuid.UUID
	Amount      decimal.Decimal
	ExpenseDate time.Time
	IsActive    *bool `json:",omitempty"`
}

// RecordExpense stores a new active expense, logs ExpenseRecorded and adds the
// amount to the expense month.
func RecordExpense(ctx context.Context, tx *gorm.DB, rtID, userID uuid.UUID, in ExpenseInput) (*models.CashExpense, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	ts := now()
	e := models.CashExpense{
		RtID:            rtID,
		ExpenseDate:     in.ExpenseDate.UTC(),
		Description:     strings.TrimSpace(in.Description),
		Amount:          in.Amount,
		CreatedByUserID: userID,
		IsActive:        true,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	if err := tx.WithContext(ctx).Create(&e).Error; err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}
	if _, err := AppendEvent(ctx, tx, Event{
		RtID:          rtID,
		AggregateType: models.AggregateCashflow,
		AggregateID:   e.ExpenseID,
		EventType:     "ExpenseRecorded",
		Payload:       expensePayload{ExpenseId: e.ExpenseID, Amount: e.Amount, ExpenseDate: e.ExpenseDate},
		CausedBy:      userID,
	}); err != nil {
		return nil, err
	}
	if err := AdjustExpense(ctx, tx, rtID, e.ExpenseDate, e.Amount); err != nil {
		return nil, err
	}
	return &e, nil
}

// FindExpense loads one expense of the RT.
func FindExpense(ctx context.Context, tx *gorm.DB, rtID, expenseID uuid.UUID) (*models.CashExpense, error) {
	var e models.CashExpense
	err := tx.WithContext(ctx).Where("expense_id = ? AND rt_id = ?", expenseID, rtID).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateExpense replaces the expense fields. The old amount leaves its old
// month if it was active; the new amount enters its new month if it is active.
func UpdateExpense(ctx context.Context, tx *gorm.DB, rtID, userID, expenseID uuid.UUID, in ExpenseInput) (*models.CashExpense, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	e, err := FindExpense(ctx, tx, rtID, expenseID)
	if err != nil {
		return nil, err
	}
	origDate, origAmount, origActive := e.ExpenseDate, e.Amount, e.IsActive

	e.ExpenseDate = in.ExpenseDate.UTC()
	e.Description = strings.TrimSpace(in.Description)
	e.Amount = in.Amount
	e.IsActive = in.IsActive
	e.UpdatedAt = now()
	if err := tx.WithContext(ctx).Save(e).Error; err != nil {
		return nil, fmt.Errorf("update expense: %w", err)
	}
	active := e.IsActive
	if _, err := AppendEvent(ctx, tx, Event{
		RtID:          rtID,
		AggregateType: models.AggregateCashflow,
		AggregateID:   e.ExpenseID,
		EventType:     "ExpenseUpdated",
		Payload:       expensePayload{ExpenseId: e.ExpenseID, Amount: e.Amount, ExpenseDate: e.ExpenseDate, IsActive: &active},
		CausedBy:      userID,
	}); err != nil {
		return nil, err
	}
	if origActive {
		if err := AdjustExpense(ctx, tx, rtID, origDate, origAmount.Neg()); err != nil {
			return nil, err
		}
	}
	if e.IsActive {
		if err := AdjustExpense(ctx, tx, rtID, e.ExpenseDate, e.Amount); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// DeactivateExpense soft-deletes the expense and takes its amount back out of
// the month. It reports false when the expense was already inactive.
func DeactivateExpense(ctx context.Context, tx *gorm.DB, rtID, userID, expenseID uuid.UUID) (bool, error) {
	e, err := FindExpense(ctx, tx, rtID, expenseID)
	if err != nil {
		return false, err
	}
	if !e.IsActive {
		return false, nil
	}
	if err := tx.WithContext(ctx).Model(&models.CashExpense{}).
		Where("expense_id = ?", e.ExpenseID).
		Updates(map[string]any{"is_active": false, "updated_at": now()}).Error; err != nil {
		return false, fmt.Errorf("deactivate expense: %w", err)
	}
	if _, err := AppendEvent(ctx, tx, Event{
		RtID:          rtID,
		AggregateType: models.AggregateCashflow,
		AggregateID:   e.ExpenseID,
		EventType:     "ExpenseDeactivated",
		Payload:       map[string]any{"ExpenseId": e.ExpenseID},
		CausedBy:      userID,
	}); err != nil {
		return false, err
	}
	if err := AdjustExpense(ctx, tx, rtID, e.ExpenseDate, e.Amount.Neg()); err != nil {
		return false, err
	}
	return true, nil
}
