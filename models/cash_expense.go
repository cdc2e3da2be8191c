package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CashExpense is money paid out of the RT cash box. Rows are never deleted,
// only deactivated.
type CashExpense struct {
	ExpenseID       uuid.UUID       `gorm:"column:expense_id;primaryKey;size:36" json:"ExpenseId"`
	RtID            uuid.UUID       `gorm:"column:rt_id;size:36;not null;index:idx_rt_expense_date,priority:1;index:idx_rt_expense_active,priority:1" json:"-"`
	ExpenseDate     time.Time       `gorm:"not null;index:idx_rt_expense_date,priority:2" json:"ExpenseDate"`
	Description     string          `gorm:"size:255;not null" json:"Description"`
	Amount          decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"Amount"`
	CreatedByUserID uuid.UUID       `gorm:"column:created_by_user_id;size:36;not null" json:"CreatedByUserId"`
	IsActive        bool            `gorm:"not null;default:true;index:idx_rt_expense_active,priority:2" json:"IsActive"`
	CreatedAt       time.Time       `json:"CreatedAt"`
	UpdatedAt       time.Time       `json:"UpdatedAt"`
}

func (e *CashExpense) BeforeCreate(*gorm.DB) error {
	if e.ExpenseID == uuid.Nil {
		e.ExpenseID = uuid.New()
	}
	return nil
}
