package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MonthlyCashSummary holds the cash totals of one RT for one calendar month.
// BalanceEnd is the running balance up to and including this month.
type MonthlyCashSummary struct {
	SummaryID           uuid.UUID       `gorm:"column:summary_id;primaryKey;size:36" json:"-"`
	RtID                uuid.UUID       `gorm:"column:rt_id;size:36;not null;uniqueIndex:uq_rt_year_month,priority:1" json:"-"`
	Year                int             `gorm:"not null;uniqueIndex:uq_rt_year_month,priority:2" json:"Year"`
	Month               int             `gorm:"not null;uniqueIndex:uq_rt_year_month,priority:3" json:"Month"`
	TotalContributionIn decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"TotalContributionIn"`
	TotalExpenseOut     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"TotalExpenseOut"`
	BalanceEnd          decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"BalanceEnd"`
	GeneratedAt         time.Time       `json:"GeneratedAt"`
}

func (MonthlyCashSummary) TableName() string { return "monthly_cash_summary" }

func (s *MonthlyCashSummary) BeforeCreate(*gorm.DB) error {
	if s.SummaryID == uuid.Nil {
		s.SummaryID = uuid.New()
	}
	return nil
}
