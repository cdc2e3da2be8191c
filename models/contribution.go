package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Review states of a contribution.
const (
	ContributionPending  = "PENDING"
	ContributionApproved = "APPROVED"
	ContributionRejected = "REJECTED"
)

// Contribution is a resident's report of a dues payment covering one or more months.
type Contribution struct {
	ContributionID uuid.UUID       `gorm:"column:contribution_id;primaryKey;size:36" json:"ContributionId"`
	RtID           uuid.UUID       `gorm:"column:rt_id;size:36;not null;index:idx_rt_contrib;index:idx_rt_contrib_resident,priority:1;index:idx_rt_contrib_status,priority:1;index:idx_rt_contrib_period,priority:1" json:"-"`
	ResidentID     uuid.UUID       `gorm:"column:resident_id;size:36;not null;index:idx_rt_contrib_resident,priority:2" json:"ResidentId"`
	Resident       Resident        `gorm:"foreignKey:ResidentID;references:ResidentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	PeriodStart    time.Time       `gorm:"not null;index:idx_rt_contrib_period,priority:2" json:"PeriodStart"`
	PeriodEnd      time.Time       `gorm:"not null;index:idx_rt_contrib_period,priority:3" json:"PeriodEnd"`
	AmountPaid     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"AmountPaid"`
	PaymentDate    time.Time       `gorm:"not null" json:"PaymentDate"`
	ProofImagePath string          `gorm:"size:255" json:"ProofImagePath"`
	Status         string          `gorm:"size:20;not null;default:PENDING;index:idx_rt_contrib_status,priority:2" json:"Status"`
	AdminNote      *string         `gorm:"size:255" json:"AdminNote"`
	CreatedAt      time.Time       `json:"CreatedAt"`
	UpdatedAt      time.Time       `json:"UpdatedAt"`
}

func (c *Contribution) BeforeCreate(*gorm.DB) error {
	if c.ContributionID == uuid.Nil {
		c.ContributionID = uuid.New()
	}
	return nil
}

// Editable reports whether the resident may still change the report.
func (c Contribution) Editable() bool {
	return c.Status == ContributionPending || c.Status == ContributionRejected
}
