package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Relationship values of a family member to the resident.
const (
	RelationWife    = "ISTRI"
	RelationHusband = "SUAMI"
	RelationChild   = "ANAK"
	RelationOther   = "LAINNYA"
)

type ResidentFamilyMember struct {
	FamilyMemberID uuid.UUID `gorm:"column:family_member_id;primaryKey;size:36" json:"FamilyMemberId"`
	RtID           uuid.UUID `gorm:"column:rt_id;size:36;not null;index:idx_rt_family,priority:1" json:"-"`
	ResidentID     uuid.UUID `gorm:"column:resident_id;size:36;not null;index:idx_rt_family,priority:2" json:"-"`
	FullName       string    `gorm:"size:100;not null" json:"FullName"`
	BirthDate      time.Time `json:"BirthDate"`
	Gender         string    `gorm:"size:1;not null" json:"Gender"`
	Relationship   string    `gorm:"size:20;not null" json:"Relationship"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
}

func (m *ResidentFamilyMember) BeforeCreate(*gorm.DB) error {
	if m.FamilyMemberID == uuid.Nil {
		m.FamilyMemberID = uuid.New()
	}
	return nil
}
