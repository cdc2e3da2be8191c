package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Approval states of a resident profile.
const (
	ApprovalDraft    = "DRAFT"
	ApprovalPending  = "PENDING"
	ApprovalApproved = "APPROVED"
	ApprovalRejected = "REJECTED"
)

// Resident is a household head registered in an RT ("warga").
type Resident struct {
	ResidentID       uuid.UUID              `gorm:"column:resident_id;primaryKey;size:36" json:"ResidentId"`
	RtID             uuid.UUID              `gorm:"column:rt_id;size:36;not null;index:idx_rt_resident;index:idx_rt_resident_status,priority:1" json:"RtId"`
	Rt               Rt                     `gorm:"foreignKey:RtID;references:RtID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	NationalIDNumber string                 `gorm:"column:national_id_number;size:32;not null" json:"NationalIdNumber"`
	FullName         string                 `gorm:"size:100;not null" json:"FullName"`
	BirthDate        time.Time              `json:"BirthDate"`
	Gender           string                 `gorm:"size:1;not null" json:"Gender"`
	Blok             string                 `gorm:"size:50;not null" json:"Blok"`
	Address          string                 `gorm:"size:255" json:"Address"`
	PhoneNumber      string                 `gorm:"size:30;not null" json:"PhoneNumber"`
	KkDocumentPath   string                 `gorm:"size:255" json:"KkDocumentPath"`
	PicPath          string                 `gorm:"size:255" json:"PicPath"`
	ApprovalStatus   string                 `gorm:"size:20;not null;default:DRAFT;index:idx_rt_resident_status,priority:2" json:"ApprovalStatus"`
	ApprovalNote     *string                `gorm:"size:255" json:"ApprovalNote"`
	FamilyMembers    []ResidentFamilyMember `gorm:"foreignKey:ResidentID;references:ResidentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"FamilyMembers"`
	CreatedAt        time.Time              `json:"CreatedAt"`
	UpdatedAt        time.Time              `json:"UpdatedAt"`
}

func (r *Resident) BeforeCreate(*gorm.DB) error {
	if r.ResidentID == uuid.Nil {
		r.ResidentID = uuid.New()
	}
	return nil
}
