package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Rt is a neighborhood unit and the tenant boundary of every other row.
type Rt struct {
	RtID            uuid.UUID `gorm:"column:rt_id;primaryKey;size:36" json:"RtId"`
	RtNumber        string    `gorm:"size:10;not null;uniqueIndex:uq_rt_context,priority:1" json:"RtNumber"`
	RwNumber        string    `gorm:"size:10;not null;uniqueIndex:uq_rt_context,priority:2" json:"RwNumber"`
	VillageName     string    `gorm:"size:100;not null;uniqueIndex:uq_rt_context,priority:3" json:"VillageName"`
	SubdistrictName string    `gorm:"size:100;not null;uniqueIndex:uq_rt_context,priority:4" json:"SubdistrictName"`
	CityName        string    `gorm:"size:100;not null;uniqueIndex:uq_rt_context,priority:5" json:"CityName"`
	ProvinceName    string    `gorm:"size:100;not null;uniqueIndex:uq_rt_context,priority:6" json:"ProvinceName"`
	AddressDetail   *string   `gorm:"size:255" json:"AddressDetail"`
	CreatedAt       time.Time `json:"CreatedAt"`
	UpdatedAt       time.Time `json:"UpdatedAt"`
}

func (Rt) TableName() string { return "rt" }

func (r *Rt) BeforeCreate(*gorm.DB) error {
	if r.RtID == uuid.Nil {
		r.RtID = uuid.New()
	}
	return nil
}

// RtRw renders the short "06/RW 01" label shown next to the username.
func (r Rt) RtRw() string {
	return r.RtNumber + "/RW " + r.RwNumber
}
