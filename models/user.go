package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a login account. Every user belongs to exactly one RT.
type User struct {
	UserID       uuid.UUID  `gorm:"column:user_id;primaryKey;size:36" json:"UserId"`
	RtID         uuid.UUID  `gorm:"column:rt_id;size:36;not null;index" json:"RtId"`
	Rt           Rt         `gorm:"foreignKey:RtID;references:RtID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Username     string     `gorm:"size:50;not null;uniqueIndex" json:"Username"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	Email        *string    `gorm:"size:255;index" json:"Email"`
	Role         string     `gorm:"size:10;not null;default:WARGA" json:"Role"`
	IsActive     bool       `gorm:"not null;default:true" json:"IsActive"`
	ResidentID   *uuid.UUID `gorm:"column:resident_id;size:36;index" json:"ResidentId"`
	Resident     *Resident  `gorm:"foreignKey:ResidentID;references:ResidentID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"-"`
	CreatedAt    time.Time  `json:"CreatedAt"`
	UpdatedAt    time.Time  `json:"UpdatedAt"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.UserID == uuid.Nil {
		u.UserID = uuid.New()
	}
	return nil
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
