// Package accounts creates RTs and login accounts and manages their
// credentials: bcrypt password hashes, refresh tokens and password reset
// tokens.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mastermind064/RT06/models"
	"github.com/mastermind064/RT06/pkg/cashbook"
)

var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrRtExists           = errors.New("RT context already exists")
	ErrResidentNotInRt    = errors.New("resident not found in this RT")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserNotFound       = errors.New("user not found")
	ErrWeakPassword       = errors.New("password too short (min 6)")
	ErrInvalidRole        = errors.New("role must be ADMIN or WARGA")
)

const minPasswordLen = 6

var now = func() time.Time { return time.Now().UTC() }

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", ErrWeakPassword
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Authenticate returns the active user matching username and password.
// Unknown users, wrong passwords and inactive users all yield
// ErrInvalidCredentials.
func Authenticate(ctx context.Context, db *gorm.DB, username, password string) (*models.User, error) {
	var user models.User
	if err := db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// RtInput describes a new RT.
type RtInput struct {
	RtNumber        string
	RwNumber        string
	VillageName     string
	SubdistrictName string
	CityName        string
	ProvinceName    string
	AddressDetail   *string
}

// CreateRt registers an RT together with its first ADMIN account and records
// RtCreated.
func CreateRt(ctx context.Context, tx *gorm.DB, in RtInput, adminUsername, adminPassword string) (*models.Rt, *models.User, error) {
	var cnt int64
	if err := tx.WithContext(ctx).Model(&models.Rt{}).
		Where("rt_number = ? AND rw_number = ? AND village_name = ? AND subdistrict_name = ? AND city_name = ? AND province_name = ?",
			in.RtNumber, in.RwNumber, in.VillageName, in.SubdistrictName, in.CityName, in.ProvinceName).
		Count(&cnt).Error; err != nil {
		return nil, nil, err
	}
	if cnt > 0 {
		return nil, nil, ErrRtExists
	}
	if err := ensureUsernameFree(ctx, tx, adminUsername); err != nil {
		return nil, nil, err
	}
	hash, err := HashPassword(adminPassword)
	if err != nil {
		return nil, nil, err
	}
	rt := models.Rt{
		RtNumber:        strings.TrimSpace(in.RtNumber),
		RwNumber:        strings.TrimSpace(in.RwNumber),
		VillageName:     strings.TrimSpace(in.VillageName),
		SubdistrictName: strings.TrimSpace(in.SubdistrictName),
		CityName:        strings.TrimSpace(in.CityName),
		ProvinceName:    strings.TrimSpace(in.ProvinceName),
		AddressDetail:   in.AddressDetail,
	}
	if err := tx.WithContext(ctx).Create(&rt).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, nil, ErrRtExists
		}
		return nil, nil, fmt.Errorf("create rt: %w", err)
	}
	admin := models.User{
		RtID:         rt.RtID,
		Username:     strings.TrimSpace(adminUsername),
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
	}
	if err := tx.WithContext(ctx).Create(&admin).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, nil, ErrUsernameTaken
		}
		return nil, nil, fmt.Errorf("create admin user: %w", err)
	}
	if _, err := cashbook.AppendEvent(ctx, tx, cashbook.Event{
		RtID:          rt.RtID,
		AggregateType: models.AggregateRt,
		AggregateID:   rt.RtID,
		EventType:     "RtCreated",
		Payload:       map[string]any{"RtId": rt.RtID, "RtNumber": rt.RtNumber, "RwNumber": rt.RwNumber, "AdminUserId": admin.UserID},
		CausedBy:      admin.UserID,
	}); err != nil {
		return nil, nil, err
	}
	return &rt, &admin, nil
}

// UserInput describes an account registered by an RT admin.
type UserInput struct {
	Username   string
	Password   string
	Email      *string
	Role       string
	ResidentID *uuid.UUID
}

// CreateUser adds an account to the RT. A WARGA account without a resident
// gets a DRAFT placeholder resident that the user fills in later.
func CreateUser(ctx context.Context, tx *gorm.DB, rtID, actorID uuid.UUID, in UserInput) (*models.User, error) {
	if !models.IsValidRole(in.Role) {
		return nil, ErrInvalidRole
	}
	if err := ensureUsernameFree(ctx, tx, in.Username); err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	residentID := in.ResidentID
	if residentID != nil {
		var cnt int64
		if err := tx.WithContext(ctx).Model(&models.Resident{}).
			Where("resident_id = ? AND rt_id = ?", *residentID, rtID).
			Count(&cnt).Error; err != nil {
			return nil, err
		}
		if cnt == 0 {
			return nil, ErrResidentNotInRt
		}
	} else if in.Role == models.RoleWarga {
		placeholder := models.Resident{
			RtID:             rtID,
			NationalIDNumber: "-",
			FullName:         "-",
			BirthDate:        now(),
			Gender:           "-",
			Blok:             "-",
			PhoneNumber:      "-",
			ApprovalStatus:   models.ApprovalDraft,
		}
		if err := tx.WithContext(ctx).Create(&placeholder).Error; err != nil {
			return nil, fmt.Errorf("create placeholder resident: %w", err)
		}
		residentID = &placeholder.ResidentID
	}

	var email *string
	if in.Email != nil && strings.TrimSpace(*in.Email) != "" {
		e := strings.TrimSpace(*in.Email)
		email = &e
	}
	user := models.User{
		RtID:         rtID,
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: hash,
		Email:        email,
		Role:         in.Role,
		IsActive:     true,
		ResidentID:   residentID,
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	if _, err := cashbook.AppendEvent(ctx, tx, cashbook.Event{
		RtID:          rtID,
		AggregateType: models.AggregateUser,
		AggregateID:   user.UserID,
		EventType:     "UserRegistered",
		Payload:       map[string]any{"UserId": user.UserID, "Username": user.Username, "Role": user.Role, "ResidentId": user.ResidentID},
		CausedBy:      actorID,
	}); err != nil {
		return nil, err
	}
	return &user, nil
}

// SetUserStatus activates or deactivates a non-admin user of the RT. Setting
// the current state again changes nothing and records no event.
func SetUserStatus(ctx context.Context, tx *gorm.DB, rtID, actorID, userID uuid.UUID, active bool) (*models.User, error) {
	var user models.User
	err := tx.WithContext(ctx).
		Where("user_id = ? AND rt_id = ? AND role <> ?", userID, rtID, models.RoleAdmin).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if user.IsActive == active {
		return &user, nil
	}
	if err := tx.WithContext(ctx).Model(&user).Updates(map[string]any{"is_active": active, "updated_at": now()}).Error; err != nil {
		return nil, fmt.Errorf("update user status: %w", err)
	}
	user.IsActive = active
	if _, err := cashbook.AppendEvent(ctx, tx, cashbook.Event{
		RtID:          rtID,
		AggregateType: models.AggregateUser,
		AggregateID:   user.UserID,
		EventType:     "UserStatusUpdated",
		Payload:       map[string]any{"UserId": user.UserID, "IsActive": active},
		CausedBy:      actorID,
	}); err != nil {
		return nil, err
	}
	return &user, nil
}

// SetPassword replaces the password of userID.
func SetPassword(ctx context.Context, db *gorm.DB, userID uuid.UUID, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	res := db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{"password_hash": hash, "updated_at": now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func ensureUsernameFree(ctx context.Context, tx *gorm.DB, username string) error {
	var cnt int64
	if err := tx.WithContext(ctx).Model(&models.User{}).Where("username = ?", strings.TrimSpace(username)).Count(&cnt).Error; err != nil {
		return err
	}
	if cnt > 0 {
		return ErrUsernameTaken
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "UNIQUE constraint")
}
