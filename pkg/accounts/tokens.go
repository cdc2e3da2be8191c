package accounts

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mastermind064/RT06/models"
)

// newOpaqueToken returns a random 32-byte token (hex) and its storage hash.
func newOpaqueToken() (raw, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(b)
	return raw, hashToken(raw), nil
}

func hashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// IssueRefreshToken stores a new refresh token for userID and returns the raw value.
func IssueRefreshToken(ctx context.Context, db *gorm.DB, userID uuid.UUID, ttl time.Duration) (string, error) {
	raw, hash, err := newOpaqueToken()
	if err != nil {
		return "", err
	}
	rt := models.RefreshToken{UserID: userID, TokenHash: hash, ExpiresAt: now().Add(ttl)}
	if err := db.WithContext(ctx).Create(&rt).Error; err != nil {
		return "", err
	}
	return raw, nil
}

// RotateRefreshToken revokes raw and issues a replacement for its owner. The
// owner must still be active.
func RotateRefreshToken(ctx context.Context, db *gorm.DB, raw string, ttl time.Duration) (*models.User, string, error) {
	var user models.User
	var next string
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rt models.RefreshToken
		if err := tx.Where("token_hash = ?", hashToken(raw)).First(&rt).Error; err != nil {
			return ErrInvalidToken
		}
		if rt.Revoked || now().After(rt.ExpiresAt) {
			return ErrInvalidToken
		}
		if err := tx.Where("user_id = ?", rt.UserID).First(&user).Error; err != nil {
			return ErrUserNotFound
		}
		if !user.IsActive {
			return ErrInvalidCredentials
		}
		if err := tx.Model(&models.RefreshToken{}).Where("id = ?", rt.ID).Update("revoked", true).Error; err != nil {
			return err
		}
		var err error
		next, err = IssueRefreshToken(ctx, tx, user.UserID, ttl)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	return &user, next, nil
}

// RevokeRefreshToken marks raw as revoked.
func RevokeRefreshToken(ctx context.Context, db *gorm.DB, raw string) error {
	res := db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", hashToken(raw)).
		Update("revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInvalidToken
	}
	return nil
}

// IssueResetToken stores a single-use password reset token for userID.
func IssueResetToken(ctx context.Context, db *gorm.DB, userID uuid.UUID, ttl time.Duration) (string, error) {
	raw, hash, err := newOpaqueToken()
	if err != nil {
		return "", err
	}
	t := models.PasswordResetToken{UserID: userID, TokenHash: hash, ExpiresAt: now().Add(ttl)}
	if err := db.WithContext(ctx).Create(&t).Error; err != nil {
		return "", err
	}
	return raw, nil
}

// RedeemResetToken sets newPassword for the owner of raw and burns the token.
func RedeemResetToken(ctx context.Context, db *gorm.DB, raw, newPassword string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.PasswordResetToken
		err := tx.Where("token_hash = ?", hashToken(raw)).First(&t).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidToken
		}
		if err != nil {
			return err
		}
		ts := now()
		if !t.Usable(ts) {
			return ErrInvalidToken
		}
		if err := SetPassword(ctx, tx, t.UserID, newPassword); err != nil {
			return err
		}
		return tx.Model(&models.PasswordResetToken{}).Where("id = ?", t.ID).Update("used_at", ts).Error
	})
}
