package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mastermind064/RT06/models"
	"github.com/mastermind064/RT06/pkg/accounts"
)

// listUsersHandler returns the non-admin accounts of the caller's RT.
func listUsersHandler(c *gin.Context) {
	t := currentTenant(c)
	var users []models.User
	if err := db.WithContext(c.Request.Context()).
		Where("rt_id = ? AND role <> ?", t.RtID, models.RoleAdmin).
		Order("username desc").
		Find(&users).Error; err != nil {
		respondError(c, err)
		return
	}
	items := make([]gin.H, 0, len(users))
	for _, u := range users {
		items = append(items, gin.H{
			"UserId":     u.UserID,
			"Username":   u.Username,
			"ResidentId": u.ResidentID,
			"Role":       u.Role,
			"IsActive":   u.IsActive,
			"CreatedAt":  u.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, items)
}

func updateUserStatusHandler(c *gin.Context) {
	active, err := strconv.ParseBool(c.Param("isActive"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if user, ok := setUserStatus(c, active); ok {
		c.JSON(http.StatusOK, gin.H{"UserId": user.UserID, "IsActive": user.IsActive})
	}
}

// setUserStatus applies the status change for :userId and writes the error
// response itself when it fails.
func setUserStatus(c *gin.Context, active bool) (*models.User, bool) {
	userID, ok := uuidParam(c, "userId")
	if !ok {
		return nil, false
	}
	t := currentTenant(c)
	var user *models.User
	err := inTx(c, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		user, err = accounts.SetUserStatus(ctx, tx, t.RtID, t.UserID, userID, active)
		return err
	})
	if errors.Is(err, accounts.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return nil, false
	}
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return user, true
}
