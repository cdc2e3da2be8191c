package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mastermind064/RT06/models"
	"github.com/mastermind064/RT06/pkg/accounts"
)

const defaultAvatar = "/uploads/default/avatar.png"

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	user, err := accounts.Authenticate(ctx, db, req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	resp, err := buildLoginResponse(ctx, *user)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// buildLoginResponse assembles the session payload shown by the SPA header.
func buildLoginResponse(ctx context.Context, user models.User) (gin.H, error) {
	var rt models.Rt
	if err := db.WithContext(ctx).Where("rt_id = ?", user.RtID).First(&rt).Error; err != nil {
		return nil, errors.New("invalid RT")
	}
	username := user.Username
	blok := ""
	pic := defaultAvatar
	if user.ResidentID != nil {
		var res models.Resident
		if err := db.WithContext(ctx).Where("resident_id = ?", *user.ResidentID).First(&res).Error; err != nil {
			return nil, errors.New("invalid resident")
		}
		blok = res.Blok
		username = user.Username + " - " + res.Blok
		if res.PicPath != "" {
			pic = res.PicPath
		}
	}
	token, err := issueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := accounts.IssueRefreshToken(ctx, db, user.UserID, cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return gin.H{
		"Token":        token,
		"RefreshToken": refresh,
		"RtId":         user.RtID,
		"UserId":       user.UserID,
		"Role":         user.Role,
		"Username":     username,
		"Blok":         blok,
		"RtRw":         rt.RtRw(),
		"PicPath":      pic,
	}, nil
}

// refreshHandler exchanges a refresh token for a new access token and rotates the refresh token
func refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, next, err := accounts.RotateRefreshToken(c.Request.Context(), db, req.RefreshToken, cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	token, err := issueAccessToken(*user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"Token": token, "RefreshToken": next})
}

// revokeRefreshHandler revokes a given refresh token (logout)
func revokeRefreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := accounts.RevokeRefreshToken(c.Request.Context(), db, req.RefreshToken); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "refresh token not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"Message": "refresh token revoked"})
}

func forgotPasswordHandler(c *gin.Context) {
	var req struct {
		UsernameOrEmail string `json:"usernameOrEmail"`
		Blok            string `json:"blok"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ident := strings.TrimSpace(req.UsernameOrEmail)
	blok := strings.TrimSpace(req.Blok)
	if ident == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username atau email wajib diisi"})
		return
	}
	if blok == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Blok wajib diisi"})
		return
	}
	ctx := c.Request.Context()

	looksEmail := strings.Contains(ident, "@")
	q := db.WithContext(ctx).Where("username = ?", ident)
	if looksEmail {
		q = db.WithContext(ctx).Where("email = ?", ident)
	}
	var user models.User
	if err := q.First(&user).Error; err != nil {
		msg := "Akun tidak ditemukan"
		if looksEmail {
			msg = "Email tidak terdaftar"
		}
		c.JSON(http.StatusNotFound, gin.H{"error": msg})
		return
	}
	if user.ResidentID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Akun tidak memiliki data warga"})
		return
	}
	var res models.Resident
	if err := db.WithContext(ctx).Where("resident_id = ?", *user.ResidentID).First(&res).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Data warga tidak ditemukan"})
		return
	}
	if !strings.EqualFold(res.Blok, blok) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Blok tidak cocok dengan akun"})
		return
	}
	if user.Email == nil || strings.TrimSpace(*user.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email belum diisi pada akun ini"})
		return
	}

	token, err := accounts.IssueResetToken(ctx, db, user.UserID, cfg.ResetTTL)
	if err != nil {
		respondError(c, err)
		return
	}
	resetPath := "/reset-password?token=" + token
	sent := false
	if cfg.SMTPConfigured() {
		if err := sendResetMail(*user.Email, cfg.ResetURLBase+resetPath); err != nil {
			log.Printf("reset mail to %s failed: %v", *user.Email, err)
		} else {
			sent = true
		}
	}
	log.Printf("password reset link for %s: %s (email sent: %v)", user.Username, resetPath, sent)

	msg := "SMTP belum dikonfigurasi, gunakan tautan dev untuk reset"
	if sent {
		msg = "Tautan reset telah dikirim ke email Anda"
	}
	c.JSON(http.StatusAccepted, gin.H{"Message": msg, "EmailSent": sent, "DevResetPath": resetPath})
}

func resetPasswordHandler(c *gin.Context) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Token) == "" || strings.TrimSpace(req.NewPassword) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token dan password baru wajib diisi"})
		return
	}
	err := accounts.RedeemResetToken(c.Request.Context(), db, req.Token, req.NewPassword)
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, accounts.ErrInvalidToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token tidak valid atau sudah kedaluwarsa"})
	default:
		respondError(c, err)
	}
}

func registerUserHandler(c *gin.Context) {
	var req struct {
		Username   string     `json:"username" binding:"required,min=4,max=50"`
		Password   string     `json:"password" binding:"required,min=6"`
		Email      *string    `json:"email" binding:"omitempty,email"`
		Role       string     `json:"role" binding:"required,oneof=ADMIN WARGA"`
		ResidentID *uuid.UUID `json:"residentId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t := currentTenant(c)
	var user *models.User
	err := inTx(c, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		user, err = accounts.CreateUser(ctx, tx, t.RtID, t.UserID, accounts.UserInput{
			Username:   req.Username,
			Password:   req.Password,
			Email:      req.Email,
			Role:       req.Role,
			ResidentID: req.ResidentID,
		})
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Location", "/api/auth/"+user.UserID.String())
	c.JSON(http.StatusCreated, gin.H{"UserId": user.UserID, "Username": user.Username, "Role": user.Role, "IsActive": user.IsActive})
}

func getUserHandler(c *gin.Context) {
	userID, ok := uuidParam(c, "userId")
	if !ok {
		return
	}
	t := currentTenant(c)
	var user models.User
	if err := db.WithContext(c.Request.Context()).Where("user_id = ? AND rt_id = ?", userID, t.RtID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"UserId": user.UserID, "Username": user.Username, "Role": user.Role, "IsActive": user.IsActive, "ResidentId": user.ResidentID})
}

// updateUserStatusQueryHandler serves PATCH /api/auth/:userId/status?isActive=.
func updateUserStatusQueryHandler(c *gin.Context) {
	active, err := strconv.ParseBool(c.Query("isActive"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "isActive must be true or false"})
		return
	}
	if _, ok := setUserStatus(c, active); ok {
		c.Status(http.StatusNoContent)
	}
}
