package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mastermind064/RT06/models"
	"github.com/mastermind064/RT06/pkg/accounts"
)

// createRtHandler registers a new RT with its first admin. It is the only
// anonymous write endpoint.
func createRtHandler(c *gin.Context) {
	var req struct {
		RtNumber        string  `json:"rtNumber" binding:"required,max=10"`
		RwNumber        string  `json:"rwNumber" binding:"required,max=10"`
		VillageName     string  `json:"villageName" binding:"required,max=100"`
		SubdistrictName string  `json:"subdistrictName" binding:"required,max=100"`
		CityName        string  `json:"cityName" binding:"required,max=100"`
		ProvinceName    string  `json:"provinceName" binding:"required,max=100"`
		AddressDetail   *string `json:"addressDetail" binding:"omitempty,max=255"`
		AdminUser       struct {
			Username string `json:"username" binding:"required,min=4,max=50"`
			Password string `json:"password" binding:"required,min=6"`
		} `json:"adminUser" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var rt *models.Rt
	var admin *models.User
	err := inTx(c, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		rt, admin, err = accounts.CreateRt(ctx, tx, accounts.RtInput{
			RtNumber:        req.RtNumber,
			RwNumber:        req.RwNumber,
			VillageName:     req.VillageName,
			SubdistrictName: req.SubdistrictName,
			CityName:        req.CityName,
			ProvinceName:    req.ProvinceName,
			AddressDetail:   req.AddressDetail,
		}, req.AdminUser.Username, req.AdminUser.Password)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	token, err := issueAccessToken(*admin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"RtId": rt.RtID, "UserId": admin.UserID, "Username": admin.Username, "Token": token})
}

func getMyRtHandler(c *gin.Context) {
	t := currentTenant(c)
	var rt models.Rt
	if err := db.WithContext(c.Request.Context()).Where("rt_id = ?", t.RtID).First(&rt).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rt)
}
