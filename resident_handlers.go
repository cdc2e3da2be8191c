package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mastermind064/RT06/models"
	"github.com/mastermind064/RT06/pkg/cashbook"
)

type familyMemberInput struct {
	FullName     string `json:"fullName"`
	BirthDate    string `json:"birthDate"`
	Gender       string `json:"gender"`
	Relationship string `json:"relationship"`
}

// residentInput is the profile a resident (or an admin on their behalf) submits.
type residentInput struct {
	NationalIDNumber string              `json:"nationalIdNumber" form:"nationalIdNumber"`
	FullName         string              `json:"fullName" form:"fullName"`
	BirthDate        string              `json:"birthDate" form:"birthDate"`
	Gender           string              `json:"gender" form:"gender"`
	Blok             string              `json:"blok" form:"blok"`
	Address          string              `json:"address" form:"address"`
	PhoneNumber      string              `json:"phoneNumber" form:"phoneNumber"`
	FamilyMembers    []familyMemberInput `json:"familyMembers" form:"-"`
}

var validRelationships = map[string]bool{
	models.RelationWife:    true,
	models.RelationHusband: true,
	models.RelationChild:   true,
	models.RelationOther:   true,
}

func (in *residentInput) normalize() {
	in.NationalIDNumber = strings.TrimSpace(in.NationalIDNumber)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Gender = strings.ToUpper(strings.TrimSpace(in.Gender))
	in.Blok = strings.TrimSpace(in.Blok)
	in.Address = strings.TrimSpace(in.Address)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	for i := range in.FamilyMembers {
		m := &in.FamilyMembers[i]
		m.FullName = strings.TrimSpace(m.FullName)
		m.Gender = strings.ToUpper(strings.TrimSpace(m.Gender))
		m.Relationship = strings.ToUpper(strings.TrimSpace(m.Relationship))
	}
}

func validGender(g string) bool { return g == "L" || g == "P" }

// validate checks the profile and returns the parsed birth dates (resident
// first, then one per family member).
func (in residentInput) validate() ([]time.Time, error) {
	runes := utf8.RuneCountInString
	switch {
	case runes(in.NationalIDNumber) < 8 || runes(in.NationalIDNumber) > 32:
		return nil, badRequest("nationalIdNumber must be 8 to 32 characters")
	case in.FullName == "" || runes(in.FullName) > 100:
		return nil, badRequest("fullName is required (max 100)")
	case !validGender(in.Gender):
		return nil, badRequest("gender must be L or P")
	case in.Blok == "" || runes(in.Blok) > 50:
		return nil, badRequest("blok is required (max 50)")
	case runes(in.Address) > 255:
		return nil, badRequest("address too long (max 255)")
	case in.PhoneNumber == "" || runes(in.PhoneNumber) > 30:
		return nil, badRequest("phoneNumber is required (max 30)")
	}
	birth, err := parseDate(in.BirthDate)
	if err != nil {
		return nil, badRequest("invalid birthDate")
	}
	dates := []time.Time{birth}
	for i, m := range in.FamilyMembers {
		switch {
		case m.FullName == "" || runes(m.FullName) > 100:
			return nil, badRequest(fmt.Sprintf("familyMembers[%d].fullName is required (max 100)", i))
		case !validGender(m.Gender):
			return nil, badRequest(fmt.Sprintf("familyMembers[%d].gender must be L or P", i))
		case !validRelationships[m.Relationship]:
			return nil, badRequest(fmt.Sprintf("familyMembers[%d].relationship must be ISTRI, SUAMI, ANAK or LAINNYA", i))
		}
		d, err := parseDate(m.BirthDate)
		if err != nil {
			return nil, badRequest(fmt.Sprintf("familyMembers[%d].birthDate is invalid", i))
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// saveResidentProfile writes in onto res (new when res.ResidentID is nil),
// sets it PENDING, replaces the family members and records the submission
// events.
func saveResidentProfile(ctx context.Context, tx *gorm.DB, t tenant, res *models.Resident, in residentInput, dates []time.Time) error {
	res.RtID = t.RtID
	res.NationalIDNumber = in.NationalIDNumber
	res.FullName = in.FullName
	res.BirthDate = dates[0]
	res.Gender = in.Gender
	res.Blok = in.Blok
	res.Address = in.Address
	res.PhoneNumber = in.PhoneNumber
	res.ApprovalStatus = models.ApprovalPending
	res.ApprovalNote = nil
	res.FamilyMembers = nil

	if res.ResidentID == uuid.Nil {
		if err := tx.Omit("FamilyMembers", "Rt").Create(res).Error; err != nil {
			return fmt.Errorf("create resident: %w", err)
		}
	} else {
		if err := tx.Omit("FamilyMembers", "Rt", "created_at").Save(res).Error; err != nil {
			return fmt.Errorf("update resident: %w", err)
		}
	}

	if err := tx.Where("resident_id = ? AND rt_id = ?", res.ResidentID, t.RtID).Delete(&models.ResidentFamilyMember{}).Error; err != nil {
		return fmt.Errorf("clear family members: %w", err)
	}
	members := make([]models.ResidentFamilyMember, 0, len(in.FamilyMembers))
	for i, m := range in.FamilyMembers {
		members = append(members, models.ResidentFamilyMember{
			RtID:         t.RtID,
			ResidentID:   res.ResidentID,
			FullName:     m.FullName,
			BirthDate:    dates[i+1],
			Gender:       m.Gender,
			Relationship: m.Relationship,
		})
	}
	if len(members) > 0 {
		if err := tx.Create(&members).Error; err != nil {
			return fmt.Errorf("create family members: %w", err)
		}
	}
	res.FamilyMembers = members

	if _, err := cashbook.AppendEvent(ctx, tx, cashbook.Event{
		RtID:          t.RtID,
		AggregateType: models.AggregateResident,
		AggregateID:   res.ResidentID,
		EventType:     "ResidentProfileSubmitted",
		Payload:       gin.H{"ResidentId": res.ResidentID, "FullName": res.FullName, "NationalIdNumber": res.NationalIDNumber},
		CausedBy:      t.UserID,
	}); err != nil {
		return err
	}
	for _, m := range members {
		if _, err := cashbook.AppendEvent(ctx, tx, cashbook.Event{
			RtID:          t.RtID,
			AggregateType: models.AggregateResident,
			AggregateID:   res.ResidentID,
			EventType:     "FamilyMemberUpserted",
			Payload:       gin.H{"FamilyMemberId": m.FamilyMemberID, "FullName": m.FullName, "Relationship": m.Relationship},
			CausedBy:      t.UserID,
		}); err != nil {
			return err
		}
	}
	return nil
}

func getMyResidentHandler(c *gin.Context) {
	t := currentTenant(c)
	if t.ResidentID == nil {
		c.JSON(http.StatusOK, gin.H{"Resident": nil})
		return
	}
	var res models.Resident
	err := db.WithContext(c.Request.Context()).Preload("FamilyMembers").
		Where("resident_id = ? AND rt_id = ?", *t.ResidentID, t.RtID).First(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusOK, gin.H{"Resident": nil})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// submitMyResidentHandler accepts the resident's own profile as multipart form
// data, including the KK scan and the profile photo.
func submitMyResidentHandler(c *gin.Context) {
	var in residentInput
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if raw := strings.TrimSpace(c.PostForm("familyMembers")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.FamilyMembers); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Format familyMembers tidak valid: " + err.Error()})
			return
		}
	}
	in.normalize()
	dates, err := in.validate()
	if err != nil {
		respondError(c, err)
		return
	}
	t := currentTenant(c)

	// new files are removed again if the transaction fails; replaced ones only after commit
	var newFiles, oldFiles []string
	kkPath, picPath, keepKK, keepPic := "", "", true, true
	if f, err := c.FormFile("kkDocumentPath"); err == nil && f.Size > 0 {
		if kkPath, err = saveUpload(c, f, folderResidentKK, t.RtID); err != nil {
			respondError(c, err)
			return
		}
		newFiles = append(newFiles, kkPath)
		keepKK = false
	}
	if f, err := c.FormFile("picPath"); err == nil && f.Size > 0 {
		if picPath, err = saveImageUpload(c, f, folderResidentPic, t.RtID); err != nil {
			cleanupUploads(newFiles)
			respondError(c, err)
			return
		}
		newFiles = append(newFiles, picPath)
		keepPic = false
	}
	if keepKK && formBool(c, "kkDelete") {
		keepKK = false
	}
	if keepPic && formBool(c, "picDelete") {
		keepPic = false
	}

	var res models.Resident
	err = inTx(c, func(ctx context.Context, tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("user_id = ? AND rt_id = ?", t.UserID, t.RtID).First(&user).Error; err != nil {
			return err
		}
		if user.ResidentID != nil {
			if err := tx.Where("resident_id = ? AND rt_id = ?", *user.ResidentID, t.RtID).First(&res).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}
		if !keepKK {
			if res.KkDocumentPath != "" {
				oldFiles = append(oldFiles, res.KkDocumentPath)
			}
			res.KkDocumentPath = kkPath
		}
		if !keepPic {
			if res.PicPath != "" {
				oldFiles = append(oldFiles, res.PicPath)
			}
			res.PicPath = picPath
		}
		if err := saveResidentProfile(ctx, tx, t, &res, in, dates); err != nil {
			return err
		}
		if user.ResidentID == nil || *user.ResidentID != res.ResidentID {
			return tx.Model(&user).Update("resident_id", res.ResidentID).Error
		}
		return nil
	})
	if err != nil {
		cleanupUploads(newFiles)
		respondError(c, err)
		return
	}
	cleanupUploads(oldFiles)
	c.JSON(http.StatusAccepted, gin.H{"ResidentId": res.ResidentID, "ApprovalStatus": res.ApprovalStatus})
}

// createResidentHandler lets an admin register a resident directly.
func createResidentHandler(c *gin.Context) {
	var in residentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in.normalize()
	dates, err := in.validate()
	if err != nil {
		respondError(c, err)
		return
	}
	t := currentTenant(c)
	var res models.Resident
	if err := inTx(c, func(ctx context.Context, tx *gorm.DB) error {
		return saveResidentProfile(ctx, tx, t, &res, in, dates)
	}); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"ResidentId": res.ResidentID, "ApprovalStatus": res.ApprovalStatus})
}

func listResidentsHandler(c *gin.Context) {
	t := currentTenant(c)
	page, pageSize := pagination(c)
	q := db.WithContext(c.Request.Context()).Model(&models.Resident{}).Where("rt_id = ?", t.RtID)
	if name := strings.TrimSpace(c.Query("name")); name != "" {
		q = q.Where("LOWER(full_name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if blok := strings.TrimSpace(c.Query("blok")); blok != "" {
		q = q.Where("LOWER(blok) LIKE ?", "%"+strings.ToLower(blok)+"%")
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		q = q.Where("approval_status = ?", strings.ToUpper(status))
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		respondError(c, err)
		return
	}
	var items []models.Resident
	if err := q.Order("blok, full_name").Offset((page - 1) * pageSize).Limit(pageSize).Find(&items).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pageResult{Items: items, Total: total})
}

func getResidentHandler(c *gin.Context) {
	id, ok := uuidParam(c, "residentId")
	if !ok {
		return
	}
	t := currentTenant(c)
	var res models.Resident
	if err := db.WithContext(c.Request.Context()).Preload("FamilyMembers").
		Where("resident_id = ? AND rt_id = ?", id, t.RtID).First(&res).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func reviewResidentHandler(c *gin.Context) {
	id, ok := uuidParam(c, "residentId")
	if !ok {
		return
	}
	var req struct {
		Approve bool    `json:"approve"`
		Note    *string `json:"note" binding:"omitempty,max=255"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t := currentTenant(c)
	var res models.Resident
	err := inTx(c, func(ctx context.Context, tx *gorm.DB) error {
		if err := tx.Where("resident_id = ? AND rt_id = ?", id, t.RtID).First(&res).Error; err != nil {
			return err
		}
		eventType := "ResidentProfileApproved"
		res.ApprovalStatus = models.ApprovalApproved
		res.ApprovalNote = nil
		if !req.Approve {
			eventType = "ResidentProfileRejected"
			res.ApprovalStatus = models.ApprovalRejected
			res.ApprovalNote = req.Note
		}
		if err := tx.Model(&res).Updates(map[string]any{
			"approval_status": res.ApprovalStatus,
			"approval_note":   res.ApprovalNote,
			"updated_at":      time.Now().UTC(),
		}).Error; err != nil {
			return err
		}
		_, err := cashbook.AppendEvent(ctx, tx, cashbook.Event{
			RtID:          t.RtID,
			AggregateType: models.AggregateResident,
			AggregateID:   res.ResidentID,
			EventType:     eventType,
			Payload:       gin.H{"ResidentId": res.ResidentID, "Note": req.Note},
			CausedBy:      t.UserID,
		})
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ResidentId": res.ResidentID, "ApprovalStatus": res.ApprovalStatus, "ApprovalNote": res.ApprovalNote})
}

func formBool(c *gin.Context, key string) bool {
	v, _ := strconv.ParseBool(c.PostForm(key))
	return v
}

func cleanupUploads(paths []string) {
	for _, p := range paths {
		deleteUpload(p)
	}
}
