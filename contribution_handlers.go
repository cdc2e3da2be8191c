package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mastermind064/RT06/models"
	"github.com/mastermind064/RT06/pkg/cashbook"
	"github.com/mastermind064/RT06/pkg/rupiah"
)

// contributionRow is a contribution as listed to the SPA, with the blok of
// the paying resident.
type contributionRow struct {
	ContributionID uuid.UUID       `json:"ContributionId"`
	ResidentID     uuid.UUID       `json:"ResidentId"`
	PeriodStart    time.Time       `json:"PeriodStart"`
	PeriodEnd      time.Time       `json:"PeriodEnd"`
	AmountPaid     decimal.Decimal `json:"AmountPaid"`
	PaymentDate    time.Time       `json:"PaymentDate"`
	Status         string          `json:"Status"`
	AdminNote      *string         `json:"AdminNote"`
	Blok           string          `json:"Blok"`
	ProofImagePath string          `json:"ProofImagePath"`
}

const contributionRowColumns = "contributions.contribution_id, contributions.resident_id, contributions.period_start, " +
	"contributions.period_end, contributions.amount_paid, contributions.payment_date, contributions.status, " +
	"contributions.admin_note, residents.blok, contributions.proof_image_path"

// contributionQuery builds the filtered contribution query of the RT from the
// request's query string.
func contributionQuery(c *gin.Context, rtID uuid.UUID) (*gorm.DB, error) {
	q := db.WithContext(c.Request.Context()).Model(&models.Contribution{}).
		Joins("JOIN residents ON residents.resident_id = contributions.resident_id").
		Where("contributions.rt_id = ?", rtID)

	if v := strings.TrimSpace(c.Query("status")); v != "" {
		q = q.Where("contributions.status = ?", strings.ToUpper(v))
	}
	if v := strings.TrimSpace(c.Query("blok")); v != "" {
		q = q.Where("LOWER(residents.blok) LIKE ?", "%"+strings.ToLower(v)+"%")
	}
	if v := strings.TrimSpace(c.Query("adminNote")); v != "" {
		q = q.Where("contributions.admin_note IS NOT NULL AND LOWER(contributions.admin_note) LIKE ?", "%"+strings.ToLower(v)+"%")
	}
	dateFilters := []struct{ param, cond string }{
		{"paymentDateFrom", "contributions.payment_date >= ?"},
		{"paymentDateTo", "contributions.payment_date <= ?"},
		{"periodStartFrom", "contributions.period_start >= ?"},
		{"periodStartTo", "contributions.period_start <= ?"},
		{"periodEndFrom", "contributions.period_end >= ?"},
		{"periodEndTo", "contributions.period_end <= ?"},
	}
	for _, f := range dateFilters {
		t, err := optionalDate(c.Query(f.param))
		if err != nil {
			return nil, badRequest("invalid " + f.param)
		}
		if t != nil {
			q = q.Where(f.cond, *t)
		}
	}
	amountFilters := []struct{ param, cond string }{
		{"amountMin", "contributions.amount_paid >= ?"},
		{"amountMax", "contributions.amount_paid <= ?"},
	}
	for _, f := range amountFilters {
		v := strings.TrimSpace(c.Query(f.param))
		if v == "" {
			continue
		}
		amt, err := rupiah.Parse(v)
		if err != nil {
			return nil, badRequest("invalid " + f.param)
		}
		q = q.Where(f.cond, amt)
	}
	return q, nil
}

// respondContributionPage pages q ordered by payment date, newest first.
func respondContributionPage(c *gin.Context, q *gorm.DB) {
	page, pageSize := pagination(c)
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		respondError(c, err)
		return
	}
	items := []contributionRow{}
	if err := q.Select(contributionRowColumns).
		Order("contributions.payment_date desc").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Scan(&items).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pageResult{Items: items, Total: total})
}

func listMyContributionsHandler(c *gin.Context) {
	t := currentTenant(c)
	if t.ResidentID == nil {
		c.JSON(http.StatusOK, pageResult{Items: []contributionRow{}, Total: 0})
		return
	}
	q, err := contributionQuery(c, t.RtID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondContributionPage(c, q.Where("contributions.resident_id = ?", *t.ResidentID))
}

func listContributionsHandler(c *gin.Context) {
	q, err := contributionQuery(c, currentTenant(c).RtID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondContributionPage(c, q)
}

func getContributionHandler(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	t := currentTenant(c)
	var row contributionRow
	res := db.WithContext(c.Request.Context()).Model(&models.Contribution{}).
		Joins("JOIN residents ON residents.resident_id = contributions.resident_id").
		Where("contributions.rt_id = ? AND contributions.contribution_id = ?", t.RtID, id).
		Select(contributionRowColumns).
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		respondError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, row)
}

// contributionForm is the multipart body of a contribution report.
type contributionForm struct {
	PeriodStart string `form:"periodStart" binding:"required"`
	PeriodEnd   string `form:"periodEnd" binding:"required"`
	AmountPaid  string `form:"amountPaid" binding:"required"`
	PaymentDate string `form:"paymentDate" binding:"required"`
}

type contributionFields struct {
	periodStart time.Time
	periodEnd   time.Time
	amount      decimal.Decimal
	paymentDate time.Time
}

func (f contributionForm) parse() (contributionFields, error) {
	var out contributionFields
	var err error
	if out.periodStart, err = parsePeriod(f.PeriodStart); err != nil {
		return out, badRequest("Invalid periodStart format")
	}
	if out.periodEnd, err = parsePeriod(f.PeriodEnd); err != nil {
		return out, badRequest("Invalid periodEnd format")
	}
	if out.periodEnd.Before(out.periodStart) {
		return out, badRequest("periodEnd must not be before periodStart")
	}
	if out.paymentDate, err = parseDate(f.PaymentDate); err != nil {
		return out, badRequest("Invalid paymentDate format")
	}
	if out.amount, err = rupiah.Parse(f.AmountPaid); err != nil || !out.amount.IsPositive() {
		return out, badRequest("amountPaid must be greater than zero")
	}
	out.amount = out.amount.Round(2)
	return out, nil
}

func contributionEventPayload(ct models.Contribution) gin.H {
	return gin.H{"ContributionId": ct.ContributionID, "AmountPaid": ct.AmountPaid, "PaymentDate": ct.PaymentDate}
}

func reportContributionHandler(c *gin.Context) {
	t := currentTenant(c)
	if t.ResidentID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Resident profile is required before reporting contributions"})
		return
	}
	var form contributionForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fields, err := form.parse()
	if err != nil {
		respondError(c, err)
		return
	}
	proof, err := c.FormFile("proof")
	if err != nil || proof.Size == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "proof file is required"})
		return
	}
	proofPath, err := saveUpload(c, proof, folderContributions, t.RtID)
	if err != nil {
		respondError(c, err)
		return
	}

	ct := models.Contribution{
		RtID:           t.RtID,
		ResidentID:     *t.ResidentID,
		PeriodStart:    fields.periodStart,
		PeriodEnd:      fields.periodEnd,
		AmountPaid:     fields.amount,
		PaymentDate:    fields.paymentDate,
		ProofImagePath: proofPath,
		Status:         models.ContributionPending,
	}
	err = inTx(c, func(ctx context.Context, tx *gorm.DB) error {
		if err := tx.Omit("Resident").Create(&ct).Error; err != nil {
			return err
		}
		_, err := cashbook.AppendEvent(ctx, tx, cashbook.Event{
			RtID:          t.RtID,
			AggregateType: models.AggregateContribution,
			AggregateID:   ct.ContributionID,
			EventType:     "ContributionReported",
			Payload:       contributionEventPayload(ct),
			CausedBy:      t.UserID,
		})
		return err
	})
	if err != nil {
		deleteUpload(proofPath)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"ContributionId": ct.ContributionID, "Status": ct.Status})
}

// updateContributionHandler lets a resident correct an unapproved report. The
// report goes back to PENDING for another review.
func updateContributionHandler(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	t := currentTenant(c)
	if t.ResidentID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "resident profile required"})
		return
	}
	var form contributionForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fields, err := form.parse()
	if err != nil {
		respondError(c, err)
		return
	}
	newProof := ""
	if f, err := c.FormFile("proof"); err == nil && f.Size > 0 {
		if newProof, err = saveUpload(c, f, folderContributions, t.RtID); err != nil {
			respondError(c, err)
			return
		}
	}

	var ct models.Contribution
	oldProof := ""
	err = inTx(c, func(ctx context.Context, tx *gorm.DB) error {
		if err := tx.Where("contribution_id = ? AND rt_id = ? AND resident_id = ?", id, t.RtID, *t.ResidentID).First(&ct).Error; err != nil {
			return err
		}
		if !ct.Editable() {
			return badRequest("Only pending or rejected contributions can be updated")
		}
		if newProof != "" {
			oldProof = ct.ProofImagePath
			ct.ProofImagePath = newProof
		}
		ct.PeriodStart = fields.periodStart
		ct.PeriodEnd = fields.periodEnd
		ct.AmountPaid = fields.amount
		ct.PaymentDate = fields.paymentDate
		ct.Status = models.ContributionPending
		ct.AdminNote = nil
		if err := tx.Omit("Resident").Save(&ct).Error; err != nil {
			return err
		}
		_, err := cashbook.AppendEvent(ctx, tx, cashbook.Event{
			RtID:          t.RtID,
			AggregateType: models.AggregateContribution,
			AggregateID:   ct.ContributionID,
			EventType:     "ContributionUpdated",
			Payload:       contributionEventPayload(ct),
			CausedBy:      t.UserID,
		})
		return err
	})
	if err != nil {
		if newProof != "" {
			deleteUpload(newProof)
		}
		respondError(c, err)
		return
	}
	if oldProof != "" {
		deleteUpload(oldProof)
	}
	c.JSON(http.StatusOK, gin.H{"ContributionId": ct.ContributionID, "Status": ct.Status})
}

// reviewContribution approves or rejects a PENDING contribution. Approval adds
// the amount to the cash summary of the payment month in the same transaction.
func reviewContribution(c *gin.Context, approve bool, note *string) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	t := currentTenant(c)
	var ct models.Contribution
	err := inTx(c, func(ctx context.Context, tx *gorm.DB) error {
		if err := tx.Where("contribution_id = ? AND rt_id = ?", id, t.RtID).First(&ct).Error; err != nil {
			return err
		}
		if ct.Status != models.ContributionPending {
			return badRequest("Contribution already reviewed")
		}
		ct.Status = models.ContributionRejected
		eventType := "ContributionRejected"
		if approve {
			ct.Status = models.ContributionApproved
			eventType = "ContributionApproved"
		}
		ct.AdminNote = note
		if err := tx.Model(&ct).Updates(map[string]any{
			"status":     ct.Status,
			"admin_note": ct.AdminNote,
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
			return err
		}
		if _, err := cashbook.AppendEvent(ctx, tx, cashbook.Event{
			RtID:          t.RtID,
			AggregateType: models.AggregateContribution,
			AggregateID:   ct.ContributionID,
			EventType:     eventType,
			Payload:       gin.H{"ContributionId": ct.ContributionID, "AdminNote": note},
			CausedBy:      t.UserID,
		}); err != nil {
			return err
		}
		if approve {
			return cashbook.AdjustContribution(ctx, tx, t.RtID, ct.PaymentDate, ct.AmountPaid)
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ContributionId": ct.ContributionID, "Status": ct.Status, "AdminNote": ct.AdminNote})
}

func reviewContributionHandler(c *gin.Context) {
	var req struct {
		Approve   bool    `json:"approve"`
		AdminNote *string `json:"adminNote" binding:"omitempty,max=255"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reviewContribution(c, req.Approve, req.AdminNote)
}

type reviewNoteRequest struct {
	Note *string `json:"note" binding:"omitempty,max=255"`
}

func approveContributionHandler(c *gin.Context) {
	var req reviewNoteRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	reviewContribution(c, true, req.Note)
}

func rejectContributionHandler(c *gin.Context) {
	var req reviewNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reviewContribution(c, false, req.Note)
}
