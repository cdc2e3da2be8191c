package main

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mastermind064/RT06/models"
	"github.com/mastermind064/RT06/pkg/cashbook"
)

type expenseRequest struct {
	ExpenseDate string          `json:"expenseDate" binding:"required"`
	Description string          `json:"description" binding:"required,max=255"`
	Amount      decimal.Decimal `json:"amount"`
	IsActive    *bool           `json:"isActive"`
}

func (r expenseRequest) input() (cashbook.ExpenseInput, error) {
	date, err := parseDate(r.ExpenseDate)
	if err != nil {
		return cashbook.ExpenseInput{}, badRequest("Invalid expenseDate format")
	}
	in := cashbook.ExpenseInput{
		ExpenseDate: date,
		Description: r.Description,
		Amount:      r.Amount.Round(2),
		IsActive:    true,
	}
	if r.IsActive != nil {
		in.IsActive = *r.IsActive
	}
	return in, nil
}

func listExpensesHandler(c *gin.Context) {
	t := currentTenant(c)
	page, pageSize := pagination(c)
	q := db.WithContext(c.Request.Context()).Model(&models.CashExpense{}).Where("rt_id = ?", t.RtID)
	if all, _ := strconv.ParseBool(c.Query("includeInactive")); !all {
		q = q.Where("is_active = ?", true)
	}
	from, err := optionalDate(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
		return
	}
	to, err := optionalDate(c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
		return
	}
	if from != nil {
		q = q.Where("expense_date >= ?", *from)
	}
	if to != nil {
		q = q.Where("expense_date <= ?", *to)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		respondError(c, err)
		return
	}
	items := []models.CashExpense{}
	if err := q.Order("expense_date desc, created_at desc").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&items).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pageResult{Items: items, Total: total})
}

func getExpenseHandler(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	e, err := cashbook.FindExpense(c.Request.Context(), db, currentTenant(c).RtID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func createExpenseHandler(c *gin.Context) {
	var req expenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, err := req.input()
	if err != nil {
		respondError(c, err)
		return
	}
	t := currentTenant(c)
	var e *models.CashExpense
	err = inTx(c, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		e, err = cashbook.RecordExpense(ctx, tx, t.RtID, t.UserID, in)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Location", "/api/cash/expenses/"+e.ExpenseID.String())
	c.JSON(http.StatusCreated, e)
}

func updateExpenseHandler(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req expenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, err := req.input()
	if err != nil {
		respondError(c, err)
		return
	}
	t := currentTenant(c)
	var e *models.CashExpense
	err = inTx(c, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		e, err = cashbook.UpdateExpense(ctx, tx, t.RtID, t.UserID, id, in)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// deleteExpenseHandler deactivates the expense. Deleting an inactive expense
// again still answers 204.
func deleteExpenseHandler(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	t := currentTenant(c)
	err := inTx(c, func(ctx context.Context, tx *gorm.DB) error {
		_, err := cashbook.DeactivateExpense(ctx, tx, t.RtID, t.UserID, id)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
