package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mastermind064/RT06/models"
	"github.com/mastermind064/RT06/pkg/cashbook"
)

// queryYear reads the year query parameter, defaulting to the current year.
func queryYear(c *gin.Context) (int, bool) {
	v := strings.TrimSpace(c.Query("year"))
	if v == "" {
		return time.Now().UTC().Year(), true
	}
	y, err := strconv.Atoi(v)
	if err != nil || y < 1 || y > 9999 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid year"})
		return 0, false
	}
	return y, true
}

func cashSummaryHandler(c *gin.Context) {
	month := 0
	if v := strings.TrimSpace(c.Query("month")); v != "" {
		if strings.TrimSpace(c.Query("year")) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Year must be provided when filtering by month"})
			return
		}
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Month must be between 1 and 12"})
			return
		}
		month = m
	}
	year, ok := queryYear(c)
	if !ok {
		return
	}
	var rows []models.MonthlyCashSummary
	if err := db.WithContext(c.Request.Context()).
		Where("rt_id = ? AND year <= ?", currentTenant(c).RtID, year).
		Order("year, month").
		Find(&rows).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cashbook.Summarize(rows, year, month))
}

func cashSummaryMonthsHandler(c *gin.Context) {
	year, ok := queryYear(c)
	if !ok {
		return
	}
	rows := []models.MonthlyCashSummary{}
	if err := db.WithContext(c.Request.Context()).
		Where("rt_id = ? AND year = ?", currentTenant(c).RtID, year).
		Order("month").
		Find(&rows).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// monitoringPage is the contribution monitoring grid response.
type monitoringPage struct {
	Items  []cashbook.MonitoringRow
	Total  int64
	Footer cashbook.MonitoringFooter
}

// cashMonitoringHandler shows which residents paid for which month of the
// year. The footer sums every filtered resident, not only the current page.
func cashMonitoringHandler(c *gin.Context) {
	year, ok := queryYear(c)
	if !ok {
		return
	}
	t := currentTenant(c)
	ctx := c.Request.Context()
	page, pageSize := pagination(c)

	q := db.WithContext(ctx).Model(&models.Resident{}).Where("rt_id = ?", t.RtID)
	if v := strings.TrimSpace(c.Query("name")); v != "" {
		q = q.Where("LOWER(full_name) LIKE ?", "%"+strings.ToLower(v)+"%")
	}
	if v := strings.TrimSpace(c.Query("blok")); v != "" {
		q = q.Where("LOWER(blok) LIKE ?", "%"+strings.ToLower(v)+"%")
	}
	var residents []models.Resident
	if err := q.Order("blok, full_name").Find(&residents).Error; err != nil {
		respondError(c, err)
		return
	}

	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(year, time.December, 1, 0, 0, 0, 0, time.UTC)
	var contributions []models.Contribution
	if err := db.WithContext(ctx).
		Where("rt_id = ? AND status = ? AND period_start <= ? AND period_end >= ?",
			t.RtID, models.ContributionApproved, yearEnd, yearStart).
		Find(&contributions).Error; err != nil {
		respondError(c, err)
		return
	}

	rows, footer := cashbook.MonitoringGrid(year, residents, contributions)
	start := (page - 1) * pageSize
	if start < 0 || start > len(rows) {
		start = len(rows)
	}
	end := start + pageSize
	if end > len(rows) {
		end = len(rows)
	}
	c.JSON(http.StatusOK, monitoringPage{Items: rows[start:end], Total: int64(len(rows)), Footer: footer})
}
