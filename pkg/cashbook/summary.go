package cashbook

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mastermind064/RT06/models"
)

type flow int

const (
	inflow flow = iota
	outflow
)

// AdjustContribution adds delta to the contribution total of the month the
// payment was made in and recomputes the RT's running balances.
func AdjustContribution(ctx context.Context, tx *gorm.DB, rtID uuid.UUID, paymentDate time.Time, delta decimal.Decimal) error {
	return adjust(ctx, tx, rtID, paymentDate, delta, inflow)
}

// AdjustExpense adds delta (negative to take an expense back out) to the
// expense total of the month of expenseDate and recomputes running balances.
func AdjustExpense(ctx context.Context, tx *gorm.DB, rtID uuid.UUID, expenseDate time.Time, delta decimal.Decimal) error {
	return adjust(ctx, tx, rtID, expenseDate, delta, outflow)
}

func adjust(ctx context.Context, tx *gorm.DB, rtID uuid.UUID, at time.Time, delta decimal.Decimal, f flow) error {
	year, month := MonthOf(at)
	summary, err := getOrCreateSummary(ctx, tx, rtID, year, month)
	if err != nil {
		return err
	}
	switch f {
	case inflow:
		summary.TotalContributionIn = summary.TotalContributionIn.Add(delta)
	case outflow:
		summary.TotalExpenseOut = summary.TotalExpenseOut.Add(delta)
	}
	summary.GeneratedAt = now()
	if err := tx.WithContext(ctx).Save(summary).Error; err != nil {
		return fmt.Errorf("save summary %d-%02d: %w", year, month, err)
	}
	return RecalculateBalances(ctx, tx, rtID)
}

func getOrCreateSummary(ctx context.Context, tx *gorm.DB, rtID uuid.UUID, year, month int) (*models.MonthlyCashSummary, error) {
	var s models.MonthlyCashSummary
	err := tx.WithContext(ctx).
		Where("rt_id = ? AND year = ? AND month = ?", rtID, year, month).
		First(&s).Error
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load summary %d-%02d: %w", year, month, err)
	}
	s = models.MonthlyCashSummary{
		RtID:                rtID,
		Year:                year,
		Month:               month,
		TotalContributionIn: decimal.Zero,
		TotalExpenseOut:     decimal.Zero,
		BalanceEnd:          decimal.Zero,
		GeneratedAt:         now(),
	}
	if err := tx.WithContext(ctx).Create(&s).Error; err != nil {
		return nil, fmt.Errorf("create summary %d-%02d: %w", year, month, err)
	}
	return &s, nil
}

// RecalculateBalances rewrites BalanceEnd of every summary of the RT.
func RecalculateBalances(ctx context.Context, tx *gorm.DB, rtID uuid.UUID) error {
	var rows []models.MonthlyCashSummary
	if err := tx.WithContext(ctx).Where("rt_id = ?", rtID).Order("year, month").Find(&rows).Error; err != nil {
		return fmt.Errorf("load summaries: %w", err)
	}
	ApplyRunningBalances(rows)
	ts := now()
	for _, r := range rows {
		if err := tx.WithContext(ctx).Model(&models.MonthlyCashSummary{}).
			Where("summary_id = ?", r.SummaryID).
			Updates(map[string]any{"balance_end": r.BalanceEnd, "generated_at": ts}).Error; err != nil {
			return fmt.Errorf("update balance %d-%02d: %w", r.Year, r.Month, err)
		}
	}
	return nil
}

// ApplyRunningBalances sorts rows by (Year, Month) and sets each BalanceEnd
// to the cumulative in minus out up to and including that month.
func ApplyRunningBalances(rows []models.MonthlyCashSummary) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Year != rows[j].Year {
			return rows[i].Year < rows[j].Year
		}
		return rows[i].Month < rows[j].Month
	})
	running := decimal.Zero
	for i := range rows {
		running = running.Add(rows[i].TotalContributionIn).Sub(rows[i].TotalExpenseOut)
		rows[i].BalanceEnd = running
	}
}

// BuildSummaries derives the monthly summaries of an RT from its source rows:
// approved contributions count in their payment month, active expenses in
// their expense month. Other rows are ignored.
func BuildSummaries(rtID uuid.UUID, contributions []models.Contribution, expenses []models.CashExpense) []models.MonthlyCashSummary {
	type key struct{ y, m int }
	byMonth := map[key]*models.MonthlyCashSummary{}
	get := func(t time.Time) *models.MonthlyCashSummary {
		y, m := MonthOf(t)
		k := key{y, m}
		if s, ok := byMonth[k]; ok {
			return s
		}
		s := &models.MonthlyCashSummary{
			RtID:                rtID,
			Year:                y,
			Month:               m,
			TotalContributionIn: decimal.Zero,
			TotalExpenseOut:     decimal.Zero,
			GeneratedAt:         now(),
		}
		byMonth[k] = s
		return s
	}
	for _, c := range contributions {
		if c.Status != models.ContributionApproved {
			continue
		}
		s := get(c.PaymentDate)
		s.TotalContributionIn = s.TotalContributionIn.Add(c.AmountPaid)
	}
	for _, e := range expenses {
		if !e.IsActive {
			continue
		}
		s := get(e.ExpenseDate)
		s.TotalExpenseOut = s.TotalExpenseOut.Add(e.Amount)
	}
	rows := make([]models.MonthlyCashSummary, 0, len(byMonth))
	for _, s := range byMonth {
		rows = append(rows, *s)
	}
	ApplyRunningBalances(rows)
	return rows
}

// Rebuild replaces the RT's summaries with ones derived from its approved
// contributions and active expenses.
func Rebuild(ctx context.Context, tx *gorm.DB, rtID uuid.UUID) ([]models.MonthlyCashSummary, error) {
	var contributions []models.Contribution
	if err := tx.WithContext(ctx).
		Where("rt_id = ? AND status = ?", rtID, models.ContributionApproved).
		Find(&contributions).Error; err != nil {
		return nil, fmt.Errorf("load contributions: %w", err)
	}
	var expenses []models.CashExpense
	if err := tx.WithContext(ctx).
		Where("rt_id = ? AND is_active = ?", rtID, true).
		Find(&expenses).Error; err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	rows := BuildSummaries(rtID, contributions, expenses)
	if err := tx.WithContext(ctx).Where("rt_id = ?", rtID).Delete(&models.MonthlyCashSummary{}).Error; err != nil {
		return nil, fmt.Errorf("clear summaries: %w", err)
	}
	if len(rows) > 0 {
		if err := tx.WithContext(ctx).Create(&rows).Error; err != nil {
			return nil, fmt.Errorf("write summaries: %w", err)
		}
	}
	return rows, nil
}

// YearView is the cash summary response: one month and the whole year.
type YearView struct {
	Monthly models.MonthlyCashSummary
	Yearly  YearTotals
}

// YearTotals aggregates the summaries of a single year.
type YearTotals struct {
	Year                int
	TotalContributionIn decimal.Decimal
	TotalExpenseOut     decimal.Decimal
	BalanceEnd          decimal.Decimal
}

// Summarize builds the view for year (and month when month > 0) from all of an
// RT's summaries. A month without a row reports zero flows and the balance
// carried from the latest earlier month. Without month, the latest month of the
// year that has a row is used, falling back to January.
func Summarize(rows []models.MonthlyCashSummary, year, month int) YearView {
	sorted := append([]models.MonthlyCashSummary(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Year != sorted[j].Year {
			return sorted[i].Year < sorted[j].Year
		}
		return sorted[i].Month < sorted[j].Month
	})

	carried := func(y, m int) decimal.Decimal {
		bal := decimal.Zero
		for _, r := range sorted {
			if r.Year > y || (r.Year == y && r.Month > m) {
				break
			}
			bal = r.BalanceEnd
		}
		return bal
	}

	yearly := YearTotals{Year: year, TotalContributionIn: decimal.Zero, TotalExpenseOut: decimal.Zero}
	lastMonth := 0
	for _, r := range sorted {
		if r.Year != year {
			continue
		}
		yearly.TotalContributionIn = yearly.TotalContributionIn.Add(r.TotalContributionIn)
		yearly.TotalExpenseOut = yearly.TotalExpenseOut.Add(r.TotalExpenseOut)
		lastMonth = r.Month
	}
	yearly.BalanceEnd = carried(year, 12)

	if month <= 0 {
		month = lastMonth
		if month == 0 {
			month = 1
		}
	}
	monthly := models.MonthlyCashSummary{
		Year:                year,
		Month:               month,
		TotalContributionIn: decimal.Zero,
		TotalExpenseOut:     decimal.Zero,
		BalanceEnd:          carried(year, month),
	}
	for _, r := range sorted {
		if r.Year == year && r.Month == month {
			monthly = r
			break
		}
	}
	return YearView{Monthly: monthly, Yearly: yearly}
}
