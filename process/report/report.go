package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mastermind064/RT06/models"
	"github.com/mastermind064/RT06/pkg/cashbook"
	"github.com/mastermind064/RT06/pkg/rupiah"
)

// Totals is the cash movement of one RT in one month, counted from the source
// rows rather than from monthly_cash_summary.
type Totals struct {
	Contributions     int64
	ContributionTotal decimal.Decimal
	Expenses          int64
	ExpenseTotal      decimal.Decimal
	// Summary is the stored summary row for the month, nil when none exists.
	Summary *models.MonthlyCashSummary
}

// Compute counts approved contributions by payment date and active expenses by
// expense date within month (YYYY-MM, UTC).
func Compute(ctx context.Context, gdb *gorm.DB, rtID uuid.UUID, month string) (Totals, time.Time, time.Time, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return Totals{}, time.Time{}, time.Time{}, fmt.Errorf("invalid month format, expected YYYY-MM: %w", err)
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var contributions []models.Contribution
	if err := gdb.WithContext(ctx).
		Where("rt_id = ? AND status = ? AND payment_date >= ? AND payment_date < ?", rtID, models.ContributionApproved, start, end).
		Find(&contributions).Error; err != nil {
		return Totals{}, start, end, fmt.Errorf("query contributions: %w", err)
	}
	var expenses []models.CashExpense
	if err := gdb.WithContext(ctx).
		Where("rt_id = ? AND is_active = ? AND expense_date >= ? AND expense_date < ?", rtID, true, start, end).
		Find(&expenses).Error; err != nil {
		return Totals{}, start, end, fmt.Errorf("query expenses: %w", err)
	}
	out := Totals{
		Contributions:     int64(len(contributions)),
		ContributionTotal: decimal.Zero,
		Expenses:          int64(len(expenses)),
		ExpenseTotal:      decimal.Zero,
	}
	for _, c := range contributions {
		out.ContributionTotal = out.ContributionTotal.Add(c.AmountPaid)
	}
	for _, e := range expenses {
		out.ExpenseTotal = out.ExpenseTotal.Add(e.Amount)
	}

	year, m := cashbook.MonthOf(start)
	var s models.MonthlyCashSummary
	res := gdb.WithContext(ctx).Where("rt_id = ? AND year = ? AND month = ?", rtID, year, m).Limit(1).Find(&s)
	if res.Error != nil {
		return out, start, end, fmt.Errorf("query summary: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		out.Summary = &s
	}
	return out, start, end, nil
}

// Run prints the month report of the RT to w and, with list, every counted row.
func Run(ctx context.Context, w io.Writer, gdb *gorm.DB, rtID uuid.UUID, month string, list bool) error {
	totals, start, end, err := Compute(ctx, gdb, rtID, month)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Report for rt=%s month=%s (UTC):\n", rtID, month)
	fmt.Fprintf(w, "  contributions=%d total=%s\n", totals.Contributions, rupiah.Format(totals.ContributionTotal))
	fmt.Fprintf(w, "  expenses=%d total=%s\n", totals.Expenses, rupiah.Format(totals.ExpenseTotal))
	if s := totals.Summary; s != nil {
		fmt.Fprintf(w, "  summary in=%s out=%s balance_end=%s\n",
			rupiah.Format(s.TotalContributionIn), rupiah.Format(s.TotalExpenseOut), rupiah.Format(s.BalanceEnd))
		if !s.TotalContributionIn.Equal(totals.ContributionTotal) || !s.TotalExpenseOut.Equal(totals.ExpenseTotal) {
			fmt.Fprintln(w, "  WARNING summary differs from source rows; run `rtctl recalc`")
		}
	} else {
		fmt.Fprintln(w, "  summary: none")
	}

	if !list {
		return nil
	}
	var contributions []models.Contribution
	if err := gdb.WithContext(ctx).
		Where("rt_id = ? AND status = ? AND payment_date >= ? AND payment_date < ?", rtID, models.ContributionApproved, start, end).
		Order("payment_date").Find(&contributions).Error; err != nil {
		return fmt.Errorf("fetch contributions: %w", err)
	}
	for _, c := range contributions {
		fmt.Fprintf(w, "IN|%s|%s|%s|%s-%s\n", c.ContributionID, c.PaymentDate.Format(time.RFC3339),
			rupiah.Format(c.AmountPaid), c.PeriodStart.Format("2006-01"), c.PeriodEnd.Format("2006-01"))
	}
	var expenses []models.CashExpense
	if err := gdb.WithContext(ctx).
		Where("rt_id = ? AND is_active = ? AND expense_date >= ? AND expense_date < ?", rtID, true, start, end).
		Order("expense_date").Find(&expenses).Error; err != nil {
		return fmt.Errorf("fetch expenses: %w", err)
	}
	for _, e := range expenses {
		fmt.Fprintf(w, "OUT|%s|%s|%s|%s\n", e.ExpenseID, e.ExpenseDate.Format(time.RFC3339), rupiah.Format(e.Amount), e.Description)
	}
	return nil
}
