package cashbook

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mastermind064/RT06/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.AutoMigrate(&models.MonthlyCashSummary{}, &models.EventRecord{}, &models.CashExpense{}, &models.Contribution{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func loadSummaries(t *testing.T, db *gorm.DB, rtID uuid.UUID) []models.MonthlyCashSummary {
	t.Helper()
	var rows []models.MonthlyCashSummary
	if err := db.Where("rt_id = ?", rtID).Order("year, month").Find(&rows).Error; err != nil {
		t.Fatalf("load summaries: %v", err)
	}
	return rows
}

func TestMonthOfUsesUTC(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	y, m := MonthOf(time.Date(2025, time.March, 1, 3, 0, 0, 0, jakarta))
	if y != 2025 || m != 2 {
		t.Fatalf("expected 2025-02 got %d-%02d", y, m)
	}
}

func TestAppendEventVersions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	rtID, agg, user := uuid.New(), uuid.New(), uuid.New()

	for i := 1; i <= 3; i++ {
		rec, err := AppendEvent(ctx, db, Event{RtID: rtID, AggregateType: models.AggregateResident, AggregateID: agg, EventType: "Touched", Payload: map[string]int{"n": i}, CausedBy: user})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if rec.AggregateVersion != i {
			t.Fatalf("expected version %d got %d", i, rec.AggregateVersion)
		}
	}
	other, err := AppendEvent(ctx, db, Event{RtID: rtID, AggregateType: models.AggregateResident, AggregateID: uuid.New(), EventType: "Touched", CausedBy: user})
	if err != nil {
		t.Fatal(err)
	}
	if other.AggregateVersion != 1 {
		t.Fatalf("new aggregate should start at 1, got %d", other.AggregateVersion)
	}

	items, total, err := ListEvents(ctx, db, rtID, EventFilter{AggregateID: &agg, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("expected total 3 and 2 items, got %d and %d", total, len(items))
	}
	if items[0].AggregateVersion != 3 {
		t.Fatalf("expected newest first, got version %d", items[0].AggregateVersion)
	}
	var payload map[string]int
	if err := json.Unmarshal([]byte(items[0].EventPayload), &payload); err != nil || payload["n"] != 3 {
		t.Fatalf("unexpected payload %q err=%v", items[0].EventPayload, err)
	}
}

func TestApplyRunningBalances(t *testing.T) {
	rows := []models.MonthlyCashSummary{
		{Year: 2025, Month: 3, TotalContributionIn: dec("100"), TotalExpenseOut: dec("0")},
		{Year: 2024, Month: 12, TotalContributionIn: dec("50"), TotalExpenseOut: dec("20")},
		{Year: 2025, Month: 1, TotalContributionIn: dec("0"), TotalExpenseOut: dec("40")},
	}
	ApplyRunningBalances(rows)
	want := []string{"30", "-10", "90"}
	for i, w := range want {
		if !rows[i].BalanceEnd.Equal(dec(w)) {
			t.Fatalf("row %d (%d-%02d): expected %s got %s", i, rows[i].Year, rows[i].Month, w, rows[i].BalanceEnd)
		}
	}
}

func TestAdjustKeepsRunningBalance(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	rtID := uuid.New()

	steps := []struct {
		at      time.Time
		amount  string
		expense bool
	}{
		{day(2025, time.February, 10), "200000", false},
		{day(2025, time.January, 5), "150000", false},
		{day(2025, time.February, 20), "50000", true},
		{day(2025, time.March, 1), "25000.50", true},
	}
	for _, s := range steps {
		var err error
		if s.expense {
			err = AdjustExpense(ctx, db, rtID, s.at, dec(s.amount))
		} else {
			err = AdjustContribution(ctx, db, rtID, s.at, dec(s.amount))
		}
		if err != nil {
			t.Fatalf("adjust: %v", err)
		}
	}

	rows := loadSummaries(t, db, rtID)
	if len(rows) != 3 {
		t.Fatalf("expected 3 summaries got %d", len(rows))
	}
	want := []string{"150000", "300000", "274999.5"}
	for i, w := range want {
		if !rows[i].BalanceEnd.Equal(dec(w)) {
			t.Fatalf("month %d: expected balance %s got %s", rows[i].Month, w, rows[i].BalanceEnd)
		}
	}
	if !rows[1].TotalExpenseOut.Equal(dec("50000")) {
		t.Fatalf("february out: %s", rows[1].TotalExpenseOut)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	rtID, admin := uuid.New(), uuid.New()

	e, err := RecordExpense(ctx, db, rtID, admin, ExpenseInput{ExpenseDate: day(2025, time.April, 3), Description: " Lampu jalan ", Amount: dec("75000")})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if e.Description != "Lampu jalan" || !e.IsActive {
		t.Fatalf("unexpected expense %+v", e)
	}

	// move to May with a new amount
	if _, err := UpdateExpense(ctx, db, rtID, admin, e.ExpenseID, ExpenseInput{ExpenseDate: day(2025, time.May, 1), Description: "Lampu jalan", Amount: dec("80000"), IsActive: true}); err != nil {
		t.Fatalf("update: %v", err)
	}
	rows := loadSummaries(t, db, rtID)
	if len(rows) != 2 || !rows[0].TotalExpenseOut.IsZero() || !rows[1].TotalExpenseOut.Equal(dec("80000")) {
		t.Fatalf("unexpected summaries after update: %+v", rows)
	}

	changed, err := DeactivateExpense(ctx, db, rtID, admin, e.ExpenseID)
	if err != nil || !changed {
		t.Fatalf("deactivate: changed=%v err=%v", changed, err)
	}
	changed, err = DeactivateExpense(ctx, db, rtID, admin, e.ExpenseID)
	if err != nil || changed {
		t.Fatalf("second deactivate should be a no-op: changed=%v err=%v", changed, err)
	}
	rows = loadSummaries(t, db, rtID)
	if !rows[1].TotalExpenseOut.IsZero() || !rows[1].BalanceEnd.IsZero() {
		t.Fatalf("may should be empty again: %+v", rows[1])
	}

	items, total, err := ListEvents(ctx, db, rtID, EventFilter{AggregateType: models.AggregateCashflow})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Fatalf("expected 3 cashflow events got %d", total)
	}
	if items[0].EventType != "ExpenseDeactivated" || items[2].EventType != "ExpenseRecorded" {
		t.Fatalf("unexpected event order: %s .. %s", items[0].EventType, items[2].EventType)
	}
}

func TestExpenseValidation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	cases := []ExpenseInput{
		{Description: "x", Amount: dec("1")},
		{ExpenseDate: day(2025, 1, 1), Description: "  ", Amount: dec("1")},
		{ExpenseDate: day(2025, 1, 1), Description: "x", Amount: dec("0")},
		{ExpenseDate: day(2025, 1, 1), Description: strings.Repeat("é", 256), Amount: dec("1")},
	}
	for i, in := range cases {
		if _, err := RecordExpense(ctx, db, uuid.New(), uuid.New(), in); !errors.Is(err, ErrInvalidExpense) {
			t.Fatalf("case %d: expected ErrInvalidExpense got %v", i, err)
		}
	}
	// the limit counts characters, not bytes
	if _, err := RecordExpense(ctx, db, uuid.New(), uuid.New(), ExpenseInput{ExpenseDate: day(2025, 1, 1), Description: strings.Repeat("é", 200), Amount: dec("1")}); err != nil {
		t.Fatalf("200 two-byte characters rejected: %v", err)
	}
	if _, err := UpdateExpense(ctx, db, uuid.New(), uuid.New(), uuid.New(), ExpenseInput{ExpenseDate: day(2025, 1, 1), Description: "x", Amount: dec("1")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}

func TestRebuildMatchesSources(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	rtID := uuid.New()
	contribs := []models.Contribution{
		{RtID: rtID, ResidentID: uuid.New(), PeriodStart: day(2025, 1, 1), PeriodEnd: day(2025, 1, 1), AmountPaid: dec("100000"), PaymentDate: day(2025, 1, 15), Status: models.ContributionApproved},
		{RtID: rtID, ResidentID: uuid.New(), PeriodStart: day(2025, 1, 1), PeriodEnd: day(2025, 1, 1), AmountPaid: dec("999"), PaymentDate: day(2025, 1, 16), Status: models.ContributionPending},
	}
	if err := db.Create(&contribs).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Create(&models.CashExpense{RtID: rtID, ExpenseDate: day(2025, 2, 2), Description: "Sapu", Amount: dec("30000"), IsActive: true}).Error; err != nil {
		t.Fatal(err)
	}
	// drifted row that must disappear
	if err := db.Create(&models.MonthlyCashSummary{RtID: rtID, Year: 2024, Month: 6, TotalContributionIn: dec("5"), TotalExpenseOut: dec("0"), BalanceEnd: dec("5")}).Error; err != nil {
		t.Fatal(err)
	}

	if _, err := Rebuild(ctx, db, rtID); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	rows := loadSummaries(t, db, rtID)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows got %d", len(rows))
	}
	if !rows[0].TotalContributionIn.Equal(dec("100000")) || !rows[1].BalanceEnd.Equal(dec("70000")) {
		t.Fatalf("unexpected rebuild result: %+v", rows)
	}
}

func TestSummarize(t *testing.T) {
	rows := []models.MonthlyCashSummary{
		{Year: 2024, Month: 11, TotalContributionIn: dec("40"), TotalExpenseOut: dec("0"), BalanceEnd: dec("40")},
		{Year: 2025, Month: 2, TotalContributionIn: dec("100"), TotalExpenseOut: dec("10"), BalanceEnd: dec("130")},
		{Year: 2025, Month: 4, TotalContributionIn: dec("0"), TotalExpenseOut: dec("30"), BalanceEnd: dec("100")},
	}

	v := Summarize(rows, 2025, 0)
	if v.Monthly.Month != 4 || !v.Monthly.BalanceEnd.Equal(dec("100")) {
		t.Fatalf("expected latest month 4, got %+v", v.Monthly)
	}
	if !v.Yearly.TotalContributionIn.Equal(dec("100")) || !v.Yearly.TotalExpenseOut.Equal(dec("40")) || !v.Yearly.BalanceEnd.Equal(dec("100")) {
		t.Fatalf("unexpected yearly %+v", v.Yearly)
	}

	v = Summarize(rows, 2025, 3)
	if !v.Monthly.TotalContributionIn.IsZero() || !v.Monthly.BalanceEnd.Equal(dec("130")) {
		t.Fatalf("missing month should carry balance 130, got %+v", v.Monthly)
	}

	v = Summarize(rows, 2025, 1)
	if !v.Monthly.BalanceEnd.Equal(dec("40")) {
		t.Fatalf("january should carry previous year balance, got %s", v.Monthly.BalanceEnd)
	}

	v = Summarize(nil, 2026, 0)
	if v.Monthly.Month != 1 || !v.Yearly.BalanceEnd.IsZero() {
		t.Fatalf("empty book: %+v", v)
	}
}
