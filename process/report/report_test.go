package report

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mastermind064/RT06/models"
	"github.com/mastermind064/RT06/pkg/accounts"
	"github.com/mastermind064/RT06/pkg/cashbook"
	"github.com/mastermind064/RT06/pkg/config"
	"github.com/mastermind064/RT06/pkg/database"
)

func TestRunReportsMonth(t *testing.T) {
	ctx := context.Background()
	gdb, err := database.Open(config.Config{DBDriver: "sqlite", DBDSN: ":memory:", DBAutoMigrate: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rt, admin, err := accounts.CreateRt(ctx, gdb, accounts.RtInput{
		RtNumber: "06", RwNumber: "01", VillageName: "Sukamaju", SubdistrictName: "Cibinong",
		CityName: "Bogor", ProvinceName: "Jawa Barat",
	}, "admin06", "rahasia1")
	if err != nil {
		t.Fatalf("create rt: %v", err)
	}
	res := models.Resident{RtID: rt.RtID, NationalIDNumber: "3201", FullName: "Budi", Gender: "L", Blok: "A1", PhoneNumber: "0812", ApprovalStatus: models.ApprovalApproved}
	if err := gdb.Create(&res).Error; err != nil {
		t.Fatalf("resident: %v", err)
	}
	paid := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	amount := decimal.NewFromInt(150000)
	contrib := models.Contribution{
		RtID: rt.RtID, ResidentID: res.ResidentID, PeriodStart: paid, PeriodEnd: paid,
		AmountPaid: amount, PaymentDate: paid, Status: models.ContributionApproved,
	}
	if err := gdb.Create(&contrib).Error; err != nil {
		t.Fatalf("contribution: %v", err)
	}
	if err := cashbook.AdjustContribution(ctx, gdb, rt.RtID, paid, amount); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if _, err := cashbook.RecordExpense(ctx, gdb, rt.RtID, admin.UserID, cashbook.ExpenseInput{
		ExpenseDate: paid.AddDate(0, 0, 10), Description: "Lampu jalan", Amount: decimal.NewFromInt(25000), IsActive: true,
	}); err != nil {
		t.Fatalf("expense: %v", err)
	}

	var out bytes.Buffer
	if err := Run(ctx, &out, gdb, rt.RtID, "2025-03", true); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	for _, want := range []string{
		"contributions=1 total=Rp 150.000",
		"expenses=1 total=Rp 25.000",
		"balance_end=Rp 125.000",
		"OUT|",
		"Lampu jalan",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "WARNING") {
		t.Errorf("unexpected drift warning:\n%s", got)
	}

	if _, _, _, err := Compute(ctx, gdb, rt.RtID, "03-2025"); err == nil {
		t.Fatal("expected error for malformed month")
	}
}
