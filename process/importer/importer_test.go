package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mastermind064/RT06/models"
	"github.com/mastermind064/RT06/pkg/accounts"
	"github.com/mastermind064/RT06/pkg/config"
	"github.com/mastermind064/RT06/pkg/database"
)

func setup(t *testing.T) (*gorm.DB, *models.Rt, string) {
	t.Helper()
	gdb, err := database.Open(config.Config{DBDriver: "sqlite", DBDSN: ":memory:", DBAutoMigrate: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rt, _, err := accounts.CreateRt(context.Background(), gdb, accounts.RtInput{
		RtNumber: "03", RwNumber: "04", VillageName: "Sukasari", SubdistrictName: "Bogor Timur",
		CityName: "Bogor", ProvinceName: "Jawa Barat",
	}, "bendahara", "rahasia1")
	if err != nil {
		t.Fatalf("create rt: %v", err)
	}
	return gdb, rt, t.TempDir()
}

func writeLedger(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanBooksLedger(t *testing.T) {
	gdb, rt, dir := setup(t)
	writeLedger(t, dir, "februari.yaml", fmt.Sprintf(`rt_id: %s
recorded_by: bendahara
expenses:
  - date: 2025-02-05
    description: Kebersihan selokan
    amount: Rp 50.000
  - date: 2025-02-20
    description: Lampu pos ronda
    amount: 12500,50
`, rt.RtID))
	writeLedger(t, dir, "notes.txt", "ignored")

	im := &Importer{DB: gdb, Dir: dir, Workers: 2}
	st := im.Scan(context.Background())
	if st.Processed != 1 || st.Failed != 0 {
		t.Fatalf("stats = %+v", st)
	}
	if _, err := os.Stat(filepath.Join(dir, doneDir, "februari.yaml")); err != nil {
		t.Fatalf("ledger not moved to done: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Fatalf("non-ledger file touched: %v", err)
	}

	var expenses []models.CashExpense
	if err := gdb.Where("rt_id = ?", rt.RtID).Order("expense_date").Find(&expenses).Error; err != nil {
		t.Fatal(err)
	}
	if len(expenses) != 2 || !expenses[1].Amount.Equal(decimal.RequireFromString("12500.5")) {
		t.Fatalf("expenses = %+v", expenses)
	}
	var s models.MonthlyCashSummary
	if err := gdb.Where("rt_id = ? AND year = ? AND month = ?", rt.RtID, 2025, 2).First(&s).Error; err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !s.TotalExpenseOut.Equal(decimal.RequireFromString("62500.5")) {
		t.Fatalf("expense out = %s", s.TotalExpenseOut)
	}
}

func TestBadLedgerRollsBack(t *testing.T) {
	gdb, rt, dir := setup(t)
	// the second entry is invalid, so the first one must not be booked either
	writeLedger(t, dir, "maret.yml", fmt.Sprintf(`rt_id: %s
recorded_by: bendahara
expenses:
  - date: 2025-03-01
    description: Sapu
    amount: 20000
  - date: 2025-03-02
    description: ""
    amount: 10000
`, rt.RtID))
	writeLedger(t, dir, "orang.yaml", fmt.Sprintf("rt_id: %s\nrecorded_by: nobody\nexpenses:\n  - date: 2025-03-01\n    description: x\n    amount: 1\n", rt.RtID))

	im := &Importer{DB: gdb, Dir: dir, Workers: 1}
	st := im.Scan(context.Background())
	if st.Failed != 2 || st.Processed != 0 {
		t.Fatalf("stats = %+v", st)
	}
	var n int64
	gdb.Model(&models.CashExpense{}).Count(&n)
	if n != 0 {
		t.Fatalf("expenses booked from failed ledgers: %d", n)
	}
	note, err := os.ReadFile(filepath.Join(dir, failedDir, "orang.yaml.err"))
	if err != nil {
		t.Fatalf("missing error note: %v", err)
	}
	if !strings.Contains(string(note), "nobody") {
		t.Fatalf("error note = %q", note)
	}
	if len(ListLedgers(dir)) != 0 {
		t.Fatal("failed ledgers left in the drop folder")
	}
}

func TestLedgerInputs(t *testing.T) {
	l := Ledger{RtID: "not-a-uuid", RecordedBy: "x"}
	if _, _, err := l.Inputs(); err == nil {
		t.Fatal("expected rt_id error")
	}
	l = Ledger{RtID: "6f1c2f9e-5b7a-4c1e-9d55-0c3b3c1c2a10", RecordedBy: "x", Expenses: []LedgerEntry{{Date: "05/02/2025", Description: "a", Amount: "1"}}}
	if _, _, err := l.Inputs(); err == nil || !strings.Contains(err.Error(), "expenses[0].date") {
		t.Fatalf("err = %v", err)
	}
}

func TestWatchBooksDroppedLedger(t *testing.T) {
	gdb, rt, dir := setup(t)
	im := &Importer{DB: gdb, Dir: dir, Workers: 1}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- im.Watch(ctx) }()

	// give the watcher time to register the directory
	time.Sleep(200 * time.Millisecond)
	writeLedger(t, dir, "april.yaml", fmt.Sprintf("rt_id: %s\nrecorded_by: bendahara\nexpenses:\n  - date: 2025-04-01\n    description: Cat pos\n    amount: 75000\n", rt.RtID))

	moved := filepath.Join(dir, doneDir, "april.yaml")
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(moved); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("dropped ledger was not booked")
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("watch: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not return after cancel")
	}
	var n int64
	gdb.Model(&models.CashExpense{}).Where("rt_id = ?", rt.RtID).Count(&n)
	if n != 1 {
		t.Fatalf("expenses = %d, want 1", n)
	}
}

func TestWatchReturnsOnCancelledContext(t *testing.T) {
	gdb, _, dir := setup(t)
	writeLedger(t, dir, "mei.yaml", "rt_id: x\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- (&Importer{DB: gdb, Dir: dir, Workers: 1}).Watch(ctx) }()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("watch: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch blocked on a cancelled context")
	}
}
