package sanitize

import (
	"bytes"
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/mastermind064/RT06/models"
	"github.com/mastermind064/RT06/pkg/accounts"
	"github.com/mastermind064/RT06/pkg/config"
	"github.com/mastermind064/RT06/pkg/database"
)

func seeded(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := database.Open(config.Config{DBDriver: "sqlite", DBDSN: ":memory:", DBAutoMigrate: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, _, err := accounts.CreateRt(context.Background(), gdb, accounts.RtInput{
		RtNumber: "01", RwNumber: "02", VillageName: "Mekarsari", SubdistrictName: "Cimanggis",
		CityName: "Depok", ProvinceName: "Jawa Barat",
	}, "admin01", "rahasia1"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return gdb
}

func count(t *testing.T, gdb *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := gdb.Model(model).Count(&n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func TestDryRunKeepsRows(t *testing.T) {
	gdb := seeded(t)
	var out bytes.Buffer
	tables, err := Run(context.Background(), &out, gdb, Options{DryRun: true, Yes: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != len(database.Models()) {
		t.Fatalf("tables = %v", tables)
	}
	if count(t, gdb, &models.User{}) != 1 {
		t.Fatal("dry-run removed users")
	}
}

func TestRunRequiresYes(t *testing.T) {
	gdb := seeded(t)
	var out bytes.Buffer
	if _, err := Run(context.Background(), &out, gdb, Options{}); err != nil {
		t.Fatal(err)
	}
	if count(t, gdb, &models.Rt{}) != 1 {
		t.Fatal("rows removed without --yes")
	}
}

func TestRunSelectedTables(t *testing.T) {
	gdb := seeded(t)
	var out bytes.Buffer
	tables, err := Run(context.Background(), &out, gdb, Options{Tables: []string{"rt", "event_store", "users", "bad-name"}, Yes: true})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"event_store", "users", "rt"}
	if len(tables) != len(want) {
		t.Fatalf("tables = %v, want %v", tables, want)
	}
	for i := range want {
		if tables[i] != want[i] {
			t.Fatalf("tables = %v, want %v", tables, want)
		}
	}
	if count(t, gdb, &models.User{}) != 0 || count(t, gdb, &models.Rt{}) != 0 || count(t, gdb, &models.EventRecord{}) != 0 {
		t.Fatal("tables not emptied")
	}
}
