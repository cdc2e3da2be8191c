package cashbook

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mastermind064/RT06/models"
)

func TestMonthSharesRemainderOnLastMonth(t *testing.T) {
	c := models.Contribution{PeriodStart: day(2025, time.November, 1), PeriodEnd: day(2026, time.January, 1), AmountPaid: dec("100000")}
	shares := MonthShares(c)
	if len(shares) != 3 {
		t.Fatalf("expected 3 months got %d", len(shares))
	}
	if !shares[day(2025, time.November, 1)].Equal(dec("33333.33")) {
		t.Fatalf("november share %s", shares[day(2025, time.November, 1)])
	}
	if !shares[day(2026, time.January, 1)].Equal(dec("33333.34")) {
		t.Fatalf("january share %s", shares[day(2026, time.January, 1)])
	}
}

func TestMonitoringGrid(t *testing.T) {
	a := models.Resident{ResidentID: uuid.New(), FullName: "Budi", Blok: "A1"}
	b := models.Resident{ResidentID: uuid.New(), FullName: "Sari", Blok: "B2"}
	contribs := []models.Contribution{
		{ResidentID: a.ResidentID, PeriodStart: day(2025, time.January, 1), PeriodEnd: day(2025, time.February, 1), AmountPaid: dec("200000"), Status: models.ContributionApproved},
		{ResidentID: a.ResidentID, PeriodStart: day(2024, time.December, 1), PeriodEnd: day(2025, time.January, 1), AmountPaid: dec("100000"), Status: models.ContributionApproved},
		{ResidentID: b.ResidentID, PeriodStart: day(2025, time.March, 1), PeriodEnd: day(2025, time.March, 1), AmountPaid: dec("100000"), Status: models.ContributionPending},
		{ResidentID: uuid.New(), PeriodStart: day(2025, time.March, 1), PeriodEnd: day(2025, time.March, 1), AmountPaid: dec("5"), Status: models.ContributionApproved},
	}

	rows, footer := MonitoringGrid(2025, []models.Resident{a, b}, contribs)
	if len(rows) != 2 || rows[0].Blok != "A1" {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if !rows[0].Months[0].Equal(dec("150000")) || !rows[0].Months[1].Equal(dec("100000")) {
		t.Fatalf("unexpected months for Budi: %v", rows[0].Months)
	}
	if !rows[0].Months.Total().Equal(dec("250000")) || !rows[1].Months.Total().IsZero() {
		t.Fatalf("unexpected totals %s / %s", rows[0].Months.Total(), rows[1].Months.Total())
	}
	if !footer.Months.Total().Equal(dec("250000")) {
		t.Fatalf("footer total %s", footer.Months.Total())
	}

	raw, err := json.Marshal(rows[0])
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	_ = json.Unmarshal(raw, &got)
	for _, k := range []string{"ResidentId", "FullName", "Blok", "M1", "M12", "Total"} {
		if _, ok := got[k]; !ok {
			t.Fatalf("missing key %s in %s", k, raw)
		}
	}
}
