package cashbook

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mastermind064/RT06/models"
)

// MonthAmounts holds one amount per calendar month, index 0 being January.
type MonthAmounts [12]decimal.Decimal

// Total sums the twelve months.
func (m MonthAmounts) Total() decimal.Decimal {
	t := decimal.Zero
	for _, v := range m {
		t = t.Add(v)
	}
	return t
}

func (m *MonthAmounts) add(o MonthAmounts) {
	for i := range m {
		m[i] = m[i].Add(o[i])
	}
}

// fields renders M1..M12 and Total into dst.
func (m MonthAmounts) fields(dst map[string]any) {
	for i, v := range m {
		dst["M"+strconv.Itoa(i+1)] = v
	}
	dst["Total"] = m.Total()
}

// MonitoringRow is one resident line of the dues monitoring grid.
type MonitoringRow struct {
	ResidentID uuid.UUID
	FullName   string
	Blok       string
	Months     MonthAmounts
}

func (r MonitoringRow) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"ResidentId": r.ResidentID,
		"FullName":   r.FullName,
		"Blok":       r.Blok,
	}
	r.Months.fields(out)
	return json.Marshal(out)
}

// MonitoringFooter totals the grid column by column.
type MonitoringFooter struct {
	Months MonthAmounts
}

func (f MonitoringFooter) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	f.Months.fields(out)
	return json.Marshal(out)
}

// monthStart truncates t to the first day of its UTC month.
func monthStart(t time.Time) time.Time {
	y, m := MonthOf(t)
	return time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
}

// MonthShares splits c.AmountPaid evenly over the months from PeriodStart to
// PeriodEnd inclusive. Shares are truncated to cents and the remainder goes to
// the last month, so the shares always sum to the paid amount.
func MonthShares(c models.Contribution) map[time.Time]decimal.Decimal {
	start, end := monthStart(c.PeriodStart), monthStart(c.PeriodEnd)
	if end.Before(start) {
		end = start
	}
	var months []time.Time
	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		months = append(months, m)
	}
	share := c.AmountPaid.Div(decimal.NewFromInt(int64(len(months)))).Truncate(2)
	out := make(map[time.Time]decimal.Decimal, len(months))
	rest := c.AmountPaid
	for i, m := range months {
		if i == len(months)-1 {
			out[m] = rest
			break
		}
		out[m] = share
		rest = rest.Sub(share)
	}
	return out
}

// MonitoringGrid lays out the approved dues of year per resident, keeping the
// order of residents. The footer covers every row.
func MonitoringGrid(year int, residents []models.Resident, contributions []models.Contribution) ([]MonitoringRow, MonitoringFooter) {
	byResident := make(map[uuid.UUID]*MonthAmounts, len(residents))
	rows := make([]MonitoringRow, len(residents))
	for i, r := range residents {
		rows[i] = MonitoringRow{ResidentID: r.ResidentID, FullName: r.FullName, Blok: r.Blok}
		byResident[r.ResidentID] = &rows[i].Months
	}
	for _, c := range contributions {
		if c.Status != models.ContributionApproved {
			continue
		}
		months, ok := byResident[c.ResidentID]
		if !ok {
			continue
		}
		for m, amount := range MonthShares(c) {
			if m.Year() != year {
				continue
			}
			idx := int(m.Month()) - 1
			months[idx] = months[idx].Add(amount)
		}
	}
	var footer MonitoringFooter
	for i := range footer.Months {
		footer.Months[i] = decimal.Zero
	}
	for _, r := range rows {
		footer.Months.add(r.Months)
	}
	return rows, footer
}
