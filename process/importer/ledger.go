package importer

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/mastermind064/RT06/pkg/cashbook"
	"github.com/mastermind064/RT06/pkg/rupiah"
)

// Ledger is an expense ledger dropped into the import folder, e.g.
//
//	rt_id: 6f1c...
//	recorded_by: admin06
//	expenses:
//	  - date: 2025-02-05
//	    description: Kebersihan selokan
//	    amount: Rp 50.000
type Ledger struct {
	RtID       string        `yaml:"rt_id"`
	RecordedBy string        `yaml:"recorded_by"`
	Expenses   []LedgerEntry `yaml:"expenses"`
}

// LedgerEntry is one expense line. Amount accepts the same notations as the
// contribution form ("50000", "Rp 50.000", "50.000,00").
type LedgerEntry struct {
	Date        string `yaml:"date"`
	Description string `yaml:"description"`
	Amount      string `yaml:"amount"`
}

// LoadLedger reads and decodes the ledger at path.
func LoadLedger(path string) (*Ledger, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var l Ledger
	if err := yaml.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &l, nil
}

// Inputs validates the ledger header and converts the entries.
func (l *Ledger) Inputs() (uuid.UUID, []cashbook.ExpenseInput, error) {
	rtID, err := uuid.Parse(strings.TrimSpace(l.RtID))
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("rt_id: %w", err)
	}
	if strings.TrimSpace(l.RecordedBy) == "" {
		return uuid.Nil, nil, fmt.Errorf("recorded_by is required")
	}
	if len(l.Expenses) == 0 {
		return uuid.Nil, nil, fmt.Errorf("ledger has no expenses")
	}
	out := make([]cashbook.ExpenseInput, 0, len(l.Expenses))
	for i, e := range l.Expenses {
		date, err := time.Parse("2006-01-02", strings.TrimSpace(e.Date))
		if err != nil {
			return uuid.Nil, nil, fmt.Errorf("expenses[%d].date: %w", i, err)
		}
		amount, err := rupiah.Parse(e.Amount)
		if err != nil {
			return uuid.Nil, nil, fmt.Errorf("expenses[%d].amount: %w", i, err)
		}
		out = append(out, cashbook.ExpenseInput{
			ExpenseDate: date,
			Description: e.Description,
			Amount:      amount.Round(2),
			IsActive:    true,
		})
	}
	return rtID, out, nil
}
