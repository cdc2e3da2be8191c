// Package cashbook keeps the RT cash books: the append-only event log, the
// monthly cash summaries with their running balances, and the expense
// mutations that feed them.
//
// Every function takes the *gorm.DB it should write through. Callers pass the
// transaction of the request so that a row change, its events and the
// summary adjustment commit together.
package cashbook

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when the addressed row does not exist in the RT.
	ErrNotFound = errors.New("not found")
	// ErrInvalidExpense is wrapped by expense validation failures.
	ErrInvalidExpense = errors.New("invalid expense")
)

// now is replaced in tests.
var now = func() time.Time { return time.Now().UTC() }

// MonthOf returns the calendar (year, month) of t in UTC.
func MonthOf(t time.Time) (int, int) {
	u := t.UTC()
	return u.Year(), int(u.Month())
}
