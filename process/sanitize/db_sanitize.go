package sanitize

import (
	"context"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mastermind064/RT06/pkg/database"
)

// Options controls which tables are wiped and whether anything happens at all.
type Options struct {
	// Tables to empty; empty means every application table.
	Tables []string
	DryRun bool
	Yes    bool
}

var nameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Run empties the selected tables. It returns the tables that exist and were
// (or, in dry-run, would be) emptied, in children-first order.
func Run(ctx context.Context, w io.Writer, gdb *gorm.DB, opts Options) ([]string, error) {
	known := database.TableNames(gdb)
	wanted := known
	if len(opts.Tables) > 0 {
		requested := map[string]bool{}
		for _, p := range opts.Tables {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if !nameRe.MatchString(p) {
				log.Printf("warning: skipping invalid table name '%s'", p)
				continue
			}
			requested[p] = true
		}
		// keep the children-first order of known tables
		wanted = nil
		for _, t := range known {
			if requested[t] {
				wanted = append(wanted, t)
				delete(requested, t)
			}
		}
		for t := range requested {
			log.Printf("info: %s is not an application table, skipping", t)
		}
	}

	existing := []string{}
	for _, t := range wanted {
		if gdb.Migrator().HasTable(t) {
			existing = append(existing, t)
		} else {
			log.Printf("info: table %s not found, skipping", t)
		}
	}
	if len(existing) == 0 {
		fmt.Fprintln(w, "no requested tables present in the database; nothing to do")
		return nil, nil
	}

	fmt.Fprintln(w, "Tables considered for truncation:")
	for _, t := range existing {
		fmt.Fprintf(w, " - %s\n", t)
	}
	if opts.DryRun {
		fmt.Fprintln(w, "dry-run enabled; no changes will be made. Use --dry-run=false --yes to execute.")
		return existing, nil
	}
	if !opts.Yes {
		fmt.Fprintln(w, "Destructive operation. Pass --yes to confirm execution. Aborting.")
		return existing, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	tx := gdb.WithContext(ctx)
	if gdb.Dialector.Name() == "postgres" {
		quoted := make([]string, 0, len(existing))
		for _, t := range existing {
			quoted = append(quoted, fmt.Sprintf("\"%s\"", t))
		}
		stmt := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(quoted, ", "))
		log.Printf("Executing: %s", stmt)
		if err := tx.Exec(stmt).Error; err != nil {
			return existing, fmt.Errorf("truncate failed: %w", err)
		}
	} else {
		err := tx.Transaction(func(tx *gorm.DB) error {
			for _, t := range existing {
				if err := tx.Exec(fmt.Sprintf("DELETE FROM \"%s\"", t)).Error; err != nil {
					return fmt.Errorf("delete from %s: %w", t, err)
				}
			}
			return nil
		})
		if err != nil {
			return existing, err
		}
	}
	fmt.Fprintln(w, "Truncate completed.")
	return existing, nil
}
