// Package importer ingests expense ledgers dropped into a folder. Each file is
// booked in one transaction and then moved to done/ or failed/, so a file is
// only ever processed once.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"gorm.io/gorm"

	"github.com/mastermind064/RT06/models"
	"github.com/mastermind064/RT06/pkg/cashbook"
)

const (
	doneDir   = "done"
	failedDir = "failed"
)

// Importer books ledgers found in Dir.
type Importer struct {
	DB      *gorm.DB
	Dir     string
	Workers int
	Verbose bool
}

// Stats counts the outcome of a scan.
type Stats struct {
	Processed int64
	Failed    int64
}

func (im *Importer) logV(format string, args ...any) {
	if im.Verbose {
		log.Printf(format, args...)
	}
}

func (im *Importer) workers() int {
	if im.Workers <= 0 {
		return runtime.NumCPU()
	}
	return im.Workers
}

func isLedger(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// ListLedgers returns the ledger file names waiting in dir, sorted.
func ListLedgers(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isLedger(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

// Scan processes every ledger currently in Dir with a worker pool.
func (im *Importer) Scan(ctx context.Context) Stats {
	files := ListLedgers(im.Dir)
	log.Printf("Scanning %d ledgers (workers=%d)", len(files), im.workers())
	ch := make(chan string, len(files))
	for _, f := range files {
		ch <- f
	}
	close(ch)
	return im.runWorkerPool(ctx, ch)
}

func (im *Importer) runWorkerPool(ctx context.Context, files <-chan string) Stats {
	var st Stats
	var wg sync.WaitGroup
	for i := 0; i < im.workers(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range files {
				if ctx.Err() != nil {
					return
				}
				if err := im.ProcessFile(ctx, name); err != nil {
					atomic.AddInt64(&st.Failed, 1)
					log.Printf("FAILED ledger %s: %v", name, err)
					continue
				}
				atomic.AddInt64(&st.Processed, 1)
			}
		}()
	}
	wg.Wait()
	return st
}

// ProcessFile books the ledger name (relative to Dir) and moves it to done/,
// or to failed/ together with a .err note when anything is wrong with it.
func (im *Importer) ProcessFile(ctx context.Context, name string) error {
	src := filepath.Join(im.Dir, name)
	n, err := im.book(ctx, src)
	if err != nil {
		if mvErr := moveTo(src, filepath.Join(im.Dir, failedDir), name); mvErr != nil {
			log.Printf("WARN failed to move %s to %s: %v", name, failedDir, mvErr)
		}
		note := filepath.Join(im.Dir, failedDir, name+".err")
		if wErr := os.WriteFile(note, []byte(err.Error()+"\n"), 0o644); wErr != nil {
			log.Printf("WARN failed to write %s: %v", note, wErr)
		}
		return err
	}
	if err := moveTo(src, filepath.Join(im.Dir, doneDir), name); err != nil {
		return fmt.Errorf("booked but not moved: %w", err)
	}
	log.Printf("LEDGER %s booked expenses=%d", name, n)
	return nil
}

// book records all entries of the ledger at path in a single transaction.
func (im *Importer) book(ctx context.Context, path string) (int, error) {
	l, err := LoadLedger(path)
	if err != nil {
		return 0, err
	}
	rtID, inputs, err := l.Inputs()
	if err != nil {
		return 0, err
	}
	err = im.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("rt_id = ? AND username = ?", rtID, strings.TrimSpace(l.RecordedBy)).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("recorded_by %q is not a user of rt %s", l.RecordedBy, rtID)
			}
			return err
		}
		if !user.IsAdmin() || !user.IsActive {
			return fmt.Errorf("recorded_by %q is not an active admin", l.RecordedBy)
		}
		for i, in := range inputs {
			e, err := cashbook.RecordExpense(ctx, tx, rtID, user.UserID, in)
			if err != nil {
				return fmt.Errorf("expenses[%d]: %w", i, err)
			}
			im.logV("expense %s %s %s", e.ExpenseID, e.ExpenseDate.Format("2006-01-02"), e.Amount)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(inputs), nil
}

// Watch processes ledgers as they appear in Dir until ctx is done. Files are
// picked up once they have been quiet for a short while so half-written
// ledgers are not read.
func (im *Importer) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(im.Dir); err != nil {
		return err
	}
	log.Printf("Watching %s (debounced) ...", im.Dir)

	fileCh := make(chan string, 256)
	done := make(chan Stats, 1)
	go func() { done <- im.runWorkerPool(ctx, fileCh) }()
	stop := func() error {
		close(fileCh)
		<-done
		return nil
	}

	pending := map[string]time.Time{}
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return stop()
		case ev, ok := <-w.Events:
			if !ok {
				return stop()
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				name := filepath.Base(ev.Name)
				if filepath.Dir(ev.Name) == filepath.Clean(im.Dir) && isLedger(name) {
					pending[name] = time.Now()
				}
			}
		case <-ticker.C:
			now := time.Now()
			for name, t := range pending {
				if now.Sub(t) <= 300*time.Millisecond {
					continue
				}
				// workers quit on cancellation, so the send must not outlive ctx
				select {
				case fileCh <- name:
					delete(pending, name)
				case <-ctx.Done():
					return stop()
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return stop()
			}
			log.Printf("watch error: %v", err)
		}
	}
}

// moveTo moves src into dir, replacing an older file of the same name. It
// attempts an atomic rename and falls back to copy+remove.
func moveTo(src, dir, name string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(dir, name)
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	return copyRemove(src, dst)
}

func copyRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
