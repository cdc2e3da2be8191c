package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/mastermind064/RT06/models"
	"github.com/mastermind064/RT06/pkg/cashbook"
	"github.com/mastermind064/RT06/pkg/rupiah"
	"github.com/mastermind064/RT06/process/importer"
	"github.com/mastermind064/RT06/process/report"
	"github.com/mastermind064/RT06/process/sanitize"
)

func reportCmd() *cobra.Command {
	var rtFlag, month string
	var list bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the cash movement of one month",
		RunE: func(cmd *cobra.Command, args []string) error {
			rtID, err := uuid.Parse(rtFlag)
			if err != nil {
				return fmt.Errorf("--rt: %w", err)
			}
			gdb, err := openDB()
			if err != nil {
				return err
			}
			return report.Run(cmd.Context(), cmd.OutOrStdout(), gdb, rtID, month, list)
		},
	}
	cmd.Flags().StringVar(&rtFlag, "rt", "", "RT id")
	cmd.Flags().StringVar(&month, "month", time.Now().UTC().Format("2006-01"), "month to report (YYYY-MM)")
	cmd.Flags().BoolVar(&list, "list", false, "list matching rows")
	_ = cmd.MarkFlagRequired("rt")
	return cmd
}

func recalcCmd() *cobra.Command {
	var rtFlag string
	cmd := &cobra.Command{
		Use:   "recalc",
		Short: "Rebuild monthly cash summaries from contributions and expenses",
		Long: `Rebuild monthly_cash_summary from approved contributions and active
expenses, then recompute running balances. Without --rt every RT is rebuilt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, err := openDB()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			var ids []uuid.UUID
			if rtFlag != "" {
				id, err := uuid.Parse(rtFlag)
				if err != nil {
					return fmt.Errorf("--rt: %w", err)
				}
				ids = append(ids, id)
			} else if err := gdb.WithContext(ctx).Model(&models.Rt{}).Order("created_at").Pluck("rt_id", &ids).Error; err != nil {
				return err
			}
			for _, id := range ids {
				var rows []models.MonthlyCashSummary
				err := gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
					var err error
					rows, err = cashbook.Rebuild(ctx, tx, id)
					return err
				})
				if err != nil {
					return fmt.Errorf("rebuild rt %s: %w", id, err)
				}
				balance := "Rp 0"
				if n := len(rows); n > 0 {
					balance = rupiah.Format(rows[n-1].BalanceEnd)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rt %s: %d months, balance %s\n", id, len(rows), balance)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rtFlag, "rt", "", "RT id (default: all)")
	return cmd
}

func sanitizeCmd() *cobra.Command {
	var opts sanitize.Options
	cmd := &cobra.Command{
		Use:   "sanitize",
		Short: "Empty application tables (destructive)",
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, err := openDB()
			if err != nil {
				return err
			}
			_, err = sanitize.Run(cmd.Context(), cmd.OutOrStdout(), gdb, opts)
			return err
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", true, "Don't perform destructive actions; show what would be done")
	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "Confirm destructive action (required to actually truncate)")
	cmd.Flags().StringSliceVar(&opts.Tables, "tables", nil, "Comma-separated list of tables to truncate (default all application tables)")
	return cmd
}

func importCmd() *cobra.Command {
	im := &importer.Importer{}
	var watch bool
	cmd := &cobra.Command{
		Use:   "import-watch",
		Short: "Book expense ledgers (YAML) dropped into a folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, err := openDB()
			if err != nil {
				return err
			}
			im.DB = gdb
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			st := im.Scan(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "processed=%d failed=%d\n", st.Processed, st.Failed)
			if !watch {
				return nil
			}
			return im.Watch(ctx)
		},
	}
	cmd.Flags().StringVar(&im.Dir, "dir", "imports", "directory to scan for ledgers")
	cmd.Flags().IntVar(&im.Workers, "workers", 0, "Worker pool size (default NumCPU)")
	cmd.Flags().BoolVar(&im.Verbose, "verbose", false, "Verbose per-expense logging")
	cmd.Flags().BoolVar(&watch, "watch", true, "keep watching the directory after the initial scan")
	return cmd
}
