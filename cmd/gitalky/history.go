package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/d4ncer/gitalky/internal/auditlog"
	"github.com/d4ncer/gitalky/internal/config"
	"github.com/d4ncer/gitalky/internal/formatter"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent entries from the audit log",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of most recent entries to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	records, err := auditlog.ReadRecords(config.AuditLogPath())
	if err != nil {
		return &startupError{code: 4, err: fmt.Errorf("read audit log: %w", err)}
	}
	if len(records) == 0 {
		fmt.Println("No audit log entries found")
		return nil
	}

	if historyLimit > 0 && len(records) > historyLimit {
		records = records[len(records)-historyLimit:]
	}

	tbl := formatter.NewTable(os.Stdout, "TIME", "KIND", "REPO", "RUN_ID", "DETAIL")
	tbl.SetMaxWidth(2, 30)
	tbl.SetMaxWidth(4, 60)

	for _, r := range records {
		tbl.AddRow(r.Timestamp, r.Kind, r.RepoPath, r.RunID, detailFor(r))
	}
	return tbl.Render()
}

func detailFor(r auditlog.Record) string {
	if r.Kind == "EXEC" {
		return fmt.Sprintf("command=%s exit=%d", r.Command, r.ExitCode)
	}
	return fmt.Sprintf("query=%q reason=%q", r.Query, r.Reason)
}
