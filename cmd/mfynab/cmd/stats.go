package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mfynab/mfynab/pkg/config"
	"github.com/mfynab/mfynab/pkg/db"
	"github.com/mfynab/mfynab/pkg/pathutil"
)

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display import statistics",
	Long: `Display statistics about transactions recorded in the local
import history.

Shows:
- Total number of submitted transactions
- Number of YNAB accounts imported into
- Per-account transaction counts
- Last sync timestamp

Example:
  mfynab stats --config mfynab.yml`,
	Run: runStats,
}

func runStats(cmd *cobra.Command, args []string) {
	slog.Info("Loading configuration")

	cfg, err := config.Load(cfgFile, envFile)
	exitOnError(err, "failed to load configuration")

	pathResolver := pathutil.New(pathutil.Config{DataDir: cfg.DataDir})

	dbPath := pathResolver.DatabasePath()
	slog.Debug("Opening database", "path", dbPath)

	conn, err := db.Open(dbPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	history := db.NewHistory(conn)

	stats, err := history.GetStats()
	exitOnError(err, "failed to get statistics")

	counts, err := history.CountByAccount()
	exitOnError(err, "failed to get per-account counts")

	fmt.Println("\n=== Import Statistics ===")
	fmt.Printf("Total transactions: %d\n", stats.TotalTransactions)
	fmt.Printf("Accounts:           %d\n", stats.TotalAccounts)

	if stats.LastSync.Valid {
		fmt.Printf("Last sync:          %s\n", stats.LastSync.String)
	} else {
		fmt.Printf("Last sync:          (never)\n")
	}

	if len(counts) > 0 {
		fmt.Println()
		for _, count := range counts {
			fmt.Printf("  %-30s %d\n", count.AccountName, count.Count)
		}
	}

	fmt.Println()
}
