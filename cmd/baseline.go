package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpaulson/sqlsentinel/internal/baseline"
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Inspect and manage the regression/workload baseline history store",
}

var baselineShowCmd = &cobra.Command{
	Use:          "show <query-hash-or-sql>",
	Short:        "Show the recorded history for a query hash",
	SilenceUsage: true,
	Args:         cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		storeDir, _ := cmd.Flags().GetString("store-dir")
		store, err := baseline.NewFileStore(storeDir)
		if err != nil {
			return fmt.Errorf("opening baseline store: %w", err)
		}

		hash := args[0]
		if looksLikeSQL(hash) {
			hash = queryHash(hash)
		}

		history, err := store.Load(hash)
		if err != nil {
			return fmt.Errorf("loading history for %s: %w", hash, err)
		}
		if len(history) == 0 {
			fmt.Printf("No baseline history recorded for %s\n", hash)
			return nil
		}

		fmt.Printf("Baseline history for %s (%d snapshots)\n\n", hash, len(history))
		fmt.Printf("%-20s %10s %12s %14s %10s\n", "TIMESTAMP", "SCORE", "EXEC MS", "ROWS EXAM", "COLD")
		for _, snap := range history {
			ts := time.Unix(snap.Timestamp, 0).UTC().Format(time.RFC3339)
			fmt.Printf("%-20s %10.1f %12.2f %14d %10v\n", ts, snap.CompositeScore, snap.ExecutionTimeMs, snap.RowsExamined, snap.IsColdCache)
		}
		return nil
	},
}

var baselinePruneCmd = &cobra.Command{
	Use:          "prune",
	Short:        "Delete baseline snapshots older than --max-age-days",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		storeDir, _ := cmd.Flags().GetString("store-dir")
		maxAgeDays, _ := cmd.Flags().GetInt("max-age-days")

		store, err := baseline.NewFileStore(storeDir)
		if err != nil {
			return fmt.Errorf("opening baseline store: %w", err)
		}
		if err := store.Prune(maxAgeDays, time.Now().Unix()); err != nil {
			return fmt.Errorf("pruning baseline store: %w", err)
		}
		fmt.Printf("Pruned baseline snapshots older than %d days from %s\n", maxAgeDays, storeDir)
		return nil
	},
}

func looksLikeSQL(s string) bool {
	for _, r := range s {
		if r == ' ' || r == '(' || r == ')' {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(baselineCmd)
	baselineCmd.AddCommand(baselineShowCmd)
	baselineCmd.AddCommand(baselinePruneCmd)

	baselineCmd.PersistentFlags().String("store-dir", defaultStoreDir(), "Directory for the baseline history store")
	baselinePruneCmd.Flags().Int("max-age-days", 90, "Delete snapshots older than this many days")
}
