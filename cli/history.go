package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var historyLimit int

// ErrNoStore is returned by history when no storage driver is configured.
var ErrNoStore = errors.New("history requires STORAGE_DRIVER=postgres or sqlite")

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent searches",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if a.store == nil {
		return ErrNoStore
	}

	runs, err := a.store.RecentRuns(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No searches recorded yet.")
		return nil
	}

	for _, run := range runs {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %-30q %3d found  %s\n", run.CreatedAt.Local().Format("2006-01-02 15:04"), run.Query, run.TotalFound, run.ID)
		for i, r := range run.Results {
			if i == 3 {
				fmt.Fprintf(cmd.OutOrStdout(), "    ... %d more\n", len(run.Results)-3)
				break
			}
			fmt.Fprintf(cmd.OutOrStdout(), "    %d. %-10s %10.2f  %s\n", i+1, r.Source, r.Price, truncateTitle(r.Title, 50))
		}
	}
	return nil
}

func truncateTitle(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
