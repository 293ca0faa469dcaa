package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	historyTarget string
	historyLimit  int
)

// newHistoryCmd lists past rank runs recorded in the run-history store,
// grounded on the teacher's status.go: same table-header/separator/
// fixed-width-row print style, applied to runs instead of provider sync
// status.
func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past rank runs",
		Long: `List previously completed mirrorjump rank invocations recorded in the
run-history database: when each ran, which target and entry country it
used, how many jumps it took, and the winning mirror.`,
		Example: `  mirrorjump history
  mirrorjump history --target archlinux
  mirrorjump history --limit 5`,
		RunE: historyRun,
	}

	cmd.Flags().StringVar(&historyTarget, "target", "", "show only runs for this target")
	cmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to show (0 for all)")

	return cmd
}

func historyRun(cmd *cobra.Command, args []string) error {
	if globalStore == nil {
		return fmt.Errorf("run-history store not initialized")
	}

	runs, err := globalStore.ListRuns(historyTarget, historyLimit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return nil
	}

	fmt.Println("Run History")
	fmt.Println("===========")
	fmt.Println("")
	fmt.Printf("%-20s %-10s %-8s %6s %8s %10s %-40s\n",
		"Started", "Target", "Country", "Jumps", "Results", "Speed", "Top Mirror")
	fmt.Println(strings.Repeat("-", 100))

	for _, run := range runs {
		fmt.Printf("%-20s %-10s %-8s %6d %8d %10s %-40s\n",
			run.StartedAt.Format("2006-01-02 15:04"),
			run.Target,
			run.EntryCountry,
			run.Jumps,
			run.ResultCount,
			formatSpeed(run.TopSpeedBps),
			run.TopMirrorURL,
		)
	}

	fmt.Println("")
	return nil
}

// formatSpeed formats a bytes-per-second value into human-readable form,
// adapted from the teacher's formatBytes (status.go) with a "/s" suffix.
func formatSpeed(bps float64) string {
	const unit = 1024.0
	if bps < unit {
		return fmt.Sprintf("%.0f B/s", bps)
	}

	div, exp := unit, 0
	for n := bps / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB/s", bps/div, "KMGTPE"[exp])
}
