package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/triage/pkg/triage/config"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recent moves",
	Long: `View the journal of classify and undo operations.

Every image triage moves is recorded with its source, destination and tag,
so moves can be traced after the session that made them is gone.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a specific move",
	Long:  `Display detailed information about a specific journal entry by its ID.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean up old journal entries",
	Long:  `Remove journal entries older than the retention period.`,
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// runHistory lists recent moves.
func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, err := getManifest(cfg)
	if err != nil {
		return err
	}

	entries, err := m.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(entries) == 0 {
		printInfo("No history entries found.")
		printInfo("Run 'triage [path]' to start sorting images.")
		return nil
	}

	fmt.Printf("\n%-30s  %-8s  %-16s  %-20s  %s\n", "ID", "TYPE", "TAG", "WHEN", "FILE")
	fmt.Println(strings.Repeat("-", 100))

	for _, entry := range entries {
		fmt.Printf("%-30s  %-8s  %-16s  %-20s  %s\n",
			truncateString(entry.ID, 30),
			entry.Operation,
			truncateString(entry.Tag, 16),
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.Source.Base(),
		)
	}

	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("\nShowing %d entries. Use --limit to see more.\n", len(entries))
	fmt.Println("Use 'triage history show <id>' for details on a specific entry.")

	return nil
}

// runHistoryShow displays details of a specific move.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, err := getManifest(cfg)
	if err != nil {
		return err
	}

	entry, err := m.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	fmt.Println("\nMove Details")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("ID:          %s\n", entry.ID)
	fmt.Printf("Timestamp:   %s\n", entry.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Operation:   %s\n", entry.Operation)
	fmt.Printf("Folder:      %s\n", entry.Root)
	fmt.Printf("Tag:         %s\n", entry.Tag)
	fmt.Printf("Source:      %s\n", entry.Source)
	fmt.Printf("Destination: %s\n", entry.Destination)

	return nil
}

// runHistoryClean removes old journal entries.
func runHistoryClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, err := getManifest(cfg)
	if err != nil {
		return err
	}

	retentionDays := cfg.Manifest.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	printInfo("Cleaning history entries older than %d days...", retentionDays)

	removed, err := m.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	printInfo("History cleanup complete, removed %d entries.", removed)
	return nil
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
