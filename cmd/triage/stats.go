package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/triage/pkg/triage/output"
	"github.com/jamesainslie/triage/pkg/triage/stats"
)

var (
	statsFormat string
	statsJSON   bool
)

var statsCmd = &cobra.Command{
	Use:   "stats [path]",
	Short: "Summarize tag folders",
	Long:  `Count the files and bytes filed under each tag folder of a root.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStats,
}

func init() {
	outputFlags(statsCmd, &statsFormat, &statsJSON)
	rootCmd.AddCommand(statsCmd)
}

// runStats prints per-tag statistics for a folder.
func runStats(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	root, err := requireRoot(args, cfg)
	if err != nil {
		return err
	}

	sum, err := stats.Collect(root, cfg.Extensions)
	if err != nil {
		return fmt.Errorf("failed to collect stats: %w", err)
	}

	return writeResult(statsFormat, statsJSON, output.FromSummary(sum))
}
