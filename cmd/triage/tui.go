package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/triage/cmd/triage/tui"
	"github.com/jamesainslie/triage/pkg/triage/logging"
	"github.com/jamesainslie/triage/pkg/triage/types"
	"github.com/jamesainslie/triage/pkg/triage/workspace"
)

var tuiCmd = &cobra.Command{
	Use:   "tui [path]",
	Short: "Sort images in the terminal",
	Long: `Sort a folder of images without a browser. The terminal shows the
current file name, size and remaining count; type a tag and press enter
to move it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

// runTUI drives a local workspace session from the terminal.
func runTUI(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := initLogging(cfg, true); err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()

	root, err := requireRoot(args, cfg)
	if err != nil {
		return err
	}

	opts, err := workspaceOptions(cfg)
	if err != nil {
		return err
	}
	s := workspace.New(opts...)
	if err := s.Activate(root); err != nil {
		return fmt.Errorf("%s: %w", types.UserMessage(err), err)
	}

	return tui.Run(tui.Options{
		Session: s,
		DryRun:  viper.GetBool("dry_run"),
	})
}
