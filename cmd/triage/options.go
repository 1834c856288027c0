package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/jamesainslie/triage/pkg/triage/config"
	"github.com/jamesainslie/triage/pkg/triage/manifest"
	"github.com/jamesainslie/triage/pkg/triage/mover"
	"github.com/jamesainslie/triage/pkg/triage/workspace"
)

// workspaceOptions builds the session options shared by the web UI and the
// terminal UI.
func workspaceOptions(cfg *config.Config) ([]workspace.Option, error) {
	opts := []workspace.Option{
		workspace.WithMover(mover.New(mover.WithDryRun(viper.GetBool("dry_run")))),
		workspace.WithHistorySize(cfg.HistorySize),
		workspace.WithRecentTags(cfg.RecentTags),
	}
	if len(cfg.Extensions) > 0 {
		opts = append(opts, workspace.WithExtensions(cfg.Extensions))
	}

	if cfg.Manifest.Enabled && !viper.GetBool("dry_run") {
		m, err := getManifest(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, workspace.WithJournal(m))
	}
	return opts, nil
}

// getManifest returns the journal in the configured directory.
func getManifest(cfg *config.Config) (*manifest.Manifest, error) {
	m, err := manifest.New(cfg.Manifest.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize journal: %w", err)
	}
	return m, nil
}
