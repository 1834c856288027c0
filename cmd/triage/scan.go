package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/triage/pkg/triage/discovery"
	"github.com/jamesainslie/triage/pkg/triage/output"
	"github.com/jamesainslie/triage/pkg/triage/types"
)

var (
	scanFormat string
	scanJSON   bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "List images waiting to be sorted",
	Long: `List the images directly under a folder in the order triage will show
them. Files already in tag folders are not listed.`,
	Example: `  triage scan ~/Pictures/inbox
  triage scan -o plain . | sort -h
  triage scan -o yaml .`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScanImages,
}

func init() {
	outputFlags(scanCmd, &scanFormat, &scanJSON)
	rootCmd.AddCommand(scanCmd)
}

// runScanImages prints the pending images of a folder.
func runScanImages(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	root, err := requireRoot(args, cfg)
	if err != nil {
		return err
	}

	var opts []discovery.Option
	if len(cfg.Extensions) > 0 {
		opts = append(opts, discovery.WithExtensions(cfg.Extensions))
	}
	images, err := discovery.Scan(root, opts...)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", root, err)
	}
	printVerbose("found %d images in %s", len(images), root)

	infos := make([]*types.ImageInfo, 0, len(images))
	for _, img := range images {
		infos = append(infos, types.StatImage(img))
	}

	return writeResult(scanFormat, scanJSON, output.FromImages(root, infos))
}
