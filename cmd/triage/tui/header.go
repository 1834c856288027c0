package tui

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/triage/pkg/triage/types"
)

// renderHeader renders the title line with the folder and queue counts.
func renderHeader(view types.View, dryRun bool) string {
	appName := titleStyle.Render("TRIAGE")

	remaining := fmt.Sprintf("%s remaining", humanize.Comma(int64(view.Remaining)))
	stats := mutedTextStyle.Render(fmt.Sprintf("  %s  •  %s", view.Root, remaining))

	header := fmt.Sprintf(" %s%s", appName, stats)
	if dryRun {
		header += warningTextStyle.Render("  DRY RUN")
	}
	return header
}

// renderHelp renders the key bindings line.
func renderHelp() string {
	bindings := []struct {
		key  string
		desc string
	}{
		{"enter", "classify"},
		{"tab", "recent tag"},
		{"ctrl+s", "skip"},
		{"ctrl+z", "undo"},
		{"ctrl+r", "rescan"},
		{"esc", "quit"},
	}

	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, helpKeyStyle.Render(b.key)+" "+helpDescStyle.Render(b.desc))
	}
	return " " + strings.Join(parts, "  ")
}
