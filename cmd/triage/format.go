package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/triage/pkg/triage/output"
)

// outputFlags registers --output and its --json shorthand on cmd.
func outputFlags(cmd *cobra.Command, format *string, asJSON *bool) {
	cmd.Flags().StringVarP(format, "output", "o", "pretty",
		"output format ("+strings.Join(output.Available(), ", ")+")")
	cmd.Flags().BoolVarP(asJSON, "json", "j", false, "output JSON format (same as -o json)")
}

// writeResult renders r with the named formatter to stdout.
func writeResult(format string, asJSON bool, r *output.Result) error {
	if asJSON {
		format = "json"
	}
	if format == "" {
		format = "pretty"
	}

	formatter, err := output.Get(format)
	if err != nil {
		return fmt.Errorf("unknown output format %q: available formats are %v", format, output.Available())
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, r); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	_, err = buf.WriteTo(os.Stdout)
	return err
}
