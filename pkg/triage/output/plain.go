package output

import (
	"bytes"
	"fmt"
	"text/tabwriter"
)

// PlainFormatter writes tab-aligned columns without styling, for scripts.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	if r.Images != nil {
		if _, err := fmt.Fprintln(tw, "SIZE\tMODIFIED\tPATH"); err != nil {
			return err
		}
		for _, img := range r.Images {
			if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\n",
				img.SizeHuman, img.ModTime.Format("2006-01-02 15:04"), img.Path); err != nil {
				return err
			}
		}
	}

	if r.Tags != nil {
		if _, err := fmt.Fprintln(tw, "TAG\tFILES\tSIZE"); err != nil {
			return err
		}
		for _, t := range r.Tags {
			if _, err := fmt.Fprintf(tw, "%s\t%d\t%s\n", t.Tag, t.Files, t.HumanBytes()); err != nil {
				return err
			}
		}
	}

	return tw.Flush()
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
