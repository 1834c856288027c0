package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jamesainslie/triage/pkg/triage/types"
)

// PrettyFormatter formats output with colors and styling using lipgloss.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(HeaderBox.Render(LabelStyle.Render("Folder:") + " " + ValueStyle.Render(r.Root)))
	w.WriteString("\n")

	if r.Images != nil {
		w.WriteString(f.formatImages(r))
	}
	if r.Tags != nil {
		w.WriteString(f.formatTags(r))
	}

	w.WriteString(f.formatFooter(r))
	w.WriteString("\n")
	return nil
}

func (f *PrettyFormatter) formatImages(r *Result) string {
	if len(r.Images) == 0 {
		return SuccessStyle.Render("  Nothing left to sort") + "\n"
	}

	sizes := make([]string, len(r.Images))
	for i, img := range r.Images {
		sizes[i] = img.SizeHuman
	}
	width := maxWidth(sizes, 8)

	var sb strings.Builder
	fmt.Fprintf(&sb, "  %s  %s  %s\n",
		TableHeaderStyle.Render(padLeft("SIZE", width)),
		TableHeaderStyle.Render(padRight("MODIFIED", 16)),
		TableHeaderStyle.Render("NAME"))
	for i, img := range r.Images {
		fmt.Fprintf(&sb, "  %s  %s  %s\n",
			SizeStyle.Render(padLeft(sizes[i], width)),
			MutedStyle.Render(padRight(img.ModTime.Format("2006-01-02 15:04"), 16)),
			ValueStyle.Render(img.Name))
	}
	return sb.String()
}

func (f *PrettyFormatter) formatTags(r *Result) string {
	if len(r.Tags) == 0 {
		return MutedStyle.Render("  No tag folders yet") + "\n"
	}

	names := make([]string, len(r.Tags))
	for i, t := range r.Tags {
		names[i] = t.Tag
	}
	width := maxWidth(names, 3)

	var sb strings.Builder
	fmt.Fprintf(&sb, "  %s  %s  %s\n",
		TableHeaderStyle.Render(padRight("TAG", width)),
		TableHeaderStyle.Render(padLeft("FILES", 8)),
		TableHeaderStyle.Render("SIZE"))
	for _, t := range r.Tags {
		fmt.Fprintf(&sb, "  %s  %s  %s\n",
			ValueStyle.Render(padRight(t.Tag, width)),
			ValueStyle.Render(padLeft(humanize.Comma(t.Files), 8)),
			SizeStyle.Render(t.HumanBytes()))
	}
	return sb.String()
}

func (f *PrettyFormatter) formatFooter(r *Result) string {
	var parts []string
	if r.Images != nil {
		parts = append(parts, fmt.Sprintf("%s pending (%s)",
			humanize.Comma(int64(len(r.Images))), types.FormatSize(r.ImageBytes())))
	}
	if r.Tags != nil {
		files, size := r.TagTotals()
		parts = append(parts,
			fmt.Sprintf("%s sorted (%s)", humanize.Comma(files), types.FormatSize(size)),
			fmt.Sprintf("%s pending", humanize.Comma(int64(r.Pending))))
	}
	return FooterBox.Render(LabelStyle.Render(strings.Join(parts, "  •  ")))
}

func maxWidth(values []string, minimum int) int {
	w := minimum
	for _, v := range values {
		w = max(w, len(v))
	}
	return w
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
