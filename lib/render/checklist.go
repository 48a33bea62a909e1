// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/samcmill/wassail-sub000/lib/result"
)

// Label column widths, in visible cells.
const (
	issueWidth    = len("UNKNOWN")
	priorityWidth = len("EMERGENCY")
)

var issueLabels = map[result.Issue]string{
	result.No:    "OK",
	result.Maybe: "UNKNOWN",
	result.Yes:   "NOT OK",
}

// Palette colors, ANSI 256 codes.
const (
	colorGood  = lipgloss.Color("2")
	colorWarn  = lipgloss.Color("3")
	colorBad   = lipgloss.Color("1")
	colorFaint = lipgloss.Color("245")
)

// DetectProfile picks the color profile for w. NO_COLOR and writers
// that are not terminals get [termenv.Ascii].
func DetectProfile(w io.Writer) termenv.Profile {
	if os.Getenv("NO_COLOR") != "" {
		return termenv.Ascii
	}
	file, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return termenv.Ascii
	}
	return termenv.NewOutput(w).EnvColorProfile()
}

// Checklist prints result trees as an indented checklist.
type Checklist struct {
	// Verbose prints detail and action text for every node. Otherwise
	// only nodes with an issue other than No show them.
	Verbose bool

	out      io.Writer
	issue    map[result.Issue]lipgloss.Style
	priority map[result.Priority]lipgloss.Style
	faint    lipgloss.Style
}

// NewChecklist returns a checklist writing to w with the given color
// profile.
func NewChecklist(w io.Writer, profile termenv.Profile) *Checklist {
	// lipgloss re-detects the profile from the environment unless it
	// is set explicitly.
	renderer := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)

	good := renderer.NewStyle().Foreground(colorGood).Bold(true)
	warn := renderer.NewStyle().Foreground(colorWarn).Bold(true)
	bad := renderer.NewStyle().Foreground(colorBad)

	return &Checklist{
		out: w,
		issue: map[result.Issue]lipgloss.Style{
			result.No:    good,
			result.Maybe: warn,
			result.Yes:   bad,
		},
		priority: map[result.Priority]lipgloss.Style{
			result.Debug:     good,
			result.Info:      good,
			result.Notice:    good,
			result.Warning:   warn,
			result.Error:     bad,
			result.Critical:  bad,
			result.Alert:     bad,
			result.Emergency: bad,
		},
		faint: renderer.NewStyle().Foreground(colorFaint),
	}
}

// Write prints root and its descendants followed by a one-line
// summary of the root.
func (c *Checklist) Write(root *result.Result) error {
	var builder strings.Builder
	c.node(&builder, root, 0)
	builder.WriteString("\n")
	switch root.Issue {
	case result.No:
		builder.WriteString("All checks passed.\n")
	case result.Yes:
		builder.WriteString("Some checks found issues.\n")
	default:
		builder.WriteString("Some checks could not be evaluated.\n")
	}
	_, err := io.WriteString(c.out, builder.String())
	return err
}

func (c *Checklist) node(builder *strings.Builder, node *result.Result, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(builder, "[%s]  %s  %s%s\n",
		pad(c.issueLabel(node.Issue), issueWidth),
		pad(c.priorityLabel(node.Priority), priorityWidth),
		indent, node.Brief)

	if c.Verbose || node.Issue != result.No {
		// Continuation lines start under the brief.
		continuation := strings.Repeat(" ", issueWidth+2+2+priorityWidth+2) + indent + "  "
		for _, line := range splitLines(node.Detail) {
			builder.WriteString(continuation + line + "\n")
		}
		for _, line := range splitLines(node.Action) {
			builder.WriteString(continuation + c.faint.Render("action: ") + line + "\n")
		}
	}

	for _, child := range node.Children() {
		c.node(builder, child, depth+1)
	}
}

func (c *Checklist) issueLabel(issue result.Issue) string {
	label, ok := issueLabels[issue]
	if !ok {
		label = strings.ToUpper(issue.String())
	}
	return c.issue[issue].Render(label)
}

func (c *Checklist) priorityLabel(priority result.Priority) string {
	return c.priority[priority].Render(strings.ToUpper(priority.String()))
}

// pad right-pads s with spaces to width visible cells. Escape
// sequences do not count.
func pad(s string, width int) string {
	if gap := width - ansi.StringWidth(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

func splitLines(text string) []string {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
