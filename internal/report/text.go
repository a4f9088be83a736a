// Package report renders scan results for the command line.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/urlguard/urlguard/internal/classifier"
	"github.com/urlguard/urlguard/internal/service"
)

var threatColors = map[classifier.ThreatType]*color.Color{
	classifier.ThreatBenign:     color.New(color.FgGreen, color.Bold),
	classifier.ThreatPhishing:   color.New(color.FgRed, color.Bold),
	classifier.ThreatMalware:    color.New(color.FgMagenta, color.Bold),
	classifier.ThreatDefacement: color.New(color.FgYellow, color.Bold),
}

var levelColors = map[classifier.RiskLevel]*color.Color{
	classifier.RiskLow:    color.New(color.FgGreen),
	classifier.RiskMedium: color.New(color.FgYellow),
	classifier.RiskHigh:   color.New(color.FgRed),
}

// ThreatColor returns the display colour of a category.
func ThreatColor(t classifier.ThreatType) *color.Color {
	if c, ok := threatColors[t]; ok {
		return c
	}
	return color.New(color.Reset)
}

// Writer renders one analysis at a time.
type Writer interface {
	Write(a *service.Analysis) error
}

// TextWriter prints human-readable result cards.
type TextWriter struct {
	w       *bufio.Writer
	verbose bool
}

// NewTextWriter wraps w. With verbose set the matched rules and every
// feature are listed.
func NewTextWriter(w io.Writer, verbose bool) *TextWriter {
	return &TextWriter{w: bufio.NewWriter(w), verbose: verbose}
}

// Write prints one result card.
func (t *TextWriter) Write(a *service.Analysis) error {
	r := a.Result
	level := r.Level()

	label := ThreatColor(r.ThreatType).Sprintf("[%s]", strings.ToUpper(string(r.ThreatType)))
	fmt.Fprintf(t.w, "%s %s\n", label, a.URL)
	fmt.Fprintf(t.w, "  Risk score: %s   Confidence: %.1f%%\n",
		levelColors[level].Sprintf("%d/100 (%s)", r.RiskScore, level), r.Confidence)
	fmt.Fprintf(t.w, "  %s\n", r.ThreatType.Description())

	f := r.Features
	fmt.Fprintf(t.w, "  URL length: %d | Hostname length: %d | Directory depth: %d | Special characters: %d\n",
		f.URLLength, f.HostnameLength, f.CountDir, f.CountPercent+f.CountEqual)

	warn := color.New(color.FgYellow)
	for _, msg := range r.Warnings {
		fmt.Fprintf(t.w, "  %s %s\n", warn.Sprint("[!]"), msg)
	}

	if t.verbose {
		if len(r.MatchedRules) > 0 {
			fmt.Fprintf(t.w, "  Matched rules: %s\n", strings.Join(r.MatchedRules, ", "))
		}
		values := f.Map()
		for _, name := range featureNames {
			fmt.Fprintf(t.w, "    %-17s %d\n", name, values[name])
		}
	}

	fmt.Fprintln(t.w)
	return t.w.Flush()
}

// Summary prints the per-category totals of a run.
func (t *TextWriter) Summary(results []*service.Analysis) error {
	counts := make(map[classifier.ThreatType]int, len(classifier.ThreatTypes))
	for _, a := range results {
		counts[a.Result.ThreatType]++
	}

	fmt.Fprintf(t.w, "Scanned %d URL(s):", len(results))
	for _, tt := range classifier.ThreatTypes {
		fmt.Fprintf(t.w, " %s", ThreatColor(tt).Sprintf("%s=%d", tt, counts[tt]))
	}
	fmt.Fprintln(t.w)
	return t.w.Flush()
}
