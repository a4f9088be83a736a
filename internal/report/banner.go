package report

import (
	"fmt"
	"io"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
)

// PrintBanner writes the CLI banner to w.
func PrintBanner(w io.Writer, version string) {
	fig := figure.NewFigure("URLGUARD", "doom", true)
	_, _ = color.New(color.FgCyan).Fprint(w, fig.String())

	rule := color.New(color.FgCyan)
	_, _ = rule.Fprintln(w, "════════════════════════════════════════════════")
	_, _ = color.New(color.FgGreen).Fprintf(w, "    URL threat classifier | version %s\n", version)
	_, _ = rule.Fprintln(w, "════════════════════════════════════════════════")
	fmt.Fprintln(w)
}
