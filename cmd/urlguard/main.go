// Command urlguard classifies URLs from the command line.
//
// URLs come from the arguments, from a file given with -f, or from stdin
// (one per line). Results are printed as coloured cards or, with -json,
// as one JSON object per line.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/urlguard/urlguard/internal/classifier"
	"github.com/urlguard/urlguard/internal/model"
	"github.com/urlguard/urlguard/internal/report"
	"github.com/urlguard/urlguard/internal/service"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// exitThreat is returned with -fail when any URL is not benign.
const exitThreat = 3

var errNoURLs = errors.New("no URLs given (pass them as arguments, with -f, or on stdin)")

type options struct {
	file        string
	jsonOut     bool
	concurrency int
	noBanner    bool
	noColor     bool
	verbose     bool
	onlyThreats bool
	summary     bool
	fail        bool
	args        []string
}

func main() {
	opts := parseFlags(os.Args[1:])

	if opts.noColor {
		color.NoColor = true
	}
	if !opts.noBanner && !opts.jsonOut {
		report.PrintBanner(os.Stderr, Version)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code, err := run(ctx, opts, os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[-] Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func parseFlags(args []string) options {
	var opts options
	fs := flag.NewFlagSet("urlguard", flag.ExitOnError)
	fs.StringVar(&opts.file, "f", "", "File with one URL per line")
	fs.BoolVar(&opts.jsonOut, "json", false, "Print one JSON object per URL")
	fs.IntVar(&opts.concurrency, "c", 8, "Concurrent classifications")
	fs.BoolVar(&opts.noBanner, "no-banner", false, "Do not print the banner")
	fs.BoolVar(&opts.noColor, "no-color", false, "Disable coloured output")
	fs.BoolVar(&opts.verbose, "v", false, "List every extracted feature")
	fs.BoolVar(&opts.onlyThreats, "only-threats", false, "Only print URLs not classified as benign")
	fs.BoolVar(&opts.summary, "summary", false, "Print per-category totals at the end")
	fs.BoolVar(&opts.fail, "fail", false, fmt.Sprintf("Exit with status %d when any URL is not benign", exitThreat))
	_ = fs.Parse(args)
	opts.args = fs.Args()
	return opts
}

// run classifies every input URL and writes the results to out. It returns
// the process exit code.
func run(ctx context.Context, opts options, stdin io.Reader, out io.Writer) (int, error) {
	urls, err := collectURLs(opts, stdin)
	if err != nil {
		return 0, err
	}
	if len(urls) == 0 {
		return 0, errNoURLs
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	svc := service.NewScanService(nil, nil, logger, nil, service.ScanConfig{
		MaxBatchSize:     len(urls),
		BatchConcurrency: opts.concurrency,
	})

	results, err := svc.AnalyzeBatch(ctx, urls, service.ScanOptions{Source: model.SourceCLI})
	if err != nil {
		return 0, fmt.Errorf("classify: %w", err)
	}

	var w report.Writer
	text := report.NewTextWriter(out, opts.verbose)
	if opts.jsonOut {
		w = report.NewJSONLWriter(out)
	} else {
		w = text
	}

	threats := 0
	for _, a := range results {
		benign := a.Result.ThreatType == classifier.ThreatBenign
		if !benign {
			threats++
		}
		if opts.onlyThreats && benign {
			continue
		}
		if err := w.Write(a); err != nil {
			return 0, fmt.Errorf("write result: %w", err)
		}
	}

	if opts.summary && !opts.jsonOut {
		if err := text.Summary(results); err != nil {
			return 0, fmt.Errorf("write summary: %w", err)
		}
	}

	if opts.fail && threats > 0 {
		return exitThreat, nil
	}
	return 0, nil
}

// collectURLs returns the URLs to classify. Arguments win over -f, which
// wins over stdin.
func collectURLs(opts options, stdin io.Reader) ([]string, error) {
	if len(opts.args) > 0 {
		return opts.args, nil
	}
	if opts.file != "" {
		f, err := os.Open(opts.file)
		if err != nil {
			return nil, fmt.Errorf("open url file: %w", err)
		}
		defer f.Close()
		return readURLs(f)
	}
	return readURLs(stdin)
}

// readURLs reads one URL per line, skipping blank lines and "#" comments.
func readURLs(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read urls: %w", err)
	}
	return urls, nil
}
