package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"printshop-backend/internal/analyzer"
	"printshop-backend/internal/bootstrap"
	"printshop-backend/internal/pricing"
	"printshop-backend/internal/shared/config"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type report struct {
	Analysis analyzer.PageInfo `json:"analysis"`
	Quote    pricing.Quote     `json:"quote"`
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("estimate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	filePath := fs.String("file", "", "Path to the document (pdf, doc, docx, jpg, png)")
	sides := fs.String("sides", "single", "single or double")
	colorMode := fs.String("color", "blackAndWhite", "blackAndWhite or color")
	size := fs.String("size", "A4", "A4 or A3")
	finish := fs.String("finish", "plain", "plain, glossy or coated")
	copies := fs.Int("copies", 1, "Number of copies")
	pricesPath := fs.String("prices", "", "YAML price table (defaults to the built-in table)")
	asJSON := fs.Bool("json", false, "Print the result as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if strings.TrimSpace(*filePath) == "" {
		fmt.Fprintln(stderr, "file path is required")
		return 2
	}

	opts, err := parseOptions(*sides, *colorMode, *size, *finish, *copies)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	cfg := config.Config{PriceTablePath: *pricesPath, PreviewRenderer: "none"}
	table, err := bootstrap.BuildPriceTable(cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	calc, err := pricing.NewCalculator(table)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	f, err := os.Open(*filePath)
	if err != nil {
		fmt.Fprintf(stderr, "open file: %v\n", err)
		return 1
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		fmt.Fprintf(stderr, "stat file: %v\n", err)
		return 1
	}

	a := bootstrap.BuildAnalyzer(cfg, analyzer.NoopRenderer{})
	info, err := a.Analyze(context.Background(), analyzer.UploadedFile{
		// No media type: the extension decides the format.
		Name:   filepath.Base(*filePath),
		Size:   st.Size(),
		Reader: f,
	})
	if err != nil {
		printFailure(stderr, err)
		return 1
	}

	quote, err := calc.Quote(info.PageCount, opts)
	if err != nil {
		fmt.Fprintf(stderr, "quote: %v\n", err)
		return 1
	}

	info.Preview = nil
	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report{Analysis: info, Quote: quote}); err != nil {
			fmt.Fprintf(stderr, "encode: %v\n", err)
			return 1
		}
		return 0
	}
	printReport(stdout, info, quote)
	return 0
}

func parseOptions(sides, colorMode, size, finish string, copies int) (pricing.Options, error) {
	var (
		opts pricing.Options
		err  error
	)
	if opts.Sides, err = pricing.ParseSides(sides); err != nil {
		return opts, err
	}
	if opts.Color, err = pricing.ParseColor(colorMode); err != nil {
		return opts, err
	}
	if opts.PaperSize, err = pricing.ParsePaperSize(size); err != nil {
		return opts, err
	}
	if opts.PaperFinish, err = pricing.ParsePaperFinish(finish); err != nil {
		return opts, err
	}
	opts.Copies = copies
	return opts, opts.Validate()
}

func printFailure(w io.Writer, err error) {
	var aerr *analyzer.Error
	if !errors.As(err, &aerr) {
		fmt.Fprintf(w, "analysis failed: %v\n", err)
		return
	}
	fmt.Fprintf(w, "%s: %s\n", aerr.Kind, aerr.Detail)
	for _, tip := range aerr.Tips() {
		fmt.Fprintf(w, "  - %s\n", tip)
	}
	if aerr.Retryable() {
		fmt.Fprintln(w, "This failure is temporary; run the command again.")
	}
}

func printReport(w io.Writer, info analyzer.PageInfo, q pricing.Quote) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "File\t%s\n", info.FileName)
	fmt.Fprintf(tw, "Type\t%s (%s)\n", info.DetectedType, info.Format)
	fmt.Fprintf(tw, "Pages\t%d\n", info.PageCount)
	if info.WordCount > 0 {
		fmt.Fprintf(tw, "Words\t%d\n", info.WordCount)
	}
	if info.PaperSize != "" {
		fmt.Fprintf(tw, "Paper\t%s\n", info.PaperSize)
	}
	fmt.Fprintf(tw, "Integrity\t%s\n", info.Diagnostics.IntegrityLevel)
	if info.Diagnostics.ErrorDetail != "" {
		fmt.Fprintf(tw, "Notes\t%s\n", info.Diagnostics.ErrorDetail)
	}
	fmt.Fprintf(tw, "Options\t%s, %s, %s %s, %d copies\n",
		q.Options.Sides, q.Options.Color, q.Options.PaperSize, q.Options.PaperFinish, q.Options.Copies)
	fmt.Fprintf(tw, "Price per page\t%.2f %s\n", q.PricePerPage, q.Currency)
	fmt.Fprintf(tw, "Sheets\t%d per copy, %d total (%d saved)\n", q.SheetsRequired, q.TotalSheets, q.SheetsSaved)
	fmt.Fprintf(tw, "Total\t%.2f %s\n", q.TotalCost, q.Currency)
	_ = tw.Flush()
}
