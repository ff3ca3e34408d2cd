package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"mendes/internal/diag"
	"mendes/internal/diagfmt"
	"mendes/internal/driver"
	"mendes/internal/project"
	"mendes/internal/source"
)

// useColor resolves the auto|on|off setting against the writer.
func useColor(mode string, w io.Writer) bool {
	switch mode {
	case "on":
		return true
	case "off":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isTerminal(w)
}

// mergeResults collects every file's diagnostics into one bag in file
// order, along with internal errors.
func mergeResults(results []*driver.FileResult) (*diag.Bag, []error) {
	bag := diag.NewBag(0)
	var errs []error
	for _, res := range results {
		if res == nil {
			continue
		}
		bag.Merge(res.Bag)
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return bag, errs
}

func renderDiagnostics(w io.Writer, bag *diag.Bag, fs *source.FileSet, cfg project.Config) error {
	switch cfg.Output.Format {
	case "json":
		return diagfmt.JSON(w, bag, fs, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         diagfmt.PathModeRelative,
			IncludeNotes:     true,
			IncludeFixes:     true,
		})
	case "short":
		return diagfmt.Short(w, bag, fs, true)
	default:
		if bag.Len() == 0 {
			return nil
		}
		return diagfmt.Pretty(w, bag, fs, diagfmt.PrettyOpts{
			Color:     useColor(cfg.Output.Color, w),
			PathMode:  diagfmt.PathModeRelative,
			ShowNotes: true,
			ShowFixes: true,
		})
	}
}

// summaryLine is "checked 3 files: 2 errors, 1 warning".
func summaryLine(files int, bag *diag.Bag, colored bool) string {
	errs, warns := 0, 0
	for _, d := range bag.Items() {
		switch d.Severity {
		case diag.SevError:
			errs++
		case diag.SevWarning:
			warns++
		}
	}
	c := color.New(color.FgGreen, color.Bold)
	if errs > 0 {
		c = color.New(color.FgRed, color.Bold)
	}
	if colored {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprintf("checked %s: %s, %s", plural(files, "file"), plural(errs, "error"), plural(warns, "warning"))
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func printTimings(w io.Writer, results []*driver.FileResult) {
	for _, res := range results {
		if res == nil || len(res.Timing.Phases) == 0 {
			continue
		}
		fmt.Fprint(w, res.Timing.Summary(res.Path))
	}
}
