package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mendes/internal/driver"
	"mendes/internal/project"
	"mendes/internal/source"
	"mendes/internal/trace"
	"mendes/internal/ui"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [flags] [file|directory]...",
		Short: "Type-check and ownership-check syntax-tree documents",
		Long: `Check every given document, or every *.yaml, *.yml and *.json document
under the given directories (the current directory when none is given).
With --lower, every decoded file is also lowered and the IR is validated,
even when the checker reported errors.`,
		RunE: runCheck,
	}
	cmd.Flags().String("format", "pretty", "diagnostics format (pretty|short|json)")
	cmd.Flags().Bool("lower", false, "also lower and validate every decoded file")
	cmd.Flags().String("ui", "auto", "progress view for multi-file runs (auto|on|off)")
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	lowerToo, err := cmd.Flags().GetBool("lower")
	if err != nil {
		return fmt.Errorf("failed to get lower flag: %w", err)
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	showTimings, err := cmd.Flags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}

	if len(args) == 0 {
		args = []string{"."}
	}
	files, err := driver.ListDocuments(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no documents found in %s", strings.Join(args, ", "))
	}

	opts := driver.Options{
		MaxDiagnostics: cfg.Check.MaxDiagnostics,
		Jobs:           cfg.Check.Jobs,
		Lower:          lowerToo,
		Tracer:         trace.FromContext(cmd.Context()),
		Cache:          openCache(cmd, cfg),
	}

	fs := source.NewFileSet()
	results, err := checkWithProgress(cmd, fs, files, opts, useProgress(uiFlag, len(files), quiet, cmd))
	if err != nil {
		return err
	}

	bag, internal := mergeResults(results)
	out := cmd.OutOrStdout()
	if err := renderDiagnostics(out, bag, fs, cfg); err != nil {
		return fmt.Errorf("render diagnostics: %w", err)
	}
	if showTimings {
		printTimings(cmd.ErrOrStderr(), results)
	}
	if !quiet && cfg.Output.Format == "pretty" {
		fmt.Fprintln(cmd.ErrOrStderr(), summaryLine(len(files), bag, useColor(cfg.Output.Color, cmd.ErrOrStderr())))
	}
	if len(internal) > 0 {
		return errors.Join(internal...)
	}
	if bag.HasErrors() {
		return errDiagnostics
	}
	return nil
}

func useProgress(mode string, files int, quiet bool, cmd *cobra.Command) bool {
	switch mode {
	case "on":
		return true
	case "off":
		return false
	}
	return !quiet && files > 1 && isTerminal(cmd.ErrOrStderr())
}

// checkWithProgress runs the files, feeding the progress view when enabled.
func checkWithProgress(cmd *cobra.Command, fs *source.FileSet, files []string, opts driver.Options, progress bool) ([]*driver.FileResult, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if !progress {
		return driver.CheckFiles(ctx, fs, files, opts)
	}

	events := make(chan driver.Event, 64)
	opts.Progress = func(ev driver.Event) { events <- ev }
	uiDone := make(chan error, 1)
	go func() {
		uiDone <- ui.Run(cmd.ErrOrStderr(), "checking", files, events)
		// вид мог закрыться раньше: не даём воркерам заблокироваться
		for range events {
		}
	}()

	results, err := driver.CheckFiles(ctx, fs, files, opts)
	close(events)
	if uiErr := <-uiDone; uiErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "mendes: %v\n", uiErr)
	}
	return results, err
}

func openCache(cmd *cobra.Command, cfg project.Config) *driver.DiskCache {
	if !cfg.Check.Cache {
		return nil
	}
	cache, err := driver.OpenDiskCache(cfg.Check.CacheDir, "mendes")
	if err != nil {
		// без кэша проверка всё равно работает
		fmt.Fprintf(cmd.ErrOrStderr(), "mendes: cache disabled: %v\n", err)
		return nil
	}
	return cache
}
