package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mendes/internal/driver"
	"mendes/internal/ir"
	"mendes/internal/source"
	"mendes/internal/trace"
)

func newLowerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lower [flags] <file>",
		Short: "Check a document and print its IR",
		Long: `Check a document, lower it and print the IR. The IR is printed even
when the checker reports errors; the exit status still reflects them.
Pass --require-clean to print nothing unless the document checks clean.`,
		Args: cobra.ExactArgs(1),
		RunE: runLower,
	}
	cmd.Flags().String("format", "pretty", "diagnostics format (pretty|short|json)")
	cmd.Flags().StringP("output", "o", "", "write the IR to this file instead of stdout")
	cmd.Flags().Bool("require-clean", false, "do not print IR for documents with errors")
	return cmd
}

func runLower(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	requireClean, err := cmd.Flags().GetBool("require-clean")
	if err != nil {
		return fmt.Errorf("failed to get require-clean flag: %w", err)
	}

	fs := source.NewFileSet()
	res := driver.CheckFile(cmd.Context(), fs, args[0], driver.Options{
		MaxDiagnostics: cfg.Check.MaxDiagnostics,
		Lower:          true,
		Tracer:         trace.FromContext(cmd.Context()),
	})
	if res.Bag.Len() > 0 {
		// диагностика в stderr, чтобы не смешиваться с IR
		if err := renderDiagnostics(cmd.ErrOrStderr(), res.Bag, fs, cfg); err != nil {
			return fmt.Errorf("render diagnostics: %w", err)
		}
	}
	if res.Err != nil {
		return res.Err
	}
	if res.Module == nil || (requireClean && res.Bag.HasErrors()) {
		return errDiagnostics
	}

	var out io.Writer = cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create %s: %w", output, err)
		}
		defer f.Close()
		out = f
	}
	if err := ir.Dump(out, res.Module); err != nil {
		return fmt.Errorf("write IR: %w", err)
	}
	if res.Bag.HasErrors() {
		return errDiagnostics
	}
	return nil
}
