package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mendes/internal/diag"
	"mendes/internal/diagfmt"
	"mendes/internal/driver"
	"mendes/internal/source"
)

func newDumpASTCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump-ast <file>",
		Short: "Print the decoded syntax tree of a document as an outline",
		Args:  cobra.ExactArgs(1),
		RunE:  runDumpAST,
	}
}

func runDumpAST(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	fs := source.NewFileSet()
	res := driver.CheckFile(cmd.Context(), fs, args[0], driver.Options{MaxDiagnostics: cfg.Check.MaxDiagnostics})
	if res.Bag.Count(diag.IOLoadFileError) > 0 || res.Bag.Count(diag.IODecodeError) > 0 {
		if err := renderDiagnostics(cmd.ErrOrStderr(), res.Bag, fs, cfg); err != nil {
			return fmt.Errorf("render diagnostics: %w", err)
		}
		return errDiagnostics
	}
	return diagfmt.Tree(cmd.OutOrStdout(), res.Document.Program, fs)
}
