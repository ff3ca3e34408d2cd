package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mendes/internal/prof"
	"mendes/internal/version"
)

// errDiagnostics means the run reported errors that were already printed.
var errDiagnostics = errors.New("diagnostics reported errors")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mendes",
		Short:         "Mendes middle end: type checking, ownership analysis and IR lowering",
		Long:          `mendes checks syntax-tree documents (YAML or JSON) of Mendes programs and lowers them to IR`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Глобальные флаги
	pf := root.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show per-file timing information")
	pf.Int("max-diagnostics", 100, "maximum number of diagnostics per file (0 = unlimited)")
	pf.Int("jobs", 0, "max parallel workers (0 = auto)")
	pf.Bool("no-cache", false, "disable the on-disk result cache")
	pf.String("trace", "", "trace output file (\"-\" for stderr)")
	pf.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "stream", "trace storage mode (stream|ring|both)")
	pf.String("trace-format", "auto", "trace format (auto|text|ndjson)")
	pf.Int("trace-ring-size", 4096, "ring buffer size for --trace-mode ring|both")
	pf.Duration("trace-heartbeat", 0, "emit a heartbeat trace event at this interval (0 = off)")
	pf.String("cpuprofile", "", "write a CPU profile to file")
	pf.String("memprofile", "", "write a heap profile to file on exit")
	pf.String("runtime-trace", "", "write a Go runtime execution trace to file")

	var (
		stopTrace func(failed bool)
		session   *prof.Session
	)
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		var err error
		session, err = startProfiling(cmd)
		if err != nil {
			return err
		}
		stopTrace, err = setupTracing(cmd)
		if err != nil {
			_ = session.Stop()
			session = nil
		}
		return err
	}
	finish := func(runErr error) error {
		if stopTrace != nil {
			stopTrace(runErr != nil && !errors.Is(runErr, errDiagnostics))
			stopTrace = nil
		}
		err := session.Stop()
		session = nil
		return err
	}

	root.AddCommand(newCheckCmd(), newLowerCmd(), newDumpASTCmd(), newVersionCmd(), newInitCmd())
	// PersistentPostRun is skipped when RunE fails, so cleanup hooks into every RunE.
	for _, sub := range root.Commands() {
		run := sub.RunE
		if run == nil {
			continue
		}
		sub.RunE = func(cmd *cobra.Command, args []string) error {
			runErr := run(cmd, args)
			if err := finish(runErr); err != nil && runErr == nil {
				return err
			}
			return runErr
		}
	}
	return root
}

func startProfiling(cmd *cobra.Command) (*prof.Session, error) {
	flags := cmd.Root().PersistentFlags()
	var paths prof.Paths
	var err error
	if paths.CPU, err = flags.GetString("cpuprofile"); err != nil {
		return nil, err
	}
	if paths.Heap, err = flags.GetString("memprofile"); err != nil {
		return nil, err
	}
	if paths.Trace, err = flags.GetString("runtime-trace"); err != nil {
		return nil, err
	}
	if paths.Empty() {
		return nil, nil
	}
	return prof.Start(paths)
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errDiagnostics) {
			fmt.Fprintf(os.Stderr, "mendes: %v\n", err)
		}
		os.Exit(1)
	}
}

// isTerminal проверяет, является ли writer терминалом
func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
