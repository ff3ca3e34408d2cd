package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mendes/internal/project"
)

// loadConfig layers the run configuration: defaults, then the nearest
// mendes.toml, then MENDES_* variables, then flags the user actually set.
func loadConfig(cmd *cobra.Command) (project.Config, error) {
	cfg := project.DefaultConfig()
	wd, err := os.Getwd()
	if err != nil {
		return cfg, fmt.Errorf("resolve working directory: %w", err)
	}
	manifest, ok, err := project.Discover(wd)
	if err != nil {
		return cfg, err
	}
	if ok {
		cfg = manifest.Config
	}
	cfg.ApplyEnv()
	if err := applyFlags(&cfg, cmd); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyFlags(cfg *project.Config, cmd *cobra.Command) error {
	var errs []error
	flags := cmd.Flags()
	changed := func(name string) bool {
		return flags.Lookup(name) != nil && flags.Changed(name)
	}
	if changed("max-diagnostics") {
		v, err := flags.GetInt("max-diagnostics")
		errs = append(errs, err)
		cfg.Check.MaxDiagnostics = v
	}
	if changed("jobs") {
		v, err := flags.GetInt("jobs")
		errs = append(errs, err)
		cfg.Check.Jobs = v
	}
	if changed("no-cache") {
		v, err := flags.GetBool("no-cache")
		errs = append(errs, err)
		cfg.Check.Cache = cfg.Check.Cache && !v
	}
	if changed("color") {
		v, err := flags.GetString("color")
		errs = append(errs, err)
		cfg.Output.Color = v
	}
	if changed("format") {
		v, err := flags.GetString("format")
		errs = append(errs, err)
		cfg.Output.Format = v
	}
	if changed("trace-level") {
		v, err := flags.GetString("trace-level")
		errs = append(errs, err)
		cfg.Trace.Level = v
	}
	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("read flags: %w", err)
		}
	}
	return nil
}
