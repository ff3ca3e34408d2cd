package project

import (
	"github.com/xyproto/env/v2"
)

// Environment variables that override the manifest.
const (
	EnvMaxDiagnostics = "MENDES_MAX_DIAGNOSTICS"
	EnvJobs           = "MENDES_JOBS"
	EnvNoCache        = "MENDES_NO_CACHE"
	EnvCacheDir       = "MENDES_CACHE_DIR"
	EnvTraceLevel     = "MENDES_TRACE_LEVEL"
)

// ApplyEnv overlays MENDES_* variables on c. Unset variables leave the
// manifest value alone. The environment is re-read on every call.
func (c *Config) ApplyEnv() {
	env.Load()
	c.Check.MaxDiagnostics = env.Int(EnvMaxDiagnostics, c.Check.MaxDiagnostics)
	c.Check.Jobs = env.Int(EnvJobs, c.Check.Jobs)
	if env.Bool(EnvNoCache) {
		c.Check.Cache = false
	}
	c.Check.CacheDir = env.Str(EnvCacheDir, c.Check.CacheDir)
	c.Trace.Level = env.Str(EnvTraceLevel, c.Trace.Level)
}
