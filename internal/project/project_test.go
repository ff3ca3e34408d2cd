package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, Template("shop"))
	nested := filepath.Join(root, "src", "api")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	m, ok, err := Discover(nested)
	if err != nil || !ok {
		t.Fatalf("Discover = %v, %v", ok, err)
	}
	if m.Config.Package.Name != "shop" || m.Root != root {
		t.Fatalf("manifest = %+v", m)
	}
	if m.Config.Check.MaxDiagnostics != 100 || !m.Config.Check.Cache || m.Config.Output.Format != "pretty" {
		t.Fatalf("config = %+v", m.Config)
	}
}

func TestDiscoverWithoutManifest(t *testing.T) {
	_, ok, err := Discover(t.TempDir())
	if err != nil || ok {
		t.Fatalf("Discover = %v, %v", ok, err)
	}
}

func TestLoadManifestErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no package", "[check]\njobs = 2\n", "missing [package]"},
		{"no name", "[package]\n", "missing [package].name"},
		{"unknown key", "[package]\nname = \"x\"\n[check]\nturbo = true\n", "unknown keys: check.turbo"},
		{"bad format", "[package]\nname = \"x\"\n[output]\nformat = \"xml\"\n", "[output].format"},
		{"negative jobs and color", "[package]\nname = \"x\"\n[check]\njobs = -1\n[output]\ncolor = \"rainbow\"\n", "[check].jobs"},
		{"broken toml", "[package\n", "failed to parse TOML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tt.body)
			_, err := LoadManifest(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Check.Jobs = -1
	cfg.Output.Color = "rainbow"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "[check].jobs") || !strings.Contains(err.Error(), "[output].color") {
		t.Fatalf("err = %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvMaxDiagnostics, "7")
	t.Setenv(EnvJobs, "3")
	t.Setenv(EnvNoCache, "1")
	t.Setenv(EnvCacheDir, "/tmp/mendes-cache")
	t.Setenv(EnvTraceLevel, "phase")

	cfg := DefaultConfig()
	cfg.ApplyEnv()
	if cfg.Check.MaxDiagnostics != 7 || cfg.Check.Jobs != 3 || cfg.Check.Cache {
		t.Fatalf("check = %+v", cfg.Check)
	}
	if cfg.Check.CacheDir != "/tmp/mendes-cache" || cfg.Trace.Level != "phase" {
		t.Fatalf("config = %+v", cfg)
	}
}

func TestApplyEnvKeepsManifestValues(t *testing.T) {
	t.Setenv(EnvJobs, "")
	cfg := DefaultConfig()
	cfg.Check.Jobs = 5
	cfg.ApplyEnv()
	if cfg.Check.Jobs != 5 || !cfg.Check.Cache {
		t.Fatalf("check = %+v", cfg.Check)
	}
}

func TestApplyEnvSeesLaterChanges(t *testing.T) {
	t.Setenv(EnvJobs, "2")
	first := DefaultConfig()
	first.ApplyEnv()

	t.Setenv(EnvJobs, "9")
	second := DefaultConfig()
	second.ApplyEnv()
	if first.Check.Jobs != 2 || second.Check.Jobs != 9 {
		t.Fatalf("jobs = %d then %d, want 2 then 9", first.Check.Jobs, second.Check.Jobs)
	}
}

func TestCombineDependsOnOrder(t *testing.T) {
	a, b := HashString("a"), HashString("b")
	if Combine(a, b) == Combine(b, a) {
		t.Fatalf("Combine ignores order")
	}
	if Combine(a, b) != Combine(a, b) {
		t.Fatalf("Combine is not deterministic")
	}
}
