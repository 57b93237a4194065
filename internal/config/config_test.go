package config

import (
	"os"
	"path/filepath"
	"testing"

	"cogni/internal/tester"
)

func write(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cogni.yaml")
	tester.NoErr(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestLoadFullFile(t *testing.T) {
	path := write(t, `
provider: openai
model: gpt-4o-mini
max_retries: 5
budget: 20
trace: out/trace.json
sandbox_root: ./work
rps: 2.5
burst: 4
checkpoints: 16
safety:
  max_fix_lines: 80
  max_backtrack_depth: 2
  max_deliberations_without_progress: 7
databases:
  main: postgres://localhost/cogni
`)
	cfg, err := Load(path)
	tester.NoErr(t, err)
	tester.Eq(t, cfg.Provider, "openai")
	tester.Eq(t, cfg.Model, "gpt-4o-mini")
	tester.Eq(t, cfg.MaxRetries, 5)
	tester.Eq(t, cfg.Budget, int64(20))
	tester.Eq(t, cfg.TracePath, "out/trace.json")
	tester.Eq(t, cfg.SandboxRoot, "./work")
	tester.Eq(t, cfg.RPS, 2.5)
	tester.Eq(t, cfg.Burst, 4)
	tester.Eq(t, cfg.Checkpoints, 16)
	tester.Eq(t, cfg.Safety.MaxFixLines, 80)
	tester.Eq(t, cfg.Databases["main"], "postgres://localhost/cogni")
}

func TestAbsentKeysKeepDefaults(t *testing.T) {
	cfg, err := Load(write(t, `model: llama3`))
	tester.NoErr(t, err)
	tester.Eq(t, cfg.Provider, "off")
	tester.Eq(t, cfg.MaxRetries, 3)
	tester.Eq(t, cfg.Budget, int64(0))
}

func TestExplicitZeroRetriesSticks(t *testing.T) {
	cfg, err := Load(write(t, `max_retries: 0`))
	tester.NoErr(t, err)
	tester.Eq(t, cfg.MaxRetries, 0)
}

func TestLoadOptionalMissingFile(t *testing.T) {
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"))
	tester.NoErr(t, err)
	tester.Eq(t, cfg, Default())
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	tester.Err(t, err)
}

func TestUnknownProviderRejected(t *testing.T) {
	_, err := Load(write(t, `provider: claude`))
	tester.ErrContains(t, err, `unknown provider "claude"`)
}

func TestProviderNormalization(t *testing.T) {
	cfg, err := Load(write(t, `provider: " NULL "`))
	tester.NoErr(t, err)
	tester.Eq(t, cfg.Provider, "script")
}

func TestNegativeLimitsRejected(t *testing.T) {
	for _, doc := range []string{
		`max_retries: -1`,
		`budget: -5`,
		`rps: -0.5`,
		`burst: -2`,
		`checkpoints: -1`,
		"safety:\n  max_fix_lines: -10",
	} {
		_, err := Load(write(t, doc))
		tester.Err(t, err, doc)
	}
}

func TestEmptyDSNRejected(t *testing.T) {
	_, err := Load(write(t, "databases:\n  main: \"\""))
	tester.ErrContains(t, err, "databases[main]")
}

func TestEnvOverridesThrottle(t *testing.T) {
	t.Setenv("COGNI_RPS", "9")
	t.Setenv("COGNI_BURST", "3")
	cfg, err := Load(write(t, "rps: 1\nburst: 1"))
	tester.NoErr(t, err)
	tester.Eq(t, cfg.RPS, float64(9))
	tester.Eq(t, cfg.Burst, 3)
}

func TestSafetyConfigFillsZeros(t *testing.T) {
	cfg, err := Load(write(t, "safety:\n  max_fix_lines: 80"))
	tester.NoErr(t, err)
	sc := cfg.SafetyConfig()
	tester.Eq(t, sc.MaxFixLines, 80)
	tester.Eq(t, sc.MaxBacktrackDepth, 5)
	tester.Eq(t, sc.MaxDeliberationsWithoutProgress, 3)
}

func TestAPIKeyFollowsProvider(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg := Default()
	cfg.Provider = "openai"
	tester.Eq(t, cfg.APIKey(), "sk-test")
	cfg.Provider = "ollama"
	tester.Eq(t, cfg.APIKey(), "")
}
