package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hurttlocker/roster/internal/resolve"
)

func writeTestConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestResolveConfigMissingFile(t *testing.T) {
	got, err := ResolveConfig(ResolveOptions{
		ConfigPath: filepath.Join(t.TempDir(), "nope.yaml"),
	})
	if err != nil {
		t.Fatalf("a missing config file must not error: %v", err)
	}
	if got.DBPath.Value != "" {
		t.Errorf("db path should be unset, got %+v", got.DBPath)
	}
}

func TestResolveConfigMalformedFile(t *testing.T) {
	path := writeTestConfig(t, "db_path: [unclosed")
	if _, err := ResolveConfig(ResolveOptions{ConfigPath: path}); err == nil {
		t.Fatal("expected a parse error for malformed yaml")
	}
}

func TestResolveConfigFromFile(t *testing.T) {
	path := writeTestConfig(t, `
db_path: /var/lib/roster/roster.db
timing: true
schema:
  table: players
  name_col: full_name
thresholds:
  auto_score: "92.5"
  top_k: "5"
retrieval:
  prefix_limit: "1000"
`)

	got, err := ResolveConfig(ResolveOptions{ConfigPath: path})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}

	if got.DBPath.Value != "/var/lib/roster/roster.db" || got.DBPath.Source != SourceConfig {
		t.Errorf("db path = %+v", got.DBPath)
	}
	if !got.Timing {
		t.Error("timing should come from the file")
	}

	sc := got.Schema()
	if sc.Table != "players" || sc.NameCol != "full_name" {
		t.Errorf("schema = %+v", sc)
	}
	// Unset schema fields keep their defaults.
	if sc.IDCol != "id" || sc.PopCol != "popularity" {
		t.Errorf("schema defaults missing: %+v", sc)
	}

	pc, err := got.PipelineConfig()
	if err != nil {
		t.Fatalf("PipelineConfig: %v", err)
	}
	if pc.AutoScore != 92.5 || pc.TopK != 5 || pc.PrefixLimit != 1000 {
		t.Errorf("pipeline config = %+v", pc)
	}
	// Untouched tuning keeps the defaults.
	if pc.MinMargin != resolve.DefaultMinMargin {
		t.Errorf("min margin = %v, want default", pc.MinMargin)
	}
}

func TestResolveConfigEnvOverridesFile(t *testing.T) {
	path := writeTestConfig(t, `
db_path: /from/file.db
thresholds:
  auto_score: "80"
`)
	t.Setenv("ROSTER_DB", "/from/env.db")
	t.Setenv("ROSTER_AUTO_SCORE", "95")

	got, err := ResolveConfig(ResolveOptions{ConfigPath: path})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	if got.DBPath.Value != "/from/env.db" || got.DBPath.Source != SourceEnv {
		t.Errorf("db path = %+v, want env value", got.DBPath)
	}
	if got.AutoScore.Value != "95" || got.AutoScore.From != "ROSTER_AUTO_SCORE" {
		t.Errorf("auto score = %+v", got.AutoScore)
	}
}

func TestResolveConfigCLIOverridesAll(t *testing.T) {
	path := writeTestConfig(t, "db_path: /from/file.db\n")
	t.Setenv("ROSTER_DB", "/from/env.db")

	got, err := ResolveConfig(ResolveOptions{
		ConfigPath: path,
		CLIDBPath:  "/from/cli.db",
		CLITiming:  true,
	})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	if got.DBPath.Value != "/from/cli.db" || got.DBPath.Source != SourceCLI {
		t.Errorf("db path = %+v, want cli value", got.DBPath)
	}
	if !got.Timing {
		t.Error("--timing should win")
	}
}

func TestResolveConfigExpandsHome(t *testing.T) {
	got, err := ResolveConfig(ResolveOptions{
		ConfigPath: filepath.Join(t.TempDir(), "nope.yaml"),
		CLIDBPath:  "~/roster.db",
	})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	if strings.HasPrefix(got.DBPath.Value, "~") {
		t.Errorf("tilde not expanded: %q", got.DBPath.Value)
	}
	if !filepath.IsAbs(got.DBPath.Value) {
		t.Errorf("expected an absolute path, got %q", got.DBPath.Value)
	}
}

func TestPipelineConfigRejectsBadNumbers(t *testing.T) {
	path := writeTestConfig(t, `
thresholds:
  auto_score: "very high"
`)
	got, err := ResolveConfig(ResolveOptions{ConfigPath: path})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}

	if _, err := got.PipelineConfig(); err == nil {
		t.Fatal("expected an error for a non-numeric threshold")
	} else if !strings.Contains(err.Error(), "auto_score") {
		t.Errorf("error should name the field: %v", err)
	}
}

func TestPipelineConfigTimingEnv(t *testing.T) {
	t.Setenv("ROSTER_TIMING", "1")
	got, err := ResolveConfig(ResolveOptions{
		ConfigPath: filepath.Join(t.TempDir(), "nope.yaml"),
	})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	if !got.Timing {
		t.Error("ROSTER_TIMING=1 should enable timing")
	}
}
