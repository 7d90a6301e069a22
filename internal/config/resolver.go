// Package config resolves roster's tuning surface from a YAML file,
// environment variables, and CLI flags, in that order of precedence.
// Every resolved value remembers where it came from so `roster config`
// style debugging stays possible.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hurttlocker/roster/internal/resolve"
	"github.com/hurttlocker/roster/internal/store"
)

type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// ResolveOptions carries CLI-level overrides into resolution.
type ResolveOptions struct {
	ConfigPath string
	CLIDBPath  string
	CLITiming  bool
}

// ResolvedConfig is the merged configuration with provenance per value.
type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DBPath ResolvedValue `json:"db_path"`

	Table   ResolvedValue `json:"table"`
	IDCol   ResolvedValue `json:"id_col"`
	NameCol ResolvedValue `json:"name_col"`
	NormCol ResolvedValue `json:"norm_col"`
	KeyCol  ResolvedValue `json:"key_col"`
	PopCol  ResolvedValue `json:"pop_col"`

	AutoScore ResolvedValue `json:"auto_score"`
	MinMargin ResolvedValue `json:"min_margin"`
	TopK      ResolvedValue `json:"top_k"`

	PrefixLimit    ResolvedValue `json:"prefix_limit"`
	FullTextLimit  ResolvedValue `json:"fulltext_limit"`
	SubstringLimit ResolvedValue `json:"substring_limit"`
	MinCandidates  ResolvedValue `json:"min_candidates"`

	Timing bool `json:"timing"`
}

type fileConfig struct {
	DBPath string `yaml:"db_path"`
	Timing bool   `yaml:"timing"`
	Schema struct {
		Table   string `yaml:"table"`
		IDCol   string `yaml:"id_col"`
		NameCol string `yaml:"name_col"`
		NormCol string `yaml:"norm_col"`
		KeyCol  string `yaml:"key_col"`
		PopCol  string `yaml:"pop_col"`
	} `yaml:"schema"`
	Thresholds struct {
		AutoScore string `yaml:"auto_score"`
		MinMargin string `yaml:"min_margin"`
		TopK      string `yaml:"top_k"`
	} `yaml:"thresholds"`
	Retrieval struct {
		PrefixLimit    string `yaml:"prefix_limit"`
		FullTextLimit  string `yaml:"fulltext_limit"`
		SubstringLimit string `yaml:"substring_limit"`
		MinCandidates  string `yaml:"min_candidates"`
	} `yaml:"retrieval"`
}

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".roster", "config.yaml")
}

// ResolveConfig merges file, env, and CLI sources. Missing file is fine;
// a present-but-unparsable file is an error.
func ResolveConfig(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{ConfigPath: path}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}

	if cfg != nil {
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		apply(&out.Table, cfg.Schema.Table, SourceConfig, path)
		apply(&out.IDCol, cfg.Schema.IDCol, SourceConfig, path)
		apply(&out.NameCol, cfg.Schema.NameCol, SourceConfig, path)
		apply(&out.NormCol, cfg.Schema.NormCol, SourceConfig, path)
		apply(&out.KeyCol, cfg.Schema.KeyCol, SourceConfig, path)
		apply(&out.PopCol, cfg.Schema.PopCol, SourceConfig, path)
		apply(&out.AutoScore, cfg.Thresholds.AutoScore, SourceConfig, path)
		apply(&out.MinMargin, cfg.Thresholds.MinMargin, SourceConfig, path)
		apply(&out.TopK, cfg.Thresholds.TopK, SourceConfig, path)
		apply(&out.PrefixLimit, cfg.Retrieval.PrefixLimit, SourceConfig, path)
		apply(&out.FullTextLimit, cfg.Retrieval.FullTextLimit, SourceConfig, path)
		apply(&out.SubstringLimit, cfg.Retrieval.SubstringLimit, SourceConfig, path)
		apply(&out.MinCandidates, cfg.Retrieval.MinCandidates, SourceConfig, path)
		out.Timing = cfg.Timing
	}

	applyEnv(&out.DBPath, "ROSTER_DB")
	applyEnv(&out.DBPath, "ROSTER_DB_PATH")
	applyEnv(&out.Table, "ROSTER_TABLE")
	applyEnv(&out.AutoScore, "ROSTER_AUTO_SCORE")
	applyEnv(&out.MinMargin, "ROSTER_MIN_MARGIN")
	applyEnv(&out.TopK, "ROSTER_TOP_K")
	applyEnv(&out.PrefixLimit, "ROSTER_PREFIX_LIMIT")
	applyEnv(&out.FullTextLimit, "ROSTER_FULLTEXT_LIMIT")
	applyEnv(&out.SubstringLimit, "ROSTER_SUBSTRING_LIMIT")
	applyEnv(&out.MinCandidates, "ROSTER_MIN_CANDIDATES")
	if v := strings.TrimSpace(os.Getenv("ROSTER_TIMING")); v != "" {
		out.Timing = v == "true" || v == "1"
	}

	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "--db")
	if opts.CLITiming {
		out.Timing = true
	}

	if out.DBPath.Value != "" {
		out.DBPath.Value = expandUserPath(out.DBPath.Value)
	}

	return out, nil
}

// Schema materializes the configured schema identifiers, defaulting any
// that were left unset.
func (r ResolvedConfig) Schema() store.Schema {
	sc := store.DefaultSchema()
	set := func(dst *string, v ResolvedValue) {
		if strings.TrimSpace(v.Value) != "" {
			*dst = strings.TrimSpace(v.Value)
		}
	}
	set(&sc.Table, r.Table)
	set(&sc.IDCol, r.IDCol)
	set(&sc.NameCol, r.NameCol)
	set(&sc.NormCol, r.NormCol)
	set(&sc.KeyCol, r.KeyCol)
	set(&sc.PopCol, r.PopCol)
	return sc
}

// PipelineConfig materializes the numeric tuning into a resolve.Config.
// Unparsable numbers are malformed configuration and error out rather
// than silently falling back.
func (r ResolvedConfig) PipelineConfig() (resolve.Config, error) {
	cfg := resolve.DefaultConfig()
	cfg.Timing = r.Timing

	fields := []struct {
		name string
		rv   ResolvedValue
		setF func(float64)
		setI func(int)
	}{
		{"auto_score", r.AutoScore, func(v float64) { cfg.AutoScore = v }, nil},
		{"min_margin", r.MinMargin, func(v float64) { cfg.MinMargin = v }, nil},
		{"top_k", r.TopK, nil, func(v int) { cfg.TopK = v }},
		{"prefix_limit", r.PrefixLimit, nil, func(v int) { cfg.PrefixLimit = v }},
		{"fulltext_limit", r.FullTextLimit, nil, func(v int) { cfg.FullTextLimit = v }},
		{"substring_limit", r.SubstringLimit, nil, func(v int) { cfg.SubstringLimit = v }},
		{"min_candidates", r.MinCandidates, nil, func(v int) { cfg.MinCandidates = v }},
	}

	for _, f := range fields {
		v := strings.TrimSpace(f.rv.Value)
		if v == "" {
			continue
		}
		if f.setF != nil {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return cfg, fmt.Errorf("%s: invalid number %q (from %s)", f.name, v, f.rv.From)
			}
			f.setF(parsed)
			continue
		}
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: invalid integer %q (from %s)", f.name, v, f.rv.From)
		}
		f.setI(parsed)
	}

	return cfg, nil
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
