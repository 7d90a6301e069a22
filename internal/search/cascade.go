package search

import (
	"context"
	"sort"
	"time"

	"github.com/hurttlocker/roster/internal/normalize"
	"github.com/hurttlocker/roster/internal/store"
)

// Defaults match the tuning the pipeline shipped with.
const (
	DefaultPrefixLimit    = 5000
	DefaultFullTextLimit  = 20000
	DefaultSubstringLimit = 20000
	DefaultMinCandidates  = 200

	// maxKeyPrefix caps how much of the input key the prefix strategy
	// uses. A typo in the tail of a long name must not empty the probe.
	maxKeyPrefix = 6

	// maxQueryTokens caps how many tokens feed the boolean query.
	// Longest tokens carry the most signal.
	maxQueryTokens = 3
)

// Config bounds each strategy and sets the short-circuit threshold.
type Config struct {
	PrefixLimit    int
	FullTextLimit  int
	SubstringLimit int
	MinCandidates  int
}

// DefaultConfig returns the default retrieval configuration.
func DefaultConfig() Config {
	return Config{
		PrefixLimit:    DefaultPrefixLimit,
		FullTextLimit:  DefaultFullTextLimit,
		SubstringLimit: DefaultSubstringLimit,
		MinCandidates:  DefaultMinCandidates,
	}
}

// StrategyStats records one strategy's contribution, for diagnostics only.
// Ranking never reads these.
type StrategyStats struct {
	Strategy string        `json:"strategy"`
	Rows     int           `json:"rows"`
	Elapsed  time.Duration `json:"elapsed"`
	Err      string        `json:"err,omitempty"`
}

// Diagnostics is the per-retrieval timing breakdown.
type Diagnostics struct {
	Elapsed    time.Duration   `json:"elapsed"`
	Strategies []StrategyStats `json:"strategies"`
}

// Retriever runs the candidate cascade against a directory.
type Retriever struct {
	dir store.Directory
	cfg Config
}

// NewRetriever creates a Retriever. Zero or negative config fields fall
// back to the defaults.
func NewRetriever(dir store.Directory, cfg Config) *Retriever {
	def := DefaultConfig()
	if cfg.PrefixLimit <= 0 {
		cfg.PrefixLimit = def.PrefixLimit
	}
	if cfg.FullTextLimit <= 0 {
		cfg.FullTextLimit = def.FullTextLimit
	}
	if cfg.SubstringLimit <= 0 {
		cfg.SubstringLimit = def.SubstringLimit
	}
	if cfg.MinCandidates <= 0 {
		cfg.MinCandidates = def.MinCandidates
	}
	return &Retriever{dir: dir, cfg: cfg}
}

// Candidates returns the deduplicated candidate set for a normalized input,
// plus the per-strategy diagnostics. An empty nameNorm short-circuits to an
// empty set without touching the store. Only fatal store errors are
// returned; any other strategy failure is recorded in the diagnostics and
// treated as zero rows.
func (r *Retriever) Candidates(ctx context.Context, nameNorm, nameKey string) ([]store.Person, *Diagnostics, error) {
	diag := &Diagnostics{}
	if nameNorm == "" {
		return nil, diag, nil
	}

	started := time.Now()
	defer func() { diag.Elapsed = time.Since(started) }()

	var merged []store.Person
	seen := make(map[int64]struct{})

	// Dedup by ID across strategies; the first strategy to produce a
	// record wins, later duplicates are dropped.
	absorb := func(people []store.Person) {
		for _, p := range people {
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			merged = append(merged, p)
		}
	}

	// 1) Prefix on the key column (index-friendly).
	rows, err := r.runStrategy(diag, "prefix", func() ([]store.Person, error) {
		return r.dir.QueryPrefix(ctx, keyPrefix(nameKey), r.cfg.PrefixLimit)
	})
	if err != nil {
		return nil, diag, err
	}
	absorb(rows)
	if len(merged) >= r.cfg.MinCandidates {
		return merged, diag, nil
	}

	// 2) Full-text boolean query, when the index exists.
	if r.dir.SupportsFullText() {
		if q := normalize.BooleanQuery(queryTokens(nameNorm)); q != "" {
			rows, err := r.runStrategy(diag, "fulltext", func() ([]store.Person, error) {
				return r.dir.QueryFullText(ctx, q, r.cfg.FullTextLimit)
			})
			if err != nil {
				return nil, diag, err
			}
			absorb(rows)
			if len(merged) >= r.cfg.MinCandidates {
				return merged, diag, nil
			}
		}
	}

	// 3) Substring scan, last resort.
	rows, err = r.runStrategy(diag, "substring", func() ([]store.Person, error) {
		return r.dir.QuerySubstring(ctx, nameNorm, r.cfg.SubstringLimit)
	})
	if err != nil {
		return nil, diag, err
	}
	absorb(rows)

	return merged, diag, nil
}

// runStrategy times one strategy and applies the containment policy:
// fatal store errors propagate, anything else becomes zero rows.
func (r *Retriever) runStrategy(diag *Diagnostics, name string, fn func() ([]store.Person, error)) ([]store.Person, error) {
	stats := StrategyStats{Strategy: name}
	started := time.Now()
	rows, err := fn()
	stats.Elapsed = time.Since(started)

	if err != nil {
		if store.IsFatal(err) {
			diag.Strategies = append(diag.Strategies, stats)
			return nil, err
		}
		stats.Err = err.Error()
		rows = nil
	}
	stats.Rows = len(rows)
	diag.Strategies = append(diag.Strategies, stats)
	return rows, nil
}

// keyPrefix truncates the input key for the prefix probe.
func keyPrefix(nameKey string) string {
	if len(nameKey) > maxKeyPrefix {
		return nameKey[:maxKeyPrefix]
	}
	return nameKey
}

// queryTokens picks the tokens that feed the boolean query: the longest
// ones first, capped at maxQueryTokens.
func queryTokens(nameNorm string) []string {
	tokens := normalize.Tokens(nameNorm)
	sort.SliceStable(tokens, func(i, j int) bool {
		return len(tokens[i]) > len(tokens[j])
	})
	if len(tokens) > maxQueryTokens {
		tokens = tokens[:maxQueryTokens]
	}
	return tokens
}
