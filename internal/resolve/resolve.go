// Package resolve composes the name-resolution pipeline: normalize the
// input, probe for an exact match, and on a miss retrieve, rank, and gate
// the result behind confidence thresholds.
//
// A resolution is a pure function of its input and the directory state at
// call time. The pipeline holds no mutable state, caches nothing across
// calls, and never raises for "no good match" — only infrastructure
// failures surface as errors.
package resolve

import (
	"context"
	"fmt"
	"math"

	"github.com/hurttlocker/roster/internal/normalize"
	"github.com/hurttlocker/roster/internal/rank"
	"github.com/hurttlocker/roster/internal/search"
	"github.com/hurttlocker/roster/internal/store"
)

// Default thresholds, tuned for person names.
const (
	DefaultAutoScore = 90.0
	DefaultMinMargin = 5.0
)

// Config is the full tuning surface of one pipeline instance. Construct
// once, pass to New; independent pipelines can carry different Configs.
type Config struct {
	// AutoScore is the minimum top-1 score for auto-acceptance.
	AutoScore float64
	// MinMargin is the minimum gap between top-1 and top-2 scores.
	MinMargin float64
	// TopK bounds the ranked suggestion list.
	TopK int

	// Retrieval bounds, passed through to the cascade.
	PrefixLimit    int
	FullTextLimit  int
	SubstringLimit int
	MinCandidates  int

	// Timing populates the diagnostic breakdown on results.
	Timing bool
}

// DefaultConfig returns the shipped tuning.
func DefaultConfig() Config {
	sc := search.DefaultConfig()
	return Config{
		AutoScore:      DefaultAutoScore,
		MinMargin:      DefaultMinMargin,
		TopK:           rank.DefaultTopK,
		PrefixLimit:    sc.PrefixLimit,
		FullTextLimit:  sc.FullTextLimit,
		SubstringLimit: sc.SubstringLimit,
		MinCandidates:  sc.MinCandidates,
	}
}

// Result is the sole output of a resolution. Immutable once returned.
type Result struct {
	Input    string `json:"input"`
	NameNorm string `json:"name_norm"`

	// Exact is set when the normalized input matched a record verbatim;
	// ranking is skipped entirely in that case.
	Exact *store.Person `json:"exact,omitempty"`

	// Ranked holds the scored suggestions, best first. Empty on exact
	// hits and when retrieval found nothing.
	Ranked []rank.Scored `json:"ranked,omitempty"`

	// Auto reports whether Best is confident enough to use unconfirmed.
	Auto bool `json:"auto"`

	// Best is the selected record: the exact hit, or ranked[0] whenever
	// the ranked list is non-empty — even when Auto is false.
	Best *store.Person `json:"best,omitempty"`

	// Reason encodes the decision for observability, e.g. "exact",
	// "no-candidates", "auto(top1=91.0,margin=12.0)".
	Reason string `json:"reason"`

	// CandidateCount is how many unique records retrieval produced.
	CandidateCount int `json:"candidate_count"`

	// Timing is the retrieval breakdown; nil unless Config.Timing is set.
	Timing *search.Diagnostics `json:"timing,omitempty"`
}

// Pipeline resolves raw names against one directory with one Config.
// Safe for concurrent use: resolutions share nothing but the read-only
// directory.
type Pipeline struct {
	dir       store.Directory
	cfg       Config
	retriever *search.Retriever
}

// New creates a Pipeline. Zero-value Config fields fall back to defaults.
func New(dir store.Directory, cfg Config) *Pipeline {
	def := DefaultConfig()
	if cfg.AutoScore <= 0 {
		cfg.AutoScore = def.AutoScore
	}
	if cfg.MinMargin <= 0 {
		cfg.MinMargin = def.MinMargin
	}
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	return &Pipeline{
		dir: dir,
		cfg: cfg,
		retriever: search.NewRetriever(dir, search.Config{
			PrefixLimit:    cfg.PrefixLimit,
			FullTextLimit:  cfg.FullTextLimit,
			SubstringLimit: cfg.SubstringLimit,
			MinCandidates:  cfg.MinCandidates,
		}),
	}
}

// Resolve runs the full pipeline for one raw input.
func (p *Pipeline) Resolve(ctx context.Context, raw string) (*Result, error) {
	res := &Result{
		Input:    raw,
		NameNorm: normalize.Name(raw),
	}

	// Input that normalizes to nothing can't match anything; don't
	// bother the store.
	if res.NameNorm == "" {
		res.Reason = "no-candidates"
		return res, nil
	}

	hit, err := p.dir.FindExact(ctx, res.NameNorm)
	if err != nil {
		return nil, fmt.Errorf("exact probe: %w", err)
	}
	if hit != nil {
		// Exact matches are never second-guessed by fuzzy scoring.
		res.Exact = hit
		res.Best = hit
		res.Auto = true
		res.Reason = "exact"
		return res, nil
	}

	candidates, diag, err := p.retriever.Candidates(ctx, res.NameNorm, normalize.Key(raw))
	if err != nil {
		return nil, fmt.Errorf("retrieving candidates: %w", err)
	}
	res.CandidateCount = len(candidates)
	if p.cfg.Timing {
		res.Timing = diag
	}

	res.Ranked = rank.Top(res.NameNorm, candidates, p.cfg.TopK)
	res.Auto, res.Best, res.Reason = decide(res.Ranked, p.cfg.AutoScore, p.cfg.MinMargin)
	return res, nil
}

// decide applies the confidence gate to a ranked list. The best candidate
// is returned whenever the list is non-empty, auto-accepted or not, so
// callers always get a best-effort suggestion. With a single candidate the
// margin check is satisfied by policy: there is no second score to beat.
func decide(ranked []rank.Scored, autoScore, minMargin float64) (bool, *store.Person, string) {
	if len(ranked) == 0 {
		return false, nil, "no-candidates"
	}

	top1 := ranked[0].Score
	margin := math.Inf(1)
	if len(ranked) > 1 {
		margin = top1 - ranked[1].Score
	}

	best := &ranked[0].Person
	if top1 >= autoScore && margin >= minMargin {
		return true, best, fmt.Sprintf("auto(top1=%.1f,margin=%s)", top1, formatMargin(margin))
	}
	return false, best, fmt.Sprintf("suggest(top1=%.1f,margin=%s)", top1, formatMargin(margin))
}

func formatMargin(m float64) string {
	if math.IsInf(m, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.1f", m)
}
