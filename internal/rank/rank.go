// Package rank scores retrieval candidates against the normalized input
// and orders them for the decision engine.
//
// Scoring uses the weighted ratio from go-fuzzywuzzy, a composite of
// sequence-similarity measures that tolerates partial overlaps, reordered
// tokens, and length differences, bounded to [0, 100]. Ordering is a stable
// sort on score descending, then popularity descending, so identical inputs
// against identical directory state always rank the same way.
package rank

import (
	"sort"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/hurttlocker/roster/internal/store"
)

// DefaultTopK is how many suggestions survive ranking by default.
const DefaultTopK = 10

// Scored is a candidate with its similarity score, ephemeral within one
// resolution.
type Scored struct {
	Person store.Person `json:"person"`
	Score  float64      `json:"score"`
}

// Top scores every candidate against nameNorm and returns the best k,
// highest first. Asking for more than available yields exactly the
// available count. k <= 0 falls back to DefaultTopK.
func Top(nameNorm string, candidates []store.Person, k int) []Scored {
	if len(candidates) == 0 {
		return nil
	}
	if k <= 0 {
		k = DefaultTopK
	}

	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, Scored{
			Person: c,
			Score:  float64(fuzzy.WRatio(nameNorm, c.NameNorm)),
		})
	}

	// Stable so that candidates tied on both keys keep retrieval order,
	// making repeated calls reproducible.
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Person.Popularity > scored[j].Person.Popularity
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
