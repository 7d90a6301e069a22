package normalize

import "strings"

// minWildcardLen is the shortest token that gets prefix expansion.
// Wildcarding very short tokens floods the match set with noise.
const minWildcardLen = 4

// BooleanQuery builds an FTS5 boolean query from normalized tokens.
// Tokens of length >= 4 get a trailing '*' for prefix expansion; shorter
// tokens stay exact. Tokens are joined by single spaces in the given order
// (FTS5 treats adjacency as AND, so every term is required). An empty token
// list yields an empty string, which callers must treat as "skip full-text".
func BooleanQuery(tokens []string) string {
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if len(t) >= minWildcardLen {
			parts = append(parts, t+"*")
		} else {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
