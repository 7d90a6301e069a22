package main

import (
	"github.com/agext/levenshtein"
)

// commands are the subcommands eligible for typo suggestions.
var commands = []string{
	"resolve", "check", "import", "seed-demo", "stats", "serve-mcp", "version", "help",
}

// maxSuggestCost caps the edit distance tolerated before suggestions stop.
const maxSuggestCost = 3

// suggestCommand returns a known command close to the given input, or the
// empty string when nothing is close enough. Earlier commands win ties.
func suggestCommand(given string) string {
	for _, cmd := range commands {
		dist := levenshtein.Distance(given, cmd, levenshtein.NewParams().MaxCost(maxSuggestCost))
		if dist < maxSuggestCost {
			return cmd
		}
	}
	return ""
}
