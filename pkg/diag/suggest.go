package diag

import (
	"fmt"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

const suggestThreshold = 0.6

// Closest returns the candidate most similar to name, if any is similar
// enough to be a likely typo.
func Closest(name string, candidates []string) (string, bool) {
	metric := metrics.NewLevenshtein()
	best, bestScore := "", 0.0
	for _, c := range candidates {
		if c == name {
			continue
		}
		if score := strutil.Similarity(name, c, metric); score > bestScore {
			best, bestScore = c, score
		}
	}
	return best, bestScore >= suggestThreshold
}

// Suggest formats a "did you mean" hint, or returns "" when nothing is close.
func Suggest(name string, candidates []string) string {
	if best, ok := Closest(name, candidates); ok {
		return fmt.Sprintf(" (did you mean '%s'?)", best)
	}
	return ""
}
