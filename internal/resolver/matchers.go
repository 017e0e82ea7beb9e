// internal/resolver/matchers.go
package resolver

import (
	"strings"

	"mcp-plan-generator/internal/models"
)

// fuzzyRatio caps the accepted edit distance at 3/10 of the longer name.
const (
	fuzzyNumerator   = 3
	fuzzyDenominator = 10
)

// Matcher is one resolution tier. Match returns the first catalog entry the
// tier accepts for name.
type Matcher struct {
	Tier  string
	Match func(name string, catalog []models.CatalogExercise) (models.CatalogExercise, bool)
}

// DefaultTiers are tried in order; the first hit wins.
var DefaultTiers = []Matcher{
	{Tier: "exact", Match: ExactMatch},
	{Tier: "case_insensitive", Match: CaseInsensitiveMatch},
	{Tier: "substring", Match: SubstringMatch},
	{Tier: "fuzzy", Match: FuzzyMatch},
}

func ExactMatch(name string, catalog []models.CatalogExercise) (models.CatalogExercise, bool) {
	for _, c := range catalog {
		if c.Name == name {
			return c, true
		}
	}
	return models.CatalogExercise{}, false
}

func CaseInsensitiveMatch(name string, catalog []models.CatalogExercise) (models.CatalogExercise, bool) {
	for _, c := range catalog {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return models.CatalogExercise{}, false
}

// SubstringMatch accepts a catalog name containing the generated name, or
// contained in it, ignoring case.
func SubstringMatch(name string, catalog []models.CatalogExercise) (models.CatalogExercise, bool) {
	needle := strings.ToLower(name)
	if needle == "" {
		return models.CatalogExercise{}, false
	}
	for _, c := range catalog {
		candidate := strings.ToLower(c.Name)
		if candidate == "" {
			continue
		}
		if strings.Contains(candidate, needle) || strings.Contains(needle, candidate) {
			return c, true
		}
	}
	return models.CatalogExercise{}, false
}

// FuzzyMatch picks the catalog entry with the smallest Levenshtein distance
// to name, ignoring case, provided that distance is at most 30% of the longer
// of the two names. Ties go to the entry seen first, and the threshold is
// checked against that entry alone even if a later tied entry is longer.
func FuzzyMatch(name string, catalog []models.CatalogExercise) (models.CatalogExercise, bool) {
	needle := []rune(strings.ToLower(name))

	var (
		best     models.CatalogExercise
		bestDist = -1
		bestLen  int
	)
	for _, c := range catalog {
		candidate := []rune(strings.ToLower(c.Name))
		dist := levenshtein(needle, candidate)
		if bestDist == -1 || dist < bestDist {
			best, bestDist, bestLen = c, dist, max(len(needle), len(candidate))
		}
	}
	if bestDist == -1 {
		return models.CatalogExercise{}, false
	}
	if bestDist*fuzzyDenominator > bestLen*fuzzyNumerator {
		return models.CatalogExercise{}, false
	}
	return best, true
}

// levenshtein is the classic dynamic-programming edit distance over runes,
// keeping only two rows of the matrix.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
