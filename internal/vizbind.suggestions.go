package internal

import (
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"
)

// KeyLister lists the names visible to an expression. Scope implements it.
type KeyLister interface {
	Keys() []string
}

// FindSimilarStrings returns up to maxSuggestions candidates that look like
// target. Candidates within a small Levenshtein distance come first, followed
// by fuzzy subsequence matches ("team" finds "teams" and "team_name").
func FindSimilarStrings(target string, candidates []string, maxSuggestions int) []string {
	if target == "" || len(candidates) == 0 || maxSuggestions <= 0 {
		return nil
	}

	maxDistance := max(len(target)/2, 2)

	type scored struct {
		str      string
		distance int
	}

	var similar []scored
	targetLower := strings.ToLower(target)
	for _, candidate := range candidates {
		if candidate == target {
			continue
		}
		dist := levenshteinDistance(targetLower, strings.ToLower(candidate))
		if dist <= maxDistance {
			similar = append(similar, scored{str: candidate, distance: dist})
		}
	}
	slices.SortStableFunc(similar, func(a, b scored) int {
		return a.distance - b.distance
	})

	result := make([]string, 0, maxSuggestions)
	for _, s := range similar {
		if len(result) == maxSuggestions {
			return result
		}
		result = append(result, s.str)
	}

	for _, m := range fuzzy.Find(target, candidates) {
		if len(result) == maxSuggestions {
			break
		}
		if m.Str == target || slices.Contains(result, m.Str) {
			continue
		}
		result = append(result, m.Str)
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

// levenshteinDistance calculates the minimum number of single-character
// edits required to change a into b.
func levenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
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

	return prev[len(rb)]
}

// FormatSuggestions formats a list of suggestions as a human-readable string.
// Example output: ". Did you mean 'name', 'names' or 'named'?"
func FormatSuggestions(suggestions []string) string {
	if len(suggestions) == 0 {
		return ""
	}

	if len(suggestions) == 1 {
		return ". Did you mean '" + suggestions[0] + "'?"
	}

	var sb strings.Builder
	sb.WriteString(". Did you mean ")
	for i, s := range suggestions {
		if i > 0 {
			if i == len(suggestions)-1 {
				sb.WriteString(" or ")
			} else {
				sb.WriteString(", ")
			}
		}
		sb.WriteByte('\'')
		sb.WriteString(s)
		sb.WriteByte('\'')
	}
	sb.WriteByte('?')
	return sb.String()
}
