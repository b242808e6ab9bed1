package errz

import (
	"sort"
	"strings"
)

// maxSuggestions caps the number of names offered in a "did you mean" hint.
const maxSuggestions = 3

// SuggestSimilar returns up to three candidates close to target by edit
// distance, nearest first. Short names tolerate fewer edits.
func SuggestSimilar(target string, candidates []string) []string {
	if target == "" {
		return nil
	}
	limit := 3
	switch {
	case len(target) <= 3:
		limit = 1
	case len(target) <= 5:
		limit = 2
	}
	type scored struct {
		name string
		dist int
	}
	var found []scored
	lower := strings.ToLower(target)
	for _, c := range candidates {
		lc := strings.ToLower(c)
		if c == "" || lc == lower {
			continue
		}
		if d := editDistance(lower, lc); d <= limit {
			found = append(found, scored{c, d})
		}
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].dist != found[j].dist {
			return found[i].dist < found[j].dist
		}
		return found[i].name < found[j].name
	})
	if len(found) > maxSuggestions {
		found = found[:maxSuggestions]
	}
	names := make([]string, len(found))
	for i, f := range found {
		names[i] = f.name
	}
	return names
}

// FormatSuggestions renders a hint such as "did you mean 'foo'?".
func FormatSuggestions(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return "did you mean '" + names[0] + "'?"
	}
	return "did you mean one of '" + strings.Join(names, "', '") + "'?"
}

func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	row := make([]int, len(ra)+1)
	for i := range row {
		row[i] = i
	}
	for j := 1; j <= len(rb); j++ {
		diag := row[0]
		row[0] = j
		for i := 1; i <= len(ra); i++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			next := min(row[i]+1, row[i-1]+1, diag+cost)
			diag, row[i] = row[i], next
		}
	}
	return row[len(ra)]
}
