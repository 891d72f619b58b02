package catalog

import (
	"strconv"
	"strings"
)

// Rand is the random source used for selection and formatting.
// *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

// Method reports how a post was chosen.
type Method string

const (
	ByIndex  Method = "index"
	ByType   Method = "type"
	ByRandom Method = "random"
)

// Criteria narrows the selection.
//
// Number is a raw 1-based index; it only counts when it is all digits and in
// range. Type filters by category unless it is empty or DefaultType.
type Criteria struct {
	Number string
	Type   string
}

// Selection is the chosen post plus how it was chosen.
type Selection struct {
	Post   Post
	Method Method
	// IndexIgnored is set when a numeric Number was given but fell outside
	// the catalog, so selection fell back to type/random.
	IndexIgnored bool
}

// Select returns exactly one post from c.
//
// Precedence: a valid index wins outright; otherwise a non-default type
// filter with at least one match picks uniformly among the matches;
// otherwise a post is picked uniformly from the whole catalog.
func Select(c *Catalog, crit Criteria, rng Rand) (Selection, error) {
	n := c.Len()
	if n == 0 {
		return Selection{}, ErrEmptyCatalog
	}

	var sel Selection
	if idx, ok := parseNumber(crit.Number); ok {
		if p, ok := c.At(idx - 1); ok {
			return Selection{Post: p, Method: ByIndex}, nil
		}
		sel.IndexIgnored = true
	}

	if typ := strings.TrimSpace(crit.Type); typ != "" && typ != DefaultType {
		if matches := c.OfType(typ); len(matches) > 0 {
			sel.Post = matches[rng.IntN(len(matches))]
			sel.Method = ByType
			return sel, nil
		}
	}

	sel.Post = c.posts[rng.IntN(n)]
	sel.Method = ByRandom
	return sel, nil
}

// parseNumber accepts only a non-empty run of ASCII digits.
func parseNumber(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		// Too large to be a position in any catalog.
		return 0, true
	}
	return n, true
}
