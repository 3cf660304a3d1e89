package scoring

import (
	"sort"
	"strings"
	"unicode"
)

// stopwords are excluded from token-based similarity and search-term
// derivation. Short function words carry no duplicate signal.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "is": {}, "are": {}, "was": {}, "be": {},
	"this": {}, "that": {}, "it": {}, "as": {}, "from": {}, "we": {},
	"should": {}, "will": {}, "need": {}, "needs": {},
}

// normalize case-folds text and collapses all whitespace runs to single
// spaces, stripping punctuation down to word characters.
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	lastSpace := true
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// tokenize splits normalized text into tokens of three or more characters,
// dropping stopwords.
func tokenize(text string) []string {
	fields := strings.Fields(normalize(text))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// tokenSet returns the deduplicated token set of the text
func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range tokenize(text) {
		set[tok] = struct{}{}
	}
	return set
}

// tokenSortRatio computes a normalized string-distance ratio between two
// texts. Both sides are normalized, their tokens sorted, and the ratio is
// 1 - levenshtein/maxLen over the sorted token streams. This is an explicit,
// fixed algorithm: identical content in any token order scores 1.0,
// disjoint vocabularies score near 0. Empty text on either side scores 0.
func tokenSortRatio(a, b string) float64 {
	sa := sortedTokenString(a)
	sb := sortedTokenString(b)
	if sa == "" || sb == "" {
		return 0
	}
	if sa == sb {
		return 1
	}
	maxLen := len(sa)
	if len(sb) > maxLen {
		maxLen = len(sb)
	}
	dist := levenshtein(sa, sb)
	return 1 - float64(dist)/float64(maxLen)
}

func sortedTokenString(text string) string {
	fields := strings.Fields(normalize(text))
	sort.Strings(fields)
	return strings.Join(fields, " ")
}

// jaccard computes the token-set intersection-over-union of two texts.
// Empty token sets on either side score 0.
func jaccard(a, b string) float64 {
	sa := tokenSet(a)
	sb := tokenSet(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	inter := 0
	for tok := range sa {
		if _, ok := sb[tok]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

// levenshtein computes edit distance with a two-row table
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
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
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// SearchTerms extracts the meaningful search terms from task text, in
// first-occurrence order. Used by the orchestrator to build tracker queries.
func SearchTerms(text string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, tok := range tokenize(text) {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		terms = append(terms, tok)
	}
	return terms
}
