package alias

import (
	"strings"

	"github.com/agentstation/attrmap/pkg/constants"
	"github.com/agentstation/attrmap/pkg/flatten"
)

// Match describes a successful alias resolution.
type Match struct {
	Alias string  // alias as supplied by the caller
	Key   string  // original flattened path
	Value string  // resolved value
	Score float64 // 1.0 for containment hits
}

// Matcher resolves the first alias of a bag that matches an indexed key.
type Matcher interface {
	Match(idx *Index, aliases Bag) (Match, bool)
}

// Containment matches when the normalized alias and key are substrings of
// each other in either direction. Aliases are tried in order and, for each
// alias, keys are scanned in insertion order; the first hit wins.
//
// Short generic aliases can hit unrelated keys. Use Scored to trade recall
// for precision.
type Containment struct{}

// Match implements Matcher.
func (Containment) Match(idx *Index, aliases Bag) (Match, bool) {
	for _, a := range aliases {
		na := NormalizeKey(a)
		if na == "" {
			continue
		}
		for _, nk := range idx.keys {
			if contains(na, nk) {
				return Match{Alias: a, Key: idx.paths[nk], Value: idx.values[nk], Score: 1}, true
			}
		}
	}
	return Match{}, false
}

// Scored weighs every candidate key by similarity and accepts the best key
// of the first alias that reaches Threshold.
//
// Identical tokens score 1. A containment hit scores by how much of the
// longer token the shorter one covers, lifted into [0.5, 1]. Other pairs
// use normalized Levenshtein similarity. Alias order is preserved, so
// caches learned with Containment keep resolving to the same fields when
// their aliases are specific.
type Scored struct {
	Threshold float64
}

// NewScored returns a Scored matcher, falling back to the default threshold
// for values outside (0, 1].
func NewScored(threshold float64) Scored {
	if threshold <= 0 || threshold > 1 {
		threshold = constants.DefaultMatchThreshold
	}
	return Scored{Threshold: threshold}
}

// Match implements Matcher.
func (s Scored) Match(idx *Index, aliases Bag) (Match, bool) {
	threshold := s.Threshold
	if threshold <= 0 || threshold > 1 {
		threshold = constants.DefaultMatchThreshold
	}
	for _, a := range aliases {
		na := NormalizeKey(a)
		if na == "" {
			continue
		}
		best, bestKey := 0.0, ""
		for _, nk := range idx.keys {
			if score := Similarity(na, nk); score > best {
				best, bestKey = score, nk
				if best == 1 {
					break
				}
			}
		}
		if bestKey != "" && best >= threshold {
			return Match{Alias: a, Key: idx.paths[bestKey], Value: idx.values[bestKey], Score: best}, true
		}
	}
	return Match{}, false
}

// Similarity scores two normalized tokens in [0, 1].
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	if contains(a, b) {
		short, long := len(a), len(b)
		if short > long {
			short, long = long, short
		}
		return 0.5 + 0.5*float64(short)/float64(long)
	}
	return levenshteinSimilarity(a, b)
}

func contains(a, b string) bool {
	return strings.Contains(b, a) || strings.Contains(a, b)
}

// FindValue resolves src against rec with containment matching.
func FindValue(rec *flatten.Record, src any) (string, bool) {
	m, ok := Containment{}.Match(NewIndex(rec), NewBag(src))
	return m.Value, ok
}
