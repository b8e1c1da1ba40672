// Package match implements the name matching heuristics used to pair scanned
// records with external ground-truth entities, plus ordered keyword rule
// lists for classification.
package match

import "strings"

// Normalize canonicalizes an identifying string: uppercase fold and trim.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Matches reports whether a scanned record's name corresponds to a target
// entity name. True when the normalized target is a substring of the
// normalized candidate, or when either of the target's first two whitespace
// tokens appears as a substring of the candidate.
//
// The token fallback is deliberately permissive: it over-matches records
// sharing a common first word and misses multi-word products with no overlap
// in the first two positions. Matches feed a human-reviewed pipeline, so the
// trade-off favors recall.
func Matches(candidate, target string) bool {
	c := Normalize(candidate)
	t := Normalize(target)
	if c == "" || t == "" {
		return false
	}
	if strings.Contains(c, t) {
		return true
	}

	tokens := strings.Fields(t)
	if len(tokens) > 2 {
		tokens = tokens[:2]
	}
	for _, tok := range tokens {
		if strings.Contains(c, tok) {
			return true
		}
	}
	return false
}

// Rule pairs a predicate over a normalized name with the outcome to assign
// when it fires.
type Rule struct {
	Name    string
	Match   func(name string) bool
	Outcome string
}

// RuleList is an ordered set of classification rules evaluated
// first-match-wins. Order is significant: a name can satisfy several rules
// and the earliest one decides.
type RuleList []Rule

// Evaluate returns the outcome of the first rule whose predicate accepts the
// normalized name. ok is false when no rule fires.
func (rl RuleList) Evaluate(name string) (outcome string, ok bool) {
	n := Normalize(name)
	for _, r := range rl {
		if r.Match(n) {
			return r.Outcome, true
		}
	}
	return "", false
}

// AnyKeyword returns a predicate that accepts names containing any of the
// given keywords. Keywords are normalized once at construction.
func AnyKeyword(keywords ...string) func(string) bool {
	normalized := make([]string, len(keywords))
	for i, kw := range keywords {
		normalized[i] = Normalize(kw)
	}
	return func(name string) bool {
		for _, kw := range normalized {
			if kw != "" && strings.Contains(name, kw) {
				return true
			}
		}
		return false
	}
}

// Always returns a predicate that accepts every name. Used as the trailing
// default rule in a RuleList.
func Always() func(string) bool {
	return func(string) bool { return true }
}
