package layers

import "strings"

// Tier identifies which matching rule produced a hit.
type Tier int

const (
	TierNone Tier = iota
	TierExact
	TierCaseInsensitive
	TierSubstring
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierCaseInsensitive:
		return "caseInsensitive"
	case TierSubstring:
		return "substring"
	default:
		return "none"
	}
}

// Find locates the layer matching candidate. Tiers are tried in order and the
// first tier with any match wins; within a tier the first node in pre-order
// wins:
//
//  1. exact, case-sensitive name
//  2. case-insensitive exact name
//  3. case-insensitive substring in either direction
//
// An empty candidate never matches, and unnamed layers never match tier 3.
func Find(t *Tree, candidate string) (NodeID, bool) {
	id, tier := FindWithTier(t, candidate)
	return id, tier != TierNone
}

// FindWithTier is Find that also reports the tier that matched.
func FindWithTier(t *Tree, candidate string) (NodeID, Tier) {
	if t == nil || candidate == "" {
		return Root, TierNone
	}

	lowerCand := strings.ToLower(candidate)
	best, bestTier := Root, TierNone

	t.Walk(func(id NodeID, n Node) bool {
		tier := matchTier(n.Name, candidate, lowerCand)
		if tier == TierNone {
			return true
		}
		if bestTier == TierNone || tier < bestTier {
			best, bestTier = id, tier
		}
		// Nothing beats an exact hit, and it is first in order.
		return bestTier != TierExact
	})

	return best, bestTier
}

func matchTier(name, candidate, lowerCand string) Tier {
	if name == candidate {
		return TierExact
	}
	lowerName := strings.ToLower(name)
	if lowerName == lowerCand {
		return TierCaseInsensitive
	}
	if lowerName != "" && (strings.Contains(lowerName, lowerCand) || strings.Contains(lowerCand, lowerName)) {
		return TierSubstring
	}
	return TierNone
}

// FindAny tries candidates in order and returns the first hit together with
// the candidate that produced it.
func FindAny(t *Tree, candidates []string) (NodeID, string, bool) {
	for _, c := range candidates {
		if id, ok := Find(t, c); ok {
			return id, c, true
		}
	}
	return Root, "", false
}
