package appearance

import "fmt"

// FallbackChains maps a tag to the ordered list of tags tried when a cell of
// that tag has no exact source. A tag missing from the map uses the platform
// default from its Appearance.
type FallbackChains map[Tag][]Tag

// DefaultFallbackChains returns the platform fallback chains.
func DefaultFallbackChains() FallbackChains {
	chains := make(FallbackChains, len(appearances))
	for _, a := range appearances {
		chains[a.Tag] = append([]Tag(nil), a.Fallbacks...)
	}
	return chains
}

// Chain returns t followed by its fallbacks. Duplicates and self references
// are dropped.
func (c FallbackChains) Chain(t Tag) []Tag {
	fallbacks, ok := c[t]
	if !ok {
		a, _ := Lookup(t)
		fallbacks = a.Fallbacks
	}
	chain := []Tag{t}
	seen := map[Tag]bool{t: true}
	for _, f := range fallbacks {
		if seen[f] {
			continue
		}
		seen[f] = true
		chain = append(chain, f)
	}
	return chain
}

// ParseFallbackChains builds chains from tag names, e.g.
// {"tinted": ["dark", "default"]}. Tags absent from m keep their defaults.
func ParseFallbackChains(m map[string][]string) (FallbackChains, error) {
	chains := DefaultFallbackChains()
	for from, to := range m {
		tag, err := ParseTag(from)
		if err != nil {
			return nil, err
		}
		list := make([]Tag, 0, len(to))
		for _, name := range to {
			t, err := ParseTag(name)
			if err != nil {
				return nil, fmt.Errorf("fallbacks of %s: %w", tag, err)
			}
			list = append(list, t)
		}
		chains[tag] = list
	}
	return chains, nil
}
