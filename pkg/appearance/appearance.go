// Package appearance describes the appearance variants an application icon can
// ship with, the icon sizes the platform asks for, and the fallback rules used
// when a variant is missing.
package appearance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver"
)

// Tag identifies an appearance variant of an icon. The set of tags is defined
// by what the platform can render, not by the application.
type Tag int

const (
	Default Tag = iota
	Dark
	Tinted
)

// Appearance is the platform metadata attached to a Tag.
type Appearance struct {
	Tag     Tag
	Name    string
	Aliases []string
	// Fallbacks lists, in order, the tags tried when a cell of this tag has no
	// exact source.
	Fallbacks []Tag
	// MinOSVersion is the first OS version able to render this variant. Empty
	// means any version.
	MinOSVersion string
}

var appearances = []Appearance{
	{Tag: Default, Name: "default"},
	{Tag: Dark, Name: "dark", Fallbacks: []Tag{Default}, MinOSVersion: "10.14"},
	{Tag: Tinted, Name: "tinted", Aliases: []string{"clear"}, Fallbacks: []Tag{Dark, Default}, MinOSVersion: "26.0"},
}

// All returns every known tag in canonical order.
func All() []Tag {
	tags := make([]Tag, 0, len(appearances))
	for _, a := range appearances {
		tags = append(tags, a.Tag)
	}
	return tags
}

// Lookup returns the metadata of t.
func Lookup(t Tag) (Appearance, bool) {
	if t < 0 || int(t) >= len(appearances) {
		return Appearance{}, false
	}
	return appearances[t], true
}

func (t Tag) String() string {
	if a, ok := Lookup(t); ok {
		return a.Name
	}
	return fmt.Sprintf("Tag(%d)", int(t))
}

// MinOSVersion returns the minimum OS version able to render t, or "" when
// every version can.
func (t Tag) MinOSVersion() string {
	a, _ := Lookup(t)
	return a.MinOSVersion
}

// ParseTag parses a tag name or alias, case-insensitively.
func ParseTag(s string) (Tag, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, a := range appearances {
		if a.Name == name {
			return a.Tag, nil
		}
		for _, alias := range a.Aliases {
			if alias == name {
				return a.Tag, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown appearance tag %q", s)
}

// ParseTags parses a list of tag names, dropping duplicates and returning the
// result in canonical order.
func ParseTags(names []string) ([]Tag, error) {
	seen := make(map[Tag]bool, len(names))
	var tags []Tag
	for _, n := range names {
		t, err := ParseTag(n)
		if err != nil {
			return nil, err
		}
		if !seen[t] {
			seen[t] = true
			tags = append(tags, t)
		}
	}
	SortTags(tags)
	return tags, nil
}

// SortTags sorts tags in canonical order.
func SortTags(tags []Tag) {
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
}

// Floor returns the highest MinOSVersion among tags, or "" when none of them
// requires one.
func Floor(tags []Tag) (string, error) {
	var (
		floor    *semver.Version
		floorStr string
	)
	for _, t := range tags {
		v := t.MinOSVersion()
		if v == "" {
			continue
		}
		parsed, err := semver.NewVersion(v)
		if err != nil {
			return "", fmt.Errorf("parse minimum OS version of %s: %w", t, err)
		}
		if floor == nil || parsed.GreaterThan(floor) {
			floor, floorStr = parsed, v
		}
	}
	return floorStr, nil
}

// ExceedsVersion reports whether floor is strictly greater than min. An empty
// floor never exceeds; an empty min is exceeded by any non-empty floor.
func ExceedsVersion(floor, min string) (bool, error) {
	if floor == "" {
		return false, nil
	}
	if min == "" {
		return true, nil
	}
	f, err := semver.NewVersion(floor)
	if err != nil {
		return false, fmt.Errorf("parse version %q: %w", floor, err)
	}
	m, err := semver.NewVersion(min)
	if err != nil {
		return false, fmt.Errorf("parse version %q: %w", min, err)
	}
	return f.GreaterThan(m), nil
}
