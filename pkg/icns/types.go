package icns

import (
	"fmt"

	"github.com/bundlekit/iconbundle/pkg/appearance"
)

// PNG-backed representation types by size.
var representationTypes = map[appearance.Size]OSType{
	{Points: 16, Scale: 1}:  osType("icp4"),
	{Points: 16, Scale: 2}:  osType("ic11"),
	{Points: 32, Scale: 1}:  osType("icp5"),
	{Points: 32, Scale: 2}:  osType("ic12"),
	{Points: 64, Scale: 1}:  osType("icp6"),
	{Points: 128, Scale: 1}: osType("ic07"),
	{Points: 128, Scale: 2}: osType("ic13"),
	{Points: 256, Scale: 1}: osType("ic08"),
	{Points: 256, Scale: 2}: osType("ic14"),
	{Points: 512, Scale: 1}: osType("ic09"),
	{Points: 512, Scale: 2}: osType("ic10"),
}

// Nested family types for non-default appearances. The dark type is the one
// macOS uses for its embedded dark-mode family.
var familyTypes = map[appearance.Tag]OSType{
	appearance.Dark:   {0xFD, 0xD9, 0x2F, 0xA8},
	appearance.Tinted: osType("tint"),
}

// RepresentationType returns the element type for an icon size.
func RepresentationType(s appearance.Size) (OSType, error) {
	t, ok := representationTypes[s]
	if !ok {
		return OSType{}, fmt.Errorf("no icns representation for size %s", s)
	}
	return t, nil
}

// SizeOf returns the icon size stored under a representation type.
func SizeOf(t OSType) (appearance.Size, bool) {
	for s, rt := range representationTypes {
		if rt == t {
			return s, true
		}
	}
	return appearance.Size{}, false
}

// FamilyType returns the nested family element type of a non-default
// appearance.
func FamilyType(tag appearance.Tag) (OSType, bool) {
	t, ok := familyTypes[tag]
	return t, ok
}

func tagOfFamily(t OSType) (appearance.Tag, bool) {
	for tag, ft := range familyTypes {
		if ft == t {
			return tag, true
		}
	}
	return 0, false
}
