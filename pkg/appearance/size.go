package appearance

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// Size is an icon size in points at a given scale factor. A 128x128@2x icon is
// 256 pixels wide.
type Size struct {
	Points int
	Scale  int
}

// Pixels returns the pixel dimension of the size.
func (s Size) Pixels() int {
	return s.Points * s.Scale
}

func (s Size) String() string {
	if s.Scale == 1 {
		return fmt.Sprintf("%dx%d", s.Points, s.Points)
	}
	return fmt.Sprintf("%dx%d@%dx", s.Points, s.Points, s.Scale)
}

// Valid reports whether s can describe an icon source: points a power of two
// between 16 and 1024, scale 1 or 2.
func (s Size) Valid() bool {
	if s.Scale != 1 && s.Scale != 2 {
		return false
	}
	if s.Points < 16 || s.Points > 1024 {
		return false
	}
	return s.Points&(s.Points-1) == 0
}

// Less orders sizes by pixel dimension, then by point size.
func (s Size) Less(o Size) bool {
	if s.Pixels() != o.Pixels() {
		return s.Pixels() < o.Pixels()
	}
	return s.Points < o.Points
}

var sizeRegexp = regexp.MustCompile(`^(\d+)x(\d+)(?:@(\d+)x)?$`)

// ParseSize parses sizes written as "128x128" or "128x128@2x".
func ParseSize(s string) (Size, error) {
	m := sizeRegexp.FindStringSubmatch(s)
	if m == nil {
		return Size{}, fmt.Errorf("invalid icon size %q", s)
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	if w != h {
		return Size{}, fmt.Errorf("icon size %q is not square", s)
	}
	scale := 1
	if m[3] != "" {
		scale, _ = strconv.Atoi(m[3])
	}
	size := Size{Points: w, Scale: scale}
	if !size.Valid() {
		return Size{}, fmt.Errorf("icon size %q is not a supported size", s)
	}
	return size, nil
}

// Cell is a slot of the output container: one appearance at one size.
type Cell struct {
	Tag  Tag
	Size Size
}

func (c Cell) String() string {
	return c.Tag.String() + "/" + c.Size.String()
}

// Less orders cells by tag, then size.
func (c Cell) Less(o Cell) bool {
	if c.Tag != o.Tag {
		return c.Tag < o.Tag
	}
	return c.Size.Less(o.Size)
}

// SortCells sorts cells in container order.
func SortCells(cells []Cell) {
	sort.Slice(cells, func(i, j int) bool { return cells[i].Less(cells[j]) })
}

// Table is the list of sizes a platform requires for every enabled appearance.
type Table []Size

// MacOS is the macOS application icon table.
var MacOS = Table{
	{16, 1}, {16, 2},
	{32, 1}, {32, 2},
	{128, 1}, {128, 2},
	{256, 1}, {256, 2},
	{512, 1}, {512, 2},
}

// Cells returns the required cells for the given tags, in container order.
func (t Table) Cells(tags []Tag) []Cell {
	cells := make([]Cell, 0, len(t)*len(tags))
	seen := make(map[Cell]bool, cap(cells))
	for _, tag := range tags {
		for _, size := range t {
			c := Cell{Tag: tag, Size: size}
			if seen[c] {
				continue
			}
			seen[c] = true
			cells = append(cells, c)
		}
	}
	SortCells(cells)
	return cells
}
