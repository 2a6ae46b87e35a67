package iconset

import (
	"fmt"

	"github.com/bundlekit/iconbundle/pkg/appearance"
	"github.com/hashicorp/go-multierror"
)

// ProvenanceKind tells how a cell was filled.
type ProvenanceKind int

const (
	// ExactMatch means the source has the cell's own appearance and size.
	ExactMatch ProvenanceKind = iota
	// Fallback means the source came from another appearance in the fallback
	// chain, a larger size, or both.
	Fallback
)

func (k ProvenanceKind) String() string {
	if k == ExactMatch {
		return "exact"
	}
	return "fallback"
}

// Provenance records where the source of a resolved cell came from.
type Provenance struct {
	Kind     ProvenanceKind
	From     appearance.Tag
	FromSize appearance.Size
}

func (p Provenance) String() string {
	if p.Kind == ExactMatch {
		return "exact"
	}
	return fmt.Sprintf("fallback<%s/%s>", p.From, p.FromSize)
}

// ResolvedCell binds a required cell to the source that fills it.
type ResolvedCell struct {
	Cell       appearance.Cell
	Source     *SourceImage
	Provenance Provenance
}

// NeedsResample reports whether the source must be resampled to fill the cell.
func (r ResolvedCell) NeedsResample() bool {
	return r.Source.Width != r.Cell.Size.Pixels() || r.Source.Height != r.Cell.Size.Pixels()
}

// Resolution is the complete, ordered set of resolved cells for one icon set.
type Resolution struct {
	Cells []ResolvedCell
}

// SourceTags returns, in canonical order, the appearances of the sources
// actually used. A dark cell filled from a default source contributes
// appearance.Default.
func (r *Resolution) SourceTags() []appearance.Tag {
	seen := make(map[appearance.Tag]bool)
	var tags []appearance.Tag
	for _, c := range r.Cells {
		if !seen[c.Source.Cell.Tag] {
			seen[c.Source.Cell.Tag] = true
			tags = append(tags, c.Source.Cell.Tag)
		}
	}
	appearance.SortTags(tags)
	return tags
}

// Resolver binds every required cell of Table × Tags to a catalog source.
type Resolver struct {
	Table     appearance.Table
	Tags      []appearance.Tag
	Fallbacks appearance.FallbackChains
}

// Resolve returns one ResolvedCell per required cell, or an
// *IncompleteIconSetError listing every cell that could not be filled.
//
// For each cell the exact source is preferred, then the same size in each
// fallback appearance in chain order. Failing that, the first appearance in
// the chain with a source at least as large as the cell is downscaled from,
// choosing its smallest such size. Sources are never upscaled.
func (r Resolver) Resolve(c *Catalog) (*Resolution, error) {
	cells := r.Table.Cells(r.Tags)
	res := &Resolution{Cells: make([]ResolvedCell, 0, len(cells))}

	var errs *multierror.Error
	for _, cell := range cells {
		rc, err := r.resolveCell(c, cell)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		res.Cells = append(res.Cells, rc)
	}
	if errs != nil {
		return nil, newIncompleteIconSetError(errs)
	}
	return res, nil
}

func (r Resolver) resolveCell(c *Catalog, cell appearance.Cell) (ResolvedCell, error) {
	if src, ok := c.Lookup(cell); ok {
		return ResolvedCell{
			Cell:       cell,
			Source:     src,
			Provenance: Provenance{Kind: ExactMatch, From: cell.Tag, FromSize: cell.Size},
		}, nil
	}

	chain := r.Fallbacks.Chain(cell.Tag)
	for _, tag := range chain[1:] {
		if src, ok := c.Lookup(appearance.Cell{Tag: tag, Size: cell.Size}); ok {
			return ResolvedCell{
				Cell:       cell,
				Source:     src,
				Provenance: Provenance{Kind: Fallback, From: tag, FromSize: cell.Size},
			}, nil
		}
	}

	target := cell.Size.Pixels()
	foundSmaller := false
	for _, tag := range chain {
		// Sizes are sorted by pixels then points, so the first large enough
		// size is the nearest one and wins ties.
		for _, size := range c.Sizes(tag) {
			if size.Pixels() < target {
				foundSmaller = true
				continue
			}
			src, _ := c.Lookup(appearance.Cell{Tag: tag, Size: size})
			return ResolvedCell{
				Cell:       cell,
				Source:     src,
				Provenance: Provenance{Kind: Fallback, From: tag, FromSize: size},
			}, nil
		}
	}

	reason := "no source in fallback chain"
	if foundSmaller {
		reason = "only smaller sources available, upscaling is not allowed"
	}
	return ResolvedCell{}, &NoSuitableSourceError{Cell: cell, Reason: reason}
}
