package icns

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/bundlekit/iconbundle/pkg/appearance"
	"github.com/bundlekit/iconbundle/pkg/constant"
	"github.com/bundlekit/iconbundle/pkg/file"
	"github.com/bundlekit/iconbundle/pkg/iconset"
	"github.com/rs/zerolog/log"
)

// EncodingError is returned when a resolved cell cannot be turned into a
// representation.
type EncodingError struct {
	Cell appearance.Cell
	Path string
	Err  error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode %s from %s: %v", e.Cell, e.Path, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// Representation is one encoded image of a container.
type Representation struct {
	Cell      appearance.Cell
	Type      OSType
	Source    string
	Resampled bool
	PNG       []byte
}

// Container is an assembled icon family. It is immutable once assembled.
type Container struct {
	Representations []Representation
	data            []byte
}

// Bytes returns a copy of the encoded container.
func (c *Container) Bytes() []byte {
	return bytes.Clone(c.data)
}

// Len returns the encoded size in bytes.
func (c *Container) Len() int {
	return len(c.data)
}

// WriteFile writes the container to path through a temporary file in the same
// directory, so path never holds a partially written container.
func (c *Container) WriteFile(ctx context.Context, path string) error {
	return file.AtomicWriteFile(ctx, path, c.data, constant.DefaultFileMode)
}

// Assembler turns a resolution into a container.
type Assembler struct {
	// Filter downscales fallback sources. Empty means DefaultFilter.
	Filter Filter
	// RejectPaletted fails paletted sources instead of converting them.
	RejectPaletted bool
}

var pngEncoder = png.Encoder{CompressionLevel: png.BestCompression}

// Assemble encodes every resolved cell and lays the representations out as a
// family: default representations at the top level, followed by one nested
// family per other appearance. Cells are encoded in resolution order, so the
// same resolution always yields the same bytes.
func (a Assembler) Assemble(ctx context.Context, res *iconset.Resolution) (*Container, error) {
	filter := a.Filter
	if filter == "" {
		filter = DefaultFilter
	}

	converted := make(map[*iconset.SourceImage]*image.NRGBA)
	reps := make([]Representation, 0, len(res.Cells))
	for _, rc := range res.Cells {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rep, err := a.encodeCell(rc, filter, converted)
		if err != nil {
			return nil, err
		}
		reps = append(reps, rep)
	}

	byTag := make(map[appearance.Tag][]Element)
	var tags []appearance.Tag
	for _, rep := range reps {
		if _, ok := byTag[rep.Cell.Tag]; !ok {
			tags = append(tags, rep.Cell.Tag)
		}
		byTag[rep.Cell.Tag] = append(byTag[rep.Cell.Tag], Element{Type: rep.Type, Data: rep.PNG})
	}
	appearance.SortTags(tags)

	elements := append([]Element(nil), byTag[appearance.Default]...)
	for _, tag := range tags {
		if tag == appearance.Default {
			continue
		}
		ft, ok := FamilyType(tag)
		if !ok {
			return nil, &EncodingError{
				Cell: appearance.Cell{Tag: tag},
				Err:  fmt.Errorf("appearance %s has no icns family type", tag),
			}
		}
		elements = append(elements, Element{Type: ft, Data: EncodeBytes(byTag[tag])})
	}

	c := &Container{Representations: reps, data: EncodeBytes(elements)}
	log.Debug().
		Int("representations", len(reps)).
		Int("bytes", len(c.data)).
		Msg("assembled icon container")
	return c, nil
}

func (a Assembler) encodeCell(rc iconset.ResolvedCell, filter Filter, converted map[*iconset.SourceImage]*image.NRGBA) (Representation, error) {
	encErr := func(err error) error {
		return &EncodingError{Cell: rc.Cell, Path: rc.Source.Path, Err: err}
	}

	t, err := RepresentationType(rc.Cell.Size)
	if err != nil {
		return Representation{}, encErr(err)
	}

	img, ok := converted[rc.Source]
	if !ok {
		img, err = toNRGBA(rc.Source.Image, a.RejectPaletted)
		if err != nil {
			return Representation{}, encErr(err)
		}
		converted[rc.Source] = img
	}

	resampled := false
	if rc.Provenance.Kind == iconset.Fallback && rc.NeedsResample() {
		img, err = filter.Resample(img, rc.Cell.Size.Pixels())
		if err != nil {
			return Representation{}, encErr(err)
		}
		resampled = true
	} else if rc.NeedsResample() {
		return Representation{}, encErr(fmt.Errorf("exact source is %dx%d, want %d pixels",
			rc.Source.Width, rc.Source.Height, rc.Cell.Size.Pixels()))
	}

	var buf bytes.Buffer
	if err := pngEncoder.Encode(&buf, img); err != nil {
		return Representation{}, encErr(err)
	}
	return Representation{
		Cell:      rc.Cell,
		Type:      t,
		Source:    rc.Source.Path,
		Resampled: resampled,
		PNG:       buf.Bytes(),
	}, nil
}
