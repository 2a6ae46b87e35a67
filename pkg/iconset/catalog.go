// Package iconset loads appearance-tagged icon sources and resolves them
// against the cells a platform requires.
package iconset

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bundlekit/iconbundle/pkg/appearance"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// SourceImage is a decoded icon source. It is read-only once loaded.
type SourceImage struct {
	Path       string
	Cell       appearance.Cell
	Width      int
	Height     int
	ColorModel string
	BitDepth   int
	Image      image.Image
}

// NewSourceImage wraps a decoded image, checking that its pixel dimensions
// match the declared cell size.
func NewSourceImage(path string, cell appearance.Cell, img image.Image) (*SourceImage, error) {
	b := img.Bounds()
	px := cell.Size.Pixels()
	if b.Dx() != px || b.Dy() != px {
		return nil, &SizeMismatchError{Path: path, Declared: cell.Size, Width: b.Dx(), Height: b.Dy()}
	}
	model, depth := describeColorModel(img)
	return &SourceImage{
		Path:       path,
		Cell:       cell,
		Width:      b.Dx(),
		Height:     b.Dy(),
		ColorModel: model,
		BitDepth:   depth,
		Image:      img,
	}, nil
}

func describeColorModel(img image.Image) (string, int) {
	switch img.(type) {
	case *image.Paletted:
		return "paletted", 8
	case *image.YCbCr:
		return "ycbcr", 8
	case *image.NYCbCrA:
		return "nycbcra", 8
	}
	switch img.ColorModel() {
	case color.RGBAModel:
		return "rgba", 8
	case color.NRGBAModel:
		return "nrgba", 8
	case color.RGBA64Model:
		return "rgba64", 16
	case color.NRGBA64Model:
		return "nrgba64", 16
	case color.GrayModel:
		return "gray", 8
	case color.Gray16Model:
		return "gray16", 16
	case color.AlphaModel:
		return "alpha", 8
	case color.Alpha16Model:
		return "alpha16", 16
	case color.CMYKModel:
		return "cmyk", 8
	}
	return fmt.Sprintf("%T", img), 0
}

// Catalog indexes source images by appearance and size. At most one source
// exists per cell.
type Catalog struct {
	sources map[appearance.Cell]*SourceImage
}

// NewCatalog builds a catalog from already decoded sources.
func NewCatalog(sources ...*SourceImage) (*Catalog, error) {
	c := &Catalog{sources: make(map[appearance.Cell]*SourceImage, len(sources))}
	for _, src := range sources {
		if err := c.add(src); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) add(src *SourceImage) error {
	if prev, ok := c.sources[src.Cell]; ok {
		return &DuplicateCellError{Cell: src.Cell, Paths: []string{prev.Path, src.Path}}
	}
	c.sources[src.Cell] = src
	return nil
}

// Lookup returns the source of an exact cell.
func (c *Catalog) Lookup(cell appearance.Cell) (*SourceImage, bool) {
	src, ok := c.sources[cell]
	return src, ok
}

// Sizes returns the sizes available for tag, smallest first.
func (c *Catalog) Sizes(tag appearance.Tag) []appearance.Size {
	var sizes []appearance.Size
	for cell := range c.sources {
		if cell.Tag == tag {
			sizes = append(sizes, cell.Size)
		}
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i].Less(sizes[j]) })
	return sizes
}

// Sources returns every source in cell order.
func (c *Catalog) Sources() []*SourceImage {
	cells := make([]appearance.Cell, 0, len(c.sources))
	for cell := range c.sources {
		cells = append(cells, cell)
	}
	appearance.SortCells(cells)
	out := make([]*SourceImage, 0, len(cells))
	for _, cell := range cells {
		out = append(out, c.sources[cell])
	}
	return out
}

// Len returns the number of sources.
func (c *Catalog) Len() int {
	return len(c.sources)
}

// LoadDir loads every icon source below dir. Files whose extension is not an
// image format are ignored; image files whose name does not describe a cell
// are skipped with a warning.
func LoadDir(ctx context.Context, dir string) (*Catalog, error) {
	var (
		seen    = make(cellPaths)
		sources []*SourceImage
	)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !imageExtensions[strings.ToLower(filepath.Ext(path))] {
			log.Debug().Str("path", path).Msg("ignoring non-image file")
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		cell, err := ParseFileName(rel)
		if err != nil {
			log.Warn().Str("path", path).Err(err).Msg("skipping icon source")
			return nil
		}
		if err := seen.claim(cell, path); err != nil {
			return err
		}
		src, err := load(path, cell)
		if err != nil {
			return err
		}
		sources = append(sources, src)
		return nil
	})
	if err != nil {
		return nil, err
	}
	c, err := NewCatalog(sources...)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("dir", dir).Int("sources", c.Len()).Msg("loaded icon catalog")
	return c, nil
}

// cellPaths detects two files naming the same cell before either is decoded.
type cellPaths map[appearance.Cell]string

func (m cellPaths) claim(cell appearance.Cell, path string) error {
	if prev, ok := m[cell]; ok {
		return &DuplicateCellError{Cell: cell, Paths: []string{prev, path}}
	}
	m[cell] = path
	return nil
}

// LoadFiles loads an explicit list of icon sources. Relative paths are
// resolved against baseDir. Unlike LoadDir, a file whose name does not
// describe a cell is an error.
func LoadFiles(ctx context.Context, baseDir string, paths []string) (*Catalog, error) {
	seen := make(cellPaths, len(paths))
	sources := make([]*SourceImage, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := p
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		cell, err := ParseFileName(p)
		if err != nil {
			return nil, &UnreadableSourceError{Path: path, Err: err}
		}
		if err := seen.claim(cell, path); err != nil {
			return nil, err
		}
		src, err := load(path, cell)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return NewCatalog(sources...)
}

func load(path string, cell appearance.Cell) (*SourceImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &UnreadableSourceError{Path: path, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &UnreadableSourceError{Path: path, Err: err}
	}
	return NewSourceImage(path, cell, img)
}

// ParseFileName derives the cell described by a source path. The file name is
// split on '_' and '-'; the last token is the size ("128x128" or
// "128x128@2x") and the token before it may be an appearance tag. The parent
// directory may name the tag instead ("dark/icon_128x128.png"). When both are
// present they must agree. No tag means appearance.Default.
func ParseFileName(path string) (appearance.Cell, error) {
	base := filepath.Base(path)
	stem := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
	tokens := strings.FieldsFunc(stem, func(r rune) bool { return r == '_' || r == '-' })
	if len(tokens) == 0 {
		return appearance.Cell{}, fmt.Errorf("file name %q has no size", base)
	}

	size, err := appearance.ParseSize(tokens[len(tokens)-1])
	if err != nil {
		return appearance.Cell{}, err
	}

	tag := appearance.Default
	var nameTag, dirTag *appearance.Tag
	if len(tokens) > 1 {
		if t, err := appearance.ParseTag(tokens[len(tokens)-2]); err == nil {
			nameTag = &t
		}
	}
	if dir := filepath.Base(filepath.Dir(path)); dir != "." && dir != string(filepath.Separator) {
		if t, err := appearance.ParseTag(dir); err == nil {
			dirTag = &t
		}
	}
	switch {
	case nameTag != nil && dirTag != nil && *nameTag != *dirTag:
		return appearance.Cell{}, fmt.Errorf("directory says %s but file name says %s", *dirTag, *nameTag)
	case nameTag != nil:
		tag = *nameTag
	case dirTag != nil:
		tag = *dirTag
	}
	return appearance.Cell{Tag: tag, Size: size}, nil
}
