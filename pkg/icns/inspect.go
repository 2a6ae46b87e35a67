package icns

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/bundlekit/iconbundle/pkg/appearance"
)

// Payload formats of a representation.
const (
	FormatPNG      = "png"
	FormatJPEG2000 = "jpeg2000"
)

var (
	pngSignature       = []byte("\x89PNG\r\n\x1a\n")
	jp2Signature       = []byte("\x00\x00\x00\x0cjP  \r\n\x87\n")
	j2kCodestreamStart = []byte{0xff, 0x4f, 0xff, 0x51}
)

// Entry describes one representation found in a container.
type Entry struct {
	Tag    appearance.Tag
	Type   OSType
	Size   appearance.Size
	Format string
	Width  int
	Height int
}

// Inspect lists the representations of a container, nested appearance
// families included. Elements of unknown type are skipped.
func Inspect(data []byte) ([]Entry, error) {
	elements, err := Decode(data)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, e := range elements {
		if tag, ok := tagOfFamily(e.Type); ok {
			nested, err := Decode(e.Data)
			if err != nil {
				return nil, fmt.Errorf("%s family: %w", tag, err)
			}
			for _, ne := range nested {
				if entry, ok, err := inspectElement(tag, ne); err != nil {
					return nil, err
				} else if ok {
					entries = append(entries, entry)
				}
			}
			continue
		}
		if entry, ok, err := inspectElement(appearance.Default, e); err != nil {
			return nil, err
		} else if ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func inspectElement(tag appearance.Tag, e Element) (Entry, bool, error) {
	size, ok := SizeOf(e.Type)
	if !ok {
		return Entry{}, false, nil
	}
	entry := Entry{Tag: tag, Type: e.Type, Size: size, Width: size.Pixels(), Height: size.Pixels()}
	switch {
	case bytes.HasPrefix(e.Data, pngSignature):
		entry.Format = FormatPNG
	case bytes.HasPrefix(e.Data, jp2Signature), bytes.HasPrefix(e.Data, j2kCodestreamStart):
		// Older containers made by Apple's tools store large sizes as JPEG
		// 2000, which is not decoded here. The type fixes the dimensions.
		entry.Format = FormatJPEG2000
		return entry, true, nil
	default:
		return Entry{}, false, fmt.Errorf("%w: %s %s is neither PNG nor JPEG 2000", ErrInvalidFamily, tag, e.Type)
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(e.Data))
	if err != nil {
		return Entry{}, false, fmt.Errorf("%s %s: %w", tag, e.Type, err)
	}
	if cfg.Width != size.Pixels() || cfg.Height != size.Pixels() {
		return Entry{}, false, fmt.Errorf("%w: %s %s is %dx%d, want %d pixels",
			ErrInvalidFamily, tag, e.Type, cfg.Width, cfg.Height, size.Pixels())
	}
	return entry, true, nil
}

// Tags returns the appearances present in entries, in canonical order.
func Tags(entries []Entry) []appearance.Tag {
	seen := make(map[appearance.Tag]bool)
	var tags []appearance.Tag
	for _, e := range entries {
		if !seen[e.Tag] {
			seen[e.Tag] = true
			tags = append(tags, e.Tag)
		}
	}
	appearance.SortTags(tags)
	return tags
}
