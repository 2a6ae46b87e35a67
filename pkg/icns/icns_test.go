package icns

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/bundlekit/iconbundle/pkg/appearance"
	"github.com/bundlekit/iconbundle/pkg/iconset"
	"github.com/bundlekit/iconbundle/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	t.Parallel()

	elements := []Element{
		{Type: osType("icp4"), Data: []byte("sixteen")},
		{Type: osType("ic07"), Data: []byte("one-two-eight")},
	}
	data := EncodeBytes(elements)

	assert.Equal(t, []byte("icns"), data[:4])
	assert.Equal(t, []byte("TOC "), data[8:12])
	// header + TOC(8 + 2*8) + two elements
	assert.Len(t, data, 8+24+(8+7)+(8+13))

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, elements, got)

	empty := EncodeBytes(nil)
	assert.Len(t, empty, 8)
	got, err = Decode(empty)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecodeInvalid(t *testing.T) {
	t.Parallel()

	valid := EncodeBytes([]Element{{Type: osType("icp4"), Data: []byte("x")}})

	cases := map[string][]byte{
		"short":     []byte("icn"),
		"magic":     append([]byte("icnz"), valid[4:]...),
		"length":    valid[:len(valid)-1],
		"truncated": append(append([]byte(nil), valid...), 'i', 'c'),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(data)
			require.ErrorIs(t, err, ErrInvalidFamily)
		})
	}
}

func TestOSTypeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ic07", osType("ic07").String())
	dark, ok := FamilyType(appearance.Dark)
	require.True(t, ok)
	assert.Equal(t, "0xFDD92FA8", dark.String())
	_, ok = FamilyType(appearance.Default)
	assert.False(t, ok)
}

func TestRepresentationTypes(t *testing.T) {
	t.Parallel()

	for _, s := range appearance.MacOS {
		rt, err := RepresentationType(s)
		require.NoError(t, err, s.String())
		back, ok := SizeOf(rt)
		require.True(t, ok)
		assert.Equal(t, s, back)
	}
	_, err := RepresentationType(appearance.Size{Points: 1024, Scale: 1})
	require.Error(t, err)
}

func TestToNRGBA(t *testing.T) {
	t.Parallel()

	rect := image.Rect(0, 0, 4, 4)
	palette := color.Palette{color.Black, color.White}
	paletted := image.NewPaletted(rect, palette)
	paletted.SetColorIndex(1, 1, 1)

	got, err := toNRGBA(paletted, false)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0xff, 0xff, 0xff, 0xff}, got.NRGBAAt(1, 1))
	assert.Equal(t, color.NRGBA{0, 0, 0, 0xff}, got.NRGBAAt(0, 0))

	_, err = toNRGBA(paletted, true)
	require.ErrorIs(t, err, ErrPalettedRejected)

	_, err = toNRGBA(image.NewCMYK(rect), false)
	require.ErrorIs(t, err, ErrUnsupportedColorModel)

	gray := image.NewGray16(rect)
	gray.SetGray16(2, 2, color.Gray16{Y: 0xffff})
	got, err = toNRGBA(gray, false)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0xff, 0xff, 0xff, 0xff}, got.NRGBAAt(2, 2))

	ycbcr := image.NewYCbCr(rect, image.YCbCrSubsampleRatio444)
	got, err = toNRGBA(ycbcr, false)
	require.NoError(t, err)
	assert.Equal(t, rect, got.Bounds())

	// Lossy WebP with alpha decodes to NYCbCrA.
	nycbcra := image.NewNYCbCrA(image.Rect(0, 0, 16, 16), image.YCbCrSubsampleRatio420)
	for i := range nycbcra.Y {
		nycbcra.Y[i] = 0xff
	}
	for i := range nycbcra.Cb {
		nycbcra.Cb[i], nycbcra.Cr[i] = 0x80, 0x80
	}
	nycbcra.A[nycbcra.AOffset(1, 1)] = 0x80
	got, err = toNRGBA(nycbcra, false)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{0xff, 0xff, 0xff, 0x80}, got.NRGBAAt(1, 1))
	assert.Zero(t, got.NRGBAAt(0, 0).A)

	_, err = toNRGBA(image.NewUniform(color.CMYK{}), false)
	require.ErrorIs(t, err, ErrUnsupportedColorModel)
	_, err = toNRGBA(image.NewUniform(color.YCbCr{}), false)
	require.ErrorContains(t, err, "*image.Uniform")

	// Sub-images are re-based at the origin.
	sub := testutils.Gradient(8, 0).SubImage(image.Rect(4, 4, 8, 8))
	got, err = toNRGBA(sub, false)
	require.NoError(t, err)
	assert.Equal(t, rect, got.Bounds())
}

func TestResample(t *testing.T) {
	t.Parallel()

	src := testutils.Gradient(64, 9)
	for _, f := range Filters {
		t.Run(string(f), func(t *testing.T) {
			dst, err := f.Resample(src, 32)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 32, 32), dst.Bounds())

			again, err := f.Resample(src, 32)
			require.NoError(t, err)
			assert.Equal(t, dst.Pix, again.Pix)

			same, err := f.Resample(src, 64)
			require.NoError(t, err)
			assert.Same(t, src, same)

			_, err = f.Resample(src, 128)
			require.Error(t, err)
		})
	}

	_, err := ParseFilter("box")
	require.Error(t, err)
	f, err := ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, DefaultFilter, f)
}

func source(t *testing.T, tag appearance.Tag, points, scale int, img image.Image) *iconset.SourceImage {
	t.Helper()
	cell := appearance.Cell{Tag: tag, Size: appearance.Size{Points: points, Scale: scale}}
	src, err := iconset.NewSourceImage(cell.String()+".png", cell, img)
	require.NoError(t, err)
	return src
}

func resolve(t *testing.T, table appearance.Table, tags []appearance.Tag, sources ...*iconset.SourceImage) *iconset.Resolution {
	t.Helper()
	c, err := iconset.NewCatalog(sources...)
	require.NoError(t, err)
	res, err := iconset.Resolver{Table: table, Tags: tags}.Resolve(c)
	require.NoError(t, err)
	return res
}

func TestAssemble(t *testing.T) {
	t.Parallel()

	table := appearance.Table{{Points: 16, Scale: 1}, {Points: 32, Scale: 1}, {Points: 128, Scale: 1}}
	res := resolve(t, table, []appearance.Tag{appearance.Default, appearance.Dark, appearance.Tinted},
		source(t, appearance.Default, 16, 1, testutils.Gradient(16, 1)),
		source(t, appearance.Default, 32, 1, testutils.Gradient(32, 2)),
		source(t, appearance.Default, 256, 1, testutils.Gradient(256, 3)),
		source(t, appearance.Dark, 16, 1, testutils.Gradient(16, 4)),
		source(t, appearance.Dark, 32, 1, testutils.Gradient(32, 5)),
		source(t, appearance.Dark, 128, 1, testutils.Gradient(128, 6)),
	)

	c, err := Assembler{}.Assemble(context.Background(), res)
	require.NoError(t, err)
	require.Len(t, c.Representations, 9)

	resampled := 0
	for _, rep := range c.Representations {
		if rep.Resampled {
			resampled++
		}
		cfg, err := png.DecodeConfig(bytes.NewReader(rep.PNG))
		require.NoError(t, err)
		assert.Equal(t, rep.Cell.Size.Pixels(), cfg.Width)
		assert.Equal(t, rep.Cell.Size.Pixels(), cfg.Height)
	}
	// Only default 128 is downscaled, from default 256. Tinted cells follow
	// dark at the same size.
	assert.Equal(t, 1, resampled)
	assert.True(t, c.Representations[2].Resampled)

	entries, err := Inspect(c.Bytes())
	require.NoError(t, err)
	require.Len(t, entries, 9)
	assert.Equal(t, []appearance.Tag{appearance.Default, appearance.Dark, appearance.Tinted}, Tags(entries))
	assert.Equal(t, osType("icp4"), entries[0].Type)
	assert.Equal(t, appearance.Dark, entries[3].Tag)
	assert.Equal(t, 128, entries[8].Width)

	// The top level holds three default representations and two families.
	top, err := Decode(c.Bytes())
	require.NoError(t, err)
	require.Len(t, top, 5)
	assert.Equal(t, familyTypes[appearance.Dark], top[3].Type)
	assert.Equal(t, familyTypes[appearance.Tinted], top[4].Type)
}

func TestInspectFormats(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testutils.Gradient(16, 1)))
	jp2 := append([]byte("\x00\x00\x00\x0cjP  \r\n\x87\n"), "rest of the box"...)
	codestream := []byte{0xff, 0x4f, 0xff, 0x51, 0, 0x2f}

	data := EncodeBytes([]Element{
		{Type: osType("icp4"), Data: buf.Bytes()},
		{Type: osType("ic10"), Data: jp2},
		{Type: familyTypes[appearance.Dark], Data: EncodeBytes([]Element{
			{Type: osType("ic09"), Data: codestream},
		})},
	})
	entries, err := Inspect(data)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, FormatPNG, entries[0].Format)
	assert.Equal(t, FormatJPEG2000, entries[1].Format)
	assert.Equal(t, 1024, entries[1].Width)
	assert.Equal(t, appearance.Dark, entries[2].Tag)
	assert.Equal(t, FormatJPEG2000, entries[2].Format)
	assert.Equal(t, 512, entries[2].Height)

	_, err = Inspect(EncodeBytes([]Element{{Type: osType("ic07"), Data: []byte("GIF89a")}}))
	require.ErrorIs(t, err, ErrInvalidFamily)
}

func TestAssembleDeterministic(t *testing.T) {
	t.Parallel()

	table := appearance.Table{{Points: 16, Scale: 1}, {Points: 16, Scale: 2}}
	build := func() []byte {
		res := resolve(t, table, []appearance.Tag{appearance.Default, appearance.Dark},
			source(t, appearance.Default, 16, 2, testutils.Gradient(32, 7)),
			source(t, appearance.Dark, 512, 1, testutils.Gradient(512, 8)),
		)
		c, err := Assembler{Filter: Lanczos3}.Assemble(context.Background(), res)
		require.NoError(t, err)
		return c.Bytes()
	}
	assert.Equal(t, build(), build())
}

func TestAssembleEncodingErrors(t *testing.T) {
	t.Parallel()

	table := appearance.Table{{Points: 16, Scale: 1}}
	tags := []appearance.Tag{appearance.Default}

	res := resolve(t, table, tags, source(t, appearance.Default, 16, 1, image.NewCMYK(image.Rect(0, 0, 16, 16))))
	_, err := Assembler{}.Assemble(context.Background(), res)
	var encErr *EncodingError
	require.ErrorAs(t, err, &encErr)
	assert.Equal(t, appearance.Cell{Tag: appearance.Default, Size: appearance.Size{Points: 16, Scale: 1}}, encErr.Cell)
	assert.True(t, errors.Is(err, ErrUnsupportedColorModel))

	paletted := image.NewPaletted(image.Rect(0, 0, 16, 16), color.Palette{color.Black})
	res = resolve(t, table, tags, source(t, appearance.Default, 16, 1, paletted))
	_, err = Assembler{RejectPaletted: true}.Assemble(context.Background(), res)
	require.ErrorIs(t, err, ErrPalettedRejected)

	c, err := Assembler{}.Assemble(context.Background(), res)
	require.NoError(t, err)
	assert.Len(t, c.Representations, 1)

	// Sizes with no representation type cannot be encoded.
	res = resolve(t, appearance.Table{{Points: 64, Scale: 2}}, tags,
		source(t, appearance.Default, 64, 2, testutils.Gradient(128, 1)))
	_, err = Assembler{}.Assemble(context.Background(), res)
	require.ErrorAs(t, err, &encErr)
}

func TestAssembleCancelled(t *testing.T) {
	t.Parallel()

	res := resolve(t, appearance.Table{{Points: 16, Scale: 1}}, []appearance.Tag{appearance.Default},
		source(t, appearance.Default, 16, 1, testutils.Gradient(16, 1)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Assembler{}.Assemble(ctx, res)
	require.ErrorIs(t, err, context.Canceled)
}

func TestContainerWriteFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	res := resolve(t, appearance.Table{{Points: 16, Scale: 1}}, []appearance.Tag{appearance.Default},
		source(t, appearance.Default, 16, 1, testutils.Gradient(16, 1)))
	c, err := Assembler{}.Assemble(context.Background(), res)
	require.NoError(t, err)

	path := filepath.Join(dir, "AppIcon.icns")
	require.NoError(t, c.WriteFile(context.Background(), path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, c.Bytes(), data)
	assert.Equal(t, len(data), c.Len())

	// A missing directory is not created.
	require.Error(t, c.WriteFile(context.Background(), filepath.Join(dir, "missing", "AppIcon.icns")))
}
