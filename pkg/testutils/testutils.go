package testutils

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// SaveEnv snapshots the current environment and restores it when the test
// ends.
//
// Do _not_ use this in parallel tests, as it clears the entire environment.
func SaveEnv(t *testing.T) {
	saved := os.Environ()
	t.Cleanup(func() {
		os.Clearenv()
		for _, kv := range saved {
			key, val, _ := strings.Cut(kv, "=")
			if err := os.Setenv(key, val); err != nil {
				t.Logf("error restoring env var %s: %v", key, err)
			}
		}
	})
}

// Gradient returns a px×px image whose pixels vary with position and seed, so
// that resampled and exact representations differ.
func Gradient(px int, seed uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, px, px))
	for y := 0; y < px; y++ {
		for x := 0; x < px; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x*255/px) ^ seed,
				G: uint8(y*255/px) + seed,
				B: seed,
				A: 0xff,
			})
		}
	}
	return img
}

// WritePNG encodes img as PNG at path, creating parent directories.
func WritePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// WriteIcon writes a px×px gradient PNG at dir/name.
func WriteIcon(t *testing.T, dir, name string, px int, seed uint8) string {
	t.Helper()
	path := filepath.Join(dir, name)
	WritePNG(t, path, Gradient(px, seed))
	return path
}

// Skeleton creates an empty macOS bundle skeleton under dir and returns its
// root: <dir>/<name>.app with Contents/Resources and a minimal Info.plist.
func Skeleton(t *testing.T, dir, name string) string {
	t.Helper()
	root := filepath.Join(dir, name+".app")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Contents", "Resources"), 0o755))
	plist := `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>CFBundleExecutable</key>
	<string>` + name + `</string>
	<key>CFBundleIdentifier</key>
	<string>com.example.` + strings.ToLower(name) + `</string>
	<key>LSMinimumSystemVersion</key>
	<string>10.13</string>
</dict>
</plist>
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "Contents", "Info.plist"), []byte(plist), 0o644))
	return root
}
