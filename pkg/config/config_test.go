package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bundlekit/iconbundle/pkg/appearance"
	"github.com/bundlekit/iconbundle/pkg/icns"
	"github.com/bundlekit/iconbundle/pkg/packaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
bundle: build/Demo.app
staging_dir: build/icons
min_os_version: "10.13"
resample_filter: lanczos3
check_toolchain: true
fallbacks:
  clear: [default]
icon_sets:
  - name: AppIcon
    primary: true
    source_directory: icons/app
    asset_catalog: icons/Assets.car
    enabled_appearance_tags: [dark, default, clear]
  - name: DocIcon
    source_directory: icons/doc
    source_files: [doc_16x16.png, dark/doc_16x16.png]
  - name: Legacy
    prebuilt: /opt/icons/Legacy.icns
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "iconbundle.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, sample)
	dir := filepath.Dir(path)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "10.13", cfg.MinOSVersion)
	require.Len(t, cfg.IconSets, 3)

	opts, err := cfg.Options()
	require.NoError(t, err)
	require.Len(t, opts, 3)

	app := opts[0]
	assert.Equal(t, "AppIcon", app.Name)
	assert.Equal(t, filepath.Join(dir, "icons", "app"), app.SourceDir)
	assert.Equal(t, filepath.Join(dir, "build", "Demo.app"), app.Bundle)
	assert.Equal(t, filepath.Join(dir, "build", "icons"), app.StagingDir)
	assert.Equal(t, []appearance.Tag{appearance.Default, appearance.Dark, appearance.Tinted}, app.Tags)
	assert.Equal(t, icns.Lanczos3, app.Filter)
	assert.Equal(t, packaging.ModeBuild, app.Mode)
	assert.True(t, app.Primary)
	assert.Equal(t, filepath.Join(dir, "icons", "Assets.car"), app.AssetCatalog)
	assert.Empty(t, app.AssetCatalogIconName)
	assert.True(t, app.CheckToolchain)
	assert.Equal(t, []appearance.Tag{appearance.Tinted, appearance.Default}, app.Fallbacks.Chain(appearance.Tinted))
	assert.Equal(t, []appearance.Tag{appearance.Dark, appearance.Default}, app.Fallbacks.Chain(appearance.Dark))

	doc := opts[1]
	assert.Equal(t, []string{"doc_16x16.png", "dark/doc_16x16.png"}, doc.SourceFiles)
	assert.Nil(t, doc.Tags)
	assert.False(t, doc.Primary)

	assert.Equal(t, "/opt/icons/Legacy.icns", opts[2].Prebuilt)
	assert.Empty(t, opts[2].SourceDir)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "bundle: [unclosed"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "bundle: a.app\nicon_set: []\n"))
	require.ErrorContains(t, err, "icon_set")
}

func TestValidateCollectsAllProblems(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(`
min_os_version: ten
resample_filter: box
mode: release
fallbacks:
  sepia: [default]
icon_sets:
  - name: ../Escape
    primary: true
    enabled_appearance_tags: [dark]
  - prebuilt: a.icns
    source_directory: icons
    primary: true
    enabled_appearance_tags: [purple]
  - source_directory: icons
`))
	require.NoError(t, err)

	err = cfg.Validate()
	var invalid *ValidationError
	require.True(t, errors.As(err, &invalid))

	assert.Equal(t, []string{
		"mode",
		"bundle",
		"min_os_version",
		"resample_filter",
		"fallbacks",
		"icon_sets[0].name",
		"icon_sets[0].source_directory",
		"icon_sets[0].enabled_appearance_tags",
		"icon_sets[1].prebuilt",
		"icon_sets[1].enabled_appearance_tags",
		"icon_sets[2].name",
		"icon_sets",
	}, invalid.Fields())
	assert.Contains(t, err.Error(), "invalid configuration, 12 problems:\n\tmode ")
	assert.Contains(t, err.Error(), "\n\ticon_sets[1].prebuilt cannot be combined")
}

func TestValidateDevModeNeedsNoBundle(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte("mode: dev\nicon_sets:\n  - name: Bare\n  - source_directory: icons\n"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	cfg.IconSets = cfg.IconSets[1:]

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, packaging.ModeDev, opts[0].Mode)
	// Without a base directory paths are used as given.
	assert.Equal(t, "icons", opts[0].SourceDir)

	cfg.SetBaseDir("/work")
	opts, err = cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/work", "icons"), opts[0].SourceDir)
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(`
bundle: Demo.app
icon_sets:
  - source_directory: icons
    asset_catalog: Assets.car
  - name: Doc
    source_directory: icons
    asset_catalog_icon_name: AppIcon
`))
	require.NoError(t, err)
	err = cfg.Validate()
	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, []string{"icon_sets[0].asset_catalog", "icon_sets[1].asset_catalog_icon_name"}, invalid.Fields())

	cfg.IconSets = cfg.IconSets[:1]
	cfg.IconSets[0].Primary = true
	require.NoError(t, cfg.Validate())

	single := &ValidationError{}
	require.NoError(t, single.orNil())
	single.add("bundle", "is required")
	assert.EqualError(t, single.orNil(), "invalid configuration: bundle is required")
	assert.EqualError(t, &ValidationError{}, "invalid configuration")
}
