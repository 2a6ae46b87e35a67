// Package packaging bundles appearance-tagged icon sets into macOS
// application bundles.
//
// BundleIcons runs one icon set through the catalog, resolve, assemble and
// integrate stages. BundleIconSets runs several sets concurrently.
package packaging

import (
	"fmt"

	"github.com/bundlekit/iconbundle/pkg/actool"
	"github.com/bundlekit/iconbundle/pkg/appearance"
	"github.com/bundlekit/iconbundle/pkg/bundle"
	"github.com/bundlekit/iconbundle/pkg/constant"
	"github.com/bundlekit/iconbundle/pkg/file"
	"github.com/bundlekit/iconbundle/pkg/icns"
)

// Mode is the packaging mode of the application build.
type Mode string

const (
	// ModeBuild produces a distributable bundle and runs the icon pipeline.
	ModeBuild Mode = "build"
	// ModeDev runs the application unbundled. Icons are not processed, so
	// themed icons only show up in built artifacts.
	ModeDev Mode = "dev"
)

// ParseMode validates a mode name. An empty name selects ModeBuild.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeBuild:
		return ModeBuild, nil
	case ModeDev:
		return ModeDev, nil
	}
	return "", fmt.Errorf("unknown packaging mode %q", s)
}

// Options are the configurable options of one icon set.
type Options struct {
	// Name is the container base name, written to Contents/Resources/<Name>.icns.
	// Defaults to AppIcon.
	Name string
	// SourceDir is the directory scanned for source images.
	SourceDir string
	// SourceFiles, if set, lists the source images instead of scanning
	// SourceDir. Relative paths are resolved against SourceDir.
	SourceFiles []string
	// Prebuilt is the path to a ready-made .icns container. When set the
	// container is validated and embedded as-is, and SourceDir/SourceFiles are
	// not used.
	Prebuilt string
	// AssetCatalog is a compiled Assets.car placed in Contents/Resources next
	// to the container. Only the primary icon set may carry one.
	AssetCatalog string
	// AssetCatalogIconName is the app icon inside AssetCatalog, recorded as
	// CFBundleIconName. When empty it is read with assetutil; if that fails
	// CFBundleIconName stays Name.
	AssetCatalogIconName string
	// Tags are the enabled appearances. Default must be among them.
	Tags []appearance.Tag
	// Table is the platform size table. Defaults to appearance.MacOS.
	Table appearance.Table
	// Fallbacks overrides the appearance fallback chains. Nil selects the
	// built-in chains.
	Fallbacks appearance.FallbackChains
	// MinOSVersion is the deployment target of the application. It is only
	// used to decide whether the icons raise it.
	MinOSVersion string
	// Filter is the resampling filter for fallback cells.
	Filter icns.Filter
	// RejectPaletted fails paletted sources instead of converting them.
	RejectPaletted bool
	// StagingDir is where the container is assembled before it is placed in
	// the bundle. If empty, a temporary directory is used and removed
	// afterwards.
	StagingDir string
	// Bundle is the root of the <Name>.app skeleton produced by the packager.
	Bundle string
	// Primary marks the application's main icon, referenced by
	// CFBundleIconFile and CFBundleIconName.
	Primary bool
	// Mode is the packaging mode. Defaults to ModeBuild.
	Mode Mode
	// CheckToolchain probes actool when the tinted appearance is enabled and
	// warns if it predates tinted icons.
	CheckToolchain bool
	// Toolchain configures the actool probe. May be nil.
	Toolchain *actool.Options
	// Manifest receives the icon entry. Nil means the bundle's Info.plist.
	Manifest bundle.Manifest
	// Locks serializes writes of the same file across concurrent icon sets.
	// May be nil.
	Locks *file.Locks
}

func (opt Options) withDefaults() Options {
	if opt.Name == "" {
		opt.Name = constant.DefaultIconName
	}
	if len(opt.Tags) == 0 {
		opt.Tags = []appearance.Tag{appearance.Default}
	}
	if opt.Table == nil {
		opt.Table = appearance.MacOS
	}
	if opt.Filter == "" {
		opt.Filter = icns.DefaultFilter
	}
	if opt.Mode == "" {
		opt.Mode = ModeBuild
	}
	return opt
}

func (opt Options) validate() error {
	if err := bundle.ValidIconName(opt.Name); err != nil {
		return err
	}
	if opt.Bundle == "" {
		return fmt.Errorf("icon set %s: no bundle", opt.Name)
	}
	if opt.Prebuilt == "" && opt.SourceDir == "" && len(opt.SourceFiles) == 0 {
		return fmt.Errorf("icon set %s: no source directory, source files or prebuilt container", opt.Name)
	}
	if opt.AssetCatalog != "" && !opt.Primary {
		return fmt.Errorf("icon set %s: only the primary icon set may carry an asset catalog", opt.Name)
	}
	hasDefault := false
	for _, tag := range opt.Tags {
		if _, ok := appearance.Lookup(tag); !ok {
			return fmt.Errorf("icon set %s: unknown appearance %d", opt.Name, tag)
		}
		if tag == appearance.Default {
			hasDefault = true
		}
	}
	if !hasDefault {
		return fmt.Errorf("icon set %s: the default appearance must be enabled", opt.Name)
	}
	for _, s := range opt.Table {
		if !s.Valid() {
			return fmt.Errorf("icon set %s: invalid size %s in table", opt.Name, s)
		}
	}
	if _, err := icns.ParseFilter(string(opt.Filter)); err != nil {
		return err
	}
	if _, err := ParseMode(string(opt.Mode)); err != nil {
		return err
	}
	if opt.MinOSVersion != "" {
		if _, err := appearance.ExceedsVersion(opt.MinOSVersion, opt.MinOSVersion); err != nil {
			return fmt.Errorf("icon set %s: min OS version: %w", opt.Name, err)
		}
	}
	return nil
}
