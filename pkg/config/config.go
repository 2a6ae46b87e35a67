// Package config reads the icon bundling configuration file.
//
// A configuration names the bundle skeleton and one or more icon sets:
//
//	bundle: build/Demo.app
//	min_os_version: "10.13"
//	icon_sets:
//	  - name: AppIcon
//	    primary: true
//	    source_directory: icons
//	    enabled_appearance_tags: [default, dark, tinted]
//
// Relative paths are resolved against the directory of the file.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bundlekit/iconbundle/pkg/appearance"
	"github.com/bundlekit/iconbundle/pkg/bundle"
	"github.com/bundlekit/iconbundle/pkg/constant"
	"github.com/bundlekit/iconbundle/pkg/icns"
	"github.com/bundlekit/iconbundle/pkg/packaging"
	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
)

// IconSet is the configuration of one icon container.
type IconSet struct {
	// Name is the container base name. Defaults to AppIcon.
	Name string `json:"name,omitempty"`
	// Primary marks the application icon.
	Primary bool `json:"primary,omitempty"`
	// SourceDirectory is scanned for source images.
	SourceDirectory string `json:"source_directory,omitempty"`
	// SourceFiles lists source images explicitly, relative to
	// SourceDirectory.
	SourceFiles []string `json:"source_files,omitempty"`
	// Prebuilt is a ready-made .icns container embedded as-is.
	Prebuilt string `json:"prebuilt,omitempty"`
	// AssetCatalog is a compiled Assets.car copied next to the container.
	// Only the primary icon set may carry one.
	AssetCatalog string `json:"asset_catalog,omitempty"`
	// AssetCatalogIconName is the app icon name inside AssetCatalog. When
	// empty it is read with assetutil.
	AssetCatalogIconName string `json:"asset_catalog_icon_name,omitempty"`
	// EnabledAppearanceTags defaults to [default].
	EnabledAppearanceTags []string `json:"enabled_appearance_tags,omitempty"`
}

// Config is the configuration file.
type Config struct {
	// Bundle is the <Name>.app skeleton produced by the packager.
	Bundle string `json:"bundle,omitempty"`
	// StagingDir is where containers are assembled before placement.
	StagingDir string `json:"staging_dir,omitempty"`
	// MinOSVersion is the application's deployment target.
	MinOSVersion string `json:"min_os_version,omitempty"`
	// Mode is build or dev.
	Mode string `json:"mode,omitempty"`
	// ResampleFilter is one of catmullrom, bilinear, lanczos3, mitchell.
	ResampleFilter string `json:"resample_filter,omitempty"`
	// RejectPaletted fails paletted sources instead of converting them.
	RejectPaletted bool `json:"reject_paletted,omitempty"`
	// CheckToolchain warns when the local actool predates tinted icons.
	CheckToolchain bool `json:"check_toolchain,omitempty"`
	// Fallbacks overrides appearance fallback chains, e.g.
	// {tinted: [default]}.
	Fallbacks map[string][]string `json:"fallbacks,omitempty"`
	// IconSets are the containers to build.
	IconSets []IconSet `json:"icon_sets,omitempty"`

	// dir is the directory relative paths are resolved against.
	dir string
}

// Load reads and validates the configuration at path. Unknown keys are
// rejected.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read reads the configuration at path without validating it, so that
// callers can apply overrides first.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// Parse decodes a YAML (or JSON) configuration without validating it.
func Parse(data []byte) (*Config, error) {
	js, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, err
	}
	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(js))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetBaseDir sets the directory relative paths are resolved against. Load
// sets it to the directory of the file.
func (c *Config) SetBaseDir(dir string) {
	c.dir = dir
}

// Validate checks every value and returns a *ValidationError listing all
// problems, or nil.
func (c *Config) Validate() error {
	invalid := &ValidationError{}

	mode, err := packaging.ParseMode(c.Mode)
	if err != nil {
		invalid.add("mode", err.Error())
	}
	if c.Bundle == "" && mode != packaging.ModeDev {
		invalid.add("bundle", "is required")
	}
	if c.MinOSVersion != "" {
		if _, err := appearance.ExceedsVersion(c.MinOSVersion, c.MinOSVersion); err != nil {
			invalid.addf("min_os_version", "%q is not a version", c.MinOSVersion)
		}
	}
	if _, err := icns.ParseFilter(c.ResampleFilter); err != nil {
		invalid.add("resample_filter", err.Error())
	}
	if _, err := appearance.ParseFallbackChains(c.Fallbacks); err != nil {
		invalid.add("fallbacks", err.Error())
	}

	if len(c.IconSets) == 0 {
		invalid.add("icon_sets", "at least one icon set is required")
	}
	names := make(map[string]int)
	primaries := 0
	for i, set := range c.IconSets {
		field := func(name string) string { return fmt.Sprintf("icon_sets[%d].%s", i, name) }

		name := set.Name
		if name == "" {
			name = constant.DefaultIconName
		}
		if err := bundle.ValidIconName(name); err != nil {
			invalid.add(field("name"), err.Error())
		}
		if j, ok := names[name]; ok {
			invalid.addf(field("name"), "%q is also used by icon_sets[%d]", name, j)
		} else {
			names[name] = i
		}
		if set.Primary {
			primaries++
		}

		// Dev mode never reads sources.
		hasSources := set.SourceDirectory != "" || len(set.SourceFiles) > 0
		switch {
		case set.Prebuilt != "" && hasSources:
			invalid.add(field("prebuilt"), "cannot be combined with source_directory or source_files")
		case set.Prebuilt == "" && !hasSources && mode != packaging.ModeDev:
			invalid.add(field("source_directory"), "is required without prebuilt")
		}
		if set.AssetCatalog != "" && !set.Primary {
			invalid.add(field("asset_catalog"), "is only allowed on the primary icon set")
		}
		if set.AssetCatalogIconName != "" && set.AssetCatalog == "" {
			invalid.add(field("asset_catalog_icon_name"), "requires asset_catalog")
		}

		tags, err := appearance.ParseTags(set.EnabledAppearanceTags)
		if err != nil {
			invalid.add(field("enabled_appearance_tags"), err.Error())
			continue
		}
		if len(tags) > 0 && tags[0] != appearance.Default {
			invalid.add(field("enabled_appearance_tags"), "must include default")
		}
	}
	if primaries > 1 {
		invalid.addf("icon_sets", "%d icon sets are marked primary, at most one may be", primaries)
	}

	return invalid.orNil()
}

func (c *Config) path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// Options converts a validated configuration into one packaging.Options per
// icon set.
func (c *Config) Options() ([]packaging.Options, error) {
	mode, err := packaging.ParseMode(c.Mode)
	if err != nil {
		return nil, err
	}
	filter, err := icns.ParseFilter(c.ResampleFilter)
	if err != nil {
		return nil, err
	}
	var fallbacks appearance.FallbackChains
	if len(c.Fallbacks) > 0 {
		if fallbacks, err = appearance.ParseFallbackChains(c.Fallbacks); err != nil {
			return nil, err
		}
	}

	opts := make([]packaging.Options, 0, len(c.IconSets))
	for _, set := range c.IconSets {
		tags, err := appearance.ParseTags(set.EnabledAppearanceTags)
		if err != nil {
			return nil, err
		}
		opts = append(opts, packaging.Options{
			Name:                 set.Name,
			SourceDir:            c.path(set.SourceDirectory),
			SourceFiles:          set.SourceFiles,
			Prebuilt:             c.path(set.Prebuilt),
			AssetCatalog:         c.path(set.AssetCatalog),
			AssetCatalogIconName: set.AssetCatalogIconName,
			Tags:                 tags,
			Fallbacks:            fallbacks,
			MinOSVersion:         c.MinOSVersion,
			Filter:               filter,
			RejectPaletted:       c.RejectPaletted,
			StagingDir:           c.path(c.StagingDir),
			Bundle:               c.path(c.Bundle),
			Primary:              set.Primary,
			Mode:                 mode,
			CheckToolchain:       c.CheckToolchain,
		})
	}
	return opts, nil
}
