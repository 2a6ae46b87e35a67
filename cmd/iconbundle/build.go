package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bundlekit/iconbundle/pkg/config"
	"github.com/bundlekit/iconbundle/pkg/constant"
	"github.com/bundlekit/iconbundle/pkg/packaging"
	"github.com/docker/go-units"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func env(name string) []string {
	return []string{constant.EnvPrefix + name}
}

func iconSetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "Path to an iconbundle YAML configuration; the flags below override it",
			EnvVars: env("CONFIG"),
		},
		&cli.StringFlag{
			Name:    "bundle",
			Usage:   "Path to the <Name>.app bundle skeleton",
			EnvVars: env("BUNDLE"),
		},
		&cli.StringFlag{
			Name:    "source-dir",
			Usage:   "Directory of icon sources named like icon_dark_128x128@2x.png",
			EnvVars: env("SOURCE_DIR"),
		},
		&cli.StringSliceFlag{
			Name:  "source-file",
			Usage: "Icon source file, relative to --source-dir (repeatable)",
		},
		&cli.StringFlag{
			Name:    "prebuilt",
			Usage:   "Embed this .icns container as-is instead of assembling one",
			EnvVars: env("PREBUILT"),
		},
		&cli.StringFlag{
			Name:    "asset-catalog",
			Usage:   "Compiled Assets.car to copy into the bundle alongside the container",
			EnvVars: env("ASSET_CATALOG"),
		},
		&cli.StringFlag{
			Name:    "asset-catalog-icon-name",
			Usage:   "App icon name inside --asset-catalog (read with assetutil when unset)",
			EnvVars: env("ASSET_CATALOG_ICON_NAME"),
		},
		&cli.StringFlag{
			Name:    "name",
			Usage:   "Icon container base name",
			Value:   constant.DefaultIconName,
			EnvVars: env("NAME"),
		},
		&cli.StringSliceFlag{
			Name:    "tags",
			Usage:   "Enabled appearances (default, dark, tinted)",
			EnvVars: env("TAGS"),
		},
		&cli.StringFlag{
			Name:    "min-os-version",
			Usage:   "Deployment target of the application (e.g. 10.13)",
			EnvVars: env("MIN_OS_VERSION"),
		},
		&cli.StringFlag{
			Name:    "filter",
			Usage:   "Resampling filter (catmullrom, bilinear, lanczos3, mitchell)",
			EnvVars: env("FILTER"),
		},
		&cli.StringFlag{
			Name:    "staging-dir",
			Usage:   "Directory to assemble containers in before placing them",
			EnvVars: env("STAGING_DIR"),
		},
		&cli.BoolFlag{
			Name:    "reject-paletted",
			Usage:   "Fail on paletted sources instead of converting them",
			EnvVars: env("REJECT_PALETTED"),
		},
		&cli.BoolFlag{
			Name:    "check-toolchain",
			Usage:   "Warn if the local actool predates tinted icons",
			EnvVars: env("CHECK_TOOLCHAIN"),
		},
		&cli.IntFlag{
			Name:    "jobs",
			Usage:   "Icon sets to bundle in parallel (0 for no limit)",
			EnvVars: env("JOBS"),
		},
	}
}

func absPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	return filepath.Abs(p)
}

// loadConfig builds the configuration from --config and the icon set flags.
// Without --config the flags describe a single primary icon set.
func loadConfig(c *cli.Context, mode packaging.Mode) (*config.Config, error) {
	cfg := &config.Config{}
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Read(path); err != nil {
			return nil, err
		}
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		cfg.SetBaseDir(wd)
		cfg.IconSets = []config.IconSet{{
			Name:                  c.String("name"),
			Primary:               true,
			SourceDirectory:       c.String("source-dir"),
			SourceFiles:           c.StringSlice("source-file"),
			Prebuilt:              c.String("prebuilt"),
			AssetCatalog:          c.String("asset-catalog"),
			AssetCatalogIconName:  c.String("asset-catalog-icon-name"),
			EnabledAppearanceTags: c.StringSlice("tags"),
		}}
	}

	for flag, dst := range map[string]*string{
		"bundle":      &cfg.Bundle,
		"staging-dir": &cfg.StagingDir,
	} {
		if c.IsSet(flag) {
			p, err := absPath(c.String(flag))
			if err != nil {
				return nil, err
			}
			*dst = p
		}
	}
	if c.IsSet("min-os-version") {
		cfg.MinOSVersion = c.String("min-os-version")
	}
	if c.IsSet("filter") {
		cfg.ResampleFilter = c.String("filter")
	}
	if c.IsSet("reject-paletted") {
		cfg.RejectPaletted = c.Bool("reject-paletted")
	}
	if c.IsSet("check-toolchain") {
		cfg.CheckToolchain = c.Bool("check-toolchain")
	}
	cfg.Mode = string(mode)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runIconSets(c *cli.Context, mode packaging.Mode) ([]*packaging.Result, error) {
	cfg, err := loadConfig(c, mode)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()
	results, err := packaging.BundleIconSets(ctx, opts, c.Int("jobs"))
	if err != nil {
		return results, errors.Wrap(err, "bundle icons")
	}
	return results, nil
}

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Assemble icon containers and embed them into the bundle",
		Flags: iconSetFlags(),
		Action: func(c *cli.Context) error {
			results, err := runIconSets(c, packaging.ModeBuild)
			if err != nil {
				return err
			}
			printResults(c.App.Writer, results)
			for _, r := range results {
				if floor, ok := r.RequiresOSFloor(); ok {
					color.New(color.FgYellow).Fprintf(c.App.ErrWriter,
						"WARNING: icon set %s needs macOS %s for its themed variants, above the deployment target %q.\n",
						r.Name, floor, r.MinOSVersion)
				}
			}
			return nil
		},
	}
}

func devCommand() *cli.Command {
	return &cli.Command{
		Name:  "dev",
		Usage: "Dev mode: icon bundling is skipped, themed icons only show in built bundles",
		Flags: iconSetFlags(),
		Action: func(c *cli.Context) error {
			results, err := runIconSets(c, packaging.ModeDev)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Skipped %d icon set(s) in dev mode.\n", len(results))
			return nil
		},
	}
}

func printResults(w io.Writer, results []*packaging.Result) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"icon set", "appearances", "representations", "resampled", "size", "os floor", "path"})
	table.SetAutoWrapText(false)
	for _, r := range results {
		if r == nil {
			continue
		}
		tags := make([]string, 0, len(r.Tags))
		for _, t := range r.Tags {
			tags = append(tags, t.String())
		}
		floor := r.Floor
		if floor == "" {
			floor = "-"
		}
		table.Append([]string{
			r.Name,
			strings.Join(tags, ","),
			strconv.Itoa(r.Representations),
			strconv.Itoa(r.Resampled),
			units.HumanSize(float64(r.Size)),
			floor,
			r.ContainerPath,
		})
	}
	table.Render()
}
