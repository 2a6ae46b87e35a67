package packaging

import (
	"context"
	"os"
	"path/filepath"

	"github.com/bundlekit/iconbundle/pkg/actool"
	"github.com/bundlekit/iconbundle/pkg/appearance"
	"github.com/bundlekit/iconbundle/pkg/bundle"
	"github.com/bundlekit/iconbundle/pkg/constant"
	"github.com/bundlekit/iconbundle/pkg/icns"
	"github.com/bundlekit/iconbundle/pkg/iconset"
	"github.com/bundlekit/iconbundle/pkg/secure"
	"github.com/docker/go-units"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Stage is a state of the icon pipeline.
type Stage int

const (
	StageIdle Stage = iota
	StageCataloging
	StageResolving
	StageAssembling
	StageIntegrating
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageCataloging:
		return "cataloging"
	case StageResolving:
		return "resolving"
	case StageAssembling:
		return "assembling"
	case StageIntegrating:
		return "integrating"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	}
	return "unknown"
}

// Result describes what one icon set run did.
type Result struct {
	// Name is the icon set name.
	Name string
	// Skipped is set in dev mode, where nothing is processed.
	Skipped bool
	// Stage is the final state, StageDone or StageFailed (or StageIdle when
	// skipped).
	Stage Stage
	// FailedStage is the stage that failed, and Reason its error message.
	FailedStage Stage
	Reason      string
	// ContainerPath is the container's location inside the bundle.
	ContainerPath string
	// Entry is the manifest entry that was recorded.
	Entry bundle.ManifestEntry
	// Tags are the appearances of the sources embedded in the container.
	Tags []appearance.Tag
	// Representations counts the images in the container; Resampled counts
	// those downscaled from a larger source.
	Representations int
	Resampled       int
	// Size is the container size in bytes.
	Size int64
	// AssetCatalogPath is where Assets.car was placed, if the set has one.
	AssetCatalogPath string
	// Floor is the OS version the embedded appearances need, empty when only
	// default sources were used.
	Floor string
	// MinOSVersion is the configured deployment target.
	MinOSVersion string
}

// RequiresOSFloor reports whether the embedded icons need a newer OS than
// the configured minimum, and which.
func (r *Result) RequiresOSFloor() (string, bool) {
	if r == nil || r.Floor == "" {
		return "", false
	}
	exceeds, err := appearance.ExceedsVersion(r.Floor, r.MinOSVersion)
	if err != nil {
		// Unparsable minimums are rejected by validation.
		return r.Floor, true
	}
	if !exceeds {
		return "", false
	}
	return r.Floor, true
}

// MaxPrebuiltSize bounds prebuilt containers, which are read into memory to
// be validated. A full 1024px set with three appearances is a few MiB.
const MaxPrebuiltSize int64 = 64 * units.MiB

type pipeline struct {
	opt    Options
	result *Result
	logger zerolog.Logger
}

// enter moves the pipeline to s, failing if ctx is done.
func (p *pipeline) enter(ctx context.Context, s Stage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.result.Stage = s
	p.logger.Debug().Stringer("stage", s).Msg("entering stage")
	return nil
}

func (p *pipeline) fail(err error) (*Result, error) {
	p.result.FailedStage = p.result.Stage
	p.result.Stage = StageFailed
	p.result.Reason = err.Error()
	p.logger.Debug().Err(err).Stringer("stage", p.result.FailedStage).Msg("icon pipeline failed")
	return p.result, errors.Wrapf(err, "icon set %s: %s", p.opt.Name, p.result.FailedStage)
}

// BundleIcons bundles one icon set into opt.Bundle. In dev mode it returns a
// skipped result without touching disk.
//
// On failure the returned Result is in StageFailed and the error wraps the
// typed error of the failing stage. The bundle's Info.plist is only updated
// once the container is in place.
func BundleIcons(ctx context.Context, opt Options) (*Result, error) {
	opt = opt.withDefaults()
	p := &pipeline{
		opt:    opt,
		result: &Result{Name: opt.Name, Stage: StageIdle, MinOSVersion: opt.MinOSVersion},
		logger: log.With().Str("icon_set", opt.Name).Logger(),
	}

	if opt.Mode == ModeDev {
		p.result.Skipped = true
		p.logger.Info().Msg("dev mode, skipping icon bundling; themed icons appear only in built bundles")
		return p.result, nil
	}
	if err := opt.validate(); err != nil {
		return p.fail(err)
	}
	skeleton := bundle.Skeleton{Root: opt.Bundle}
	if err := skeleton.Validate(); err != nil {
		return p.fail(err)
	}

	var (
		containerPath string
		err           error
	)
	if opt.Prebuilt != "" {
		containerPath, err = p.prebuilt(ctx)
	} else {
		var cleanup func()
		containerPath, cleanup, err = p.build(ctx)
		if cleanup != nil {
			defer cleanup()
		}
	}
	if err != nil {
		return p.fail(err)
	}

	p.checkToolchain(ctx)

	if err := p.enter(ctx, StageIntegrating); err != nil {
		return p.fail(err)
	}
	integrator := bundle.Integrator{Skeleton: skeleton, Manifest: opt.Manifest, Locks: opt.Locks}
	var catalogIconName string
	if opt.AssetCatalog != "" {
		if catalogIconName, err = p.assetCatalog(ctx, integrator); err != nil {
			return p.fail(err)
		}
	}
	dst, entry, err := integrator.Integrate(ctx, containerPath, bundle.ManifestEntry{
		IconName:             opt.Name,
		MinimumSystemVersion: p.result.Floor,
		Primary:              opt.Primary,
		AssetCatalogIconName: catalogIconName,
	})
	if err != nil {
		return p.fail(err)
	}
	p.result.ContainerPath = dst
	p.result.Entry = entry
	p.result.Stage = StageDone

	ev := p.logger.Info().
		Str("path", dst).
		Int("representations", p.result.Representations).
		Int("resampled", p.result.Resampled)
	if p.result.Floor != "" {
		ev = ev.Str("min_os", p.result.Floor)
	}
	ev.Msg("bundled icons")
	return p.result, nil
}

// build runs the catalog, resolve and assemble stages and returns the path of
// the staged container.
func (p *pipeline) build(ctx context.Context) (string, func(), error) {
	opt := p.opt

	if err := p.enter(ctx, StageCataloging); err != nil {
		return "", nil, err
	}
	var (
		catalog *iconset.Catalog
		err     error
	)
	if len(opt.SourceFiles) > 0 {
		catalog, err = iconset.LoadFiles(ctx, opt.SourceDir, opt.SourceFiles)
	} else {
		catalog, err = iconset.LoadDir(ctx, opt.SourceDir)
	}
	if err != nil {
		return "", nil, err
	}
	for _, src := range catalog.Sources() {
		p.logger.Debug().
			Str("path", src.Path).
			Stringer("cell", src.Cell).
			Str("color_model", src.ColorModel).
			Int("bit_depth", src.BitDepth).
			Msg("icon source")
	}
	p.logger.Debug().Int("sources", catalog.Len()).Msg("cataloged sources")

	if err := p.enter(ctx, StageResolving); err != nil {
		return "", nil, err
	}
	res, err := iconset.Resolver{Table: opt.Table, Tags: opt.Tags, Fallbacks: opt.Fallbacks}.Resolve(catalog)
	if err != nil {
		return "", nil, err
	}
	for _, rc := range res.Cells {
		if rc.Provenance.Kind == iconset.Fallback {
			p.logger.Debug().
				Stringer("cell", rc.Cell).
				Stringer("provenance", rc.Provenance).
				Msg("filled cell from fallback")
		}
	}
	p.result.Tags = res.SourceTags()
	floor, err := appearance.Floor(p.result.Tags)
	if err != nil {
		return "", nil, err
	}
	p.result.Floor = floor

	if err := p.enter(ctx, StageAssembling); err != nil {
		return "", nil, err
	}
	container, err := icns.Assembler{Filter: opt.Filter, RejectPaletted: opt.RejectPaletted}.Assemble(ctx, res)
	if err != nil {
		return "", nil, err
	}
	p.result.Representations = len(container.Representations)
	p.result.Size = int64(container.Len())
	for _, rep := range container.Representations {
		if rep.Resampled {
			p.result.Resampled++
		}
	}

	stagingDir, cleanup, err := p.stagingDir()
	if err != nil {
		return "", nil, err
	}
	path := filepath.Join(stagingDir, opt.Name+constant.ContainerExtension)
	unlock := opt.Locks.Lock(path)
	err = container.WriteFile(ctx, path)
	unlock()
	if err != nil {
		return "", cleanup, errors.Wrap(err, "write staged container")
	}
	p.logger.Debug().Str("path", path).Msg("staged icon container")
	return path, cleanup, nil
}

func (p *pipeline) stagingDir() (string, func(), error) {
	if p.opt.StagingDir != "" {
		if err := secure.MkdirAll(p.opt.StagingDir, constant.DefaultDirMode); err != nil {
			return "", nil, errors.Wrap(err, "create staging dir")
		}
		return p.opt.StagingDir, nil, nil
	}
	dir, err := os.MkdirTemp("", "iconbundle")
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to create temp dir")
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

// prebuilt validates a ready-made container and derives its OS floor from
// the appearance families it holds.
func (p *pipeline) prebuilt(ctx context.Context) (string, error) {
	if err := p.enter(ctx, StageCataloging); err != nil {
		return "", err
	}
	info, err := os.Stat(p.opt.Prebuilt)
	if err != nil {
		return "", &iconset.UnreadableSourceError{Path: p.opt.Prebuilt, Err: err}
	}
	if info.Size() > MaxPrebuiltSize {
		return "", &iconset.UnreadableSourceError{
			Path: p.opt.Prebuilt,
			Err:  errors.Errorf("container is %s, the limit is %s", units.BytesSize(float64(info.Size())), units.BytesSize(float64(MaxPrebuiltSize))),
		}
	}
	data, err := os.ReadFile(p.opt.Prebuilt)
	if err != nil {
		return "", &iconset.UnreadableSourceError{Path: p.opt.Prebuilt, Err: err}
	}
	p.result.Size = int64(len(data))
	entries, err := icns.Inspect(data)
	if err != nil {
		return "", &iconset.UnreadableSourceError{Path: p.opt.Prebuilt, Err: err}
	}
	if len(entries) == 0 {
		return "", &iconset.UnreadableSourceError{Path: p.opt.Prebuilt, Err: icns.ErrInvalidFamily}
	}
	p.result.Tags = icns.Tags(entries)
	p.result.Representations = len(entries)
	floor, err := appearance.Floor(p.result.Tags)
	if err != nil {
		return "", err
	}
	p.result.Floor = floor
	p.logger.Debug().Str("path", p.opt.Prebuilt).Int("representations", len(entries)).Msg("using prebuilt container")
	return p.opt.Prebuilt, nil
}

// assetCatalog places the set's compiled Assets.car in the bundle and returns
// the app icon name to record for it. An icon name that cannot be determined
// is logged and left empty.
func (p *pipeline) assetCatalog(ctx context.Context, integrator bundle.Integrator) (string, error) {
	path := p.opt.AssetCatalog
	info, err := os.Stat(path)
	if err != nil {
		return "", &iconset.UnreadableSourceError{Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return "", &iconset.UnreadableSourceError{Path: path, Err: errors.New("not a regular file")}
	}

	name := p.opt.AssetCatalogIconName
	if name == "" {
		name, err = actool.AppIconName(ctx, p.opt.Toolchain, path)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			p.logger.Warn().Err(err).Str("path", path).
				Msg("could not read the app icon name from the asset catalog, CFBundleIconName keeps the container name")
		}
	}

	dst, err := integrator.PlaceAssetCatalog(ctx, path)
	if err != nil {
		return "", err
	}
	p.result.AssetCatalogPath = dst
	return name, nil
}

// checkToolchain warns when tinted icons are enabled but the local actool
// does not know them. It never fails the build.
func (p *pipeline) checkToolchain(ctx context.Context) {
	if !p.opt.CheckToolchain {
		return
	}
	tinted := false
	for _, tag := range p.opt.Tags {
		if tag == appearance.Tinted {
			tinted = true
		}
	}
	if !tinted {
		return
	}
	version, err := actool.Version(ctx, p.opt.Toolchain)
	if err != nil {
		p.logger.Warn().Err(err).Msg("could not determine actool version, tinted icons may be ignored")
		return
	}
	ok, err := actool.SupportsTinted(version)
	if err != nil {
		p.logger.Warn().Err(err).Msg("could not parse actool version")
		return
	}
	if !ok {
		p.logger.Warn().
			Str("actool_version", version).
			Str("required", actool.TintedMinVersion).
			Msg("actool predates tinted icons, they are embedded but older toolchains ignore them")
	}
}
