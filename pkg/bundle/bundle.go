// Package bundle places an assembled icon container into a finished macOS
// application bundle and records it in the bundle manifest.
package bundle

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bundlekit/iconbundle/pkg/constant"
	"github.com/bundlekit/iconbundle/pkg/file"
	"github.com/bundlekit/iconbundle/pkg/secure"
	"github.com/rs/zerolog/log"
)

// BundleWriteError is returned when the bundle skeleton is missing or a file
// inside it cannot be written.
type BundleWriteError struct {
	Path string
	Err  error
}

func (e *BundleWriteError) Error() string {
	return fmt.Sprintf("bundle write %s: %v", e.Path, e.Err)
}

func (e *BundleWriteError) Unwrap() error { return e.Err }

// Skeleton is an application bundle produced by the packager. Icons are only
// added to an existing skeleton; its directories are never created here.
type Skeleton struct {
	// Root is the <Name>.app directory.
	Root string
}

func (s Skeleton) ContentsDir() string {
	return filepath.Join(s.Root, constant.ContentsDirName)
}

func (s Skeleton) ResourcesDir() string {
	return filepath.Join(s.ContentsDir(), constant.ResourcesDirName)
}

func (s Skeleton) InfoPlistPath() string {
	return filepath.Join(s.ContentsDir(), constant.InfoPlistFileName)
}

// Validate checks that Contents/, Contents/Resources/ and Contents/Info.plist
// exist.
func (s Skeleton) Validate() error {
	for _, dir := range []string{s.Root, s.ContentsDir(), s.ResourcesDir()} {
		if err := secure.RequireDir(dir); err != nil {
			return &BundleWriteError{Path: dir, Err: err}
		}
	}
	ok, err := file.Exists(s.InfoPlistPath())
	if err != nil {
		return &BundleWriteError{Path: s.InfoPlistPath(), Err: err}
	}
	if !ok {
		return &BundleWriteError{Path: s.InfoPlistPath(), Err: fmt.Errorf("missing %s", constant.InfoPlistFileName)}
	}
	return nil
}

// ManifestEntry is the manifest record of one embedded icon container.
type ManifestEntry struct {
	// ResourcePath is the container path relative to Contents/, for example
	// Resources/AppIcon.icns.
	ResourcePath string
	// IconName is the container's base name without extension.
	IconName string
	// MinimumSystemVersion is the OS floor required by the appearances
	// embedded in the container. Empty when only default sources were used.
	MinimumSystemVersion string
	// Primary marks the application's main icon.
	Primary bool
	// AssetCatalogIconName, for the primary icon, replaces IconName as
	// CFBundleIconName so the system loads the icon from Assets.car.
	AssetCatalogIconName string
}

// Manifest records icon entries in the bundle manifest.
type Manifest interface {
	SetIconEntry(ctx context.Context, entry ManifestEntry) error
}

// ValidIconName reports whether name can be used as a container base name.
func ValidIconName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid icon name %q", name)
	}
	return nil
}

// Integrator embeds containers into a bundle skeleton.
type Integrator struct {
	Skeleton Skeleton
	// Manifest receives the entry once the container is in place. Nil means
	// the skeleton's Info.plist.
	Manifest Manifest
	// Locks serializes writes of the same file across concurrent
	// integrations. May be nil.
	Locks *file.Locks
}

func (i Integrator) manifest() Manifest {
	if i.Manifest != nil {
		return i.Manifest
	}
	return &InfoPlist{Path: i.Skeleton.InfoPlistPath(), Locks: i.Locks}
}

// PlaceAssetCatalog copies a compiled asset catalog to
// Contents/Resources/Assets.car. The manifest is not touched; record the
// catalog's icon name through the entry passed to Integrate.
func (i Integrator) PlaceAssetCatalog(ctx context.Context, catalogPath string) (string, error) {
	if err := i.Skeleton.Validate(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst := filepath.Join(i.Skeleton.ResourcesDir(), constant.AssetCatalogFileName)
	unlock := i.Locks.Lock(dst)
	err := file.Copy(ctx, catalogPath, dst, constant.DefaultFileMode)
	unlock()
	if err != nil {
		return "", &BundleWriteError{Path: dst, Err: err}
	}
	log.Debug().Str("path", dst).Msg("placed asset catalog")
	return dst, nil
}

// Integrate copies the container at containerPath to
// Contents/Resources/<IconName>.icns and then records entry in the manifest.
// The manifest is not touched if the copy fails. It returns the destination
// path and the entry as recorded.
func (i Integrator) Integrate(ctx context.Context, containerPath string, entry ManifestEntry) (string, ManifestEntry, error) {
	if entry.IconName == "" {
		entry.IconName = constant.DefaultIconName
	}
	if err := ValidIconName(entry.IconName); err != nil {
		return "", entry, err
	}
	if err := i.Skeleton.Validate(); err != nil {
		return "", entry, err
	}

	fileName := entry.IconName + constant.ContainerExtension
	entry.ResourcePath = constant.ResourcesDirName + "/" + fileName
	dst := filepath.Join(i.Skeleton.ResourcesDir(), fileName)

	if err := ctx.Err(); err != nil {
		return "", entry, err
	}
	unlock := i.Locks.Lock(dst)
	err := file.Copy(ctx, containerPath, dst, constant.DefaultFileMode)
	unlock()
	if err != nil {
		return "", entry, &BundleWriteError{Path: dst, Err: err}
	}
	log.Debug().Str("path", dst).Msg("placed icon container")

	if err := i.manifest().SetIconEntry(ctx, entry); err != nil {
		return "", entry, err
	}
	return dst, entry, nil
}
