package bundle

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/bundlekit/iconbundle/pkg/constant"
	"github.com/bundlekit/iconbundle/pkg/file"
	"github.com/rs/zerolog/log"
	"howett.net/plist"
)

const (
	iconFileKey = "CFBundleIconFile"
	iconNameKey = "CFBundleIconName"
)

// InfoPlist is the Manifest backed by a bundle's Info.plist. The file is
// rewritten in XML format with sorted keys, so recording the same entry twice
// leaves it byte-identical.
type InfoPlist struct {
	Path  string
	Locks *file.Locks
}

// SetIconEntry records entry under IconAppearanceRequirements and, for the
// primary icon, points CFBundleIconFile and CFBundleIconName at it (or
// CFBundleIconName at the asset catalog's icon when one was placed). The
// top-level LSMinimumSystemVersion is left alone.
func (p *InfoPlist) SetIconEntry(ctx context.Context, entry ManifestEntry) error {
	unlock := p.Locks.Lock(p.Path)
	defer unlock()

	data, err := os.ReadFile(p.Path)
	if err != nil {
		return &BundleWriteError{Path: p.Path, Err: err}
	}
	var doc map[string]interface{}
	if _, err := plist.Unmarshal(data, &doc); err != nil {
		return &BundleWriteError{Path: p.Path, Err: fmt.Errorf("parse: %w", err)}
	}
	if doc == nil {
		doc = make(map[string]interface{})
	}

	if entry.Primary {
		doc[iconFileKey] = entry.IconName + constant.ContainerExtension
		doc[iconNameKey] = entry.IconName
		if entry.AssetCatalogIconName != "" {
			doc[iconNameKey] = entry.AssetCatalogIconName
		}
	}

	requirements, ok := doc[constant.IconRequirementsKey].(map[string]interface{})
	if !ok {
		requirements = make(map[string]interface{})
	}
	record := make(map[string]interface{})
	if entry.MinimumSystemVersion != "" {
		record[constant.MinimumSystemVersionKey] = entry.MinimumSystemVersion
	}
	requirements[entry.ResourcePath] = record
	doc[constant.IconRequirementsKey] = requirements

	out, err := plist.MarshalIndent(doc, plist.XMLFormat, "\t")
	if err != nil {
		return &BundleWriteError{Path: p.Path, Err: fmt.Errorf("encode: %w", err)}
	}
	if bytes.Equal(out, data) {
		log.Debug().Str("path", p.Path).Msg("manifest unchanged")
		return nil
	}
	if err := file.AtomicWriteFile(ctx, p.Path, out, constant.DefaultFileMode); err != nil {
		return &BundleWriteError{Path: p.Path, Err: err}
	}
	log.Debug().
		Str("path", p.Path).
		Str("resource", entry.ResourcePath).
		Str("min_os", entry.MinimumSystemVersion).
		Msg("updated manifest")
	return nil
}

// ReadIconEntry returns the recorded OS floor of a resource path, and whether
// an entry exists at all.
func (p *InfoPlist) ReadIconEntry(resourcePath string) (floor string, ok bool, err error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return "", false, err
	}
	var doc struct {
		Requirements map[string]map[string]string `plist:"IconAppearanceRequirements"`
	}
	if _, err := plist.Unmarshal(data, &doc); err != nil {
		return "", false, err
	}
	record, ok := doc.Requirements[resourcePath]
	if !ok {
		return "", false, nil
	}
	return record[constant.MinimumSystemVersionKey], true, nil
}
