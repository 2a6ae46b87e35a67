package packaging

import (
	"context"
	"path/filepath"

	"github.com/bundlekit/iconbundle/pkg/constant"
	"github.com/bundlekit/iconbundle/pkg/file"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// BundleIconSets bundles several icon sets concurrently, at most limit at a
// time (no limit if limit <= 0). Writes to the same file are serialized;
// sets writing disjoint files never wait on each other. The first failure
// cancels the remaining sets.
//
// Results are returned in the order of sets; entries of sets that did not
// run are nil.
func BundleIconSets(ctx context.Context, sets []Options, limit int) ([]*Result, error) {
	if err := checkSets(sets); err != nil {
		return nil, err
	}

	locks := &file.Locks{}
	results := make([]*Result, len(sets))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, opt := range sets {
		i, opt := i, opt
		if opt.Locks == nil {
			opt.Locks = locks
		}
		g.Go(func() error {
			r, err := BundleIcons(ctx, opt)
			results[i] = r
			return err
		})
	}
	return results, g.Wait()
}

// checkSets rejects sets that would overwrite each other's container or both
// claim the primary icon of a bundle.
func checkSets(sets []Options) error {
	containers := make(map[string]int)
	staged := make(map[string]int)
	primary := make(map[string]int)
	for i, opt := range sets {
		opt = opt.withDefaults()
		if opt.Mode == ModeDev {
			continue
		}
		fileName := opt.Name + constant.ContainerExtension
		bundleKey := filepath.Clean(opt.Bundle)

		dst := filepath.Join(bundleKey, constant.ContentsDirName, constant.ResourcesDirName, fileName)
		if j, ok := containers[dst]; ok {
			return errors.Errorf("icon sets %d and %d both write %s", j, i, dst)
		}
		containers[dst] = i

		if opt.StagingDir != "" && opt.Prebuilt == "" {
			path := filepath.Join(filepath.Clean(opt.StagingDir), fileName)
			if j, ok := staged[path]; ok {
				return errors.Errorf("icon sets %d and %d both stage %s", j, i, path)
			}
			staged[path] = i
		}

		if opt.Primary {
			if j, ok := primary[bundleKey]; ok {
				return errors.Errorf("icon sets %d and %d are both primary for %s", j, i, opt.Bundle)
			}
			primary[bundleKey] = i
		}
	}
	return nil
}
