package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bundlekit/iconbundle/pkg/secure"
)

// AtomicWrite writes the contents of r to path by writing a temporary file in
// the same directory, syncing it and renaming it over path. Readers of path
// see either the previous file or the complete new one. The directory of path
// must exist.
//
// ctx is checked before the rename; a cancelled context leaves path untouched
// and removes the temporary file.
func AtomicWrite(ctx context.Context, path string, r io.Reader, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := secure.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*", perm)
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file into place: %w", err)
	}
	return nil
}

// AtomicWriteFile is AtomicWrite for an in-memory buffer.
func AtomicWriteFile(ctx context.Context, path string, data []byte, perm os.FileMode) error {
	return AtomicWrite(ctx, path, bytes.NewReader(data), perm)
}

// Copy copies the file from srcPath to dstPath atomically, using the provided
// permissions. The destination directory must exist.
func Copy(ctx context.Context, srcPath, dstPath string, perm os.FileMode) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open src for copy: %w", err)
	}
	defer src.Close()

	if err := AtomicWrite(ctx, dstPath, src, perm); err != nil {
		return fmt.Errorf("copy %s to %s: %w", srcPath, dstPath, err)
	}
	return nil
}

// Exists returns whether the file exists and is a regular file.
func Exists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("check file exists: %w", err)
	}

	return info.Mode().IsRegular(), nil
}
