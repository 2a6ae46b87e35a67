// Package secure opens and creates files and directories while refusing to
// loosen the permissions of what already exists.
package secure

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

func isMorePermissive(currentMode, newMode os.FileMode) bool {
	currentGroup := currentMode & 0o070
	newGroup := newMode & 0o070
	currentAll := currentMode & 0o07
	newAll := newMode & 0o07

	return newGroup > currentGroup || newAll > currentAll
}

// checkPermPath walks up from path to the first existing directory and fails
// if that directory is less permissive than perm.
func checkPermPath(path string, perm os.FileMode) error {
	for {
		info, err := os.Stat(path)
		if err == nil {
			if !info.IsDir() {
				return &os.PathError{Op: "mkdir", Path: path, Err: syscall.ENOTDIR}
			}
			if isMorePermissive(info.Mode().Perm(), perm.Perm()) {
				return fmt.Errorf(
					"path %s already exists with mode %o instead of the expected %o", path, info.Mode().Perm(), perm.Perm())
			}
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		parent := filepath.Dir(path)
		if parent == path {
			return nil
		}
		path = parent
	}
}

// MkdirAll creates path like os.MkdirAll, after checking that the closest
// existing ancestor does not have a more restrictive mode than perm.
func MkdirAll(path string, perm os.FileMode) error {
	if err := checkPermPath(path, perm); err != nil {
		return err
	}
	return os.MkdirAll(path, perm)
}

// RequireDir returns an error wrapping fs.ErrNotExist if path is missing, or
// syscall.ENOTDIR if it is not a directory. It never creates anything.
func RequireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &os.PathError{Op: "stat", Path: path, Err: syscall.ENOTDIR}
	}
	return nil
}

// CreateTemp creates a new temporary file in dir with mode perm. The
// directory must already exist.
func CreateTemp(dir, pattern string, perm os.FileMode) (*os.File, error) {
	if err := RequireDir(dir); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, err
	}
	if err := f.Chmod(perm); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, err
	}
	return f, nil
}
