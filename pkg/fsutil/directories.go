package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glorpus-work/scidd/pkg/errors"
)

// EnsureDir creates a directory and all necessary parent directories with default
// permissions if they don't exist. It refuses to create a directory on top of a
// broken symbolic link: os.MkdirAll would fail there with a confusing error, and a
// broken link at a cache path is a configuration problem the caller must fix.
func EnsureDir(path string) error {
	if err := CheckBrokenSymlink(path); err != nil {
		return err
	}
	return os.MkdirAll(path, DirModeDefault)
}

// EnsureFileDir creates the parent directory of a file path if it doesn't exist.
func EnsureFileDir(filePath string) error {
	return EnsureDir(filepath.Dir(filePath))
}

// CheckBrokenSymlink returns ErrBrokenCacheLink if path is a symbolic link whose
// target no longer exists. A missing path or a healthy path returns nil.
func CheckBrokenSymlink(path string) error {
	fi, err := os.Lstat(path)
	if err != nil {
		// nothing at the path at all
		return nil
	}
	if fi.Mode()&os.ModeSymlink == 0 {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("symlink target for %s is gone: %w", path, errors.ErrBrokenCacheLink)
	}
	return nil
}

// CheckWritableDir verifies that path exists, is a directory and is writable by
// the current process. Writability is probed by creating and removing a
// temporary file, which works uniformly across platforms.
func CheckWritableDir(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCacheNotWritable, "cannot stat %s", path)
	}
	if !fi.IsDir() {
		return errors.Wrapf(errors.ErrCacheNotWritable, "%s is not a directory", path)
	}
	probe, err := os.CreateTemp(path, ".write-probe-*")
	if err != nil {
		return errors.Wrapf(errors.ErrCacheNotWritable, "%s", path)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return nil
}
