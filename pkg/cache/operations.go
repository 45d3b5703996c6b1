package cache

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/glorpus-work/scidd/pkg/errors"
)

// Clean removes cached content from the manager's cache root according to
// opts and reports how much space was freed. Cleaning files removes every
// cached download but leaves the response database; cleaning responses
// removes only the database. The cache root itself is preserved.
func (m *DefaultManager) Clean(opts CleanOptions) (*CleanResult, error) {
	result := &CleanResult{}
	if opts.All {
		opts.Files = true
		opts.Responses = true
	}

	if opts.Responses {
		freed, err := m.cleanResponses()
		if err != nil {
			return nil, err
		}
		result.ResponseFreed = freed
	}
	if opts.Files {
		freed, err := m.cleanFiles()
		if err != nil {
			return nil, err
		}
		result.FilesFreed = freed
	}

	result.TotalFreed = result.FilesFreed + result.ResponseFreed
	return result, nil
}

func (m *DefaultManager) cleanResponses() (int64, error) {
	// close the open handle before deleting the file under it
	if m.resp != nil {
		_ = m.resp.Close()
	}

	var freed int64
	dbPath := filepath.Join(m.dir, ResponseCacheFilename)
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		fi, err := os.Stat(p)
		if err != nil {
			continue
		}
		if err := os.Remove(p); err != nil {
			return freed, errors.Wrapf(err, "removing %s", p)
		}
		freed += fi.Size()
	}
	return freed, nil
}

func (m *DefaultManager) cleanFiles() (int64, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrapf(err, "reading cache directory %s", m.dir)
	}

	var freed int64
	for _, entry := range entries {
		if entry.Name() == ResponseCacheFilename ||
			entry.Name() == ResponseCacheFilename+"-wal" ||
			entry.Name() == ResponseCacheFilename+"-shm" {
			continue
		}
		full := filepath.Join(m.dir, entry.Name())
		size, err := dirSize(full)
		if err != nil {
			return freed, err
		}
		if err := os.RemoveAll(full); err != nil {
			return freed, errors.Wrapf(err, "removing %s", full)
		}
		freed += size
	}
	return freed, nil
}

// GetInfo walks the cache root and reports how much space downloads and the
// response database occupy.
func (m *DefaultManager) GetInfo() (*Info, error) {
	info := &Info{Directory: m.dir, LastInspected: time.Now()}

	err := filepath.WalkDir(m.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		switch d.Name() {
		case ResponseCacheFilename, ResponseCacheFilename + "-wal", ResponseCacheFilename + "-shm":
			info.ResponseSize += fi.Size()
		default:
			info.FileSize += fi.Size()
			info.FileCount++
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "inspecting cache at %s", m.dir)
	}

	info.TotalSize = info.FileSize + info.ResponseSize
	return info, nil
}

// dirSize returns the total size of the file or directory tree at p.
func dirSize(p string) (int64, error) {
	var total int64
	err := filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += fi.Size()
		}
		return nil
	})
	return total, err
}
