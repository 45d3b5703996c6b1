package cache

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/glorpus-work/scidd/internal/logger"
	"github.com/glorpus-work/scidd/pkg/errors"
	"github.com/glorpus-work/scidd/pkg/fsutil"
	"github.com/glorpus-work/scidd/pkg/scidd"
)

// redundantFileSegment matches the "/file/" kind label between the domain and
// the rest of the path. The label carries no information on disk, so cache
// layouts drop it.
var redundantFileSegment = regexp.MustCompile(`^([^/]+)/file/(.+)$`)

// DefaultManager lays files out under a single cache root, mirroring the
// identifier's path structure minus the scheme and the "file" kind label.
type DefaultManager struct {
	dir        string
	decompress bool
	downloader Downloader

	respOnce sync.Once
	resp     *ResponseCache
	respErr  error
}

var _ Manager = (*DefaultManager)(nil)

// NewManager creates a manager rooted at dir. The directory is created when
// missing; a broken symlink at dir is a configuration error, not a cue to
// create a fresh cache next to it.
func NewManager(dir string, downloader Downloader, decompress bool) (*DefaultManager, error) {
	if err := fsutil.EnsureDir(dir); err != nil {
		return nil, errors.Wrapf(err, "setting up cache at %s", dir)
	}
	return &DefaultManager{dir: dir, decompress: decompress, downloader: downloader}, nil
}

// NewDefaultManager creates a manager at the default cache location
// ($HOME/.scidd_cache) with decompression enabled.
func NewDefaultManager(downloader Downloader) (*DefaultManager, error) {
	dir, err := fsutil.DefaultCacheDir()
	if err != nil {
		return nil, err
	}
	return NewManager(dir, downloader, true)
}

// Path returns the top-level cache directory.
func (m *DefaultManager) Path() string { return m.dir }

// DecompressDownloads reports whether payloads are decompressed on the way in.
func (m *DefaultManager) DecompressDownloads() bool { return m.decompress }

// PathWithinCache returns the directory, relative to the cache root, where the
// file belongs. The path mirrors the identifier minus the scheme and the
// "file" kind label, excludes the filename itself, and appends the dataset's
// filename disambiguator when one is declared. The result is memoized on the
// file per cache root.
func (m *DefaultManager) PathWithinCache(file scidd.FileResource) (string, error) {
	if rel, ok := file.CachedPathWithin(m.dir); ok {
		return rel, nil
	}

	rel := file.Path()
	if i := strings.Index(rel, "?"); i >= 0 {
		rel = rel[:i]
	}
	if i := strings.Index(rel, "#"); i >= 0 {
		rel = rel[:i]
	}
	rel = strings.TrimPrefix(rel, "/")
	rel = redundantFileSegment.ReplaceAllString(rel, "$1/$2")

	rel = path.Dir(rel)
	if rel == "." || rel == "/" {
		rel = ""
	}
	if d := file.FilenameDisambiguator(); d != "" {
		rel = path.Join(rel, d)
	}

	file.StorePathWithin(m.dir, rel)
	return rel, nil
}

// localDir returns the absolute directory the file lives in within this cache.
func (m *DefaultManager) localDir(file scidd.FileResource) (string, error) {
	rel, err := m.PathWithinCache(file)
	if err != nil {
		return "", err
	}
	return filepath.Join(m.dir, filepath.FromSlash(rel)), nil
}

// IsInCache reports whether the file is already present, returning its full
// path when it is. A zero-length file at the expected location is treated as
// the residue of an interrupted write: it is removed and reported absent.
func (m *DefaultManager) IsInCache(file scidd.FileResource) (string, bool, error) {
	dir, err := m.localDir(file)
	if err != nil {
		return "", false, err
	}
	full := filepath.Join(dir, file.Filename())

	fi, err := os.Stat(full)
	if err != nil {
		return full, false, nil
	}
	if fi.Size() == 0 {
		logger.Warn("Removing zero-length cache file", logger.Fields{"path": full})
		_ = os.Remove(full)
		return full, false, nil
	}
	return full, true, nil
}

// compressedSibling looks for a compressed variant of the file sitting next to
// where the uncompressed one would be, and returns its path if one exists.
func (m *DefaultManager) compressedSibling(file scidd.FileResource) (string, bool) {
	dir, err := m.localDir(file)
	if err != nil {
		return "", false
	}
	base := filepath.Join(dir, file.Filename())
	for _, ext := range scidd.CompressedExtensions {
		candidate := base + ext
		if fi, err := os.Stat(candidate); err == nil && fi.Size() > 0 {
			return candidate, true
		}
	}
	return "", false
}

// FilePath returns the local path of the file, downloading it into the cache
// first when it is not already present. A compressed variant already on disk
// satisfies the request without a download.
func (m *DefaultManager) FilePath(ctx context.Context, file scidd.FileResource) (string, error) {
	if err := fsutil.CheckBrokenSymlink(m.dir); err != nil {
		return "", err
	}

	if full, ok, err := m.IsInCache(file); err != nil {
		return "", err
	} else if ok {
		return full, nil
	}

	if sibling, ok := m.compressedSibling(file); ok {
		return sibling, nil
	}

	if m.downloader == nil {
		return "", errors.Wrapf(errors.ErrFileResourceNotFound, "%s is not cached and no downloader is configured", file)
	}

	dir, err := m.localDir(file)
	if err != nil {
		return "", err
	}
	if _, err := m.downloader.DownloadTo(ctx, file, dir, m.decompress); err != nil {
		return "", err
	}

	if full, ok, err := m.IsInCache(file); err != nil {
		return "", err
	} else if ok {
		return full, nil
	}
	if sibling, ok := m.compressedSibling(file); ok {
		return sibling, nil
	}
	return "", errors.Wrapf(errors.ErrPostDownloadFileMissing, "download of %s reported success but the file is not in the cache", file)
}

// Responses returns the response cache stored in this cache root, creating it
// on first use.
func (m *DefaultManager) Responses() (*ResponseCache, error) {
	m.respOnce.Do(func() {
		m.resp, m.respErr = NewResponseCache(m.dir)
	})
	return m.resp, m.respErr
}

// Close releases the response-cache connection if one was opened.
func (m *DefaultManager) Close() error {
	if m.resp != nil {
		return m.resp.Close()
	}
	return nil
}
