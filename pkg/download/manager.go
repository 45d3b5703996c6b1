// Package download retrieves file resources over HTTP into a cache directory.
package download

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/glorpus-work/scidd/internal/logger"
	"github.com/glorpus-work/scidd/pkg/errors"
	"github.com/glorpus-work/scidd/pkg/fsutil"
	"github.com/glorpus-work/scidd/pkg/scidd"
)

const (
	// DefaultTimeout bounds a single download request. Archive files can be
	// large, so this is deliberately generous.
	DefaultTimeout = 10 * time.Minute

	defaultUserAgent = "scidd/1.0"
)

// Manager is an HTTP download engine. It resolves an identifier to a URL,
// streams the payload through a temp file, and only then moves it into place,
// so an interrupted transfer never leaves a partial file at the destination.
type Manager struct {
	client    *http.Client
	userAgent string
}

// NewManager creates a download manager with the given timeout and user agent.
func NewManager(timeout time.Duration, userAgent string) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Manager{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// DownloadTo retrieves the file into dir and returns the local path. When
// decompress is true, gzip, bzip2 and single-member zip payloads are expanded
// on the way in and stored under the uncompressed filename.
func (m *Manager) DownloadTo(ctx context.Context, file scidd.FileResource, dir string, decompress bool) (string, error) {
	if existing, ok := alreadyDownloaded(dir, file.Filename()); ok {
		return existing, nil
	}

	rawURL, err := scidd.ResolveURL(ctx, file)
	if err != nil {
		return "", err
	}
	if err := fsutil.EnsureDir(dir); err != nil {
		return "", errors.Wrapf(err, "creating download dir %s", dir)
	}

	resp, finalURL, err := m.open(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	remoteName, err := filenameFromURL(finalURL)
	if err != nil {
		return "", err
	}

	tmpPath, err := writeBodyToTemp(resp, dir)
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmpPath) }()

	finalName := remoteName
	if decompress {
		if ext := compressedExtension(remoteName); ext != "" {
			expanded, err := expandToTemp(ctx, tmpPath, ext, dir)
			if err != nil {
				return "", err
			}
			_ = os.Remove(tmpPath)
			tmpPath = expanded
			finalName = scidd.StripCompressedExtension(remoteName)
		}
	}

	absPath := filepath.Join(dir, finalName)
	if err := finalizeFile(tmpPath, absPath); err != nil {
		return "", err
	}
	applyLastModified(absPath, resp)

	logger.Debug("Downloaded file", logger.Fields{
		"id":   file.String(),
		"url":  finalURL,
		"path": absPath,
	})
	return absPath, nil
}

// open performs the GET request. A 404 triggers a fallback probe for
// compressed variants of the same URL, since archives frequently store only
// the gzipped form of a file whose identifier names the uncompressed one.
func (m *Manager) open(ctx context.Context, rawURL string) (*http.Response, string, error) {
	resp, err := m.get(ctx, rawURL)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode == http.StatusOK {
		return resp, rawURL, nil
	}
	_ = resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		if altURL, ok := m.probeCompressedVariants(ctx, rawURL); ok {
			logger.Warn("File not found at resolved URL; using compressed variant", logger.Fields{
				"url":      rawURL,
				"fallback": altURL,
			})
			altResp, err := m.get(ctx, altURL)
			if err != nil {
				return nil, "", err
			}
			if altResp.StatusCode == http.StatusOK {
				return altResp, altURL, nil
			}
			_ = altResp.Body.Close()
		}
		return nil, "", errors.Wrapf(errors.ErrFileResourceNotFound, "%s", rawURL)
	}
	return nil, "", errors.Wrapf(errors.ErrConnection, "unexpected status %d from %s", resp.StatusCode, rawURL)
}

func (m *Manager) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, errors.Wrapf(err, "building request for %s", rawURL)
	}
	req.Header.Set("User-Agent", m.userAgent)
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrConnection, "%s: %v", rawURL, err)
	}
	return resp, nil
}

// probeCompressedVariants issues HEAD requests for url plus each known
// compression extension and returns the first variant that exists.
func (m *Manager) probeCompressedVariants(ctx context.Context, rawURL string) (string, bool) {
	for _, ext := range scidd.CompressedExtensions {
		candidate := rawURL + ext
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, candidate, http.NoBody)
		if err != nil {
			continue
		}
		req.Header.Set("User-Agent", m.userAgent)
		resp, err := m.client.Do(req)
		if err != nil {
			continue
		}
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return candidate, true
		}
	}
	return "", false
}

// alreadyDownloaded reports whether the target file is already present in
// dir, so a repeat request never touches the network. A zero-length file is
// the residue of an interrupted write: it is removed and reported absent.
func alreadyDownloaded(dir, filename string) (string, bool) {
	if filename == "" {
		return "", false
	}
	full := filepath.Join(dir, filename)
	fi, err := os.Stat(full)
	if err != nil {
		return "", false
	}
	if fi.Size() == 0 {
		logger.Warn("Removing zero-length cache file", logger.Fields{"path": full})
		_ = os.Remove(full)
		return "", false
	}
	return full, true
}

func filenameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrapf(err, "parsing URL %s", rawURL)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", errors.Wrapf(errors.ErrFileResourceNotFound, "URL %s has no filename", rawURL)
	}
	return name, nil
}

func compressedExtension(name string) string {
	for _, ext := range scidd.CompressedExtensions {
		if path.Ext(name) == ext {
			return ext
		}
	}
	return ""
}

func writeBodyToTemp(resp *http.Response, dir string) (string, error) {
	tmp, err := os.CreateTemp(dir, "dl-*.tmp")
	if err != nil {
		return "", errors.Wrap(err, "could not create temp file")
	}
	tmpPath := tmp.Name()

	if _, err := tmp.ReadFrom(resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", errors.Wrapf(errors.ErrConnection, "transfer interrupted: %v", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", errors.Wrap(err, "could not sync file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", errors.Wrap(err, "could not close file")
	}
	return tmpPath, nil
}

func finalizeFile(tmpPath, absPath string) error {
	if err := fsutil.Move(tmpPath, absPath); err != nil {
		return errors.Wrap(err, "could not finalize file")
	}
	if err := os.Chmod(absPath, fsutil.FileModeDefault); err != nil {
		return errors.Wrap(err, "could not set permissions")
	}
	return nil
}

// applyLastModified copies the server's Last-Modified time onto the local
// file so the cache reflects the archive's timestamps. Best effort only.
func applyLastModified(absPath string, resp *http.Response) {
	lm := resp.Header.Get("Last-Modified")
	if lm == "" {
		return
	}
	t, err := http.ParseTime(lm)
	if err != nil {
		return
	}
	_ = os.Chtimes(absPath, t, t)
}
