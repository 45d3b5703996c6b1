package cache

import (
	"context"
	"time"

	"github.com/glorpus-work/scidd/pkg/scidd"
)

// Manager is the capability set a cache-path strategy must provide. Custom
// layouts (e.g. for datasets with millions of files) implement this interface
// instead of DefaultManager.
type Manager interface {
	// Path returns the top-level cache directory.
	Path() string

	// PathWithinCache returns the directory path, relative to Path, where the
	// file would be found or written. It never starts with a path separator
	// and never includes the filename.
	PathWithinCache(file scidd.FileResource) (string, error)

	// Responses returns the response cache stored in this cache root.
	Responses() (*ResponseCache, error)

	// DecompressDownloads reports whether compressed payloads are
	// decompressed as they enter this cache.
	DecompressDownloads() bool
}

// Downloader materializes a file resource into a directory and returns the
// local path. The cache manager treats it as the single choke point for
// writing files into the cache.
type Downloader interface {
	DownloadTo(ctx context.Context, file scidd.FileResource, dir string, decompress bool) (string, error)
}

// CleanOptions specifies what to remove from a cache root.
type CleanOptions struct {
	All       bool
	Files     bool
	Responses bool
}

// CleanResult reports what a Clean call removed.
type CleanResult struct {
	TotalFreed    int64
	FilesFreed    int64
	ResponseFreed int64
}

// Info describes the contents of a cache root.
type Info struct {
	Directory     string
	TotalSize     int64
	FileSize      int64
	FileCount     int
	ResponseSize  int64
	LastInspected time.Time
}
