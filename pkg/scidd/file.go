package scidd

import (
	"path"
	"strings"
	"sync"

	"github.com/glorpus-work/scidd/pkg/errors"
)

// FileResource is the capability set the cache and download layers need from
// an identifier that names a retrievable file.
type FileResource interface {
	Identifier

	// Filename returns the file's name with fragment, query, ;params and any
	// compression suffix stripped.
	Filename() string

	// UncompressedSize returns the size reported by the metadata API, or 0
	// when unknown. It is never measured from disk.
	UncompressedSize() int64
	SetUncompressedSize(int64)

	// FilenameDisambiguator returns a string folded into the cache path for
	// datasets whose filenames are not unique, or "" otherwise.
	FilenameDisambiguator() string

	// CachedPathWithin and StorePathWithin memoize the relative cache path
	// per cache root.
	CachedPathWithin(root string) (string, bool)
	StorePathWithin(root, rel string)
}

// File is an identifier that points to a retrievable file resource. A File is
// an abstract representation of the data: the same file can be materialized in
// several caches, so the relative location is memoized per cache root.
type File struct {
	ID

	filenameOnce sync.Once
	filename     string

	sizeMu           sync.Mutex
	uncompressedSize int64

	disambiguator string

	pathMu          sync.Mutex
	pathWithinCache map[string]string
}

// ParseFile parses raw into a generic File without domain dispatch. It fails
// on identifiers whose kind is not "file".
func ParseFile(raw string) (*File, error) {
	p, err := parseCore(raw)
	if err != nil {
		return nil, err
	}
	if p.kind != KindFile {
		return nil, errors.Wrapf(errors.ErrNotAFileResource, "%q", raw)
	}
	return newFileFromCore(p), nil
}

func newFileFromCore(p parts) *File {
	return &File{ID: ID{parts: p}}
}

// Filename returns the name of the file the identifier points to. The name is
// the last path component once fragment, query and ;params are removed; a
// compression extension is also stripped, since the identifier names the
// logical (uncompressed) file regardless of how the archive stores it.
func (f *File) Filename() string {
	f.filenameOnce.Do(func() {
		name := f.parts.lastSegment()
		f.filename = StripCompressedExtension(name)
	})
	return f.filename
}

// FileExtension returns the filename's extension including the leading dot,
// or "" if there is none.
func (f *File) FileExtension() string {
	return path.Ext(f.Filename())
}

// UncompressedSize returns the known uncompressed size of this file. The
// value comes from resolution metadata, not from disk, so it is 0 until a
// metadata lookup has populated it.
func (f *File) UncompressedSize() int64 {
	f.sizeMu.Lock()
	defer f.sizeMu.Unlock()
	return f.uncompressedSize
}

// SetUncompressedSize records the authoritative size from metadata.
func (f *File) SetUncompressedSize(n int64) {
	f.sizeMu.Lock()
	defer f.sizeMu.Unlock()
	f.uncompressedSize = n
}

// FilenameDisambiguator returns the string folded into cache paths when the
// dataset declares its filenames non-unique. Empty for most datasets.
func (f *File) FilenameDisambiguator() string { return f.disambiguator }

// SetFilenameDisambiguator is called by domain constructors for datasets that
// declare non-unique filenames.
func (f *File) SetFilenameDisambiguator(s string) { f.disambiguator = s }

// CachedPathWithin returns the memoized relative path for the given cache
// root, if one has been computed.
func (f *File) CachedPathWithin(root string) (string, bool) {
	f.pathMu.Lock()
	defer f.pathMu.Unlock()
	rel, ok := f.pathWithinCache[root]
	return rel, ok
}

// StorePathWithin memoizes the relative path for a cache root. Relative paths
// never start with a separator; joining breaks otherwise.
func (f *File) StorePathWithin(root, rel string) {
	f.pathMu.Lock()
	defer f.pathMu.Unlock()
	if f.pathWithinCache == nil {
		f.pathWithinCache = make(map[string]string)
	}
	f.pathWithinCache[root] = strings.TrimPrefix(rel, "/")
}

// StripCompressedExtension removes a trailing compression extension from name
// if one is present.
func StripCompressedExtension(name string) string {
	for _, ext := range CompressedExtensions {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}
