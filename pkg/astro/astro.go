// Package astro implements the "astro" identifier domain: survey-aware
// identifier construction, abbreviated-form normalization and resolution
// against the astronomical metadata API.
package astro

import (
	"context"
	"path"
	"strings"

	"github.com/glorpus-work/scidd/pkg/errors"
	"github.com/glorpus-work/scidd/pkg/scidd"
)

// Domain is the top-level label this package registers for.
const Domain = "astro"

const domainPrefix = scidd.Prefix + Domain + "/"

func init() {
	scidd.RegisterDomain(scidd.DomainHandler{
		Domain:       Domain,
		Recognize:    Recognize,
		New:          New,
		FindFilename: findFilename,
	})
}

// Recognize reports whether raw belongs to the astro domain.
func Recognize(raw string) bool {
	return strings.HasPrefix(raw, domainPrefix)
}

// New constructs an astro identifier from raw. Abbreviated forms are
// normalized first, the default resolver is attached, and file identifiers
// from datasets with non-unique filenames get their cache disambiguator set.
func New(raw string) (scidd.Identifier, error) {
	normalized, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	kind := kindOf(normalized)
	if kind == scidd.KindFile {
		f, err := scidd.ParseFile(normalized)
		if err != nil {
			return nil, err
		}
		applyDatasetTraits(f)
		f.AssignResolver(DefaultResolver())
		return f, nil
	}

	id, err := scidd.ParseID(normalized)
	if err != nil {
		return nil, err
	}
	id.AssignResolver(DefaultResolver())
	return id, nil
}

// FromString builds an astro identifier from raw, accepting the shorthand
// forms users type: a bare "/data/..." or "/file/..." path is given the
// scheme and domain, and an omitted kind label is filled in. The canonical
// identifier is what the result reports.
func FromString(raw string) (scidd.Identifier, error) {
	if strings.HasPrefix(raw, "/"+string(scidd.KindData)+"/") || strings.HasPrefix(raw, "/"+string(scidd.KindFile)+"/") {
		raw = scidd.Prefix + Domain + raw
	}
	return New(raw)
}

// Normalize expands an abbreviated astro identifier into canonical form. The
// kind label may be omitted when the segment after the domain names a known
// dataset: "scidd:/astro/galex/gr6/frame.fits" becomes
// "scidd:/astro/file/galex/gr6/frame.fits". Whether the abbreviation means
// data or file is decided by the trailing segment: a segment with a file
// extension names a file.
func Normalize(raw string) (string, error) {
	if !Recognize(raw) {
		return "", errors.Wrapf(errors.ErrInvalidIdentifier, "%q is not an astro identifier", raw)
	}

	rest := strings.TrimPrefix(raw, domainPrefix)
	head, _, _ := strings.Cut(rest, "?")
	head, _, _ = strings.Cut(head, "#")
	segments := strings.Split(head, "/")
	if len(segments) == 0 || segments[0] == "" {
		return raw, nil
	}

	switch scidd.Kind(segments[0]) {
	case scidd.KindData, scidd.KindFile:
		return raw, nil
	}

	if !isDatasetSegment(segments[0]) {
		return "", errors.Wrapf(errors.ErrInvalidIdentifier, "%q: %q is neither a kind nor a known dataset", raw, segments[0])
	}

	kind := scidd.KindData
	if last := segments[len(segments)-1]; looksLikeFilename(last) {
		kind = scidd.KindFile
	}
	return domainPrefix + string(kind) + "/" + rest, nil
}

// looksLikeFilename reports whether a path segment names a file rather than
// a collection. Anything with an extension counts.
func looksLikeFilename(segment string) bool {
	segment, _, _ = strings.Cut(segment, ";")
	return path.Ext(segment) != ""
}

func kindOf(normalized string) scidd.Kind {
	rest := strings.TrimPrefix(normalized, domainPrefix)
	kind, _, _ := strings.Cut(rest, "/")
	return scidd.Kind(kind)
}

// applyDatasetTraits configures a file identifier according to its dataset's
// declared capabilities.
func applyDatasetTraits(f *scidd.File) {
	name := datasetName(f)
	d, ok := LookupDataset(name)
	if !ok {
		return
	}
	if !d.UniqueFilenames && f.UniqueID() != "" {
		f.SetFilenameDisambiguator(f.UniqueID())
	}
}

// datasetName returns the bare dataset label, without the release suffix the
// combined Dataset() accessor carries.
func datasetName(id scidd.Identifier) string {
	ds := id.Dataset()
	if rel := id.Release(); rel != "" {
		ds = strings.TrimSuffix(ds, "."+rel)
	}
	return strings.ToLower(ds)
}

func findFilename(ctx context.Context, filename string, allowMultiple bool) ([]scidd.Identifier, error) {
	return DefaultResolver().FindFilename(ctx, filename, allowMultiple)
}
