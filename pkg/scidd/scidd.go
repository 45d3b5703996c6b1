// Package scidd implements the scidd identifier model: parsing the
// scheme-prefixed grammar, dispatching identifiers to registered domain
// handlers, and the file-resource specialization used by the cache layer.
//
// Grammar:
//
//	scidd:/domain/kind/dataset/release/path...[;uniqueid=X][#fragment][?query]
//
// where kind is "data" or "file".
package scidd

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/glorpus-work/scidd/pkg/errors"
)

// Prefix is the scheme prefix every scidd identifier starts with.
const Prefix = "scidd:/"

// Kind discriminates what an identifier points to.
type Kind string

// Identifier kinds.
const (
	KindData Kind = "data"
	KindFile Kind = "file"
)

// CompressedExtensions lists the file extensions treated as compressed payloads
// throughout the cache and download layers.
var CompressedExtensions = []string{".gz", ".bz2", ".zip"}

// Identifier is the read surface shared by every scidd identifier variant.
// The string form is immutable after construction; only the resolved URL is
// memoized lazily (set once, never re-fetched).
type Identifier interface {
	// String returns the raw identifier, always beginning with Prefix.
	String() string
	Domain() string
	Kind() Kind
	// Dataset returns the short "dataset.release" label, e.g. "galex.gr6",
	// or an empty string when the identifier carries no dataset.
	Dataset() string
	Release() string
	// Path returns the identifier without the "scidd:" scheme.
	Path() string
	Fragment() string
	Query() string
	// UniqueID returns the value of a ";uniqueid=X" segment, if present.
	UniqueID() string
	IsFile() bool

	// URL returns the memoized resolved URL, or "" if not yet resolved.
	URL() string
	// SetURL memoizes the resolved URL. Setting it a second time is a no-op.
	SetURL(string)
	AssignResolver(Resolver)
	AssignedResolver() Resolver

	// WithFragment returns a new identifier equal to this one except for the
	// fragment, which is replaced.
	WithFragment(fragment string) (Identifier, error)
}

//go:generate mockgen -destination=./mocks/resolver.go -package=mocks . Resolver

// Resolver maps identifiers to network locations. Concrete resolvers are
// domain-specific collaborators; the core only consumes this protocol and
// caches its results.
type Resolver interface {
	// URLForID resolves an identifier into a URL the resource can be
	// retrieved from. ErrUnresolvedIdentifier is returned when the
	// domain/dataset combination has no route.
	URLForID(ctx context.Context, id Identifier) (string, error)

	// ResourceForID resolves the identifier and retrieves the resource it
	// points to. The caller owns the returned reader.
	ResourceForID(ctx context.Context, id Identifier) (io.ReadCloser, error)
}

// DomainHandler is the recognizer/constructor pair a domain registers to
// participate in identifier dispatch. Dispatch happens exactly once, at parse
// time.
type DomainHandler struct {
	// Domain is the top-level domain label, e.g. "astro".
	Domain string

	// Recognize reports whether this handler claims the raw identifier.
	Recognize func(raw string) bool

	// New constructs the domain-specific identifier variant.
	New func(raw string) (Identifier, error)

	// FindFilename searches the domain for identifiers matching a bare
	// filename. Optional; domains without a filename-search capability
	// leave it nil.
	FindFilename func(ctx context.Context, filename string, allowMultiple bool) ([]Identifier, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]DomainHandler{}
)

// RegisterDomain adds a domain handler to the dispatch table. Registering the
// same domain twice replaces the earlier handler.
func RegisterDomain(h DomainHandler) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[h.Domain] = h
}

func registeredHandlers() []DomainHandler {
	registryMu.RLock()
	defer registryMu.RUnlock()
	handlers := make([]DomainHandler, 0, len(registry))
	for _, h := range registry {
		handlers = append(handlers, h)
	}
	// map order is random; keep dispatch deterministic
	sort.Slice(handlers, func(i, j int) bool { return handlers[i].Domain < handlers[j].Domain })
	return handlers
}

func handlerFor(domain string) (DomainHandler, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	h, ok := registry[domain]
	return h, ok
}

// Parse turns a raw scidd string into the identifier variant registered for
// its domain. Identifiers in domains without a registered handler fall back to
// the generic ID / File types.
func Parse(raw string) (Identifier, error) {
	if err := validate(raw); err != nil {
		return nil, err
	}
	for _, h := range registeredHandlers() {
		if h.Recognize != nil && h.Recognize(raw) {
			return h.New(raw)
		}
	}
	core, err := parseCore(raw)
	if err != nil {
		return nil, err
	}
	if core.kind == KindFile {
		return newFileFromCore(core), nil
	}
	return &ID{parts: core}, nil
}

// FromFilename builds an identifier from a bare filename by deferring to the
// domain's filename-search capability. With allowMultiple false, exactly one
// match is required: zero matches fail with ErrFilenameNotFound and more than
// one with ErrAmbiguousFilename. With allowMultiple true all matches are
// returned.
func FromFilename(ctx context.Context, filename, domain string, allowMultiple bool) ([]Identifier, error) {
	if filename == "" {
		return nil, errors.Wrap(errors.ErrInvalidIdentifier, "a filename must be provided")
	}
	h, ok := handlerFor(domain)
	if !ok || h.FindFilename == nil {
		return nil, errors.Wrapf(errors.ErrUnregisteredDomain, "domain %q has no filename search", domain)
	}
	return h.FindFilename(ctx, filename, allowMultiple)
}

// ResolveURL returns the identifier's URL, consulting its assigned resolver on
// first use and memoizing the result on the identifier.
func ResolveURL(ctx context.Context, id Identifier) (string, error) {
	if u := id.URL(); u != "" {
		return u, nil
	}
	r := id.AssignedResolver()
	if r == nil {
		return "", errors.Wrapf(errors.ErrNoResolverAssigned, "resolving %s", id)
	}
	u, err := r.URLForID(ctx, id)
	if err != nil {
		return "", err
	}
	id.SetURL(u)
	return u, nil
}
