package astro

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/glorpus-work/scidd/internal/logger"
	pkgerrors "github.com/glorpus-work/scidd/pkg/errors"
	"github.com/glorpus-work/scidd/pkg/resolver"
	"github.com/glorpus-work/scidd/pkg/scidd"
)

// Environment variables overriding the astro resolver endpoint. They take
// precedence over the generic API endpoint variables.
const (
	EnvResolverHost = "SCIDD_ASTRO_RESOLVER_HOST"
	EnvResolverPort = "SCIDD_ASTRO_RESOLVER_PORT"
)

// ResponseStore is the slice of the response cache the resolver needs. A nil
// store disables caching; every lookup then goes to the network.
type ResponseStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// Resolver resolves astro identifiers through the metadata API's filename
// search, consulting a response store before touching the network.
type Resolver struct {
	api    *resolver.APIClient
	client *http.Client

	storeMu sync.Mutex
	store   ResponseStore
}

// NewResolver creates a resolver backed by the given API client.
func NewResolver(api *resolver.APIClient) *Resolver {
	return &Resolver{
		api:    api,
		client: &http.Client{Timeout: resolver.DefaultTimeout},
	}
}

// SetResponseStore attaches a response cache. Safe to call at any time;
// in-flight lookups keep the store they started with.
func (r *Resolver) SetResponseStore(store ResponseStore) {
	r.storeMu.Lock()
	defer r.storeMu.Unlock()
	r.store = store
}

func (r *Resolver) responseStore() ResponseStore {
	r.storeMu.Lock()
	defer r.storeMu.Unlock()
	return r.store
}

var (
	defaultResolverMu sync.Mutex
	defaultResolver   *Resolver
)

// DefaultResolver returns the resolver astro identifiers are constructed
// with. The endpoint comes from SCIDD_ASTRO_RESOLVER_HOST/PORT, falling back
// to the generic API endpoint.
func DefaultResolver() *Resolver {
	defaultResolverMu.Lock()
	defer defaultResolverMu.Unlock()
	if defaultResolver == nil {
		host, port := resolver.EndpointFromEnv(resolver.EnvAPIHost, resolver.EnvAPIPort, resolver.DefaultHost, resolver.DefaultPort)
		host, port = resolver.EndpointFromEnv(EnvResolverHost, EnvResolverPort, host, port)
		defaultResolver = NewResolver(resolver.NewAPIClient(host, port, resolver.DefaultTimeout))
	}
	return defaultResolver
}

// SetDefaultResolver replaces the resolver attached to newly constructed
// astro identifiers. Identifiers already built keep their resolver.
func SetDefaultResolver(r *Resolver) {
	defaultResolverMu.Lock()
	defer defaultResolverMu.Unlock()
	defaultResolver = r
}

// URLForID resolves a file identifier into a retrievable URL via filename
// search. The raw search response is stored in the response cache, so
// repeated resolutions of the same file make no network calls.
func (r *Resolver) URLForID(ctx context.Context, id scidd.Identifier) (string, error) {
	file, ok := id.(scidd.FileResource)
	if !ok || !id.IsFile() {
		return "", pkgerrors.Wrapf(pkgerrors.ErrNotAFileResource, "%s cannot be resolved to a file URL", id)
	}

	query := queryForFile(file)
	records, err := r.search(ctx, query)
	if err != nil {
		return "", err
	}

	switch len(records) {
	case 0:
		return "", pkgerrors.Wrapf(pkgerrors.ErrFilenameNotFound, "%q", query.Filename)
	case 1:
	default:
		return "", pkgerrors.Wrapf(pkgerrors.ErrAmbiguousFilename, "%q matched %d files", query.Filename, len(records))
	}

	rec := records[0]
	if rec.FileSize > 0 {
		file.SetUncompressedSize(rec.FileSize)
	}
	if rec.URL == "" {
		return "", pkgerrors.Wrapf(pkgerrors.ErrUnresolvedIdentifier, "no URL on record for %s", id)
	}
	return rec.URL, nil
}

// ResourceForID resolves the identifier and opens the resource it points to.
func (r *Resolver) ResourceForID(ctx context.Context, id scidd.Identifier) (io.ReadCloser, error) {
	u, err := scidd.ResolveURL(ctx, id)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "building request for %s", u)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrConnection, "%s: %v", u, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, pkgerrors.Wrapf(pkgerrors.ErrFileResourceNotFound, "status %d from %s", resp.StatusCode, u)
	}
	return resp.Body, nil
}

// FindFilename searches the domain for identifiers matching a bare filename.
// With allowMultiple false, exactly one match is required.
func (r *Resolver) FindFilename(ctx context.Context, filename string, allowMultiple bool) ([]scidd.Identifier, error) {
	records, err := r.search(ctx, resolver.FilenameQuery{Filename: filename})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrFilenameNotFound, "%q", filename)
	}
	if len(records) > 1 && !allowMultiple {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrAmbiguousFilename, "%q matched %d files", filename, len(records))
	}

	ids := make([]scidd.Identifier, 0, len(records))
	for _, rec := range records {
		id, err := scidd.Parse(rec.SciDD)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "API returned unparseable identifier %q", rec.SciDD)
		}
		id.AssignResolver(r)
		if rec.URL != "" {
			id.SetURL(rec.URL)
		}
		if f, ok := id.(scidd.FileResource); ok && rec.FileSize > 0 {
			f.SetUncompressedSize(rec.FileSize)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// search runs a filename search, serving it from the response store when the
// same query has been answered before.
func (r *Resolver) search(ctx context.Context, query resolver.FilenameQuery) ([]resolver.SearchRecord, error) {
	key := query.CacheKey(Domain)
	store := r.responseStore()

	if store != nil {
		if body, err := store.Get(key); err == nil {
			return resolver.DecodeSearchRecords(body)
		} else if !errors.Is(err, pkgerrors.ErrCacheKeyNotFound) {
			logger.Warn("Response cache read failed; falling through to the API", logger.Fields{
				"key":   key,
				"error": err.Error(),
			})
		}
	}

	body, err := r.api.Get(ctx, "/"+Domain+"/data/filename-search", query.Values())
	if err != nil {
		return nil, err
	}
	records, err := resolver.DecodeSearchRecords(body)
	if err != nil {
		return nil, err
	}

	if store != nil {
		if err := store.Set(key, body); err != nil {
			logger.Warn("Response cache write failed", logger.Fields{
				"key":   key,
				"error": err.Error(),
			})
		}
	}
	return records, nil
}

// queryForFile builds the search query pinning down a single file: the
// filename as written in the identifier plus whatever narrowing parameters
// the identifier carries.
func queryForFile(file scidd.FileResource) resolver.FilenameQuery {
	return resolver.FilenameQuery{
		Filename: requestFilename(file),
		Dataset:  datasetName(file),
		Release:  file.Release(),
		UniqueID: file.UniqueID(),
	}
}

// requestFilename returns the file's name exactly as the identifier spells
// it, compression extension included, since that is the name the archive
// indexes.
func requestFilename(file scidd.FileResource) string {
	p := file.Path()
	if i := strings.Index(p, "?"); i >= 0 {
		p = p[:i]
	}
	if i := strings.Index(p, "#"); i >= 0 {
		p = p[:i]
	}
	name := path.Base(p)
	name, _, _ = strings.Cut(name, ";")
	return name
}
