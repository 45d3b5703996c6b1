package scidd

import (
	"strings"
	"sync"

	"github.com/glorpus-work/scidd/pkg/errors"
)

// parts holds the decomposed pieces of a raw identifier. The raw string is
// authoritative; parts are derived once at parse time and never change.
type parts struct {
	raw      string
	domain   string
	kind     Kind
	dataset  string
	release  string
	segments []string // path segments after release, still carrying any ;params
	uniqueID string
	fragment string
	query    string
}

func validate(raw string) error {
	if !strings.HasPrefix(raw, Prefix) {
		return errors.Wrapf(errors.ErrInvalidIdentifier, "%q does not start with %q", raw, Prefix)
	}
	return nil
}

// parseCore decomposes a raw identifier according to the grammar. Only the
// scheme prefix and the kind label are validated; the archive is the authority
// on whether the rest actually names anything.
func parseCore(raw string) (parts, error) {
	if err := validate(raw); err != nil {
		return parts{}, err
	}

	p := parts{raw: raw}

	s := strings.TrimPrefix(raw, "scidd:")
	if i := strings.Index(s, "?"); i >= 0 {
		p.query = s[i+1:]
		s = s[:i]
	}
	if i := strings.Index(s, "#"); i >= 0 {
		p.fragment = s[i+1:]
		s = s[:i]
	}

	segs := strings.Split(strings.TrimPrefix(s, "/"), "/")
	if len(segs) == 0 || segs[0] == "" {
		return parts{}, errors.Wrapf(errors.ErrInvalidIdentifier, "%q has no domain", raw)
	}
	p.domain = segs[0]

	if len(segs) > 1 {
		switch Kind(segs[1]) {
		case KindData, KindFile:
			p.kind = Kind(segs[1])
		default:
			return parts{}, errors.Wrapf(errors.ErrInvalidIdentifier, "%q: kind must be %q or %q", raw, KindData, KindFile)
		}
	}
	if len(segs) > 2 {
		p.dataset = segs[2]
	}
	if len(segs) > 3 {
		p.release = segs[3]
	}
	if len(segs) > 4 {
		p.segments = segs[4:]
	}

	// a trailing ";uniqueid=X" disambiguates non-unique filenames
	if n := len(p.segments); n > 0 {
		if _, params, found := strings.Cut(p.segments[n-1], ";"); found {
			for _, kv := range strings.Split(params, ";") {
				if k, v, ok := strings.Cut(kv, "="); ok && k == "uniqueid" {
					p.uniqueID = v
				}
			}
		}
	}

	return p, nil
}

// ID is the generic identifier implementation. Domain packages build their
// variants on top of it (directly or through File).
type ID struct {
	parts parts

	urlMu    sync.Mutex
	url      string
	resolver Resolver
}

// ParseID parses raw into a generic ID without domain dispatch. Domain
// packages use it as their construction base; most callers want Parse.
func ParseID(raw string) (*ID, error) {
	p, err := parseCore(raw)
	if err != nil {
		return nil, err
	}
	return &ID{parts: p}, nil
}

func (id *ID) String() string { return id.parts.raw }

// Domain returns the top-level domain label, e.g. "astro".
func (id *ID) Domain() string { return id.parts.domain }

func (id *ID) Kind() Kind { return id.parts.kind }

// Dataset returns the short "dataset.release" label, e.g. "galex.gr6".
func (id *ID) Dataset() string {
	if id.parts.dataset == "" {
		return ""
	}
	if id.parts.release == "" {
		return id.parts.dataset
	}
	return id.parts.dataset + "." + id.parts.release
}

func (id *ID) Release() string { return id.parts.release }

// Path returns the identifier without the "scidd:" scheme prefix.
func (id *ID) Path() string { return strings.TrimPrefix(id.parts.raw, "scidd:") }

func (id *ID) Fragment() string { return id.parts.fragment }

func (id *ID) Query() string { return id.parts.query }

func (id *ID) UniqueID() string { return id.parts.uniqueID }

func (id *ID) IsFile() bool { return id.parts.kind == KindFile }

// URL returns the memoized resolved URL, or "" when the identifier has not
// been resolved yet.
func (id *ID) URL() string {
	id.urlMu.Lock()
	defer id.urlMu.Unlock()
	return id.url
}

// SetURL memoizes the resolved URL. The first value wins; later calls are
// ignored so a resolution result is never silently replaced.
func (id *ID) SetURL(u string) {
	id.urlMu.Lock()
	defer id.urlMu.Unlock()
	if id.url == "" {
		id.url = u
	}
}

// AssignResolver attaches the resolver used by ResolveURL.
func (id *ID) AssignResolver(r Resolver) {
	id.urlMu.Lock()
	defer id.urlMu.Unlock()
	id.resolver = r
}

// AssignedResolver returns the resolver attached to this identifier, or nil.
func (id *ID) AssignedResolver() Resolver {
	id.urlMu.Lock()
	defer id.urlMu.Unlock()
	return id.resolver
}

// WithFragment returns a new identifier equal to this one except for the
// fragment. The result goes through Parse, so it lands on the right domain
// variant.
func (id *ID) WithFragment(fragment string) (Identifier, error) {
	return Parse(replaceFragment(id.parts.raw, fragment))
}

func replaceFragment(raw, fragment string) string {
	head := raw
	tail := ""
	if i := strings.Index(head, "?"); i >= 0 {
		tail = head[i:]
		head = head[:i]
	}
	if i := strings.Index(head, "#"); i >= 0 {
		head = head[:i]
	}
	if fragment == "" {
		return head + tail
	}
	return head + "#" + fragment + tail
}

// lastSegment returns the final path element with any ;params removed, or ""
// when the identifier has no path beyond the release.
func (p parts) lastSegment() string {
	if len(p.segments) == 0 {
		return ""
	}
	last := p.segments[len(p.segments)-1]
	last, _, _ = strings.Cut(last, ";")
	return last
}
