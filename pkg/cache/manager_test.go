package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/scidd/pkg/errors"
	"github.com/glorpus-work/scidd/pkg/scidd"
)

// stubDownloader writes fixed content into the requested directory, or fails
// with err. It counts calls so tests can assert the cache short-circuits.
type stubDownloader struct {
	name    string
	content []byte
	err     error
	calls   int
}

func (d *stubDownloader) DownloadTo(_ context.Context, _ scidd.FileResource, dir string, _ bool) (string, error) {
	d.calls++
	if d.err != nil {
		return "", d.err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	full := filepath.Join(dir, d.name)
	if err := os.WriteFile(full, d.content, 0o644); err != nil {
		return "", err
	}
	return full, nil
}

func mustParseFile(t *testing.T, raw string) *scidd.File {
	t.Helper()
	f, err := scidd.ParseFile(raw)
	require.NoError(t, err)
	return f
}

func TestPathWithinCache(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "file kind label is dropped",
			raw:  "scidd:/astro/file/galex/gr6/AIS_50/frame.fits",
			want: "astro/galex/gr6/AIS_50",
		},
		{
			name: "fragment excluded",
			raw:  "scidd:/astro/file/sdss/dr16/photoObj.fits#2",
			want: "astro/sdss/dr16",
		},
		{
			name: "compressed extension keeps same directory",
			raw:  "scidd:/astro/file/galex/gr6/AIS_50/frame.fits.gz",
			want: "astro/galex/gr6/AIS_50",
		},
		{
			name: "file directly under release",
			raw:  "scidd:/astro/file/galex/gr6/frame.fits",
			want: "astro/galex/gr6",
		},
	}

	m, err := NewManager(t.TempDir(), nil, true)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := mustParseFile(t, tt.raw)
			got, err := m.PathWithinCache(f)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPathWithinCache_Disambiguator(t *testing.T) {
	m, err := NewManager(t.TempDir(), nil, true)
	require.NoError(t, err)

	f := mustParseFile(t, "scidd:/astro/file/2mass/allsky/ji0010032.fits;uniqueid=s22")
	f.SetFilenameDisambiguator("s22")

	got, err := m.PathWithinCache(f)
	require.NoError(t, err)
	assert.Equal(t, "astro/2mass/allsky/s22", got)
}

func TestPathWithinCache_MemoizedPerRoot(t *testing.T) {
	m1, err := NewManager(t.TempDir(), nil, true)
	require.NoError(t, err)
	m2, err := NewManager(t.TempDir(), nil, true)
	require.NoError(t, err)

	f := mustParseFile(t, "scidd:/astro/file/galex/gr6/AIS_50/frame.fits")

	rel1, err := m1.PathWithinCache(f)
	require.NoError(t, err)
	rel2, err := m2.PathWithinCache(f)
	require.NoError(t, err)
	assert.Equal(t, rel1, rel2)

	memo, ok := f.CachedPathWithin(m1.Path())
	require.True(t, ok)
	assert.Equal(t, rel1, memo)
}

func TestIsInCache(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, nil, true)
	require.NoError(t, err)

	f := mustParseFile(t, "scidd:/astro/file/galex/gr6/frame.fits")
	full := filepath.Join(dir, "astro", "galex", "gr6", "frame.fits")

	_, ok, err := m.IsInCache(f)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte("data"), 0o644))

	got, ok, err := m.IsInCache(f)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, full, got)
}

func TestIsInCache_PurgesZeroLengthFile(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir, nil, true)
	require.NoError(t, err)

	f := mustParseFile(t, "scidd:/astro/file/galex/gr6/frame.fits")
	full := filepath.Join(dir, "astro", "galex", "gr6", "frame.fits")
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, nil, 0o644))

	_, ok, err := m.IsInCache(f)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoFileExists(t, full)
}

func TestFilePath_DownloadsWhenAbsent(t *testing.T) {
	dl := &stubDownloader{name: "frame.fits", content: []byte("data")}
	m, err := NewManager(t.TempDir(), dl, true)
	require.NoError(t, err)

	f := mustParseFile(t, "scidd:/astro/file/galex/gr6/frame.fits")

	got, err := m.FilePath(context.Background(), f)
	require.NoError(t, err)
	assert.FileExists(t, got)
	assert.Equal(t, 1, dl.calls)

	// second call is served from disk
	again, err := m.FilePath(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, got, again)
	assert.Equal(t, 1, dl.calls)
}

func TestFilePath_CompressedSibling(t *testing.T) {
	dir := t.TempDir()
	dl := &stubDownloader{name: "frame.fits", content: []byte("data")}
	m, err := NewManager(dir, dl, true)
	require.NoError(t, err)

	f := mustParseFile(t, "scidd:/astro/file/galex/gr6/frame.fits")
	full := filepath.Join(dir, "astro", "galex", "gr6", "frame.fits.gz")
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte("gz"), 0o644))

	got, err := m.FilePath(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, full, got)
	assert.Equal(t, 0, dl.calls)
}

func TestFilePath_PostDownloadMissing(t *testing.T) {
	// the downloader reports success but writes under the wrong name
	dl := &stubDownloader{name: "other.fits", content: []byte("data")}
	m, err := NewManager(t.TempDir(), dl, true)
	require.NoError(t, err)

	f := mustParseFile(t, "scidd:/astro/file/galex/gr6/frame.fits")

	_, err = m.FilePath(context.Background(), f)
	assert.ErrorIs(t, err, errors.ErrPostDownloadFileMissing)
}

func TestFilePath_NoDownloader(t *testing.T) {
	m, err := NewManager(t.TempDir(), nil, true)
	require.NoError(t, err)

	f := mustParseFile(t, "scidd:/astro/file/galex/gr6/frame.fits")

	_, err = m.FilePath(context.Background(), f)
	assert.ErrorIs(t, err, errors.ErrFileResourceNotFound)
}

func TestFilePath_DownloadedCompressedVariant(t *testing.T) {
	// decompression disabled: the downloader stores the compressed payload
	dl := &stubDownloader{name: "frame.fits.gz", content: []byte("gz")}
	m, err := NewManager(t.TempDir(), dl, false)
	require.NoError(t, err)

	f := mustParseFile(t, "scidd:/astro/file/galex/gr6/frame.fits.gz")

	got, err := m.FilePath(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, "frame.fits.gz", filepath.Base(got))
}

func TestResponses_SharedAcrossCalls(t *testing.T) {
	m, err := NewManager(t.TempDir(), nil, true)
	require.NoError(t, err)
	defer m.Close()

	rc1, err := m.Responses()
	require.NoError(t, err)
	rc2, err := m.Responses()
	require.NoError(t, err)
	assert.Same(t, rc1, rc2)
}
