package download

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/glorpus-work/scidd/internal/logger"
	"github.com/glorpus-work/scidd/pkg/errors"
	"github.com/glorpus-work/scidd/pkg/scidd"
	"github.com/glorpus-work/scidd/pkg/scidd/mocks"
)

func fileWithURL(t *testing.T, raw, url string) *scidd.File {
	t.Helper()
	f, err := scidd.ParseFile(raw)
	require.NoError(t, err)
	f.SetURL(url)
	return f
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zipBytes(t *testing.T, members map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range members {
		mw, err := w.Create(name)
		require.NoError(t, err)
		_, err = mw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDownloadTo(t *testing.T) {
	lastModified := time.Date(2019, time.March, 4, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/galex/gr6/frame.fits", r.URL.Path)
		w.Header().Set("Last-Modified", lastModified.Format(http.TimeFormat))
		_, _ = w.Write([]byte("fits payload"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := fileWithURL(t, "scidd:/astro/file/galex/gr6/frame.fits", srv.URL+"/galex/gr6/frame.fits")

	got, err := NewManager(0, "").DownloadTo(context.Background(), f, dir, true)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "frame.fits"), got)
	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "fits payload", string(data))

	fi, err := os.Stat(got)
	require.NoError(t, err)
	assert.True(t, fi.ModTime().Equal(lastModified))
}

func TestDownloadTo_DecompressesGzip(t *testing.T) {
	payload := gzipBytes(t, []byte("fits payload"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := fileWithURL(t, "scidd:/astro/file/galex/gr6/frame.fits.gz", srv.URL+"/frame.fits.gz")

	got, err := NewManager(0, "").DownloadTo(context.Background(), f, dir, true)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "frame.fits"), got)
	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "fits payload", string(data))
}

func TestDownloadTo_KeepsCompressedWhenDisabled(t *testing.T) {
	payload := gzipBytes(t, []byte("fits payload"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := fileWithURL(t, "scidd:/astro/file/galex/gr6/frame.fits.gz", srv.URL+"/frame.fits.gz")

	got, err := NewManager(0, "").DownloadTo(context.Background(), f, dir, false)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "frame.fits.gz"), got)
	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestDownloadTo_FallsBackToCompressedVariant(t *testing.T) {
	payload := gzipBytes(t, []byte("fits payload"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/frame.fits":
			http.NotFound(w, r)
		case "/frame.fits.gz":
			_, _ = w.Write(payload)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	buf := &bytes.Buffer{}
	logger.SetTestOutput(buf)
	defer logger.UnsetTestOutput()

	dir := t.TempDir()
	f := fileWithURL(t, "scidd:/astro/file/galex/gr6/frame.fits", srv.URL+"/frame.fits")

	got, err := NewManager(0, "").DownloadTo(context.Background(), f, dir, true)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "frame.fits"), got)
	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "fits payload", string(data))

	logged := buf.String()
	assert.Contains(t, logged, "using compressed variant")
	assert.Contains(t, logged, srv.URL+"/frame.fits")
	assert.Contains(t, logged, srv.URL+"/frame.fits.gz")
}

func TestDownloadTo_SkipsPresentFile(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("remote payload"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame.fits"), []byte("cached payload"), 0o644))
	f := fileWithURL(t, "scidd:/astro/file/galex/gr6/frame.fits", srv.URL+"/frame.fits")

	got, err := NewManager(0, "").DownloadTo(context.Background(), f, dir, true)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "frame.fits"), got)
	assert.Zero(t, hits.Load())
	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "cached payload", string(data))
}

func TestDownloadTo_ReplacesZeroLengthFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("fits payload"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame.fits"), nil, 0o644))
	f := fileWithURL(t, "scidd:/astro/file/galex/gr6/frame.fits", srv.URL+"/frame.fits")

	got, err := NewManager(0, "").DownloadTo(context.Background(), f, dir, true)
	require.NoError(t, err)

	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "fits payload", string(data))
}

func TestDownloadTo_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := fileWithURL(t, "scidd:/astro/file/galex/gr6/frame.fits", srv.URL+"/frame.fits")

	_, err := NewManager(0, "").DownloadTo(context.Background(), f, t.TempDir(), true)
	assert.ErrorIs(t, err, errors.ErrFileResourceNotFound)
}

func TestDownloadTo_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f := fileWithURL(t, "scidd:/astro/file/galex/gr6/frame.fits", url+"/frame.fits")

	_, err := NewManager(0, "").DownloadTo(context.Background(), f, t.TempDir(), true)
	assert.ErrorIs(t, err, errors.ErrConnection)
}

func TestDownloadTo_NoResolver(t *testing.T) {
	f, err := scidd.ParseFile("scidd:/astro/file/galex/gr6/frame.fits")
	require.NoError(t, err)

	_, err = NewManager(0, "").DownloadTo(context.Background(), f, t.TempDir(), true)
	assert.ErrorIs(t, err, errors.ErrNoResolverAssigned)
}

func TestDownloadTo_ResolvesThroughResolver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("fits payload"))
	}))
	defer srv.Close()

	f, err := scidd.ParseFile("scidd:/astro/file/galex/gr6/frame.fits")
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	res := mocks.NewMockResolver(ctrl)
	res.EXPECT().URLForID(gomock.Any(), f).Return(srv.URL+"/frame.fits", nil).Times(1)
	f.AssignResolver(res)

	dir := t.TempDir()
	got, err := NewManager(0, "").DownloadTo(context.Background(), f, dir, true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "frame.fits"), got)

	// the resolved URL is memoized; a second download resolves nothing
	_, err = NewManager(0, "").DownloadTo(context.Background(), f, t.TempDir(), true)
	require.NoError(t, err)
}

func TestDownloadTo_ZipSingleMember(t *testing.T) {
	payload := zipBytes(t, map[string][]byte{"frame.fits": []byte("fits payload")})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := fileWithURL(t, "scidd:/astro/file/galex/gr6/frame.fits.zip", srv.URL+"/frame.fits.zip")

	got, err := NewManager(0, "").DownloadTo(context.Background(), f, dir, true)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "frame.fits"), got)
	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "fits payload", string(data))
}

func TestDownloadTo_ZipMultiMember(t *testing.T) {
	payload := zipBytes(t, map[string][]byte{
		"frame1.fits": []byte("a"),
		"frame2.fits": []byte("b"),
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	f := fileWithURL(t, "scidd:/astro/file/galex/gr6/frame.fits.zip", srv.URL+"/frame.fits.zip")

	_, err := NewManager(0, "").DownloadTo(context.Background(), f, t.TempDir(), true)
	require.Error(t, err)
	assert.ErrorContains(t, err, "more than one member")
}

func TestDownloadTo_NoPartialFileOnFailure(t *testing.T) {
	// serve a truncated body so the transfer errors mid-stream
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write([]byte("short"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := fileWithURL(t, "scidd:/astro/file/galex/gr6/frame.fits", srv.URL+"/frame.fits")

	_, err := NewManager(0, "").DownloadTo(context.Background(), f, dir, true)
	require.Error(t, err)

	assert.NoFileExists(t, filepath.Join(dir, "frame.fits"))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
