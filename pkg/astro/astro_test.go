package astro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/glorpus-work/scidd/pkg/errors"
	"github.com/glorpus-work/scidd/pkg/scidd"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{
			name: "canonical file form unchanged",
			raw:  "scidd:/astro/file/galex/gr6/frame.fits",
			want: "scidd:/astro/file/galex/gr6/frame.fits",
		},
		{
			name: "canonical data form unchanged",
			raw:  "scidd:/astro/data/galex/gr6",
			want: "scidd:/astro/data/galex/gr6",
		},
		{
			name: "abbreviated file identifier",
			raw:  "scidd:/astro/galex/gr6/frame.fits",
			want: "scidd:/astro/file/galex/gr6/frame.fits",
		},
		{
			name: "abbreviated data identifier",
			raw:  "scidd:/astro/galex/gr6",
			want: "scidd:/astro/data/galex/gr6",
		},
		{
			name: "abbreviated with uniqueid params",
			raw:  "scidd:/astro/2mass/allsky/ji0010032.fits;uniqueid=s22",
			want: "scidd:/astro/file/2mass/allsky/ji0010032.fits;uniqueid=s22",
		},
		{
			name:    "unknown dataset segment",
			raw:     "scidd:/astro/notadataset/gr6/frame.fits",
			wantErr: pkgerrors.ErrInvalidIdentifier,
		},
		{
			name:    "different domain",
			raw:     "scidd:/geo/file/x/y/z.dat",
			wantErr: pkgerrors.ErrInvalidIdentifier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDispatchesToAstro(t *testing.T) {
	id, err := scidd.Parse("scidd:/astro/file/galex/gr6/frame.fits")
	require.NoError(t, err)

	assert.Equal(t, "astro", id.Domain())
	assert.True(t, id.IsFile())
	assert.NotNil(t, id.AssignedResolver())

	f, ok := id.(scidd.FileResource)
	require.True(t, ok)
	assert.Equal(t, "frame.fits", f.Filename())
}

func TestParseAbbreviatedIdentifier(t *testing.T) {
	id, err := scidd.Parse("scidd:/astro/galex/gr6/frame.fits")
	require.NoError(t, err)

	// the canonical form is what the identifier reports
	assert.Equal(t, "scidd:/astro/file/galex/gr6/frame.fits", id.String())
	assert.True(t, id.IsFile())
}

func TestFromString(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "bare file path",
			raw:  "/file/galex/gr6/frame.fits",
			want: "scidd:/astro/file/galex/gr6/frame.fits",
		},
		{
			name: "bare data path",
			raw:  "/data/galex/gr6",
			want: "scidd:/astro/data/galex/gr6",
		},
		{
			name: "full identifier passes through",
			raw:  "scidd:/astro/file/galex/gr6/frame.fits",
			want: "scidd:/astro/file/galex/gr6/frame.fits",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := FromString(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, id.String())
		})
	}
}

func TestNew_DisambiguatorForNonUniqueDataset(t *testing.T) {
	id, err := New("scidd:/astro/file/2mass/allsky/ji0010032.fits;uniqueid=s22")
	require.NoError(t, err)

	f, ok := id.(scidd.FileResource)
	require.True(t, ok)
	assert.Equal(t, "s22", f.FilenameDisambiguator())
}

func TestNew_NoDisambiguatorForUniqueDataset(t *testing.T) {
	id, err := New("scidd:/astro/file/galex/gr6/frame.fits")
	require.NoError(t, err)

	f, ok := id.(scidd.FileResource)
	require.True(t, ok)
	assert.Empty(t, f.FilenameDisambiguator())
}

func TestDatasetRegistry(t *testing.T) {
	d, ok := LookupDataset("2mass")
	require.True(t, ok)
	assert.False(t, d.UniqueFilenames)

	d, ok = LookupDataset("galex")
	require.True(t, ok)
	assert.True(t, d.UniqueFilenames)

	_, ok = LookupDataset("notadataset")
	assert.False(t, ok)

	assert.Contains(t, DatasetNames(), "sdss")
}
