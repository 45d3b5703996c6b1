package astro

import (
	"sort"
	"strings"
	"sync"
)

// Dataset describes an astronomical survey the archive carries. The
// UniqueFilenames flag records whether a filename alone identifies a single
// file within the dataset; surveys that reuse filenames across scan groups
// need a disambiguating identifier in cache paths and searches.
type Dataset struct {
	Name            string
	Releases        []string
	UniqueFilenames bool
}

var (
	datasetMu sync.RWMutex
	datasets  = map[string]Dataset{}
)

// RegisterDataset adds a dataset to the registry. Registering the same name
// twice replaces the earlier entry.
func RegisterDataset(d Dataset) {
	datasetMu.Lock()
	defer datasetMu.Unlock()
	datasets[d.Name] = d
}

// LookupDataset returns the dataset registered under name.
func LookupDataset(name string) (Dataset, bool) {
	datasetMu.RLock()
	defer datasetMu.RUnlock()
	d, ok := datasets[name]
	return d, ok
}

// DatasetNames returns the registered dataset names in sorted order.
func DatasetNames() []string {
	datasetMu.RLock()
	defer datasetMu.RUnlock()
	names := make([]string, 0, len(datasets))
	for name := range datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// isDatasetSegment reports whether a path segment names a registered dataset.
// Segments are matched case-insensitively since identifiers are typed by hand.
func isDatasetSegment(segment string) bool {
	_, ok := LookupDataset(strings.ToLower(segment))
	return ok
}

func init() {
	RegisterDataset(Dataset{
		Name:            "galex",
		Releases:        []string{"gr6", "gr7"},
		UniqueFilenames: true,
	})
	RegisterDataset(Dataset{
		Name:            "sdss",
		Releases:        []string{"dr8", "dr9", "dr10", "dr11", "dr12", "dr13", "dr14", "dr15", "dr16"},
		UniqueFilenames: true,
	})
	RegisterDataset(Dataset{
		Name:            "wise",
		Releases:        []string{"allwise"},
		UniqueFilenames: true,
	})
	// 2MASS filenames repeat across scan directories; the scan identifier
	// must accompany the filename to pin down a single file.
	RegisterDataset(Dataset{
		Name:            "2mass",
		Releases:        []string{"allsky"},
		UniqueFilenames: false,
	})
}
