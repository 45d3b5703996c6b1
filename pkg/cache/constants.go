package cache

const (
	// ResponseCacheFilename is the fixed name of the response-cache database
	// inside a cache root.
	ResponseCacheFilename = "_SciDD_API_Cache.sqlite"

	// DatabaseVersion is the response-cache schema version recorded in the
	// metadata table.
	DatabaseVersion = 1
)
