package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// SearchRecord is one result from the metadata API's filename search. The
// position is a two-element sky coordinate; the core stores it without
// interpreting it.
type SearchRecord struct {
	SciDD    string     `json:"sciid"`
	URL      string     `json:"url"`
	FileSize int64      `json:"file_size"`
	Dataset  string     `json:"dataset"`
	Release  string     `json:"release"`
	Position [2]float64 `json:"position"`
}

// FilenameQuery carries the parameters of a filename search. Filename is
// required; the rest narrow the search.
type FilenameQuery struct {
	Filename string
	Dataset  string
	Release  string
	UniqueID string
}

// Values encodes the query as API request parameters.
func (q FilenameQuery) Values() url.Values {
	params := url.Values{}
	params.Set("filename", q.Filename)
	if q.Dataset != "" {
		params.Set("dataset", q.Dataset)
	}
	if q.Release != "" {
		params.Set("release", q.Release)
	}
	if q.UniqueID != "" {
		params.Set("uniqueid", q.UniqueID)
	}
	return params
}

// CacheKey returns the canonical response-cache key for this query. Two
// queries with the same key are interchangeable, so the key folds in every
// parameter that affects the result.
func (q FilenameQuery) CacheKey(domain string) string {
	key := domain + "/filename:" + q.Filename
	if q.Dataset != "" {
		key += ";dataset=" + q.Dataset
	}
	if q.Release != "" {
		key += ";release=" + q.Release
	}
	if q.UniqueID != "" {
		key += ";uniqueid=" + q.UniqueID
	}
	return key
}

// FilenameSearch queries /{domain}/data/filename-search and decodes the
// matching records.
func (c *APIClient) FilenameSearch(ctx context.Context, domain string, query FilenameQuery) ([]SearchRecord, error) {
	if query.Filename == "" {
		return nil, fmt.Errorf("a filename must be provided for a filename search")
	}

	body, err := c.Get(ctx, "/"+domain+"/data/filename-search", query.Values())
	if err != nil {
		return nil, err
	}
	return DecodeSearchRecords(body)
}

// DecodeSearchRecords decodes a filename-search response body.
func DecodeSearchRecords(body []byte) ([]SearchRecord, error) {
	var records []SearchRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("malformed filename-search response: %w", err)
	}
	return records, nil
}
