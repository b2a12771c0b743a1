package models

import (
	"net/url"
	"strconv"
	"strings"
)

// MaxLimit caps the page size of list requests.
const MaxLimit = 1000

// ProfileQuery holds the query parameters of GET /ue_profiles.
//
// Example:
//
//	// URL: /ue_profiles?supi=20893&limit=50&offset=100
//	q := ParseProfileQuery(r.URL.Query())
type ProfileQuery struct {
	// Supi matches SUPIs containing the value, ignoring case.
	Supi string

	// Limit is the maximum number of results. Zero returns everything.
	Limit int

	// Offset is the number of results to skip.
	Offset int
}

// ParseProfileQuery parses HTTP query parameters into a ProfileQuery.
// Invalid numbers are ignored.
func ParseProfileQuery(params url.Values) ProfileQuery {
	q := ProfileQuery{Supi: strings.TrimSpace(params.Get("supi"))}

	if limitStr := params.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			q.Limit = min(limit, MaxLimit)
		}
	}
	if offsetStr := params.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			q.Offset = offset
		}
	}
	return q
}

// ToQueryParams converts the query back to URL parameters, omitting
// defaults.
func (q ProfileQuery) ToQueryParams() url.Values {
	params := url.Values{}
	if q.Supi != "" {
		params.Set("supi", q.Supi)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}
	return params
}

// Paginate returns the page of items selected by Offset and Limit.
func Paginate[T any](items []T, q ProfileQuery) []T {
	start := min(q.Offset, len(items))
	end := len(items)
	if q.Limit > 0 {
		end = min(start+q.Limit, len(items))
	}
	return items[start:end]
}
