// Package pagination parses cursor pagination parameters from HTTP requests.
package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPageSize defines the fallback number of items returned when the client omits pageSize.
	DefaultPageSize = 50
	// DefaultMaxPageSize caps the supported pageSize to prevent unbounded queries.
	DefaultMaxPageSize = 100

	maxPageTokenLength = 1024
)

// ErrInvalidPageSize indicates the pageSize query parameter is not a positive integer.
var ErrInvalidPageSize = errors.New("pagination: invalid pageSize")

// ErrInvalidPageToken indicates the pageToken query parameter is unusable.
var ErrInvalidPageToken = errors.New("pagination: invalid pageToken")

// Params bundles the pagination values extracted from a request.
type Params struct {
	PageSize  int
	PageToken string
}

// Options tunes how Parse treats defaults and bounds.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

func (o Options) normalised() Options {
	if o.DefaultPageSize <= 0 {
		o.DefaultPageSize = DefaultPageSize
	}
	if o.MaxPageSize <= 0 {
		o.MaxPageSize = DefaultMaxPageSize
	}
	if o.DefaultPageSize > o.MaxPageSize {
		o.DefaultPageSize = o.MaxPageSize
	}
	return o
}

// FromRequest parses pagination parameters from the request query string.
func FromRequest(r *http.Request, opts Options) (Params, error) {
	if r == nil {
		return Params{PageSize: opts.normalised().DefaultPageSize}, nil
	}
	return Parse(r.URL.Query(), opts)
}

// Parse extracts pageSize and pageToken from query values.
func Parse(values url.Values, opts Options) (Params, error) {
	opts = opts.normalised()
	params := Params{PageSize: opts.DefaultPageSize}

	if raw := strings.TrimSpace(values.Get("pageSize")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			return Params{}, fmt.Errorf("%w: %q", ErrInvalidPageSize, raw)
		}
		if size > opts.MaxPageSize {
			size = opts.MaxPageSize
		}
		params.PageSize = size
	}

	token := strings.TrimSpace(values.Get("pageToken"))
	if len(token) > maxPageTokenLength {
		return Params{}, fmt.Errorf("%w: token too long", ErrInvalidPageToken)
	}
	params.PageToken = token

	return params, nil
}
