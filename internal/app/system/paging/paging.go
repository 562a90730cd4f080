// internal/app/system/paging/paging.go
package paging

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/techradar/compass/internal/app/system/apperr"
)

// DefaultLimit is the page size used when the request does not name one.
const DefaultLimit = 100

// MaxLimit caps the page size a client may request.
const MaxLimit = 1000

// Page is an offset window over a sorted listing.
type Page struct {
	Skip  int64
	Limit int64
}

// FromRequest reads ?skip and ?limit. Missing values fall back to 0 and
// DefaultLimit; negative or non-numeric values and limits above MaxLimit
// are rejected as validation errors.
func FromRequest(r *http.Request) (Page, error) {
	p := Page{Skip: 0, Limit: DefaultLimit}

	if s := query.Get(r, "skip"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 0 {
			return Page{}, fmt.Errorf("%w: skip must be a non-negative integer", apperr.ErrValidation)
		}
		p.Skip = n
	}
	if s := query.Get(r, "limit"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 1 || n > MaxLimit {
			return Page{}, fmt.Errorf("%w: limit must be between 1 and %d", apperr.ErrValidation, MaxLimit)
		}
		p.Limit = n
	}
	return p, nil
}
