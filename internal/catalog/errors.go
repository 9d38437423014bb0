package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL means the catalog request URL could not be built.
	ErrInvalidURL = errors.New("invalid catalog URL")
	// ErrNoData means the catalog answered with an empty body.
	ErrNoData = errors.New("catalog returned no data")
)

// StatusError is returned for non-2xx catalog responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog search returned %d: %s", e.StatusCode, e.Body)
}
