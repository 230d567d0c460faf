package weather

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNetwork covers transport failures and non-OK upstream statuses.
	ErrNetwork = errors.New("network error")

	// ErrEmptyDataset is returned for well-formed but empty responses and
	// for aggregations over no usable values.
	ErrEmptyDataset = errors.New("empty dataset")

	// ErrUnparseableValue marks a temperature that cannot be read as a
	// finite number. Aggregation drops such values instead of failing.
	ErrUnparseableValue = errors.New("unparseable value")

	// ErrStaleLoad is returned when a newer load superseded this one.
	ErrStaleLoad = errors.New("load superseded by a newer request")

	// ErrDatasetMissing marks a dataset the upstream reported as not
	// published.
	ErrDatasetMissing = errors.New("dataset not published")

	// ErrInvalidTimestamp is returned for timestamps not in YYYYMMDDHH form.
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)

// LoadError is returned when a layer could not be loaded even after fallback.
type LoadError struct {
	Layer     Layer
	Requested Timestamp
	Attempted []Timestamp
	Err       error
}

func (e *LoadError) Error() string {
	tried := make([]string, len(e.Attempted))
	for i, ts := range e.Attempted {
		tried[i] = string(ts)
	}
	return fmt.Sprintf("%s data unavailable for %s (tried %s): %v",
		e.Layer, e.Requested, strings.Join(tried, ", "), e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Missing reports whether the layer failed only because the data does not
// exist upstream, as opposed to the server being unreachable or broken.
func (e *LoadError) Missing() bool {
	return errors.Is(e.Err, ErrEmptyDataset) || errors.Is(e.Err, ErrDatasetMissing)
}

// LoadErrors collects every *LoadError in err, including those joined
// with errors.Join.
func LoadErrors(err error) []*LoadError {
	var out []*LoadError
	switch e := err.(type) {
	case nil:
	case *LoadError:
		out = append(out, e)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			out = append(out, LoadErrors(inner)...)
		}
	case interface{ Unwrap() error }:
		out = append(out, LoadErrors(e.Unwrap())...)
	}
	return out
}

// recoverable reports whether err should trigger the start-of-day fallback.
func recoverable(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrEmptyDataset) || errors.Is(err, ErrDatasetMissing)
}
