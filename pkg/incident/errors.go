package incident

import "errors"

var (
	// ErrNotFound is returned when the problem event or entity does not exist or is not visible.
	ErrNotFound = errors.New("incident not found")

	// ErrConfigMissing is returned when a debounce value cannot be located.
	ErrConfigMissing = errors.New("debounce configuration missing")

	// ErrStoreUnavailable wraps transport or I/O failures of the underlying store.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidPage is returned for a page spec with a negative offset or non-positive limit.
	ErrInvalidPage = errors.New("invalid page spec")

	// ErrInvalidWindow is returned for a filter range with from > to.
	ErrInvalidWindow = errors.New("invalid time window")
)
