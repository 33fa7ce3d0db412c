package purge

import "errors"

var (
	// ErrNoSoftDeleteColumn marks a soft-delete (or degraded anonymize) job
	// against a source with no soft-delete column configured.
	ErrNoSoftDeleteColumn = errors.New("data source has no soft-delete column")

	ErrRunNotFound = errors.New("purge run not found")
)
