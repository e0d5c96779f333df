package shared

import "errors"

var (
	// ErrNotFound indicates a referenced resource (series, document,
	// product, warehouse, account) does not exist for the tenant.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState indicates a lifecycle transition is not allowed from
	// the document's current state.
	ErrInvalidState = errors.New("invalid state transition")
	// ErrTenantRequired indicates a core operation was called without an
	// explicit tenant id.
	ErrTenantRequired = errors.New("tenant id required")
)
