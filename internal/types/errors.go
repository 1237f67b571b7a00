package types

import "errors"

// Error taxonomy shared across the pipeline. The web layer maps these to
// HTTP statuses; everything else wraps them with context via fmt.Errorf
// or errors.Join.
var (
	// ErrValidation marks a missing or malformed request parameter.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks an unknown strategy or pool id.
	ErrNotFound = errors.New("not found")

	// ErrUpstream marks an unreachable or non-2xx external data source.
	ErrUpstream = errors.New("upstream error")

	// ErrUnsupportedOperation marks a protocol or action combination that
	// is not implemented. These must fail loudly: silently emitting an
	// incorrect on-chain call is never acceptable.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrDataIntegrity marks a strategy missing token or pool-id data
	// required to build a transaction.
	ErrDataIntegrity = errors.New("data integrity error")
)
