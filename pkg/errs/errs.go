/*
Package errs defines the error taxonomy shared by every kvault component.

Callers classify failures with errors.Is against the sentinels below rather
than inspecting error strings. Every sentinel is wrapped with additional
context via fmt.Errorf("...: %w", err) at the point of failure so that
errors.Is still matches while the message carries the realm, kind, or
snapshot id involved.
*/
package errs

import "errors"

var (
	// ErrConfig marks invalid or missing configuration. Fatal at startup.
	ErrConfig = errors.New("config")

	// ErrTransport marks a network failure talking to the identity provider
	// or a storage backend. Retryable at the operation boundary.
	ErrTransport = errors.New("transport")

	// ErrPermissionDenied marks a 403 response from the identity provider.
	// Never retried automatically.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound marks a missing snapshot, manifest, or object key.
	ErrNotFound = errors.New("not found")

	// ErrCyclicDependency marks a planner cycle. Fatal for the affected
	// service.
	ErrCyclicDependency = errors.New("cyclic dependency")

	// ErrInvalidEntity marks a decode or validation failure on a single
	// entity. Isolated to that entity.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrAlreadyExists marks a 409 response on import. Soft failure,
	// reported but non-fatal.
	ErrAlreadyExists = errors.New("already exists")

	// ErrCanceled marks propagated cancellation.
	ErrCanceled = errors.New("canceled")
)

// Classify wraps an error that the core cannot otherwise classify as
// ErrTransport, preserving the original error for errors.Is/errors.As.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConfig) || errors.Is(err, ErrTransport) ||
		errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrCyclicDependency) || errors.Is(err, ErrInvalidEntity) ||
		errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrCanceled) {
		return err
	}
	return errors.Join(ErrTransport, err)
}
