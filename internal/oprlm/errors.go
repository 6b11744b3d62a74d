package oprlm

import "errors"

// Error kinds surfaced by the workflow. Wrap with fmt.Errorf("...: %w", Err...)
// so callers can match on errors.Is.
var (
	// ErrSessionInit: the browser engine could not be started or the entry
	// page did not load within its bound.
	ErrSessionInit = errors.New("session initialization failed")

	// ErrStructureNotFound: the server reported that the searched identifier
	// does not exist.
	ErrStructureNotFound = errors.New("structure not found")

	// ErrSearchTimeout: neither a results table nor a not-found message
	// appeared within the search bound.
	ErrSearchTimeout = errors.New("search timed out")

	// ErrFileValidation: a local structure file is missing or has an
	// unsupported extension.
	ErrFileValidation = errors.New("file validation failed")

	// ErrUploadTimeout: an upload wait bound elapsed.
	ErrUploadTimeout = errors.New("upload timed out")

	// ErrUploadProcessing: the server rejected the uploaded structure.
	ErrUploadProcessing = errors.New("upload processing failed")

	// ErrValidation: a Request or MembraneConfig violates a documented
	// range, type, or presence constraint.
	ErrValidation = errors.New("validation failed")

	// ErrFormFill: a targeted form control is absent from the page, which
	// indicates an incompatible mode/config combination or an out-of-order
	// session call.
	ErrFormFill = errors.New("form fill failed")

	// ErrJobTimeout: the job did not reach a downloadable state within the
	// completion bound.
	ErrJobTimeout = errors.New("job timed out")

	// ErrNetwork: a remote fetch or download failed.
	ErrNetwork = errors.New("network request failed")

	// ErrPartialResult: some but not all expected artifacts were retrieved.
	// Reported, never fatal.
	ErrPartialResult = errors.New("partial result set")
)
