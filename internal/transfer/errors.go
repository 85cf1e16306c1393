package transfer

import (
	"errors"
	"fmt"
)

// Sentinel errors for transfer failures. All are terminal for the operation
// that raised them; the engine never retries.
var (
	// ErrSourceNotFound: the local upload source does not exist. Remote
	// (URL) sources are never probed client-side.
	ErrSourceNotFound = errors.New("transfer: source not found")

	// ErrDestinationExists: the server path is already occupied and
	// overwrite was not forced. No bytes were transferred.
	ErrDestinationExists = errors.New("transfer: destination already exists")

	// ErrDestinationDirMissing: the local parent directory of a download
	// target does not exist. The engine never creates directories.
	ErrDestinationDirMissing = errors.New("transfer: destination directory missing")

	// ErrUploadRejected / ErrDownloadRejected: the server answered with a
	// non-success status. The wrapped *depot.APIError carries it.
	ErrUploadRejected   = errors.New("transfer: upload rejected")
	ErrDownloadRejected = errors.New("transfer: download rejected")

	// ErrWriteFailed: streaming the response body to disk failed. The
	// partially written file is left in place, not rolled back.
	ErrWriteFailed = errors.New("transfer: writing download failed")

	// ErrIntegrityMismatch: the local checksum of a downloaded file differs
	// from the server-reported one. The file is left in place for
	// inspection; cleanup is the caller's responsibility.
	ErrIntegrityMismatch = errors.New("transfer: checksum mismatch")
)

// IntegrityError reports a post-download checksum mismatch. Unwraps to
// ErrIntegrityMismatch for errors.Is checks.
type IntegrityError struct {
	Path     string // local file that failed verification
	Expected string // server-reported digest
	Actual   string // locally computed digest
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("transfer: checksum mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

func (e *IntegrityError) Unwrap() error {
	return ErrIntegrityMismatch
}
