package organizer

import (
	"errors"
	"os"
	"syscall"
)

// libraryUnavailableErrors lists syscall errors that indicate the library is unavailable.
var libraryUnavailableErrors = []error{
	syscall.ENODEV,
	syscall.ENOTCONN,
	syscall.EHOSTDOWN,
	syscall.EHOSTUNREACH,
	syscall.ETIMEDOUT,
	syscall.EIO,
	syscall.ESTALE,
}

// isLibraryUnavailable checks whether an error indicates the library filesystem is unavailable.
func isLibraryUnavailable(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range libraryUnavailableErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// errorHint maps a per-item failure to an operator hint.
func errorHint(err error) string {
	switch {
	case isLibraryUnavailable(err):
		return "library filesystem looks unavailable; check the mount"
	case errors.Is(err, os.ErrPermission):
		return "check write permissions on the destination directory"
	case errors.Is(err, syscall.ENOSPC):
		return "destination filesystem is full"
	default:
		return "inspect the source and destination paths"
	}
}
