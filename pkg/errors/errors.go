// Package errors provides error wrapping helpers and the sentinel errors
// shared across the scidd packages. Component-specific errors live in their
// own packages; only conditions that cross package boundaries are declared here.
package errors

import "fmt"

// Common error types.
var (
	// Identifier errors.
	ErrInvalidIdentifier    = fmt.Errorf("not a valid scidd identifier")
	ErrUnregisteredDomain   = fmt.Errorf("no handler registered for identifier domain")
	ErrNotAFileResource     = fmt.Errorf("identifier does not point to a file resource")
	ErrAmbiguousFilename    = fmt.Errorf("filename matches more than one identifier")
	ErrFilenameNotFound     = fmt.Errorf("filename not found in any known dataset")
	ErrUnresolvedIdentifier = fmt.Errorf("no route to resolve identifier")
	ErrNoResolverAssigned   = fmt.Errorf("no resolver assigned to identifier")

	// Network errors.
	ErrConnection = fmt.Errorf("could not connect to remote host")
	ErrServer     = fmt.Errorf("server-side error")

	// Cache errors.
	ErrBrokenCacheLink      = fmt.Errorf("cache path is a broken symbolic link")
	ErrCacheNotWritable     = fmt.Errorf("cache directory is not writable")
	ErrCacheKeyNotFound     = fmt.Errorf("key not found in response cache")
	ErrFileResourceNotFound = fmt.Errorf("no file found at resolved location")

	// Invariant violations; never retried.
	ErrPostDownloadFileMissing = fmt.Errorf("file missing after reported-successful download")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
