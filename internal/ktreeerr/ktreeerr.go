// Package ktreeerr defines the domain-level error kinds surfaced by the
// index build and search paths. Every kind is a sentinel that callers can
// match with errors.Is after a component wraps it with path/value context
// via github.com/pkg/errors.
package ktreeerr

import "github.com/pkg/errors"

var (
	// ErrInvalidArgument covers out-of-range numeric flags and unknown modes.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrIO covers file open/read/write failure and size mismatches.
	ErrIO = errors.New("io error")

	// ErrIndexExists is returned when a build targets a directory that already exists.
	ErrIndexExists = errors.New("index directory already exists")

	// ErrIndexCreateFailed is returned when the index directory cannot be created.
	ErrIndexCreateFailed = errors.New("failed to create index directory")

	// ErrCorruptIndex is returned when deserialization sees a malformed tag or truncated record.
	ErrCorruptIndex = errors.New("corrupt index")

	// ErrInvalidSegmentation is returned when a segmentation invariant is violated.
	ErrInvalidSegmentation = errors.New("invalid segmentation")
)
