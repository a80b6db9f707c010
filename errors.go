package tagver

import "errors"

var (
	// ErrRepositoryNotFound is returned when the working directory is not
	// inside a Git repository.
	ErrRepositoryNotFound = errors.New("git repository not found")

	// ErrInvalidVersion is returned when a string is not a valid semantic version.
	ErrInvalidVersion = errors.New("invalid semantic version")

	ErrInvalidVersionPart = errors.New("invalid version part")
	ErrInvalidMajorMinor  = errors.New("invalid major.minor")
	ErrInvalidConfig      = errors.New("invalid configuration")
)
