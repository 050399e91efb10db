package source

import "errors"

var (
	// ErrRepoURLRequired is returned when Clone is given no URL.
	ErrRepoURLRequired = errors.New("repository URL required")

	// ErrTargetDirRequired is returned when Clone is given no directory.
	ErrTargetDirRequired = errors.New("target directory required")

	// ErrNotDirectory is returned when a path that must be a directory is not.
	ErrNotDirectory = errors.New("not a directory")
)
