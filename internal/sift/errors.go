package sift

import "errors"

var (
	// ErrNotFound is returned when a movement record, category or folder does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyUndone is returned when undoing a movement that was already undone.
	ErrAlreadyUndone = errors.New("movement already undone")

	// ErrFileMissing is returned when the moved file is no longer at its destination.
	ErrFileMissing = errors.New("file no longer at destination")

	// ErrDuplicateCategory is returned when a category name is already taken.
	ErrDuplicateCategory = errors.New("category already exists")

	// ErrDuplicateFolder is returned when a source path is already watched.
	ErrDuplicateFolder = errors.New("folder already watched")
)
