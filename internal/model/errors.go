package model

import "errors"

var (
	// ErrNotFound is returned by stores when the requested entity is absent.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned by stores on primary key collisions.
	ErrAlreadyExists = errors.New("already exists")
	// ErrCorruptDocument is returned when a stored flashcard document cannot be decoded.
	ErrCorruptDocument = errors.New("flashcard document is corrupted")
)
