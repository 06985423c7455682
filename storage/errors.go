package storage

import (
	"errors"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	// Note: badger.ErrKeyNotFound is the error returned by the badger API;
	// everything in storage/badger converts it to ErrNotFound before it
	// reaches a caller.
	ErrNotFound = errors.New("key not found")

	// ErrAlreadyExists is returned on insertion of a key that exists.
	ErrAlreadyExists = errors.New("key already exists")
)
