package cache

import "errors"

var (
	// ErrCorrupt is returned when an entry body cannot be decoded.
	ErrCorrupt = errors.New("cache entry corrupted")

	// ErrNoIdentity is returned when a file's metadata cannot be read.
	ErrNoIdentity = errors.New("file identity unavailable")
)
