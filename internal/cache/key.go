package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Identity is the cheap metadata identity of a media file. Two files with the
// same name, size and modification time (to the second) share an identity
// even if their contents differ.
type Identity struct {
	Name       string
	Size       uint64
	ModifiedAt time.Time
}

// IdentityOf reads the identity of the file at path.
func IdentityOf(path string) (Identity, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrNoIdentity, err)
	}
	if fi.IsDir() {
		return Identity{}, fmt.Errorf("%w: %s is a directory", ErrNoIdentity, path)
	}
	return IdentityFromInfo(fi), nil
}

// IdentityFromInfo builds an identity from already fetched metadata.
func IdentityFromInfo(fi os.FileInfo) Identity {
	return Identity{
		Name:       filepath.Base(fi.Name()),
		Size:       uint64(fi.Size()), //nolint:gosec
		ModifiedAt: fi.ModTime(),
	}
}

// Canonical returns the string the key is derived from:
// "<name>_<size>_<ISO 8601 UTC mtime>". Names are NFC normalized so the same
// name spelled with decomposed accents maps to the same key.
func (id Identity) Canonical() string {
	return fmt.Sprintf("%s_%d_%s",
		norm.NFC.String(id.Name),
		id.Size,
		id.ModifiedAt.UTC().Format(time.RFC3339),
	)
}

// Key is a lowercase hex SHA-256 digest identifying a cache entry.
type Key string

// DeriveKey computes the cache key for an identity.
func DeriveKey(id Identity) Key {
	sum := sha256.Sum256([]byte(id.Canonical()))
	return Key(hex.EncodeToString(sum[:]))
}

// KeyFor stats path and derives its key.
func KeyFor(path string) (Key, error) {
	id, err := IdentityOf(path)
	if err != nil {
		return "", err
	}
	return DeriveKey(id), nil
}

// String implements fmt.Stringer.
func (k Key) String() string { return string(k) }

// Short returns an abbreviated key for log output.
func (k Key) Short() string {
	if len(k) <= 12 {
		return string(k)
	}
	return string(k[:12])
}

// Filename is the name of the entry file holding this key's envelope.
func (k Key) Filename() string { return string(k) + entryExt }

// Valid reports whether k looks like a derived key.
func (k Key) Valid() bool {
	if len(k) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(string(k))
	return err == nil
}
