package crypto

import (
	"errors"
)

// ErrKeyNotConfigured signals that neither a versioned key nor the
// unversioned fallback exists for the requested version.
var ErrKeyNotConfigured = errors.New("encryption key not configured")

// KeyRing resolves a key version to its raw key material string. It is built
// once at startup from configuration (ENCRYPTION_KEY_V<n> plus the
// ENCRYPTION_KEY fallback) and is read-only afterwards, which keeps request
// handling free of ambient environment lookups and the ring trivially
// fakeable in tests.
//
// The ring deliberately performs no length or encoding validation; that is
// the encryptor's job at import time.
type KeyRing struct {
	versioned map[int]string
	fallback  string
}

// NewKeyRing constructs a ring from an explicit key set. Both arguments may
// be empty; Resolve reports the gap when a key is actually needed.
func NewKeyRing(versioned map[int]string, fallback string) *KeyRing {
	keys := make(map[int]string, len(versioned))
	for v, k := range versioned {
		if k != "" {
			keys[v] = k
		}
	}
	return &KeyRing{versioned: keys, fallback: fallback}
}

// Resolve returns the raw key material string registered for version,
// falling back to the unversioned key, or ErrKeyNotConfigured.
func (r *KeyRing) Resolve(version int) (string, error) {
	if key, ok := r.versioned[version]; ok {
		return key, nil
	}
	if r.fallback != "" {
		return r.fallback, nil
	}
	return "", ErrKeyNotConfigured
}
