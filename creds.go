// Copyright (c) 2018 Fredrik Kuivinen, frekui@gmail.com
//
// Use of this source code is governed by the BSD-style license that can be
// found in the LICENSE file.

package passwdd

import (
	"crypto/rand"
	"sync"

	"github.com/passwdd/passwdd/internal/pkg/authenc"
)

// blacklistedPassword is the sentinel value a CredentialStore returns in
// place of a real password to mark an account as administratively
// blacklisted. Mechanisms must treat it as authentication failure, never as
// a literal password to check against.
const blacklistedPassword = "********"

// CredentialStore looks up the plaintext password for a username. The
// on-disk, directory-backed implementation that a production deployment
// would use is outside this package; CredentialStore is the narrow surface
// the SASL mechanisms need from it.
type CredentialStore interface {
	// LookupPassword returns the plaintext password for username and true,
	// or ("", false) if the user does not exist. A returned password equal
	// to blacklistedPassword must be treated as authentication failure by
	// callers, not as a literal password.
	LookupPassword(username string) (password string, ok bool)
}

// CheckPassword reports whether candidate is the correct password for
// username according to store, honoring the blacklist sentinel.
func CheckPassword(store CredentialStore, username, candidate string) bool {
	password, ok := store.LookupPassword(username)
	if !ok || password == blacklistedPassword {
		return false
	}
	return password == candidate
}

// MemoryStore is a reference CredentialStore for tests and demos. Records
// are held at rest encrypted under a key supplied at construction time,
// using the same authenticated-encryption construction the rest of this
// module's supporting packages use, so that a core dump of the process
// doesn't trivially leak passwords.
type MemoryStore struct {
	key []byte

	mu      sync.RWMutex
	records map[string][]byte // username -> AuthEnc(password)
}

// NewMemoryStore returns an empty store keyed by key, which must be 16
// bytes.
func NewMemoryStore(key []byte) *MemoryStore {
	k := make([]byte, len(key))
	copy(k, key)
	return &MemoryStore{key: k, records: make(map[string][]byte)}
}

// SetPassword stores password for username, overwriting any existing entry.
func (m *MemoryStore) SetPassword(username, password string) error {
	ciphertext, err := authenc.AuthEnc(rand.Reader, m.key, []byte(password))
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[username] = ciphertext
	return nil
}

// Blacklist marks username as blacklisted: future lookups succeed but
// return the blacklistedPassword sentinel, representing a "password-less"
// account that no credential will ever match.
func (m *MemoryStore) Blacklist(username string) error {
	return m.SetPassword(username, blacklistedPassword)
}

// LookupPassword implements CredentialStore.
func (m *MemoryStore) LookupPassword(username string) (string, bool) {
	m.mu.RLock()
	ciphertext, ok := m.records[username]
	m.mu.RUnlock()
	if !ok {
		return "", false
	}
	plaintext, err := authenc.AuthDec(m.key, ciphertext)
	if err != nil {
		return "", false
	}
	return string(plaintext), true
}
