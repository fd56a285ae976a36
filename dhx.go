// Copyright (c) 2018 Fredrik Kuivinen, frekui@gmail.com
//
// Use of this source code is governed by the BSD-style license that can be
// found in the LICENSE file.

package passwdd

import (
	"bytes"
	"crypto/rand"
	"math/big"

	"github.com/passwdd/passwdd/internal/pkg/cast5cbc"
	"github.com/passwdd/passwdd/internal/pkg/dh"
)

var (
	dhxEncryptIV = []byte("CJalbert") // server -> client, during the handshake
	dhxDecryptIV = []byte("LWallace") // client -> server, during the handshake
)

const (
	dhxPubKeyLen  = 128 // bytes, matches the 1024-bit modulus
	dhxNonceLen   = 16
	dhxKeyLen     = 16
	dhxClientStep1Residue = 4 + dhxPubKeyLen // 4 bytes padding + client public key
)

// dhxMechanism implements the DHX SASL mechanism: a Diffie-Hellman key
// agreement (fixed g=7, fixed 1024-bit modulus) used to derive a CAST5-CBC
// key, over which a nonce/password challenge-response round trip runs.
type dhxMechanism struct {
	store    CredentialStore
	username string

	step int // 1 before Start has completed, 2 after, 0 once Step has succeeded

	priv       *big.Int
	nonce      *big.Int
	sharedKey  []byte // 16 bytes, high-order bytes of the DH shared secret
	username2  string // authid parsed from the client's step-1 token

	// Mutable IV pair for the post-authentication decode callback,
	// initialized to decryptIV="LWallace" / encryptIV="CJalbert" once
	// step 2 succeeds. postAuthDecryptIV is chained forward on every
	// Decode call per CAST-CBC semantics; postAuthEncryptIV is set but
	// not otherwise used, as there is no encode counterpart.
	postAuthDecryptIV []byte
	postAuthEncryptIV []byte
}

func newDHXMechanism(store CredentialStore, username string) *dhxMechanism {
	return &dhxMechanism{store: store, username: username, step: 1}
}

// Start implements Mechanism. See 4.5 for the exact wire layout.
func (m *dhxMechanism) Start(clientToken []byte) Status {
	authid, rest, ok := cutNUL(clientToken)
	if !ok {
		return fail(SASLBadParam)
	}
	_, rest, ok = cutNUL(rest) // authzid, present on the wire but unused
	if !ok {
		return fail(SASLBadParam)
	}
	if len(rest) != dhxClientStep1Residue {
		return fail(SASLBadParam)
	}
	clientPubBytes := rest[4:]
	clientPub := new(big.Int).SetBytes(clientPubBytes)

	priv, err := dh.GeneratePrivateKey(dh.DHXGroup)
	if err != nil {
		return fail(SASLFail)
	}
	nonce, err := randomUint(dhxNonceLen)
	if err != nil {
		return fail(SASLFail)
	}

	shared := dh.SharedSecret(dh.DHXGroup, priv, clientPub)
	sharedKey := shared[:dhxKeyLen]

	serverPub := dh.GeneratePublicKey(dh.DHXGroup, priv)
	serverPubBytes := dh.DHXGroup.Bytes(serverPub)

	plaintext := make([]byte, dhxNonceLen*2)
	nonceBytes := nonce.Bytes()
	copy(plaintext[dhxNonceLen-len(nonceBytes):dhxNonceLen], nonceBytes)

	ciphertext, err := cast5cbc.Encrypt(sharedKey, dhxEncryptIV, plaintext)
	if err != nil {
		return fail(SASLFail)
	}

	m.priv = priv
	m.nonce = nonce
	m.sharedKey = sharedKey
	m.username2 = authid
	m.step = 2

	serverToken := append(append([]byte{}, serverPubBytes...), ciphertext...)
	return cont(serverToken)
}

// Step implements Mechanism.
func (m *dhxMechanism) Step(clientToken []byte) Status {
	if m.step != 2 {
		return fail(SASLBadProt)
	}
	if len(clientToken) > 256 {
		return fail(SASLBadParam)
	}
	plaintext, err := cast5cbc.Decrypt(m.sharedKey, dhxDecryptIV, clientToken)
	if err != nil {
		return fail(SASLBadParam)
	}
	if len(plaintext) < dhxNonceLen {
		return fail(SASLBadParam)
	}

	clientNonce := new(big.Int).SetBytes(plaintext[:dhxNonceLen])
	want := new(big.Int).Add(m.nonce, big.NewInt(1))
	if clientNonce.Cmp(want) != 0 {
		return fail(SASLBadMAC)
	}

	passwordField, _, _ := cutNUL(plaintext[dhxNonceLen:])

	username := m.username
	if m.username2 != "" {
		username = m.username2
	}
	if !CheckPassword(m.store, username, passwordField) {
		return fail(SASLNoUser)
	}

	m.postAuthDecryptIV = append([]byte{}, dhxDecryptIV...)
	m.postAuthEncryptIV = append([]byte{}, dhxEncryptIV...)
	m.step = 0
	return ok(nil)
}

// Decode performs the post-authentication CAST-CBC unwrap used once a DHX
// session is established. The IV chains forward across calls, as the
// underlying CAST-CBC primitive does.
func (m *dhxMechanism) Decode(ciphertext []byte) ([]byte, error) {
	plaintext, err := cast5cbc.Decrypt(m.sharedKey, m.postAuthDecryptIV, ciphertext)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) >= cast5cbc.BlockSize {
		m.postAuthDecryptIV = ciphertext[len(ciphertext)-cast5cbc.BlockSize:]
	}
	return plaintext, nil
}

// cutNUL splits data at the first NUL byte, returning the content before
// it (as a string) and the remainder after it. ok is false if no NUL byte
// is present.
func cutNUL(data []byte) (string, []byte, bool) {
	i := bytes.IndexByte(data, 0)
	if i < 0 {
		return "", nil, false
	}
	return string(data[:i]), data[i+1:], true
}

// randomUint returns a cryptographically random unsigned integer built
// from n random bytes. See DESIGN.md, "Randomness".
func randomUint(n int) (*big.Int, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(buf), nil
}
