// Copyright (c) 2018 Fredrik Kuivinen, frekui@gmail.com
//
// Use of this source code is governed by the BSD-style license that can be
// found in the LICENSE file.

package passwdd

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// maxRSAKeyBits is the largest RSA key the identity proof will load. Keys
// above this size are rejected at load time.
const maxRSAKeyBits = 8192

// ErrRSAKeyTooBig is returned by LoadIdentityKey when the PEM-encoded key
// exceeds maxRSAKeyBits.
var ErrRSAKeyTooBig = errors.New("RSA key exceeds maximum supported size")

// ErrRSAError is the sentinel surfaced on the wire as "-ERR RSA Error" for
// any failure in the RSAVALIDATE round trip.
var ErrRSAError = errors.New("RSA Error")

// IdentityKey wraps the server's RSA private key together with the
// thumbprint computed from it at load time.
type IdentityKey struct {
	Private    *rsa.PrivateKey
	Thumbprint string
}

// LoadIdentityKey parses a PEM-encoded PKCS#1 RSA private key and computes
// its thumbprint: "<bits> <e decimal> <n decimal> root@<hostname>".
func LoadIdentityKey(pemBytes []byte, hostname string) (*IdentityKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrRSAError
	}
	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRSAError, err)
	}
	if priv.N.BitLen() > maxRSAKeyBits {
		return nil, ErrRSAKeyTooBig
	}
	thumbprint := fmt.Sprintf("%d %d %s root@%s", priv.N.BitLen(), priv.E, priv.N.String(), hostname)
	return &IdentityKey{Private: priv, Thumbprint: thumbprint}, nil
}

// Validate implements the RSAVALIDATE command: it decrypts a PKCS#1 v1.5
// ciphertext that a client encrypted under the server's public key and
// returns the recovered cleartext. Only the holder of the matching private
// key can produce this cleartext, which is how the client confirms it is
// talking to the authentic server.
func (k *IdentityKey) Validate(ciphertext []byte) ([]byte, error) {
	plaintext, err := rsa.DecryptPKCS1v15(rand.Reader, k.Private, ciphertext)
	if err != nil {
		return nil, ErrRSAError
	}
	return plaintext, nil
}
