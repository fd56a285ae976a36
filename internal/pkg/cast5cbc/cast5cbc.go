// Copyright (c) 2018 Fredrik Kuivinen, frekui@gmail.com
//
// Use of this source code is governed by the BSD-style license that can be
// found in the LICENSE file.

// Package cast5cbc wraps golang.org/x/crypto/cast5 in CBC mode with the
// fixed, unauthenticated framing DHX uses: a caller-supplied 8-byte IV and
// no padding, since every value DHX ever encrypts is already a multiple of
// the CAST5 block size. It deliberately mirrors the structure of
// internal/pkg/authenc, which performs the analogous job for AES, but drops
// the HMAC layer and the HKDF key split: DHX derives its 16-byte CAST key
// directly from the Diffie-Hellman agreement and has no use for a MAC here.
package cast5cbc

import (
	"crypto/cipher"
	"fmt"

	"golang.org/x/crypto/cast5"
)

// BlockSize is the CAST5 block size in bytes.
const BlockSize = cast5.BlockSize

// Encrypt CAST5-CBC-encrypts plaintext using key (16 bytes) and iv (8
// bytes). len(plaintext) must be a multiple of BlockSize.
func Encrypt(key, iv, plaintext []byte) ([]byte, error) {
	ciph, err := newCipher(key, iv)
	if err != nil {
		return nil, err
	}
	if len(plaintext)%BlockSize != 0 {
		return nil, fmt.Errorf("cast5cbc: plaintext length %d is not a multiple of the block size", len(plaintext))
	}
	out := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(ciph, iv).CryptBlocks(out, plaintext)
	return out, nil
}

// Decrypt CAST5-CBC-decrypts ciphertext using key (16 bytes) and iv (8
// bytes). len(ciphertext) must be a multiple of BlockSize.
func Decrypt(key, iv, ciphertext []byte) ([]byte, error) {
	ciph, err := newCipher(key, iv)
	if err != nil {
		return nil, err
	}
	if len(ciphertext)%BlockSize != 0 {
		return nil, fmt.Errorf("cast5cbc: ciphertext length %d is not a multiple of the block size", len(ciphertext))
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(ciph, iv).CryptBlocks(out, ciphertext)
	return out, nil
}

func newCipher(key, iv []byte) (cipher.Block, error) {
	if len(iv) != BlockSize {
		return nil, fmt.Errorf("cast5cbc: iv length %d, want %d", len(iv), BlockSize)
	}
	ciph, err := cast5.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return ciph, nil
}
