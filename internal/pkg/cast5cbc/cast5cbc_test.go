// Copyright (c) 2018 Fredrik Kuivinen, frekui@gmail.com
//
// Use of this source code is governed by the BSD-style license that can be
// found in the LICENSE file.

package cast5cbc

import (
	"bytes"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	key := []byte("0123456789ABCDEF")
	iv := []byte("CJalbert")
	plaintext := make([]byte, 32)
	copy(plaintext, "0123456789ABCDEF0123456789ABCDE")

	ciphertext, err := Encrypt(key, iv, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	if len(ciphertext) != len(plaintext) {
		t.Fatalf("ciphertext length %d, want %d", len(ciphertext), len(plaintext))
	}
	got, err := Decrypt(key, iv, ciphertext)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("got %v, want %v", got, plaintext)
	}
}

func TestEncryptRejectsUnalignedInput(t *testing.T) {
	key := []byte("0123456789ABCDEF")
	iv := []byte("LWallace")
	if _, err := Encrypt(key, iv, []byte("not a multiple of 8")); err == nil {
		t.Fatal("expected error for unaligned plaintext")
	}
}

func TestEncryptRejectsBadIVLength(t *testing.T) {
	key := []byte("0123456789ABCDEF")
	if _, err := Encrypt(key, []byte("short"), make([]byte, 8)); err == nil {
		t.Fatal("expected error for short iv")
	}
}
