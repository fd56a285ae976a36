// Copyright (c) 2018 Fredrik Kuivinen, frekui@gmail.com
//
// Use of this source code is governed by the BSD-style license that can be
// found in the LICENSE file.

package passwdd

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/passwdd/passwdd/internal/pkg/cast5cbc"
	"github.com/passwdd/passwdd/internal/pkg/dh"
)

// dhxClient replays the client side of the DHX handshake against the
// server mechanism under test, without involving any networking.
type dhxClient struct {
	priv *big.Int
	pub  *big.Int
}

func newDHXClient(t *testing.T) *dhxClient {
	t.Helper()
	priv, err := dh.GeneratePrivateKey(dh.DHXGroup)
	if err != nil {
		t.Fatal(err)
	}
	pub := dh.GeneratePublicKey(dh.DHXGroup, priv)
	return &dhxClient{priv: priv, pub: pub}
}

func (c *dhxClient) initialToken(authid, authzid string) []byte {
	token := append([]byte(authid), 0)
	token = append(token, authzid...)
	token = append(token, 0)
	token = append(token, make([]byte, 4)...) // padding
	token = append(token, dh.DHXGroup.Bytes(c.pub)...)
	return token
}

func TestDHXHandshakeSuccess(t *testing.T) {
	store := NewMemoryStore(make([]byte, 16))
	if err := store.SetPassword("alice", "hunter2"); err != nil {
		t.Fatal(err)
	}

	mech := newDHXMechanism(store, "alice")
	client := newDHXClient(t)

	st := mech.Start(client.initialToken("alice", "ignored-authzid"))
	if st.Kind != StatusContinue {
		t.Fatalf("Start: got %v", st)
	}
	if len(st.ServerToken) != dhxPubKeyLen+32 {
		t.Fatalf("server token length %d, want %d", len(st.ServerToken), dhxPubKeyLen+32)
	}
	serverPubBytes := st.ServerToken[:dhxPubKeyLen]
	ciphertext := st.ServerToken[dhxPubKeyLen:]

	serverPub := new(big.Int).SetBytes(serverPubBytes)
	clientShared := dh.SharedSecret(dh.DHXGroup, client.priv, serverPub)
	clientKey := clientShared[:dhxKeyLen]
	if !bytes.Equal(clientKey, mech.sharedKey) {
		t.Fatalf("client and server disagree on the shared key")
	}

	plaintext, err := cast5cbc.Decrypt(clientKey, dhxEncryptIV, ciphertext)
	if err != nil {
		t.Fatal(err)
	}
	serverNonce := new(big.Int).SetBytes(plaintext[:dhxNonceLen])
	if serverNonce.Cmp(mech.nonce) != 0 {
		t.Fatalf("recovered nonce does not match mechanism's nonce")
	}

	reply := new(big.Int).Add(serverNonce, big.NewInt(1)).Bytes()
	replyPlaintext := make([]byte, dhxNonceLen)
	copy(replyPlaintext[dhxNonceLen-len(reply):], reply)
	replyPlaintext = append(replyPlaintext, []byte("hunter2")...)
	replyPlaintext = append(replyPlaintext, 0)
	// Pad to a multiple of the block size.
	for len(replyPlaintext)%cast5cbc.BlockSize != 0 {
		replyPlaintext = append(replyPlaintext, 0)
	}

	replyCiphertext, err := cast5cbc.Encrypt(clientKey, dhxDecryptIV, replyPlaintext)
	if err != nil {
		t.Fatal(err)
	}

	st2 := mech.Step(replyCiphertext)
	if st2.Kind != StatusOK {
		t.Fatalf("Step: got %v", st2)
	}
}

func TestDHXStartRejectsShortToken(t *testing.T) {
	store := NewMemoryStore(make([]byte, 16))
	mech := newDHXMechanism(store, "alice")
	st := mech.Start([]byte("alice\x00authzid\x00tooshort"))
	if st.Kind != StatusFail || st.Code != SASLBadParam {
		t.Fatalf("got %v, want FAIL(BADPARAM)", st)
	}
}

func TestDHXStepRejectsBadNonce(t *testing.T) {
	store := NewMemoryStore(make([]byte, 16))
	if err := store.SetPassword("alice", "hunter2"); err != nil {
		t.Fatal(err)
	}
	mech := newDHXMechanism(store, "alice")
	client := newDHXClient(t)
	st := mech.Start(client.initialToken("alice", ""))
	if st.Kind != StatusContinue {
		t.Fatalf("Start: got %v", st)
	}

	garbage := make([]byte, 32)
	ciphertext, err := cast5cbc.Encrypt(mech.sharedKey, dhxDecryptIV, garbage)
	if err != nil {
		t.Fatal(err)
	}
	st2 := mech.Step(ciphertext)
	if st2.Kind != StatusFail || st2.Code != SASLBadMAC {
		t.Fatalf("got %v, want FAIL(BADMAC)", st2)
	}
}
