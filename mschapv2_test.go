// Copyright (c) 2018 Fredrik Kuivinen, frekui@gmail.com
//
// Use of this source code is governed by the BSD-style license that can be
// found in the LICENSE file.

package passwdd

import (
	"bytes"
	"testing"
)

func buildMSCHAPv2Token(username, secondField string, challenge, peerChallenge, reserved, ntResponse []byte) []byte {
	token := append([]byte(username), 0)
	token = append(token, secondField...)
	token = append(token, 0)
	token = append(token, challenge...)
	token = append(token, peerChallenge...)
	token = append(token, reserved...)
	token = append(token, ntResponse...)
	return token
}

func TestMSCHAPv2Authenticates(t *testing.T) {
	store := NewMemoryStore(make([]byte, 16))
	if err := store.SetPassword("alice", "hunter2"); err != nil {
		t.Fatal(err)
	}
	mech := newMSCHAPv2Mechanism(store, "alice")

	challenge := bytes.Repeat([]byte{0x11}, 16)
	peerChallenge := bytes.Repeat([]byte{0x22}, 16)
	reserved := make([]byte, 8)

	ntResponse := bytes.Repeat([]byte{0x33}, 24)

	token := buildMSCHAPv2Token("alice", "ignored", challenge, peerChallenge, reserved, ntResponse)
	st := mech.Start(token)
	if st.Kind != StatusOK {
		t.Fatalf("got %v", st)
	}
	want := mschapv2Authenticator("hunter2", RawBytes, "alice", challenge, peerChallenge, ntResponse)
	if !bytes.Equal(st.ServerToken, want) {
		t.Fatalf("authenticator mismatch: got %x, want %x", st.ServerToken, want)
	}
	if len(st.ServerToken) != 20 {
		t.Fatalf("authenticator length %d, want 20", len(st.ServerToken))
	}
}

func TestMSCHAPv2RejectsShortToken(t *testing.T) {
	store := NewMemoryStore(make([]byte, 16))
	mech := newMSCHAPv2Mechanism(store, "alice")
	st := mech.Start([]byte("short"))
	if st.Kind != StatusFail || st.Code != SASLBadParam {
		t.Fatalf("got %v, want FAIL(BADPARAM)", st)
	}
}

func TestMSCHAPv2RejectsUnknownUser(t *testing.T) {
	store := NewMemoryStore(make([]byte, 16))
	mech := newMSCHAPv2Mechanism(store, "nobody")
	challenge := bytes.Repeat([]byte{0x01}, 16)
	peerChallenge := bytes.Repeat([]byte{0x02}, 16)
	reserved := make([]byte, 8)
	ntResponse := bytes.Repeat([]byte{0x03}, 24)
	token := buildMSCHAPv2Token("nobody", "", challenge, peerChallenge, reserved, ntResponse)
	st := mech.Start(token)
	if st.Kind != StatusFail || st.Code != SASLNoUser {
		t.Fatalf("got %v, want FAIL(NOUSER)", st)
	}
}

func TestMSCHAPv2StepIsNeverLegal(t *testing.T) {
	store := NewMemoryStore(make([]byte, 16))
	mech := newMSCHAPv2Mechanism(store, "alice")
	st := mech.Step([]byte("anything"))
	if st.Kind != StatusFail || st.Code != SASLBadProt {
		t.Fatalf("got %v, want FAIL(BADPROT)", st)
	}
}
