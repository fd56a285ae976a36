// Copyright (c) 2018 Fredrik Kuivinen, frekui@gmail.com
//
// Use of this source code is governed by the BSD-style license that can be
// found in the LICENSE file.

package passwdd

import (
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"
)

func rsaEncryptPKCS1v15ForTest(pub *rsa.PublicKey, plaintext []byte) ([]byte, error) {
	return rsa.EncryptPKCS1v15(rand.Reader, pub, plaintext)
}

func testServerContext(t *testing.T) *ServerContext {
	t.Helper()
	pemBytes := generateTestKeyPEM(t, 512)
	key, err := LoadIdentityKey(pemBytes, "example.com")
	if err != nil {
		t.Fatal(err)
	}
	store := NewMemoryStore(make([]byte, 16))
	if err := store.SetPassword("alice", "hunter2"); err != nil {
		t.Fatal(err)
	}
	return &ServerContext{
		IdentityKey: key,
		Registry:    NewDefaultRegistry(),
		Store:       store,
	}
}

func TestHandleList(t *testing.T) {
	conn := NewConnection(testServerContext(t))
	resp, closed := conn.Handle([]byte("LIST\r\n"))
	if closed {
		t.Fatalf("LIST should not close the connection")
	}
	want := "+OK " + advertisedMechList + "\r\n"
	if resp != want {
		t.Fatalf("got %q, want %q", resp, want)
	}
}

func TestHandleQuit(t *testing.T) {
	conn := NewConnection(testServerContext(t))
	resp, closed := conn.Handle([]byte("QUIT\r\n"))
	if !closed {
		t.Fatalf("QUIT should close the connection")
	}
	if resp != "+OK password server signing off.\r\n" {
		t.Fatalf("got %q", resp)
	}
}

func TestHandleUnknownCommand(t *testing.T) {
	conn := NewConnection(testServerContext(t))
	resp, closed := conn.Handle([]byte("FOO\r\n"))
	if closed {
		t.Fatalf("unknown command should not close the connection")
	}
	if resp != "-ERR Unknown command\r\n" {
		t.Fatalf("got %q", resp)
	}
}

func TestHandleAuthBeforeUser(t *testing.T) {
	conn := NewConnection(testServerContext(t))
	resp, closed := conn.Handle([]byte("AUTH DHX\r\n"))
	if closed {
		t.Fatalf("should not close")
	}
	if resp != "-ERR Must specify user first\r\n" {
		t.Fatalf("got %q", resp)
	}
}

func TestHandleUserSetsMechList(t *testing.T) {
	conn := NewConnection(testServerContext(t))
	resp, closed := conn.Handle([]byte("USER alice\r\n"))
	if closed {
		t.Fatalf("should not close")
	}
	want := "+OK " + advertisedMechList + "\r\n"
	if resp != want {
		t.Fatalf("got %q, want %q", resp, want)
	}
	if conn.username != "alice" || conn.state != StateHaveUser {
		t.Fatalf("connection state not updated: %+v", conn)
	}
}

func TestHandleUserPipelinedAuthUnknownMech(t *testing.T) {
	conn := NewConnection(testServerContext(t))
	resp, closed := conn.Handle([]byte("USER alice AUTH BOGUS-MECH\r\n"))
	if closed {
		t.Fatalf("should not close")
	}
	if !strings.Contains(resp, "-ERR SASL") {
		t.Fatalf("got %q, want a SASL error", resp)
	}
}

func TestHandleRSAPublicAndValidate(t *testing.T) {
	ctx := testServerContext(t)
	conn := NewConnection(ctx)

	resp, _ := conn.Handle([]byte("RSAPUBLIC\r\n"))
	want := "+OK " + ctx.IdentityKey.Thumbprint + "\r\n"
	if resp != want {
		t.Fatalf("got %q, want %q", resp, want)
	}

	plaintext := []byte("hello")
	b64 := binaryToBase64(mustRSAEncrypt(t, ctx, plaintext))
	resp2, _ := conn.Handle([]byte("RSAVALIDATE " + b64 + "\r\n"))
	want2 := "+OK " + binaryToBase64(plaintext) + "\r\n"
	if resp2 != want2 {
		t.Fatalf("got %q, want %q", resp2, want2)
	}
}

func TestHandleMultiCommandLine(t *testing.T) {
	// Multiple commands in a single space-separated line: LIST doesn't
	// consume any further tokens, so QUIT is dispatched right after it.
	conn := NewConnection(testServerContext(t))
	resp, closed := conn.Handle([]byte("LIST QUIT\r\n"))
	if !closed {
		t.Fatalf("QUIT later in the same line should still close the connection")
	}
	if !strings.Contains(resp, advertisedMechList) || !strings.Contains(resp, "signing off") {
		t.Fatalf("got %q", resp)
	}
}

// fakeMechanism lets tests drive AUTH2 rendering without a real SASL
// mechanism. Step always returns the configured status, regardless of the
// client token it's handed.
type fakeMechanism struct {
	step Status
}

func (f *fakeMechanism) Start(clientToken []byte) Status { return f.step }
func (f *fakeMechanism) Step(clientToken []byte) Status  { return f.step }

func TestHandleAuth2OKIgnoresServerToken(t *testing.T) {
	conn := NewConnection(testServerContext(t))
	conn.username = "alice"
	conn.state = StateAuthenticating
	conn.mech = &fakeMechanism{step: ok([]byte("should not appear"))}

	resp, closed := conn.Handle([]byte("AUTH2 00\r\n"))
	if closed {
		t.Fatalf("should not close")
	}
	if resp != "+OK\r\n" {
		t.Fatalf("got %q, want bare +OK with no ServerToken hex", resp)
	}
	if conn.state != StateAuthenticated || conn.mech != nil {
		t.Fatalf("connection state not updated: %+v", conn)
	}
}

func TestHandleAuth2ContinueRendersServerToken(t *testing.T) {
	conn := NewConnection(testServerContext(t))
	conn.username = "alice"
	conn.state = StateAuthenticating
	fake := &fakeMechanism{step: cont([]byte{0xAB, 0xCD})}
	conn.mech = fake

	resp, closed := conn.Handle([]byte("AUTH2 00\r\n"))
	if closed {
		t.Fatalf("should not close")
	}
	if resp != "+OK ABCD\r\n" {
		t.Fatalf("got %q, want +OK with hex ServerToken", resp)
	}
	if conn.state != StateAuthenticating || conn.mech != fake {
		t.Fatalf("connection state not updated: %+v", conn)
	}
}

func mustRSAEncrypt(t *testing.T, ctx *ServerContext, plaintext []byte) []byte {
	t.Helper()
	ciphertext, err := rsaEncryptPKCS1v15ForTest(&ctx.IdentityKey.Private.PublicKey, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	return ciphertext
}
