// Copyright (c) 2018 Fredrik Kuivinen, frekui@gmail.com
//
// Use of this source code is governed by the BSD-style license that can be
// found in the LICENSE file.

package passwdd

import (
	"strings"
	"testing"

	"github.com/go-test/deep"
)

func TestPolicyDefaults(t *testing.T) {
	p := NewPolicy()
	if p.ExpirationDateGMT != ^uint64(0) || p.HardExpireDateGMT != ^uint64(0) {
		t.Fatalf("expiration fields should default to never: %+v", p)
	}
	if p.UsingHistory || p.IsAdminUser {
		t.Fatalf("booleans should default false: %+v", p)
	}
}

func TestPolicyParseGlobalRoundTrip(t *testing.T) {
	s := "usingHistory=1 canModifyPasswordforSelf=0 requiresAlpha=1 " +
		"maxMinutesUntilChangePassword=43200 minChars=8 maxChars=255"
	p, err := ParsePolicy(s)
	if err != nil {
		t.Fatal(err)
	}
	if !p.UsingHistory || p.CanModifyPasswordForSelf || !p.RequiresAlpha {
		t.Fatalf("unexpected bool fields: %+v", p)
	}
	if p.MaxMinutesUntilChangePassword != 43200 || p.MinChars != 8 || p.MaxChars != 255 {
		t.Fatalf("unexpected numeric fields: %+v", p)
	}

	out, err := p.Emit(false)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := ParsePolicy(out)
	if err != nil {
		t.Fatalf("re-parse of emitted policy failed: %v", err)
	}
	if diff := deep.Equal(p, p2); diff != nil {
		t.Fatalf("round trip diff: %v", diff)
	}
}

func TestPolicyUserFieldsOnlyEmittedWhenRequested(t *testing.T) {
	p := NewPolicy()
	p.IsDisabled = true
	p.LogOffTime = 123

	global, err := p.Emit(false)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(global, keyIsDisabled) || strings.Contains(global, keyLogOffTime) {
		t.Fatalf("global emission should not include user fields: %q", global)
	}

	user, err := p.Emit(true)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(user, "isDisabled=1") || !strings.Contains(user, "logOffTime=123") {
		t.Fatalf("user emission missing user fields: %q", user)
	}
}

func TestPolicyIsAdminUserParsedButNotEmitted(t *testing.T) {
	p, err := ParsePolicy("isAdminUser=1")
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsAdminUser {
		t.Fatalf("isAdminUser should have been parsed true")
	}
	out, err := p.Emit(true)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "isAdminUser") {
		t.Fatalf("isAdminUser must never be emitted, got %q", out)
	}
}

func TestPolicyParseErrors(t *testing.T) {
	if _, err := ParsePolicy("noequalssign"); err != ErrPolicyInvalid {
		t.Fatalf("got %v, want ErrPolicyInvalid", err)
	}
	if _, err := ParsePolicy("bogusKey=1"); err != ErrPolicyUnknownKey {
		t.Fatalf("got %v, want ErrPolicyUnknownKey", err)
	}
}

func TestPolicyEmitTooBig(t *testing.T) {
	p := NewPolicy()
	if _, err := p.emit(true, 5); err != ErrPolicyTooBig {
		t.Fatalf("got %v, want ErrPolicyTooBig", err)
	}
}
