// Copyright (c) 2018 Fredrik Kuivinen, frekui@gmail.com
//
// Use of this source code is governed by the BSD-style license that can be
// found in the LICENSE file.

package passwdd

import "fmt"

// Numeric SASL failure codes, carried on FAIL statuses and surfaced on the
// wire as "-ERR SASL <n>". Values match the Cyrus SASL library's sasl.h so
// that a client written against the real passwdd speaks the same numbers.
const (
	SASLFail     = -1
	SASLBadProt  = -5
	SASLBadParam = -7
	SASLBadMAC   = -9
	SASLNotAuthz = -14
	SASLNoUser   = -20
	SASLBadVers  = -23
)

// StatusKind is the outcome of a Mechanism's start or step call.
type StatusKind int

const (
	StatusOK StatusKind = iota
	StatusContinue
	StatusFail
)

// Status is the result of a SASL start/step call: OK (authenticated),
// CONTINUE (more steps needed, ServerToken carries the challenge), or FAIL
// (authentication failed, Code explains why).
type Status struct {
	Kind        StatusKind
	Code        int
	ServerToken []byte
}

func ok(token []byte) Status   { return Status{Kind: StatusOK, ServerToken: token} }
func cont(token []byte) Status { return Status{Kind: StatusContinue, ServerToken: token} }
func fail(code int) Status     { return Status{Kind: StatusFail, Code: code} }

// Mechanism is a SASL server mechanism instance. start consumes the
// client's initial response; step consumes each subsequent client token.
// Once start or step has returned OK or FAIL, no further step call is
// legal.
type Mechanism interface {
	// Start processes the client's initial token (possibly empty).
	Start(clientToken []byte) Status
	// Step processes a subsequent client token.
	Step(clientToken []byte) Status
}

// MechanismFactory constructs a fresh Mechanism instance bound to a
// connection's credential store, for the named user. Username is the
// value the USER command most recently set; individual mechanisms may
// overwrite it with a canonicalized value carried in their own wire data
// (DHX does this).
type MechanismFactory func(store CredentialStore, username string) Mechanism

// Registry maps a case-sensitive mechanism name to a factory for it.
type Registry struct {
	factories map[string]MechanismFactory
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]MechanismFactory)}
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, factory MechanismFactory) {
	r.factories[name] = factory
}

// New constructs a Mechanism for name, or (nil, false) if name is not
// registered.
func (r *Registry) New(name string, store CredentialStore, username string) (Mechanism, bool) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, false
	}
	return factory(store, username), true
}

// advertisedMechList is the verbatim SASL mechanism list string returned
// by LIST. Names beyond DHX and MS-CHAPv2 are advertised for wire
// compatibility with existing clients even though no factory is
// registered for them; invoking AUTH on one of those fails with
// SASLBadVers.
const advertisedMechList = `(SASL "SMB-NTLMv2" "SMB-NT" "SMB-LAN-MANAGER" "MS-CHAPv2" "PPS" "OTP" "GSSAPI" "DIGEST-MD5" "CRAM-MD5" "WEBDAV-DIGEST" "DHX" "APOP" )`

// NewDefaultRegistry returns a Registry with the DHX and MS-CHAPv2
// mechanisms registered under their wire names.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("DHX", func(store CredentialStore, username string) Mechanism {
		return newDHXMechanism(store, username)
	})
	r.Register("MS-CHAPv2", func(store CredentialStore, username string) Mechanism {
		return newMSCHAPv2Mechanism(store, username)
	})
	return r
}

func (s Status) String() string {
	switch s.Kind {
	case StatusOK:
		return "OK"
	case StatusContinue:
		return "CONTINUE"
	default:
		return fmt.Sprintf("FAIL(%d)", s.Code)
	}
}
