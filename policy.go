// Copyright (c) 2018 Fredrik Kuivinen, frekui@gmail.com
//
// Use of this source code is governed by the BSD-style license that can be
// found in the LICENSE file.

package passwdd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Errors returned by Policy parsing.
var (
	ErrPolicyTooBig     = errors.New("policy: token too long")
	ErrPolicyInvalid    = errors.New("policy: malformed token")
	ErrPolicyUnknownKey = errors.New("policy: unknown key")
)

// policyTokenMax is the maximum length of a single "key=value" token.
const policyTokenMax = 256

// Policy is the password policy record: 11 boolean flags and 9 numeric
// fields at global scope, plus 11 booleans and 4 numeric fields at user
// scope. Field order here doubles as the emission order (4.2).
type Policy struct {
	// Global, boolean.
	UsingHistory               bool
	CanModifyPasswordForSelf   bool
	UsingExpirationDate        bool
	UsingHardExpirationDate    bool
	RequiresAlpha              bool
	RequiresNumeric            bool
	PasswordCannotBeName       bool
	RequiresMixedCase          bool
	RequiresSymbol             bool
	NewPasswordRequired        bool
	NotGuessablePattern        bool

	// Global, numeric. expirationDateGMT/hardExpireDateGMT default to
	// MaxUint64 ("never"); all others default to 0.
	ExpirationDateGMT             uint64
	HardExpireDateGMT             uint64
	MaxMinutesUntilChangePassword uint64
	MaxMinutesUntilDisabled       uint64
	MaxMinutesOfNonUse            uint64
	MaxFailedLoginAttempts        uint64
	MinChars                      uint64
	MaxChars                      uint64
	MinutesUntilFailedLoginReset  uint64

	// User scope, boolean. IsAdminUser is parsed but never emitted: see
	// DESIGN.md, "isAdminUser asymmetry".
	IsDisabled             bool
	IsAdminUser            bool
	IsSessionKeyAgent      bool
	IsComputerAccount      bool
	AdminClass             bool
	AdminNoChangePasswords bool
	AdminNoSetPolicies     bool
	AdminNoCreate          bool
	AdminNoDelete          bool
	AdminNoClearState      bool
	AdminNoPromoteAdmins   bool

	// User scope, numeric.
	LogOffTime           uint64
	KickOffTime          uint64
	LastLoginTime        uint64
	PasswordLastSetTime  uint64
}

// NewPolicy returns a Policy with the defaults from 4.3: both expiration
// timestamps set to "never", everything else zero/false.
func NewPolicy() *Policy {
	return &Policy{
		ExpirationDateGMT:  ^uint64(0),
		HardExpireDateGMT:  ^uint64(0),
	}
}

// policy field keys, exactly as they appear on the wire.
const (
	keyUsingHistory               = "usingHistory"
	keyCanModifyPasswordForSelf   = "canModifyPasswordforSelf"
	keyUsingExpirationDate        = "usingExpirationDate"
	keyUsingHardExpirationDate    = "usingHardExpirationDate"
	keyRequiresAlpha              = "requiresAlpha"
	keyRequiresNumeric            = "requiresNumeric"
	keyPasswordCannotBeName       = "passwordCannotBeName"
	keyRequiresMixedCase          = "requiresMixedCase"
	keyRequiresSymbol             = "requiresSymbol"
	keyNewPasswordRequired        = "newPasswordRequired"
	keyNotGuessablePattern        = "notGuessablePattern"

	keyExpirationDateGMT             = "expirationDateGMT"
	keyHardExpireDateGMT             = "hardExpireDateGMT"
	keyMaxMinutesUntilChangePassword = "maxMinutesUntilChangePassword"
	keyMaxMinutesUntilDisabled       = "maxMinutesUntilDisabled"
	keyMaxMinutesOfNonUse            = "maxMinutesOfNonUse"
	keyMaxFailedLoginAttempts        = "maxFailedLoginAttempts"
	keyMinChars                      = "minChars"
	keyMaxChars                      = "maxChars"
	keyMinutesUntilFailedLoginReset  = "minutesUntilFailedLoginReset"

	keyIsDisabled             = "isDisabled"
	keyIsAdminUser            = "isAdminUser"
	keyIsSessionKeyAgent      = "isSessionKeyAgent"
	keyIsComputerAccount      = "isComputerAccount"
	keyAdminClass             = "adminClass"
	keyAdminNoChangePasswords = "adminNoChangePasswords"
	keyAdminNoSetPolicies     = "adminNoSetPolicies"
	keyAdminNoCreate          = "adminNoCreate"
	keyAdminNoDelete          = "adminNoDelete"
	keyAdminNoClearState      = "adminNoClearState"
	keyAdminNoPromoteAdmins   = "adminNoPromoteAdmins"

	keyLogOffTime          = "logOffTime"
	keyKickOffTime         = "kickOffTime"
	keyLastLoginTime       = "lastLoginTime"
	keyPasswordLastSetTime = "passwordLastSetTime"
)

// ParsePolicy parses a space-separated "key=value" policy string into a new
// Policy. Unknown keys fail with ErrPolicyUnknownKey, a token missing '='
// fails with ErrPolicyInvalid, and an over-length token fails with
// ErrPolicyTooBig. Booleans are true iff the value's first character is
// '1'; numeric fields are parsed as decimal uint64.
func ParsePolicy(s string) (*Policy, error) {
	p := NewPolicy()
	for _, tok := range strings.Fields(s) {
		if len(tok) >= policyTokenMax {
			return nil, ErrPolicyTooBig
		}
		eq := strings.IndexByte(tok, '=')
		if eq < 0 {
			return nil, ErrPolicyInvalid
		}
		key, value := tok[:eq], tok[eq+1:]
		if err := p.parseItem(key, value); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Policy) parseItem(key, value string) error {
	boolVal := len(value) > 0 && value[0] == '1'
	numVal := func() uint64 {
		n, _ := strconv.ParseUint(value, 10, 64)
		return n
	}

	switch key {
	case keyUsingHistory:
		p.UsingHistory = boolVal
	case keyCanModifyPasswordForSelf:
		p.CanModifyPasswordForSelf = boolVal
	case keyUsingExpirationDate:
		p.UsingExpirationDate = boolVal
	case keyUsingHardExpirationDate:
		p.UsingHardExpirationDate = boolVal
	case keyRequiresAlpha:
		p.RequiresAlpha = boolVal
	case keyRequiresNumeric:
		p.RequiresNumeric = boolVal
	case keyPasswordCannotBeName:
		p.PasswordCannotBeName = boolVal
	case keyRequiresMixedCase:
		p.RequiresMixedCase = boolVal
	case keyRequiresSymbol:
		p.RequiresSymbol = boolVal
	case keyNewPasswordRequired:
		p.NewPasswordRequired = boolVal
	case keyNotGuessablePattern:
		p.NotGuessablePattern = boolVal
	case keyExpirationDateGMT:
		p.ExpirationDateGMT = numVal()
	case keyHardExpireDateGMT:
		p.HardExpireDateGMT = numVal()
	case keyMaxMinutesUntilChangePassword:
		p.MaxMinutesUntilChangePassword = numVal()
	case keyMaxMinutesUntilDisabled:
		p.MaxMinutesUntilDisabled = numVal()
	case keyMaxMinutesOfNonUse:
		p.MaxMinutesOfNonUse = numVal()
	case keyMaxFailedLoginAttempts:
		p.MaxFailedLoginAttempts = numVal()
	case keyMinChars:
		p.MinChars = numVal()
	case keyMaxChars:
		p.MaxChars = numVal()
	case keyMinutesUntilFailedLoginReset:
		p.MinutesUntilFailedLoginReset = numVal()
	case keyIsDisabled:
		p.IsDisabled = boolVal
	case keyIsAdminUser:
		p.IsAdminUser = boolVal
	case keyIsSessionKeyAgent:
		p.IsSessionKeyAgent = boolVal
	case keyIsComputerAccount:
		p.IsComputerAccount = boolVal
	case keyAdminClass:
		p.AdminClass = boolVal
	case keyAdminNoChangePasswords:
		p.AdminNoChangePasswords = boolVal
	case keyAdminNoSetPolicies:
		p.AdminNoSetPolicies = boolVal
	case keyAdminNoCreate:
		p.AdminNoCreate = boolVal
	case keyAdminNoDelete:
		p.AdminNoDelete = boolVal
	case keyAdminNoClearState:
		p.AdminNoClearState = boolVal
	case keyAdminNoPromoteAdmins:
		p.AdminNoPromoteAdmins = boolVal
	case keyLogOffTime:
		p.LogOffTime = numVal()
	case keyKickOffTime:
		p.KickOffTime = numVal()
	case keyLastLoginTime:
		p.LastLoginTime = numVal()
	case keyPasswordLastSetTime:
		p.PasswordLastSetTime = numVal()
	default:
		return ErrPolicyUnknownKey
	}
	return nil
}

// String serializes the global policy fields only (isUser = false).
func (p *Policy) String() string {
	s, _ := p.Emit(false)
	return s
}

// Emit serializes the policy into the wire format. Global fields are always
// included; user-scope fields are included only when isUser is true.
// isAdminUser is parsed but never emitted (see DESIGN.md). Returns
// ErrPolicyTooBig if the result would exceed responseBufferCap.
func (p *Policy) Emit(isUser bool) (string, error) {
	return p.emit(isUser, responseBufferCap)
}

// responseBufferCap bounds an emitted policy string; it is generous enough
// that only pathological callers would ever hit ErrPolicyTooBig in
// practice.
const responseBufferCap = 1024

func (p *Policy) emit(isUser bool, maxLen int) (string, error) {
	var b strings.Builder

	writeBool := func(key string, v bool) {
		n := 0
		if v {
			n = 1
		}
		fmt.Fprintf(&b, "%s=%d ", key, n)
	}
	writeNum := func(key string, v uint64) {
		fmt.Fprintf(&b, "%s=%d ", key, v)
	}

	writeBool(keyUsingHistory, p.UsingHistory)
	writeBool(keyCanModifyPasswordForSelf, p.CanModifyPasswordForSelf)
	writeBool(keyUsingExpirationDate, p.UsingExpirationDate)
	writeBool(keyUsingHardExpirationDate, p.UsingHardExpirationDate)
	writeBool(keyRequiresAlpha, p.RequiresAlpha)
	writeBool(keyRequiresNumeric, p.RequiresNumeric)
	writeBool(keyPasswordCannotBeName, p.PasswordCannotBeName)
	writeBool(keyRequiresMixedCase, p.RequiresMixedCase)
	writeBool(keyRequiresSymbol, p.RequiresSymbol)
	writeBool(keyNewPasswordRequired, p.NewPasswordRequired)
	writeBool(keyNotGuessablePattern, p.NotGuessablePattern)

	writeNum(keyExpirationDateGMT, p.ExpirationDateGMT)
	writeNum(keyHardExpireDateGMT, p.HardExpireDateGMT)
	writeNum(keyMaxMinutesUntilChangePassword, p.MaxMinutesUntilChangePassword)
	writeNum(keyMaxMinutesUntilDisabled, p.MaxMinutesUntilDisabled)
	writeNum(keyMaxMinutesOfNonUse, p.MaxMinutesOfNonUse)
	writeNum(keyMaxFailedLoginAttempts, p.MaxFailedLoginAttempts)
	writeNum(keyMinChars, p.MinChars)
	writeNum(keyMaxChars, p.MaxChars)
	writeNum(keyMinutesUntilFailedLoginReset, p.MinutesUntilFailedLoginReset)

	if isUser {
		writeBool(keyIsDisabled, p.IsDisabled)
		writeBool(keyIsSessionKeyAgent, p.IsSessionKeyAgent)
		writeBool(keyIsComputerAccount, p.IsComputerAccount)
		writeBool(keyAdminClass, p.AdminClass)
		writeBool(keyAdminNoChangePasswords, p.AdminNoChangePasswords)
		writeBool(keyAdminNoSetPolicies, p.AdminNoSetPolicies)
		writeBool(keyAdminNoCreate, p.AdminNoCreate)
		writeBool(keyAdminNoDelete, p.AdminNoDelete)
		writeBool(keyAdminNoClearState, p.AdminNoClearState)
		writeBool(keyAdminNoPromoteAdmins, p.AdminNoPromoteAdmins)
		writeNum(keyLogOffTime, p.LogOffTime)
		writeNum(keyKickOffTime, p.KickOffTime)
		writeNum(keyLastLoginTime, p.LastLoginTime)
		writeNum(keyPasswordLastSetTime, p.PasswordLastSetTime)
	}

	out := strings.TrimSuffix(b.String(), " ")
	if len(out) > maxLen {
		return "", ErrPolicyTooBig
	}
	return out, nil
}
