// Copyright (c) 2018 Fredrik Kuivinen, frekui@gmail.com
//
// Use of this source code is governed by the BSD-style license that can be
// found in the LICENSE file.

package passwdd

import "strings"

func cmdList(c *Connection, rb *responseBuffer, args []string, pipelinedViaUser bool) int {
	rb.catf("+OK %s\r\n", advertisedMechList)
	return 0
}

func cmdRSAPublic(c *Connection, rb *responseBuffer, args []string, pipelinedViaUser bool) int {
	rb.catf("+OK %s\r\n", c.ctx.IdentityKey.Thumbprint)
	return 0
}

func cmdRSAValidate(c *Connection, rb *responseBuffer, args []string, pipelinedViaUser bool) int {
	if len(args) < 2 {
		rb.catf("-ERR Must specify value\r\n")
		return 0
	}
	ciphertext, err := base64ToBinary(args[1])
	if err != nil {
		rb.catf("-ERR SASL Error\r\n")
		return 1
	}
	plaintext, err := c.ctx.IdentityKey.Validate(ciphertext)
	if err != nil {
		rb.catf("-ERR RSA Error\r\n")
		return 1
	}
	rb.catf("+OK %s\r\n", binaryToBase64(plaintext))
	return 1
}

// cmdNewUser, cmdDeleteUser, and cmdChangePass are deliberate stubs:
// password mutation is left unimplemented, matching accounts whose
// credentials live in a read-only directory backend.
func cmdNewUser(c *Connection, rb *responseBuffer, args []string, pipelinedViaUser bool) int {
	if len(args) < 3 {
		rb.catf("-ERR Must specify value\r\n")
		return len(args) - 1
	}
	rb.catf("-ERR Unsupported\r\n")
	return 2
}

func cmdDeleteUser(c *Connection, rb *responseBuffer, args []string, pipelinedViaUser bool) int {
	rb.catf("+OK\r\n")
	return 1
}

func cmdChangePass(c *Connection, rb *responseBuffer, args []string, pipelinedViaUser bool) int {
	rb.catf("+OK\r\n")
	return 2
}

func cmdUser(c *Connection, rb *responseBuffer, args []string, pipelinedViaUser bool) int {
	if len(args) < 2 {
		rb.catf("-ERR Must specify user\r\n")
		return 0
	}

	username := args[1]
	if len(username) > maxUsernameLen {
		username = username[:maxUsernameLen]
	}
	c.username = username
	c.state = StateHaveUser

	result := 0
	if len(args) >= 3 && strings.EqualFold(args[2], "AUTH") {
		result = cmdAuth(c, rb, args[2:], true)
		if result < 0 {
			return result
		}
		result++
	} else {
		rb.catf("+OK %s\r\n", advertisedMechList)
	}
	return 1 + result
}

func cmdAuth(c *Connection, rb *responseBuffer, args []string, pipelinedViaUser bool) int {
	if len(args) < 2 {
		rb.catf("-ERR Invalid mechanism\r\n")
		return 0
	}
	consumed := 1

	if c.username == "" {
		rb.catf("-ERR Must specify user first\r\n")
		return consumed
	}

	var clientToken []byte
	if len(args) >= 3 {
		if len(args) >= 4 && args[2] == "replay" {
			// Special case handling for WEBDAV-DIGEST.
			clientToken = hexToBinary(args[3])
			consumed += 2
		} else {
			clientToken = hexToBinary(args[2])
			consumed++
		}
	}

	mechName := args[1]
	mech, found := c.ctx.Registry.New(mechName, c.ctx.Store, c.username)
	var status Status
	if !found {
		status = fail(SASLBadVers)
	} else {
		status = mech.Start(clientToken)
	}
	return consumed + c.finishAuthStep(rb, mechName, mech, status, pipelinedViaUser)
}

func cmdAuth2(c *Connection, rb *responseBuffer, args []string, pipelinedViaUser bool) int {
	if len(args) < 2 {
		rb.catf("-ERR Invalid argument list\r\n")
		return 0
	}
	if c.username == "" {
		rb.catf("-ERR Must specify user first\r\n")
		return 1
	}
	if c.mech == nil {
		rb.catf("-ERR SASL %d\r\n", SASLBadProt)
		return 1
	}

	clientToken := hexToBinary(args[1])
	status := c.mech.Step(clientToken)
	return 1 + c.finishAuth2Step(rb, c.mech, status)
}

// finishAuthStep renders a mechanism Status onto the wire and updates the
// connection's state/mechanism bookkeeping. mech may be nil when the
// named mechanism was never found (status will be a FAIL in that case).
// It returns 0 always; the return value exists only so call sites read
// like the other handlers' "tokens consumed" idiom.
func (c *Connection) finishAuthStep(rb *responseBuffer, mechName string, mech Mechanism, status Status, pipelinedViaUser bool) int {
	okTag := "+OK"
	if pipelinedViaUser {
		okTag = "+AUTHOK"
	}

	switch status.Kind {
	case StatusOK, StatusContinue:
		if len(status.ServerToken) > 0 {
			rb.catf("%s %s\r\n", okTag, binaryToHex(status.ServerToken))
		} else {
			rb.catf("%s\r\n", okTag)
		}
		if status.Kind == StatusOK {
			c.state = StateAuthenticated
			c.mech = nil
		} else {
			c.state = StateAuthenticating
			c.mech = mech
		}
	case StatusFail:
		rb.catf("-ERR SASL %d\r\n", status.Code)
	}
	return 0
}

// finishAuth2Step renders a mechanism Status for AUTH2 and updates the
// connection's state/mechanism bookkeeping. Unlike finishAuthStep, the OK
// branch always emits a bare "+OK\r\n", ignoring any ServerToken the
// mechanism returned alongside it: AUTH2's "we are finished" case is
// hard-coded, unlike AUTH's OK/CONTINUE case, which renders ServerToken as
// hex and honors AUTHOK tagging. The CONTINUE branch still renders
// ServerToken as hex, matching AUTH's CONTINUE rendering.
func (c *Connection) finishAuth2Step(rb *responseBuffer, mech Mechanism, status Status) int {
	switch status.Kind {
	case StatusOK:
		rb.catf("+OK\r\n")
		c.state = StateAuthenticated
		c.mech = nil
	case StatusContinue:
		if len(status.ServerToken) > 0 {
			rb.catf("+OK %s\r\n", binaryToHex(status.ServerToken))
		} else {
			rb.catf("+OK\r\n")
		}
		c.state = StateAuthenticating
		c.mech = mech
	case StatusFail:
		rb.catf("-ERR SASL %d\r\n", status.Code)
		c.state = StateHaveUser
		c.mech = nil
	}
	return 0
}

func cmdQuit(c *Connection, rb *responseBuffer, args []string, pipelinedViaUser bool) int {
	rb.catf("+OK password server signing off.\r\n")
	return -1
}
