// Copyright (c) 2018 Fredrik Kuivinen, frekui@gmail.com
//
// Use of this source code is governed by the BSD-style license that can be
// found in the LICENSE file.

package passwdd

import "strings"

// ConnState is a connection's position in the USER/AUTH/AUTH2 lifecycle.
type ConnState int

const (
	StateFresh ConnState = iota
	StateHaveUser
	StateAuthenticating
	StateAuthenticated
	StateClosed
)

// maxUsernameLen bounds how much of a USER command's argument is retained.
const maxUsernameLen = 63

// Connection is one client's command-processing state: its username (once
// USER has been sent), the in-progress SASL mechanism (once AUTH has
// started one that returned CONTINUE), and its place in the connection
// lifecycle.
type Connection struct {
	ctx *ServerContext

	state    ConnState
	username string
	mech     Mechanism
}

// NewConnection returns a fresh Connection bound to ctx, in StateFresh.
func NewConnection(ctx *ServerContext) *Connection {
	return &Connection{ctx: ctx, state: StateFresh}
}

// Handle tokenizes one recv buffer and dispatches each command in it:
// commands are matched left to right, each handler consumes its own name
// plus however many further tokens it reports, and a handler reporting
// "close" does not stop the remaining tokens in the buffer from being
// processed — it only marks the connection for closing once the whole
// buffer has been handled. Handle returns the accumulated response text
// and whether the connection should now be closed.
func (c *Connection) Handle(buf []byte) (response string, shouldClose bool) {
	tokens := tokenize(buf)
	rb := newResponseBuffer(maxBufferBytes)

	destroy := false
	for i := 0; i < len(tokens); i++ {
		handler, found := lookupCommand(tokens[i])
		if !found {
			rb.catf("-ERR Unknown command\r\n")
			continue
		}
		consumed := handler(c, rb, tokens[i:], false)
		if consumed < 0 {
			destroy = true
			continue
		}
		i += consumed
	}

	if destroy {
		c.state = StateClosed
	}
	return rb.String(), destroy
}

// commandHandler matches a command's name (args[0]) against its own name
// plus any following tokens it needs, writes its response into rb, and
// returns the number of additional tokens (beyond its own name) it
// consumed, or a negative number if the connection should close.
// pipelinedViaUser is true when USER is forwarding straight into AUTH, in
// which case a successful/continuing AUTH response uses "+AUTHOK" instead
// of "+OK".
type commandHandler func(c *Connection, rb *responseBuffer, args []string, pipelinedViaUser bool) int

var commandTable = map[string]commandHandler{
	"LIST":        cmdList,
	"RSAPUBLIC":   cmdRSAPublic,
	"RSAVALIDATE": cmdRSAValidate,
	"NEWUSER":     cmdNewUser,
	"DELETEUSER":  cmdDeleteUser,
	"CHANGEPASS":  cmdChangePass,
	"USER":        cmdUser,
	"AUTH":        cmdAuth,
	"AUTH2":       cmdAuth2,
	"QUIT":        cmdQuit,
}

func lookupCommand(name string) (commandHandler, bool) {
	h, ok := commandTable[strings.ToUpper(name)]
	return h, ok
}
