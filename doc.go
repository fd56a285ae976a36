// Copyright (c) 2018 Fredrik Kuivinen, frekui@gmail.com
//
// Use of this source code is governed by the BSD-style license that can be
// found in the LICENSE file.

/*
Package passwdd implements the authentication engine of an Apple Password
Server compatible line-protocol service: SASL mechanism negotiation (DHX,
MS-CHAPv2), the RSA server-identity proof, a password-policy codec, and the
per-connection command dispatcher that ties them together.

The socket accept loop, configuration loading, and the on-disk credential
store are intentionally not part of this package; they are represented here
by narrow interfaces (CredentialStore) and a plain data type (ServerContext)
so the protocol engine can be driven entirely from unit tests.

A connection's lifecycle is: NewConnection, then repeated calls to
Connection.Handle for each buffer read off the socket, until Handle reports
that the connection should close.

IMPORTANT NOTE: This code has not been reviewed by cryptography or security
experts. Do not use it for anything important.
*/
package passwdd
