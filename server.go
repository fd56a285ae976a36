// Copyright (c) 2018 Fredrik Kuivinen, frekui@gmail.com
//
// Use of this source code is governed by the BSD-style license that can be
// found in the LICENSE file.

package passwdd

// ServerContext holds the state shared by every connection: the server's
// RSA identity key, the mechanism registry, and the credential store. It is
// read-only after construction and safe to share across connections and
// goroutines.
type ServerContext struct {
	IdentityKey *IdentityKey
	Registry    *Registry
	Store       CredentialStore
}

// NewServerContext loads identityKeyPEM as the server's RSA identity key and
// assembles a ServerContext around it, the default mechanism registry, and
// store. hostname is embedded in the RSA thumbprint returned by RSAPUBLIC.
func NewServerContext(identityKeyPEM []byte, hostname string, store CredentialStore) (*ServerContext, error) {
	key, err := LoadIdentityKey(identityKeyPEM, hostname)
	if err != nil {
		return nil, err
	}
	return &ServerContext{
		IdentityKey: key,
		Registry:    NewDefaultRegistry(),
		Store:       store,
	}, nil
}
