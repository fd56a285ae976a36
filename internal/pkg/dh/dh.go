// Copyright (c) 2018 Fredrik Kuivinen, frekui@gmail.com
//
// Use of this source code is governed by the BSD-style license that can be
// found in the LICENSE file.
//
// This file contains an implementation of Diffie-Hellman key exchange over the
// group Z^*_p for a prime p.

package dh

import (
	"crypto/rand"
	"encoding/hex"
	"math"
	"math/big"
)

// Group represents the group Z^*_p.
type Group struct {
	// Group generator.
	G *big.Int

	// Group modulus.
	P *big.Int
}

// Bytes renders x mod g.P as a big-endian byte slice, zero-padded on the
// left to the group's modulus size.
func (g Group) Bytes(x *big.Int) []byte {
	z := new(big.Int)
	z.Mod(x, g.P)
	b := z.Bytes()
	bytelen := int(math.Ceil(float64(g.P.BitLen()) / 8))
	padLen := bytelen - len(b)
	res := make([]byte, bytelen)
	copy(res[padLen:], b)
	return res
}

// dhxPrimeHex is the 1024-bit DHX modulus, listed byte-for-byte on the wire.
const dhxPrimeHex = "d9c8ffb91dff2f94bfd2be9742deeabb8b71c051e31e3976b972b414905b1e76" +
	"88d3713d5f8fb3bd37323fa168a5ea54e4cdb7308b3f2eff437c66cbac0ab81c" +
	"cc49f3b2971c2c1d0600db479fb97ecf4e7107e252c343b4ef21f15ff7138769" +
	"2928a1ec38c1e3f9200b9d2beafbff07c6239948dbc2c403bf9865f977ef3587"

// DHXGroup is the fixed group used by the DHX SASL mechanism: generator 7
// over the 1024-bit modulus above.
var DHXGroup Group

func init() {
	raw, err := hex.DecodeString(dhxPrimeHex)
	if err != nil {
		panic(err)
	}
	if len(raw) != 128 {
		panic("dh: DHX prime is not 128 bytes")
	}
	p := new(big.Int).SetBytes(raw)
	DHXGroup = Group{G: big.NewInt(7), P: p}
}

// IsInSmallSubgroup returns true if x belongs to a small subgroup of Z^*_p.
//
// Precondition: p is a safe prime (i.e., p is prime and (p-1)/2 is prime.).
//
// As p is a safe prime there are only three sizes of subgroups: one, two, and,
// (p-1)/2 elements. The subgroups containing one and two elements are
// considered to be small.
func IsInSmallSubgroup(x *big.Int, p *big.Int) bool {
	if x.Cmp(big.NewInt(1)) == 0 {
		return true
	}
	sq := new(big.Int)
	sq.Exp(x, big.NewInt(2), p)
	if sq.Cmp(big.NewInt(1)) == 0 {
		return true
	}

	return false
}

// IsInGroup returns true if x is in the group Z^*_p and false otherwise.
func IsInGroup(x *big.Int, p *big.Int) bool {
	if big.NewInt(0).Cmp(x) != -1 || x.Cmp(p) != -1 {
		return false
	}
	return true
}

// GeneratePrivateKey returns a random exponent in [1, g.P) read from a
// cryptographic RNG. The source seeds a PRNG with the current time; that is
// a known weakness this implementation does not reproduce.
func GeneratePrivateKey(g Group) (*big.Int, error) {
	for {
		key, err := rand.Int(rand.Reader, g.P)
		if err != nil {
			return nil, err
		}
		if key.Sign() != 0 {
			return key, nil
		}
	}
}

func GeneratePublicKey(g Group, privKey *big.Int) *big.Int {
	ret := new(big.Int)
	return ret.Exp(g.G, privKey, g.P)
}

// SharedSecret returns the raw big-endian encoding of otherPubKey^privKey
// mod g.P, zero-padded to the group's modulus size. Unlike an HKDF-derived
// secret, callers that need a fixed-size symmetric key (DHX takes the
// high-order 16 bytes) truncate this result themselves.
func SharedSecret(g Group, privKey *big.Int, otherPubKey *big.Int) []byte {
	s := new(big.Int)
	s.Exp(otherPubKey, privKey, g.P)
	return g.Bytes(s)
}
