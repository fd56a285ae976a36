// Copyright (c) 2018 Fredrik Kuivinen, frekui@gmail.com
//
// Use of this source code is governed by the BSD-style license that can be
// found in the LICENSE file.

package passwdd

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrSASL is returned by the codec helpers on a malformed base64-with-length
// token, matching the wire-level "-ERR SASL Error" response.
var ErrSASL = errors.New("SASL Error")

// hexDigits are the uppercase nibble characters binaryToHex emits.
const hexDigits = "0123456789ABCDEF"

// binaryToHex renders data as an uppercase hex string with no separators and
// no length prefix.
func binaryToHex(data []byte) string {
	var b strings.Builder
	b.Grow(len(data) * 2)
	for _, c := range data {
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0F])
	}
	return b.String()
}

// hexToBinary decodes a hex string into raw bytes. It is deliberately
// lenient: any input byte >= 'a' is treated as a lowercase hex letter
// (c - 'a' + 0x0A), any other byte >= 'A' as an uppercase one
// (c - 'A' + 0x0A), and it never validates its input. A trailing odd
// nibble is dropped, and any byte that is neither a digit nor a letter
// nibble produces nonsense rather than an error.
func hexToBinary(s string) []byte {
	out := make([]byte, 0, len(s)/2)
	nibble := func(c byte) byte {
		if c >= 'a' {
			return c - 'a' + 0x0A
		}
		if c >= 'A' {
			return c - 'A' + 0x0A
		}
		return c - '0'
	}
	for i := 0; i+1 < len(s); i += 2 {
		out = append(out, nibble(s[i])<<4|nibble(s[i+1]))
	}
	return out
}

// binaryToBase64 encodes data as standard base64 and prepends the original
// byte length in braces, e.g. "{5}aGVsbG8=".
func binaryToBase64(data []byte) string {
	return fmt.Sprintf("{%d}%s", len(data), base64.StdEncoding.EncodeToString(data))
}

// base64ToBinary decodes a token in binaryToBase64's format. The "{n}"
// length prefix is optional; when present it must be a positive integer
// matching the decoded length, or ErrSASL is returned. A zero or negative
// length prefix is always malformed, even if the remaining string happens
// to decode to zero bytes. Any base64 decode failure also returns ErrSASL.
func base64ToBinary(s string) ([]byte, error) {
	wantLen := -1
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return nil, ErrSASL
		}
		n, err := strconv.Atoi(s[1:end])
		if err != nil || n <= 0 {
			return nil, ErrSASL
		}
		wantLen = n
		s = s[end+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrSASL
	}
	if wantLen >= 0 && wantLen != len(data) {
		return nil, ErrSASL
	}
	return data, nil
}

// responseBuffer is a bounded formatted-append writer: writes past its
// capacity are silently dropped rather than growing the buffer or erroring.
type responseBuffer struct {
	cap int
	b   strings.Builder
}

func newResponseBuffer(capacity int) *responseBuffer {
	return &responseBuffer{cap: capacity}
}

// catf appends the formatted string, truncating silently if it would push
// the buffer past its capacity.
func (r *responseBuffer) catf(format string, args ...interface{}) {
	s := fmt.Sprintf(format, args...)
	remaining := r.cap - r.b.Len()
	if remaining <= 0 {
		return
	}
	if len(s) > remaining {
		s = s[:remaining]
	}
	r.b.WriteString(s)
}

func (r *responseBuffer) String() string {
	return r.b.String()
}

func (r *responseBuffer) Len() int {
	return r.b.Len()
}
