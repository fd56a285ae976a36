// Copyright (c) 2018 Fredrik Kuivinen, frekui@gmail.com
//
// Use of this source code is governed by the BSD-style license that can be
// found in the LICENSE file.

package passwdd

// maxTokensPerBuffer and maxBufferBytes bound a single recv buffer.
const (
	maxTokensPerBuffer = 32
	maxBufferBytes     = 1024
)

// tokenize splits buf into whitespace-delimited tokens: the byte at index 0
// always starts the first token; from index 1 onward, a space starts a new
// token, while '\r' or '\n' just terminates the current token in place (no
// new token is started). At most maxTokensPerBuffer tokens are produced;
// remaining bytes are silently dropped.
func tokenize(buf []byte) []string {
	if len(buf) > maxBufferBytes {
		buf = buf[:maxBufferBytes]
	}
	if len(buf) == 0 {
		return nil
	}

	var tokens []string
	start := 0
	cur := make([]byte, len(buf))
	copy(cur, buf)

	emit := func(end int) {
		tokens = append(tokens, string(cur[start:end]))
	}

	for i := 1; i < len(cur); i++ {
		switch cur[i] {
		case ' ':
			emit(i)
			if len(tokens) == maxTokensPerBuffer {
				return tokens
			}
			start = i + 1
		case '\r', '\n':
			cur[i] = 0
		}
	}
	if start < len(cur) {
		end := start
		for end < len(cur) && cur[end] != 0 {
			end++
		}
		tokens = append(tokens, string(cur[start:end]))
	}
	return tokens
}
