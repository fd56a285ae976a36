// Copyright (c) 2018 Fredrik Kuivinen, frekui@gmail.com
//
// Use of this source code is governed by the BSD-style license that can be
// found in the LICENSE file.

// Package util contains functions to simplify the example server and client
// in cmd/.
package util

import (
	"bufio"
	"fmt"
)

// Write sends a raw line to the peer, echoing it to stdout for the demo
// client/server's benefit, and appending the protocol's "\r\n" terminator.
func Write(w *bufio.Writer, line []byte) error {
	fmt.Printf("> %s\n", string(line))
	w.Write(line)
	w.Write([]byte("\r\n"))
	return w.Flush()
}

// Read reads one "\r\n"-terminated line from the peer and strips the
// terminator.
func Read(r *bufio.Reader) ([]byte, error) {
	fmt.Print("< ")
	data, err := r.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	fmt.Print(string(data))
	line := data
	if len(line) > 0 && line[len(line)-1] == '\n' {
		line = line[:len(line)-1]
	}
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line, nil
}
