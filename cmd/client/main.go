// Copyright (c) 2018 Fredrik Kuivinen, frekui@gmail.com
//
// Use of this source code is governed by the BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/passwdd/passwdd/internal/pkg/util"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "%s is a simple interactive client for a passwdd server. It can be used together with cmd/server.\nUsage:\n", os.Args[0])
		flag.PrintDefaults()
	}

	addr := flag.String("conn", "localhost:106", "Host to connect to.")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	if _, err := util.Read(r); err != nil {
		fmt.Fprintf(os.Stderr, "reading greeting: %v\n", err)
		os.Exit(1)
	}

	go func() {
		for {
			if _, err := util.Read(r); err != nil {
				if err != io.EOF {
					fmt.Fprintf(os.Stderr, "connection closed: %v\n", err)
				}
				os.Exit(0)
			}
		}
	}()

	w := bufio.NewWriter(conn)
	stdin := bufio.NewScanner(os.Stdin)
	for stdin.Scan() {
		line := strings.TrimRight(stdin.Text(), "\r\n")
		if line == "" {
			continue
		}
		if err := util.Write(w, []byte(line)); err != nil {
			fmt.Fprintf(os.Stderr, "write: %v\n", err)
			return
		}
	}
}
