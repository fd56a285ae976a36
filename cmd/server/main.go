// Copyright (c) 2018 Fredrik Kuivinen, frekui@gmail.com
//
// Use of this source code is governed by the BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"bufio"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"sync/atomic"

	"github.com/passwdd/passwdd"
	"github.com/passwdd/passwdd/internal/pkg/util"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "%s is a passwdd-compatible password authentication server. It can be used together with cmd/client.\nUsage:\n", os.Args[0])
		flag.PrintDefaults()
	}

	addr := flag.String("l", ":106", "Address to listen on.")
	hostname := flag.String("hostname", "localhost", "Hostname embedded in the RSA key thumbprint.")
	keyFile := flag.String("key", "", "PEM-encoded RSA private key file. A fresh 2048-bit key is generated if empty.")
	maxConns := flag.Int("max-conns", 1024, "Maximum number of simultaneous connections.")
	flag.Parse()

	keyPEM, err := loadOrGenerateKey(*keyFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	store := passwdd.NewMemoryStore(make([]byte, 16))
	ctx, err := passwdd.NewServerContext(keyPEM, *hostname, store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Printf("passwdd listening on %s\n", *addr)

	srv := &server{ctx: ctx, maxConns: int64(*maxConns)}
	for {
		conn, err := ln.Accept()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			continue
		}
		go srv.handleConn(conn)
	}
}

func loadOrGenerateKey(path string) ([]byte, error) {
	if path == "" {
		priv, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, err
		}
		return pem.EncodeToMemory(&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(priv),
		}), nil
	}
	return os.ReadFile(path)
}

// server accepts TCP connections and drives a passwdd.Connection across
// each one, one goroutine per net.Conn.
type server struct {
	ctx      *passwdd.ServerContext
	maxConns int64
	numConns int64
}

func (s *server) handleConn(conn net.Conn) {
	defer conn.Close()

	w := bufio.NewWriter(conn)

	if atomic.AddInt64(&s.numConns, 1) > s.maxConns {
		atomic.AddInt64(&s.numConns, -1)
		util.Write(w, []byte("-ERR Too many users."))
		return
	}
	defer atomic.AddInt64(&s.numConns, -1)

	fmt.Printf("connection from %s\n", conn.RemoteAddr())
	if err := util.Write(w, []byte("+OK passwdd 1.0 at 127.0.0.1 ready.")); err != nil {
		return
	}

	c := passwdd.NewConnection(s.ctx)
	r := bufio.NewReader(conn)
	for {
		line, err := util.Read(r)
		if len(line) == 0 && err != nil {
			return
		}
		resp, shouldClose := c.Handle(line)
		if resp != "" {
			if werr := util.Write(w, []byte(strings.TrimRight(resp, "\r\n"))); werr != nil {
				return
			}
		}
		if shouldClose || err != nil {
			return
		}
	}
}
