// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"testing"

	"golang.org/x/crypto/ssh"
)

// testServer is an in-process SSH server that runs "exec" requests
// with /bin/sh and honours "signal" requests.
type testServer struct {
	listener  net.Listener
	hostKey   ssh.Signer
	clientKey ssh.Signer
}

func newSigner(t *testing.T) ssh.Signer {
	t.Helper()
	_, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(private)
	if err != nil {
		t.Fatalf("creating signer: %v", err)
	}
	return signer
}

func startServer(t *testing.T) *testServer {
	t.Helper()
	server := &testServer{hostKey: newSigner(t), clientKey: newSigner(t)}

	authorized := server.clientKey.PublicKey().Marshal()
	config := &ssh.ServerConfig{
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if string(key.Marshal()) == string(authorized) {
				return &ssh.Permissions{}, nil
			}
			return nil, errors.New("unknown key")
		},
	}
	config.AddHostKey(server.hostKey)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening: %v", err)
	}
	server.listener = listener
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go serveConn(conn, config)
		}
	}()
	return server
}

func (s *testServer) target(t *testing.T) Target {
	t.Helper()
	host, portText, err := net.SplitHostPort(s.listener.Addr().String())
	if err != nil {
		t.Fatalf("splitting address: %v", err)
	}
	port, _ := strconv.Atoi(portText)
	return Target{Host: host, Port: port}
}

func (s *testServer) transport() *SSHTransport {
	return &SSHTransport{
		User:            "tester",
		AuthMethods:     []ssh.AuthMethod{ssh.PublicKeys(s.clientKey)},
		HostKeyCallback: ssh.FixedHostKey(s.hostKey.PublicKey()),
	}
}

func serveConn(conn net.Conn, config *ssh.ServerConfig) {
	_, channels, requests, err := ssh.NewServerConn(conn, config)
	if err != nil {
		conn.Close()
		return
	}
	go ssh.DiscardRequests(requests)
	for newChannel := range channels {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "only sessions")
			continue
		}
		channel, channelRequests, err := newChannel.Accept()
		if err != nil {
			continue
		}
		go serveSession(channel, channelRequests)
	}
}

func serveSession(channel ssh.Channel, requests <-chan *ssh.Request) {
	var mu sync.Mutex
	var cmd *exec.Cmd
	for request := range requests {
		switch request.Type {
		case "exec":
			var payload struct{ Command string }
			if err := ssh.Unmarshal(request.Payload, &payload); err != nil {
				request.Reply(false, nil)
				continue
			}
			mu.Lock()
			cmd = exec.Command("/bin/sh", "-c", payload.Command)
			cmd.Stdout = channel
			cmd.Stderr = channel.Stderr()
			cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
			err := cmd.Start()
			mu.Unlock()
			request.Reply(err == nil, nil)
			if err != nil {
				channel.Close()
				return
			}
			go func(cmd *exec.Cmd) {
				status := uint32(0)
				if err := cmd.Wait(); err != nil {
					var exitErr *exec.ExitError
					if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
						status = uint32(exitErr.ExitCode())
					} else {
						status = 255
					}
				}
				channel.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
				channel.Close()
			}(cmd)
		case "signal":
			mu.Lock()
			if cmd != nil && cmd.Process != nil {
				syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			}
			mu.Unlock()
			if request.WantReply {
				request.Reply(true, nil)
			}
		default:
			if request.WantReply {
				request.Reply(false, nil)
			}
		}
	}
}
