// Copyright 2026 The Wassail Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/samcmill/wassail-sub000/lib/clock"
	"github.com/samcmill/wassail-sub000/lib/shell"
)

// DefaultDialTimeout bounds TCP connect plus the SSH handshake.
const DefaultDialTimeout = 10 * time.Second

// drainTimeout bounds how long a torn-down session may take to hand
// back output that was already in flight.
const drainTimeout = time.Second

// ErrNotOpen is returned by Close without a matching Open, and
// reported by Run outside an Open/Close bracket.
var ErrNotOpen = errors.New("remote: transport not open")

// defaultIdentities are tried in order when no auth methods are given.
var defaultIdentities = []string{"id_ed25519", "id_ecdsa", "id_rsa"}

// SSHTransport runs commands over SSH. The zero value authenticates as
// the current user with the agent and default identities, and checks
// host keys against ~/.ssh/known_hosts.
type SSHTransport struct {
	// User to log in as. Defaults to the current user.
	User string

	// AuthMethods replaces agent and identity file discovery.
	AuthMethods []ssh.AuthMethod

	// IdentityFiles replaces the default ~/.ssh identities. Missing or
	// passphrase-protected files are skipped.
	IdentityFiles []string

	// HostKeyCallback replaces known_hosts verification.
	HostKeyCallback ssh.HostKeyCallback

	// KnownHostsFiles replaces ~/.ssh/known_hosts.
	KnownHostsFiles []string

	// InsecureIgnoreHostKey accepts any host key. Only for isolated
	// test clusters.
	InsecureIgnoreHostKey bool

	// DialTimeout overrides DefaultDialTimeout when positive.
	DialTimeout time.Duration

	// Clock measures command timeouts, the output drain and elapsed
	// time. Connection deadlines always use the wall clock.
	Clock clock.Clock

	Logger *slog.Logger

	mu     sync.Mutex
	refs   int
	config *ssh.ClientConfig
	agent  net.Conn
}

// Open prepares the client configuration on first use. Later calls
// only count references.
func (t *SSHTransport) Open(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.refs > 0 {
		t.refs++
		return nil
	}

	username := t.User
	if username == "" {
		current, err := user.Current()
		if err != nil {
			return fmt.Errorf("determining user: %w", err)
		}
		username = current.Username
	}

	auth, err := t.authMethods(ctx)
	if err != nil {
		t.closeAgent()
		return err
	}
	hostKeys, err := t.hostKeyCallback()
	if err != nil {
		t.closeAgent()
		return err
	}

	t.config = &ssh.ClientConfig{
		User:            username,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         t.dialTimeout(),
	}
	t.refs = 1
	return nil
}

// Close releases one reference. The last one drops the agent
// connection.
func (t *SSHTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.refs == 0 {
		return ErrNotOpen
	}
	t.refs--
	if t.refs > 0 {
		return nil
	}
	t.config = nil
	return t.closeAgent()
}

func (t *SSHTransport) closeAgent() error {
	if t.agent == nil {
		return nil
	}
	err := t.agent.Close()
	t.agent = nil
	return err
}

func (t *SSHTransport) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}

func (t *SSHTransport) clock() clock.Clock {
	if t.Clock != nil {
		return t.Clock
	}
	return clock.Real()
}

func (t *SSHTransport) dialTimeout() time.Duration {
	if t.DialTimeout > 0 {
		return t.DialTimeout
	}
	return DefaultDialTimeout
}

func (t *SSHTransport) authMethods(ctx context.Context) ([]ssh.AuthMethod, error) {
	if len(t.AuthMethods) > 0 {
		return t.AuthMethods, nil
	}

	var methods []ssh.AuthMethod
	if socket := os.Getenv("SSH_AUTH_SOCK"); socket != "" {
		var dialer net.Dialer
		conn, err := dialer.DialContext(ctx, "unix", socket)
		if err != nil {
			t.logger().Debug("ssh agent unavailable", "socket", socket, "error", err)
		} else {
			t.agent = conn
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	identities := t.IdentityFiles
	if len(identities) == 0 {
		home, err := os.UserHomeDir()
		if err == nil {
			for _, name := range defaultIdentities {
				identities = append(identities, filepath.Join(home, ".ssh", name))
			}
		}
	}
	var signers []ssh.Signer
	for _, path := range identities {
		signer, err := loadIdentity(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				t.logger().Debug("skipping ssh identity", "path", path, "error", err)
			}
			continue
		}
		signers = append(signers, signer)
	}
	if len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}

	if len(methods) == 0 {
		return nil, errors.New("remote: no ssh credentials: no agent and no usable identity file")
	}
	return methods, nil
}

func loadIdentity(path string) (ssh.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return signer, nil
}

func (t *SSHTransport) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if t.HostKeyCallback != nil {
		return t.HostKeyCallback, nil
	}
	if t.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	files := t.KnownHostsFiles
	if len(files) == 0 {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating known_hosts: %w", err)
		}
		files = []string{filepath.Join(home, ".ssh", "known_hosts")}
	}
	callback, err := knownhosts.New(files...)
	if err != nil {
		return nil, fmt.Errorf("loading known hosts: %w", err)
	}
	return callback, nil
}

// Run executes command on target. Every failure is reported in the
// returned Execution.
func (t *SSHTransport) Run(ctx context.Context, target Target, command string, timeout time.Duration) shell.Execution {
	execution := shell.NewExecution(command)
	clk := t.clock()
	start := clk.Now()

	t.mu.Lock()
	config := t.config
	t.mu.Unlock()
	if config == nil {
		execution.Stderr = ErrNotOpen.Error()
		return execution
	}

	logger := t.logger().With("host", target.String())
	client, err := dial(ctx, target, config)
	if err != nil {
		execution.Stderr = err.Error()
		execution.Elapsed = clk.Since(start).Seconds()
		return execution
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		execution.Stderr = fmt.Sprintf("opening session: %v", err)
		execution.Elapsed = clk.Since(start).Seconds()
		return execution
	}
	defer session.Close()

	var stdout, stderr lockedBuffer
	session.Stdout = &stdout
	session.Stderr = &stderr
	if err := session.Start(command); err != nil {
		execution.Stderr = fmt.Sprintf("starting command: %v", err)
		execution.Elapsed = clk.Since(start).Seconds()
		return execution
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	deadline := clk.After(timeout)

	var waitErr error
	select {
	case waitErr = <-done:
		execution.Elapsed = clk.Since(start).Seconds()
		code, note := exitStatus(waitErr)
		execution.ReturnCode = code
		execution.Stdout = stdout.String()
		execution.Stderr = stderr.String() + note
		return execution
	case <-deadline:
	case <-ctx.Done():
	}

	execution.Elapsed = clk.Since(start).Seconds()
	execution.TimedOut = true
	logger.Warn("remote command exceeded its timeout, sending SIGTERM", "timeout", timeout)
	if err := session.Signal(ssh.SIGTERM); err != nil {
		logger.Debug("signal request failed", "error", err)
	}
	session.Close()
	client.Close()
	select {
	case <-done:
	case <-clk.After(drainTimeout):
	}
	execution.Stdout = stdout.String()
	execution.Stderr = stderr.String()
	return execution
}

// dial connects and authenticates, bounding the handshake by the
// configured timeout and ctx.
func dial(ctx context.Context, target Target, config *ssh.ClientConfig) (*ssh.Client, error) {
	dialer := net.Dialer{Timeout: config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", target.Address())
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", target, err)
	}
	if config.Timeout > 0 {
		conn.SetDeadline(time.Now().Add(config.Timeout))
	}
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	clientConn, channels, requests, err := ssh.NewClientConn(conn, target.Address(), config)
	stop()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", target, err)
	}
	conn.SetDeadline(time.Time{})
	return ssh.NewClient(clientConn, channels, requests), nil
}

// exitStatus maps the result of Session.Wait to a return code and a
// note appended to stderr when there is no real exit status.
func exitStatus(err error) (int, string) {
	if err == nil {
		return 0, ""
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Signal() != "" {
			return shell.SentinelReturnCode, ""
		}
		return exitErr.ExitStatus(), ""
	}
	var missing *ssh.ExitMissingError
	if errors.As(err, &missing) {
		return shell.SentinelReturnCode, "remote command exited without reporting a status"
	}
	return shell.SentinelReturnCode, err.Error()
}

// lockedBuffer is written by the session's copy goroutines and read
// after a teardown that may race with them.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
