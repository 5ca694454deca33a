// Package sshconn establishes password-authenticated SSH sessions to
// individual routers and classifies connection failures so the caller can
// decide how to report them.
package sshconn

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// DefaultPort is used when a router address carries no explicit port.
const DefaultPort = 22

// Kind classifies a connection failure.
type Kind int

const (
	// KindAuth means the handshake completed but the credentials were rejected.
	KindAuth Kind = iota + 1
	// KindProtocol means the SSH handshake or transport failed.
	KindProtocol
	// KindSystem means a DNS, network, or OS-level failure before the handshake.
	KindSystem
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "authentication failed"
	case KindProtocol:
		return "ssh protocol error"
	case KindSystem:
		return "system error"
	default:
		return "unknown error"
	}
}

// Error is a classified connection failure bound to the target address.
type Error struct {
	Kind Kind
	Addr string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("connect %s: %s: %v", e.Addr, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Credentials is the fixed username/secret pair used for every router.
// It is read from the environment once at startup and passed in opaquely.
type Credentials struct {
	Username string
	Password string
}

// Connect dials the router at address and authenticates with creds. The
// address may include a port; otherwise port is used (or DefaultPort when
// port is zero). A nil error means the returned client is open and
// authenticated; the caller owns it and must close it.
func Connect(ctx context.Context, address string, port int, creds Credentials, timeout time.Duration) (*ssh.Client, error) {
	if address == "" {
		return nil, &Error{Kind: KindSystem, Addr: address, Err: errors.New("address is empty")}
	}
	if port <= 0 {
		port = DefaultPort
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	addr := address
	if _, _, err := net.SplitHostPort(address); err != nil {
		addr = net.JoinHostPort(address, fmt.Sprintf("%d", port))
	}

	config := &ssh.ClientConfig{
		User: creds.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(creds.Password),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	// Dial in a goroutine so the context can cut a hung handshake short.
	var client *ssh.Client
	var dialErr error
	dialDone := make(chan struct{})

	go func() {
		defer close(dialDone)
		client, dialErr = ssh.Dial("tcp", addr, config)
	}()

	select {
	case <-ctx.Done():
		return nil, &Error{Kind: KindSystem, Addr: addr, Err: ctx.Err()}
	case <-dialDone:
		if dialErr != nil {
			return nil, classify(addr, dialErr)
		}
	}

	return client, nil
}

// classify maps a dial error onto the failure taxonomy. Authentication
// rejections surface from x/crypto/ssh as handshake errors mentioning
// "unable to authenticate"; anything below the handshake arrives as a
// net.Error or *net.OpError.
func classify(addr string, err error) *Error {
	msg := err.Error()
	if strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "no supported methods remain") {
		return &Error{Kind: KindAuth, Addr: addr, Err: err}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &Error{Kind: KindSystem, Addr: addr, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Error{Kind: KindSystem, Addr: addr, Err: err}
	}

	return &Error{Kind: KindProtocol, Addr: addr, Err: err}
}
