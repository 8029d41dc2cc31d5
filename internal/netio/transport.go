// Package netio owns the TCP connection: dialing, deadline-bounded reads,
// serialized writes and idempotent close. It moves raw bytes only; framing
// and message semantics live above it.
package netio

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yhs0602/terrablade/internal/config"
)

// TransportError wraps a socket failure with the operation that hit it.
// All errors escaping this package are of this type.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Transport is one live TCP connection. Reads are single-consumer (the
// session's read loop); writes may come from any goroutine and are
// serialized so frames never interleave on the wire.
type Transport struct {
	conn net.Conn
	cfg  config.NetworkConfig
	log  *zap.Logger

	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// Dial connects to addr within the configured dial timeout.
func Dial(ctx context.Context, addr string, cfg config.NetworkConfig, log *zap.Logger) (*Transport, error) {
	d := net.Dialer{Timeout: cfg.DialTimeout.Std()}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &TransportError{Op: "dial", Err: err}
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetNoDelay(true)
	}
	log.Debug("connected", zap.String("addr", addr))
	return &Transport{conn: conn, cfg: cfg, log: log}, nil
}

// Read fills buf with whatever the socket has, honoring the configured read
// timeout. Returns the byte count like net.Conn.Read.
func (t *Transport) Read(buf []byte) (int, error) {
	if d := t.cfg.ReadTimeout.Std(); d > 0 {
		if err := t.conn.SetReadDeadline(time.Now().Add(d)); err != nil {
			return 0, &TransportError{Op: "read", Err: err}
		}
	}
	n, err := t.conn.Read(buf)
	if err != nil {
		return n, &TransportError{Op: "read", Err: err}
	}
	return n, nil
}

// Write sends b in full. Safe for concurrent use.
func (t *Transport) Write(b []byte) error {
	t.wmu.Lock()
	defer t.wmu.Unlock()
	if d := t.cfg.WriteTimeout.Std(); d > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(d)); err != nil {
			return &TransportError{Op: "write", Err: err}
		}
	}
	for len(b) > 0 {
		n, err := t.conn.Write(b)
		if err != nil {
			return &TransportError{Op: "write", Err: err}
		}
		b = b[n:]
	}
	return nil
}

// Close shuts the connection down. Idempotent; concurrent reads and writes
// unblock with an error.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.conn.Close()
	})
	return t.closeErr
}

// RemoteAddr reports the peer address for logging.
func (t *Transport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}
