// Package session ties the stack together: one Session owns a transport, a
// framer, a handshake machine, a codec, a dispatcher and a world assembler,
// and drives the join conversation until spawn and gameplay beyond it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/yhs0602/terrablade/internal/config"
	"github.com/yhs0602/terrablade/internal/dispatch"
	"github.com/yhs0602/terrablade/internal/handshake"
	"github.com/yhs0602/terrablade/internal/netio"
	"github.com/yhs0602/terrablade/internal/protocol"
	"github.com/yhs0602/terrablade/internal/protocol/codec"
	"github.com/yhs0602/terrablade/internal/version"
	"github.com/yhs0602/terrablade/internal/world"
)

// ErrKicked is wrapped around the server's kick reason.
var ErrKicked = errors.New("kicked by server")

// Session is one connection's lifetime. Network reads run in their own
// goroutine feeding a buffered frame channel; Run's processing loop consumes
// frames in arrival order and is the only writer of world state. A session
// is not reusable; reconnecting builds a fresh one.
type Session struct {
	cfg  *config.Config
	spec *version.Spec

	transport  *netio.Transport
	framer     *protocol.Framer
	codec      *codec.Codec
	machine    *handshake.Machine
	assembler  *world.Assembler
	dispatcher *dispatch.Dispatcher

	hsMu sync.Mutex // serializes machine access between Send and the process loop

	frames chan protocol.Frame

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	spawnedCh   chan struct{}
	spawnedOnce sync.Once

	errMu  sync.Mutex
	runErr error

	// join bookkeeping owned by the built-in handlers
	spawnPending atomic.Bool
	tilesAsked   atomic.Bool

	log *zap.Logger
}

// New builds a session over an established transport. Built-in handlers for
// the join conversation and world assembly are registered before any custom
// ones.
func New(cfg *config.Config, spec *version.Spec, transport *netio.Transport, log *zap.Logger) *Session {
	queueSize := cfg.Network.FrameQueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	assembler := world.NewAssembler(log)
	s := &Session{
		cfg:        cfg,
		spec:       spec,
		transport:  transport,
		framer:     protocol.NewFramer(),
		codec:      codec.New(spec.Layouts(), spec.TileFrameImportant),
		machine:    handshake.New(exemptList(cfg, spec), log),
		assembler:  assembler,
		dispatcher: dispatch.New(assembler, log),
		frames:     make(chan protocol.Frame, queueSize),
		closeCh:    make(chan struct{}),
		spawnedCh:  make(chan struct{}),
		log:        log.Named("session"),
	}
	s.registerBuiltins()
	return s
}

// exemptList merges the profile's exempt set with the configured one.
func exemptList(cfg *config.Config, spec *version.Spec) []protocol.MsgType {
	if cfg.Handshake.ReplaceExempt {
		out := make([]protocol.MsgType, 0, len(cfg.Handshake.StateExempt))
		for _, t := range cfg.Handshake.StateExempt {
			out = append(out, protocol.MsgType(t))
		}
		return out
	}
	out := append([]protocol.MsgType(nil), spec.StateExempt...)
	for _, t := range cfg.Handshake.StateExempt {
		out = append(out, protocol.MsgType(t))
	}
	return out
}

// Register adds a custom handler; it runs after the built-ins for the same
// type. Must be called before Run.
func (s *Session) Register(t protocol.MsgType, h dispatch.Handler) {
	s.dispatcher.Register(t, h)
}

// Snapshot exposes the assembled world.
func (s *Session) Snapshot() *world.Snapshot {
	return s.assembler.Snapshot()
}

// Spawned returns a channel closed once the join conversation completes.
func (s *Session) Spawned() <-chan struct{} {
	return s.spawnedCh
}

// Run sends the version greeting and processes frames until the connection
// dies, the server kicks, the handshake is violated or ctx is canceled. It
// always returns the first fatal error, or nil on a clean local close.
func (s *Session) Run(ctx context.Context) error {
	s.log.Info("joining",
		zap.String("addr", s.transport.RemoteAddr()),
		zap.String("profile", s.spec.ProfileID),
		zap.String("version", s.spec.VersionString))

	go s.readLoop()

	if err := s.Send(protocol.Hello{Version: s.spec.VersionString}); err != nil {
		s.fail(err)
		s.Close()
		return s.err()
	}

	for {
		select {
		case <-ctx.Done():
			s.Close()
			return ctx.Err()
		case <-s.closeCh:
			return s.err()
		case f := <-s.frames:
			if err := s.process(f); err != nil {
				s.fail(err)
				s.Close()
				return s.err()
			}
		}
	}
}

// process advances the state machine, decodes and dispatches one frame.
// The returned error, if any, is fatal for the session.
func (s *Session) process(f protocol.Frame) error {
	s.log.Debug("RX", zap.Stringer("msg", f.Type), zap.Int("len", len(f.Payload)))

	s.hsMu.Lock()
	err := s.machine.Advance(f.Type)
	closedByKick := s.machine.State() == handshake.StateClosed
	s.hsMu.Unlock()
	if err != nil {
		return err
	}
	s.checkSpawned()

	msg, derr := s.codec.Decode(f)
	switch {
	case derr == nil:
	case errors.Is(derr, protocol.ErrUnknownType):
		s.log.Debug("passthrough", zap.Stringer("msg", f.Type), zap.Int("len", len(f.Payload)))
	case errors.Is(derr, protocol.ErrTruncated):
		// Fatal for the message, not the session.
		s.log.Error("dropping truncated message", zap.Stringer("msg", f.Type), zap.Error(derr))
		return nil
	default:
		s.log.Error("decode failed", zap.Stringer("msg", f.Type), zap.Error(derr))
		return nil
	}

	if closedByKick {
		reason := "connection closed"
		if k, ok := msg.(protocol.Kick); ok {
			reason = k.Reason
		}
		return fmt.Errorf("%w: %s", ErrKicked, reason)
	}

	for _, out := range s.dispatcher.Dispatch(msg) {
		if err := s.Send(out); err != nil {
			return err
		}
	}
	return nil
}

// Send encodes and writes one message, validating it against the handshake
// machine first. Safe for concurrent use.
func (s *Session) Send(msg protocol.Message) error {
	if s.closed.Load() {
		return fmt.Errorf("send %s: session closed", msg.Type())
	}

	s.hsMu.Lock()
	err := s.machine.Advance(msg.Type())
	s.hsMu.Unlock()
	if err != nil {
		return err
	}
	s.checkSpawned()

	buf, err := s.codec.Encode(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Type(), err)
	}
	s.log.Debug("TX", zap.Stringer("msg", msg.Type()), zap.Int("len", len(buf)))
	return s.transport.Write(buf)
}

// Close tears the session down. Idempotent; Run returns shortly after.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.hsMu.Lock()
		s.machine.Close()
		s.hsMu.Unlock()
		s.framer.Reset()
		s.transport.Close()
		close(s.closeCh)
	})
}

func (s *Session) checkSpawned() {
	s.hsMu.Lock()
	spawned := s.machine.Spawned()
	s.hsMu.Unlock()
	if spawned {
		s.spawnedOnce.Do(func() {
			s.log.Info("spawned", zap.Float64("coverage", s.assembler.Coverage()))
			close(s.spawnedCh)
		})
	}
}

func (s *Session) fail(err error) {
	s.errMu.Lock()
	if s.runErr == nil {
		s.runErr = err
	}
	s.errMu.Unlock()
}

func (s *Session) err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.runErr
}

// readLoop owns the socket read side: raw bytes in, whole frames out on the
// frames channel. Framing violations are fatal and close the session.
func (s *Session) readLoop() {
	buf := make([]byte, 4096)
	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		n, err := s.transport.Read(buf)
		if n > 0 {
			frames, ferr := s.framer.Feed(buf[:n])
			for _, f := range frames {
				select {
				case s.frames <- f:
				case <-s.closeCh:
					return
				}
			}
			if ferr != nil {
				if !s.closed.Load() {
					s.log.Error("framing violation", zap.Error(ferr))
					s.fail(ferr)
				}
				s.Close()
				return
			}
		}
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("read error", zap.Error(err))
				s.fail(err)
			}
			s.Close()
			return
		}
	}
}
