// Package dispatch routes decoded messages to registered handlers and feeds
// the world assembler with whatever they produce.
package dispatch

import (
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/yhs0602/terrablade/internal/protocol"
	"github.com/yhs0602/terrablade/internal/world"
)

// Result is what one handler produced for one message: world mutations to
// apply and messages to send back to the server.
type Result struct {
	Deltas   []world.Delta
	Outbound []protocol.Message
}

// Handler processes one message against a snapshot of the world taken
// before the message was applied. Handlers are pure: no handler mutates the
// snapshot or talks to the network directly.
type Handler func(msg protocol.Message, snap *world.Snapshot) Result

// Dispatcher calls handlers in registration order, synchronously, in frame
// arrival order. It is driven from the session's processing goroutine only.
type Dispatcher struct {
	handlers  map[protocol.MsgType][]Handler
	assembler *world.Assembler
	log       *zap.Logger
}

func New(assembler *world.Assembler, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		handlers:  make(map[protocol.MsgType][]Handler),
		assembler: assembler,
		log:       log.Named("dispatch"),
	}
}

// Register appends a handler for t. Multiple handlers for the same type run
// in the order they were registered.
func (d *Dispatcher) Register(t protocol.MsgType, h Handler) {
	d.handlers[t] = append(d.handlers[t], h)
}

// Dispatch runs every handler registered for the message's type, applies
// their deltas to the assembler in order and returns the collected outbound
// messages. A panicking handler is isolated: its result is discarded and the
// remaining handlers still run.
func (d *Dispatcher) Dispatch(msg protocol.Message) []protocol.Message {
	hs := d.handlers[msg.Type()]
	if len(hs) == 0 {
		return nil
	}

	snap := d.assembler.Snapshot()
	var deltas []world.Delta
	var outbound []protocol.Message
	for i, h := range hs {
		res, ok := d.safeCall(h, msg, snap, i)
		if !ok {
			continue
		}
		deltas = append(deltas, res.Deltas...)
		outbound = append(outbound, res.Outbound...)
	}

	for _, delta := range deltas {
		delta.Apply(d.assembler)
	}
	return outbound
}

func (d *Dispatcher) safeCall(h Handler, msg protocol.Message, snap *world.Snapshot, idx int) (res Result, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("handler panicked",
				zap.Stringer("msg", msg.Type()),
				zap.Int("handler", idx),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			res = Result{}
			ok = false
		}
	}()
	return h(msg, snap), true
}
