// Package handshake enforces the connection state machine. Every message
// that crosses the wire in either direction is advanced through the machine;
// a message illegal for the current state poisons the connection, which is
// then closed rather than resynchronized.
package handshake

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/yhs0602/terrablade/internal/protocol"
)

// State is the connection's position in the join conversation.
type State int

const (
	StateInitial State = iota
	StateAwaitingIdentity
	StatePasswordPending
	StateSyncingPlayer
	StateAwaitingWorldData
	StateReceivingTiles
	StateSpawned
	StateClosed
	StateErrored
)

var stateNames = map[State]string{
	StateInitial:           "Initial",
	StateAwaitingIdentity:  "AwaitingIdentity",
	StatePasswordPending:   "PasswordPending",
	StateSyncingPlayer:     "SyncingPlayer",
	StateAwaitingWorldData: "AwaitingWorldData",
	StateReceivingTiles:    "ReceivingTiles",
	StateSpawned:           "Spawned",
	StateClosed:            "Closed",
	StateErrored:           "Errored",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", int(s))
}

// Terminal reports whether no further messages are legal.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateErrored
}

// Violation is a message illegal for the machine's state. It is fatal for
// the connection; the machine is already in StateErrored when it is returned.
type Violation struct {
	State State
	Msg   protocol.MsgType
}

func (v *Violation) Error() string {
	return fmt.Sprintf("handshake violation: %s in state %s", v.Msg, v.State)
}

// accepted lists, per pre-spawn state, the message types legal in it.
// Types in the exempt allowlist are legal in any pre-spawn state on top of
// these. StateSpawned accepts everything.
var accepted = map[State]map[protocol.MsgType]bool{
	StateInitial: {
		protocol.MsgHello: true,
	},
	StateAwaitingIdentity: {
		protocol.MsgPlayerInfo:      true,
		protocol.MsgRequestPassword: true,
	},
	StatePasswordPending: {
		protocol.MsgSendPassword: true,
	},
	StateSyncingPlayer: {
		protocol.MsgSyncPlayer:       true,
		protocol.MsgSyncEquipment:    true,
		protocol.MsgRequestWorldData: true,
	},
	StateAwaitingWorldData: {
		protocol.MsgStatusText:            true,
		protocol.MsgWorldData:             true,
		protocol.MsgRequestEssentialTiles: true,
	},
	StateReceivingTiles: {
		protocol.MsgStatusText:       true,
		protocol.MsgWorldData:        true,
		protocol.MsgTileSection:      true,
		protocol.MsgTileFrameSection: true,
		protocol.MsgPlayerSpawn:      true,
		protocol.MsgStartPlaying:     true,
		protocol.MsgPlayerActive:     true,
		protocol.MsgTileEdit:         true,
		protocol.MsgTime:             true,
		protocol.MsgDoorToggle:       true,
		protocol.MsgSyncItem:         true,
		protocol.MsgItemOwner:        true,
		protocol.MsgSyncNPC:          true,
		protocol.MsgChat:             true,
		protocol.MsgLiquid:           true,
		protocol.MsgAddPlayerBuff:    true,
		protocol.MsgSyncNPCName:      true,
		protocol.MsgWorldBalance:     true,
	},
}

// transitions maps (state, message) to the next state. Pairs not listed keep
// the current state.
var transitions = map[State]map[protocol.MsgType]State{
	StateInitial: {
		protocol.MsgHello: StateAwaitingIdentity,
	},
	StateAwaitingIdentity: {
		protocol.MsgPlayerInfo:      StateSyncingPlayer,
		protocol.MsgRequestPassword: StatePasswordPending,
	},
	StatePasswordPending: {
		protocol.MsgSendPassword: StateAwaitingIdentity,
	},
	StateSyncingPlayer: {
		protocol.MsgRequestWorldData: StateAwaitingWorldData,
	},
	StateAwaitingWorldData: {
		protocol.MsgRequestEssentialTiles: StateReceivingTiles,
	},
	StateReceivingTiles: {
		protocol.MsgPlayerSpawn: StateSpawned,
	},
}

// Machine validates the join conversation. Both sent and received messages
// go through Advance; the machine does not care about direction, only order.
// Not safe for concurrent use; the session serializes access.
type Machine struct {
	state  State
	exempt map[protocol.MsgType]bool
	log    *zap.Logger
}

// New builds a machine in StateInitial with the given exempt allowlist.
func New(exempt []protocol.MsgType, log *zap.Logger) *Machine {
	m := &Machine{
		state:  StateInitial,
		exempt: make(map[protocol.MsgType]bool, len(exempt)),
		log:    log.Named("handshake"),
	}
	for _, t := range exempt {
		m.exempt[t] = true
	}
	return m
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Spawned reports whether the join conversation has completed.
func (m *Machine) Spawned() bool {
	return m.state == StateSpawned
}

// Advance validates t against the current state and applies its transition.
// Kick is legal everywhere pre-terminal and closes the machine. On a
// violation the machine moves to StateErrored and stays there.
func (m *Machine) Advance(t protocol.MsgType) error {
	if m.state.Terminal() {
		return &Violation{State: m.state, Msg: t}
	}
	if t == protocol.MsgKick {
		m.state = StateClosed
		return nil
	}
	if m.state == StateSpawned {
		return nil
	}
	if !accepted[m.state][t] && !m.exempt[t] {
		v := &Violation{State: m.state, Msg: t}
		m.log.Warn("illegal message for state",
			zap.Stringer("state", m.state),
			zap.Stringer("msg", t))
		m.state = StateErrored
		return v
	}
	if next, ok := transitions[m.state][t]; ok {
		m.log.Debug("state transition",
			zap.Stringer("from", m.state),
			zap.Stringer("to", next),
			zap.Stringer("msg", t))
		m.state = next
	}
	return nil
}

// Close moves the machine to StateClosed unless it is already terminal.
func (m *Machine) Close() {
	if !m.state.Terminal() {
		m.state = StateClosed
	}
}
