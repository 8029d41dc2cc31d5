package handshake

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/yhs0602/terrablade/internal/protocol"
)

var defaultExempt = []protocol.MsgType{
	protocol.MsgPlayerActive,
	protocol.MsgStatusText,
	protocol.MsgPlayerBuffs,
	protocol.MsgClientUUID,
	protocol.MsgPlayerControls,
}

func newMachine(t *testing.T) *Machine {
	t.Helper()
	return New(defaultExempt, zap.NewNop())
}

func TestFullJoinSequence(t *testing.T) {
	m := newMachine(t)
	steps := []struct {
		msg  protocol.MsgType
		want State
	}{
		{protocol.MsgHello, StateAwaitingIdentity},
		{protocol.MsgClientUUID, StateAwaitingIdentity}, // exempt, no transition
		{protocol.MsgPlayerInfo, StateSyncingPlayer},
		{protocol.MsgSyncPlayer, StateSyncingPlayer},
		{protocol.MsgPlayerBuffs, StateSyncingPlayer},
		{protocol.MsgSyncEquipment, StateSyncingPlayer},
		{protocol.MsgSyncEquipment, StateSyncingPlayer},
		{protocol.MsgRequestWorldData, StateAwaitingWorldData},
		{protocol.MsgStatusText, StateAwaitingWorldData},
		{protocol.MsgWorldData, StateAwaitingWorldData},
		{protocol.MsgRequestEssentialTiles, StateReceivingTiles},
		{protocol.MsgTileSection, StateReceivingTiles},
		{protocol.MsgTileSection, StateReceivingTiles},
		{protocol.MsgTileFrameSection, StateReceivingTiles},
		{protocol.MsgStartPlaying, StateReceivingTiles},
		{protocol.MsgPlayerSpawn, StateSpawned},
	}
	for i, step := range steps {
		if err := m.Advance(step.msg); err != nil {
			t.Fatalf("step %d (%s): %v", i, step.msg, err)
		}
		if m.State() != step.want {
			t.Fatalf("step %d (%s): state %s, want %s", i, step.msg, m.State(), step.want)
		}
	}
	if !m.Spawned() {
		t.Fatal("Spawned() = false after PlayerSpawn")
	}

	// Post-spawn, anything goes.
	for _, msg := range []protocol.MsgType{protocol.MsgTileEdit, protocol.MsgChat, 200} {
		if err := m.Advance(msg); err != nil {
			t.Fatalf("post-spawn %s: %v", msg, err)
		}
	}
}

func TestPasswordDetour(t *testing.T) {
	m := newMachine(t)
	seq := []protocol.MsgType{
		protocol.MsgHello,
		protocol.MsgRequestPassword,
		protocol.MsgSendPassword,
		protocol.MsgPlayerInfo,
	}
	for _, msg := range seq {
		if err := m.Advance(msg); err != nil {
			t.Fatalf("%s: %v", msg, err)
		}
	}
	if m.State() != StateSyncingPlayer {
		t.Fatalf("state %s, want SyncingPlayer", m.State())
	}
}

func TestOutOfOrderMessageIsViolation(t *testing.T) {
	m := newMachine(t)
	err := m.Advance(protocol.MsgSyncPlayer) // before Hello
	var v *Violation
	if !errors.As(err, &v) {
		t.Fatalf("err = %v, want *Violation", err)
	}
	if v.State != StateInitial || v.Msg != protocol.MsgSyncPlayer {
		t.Fatalf("violation = %+v", v)
	}
	if m.State() != StateErrored {
		t.Fatalf("state %s, want Errored", m.State())
	}
}

func TestKickClosesFromAnyPreTerminalState(t *testing.T) {
	prefixes := [][]protocol.MsgType{
		{},
		{protocol.MsgHello},
		{protocol.MsgHello, protocol.MsgPlayerInfo},
		{protocol.MsgHello, protocol.MsgPlayerInfo, protocol.MsgRequestWorldData},
	}
	for _, prefix := range prefixes {
		m := newMachine(t)
		for _, msg := range prefix {
			if err := m.Advance(msg); err != nil {
				t.Fatalf("prefix %v: %v", prefix, err)
			}
		}
		if err := m.Advance(protocol.MsgKick); err != nil {
			t.Fatalf("kick after %v: %v", prefix, err)
		}
		if m.State() != StateClosed {
			t.Fatalf("state after kick = %s", m.State())
		}
	}
}

func TestTerminalStatesRejectEverything(t *testing.T) {
	for _, terminal := range []State{StateClosed, StateErrored} {
		m := newMachine(t)
		m.state = terminal
		for _, msg := range []protocol.MsgType{protocol.MsgHello, protocol.MsgKick, protocol.MsgChat} {
			err := m.Advance(msg)
			var v *Violation
			if !errors.As(err, &v) {
				t.Fatalf("%s in %s: err = %v, want *Violation", msg, terminal, err)
			}
		}
		if m.State() != terminal {
			t.Fatalf("terminal state moved to %s", m.State())
		}
	}
}

func TestExemptListIsCaseByCase(t *testing.T) {
	// A machine with no exemptions treats PlayerActive before Hello as a
	// violation.
	m := New(nil, zap.NewNop())
	if err := m.Advance(protocol.MsgPlayerActive); err == nil {
		t.Fatal("PlayerActive accepted without exemption")
	}

	m2 := New([]protocol.MsgType{protocol.MsgPlayerActive}, zap.NewNop())
	if err := m2.Advance(protocol.MsgPlayerActive); err != nil {
		t.Fatalf("exempt PlayerActive rejected: %v", err)
	}
	if m2.State() != StateInitial {
		t.Fatalf("exempt message changed state to %s", m2.State())
	}
}

func TestCloseIsIdempotentAndSticky(t *testing.T) {
	m := newMachine(t)
	if err := m.Advance(protocol.MsgHello); err != nil {
		t.Fatal(err)
	}
	m.Close()
	if m.State() != StateClosed {
		t.Fatalf("state %s after Close", m.State())
	}
	m.Close()
	if m.State() != StateClosed {
		t.Fatalf("state %s after second Close", m.State())
	}

	// Errored stays errored through Close.
	m2 := newMachine(t)
	m2.Advance(protocol.MsgChat)
	m2.Close()
	if m2.State() != StateErrored {
		t.Fatalf("Close rewrote Errored to %s", m2.State())
	}
}
