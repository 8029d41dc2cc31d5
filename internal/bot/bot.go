// Package bot drives the player once spawned. A policy is a pure function
// from an observation of the world snapshot to a movement action; the bot
// loop samples, decides and sends PlayerControls at a fixed tick.
package bot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yhs0602/terrablade/internal/config"
	"github.com/yhs0602/terrablade/internal/protocol"
	"github.com/yhs0602/terrablade/internal/session"
	"github.com/yhs0602/terrablade/internal/world"
)

// tilePx is the world-to-tile scale: positions are in pixels, tiles are 16px.
const tilePx = 16

// Observation is what a policy sees each tick.
type Observation struct {
	TileX, TileY int32
	Direction    int // -1 left, +1 right
	OnGround     bool
	BlockedAhead bool
	HoleAhead    bool
	Life         int16
	Coverage     float64
}

// Action is what a policy wants done this tick.
type Action struct {
	MoveLeft  bool
	MoveRight bool
	Jump      bool
}

// Policy decides one action per tick. Implementations must not retain the
// observation.
type Policy interface {
	Decide(Observation) Action
}

// PlayerControls bit positions.
const (
	ctrlUp = 1 << iota
	ctrlDown
	ctrlLeft
	ctrlRight
	ctrlJump
)

// Bot ticks a policy against session snapshots. It tracks its own position:
// the server never echoes the local player's movement back.
type Bot struct {
	sess     *session.Session
	policy   Policy
	interval time.Duration

	x, y float32
	dir  int

	log *zap.Logger
}

func New(sess *session.Session, policy Policy, cfg config.BotConfig, log *zap.Logger) *Bot {
	dir := -1
	if cfg.PreferRight {
		dir = 1
	}
	interval := cfg.TickInterval.Std()
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Bot{
		sess:     sess,
		policy:   policy,
		interval: interval,
		dir:      dir,
		log:      log.Named("bot"),
	}
}

// Run waits for spawn, then ticks until ctx is canceled or the session dies.
func (b *Bot) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.sess.Spawned():
	}

	snap := b.sess.Snapshot()
	b.x = float32(snap.Info.SpawnX) * tilePx
	b.y = float32(snap.Info.SpawnY) * tilePx
	b.log.Info("exploring",
		zap.Int32("spawn_x", snap.Info.SpawnX),
		zap.Int32("spawn_y", snap.Info.SpawnY),
		zap.Float64("coverage", snap.Coverage))

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := b.tick(); err != nil {
				return err
			}
		}
	}
}

func (b *Bot) tick() error {
	snap := b.sess.Snapshot()
	obs := b.observe(snap)
	act := b.policy.Decide(obs)
	b.apply(snap, act)

	var control byte
	if act.MoveLeft {
		control |= ctrlLeft
	}
	if act.MoveRight {
		control |= ctrlRight
	}
	if act.Jump {
		control |= ctrlJump
	}
	slot := byte(0)
	if snap.LocalSlot >= 0 {
		slot = byte(snap.LocalSlot)
	}
	return b.sess.Send(protocol.PlayerControls{
		Slot:    slot,
		Control: control,
		PosX:    b.x,
		PosY:    b.y,
	})
}

func (b *Bot) observe(snap *world.Snapshot) Observation {
	tx := int32(b.x) / tilePx
	ty := int32(b.y) / tilePx
	ahead := tx + int32(b.dir)
	life := int16(0)
	if snap.LocalSlot >= 0 {
		if p, ok := snap.Players[byte(snap.LocalSlot)]; ok {
			life = p.Life
		}
	}
	return Observation{
		TileX:     tx,
		TileY:     ty,
		Direction: b.dir,
		OnGround:  snap.Solid(tx, ty+1),
		// Blocked when either the body or head tile ahead is solid.
		BlockedAhead: snap.Solid(ahead, ty) || snap.Solid(ahead, ty-1),
		// A hole is two empty tiles below the next step.
		HoleAhead: !snap.Solid(ahead, ty+1) && !snap.Solid(ahead, ty+2),
		Life:      life,
		Coverage:  snap.Coverage,
	}
}

// apply advances the dead-reckoned position by one tick of the decided
// movement. Jumping over a one-tile obstacle is modelled as stepping up.
func (b *Bot) apply(snap *world.Snapshot, act Action) {
	const step = tilePx / 2
	switch {
	case act.MoveLeft:
		b.dir = -1
	case act.MoveRight:
		b.dir = 1
	}
	if act.MoveLeft || act.MoveRight {
		tx := int32(b.x)/tilePx + int32(b.dir)
		ty := int32(b.y) / tilePx
		if !snap.Solid(tx, ty) {
			b.x += float32(b.dir * step)
		} else if act.Jump && !snap.Solid(tx, ty-1) {
			b.x += float32(b.dir * step)
			b.y -= tilePx
		}
	}
	// Settle onto the ground below.
	tx := int32(b.x) / tilePx
	ty := int32(b.y) / tilePx
	for i := 0; i < 4 && !snap.Solid(tx, ty+1); i++ {
		b.y += tilePx
		ty++
	}
}
