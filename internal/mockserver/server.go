// Package mockserver is a minimal server end of the protocol: enough of the
// join conversation to exercise a real client over loopback. It serves a
// small flat world and optionally demands a password.
package mockserver

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/yhs0602/terrablade/internal/protocol"
	"github.com/yhs0602/terrablade/internal/protocol/codec"
	"github.com/yhs0602/terrablade/internal/version"
)

// Config shapes the served world.
type Config struct {
	Addr          string
	VersionString string
	// PasswordHash is a bcrypt hash; empty disables the password challenge.
	PasswordHash string

	WorldName      string
	Width, Height  int16
	SpawnX, SpawnY int16
	GroundLevel    int16
	// SectionSize is the width/height of served tile sections.
	SectionSize int16
}

// Server accepts connections and walks each through the join conversation.
type Server struct {
	cfg   Config
	codec *codec.Codec

	ln        net.Listener
	wg        sync.WaitGroup
	closeOnce sync.Once

	log *zap.Logger
}

func New(cfg Config, spec *version.Spec, log *zap.Logger) *Server {
	if cfg.VersionString == "" {
		cfg.VersionString = spec.VersionString
	}
	if cfg.SectionSize == 0 {
		cfg.SectionSize = 25
	}
	if cfg.GroundLevel == 0 {
		cfg.GroundLevel = cfg.Height / 2
	}
	return &Server{
		cfg:   cfg,
		codec: codec.New(spec.Layouts(), spec.TileFrameImportant),
		log:   log.Named("mockserver"),
	}
}

// Start listens and serves until Close.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	s.ln = ln
	s.log.Info("listening", zap.String("addr", ln.Addr().String()))
	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr reports the bound address, useful with ":0".
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Close stops the listener and waits for connection goroutines to drain.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		if s.ln != nil {
			s.ln.Close()
		}
	})
	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Error("accept failed", zap.Error(err))
			}
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

// conn is one client's join progress.
type clientConn struct {
	conn       net.Conn
	framer     *protocol.Framer
	authorized bool
	spawned    bool
}

func (s *Server) handle(raw net.Conn) {
	defer raw.Close()
	log := s.log.With(zap.String("peer", raw.RemoteAddr().String()))
	c := &clientConn{conn: raw, framer: protocol.NewFramer()}

	buf := make([]byte, 4096)
	for {
		n, err := raw.Read(buf)
		if n > 0 {
			frames, ferr := c.framer.Feed(buf[:n])
			for _, f := range frames {
				if err := s.handleFrame(c, f, log); err != nil {
					log.Debug("closing", zap.Error(err))
					return
				}
			}
			if ferr != nil {
				log.Warn("framing violation from client", zap.Error(ferr))
				return
			}
		}
		if err != nil {
			return
		}
	}
}

var errDone = errors.New("conversation over")

func (s *Server) handleFrame(c *clientConn, f protocol.Frame, log *zap.Logger) error {
	msg, err := s.codec.Decode(f)
	if err != nil && !errors.Is(err, protocol.ErrUnknownType) {
		return err
	}
	log.Debug("RX", zap.Stringer("msg", f.Type))

	switch m := msg.(type) {
	case protocol.Hello:
		if m.Version != s.cfg.VersionString {
			s.send(c, protocol.Kick{Reason: "wrong version"})
			return errDone
		}
		if s.cfg.PasswordHash != "" && !c.authorized {
			return s.send(c, protocol.RequestPassword{})
		}
		c.authorized = true
		return s.send(c, protocol.PlayerInfo{Slot: 0})
	case protocol.SendPassword:
		if bcrypt.CompareHashAndPassword([]byte(s.cfg.PasswordHash), []byte(m.Password)) != nil {
			s.send(c, protocol.Kick{Reason: "wrong password"})
			return errDone
		}
		c.authorized = true
		return s.send(c, protocol.PlayerInfo{Slot: 0})
	case protocol.RequestWorldData:
		return s.send(c, s.worldData())
	case protocol.RequestEssentialTiles:
		if err := s.sendSpawnSections(c); err != nil {
			return err
		}
		return s.send(c, protocol.StartPlaying{})
	case protocol.PlayerSpawn:
		c.spawned = true
		return s.send(c, protocol.PlayerActive{Slot: m.Slot, Active: true})
	}
	return nil
}

func (s *Server) send(c *clientConn, msg protocol.Message) error {
	buf, err := s.codec.Encode(msg)
	if err != nil {
		return err
	}
	_, err = c.conn.Write(buf)
	return err
}

func (s *Server) worldData() protocol.WorldData {
	return protocol.WorldData{
		WorldName:   s.cfg.WorldName,
		WorldID:     1,
		MaxTilesX:   s.cfg.Width,
		MaxTilesY:   s.cfg.Height,
		SpawnX:      s.cfg.SpawnX,
		SpawnY:      s.cfg.SpawnY,
		GroundLevel: s.cfg.GroundLevel,
		RockLevel:   s.cfg.GroundLevel + s.cfg.Height/4,
		DayFlags:    1,
	}
}

// sendSpawnSections serves the flat world in SectionSize squares around the
// spawn point, clamped to world bounds.
func (s *Server) sendSpawnSections(c *clientConn) error {
	size := s.cfg.SectionSize
	startX := clamp(s.cfg.SpawnX-size, 0, s.cfg.Width)
	endX := clamp(s.cfg.SpawnX+size, 0, s.cfg.Width)
	startY := clamp(s.cfg.SpawnY-size, 0, s.cfg.Height)
	endY := clamp(s.cfg.SpawnY+size, 0, s.cfg.Height)

	for y := startY; y < endY; y += size {
		for x := startX; x < endX; x += size {
			w := min16(size, s.cfg.Width-x)
			h := min16(size, s.cfg.Height-y)
			if w <= 0 || h <= 0 {
				continue
			}
			if err := s.send(c, s.section(x, y, w, h)); err != nil {
				return err
			}
		}
	}
	return nil
}

// section builds one flat-terrain section: air above ground level, dirt
// below, a thin water pool at ground level near spawn.
func (s *Server) section(x, y, w, h int16) protocol.TileSection {
	m := protocol.TileSection{
		OriginX: int32(x),
		OriginY: int32(y),
		Width:   w,
		Height:  h,
		Tiles:   make([]protocol.Tile, int(w)*int(h)),
	}
	i := 0
	for dy := int16(0); dy < h; dy++ {
		for dx := int16(0); dx < w; dx++ {
			ty := y + dy
			t := protocol.Tile{FrameX: -1, FrameY: -1}
			if ty >= s.cfg.GroundLevel {
				t.Active = true
				t.TileType = 0
			} else if ty == s.cfg.GroundLevel-1 && x+dx > s.cfg.SpawnX+5 {
				t.Liquid = 255
			}
			m.Tiles[i] = t
			i++
		}
	}
	return m
}

func clamp(v, lo, hi int16) int16 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func min16(a, b int16) int16 {
	if a < b {
		return a
	}
	return b
}
