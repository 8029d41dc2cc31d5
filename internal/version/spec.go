// Package version resolves protocol profiles. A profile binds a version
// string, per-message field layouts, the pre-spawn exempt message list and
// the tile significance table for one supported server generation.
package version

import (
	"errors"

	"github.com/yhs0602/terrablade/internal/protocol"
)

var (
	// ErrUnknownProfile means no profile file exists for the requested id.
	// Fatal: there is nothing sensible to fall back to.
	ErrUnknownProfile = errors.New("unknown protocol profile")

	// ErrMalformedSpec means a profile file exists but fails validation.
	ErrMalformedSpec = errors.New("malformed protocol profile")
)

// Spec is a fully resolved protocol profile. It is immutable after
// resolution and safe to share between sessions; a reconnect reuses the
// resolved Spec rather than resolving again.
type Spec struct {
	ProfileID     string
	VersionString string

	// MessageFormats carries the layout version for every modelled message
	// type (codec.LayoutLegacy or codec.LayoutCurrent).
	MessageFormats map[protocol.MsgType]int

	// TileFrameImportant is indexed by tile type; true marks tiles whose
	// section encoding carries frame UV coordinates.
	TileFrameImportant []bool

	// StateExempt lists message types accepted in any pre-spawn handshake
	// state.
	StateExempt []protocol.MsgType
}

// Exempt reports whether t bypasses per-state handshake validation.
func (s *Spec) Exempt(t protocol.MsgType) bool {
	for _, e := range s.StateExempt {
		if e == t {
			return true
		}
	}
	return false
}

// Layouts returns a copy of the message layout map for handing to a codec.
func (s *Spec) Layouts() map[protocol.MsgType]int {
	out := make(map[protocol.MsgType]int, len(s.MessageFormats))
	for t, v := range s.MessageFormats {
		out[t] = v
	}
	return out
}
