package version

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/yhs0602/terrablade/internal/protocol"
)

// profileFile is the on-disk YAML shape of one profile.
type profileFile struct {
	ProfileID     string      `yaml:"profile_id"`
	VersionString string      `yaml:"version_string"`
	DefaultLayout int         `yaml:"default_layout"`
	MessageLayouts map[int]int `yaml:"message_layouts"`
	StateExempt   []int       `yaml:"state_exempt"`

	TileCount            int    `yaml:"tile_count"`
	FrameImportantSource string `yaml:"frame_important_source"`
	// FrameImportant, when non-empty, overrides both the cache and the
	// source-file derivation.
	FrameImportant []int `yaml:"frame_important"`
}

// Resolver loads profiles from a directory of YAML files and resolves their
// tile significance tables with the precedence inline override, then cached
// derivation, then fresh derivation from the declared source file.
type Resolver struct {
	dir   string
	cache *Cache
	log   *zap.Logger
}

// NewResolver builds a Resolver. cache may be nil to disable caching.
func NewResolver(dir string, cache *Cache, log *zap.Logger) *Resolver {
	return &Resolver{dir: dir, cache: cache, log: log.Named("version")}
}

// Resolve loads and validates the profile with the given id.
func (r *Resolver) Resolve(ctx context.Context, profileID string) (*Spec, error) {
	path := filepath.Join(r.dir, profileID+".yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, profileID)
		}
		return nil, fmt.Errorf("read profile %q: %w", profileID, err)
	}

	var pf profileFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&pf); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformedSpec, profileID, err)
	}
	if err := pf.validate(profileID); err != nil {
		return nil, err
	}

	spec := &Spec{
		ProfileID:     profileID,
		VersionString: pf.VersionString,
		MessageFormats: make(map[protocol.MsgType]int, len(pf.MessageLayouts)),
	}
	for _, t := range protocol.AllTypes() {
		spec.MessageFormats[t] = pf.DefaultLayout
	}
	for t, layout := range pf.MessageLayouts {
		spec.MessageFormats[protocol.MsgType(t)] = layout
	}
	for _, t := range pf.StateExempt {
		spec.StateExempt = append(spec.StateExempt, protocol.MsgType(t))
	}

	important, err := r.resolveTileTable(ctx, &pf)
	if err != nil {
		return nil, err
	}
	spec.TileFrameImportant = important

	r.log.Info("profile resolved",
		zap.String("profile", profileID),
		zap.String("version", spec.VersionString),
		zap.Int("tiles", len(important)),
		zap.Int("exempt", len(spec.StateExempt)))
	return spec, nil
}

func (pf *profileFile) validate(profileID string) error {
	if pf.ProfileID != "" && pf.ProfileID != profileID {
		return fmt.Errorf("%w: %q: profile_id %q does not match file name", ErrMalformedSpec, profileID, pf.ProfileID)
	}
	if pf.VersionString == "" {
		return fmt.Errorf("%w: %q: missing version_string", ErrMalformedSpec, profileID)
	}
	if pf.DefaultLayout < 1 || pf.DefaultLayout > 2 {
		return fmt.Errorf("%w: %q: default_layout %d out of range", ErrMalformedSpec, profileID, pf.DefaultLayout)
	}
	for t, layout := range pf.MessageLayouts {
		if t < 0 || t > 255 {
			return fmt.Errorf("%w: %q: message type %d out of range", ErrMalformedSpec, profileID, t)
		}
		if layout < 1 || layout > 2 {
			return fmt.Errorf("%w: %q: layout %d for message %d out of range", ErrMalformedSpec, profileID, layout, t)
		}
	}
	for _, t := range pf.StateExempt {
		if t < 0 || t > 255 {
			return fmt.Errorf("%w: %q: exempt type %d out of range", ErrMalformedSpec, profileID, t)
		}
	}
	if pf.TileCount <= 0 {
		return fmt.Errorf("%w: %q: missing tile_count", ErrMalformedSpec, profileID)
	}
	if len(pf.FrameImportant) == 0 && pf.FrameImportantSource == "" {
		return fmt.Errorf("%w: %q: no frame_important list and no frame_important_source", ErrMalformedSpec, profileID)
	}
	return nil
}

func (r *Resolver) resolveTileTable(ctx context.Context, pf *profileFile) ([]bool, error) {
	if len(pf.FrameImportant) > 0 {
		table := make([]bool, pf.TileCount)
		for _, id := range pf.FrameImportant {
			if id < 0 || id >= pf.TileCount {
				return nil, fmt.Errorf("%w: %q: frame_important id %d out of range", ErrMalformedSpec, pf.ProfileID, id)
			}
			table[id] = true
		}
		return table, nil
	}

	if r.cache != nil {
		table, ok, err := r.cache.Lookup(ctx, pf.ProfileID, pf.TileCount)
		if err != nil {
			r.log.Warn("spec cache lookup failed", zap.String("profile", pf.ProfileID), zap.Error(err))
		} else if ok {
			return table, nil
		}
	}

	table, err := r.deriveTileTable(pf)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		if err := r.cache.Store(ctx, pf.ProfileID, table); err != nil {
			r.log.Warn("spec cache store failed", zap.String("profile", pf.ProfileID), zap.Error(err))
		}
	}
	return table, nil
}

// deriveTileTable parses the declared source file: one tile id or inclusive
// id range ("216-218") per line, '#' comments and blank lines skipped.
func (r *Resolver) deriveTileTable(pf *profileFile) ([]bool, error) {
	path := filepath.Join(r.dir, pf.FrameImportantSource)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: frame_important_source: %v", ErrMalformedSpec, pf.ProfileID, err)
	}
	defer f.Close()

	table := make([]bool, pf.TileCount)
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		lo, hi, err := parseRange(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %s:%d: %v", ErrMalformedSpec, pf.ProfileID, pf.FrameImportantSource, line, err)
		}
		if lo < 0 || hi >= pf.TileCount || lo > hi {
			return nil, fmt.Errorf("%w: %q: %s:%d: range %d-%d out of bounds", ErrMalformedSpec, pf.ProfileID, pf.FrameImportantSource, line, lo, hi)
		}
		for id := lo; id <= hi; id++ {
			table[id] = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", pf.FrameImportantSource, err)
	}
	return table, nil
}

func parseRange(s string) (lo, hi int, err error) {
	if before, after, ok := strings.Cut(s, "-"); ok {
		lo, err = strconv.Atoi(strings.TrimSpace(before))
		if err != nil {
			return 0, 0, fmt.Errorf("bad range %q", s)
		}
		hi, err = strconv.Atoi(strings.TrimSpace(after))
		if err != nil {
			return 0, 0, fmt.Errorf("bad range %q", s)
		}
		return lo, hi, nil
	}
	lo, err = strconv.Atoi(s)
	if err != nil {
		return 0, 0, fmt.Errorf("bad tile id %q", s)
	}
	return lo, lo, nil
}
