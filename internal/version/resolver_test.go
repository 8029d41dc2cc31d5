package version

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/yhs0602/terrablade/internal/protocol"
)

func writeProfile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const testProfile = `profile_id: testprof
version_string: Terraria279
default_layout: 2
message_layouts:
  4: 1
  7: 1
state_exempt: [16, 42, 50]
tile_count: 20
frame_important_source: tiles_testprof.txt
`

const testTiles = `# significance table
3
5-7
# trailing comment
12
`

func TestResolveFromSourceFile(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "testprof.yaml", testProfile)
	writeProfile(t, dir, "tiles_testprof.txt", testTiles)

	r := NewResolver(dir, nil, zap.NewNop())
	spec, err := r.Resolve(context.Background(), "testprof")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if spec.ProfileID != "testprof" || spec.VersionString != "Terraria279" {
		t.Errorf("spec header = %+v", spec)
	}

	// The default layout covers every known type; per-type overrides win.
	layouts := spec.Layouts()
	if got := layouts[protocol.MsgSyncPlayer]; got != 1 {
		t.Errorf("SyncPlayer layout = %d, want 1", got)
	}
	if got := layouts[protocol.MsgWorldData]; got != 1 {
		t.Errorf("WorldData layout = %d, want 1", got)
	}
	if got := layouts[protocol.MsgTileSection]; got != 2 {
		t.Errorf("TileSection layout = %d, want default 2", got)
	}
	if len(layouts) != len(protocol.AllTypes()) {
		t.Errorf("layout table covers %d types, want %d", len(layouts), len(protocol.AllTypes()))
	}

	if len(spec.TileFrameImportant) != 20 {
		t.Fatalf("table length %d, want 20", len(spec.TileFrameImportant))
	}
	for id := 0; id < 20; id++ {
		want := id == 3 || (id >= 5 && id <= 7) || id == 12
		if spec.TileFrameImportant[id] != want {
			t.Errorf("tile %d important = %v, want %v", id, spec.TileFrameImportant[id], want)
		}
	}

	if !spec.Exempt(16) || !spec.Exempt(42) || !spec.Exempt(50) {
		t.Error("exempt list incomplete")
	}
	if spec.Exempt(4) {
		t.Error("non-exempt type reported exempt")
	}
}

func TestResolveInlineOverrideSkipsSource(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "inline.yaml", `profile_id: inline
version_string: Terraria194
default_layout: 1
tile_count: 10
frame_important_source: tiles_inline.txt
frame_important: [1, 4]
`)
	// Unparseable source file proves the inline list takes precedence.
	writeProfile(t, dir, "tiles_inline.txt", "not a number\n")

	r := NewResolver(dir, nil, zap.NewNop())
	spec, err := r.Resolve(context.Background(), "inline")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for id := 0; id < 10; id++ {
		want := id == 1 || id == 4
		if spec.TileFrameImportant[id] != want {
			t.Errorf("tile %d important = %v, want %v", id, spec.TileFrameImportant[id], want)
		}
	}
}

func TestResolveUnknownProfile(t *testing.T) {
	r := NewResolver(t.TempDir(), nil, zap.NewNop())
	_, err := r.Resolve(context.Background(), "nosuch")
	if !errors.Is(err, ErrUnknownProfile) {
		t.Fatalf("err = %v, want ErrUnknownProfile", err)
	}
}

func TestResolveMalformedProfiles(t *testing.T) {
	cases := []struct {
		name    string
		profile string
		tiles   string
	}{
		{
			"missing version_string",
			"profile_id: bad\ndefault_layout: 2\ntile_count: 5\nframe_important: [1]\n",
			"",
		},
		{
			"layout out of range",
			"profile_id: bad\nversion_string: x\ndefault_layout: 3\ntile_count: 5\nframe_important: [1]\n",
			"",
		},
		{
			"per-message layout out of range",
			"profile_id: bad\nversion_string: x\ndefault_layout: 1\nmessage_layouts:\n  4: 9\ntile_count: 5\nframe_important: [1]\n",
			"",
		},
		{
			"profile_id mismatch",
			"profile_id: other\nversion_string: x\ndefault_layout: 1\ntile_count: 5\nframe_important: [1]\n",
			"",
		},
		{
			"unknown field",
			"profile_id: bad\nversion_string: x\ndefault_layout: 1\ntile_count: 5\nframe_important: [1]\nbogus_key: true\n",
			"",
		},
		{
			"missing tile table",
			"profile_id: bad\nversion_string: x\ndefault_layout: 1\ntile_count: 5\n",
			"",
		},
		{
			"inline id out of bounds",
			"profile_id: bad\nversion_string: x\ndefault_layout: 1\ntile_count: 5\nframe_important: [7]\n",
			"",
		},
		{
			"source range out of bounds",
			"profile_id: bad\nversion_string: x\ndefault_layout: 1\ntile_count: 5\nframe_important_source: tiles_bad.txt\n",
			"2-9\n",
		},
		{
			"source not a number",
			"profile_id: bad\nversion_string: x\ndefault_layout: 1\ntile_count: 5\nframe_important_source: tiles_bad.txt\n",
			"three\n",
		},
		{
			"source file missing",
			"profile_id: bad\nversion_string: x\ndefault_layout: 1\ntile_count: 5\nframe_important_source: nosuch.txt\n",
			"",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeProfile(t, dir, "bad.yaml", tc.profile)
			if tc.tiles != "" {
				writeProfile(t, dir, "tiles_bad.txt", tc.tiles)
			}
			r := NewResolver(dir, nil, zap.NewNop())
			_, err := r.Resolve(context.Background(), "bad")
			if !errors.Is(err, ErrMalformedSpec) {
				t.Fatalf("err = %v, want ErrMalformedSpec", err)
			}
		})
	}
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache, err := OpenCache(ctx, filepath.Join(t.TempDir(), "spec.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer cache.Close()

	if _, ok, err := cache.Lookup(ctx, "p", 4); err != nil || ok {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}

	table := []bool{true, false, true, false}
	if err := cache.Store(ctx, "p", table); err != nil {
		t.Fatalf("Store: %v", err)
	}
	got, ok, err := cache.Lookup(ctx, "p", 4)
	if err != nil || !ok {
		t.Fatalf("Lookup: ok=%v err=%v", ok, err)
	}
	for i := range table {
		if got[i] != table[i] {
			t.Fatalf("table[%d] = %v, want %v", i, got[i], table[i])
		}
	}

	// A tile count change invalidates the entry.
	if _, ok, err := cache.Lookup(ctx, "p", 5); err != nil || ok {
		t.Fatalf("stale entry: ok=%v err=%v", ok, err)
	}

	// Upsert replaces.
	if err := cache.Store(ctx, "p", []bool{false, true}); err != nil {
		t.Fatalf("Store (upsert): %v", err)
	}
	got, ok, err = cache.Lookup(ctx, "p", 2)
	if err != nil || !ok || got[0] || !got[1] {
		t.Fatalf("after upsert: got=%v ok=%v err=%v", got, ok, err)
	}
}

func TestResolvePrefersCachedTable(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeProfile(t, dir, "testprof.yaml", testProfile)
	writeProfile(t, dir, "tiles_testprof.txt", testTiles)

	cache, err := OpenCache(ctx, filepath.Join(dir, "spec.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer cache.Close()

	// Seed a table that disagrees with the source file.
	seeded := make([]bool, 20)
	seeded[19] = true
	if err := cache.Store(ctx, "testprof", seeded); err != nil {
		t.Fatalf("Store: %v", err)
	}

	r := NewResolver(dir, cache, zap.NewNop())
	spec, err := r.Resolve(ctx, "testprof")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !spec.TileFrameImportant[19] || spec.TileFrameImportant[3] {
		t.Error("resolution ignored the cached table")
	}
}

func TestResolveDerivationPopulatesCache(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeProfile(t, dir, "testprof.yaml", testProfile)
	writeProfile(t, dir, "tiles_testprof.txt", testTiles)

	cache, err := OpenCache(ctx, filepath.Join(dir, "spec.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	defer cache.Close()

	r := NewResolver(dir, cache, zap.NewNop())
	if _, err := r.Resolve(ctx, "testprof"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	table, ok, err := cache.Lookup(ctx, "testprof", 20)
	if err != nil || !ok {
		t.Fatalf("cache not populated: ok=%v err=%v", ok, err)
	}
	if !table[3] || !table[5] || table[4] {
		t.Errorf("cached table wrong: %v", table)
	}
}
