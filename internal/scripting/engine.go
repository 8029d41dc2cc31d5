// Package scripting hosts bot policies written in Lua. A script defines a
// global decide(obs) function receiving an observation table and returning
// an action table; the engine bridges it to the bot's Policy interface.
package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/yhs0602/terrablade/internal/bot"
)

// Engine wraps a single gopher-lua VM. Single-goroutine access only (the
// bot tick loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger

	fallback bot.Policy
}

// NewEngine creates a Lua engine and loads every .lua file in scriptDir.
// The engine satisfies bot.Policy; when no script defines decide, or a call
// fails, it falls back to the built-in exploration policy.
func NewEngine(scriptDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{
		vm:       vm,
		log:      log.Named("scripting"),
		fallback: bot.NewExplorationPolicy(),
	}
	if err := e.loadDir(scriptDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load bot scripts: %w", err)
	}
	return e, nil
}

// loadDir loads all .lua files in a directory. A missing directory is fine;
// the fallback policy covers it.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Close releases the VM.
func (e *Engine) Close() {
	e.vm.Close()
}

// Decide calls the Lua decide function with the observation.
func (e *Engine) Decide(o bot.Observation) bot.Action {
	fn := e.vm.GetGlobal("decide")
	if fn == lua.LNil {
		return e.fallback.Decide(o)
	}

	t := e.vm.NewTable()
	t.RawSetString("tile_x", lua.LNumber(o.TileX))
	t.RawSetString("tile_y", lua.LNumber(o.TileY))
	t.RawSetString("direction", lua.LNumber(o.Direction))
	t.RawSetString("on_ground", lua.LBool(o.OnGround))
	t.RawSetString("blocked_ahead", lua.LBool(o.BlockedAhead))
	t.RawSetString("hole_ahead", lua.LBool(o.HoleAhead))
	t.RawSetString("life", lua.LNumber(o.Life))
	t.RawSetString("coverage", lua.LNumber(o.Coverage))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua decide error", zap.Error(err))
		return e.fallback.Decide(o)
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		e.log.Error("lua decide returned non-table")
		return e.fallback.Decide(o)
	}
	return bot.Action{
		MoveLeft:  rt.RawGetString("move_left") == lua.LTrue,
		MoveRight: rt.RawGetString("move_right") == lua.LTrue,
		Jump:      rt.RawGetString("jump") == lua.LTrue,
	}
}
