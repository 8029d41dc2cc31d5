package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Profile   ProfileConfig   `toml:"profile"`
	Player    PlayerConfig    `toml:"player"`
	Network   NetworkConfig   `toml:"network"`
	Handshake HandshakeConfig `toml:"handshake"`
	Bot       BotConfig       `toml:"bot"`
	Logging   LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Password string `toml:"password"` // sent on RequestPassword challenge
}

// ProfileConfig selects the protocol profile and optional overrides.
// Overrides take precedence over cached and freshly derived values.
type ProfileConfig struct {
	ID            string `toml:"id"`
	VersionString string `toml:"version_string"` // override, e.g. "Terraria279"
	SpecDir       string `toml:"spec_dir"`       // override for profiles directory
	CachePath     string `toml:"cache_path"`     // sqlite derived-table cache
	DisableCache  bool   `toml:"disable_cache"`
}

type PlayerConfig struct {
	Name        string `toml:"name"`
	SkinVariant int    `toml:"skin_variant"`
	Hair        int    `toml:"hair"`
	HairDye     int    `toml:"hair_dye"`
	Difficulty  int    `toml:"difficulty"`
	HairColor   string `toml:"hair_color"` // "#rrggbb"
	SkinColor   string `toml:"skin_color"`
	EyeColor    string `toml:"eye_color"`
	ShirtColor  string `toml:"shirt_color"`
	UnderColor  string `toml:"under_color"`
	PantsColor  string `toml:"pants_color"`
	ShoeColor   string `toml:"shoe_color"`
	Life        int    `toml:"life"`
	Mana        int    `toml:"mana"`
	UUID        string `toml:"uuid"`
}

// Duration decodes TOML strings like "500ms" or "10s".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type NetworkConfig struct {
	DialTimeout      Duration `toml:"dial_timeout"`
	ReadTimeout      Duration `toml:"read_timeout"`
	WriteTimeout     Duration `toml:"write_timeout"`
	ReconnectLimit   int      `toml:"reconnect_limit"`
	ReconnectBackoff Duration `toml:"reconnect_backoff"` // base; doubles per attempt
	BackoffCeiling   Duration `toml:"backoff_ceiling"`
	FrameQueueSize   int      `toml:"frame_queue_size"`
}

// HandshakeConfig tunes pre-spawn behavior. StateExempt extends (or, with
// ReplaceExempt, replaces) the profile's list of message types accepted in any
// pre-spawn state.
type HandshakeConfig struct {
	StateExempt   []int   `toml:"state_exempt"`
	ReplaceExempt bool    `toml:"replace_exempt"`
	SpawnCoverage float64 `toml:"spawn_coverage"` // 0 = spawn on the server's ready signal
}

type BotConfig struct {
	Enabled      bool     `toml:"enabled"`
	ScriptDir    string   `toml:"script_dir"`
	TickInterval Duration `toml:"tick_interval"`
	PreferRight  bool     `toml:"prefer_right"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 7777,
		},
		Profile: ProfileConfig{
			ID:        "terraria144",
			SpecDir:   "profiles",
			CachePath: "data/speccache.db",
		},
		Player: PlayerConfig{
			Name:       "Terrablade",
			SkinColor:  "#ffe0bd",
			EyeColor:   "#404040",
			ShirtColor: "#646464",
			UnderColor: "#646464",
			PantsColor: "#646464",
			ShoeColor:  "#323232",
			Life:       100,
			Mana:       20,
		},
		Network: NetworkConfig{
			DialTimeout:      Duration(10 * time.Second),
			ReadTimeout:      Duration(60 * time.Second),
			WriteTimeout:     Duration(10 * time.Second),
			ReconnectLimit:   5,
			ReconnectBackoff: Duration(500 * time.Millisecond),
			BackoffCeiling:   Duration(30 * time.Second),
			FrameQueueSize:   256,
		},
		Bot: BotConfig{
			ScriptDir:    "scripts/bot",
			TickInterval: Duration(100 * time.Millisecond),
			PreferRight:  true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
