package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yhs0602/terrablade/internal/bot"
	"github.com/yhs0602/terrablade/internal/config"
	"github.com/yhs0602/terrablade/internal/scripting"
	"github.com/yhs0602/terrablade/internal/session"
	"github.com/yhs0602/terrablade/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := "config/client.toml"
	if p := os.Getenv("TERRABLADE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cache *version.Cache
	if !cfg.Profile.DisableCache {
		openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		cache, err = version.OpenCache(openCtx, cfg.Profile.CachePath, log)
		cancel()
		if err != nil {
			log.Warn("spec cache unavailable, deriving fresh", zap.Error(err))
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	resolver := version.NewResolver(cfg.Profile.SpecDir, cache, log)
	spec, err := resolver.Resolve(ctx, cfg.Profile.ID)
	if err != nil {
		return fmt.Errorf("resolve profile: %w", err)
	}
	if cfg.Profile.VersionString != "" {
		spec.VersionString = cfg.Profile.VersionString
	}

	var policy bot.Policy = bot.NewExplorationPolicy()
	if cfg.Bot.Enabled && cfg.Bot.ScriptDir != "" {
		engine, err := scripting.NewEngine(cfg.Bot.ScriptDir, log)
		if err != nil {
			return fmt.Errorf("bot scripts: %w", err)
		}
		defer engine.Close()
		policy = engine
	}

	// The bot attaches to every fresh session the client builds.
	client := session.NewClient(cfg, spec, log)
	if cfg.Bot.Enabled {
		client.OnSession(func(s *session.Session) {
			b := bot.New(s, policy, cfg.Bot, log)
			go func() {
				if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Debug("bot stopped", zap.Error(err))
				}
			}()
		})
	}

	err = client.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("shutting down")
		return nil
	}
	return err
}

// loadConfig falls back to compiled-in defaults when no config file exists,
// so the client runs against a local server out of the box.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(errors.Unwrap(err)) {
			return config.Defaults(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}
