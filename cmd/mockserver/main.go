// mockserver serves a small flat world over the real wire protocol, far
// enough through the join conversation for local client testing. With
// MOCKSERVER_PASSWORD set it also exercises the password challenge.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/bcrypt"

	"github.com/yhs0602/terrablade/internal/mockserver"
	"github.com/yhs0602/terrablade/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	addr := envOr("MOCKSERVER_ADDR", "127.0.0.1:7777")
	profileID := envOr("MOCKSERVER_PROFILE", "terraria144")
	specDir := envOr("MOCKSERVER_SPEC_DIR", "profiles")
	password := os.Getenv("MOCKSERVER_PASSWORD")

	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	log, err := zapCfg.Build()
	if err != nil {
		return err
	}
	defer log.Sync()

	resolver := version.NewResolver(specDir, nil, log)
	spec, err := resolver.Resolve(context.Background(), profileID)
	if err != nil {
		return fmt.Errorf("resolve profile: %w", err)
	}

	cfg := mockserver.Config{
		Addr:      addr,
		WorldName: envOr("MOCKSERVER_WORLD", "Mockworld"),
		Width:     int16(envInt("MOCKSERVER_WIDTH", 840)),
		Height:    int16(envInt("MOCKSERVER_HEIGHT", 240)),
	}
	cfg.SpawnX = cfg.Width / 2
	cfg.SpawnY = cfg.Height / 2
	cfg.GroundLevel = cfg.SpawnY + 1
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		cfg.PasswordHash = string(hash)
	}

	srv := mockserver.New(cfg, spec, log)
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
