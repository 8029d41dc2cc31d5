// tbdump is a man-in-the-middle packet dumper: it listens for a real game
// client, forwards the byte stream to a real server and logs every decoded
// message in both directions. Useful for capturing the conversation of an
// unfamiliar server build before writing a profile for it.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yhs0602/terrablade/internal/protocol"
	"github.com/yhs0602/terrablade/internal/protocol/codec"
	"github.com/yhs0602/terrablade/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	listen := envOr("TBDUMP_LISTEN", "127.0.0.1:7777")
	upstream := envOr("TBDUMP_UPSTREAM", "127.0.0.1:7778")
	profileID := envOr("TBDUMP_PROFILE", "terraria144")
	specDir := envOr("TBDUMP_SPEC_DIR", "profiles")

	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
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
	c := codec.New(spec.Layouts(), spec.TileFrameImportant)

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", listen, err)
	}
	log.Info("dumping", zap.String("listen", listen), zap.String("upstream", upstream))

	for {
		client, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}
		go proxy(client, upstream, c, log.With(zap.String("peer", client.RemoteAddr().String())))
	}
}

func proxy(client net.Conn, upstream string, c *codec.Codec, log *zap.Logger) {
	defer client.Close()
	server, err := net.Dial("tcp", upstream)
	if err != nil {
		log.Error("upstream dial failed", zap.Error(err))
		return
	}
	defer server.Close()
	log.Info("session open")

	var wg sync.WaitGroup
	wg.Add(2)
	go pump(&wg, client, server, c, log.Named("C>S"))
	go pump(&wg, server, client, c, log.Named("S>C"))
	wg.Wait()
	log.Info("session closed")
}

// pump forwards src to dst byte-for-byte while framing a copy of the stream
// for logging. Framing violations are logged but the bytes still flow; the
// dumper observes, it does not police.
func pump(wg *sync.WaitGroup, src, dst net.Conn, c *codec.Codec, log *zap.Logger) {
	defer wg.Done()
	defer dst.Close()

	framer := protocol.NewFramer()
	broken := false
	buf := make([]byte, 4096)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return
			}
			if !broken {
				frames, ferr := framer.Feed(buf[:n])
				for _, f := range frames {
					logFrame(c, f, log)
				}
				if ferr != nil {
					log.Warn("stream lost framing, raw passthrough from here", zap.Error(ferr))
					broken = true
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Debug("read error", zap.Error(err))
			}
			return
		}
	}
}

func logFrame(c *codec.Codec, f protocol.Frame, log *zap.Logger) {
	msg, err := c.Decode(f)
	switch {
	case errors.Is(err, protocol.ErrUnknownType):
		log.Info("frame", zap.Stringer("msg", f.Type), zap.Int("len", len(f.Payload)))
	case err != nil:
		log.Warn("frame", zap.Stringer("msg", f.Type), zap.Int("len", len(f.Payload)), zap.Error(err))
	default:
		log.Info("frame", zap.Stringer("msg", f.Type), zap.Int("len", len(f.Payload)), zap.Any("body", msg))
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
