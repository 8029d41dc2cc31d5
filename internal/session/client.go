package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yhs0602/terrablade/internal/config"
	"github.com/yhs0602/terrablade/internal/netio"
	"github.com/yhs0602/terrablade/internal/version"
)

// Client runs sessions against one server, reconnecting with bounded
// exponential backoff when the transport drops. Each attempt builds a fresh
// session (fresh framer, fresh state machine, fresh world); only the
// resolved version spec is reused across attempts.
type Client struct {
	cfg   *config.Config
	spec  *version.Spec
	log   *zap.Logger
	hooks []func(*Session)
}

func NewClient(cfg *config.Config, spec *version.Spec, log *zap.Logger) *Client {
	return &Client{cfg: cfg, spec: spec, log: log.Named("client")}
}

// OnSession registers a hook called on every fresh session before it runs,
// for wiring custom handlers or observers.
func (c *Client) OnSession(f func(*Session)) {
	c.hooks = append(c.hooks, f)
}

// Run connects and processes until ctx is canceled, the server rejects the
// client at the protocol level, or the reconnect budget is spent. Transport
// drops trigger reconnection; kicks and handshake violations do not.
func (c *Client) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", c.cfg.Server.Host, c.cfg.Server.Port)
	backoff := netio.NewBackoff(c.cfg.Network)

	for {
		err := c.runOnce(ctx, addr)
		switch {
		case err == nil || errors.Is(err, context.Canceled):
			return err
		case retryable(err):
			delay, ok := backoff.Next()
			if !ok {
				return fmt.Errorf("reconnect budget exhausted after %d attempts: %w", backoff.Attempts(), err)
			}
			c.log.Warn("connection lost, reconnecting",
				zap.Error(err),
				zap.Duration("delay", delay),
				zap.Int("attempt", backoff.Attempts()))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		default:
			return err
		}
	}
}

func (c *Client) runOnce(ctx context.Context, addr string) error {
	transport, err := netio.Dial(ctx, addr, c.cfg.Network, c.log)
	if err != nil {
		return err
	}

	s := New(c.cfg, c.spec, transport, c.log)
	for _, hook := range c.hooks {
		hook(s)
	}
	defer s.Close()
	return s.Run(ctx)
}

// retryable: only transport failures earn a reconnect. Kicks, handshake
// violations and framing corruption mean the server does not want us back
// as-is.
func retryable(err error) bool {
	var te *netio.TransportError
	return errors.As(err, &te)
}
