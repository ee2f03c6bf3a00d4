package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

// Broker owns the NATS connection and its JetStream handle.
type Broker struct {
	conn *nats.Conn
	js   jetstream.JetStream
	cfg  Config
	log  *zap.Logger
}

func (b *Broker) Conn() *nats.Conn               { return b.conn }
func (b *Broker) JetStream() jetstream.JetStream { return b.js }

func (b *Broker) options(serviceName string) []nats.Option {
	name := b.cfg.Name
	if name == "" {
		name = serviceName
	}
	opts := []nats.Option{
		nats.Name(name),
		nats.Timeout(b.cfg.ConnectTimeout),
		nats.ReconnectWait(b.cfg.ReconnectWait),
		nats.MaxReconnects(b.cfg.MaxReconnects),
		nats.RetryOnFailedConnect(false),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				b.log.Warn("disconnected from nats", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			b.log.Info("reconnected to nats", zap.String("url", c.ConnectedUrlRedacted()))
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			b.log.Info("nats connection closed")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			fields := []zap.Field{zap.Error(err)}
			if sub != nil {
				fields = append(fields, zap.String("subject", sub.Subject))
			}
			b.log.Error("nats async error", fields...)
		}),
	}
	switch {
	case b.cfg.Token != "":
		opts = append(opts, nats.Token(b.cfg.Token))
	case b.cfg.User != "":
		opts = append(opts, nats.UserInfo(b.cfg.User, b.cfg.Password))
	}
	return opts
}

func connect(ctx context.Context, cfg Config, serviceName string, log *zap.Logger) (*Broker, error) {
	b := &Broker{cfg: cfg, log: log}

	type result struct {
		conn *nats.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := nats.Connect(cfg.URL, b.options(serviceName)...)
		done <- result{conn, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		return nil, fmt.Errorf("connect to nats: %w", ctx.Err())
	}
	if res.err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", cfg.URL, res.err)
	}

	js, err := jetstream.New(res.conn)
	if err != nil {
		res.conn.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	infoCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	account, err := js.AccountInfo(infoCtx)
	if err != nil {
		res.conn.Close()
		return nil, fmt.Errorf("jetstream is not available: %w", err)
	}

	b.conn, b.js = res.conn, js
	log.Info("connected to nats",
		zap.String("url", res.conn.ConnectedUrlRedacted()),
		zap.String("server_id", res.conn.ConnectedServerId()),
		zap.Int("streams", account.Streams),
		zap.Int("consumers", account.Consumers))
	return b, nil
}

// close drains the connection so pending acks and publishes are flushed.
func (b *Broker) close(ctx context.Context) error {
	if b.conn == nil || b.conn.IsClosed() {
		return nil
	}
	closed := make(chan struct{})
	b.conn.SetClosedHandler(func(*nats.Conn) { close(closed) })

	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
		return fmt.Errorf("drain nats connection: %w", err)
	}

	timeout := time.NewTimer(b.cfg.DrainTimeout)
	defer timeout.Stop()
	select {
	case <-closed:
	case <-timeout.C:
		b.conn.Close()
	case <-ctx.Done():
		b.conn.Close()
	}
	b.log.Info("disconnected from nats")
	return nil
}
