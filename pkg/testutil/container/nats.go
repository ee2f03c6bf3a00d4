package container

import (
	"context"
	"errors"
	"fmt"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/testcontainers/testcontainers-go"
	tcnats "github.com/testcontainers/testcontainers-go/modules/nats"
)

// NATSContainer is a running NATS server with JetStream enabled and a connected client.
type NATSContainer struct {
	Container *tcnats.NATSContainer
	Conn      *natsgo.Conn
	JetStream jetstream.JetStream
	URL       string
}

type NATSOption func(*natsOptions)

type natsOptions struct {
	image string
}

func WithNATSImage(image string) NATSOption {
	return func(o *natsOptions) { o.image = image }
}

func StartNATSContainer(ctx context.Context, opts ...NATSOption) (*NATSContainer, error) {
	o := &natsOptions{image: "nats:2.10"}
	for _, opt := range opts {
		opt(o)
	}

	ctr, err := tcnats.Run(ctx, o.image)
	if err != nil {
		return nil, fmt.Errorf("failed to start nats container: %w", err)
	}
	n := &NATSContainer{Container: ctr}

	if n.URL, err = ctr.ConnectionString(ctx); err != nil {
		return nil, n.abort(fmt.Errorf("failed to get nats url: %w", err))
	}
	if n.Conn, err = natsgo.Connect(n.URL); err != nil {
		return nil, n.abort(fmt.Errorf("failed to connect to nats: %w", err))
	}
	if n.JetStream, err = jetstream.New(n.Conn); err != nil {
		return nil, n.abort(fmt.Errorf("failed to create jetstream context: %w", err))
	}
	return n, nil
}

func (n *NATSContainer) Terminate(ctx context.Context) error {
	if n.Conn != nil {
		n.Conn.Close()
	}
	if n.Container == nil {
		return nil
	}
	if err := testcontainers.TerminateContainer(n.Container); err != nil {
		return fmt.Errorf("failed to terminate nats container: %w", err)
	}
	return nil
}

func (n *NATSContainer) abort(cause error) error {
	return errors.Join(cause, n.Terminate(context.Background()))
}
