package container

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SchemaRegistryContainer runs Redpanda, whose built-in schema registry
// speaks the Confluent API.
type SchemaRegistryContainer struct {
	Container testcontainers.Container
	URL       string
}

type SchemaRegistryOption func(*schemaRegistryOptions)

type schemaRegistryOptions struct {
	image string
}

func WithSchemaRegistryImage(image string) SchemaRegistryOption {
	return func(o *schemaRegistryOptions) { o.image = image }
}

func StartSchemaRegistryContainer(ctx context.Context, opts ...SchemaRegistryOption) (*SchemaRegistryContainer, error) {
	o := &schemaRegistryOptions{image: "redpandadata/redpanda:v24.1.1"}
	for _, opt := range opts {
		opt(o)
	}

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        o.image,
			ExposedPorts: []string{"8081/tcp"},
			Cmd: []string{
				"redpanda", "start",
				"--mode", "dev-container",
				"--smp", "1",
				"--memory", "512M",
				"--overprovisioned",
				"--schema-registry-addr", "0.0.0.0:8081",
			},
			WaitingFor: wait.ForHTTP("/subjects").
				WithPort("8081/tcp").
				WithStatusCodeMatcher(func(status int) bool { return status == http.StatusOK }).
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start schema registry container: %w", err)
	}

	endpoint, err := ctr.PortEndpoint(ctx, "8081/tcp", "http")
	if err != nil {
		_ = testcontainers.TerminateContainer(ctr)
		return nil, fmt.Errorf("failed to resolve schema registry endpoint: %w", err)
	}
	return &SchemaRegistryContainer{Container: ctr, URL: endpoint}, nil
}

func (s *SchemaRegistryContainer) Terminate(context.Context) error {
	if s.Container == nil {
		return nil
	}
	return testcontainers.TerminateContainer(s.Container)
}
