//go:build integration

package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const amqpPort = nat.Port("5672/tcp")

// startBroker runs a throwaway RabbitMQ and returns its AMQP URL. The
// container is terminated when the test ends.
func startBroker(t require.TestingT, ctx context.Context, cleanup func(func())) string {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-alpine",
			ExposedPorts: []string{string(amqpPort)},
			WaitingFor: wait.ForAll(
				wait.ForLog("Server startup complete"),
				wait.ForListeningPort(amqpPort),
			).WithDeadline(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, amqpPort)
	require.NoError(t, err)

	return fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())
}
