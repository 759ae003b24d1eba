// Package inventory asks the container runtime which containers it manages.
// The result is informational; process classification never depends on it.
package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"go.uber.org/zap"
)

// Container is one runtime-managed container.
type Container struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Image   string `json:"image"`
	State   string `json:"state"`
	Status  string `json:"status"`
	Created int64  `json:"created"`
}

// Lister lists containers through the Docker Engine API.
type Lister struct {
	cli    *client.Client
	logger *zap.Logger
}

// New creates a Lister. An empty host uses DOCKER_HOST or the default socket.
func New(host string, logger *zap.Logger) (*Lister, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	return &Lister{cli: cli, logger: logger}, nil
}

// List returns every container known to the runtime, stopped ones included.
func (l *Lister) List(ctx context.Context) ([]Container, error) {
	list, err := l.cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("listing containers: %w", err)
	}

	containers := make([]Container, 0, len(list))
	for _, c := range list {
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		id := c.ID
		if len(id) > 12 {
			id = id[:12]
		}
		containers = append(containers, Container{
			ID:      id,
			Name:    name,
			Image:   c.Image,
			State:   c.State,
			Status:  c.Status,
			Created: c.Created,
		})
	}

	l.logger.Debug("Listed runtime containers", zap.Int("count", len(containers)))
	return containers, nil
}

// Close releases the client's connections.
func (l *Lister) Close() error {
	return l.cli.Close()
}
