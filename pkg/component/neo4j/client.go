// Package neo4j provides a Neo4j graph database client component.
package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
)

// Client wraps a Neo4j driver.
type Client struct {
	driver neo4j.DriverWithContext
	opts   *Options
}

// New creates a new Neo4j client from the provided options.
func New(opts *Options) (*Client, error) {
	return NewWithContext(context.Background(), opts)
}

// NewWithContext creates a new Neo4j client and verifies connectivity.
func NewWithContext(ctx context.Context, opts *Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("neo4j options cannot be nil")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid neo4j options: %w", err)
	}

	driver, err := neo4j.NewDriverWithContext(
		opts.URI,
		neo4j.BasicAuth(opts.Username, opts.Password, ""),
		func(c *config.Config) {
			c.MaxConnectionPoolSize = opts.MaxConnectionPoolSize
			c.ConnectionAcquisitionTimeout = opts.ConnectionTimeout
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	client := &Client{driver: driver, opts: opts}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, fmt.Errorf("failed to verify neo4j connectivity: %w", err)
	}
	return client, nil
}

// Driver returns the underlying driver instance.
func (c *Client) Driver() neo4j.DriverWithContext {
	return c.driver
}

// Database returns the configured database name.
func (c *Client) Database() string {
	return c.opts.Database
}

// Ping verifies connectivity to the Neo4j server.
func (c *Client) Ping(ctx context.Context) error {
	if c.driver == nil {
		return fmt.Errorf("neo4j driver is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, c.opts.ConnectionTimeout)
	defer cancel()
	return c.driver.VerifyConnectivity(ctx)
}

// Close closes the driver and releases all connections.
func (c *Client) Close(ctx context.Context) error {
	if c.driver == nil {
		return nil
	}
	return c.driver.Close(ctx)
}
