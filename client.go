package crestdb

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// Client is the entry point for interacting with a CrestDB server. It is
// safe for concurrent use; the type registry supports concurrent inserts
// while registration is exclusive per type.
type Client struct {
	config    *Config
	transport Transport
	registry  *typeRegistry
	logger    *slog.Logger
}

// NewClient creates a client for the given config.
func NewClient(config *Config) *Client {
	return newClient(config, NewHTTPTransport(config))
}

func newClient(config *Config, transport Transport) *Client {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		config:    config,
		transport: transport,
		registry:  newTypeRegistry(),
		logger:    logger,
	}
}

// Close closes the client.
//
// You don't typically need to call this as the garbage collector will release
// the resources when the client is no longer referenced. However, it can be
// useful to call this if you want to release the resources immediately.
func (c *Client) Close() {
	c.transport.Close()
}

// Ping checks that the server is alive.
func (c *Client) Ping(ctx context.Context) error {
	return c.transport.Ping(ctx)
}

// PingTimeout checks that the server is alive, giving up after timeout.
func (c *Client) PingTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return c.Ping(ctx)
}
