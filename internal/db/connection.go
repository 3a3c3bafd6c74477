package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

var (
	mu     sync.Mutex
	client *mongo.Client
)

// Connect dials the document database and verifies the connection with a ping.
// Initialization is idempotent per process: the first successful call wins,
// later calls return the same client regardless of the uri they pass.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	mu.Lock()
	defer mu.Unlock()

	if client != nil {
		return client, nil
	}

	c, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("can't initialize mongo client. Err: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := c.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = c.Disconnect(ctx)
		return nil, fmt.Errorf("can't reach mongo. Err: %w", err)
	}

	client = c
	return client, nil
}

// Client returns the process-wide client or nil when Connect never succeeded.
func Client() *mongo.Client {
	mu.Lock()
	defer mu.Unlock()
	return client
}

// Disconnect closes the process-wide client. Meant for shutdown paths only.
func Disconnect(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()

	if client == nil {
		return nil
	}

	err := client.Disconnect(ctx)
	client = nil
	return err
}
