// Package testutil provides helpers for integration tests that need a
// real backing server. Each helper skips the test unless the matching
// environment variable points at a reachable instance, so the default
// `go test ./...` run stays hermetic.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RedisClient connects to the Redis instance named by PIPEVINE_TEST_REDIS_ADDR
// (for example "localhost:6379") and skips the test when unset or unreachable.
func RedisClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("PIPEVINE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PIPEVINE_TEST_REDIS_ADDR not set; skipping Redis integration test")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis at %s not reachable: %v", addr, err)
	}

	return client
}

// MongoClient connects to the MongoDB instance named by PIPEVINE_TEST_MONGO_URI
// (for example "mongodb://localhost:27017") and skips the test when unset or
// unreachable.
func MongoClient(t *testing.T) *mongo.Client {
	t.Helper()

	uri := os.Getenv("PIPEVINE_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("PIPEVINE_TEST_MONGO_URI not set; skipping MongoDB integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Skipf("MongoDB at %s not reachable: %v", uri, err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client.Disconnect(ctx)
	})

	if err := client.Ping(ctx, nil); err != nil {
		t.Skipf("MongoDB at %s not reachable: %v", uri, err)
	}

	return client
}
