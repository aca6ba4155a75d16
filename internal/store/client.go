package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client provides instance-scoped Redis operations for the audit trail.
// All keys and channels are automatically namespaced with the instance name.
// The client is thread-safe and can be used concurrently from multiple
// goroutines.
type Client struct {
	rdb          *redis.Client
	instanceName string
}

// NewClient creates a new audit store client for the specified instance.
// Returns an error if instanceName is empty.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for startup health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// CreateRecord writes an audit record to Redis, indexes it by invocation
// time, and publishes the full record JSON to the record_events channel.
// Validates the record before writing. Idempotent: writing the same record
// twice is safe.
func (c *Client) CreateRecord(ctx context.Context, r *Record) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid record: %w", err)
	}

	hash, err := recordToHash(r)
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}

	key := RecordKey(c.instanceName, r.ID)
	if err := c.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return fmt.Errorf("failed to write record to Redis: %w", err)
	}

	index := RecordIndexKey(c.instanceName)
	member := redis.Z{Score: float64(r.InvokedAtMs), Member: r.ID}
	if err := c.rdb.ZAdd(ctx, index, member).Err(); err != nil {
		return fmt.Errorf("failed to index record: %w", err)
	}

	recordJSON, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal record for event: %w", err)
	}
	channel := RecordEventsChannel(c.instanceName)
	if err := c.rdb.Publish(ctx, channel, recordJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish record event: %w", err)
	}

	return nil
}

// GetRecord retrieves an audit record by ID.
// Returns (nil, redis.Nil) if the record doesn't exist.
// Use IsNotFound() to check for not-found errors.
func (c *Client) GetRecord(ctx context.Context, recordID string) (*Record, error) {
	key := RecordKey(c.instanceName, recordID)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read record from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys.
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	record, err := hashToRecord(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize record: %w", err)
	}

	return record, nil
}

// ListRecords returns the most recent limit records, newest first.
// limit 0 means all records.
func (c *Client) ListRecords(ctx context.Context, limit int) ([]*Record, error) {
	index := RecordIndexKey(c.instanceName)

	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := c.rdb.ZRevRange(ctx, index, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read record index: %w", err)
	}

	records := make([]*Record, 0, len(ids))
	for _, id := range ids {
		record, err := c.GetRecord(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				// Index entry outliving its record is not worth failing a
				// listing over.
				continue
			}
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

// IsNotFound checks if an error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
