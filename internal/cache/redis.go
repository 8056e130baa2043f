// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/falseshow/internal/config"
	"github.com/jason-s-yu/falseshow/internal/game"
	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list the historian consumes.
const DefaultQueueName = "falseshow_actions"

// ActionGameOver is logged once when a table's game ends.
const ActionGameOver = "game_over"

// SnapshotTTL bounds how long an abandoned table's snapshot survives.
const SnapshotTTL = 24 * time.Hour

var (
	ErrNotConnected = errors.New("redis not connected")
	ErrNoSnapshot   = errors.New("no snapshot stored for table")
)

// GameActionRecord is one entry in a table's action log.
type GameActionRecord struct {
	TableID       uuid.UUID              `json:"table_id"`
	ActionIndex   int                    `json:"action_index"`
	ActorID       string                 `json:"actor_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// ConnectRedis initializes the global Redis client from REDIS_ADDR
// (default "localhost:6379") and REDIS_DB (default 0).
func ConnectRedis() error {
	addr := config.GetEnv("REDIS_ADDR", "localhost:6379")

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   config.GetEnvInt("REDIS_DB", 0),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// QueueName is the configured historian queue.
func QueueName() string {
	return config.GetEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName)
}

// PublishGameAction pushes the record onto the historian queue.
func PublishGameAction(ctx context.Context, record GameActionRecord) error {
	if Rdb == nil {
		return ErrNotConnected
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal GameActionRecord: %w", err)
	}

	queueName := QueueName()
	if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
	}
	return nil
}

func snapshotKey(tableID uuid.UUID) string {
	return "falseshow:table:" + tableID.String() + ":snapshot"
}

// SnapshotChannel is the pub/sub channel announcing new snapshots of a table.
func SnapshotChannel(tableID uuid.UUID) string {
	return "falseshow:table:" + tableID.String()
}

// PublishSnapshot stores the serialized engine under the table's key and
// announces it on the table's channel.
func PublishSnapshot(ctx context.Context, tableID uuid.UUID, snap game.Snapshot) error {
	if Rdb == nil {
		return ErrNotConnected
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = Rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, snapshotKey(tableID), data, SnapshotTTL)
		pipe.Publish(ctx, SnapshotChannel(tableID), data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish snapshot for table %s: %w", tableID, err)
	}
	return nil
}

// LoadSnapshot fetches the last snapshot stored for a table.
func LoadSnapshot(ctx context.Context, tableID uuid.UUID) (game.Snapshot, error) {
	var snap game.Snapshot
	if Rdb == nil {
		return snap, ErrNotConnected
	}
	data, err := Rdb.Get(ctx, snapshotKey(tableID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return snap, ErrNoSnapshot
	}
	if err != nil {
		return snap, fmt.Errorf("failed to load snapshot for table %s: %w", tableID, err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("failed to decode snapshot for table %s: %w", tableID, err)
	}
	return snap, nil
}

// DeleteSnapshot drops a finished table's snapshot.
func DeleteSnapshot(ctx context.Context, tableID uuid.UUID) error {
	if Rdb == nil {
		return ErrNotConnected
	}
	return Rdb.Del(ctx, snapshotKey(tableID)).Err()
}
