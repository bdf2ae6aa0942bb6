package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/queue-health-probe/internal/probe"
)

// RedisMessageStore is a probe.MessageStore shared by every instance that
// points at the same Redis, so an echo consumed by instance B still confirms
// a message published by instance A.
//
// Layout under prefix:
//
//	pending:<id>      hash {messageId, content, createdAt, received, receivedAt}
//	pending:index     zset of ids scored by createdAt (unix ms)
//	received:<id>     JSON encoded probe.ReceivedEntry
//	received:index    zset of ids scored by receivedAt (unix ms)
type RedisMessageStore struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisMessageStore(rdb *redis.Client, prefix string) *RedisMessageStore {
	return &RedisMessageStore{rdb: rdb, prefix: prefix + ":queue:", now: time.Now}
}

func (s *RedisMessageStore) pendingKey(id string) string  { return s.prefix + "pending:" + id }
func (s *RedisMessageStore) receivedKey(id string) string { return s.prefix + "received:" + id }
func (s *RedisMessageStore) pendingIndex() string         { return s.prefix + "pending:index" }
func (s *RedisMessageStore) receivedIndex() string        { return s.prefix + "received:index" }

func (s *RedisMessageStore) RegisterPending(ctx context.Context, correlationID, messageID, content string) error {
	now := s.now()
	key := s.pendingKey(correlationID)
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key,
			"messageId", messageID,
			"content", content,
			"createdAt", now.UnixNano(),
			"received", "0",
		)
		p.ZAdd(ctx, s.pendingIndex(), redis.Z{Score: float64(now.UnixMilli()), Member: correlationID})
		return nil
	})
	return err
}

// MarkReceived flips the received flag only if the pending hash still
// exists; the WATCH keeps a concurrent sweep from resurrecting a partial hash.
func (s *RedisMessageStore) MarkReceived(ctx context.Context, correlationID string, at time.Time) (bool, error) {
	key := s.pendingKey(correlationID)
	for i := 0; i < 3; i++ {
		updated := false
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			n, err := tx.Exists(ctx, key).Result()
			if err != nil || n == 0 {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.HSet(ctx, key, "received", "1", "receivedAt", at.UnixNano())
				return nil
			})
			updated = err == nil
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return updated, err
	}
	return false, fmt.Errorf("mark %s received: %w", correlationID, redis.TxFailedErr)
}

func (s *RedisMessageStore) RecordReceived(ctx context.Context, correlationID string, entry probe.ReceivedEntry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode received entry: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.receivedKey(correlationID), body, 0)
		p.ZAdd(ctx, s.receivedIndex(), redis.Z{Score: float64(entry.ReceivedAt.UnixMilli()), Member: correlationID})
		return nil
	})
	return err
}

func (s *RedisMessageStore) IsReceived(ctx context.Context, correlationID string) (bool, error) {
	v, err := s.rdb.HGet(ctx, s.pendingKey(correlationID), "received").Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == "1", nil
}

func (s *RedisMessageStore) Received(ctx context.Context, correlationID string) (probe.ReceivedEntry, bool, error) {
	body, err := s.rdb.Get(ctx, s.receivedKey(correlationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return probe.ReceivedEntry{}, false, nil
	}
	if err != nil {
		return probe.ReceivedEntry{}, false, err
	}
	var e probe.ReceivedEntry
	if err := json.Unmarshal(body, &e); err != nil {
		return probe.ReceivedEntry{}, false, fmt.Errorf("decode received entry: %w", err)
	}
	return e, true, nil
}

// pendingEntry loads the pending entry for correlationID.
func (s *RedisMessageStore) pendingEntry(ctx context.Context, correlationID string) (probe.PendingEntry, bool, error) {
	m, err := s.rdb.HGetAll(ctx, s.pendingKey(correlationID)).Result()
	if err != nil {
		return probe.PendingEntry{}, false, err
	}
	if len(m) == 0 {
		return probe.PendingEntry{}, false, nil
	}
	e := probe.PendingEntry{
		MessageID: m["messageId"],
		Content:   m["content"],
		CreatedAt: unixNano(m["createdAt"]),
		Received:  m["received"] == "1",
	}
	if v, ok := m["receivedAt"]; ok {
		e.ReceivedAt = unixNano(v)
	}
	return e, true, nil
}

func (s *RedisMessageStore) Counts(ctx context.Context) (int, int, error) {
	pipe := s.rdb.Pipeline()
	p := pipe.ZCard(ctx, s.pendingIndex())
	r := pipe.ZCard(ctx, s.receivedIndex())
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}
	return int(p.Val()), int(r.Val()), nil
}

// Sweep removes ids whose index score is strictly older than now-retention.
func (s *RedisMessageStore) Sweep(ctx context.Context, retention time.Duration, now time.Time) (probe.SweepResult, error) {
	cutoff := "(" + strconv.FormatInt(now.Add(-retention).UnixMilli(), 10)
	var res probe.SweepResult

	n, err := s.sweepIndex(ctx, s.pendingIndex(), cutoff, s.pendingKey)
	if err != nil {
		return res, err
	}
	res.Pending = n

	n, err = s.sweepIndex(ctx, s.receivedIndex(), cutoff, s.receivedKey)
	if err != nil {
		return res, err
	}
	res.Received = n
	return res, nil
}

func (s *RedisMessageStore) sweepIndex(ctx context.Context, index, cutoff string, keyOf func(string) string) (int, error) {
	ids, err := s.rdb.ZRangeByScore(ctx, index, &redis.ZRangeBy{Min: "-inf", Max: cutoff}).Result()
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	members := make([]interface{}, len(ids))
	keys := make([]string, len(ids))
	for i, id := range ids {
		members[i] = id
		keys[i] = keyOf(id)
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, keys...)
		p.ZRem(ctx, index, members...)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func unixNano(s string) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

var _ probe.MessageStore = (*RedisMessageStore)(nil)
