// Package redis
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Feed keeps a short per-owner stream of deployment activity, capped so
// abandoned owners don't grow unbounded.
type Feed struct {
	redis  *redis.Client
	maxLen int64
}

func NewFeed(r *redis.Client, maxLen int64) *Feed {
	if maxLen <= 0 {
		maxLen = 100
	}
	return &Feed{redis: r, maxLen: maxLen}
}

func streamKey(ownerID string) string {
	return "deployments:activity:" + ownerID
}

func (f *Feed) Append(ctx context.Context, ownerID string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("feed marshal failed: %w", err)
	}

	id, err := f.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey(ownerID),
		Values: map[string]any{
			"data": data,
		},
		MaxLen: f.maxLen,
		Approx: true,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("feed xadd failed: %w", err)
	}

	return id, nil
}

// Recent returns up to limit entries, newest first.
func (f *Feed) Recent(ctx context.Context, ownerID string, limit int64) ([]json.RawMessage, error) {
	msgs, err := f.redis.XRevRangeN(ctx, streamKey(ownerID), "+", "-", limit).Result()
	if err != nil {
		return nil, fmt.Errorf("feed xrevrange failed: %w", err)
	}

	entries := make([]json.RawMessage, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values["data"].(string)
		if !ok {
			continue
		}
		entries = append(entries, json.RawMessage(raw))
	}

	return entries, nil
}

func (f *Feed) Clear(ctx context.Context, ownerID string) error {
	if err := f.redis.Del(ctx, streamKey(ownerID)).Err(); err != nil {
		return fmt.Errorf("feed del failed: %w", err)
	}
	return nil
}
