package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/mindsetu-api/internal/models"
)

const chatKeyPrefix = "chat:history:"

// ChatHistoryRepository keeps the rolling companion transcript of each user in a Redis list.
type ChatHistoryRepository struct {
	client   *redis.Client
	maxTurns int
	ttl      time.Duration
}

// NewChatHistoryRepository constructs the repository. maxTurns counts messages of both roles
// and is rounded up to an even number so a trimmed transcript still opens with a user turn.
func NewChatHistoryRepository(client *redis.Client, maxTurns int, ttl time.Duration) *ChatHistoryRepository {
	if maxTurns <= 0 {
		maxTurns = 20
	}
	if maxTurns%2 != 0 {
		maxTurns++
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ChatHistoryRepository{client: client, maxTurns: maxTurns, ttl: ttl}
}

func chatKey(userID string) string {
	return chatKeyPrefix + userID
}

// History returns the stored transcript oldest first. Without Redis it is always empty.
func (r *ChatHistoryRepository) History(ctx context.Context, userID string) ([]models.ChatMessage, error) {
	if r.client == nil {
		return nil, nil
	}
	raw, err := r.client.LRange(ctx, chatKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange chat history: %w", err)
	}
	messages := make([]models.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var msg models.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Append pushes messages, trims the list to the newest maxTurns and refreshes the TTL.
func (r *ChatHistoryRepository) Append(ctx context.Context, userID string, messages ...models.ChatMessage) error {
	if r.client == nil || len(messages) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(messages))
	for _, msg := range messages {
		payload, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal chat message: %w", err)
		}
		values = append(values, payload)
	}
	key := chatKey(userID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.LTrim(ctx, key, int64(-r.maxTurns), -1)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis append chat history: %w", err)
	}
	return nil
}

// Clear drops the transcript of a user.
func (r *ChatHistoryRepository) Clear(ctx context.Context, userID string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, chatKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete chat history: %w", err)
	}
	return nil
}
