package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hitoshi/remindo/internal/model"
)

// setupRedis はFLUSHDB済みのRedisクライアントを返す。
// 接続できない場合はテストをスキップする。
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("テスト用Redisに接続できません（スキップ）: %v", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		client.Close()
		t.Fatalf("failed to flush redis DB: %v", err)
	}
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

func TestRedisRepositories_Contract(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) *Repositories {
		return NewRedisRepositories(setupRedis(t))
	})
}

// JSON表現を経由しても値が保持されることを検証
func TestRedisItemEncoding_PreservesNullableFields(t *testing.T) {
	scheduled := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)
	item := &model.Item{
		ID:          "i1",
		Type:        model.ItemTypeReminder,
		Title:       "call",
		ScheduledAt: &scheduled,
		CreatedAt:   scheduled,
		UpdatedAt:   scheduled,
	}

	data, err := encodeItem(item)
	if err != nil {
		t.Fatalf("encodeItem failed: %v", err)
	}
	got, err := decodeItem(data)
	if err != nil {
		t.Fatalf("decodeItem failed: %v", err)
	}
	if got.Deadline != nil || got.TelegramChatID != nil {
		t.Errorf("nil fields must stay nil: %+v", got)
	}
	if got.ScheduledAt == nil || !got.ScheduledAt.Equal(scheduled) {
		t.Errorf("ScheduledAt = %v, want %v", got.ScheduledAt, scheduled)
	}
	if got.Tags == nil {
		t.Error("Tags must be non-nil")
	}
}

func TestRedisKeys(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{redisItemKey("a"), "remindo:item:a"},
		{redisTagKey("work"), "remindo:tag:work"},
		{redisReminderKey("r"), "remindo:reminder:r"},
		{redisItemRemindersKey("a"), "remindo:reminders:item:a"},
		{redisUserKey("u"), "remindo:user:u"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("key = %q, want %q", tt.got, tt.want)
		}
	}
}
