package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hitoshi/remindo/internal/model"
)

// Redisのキー構成:
//
//	remindo:seq                     挿入順スコア用のカウンタ
//	remindo:item:<id>               アイテムのJSON
//	remindo:items                   アイテムID（ZSET、スコア=挿入順）
//	remindo:tag:<name>              タグのJSON
//	remindo:tags                    タグ名（ZSET）
//	remindo:reminder:<id>           リマインダーのJSON
//	remindo:reminders               リマインダーID（ZSET）
//	remindo:reminders:item:<itemID> アイテムに紐づくリマインダーID（SET）
//	remindo:user:<id>               ユーザーのJSON
//	remindo:users                   ユーザーID（ZSET）
const (
	redisSeqKey       = "remindo:seq"
	redisItemsKey     = "remindo:items"
	redisTagsKey      = "remindo:tags"
	redisRemindersKey = "remindo:reminders"
	redisUsersKey     = "remindo:users"
)

// redisMaxRetries はWATCHの競合時に読み込み・変更・書き戻しを再試行する回数。
const redisMaxRetries = 16

func redisItemKey(id string) string { return "remindo:item:" + id }

func redisTagKey(name string) string { return "remindo:tag:" + name }

func redisReminderKey(id string) string { return "remindo:reminder:" + id }

func redisItemRemindersKey(itemID string) string { return "remindo:reminders:item:" + itemID }

func redisUserKey(id string) string { return "remindo:user:" + id }

// NewRedisRepositories はRedisを使用したリポジトリ一式を生成する。
func NewRedisRepositories(client *redis.Client) *Repositories {
	return &Repositories{
		Items:     NewRedisItemRepo(client),
		Tags:      NewRedisTagRepo(client),
		Reminders: NewRedisReminderRepo(client),
		Users:     NewRedisUserRepo(client),
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		Close: client.Close,
	}
}

// withWatch はkeysをWATCHしてtxfを実行し、楽観ロックの競合時は再試行する。
func withWatch(ctx context.Context, client *redis.Client, txf func(tx *redis.Tx) error, keys ...string) error {
	for i := 0; i < redisMaxRetries; i++ {
		err := client.Watch(ctx, txf, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("redis transaction retries exhausted for %v", keys)
}

// listOrdered はZSETの挿入順にIDを取得し、JSONをまとめて読み込む。
func listOrdered(ctx context.Context, client *redis.Client, setKey string, keyFn func(string) string) ([][]byte, error) {
	ids, err := client.ZRange(ctx, setKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, keyFn(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	out := make([][]byte, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

// incrementer は*redis.Clientと*redis.Txの共通インターフェース。
type incrementer interface {
	IncrBy(ctx context.Context, key string, value int64) *redis.IntCmd
}

// reserveSeq は挿入順スコアをn個分予約し、先頭のスコアを返す。
func reserveSeq(ctx context.Context, c incrementer, n int) (float64, error) {
	last, err := c.IncrBy(ctx, redisSeqKey, int64(n)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to reserve sequence: %w", err)
	}
	return float64(last - int64(n) + 1), nil
}

// queueTagRegistration は未登録タグの作成コマンドをパイプラインに積む。
// SETNX/ZADD NXのため既存タグには影響しない。
func queueTagRegistration(ctx context.Context, pipe redis.Pipeliner, names []string, first float64, now time.Time) error {
	for i, name := range names {
		data, err := json.Marshal(redisTag{Name: name, CreatedAt: now})
		if err != nil {
			return err
		}
		pipe.SetNX(ctx, redisTagKey(name), data, 0)
		pipe.ZAddNX(ctx, redisTagsKey, &redis.Z{Score: first + float64(i), Member: name})
	}
	return nil
}

// redisItem はRedisに保存するアイテムのJSON表現。
type redisItem struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	Title          string     `json:"title"`
	Details        string     `json:"details"`
	Tags           []string   `json:"tags"`
	TelegramChatID *string    `json:"telegramChatId,omitempty"`
	ScheduledAt    *time.Time `json:"scheduledAt,omitempty"`
	Deadline       *time.Time `json:"deadline,omitempty"`
	Completed      bool       `json:"completed"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func encodeItem(item *model.Item) ([]byte, error) {
	return json.Marshal(redisItem{
		ID:             item.ID,
		Type:           string(item.Type),
		Title:          item.Title,
		Details:        item.Details,
		Tags:           nonNilTags(item.Tags),
		TelegramChatID: item.TelegramChatID,
		ScheduledAt:    item.ScheduledAt,
		Deadline:       item.Deadline,
		Completed:      item.Completed,
		CreatedAt:      item.CreatedAt,
		UpdatedAt:      item.UpdatedAt,
	})
}

func decodeItem(data []byte) (*model.Item, error) {
	var rec redisItem
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}
	item := &model.Item{
		ID:             rec.ID,
		Type:           model.ItemType(rec.Type),
		Title:          rec.Title,
		Details:        rec.Details,
		Tags:           nonNilTags(rec.Tags),
		TelegramChatID: rec.TelegramChatID,
		ScheduledAt:    utcPtr(rec.ScheduledAt),
		Deadline:       utcPtr(rec.Deadline),
		Completed:      rec.Completed,
		CreatedAt:      rec.CreatedAt.UTC(),
		UpdatedAt:      rec.UpdatedAt.UTC(),
	}
	return item, nil
}

// redisTag はRedisに保存するタグのJSON表現。
type redisTag struct {
	Name      string    `json:"name"`
	Color     *string   `json:"color,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func decodeTag(data []byte) (*model.Tag, error) {
	var rec redisTag
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode tag: %w", err)
	}
	return &model.Tag{Name: rec.Name, Color: rec.Color, CreatedAt: rec.CreatedAt.UTC()}, nil
}

// redisReminder はRedisに保存するリマインダーのJSON表現。
type redisReminder struct {
	ID             string    `json:"id"`
	ItemID         string    `json:"itemId"`
	TelegramChatID string    `json:"telegramChatId"`
	ScheduledTime  time.Time `json:"scheduledTime"`
	Sent           bool      `json:"sent"`
	CreatedAt      time.Time `json:"createdAt"`
}

func encodeReminder(rem *model.Reminder) ([]byte, error) {
	return json.Marshal(redisReminder(*rem))
}

func decodeReminder(data []byte) (*model.Reminder, error) {
	var rec redisReminder
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode reminder: %w", err)
	}
	rem := model.Reminder(rec)
	rem.ScheduledTime = rem.ScheduledTime.UTC()
	rem.CreatedAt = rem.CreatedAt.UTC()
	return &rem, nil
}

// redisUser はRedisに保存するユーザーのJSON表現。
type redisUser struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          *string   `json:"email,omitempty"`
	TelegramChatID *string   `json:"telegramChatId,omitempty"`
	Timezone       *string   `json:"timezone,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func encodeUser(user *model.User) ([]byte, error) {
	return json.Marshal(redisUser(*user))
}

func decodeUser(data []byte) (*model.User, error) {
	var rec redisUser
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	user := model.User(rec)
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return &user, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
