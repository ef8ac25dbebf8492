package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hitoshi/remindo/internal/model"
)

// RedisReminderRepo はRedisを使用したリマインダーリポジトリ。
type RedisReminderRepo struct {
	client *redis.Client
}

// NewRedisReminderRepo はRedisReminderRepoを生成する。
func NewRedisReminderRepo(client *redis.Client) *RedisReminderRepo {
	return &RedisReminderRepo{client: client}
}

// FindByID は指定IDのリマインダーを取得する。見つからない場合はnilを返す。
func (r *RedisReminderRepo) FindByID(ctx context.Context, id string) (*model.Reminder, error) {
	data, err := r.client.Get(ctx, redisReminderKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("リマインダーの取得に失敗しました: %w", err)
	}
	return decodeReminder(data)
}

// List は全リマインダーを挿入順で返す。
func (r *RedisReminderRepo) List(ctx context.Context) ([]*model.Reminder, error) {
	records, err := listOrdered(ctx, r.client, redisRemindersKey, redisReminderKey)
	if err != nil {
		return nil, fmt.Errorf("リマインダー一覧の取得に失敗しました: %w", err)
	}
	reminders := make([]*model.Reminder, 0, len(records))
	for _, data := range records {
		rem, err := decodeReminder(data)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, rem)
	}
	return reminders, nil
}

// Save はリマインダーをUPSERTし、アイテムごとの索引に登録する。
// 既存のリマインダーを別アイテムに付け替える場合は旧アイテムの索引から外す。
func (r *RedisReminderRepo) Save(ctx context.Context, rem *model.Reminder) error {
	key := redisReminderKey(rem.ID)
	data, err := encodeReminder(rem)
	if err != nil {
		return err
	}

	txf := func(tx *redis.Tx) error {
		prevItemID := ""
		prev, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == redis.Nil:
		case err != nil:
			return err
		default:
			old, err := decodeReminder(prev)
			if err != nil {
				return err
			}
			prevItemID = old.ItemID
		}

		first, err := reserveSeq(ctx, tx, 1)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.ZAddNX(ctx, redisRemindersKey, &redis.Z{Score: first, Member: rem.ID})
			if prevItemID != "" && prevItemID != rem.ItemID {
				pipe.SRem(ctx, redisItemRemindersKey(prevItemID), rem.ID)
			}
			pipe.SAdd(ctx, redisItemRemindersKey(rem.ItemID), rem.ID)
			return nil
		})
		return err
	}

	if err := withWatch(ctx, r.client, txf, key); err != nil {
		return fmt.Errorf("リマインダーの保存に失敗しました: %w", err)
	}
	return nil
}

// Update はリマインダーのキーをWATCHし、楽観ロックで読み込み・変更・書き戻しを行う。
func (r *RedisReminderRepo) Update(ctx context.Context, id string, fn func(rem *model.Reminder)) (*model.Reminder, error) {
	key := redisReminderKey(id)
	var updated *model.Reminder

	txf := func(tx *redis.Tx) error {
		updated = nil
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}

		rem, err := decodeReminder(data)
		if err != nil {
			return err
		}
		itemID := rem.ItemID
		fn(rem)
		rem.ID = id
		rem.ItemID = itemID

		encoded, err := encodeReminder(rem)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		if err == nil {
			updated = rem
		}
		return err
	}

	if err := withWatch(ctx, r.client, txf, key); err != nil {
		return nil, fmt.Errorf("リマインダーの更新に失敗しました: %w", err)
	}
	return updated, nil
}

// Delete は指定IDのリマインダーを削除する。
func (r *RedisReminderRepo) Delete(ctx context.Context, id string) (bool, error) {
	key := redisReminderKey(id)
	var deleted bool

	txf := func(tx *redis.Tx) error {
		deleted = false
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		rem, err := decodeReminder(data)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			queueReminderDelete(ctx, pipe, rem)
			return nil
		})
		if err == nil {
			deleted = true
		}
		return err
	}

	if err := withWatch(ctx, r.client, txf, key); err != nil {
		return false, fmt.Errorf("リマインダーの削除に失敗しました: %w", err)
	}
	return deleted, nil
}

// DeleteSentBefore は送信済みかつcutoffより前に予定されていたリマインダーを削除する。
func (r *RedisReminderRepo) DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64

	txf := func(tx *redis.Tx) error {
		deleted = 0
		records, err := listOrdered(ctx, r.client, redisRemindersKey, redisReminderKey)
		if err != nil {
			return err
		}
		var targets []*model.Reminder
		for _, data := range records {
			rem, err := decodeReminder(data)
			if err != nil {
				return err
			}
			if rem.Sent && rem.ScheduledTime.Before(cutoff) {
				targets = append(targets, rem)
			}
		}
		if len(targets) == 0 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, rem := range targets {
				queueReminderDelete(ctx, pipe, rem)
			}
			return nil
		})
		if err == nil {
			deleted = int64(len(targets))
		}
		return err
	}

	if err := withWatch(ctx, r.client, txf, redisRemindersKey); err != nil {
		return 0, fmt.Errorf("送信済みリマインダーの削除に失敗しました: %w", err)
	}
	return deleted, nil
}

// queueReminderDelete はリマインダー本体と索引の削除コマンドを積む。
func queueReminderDelete(ctx context.Context, pipe redis.Pipeliner, rem *model.Reminder) {
	pipe.Del(ctx, redisReminderKey(rem.ID))
	pipe.ZRem(ctx, redisRemindersKey, rem.ID)
	pipe.SRem(ctx, redisItemRemindersKey(rem.ItemID), rem.ID)
}

// compile-time interface check
var _ ReminderRepository = (*RedisReminderRepo)(nil)
