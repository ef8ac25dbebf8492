package repository

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/hitoshi/remindo/internal/model"
)

// RedisItemRepo はRedisを使用したアイテムリポジトリ。
type RedisItemRepo struct {
	client *redis.Client
}

// NewRedisItemRepo はRedisItemRepoを生成する。
func NewRedisItemRepo(client *redis.Client) *RedisItemRepo {
	return &RedisItemRepo{client: client}
}

// FindByID は指定IDのアイテムを取得する。見つからない場合はnilを返す。
func (r *RedisItemRepo) FindByID(ctx context.Context, id string) (*model.Item, error) {
	data, err := r.client.Get(ctx, redisItemKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("アイテムの取得に失敗しました: %w", err)
	}
	return decodeItem(data)
}

// List は全アイテムを挿入順で返す。
func (r *RedisItemRepo) List(ctx context.Context) ([]*model.Item, error) {
	records, err := listOrdered(ctx, r.client, redisItemsKey, redisItemKey)
	if err != nil {
		return nil, fmt.Errorf("アイテム一覧の取得に失敗しました: %w", err)
	}
	items := make([]*model.Item, 0, len(records))
	for _, data := range records {
		item, err := decodeItem(data)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Save はアイテムをUPSERTし、未登録のタグを同一のMULTIで登録する。
// ZADD NXのため既存IDの挿入順スコアは変わらない。
func (r *RedisItemRepo) Save(ctx context.Context, item *model.Item) error {
	data, err := encodeItem(item)
	if err != nil {
		return err
	}

	first, err := reserveSeq(ctx, r.client, len(item.Tags)+1)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisItemKey(item.ID), data, 0)
		pipe.ZAddNX(ctx, redisItemsKey, &redis.Z{Score: first, Member: item.ID})
		return queueTagRegistration(ctx, pipe, item.Tags, first+1, item.UpdatedAt)
	})
	if err != nil {
		return fmt.Errorf("アイテムの保存に失敗しました: %w", err)
	}
	return nil
}

// Update はアイテムのキーをWATCHし、読み込み・変更・書き戻しを楽観ロックで行う。
// 競合した場合は最新の値に対してfnを再適用する。
func (r *RedisItemRepo) Update(ctx context.Context, id string, fn func(item *model.Item)) (*model.Item, error) {
	key := redisItemKey(id)
	var updated *model.Item

	txf := func(tx *redis.Tx) error {
		updated = nil
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}

		item, err := decodeItem(data)
		if err != nil {
			return err
		}
		fn(item)
		item.ID = id

		encoded, err := encodeItem(item)
		if err != nil {
			return err
		}
		first, err := reserveSeq(ctx, tx, len(item.Tags))
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return queueTagRegistration(ctx, pipe, item.Tags, first, item.UpdatedAt)
		})
		if err == nil {
			updated = item
		}
		return err
	}

	if err := withWatch(ctx, r.client, txf, key); err != nil {
		return nil, fmt.Errorf("アイテムの更新に失敗しました: %w", err)
	}
	return updated, nil
}

// Delete はアイテムと紐づくリマインダーを同一のMULTIで削除する。
func (r *RedisItemRepo) Delete(ctx context.Context, id string) (bool, error) {
	key := redisItemKey(id)
	remindersKey := redisItemRemindersKey(id)
	var deleted bool

	txf := func(tx *redis.Tx) error {
		deleted = false
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return nil
		}

		reminderIDs, err := tx.SMembers(ctx, remindersKey).Result()
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, redisItemsKey, id)
			for _, rid := range reminderIDs {
				pipe.Del(ctx, redisReminderKey(rid))
				pipe.ZRem(ctx, redisRemindersKey, rid)
			}
			pipe.Del(ctx, remindersKey)
			return nil
		})
		if err == nil {
			deleted = true
		}
		return err
	}

	if err := withWatch(ctx, r.client, txf, key, remindersKey); err != nil {
		return false, fmt.Errorf("アイテムの削除に失敗しました: %w", err)
	}
	return deleted, nil
}

// compile-time interface check
var _ ItemRepository = (*RedisItemRepo)(nil)
