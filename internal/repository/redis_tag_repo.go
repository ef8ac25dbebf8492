package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/hitoshi/remindo/internal/model"
)

// RedisTagRepo はRedisを使用したタグリポジトリ。
type RedisTagRepo struct {
	client *redis.Client
}

// NewRedisTagRepo はRedisTagRepoを生成する。
func NewRedisTagRepo(client *redis.Client) *RedisTagRepo {
	return &RedisTagRepo{client: client}
}

// FindByName は指定名のタグを取得する。見つからない場合はnilを返す。
func (r *RedisTagRepo) FindByName(ctx context.Context, name string) (*model.Tag, error) {
	data, err := r.client.Get(ctx, redisTagKey(name)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("タグの取得に失敗しました: %w", err)
	}
	return decodeTag(data)
}

// List は全タグを登録順で返す。
func (r *RedisTagRepo) List(ctx context.Context) ([]*model.Tag, error) {
	records, err := listOrdered(ctx, r.client, redisTagsKey, redisTagKey)
	if err != nil {
		return nil, fmt.Errorf("タグ一覧の取得に失敗しました: %w", err)
	}
	tags := make([]*model.Tag, 0, len(records))
	for _, data := range records {
		tag, err := decodeTag(data)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// Register は未登録のタグ名を作成する。
func (r *RedisTagRepo) Register(ctx context.Context, names []string, now time.Time) error {
	if len(names) == 0 {
		return nil
	}
	first, err := reserveSeq(ctx, r.client, len(names))
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		return queueTagRegistration(ctx, pipe, names, first, now)
	})
	if err != nil {
		return fmt.Errorf("タグの登録に失敗しました: %w", err)
	}
	return nil
}

// DeleteOrphans はどのアイテムからも参照されていないタグを削除する。
// アイテム一覧をWATCHし、走査中にアイテムが追加・削除された場合は再試行する。
func (r *RedisTagRepo) DeleteOrphans(ctx context.Context) (int64, error) {
	var deleted int64

	txf := func(tx *redis.Tx) error {
		deleted = 0
		records, err := listOrdered(ctx, r.client, redisItemsKey, redisItemKey)
		if err != nil {
			return err
		}
		used := make(map[string]struct{})
		for _, data := range records {
			item, err := decodeItem(data)
			if err != nil {
				return err
			}
			for _, tag := range item.Tags {
				used[tag] = struct{}{}
			}
		}

		names, err := tx.ZRange(ctx, redisTagsKey, 0, -1).Result()
		if err != nil {
			return err
		}
		var orphans []string
		for _, name := range names {
			if _, ok := used[name]; !ok {
				orphans = append(orphans, name)
			}
		}
		if len(orphans) == 0 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, name := range orphans {
				pipe.Del(ctx, redisTagKey(name))
				pipe.ZRem(ctx, redisTagsKey, name)
			}
			return nil
		})
		if err == nil {
			deleted = int64(len(orphans))
		}
		return err
	}

	if err := withWatch(ctx, r.client, txf, redisItemsKey, redisTagsKey); err != nil {
		return 0, fmt.Errorf("未使用タグの削除に失敗しました: %w", err)
	}
	return deleted, nil
}

// compile-time interface check
var _ TagRepository = (*RedisTagRepo)(nil)
