package repository

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/hitoshi/remindo/internal/model"
)

// RedisUserRepo はRedisを使用したユーザーリポジトリ。
type RedisUserRepo struct {
	client *redis.Client
}

// NewRedisUserRepo はRedisUserRepoを生成する。
func NewRedisUserRepo(client *redis.Client) *RedisUserRepo {
	return &RedisUserRepo{client: client}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *RedisUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	data, err := r.client.Get(ctx, redisUserKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return decodeUser(data)
}

// List は全ユーザーを挿入順で返す。
func (r *RedisUserRepo) List(ctx context.Context) ([]*model.User, error) {
	records, err := listOrdered(ctx, r.client, redisUsersKey, redisUserKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users := make([]*model.User, 0, len(records))
	for _, data := range records {
		user, err := decodeUser(data)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// Create はSETNXでユーザーを作成する。同一IDが存在する場合はErrDuplicateIDを返す。
func (r *RedisUserRepo) Create(ctx context.Context, user *model.User) error {
	data, err := encodeUser(user)
	if err != nil {
		return err
	}
	ok, err := r.client.SetNX(ctx, redisUserKey(user.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	if !ok {
		return ErrDuplicateID
	}

	first, err := reserveSeq(ctx, r.client, 1)
	if err != nil {
		return err
	}
	if err := r.client.ZAddNX(ctx, redisUsersKey, &redis.Z{Score: first, Member: user.ID}).Err(); err != nil {
		return fmt.Errorf("failed to index user: %w", err)
	}
	return nil
}

// Update はユーザーのキーをWATCHし、楽観ロックで読み込み・変更・書き戻しを行う。
func (r *RedisUserRepo) Update(ctx context.Context, id string, fn func(user *model.User)) (*model.User, error) {
	key := redisUserKey(id)
	var updated *model.User

	txf := func(tx *redis.Tx) error {
		updated = nil
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}

		user, err := decodeUser(data)
		if err != nil {
			return err
		}
		fn(user)
		user.ID = id

		encoded, err := encodeUser(user)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		if err == nil {
			updated = user
		}
		return err
	}

	if err := withWatch(ctx, r.client, txf, key); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return updated, nil
}

// Delete は指定IDのユーザーを削除する。
func (r *RedisUserRepo) Delete(ctx context.Context, id string) (bool, error) {
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, redisUserKey(id))
		pipe.ZRem(ctx, redisUsersKey, id)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete user: %w", err)
	}
	return del.Val() > 0, nil
}

// compile-time interface check
var _ UserRepository = (*RedisUserRepo)(nil)
