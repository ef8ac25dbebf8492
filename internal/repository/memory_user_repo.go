package repository

import (
	"context"

	"github.com/hitoshi/remindo/internal/model"
)

// MemoryUserRepo はメモリ上のユーザーリポジトリ。
type MemoryUserRepo struct {
	db *memoryDB
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *MemoryUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return r.db.users[id].Clone(), nil
}

// List は全ユーザーを挿入順で返す。
func (r *MemoryUserRepo) List(_ context.Context) ([]*model.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*model.User, 0, len(r.db.userOrder))
	for _, id := range r.db.userOrder {
		out = append(out, r.db.users[id].Clone())
	}
	return out, nil
}

// Create はユーザーを作成する。同一IDが存在する場合はErrDuplicateIDを返す。
func (r *MemoryUserRepo) Create(_ context.Context, user *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.users[user.ID]; exists {
		return ErrDuplicateID
	}
	r.db.users[user.ID] = user.Clone()
	r.db.userOrder = append(r.db.userOrder, user.ID)
	return nil
}

// Update は書き込みロック下でユーザーを読み込み、fnで変更して書き戻す。
func (r *MemoryUserRepo) Update(_ context.Context, id string, fn func(user *model.User)) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, ok := r.db.users[id]
	if !ok {
		return nil, nil
	}

	updated := current.Clone()
	fn(updated)
	updated.ID = id
	r.db.users[id] = updated.Clone()
	return updated, nil
}

// Delete は指定IDのユーザーを削除する。
func (r *MemoryUserRepo) Delete(_ context.Context, id string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.users[id]; !ok {
		return false, nil
	}
	delete(r.db.users, id)
	r.db.userOrder = removeID(r.db.userOrder, id)
	return true, nil
}

// compile-time interface check
var _ UserRepository = (*MemoryUserRepo)(nil)
