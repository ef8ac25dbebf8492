package repository

import (
	"context"
	"time"

	"github.com/hitoshi/remindo/internal/model"
)

// MemoryTagRepo はメモリ上のタグリポジトリ。
type MemoryTagRepo struct {
	db *memoryDB
}

// FindByName は指定名のタグを取得する。見つからない場合はnilを返す。
func (r *MemoryTagRepo) FindByName(_ context.Context, name string) (*model.Tag, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return r.db.tags[name].Clone(), nil
}

// List は全タグを登録順で返す。
func (r *MemoryTagRepo) List(_ context.Context) ([]*model.Tag, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*model.Tag, 0, len(r.db.tagOrder))
	for _, name := range r.db.tagOrder {
		out = append(out, r.db.tags[name].Clone())
	}
	return out, nil
}

// Register は未登録のタグ名を作成する。
func (r *MemoryTagRepo) Register(_ context.Context, names []string, now time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.registerTagsLocked(names, now)
	return nil
}

// DeleteOrphans はどのアイテムからも参照されていないタグを削除する。
func (r *MemoryTagRepo) DeleteOrphans(_ context.Context) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	used := make(map[string]struct{})
	for _, item := range r.db.items {
		for _, tag := range item.Tags {
			used[tag] = struct{}{}
		}
	}

	var deleted int64
	for _, name := range append([]string(nil), r.db.tagOrder...) {
		if _, ok := used[name]; ok {
			continue
		}
		delete(r.db.tags, name)
		r.db.tagOrder = removeID(r.db.tagOrder, name)
		deleted++
	}
	return deleted, nil
}

// compile-time interface check
var _ TagRepository = (*MemoryTagRepo)(nil)
