package repository

import (
	"context"
	"time"

	"github.com/hitoshi/remindo/internal/model"
)

// MemoryItemRepo はメモリ上のアイテムリポジトリ。
type MemoryItemRepo struct {
	db *memoryDB
}

// FindByID は指定IDのアイテムを取得する。見つからない場合はnilを返す。
func (r *MemoryItemRepo) FindByID(_ context.Context, id string) (*model.Item, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return r.db.items[id].Clone(), nil
}

// List は全アイテムを挿入順で返す。
func (r *MemoryItemRepo) List(_ context.Context) ([]*model.Item, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*model.Item, 0, len(r.db.itemOrder))
	for _, id := range r.db.itemOrder {
		out = append(out, r.db.items[id].Clone())
	}
	return out, nil
}

// Save はアイテムをUPSERTし、未登録のタグを登録する。
func (r *MemoryItemRepo) Save(_ context.Context, item *model.Item) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.items[item.ID]; !exists {
		r.db.itemOrder = append(r.db.itemOrder, item.ID)
	}
	r.db.items[item.ID] = item.Clone()
	r.db.registerTagsLocked(item.Tags, item.UpdatedAt)
	return nil
}

// Update は書き込みロック下でアイテムを読み込み、fnで変更して書き戻す。
func (r *MemoryItemRepo) Update(_ context.Context, id string, fn func(item *model.Item)) (*model.Item, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	current, ok := r.db.items[id]
	if !ok {
		return nil, nil
	}

	updated := current.Clone()
	fn(updated)
	updated.ID = id

	r.db.items[id] = updated.Clone()
	r.db.registerTagsLocked(updated.Tags, updated.UpdatedAt)
	return updated, nil
}

// Delete はアイテムと紐づくリマインダーを削除する。
func (r *MemoryItemRepo) Delete(_ context.Context, id string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.items[id]; !ok {
		return false, nil
	}
	delete(r.db.items, id)
	r.db.itemOrder = removeID(r.db.itemOrder, id)

	// 紐づくリマインダーをカスケード削除
	for rid, rem := range r.db.reminders {
		if rem.ItemID == id {
			delete(r.db.reminders, rid)
			r.db.reminderOrder = removeID(r.db.reminderOrder, rid)
		}
	}
	return true, nil
}

// registerTagsLocked は未登録のタグ名を登録する。呼び出し側で書き込みロックを保持していること。
func (db *memoryDB) registerTagsLocked(names []string, now time.Time) {
	for _, name := range names {
		if _, ok := db.tags[name]; ok {
			continue
		}
		db.tags[name] = &model.Tag{Name: name, CreatedAt: now}
		db.tagOrder = append(db.tagOrder, name)
	}
}

// compile-time interface check
var _ ItemRepository = (*MemoryItemRepo)(nil)
