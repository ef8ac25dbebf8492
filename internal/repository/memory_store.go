package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/hitoshi/remindo/internal/model"
)

// memoryDB はメモリバックエンドの全エンティティを保持する。
// 1つのRWMutexで全マップを保護し、変更系操作は書き込みロック下で読み込み・変更・書き戻しを行う。
type memoryDB struct {
	mu sync.RWMutex

	items     map[string]*model.Item
	itemOrder []string

	tags     map[string]*model.Tag
	tagOrder []string

	reminders     map[string]*model.Reminder
	reminderOrder []string

	users     map[string]*model.User
	userOrder []string
}

// NewMemoryRepositories はプロセス内メモリに保持するリポジトリ一式を生成する。
// プロセス終了とともにデータは失われる。テストおよびローカル開発向け。
func NewMemoryRepositories() *Repositories {
	db := &memoryDB{
		items:     make(map[string]*model.Item),
		tags:      make(map[string]*model.Tag),
		reminders: make(map[string]*model.Reminder),
		users:     make(map[string]*model.User),
	}
	return &Repositories{
		Items:     &MemoryItemRepo{db: db},
		Tags:      &MemoryTagRepo{db: db},
		Reminders: &MemoryReminderRepo{db: db},
		Users:     &MemoryUserRepo{db: db},
		Ping:      func(context.Context) error { return nil },
		Close:     func() error { return nil },
	}
}

// removeID は挿入順スライスから指定IDを取り除く。
func removeID(order []string, id string) []string {
	if i := slices.Index(order, id); i >= 0 {
		return slices.Delete(order, i, i+1)
	}
	return order
}
