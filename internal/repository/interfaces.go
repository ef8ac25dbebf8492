// Package repository はデータ永続化のインターフェースと実装（メモリ、PostgreSQL、Redis）を定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/remindo/internal/model"
)

// ErrDuplicateID は作成時に同一IDのレコードが既に存在する場合に返される。
var ErrDuplicateID = errors.New("duplicate id")

// ItemRepository はアイテムデータの永続化インターフェース。
// Save/Updateは未登録のタグ名をタグ登録簿に同一の排他区間（トランザクション）で登録する。
type ItemRepository interface {
	// FindByID は指定IDのアイテムを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Item, error)

	// List は全アイテムを挿入順で返す。
	List(ctx context.Context) ([]*model.Item, error)

	// Save はアイテムをUPSERTする。既存IDの場合は上書きし、挿入順の位置は維持する。
	Save(ctx context.Context, item *model.Item) error

	// Update は指定IDのアイテムを読み込み、fnで変更して書き戻す。
	// 読み込みから書き込みまでを排他的に行う。見つからない場合はnilを返す。
	Update(ctx context.Context, id string, fn func(item *model.Item)) (*model.Item, error)

	// Delete は指定IDのアイテムと紐づくリマインダーを削除する。
	// 見つからない場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

// TagRepository はタグ登録簿の永続化インターフェース。
type TagRepository interface {
	// FindByName は指定名のタグを取得する。見つからない場合はnilを返す。
	FindByName(ctx context.Context, name string) (*model.Tag, error)

	// List は全タグを登録順で返す。
	List(ctx context.Context) ([]*model.Tag, error)

	// Register は未登録のタグ名を作成する。既に存在する名前は無視する。
	Register(ctx context.Context, names []string, now time.Time) error

	// DeleteOrphans はどのアイテムからも参照されていないタグを削除し、削除件数を返す。
	DeleteOrphans(ctx context.Context) (int64, error)
}

// ReminderRepository はリマインダーの永続化インターフェース。
type ReminderRepository interface {
	// FindByID は指定IDのリマインダーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Reminder, error)

	// List は全リマインダーを挿入順で返す。
	List(ctx context.Context) ([]*model.Reminder, error)

	// Save はリマインダーをUPSERTする。
	Save(ctx context.Context, reminder *model.Reminder) error

	// Update は指定IDのリマインダーを排他的に読み込み・変更・書き戻しする。
	// 見つからない場合はnilを返す。
	Update(ctx context.Context, id string, fn func(reminder *model.Reminder)) (*model.Reminder, error)

	// Delete は指定IDのリマインダーを削除する。見つからない場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)

	// DeleteSentBefore は送信済みかつscheduledTimeがcutoffより前のリマインダーを削除し、削除件数を返す。
	DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// List は全ユーザーを挿入順で返す。
	List(ctx context.Context) ([]*model.User, error)

	// Create はユーザーを作成する。同一IDが存在する場合はErrDuplicateIDを返す。
	Create(ctx context.Context, user *model.User) error

	// Update は指定IDのユーザーを排他的に読み込み・変更・書き戻しする。
	// 見つからない場合はnilを返す。
	Update(ctx context.Context, id string, fn func(user *model.User)) (*model.User, error)

	// Delete は指定IDのユーザーを削除する。見つからない場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

// Repositories はバックエンドごとのリポジトリ一式をまとめた構造体。
type Repositories struct {
	Items     ItemRepository
	Tags      TagRepository
	Reminders ReminderRepository
	Users     UserRepository

	// Ping はバックエンドへの疎通確認を行う。メモリバックエンドでは常にnilを返す。
	Ping func(ctx context.Context) error
	// Close はバックエンドの接続を閉じる。
	Close func() error
}
