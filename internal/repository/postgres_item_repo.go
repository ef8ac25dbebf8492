package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/remindo/internal/model"
)

const itemColumns = `id, type, title, details, tags, telegram_chat_id,
	scheduled_at, deadline, completed, created_at, updated_at`

// PostgresItemRepo はPostgreSQLを使用したアイテムリポジトリ。
type PostgresItemRepo struct {
	db *sql.DB
}

// NewPostgresItemRepo はPostgresItemRepoを生成する。
func NewPostgresItemRepo(db *sql.DB) *PostgresItemRepo {
	return &PostgresItemRepo{db: db}
}

// scanItem は1行分のアイテムを読み取る。
func scanItem(s rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var itemType string
	var tags pq.StringArray
	var chatID sql.NullString
	var scheduledAt, deadline sql.NullTime

	if err := s.Scan(
		&item.ID, &itemType, &item.Title, &item.Details, &tags, &chatID,
		&scheduledAt, &deadline, &item.Completed, &item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return nil, err
	}

	item.Type = model.ItemType(itemType)
	item.Tags = []string(tags)
	if item.Tags == nil {
		item.Tags = []string{}
	}
	item.TelegramChatID = stringPtr(chatID)
	item.ScheduledAt = timePtr(scheduledAt)
	item.Deadline = timePtr(deadline)
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	return item, nil
}

// FindByID は指定IDのアイテムを取得する。見つからない場合はnilを返す。
func (r *PostgresItemRepo) FindByID(ctx context.Context, id string) (*model.Item, error) {
	item, err := scanItem(r.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("アイテムの取得に失敗しました: %w", err)
	}
	return item, nil
}

// List は全アイテムを挿入順で返す。
func (r *PostgresItemRepo) List(ctx context.Context) ([]*model.Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("アイテム一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	items := []*model.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("アイテムの読み取りに失敗しました: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("アイテム一覧の走査に失敗しました: %w", err)
	}
	return items, nil
}

// Save はアイテムをUPSERTし、未登録のタグを同一トランザクションで登録する。
// 既存行の場合seqは変わらないため挿入順は維持される。
func (r *PostgresItemRepo) Save(ctx context.Context, item *model.Item) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO items (`+itemColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
		    type = EXCLUDED.type,
		    title = EXCLUDED.title,
		    details = EXCLUDED.details,
		    tags = EXCLUDED.tags,
		    telegram_chat_id = EXCLUDED.telegram_chat_id,
		    scheduled_at = EXCLUDED.scheduled_at,
		    deadline = EXCLUDED.deadline,
		    completed = EXCLUDED.completed,
		    created_at = EXCLUDED.created_at,
		    updated_at = EXCLUDED.updated_at`,
		item.ID, string(item.Type), item.Title, item.Details, pq.Array(nonNilTags(item.Tags)),
		nullString(item.TelegramChatID), nullTime(item.ScheduledAt), nullTime(item.Deadline),
		item.Completed, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("アイテムの保存に失敗しました: %w", err)
	}

	if err := registerTags(ctx, tx, item.Tags, item.UpdatedAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Update はSELECT ... FOR UPDATEで行ロックを取得してからfnを適用し書き戻す。
func (r *PostgresItemRepo) Update(ctx context.Context, id string, fn func(item *model.Item)) (*model.Item, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := scanItem(tx.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = $1 FOR UPDATE`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("アイテムの取得に失敗しました: %w", err)
	}

	fn(item)
	item.ID = id

	_, err = tx.ExecContext(ctx,
		`UPDATE items SET
		    type = $2,
		    title = $3,
		    details = $4,
		    tags = $5,
		    telegram_chat_id = $6,
		    scheduled_at = $7,
		    deadline = $8,
		    completed = $9,
		    updated_at = $10
		 WHERE id = $1`,
		item.ID, string(item.Type), item.Title, item.Details, pq.Array(nonNilTags(item.Tags)),
		nullString(item.TelegramChatID), nullTime(item.ScheduledAt), nullTime(item.Deadline),
		item.Completed, item.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("アイテムの更新に失敗しました: %w", err)
	}

	if err := registerTags(ctx, tx, item.Tags, item.UpdatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return item, nil
}

// Delete は指定IDのアイテムを削除する。
// 紐づくremindersはON DELETE CASCADEで削除される。
func (r *PostgresItemRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("アイテムの削除に失敗しました: %w", err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// nonNilTags はNOT NULL制約のためnilを空配列に置き換える。
func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// compile-time interface check
var _ ItemRepository = (*PostgresItemRepo)(nil)
