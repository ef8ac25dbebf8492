package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/remindo/internal/model"
)

// PostgresTagRepo はPostgreSQLを使用したタグリポジトリ。
type PostgresTagRepo struct {
	db *sql.DB
}

// NewPostgresTagRepo はPostgresTagRepoを生成する。
func NewPostgresTagRepo(db *sql.DB) *PostgresTagRepo {
	return &PostgresTagRepo{db: db}
}

func scanTag(s rowScanner) (*model.Tag, error) {
	tag := &model.Tag{}
	var color sql.NullString
	if err := s.Scan(&tag.Name, &color, &tag.CreatedAt); err != nil {
		return nil, err
	}
	tag.Color = stringPtr(color)
	tag.CreatedAt = tag.CreatedAt.UTC()
	return tag, nil
}

// FindByName は指定名のタグを取得する。見つからない場合はnilを返す。
func (r *PostgresTagRepo) FindByName(ctx context.Context, name string) (*model.Tag, error) {
	tag, err := scanTag(r.db.QueryRowContext(ctx,
		`SELECT name, color, created_at FROM tags WHERE name = $1`, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("タグの取得に失敗しました: %w", err)
	}
	return tag, nil
}

// List は全タグを登録順で返す。
func (r *PostgresTagRepo) List(ctx context.Context) ([]*model.Tag, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, color, created_at FROM tags ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("タグ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	tags := []*model.Tag{}
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("タグの読み取りに失敗しました: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("タグ一覧の走査に失敗しました: %w", err)
	}
	return tags, nil
}

// Register は未登録のタグ名を作成する。
func (r *PostgresTagRepo) Register(ctx context.Context, names []string, now time.Time) error {
	return registerTags(ctx, r.db, names, now)
}

// DeleteOrphans はどのアイテムのtags配列にも含まれないタグを削除する。
func (r *PostgresTagRepo) DeleteOrphans(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tags t
		 WHERE NOT EXISTS (SELECT 1 FROM items i WHERE t.name = ANY(i.tags))`)
	if err != nil {
		return 0, fmt.Errorf("未使用タグの削除に失敗しました: %w", err)
	}
	return rowsAffected(result)
}

// compile-time interface check
var _ TagRepository = (*PostgresTagRepo)(nil)
