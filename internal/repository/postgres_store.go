package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// NewPostgresRepositories はPostgreSQLを使用したリポジトリ一式を生成する。
// スキーマはdatabase.RunMigrationsで適用済みであること。
func NewPostgresRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Items:     NewPostgresItemRepo(db),
		Tags:      NewPostgresTagRepo(db),
		Reminders: NewPostgresReminderRepo(db),
		Users:     NewPostgresUserRepo(db),
		Ping:      db.PingContext,
		Close:     db.Close,
	}
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// execer は*sql.DBと*sql.Txの共通インターフェース。
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// registerTags は未登録のタグ名をtagsテーブルに追加する。
func registerTags(ctx context.Context, ex execer, names []string, now time.Time) error {
	if len(names) == 0 {
		return nil
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO tags (name, created_at)
		 SELECT name, $2::timestamptz FROM unnest($1::text[]) WITH ORDINALITY AS t(name, ord)
		 ORDER BY ord
		 ON CONFLICT (name) DO NOTHING`,
		pq.Array(names), now,
	)
	if err != nil {
		return fmt.Errorf("タグの登録に失敗しました: %w", err)
	}
	return nil
}

// nullString はnilをNULLとするsql.NullStringに変換する。
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// stringPtr はsql.NullStringをポインタに変換する。
func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// nullTime はnilをNULLとするsql.NullTimeに変換する。
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// timePtr はsql.NullTimeをUTCのポインタに変換する。
func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	v := nt.Time.UTC()
	return &v
}

// rowsAffected は更新件数を取得する。
func rowsAffected(result sql.Result) (int64, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
