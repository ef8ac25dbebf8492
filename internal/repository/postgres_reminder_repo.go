package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/remindo/internal/model"
)

const reminderColumns = `id, item_id, telegram_chat_id, scheduled_time, sent, created_at`

// PostgresReminderRepo はPostgreSQLを使用したリマインダーリポジトリ。
type PostgresReminderRepo struct {
	db *sql.DB
}

// NewPostgresReminderRepo はPostgresReminderRepoを生成する。
func NewPostgresReminderRepo(db *sql.DB) *PostgresReminderRepo {
	return &PostgresReminderRepo{db: db}
}

func scanReminder(s rowScanner) (*model.Reminder, error) {
	rem := &model.Reminder{}
	if err := s.Scan(
		&rem.ID, &rem.ItemID, &rem.TelegramChatID, &rem.ScheduledTime, &rem.Sent, &rem.CreatedAt,
	); err != nil {
		return nil, err
	}
	rem.ScheduledTime = rem.ScheduledTime.UTC()
	rem.CreatedAt = rem.CreatedAt.UTC()
	return rem, nil
}

// FindByID は指定IDのリマインダーを取得する。見つからない場合はnilを返す。
func (r *PostgresReminderRepo) FindByID(ctx context.Context, id string) (*model.Reminder, error) {
	rem, err := scanReminder(r.db.QueryRowContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("リマインダーの取得に失敗しました: %w", err)
	}
	return rem, nil
}

// List は全リマインダーを挿入順で返す。
func (r *PostgresReminderRepo) List(ctx context.Context) ([]*model.Reminder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("リマインダー一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	reminders := []*model.Reminder{}
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("リマインダーの読み取りに失敗しました: %w", err)
		}
		reminders = append(reminders, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("リマインダー一覧の走査に失敗しました: %w", err)
	}
	return reminders, nil
}

// Save はリマインダーをUPSERTする。
func (r *PostgresReminderRepo) Save(ctx context.Context, rem *model.Reminder) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reminders (`+reminderColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		    item_id = EXCLUDED.item_id,
		    telegram_chat_id = EXCLUDED.telegram_chat_id,
		    scheduled_time = EXCLUDED.scheduled_time,
		    sent = EXCLUDED.sent,
		    created_at = EXCLUDED.created_at`,
		rem.ID, rem.ItemID, rem.TelegramChatID, rem.ScheduledTime, rem.Sent, rem.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("リマインダーの保存に失敗しました: %w", err)
	}
	return nil
}

// Update はSELECT ... FOR UPDATEで行ロックを取得してからfnを適用し書き戻す。
func (r *PostgresReminderRepo) Update(ctx context.Context, id string, fn func(rem *model.Reminder)) (*model.Reminder, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rem, err := scanReminder(tx.QueryRowContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE id = $1 FOR UPDATE`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("リマインダーの取得に失敗しました: %w", err)
	}

	fn(rem)
	rem.ID = id

	_, err = tx.ExecContext(ctx,
		`UPDATE reminders SET
		    telegram_chat_id = $2,
		    scheduled_time = $3,
		    sent = $4
		 WHERE id = $1`,
		rem.ID, rem.TelegramChatID, rem.ScheduledTime, rem.Sent,
	)
	if err != nil {
		return nil, fmt.Errorf("リマインダーの更新に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return rem, nil
}

// Delete は指定IDのリマインダーを削除する。
func (r *PostgresReminderRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("リマインダーの削除に失敗しました: %w", err)
	}
	n, err := rowsAffected(result)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteSentBefore は送信済みかつcutoffより前に予定されていたリマインダーを削除する。
func (r *PostgresReminderRepo) DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM reminders WHERE sent = TRUE AND scheduled_time < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("送信済みリマインダーの削除に失敗しました: %w", err)
	}
	return rowsAffected(result)
}

// compile-time interface check
var _ ReminderRepository = (*PostgresReminderRepo)(nil)
