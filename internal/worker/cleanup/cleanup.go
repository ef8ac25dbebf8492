// Package cleanup は不要データの定期削除ジョブを提供する。
// 保持期間（デフォルト30日）を超過した送信済みリマインダーと、
// どのアイテムからも参照されていないタグを削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/remindo/internal/metrics"
)

// DefaultRetention は送信済みリマインダーの既定の保持期間。
const DefaultRetention = 30 * 24 * time.Hour

// ReminderPruner は送信済みリマインダーの削除を抽象化する。
type ReminderPruner interface {
	DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// TagPruner は未使用タグの削除を抽象化する。
type TagPruner interface {
	DeleteOrphans(ctx context.Context) (int64, error)
}

// CleanupJob は送信済みリマインダーと未使用タグのクリーンアップジョブ。
// 削除対象がない場合もエラーにならず、何度実行しても結果は同じになる。
type CleanupJob struct {
	reminders ReminderPruner
	tags      TagPruner
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	now       func() time.Time
	Retention time.Duration // 送信済みリマインダーの保持期間
}

// NewCleanupJob は新しいCleanupJobを生成する。
// mcがnilの場合はメトリクスを記録しない。
func NewCleanupJob(reminders ReminderPruner, tags TagPruner, mc metrics.MetricsCollector, logger *slog.Logger) *CleanupJob {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &CleanupJob{
		reminders: reminders,
		tags:      tags,
		metrics:   mc,
		logger:    logger,
		now:       time.Now,
		Retention: DefaultRetention,
	}
}

// Run は1回分のクリーンアップを実行する。
// リマインダーの削除に失敗した場合はタグの削除を行わない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	cutoff := j.now().Add(-j.Retention)

	reminders, err := j.reminders.DeleteSentBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("送信済みリマインダーの削除に失敗しました",
			slog.String("error", err.Error()),
			slog.Time("cutoff", cutoff),
		)
		return fmt.Errorf("送信済みリマインダーの削除に失敗: %w", err)
	}
	j.metrics.RecordCleanup("reminder", reminders)

	tags, err := j.tags.DeleteOrphans(ctx)
	if err != nil {
		j.logger.Error("未使用タグの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("未使用タグの削除に失敗: %w", err)
	}
	j.metrics.RecordCleanup("tag", tags)

	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_reminders", reminders),
		slog.Int64("deleted_tags", tags),
		slog.Duration("retention", j.Retention),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start は指定間隔のティッカーでジョブを繰り返し実行する。
// 起動直後に1回実行し、コンテキストがキャンセルされるまで継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("クリーンアップスケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Duration("retention", j.Retention),
	)

	// 失敗はRun内でログ出力済みのため、ここでは継続する
	_ = j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップスケジューラを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
