// Package reminder はアイテムに紐づく通知予定レコードの管理機能を提供する。
// 配信は行わず、外部の送信側が一覧取得とsent更新で利用する。
package reminder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/remindo/internal/metrics"
	"github.com/hitoshi/remindo/internal/model"
	"github.com/hitoshi/remindo/internal/normalize"
	"github.com/hitoshi/remindo/internal/repository"
)

const entityName = "reminder"

// ReminderService はリマインダーのCRUDを行うサービス。
type ReminderService struct {
	repo     repository.ReminderRepository
	itemRepo repository.ItemRepository
	metrics  metrics.MetricsCollector
	now      func() time.Time
	newID    func() string
}

// NewReminderService はReminderServiceの新しいインスタンスを生成する。
func NewReminderService(
	repo repository.ReminderRepository,
	itemRepo repository.ItemRepository,
	mc metrics.MetricsCollector,
) *ReminderService {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &ReminderService{
		repo:     repo,
		itemRepo: itemRepo,
		metrics:  mc,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// Create はリマインダーを作成する。
// itemId・telegramChatId・scheduledTimeは必須で、itemIdは既存アイテムを参照していなければならない。
// 検証順序: 必須項目 → アイテムの存在 → scheduledTimeのパース。
func (s *ReminderService) Create(ctx context.Context, p model.ReminderPatch) (*model.Reminder, error) {
	if !hasText(p.ItemID) || !hasText(p.TelegramChatID) || !hasText(p.ScheduledTime) {
		return nil, model.NewReminderFieldsRequiredError()
	}

	itemID := strings.TrimSpace(p.ItemID.Value)
	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to find item: %w", err)
	}
	if item == nil {
		return nil, model.NewItemNotFoundError(itemID)
	}

	scheduled := normalize.ParseTime(p.ScheduledTime.Value)
	if scheduled == nil {
		return nil, model.NewInvalidScheduledTimeError()
	}

	rem := BuildReminder(p, scheduled, nil, s.now(), s.newID)
	if err := s.repo.Save(ctx, rem); err != nil {
		return nil, fmt.Errorf("failed to save reminder: %w", err)
	}

	s.metrics.RecordMutation(entityName, "create")
	return rem, nil
}

// Get は指定IDのリマインダーを返す。
func (s *ReminderService) Get(ctx context.Context, id string) (*model.Reminder, error) {
	rem, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find reminder: %w", err)
	}
	if rem == nil {
		return nil, model.NewReminderNotFoundError(id)
	}
	return rem, nil
}

// List は条件に一致するリマインダーを挿入順で返す。
func (s *ReminderService) List(ctx context.Context, f model.ReminderFilter) ([]*model.Reminder, error) {
	reminders, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return Filter(reminders, f), nil
}

// Update はパッチで指定されたフィールドのみを更新する。
// 存在しないIDは検証より先にREMINDER_NOT_FOUNDとする。
// scheduledTimeが指定された場合、nullまたはパースできない値は作成時と同様に検証エラーとする。
// itemIdは変更できず、現在と異なる値はINVALID_FIELDとする。
func (s *ReminderService) Update(ctx context.Context, id string, p model.ReminderPatch) (*model.Reminder, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsEmpty() {
		return nil, model.NewEmptyBodyError()
	}
	if p.ItemID.Set && (p.ItemID.Null || strings.TrimSpace(p.ItemID.Value) != current.ItemID) {
		return nil, model.NewInvalidFieldError("itemId")
	}

	var scheduled *time.Time
	if p.ScheduledTime.Set {
		if p.ScheduledTime.Null {
			return nil, model.NewInvalidScheduledTimeError()
		}
		if scheduled = normalize.ParseTime(p.ScheduledTime.Value); scheduled == nil {
			return nil, model.NewInvalidScheduledTimeError()
		}
	}
	if p.TelegramChatID.Set && !hasText(p.TelegramChatID) {
		return nil, model.NewInvalidFieldError("telegramChatId")
	}

	now := s.now()
	rem, err := s.repo.Update(ctx, id, func(existing *model.Reminder) {
		*existing = *BuildReminder(p, scheduled, existing, now, s.newID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update reminder: %w", err)
	}
	if rem == nil {
		return nil, model.NewReminderNotFoundError(id)
	}

	s.metrics.RecordMutation(entityName, "update")
	return rem, nil
}

// Delete は指定IDのリマインダーを削除する。
func (s *ReminderService) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	if !deleted {
		return model.NewReminderNotFoundError(id)
	}

	s.metrics.RecordMutation(entityName, "delete")
	return nil
}

// hasText は値が指定され、空白以外の文字を含む場合にtrueを返す。
func hasText(o model.Optional[string]) bool {
	return o.HasValue() && strings.TrimSpace(o.Value) != ""
}
