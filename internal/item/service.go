// Package item はタスク・リマインダー種別アイテムの管理機能を提供する。
package item

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/remindo/internal/metrics"
	"github.com/hitoshi/remindo/internal/model"
	"github.com/hitoshi/remindo/internal/repository"
)

const entityName = "item"

// ItemService はアイテムの作成・取得・更新・削除を行うサービス。
type ItemService struct {
	repo    repository.ItemRepository
	metrics metrics.MetricsCollector
	now     func() time.Time
	newID   func() string
}

// NewItemService はItemServiceの新しいインスタンスを生成する。
// mcがnilの場合はメトリクスを記録しない。
func NewItemService(repo repository.ItemRepository, mc metrics.MetricsCollector) *ItemService {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &ItemService{
		repo:    repo,
		metrics: mc,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// Create はアイテムを作成する。タイトルは必須。
// 明示的なidが既存アイテムと一致する場合は上書きする。
func (s *ItemService) Create(ctx context.Context, p model.ItemPatch) (*model.Item, error) {
	if !p.Title.HasValue() || strings.TrimSpace(p.Title.Value) == "" {
		return nil, model.NewTitleRequiredError()
	}
	if err := validateType(p.Type); err != nil {
		return nil, err
	}

	item := BuildItem(p, nil, s.now(), s.newID)
	if err := s.repo.Save(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to save item: %w", err)
	}

	s.metrics.RecordMutation(entityName, "create")
	return item, nil
}

// Get は指定IDのアイテムを返す。存在しない場合はITEM_NOT_FOUNDエラーを返す。
func (s *ItemService) Get(ctx context.Context, id string) (*model.Item, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find item: %w", err)
	}
	if item == nil {
		return nil, model.NewItemNotFoundError(id)
	}
	return item, nil
}

// List は条件に一致するアイテムを挿入順で返す。
func (s *ItemService) List(ctx context.Context, f model.ItemFilter) ([]*model.Item, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return Filter(items, f), nil
}

// ListByTag は指定タグ（大文字小文字無視）を持つアイテムを返す。
func (s *ItemService) ListByTag(ctx context.Context, tag string) ([]*model.Item, error) {
	return s.List(ctx, model.ItemFilter{Tag: tag})
}

// Agenda はホーム画面用に期日順で並べたアイテムを返す。
func (s *ItemService) Agenda(ctx context.Context) ([]*model.Item, error) {
	items, err := s.List(ctx, model.ItemFilter{})
	if err != nil {
		return nil, err
	}
	SortAgenda(items)
	return items, nil
}

// Update はパッチで指定されたフィールドのみを更新する。
// 存在確認を先に行い、存在しないIDはボディの内容に関わらずITEM_NOT_FOUNDとする。
// 空のパッチ、空のタイトル、不正な種別は検証エラーとし、ストアは変更しない。
func (s *ItemService) Update(ctx context.Context, id string, p model.ItemPatch) (*model.Item, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if p.IsEmpty() {
		return nil, model.NewEmptyBodyError()
	}
	if p.Title.Set && (p.Title.Null || strings.TrimSpace(p.Title.Value) == "") {
		return nil, model.NewTitleRequiredError()
	}
	if err := validateType(p.Type); err != nil {
		return nil, err
	}

	now := s.now()
	item, err := s.repo.Update(ctx, id, func(current *model.Item) {
		*current = *BuildItem(p, current, now, s.newID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}
	if item == nil {
		return nil, model.NewItemNotFoundError(id)
	}

	s.metrics.RecordMutation(entityName, "update")
	return item, nil
}

// ToggleComplete は完了状態を反転し、更新日時を進める。
func (s *ItemService) ToggleComplete(ctx context.Context, id string) (*model.Item, error) {
	now := s.now()
	item, err := s.repo.Update(ctx, id, func(current *model.Item) {
		current.Completed = !current.Completed
		current.UpdatedAt = model.NextUpdatedAt(current.UpdatedAt, now)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to toggle item: %w", err)
	}
	if item == nil {
		return nil, model.NewItemNotFoundError(id)
	}

	s.metrics.RecordMutation(entityName, "toggle")
	return item, nil
}

// Delete はアイテムと紐づくリマインダーを削除する。
func (s *ItemService) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if !deleted {
		return model.NewItemNotFoundError(id)
	}

	s.metrics.RecordMutation(entityName, "delete")
	return nil
}

// validateType は種別が指定されている場合に定義済みの値かを検証する。nullはtask扱い。
func validateType(t model.Optional[model.ItemType]) error {
	if t.HasValue() && !t.Value.Valid() {
		return model.NewInvalidItemTypeError(string(t.Value))
	}
	return nil
}
