// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/remindo/internal/metrics"
	"github.com/hitoshi/remindo/internal/model"
	"github.com/hitoshi/remindo/internal/repository"
)

const entityName = "user"

// Service はユーザーのCRUDを行うサービス層。
type Service struct {
	userRepo repository.UserRepository
	metrics  metrics.MetricsCollector
	now      func() time.Time
	newID    func() string
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, mc metrics.MetricsCollector) *Service {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &Service{
		userRepo: userRepo,
		metrics:  mc,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// Create はユーザーを作成する。nameは必須。
// 明示的なidが既存ユーザーと重複する場合はDUPLICATE_USERエラーを返す。
func (s *Service) Create(ctx context.Context, p model.UserPatch) (*model.User, error) {
	if !p.Name.HasValue() || strings.TrimSpace(p.Name.Value) == "" {
		return nil, model.NewNameRequiredError()
	}

	user := BuildUser(p, nil, s.now(), s.newID)
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateID) {
			return nil, model.NewDuplicateUserError()
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	s.metrics.RecordMutation(entityName, "create")
	return user, nil
}

// Get は指定IDのユーザーを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(id)
	}
	return user, nil
}

// List は全ユーザーを返す。emailが空でない場合は大文字小文字を無視した完全一致で絞り込む。
func (s *Service) List(ctx context.Context, email string) ([]*model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	if email == "" {
		return users, nil
	}

	out := make([]*model.User, 0, len(users))
	for _, u := range users {
		if u.Email != nil && strings.EqualFold(*u.Email, strings.TrimSpace(email)) {
			out = append(out, u)
		}
	}
	return out, nil
}

// Update はパッチで指定されたフィールドのみを更新する。
// 存在しないIDは検証より先にUSER_NOT_FOUNDとする。
func (s *Service) Update(ctx context.Context, id string, p model.UserPatch) (*model.User, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if p.IsEmpty() {
		return nil, model.NewEmptyBodyError()
	}
	if p.Name.Set && (p.Name.Null || strings.TrimSpace(p.Name.Value) == "") {
		return nil, model.NewNameRequiredError()
	}

	now := s.now()
	user, err := s.userRepo.Update(ctx, id, func(current *model.User) {
		*current = *BuildUser(p, current, now, s.newID)
	})
	if err != nil {
		return nil, fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(id)
	}

	s.metrics.RecordMutation(entityName, "update")
	return user, nil
}

// Delete は指定IDのユーザーを削除する。
func (s *Service) Delete(ctx context.Context, id string) error {
	deleted, err := s.userRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewUserNotFoundError(id)
	}

	slog.Info("ユーザーを削除しました", slog.String("user_id", id))
	s.metrics.RecordMutation(entityName, "delete")
	return nil
}

// BuildUser はパッチを既存ユーザーにマージした新しい値を返す。
// emailは小文字化・トリムして保存し、空文字列・nullはnilとする。
func BuildUser(p model.UserPatch, existing *model.User, now time.Time, newID func() string) *model.User {
	now = now.UTC().Truncate(time.Microsecond)

	var user *model.User
	if existing == nil {
		id := ""
		if p.ID.HasValue() {
			id = strings.TrimSpace(p.ID.Value)
		}
		if id == "" {
			id = newID()
		}
		user = &model.User{ID: id, CreatedAt: now, UpdatedAt: now}
	} else {
		user = existing.Clone()
		user.UpdatedAt = model.NextUpdatedAt(existing.UpdatedAt, now)
	}

	if p.Name.HasValue() {
		user.Name = strings.TrimSpace(p.Name.Value)
	}
	if p.Email.Set {
		user.Email = optionalText(p.Email, strings.ToLower)
	}
	if p.TelegramChatID.Set {
		user.TelegramChatID = optionalText(p.TelegramChatID, nil)
	}
	if p.Timezone.Set {
		user.Timezone = optionalText(p.Timezone, nil)
	}
	return user
}

// optionalText はトリム後に空またはnullならnilを返す。transformが指定されていれば適用する。
func optionalText(o model.Optional[string], transform func(string) string) *string {
	if !o.HasValue() {
		return nil
	}
	v := strings.TrimSpace(o.Value)
	if v == "" {
		return nil
	}
	if transform != nil {
		v = transform(v)
	}
	return &v
}
