// Package tag はタグ登録簿の参照機能を提供する。
// タグはアイテムへのタグ付与時にリポジトリ側で暗黙的に登録される。
package tag

import (
	"context"
	"fmt"
	"strings"

	"github.com/hitoshi/remindo/internal/model"
	"github.com/hitoshi/remindo/internal/repository"
)

// TagService はタグの一覧・取得を行うサービス。
type TagService struct {
	repo repository.TagRepository
}

// NewTagService はTagServiceの新しいインスタンスを生成する。
func NewTagService(repo repository.TagRepository) *TagService {
	return &TagService{repo: repo}
}

// List は全タグを登録順で返す。
func (s *TagService) List(ctx context.Context) ([]*model.Tag, error) {
	tags, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

// Get は指定名のタグを返す。名前は小文字化してから検索する。
func (s *TagService) Get(ctx context.Context, name string) (*model.Tag, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	tag, err := s.repo.FindByName(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to find tag: %w", err)
	}
	if tag == nil {
		return nil, model.NewTagNotFoundError(key)
	}
	return tag, nil
}
