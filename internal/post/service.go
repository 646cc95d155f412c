// Package post は投稿のユースケースを提供する。
package post

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/masaki/inkwell/internal/model"
	"github.com/masaki/inkwell/internal/repository"
	"github.com/masaki/inkwell/internal/security"
)

// PageSize は一覧の1ページあたりの件数。
const PageSize = 10

// Service は投稿のユースケースを提供する。
type Service struct {
	posts     repository.PostRepository
	sanitizer security.ContentSanitizerService
}

// NewService はServiceを生成する。
func NewService(posts repository.PostRepository, sanitizer security.ContentSanitizerService) *Service {
	return &Service{
		posts:     posts,
		sanitizer: sanitizer,
	}
}

// Create は認証主体を所有者として投稿を作成する。
// 所有者は作成時のIdentityから値でコピーされ、以後変更されない。
// 本文は保存前にサニタイズされる。
func (s *Service) Create(ctx context.Context, identity model.Identity, title, body string, tags []string) (*model.Post, error) {
	now := time.Now().UTC()
	p := &model.Post{
		ID:          uuid.NewString(),
		Title:       title,
		Body:        s.sanitizer.Sanitize(body),
		Tags:        tags,
		PublishedAt: now,
		Owner: model.Owner{
			ID:       identity.ID,
			Username: identity.Username,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.posts.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	return p, nil
}

// List はフィルタに合致する投稿の指定ページと最終ページ番号を返す。
// ページ番号は1始まり。最終ページは ceil(総数 / PageSize) で、
// 総数0の場合は0になる。最終ページを超えるページは空リストを返す（エラーではない）。
func (s *Service) List(ctx context.Context, filter model.PostFilter, page int) ([]*model.Post, int, error) {
	count, err := s.posts.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	posts, err := s.posts.List(ctx, filter, (page-1)*PageSize, PageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list posts: %w", err)
	}

	lastPage := (count + PageSize - 1) / PageSize
	return posts, lastPage, nil
}

// Update は投稿を部分更新し、更新後の投稿を返す。見つからない場合はnilを返す。
// 本文が含まれる場合は保存前にサニタイズされる。
func (s *Service) Update(ctx context.Context, id string, patch model.PostPatch) (*model.Post, error) {
	if patch.Body != nil {
		sanitized := s.sanitizer.Sanitize(*patch.Body)
		patch.Body = &sanitized
	}

	updated, err := s.posts.UpdateByID(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return updated, nil
}

// Delete は投稿を削除する。
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.posts.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}
