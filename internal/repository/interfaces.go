// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/masaki/inkwell/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error
}

// PostRepository は投稿データの永続化インターフェース。
type PostRepository interface {
	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// List はフィルタに合致する投稿をpublished_at降順で返す。
	// skipとlimitでページネーションする。
	List(ctx context.Context, filter model.PostFilter, skip, limit int) ([]*model.Post, error)

	// Count はフィルタに合致する投稿の総数を返す。
	Count(ctx context.Context, filter model.PostFilter) (int, error)

	// Create は投稿を作成する。
	Create(ctx context.Context, post *model.Post) error

	// UpdateByID は投稿を部分更新し、更新後の投稿を返す。
	// nilフィールドは変更しない。見つからない場合はnilを返す。
	UpdateByID(ctx context.Context, id string, patch model.PostPatch) (*model.Post, error)

	// DeleteByID は指定IDの投稿を削除する。
	// 存在しないIDに対してもエラーにはならない（冪等）。
	DeleteByID(ctx context.Context, id string) error
}
