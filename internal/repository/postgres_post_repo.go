package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/masaki/inkwell/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

const postColumns = `id, title, body, tags, published_at, owner_id, owner_username, created_at, updated_at`

// scanPost は1行を*model.Postへスキャンする。
func scanPost(row interface{ Scan(dest ...any) error }) (*model.Post, error) {
	post := &model.Post{}
	err := row.Scan(
		&post.ID, &post.Title, &post.Body, pq.Array(&post.Tags),
		&post.PublishedAt, &post.Owner.ID, &post.Owner.Username,
		&post.CreatedAt, &post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return post, nil
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post by ID: %w", err)
	}
	return post, nil
}

// List はフィルタに合致する投稿をpublished_at降順で返す。
// 空文字列のフィルタフィールドは条件を課さない。両方指定された場合はANDになる。
func (r *PostgresPostRepo) List(ctx context.Context, filter model.PostFilter, skip, limit int) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts
		 WHERE ($1 = '' OR owner_username = $1)
		   AND ($2 = '' OR $2 = ANY(tags))
		 ORDER BY published_at DESC, id DESC
		 OFFSET $3 LIMIT $4`,
		filter.OwnerUsername, filter.Tag, skip, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []*model.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}

	return posts, nil
}

// Count はフィルタに合致する投稿の総数を返す。
func (r *PostgresPostRepo) Count(ctx context.Context, filter model.PostFilter) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts
		 WHERE ($1 = '' OR owner_username = $1)
		   AND ($2 = '' OR $2 = ANY(tags))`,
		filter.OwnerUsername, filter.Tag,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return count, nil
}

// Create は投稿を作成する。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, title, body, tags, published_at, owner_id, owner_username, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		post.ID, post.Title, post.Body, pq.Array(post.Tags),
		post.PublishedAt, post.Owner.ID, post.Owner.Username,
		post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

// UpdateByID は投稿を部分更新し、更新後の投稿を返す。
// patchのnilフィールドは既存の値を維持する。見つからない場合はnilを返す。
// 所有者フィールドは更新対象に含まれない（所有権の移転は存在しない）。
func (r *PostgresPostRepo) UpdateByID(ctx context.Context, id string, patch model.PostPatch) (*model.Post, error) {
	var title, body sql.NullString
	if patch.Title != nil {
		title = sql.NullString{String: *patch.Title, Valid: true}
	}
	if patch.Body != nil {
		body = sql.NullString{String: *patch.Body, Valid: true}
	}
	var tags any
	if patch.Tags != nil {
		tags = pq.Array(*patch.Tags)
	}

	post, err := scanPost(r.db.QueryRowContext(ctx,
		`UPDATE posts SET
		   title = COALESCE($2, title),
		   body = COALESCE($3, body),
		   tags = COALESCE($4, tags),
		   updated_at = now()
		 WHERE id = $1
		 RETURNING `+postColumns,
		id, title, body, tags,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return post, nil
}

// DeleteByID は指定IDの投稿を削除する。存在しないIDでもエラーにはならない。
func (r *PostgresPostRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM posts WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
