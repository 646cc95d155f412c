// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/masaki/inkwell/internal/model"
	"github.com/masaki/inkwell/internal/pipeline"
	"github.com/masaki/inkwell/internal/validate"
)

// listBodyMaxRunes は一覧レスポンスで本文を切り詰める長さ。
const listBodyMaxRunes = 200

// listBodyEllipsis は切り詰めた本文の末尾に付与する省略記号。
const listBodyEllipsis = "..."

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	// Create は認証主体を所有者として投稿を作成する。
	Create(ctx context.Context, identity model.Identity, title, body string, tags []string) (*model.Post, error)
	// List はフィルタに合致する投稿の指定ページと最終ページ番号を返す。
	List(ctx context.Context, filter model.PostFilter, page int) ([]*model.Post, int, error)
	// Update は投稿を部分更新する。見つからない場合はnilを返す。
	Update(ctx context.Context, id string, patch model.PostPatch) (*model.Post, error)
	// Delete は投稿を削除する。
	Delete(ctx context.Context, id string) error
}

// PostHandler は投稿管理のHTTPハンドラー。
// 各メソッドはパイプラインの終端ステージとして動作する。
type PostHandler struct {
	service PostServiceInterface
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface) *PostHandler {
	return &PostHandler{service: service}
}

// --- レスポンス型 ---

// ownerResponse は投稿所有者のレスポンス。
type ownerResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// postResponse は投稿のAPIレスポンス。
type postResponse struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Body        string        `json:"body"`
	Tags        []string      `json:"tags"`
	PublishedAt time.Time     `json:"published_at"`
	Owner       ownerResponse `json:"owner"`
}

// toPostResponse は投稿をレスポンス形式に変換する。
func toPostResponse(p *model.Post) postResponse {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return postResponse{
		ID:          p.ID,
		Title:       p.Title,
		Body:        p.Body,
		Tags:        tags,
		PublishedAt: p.PublishedAt,
		Owner: ownerResponse{
			ID:       p.Owner.ID,
			Username: p.Owner.Username,
		},
	}
}

// truncateBody は一覧表示用に本文を200文字に切り詰める。
// 超過分を削り、省略記号を付与する。文字数はルーン単位で数える。
func truncateBody(body string) string {
	runes := []rune(body)
	if len(runes) <= listBodyMaxRunes {
		return body
	}
	return string(runes[:listBodyMaxRunes]) + listBodyEllipsis
}

// --- 終端ステージ ---

// Create は投稿を作成する。
// POST /api/posts
// 前提: チェーンでVerifyIdentity、RequireIdentity、バリデーションを通過済み。
func (h *PostHandler) Create(c *pipeline.Context) pipeline.Result {
	in := c.Payload.(*validate.CreatePostInput)

	created, err := h.service.Create(c.Request.Context(), *c.Identity, in.Title, in.Body, in.Tags)
	if err != nil {
		return serviceErrorResult(err)
	}

	return pipeline.Terminate(http.StatusOK, toPostResponse(created))
}

// List は投稿一覧を取得する。
// GET /api/posts?page=1&tag=x&username=y
// ページ番号は1始まり。最終ページ番号はLast-Pageヘッダーで返す。
// 最終ページを超えるページは空リストを返す（エラーではない）。
func (h *PostHandler) List(c *pipeline.Context) pipeline.Result {
	query := c.Query()

	page := 1
	if raw := query.Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return pipeline.Terminate(http.StatusBadRequest, model.NewInvalidPageError(raw))
		}
		page = parsed
	}

	filter := model.PostFilter{
		OwnerUsername: query.Get("username"),
		Tag:           query.Get("tag"),
	}

	posts, lastPage, err := h.service.List(c.Request.Context(), filter, page)
	if err != nil {
		return serviceErrorResult(err)
	}

	c.SetHeader("Last-Page", strconv.Itoa(lastPage))

	views := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		view := toPostResponse(p)
		view.Body = truncateBody(view.Body)
		views = append(views, view)
	}

	return pipeline.Terminate(http.StatusOK, views)
}

// Read は投稿詳細を取得する。
// GET /api/posts/:id
// 前提: チェーンでLoadPostを通過済み（存在しないIDはここへ到達しない）。
func (h *PostHandler) Read(c *pipeline.Context) pipeline.Result {
	return pipeline.Terminate(http.StatusOK, toPostResponse(c.Post))
}

// Update は投稿を部分更新する。
// PATCH /api/posts/:id
// 前提: チェーンでVerifyIdentity、LoadPost、RequireOwnership、
// バリデーションを通過済み。
func (h *PostHandler) Update(c *pipeline.Context) pipeline.Result {
	in := c.Payload.(*validate.UpdatePostInput)

	patch := model.PostPatch{
		Title: in.Title,
		Body:  in.Body,
		Tags:  in.Tags,
	}

	updated, err := h.service.Update(c.Request.Context(), c.Post.ID, patch)
	if err != nil {
		return serviceErrorResult(err)
	}
	if updated == nil {
		// LoadPostの後に削除された場合
		return pipeline.Terminate(http.StatusNotFound, nil)
	}

	return pipeline.Terminate(http.StatusOK, toPostResponse(updated))
}

// Delete は投稿を削除する。
// DELETE /api/posts/:id
// 前提: チェーンでVerifyIdentity、LoadPost、RequireOwnershipを通過済み。
func (h *PostHandler) Delete(c *pipeline.Context) pipeline.Result {
	if err := h.service.Delete(c.Request.Context(), c.Post.ID); err != nil {
		return serviceErrorResult(err)
	}
	return pipeline.Terminate(http.StatusNoContent, nil)
}

// --- エラー変換 ---

// serviceErrorResult はサービスのエラーをチェーン終了結果に変換する。
// APIError以外のエラーは内部サーバーエラーとして扱い、詳細はログのみに残す。
func serviceErrorResult(err error) pipeline.Result {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return pipeline.Terminate(mapAPIErrorToHTTPStatus(apiErr), apiErr)
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	return pipeline.Terminate(http.StatusInternalServerError, model.NewInternalError())
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidationFailed, model.ErrCodeInvalidPage, model.ErrCodeInvalidPostID:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized, model.ErrCodeLoginFailed,
		model.ErrCodeCredentialMalformed, model.ErrCodeCredentialExpired, model.ErrCodeCredentialInvalid:
		return http.StatusUnauthorized
	case model.ErrCodeNotOwner:
		return http.StatusForbidden
	case model.ErrCodePostNotFound:
		return http.StatusNotFound
	case model.ErrCodeDuplicateUsername:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
