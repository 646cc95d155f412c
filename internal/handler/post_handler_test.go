package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/masaki/inkwell/internal/model"
	"github.com/masaki/inkwell/internal/pipeline"
	"github.com/masaki/inkwell/internal/validate"
)

// --- モック定義 ---

// mockPostService はPostServiceInterfaceのモック実装。
type mockPostService struct {
	createFn func(ctx context.Context, identity model.Identity, title, body string, tags []string) (*model.Post, error)
	listFn   func(ctx context.Context, filter model.PostFilter, page int) ([]*model.Post, int, error)
	updateFn func(ctx context.Context, id string, patch model.PostPatch) (*model.Post, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockPostService) Create(ctx context.Context, identity model.Identity, title, body string, tags []string) (*model.Post, error) {
	if m.createFn != nil {
		return m.createFn(ctx, identity, title, body, tags)
	}
	return nil, nil
}

func (m *mockPostService) List(ctx context.Context, filter model.PostFilter, page int) ([]*model.Post, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter, page)
	}
	return nil, 0, nil
}

func (m *mockPostService) Update(ctx context.Context, id string, patch model.PostPatch) (*model.Post, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, patch)
	}
	return nil, nil
}

func (m *mockPostService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// --- テストヘルパー ---

// seedContext はチェーン実行前にContextへ値を注入するステージを返すヘルパー。
func seedContext(identity *model.Identity, post *model.Post, payload any) pipeline.Stage {
	return func(c *pipeline.Context) pipeline.Result {
		c.Identity = identity
		c.Post = post
		c.Payload = payload
		return pipeline.Continue()
	}
}

// serveStage は終端ステージを単体のチェーンとして実行するヘルパー。
func serveStage(req *http.Request, stages ...pipeline.Stage) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	pipeline.Chain(stages).Handler()(w, req)
	return w
}

// --- POST /api/posts テスト ---

// TestPostHandler_Create_Success は投稿作成が認証主体を所有者として
// サービスへ渡し、200で作成結果を返すことを検証する。
func TestPostHandler_Create_Success(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	identity := &model.Identity{ID: "user-1", Username: "alice"}

	svc := &mockPostService{
		createFn: func(ctx context.Context, id model.Identity, title, body string, tags []string) (*model.Post, error) {
			if id.ID != "user-1" || id.Username != "alice" {
				t.Errorf("identity = %+v, want user-1/alice", id)
			}
			if title != "タイトル" {
				t.Errorf("title = %q, want %q", title, "タイトル")
			}
			return &model.Post{
				ID:          "post-1",
				Title:       title,
				Body:        body,
				Tags:        tags,
				PublishedAt: now,
				Owner:       model.Owner{ID: id.ID, Username: id.Username},
			}, nil
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/posts", nil)
	w := serveStage(req,
		seedContext(identity, nil, &validate.CreatePostInput{
			Title: "タイトル",
			Body:  "本文",
			Tags:  []string{"go"},
		}),
		h.Create,
	)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", w.Code, http.StatusOK, w.Body.String())
	}

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["id"] != "post-1" {
		t.Errorf("id = %v, want post-1", resp["id"])
	}
	owner, ok := resp["owner"].(map[string]any)
	if !ok {
		t.Fatal("expected owner object in response")
	}
	if owner["id"] != "user-1" || owner["username"] != "alice" {
		t.Errorf("owner = %v, want user-1/alice", owner)
	}
}

// TestPostHandler_Create_ServiceError はサービスの内部エラーが
// 500になることを検証する。
func TestPostHandler_Create_ServiceError(t *testing.T) {
	svc := &mockPostService{
		createFn: func(ctx context.Context, id model.Identity, title, body string, tags []string) (*model.Post, error) {
			return nil, errors.New("insert failed")
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/posts", nil)
	w := serveStage(req,
		seedContext(&model.Identity{ID: "user-1"}, nil, &validate.CreatePostInput{
			Title: "t", Body: "b", Tags: []string{},
		}),
		h.Create,
	)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

// --- GET /api/posts テスト ---

// TestPostHandler_List_Success は一覧がLast-Pageヘッダー付きで返ることを検証する。
func TestPostHandler_List_Success(t *testing.T) {
	svc := &mockPostService{
		listFn: func(ctx context.Context, filter model.PostFilter, page int) ([]*model.Post, int, error) {
			if page != 1 {
				t.Errorf("page = %d, want 1", page)
			}
			return []*model.Post{
				{ID: "post-1", Title: "投稿1", Body: "短い本文"},
				{ID: "post-2", Title: "投稿2", Body: "別の本文"},
			}, 4, nil
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	w := serveStage(req, h.List)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("Last-Page"); got != "4" {
		t.Errorf("Last-Page = %q, want %q", got, "4")
	}

	var resp []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp) != 2 {
		t.Errorf("length = %d, want 2", len(resp))
	}
}

// TestPostHandler_List_TruncatesLongBody は一覧の本文が200文字で
// 切り詰められ省略記号が付与されることを検証する。
func TestPostHandler_List_TruncatesLongBody(t *testing.T) {
	longBody := strings.Repeat("あ", 250)
	svc := &mockPostService{
		listFn: func(ctx context.Context, filter model.PostFilter, page int) ([]*model.Post, int, error) {
			return []*model.Post{{ID: "post-1", Body: longBody}}, 1, nil
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	w := serveStage(req, h.List)

	var resp []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	body := resp[0]["body"].(string)
	if !strings.HasSuffix(body, "...") {
		t.Errorf("body should end with ellipsis, got %q", body[len(body)-10:])
	}
	if got := len([]rune(body)); got != 203 {
		t.Errorf("body rune length = %d, want 203", got)
	}
	if !strings.HasPrefix(body, strings.Repeat("あ", 200)) {
		t.Error("body should start with the first 200 runes")
	}
}

// TestPostHandler_List_ShortBodyNotTruncated は200文字以下の本文が
// そのまま返ることを検証する。
func TestPostHandler_List_ShortBodyNotTruncated(t *testing.T) {
	body := strings.Repeat("a", 200)
	svc := &mockPostService{
		listFn: func(ctx context.Context, filter model.PostFilter, page int) ([]*model.Post, int, error) {
			return []*model.Post{{ID: "post-1", Body: body}}, 1, nil
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	w := serveStage(req, h.List)

	var resp []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got := resp[0]["body"].(string); got != body {
		t.Errorf("body = %q, want unmodified body", got)
	}
}

// TestPostHandler_List_InvalidPage は不正なページ番号が400になることを検証する。
func TestPostHandler_List_InvalidPage(t *testing.T) {
	svc := &mockPostService{
		listFn: func(ctx context.Context, filter model.PostFilter, page int) ([]*model.Post, int, error) {
			t.Error("service should not be called for invalid page")
			return nil, 0, nil
		},
	}
	h := NewPostHandler(svc)

	for _, page := range []string{"abc", "0", "-1", "1.5"} {
		req := httptest.NewRequest(http.MethodGet, "/api/posts?page="+page, nil)
		w := serveStage(req, h.List)

		if w.Code != http.StatusBadRequest {
			t.Errorf("page=%s: status = %d, want %d", page, w.Code, http.StatusBadRequest)
			continue
		}
		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if body["code"] != model.ErrCodeInvalidPage {
			t.Errorf("code = %q, want %q", body["code"], model.ErrCodeInvalidPage)
		}
	}
}

// TestPostHandler_List_PassesFilter はクエリパラメータがフィルタとして
// サービスへ渡されることを検証する。
func TestPostHandler_List_PassesFilter(t *testing.T) {
	svc := &mockPostService{
		listFn: func(ctx context.Context, filter model.PostFilter, page int) ([]*model.Post, int, error) {
			if filter.OwnerUsername != "alice" {
				t.Errorf("OwnerUsername = %q, want %q", filter.OwnerUsername, "alice")
			}
			if filter.Tag != "go" {
				t.Errorf("Tag = %q, want %q", filter.Tag, "go")
			}
			if page != 2 {
				t.Errorf("page = %d, want 2", page)
			}
			return []*model.Post{}, 0, nil
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/posts?username=alice&tag=go&page=2", nil)
	w := serveStage(req, h.List)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

// TestPostHandler_List_EmptyPageReturnsEmptyList は範囲外ページが
// エラーではなく空リストになることを検証する。
func TestPostHandler_List_EmptyPageReturnsEmptyList(t *testing.T) {
	svc := &mockPostService{
		listFn: func(ctx context.Context, filter model.PostFilter, page int) ([]*model.Post, int, error) {
			return []*model.Post{}, 1, nil
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/posts?page=99", nil)
	w := serveStage(req, h.List)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

// TestPostHandler_List_NilTagsSerializedAsEmptyList はタグ未設定の投稿が
// nullではなく空リストとして返ることを検証する。
func TestPostHandler_List_NilTagsSerializedAsEmptyList(t *testing.T) {
	svc := &mockPostService{
		listFn: func(ctx context.Context, filter model.PostFilter, page int) ([]*model.Post, int, error) {
			return []*model.Post{{ID: "post-1", Tags: nil}}, 1, nil
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	w := serveStage(req, h.List)

	var resp []map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	tags, ok := resp[0]["tags"].([]any)
	if !ok {
		t.Fatalf("tags = %v, want JSON array", resp[0]["tags"])
	}
	if len(tags) != 0 {
		t.Errorf("tags = %v, want empty", tags)
	}
}

// --- GET /api/posts/:id テスト ---

// TestPostHandler_Read_ReturnsLoadedPost はLoadPostが付与した投稿が
// そのまま返ることを検証する。
func TestPostHandler_Read_ReturnsLoadedPost(t *testing.T) {
	post := &model.Post{
		ID:    "post-1",
		Title: "詳細表示",
		Body:  strings.Repeat("x", 500), // 詳細表示では切り詰めない
		Owner: model.Owner{ID: "user-1", Username: "alice"},
	}
	h := NewPostHandler(&mockPostService{})

	req := httptest.NewRequest(http.MethodGet, "/api/posts/post-1", nil)
	w := serveStage(req, seedContext(nil, post, nil), h.Read)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got := resp["body"].(string); len(got) != 500 {
		t.Errorf("body length = %d, want 500 (no truncation)", len(got))
	}
}

// --- PATCH /api/posts/:id テスト ---

// TestPostHandler_Update_Success は部分更新がパッチとしてサービスへ渡り、
// 更新後の投稿が返ることを検証する。
func TestPostHandler_Update_Success(t *testing.T) {
	newTitle := "更新後タイトル"
	post := &model.Post{ID: "post-1", Owner: model.Owner{ID: "user-1"}}

	svc := &mockPostService{
		updateFn: func(ctx context.Context, id string, patch model.PostPatch) (*model.Post, error) {
			if id != "post-1" {
				t.Errorf("id = %q, want post-1", id)
			}
			if patch.Title == nil || *patch.Title != newTitle {
				t.Errorf("patch.Title = %v, want %q", patch.Title, newTitle)
			}
			if patch.Body != nil {
				t.Errorf("patch.Body = %v, want nil", patch.Body)
			}
			return &model.Post{ID: id, Title: newTitle}, nil
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodPatch, "/api/posts/post-1", nil)
	w := serveStage(req,
		seedContext(&model.Identity{ID: "user-1"}, post, &validate.UpdatePostInput{Title: &newTitle}),
		h.Update,
	)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["title"] != newTitle {
		t.Errorf("title = %v, want %q", resp["title"], newTitle)
	}
}

// TestPostHandler_Update_GoneAfterLoad はロード後に削除された投稿の更新が
// 404になることを検証する。
func TestPostHandler_Update_GoneAfterLoad(t *testing.T) {
	svc := &mockPostService{
		updateFn: func(ctx context.Context, id string, patch model.PostPatch) (*model.Post, error) {
			return nil, nil
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodPatch, "/api/posts/post-1", nil)
	w := serveStage(req,
		seedContext(&model.Identity{ID: "user-1"},
			&model.Post{ID: "post-1", Owner: model.Owner{ID: "user-1"}},
			&validate.UpdatePostInput{}),
		h.Update,
	)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if w.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", w.Body.String())
	}
}

// --- DELETE /api/posts/:id テスト ---

// TestPostHandler_Delete_Success は削除成功が204を返すことを検証する。
func TestPostHandler_Delete_Success(t *testing.T) {
	called := false
	svc := &mockPostService{
		deleteFn: func(ctx context.Context, id string) error {
			called = true
			if id != "post-1" {
				t.Errorf("id = %q, want post-1", id)
			}
			return nil
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/posts/post-1", nil)
	w := serveStage(req,
		seedContext(&model.Identity{ID: "user-1"},
			&model.Post{ID: "post-1", Owner: model.Owner{ID: "user-1"}}, nil),
		h.Delete,
	)

	if !called {
		t.Error("expected Delete to be called")
	}
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if w.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", w.Body.String())
	}
}

// TestPostHandler_Delete_ServiceError は削除失敗が500になることを検証する。
func TestPostHandler_Delete_ServiceError(t *testing.T) {
	svc := &mockPostService{
		deleteFn: func(ctx context.Context, id string) error {
			return errors.New("delete failed")
		},
	}
	h := NewPostHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/posts/post-1", nil)
	w := serveStage(req,
		seedContext(&model.Identity{ID: "user-1"},
			&model.Post{ID: "post-1", Owner: model.Owner{ID: "user-1"}}, nil),
		h.Delete,
	)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

// --- エラーマッピングテスト ---

// TestMapAPIErrorToHTTPStatus はエラーコードからHTTPステータスへの
// マッピングを検証する。
func TestMapAPIErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{code: model.ErrCodeValidationFailed, want: http.StatusBadRequest},
		{code: model.ErrCodeInvalidPage, want: http.StatusBadRequest},
		{code: model.ErrCodeInvalidPostID, want: http.StatusBadRequest},
		{code: model.ErrCodeUnauthorized, want: http.StatusUnauthorized},
		{code: model.ErrCodeLoginFailed, want: http.StatusUnauthorized},
		{code: model.ErrCodeCredentialMalformed, want: http.StatusUnauthorized},
		{code: model.ErrCodeCredentialExpired, want: http.StatusUnauthorized},
		{code: model.ErrCodeCredentialInvalid, want: http.StatusUnauthorized},
		{code: model.ErrCodeNotOwner, want: http.StatusForbidden},
		{code: model.ErrCodePostNotFound, want: http.StatusNotFound},
		{code: model.ErrCodeDuplicateUsername, want: http.StatusConflict},
		{code: model.ErrCodeInternal, want: http.StatusInternalServerError},
		{code: "UNKNOWN_CODE", want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := mapAPIErrorToHTTPStatus(&model.APIError{Code: tt.code})
			if got != tt.want {
				t.Errorf("mapAPIErrorToHTTPStatus(%s) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}
