package post

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/masaki/inkwell/internal/model"
)

// mockPostRepo はrepository.PostRepositoryのモック実装。
type mockPostRepo struct {
	findByIDFn   func(ctx context.Context, id string) (*model.Post, error)
	listFn       func(ctx context.Context, filter model.PostFilter, skip, limit int) ([]*model.Post, error)
	countFn      func(ctx context.Context, filter model.PostFilter) (int, error)
	createFn     func(ctx context.Context, post *model.Post) error
	updateByIDFn func(ctx context.Context, id string, patch model.PostPatch) (*model.Post, error)
	deleteByIDFn func(ctx context.Context, id string) error
}

func (m *mockPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockPostRepo) List(ctx context.Context, filter model.PostFilter, skip, limit int) ([]*model.Post, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter, skip, limit)
	}
	return nil, nil
}

func (m *mockPostRepo) Count(ctx context.Context, filter model.PostFilter) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, filter)
	}
	return 0, nil
}

func (m *mockPostRepo) Create(ctx context.Context, post *model.Post) error {
	if m.createFn != nil {
		return m.createFn(ctx, post)
	}
	return nil
}

func (m *mockPostRepo) UpdateByID(ctx context.Context, id string, patch model.PostPatch) (*model.Post, error) {
	if m.updateByIDFn != nil {
		return m.updateByIDFn(ctx, id, patch)
	}
	return nil, nil
}

func (m *mockPostRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

// recordingSanitizer はサニタイズ対象の入力を記録するモック。
type recordingSanitizer struct {
	inputs []string
}

func (s *recordingSanitizer) Sanitize(rawHTML string) string {
	s.inputs = append(s.inputs, rawHTML)
	return strings.ReplaceAll(rawHTML, "<script>", "")
}

// --- Createテスト ---

// TestCreate_CopiesOwnerFromIdentity は所有者が認証主体から
// 値でコピーされることを検証する。
func TestCreate_CopiesOwnerFromIdentity(t *testing.T) {
	var persisted *model.Post
	repo := &mockPostRepo{
		createFn: func(ctx context.Context, p *model.Post) error {
			persisted = p
			return nil
		},
	}
	svc := NewService(repo, &recordingSanitizer{})

	identity := model.Identity{ID: "user-1", Username: "alice"}
	created, err := svc.Create(context.Background(), identity, "タイトル", "本文", []string{"go"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if persisted == nil {
		t.Fatal("expected post to be persisted")
	}
	if created.Owner.ID != "user-1" || created.Owner.Username != "alice" {
		t.Errorf("Owner = %+v, want user-1/alice", created.Owner)
	}
	if _, err := uuid.Parse(created.ID); err != nil {
		t.Errorf("ID = %q, want valid UUID", created.ID)
	}
	if created.PublishedAt.IsZero() {
		t.Error("PublishedAt must be set")
	}
}

// TestCreate_SanitizesBody は本文が保存前にサニタイズされることを検証する。
func TestCreate_SanitizesBody(t *testing.T) {
	sanitizer := &recordingSanitizer{}
	var persisted *model.Post
	repo := &mockPostRepo{
		createFn: func(ctx context.Context, p *model.Post) error {
			persisted = p
			return nil
		},
	}
	svc := NewService(repo, sanitizer)

	_, err := svc.Create(context.Background(), model.Identity{ID: "user-1"},
		"タイトル", "<script>alert(1)</script>本文", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if len(sanitizer.inputs) != 1 {
		t.Fatalf("sanitizer called %d times, want 1", len(sanitizer.inputs))
	}
	if strings.Contains(persisted.Body, "<script>") {
		t.Errorf("persisted body contains <script>: %q", persisted.Body)
	}
}

// TestCreate_RepositoryError は永続化失敗がラップされて返ることを検証する。
func TestCreate_RepositoryError(t *testing.T) {
	repo := &mockPostRepo{
		createFn: func(ctx context.Context, p *model.Post) error {
			return errors.New("insert failed")
		},
	}
	svc := NewService(repo, &recordingSanitizer{})

	if _, err := svc.Create(context.Background(), model.Identity{ID: "user-1"}, "t", "b", nil); err == nil {
		t.Fatal("expected error")
	}
}

// --- Listテスト ---

// TestList_PaginationMath はページ番号からのオフセット計算と
// 最終ページの算出を検証する。
func TestList_PaginationMath(t *testing.T) {
	tests := []struct {
		name         string
		page         int
		count        int
		wantSkip     int
		wantLastPage int
	}{
		{name: "1ページ目", page: 1, count: 35, wantSkip: 0, wantLastPage: 4},
		{name: "3ページ目", page: 3, count: 35, wantSkip: 20, wantLastPage: 4},
		{name: "ちょうど割り切れる", page: 1, count: 30, wantSkip: 0, wantLastPage: 3},
		{name: "1件のみ", page: 1, count: 1, wantSkip: 0, wantLastPage: 1},
		{name: "0件", page: 1, count: 0, wantSkip: 0, wantLastPage: 0},
		{name: "範囲外のページ", page: 99, count: 10, wantSkip: 980, wantLastPage: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotSkip, gotLimit int
			repo := &mockPostRepo{
				countFn: func(ctx context.Context, filter model.PostFilter) (int, error) {
					return tt.count, nil
				},
				listFn: func(ctx context.Context, filter model.PostFilter, skip, limit int) ([]*model.Post, error) {
					gotSkip, gotLimit = skip, limit
					return []*model.Post{}, nil
				},
			}
			svc := NewService(repo, &recordingSanitizer{})

			_, lastPage, err := svc.List(context.Background(), model.PostFilter{}, tt.page)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if gotSkip != tt.wantSkip {
				t.Errorf("skip = %d, want %d", gotSkip, tt.wantSkip)
			}
			if gotLimit != PageSize {
				t.Errorf("limit = %d, want %d", gotLimit, PageSize)
			}
			if lastPage != tt.wantLastPage {
				t.Errorf("lastPage = %d, want %d", lastPage, tt.wantLastPage)
			}
		})
	}
}

// TestList_PassesFilter はフィルタがそのままリポジトリへ渡ることを検証する。
func TestList_PassesFilter(t *testing.T) {
	filter := model.PostFilter{OwnerUsername: "alice", Tag: "go"}
	repo := &mockPostRepo{
		countFn: func(ctx context.Context, f model.PostFilter) (int, error) {
			if f != filter {
				t.Errorf("count filter = %+v, want %+v", f, filter)
			}
			return 0, nil
		},
		listFn: func(ctx context.Context, f model.PostFilter, skip, limit int) ([]*model.Post, error) {
			if f != filter {
				t.Errorf("list filter = %+v, want %+v", f, filter)
			}
			return nil, nil
		},
	}
	svc := NewService(repo, &recordingSanitizer{})

	if _, _, err := svc.List(context.Background(), filter, 1); err != nil {
		t.Fatalf("List() error = %v", err)
	}
}

// --- Updateテスト ---

// TestUpdate_SanitizesBodyWhenPresent はパッチに本文が含まれる場合のみ
// サニタイズされることを検証する。
func TestUpdate_SanitizesBodyWhenPresent(t *testing.T) {
	sanitizer := &recordingSanitizer{}
	repo := &mockPostRepo{
		updateByIDFn: func(ctx context.Context, id string, patch model.PostPatch) (*model.Post, error) {
			if patch.Body == nil || strings.Contains(*patch.Body, "<script>") {
				t.Errorf("patch.Body = %v, want sanitized body", patch.Body)
			}
			return &model.Post{ID: id}, nil
		},
	}
	svc := NewService(repo, sanitizer)

	body := "<script>x</script>更新本文"
	if _, err := svc.Update(context.Background(), "post-1", model.PostPatch{Body: &body}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(sanitizer.inputs) != 1 {
		t.Errorf("sanitizer called %d times, want 1", len(sanitizer.inputs))
	}
}

// TestUpdate_SkipsSanitizerWithoutBody は本文なしのパッチで
// サニタイザーが呼ばれないことを検証する。
func TestUpdate_SkipsSanitizerWithoutBody(t *testing.T) {
	sanitizer := &recordingSanitizer{}
	title := "新タイトル"
	repo := &mockPostRepo{
		updateByIDFn: func(ctx context.Context, id string, patch model.PostPatch) (*model.Post, error) {
			return &model.Post{ID: id, Title: *patch.Title}, nil
		},
	}
	svc := NewService(repo, sanitizer)

	if _, err := svc.Update(context.Background(), "post-1", model.PostPatch{Title: &title}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(sanitizer.inputs) != 0 {
		t.Errorf("sanitizer called %d times, want 0", len(sanitizer.inputs))
	}
}

// TestUpdate_NotFoundReturnsNil は存在しない投稿の更新が
// エラーなしのnilになることを検証する。
func TestUpdate_NotFoundReturnsNil(t *testing.T) {
	svc := NewService(&mockPostRepo{}, &recordingSanitizer{})

	updated, err := svc.Update(context.Background(), "missing", model.PostPatch{})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated != nil {
		t.Errorf("updated = %+v, want nil", updated)
	}
}

// --- Deleteテスト ---

// TestDelete_DelegatesToRepository は削除がリポジトリへ委譲されることを検証する。
func TestDelete_DelegatesToRepository(t *testing.T) {
	var gotID string
	repo := &mockPostRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			gotID = id
			return nil
		},
	}
	svc := NewService(repo, &recordingSanitizer{})

	if err := svc.Delete(context.Background(), "post-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if gotID != "post-1" {
		t.Errorf("id = %q, want post-1", gotID)
	}
}

// TestDelete_RepositoryError は削除失敗がラップされて返ることを検証する。
func TestDelete_RepositoryError(t *testing.T) {
	repo := &mockPostRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			return errors.New("delete failed")
		},
	}
	svc := NewService(repo, &recordingSanitizer{})

	if err := svc.Delete(context.Background(), "post-1"); err == nil {
		t.Fatal("expected error")
	}
}
