package pipeline

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/masaki/inkwell/internal/model"
	"github.com/masaki/inkwell/internal/token"
)

// credentialCookieName はクレデンシャルを格納するHTTP Only Cookieの名前。
const credentialCookieName = "access_token"

// CredentialVerifier はクレデンシャル検証のインターフェース。
// token.Verifierの部分集合として定義する。
type CredentialVerifier interface {
	Verify(credential string) (*model.Identity, error)
}

// PostFinder は投稿の取得に必要なインターフェース。
// repository.PostRepositoryの部分集合として定義する。
type PostFinder interface {
	FindByID(ctx context.Context, id string) (*model.Post, error)
}

// extractCredential はリクエストからベアラークレデンシャルを取り出す。
// Authorizationヘッダーを優先し、なければCookieを参照する。
// どちらにも存在しない場合は空文字列を返す。
func extractCredential(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if cred, ok := strings.CutPrefix(h, "Bearer "); ok {
			return cred
		}
		return h
	}
	if cookie, err := r.Cookie(credentialCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// VerifyIdentity はクレデンシャルを検証しIdentityをContextに付与するステージを返す。
//
// クレデンシャルが提示されていない場合はIdentityなしで継続する。
// 認証を要求するかどうかは後続ステージ（RequireIdentity、RequireOwnership）が決める。
// 提示されたクレデンシャルが不正な場合は401でチェーンを終了する（フェイルクローズ）。
func VerifyIdentity(verifier CredentialVerifier) Stage {
	return func(c *Context) Result {
		cred := extractCredential(c.Request)
		if cred == "" {
			return Continue()
		}

		identity, err := verifier.Verify(cred)
		if err != nil {
			return Terminate(http.StatusUnauthorized, nil)
		}

		c.Identity = identity
		return Continue()
	}
}

// RequireIdentity は認証済みIdentityの存在を要求するステージを返す。
// VerifyIdentityの後に配置すること。Identityが付与されていない場合は
// 401でチェーンを終了する。
func RequireIdentity() Stage {
	return func(c *Context) Result {
		if c.Identity == nil {
			return Terminate(http.StatusUnauthorized, nil)
		}
		return Continue()
	}
}

// LoadPost はルートパラメータのIDで投稿を取得しContextに付与するステージを返す。
//
// 識別子の形式チェックはストレージ照会の前に行う純粋な構文チェックで、
// 不正な形式は400、存在しないIDは404でチェーンを終了する。
func LoadPost(finder PostFinder) Stage {
	return func(c *Context) Result {
		id := c.Param("id")
		if _, err := uuid.Parse(id); err != nil {
			return Terminate(http.StatusBadRequest, nil)
		}

		post, err := finder.FindByID(c.Request.Context(), id)
		if err != nil {
			slog.Error("failed to load post",
				slog.String("post_id", id),
				slog.String("error", err.Error()),
			)
			return Terminate(http.StatusInternalServerError, model.NewInternalError())
		}
		if post == nil {
			return Terminate(http.StatusNotFound, nil)
		}

		c.Post = post
		return Continue()
	}
}

// RequireOwnership は認証主体が対象投稿の所有者であることを要求するステージを返す。
//
// 前提条件: VerifyIdentityとLoadPostの後に配置すること。Identityが
// 付与されていない場合は401、所有者でない場合は403でチェーンを終了する。
// 比較は正規化した識別子文字列で行い、一致した場合は何も変更せず継続する。
func RequireOwnership() Stage {
	return func(c *Context) Result {
		if c.Identity == nil {
			return Terminate(http.StatusUnauthorized, nil)
		}
		if NormalizeID(c.Post.Owner.ID) != NormalizeID(c.Identity.ID) {
			return Terminate(http.StatusForbidden, nil)
		}
		return Continue()
	}
}

// NormalizeID は識別子を正準な文字列形式に正規化する。
// UUIDとして解釈できる場合はその正準表現（小文字ハイフン区切り）を返し、
// そうでない場合は前後の空白を除去して小文字化した文字列を返す。
// 表現の揺れ（大文字小文字、余分な空白）で正当な所有者を拒否しないための処置。
func NormalizeID(id string) string {
	trimmed := strings.TrimSpace(id)
	if u, err := uuid.Parse(trimmed); err == nil {
		return u.String()
	}
	return strings.ToLower(trimmed)
}

// compile-time interface check
var _ CredentialVerifier = (*token.Verifier)(nil)
