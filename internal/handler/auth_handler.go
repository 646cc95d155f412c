package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/masaki/inkwell/internal/model"
	"github.com/masaki/inkwell/internal/pipeline"
	"github.com/masaki/inkwell/internal/validate"
)

// credentialCookieName はクレデンシャルを格納するHTTP Only Cookieの名前。
const credentialCookieName = "access_token"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Register は新規ユーザーを作成し、クレデンシャルを発行する。
	Register(ctx context.Context, username, password string) (*model.User, string, error)
	// Login はユーザー名とパスワードを検証し、クレデンシャルを発行する。
	Login(ctx context.Context, username, password string) (*model.User, string, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain string
	CookieSecure bool
	TokenTTL     time.Duration
}

// AuthHandler は認証のHTTPハンドラー。
// 各メソッドはパイプラインの終端ステージとして動作する。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// userResponse はユーザー情報のAPIレスポンス。
// ハッシュ済みパスワードは含めない。
type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// setCredentialCookie は発行したクレデンシャルをHTTP Only Cookieとして設定する。
func (h *AuthHandler) setCredentialCookie(c *pipeline.Context, credential string) {
	cookie := &http.Cookie{
		Name:     credentialCookieName,
		Value:    credential,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   int(h.config.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	c.SetHeader("Set-Cookie", cookie.String())
}

// clearCredentialCookie はクレデンシャルCookieを失効させる。
func (h *AuthHandler) clearCredentialCookie(c *pipeline.Context) {
	cookie := &http.Cookie{
		Name:     credentialCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	c.SetHeader("Set-Cookie", cookie.String())
}

// Register は新規ユーザーを登録し、クレデンシャルをCookieで返す。
// POST /api/auth/register
// 前提: チェーンでバリデーションを通過済み。
func (h *AuthHandler) Register(c *pipeline.Context) pipeline.Result {
	in := c.Payload.(*validate.RegisterInput)

	user, credential, err := h.service.Register(c.Request.Context(), in.Username, in.Password)
	if err != nil {
		return serviceErrorResult(err)
	}

	h.setCredentialCookie(c, credential)
	return pipeline.Terminate(http.StatusOK, userResponse{
		ID:       user.ID,
		Username: user.Username,
	})
}

// Login はユーザーを認証し、クレデンシャルをCookieで返す。
// POST /api/auth/login
// 前提: チェーンでバリデーションを通過済み。
func (h *AuthHandler) Login(c *pipeline.Context) pipeline.Result {
	in := c.Payload.(*validate.LoginInput)

	user, credential, err := h.service.Login(c.Request.Context(), in.Username, in.Password)
	if err != nil {
		return serviceErrorResult(err)
	}

	h.setCredentialCookie(c, credential)
	return pipeline.Terminate(http.StatusOK, userResponse{
		ID:       user.ID,
		Username: user.Username,
	})
}

// Check は現在の認証主体を返す。
// GET /api/auth/check
// 前提: チェーンでVerifyIdentity、RequireIdentityを通過済み。
func (h *AuthHandler) Check(c *pipeline.Context) pipeline.Result {
	return pipeline.Terminate(http.StatusOK, userResponse{
		ID:       c.Identity.ID,
		Username: c.Identity.Username,
	})
}

// Logout はクレデンシャルCookieを失効させる。
// POST /api/auth/logout
// トークン自体は失効しない（有効期限まで有効）。サーバー側に状態は持たない。
func (h *AuthHandler) Logout(c *pipeline.Context) pipeline.Result {
	h.clearCredentialCookie(c)
	return pipeline.Terminate(http.StatusNoContent, nil)
}
