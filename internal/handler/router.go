package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/masaki/inkwell/internal/metrics"
	"github.com/masaki/inkwell/internal/middleware"
	"github.com/masaki/inkwell/internal/pipeline"
	"github.com/masaki/inkwell/internal/validate"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// *sql.DBがこれを満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	HealthChecker     HealthChecker

	// メトリクス（nilの場合は無効）
	Metrics         *metrics.Collector
	MetricsGatherer prometheus.Gatherer

	// パイプラインステージ依存
	Verifier   pipeline.CredentialVerifier
	PostFinder pipeline.PostFinder
	Validator  *validate.Validator

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 投稿
	PostService PostServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとパイプラインチェーンを構成した
// chi.Routerを返す。
//
// アンビエントミドルウェアの実行順序:
//
//	CORS → SecurityHeaders → Metrics → Logging → Recovery
//
// その内側で、各ルートは固有のステージチェーンを実行する。変更系ルートの
// チェーン順序は verifyIdentity → loadPost → requireOwnership → validate →
// handler で固定されている。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
	}
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewRecoveryMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	postHandler := NewPostHandler(deps.PostService)

	verify := pipeline.VerifyIdentity(deps.Verifier)
	loadPost := pipeline.LoadPost(deps.PostFinder)

	// 認証ルート（登録・ログインは専用レート制限付き）
	r.Route("/api/auth", func(r chi.Router) {
		r.With(deps.RateLimiter.AuthMiddleware()).
			Post("/register", pipeline.Chain{
				deps.Validator.Register(),
				authHandler.Register,
			}.Handler())
		r.With(deps.RateLimiter.AuthMiddleware()).
			Post("/login", pipeline.Chain{
				deps.Validator.Login(),
				authHandler.Login,
			}.Handler())
		r.Get("/check", pipeline.Chain{
			verify,
			pipeline.RequireIdentity(),
			authHandler.Check,
		}.Handler())
		r.Post("/logout", pipeline.Chain{
			authHandler.Logout,
		}.Handler())
	})

	// 投稿ルート
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/posts", func(r chi.Router) {
			// 一覧・閲覧は認証不要（クレデンシャルが提示されていれば検証はする）
			r.Get("/", pipeline.Chain{
				verify,
				postHandler.List,
			}.Handler())

			r.Post("/", pipeline.Chain{
				verify,
				pipeline.RequireIdentity(),
				deps.Validator.CreatePost(),
				postHandler.Create,
			}.Handler())

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", pipeline.Chain{
					verify,
					loadPost,
					postHandler.Read,
				}.Handler())

				r.Patch("/", pipeline.Chain{
					verify,
					loadPost,
					pipeline.RequireOwnership(),
					deps.Validator.UpdatePost(),
					postHandler.Update,
				}.Handler())

				r.Delete("/", pipeline.Chain{
					verify,
					loadPost,
					pipeline.RequireOwnership(),
					postHandler.Delete,
				}.Handler())
			})
		})
	})

	// ヘルスチェック
	r.Get("/health", newHealthHandler(deps.HealthChecker))

	// Prometheusスクレイプ
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	return r
}

// newHealthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
