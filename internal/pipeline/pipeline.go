// Package pipeline はルートごとのリクエスト処理チェーンを提供する。
//
// チェーンはステージの順序付きリストで、リクエストスコープの共有Contextを
// 先頭から順に通過させる。各ステージは継続（Continue）か終了（Terminate）の
// いずれかを返し、最初に終了を返したステージでチェーンは打ち切られる。
// 後続のステージは実行されない（フェイルクローズ）。
//
// 1リクエストにつきContextは1つだけ生成され、ステージは逐次実行される。
// ステージの再実行や同一Contextに対する並行実行は存在しない。
package pipeline

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/masaki/inkwell/internal/model"
)

// Context はパイプラインの全ステージが共有するリクエストスコープの状態。
// リクエスト到達時に生成され、ステージが段階的に値を埋め、
// レスポンス送信後に破棄される。
//
// 各フィールドは、それを埋める契約のステージが実行されるまで観測してはならない。
// 実行順序はルート定義が保証する（例: RequireOwnershipはVerifyIdentityと
// LoadPostの後に置かれる）。
type Context struct {
	// Request は元のHTTPリクエスト。ルートパラメータとクエリの読み取りに使う。
	Request *http.Request

	// Identity はVerifyIdentityが付与する認証主体。未認証の場合はnil。
	Identity *model.Identity

	// Post はLoadPostが付与する対象リソース。
	Post *model.Post

	// Payload はバリデーションステージが付与する型付きリクエストボディ。
	Payload any

	header http.Header
}

// NewContext はリクエストからContextを生成する。
func NewContext(r *http.Request) *Context {
	return &Context{
		Request: r,
		header:  make(http.Header),
	}
}

// Param はルートパラメータを返す。
func (c *Context) Param(key string) string {
	return chi.URLParam(c.Request, key)
}

// Query はクエリパラメータを返す。
func (c *Context) Query() url.Values {
	return c.Request.URL.Query()
}

// SetHeader はレスポンスヘッダーを設定する。
// チェーン終了後、ランナーがレスポンスへ書き出す。
func (c *Context) SetHeader(key, value string) {
	c.header.Set(key, value)
}

// Result はステージの実行結果を表す。
// 継続か、ステータスとボディを確定させた終了かのどちらか。
// 終了を返すステージはレスポンスを完全に確定させていなければならない。
type Result struct {
	terminated bool
	status     int
	body       any
}

// Continue はチェーンを次のステージへ進める結果を返す。
func Continue() Result {
	return Result{}
}

// Terminate はチェーンを打ち切り、指定のステータスとボディで応答する結果を返す。
// bodyがnilの場合はボディなしで応答する。
func Terminate(status int, body any) Result {
	return Result{terminated: true, status: status, body: body}
}

// Stage はチェーンを構成する1ステージ。
// 共有Contextを読み書きし、継続か終了を返す。
type Stage func(*Context) Result

// Chain はルートに紐付くステージの順序付きリスト。
type Chain []Stage

// run はチェーンを先頭から実行し、最初の終了結果を返す。
// 全ステージが継続を返した場合は契約違反であり、500として扱う
// （リクエストをハングさせない）。
func (ch Chain) run(c *Context) Result {
	for _, stage := range ch {
		res := stage(c)
		if res.terminated {
			return res
		}
	}

	slog.Error("pipeline chain exhausted without termination",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
	)
	return Terminate(http.StatusInternalServerError, model.NewInternalError())
}

// errorResponseBody はAPIErrorのJSON表現。
type errorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// Handler はチェーンをhttp.HandlerFuncに変換する。
// Contextの生成、チェーンの実行、レスポンスの書き込みを1箇所で行い、
// ステージのpanicはこの境界で捕捉して500に変換する（プロセスは落とさない）。
// レスポンスを書くのはこのランナーのみで、1リクエストにつき1回だけ書く。
func (ch Chain) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := NewContext(r)

		res := func() (res Result) {
			defer func() {
				if rec := recover(); rec != nil {
					slog.Error("panic in pipeline stage",
						slog.Any("panic", rec),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
					)
					res = Terminate(http.StatusInternalServerError, model.NewInternalError())
				}
			}()
			return ch.run(c)
		}()

		for key, values := range c.header {
			for _, v := range values {
				w.Header().Add(key, v)
			}
		}

		if res.body == nil {
			w.WriteHeader(res.status)
			return
		}

		body := res.body
		if apiErr, ok := body.(*model.APIError); ok {
			body = errorResponseBody{
				Code:     apiErr.Code,
				Message:  apiErr.Message,
				Category: apiErr.Category,
				Action:   apiErr.Action,
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(res.status)
		if err := json.NewEncoder(w).Encode(body); err != nil {
			slog.Error("failed to encode response body",
				slog.String("error", err.Error()),
			)
		}
	}
}
