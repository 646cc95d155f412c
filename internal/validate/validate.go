// Package validate はリクエストボディの宣言的バリデーションを提供する。
//
// 操作ごとにスキーマ（タグ付き構造体）を定義し、永続化処理より前の
// パイプラインステージとして検証を行う。検証に失敗した場合は400で
// チェーンを終了し、書き込みは一切行われない。
package validate

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/masaki/inkwell/internal/model"
	"github.com/masaki/inkwell/internal/pipeline"
)

// CreatePostInput は投稿作成リクエストのスキーマ。
// title、body、tagsのすべてが必須。tagsは文字列のリスト（空リストは許容）。
type CreatePostInput struct {
	Title string   `json:"title" validate:"required"`
	Body  string   `json:"body" validate:"required"`
	Tags  []string `json:"tags" validate:"required"`
}

// UpdatePostInput は投稿の部分更新リクエストのスキーマ。
// すべてのフィールドが任意だが、存在するフィールドの型は厳密に検証される
// （未知のフィールドと型不一致はデコード時点で拒否される）。
type UpdatePostInput struct {
	Title *string   `json:"title"`
	Body  *string   `json:"body"`
	Tags  *[]string `json:"tags"`
}

// RegisterInput はユーザー登録リクエストのスキーマ。
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=20,alphanum"`
	Password string `json:"password" validate:"required,min=4"`
}

// LoginInput はログインリクエストのスキーマ。
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Validator はスキーマ検証器を保持する。スレッドセーフに共有できる。
type Validator struct {
	v *validator.Validate
}

// New はValidatorを生成する。
func New() *Validator {
	return &Validator{
		v: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// decode はリクエストボディをdstへデコードする。
// 未知のフィールドと型不一致はエラーになる。
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// describe は検証エラーをフィールド名の列挙に変換する。
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field())+" ("+fe.Tag()+")")
	}
	return strings.Join(fields, ", ")
}

// CreatePost は投稿作成ボディを検証するパイプラインステージを返す。
// 成功時は*CreatePostInputをContextのPayloadに付与して継続する。
func (v *Validator) CreatePost() pipeline.Stage {
	return func(c *pipeline.Context) pipeline.Result {
		var in CreatePostInput
		if err := decode(c.Request, &in); err != nil {
			return pipeline.Terminate(http.StatusBadRequest,
				model.NewValidationFailedError(err.Error()))
		}
		if err := v.v.Struct(&in); err != nil {
			return pipeline.Terminate(http.StatusBadRequest,
				model.NewValidationFailedError(describe(err)))
		}
		c.Payload = &in
		return pipeline.Continue()
	}
}

// UpdatePost は投稿の部分更新ボディを検証するパイプラインステージを返す。
// 成功時は*UpdatePostInputをContextのPayloadに付与して継続する。
func (v *Validator) UpdatePost() pipeline.Stage {
	return func(c *pipeline.Context) pipeline.Result {
		var in UpdatePostInput
		if err := decode(c.Request, &in); err != nil {
			return pipeline.Terminate(http.StatusBadRequest,
				model.NewValidationFailedError(err.Error()))
		}
		if err := v.v.Struct(&in); err != nil {
			return pipeline.Terminate(http.StatusBadRequest,
				model.NewValidationFailedError(describe(err)))
		}
		c.Payload = &in
		return pipeline.Continue()
	}
}

// Register はユーザー登録ボディを検証するパイプラインステージを返す。
func (v *Validator) Register() pipeline.Stage {
	return func(c *pipeline.Context) pipeline.Result {
		var in RegisterInput
		if err := decode(c.Request, &in); err != nil {
			return pipeline.Terminate(http.StatusBadRequest,
				model.NewValidationFailedError(err.Error()))
		}
		if err := v.v.Struct(&in); err != nil {
			return pipeline.Terminate(http.StatusBadRequest,
				model.NewValidationFailedError(describe(err)))
		}
		c.Payload = &in
		return pipeline.Continue()
	}
}

// Login はログインボディを検証するパイプラインステージを返す。
func (v *Validator) Login() pipeline.Stage {
	return func(c *pipeline.Context) pipeline.Result {
		var in LoginInput
		if err := decode(c.Request, &in); err != nil {
			return pipeline.Terminate(http.StatusBadRequest,
				model.NewValidationFailedError(err.Error()))
		}
		if err := v.v.Struct(&in); err != nil {
			return pipeline.Terminate(http.StatusBadRequest,
				model.NewValidationFailedError(describe(err)))
		}
		c.Payload = &in
		return pipeline.Continue()
	}
}
