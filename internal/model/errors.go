// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, authorization, validation, post, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeCredentialMalformed = "CREDENTIAL_MALFORMED"
	ErrCodeCredentialExpired   = "CREDENTIAL_EXPIRED"
	ErrCodeCredentialInvalid   = "CREDENTIAL_INVALID"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeNotOwner            = "NOT_OWNER"
	ErrCodePostNotFound        = "POST_NOT_FOUND"
	ErrCodeInvalidPostID       = "INVALID_POST_ID"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeInvalidPage         = "INVALID_PAGE"
	ErrCodeDuplicateUsername   = "DUPLICATE_USERNAME"
	ErrCodeLoginFailed         = "LOGIN_FAILED"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewCredentialMalformedError は解析不能なクレデンシャルのエラーを生成する。
func NewCredentialMalformedError() *APIError {
	return &APIError{
		Code:     ErrCodeCredentialMalformed,
		Message:  "クレデンシャルを解析できません。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewCredentialExpiredError は期限切れクレデンシャルのエラーを生成する。
func NewCredentialExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeCredentialExpired,
		Message:  "クレデンシャルの有効期限が切れています。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewCredentialInvalidError は署名検証に失敗したクレデンシャルのエラーを生成する。
func NewCredentialInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeCredentialInvalid,
		Message:  "クレデンシャルの署名を検証できません。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewNotOwnerError は所有者以外による変更操作のエラーを生成する。
func NewNotOwnerError() *APIError {
	return &APIError{
		Code:     ErrCodeNotOwner,
		Message:  "この投稿を変更する権限がありません。",
		Category: "authorization",
		Action:   "自分が作成した投稿のみ変更できます。",
	}
}

// NewPostNotFoundError は投稿未検出エラーを生成する。
func NewPostNotFoundError(postID string) *APIError {
	return &APIError{
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("指定された投稿が見つかりません: %s", postID),
		Category: "post",
		Action:   "投稿IDを確認してください。",
	}
}

// NewInvalidPostIDError は識別子形式が不正な場合のエラーを生成する。
func NewInvalidPostIDError(postID string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPostID,
		Message:  fmt.Sprintf("投稿IDの形式が不正です: %s", postID),
		Category: "validation",
		Action:   "正しい形式の投稿IDを指定してください。",
	}
}

// NewValidationFailedError はリクエストボディの検証失敗エラーを生成する。
func NewValidationFailedError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("リクエスト内容の検証に失敗しました: %s", detail),
		Category: "validation",
		Action:   "必須フィールドと各フィールドの型を確認してください。",
	}
}

// NewInvalidPageError は不正なページ番号のエラーを生成する。
func NewInvalidPageError(page string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPage,
		Message:  fmt.Sprintf("無効なページ番号です: %s", page),
		Category: "validation",
		Action:   "1以上の整数をpageに指定してください。",
	}
}

// NewDuplicateUsernameError はユーザー名重複のエラーを生成する。
func NewDuplicateUsernameError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUsername,
		Message:  fmt.Sprintf("このユーザー名は既に使用されています: %s", username),
		Category: "validation",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewLoginFailedError はログイン失敗のエラーを生成する。
// ユーザー不存在とパスワード不一致を区別しない。
func NewLoginFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginFailed,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認してください。",
	}
}

// NewInternalError は内部エラーを生成する。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
