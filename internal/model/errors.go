// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, location, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeDuplicateUser      = "DUPLICATE_USER"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeMissingCredentials = "MISSING_CREDENTIALS"
	ErrCodeInvalidCoordinate  = "INVALID_COORDINATE"
	ErrCodeInvalidTimestamp   = "INVALID_TIMESTAMP"
	ErrCodeTokenRequired      = "TOKEN_REQUIRED"
	ErrCodeTokenInvalid       = "TOKEN_INVALID"
	ErrCodeTokenExpired       = "TOKEN_EXPIRED"
)

// NewDuplicateUserError はユーザー名重複エラーを生成する。
func NewDuplicateUserError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUser,
		Message:  fmt.Sprintf("このユーザー名は既に使用されています: %s", username),
		Category: "validation",
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// ユーザー不存在とパスワード不一致を区別しない（列挙攻撃対策）。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewMissingCredentialsError はユーザー名・パスワード未入力エラーを生成する。
func NewMissingCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingCredentials,
		Message:  "ユーザー名とパスワードは必須です。",
		Category: "validation",
		Action:   "ユーザー名とパスワードを入力してください。",
	}
}

// NewInvalidCoordinateError は座標値が数値として不正な場合のエラーを生成する。
func NewInvalidCoordinateError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCoordinate,
		Message:  fmt.Sprintf("座標値が不正です: %s", field),
		Category: "validation",
		Action:   "緯度・経度には有限の数値を指定してください。",
	}
}

// NewInvalidTimestampError はタイムスタンプが解釈できない場合のエラーを生成する。
func NewInvalidTimestampError(value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTimestamp,
		Message:  fmt.Sprintf("タイムスタンプが不正です: %s", value),
		Category: "validation",
		Action:   "RFC 3339形式の日時を指定してください。",
	}
}

// NewTokenRequiredError はトークン未提示エラーを生成する。
func NewTokenRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenRequired,
		Message:  "認証トークンが必要です。",
		Category: "auth",
		Action:   "tokenヘッダーに有効なトークンを設定してください。",
	}
}

// NewTokenInvalidError は署名・発行者検証に失敗したトークンのエラーを生成する。
func NewTokenInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenInvalid,
		Message:  "認証トークンが無効です。",
		Category: "auth",
		Action:   "再度サインインしてトークンを取得し直してください。",
	}
}

// NewTokenExpiredError は期限切れトークンのエラーを生成する。
func NewTokenExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenExpired,
		Message:  "認証トークンの有効期限が切れています。",
		Category: "auth",
		Action:   "再度サインインしてトークンを取得し直してください。",
	}
}
