// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidDayCount    = "INVALID_DAY_COUNT"
	ErrCodeDayCountOutOfRange = "DAY_COUNT_OUT_OF_RANGE"
	ErrCodeNoValidURLs        = "NO_VALID_URLS"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeMissingCredentials = "MISSING_CREDENTIALS"
)

// NewInvalidDayCountError は日数が数値として解釈できない場合のエラーを生成する。
func NewInvalidDayCountError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDayCount,
		Message:  fmt.Sprintf("日数が不正です: %q", raw),
		Category: "validation",
		Action:   "日数には1から365までの整数を入力してください。",
	}
}

// NewDayCountOutOfRangeError は日数が許容範囲外の場合のエラーを生成する。
func NewDayCountOutOfRangeError(days int) *APIError {
	return &APIError{
		Code:     ErrCodeDayCountOutOfRange,
		Message:  fmt.Sprintf("日数は1から365の範囲で指定してください: %d", days),
		Category: "validation",
		Action:   "日数には1から365までの整数を入力してください。",
	}
}

// NewNoValidURLsError は有効なURLが1件も見つからなかった場合のエラーを生成する。
// どのトークンが捨てられたかは報告しない（寛容な抽出方針）。
func NewNoValidURLsError() *APIError {
	return &APIError{
		Code:     ErrCodeNoValidURLs,
		Message:  "有効なURL（http/https）が見つかりませんでした。",
		Category: "validation",
		Action:   "http:// または https:// で始まるURLを1行に1件以上入力してください。",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// ユーザー不存在とパスワード不一致は意図的に区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "ユーザー名とパスワードを確認して再度お試しください。",
	}
}

// NewMissingCredentialsError はユーザー名またはパスワードが未入力の場合のエラーを生成する。
func NewMissingCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingCredentials,
		Message:  "ユーザー名とパスワードを入力してください。",
		Category: "validation",
		Action:   "両方のフィールドを入力してください。",
	}
}
