package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, backend, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeLoginRejected      = "LOGIN_REJECTED"
	ErrCodeVerifyFailed       = "VERIFY_FAILED"
	ErrCodeBackendRejected    = "BACKEND_REJECTED"
	ErrCodeBackendUnreachable = "BACKEND_UNREACHABLE"
	ErrCodeEventNotFound      = "EVENT_NOT_FOUND"
	ErrCodeBannerBlocked      = "BANNER_BLOCKED"
	ErrCodeBannerUnavailable  = "BANNER_UNAVAILABLE"
)

// NewValidationError は入力検証エラーを生成する。
// ネットワーク呼び出しの前にローカルで検出された不備に使用する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewLoginRejectedError はバックエンドがログインを拒否した場合のエラーを生成する。
// バックエンドのメッセージをそのままユーザーに提示する。
func NewLoginRejectedError(message string) *APIError {
	if message == "" {
		message = "ログインに失敗しました。"
	}
	return &APIError{
		Code:     ErrCodeLoginRejected,
		Message:  message,
		Category: "auth",
		Action:   "メールアドレスとパスワードを確認してください。",
	}
}

// NewVerifyFailedError はトークン検証が成立しなかった場合のエラーを生成する。
func NewVerifyFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeVerifyFailed,
		Message:  "トークンの検証に失敗しました。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewBackendRejectedError はバックエンドが操作を拒否した場合のエラーを生成する。
// バックエンドが返した構造化メッセージをそのまま保持する。
func NewBackendRejectedError(message string) *APIError {
	if message == "" {
		message = "バックエンドが要求を拒否しました。"
	}
	return &APIError{
		Code:     ErrCodeBackendRejected,
		Message:  message,
		Category: "backend",
		Action:   "内容を確認して再度お試しください。",
	}
}

// NewBackendUnreachableError はバックエンドとの通信に失敗した場合のエラーを生成する。
// タイムアウト、接続不能などのトランスポート層の失敗をまとめて扱う。
func NewBackendUnreachableError() *APIError {
	return &APIError{
		Code:     ErrCodeBackendUnreachable,
		Message:  "サーバーとの通信に失敗しました。",
		Category: "backend",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewEventNotFoundError はイベントが見つからない場合のエラーを生成する。
func NewEventNotFoundError(eventID string) *APIError {
	return &APIError{
		Code:     ErrCodeEventNotFound,
		Message:  fmt.Sprintf("指定されたイベントが見つかりません: %s", eventID),
		Category: "backend",
		Action:   "イベントIDを確認してください。",
	}
}

// NewBannerBlockedError はバナー画像のURLがセキュリティポリシーで
// ブロックされた場合のエラーを生成する。
func NewBannerBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeBannerBlocked,
		Message:  "セキュリティポリシーにより、バナー画像の取得がブロックされました。",
		Category: "validation",
		Action:   "公開されているURLのバナー画像を設定してください。プライベートネットワークへのアクセスは許可されていません。",
	}
}

// NewBannerUnavailableError はバナー画像の取得に失敗した場合のエラーを生成する。
func NewBannerUnavailableError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeBannerUnavailable,
		Message:  fmt.Sprintf("バナー画像の取得に失敗しました: %s", reason),
		Category: "backend",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
