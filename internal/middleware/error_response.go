package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/eventgate/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// WriteAPIError はエラー値からAPIエラーレスポンスを書き込む。
// *model.APIErrorでないエラーは詳細をログに残し、500として扱う。
func WriteAPIError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		slog.Error("unexpected error", slog.String("error", err.Error()))
		WriteInternalServerError(w)
		return
	}
	WriteErrorResponse(w, StatusForCode(apiErr.Code), apiErr)
}

// StatusForCode はエラーコードに対応するHTTPステータスコードを返す。
func StatusForCode(code string) int {
	switch code {
	case model.ErrCodeValidationFailed:
		return http.StatusBadRequest
	case model.ErrCodeLoginRejected, model.ErrCodeVerifyFailed:
		return http.StatusUnauthorized
	case model.ErrCodeBannerBlocked:
		return http.StatusForbidden
	case model.ErrCodeEventNotFound:
		return http.StatusNotFound
	case model.ErrCodeBackendRejected:
		return http.StatusBadGateway
	case model.ErrCodeBackendUnreachable, model.ErrCodeBannerUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
