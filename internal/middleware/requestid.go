// Package middleware はゲートウェイのHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// requestIDHeaderName はリクエストIDを伝搬するヘッダー名。
const requestIDHeaderName = "X-Request-Id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var requestIDContextKey = contextKey("request_id")

// NewRequestIDMiddleware はリクエストごとに一意のIDを採番するミドルウェアを返す。
// クライアントが X-Request-Id を送ってきた場合はそれを引き継ぎ、
// なければUUIDv4を新規に生成する。IDはレスポンスヘッダーにも反映する。
func NewRequestIDMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeaderName)
			if id == "" {
				id = uuid.NewString()
			}

			w.Header().Set(requestIDHeaderName, id)

			ctx := context.WithValue(r.Context(), requestIDContextKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext はリクエストコンテキストからリクエストIDを取得する。
// ミドルウェアを通過していない場合は空文字列を返す。
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}
