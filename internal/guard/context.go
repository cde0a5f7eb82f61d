// Package guard はロール別のルート保護を提供する。
// エッジ評価（ページ配信前のミドルウェア）とサブツリーラップの2形態があり、
// どちらも同一のセッション解決を通る。検証の強度は形態によって変えない。
package guard

import (
	"context"
	"fmt"

	"github.com/hitoshi/eventgate/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// sessionContextKey はリクエストコンテキストに検証済みセッションを格納するためのキー。
var sessionContextKey = contextKey("session")

// SessionFromContext はリクエストコンテキストから検証済みセッションを取得する。
// ガードを通過したリクエストでのみ有効。
func SessionFromContext(ctx context.Context) (*model.TokenPayload, error) {
	payload, ok := ctx.Value(sessionContextKey).(*model.TokenPayload)
	if !ok || payload == nil {
		return nil, fmt.Errorf("session not found in context")
	}
	return payload, nil
}

// ContextWithSession はコンテキストに検証済みセッションを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSession(ctx context.Context, payload *model.TokenPayload) context.Context {
	return context.WithValue(ctx, sessionContextKey, payload)
}
