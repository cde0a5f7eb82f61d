package handler

import (
	"net/http"

	"github.com/hitoshi/eventgate/internal/guard"
	"github.com/hitoshi/eventgate/internal/model"
)

// TokenReader はスロットからのトークン読み取りに必要なインターフェース。
type TokenReader interface {
	Get(r *http.Request, role model.Role) string
}

// bearerFromRequest はガードを通過したリクエストからバックエンド中継用の
// Bearerトークンを取り出す。セッションの検証済みロールに対応する
// スロットのみを参照する。
func bearerFromRequest(r *http.Request, store TokenReader) (string, error) {
	sess, err := guard.SessionFromContext(r.Context())
	if err != nil {
		return "", model.NewVerifyFailedError()
	}
	tok := store.Get(r, sess.Role)
	if tok == "" {
		return "", model.NewVerifyFailedError()
	}
	return tok, nil
}
