// Package token はロール別のベアラートークンCookieの読み書きを提供する。
// トークンの永続化層はブラウザのCookieのみであり、サーバー側には何も保存しない。
package token

import (
	"net/http"

	"github.com/hitoshi/eventgate/internal/config"
	"github.com/hitoshi/eventgate/internal/model"
)

// Store はロールごとのトークンCookieスロットを管理する。
// Cookie属性は単一のCookiePolicyから決定し、呼び出し箇所ごとに変えない。
type Store struct {
	policy config.CookiePolicy
}

// NewStore はStoreを生成する。
func NewStore(policy config.CookiePolicy) *Store {
	return &Store{policy: policy}
}

// Set はロールのスロットにトークンを書き込む。
// 既存の同名Cookieは上書きされる。
func (s *Store) Set(w http.ResponseWriter, role model.Role, tok string) {
	http.SetCookie(w, &http.Cookie{
		Name:     role.CookieName(),
		Value:    tok,
		Path:     "/",
		Domain:   s.policy.Domain,
		MaxAge:   int(s.policy.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.policy.Secure,
		SameSite: s.policy.SameSite,
	})
}

// Get はロールのスロットからトークンを読み取る。
// 存在しない場合は空文字列を返す。トークンの不在は正常な状態でありエラーではない。
func (s *Store) Get(r *http.Request, role model.Role) string {
	cookie, err := r.Cookie(role.CookieName())
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Clear はロールのスロットを削除する。
// 過去の有効期限で上書きすることで削除する。トークンが存在しなくても安全（冪等）。
func (s *Store) Clear(w http.ResponseWriter, role model.Role) {
	http.SetCookie(w, &http.Cookie{
		Name:     role.CookieName(),
		Value:    "",
		Path:     "/",
		Domain:   s.policy.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.policy.Secure,
		SameSite: s.policy.SameSite,
	})
}

// ClearAll は全ロールのスロットを削除する。ログアウト時に使用する。
func (s *Store) ClearAll(w http.ResponseWriter) {
	for _, role := range model.AllRoles {
		s.Clear(w, role)
	}
}
