package handler

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/hitoshi/eventgate/internal/guard"
	"github.com/hitoshi/eventgate/internal/model"
)

// loginPageTemplate はロール別ログインページの共通テンプレート。
// 認証フローの実体は /auth/login へのJSON POSTであり、
// ページ自体は最小限のフォームのみを配信する。
var loginPageTemplate = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html lang="ja">
<head>
<meta charset="utf-8">
<title>{{.Title}} - EventGate</title>
</head>
<body>
<h1>{{.Title}}</h1>
<form id="login-form" data-endpoint="/auth/login" data-landing="{{.Landing}}">
<label>メールアドレス <input type="email" name="email" required></label>
<label>パスワード <input type="password" name="password" required></label>
<button type="submit">ログイン</button>
</form>
</body>
</html>
`))

// portalPageTemplate はログイン後のポータルシェルの共通テンプレート。
// 表示データは配信後に /api/* から取得する。
var portalPageTemplate = template.Must(template.New("portal").Parse(`<!DOCTYPE html>
<html lang="ja">
<head>
<meta charset="utf-8">
<title>{{.Title}} - EventGate</title>
</head>
<body>
<header>
<h1>{{.Title}}</h1>
<p>{{.Email}} ({{.Role}})</p>
</header>
<main id="app" data-api-base="/api"></main>
</body>
</html>
`))

// PageHandler はコンソールのページ配信ハンドラー。
type PageHandler struct {
	logger *slog.Logger
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(logger *slog.Logger) *PageHandler {
	return &PageHandler{logger: logger}
}

// loginPageTitles はロール別ログインページの見出し。
var loginPageTitles = map[model.Role]string{
	model.RoleAdmin:     "管理者ログイン",
	model.RoleOrganizer: "主催者ログイン",
	model.RoleUser:      "ログイン",
}

// LoginPage はロール別のログインページを返すハンドラーを生成する。
func (h *PageHandler) LoginPage(role model.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err := loginPageTemplate.Execute(w, map[string]string{
			"Title":   loginPageTitles[role],
			"Landing": role.LandingPath(),
		})
		if err != nil {
			h.logger.Error("failed to render login page", slog.String("error", err.Error()))
		}
	}
}

// portalPageTitles はロール別ポータルの見出し。
var portalPageTitles = map[model.Role]string{
	model.RoleAdmin:     "管理者ポータル",
	model.RoleOrganizer: "主催者ポータル",
	model.RoleUser:      "マイページ",
}

// PortalPage はロール別のポータルシェルを返すハンドラーを生成する。
// ガードを通過したリクエストのみが到達する前提で、
// コンテキストのセッションから表示用のユーザー情報を取り出す。
func (h *PageHandler) PortalPage(role model.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := guard.SessionFromContext(r.Context())
		if err != nil {
			// ガード配下にのみ配置するため通常は到達しない
			http.Redirect(w, r, role.LoginPath(), http.StatusTemporaryRedirect)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err = portalPageTemplate.Execute(w, map[string]string{
			"Title": portalPageTitles[role],
			"Email": sess.Email,
			"Role":  string(sess.Role),
		})
		if err != nil {
			h.logger.Error("failed to render portal page", slog.String("error", err.Error()))
		}
	}
}

// Home はルートページを返す。公開ページであり認証を要求しない。
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(`<!DOCTYPE html>
<html lang="ja">
<head><meta charset="utf-8"><title>EventGate</title></head>
<body>
<h1>EventGate</h1>
<ul>
<li><a href="/login">参加者ログイン</a></li>
<li><a href="/organizer/login">主催者ログイン</a></li>
<li><a href="/admin/login">管理者ログイン</a></li>
</ul>
</body>
</html>
`))
}
