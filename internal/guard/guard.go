package guard

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/eventgate/internal/model"
	"github.com/hitoshi/eventgate/internal/session"
)

// ガード判定の結果種別。メトリクスのラベルに使用する。
const (
	VerdictAllow    = "allow"
	VerdictPublic   = "public"
	VerdictRedirect = "redirect"
	VerdictForward  = "forward" // ログイン済みでログインページに来た場合の転送
)

// Metrics はガードが記録するメトリクスのインターフェース。
type Metrics interface {
	RecordGuardDecision(verdict string)
}

type noopMetrics struct{}

func (noopMetrics) RecordGuardDecision(string) {}

// SessionResolver はガードが必要とするセッション解決のインターフェース。
// session.Resolverの部分集合として定義する。
type SessionResolver interface {
	Resolve(ctx context.Context, r *http.Request, w http.ResponseWriter, role *model.Role) session.Result
}

// TokenStore はロール不一致時のCookie削除に必要なインターフェース。
type TokenStore interface {
	Clear(w http.ResponseWriter, role model.Role)
}

// publicPaths は認証なしで到達できるパスの固定リスト。
var publicPaths = map[string]bool{
	"/":                true,
	"/login":           true,
	"/admin/login":     true,
	"/organizer/login": true,
	"/client/login":    true,
	"/health":          true,
	"/metrics":         true,
}

// ScopeForPath はパスのプレフィックスからロールスコープを決定する。
func ScopeForPath(path string) model.Role {
	switch {
	case path == "/admin" || strings.HasPrefix(path, "/admin/"):
		return model.RoleAdmin
	case path == "/organizer" || strings.HasPrefix(path, "/organizer/"):
		return model.RoleOrganizer
	default:
		return model.RoleUser
	}
}

// loginScope はパスがいずれかのロールのログインページであればそのロールを返す。
// /client/login はUSERログインページの別名。
func loginScope(path string) (model.Role, bool) {
	switch path {
	case "/admin/login":
		return model.RoleAdmin, true
	case "/organizer/login":
		return model.RoleOrganizer, true
	case "/login", "/client/login":
		return model.RoleUser, true
	}
	return "", false
}

// isPublic は認証なしで通過できるパスかを判定する。
// バックエンド認証エンドポイント（/auth/*）はガードの外に置く。
func isPublic(path string) bool {
	if publicPaths[path] {
		return true
	}
	return path == "/auth" || strings.HasPrefix(path, "/auth/")
}

// Guard はルートガード本体。
type Guard struct {
	resolver SessionResolver
	store    TokenStore
	logger   *slog.Logger
	metrics  Metrics
}

// New はGuardを生成する。metricsがnilの場合は記録しない。
func New(resolver SessionResolver, store TokenStore, logger *slog.Logger, metrics Metrics) *Guard {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Guard{
		resolver: resolver,
		store:    store,
		logger:   logger,
		metrics:  metrics,
	}
}

// Middleware はエッジ評価モードのルートガードミドルウェアを返す。
// ページ配信前にナビゲーションごとにトークンを検証し、
// 未認証・ロール不一致のリクエストをログインページへリダイレクトする。
// 検証が成功した場合は検証済みセッションをコンテキストに注入し、
// x-user-id / x-user-email / x-user-role ヘッダーを下流の消費者向けに付与する。
func (g *Guard) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path

			// ログインページ: 有効なトークンを既に持つ場合はダッシュボードへ転送
			if role, ok := loginScope(path); ok {
				result := g.resolver.Resolve(r.Context(), r, w, &role)
				if result.Authenticated && result.Session.Role == role {
					g.metrics.RecordGuardDecision(VerdictForward)
					http.Redirect(w, r, role.LandingPath(), http.StatusTemporaryRedirect)
					return
				}
				g.metrics.RecordGuardDecision(VerdictPublic)
				next.ServeHTTP(w, r)
				return
			}

			if isPublic(path) {
				g.metrics.RecordGuardDecision(VerdictPublic)
				next.ServeHTTP(w, r)
				return
			}

			scope := ScopeForPath(path)

			// トークン検証はナビゲーションをブロックする（レイテンシに直結する）が、
			// Cookieの存在だけを信用してページを配信することはしない
			result := g.resolver.Resolve(r.Context(), r, w, &scope)
			if !result.Authenticated {
				g.redirectToLogin(w, r, scope, "no valid token")
				return
			}

			// ロールはスロット位置ではなく検証ペイロードを信頼する。
			// スコープ外のロールのトークンが置かれていた場合はCookieを削除する。
			if result.Session.Role != scope {
				g.store.Clear(w, scope)
				g.redirectToLogin(w, r, scope, "role mismatch")
				return
			}

			g.metrics.RecordGuardDecision(VerdictAllow)

			w.Header().Set("x-user-id", result.Session.UserID)
			w.Header().Set("x-user-email", result.Session.Email)
			w.Header().Set("x-user-role", string(result.Session.Role))

			ctx := ContextWithSession(r.Context(), result.Session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// redirectToLogin はスコープのログインページへリダイレクトする。
// 失敗の理由はログにのみ残し、ユーザーには示さない。
func (g *Guard) redirectToLogin(w http.ResponseWriter, r *http.Request, scope model.Role, reason string) {
	g.metrics.RecordGuardDecision(VerdictRedirect)
	g.logger.Info("navigation redirected to login",
		slog.String("path", r.URL.Path),
		slog.String("scope", string(scope)),
		slog.String("reason", reason),
	)
	http.Redirect(w, r, scope.LoginPath(), http.StatusTemporaryRedirect)
}

// Require はサブツリーラップモードのガードを返す。
// 配信済みUIの内側のサブツリーに相当するハンドラ群を包み、
// エッジ評価モードと同じ解決・同じ検証強度で判定する。
// fallbackPathが空文字列の場合はロールのログインページへ戻す。
func (g *Guard) Require(role model.Role, fallbackPath string) func(next http.Handler) http.Handler {
	if fallbackPath == "" {
		fallbackPath = role.LoginPath()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := g.resolver.Resolve(r.Context(), r, w, &role)
			if !result.Authenticated || result.Session.Role != role {
				if result.Authenticated {
					// 検証には通ったがロールが違う: スロットの信用をやめる
					g.store.Clear(w, role)
				}
				g.metrics.RecordGuardDecision(VerdictRedirect)
				http.Redirect(w, r, fallbackPath, http.StatusTemporaryRedirect)
				return
			}

			g.metrics.RecordGuardDecision(VerdictAllow)
			ctx := ContextWithSession(r.Context(), result.Session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
