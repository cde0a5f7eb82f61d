package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/eventgate/internal/guard"
	"github.com/hitoshi/eventgate/internal/middleware"
	"github.com/hitoshi/eventgate/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ミドルウェア依存
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter

	// ルートガード
	Guard *guard.Guard

	// ハンドラー
	Auth       *AuthHandler
	Events     *EventHandler
	Categories *CategoryHandler
	Users      *UserHandler
	Dashboard  *DashboardHandler
	Banner     *BannerHandler
	Pages      *PageHandler

	// 監視
	MetricsHandler http.Handler
}

// NewRouter は全ルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → SecurityHeaders → CORS → Recovery → Logging → CSRF
//
// ページ配信ルートはさらにGuard.Middleware（エッジ評価）を通り、
// APIルートはGuard.Require（サブツリーラップ）でロール別に保護する。
// どちらのモードも同一のセッション解決・同一の検証強度で判定する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

	// --- 監視用の公開エンドポイント ---

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 認証エンドポイント ---

	r.Route("/auth", func(r chi.Router) {
		// ログインは総当たり対策のためIP単位の専用レート制限を通す
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", deps.Auth.Login)
		r.Post("/logout", deps.Auth.Logout)
		r.Get("/me", deps.Auth.Me)
		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))
	})

	// --- ページ配信ルート（エッジ評価ガード） ---
	// ログインページもこのグループに置く。ガードが公開判定と
	// 認証済みユーザーのダッシュボード転送を行う。
	r.Group(func(r chi.Router) {
		r.Use(deps.Guard.Middleware())

		r.Get("/", deps.Pages.Home)

		r.Get("/login", deps.Pages.LoginPage(model.RoleUser))
		r.Get("/client/login", deps.Pages.LoginPage(model.RoleUser))
		r.Get("/organizer/login", deps.Pages.LoginPage(model.RoleOrganizer))
		r.Get("/admin/login", deps.Pages.LoginPage(model.RoleAdmin))

		r.Get("/admin/dashboard", deps.Pages.PortalPage(model.RoleAdmin))
		r.Get("/admin/events", deps.Pages.PortalPage(model.RoleAdmin))
		r.Get("/admin/categories", deps.Pages.PortalPage(model.RoleAdmin))
		r.Get("/admin/users", deps.Pages.PortalPage(model.RoleAdmin))
		// 未登録の管理者パスもガードを通してシェルを配信する
		r.Get("/admin/*", deps.Pages.PortalPage(model.RoleAdmin))

		r.Get("/organizer/dashboard", deps.Pages.PortalPage(model.RoleOrganizer))
		r.Get("/organizer/events", deps.Pages.PortalPage(model.RoleOrganizer))
		r.Get("/organizer/*", deps.Pages.PortalPage(model.RoleOrganizer))

		r.Get("/dashboard", deps.Pages.PortalPage(model.RoleUser))
		r.Get("/events", deps.Pages.PortalPage(model.RoleUser))
	})

	// --- APIルート（サブツリーラップガード + API全般レート制限） ---

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(deps.Guard.Require(model.RoleAdmin, ""))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/dashboard", deps.Dashboard.Dashboard)

		r.Route("/events", func(r chi.Router) {
			r.Get("/", deps.Events.ListEvents)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", deps.Events.GetEvent)
				r.Delete("/", deps.Events.DeleteEvent)
				r.Post("/approve", deps.Events.ApproveEvent)
				r.Post("/reject", deps.Events.RejectEvent)
				r.Get("/banner", deps.Banner.Banner)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", deps.Categories.ListCategories)
			r.Post("/", deps.Categories.CreateCategory)
			r.Patch("/{id}", deps.Categories.UpdateCategory)
			r.Delete("/{id}", deps.Categories.DeleteCategory)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", deps.Users.ListUsers)
			r.Post("/", deps.Users.CreateUser)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", deps.Users.GetUser)
				r.Patch("/", deps.Users.UpdateUser)
				r.Delete("/", deps.Users.DeactivateUser)
			})
		})
	})

	r.Route("/api/organizer", func(r chi.Router) {
		r.Use(deps.Guard.Require(model.RoleOrganizer, ""))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/dashboard", deps.Dashboard.Dashboard)
		r.Get("/categories", deps.Categories.ListCategories)

		r.Route("/events", func(r chi.Router) {
			r.Get("/", deps.Events.ListEvents)
			r.Post("/", deps.Events.CreateEvent)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", deps.Events.GetEvent)
				r.Patch("/", deps.Events.UpdateEvent)
				r.Delete("/", deps.Events.DeleteEvent)
				r.Get("/banner", deps.Banner.Banner)
			})
		})
	})

	r.Route("/api/client", func(r chi.Router) {
		r.Use(deps.Guard.Require(model.RoleUser, ""))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/dashboard", deps.Dashboard.Dashboard)

		r.Route("/events", func(r chi.Router) {
			r.Get("/", deps.Events.ListEvents)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", deps.Events.GetEvent)
				r.Get("/banner", deps.Banner.Banner)
			})
		})
	})

	return r
}
