package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/eventgate/internal/guard"
	"github.com/hitoshi/eventgate/internal/middleware"
	"github.com/hitoshi/eventgate/internal/model"
)

// DashboardBackend はダッシュボードハンドラーが必要とするバックエンドのインターフェース。
type DashboardBackend interface {
	DashboardStats(ctx context.Context, tok, scope string) (*model.DashboardStats, error)
	ListEvents(ctx context.Context, tok string, filter model.EventFilter) (*model.EventPage, error)
}

// DashboardHandler はロール別ダッシュボードのHTTPハンドラー。
// 統計情報と直近イベントをバックエンドから並行に取得して合成する。
type DashboardHandler struct {
	backend DashboardBackend
	store   TokenReader
}

// NewDashboardHandler はDashboardHandlerを生成する。
func NewDashboardHandler(backend DashboardBackend, store TokenReader) *DashboardHandler {
	return &DashboardHandler{
		backend: backend,
		store:   store,
	}
}

// dashboardResponse はダッシュボードAPIのレスポンス。
type dashboardResponse struct {
	Stats        *model.DashboardStats `json:"stats"`
	RecentEvents []model.EventSummary  `json:"recentEvents"`
}

// scopeForRole はロールに対応するバックエンドの統計スコープを返す。
func scopeForRole(role model.Role) string {
	switch role {
	case model.RoleAdmin:
		return "admin"
	case model.RoleOrganizer:
		return "organizer"
	default:
		return "user"
	}
}

// Dashboard はダッシュボードの表示データを返す。
// GET /api/dashboard
//
// 統計と直近イベント一覧は独立した取得のため並行に実行し、
// どちらかが失敗した場合は全体を失敗として扱う。
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess, err := guard.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewVerifyFailedError())
		return
	}

	tok, err := bearerFromRequest(r, h.store)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	var (
		stats *model.DashboardStats
		page  *model.EventPage
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		stats, err = h.backend.DashboardStats(ctx, tok, scopeForRole(sess.Role))
		return err
	})
	g.Go(func() error {
		var err error
		page, err = h.backend.ListEvents(ctx, tok, model.EventFilter{Limit: 5})
		return err
	})

	if err := g.Wait(); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dashboardResponse{
		Stats:        stats,
		RecentEvents: page.Events,
	})
}
