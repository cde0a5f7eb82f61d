package guard

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/eventgate/internal/model"
	"github.com/hitoshi/eventgate/internal/session"
)

// --- モック定義 ---

type mockResolver struct {
	resolveFn func(ctx context.Context, r *http.Request, w http.ResponseWriter, role *model.Role) session.Result
	calls     int
}

func (m *mockResolver) Resolve(ctx context.Context, r *http.Request, w http.ResponseWriter, role *model.Role) session.Result {
	m.calls++
	if m.resolveFn != nil {
		return m.resolveFn(ctx, r, w, role)
	}
	return session.Result{}
}

type mockClearStore struct {
	cleared []model.Role
}

func (m *mockClearStore) Clear(w http.ResponseWriter, role model.Role) {
	m.cleared = append(m.cleared, role)
}

func newTestGuard(resolver *mockResolver, store *mockClearStore) *Guard {
	return New(resolver, store, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

func authenticatedAs(role model.Role) func(ctx context.Context, r *http.Request, w http.ResponseWriter, probe *model.Role) session.Result {
	return func(ctx context.Context, r *http.Request, w http.ResponseWriter, probe *model.Role) session.Result {
		slot := role
		if probe != nil {
			slot = *probe
		}
		return session.Result{
			Authenticated: true,
			Session:       &model.TokenPayload{UserID: "42", Email: "a@b.com", Role: role},
			Slot:          slot,
		}
	}
}

func serveThrough(g *Guard, r *http.Request) (*httptest.ResponseRecorder, bool) {
	var reached bool
	handler := g.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w, reached
}

// --- エッジ評価モード ---

func TestMiddleware_PublicPaths_PassWithoutResolution(t *testing.T) {
	resolver := &mockResolver{}
	g := newTestGuard(resolver, &mockClearStore{})

	for _, path := range []string{"/", "/health", "/metrics", "/auth/login", "/auth/logout"} {
		t.Run(path, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, path, nil)
			w, reached := serveThrough(g, r)
			if !reached {
				t.Errorf("%s should pass through the guard", path)
			}
			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", w.Code)
			}
		})
	}

	if resolver.calls != 0 {
		t.Errorf("resolver should not run for public paths, ran %d times", resolver.calls)
	}
}

func TestMiddleware_ProtectedPathWithoutToken_RedirectsToScopeLogin(t *testing.T) {
	tests := []struct {
		path      string
		wantLogin string
	}{
		{"/admin/reports", "/admin/login"},
		{"/organizer/events", "/organizer/login"},
		{"/dashboard", "/login"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			g := newTestGuard(&mockResolver{}, &mockClearStore{})
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w, reached := serveThrough(g, r)

			if reached {
				t.Error("page content must not render for unauthenticated navigation")
			}
			if w.Code != http.StatusTemporaryRedirect {
				t.Errorf("status = %d, want 307", w.Code)
			}
			if got := w.Header().Get("Location"); got != tt.wantLogin {
				t.Errorf("Location = %q, want %q", got, tt.wantLogin)
			}
		})
	}
}

func TestMiddleware_ValidToken_AllowsAndAttachesIdentity(t *testing.T) {
	resolver := &mockResolver{resolveFn: authenticatedAs(model.RoleAdmin)}
	g := newTestGuard(resolver, &mockClearStore{})

	r := httptest.NewRequest(http.MethodGet, "/admin/reports", nil)

	var gotSession *model.TokenPayload
	handler := g.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := SessionFromContext(r.Context())
		if err != nil {
			t.Errorf("expected session in context: %v", err)
		}
		gotSession = s
		w.WriteHeader(http.StatusOK)
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotSession == nil || gotSession.UserID != "42" {
		t.Errorf("session = %+v, want UserID 42", gotSession)
	}
	if got := w.Header().Get("x-user-id"); got != "42" {
		t.Errorf("x-user-id = %q, want 42", got)
	}
	if got := w.Header().Get("x-user-email"); got != "a@b.com" {
		t.Errorf("x-user-email = %q, want a@b.com", got)
	}
	if got := w.Header().Get("x-user-role"); got != "ADMIN" {
		t.Errorf("x-user-role = %q, want ADMIN", got)
	}
}

func TestMiddleware_RoleMismatch_ClearsCookieAndRedirects(t *testing.T) {
	// ADMINスロットのトークンが検証ではUSERと判明するケース
	resolver := &mockResolver{resolveFn: authenticatedAs(model.RoleUser)}
	store := &mockClearStore{}
	g := newTestGuard(resolver, store)

	r := httptest.NewRequest(http.MethodGet, "/admin/reports", nil)
	w, reached := serveThrough(g, r)

	if reached {
		t.Error("mismatched role must not reach the page")
	}
	if w.Code != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want 307", w.Code)
	}
	if got := w.Header().Get("Location"); got != "/admin/login" {
		t.Errorf("Location = %q, want /admin/login", got)
	}
	if len(store.cleared) != 1 || store.cleared[0] != model.RoleAdmin {
		t.Errorf("cleared = %v, want [ADMIN]", store.cleared)
	}
}

func TestMiddleware_LoginPageWithValidToken_ForwardsToDashboard(t *testing.T) {
	resolver := &mockResolver{resolveFn: authenticatedAs(model.RoleAdmin)}
	g := newTestGuard(resolver, &mockClearStore{})

	r := httptest.NewRequest(http.MethodGet, "/admin/login", nil)
	w, reached := serveThrough(g, r)

	if reached {
		t.Error("login form must not render when already authenticated")
	}
	if got := w.Header().Get("Location"); got != "/admin/dashboard" {
		t.Errorf("Location = %q, want /admin/dashboard", got)
	}
}

func TestMiddleware_LoginPageWithoutToken_RendersLoginForm(t *testing.T) {
	g := newTestGuard(&mockResolver{}, &mockClearStore{})

	for _, path := range []string{"/login", "/admin/login", "/organizer/login", "/client/login"} {
		t.Run(path, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, path, nil)
			w, reached := serveThrough(g, r)
			if !reached {
				t.Errorf("%s should render for unauthenticated visitor", path)
			}
			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", w.Code)
			}
		})
	}
}

func TestMiddleware_LoginPageWithWrongRoleToken_RendersLoginForm(t *testing.T) {
	// /admin/login にUSERロールのトークンで来た場合、転送はしない
	resolver := &mockResolver{resolveFn: authenticatedAs(model.RoleUser)}
	g := newTestGuard(resolver, &mockClearStore{})

	r := httptest.NewRequest(http.MethodGet, "/admin/login", nil)
	_, reached := serveThrough(g, r)
	if !reached {
		t.Error("login form should render when token role does not match the page")
	}
}

// --- サブツリーラップモード ---

func TestRequire_Unauthenticated_RedirectsToFallback(t *testing.T) {
	g := newTestGuard(&mockResolver{}, &mockClearStore{})

	handler := g.Require(model.RoleOrganizer, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("subtree must not execute when unauthenticated")
	}))

	r := httptest.NewRequest(http.MethodGet, "/organizer/events", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusTemporaryRedirect {
		t.Errorf("status = %d, want 307", w.Code)
	}
	if got := w.Header().Get("Location"); got != "/organizer/login" {
		t.Errorf("Location = %q, want default fallback /organizer/login", got)
	}
}

func TestRequire_CustomFallbackPath(t *testing.T) {
	g := newTestGuard(&mockResolver{}, &mockClearStore{})

	handler := g.Require(model.RoleUser, "/welcome")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if got := w.Header().Get("Location"); got != "/welcome" {
		t.Errorf("Location = %q, want /welcome", got)
	}
}

func TestRequire_SameVerdictAsEdgeMode(t *testing.T) {
	// 同一のトークン状態に対して、エッジ評価とサブツリーラップは同じ判定を下す
	cases := []struct {
		name      string
		resolveFn func(ctx context.Context, r *http.Request, w http.ResponseWriter, role *model.Role) session.Result
		wantAllow bool
	}{
		{"valid admin token", authenticatedAs(model.RoleAdmin), true},
		{"no token", nil, false},
		{"wrong role token", authenticatedAs(model.RoleUser), false},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			edge := newTestGuard(&mockResolver{resolveFn: tt.resolveFn}, &mockClearStore{})
			r := httptest.NewRequest(http.MethodGet, "/admin/reports", nil)
			_, edgeAllowed := serveThrough(edge, r)

			wrap := newTestGuard(&mockResolver{resolveFn: tt.resolveFn}, &mockClearStore{})
			var wrapAllowed bool
			handler := wrap.Require(model.RoleAdmin, "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				wrapAllowed = true
			}))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/reports", nil))

			if edgeAllowed != tt.wantAllow || wrapAllowed != tt.wantAllow {
				t.Errorf("edge = %v, wrap = %v, want both %v", edgeAllowed, wrapAllowed, tt.wantAllow)
			}
		})
	}
}

func TestScopeForPath(t *testing.T) {
	tests := []struct {
		path string
		want model.Role
	}{
		{"/admin/dashboard", model.RoleAdmin},
		{"/admin", model.RoleAdmin},
		{"/administrator", model.RoleUser}, // プレフィックスはセグメント単位で判定する
		{"/organizer/events/ev-1", model.RoleOrganizer},
		{"/dashboard", model.RoleUser},
		{"/events", model.RoleUser},
	}

	for _, tt := range tests {
		if got := ScopeForPath(tt.path); got != tt.want {
			t.Errorf("ScopeForPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
