package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/eventgate/internal/backend"
	"github.com/hitoshi/eventgate/internal/config"
	"github.com/hitoshi/eventgate/internal/guard"
	"github.com/hitoshi/eventgate/internal/middleware"
	"github.com/hitoshi/eventgate/internal/model"
	"github.com/hitoshi/eventgate/internal/security"
	"github.com/hitoshi/eventgate/internal/session"
	"github.com/hitoshi/eventgate/internal/token"
)

var testSigningKey = []byte("router-test-signing-key")

// mintToken はフェイクバックエンド用の署名付きトークンを発行する。
func mintToken(t *testing.T, userID, email string, role model.Role) string {
	t.Helper()
	claims := jwt.MapClaims{
		"userId": userID,
		"email":  email,
		"role":   string(role),
		"exp":    time.Now().Add(time.Hour).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	return tok
}

// newFakeBackend はバックエンドAPIのフェイクを起動する。
// /auth/loginは資格情報に応じたロールのトークンを発行し、
// /auth/verifyはトークンの署名を検証してペイロードを返す。
func newFakeBackend(t *testing.T) *httptest.Server {
	t.Helper()

	accounts := map[string]struct {
		password string
		userID   string
		role     model.Role
	}{
		"admin@example.com": {"admin-pw", "u-admin", model.RoleAdmin},
		"org@example.com":   {"org-pw", "u-org", model.RoleOrganizer},
		"user@example.com":  {"user-pw", "u-user", model.RoleUser},
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds model.Credentials
		json.NewDecoder(r.Body).Decode(&creds)

		account, ok := accounts[creds.Email]
		if !ok || account.password != creds.Password {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"message": "メールアドレスまたはパスワードが間違っています。",
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]string{
				"accessToken": mintToken(t, account.userID, creds.Email, account.role),
			},
		})
	})

	mux.HandleFunc("POST /auth/verify", func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		parsed, err := jwt.Parse(raw, func(tk *jwt.Token) (any, error) {
			return testSigningKey, nil
		})
		w.Header().Set("Content-Type", "application/json")
		if err != nil || !parsed.Valid {
			json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "トークンが無効です。"})
			return
		}
		claims := parsed.Claims.(jwt.MapClaims)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"payload": map[string]any{
					"userId": claims["userId"],
					"email":  claims["email"],
					"role":   claims["role"],
				},
			},
		})
	})

	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})

	mux.HandleFunc("GET /events", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"data": []map[string]any{
					{"id": "ev-1", "title": "文化祭", "status": "APPROVED"},
				},
				"pagination": map[string]any{"limit": 20, "offset": 0, "total": 1},
			},
		})
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

// testGateway はルーター一式を本物のコンポーネントで組み立てて起動する。
type testGateway struct {
	server *httptest.Server
	client *http.Client
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()

	backendURL := newFakeBackend(t).URL
	logger := discardLogger()

	policy := config.CookiePolicy{
		TTL:      7 * 24 * time.Hour,
		SameSite: http.SameSiteStrictMode,
	}
	store := token.NewStore(policy)
	client := backend.NewClient(backendURL, 5*time.Second, logger, nil)
	resolver := session.NewResolver(store, client, logger)
	g := guard.New(resolver, store, logger, nil)

	rl := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(1000, 1000))
	t.Cleanup(rl.Stop)

	deps := &RouterDeps{
		Logger:            logger,
		CORSAllowedOrigin: "http://gateway.test",
		CSRFConfig:        middleware.CSRFConfig{},
		RateLimiter:       rl,
		Guard:             g,
		Auth:              NewAuthHandler(client, store, resolver, logger, nil),
		Events:            NewEventHandler(client, store, security.NewContentSanitizer(), logger, nil),
		Categories:        NewCategoryHandler(client, store),
		Users:             NewUserHandler(client, store, logger),
		Dashboard:         NewDashboardHandler(client, store),
		Banner:            NewBannerHandler(client, store, security.NewSSRFGuard(), time.Second, 1<<20, logger, nil),
		Pages:             NewPageHandler(logger),
	}

	ts := httptest.NewServer(NewRouter(deps))
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}

	return &testGateway{
		server: ts,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// fetchCSRFToken はCSRFトークンを取得しCookieに保存する。
func (gw *testGateway) fetchCSRFToken(t *testing.T) string {
	t.Helper()
	resp, err := gw.client.Get(gw.server.URL + "/auth/csrf-token")
	if err != nil {
		t.Fatalf("failed to fetch CSRF token: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode CSRF response: %v", err)
	}
	return body["token"]
}

// postJSON はCSRFトークン付きでJSONをPOSTする。
func (gw *testGateway) postJSON(t *testing.T, path, body string) *http.Response {
	t.Helper()
	csrf := gw.fetchCSRFToken(t)

	req, err := http.NewRequest(http.MethodPost, gw.server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-Token", csrf)

	resp, err := gw.client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func (gw *testGateway) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := gw.client.Get(gw.server.URL + path)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

// login はログインを実行し、レスポンスを返す。
func (gw *testGateway) login(t *testing.T, email, password string) *http.Response {
	t.Helper()
	return gw.postJSON(t, "/auth/login", `{"email":"`+email+`","password":"`+password+`"}`)
}

// cookieValue はjarに保存されたCookieの値を返す。未保存は空文字列。
func (gw *testGateway) cookieValue(t *testing.T, name string) string {
	t.Helper()
	u, _ := url.Parse(gw.server.URL)
	for _, c := range gw.client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// ログイン成功でトークンが検証済みロールのCookieに保存され、
// 以後そのロールのページ・APIに到達できる。
func TestGateway_LoginThenNavigate(t *testing.T) {
	gw := newTestGateway(t)

	resp := gw.login(t, "admin@example.com", "admin-pw")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}

	var loginResp loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	if loginResp.RedirectTo != "/admin/dashboard" {
		t.Errorf("redirectTo = %q, want /admin/dashboard", loginResp.RedirectTo)
	}
	if gw.cookieValue(t, "USER_ADMIN") == "" {
		t.Fatal("USER_ADMIN cookie was not set")
	}
	if gw.cookieValue(t, "USER") != "" || gw.cookieValue(t, "USER_ORGANIZER") != "" {
		t.Error("token must be stored only in the verified role slot")
	}

	// 管理者ページへ到達できる
	page := gw.get(t, "/admin/dashboard")
	defer page.Body.Close()
	if page.StatusCode != http.StatusOK {
		t.Errorf("dashboard status = %d, want 200", page.StatusCode)
	}
	if got := page.Header.Get("x-user-id"); got != "u-admin" {
		t.Errorf("x-user-id = %q, want u-admin", got)
	}

	// 管理者APIへ到達できる
	api := gw.get(t, "/api/admin/events")
	defer api.Body.Close()
	if api.StatusCode != http.StatusOK {
		t.Errorf("api status = %d, want 200", api.StatusCode)
	}
	if !strings.Contains(readBody(t, api), "文化祭") {
		t.Error("expected proxied event list in response")
	}
}

// 未認証の保護ページはスコープのログインページへリダイレクトされる。
func TestGateway_UnauthenticatedRedirects(t *testing.T) {
	gw := newTestGateway(t)

	tests := []struct {
		path string
		want string
	}{
		{"/admin/dashboard", "/admin/login"},
		{"/admin/reports", "/admin/login"},
		{"/organizer/events", "/organizer/login"},
		{"/dashboard", "/login"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := gw.get(t, tt.path)
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusTemporaryRedirect {
				t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
			}
			if loc := resp.Header.Get("Location"); loc != tt.want {
				t.Errorf("Location = %q, want %q", loc, tt.want)
			}
		})
	}
}

// 認証済みユーザーが自ロールのログインページを開くとダッシュボードへ転送される。
func TestGateway_LoginPageForwarding(t *testing.T) {
	gw := newTestGateway(t)

	gw.login(t, "org@example.com", "org-pw").Body.Close()

	resp := gw.get(t, "/organizer/login")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTemporaryRedirect)
	}
	if loc := resp.Header.Get("Location"); loc != "/organizer/dashboard" {
		t.Errorf("Location = %q, want /organizer/dashboard", loc)
	}

	// 他ロールのログインページはフォームを表示する
	other := gw.get(t, "/admin/login")
	defer other.Body.Close()
	if other.StatusCode != http.StatusOK {
		t.Errorf("other role login page status = %d, want 200", other.StatusCode)
	}
}

// ログアウトで全ロールのCookieが削除され、保護ページへ戻れなくなる。
func TestGateway_Logout(t *testing.T) {
	gw := newTestGateway(t)

	gw.login(t, "user@example.com", "user-pw").Body.Close()
	if gw.cookieValue(t, "USER") == "" {
		t.Fatal("USER cookie was not set after login")
	}

	resp := gw.postJSON(t, "/auth/logout", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d", resp.StatusCode)
	}
	if gw.cookieValue(t, "USER") != "" {
		t.Error("USER cookie survived logout")
	}

	after := gw.get(t, "/dashboard")
	defer after.Body.Close()
	if after.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("status after logout = %d, want 307", after.StatusCode)
	}
}

// 検証に失敗するトークンはCookieごと破棄され、ログインページへ戻される。
func TestGateway_InvalidTokenPurged(t *testing.T) {
	gw := newTestGateway(t)

	u, _ := url.Parse(gw.server.URL)
	gw.client.Jar.SetCookies(u, []*http.Cookie{
		{Name: "USER_ADMIN", Value: "tampered-token"},
	})

	resp := gw.get(t, "/admin/dashboard")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/admin/login" {
		t.Errorf("Location = %q, want /admin/login", loc)
	}
	if gw.cookieValue(t, "USER_ADMIN") != "" {
		t.Error("invalid token cookie was not purged")
	}
}

// スロットとペイロードのロールが食い違う場合は拒否してスロットを掃除する。
func TestGateway_RoleMismatchRejected(t *testing.T) {
	gw := newTestGateway(t)

	// USERロールのトークンをADMINスロットに置く
	userToken := mintToken(t, "u-user", "user@example.com", model.RoleUser)
	u, _ := url.Parse(gw.server.URL)
	gw.client.Jar.SetCookies(u, []*http.Cookie{
		{Name: "USER_ADMIN", Value: userToken},
	})

	resp := gw.get(t, "/admin/dashboard")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/admin/login" {
		t.Errorf("Location = %q, want /admin/login", loc)
	}
	if gw.cookieValue(t, "USER_ADMIN") != "" {
		t.Error("mismatched slot was not cleared")
	}
}

// APIルートのサブツリーラップガードもエッジ評価と同じ検証強度を持つ。
func TestGateway_APIGuardSameStrength(t *testing.T) {
	gw := newTestGateway(t)

	// 未認証
	resp := gw.get(t, "/api/admin/events")
	resp.Body.Close()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("unauthenticated api status = %d, want 307", resp.StatusCode)
	}

	// 不正トークン
	u, _ := url.Parse(gw.server.URL)
	gw.client.Jar.SetCookies(u, []*http.Cookie{
		{Name: "USER_ADMIN", Value: "tampered"},
	})
	resp = gw.get(t, "/api/admin/events")
	resp.Body.Close()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("tampered token api status = %d, want 307", resp.StatusCode)
	}

	// 他ロールのAPIには到達できない
	gw2 := newTestGateway(t)
	gw2.login(t, "user@example.com", "user-pw").Body.Close()
	resp = gw2.get(t, "/api/admin/events")
	resp.Body.Close()
	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("cross-role api status = %d, want 307", resp.StatusCode)
	}
}

// ログインの失敗メッセージはバックエンドのものがそのまま返る。
func TestGateway_LoginRejected(t *testing.T) {
	gw := newTestGateway(t)

	resp := gw.login(t, "admin@example.com", "wrong-password")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if !strings.Contains(readBody(t, resp), "メールアドレスまたはパスワードが間違っています。") {
		t.Error("backend rejection message not passed through")
	}
	if gw.cookieValue(t, "USER_ADMIN") != "" {
		t.Error("no cookie must be set on rejected login")
	}
}

// CSRFトークンなしの状態変更リクエストは拒否される。
func TestGateway_CSRFRequired(t *testing.T) {
	gw := newTestGateway(t)

	req, _ := http.NewRequest(http.MethodPost, gw.server.URL+"/auth/login",
		strings.NewReader(`{"email":"admin@example.com","password":"admin-pw"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := gw.client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
}

// 公開エンドポイントは認証なしで到達できる。
func TestGateway_PublicEndpoints(t *testing.T) {
	gw := newTestGateway(t)

	for _, path := range []string{"/", "/login", "/admin/login", "/organizer/login", "/client/login", "/health"} {
		t.Run(path, func(t *testing.T) {
			resp := gw.get(t, path)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("status = %d, want 200", resp.StatusCode)
			}
		})
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return string(b)
}
