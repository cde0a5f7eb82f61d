// Package handler はゲートウェイのHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/hitoshi/eventgate/internal/middleware"
	"github.com/hitoshi/eventgate/internal/model"
	"github.com/hitoshi/eventgate/internal/session"
)

// AuthBackend は認証ハンドラーが必要とするバックエンドのインターフェース。
// backend.Clientの部分集合として定義する。
type AuthBackend interface {
	Login(ctx context.Context, creds model.Credentials) (string, error)
	Verify(ctx context.Context, tok string) (*model.TokenPayload, error)
	Logout(ctx context.Context, tok string) error
}

// AuthTokenStore は認証ハンドラーが必要とするトークン保管のインターフェース。
type AuthTokenStore interface {
	Set(w http.ResponseWriter, role model.Role, tok string)
	Get(r *http.Request, role model.Role) string
	ClearAll(w http.ResponseWriter)
}

// AuthSessionResolver は現在セッションの取得に必要なインターフェース。
type AuthSessionResolver interface {
	Resolve(ctx context.Context, r *http.Request, w http.ResponseWriter, role *model.Role) session.Result
}

// AuthMetrics はログイン試行の計測インターフェース。
type AuthMetrics interface {
	RecordLoginAttempt(outcome string)
}

type noopAuthMetrics struct{}

func (noopAuthMetrics) RecordLoginAttempt(string) {}

// AuthHandler はログイン・ログアウト・セッション照会のHTTPハンドラー。
type AuthHandler struct {
	backend  AuthBackend
	store    AuthTokenStore
	resolver AuthSessionResolver
	logger   *slog.Logger
	metrics  AuthMetrics
}

// NewAuthHandler はAuthHandlerを生成する。metricsがnilの場合は記録しない。
func NewAuthHandler(backend AuthBackend, store AuthTokenStore, resolver AuthSessionResolver, logger *slog.Logger, metrics AuthMetrics) *AuthHandler {
	if metrics == nil {
		metrics = noopAuthMetrics{}
	}
	return &AuthHandler{
		backend:  backend,
		store:    store,
		resolver: resolver,
		logger:   logger,
		metrics:  metrics,
	}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse はログイン成功時のレスポンス。
// redirectToは検証済みロールのダッシュボードを指す。
type loginResponse struct {
	Success    bool        `json:"success"`
	RedirectTo string      `json:"redirectTo"`
	User       sessionUser `json:"user"`
}

// sessionUser はセッション照会・ログイン応答で返すユーザー情報。
type sessionUser struct {
	UserID string     `json:"userId"`
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
}

// emailPattern はログインフォームのメールアドレス形式チェック。
// 厳密なRFC準拠ではなく、明らかな入力ミスを弾くための素朴な形式。
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Login はログインフローを実行する。
// POST /auth/login
//
// 入力検証 → バックエンドでの認証 → 取得トークンの検証 →
// 検証済みロールのスロットへの保存、の順に進む。
// トークンは保存前に必ず検証し、保存先スロットは検証ペイロードの
// ロールから決める。検証に失敗したトークンは保存しない。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.metrics.RecordLoginAttempt("invalid_request")
		middleware.WriteAPIError(w, model.NewValidationError("リクエストボディの解析に失敗しました。"))
		return
	}

	if err := validateCredentials(req.Email, req.Password); err != nil {
		h.metrics.RecordLoginAttempt("validation_failed")
		middleware.WriteAPIError(w, err)
		return
	}

	creds := model.Credentials{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	}

	tok, err := h.backend.Login(r.Context(), creds)
	if err != nil {
		h.metrics.RecordLoginAttempt("rejected")
		h.logger.Warn("login rejected",
			slog.String("email", creds.Email),
			slog.String("error", err.Error()),
		)
		middleware.WriteAPIError(w, err)
		return
	}

	// 取得直後のトークンを検証し、ロール・ユーザー情報を確定させる
	payload, err := h.backend.Verify(r.Context(), tok)
	if err != nil {
		h.metrics.RecordLoginAttempt("verify_failed")
		h.logger.Error("post-login token verification failed",
			slog.String("email", creds.Email),
			slog.String("error", err.Error()),
		)
		middleware.WriteAPIError(w, err)
		return
	}

	// 古いセッションの残骸を全スロットから除去してから、
	// 検証済みロールのスロットにのみ保存する
	h.store.ClearAll(w)
	h.store.Set(w, payload.Role, tok)

	h.metrics.RecordLoginAttempt("success")
	h.logger.Info("login succeeded",
		slog.String("user_id", payload.UserID),
		slog.String("role", string(payload.Role)),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loginResponse{
		Success:    true,
		RedirectTo: payload.Role.LandingPath(),
		User: sessionUser{
			UserID: payload.UserID,
			Email:  payload.Email,
			Role:   payload.Role,
		},
	})
}

// Logout はセッションを破棄する。
// POST /auth/logout
//
// バックエンドへのログアウト通知はベストエフォートで行い、
// 失敗してもローカルのCookie削除は必ず実行する。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	for _, role := range model.AllRoles {
		tok := h.store.Get(r, role)
		if tok == "" {
			continue
		}
		if err := h.backend.Logout(r.Context(), tok); err != nil {
			h.logger.Warn("backend logout failed",
				slog.String("slot", string(role)),
				slog.String("error", err.Error()),
			)
		}
	}

	h.store.ClearAll(w)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success":    true,
		"redirectTo": model.RoleUser.LoginPath(),
	})
}

// Me は現在のセッション情報を返す。
// GET /auth/me
//
// 全スロットをADMIN→ORGANIZER→USERの順で探索し、
// 最初に検証が成功したセッションを返す。未認証は401。
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	result := h.resolver.Resolve(r.Context(), r, w, nil)
	if !result.Authenticated {
		middleware.WriteAPIError(w, model.NewVerifyFailedError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessionUser{
		UserID: result.Session.UserID,
		Email:  result.Session.Email,
		Role:   result.Session.Role,
	})
}

// validateCredentials はログイン入力のローカル検証を行う。
// バックエンドへ送信する前の形式チェックであり、認証の成否は判定しない。
func validateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return model.NewValidationError("メールアドレスを入力してください。")
	}
	if !emailPattern.MatchString(email) {
		return model.NewValidationError("メールアドレスの形式が正しくありません。")
	}
	if password == "" {
		return model.NewValidationError("パスワードを入力してください。")
	}
	return nil
}
