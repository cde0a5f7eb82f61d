package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/eventgate/internal/middleware"
	"github.com/hitoshi/eventgate/internal/model"
)

// UserBackend はユーザー管理ハンドラーが必要とするバックエンドのインターフェース。
type UserBackend interface {
	ListUsers(ctx context.Context, tok string, filter model.UserFilter) (*model.UserPage, error)
	GetUser(ctx context.Context, tok, userID string) (*model.UserAccount, error)
	CreateUser(ctx context.Context, tok string, input model.CreateUserInput) error
	UpdateUser(ctx context.Context, tok, userID string, input model.UpdateUserInput) error
	DeactivateUser(ctx context.Context, tok, userID string) error
}

// UserHandler は管理者ポータルのユーザー管理HTTPハンドラー。
type UserHandler struct {
	backend UserBackend
	store   TokenReader
	logger  *slog.Logger
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(backend UserBackend, store TokenReader, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		backend: backend,
		store:   store,
		logger:  logger,
	}
}

// userFilterFromQuery はクエリ文字列からユーザー一覧のフィルタを組み立てる。
func userFilterFromQuery(r *http.Request) model.UserFilter {
	q := r.URL.Query()
	filter := model.UserFilter{
		Email:       q.Get("email"),
		StudentCode: q.Get("studentCode"),
		Role:        q.Get("role"),
		Faculty:     q.Get("faculty"),
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v >= 0 {
		filter.Offset = v
	}
	return filter
}

// ListUsers はユーザー一覧を取得する。
// GET /api/users?email=&studentCode=&role=&faculty=&limit=&offset=
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	tok, err := bearerFromRequest(r, h.store)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	page, err := h.backend.ListUsers(r.Context(), tok, userFilterFromQuery(r))
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(page)
}

// GetUser はユーザー詳細を取得する。
// GET /api/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	tok, err := bearerFromRequest(r, h.store)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	account, err := h.backend.GetUser(r.Context(), tok, chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(account)
}

// CreateUser はユーザーを作成する。
// POST /api/users
//
// ロールに応じた必須フィールド（USERは学籍番号、ORGANIZERは学部）を
// バックエンドへ送る前に検証する。
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	tok, err := bearerFromRequest(r, h.store)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	var input model.CreateUserInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("リクエストボディの解析に失敗しました。"))
		return
	}
	if err := validateCreateUserInput(input); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	if err := h.backend.CreateUser(r.Context(), tok, input); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	h.logger.Info("user created",
		slog.String("email", input.Email),
		slog.String("role", string(input.Role)),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// UpdateUser はユーザーを更新する。
// PATCH /api/users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	tok, err := bearerFromRequest(r, h.store)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	var input model.UpdateUserInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("リクエストボディの解析に失敗しました。"))
		return
	}

	userID := chi.URLParam(r, "id")
	if err := h.backend.UpdateUser(r.Context(), tok, userID, input); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// DeactivateUser はユーザーを無効化する。物理削除は行わない。
// DELETE /api/users/{id}
func (h *UserHandler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	tok, err := bearerFromRequest(r, h.store)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	userID := chi.URLParam(r, "id")
	if err := h.backend.DeactivateUser(r.Context(), tok, userID); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	h.logger.Info("user deactivated", slog.String("user_id", userID))

	w.WriteHeader(http.StatusNoContent)
}

// validateCreateUserInput はユーザー作成入力を検証する。
func validateCreateUserInput(input model.CreateUserInput) error {
	if err := validateCredentials(input.Email, input.Password); err != nil {
		return err
	}
	if input.FullName == "" {
		return model.NewValidationError("氏名を入力してください。")
	}
	if !input.Role.Valid() {
		return model.NewValidationError("ロールの指定が正しくありません。")
	}
	if input.Role == model.RoleUser && input.StudentCode == "" {
		return model.NewValidationError("学籍番号を入力してください。")
	}
	if input.Role == model.RoleOrganizer && input.Faculty == "" {
		return model.NewValidationError("学部を入力してください。")
	}
	return nil
}
