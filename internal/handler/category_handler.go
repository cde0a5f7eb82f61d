package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/eventgate/internal/middleware"
	"github.com/hitoshi/eventgate/internal/model"
)

// CategoryBackend はカテゴリハンドラーが必要とするバックエンドのインターフェース。
type CategoryBackend interface {
	ListCategories(ctx context.Context, tok string, limit, offset int) (*model.CategoryPage, error)
	CreateCategory(ctx context.Context, tok string, input model.CategoryInput) (*model.Category, error)
	UpdateCategory(ctx context.Context, tok string, id int, input model.CategoryInput) (*model.Category, error)
	DeleteCategory(ctx context.Context, tok string, id int) error
}

// CategoryHandler はイベントカテゴリ管理のHTTPハンドラー。
type CategoryHandler struct {
	backend CategoryBackend
	store   TokenReader
}

// NewCategoryHandler はCategoryHandlerを生成する。
func NewCategoryHandler(backend CategoryBackend, store TokenReader) *CategoryHandler {
	return &CategoryHandler{
		backend: backend,
		store:   store,
	}
}

// ListCategories はカテゴリ一覧を取得する。
// GET /api/categories?limit=&offset=
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	tok, err := bearerFromRequest(r, h.store)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	page, err := h.backend.ListCategories(r.Context(), tok, limit, offset)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(page)
}

// CreateCategory はカテゴリを作成する。
// POST /api/categories
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	tok, err := bearerFromRequest(r, h.store)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	var input model.CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("リクエストボディの解析に失敗しました。"))
		return
	}
	if input.Name == "" {
		middleware.WriteAPIError(w, model.NewValidationError("カテゴリ名を入力してください。"))
		return
	}

	category, err := h.backend.CreateCategory(r.Context(), tok, input)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(category)
}

// UpdateCategory はカテゴリを更新する。
// PATCH /api/categories/{id}
func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	tok, err := bearerFromRequest(r, h.store)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("カテゴリIDが正しくありません。"))
		return
	}

	var input model.CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("リクエストボディの解析に失敗しました。"))
		return
	}
	if input.Name == "" {
		middleware.WriteAPIError(w, model.NewValidationError("カテゴリ名を入力してください。"))
		return
	}

	category, err := h.backend.UpdateCategory(r.Context(), tok, id, input)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(category)
}

// DeleteCategory はカテゴリを削除する。
// DELETE /api/categories/{id}
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	tok, err := bearerFromRequest(r, h.store)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("カテゴリIDが正しくありません。"))
		return
	}

	if err := h.backend.DeleteCategory(r.Context(), tok, id); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
