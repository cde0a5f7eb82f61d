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
	"github.com/hitoshi/eventgate/internal/security"
)

// EventBackend はイベントハンドラーが必要とするバックエンドのインターフェース。
type EventBackend interface {
	ListEvents(ctx context.Context, tok string, filter model.EventFilter) (*model.EventPage, error)
	GetEvent(ctx context.Context, tok, eventID string) (*model.Event, error)
	CreateEvent(ctx context.Context, tok string, input model.CreateEventInput) (*model.Event, error)
	UpdateEvent(ctx context.Context, tok, eventID string, input model.CreateEventInput) (*model.Event, error)
	DeleteEvent(ctx context.Context, tok, eventID string) error
	ApproveEvent(ctx context.Context, tok, eventID string) error
	RejectEvent(ctx context.Context, tok, eventID, reason string) error
}

// EventMetrics はサニタイズ処理の計測インターフェース。
type EventMetrics interface {
	RecordSanitizedDescription()
}

type noopEventMetrics struct{}

func (noopEventMetrics) RecordSanitizedDescription() {}

// EventHandler はイベント管理のHTTPハンドラー。
// バックエンドへの中継に加え、主催者が入力した説明文HTMLの
// サニタイズを作成・更新の経路で必ず通す。
type EventHandler struct {
	backend   EventBackend
	store     TokenReader
	sanitizer security.ContentSanitizerService
	logger    *slog.Logger
	metrics   EventMetrics
}

// NewEventHandler はEventHandlerを生成する。metricsがnilの場合は記録しない。
func NewEventHandler(backend EventBackend, store TokenReader, sanitizer security.ContentSanitizerService, logger *slog.Logger, metrics EventMetrics) *EventHandler {
	if metrics == nil {
		metrics = noopEventMetrics{}
	}
	return &EventHandler{
		backend:   backend,
		store:     store,
		sanitizer: sanitizer,
		logger:    logger,
		metrics:   metrics,
	}
}

// eventFilterFromQuery はクエリ文字列からイベント一覧のフィルタを組み立てる。
func eventFilterFromQuery(r *http.Request) model.EventFilter {
	q := r.URL.Query()
	filter := model.EventFilter{
		Title:      q.Get("title"),
		Location:   q.Get("location"),
		Status:     q.Get("status"),
		CategoryID: q.Get("categoryId"),
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v >= 0 {
		filter.Offset = v
	}
	return filter
}

// ListEvents はイベント一覧を取得する。
// GET /api/events?limit=&offset=&title=&location=&status=&categoryId=
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	tok, err := bearerFromRequest(r, h.store)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	page, err := h.backend.ListEvents(r.Context(), tok, eventFilterFromQuery(r))
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(page)
}

// GetEvent はイベント詳細を取得する。
// GET /api/events/{id}
//
// 説明文は保存時にもサニタイズ済みだが、バックエンド側のデータを
// そのまま信用せず、配信前にも同一ポリシーで再サニタイズする。
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	tok, err := bearerFromRequest(r, h.store)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	event, err := h.backend.GetEvent(r.Context(), tok, chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	if event.Description != "" {
		event.Description = h.sanitizer.Sanitize(event.Description)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(event)
}

// CreateEvent はイベントを作成する。
// POST /api/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	tok, err := bearerFromRequest(r, h.store)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	var input model.CreateEventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("リクエストボディの解析に失敗しました。"))
		return
	}
	if err := validateEventInput(input); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	input.Description = h.sanitizeDescription(input.Description)

	event, err := h.backend.CreateEvent(r.Context(), tok, input)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(event)
}

// UpdateEvent はイベントを更新する。
// PATCH /api/events/{id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	tok, err := bearerFromRequest(r, h.store)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	var input model.CreateEventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("リクエストボディの解析に失敗しました。"))
		return
	}
	if err := validateEventInput(input); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	input.Description = h.sanitizeDescription(input.Description)

	event, err := h.backend.UpdateEvent(r.Context(), tok, chi.URLParam(r, "id"), input)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(event)
}

// DeleteEvent はイベントを削除する。
// DELETE /api/events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	tok, err := bearerFromRequest(r, h.store)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	if err := h.backend.DeleteEvent(r.Context(), tok, chi.URLParam(r, "id")); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ApproveEvent はイベントを承認する（管理者の審査操作）。
// POST /api/events/{id}/approve
func (h *EventHandler) ApproveEvent(w http.ResponseWriter, r *http.Request) {
	tok, err := bearerFromRequest(r, h.store)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	eventID := chi.URLParam(r, "id")
	if err := h.backend.ApproveEvent(r.Context(), tok, eventID); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	h.logger.Info("event approved", slog.String("event_id", eventID))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// rejectEventRequest はイベント却下リクエストのボディ。
type rejectEventRequest struct {
	Reason string `json:"reason"`
}

// RejectEvent はイベントを却下する（管理者の審査操作）。
// POST /api/events/{id}/reject
func (h *EventHandler) RejectEvent(w http.ResponseWriter, r *http.Request) {
	tok, err := bearerFromRequest(r, h.store)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	var req rejectEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("リクエストボディの解析に失敗しました。"))
		return
	}
	if req.Reason == "" {
		middleware.WriteAPIError(w, model.NewValidationError("却下理由を入力してください。"))
		return
	}

	eventID := chi.URLParam(r, "id")
	if err := h.backend.RejectEvent(r.Context(), tok, eventID, req.Reason); err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	h.logger.Info("event rejected", slog.String("event_id", eventID))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// sanitizeDescription は説明文をサニタイズし、計測を記録する。
func (h *EventHandler) sanitizeDescription(description string) string {
	if description == "" {
		return ""
	}
	h.metrics.RecordSanitizedDescription()
	return h.sanitizer.Sanitize(description)
}

// validateEventInput はイベント入力の必須フィールドを検証する。
func validateEventInput(input model.CreateEventInput) error {
	if input.Title == "" {
		return model.NewValidationError("イベント名を入力してください。")
	}
	if input.Location == "" {
		return model.NewValidationError("開催場所を入力してください。")
	}
	if input.StartTime == "" || input.EndTime == "" {
		return model.NewValidationError("開催期間を入力してください。")
	}
	return nil
}
