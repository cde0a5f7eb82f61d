package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/eventgate/internal/middleware"
	"github.com/hitoshi/eventgate/internal/model"
	"github.com/hitoshi/eventgate/internal/security"
)

// BannerEventBackend はバナー取得に必要なバックエンドのインターフェース。
type BannerEventBackend interface {
	GetEvent(ctx context.Context, tok, eventID string) (*model.Event, error)
}

// BannerMetrics はバナー代理取得の計測インターフェース。
type BannerMetrics interface {
	RecordBannerFetch(outcome string)
}

type noopBannerMetrics struct{}

func (noopBannerMetrics) RecordBannerFetch(string) {}

// BannerHandler はイベントのバナー画像を代理取得するHTTPハンドラー。
// バナーURLは主催者が設定した外部URLのため、SSRF防止の検証と
// 専用クライアントを必ず経由し、取得サイズにも上限を設ける。
type BannerHandler struct {
	backend    BannerEventBackend
	store      TokenReader
	ssrf       security.SSRFGuardService
	safeClient *http.Client
	maxSize    int64
	logger     *slog.Logger
	metrics    BannerMetrics
}

// NewBannerHandler はBannerHandlerを生成する。metricsがnilの場合は記録しない。
func NewBannerHandler(backend BannerEventBackend, store TokenReader, ssrf security.SSRFGuardService, fetchTimeout time.Duration, maxSize int64, logger *slog.Logger, metrics BannerMetrics) *BannerHandler {
	if metrics == nil {
		metrics = noopBannerMetrics{}
	}
	return &BannerHandler{
		backend:    backend,
		store:      store,
		ssrf:       ssrf,
		safeClient: ssrf.NewSafeClient(fetchTimeout, maxSize),
		maxSize:    maxSize,
		logger:     logger,
		metrics:    metrics,
	}
}

// Banner はイベントのバナー画像を代理取得して返す。
// GET /api/events/{id}/banner
func (h *BannerHandler) Banner(w http.ResponseWriter, r *http.Request) {
	tok, err := bearerFromRequest(r, h.store)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	eventID := chi.URLParam(r, "id")
	event, err := h.backend.GetEvent(r.Context(), tok, eventID)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	if event.BannerURL == "" {
		h.metrics.RecordBannerFetch("missing")
		middleware.WriteAPIError(w, model.NewBannerUnavailableError("バナーが設定されていません"))
		return
	}

	// DNS解決前の静的チェック。解決後のIP検証はsafeClient側のDialerが行う
	if err := h.ssrf.ValidateURL(event.BannerURL); err != nil {
		h.metrics.RecordBannerFetch("blocked")
		h.logger.Warn("banner URL blocked",
			slog.String("event_id", eventID),
			slog.String("error", err.Error()),
		)
		middleware.WriteAPIError(w, model.NewBannerBlockedError())
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, event.BannerURL, nil)
	if err != nil {
		h.metrics.RecordBannerFetch("error")
		middleware.WriteAPIError(w, model.NewBannerUnavailableError("バナーURLが正しくありません"))
		return
	}

	resp, err := h.safeClient.Do(req)
	if err != nil {
		// safeurlによるブロックも通信エラーもここに到達する。
		// ブロックは403、それ以外は503として区別する
		if isBlockedByPolicy(err) {
			h.metrics.RecordBannerFetch("blocked")
			middleware.WriteAPIError(w, model.NewBannerBlockedError())
			return
		}
		h.metrics.RecordBannerFetch("error")
		h.logger.Warn("banner fetch failed",
			slog.String("event_id", eventID),
			slog.String("error", err.Error()),
		)
		middleware.WriteAPIError(w, model.NewBannerUnavailableError("バナーの取得に失敗しました"))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		h.metrics.RecordBannerFetch("error")
		middleware.WriteAPIError(w, model.NewBannerUnavailableError("バナーの取得に失敗しました"))
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		h.metrics.RecordBannerFetch("blocked")
		middleware.WriteAPIError(w, model.NewBannerBlockedError())
		return
	}

	h.metrics.RecordBannerFetch("success")

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=300")

	// サイズ上限を超えた分は切り捨てる
	if _, err := io.Copy(w, io.LimitReader(resp.Body, h.maxSize)); err != nil {
		h.logger.Warn("banner stream interrupted",
			slog.String("event_id", eventID),
			slog.String("error", err.Error()),
		)
	}
}

// isBlockedByPolicy はsafeurlのポリシー違反によるエラーかを判定する。
func isBlockedByPolicy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "prohibited") ||
		strings.Contains(msg, "not allowed") ||
		strings.Contains(msg, "blocked")
}
