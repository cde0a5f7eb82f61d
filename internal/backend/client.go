// Package backend はイベントチケッティングプラットフォームの
// REST APIを呼び出すクライアントを提供する。
// ゲートウェイはビジネスロジックを持たず、すべての業務操作をこのAPIに委譲する。
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/hitoshi/eventgate/internal/model"
)

// maxResponseSize はバックエンドレスポンスの読み取り上限。
const maxResponseSize = 10 << 20

// Metrics はクライアントが記録するメトリクスのインターフェース。
type Metrics interface {
	RecordBackendStatus(statusCode int)
	RecordVerifyLatency(d time.Duration)
}

// noopMetrics はメトリクス未設定時のフォールバック。
type noopMetrics struct{}

func (noopMetrics) RecordBackendStatus(int)           {}
func (noopMetrics) RecordVerifyLatency(time.Duration) {}

// Client はバックエンドAPIのHTTPクライアント。
// すべてのレスポンスは {success, message, data} のエンベロープで返る。
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    Metrics
}

// NewClient はClientを生成する。metricsがnilの場合は記録しない。
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics Metrics) *Client {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logger,
		metrics:    metrics,
	}
}

// envelope はバックエンドの統一レスポンス形式のパース結果。
type envelope struct {
	Success bool
	Message string
	Data    gjson.Result
}

// do はバックエンドへのリクエストを実行し、エンベロープを返す。
// トランスポート層の失敗はBACKEND_UNREACHABLEとして返す。
// エンベロープのsuccessフィールドの評価は呼び出し元の責務。
func (c *Client) do(ctx context.Context, method, path, bearer string, body any) (*envelope, error) {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("backend request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, model.NewBackendUnreachableError()
	}
	defer resp.Body.Close()

	c.metrics.RecordBackendStatus(resp.StatusCode)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.logger.Error("backend response read failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, model.NewBackendUnreachableError()
	}

	// エンベロープのパース。バックエンドの世代によりフィールド位置が揺れるため、
	// 構造体デコードではなくgjsonで寛容に取り出す。
	env := &envelope{
		Success: gjson.GetBytes(raw, "success").Bool(),
		Message: gjson.GetBytes(raw, "message").String(),
		Data:    gjson.GetBytes(raw, "data"),
	}
	return env, nil
}

// Login は認証情報でログインし、アクセストークンを返す。
// POST /auth/login
func (c *Client) Login(ctx context.Context, creds model.Credentials) (string, error) {
	env, err := c.do(ctx, http.MethodPost, "/auth/login", "", creds)
	if err != nil {
		return "", err
	}
	if !env.Success {
		return "", model.NewLoginRejectedError(env.Message)
	}

	accessToken := env.Data.Get("accessToken").String()
	if accessToken == "" {
		c.logger.Warn("login succeeded but no access token in response")
		return "", model.NewLoginRejectedError("アクセストークンを受け取れませんでした。")
	}
	return accessToken, nil
}

// Verify はトークンを検証し、ペイロードを返す。
// POST /auth/verify（Authorization: Bearerヘッダーで送信）
// ペイロードが不完全な場合も検証失敗として扱う。
func (c *Client) Verify(ctx context.Context, tok string) (*model.TokenPayload, error) {
	start := time.Now()
	env, err := c.do(ctx, http.MethodPost, "/auth/verify", tok, nil)
	c.metrics.RecordVerifyLatency(time.Since(start))
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, model.NewVerifyFailedError()
	}

	// 旧バージョンのバックエンドはpayloadをトップレベルに返すことがある。
	// data.payload を優先し、なければトップレベルを見る。
	payload := env.Data.Get("payload")
	if !payload.Exists() {
		payload = env.Data
	}

	role, ok := model.ParseRole(payload.Get("role").String())
	if !ok {
		return nil, model.NewVerifyFailedError()
	}
	p := &model.TokenPayload{
		UserID: payload.Get("userId").String(),
		Email:  payload.Get("email").String(),
		Role:   role,
	}
	if !p.Complete() {
		return nil, model.NewVerifyFailedError()
	}
	return p, nil
}

// Logout はバックエンドにログアウトを通知する。
// POST /auth/logout。失敗してもローカルのCookie削除は呼び出し元で続行する。
func (c *Client) Logout(ctx context.Context, tok string) error {
	env, err := c.do(ctx, http.MethodPost, "/auth/logout", tok, nil)
	if err != nil {
		return err
	}
	if !env.Success {
		return model.NewBackendRejectedError(env.Message)
	}
	return nil
}

// decodeData はエンベロープのdataサブツリーをDTOにデコードする。
func decodeData(env *envelope, dst any) error {
	if !env.Data.Exists() {
		return fmt.Errorf("レスポンスにdataフィールドがありません")
	}
	if err := json.Unmarshal([]byte(env.Data.Raw), dst); err != nil {
		return fmt.Errorf("レスポンスのデコードに失敗しました: %w", err)
	}
	return nil
}
