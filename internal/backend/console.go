package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hitoshi/eventgate/internal/model"
)

// ListEvents はイベント一覧をフィルタ条件付きで取得する。
// GET /events
func (c *Client) ListEvents(ctx context.Context, tok string, filter model.EventFilter) (*model.EventPage, error) {
	q := url.Values{}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}
	if filter.Title != "" {
		q.Set("title", filter.Title)
	}
	if filter.Location != "" {
		q.Set("location", filter.Location)
	}
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	if filter.CategoryID != "" {
		q.Set("categoryId", filter.CategoryID)
	}

	path := "/events"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	env, err := c.do(ctx, http.MethodGet, path, tok, nil)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, model.NewBackendRejectedError(env.Message)
	}

	var page model.EventPage
	if err := decodeData(env, &page); err != nil {
		return nil, fmt.Errorf("イベント一覧の取得に失敗しました: %w", err)
	}
	return &page, nil
}

// GetEvent はイベント詳細を取得する。
// GET /events/{id}
func (c *Client) GetEvent(ctx context.Context, tok, eventID string) (*model.Event, error) {
	env, err := c.do(ctx, http.MethodGet, "/events/"+url.PathEscape(eventID), tok, nil)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, model.NewEventNotFoundError(eventID)
	}

	var event model.Event
	if err := decodeData(env, &event); err != nil {
		return nil, fmt.Errorf("イベント詳細の取得に失敗しました: %w", err)
	}
	return &event, nil
}

// CreateEvent はイベントを作成する。
// POST /events
func (c *Client) CreateEvent(ctx context.Context, tok string, input model.CreateEventInput) (*model.Event, error) {
	env, err := c.do(ctx, http.MethodPost, "/events", tok, input)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, model.NewBackendRejectedError(env.Message)
	}

	var event model.Event
	if err := decodeData(env, &event); err != nil {
		return nil, fmt.Errorf("イベント作成結果のデコードに失敗しました: %w", err)
	}
	return &event, nil
}

// UpdateEvent はイベントを更新する。
// PATCH /events/{id}
func (c *Client) UpdateEvent(ctx context.Context, tok, eventID string, input model.CreateEventInput) (*model.Event, error) {
	env, err := c.do(ctx, http.MethodPatch, "/events/"+url.PathEscape(eventID), tok, input)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, model.NewBackendRejectedError(env.Message)
	}

	var event model.Event
	if err := decodeData(env, &event); err != nil {
		return nil, fmt.Errorf("イベント更新結果のデコードに失敗しました: %w", err)
	}
	return &event, nil
}

// DeleteEvent はイベントを削除する。
// DELETE /events/{id}
func (c *Client) DeleteEvent(ctx context.Context, tok, eventID string) error {
	env, err := c.do(ctx, http.MethodDelete, "/events/"+url.PathEscape(eventID), tok, nil)
	if err != nil {
		return err
	}
	if !env.Success {
		return model.NewBackendRejectedError(env.Message)
	}
	return nil
}

// ApproveEvent は審査中のイベントを承認する。
// POST /events/{id}/approve
func (c *Client) ApproveEvent(ctx context.Context, tok, eventID string) error {
	env, err := c.do(ctx, http.MethodPost, "/events/"+url.PathEscape(eventID)+"/approve", tok, nil)
	if err != nil {
		return err
	}
	if !env.Success {
		return model.NewBackendRejectedError(env.Message)
	}
	return nil
}

// RejectEvent は審査中のイベントを理由付きで却下する。
// POST /events/{id}/reject
func (c *Client) RejectEvent(ctx context.Context, tok, eventID, reason string) error {
	body := map[string]string{"reason": reason}
	env, err := c.do(ctx, http.MethodPost, "/events/"+url.PathEscape(eventID)+"/reject", tok, body)
	if err != nil {
		return err
	}
	if !env.Success {
		return model.NewBackendRejectedError(env.Message)
	}
	return nil
}

// ListCategories はカテゴリ一覧を取得する。
// GET /categories
func (c *Client) ListCategories(ctx context.Context, tok string, limit, offset int) (*model.CategoryPage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/categories"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	env, err := c.do(ctx, http.MethodGet, path, tok, nil)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, model.NewBackendRejectedError(env.Message)
	}

	var page model.CategoryPage
	if err := decodeData(env, &page); err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	return &page, nil
}

// CreateCategory はカテゴリを作成する。
// POST /categories
func (c *Client) CreateCategory(ctx context.Context, tok string, input model.CategoryInput) (*model.Category, error) {
	env, err := c.do(ctx, http.MethodPost, "/categories", tok, input)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, model.NewBackendRejectedError(env.Message)
	}

	var category model.Category
	if err := decodeData(env, &category); err != nil {
		return nil, fmt.Errorf("カテゴリ作成結果のデコードに失敗しました: %w", err)
	}
	return &category, nil
}

// UpdateCategory はカテゴリを更新する。
// PATCH /categories/{id}
func (c *Client) UpdateCategory(ctx context.Context, tok string, id int, input model.CategoryInput) (*model.Category, error) {
	env, err := c.do(ctx, http.MethodPatch, "/categories/"+strconv.Itoa(id), tok, input)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, model.NewBackendRejectedError(env.Message)
	}

	var category model.Category
	if err := decodeData(env, &category); err != nil {
		return nil, fmt.Errorf("カテゴリ更新結果のデコードに失敗しました: %w", err)
	}
	return &category, nil
}

// DeleteCategory はカテゴリを削除する。
// DELETE /categories/{id}
func (c *Client) DeleteCategory(ctx context.Context, tok string, id int) error {
	env, err := c.do(ctx, http.MethodDelete, "/categories/"+strconv.Itoa(id), tok, nil)
	if err != nil {
		return err
	}
	if !env.Success {
		return model.NewBackendRejectedError(env.Message)
	}
	return nil
}

// ListUsers はユーザー一覧をフィルタ条件付きで取得する。
// GET /users
func (c *Client) ListUsers(ctx context.Context, tok string, filter model.UserFilter) (*model.UserPage, error) {
	q := url.Values{}
	if filter.Email != "" {
		q.Set("email", filter.Email)
	}
	if filter.StudentCode != "" {
		q.Set("studentCode", filter.StudentCode)
	}
	if filter.Role != "" {
		q.Set("role", filter.Role)
	}
	if filter.Faculty != "" {
		q.Set("faculty", filter.Faculty)
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}
	path := "/users"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	env, err := c.do(ctx, http.MethodGet, path, tok, nil)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, model.NewBackendRejectedError(env.Message)
	}

	var page model.UserPage
	if err := decodeData(env, &page); err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return &page, nil
}

// GetUser はユーザー詳細を取得する。
// GET /users/{id}
func (c *Client) GetUser(ctx context.Context, tok, userID string) (*model.UserAccount, error) {
	env, err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), tok, nil)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, model.NewBackendRejectedError(env.Message)
	}

	var account model.UserAccount
	if err := decodeData(env, &account); err != nil {
		return nil, fmt.Errorf("ユーザー詳細の取得に失敗しました: %w", err)
	}
	return &account, nil
}

// CreateUser はユーザーを作成する。
// POST /users/create
func (c *Client) CreateUser(ctx context.Context, tok string, input model.CreateUserInput) error {
	env, err := c.do(ctx, http.MethodPost, "/users/create", tok, input)
	if err != nil {
		return err
	}
	if !env.Success {
		return model.NewBackendRejectedError(env.Message)
	}
	return nil
}

// UpdateUser はユーザーを更新する。
// PATCH /users/{id}
func (c *Client) UpdateUser(ctx context.Context, tok, userID string, input model.UpdateUserInput) error {
	env, err := c.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(userID), tok, input)
	if err != nil {
		return err
	}
	if !env.Success {
		return model.NewBackendRejectedError(env.Message)
	}
	return nil
}

// DeactivateUser はユーザーを無効化する。
// POST /users/{id}/deactivate
func (c *Client) DeactivateUser(ctx context.Context, tok, userID string) error {
	env, err := c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(userID)+"/deactivate", tok, nil)
	if err != nil {
		return err
	}
	if !env.Success {
		return model.NewBackendRejectedError(env.Message)
	}
	return nil
}

// DashboardStats はダッシュボード統計を取得する。
// GET /stats/{scope}（scopeはadmin/organizer/client）
func (c *Client) DashboardStats(ctx context.Context, tok, scope string) (*model.DashboardStats, error) {
	env, err := c.do(ctx, http.MethodGet, "/stats/"+url.PathEscape(scope), tok, nil)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, model.NewBackendRejectedError(env.Message)
	}

	var stats model.DashboardStats
	if err := decodeData(env, &stats); err != nil {
		return nil, fmt.Errorf("統計情報の取得に失敗しました: %w", err)
	}
	return &stats, nil
}
