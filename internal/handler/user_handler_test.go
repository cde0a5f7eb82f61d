package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/eventgate/internal/model"
)

// mockUserBackend はUserBackendのテスト用モック。
type mockUserBackend struct {
	listFn       func(ctx context.Context, tok string, filter model.UserFilter) (*model.UserPage, error)
	getFn        func(ctx context.Context, tok, userID string) (*model.UserAccount, error)
	createFn     func(ctx context.Context, tok string, input model.CreateUserInput) error
	updateFn     func(ctx context.Context, tok, userID string, input model.UpdateUserInput) error
	deactivateFn func(ctx context.Context, tok, userID string) error
}

func (m *mockUserBackend) ListUsers(ctx context.Context, tok string, filter model.UserFilter) (*model.UserPage, error) {
	return m.listFn(ctx, tok, filter)
}

func (m *mockUserBackend) GetUser(ctx context.Context, tok, userID string) (*model.UserAccount, error) {
	return m.getFn(ctx, tok, userID)
}

func (m *mockUserBackend) CreateUser(ctx context.Context, tok string, input model.CreateUserInput) error {
	return m.createFn(ctx, tok, input)
}

func (m *mockUserBackend) UpdateUser(ctx context.Context, tok, userID string, input model.UpdateUserInput) error {
	return m.updateFn(ctx, tok, userID, input)
}

func (m *mockUserBackend) DeactivateUser(ctx context.Context, tok, userID string) error {
	return m.deactivateFn(ctx, tok, userID)
}

func newTestUserHandler(backend *mockUserBackend) *UserHandler {
	store := &mockTokenReader{tokens: map[model.Role]string{
		model.RoleAdmin: "admin-token",
	}}
	return NewUserHandler(backend, store, discardLogger())
}

func TestListUsers_ForwardsFilter(t *testing.T) {
	var captured model.UserFilter
	backend := &mockUserBackend{
		listFn: func(ctx context.Context, tok string, filter model.UserFilter) (*model.UserPage, error) {
			captured = filter
			return &model.UserPage{Users: []model.UserAccount{{ID: "u1", Email: "a@example.com"}}}, nil
		},
	}
	h := newTestUserHandler(backend)

	req := guardedRequest(http.MethodGet, "/api/admin/users?role=ORGANIZER&faculty=工学部&limit=50", "", model.RoleAdmin)
	rec := httptest.NewRecorder()
	h.ListUsers(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if captured.Role != "ORGANIZER" || captured.Faculty != "工学部" || captured.Limit != 50 {
		t.Errorf("filter = %+v", captured)
	}
}

func TestCreateUser_RoleSpecificValidation(t *testing.T) {
	h := newTestUserHandler(&mockUserBackend{
		createFn: func(ctx context.Context, tok string, input model.CreateUserInput) error {
			return nil
		},
	})

	tests := []struct {
		name string
		body string
		want int
	}{
		{
			name: "USERは学籍番号が必須",
			body: `{"email":"s@example.com","password":"pw","fullName":"学生 太郎","role":"USER"}`,
			want: http.StatusBadRequest,
		},
		{
			name: "ORGANIZERは学部が必須",
			body: `{"email":"o@example.com","password":"pw","fullName":"主催 花子","role":"ORGANIZER"}`,
			want: http.StatusBadRequest,
		},
		{
			name: "不正なロール",
			body: `{"email":"x@example.com","password":"pw","fullName":"不明","role":"SUPERUSER"}`,
			want: http.StatusBadRequest,
		},
		{
			name: "USER作成成功",
			body: `{"email":"s@example.com","password":"pw","fullName":"学生 太郎","role":"USER","studentCode":"S12345"}`,
			want: http.StatusCreated,
		},
		{
			name: "ORGANIZER作成成功",
			body: `{"email":"o@example.com","password":"pw","fullName":"主催 花子","role":"ORGANIZER","faculty":"工学部"}`,
			want: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := guardedRequest(http.MethodPost, "/api/admin/users", tt.body, model.RoleAdmin)
			rec := httptest.NewRecorder()
			h.CreateUser(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestDeactivateUser(t *testing.T) {
	var deactivated string
	backend := &mockUserBackend{
		deactivateFn: func(ctx context.Context, tok, userID string) error {
			deactivated = userID
			return nil
		},
	}
	h := newTestUserHandler(backend)

	req := withURLParam(guardedRequest(http.MethodDelete, "/api/admin/users/u9", "", model.RoleAdmin), "id", "u9")
	rec := httptest.NewRecorder()
	h.DeactivateUser(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if deactivated != "u9" {
		t.Errorf("deactivated user = %q, want u9", deactivated)
	}
}
