package model

// UserAccount はプラットフォームの利用者アカウントを表す。
// 管理者ポータルのユーザー管理画面で扱う。
type UserAccount struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	SystemRole  Role   `json:"systemRole"`
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber"`
	IsActive    bool   `json:"isActive"`
	StudentCode string `json:"studentCode,omitempty"` // USERの場合に必須
	Faculty     string `json:"faculty,omitempty"`     // ORGANIZERの場合に必須
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// CreateUserInput はユーザー作成の入力。
type CreateUserInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber"`
	Role        Role   `json:"role"`
	Faculty     string `json:"faculty,omitempty"`
	StudentCode string `json:"studentCode,omitempty"`
}

// UpdateUserInput はユーザー更新の入力。nilのフィールドは変更しない。
type UpdateUserInput struct {
	FullName    *string `json:"fullName,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	Faculty     *string `json:"faculty,omitempty"`
	StudentCode *string `json:"studentCode,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

// UserFilter はユーザー一覧のフィルタ条件。
type UserFilter struct {
	Email       string
	StudentCode string
	Role        string
	Faculty     string
	Limit       int
	Offset      int
}

// UserPage はページング付きのユーザー一覧。
type UserPage struct {
	Users      []UserAccount `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

// DashboardStats はダッシュボードに表示する統計情報。
// スコープ（管理者/主催者/利用者）ごとにバックエンドが集計する。
type DashboardStats struct {
	TotalEvents    int `json:"totalEvents"`
	PendingEvents  int `json:"pendingEvents"`
	ApprovedEvents int `json:"approvedEvents"`
	TotalUsers     int `json:"totalUsers,omitempty"`
	TotalTickets   int `json:"totalTickets,omitempty"`
}
