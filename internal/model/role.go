// Package model はドメインモデルを定義する。
package model

// Role はコンソール利用者の権限区分を表す。
// Cookieスロット名、ログインページ、ダッシュボードのパスはRoleから導出する。
type Role string

const (
	// RoleAdmin はプラットフォーム管理者。
	RoleAdmin Role = "ADMIN"
	// RoleOrganizer はイベント主催者。
	RoleOrganizer Role = "ORGANIZER"
	// RoleUser は一般利用者（クライアントポータル）。
	RoleUser Role = "USER"
)

// AllRoles はセッション解決時の探索優先順。
// ADMIN → ORGANIZER → USER の順で最初に見つかったスロットを採用する。
var AllRoles = []Role{RoleAdmin, RoleOrganizer, RoleUser}

// ParseRole は文字列をRoleに変換する。未知の値はfalseを返す。
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleOrganizer, RoleUser:
		return Role(s), true
	}
	return "", false
}

// CookieName はこのロールのトークンを保持するCookie名を返す。
// 名前はバックエンドと共有する規約のため変更不可。
func (r Role) CookieName() string {
	switch r {
	case RoleAdmin:
		return "USER_ADMIN"
	case RoleOrganizer:
		return "USER_ORGANIZER"
	default:
		return "USER"
	}
}

// LoginPath はこのロールのログインページのパスを返す。
func (r Role) LoginPath() string {
	switch r {
	case RoleAdmin:
		return "/admin/login"
	case RoleOrganizer:
		return "/organizer/login"
	default:
		return "/login"
	}
}

// LandingPath はログイン成功後の遷移先（ダッシュボード）のパスを返す。
func (r Role) LandingPath() string {
	switch r {
	case RoleAdmin:
		return "/admin/dashboard"
	case RoleOrganizer:
		return "/organizer/dashboard"
	default:
		return "/dashboard"
	}
}

// Valid はRoleが定義済みの3値のいずれかであるかを返す。
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}
