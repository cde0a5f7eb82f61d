package model

// TokenPayload はバックエンドのトークン検証エンドポイントが返すペイロード。
// メモリ上にのみ存在し、永続化しない。必要になるたびに検証から再構築する。
type TokenPayload struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

// Complete はペイロードの必須フィールドがすべて揃っているかを返す。
// いずれかが欠けたペイロードは未認証として扱う。
func (p *TokenPayload) Complete() bool {
	return p != nil && p.UserID != "" && p.Email != "" && p.Role.Valid()
}

// Credentials はログインフォームから送信される認証情報。
// 一時的な値であり、トークン取得後は保持しない。
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
