package model

// Category はイベントカテゴリを表す。
type Category struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CategoryInput はカテゴリ作成・更新の入力。
type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CategoryPage はページング付きのカテゴリ一覧。
type CategoryPage struct {
	Categories []Category `json:"items"`
	Total      int        `json:"total"`
	Limit      int        `json:"limit"`
	Offset     int        `json:"offset"`
}
