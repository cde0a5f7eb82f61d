package model

// EventStatus はイベントの審査・開催状態を表す。
type EventStatus string

const (
	EventStatusDraft     EventStatus = "DRAFT"
	EventStatusPending   EventStatus = "PENDING"
	EventStatusApproved  EventStatus = "APPROVED"
	EventStatusRejected  EventStatus = "REJECTED"
	EventStatusCancelled EventStatus = "CANCELLED"
	EventStatusCompleted EventStatus = "COMPLETED"
)

// TicketType はチケット種別を表す。
type TicketType struct {
	Name          string `json:"name"`
	Type          string `json:"type,omitempty"` // REGULAR, VIP, EARLY_BIRD 等
	Price         string `json:"price"`
	QuantityLimit int    `json:"quantityLimit"`
	SoldQuantity  int    `json:"soldQuantity,omitempty"`
	StartSaleTime string `json:"startSaleTime,omitempty"`
	EndSaleTime   string `json:"endSaleTime,omitempty"`
	Description   string `json:"description,omitempty"`
}

// EventSummary はイベント一覧での表示に必要な最小限のフィールドを持つ。
type EventSummary struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Status    EventStatus `json:"status"`
	StartTime string      `json:"startTime"`
	EndTime   string      `json:"endTime"`
	Organizer *Person     `json:"organizer,omitempty"`
	Category  *CategoryRef `json:"category,omitempty"`
}

// Event はイベント詳細を表す。
// Descriptionは主催者が入力したHTMLであり、配信前にサニタイズする。
type Event struct {
	ID          string       `json:"id"`
	CategoryID  int          `json:"categoryId,omitempty"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	BannerURL   string       `json:"bannerUrl,omitempty"`
	Location    string       `json:"location"`
	StartTime   string       `json:"startTime"`
	EndTime     string       `json:"endTime"`
	Status      EventStatus  `json:"status"`
	OrganizerID string       `json:"organizerId,omitempty"`
	Organizer   *Person      `json:"organizer,omitempty"`
	Category    *CategoryRef `json:"category,omitempty"`
	TicketTypes []TicketType `json:"ticketTypes,omitempty"`
	CreatedAt   string       `json:"createdAt,omitempty"`
	UpdatedAt   string       `json:"updatedAt,omitempty"`
}

// Person はイベントに紐づく人物（主催者、審査者）の表示情報。
type Person struct {
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email"`
}

// CategoryRef はイベントに埋め込まれるカテゴリ参照。
type CategoryRef struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// EventFilter はイベント一覧のフィルタ条件。
type EventFilter struct {
	Limit      int
	Offset     int
	Title      string
	Location   string
	Status     string
	CategoryID string
}

// CreateEventInput はイベント作成・更新の入力。
type CreateEventInput struct {
	CategoryID  int          `json:"categoryId"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Location    string       `json:"location"`
	StartTime   string       `json:"startTime"`
	EndTime     string       `json:"endTime"`
	TicketTypes []TicketType `json:"ticketTypes,omitempty"`
}

// Pagination は一覧レスポンスのページング情報。
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Total   int  `json:"total"`
	HasNext bool `json:"hasNext"`
	HasPrev bool `json:"hasPrev"`
}

// EventPage はページング付きのイベント一覧。
type EventPage struct {
	Events     []EventSummary `json:"data"`
	Pagination Pagination     `json:"pagination"`
}
