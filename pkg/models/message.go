package models

import (
	"time"
)

// MaxTextLength bounds the trimmed text of a direct message.
const MaxTextLength = 1000

type Message struct {
	ID          string     `json:"id" db:"id"`
	SenderID    string     `json:"sender_id" db:"sender_id"`
	ReceiverID  string     `json:"receiver_id" db:"receiver_id"`
	Text        string     `json:"text,omitempty" db:"text"`
	ImageURL    *string    `json:"image_url,omitempty" db:"image_url"`
	IsEdited    bool       `json:"is_edited" db:"is_edited"`
	EditedAt    *time.Time `json:"edited_at,omitempty" db:"edited_at"`
	IsPinned    bool       `json:"is_pinned" db:"is_pinned"`
	PinnedAt    *time.Time `json:"pinned_at,omitempty" db:"pinned_at"`
	IsRead      bool       `json:"is_read" db:"is_read"`
	IsDelivered bool       `json:"is_delivered" db:"is_delivered"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

type SendMessageRequest struct {
	ReceiverID string  `json:"receiver_id"`
	Text       string  `json:"text,omitempty"`
	ImageURL   *string `json:"image_url,omitempty"`
}

type EditMessageRequest struct {
	Text string `json:"text"`
}

// Pagination describes one page of a conversation's history.
type Pagination struct {
	CurrentPage   int  `json:"current_page"`
	TotalPages    int  `json:"total_pages"`
	TotalMessages int  `json:"total_messages"`
	HasNextPage   bool `json:"has_next_page"`
	HasPrevPage   bool `json:"has_prev_page"`
}

// MessagePage is the history response: messages oldest-first.
type MessagePage struct {
	Messages   []Message  `json:"messages"`
	Pagination Pagination `json:"pagination"`
}
