package store

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kunalt17/echochat/pkg/models"
)

// DefaultPageLimit and MaxPageLimit bound conversation-history pagination.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 50
)

// UserStore is the identity side of the durable store.
type UserStore interface {
	CreateUser(user *models.User) error
	GetUserByID(userID string) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	ListUsers(exceptID string) ([]models.User, error)
	UpdateProfile(userID string, updates *models.ProfileUpdateRequest) (*models.User, error)
	SetOnline(userID string, online bool) error
}

// MessageStore is the single authority for message existence. Every write
// here completes before any realtime notification is allowed to reference
// the message.
type MessageStore interface {
	CreateMessage(senderID, receiverID, text string, imageURL *string) (*models.Message, error)
	GetMessage(messageID string) (*models.Message, error)
	EditMessage(messageID, requesterID, text string) (*models.Message, error)
	DeleteMessage(messageID, requesterID string) error
	TogglePin(messageID, requesterID string) (*models.Message, error)
	MarkRead(messageID, requesterID string) (*models.Message, error)
	ListBetween(userA, userB string, page, limit int) (*models.MessagePage, error)
	ListPinned(userA, userB string) ([]models.Message, error)
	ListConversations(userID string) ([]models.User, error)
}

// ValidateMessageBody trims the text and enforces the "at least one of
// text/image, text at most MaxTextLength characters" invariant. Returns the
// trimmed text.
func ValidateMessageBody(text string, imageURL *string) (string, error) {
	text = strings.TrimSpace(text)
	hasImage := imageURL != nil && strings.TrimSpace(*imageURL) != ""

	if text == "" && !hasImage {
		return "", fmt.Errorf("%w: message requires text or an image", models.ErrValidation)
	}
	if utf8.RuneCountInString(text) > models.MaxTextLength {
		return "", fmt.Errorf("%w: text exceeds %d characters", models.ErrValidation, models.MaxTextLength)
	}
	return text, nil
}

// NormalizePage clamps page/limit to sane bounds.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

// NewPagination computes page metadata for a total of `total` messages.
func NewPagination(page, limit, total int) models.Pagination {
	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return models.Pagination{
		CurrentPage:   page,
		TotalPages:    totalPages,
		TotalMessages: total,
		HasNextPage:   page < totalPages,
		HasPrevPage:   page > 1 && total > 0,
	}
}
