// Package memory provides an in-memory implementation of the store
// interfaces. It backs the test suite and local development without
// Postgres/Redis.
package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kunalt17/echochat/pkg/models"
	"github.com/kunalt17/echochat/pkg/store"
)

type Store struct {
	mu       sync.RWMutex
	users    map[string]*models.User    // userID -> user
	byName   map[string]string          // username -> userID
	messages map[string]*models.Message // messageID -> message
}

var _ store.UserStore = (*Store)(nil)
var _ store.MessageStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		users:    make(map[string]*models.User),
		byName:   make(map[string]string),
		messages: make(map[string]*models.Message),
	}
}

func (s *Store) CreateUser(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byName[user.Username]; taken {
		return fmt.Errorf("%w: username %q already exists", models.ErrValidation, user.Username)
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.LastSeen = now

	clone := *user
	s.users[user.ID] = &clone
	s.byName[user.Username] = user.ID
	return nil
}

func (s *Store) GetUserByID(userID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", models.ErrNotFound, userID)
	}
	clone := *user
	return &clone, nil
}

func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[username]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", models.ErrNotFound, username)
	}
	clone := *s.users[id]
	return &clone, nil
}

func (s *Store) ListUsers(exceptID string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []models.User
	for id, user := range s.users {
		if id == exceptID {
			continue
		}
		users = append(users, *user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (s *Store) UpdateProfile(userID string, updates *models.ProfileUpdateRequest) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", models.ErrNotFound, userID)
	}
	if updates.FullName != nil {
		user.FullName = *updates.FullName
	}
	if updates.AvatarURL != nil {
		user.AvatarURL = updates.AvatarURL
	}
	user.UpdatedAt = time.Now()

	clone := *user
	return &clone, nil
}

func (s *Store) SetOnline(userID string, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("%w: user %s", models.ErrNotFound, userID)
	}
	user.IsOnline = online
	user.LastSeen = time.Now()
	return nil
}

func (s *Store) CreateMessage(senderID, receiverID, text string, imageURL *string) (*models.Message, error) {
	text, err := store.ValidateMessageBody(text, imageURL)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[receiverID]; !ok {
		return nil, fmt.Errorf("%w: receiver %s", models.ErrNotFound, receiverID)
	}

	now := time.Now()
	message := &models.Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		ImageURL:   imageURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.messages[message.ID] = message

	clone := *message
	return &clone, nil
}

func (s *Store) GetMessage(messageID string) (*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	message, ok := s.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("%w: message %s", models.ErrNotFound, messageID)
	}
	clone := *message
	return &clone, nil
}

func (s *Store) EditMessage(messageID, requesterID, text string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	message, ok := s.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("%w: message %s", models.ErrNotFound, messageID)
	}
	if message.SenderID != requesterID {
		return nil, fmt.Errorf("%w: only the sender can edit a message", models.ErrForbidden)
	}

	text, err := store.ValidateMessageBody(text, message.ImageURL)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	message.Text = text
	message.IsEdited = true
	message.EditedAt = &now
	message.UpdatedAt = now

	clone := *message
	return &clone, nil
}

func (s *Store) DeleteMessage(messageID, requesterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	message, ok := s.messages[messageID]
	if !ok {
		return fmt.Errorf("%w: message %s", models.ErrNotFound, messageID)
	}
	if message.SenderID != requesterID {
		return fmt.Errorf("%w: only the sender can delete a message", models.ErrForbidden)
	}

	delete(s.messages, messageID)
	return nil
}

func (s *Store) TogglePin(messageID, requesterID string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	message, ok := s.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("%w: message %s", models.ErrNotFound, messageID)
	}
	if message.SenderID != requesterID && message.ReceiverID != requesterID {
		return nil, fmt.Errorf("%w: only conversation participants can pin", models.ErrForbidden)
	}

	now := time.Now()
	message.IsPinned = !message.IsPinned
	if message.IsPinned {
		message.PinnedAt = &now
	} else {
		message.PinnedAt = nil
	}
	message.UpdatedAt = now

	clone := *message
	return &clone, nil
}

func (s *Store) MarkRead(messageID, requesterID string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	message, ok := s.messages[messageID]
	if !ok {
		return nil, fmt.Errorf("%w: message %s", models.ErrNotFound, messageID)
	}
	if message.ReceiverID != requesterID {
		return nil, fmt.Errorf("%w: only the receiver can mark a message read", models.ErrForbidden)
	}

	message.IsRead = true
	message.IsDelivered = true
	message.UpdatedAt = time.Now()

	clone := *message
	return &clone, nil
}

func (s *Store) ListBetween(userA, userB string, page, limit int) (*models.MessagePage, error) {
	page, limit = store.NormalizePage(page, limit)

	s.mu.RLock()
	all := s.betweenLocked(userA, userB)
	s.mu.RUnlock()

	total := len(all)

	// Newest-first slice, as the SQL query would produce.
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	offset := (page - 1) * limit
	var pageMsgs []models.Message
	if offset < total {
		end := offset + limit
		if end > total {
			end = total
		}
		pageMsgs = all[offset:end]
	}

	// Reverse to chronological order.
	for i, j := 0, len(pageMsgs)-1; i < j; i, j = i+1, j-1 {
		pageMsgs[i], pageMsgs[j] = pageMsgs[j], pageMsgs[i]
	}

	return &models.MessagePage{
		Messages:   pageMsgs,
		Pagination: store.NewPagination(page, limit, total),
	}, nil
}

func (s *Store) ListPinned(userA, userB string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pinned []models.Message
	for _, message := range s.betweenLocked(userA, userB) {
		if message.IsPinned {
			pinned = append(pinned, message)
		}
	}
	sort.Slice(pinned, func(i, j int) bool { return pinned[i].CreatedAt.Before(pinned[j].CreatedAt) })
	return pinned, nil
}

func (s *Store) ListConversations(userID string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var users []models.User
	for _, message := range s.messages {
		var counterpart string
		switch userID {
		case message.SenderID:
			counterpart = message.ReceiverID
		case message.ReceiverID:
			counterpart = message.SenderID
		default:
			continue
		}
		if seen[counterpart] {
			continue
		}
		seen[counterpart] = true
		if user, ok := s.users[counterpart]; ok {
			users = append(users, *user)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		return strings.ToLower(users[i].Username) < strings.ToLower(users[j].Username)
	})
	return users, nil
}

func (s *Store) betweenLocked(userA, userB string) []models.Message {
	var result []models.Message
	for _, message := range s.messages {
		if (message.SenderID == userA && message.ReceiverID == userB) ||
			(message.SenderID == userB && message.ReceiverID == userA) {
			result = append(result, *message)
		}
	}
	return result
}
