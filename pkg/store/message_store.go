package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kunalt17/echochat/pkg/models"
)

const messageColumns = `id, sender_id, receiver_id, text, image_url,
	is_edited, edited_at, is_pinned, pinned_at, is_read, is_delivered,
	created_at, updated_at`

func scanMessage(row interface{ Scan(...interface{}) error }, m *models.Message) error {
	return row.Scan(
		&m.ID, &m.SenderID, &m.ReceiverID, &m.Text, &m.ImageURL,
		&m.IsEdited, &m.EditedAt, &m.IsPinned, &m.PinnedAt,
		&m.IsRead, &m.IsDelivered, &m.CreatedAt, &m.UpdatedAt,
	)
}

// CreateMessage validates and persists a direct message. The returned
// message carries the server-assigned id and timestamp; no realtime event
// for it may exist before this returns.
func (s *Store) CreateMessage(senderID, receiverID, text string, imageURL *string) (*models.Message, error) {
	s.logger.Info("Saving message",
		"sender_id", senderID, "receiver_id", receiverID, "has_image", imageURL != nil)

	text, err := ValidateMessageBody(text, imageURL)
	if err != nil {
		return nil, err
	}

	// Receiver must resolve before the write.
	var exists bool
	err = s.DB.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, receiverID).Scan(&exists)
	if err != nil {
		s.logger.Error("Failed to check receiver", "error", err, "receiver_id", receiverID)
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: receiver %s", models.ErrNotFound, receiverID)
	}

	now := time.Now()
	message := &models.Message{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		ImageURL:   imageURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	query := `
		INSERT INTO messages (id, sender_id, receiver_id, text, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err = s.DB.QueryRow(
		query,
		message.ID, message.SenderID, message.ReceiverID,
		message.Text, message.ImageURL, message.CreatedAt, message.UpdatedAt,
	).Scan(&message.ID)
	if err != nil {
		s.logger.Error("Failed to insert message",
			"error", err, "sender_id", senderID, "receiver_id", receiverID)
		return nil, err
	}

	s.InvalidateHistoryCache(senderID, receiverID)

	s.logger.Info("Message saved", "message_id", message.ID, "sender_id", senderID)
	return message, nil
}

func (s *Store) GetMessage(messageID string) (*models.Message, error) {
	s.logger.Debug("Getting message", "message_id", messageID)

	message := &models.Message{}
	err := scanMessage(s.DB.QueryRow(
		`SELECT `+messageColumns+` FROM messages WHERE id = $1`, messageID), message)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: message %s", models.ErrNotFound, messageID)
	}
	if err != nil {
		s.logger.Error("Failed to get message", "error", err, "message_id", messageID)
		return nil, err
	}
	return message, nil
}

// EditMessage replaces the text of a message. Only the sender may edit.
func (s *Store) EditMessage(messageID, requesterID, text string) (*models.Message, error) {
	s.logger.Info("Editing message", "message_id", messageID, "requester_id", requesterID)

	message, err := s.GetMessage(messageID)
	if err != nil {
		return nil, err
	}
	if message.SenderID != requesterID {
		return nil, fmt.Errorf("%w: only the sender can edit a message", models.ErrForbidden)
	}

	text, err = ValidateMessageBody(text, message.ImageURL)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE messages
		SET text = $2, is_edited = TRUE, edited_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`

	if _, err := s.DB.Exec(query, messageID, text); err != nil {
		s.logger.Error("Failed to edit message", "error", err, "message_id", messageID)
		return nil, err
	}

	s.InvalidateHistoryCache(message.SenderID, message.ReceiverID)
	return s.GetMessage(messageID)
}

// DeleteMessage hard-removes a message. Only the sender may delete.
func (s *Store) DeleteMessage(messageID, requesterID string) error {
	s.logger.Warn("Deleting message", "message_id", messageID, "requester_id", requesterID)

	message, err := s.GetMessage(messageID)
	if err != nil {
		return err
	}
	if message.SenderID != requesterID {
		return fmt.Errorf("%w: only the sender can delete a message", models.ErrForbidden)
	}

	if _, err := s.DB.Exec(`DELETE FROM messages WHERE id = $1`, messageID); err != nil {
		s.logger.Error("Failed to delete message", "error", err, "message_id", messageID)
		return err
	}

	s.InvalidateHistoryCache(message.SenderID, message.ReceiverID)
	s.logger.Info("Message deleted", "message_id", messageID)
	return nil
}

// TogglePin flips the pinned flag. Either participant of the conversation
// may pin or unpin.
func (s *Store) TogglePin(messageID, requesterID string) (*models.Message, error) {
	s.logger.Info("Toggling pin", "message_id", messageID, "requester_id", requesterID)

	message, err := s.GetMessage(messageID)
	if err != nil {
		return nil, err
	}
	if message.SenderID != requesterID && message.ReceiverID != requesterID {
		return nil, fmt.Errorf("%w: only conversation participants can pin", models.ErrForbidden)
	}

	query := `
		UPDATE messages
		SET is_pinned = NOT is_pinned,
			pinned_at = CASE WHEN is_pinned THEN NULL ELSE CURRENT_TIMESTAMP END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`

	if _, err := s.DB.Exec(query, messageID); err != nil {
		s.logger.Error("Failed to toggle pin", "error", err, "message_id", messageID)
		return nil, err
	}

	s.InvalidateHistoryCache(message.SenderID, message.ReceiverID)
	return s.GetMessage(messageID)
}

// MarkRead sets the read flag. Only the receiver may mark a message read;
// the realtime read receipt is forwarded separately by the hub.
func (s *Store) MarkRead(messageID, requesterID string) (*models.Message, error) {
	s.logger.Debug("Marking message read", "message_id", messageID, "requester_id", requesterID)

	message, err := s.GetMessage(messageID)
	if err != nil {
		return nil, err
	}
	if message.ReceiverID != requesterID {
		return nil, fmt.Errorf("%w: only the receiver can mark a message read", models.ErrForbidden)
	}

	query := `
		UPDATE messages
		SET is_read = TRUE, is_delivered = TRUE, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`

	if _, err := s.DB.Exec(query, messageID); err != nil {
		s.logger.Error("Failed to mark message read", "error", err, "message_id", messageID)
		return nil, err
	}

	s.InvalidateHistoryCache(message.SenderID, message.ReceiverID)
	return s.GetMessage(messageID)
}

// ListBetween pages through the conversation between two identities.
// Internally newest-first, reversed to oldest-first for delivery.
func (s *Store) ListBetween(userA, userB string, page, limit int) (*models.MessagePage, error) {
	page, limit = NormalizePage(page, limit)
	s.logger.Debug("Listing messages", "user_a", userA, "user_b", userB, "page", page, "limit", limit)

	if page == 1 {
		if cached, err := s.CachedHistoryFirstPage(userA, userB, limit); err == nil && cached != nil {
			return cached, nil
		}
	}

	var total int
	err := s.DB.QueryRow(`
		SELECT COUNT(*) FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)`,
		userA, userB,
	).Scan(&total)
	if err != nil {
		s.logger.Error("Failed to count messages", "error", err)
		return nil, err
	}

	offset := (page - 1) * limit
	rows, err := s.DB.Query(`
		SELECT `+messageColumns+` FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`,
		userA, userB, limit, offset,
	)
	if err != nil {
		s.logger.Error("Failed to query messages", "error", err)
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var message models.Message
		if err := scanMessage(rows, &message); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	result := &models.MessagePage{
		Messages:   messages,
		Pagination: NewPagination(page, limit, total),
	}

	if page == 1 {
		go s.CacheHistoryFirstPage(userA, userB, limit, result)
	}
	return result, nil
}

func (s *Store) ListPinned(userA, userB string) ([]models.Message, error) {
	s.logger.Debug("Listing pinned messages", "user_a", userA, "user_b", userB)

	rows, err := s.DB.Query(`
		SELECT `+messageColumns+` FROM messages
		WHERE is_pinned = TRUE
		  AND ((sender_id = $1 AND receiver_id = $2)
		    OR (sender_id = $2 AND receiver_id = $1))
		ORDER BY created_at ASC`,
		userA, userB,
	)
	if err != nil {
		s.logger.Error("Failed to query pinned messages", "error", err)
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var message models.Message
		if err := scanMessage(rows, &message); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, rows.Err()
}

// ListConversations returns the distinct counterpart identities over all
// messages involving the user, ordered by username.
func (s *Store) ListConversations(userID string) ([]models.User, error) {
	s.logger.Debug("Listing conversations", "user_id", userID)

	rows, err := s.DB.Query(`
		SELECT `+userColumns+` FROM users
		WHERE id IN (
			SELECT CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END
			FROM messages
			WHERE sender_id = $1 OR receiver_id = $1
			GROUP BY 1
		)
		ORDER BY username`,
		userID,
	)
	if err != nil {
		s.logger.Error("Failed to list conversations", "error", err, "user_id", userID)
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := scanUser(rows, &user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
