package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kunalt17/echochat/pkg/models"
)

func (s *Store) CreateUser(user *models.User) error {
	s.logger.Info("Creating user", "username", user.Username, "email", user.Email)

	user.ID = uuid.New().String()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	user.LastSeen = user.CreatedAt

	query := `
		INSERT INTO users (id, username, email, password_hash, full_name, last_seen, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := s.DB.QueryRow(
		query,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.FullName, user.LastSeen, user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)

	if err != nil {
		s.logger.Error("Failed to create user", "error", err, "username", user.Username)
		return err
	}

	s.logger.Info("User created", "user_id", user.ID, "username", user.Username)
	return nil
}

const userColumns = `id, username, email, password_hash, full_name, avatar_url, is_online, last_seen, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }, user *models.User) error {
	return row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.FullName, &user.AvatarURL, &user.IsOnline,
		&user.LastSeen, &user.CreatedAt, &user.UpdatedAt,
	)
}

func (s *Store) GetUserByID(userID string) (*models.User, error) {
	s.logger.Debug("Getting user by ID", "user_id", userID)

	user := &models.User{}
	err := scanUser(s.DB.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE id = $1`, userID), user)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user %s", models.ErrNotFound, userID)
	}
	if err != nil {
		s.logger.Error("Failed to get user by ID", "error", err, "user_id", userID)
		return nil, err
	}
	return user, nil
}

func (s *Store) GetUserByUsername(username string) (*models.User, error) {
	s.logger.Debug("Getting user by username", "username", username)

	user := &models.User{}
	err := scanUser(s.DB.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username), user)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user %s", models.ErrNotFound, username)
	}
	if err != nil {
		s.logger.Error("Failed to get user by username", "error", err, "username", username)
		return nil, err
	}
	return user, nil
}

func (s *Store) ListUsers(exceptID string) ([]models.User, error) {
	s.logger.Debug("Listing users", "except", exceptID)

	rows, err := s.DB.Query(
		`SELECT `+userColumns+` FROM users WHERE id <> $1 ORDER BY username`, exceptID)
	if err != nil {
		s.logger.Error("Failed to list users", "error", err)
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

func (s *Store) UpdateProfile(userID string, updates *models.ProfileUpdateRequest) (*models.User, error) {
	s.logger.Info("Updating profile", "user_id", userID)

	query := `
		UPDATE users
		SET full_name = COALESCE($2, full_name),
			avatar_url = COALESCE($3, avatar_url),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING id`

	err := s.DB.QueryRow(query, userID, updates.FullName, updates.AvatarURL).Scan(&userID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user %s", models.ErrNotFound, userID)
	}
	if err != nil {
		s.logger.Error("Failed to update profile", "error", err, "user_id", userID)
		return nil, err
	}

	return s.GetUserByID(userID)
}

// SetOnline writes the cached presence flag. The presence registry in the
// hub is authoritative for the lifetime of the process; this is the durable
// echo of it.
func (s *Store) SetOnline(userID string, online bool) error {
	s.logger.Debug("Updating cached presence", "user_id", userID, "online", online)

	now := time.Now()
	_, err := s.DB.Exec(
		`UPDATE users SET is_online = $2, last_seen = $3 WHERE id = $1`,
		userID, online, now,
	)
	if err != nil {
		s.logger.Error("Failed to update cached presence", "error", err, "user_id", userID)
		return err
	}

	if err := s.CacheOnline(userID, online); err != nil {
		s.logger.Warn("Failed to mirror presence in Redis", "error", err, "user_id", userID)
	}
	if err := s.CacheUserPresence(userID, online, now); err != nil {
		s.logger.Warn("Failed to cache presence entry", "error", err, "user_id", userID)
	}
	return nil
}
