package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	"database/sql"
)

type Store struct {
	DB     *sql.DB
	RDB    *redis.Client
	Ctx    context.Context
	logger *slog.Logger
}

var _ UserStore = (*Store)(nil)
var _ MessageStore = (*Store)(nil)

func NewStore(ctx context.Context, pgConnStr, redisURL string, logger *slog.Logger) (*Store, error) {
	var db *sql.DB
	var err error

	// Retry Postgres a few times; docker-compose tends to start us first.
	for i := 0; i < 5; i++ {
		db, err = sql.Open("postgres", pgConnStr)
		if err == nil {
			err = db.Ping()
			if err == nil {
				logger.Info("PostgreSQL connection successful", "attempt", i+1)
				break
			}
		}
		logger.Warn("Waiting for PostgreSQL...", "attempt", i+1, "error", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL", "error", err)
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	rdb, err := InitRedis(redisURL)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		return nil, err
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to ping Redis", "error", err)
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Info("Connected to PostgreSQL and Redis")

	return &Store{
		DB:     db,
		RDB:    rdb,
		Ctx:    ctx,
		logger: logger,
	}, nil
}

func (s *Store) InitSchema() error {
	s.logger.Info("Initializing database schema")

	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username VARCHAR(50) UNIQUE NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			full_name VARCHAR(100) NOT NULL DEFAULT '',
			avatar_url TEXT,
			is_online BOOLEAN DEFAULT FALSE,
			last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);

		CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			sender_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			receiver_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			text TEXT NOT NULL DEFAULT '',
			image_url TEXT,
			is_edited BOOLEAN DEFAULT FALSE,
			edited_at TIMESTAMP,
			is_pinned BOOLEAN DEFAULT FALSE,
			pinned_at TIMESTAMP,
			is_read BOOLEAN DEFAULT FALSE,
			is_delivered BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT messages_body_check CHECK (text <> '' OR image_url IS NOT NULL)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_pair_created
			ON messages(sender_id, receiver_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver_id);
	`

	if _, err := s.DB.Exec(schema); err != nil {
		s.logger.Error("Failed to initialize schema", "error", err)
		return err
	}

	s.logger.Info("Database schema initialized")
	return nil
}

func (s *Store) Close() error {
	s.logger.Info("Closing store connections")

	var errs []error
	if err := s.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("postgres close error: %w", err))
	}
	if err := s.RDB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("redis close error: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing store: %v", errs)
	}
	return nil
}
