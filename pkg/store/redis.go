package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/kunalt17/echochat/pkg/models"
)

func InitRedis(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opt.PoolSize = 100
	opt.MinIdleConns = 10
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	return redis.NewClient(opt), nil
}

// Redis cache keys
const onlineSetKey = "presence:online"

func userPresenceKey(userID string) string {
	return fmt.Sprintf("presence:%s", userID)
}

func historyKey(userA, userB string) string {
	// Unordered pair: same key for both directions.
	if userB < userA {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("history:%s:%s", userA, userB)
}

// CacheOnline mirrors the presence registry's online set in Redis so other
// tooling can read it without touching the process.
func (s *Store) CacheOnline(userID string, online bool) error {
	if online {
		return s.RDB.SAdd(s.Ctx, onlineSetKey, userID).Err()
	}
	return s.RDB.SRem(s.Ctx, onlineSetKey, userID).Err()
}

func (s *Store) CachedOnlineUsers() ([]string, error) {
	return s.RDB.SMembers(s.Ctx, onlineSetKey).Result()
}

func (s *Store) CacheUserPresence(userID string, online bool, lastSeen time.Time) error {
	data, err := json.Marshal(map[string]interface{}{
		"user_id":   userID,
		"is_online": online,
		"last_seen": lastSeen,
	})
	if err != nil {
		return err
	}
	return s.RDB.Set(s.Ctx, userPresenceKey(userID), data, 5*time.Minute).Err()
}

// cachedHistory records the limit the page was computed under. Pagination
// metadata depends on the limit, so a request with a different limit must
// miss rather than be served a page sliced for another size.
type cachedHistory struct {
	Limit int                 `json:"limit"`
	Page  *models.MessagePage `json:"page"`
}

// CacheHistoryFirstPage stores the first page of a conversation; it is the
// hot path when a client reselects a conversation after reconnect.
func (s *Store) CacheHistoryFirstPage(userA, userB string, limit int, page *models.MessagePage) error {
	data, err := json.Marshal(cachedHistory{Limit: limit, Page: page})
	if err != nil {
		return err
	}
	return s.RDB.Set(s.Ctx, historyKey(userA, userB), data, 5*time.Minute).Err()
}

// CachedHistoryFirstPage returns the cached first page, or nil when there is
// no entry or the entry was computed under a different limit.
func (s *Store) CachedHistoryFirstPage(userA, userB string, limit int) (*models.MessagePage, error) {
	data, err := s.RDB.Get(s.Ctx, historyKey(userA, userB)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var entry cachedHistory
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	if entry.Limit != limit || entry.Page == nil {
		return nil, nil
	}
	return entry.Page, nil
}

func (s *Store) InvalidateHistoryCache(userA, userB string) {
	if err := s.RDB.Del(s.Ctx, historyKey(userA, userB)).Err(); err != nil {
		s.logger.Warn("Failed to invalidate history cache",
			"key", historyKey(userA, userB), "error", err)
	}
}
