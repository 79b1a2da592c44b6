package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionStore keeps live session records in redis so tokens can be revoked.
// A token whose jti has no record is treated as logged out.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func sessionKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("session:%s", sessionID)
}

func (s *SessionStore) Create(ctx context.Context, sessionID, userID uuid.UUID, ttl time.Duration) error {
	return s.client.Set(ctx, sessionKey(sessionID), userID.String(), ttl).Err()
}

// Alive reports whether the session exists and belongs to the given user.
func (s *SessionStore) Alive(ctx context.Context, sessionID, userID uuid.UUID) (bool, error) {
	val, err := s.client.Get(ctx, sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val == userID.String(), nil
}

func (s *SessionStore) Revoke(ctx context.Context, sessionID uuid.UUID) error {
	return s.client.Del(ctx, sessionKey(sessionID)).Err()
}
