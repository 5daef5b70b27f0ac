package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore guarda los jti de sesiones vivas y permite revocarlos,
// individualmente o por usuario (cascada al borrar la cuenta).
type SessionStore interface {
	Store(jti, userID string, ttl time.Duration) error
	Exists(jti string) (bool, error)
	Revoke(jti string) error
	RevokeUser(userID string) error
}

type memorySession struct {
	userID    string
	expiresAt time.Time
}

type memorySessionStore struct {
	mu     sync.Mutex
	items  map[string]memorySession
	byUser map[string]map[string]struct{}
}

func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{
		items:  make(map[string]memorySession),
		byUser: make(map[string]map[string]struct{}),
	}
}

func (s *memorySessionStore) Store(jti, userID string, ttl time.Duration) error {
	if strings.TrimSpace(jti) == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[jti] = memorySession{userID: userID, expiresAt: time.Now().UTC().Add(ttl)}
	if userID != "" {
		if s.byUser[userID] == nil {
			s.byUser[userID] = make(map[string]struct{})
		}
		s.byUser[userID][jti] = struct{}{}
	}
	return nil
}

func (s *memorySessionStore) Exists(jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.items[jti]
	if !ok {
		return false, nil
	}
	if time.Now().UTC().After(sess.expiresAt) {
		s.remove(jti, sess.userID)
		return false, nil
	}
	return true, nil
}

func (s *memorySessionStore) Revoke(jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.items[jti]; ok {
		s.remove(jti, sess.userID)
	}
	return nil
}

func (s *memorySessionStore) RevokeUser(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for jti := range s.byUser[userID] {
		delete(s.items, jti)
	}
	delete(s.byUser, userID)
	return nil
}

func (s *memorySessionStore) remove(jti, userID string) {
	delete(s.items, jti)
	if set, ok := s.byUser[userID]; ok {
		delete(set, jti)
		if len(set) == 0 {
			delete(s.byUser, userID)
		}
	}
}

type redisSessionStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionStore permite compartir sesiones entre procesos.
func NewRedisSessionStore(client *redis.Client) SessionStore {
	if client == nil {
		return nil
	}
	return &redisSessionStore{
		client: client,
		prefix: "auth:session:",
	}
}

func (s *redisSessionStore) Store(jti, userID string, ttl time.Duration) error {
	if strings.TrimSpace(jti) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := s.client.Set(ctx, s.prefix+jti, userID, ttl).Err(); err != nil {
		return err
	}
	if userID != "" {
		if err := s.client.SAdd(ctx, s.userKey(userID), jti).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (s *redisSessionStore) Exists(jti string) (bool, error) {
	if strings.TrimSpace(jti) == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	n, err := s.client.Exists(ctx, s.prefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *redisSessionStore) Revoke(jti string) error {
	if strings.TrimSpace(jti) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	return s.client.Del(ctx, s.prefix+jti).Err()
}

func (s *redisSessionStore) RevokeUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	jtis, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return err
	}
	for _, jti := range jtis {
		if err := s.client.Del(ctx, s.prefix+jti).Err(); err != nil {
			return err
		}
	}
	return s.client.Del(ctx, s.userKey(userID)).Err()
}

func (s *redisSessionStore) userKey(userID string) string {
	return s.prefix + "user:" + userID
}
