package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// SESSION TICKETS
// =============================================================================
//
// A ticket lets a dropped client reclaim its player slot without
// re-authenticating: the server hands one out on join, and the client presents
// it on the next connection attempt.

// Ticket binds a reconnect token to a player in a room.
type Ticket struct {
	UserID   string `json:"user_id"`
	RoomCode string `json:"room_code"`
	Name     string `json:"name"`
}

// Store persists tickets for the reconnect window.
type Store interface {
	Issue(ctx context.Context, t Ticket) (string, error)
	Resolve(ctx context.Context, ticketID string) (Ticket, bool)
	Revoke(ctx context.Context, ticketID string)
}

// RedisStore keeps tickets in Redis so reconnects survive a server restart
// and work across replicas.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{rdb: rdb, ttl: ttl, log: logger}
}

func (s *RedisStore) Issue(ctx context.Context, t Ticket) (string, error) {
	ticketID := uuid.New().String()
	payload, err := json.Marshal(t)
	if err != nil {
		s.log.Error("Error encoding session info", zap.Error(err))
		return "", err
	}
	if err := s.rdb.Set(ctx, "session:"+ticketID, payload, s.ttl).Err(); err != nil {
		s.log.Error("Error storing session info in Redis", zap.Error(err))
		return "", err
	}
	return ticketID, nil
}

func (s *RedisStore) Resolve(ctx context.Context, ticketID string) (Ticket, bool) {
	if ticketID == "" {
		return Ticket{}, false
	}
	payload, err := s.rdb.Get(ctx, "session:"+ticketID).Result()
	if err != nil {
		if err != redis.Nil {
			s.log.Error("Failed to retrieve session info", zap.Error(err))
		}
		return Ticket{}, false
	}
	var t Ticket
	if err := json.Unmarshal([]byte(payload), &t); err != nil {
		s.log.Error("Failed to decode session info", zap.Error(err))
		return Ticket{}, false
	}
	return t, true
}

func (s *RedisStore) Revoke(ctx context.Context, ticketID string) {
	if err := s.rdb.Del(ctx, "session:"+ticketID).Err(); err != nil {
		s.log.Warn("Failed to delete session info", zap.Error(err))
	}
}

// MemoryStore is the single-process fallback when no Redis address is
// configured.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	tickets map[string]memoryEntry
}

type memoryEntry struct {
	ticket    Ticket
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryStore{ttl: ttl, tickets: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Issue(_ context.Context, t Ticket) (string, error) {
	ticketID := uuid.New().String()
	s.mu.Lock()
	s.tickets[ticketID] = memoryEntry{ticket: t, expiresAt: time.Now().Add(s.ttl)}
	// Expired entries are reaped lazily on writes.
	for id, e := range s.tickets {
		if time.Now().After(e.expiresAt) {
			delete(s.tickets, id)
		}
	}
	s.mu.Unlock()
	return ticketID, nil
}

func (s *MemoryStore) Resolve(_ context.Context, ticketID string) (Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tickets[ticketID]
	if !ok || time.Now().After(e.expiresAt) {
		return Ticket{}, false
	}
	return e.ticket, true
}

func (s *MemoryStore) Revoke(_ context.Context, ticketID string) {
	s.mu.Lock()
	delete(s.tickets, ticketID)
	s.mu.Unlock()
}
