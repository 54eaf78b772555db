package duo

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	shardCount         = 16
	defaultCodeRetries = 25
	defaultRoomTTL     = 10 * time.Minute
)

type roomEntry struct {
	mu      sync.RWMutex
	room    *Room
	deleted bool
}

type storeShard struct {
	mu    sync.RWMutex
	rooms map[string]*roomEntry
}

// Store keeps live rooms in a sharded in-process table. Every mutating
// operation goes through Update, which serializes read-modify-write at room
// granularity; Snapshot returns a copy and never blocks behind a mutation
// longer than one lock hold.
type Store struct {
	shards      [shardCount]*storeShard
	ttl         time.Duration
	codeRetries int
	logger      zerolog.Logger
}

// NewStore creates a room store. ttl bounds how long a waiting room may sit
// idle before the sweeper reclaims it.
func NewStore(ttl time.Duration, codeRetries int, logger zerolog.Logger) *Store {
	if ttl <= 0 {
		ttl = defaultRoomTTL
	}
	if codeRetries <= 0 {
		codeRetries = defaultCodeRetries
	}
	s := &Store{
		ttl:         ttl,
		codeRetries: codeRetries,
		logger:      logger.With().Str("component", "duo_store").Logger(),
	}
	for i := range s.shards {
		s.shards[i] = &storeShard{rooms: make(map[string]*roomEntry)}
	}
	return s
}

func (s *Store) shardFor(code string) *storeShard {
	h := fnv.New32a()
	h.Write([]byte(code))
	return s.shards[h.Sum32()%shardCount]
}

// Create allocates a fresh room in waiting status under a newly generated
// 4-digit code. Collisions are retried a bounded number of times; the store
// fails closed with ErrCodeExhausted instead of looping forever.
func (s *Store) Create(hostID uuid.UUID, hostName string) (*Room, error) {
	now := time.Now()
	for attempt := 0; attempt < s.codeRetries; attempt++ {
		code := fmt.Sprintf("%04d", 1000+rand.Intn(9000))
		sh := s.shardFor(code)

		sh.mu.Lock()
		if _, exists := sh.rooms[code]; exists {
			sh.mu.Unlock()
			continue
		}
		room := &Room{
			Code:         code,
			HostID:       hostID,
			HostName:     hostName,
			Status:       StatusWaiting,
			HostAnswers:  make(map[string]Answer),
			GuestAnswers: make(map[string]Answer),
			CreatedAt:    now,
		}
		sh.rooms[code] = &roomEntry{room: room}
		sh.mu.Unlock()

		return room.Clone(), nil
	}
	return nil, ErrCodeExhausted
}

func (s *Store) lookup(code string) (*roomEntry, error) {
	sh := s.shardFor(code)
	sh.mu.RLock()
	entry, ok := sh.rooms[code]
	sh.mu.RUnlock()
	if !ok {
		return nil, ErrRoomNotFound
	}
	return entry, nil
}

// Snapshot returns a deep copy of the room's current state.
func (s *Store) Snapshot(code string) (*Room, error) {
	entry, err := s.lookup(code)
	if err != nil {
		return nil, err
	}
	entry.mu.RLock()
	defer entry.mu.RUnlock()
	if entry.deleted {
		return nil, ErrRoomNotFound
	}
	return entry.room.Clone(), nil
}

// Update applies fn to the room under its exclusive lock. If fn returns nil
// the mutation is committed and the room version incremented; a snapshot of
// the committed state is returned. If fn errors nothing is persisted.
func (s *Store) Update(code string, fn func(*Room) error) (*Room, error) {
	entry, err := s.lookup(code)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.deleted {
		return nil, ErrRoomNotFound
	}
	if err := fn(entry.room); err != nil {
		return nil, err
	}
	entry.room.Version++
	return entry.room.Clone(), nil
}

// Len reports the number of live rooms, used by tests and diagnostics.
func (s *Store) Len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.rooms)
		sh.mu.RUnlock()
	}
	return total
}

// Sweep removes waiting rooms idle past the TTL and returns how many were
// reclaimed. It takes the same per-room lock as mutators, so a sweep can
// never race a concurrent Join or Start on the same room.
func (s *Store) Sweep(now time.Time) int {
	swept := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		candidates := make(map[string]*roomEntry, len(sh.rooms))
		for code, entry := range sh.rooms {
			candidates[code] = entry
		}
		sh.mu.RUnlock()

		for code, entry := range candidates {
			entry.mu.Lock()
			expired := !entry.deleted &&
				entry.room.Status == StatusWaiting &&
				now.Sub(entry.room.CreatedAt) > s.ttl
			if expired {
				entry.deleted = true
			}
			entry.mu.Unlock()

			if expired {
				sh.mu.Lock()
				delete(sh.rooms, code)
				sh.mu.Unlock()
				swept++
				roomsSwept.Inc()
				s.logger.Info().Str("room_code", code).Msg("idle waiting room swept")
			}
		}
	}
	return swept
}

// RunSweeper periodically reclaims abandoned waiting rooms until ctx ends.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", interval).Dur("room_ttl", s.ttl).Msg("room sweeper started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := s.Sweep(time.Now()); n > 0 {
				s.logger.Info().Int("count", n).Msg("sweep removed idle rooms")
			}
		}
	}
}
