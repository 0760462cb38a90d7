package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"red-herring-service/internal/app"
	"red-herring-service/internal/domain"
)

// insertScript creates the room hash and its owner key together, or nothing.
// KEYS[1] room hash, KEYS[2] owner key.
// ARGV[1] state json, ARGV[2] version, ARGV[3] instance, ARGV[4] ttl ms.
var insertScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], 'state', ARGV[1], 'version', ARGV[2])
redis.call('SET', KEYS[2], ARGV[3])
if tonumber(ARGV[4]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[4])
  redis.call('PEXPIRE', KEYS[2], ARGV[4])
end
return 1
`)

// claimScript takes or renews ownership of a room.
// Returns -1 when the room does not exist, 0 when another instance owns it.
// KEYS[1] room hash, KEYS[2] owner key. ARGV[1] instance, ARGV[2] ttl ms.
var claimScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
local owner = redis.call('GET', KEYS[2])
if owner and owner ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[2], ARGV[1])
if tonumber(ARGV[2]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
  redis.call('PEXPIRE', KEYS[2], ARGV[2])
end
return 1
`)

// saveScript writes a snapshot only for the owning instance and only when it
// is newer than the stored one, so commands persisting out of order never
// roll a room back. Returns -1 when the caller no longer owns the room.
// KEYS[1] room hash, KEYS[2] owner key.
// ARGV[1] version, ARGV[2] state json, ARGV[3] ttl ms, ARGV[4] instance.
var saveScript = redis.NewScript(`
if redis.call('GET', KEYS[2]) ~= ARGV[4] then
  return -1
end
local current = tonumber(redis.call('HGET', KEYS[1], 'version') or '-1')
if tonumber(ARGV[1]) <= current then
  return 0
end
redis.call('HSET', KEYS[1], 'state', ARGV[2], 'version', ARGV[1])
if tonumber(ARGV[3]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[3])
  redis.call('PEXPIRE', KEYS[2], ARGV[3])
end
return 1
`)

// releaseScript deletes a room only if the caller still owns it.
// KEYS[1] room hash, KEYS[2] owner key. ARGV[1] instance.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[2]) ~= ARGV[1] then
  return 0
end
redis.call('DEL', KEYS[1], KEYS[2])
return 1
`)

// RoomStore is a Redis-backed implementation of app.RoomRepository.
// Notes:
//   - Every room has exactly one owning instance, recorded in room:{id}:owner.
//     Only the owner keeps a live handle and only the owner's saves land;
//     other instances get domain.ErrRoomUnavailable.
//   - Every committed snapshot is written to room:{id} (fields state and
//     version) so the owner resumes the room after a restart.
//   - The owner key shares the room's ttl, so ownership lasts as long as the
//     room does.
type RoomStore struct {
	client   *redis.Client
	ttl      time.Duration
	instance string
	mu       sync.RWMutex
	rooms    map[string]*app.Room
}

// NewRoomStore returns a store owning rooms as instance. An empty instance
// gets a random id, which can never resume rooms after a restart.
func NewRoomStore(client *redis.Client, ttl time.Duration, instance string) *RoomStore {
	if instance == "" {
		instance = uuid.NewString()
	}
	return &RoomStore{
		client:   client,
		ttl:      ttl,
		instance: instance,
		rooms:    make(map[string]*app.Room),
	}
}

// Instance reports the owner id this store claims rooms with.
func (s *RoomStore) Instance() string {
	return s.instance
}

func (s *RoomStore) Insert(ctx context.Context, room *app.Room) error {
	state := room.Snapshot()
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode room %s: %w", room.ID(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.ID()]; ok {
		return domain.ErrRoomExists
	}
	created, err := insertScript.Run(ctx, s.client, s.keys(room.ID()), raw, state.Version, s.instance, s.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("store room %s: %w", room.ID(), err)
	}
	if created == 0 {
		return domain.ErrRoomExists
	}
	s.rooms[room.ID()] = room
	return nil
}

// Get claims the room for this instance and returns its handle, restoring it
// from Redis after a restart.
func (s *RoomStore) Get(ctx context.Context, roomID string) (*app.Room, error) {
	claimed, err := claimScript.Run(ctx, s.client, s.keys(roomID), s.instance, s.ttl.Milliseconds()).Int()
	if err != nil {
		return nil, fmt.Errorf("claim room %s: %w", roomID, err)
	}
	switch claimed {
	case -1:
		s.forget(roomID)
		return nil, domain.ErrRoomNotFound
	case 0:
		s.forget(roomID)
		return nil, domain.ErrRoomUnavailable
	}

	s.mu.RLock()
	room, ok := s.rooms[roomID]
	s.mu.RUnlock()
	if ok {
		return room, nil
	}

	state, err := s.load(ctx, roomID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[roomID]; ok {
		return room, nil
	}
	room = app.RestoreRoom(state)
	s.rooms[roomID] = room
	log.Info().Str("room", roomID).Str("instance", s.instance).Int64("version", state.Version).Msg("room restored from redis")
	return room, nil
}

// Save writes a committed snapshot. It fails with domain.ErrRoomUnavailable
// when another instance has taken the room over; the local handle is dropped
// so no further commands run against it.
func (s *RoomStore) Save(ctx context.Context, state domain.RoomState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode room %s: %w", state.RoomID, err)
	}
	saved, err := saveScript.Run(ctx, s.client, s.keys(state.RoomID), state.Version, raw, s.ttl.Milliseconds(), s.instance).Int()
	if err != nil {
		return fmt.Errorf("save room %s: %w", state.RoomID, err)
	}
	if saved == -1 {
		s.forget(state.RoomID)
		return fmt.Errorf("save room %s version %d: %w", state.RoomID, state.Version, domain.ErrRoomUnavailable)
	}
	return nil
}

func (s *RoomStore) DeleteIdle(ctx context.Context, cutoff time.Time) []*app.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	var dropped []*app.Room
	for id, room := range s.rooms {
		if !room.LastActive().Before(cutoff) {
			continue
		}
		delete(s.rooms, id)
		dropped = append(dropped, room)
		if err := releaseScript.Run(ctx, s.client, s.keys(id), s.instance).Err(); err != nil {
			log.Warn().Err(err).Str("room", id).Msg("delete room snapshot")
		}
	}
	return dropped
}

// forget drops the local handle of a room this instance no longer owns.
func (s *RoomStore) forget(roomID string) {
	s.mu.Lock()
	room, ok := s.rooms[roomID]
	delete(s.rooms, roomID)
	s.mu.Unlock()
	if ok {
		log.Warn().Str("room", roomID).Str("instance", s.instance).Msg("room ownership lost")
		room.Close()
	}
}

func (s *RoomStore) load(ctx context.Context, roomID string) (domain.RoomState, error) {
	raw, err := s.client.HGet(ctx, s.key(roomID), "state").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.RoomState{}, domain.ErrRoomNotFound
		}
		return domain.RoomState{}, fmt.Errorf("load room %s: %w", roomID, err)
	}
	var state domain.RoomState
	if err := json.Unmarshal(raw, &state); err != nil {
		return domain.RoomState{}, fmt.Errorf("decode room %s: %w", roomID, err)
	}
	return state, nil
}

func (s *RoomStore) key(roomID string) string {
	return "room:" + roomID
}

func (s *RoomStore) keys(roomID string) []string {
	return []string{s.key(roomID), s.key(roomID) + ":owner"}
}
