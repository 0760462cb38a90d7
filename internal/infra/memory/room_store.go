package memory

import (
	"context"
	"sync"
	"time"

	"red-herring-service/internal/app"
	"red-herring-service/internal/domain"
)

// RoomStore is an in-memory implementation of app.RoomRepository.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*app.Room
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[string]*app.Room),
	}
}

func (s *RoomStore) Insert(_ context.Context, room *app.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.ID()]; ok {
		return domain.ErrRoomExists
	}
	s.rooms[room.ID()] = room
	return nil
}

func (s *RoomStore) Get(_ context.Context, roomID string) (*app.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

// Save is a no-op: the room handle already is the state.
func (s *RoomStore) Save(context.Context, domain.RoomState) error {
	return nil
}

func (s *RoomStore) DeleteIdle(_ context.Context, cutoff time.Time) []*app.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	var dropped []*app.Room
	for id, room := range s.rooms {
		if room.LastActive().Before(cutoff) {
			delete(s.rooms, id)
			dropped = append(dropped, room)
		}
	}
	return dropped
}

// Len reports how many rooms are held.
func (s *RoomStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}
