package app

import (
	"math/rand"
	"sync"
	"time"

	"red-herring-service/internal/domain"
)

// Room is the in-process handle of one room. All commands for a room are
// serialised by its mutex; different rooms never share a lock.
type Room struct {
	id          string
	now         func() time.Time
	rnd         Randomizer
	mu          sync.Mutex
	state       domain.RoomState
	lastActive  time.Time
	subscribers map[chan domain.RoomState]struct{}
}

// NewRoom creates an empty lobby drawing from questions.
func NewRoom(id, deck string, questions []domain.Question) *Room {
	return NewRoomWithRand(id, deck, questions, rand.New(rand.NewSource(time.Now().UnixNano())), time.Now)
}

// NewRoomWithRand is used by tests that need deterministic draws and timestamps.
func NewRoomWithRand(id, deck string, questions []domain.Question, rnd Randomizer, now func() time.Time) *Room {
	return newRoom(domain.NewRoomState(id, deck, questions, now()), rnd, now)
}

// RestoreRoom rebuilds a room handle from a persisted snapshot.
func RestoreRoom(state domain.RoomState) *Room {
	return newRoom(state.Clone(), rand.New(rand.NewSource(time.Now().UnixNano())), time.Now)
}

func newRoom(state domain.RoomState, rnd Randomizer, now func() time.Time) *Room {
	return &Room{
		id:          state.RoomID,
		now:         now,
		rnd:         rnd,
		state:       state,
		lastActive:  now(),
		subscribers: make(map[chan domain.RoomState]struct{}),
	}
}

// ID returns the room code.
func (r *Room) ID() string {
	return r.id
}

// Snapshot returns a deep copy of the current state.
func (r *Room) Snapshot() domain.RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone()
}

// LastActive reports when the room last accepted a command.
func (r *Room) LastActive() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActive
}

// apply runs handler against a copy of the state and commits it only on success.
func (r *Room) apply(handler func(st *domain.RoomState, rnd Randomizer, now time.Time) ([]string, error)) (domain.RoomState, []string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	next := r.state.Clone()
	notes, err := handler(&next, r.rnd, now)
	if err != nil {
		return r.state.Clone(), nil, err
	}
	next.UpdatedAt = now
	next.Version++
	r.state = next
	r.lastActive = now
	r.broadcastLocked()
	return r.state.Clone(), notes, nil
}

func (r *Room) join(playerID, token, name string) (domain.Player, domain.RoomState, []string, error) {
	var player domain.Player
	state, notes, err := r.apply(func(st *domain.RoomState, _ Randomizer, now time.Time) ([]string, error) {
		p, notes, err := joinRoom(st, playerID, token, name, now)
		player = p
		return notes, err
	})
	return player, state, notes, err
}

func (r *Room) startGame(actorID string) (domain.RoomState, []string, error) {
	return r.apply(func(st *domain.RoomState, rnd Randomizer, _ time.Time) ([]string, error) {
		return startGame(st, actorID, rnd)
	})
}

func (r *Room) submitAnswer(actorID, answer string) (domain.RoomState, []string, error) {
	return r.apply(func(st *domain.RoomState, _ Randomizer, _ time.Time) ([]string, error) {
		return submitAnswer(st, actorID, answer)
	})
}

func (r *Room) guessAnswer(actorID, targetID string, guessedIsRedFish bool) (domain.RoomState, []string, error) {
	return r.apply(func(st *domain.RoomState, _ Randomizer, _ time.Time) ([]string, error) {
		return guessAnswer(st, actorID, targetID, guessedIsRedFish)
	})
}

func (r *Room) endGuessing(actorID string) (domain.RoomState, []string, error) {
	return r.apply(func(st *domain.RoomState, rnd Randomizer, _ time.Time) ([]string, error) {
		return endGuessing(st, actorID, rnd)
	})
}

func (r *Room) endGame(actorID string) (domain.RoomState, []string, error) {
	return r.apply(func(st *domain.RoomState, _ Randomizer, _ time.Time) ([]string, error) {
		return endGame(st, actorID)
	})
}

// subscribe returns a channel that first receives the current snapshot and
// then every committed state. The cancel func must be called to release it.
func (r *Room) subscribe() (<-chan domain.RoomState, func()) {
	ch := make(chan domain.RoomState, 8)

	r.mu.Lock()
	r.subscribers[ch] = struct{}{}
	ch <- r.state.Clone()
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

// Close ends every subscription. Stores call it when they drop the handle.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch := range r.subscribers {
		delete(r.subscribers, ch)
		close(ch)
	}
}

func (r *Room) broadcastLocked() {
	for ch := range r.subscribers {
		snapshot := r.state.Clone()
		select {
		case ch <- snapshot:
		default:
			// Slow reader: replace the oldest pending update with the latest one.
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}
