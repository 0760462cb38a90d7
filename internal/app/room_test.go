package app

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"red-herring-service/internal/domain"
)

func newTestRoom(t *testing.T, names ...string) *Room {
	t.Helper()
	room := NewRoomWithRand("ROOM01", domain.DefaultDeck, domain.ClassicQuestions(), rand.New(rand.NewSource(7)), func() time.Time { return epoch })
	for i, name := range names {
		_, _, _, err := room.join(fmt.Sprintf("p%d", i), fmt.Sprintf("token-p%d", i), name)
		require.NoError(t, err)
	}
	return room
}

func TestRoomRejectedCommandLeavesStateUntouched(t *testing.T) {
	room := newTestRoom(t, "Ana", "Ben", "Cid")
	_, _, err := room.startGame("p0")
	require.NoError(t, err)
	before := room.Snapshot()

	state, notes, err := room.guessAnswer(storytellerID(before), "nobody", true)
	require.ErrorIs(t, err, domain.ErrInvalidTarget)
	assert.Nil(t, notes)

	if diff := cmp.Diff(before, room.Snapshot()); diff != "" {
		t.Fatalf("state changed after rejected command (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(before, state); diff != "" {
		t.Fatalf("returned state differs from committed (-want +got):\n%s", diff)
	}
}

func TestRoomVersionIncrementsOnCommit(t *testing.T) {
	room := newTestRoom(t)
	assert.EqualValues(t, 0, room.Snapshot().Version)

	_, st, _, err := room.join("p0", "token-p0", "Ana")
	require.NoError(t, err)
	assert.EqualValues(t, 1, st.Version)

	_, _, _, err = room.join("p1", "token-p1", "  ")
	require.ErrorIs(t, err, domain.ErrEmptyName)
	assert.EqualValues(t, 1, room.Snapshot().Version)
}

func TestRoomSnapshotIsACopy(t *testing.T) {
	room := newTestRoom(t, "Ana")
	snap := room.Snapshot()
	snap.Players[0].Name = "Mallory"
	assert.Equal(t, "Ana", room.Snapshot().Players[0].Name)
}

func TestRoomSubscribeReceivesUpdates(t *testing.T) {
	room := newTestRoom(t, "Ana")
	updates, cancel := room.subscribe()
	defer cancel()

	first := <-updates
	require.Len(t, first.Players, 1)

	_, _, _, err := room.join("p1", "token-p1", "Ben")
	require.NoError(t, err)

	select {
	case st := <-updates:
		assert.Len(t, st.Players, 2)
	case <-time.After(time.Second):
		t.Fatal("expected broadcast after join")
	}
}

func TestRoomSlowSubscriberGetsLatest(t *testing.T) {
	room := newTestRoom(t)
	updates, cancel := room.subscribe()
	defer cancel()

	for i := 0; i < domain.MaxPlayers; i++ {
		_, _, _, err := room.join(fmt.Sprintf("p%d", i), fmt.Sprintf("token-p%d", i), fmt.Sprintf("Player %d", i))
		require.NoError(t, err)
	}

	var last domain.RoomState
	for len(updates) > 0 {
		last = <-updates
	}
	assert.Len(t, last.Players, domain.MaxPlayers)
}

func TestRoomClose(t *testing.T) {
	room := newTestRoom(t)
	updates, cancel := room.subscribe()
	<-updates
	room.Close()

	_, ok := <-updates
	assert.False(t, ok)
	cancel()
}

func TestRoomSerialisesConcurrentSubmissions(t *testing.T) {
	room := newTestRoom(t, "Ana", "Ben", "Cid", "Dee", "Eve")
	_, _, err := room.startGame("p0")
	require.NoError(t, err)
	st := room.Snapshot()

	var wg sync.WaitGroup
	for _, p := range st.Players {
		if p.IsStoryteller {
			continue
		}
		for i := 0; i < 3; i++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, _, _ = room.submitAnswer(id, "answer")
			}(p.ID)
		}
	}
	wg.Wait()

	final := room.Snapshot()
	assert.Len(t, final.ActiveRound().Submissions, len(final.Players)-1)
	for _, p := range final.Players {
		assert.Equal(t, !p.IsStoryteller, p.HasSubmitted, p.Name)
	}
}

func TestRestoreRoom(t *testing.T) {
	room := newTestRoom(t, "Ana", "Ben", "Cid")
	_, _, err := room.startGame("p0")
	require.NoError(t, err)

	restored := RestoreRoom(room.Snapshot())
	assert.Equal(t, "ROOM01", restored.ID())
	if diff := cmp.Diff(room.Snapshot(), restored.Snapshot()); diff != "" {
		t.Fatalf("restored state differs (-want +got):\n%s", diff)
	}
}
