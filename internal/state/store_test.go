package state

import (
	"fmt"
	"testing"
	"time"

	"github.com/DoyleJ11/fate-bridge/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testWindow = 100 * time.Millisecond

func newTestStore(t *testing.T) (*Store, chan []string) {
	t.Helper()
	s := NewStore(testWindow, zap.NewNop())
	batches := make(chan []string, 16)
	s.Subscribe(func(resources []string) { batches <- resources })
	s.Start()
	t.Cleanup(s.Close)
	return s, batches
}

// recvBatch waits for one notification batch so tests never hang.
func recvBatch(t *testing.T, ch <-chan []string, within time.Duration) []string {
	t.Helper()
	select {
	case batch := <-ch:
		return batch
	case <-time.After(within):
		t.Fatalf("timed out waiting for notification batch")
		return nil // unreachable
	}
}

func recvNoBatch(t *testing.T, ch <-chan []string, within time.Duration) {
	t.Helper()
	select {
	case batch := <-ch:
		t.Fatalf("expected no batch within %v, got %v", within, batch)
	case <-time.After(within):
	}
}

func fullSnapshot(world string) types.GameReady {
	return types.GameReady{
		WorldID: world,
		Actors: map[string]types.ActorRecord{
			"zara": {ID: "zara", Name: "Zara", FatePoints: 3},
		},
		Scene:       &types.SceneRecord{ID: "s1", Name: "Docks"},
		ChatHistory: []types.ChatRecord{{ID: "c1", Content: "hello"}},
	}
}

func TestFullSnapshotNotifiesImmediately(t *testing.T) {
	s, batches := newTestStore(t)

	s.ApplyFullSnapshot(fullSnapshot("world-1"))

	// Immediate path: well before the debounce window could fire.
	batch := recvBatch(t, batches, testWindow/2)
	assert.ElementsMatch(t, []string{
		ResourceState, ResourceActors, ResourceScene, ResourceCombat, ResourceChat,
	}, batch)

	snap := s.Snapshot()
	assert.True(t, snap.Connected)
	assert.Equal(t, "world-1", snap.WorldID)
	assert.Len(t, snap.Actors, 1)
}

func TestDebounceCoalescesBurst(t *testing.T) {
	s, batches := newTestStore(t)

	s.ApplyChatAppend(types.ChatRecord{ID: "c1"})
	s.ApplyActorUpdate("zara", types.ActorRecord{ID: "zara", Name: "Zara"})
	s.ApplySceneChange(&types.SceneRecord{ID: "s1"})

	// Nothing until the window elapses.
	recvNoBatch(t, batches, testWindow/2)

	batch := recvBatch(t, batches, 3*testWindow)
	assert.ElementsMatch(t, []string{
		ResourceChat, ResourceActors, ActorResource("zara"), ResourceScene,
	}, batch)

	// Exactly one flush for the whole burst.
	recvNoBatch(t, batches, 2*testWindow)
}

func TestActorUpdateNotifiesCollectionAndPerActor(t *testing.T) {
	s, batches := newTestStore(t)
	s.ApplyFullSnapshot(fullSnapshot("world-1"))
	recvBatch(t, batches, testWindow) // drain the immediate batch

	s.ApplyActorUpdate("zara", types.ActorRecord{ID: "zara", Name: "Zara", FatePoints: 2})

	batch := recvBatch(t, batches, 3*testWindow)
	assert.Contains(t, batch, ResourceActors)
	assert.Contains(t, batch, ActorResource("zara"))

	actor, ok := s.Actor("zara")
	require.True(t, ok)
	assert.Equal(t, 2, actor.FatePoints)
}

func TestChatCapacityEvictsOldest(t *testing.T) {
	s, _ := newTestStore(t)

	for i := 0; i <= ChatCapacity; i++ {
		s.ApplyChatAppend(types.ChatRecord{ID: fmt.Sprintf("m%d", i)})
	}

	chat := s.RecentChat(ChatCapacity + 10)
	require.Len(t, chat, ChatCapacity)
	assert.Equal(t, "m1", chat[0].ID, "exactly the oldest entry is evicted")
	assert.Equal(t, fmt.Sprintf("m%d", ChatCapacity), chat[len(chat)-1].ID)
}

func TestFullSnapshotTruncatesHistory(t *testing.T) {
	s, _ := newTestStore(t)

	history := make([]types.ChatRecord, ChatCapacity+50)
	for i := range history {
		history[i] = types.ChatRecord{ID: fmt.Sprintf("m%d", i)}
	}
	s.ApplyFullSnapshot(types.GameReady{WorldID: "w", ChatHistory: history})

	chat := s.RecentChat(ChatCapacity + 10)
	require.Len(t, chat, ChatCapacity)
	assert.Equal(t, "m50", chat[0].ID)
}

func TestChatUpdateReplacesInPlace(t *testing.T) {
	s, batches := newTestStore(t)
	s.ApplyChatAppend(types.ChatRecord{ID: "c1", Content: "first"})
	s.ApplyChatAppend(types.ChatRecord{ID: "c2", Content: "second"})
	recvBatch(t, batches, 3*testWindow)

	s.ApplyChatUpdate(types.ChatRecord{ID: "c1", Content: "edited"})

	chat := s.RecentChat(0)
	require.Len(t, chat, 2)
	assert.Equal(t, "edited", chat[0].Content, "position preserved")
	assert.Equal(t, []string{ResourceChat}, recvBatch(t, batches, 3*testWindow))
}

func TestChatUpdateMissIsSilent(t *testing.T) {
	s, batches := newTestStore(t)
	s.ApplyChatAppend(types.ChatRecord{ID: "c1"})
	recvBatch(t, batches, 3*testWindow)

	s.ApplyChatUpdate(types.ChatRecord{ID: "gone", Content: "x"})

	recvNoBatch(t, batches, 2*testWindow)
	assert.Len(t, s.RecentChat(0), 1)
}

func TestCombatAndSceneClearOnNil(t *testing.T) {
	s, _ := newTestStore(t)
	s.ApplyCombatUpdate(&types.CombatRecord{ID: "f1", Round: 2})
	s.ApplySceneChange(&types.SceneRecord{ID: "s1"})
	require.NotNil(t, s.Combat())
	require.NotNil(t, s.Scene())

	s.ApplyCombatUpdate(nil)
	s.ApplySceneChange(nil)
	assert.Nil(t, s.Combat())
	assert.Nil(t, s.Scene())
}

func TestMarkDisconnectedIdempotent(t *testing.T) {
	s, batches := newTestStore(t)
	s.ApplyFullSnapshot(fullSnapshot("world-1"))
	recvBatch(t, batches, testWindow)

	s.MarkDisconnected()
	s.MarkDisconnected()

	batch := recvBatch(t, batches, testWindow)
	assert.Equal(t, []string{ResourceState}, batch)
	recvNoBatch(t, batches, 2*testWindow)

	assert.False(t, s.Connected())
	// Entity data is retained, stale but readable.
	assert.Len(t, s.Actors(), 1)
}

func TestWorldChangeStillReplaces(t *testing.T) {
	s, batches := newTestStore(t)
	s.ApplyFullSnapshot(fullSnapshot("world-1"))
	recvBatch(t, batches, testWindow)

	next := fullSnapshot("world-2")
	next.Actors = map[string]types.ActorRecord{"bran": {ID: "bran", Name: "Bran"}}
	s.ApplyFullSnapshot(next)
	recvBatch(t, batches, testWindow)

	snap := s.Snapshot()
	assert.Equal(t, "world-2", snap.WorldID)
	_, hasOld := snap.Actors["zara"]
	assert.False(t, hasOld, "no stale cross-world actors")
}

func TestRecentChatDefaultsAndBounds(t *testing.T) {
	s, _ := newTestStore(t)
	for i := 0; i < 80; i++ {
		s.ApplyChatAppend(types.ChatRecord{ID: fmt.Sprintf("m%d", i)})
	}

	assert.Len(t, s.RecentChat(0), DefaultRecentChat)
	assert.Len(t, s.RecentChat(10), 10)
	assert.Len(t, s.RecentChat(500), 80)
	assert.Equal(t, "m79", s.RecentChat(1)[0].ID)
}

func TestSnapshotReadsAreCopies(t *testing.T) {
	s, _ := newTestStore(t)
	s.ApplyFullSnapshot(fullSnapshot("world-1"))

	actors := s.Actors()
	actors["intruder"] = types.ActorRecord{ID: "intruder"}
	scene := s.Scene()
	scene.Name = "mutated"

	assert.Len(t, s.Actors(), 1)
	assert.Equal(t, "Docks", s.Scene().Name)
}
