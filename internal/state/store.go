// Package state holds the authoritative in-memory session snapshot. The
// bridge loop is the only mutator; any number of MCP handlers read
// concurrently through copying accessors.
package state

import (
	"sync"
	"time"

	"github.com/DoyleJ11/fate-bridge/internal/types"
	"go.uber.org/zap"
)

const (
	// ChatCapacity bounds chatHistory; inserting past it evicts the oldest.
	ChatCapacity = 200
	// DefaultRecentChat is how many entries chat reads return by default.
	DefaultRecentChat = 50
)

// Resource URIs used in change notifications and by the MCP surface.
const (
	ResourceState   = "fate://state"
	ResourceActors  = "fate://actors"
	ResourceScene   = "fate://scene"
	ResourceCombat  = "fate://combat"
	ResourceChat    = "fate://chat"
	ResourceCapture = "fate://capture"
)

// ActorResource is the per-actor URI, also the actors template expansion.
func ActorResource(id string) string { return ResourceActors + "/" + id }

type Store struct {
	log *zap.Logger
	deb *debouncer

	mu          sync.RWMutex
	worldID     string
	actors      map[string]types.ActorRecord
	scene       *types.SceneRecord
	combat      *types.CombatRecord
	chat        []types.ChatRecord
	connectedAt *time.Time // nil until a full snapshot lands, nil again after disconnect
}

func NewStore(debounce time.Duration, log *zap.Logger) *Store {
	return &Store{
		log:    log,
		deb:    newDebouncer(debounce, log),
		actors: make(map[string]types.ActorRecord),
	}
}

// Subscribe registers a change observer. Call before Start.
func (s *Store) Subscribe(fn Observer) { s.deb.subscribe(fn) }

// Start launches notification delivery.
func (s *Store) Start() { s.deb.start() }

// Close stops timers and the delivery goroutine.
func (s *Store) Close() { s.deb.close() }

// ApplyFullSnapshot replaces every snapshot field and notifies immediately:
// a full snapshot means every resource view is stale.
func (s *Store) ApplyFullSnapshot(msg types.GameReady) {
	s.mu.Lock()
	if s.worldID != "" && msg.WorldID != "" && s.worldID != msg.WorldID {
		// Replaced anyway: refusing would leave stale cross-world data live.
		s.log.Warn("world changed between snapshots",
			zap.String("previous", s.worldID), zap.String("current", msg.WorldID))
	}
	s.worldID = msg.WorldID
	s.actors = make(map[string]types.ActorRecord, len(msg.Actors))
	for id, actor := range msg.Actors {
		s.actors[id] = actor
	}
	s.scene = msg.Scene
	s.combat = msg.Combat
	history := msg.ChatHistory
	if len(history) > ChatCapacity {
		history = history[len(history)-ChatCapacity:]
	}
	s.chat = append([]types.ChatRecord(nil), history...)
	now := time.Now()
	s.connectedAt = &now
	s.mu.Unlock()

	s.deb.immediate(ResourceState, ResourceActors, ResourceScene, ResourceCombat, ResourceChat)
}

func (s *Store) ApplyChatAppend(msg types.ChatRecord) {
	s.mu.Lock()
	s.chat = append(s.chat, msg)
	if len(s.chat) > ChatCapacity {
		s.chat = s.chat[len(s.chat)-ChatCapacity:]
	}
	s.mu.Unlock()

	s.deb.add(ResourceChat)
}

// ApplyChatUpdate replaces an entry in place by id. A miss is silent: the
// update refers to an entry outside the retained window, not an error.
func (s *Store) ApplyChatUpdate(msg types.ChatRecord) {
	s.mu.Lock()
	found := false
	for i := range s.chat {
		if s.chat[i].ID == msg.ID {
			s.chat[i] = msg
			found = true
			break
		}
	}
	s.mu.Unlock()

	if found {
		s.deb.add(ResourceChat)
	}
}

func (s *Store) ApplyActorUpdate(id string, actor types.ActorRecord) {
	s.mu.Lock()
	s.actors[id] = actor
	s.mu.Unlock()

	s.deb.add(ResourceActors, ActorResource(id))
}

// ApplyCombatUpdate replaces the active combat; nil clears it (combat ended).
func (s *Store) ApplyCombatUpdate(combat *types.CombatRecord) {
	s.mu.Lock()
	s.combat = combat
	s.mu.Unlock()

	s.deb.add(ResourceCombat)
}

// ApplySceneChange replaces the active scene; nil clears it.
func (s *Store) ApplySceneChange(scene *types.SceneRecord) {
	s.mu.Lock()
	s.scene = scene
	s.mu.Unlock()

	s.deb.add(ResourceScene)
}

// MarkDisconnected clears connectedAt and notifies immediately. Idempotent:
// repeat calls while already disconnected do nothing. Entity data is kept,
// stale but readable.
func (s *Store) MarkDisconnected() {
	s.mu.Lock()
	if s.connectedAt == nil {
		s.mu.Unlock()
		return
	}
	s.connectedAt = nil
	s.mu.Unlock()

	s.deb.immediate(ResourceState)
}

// Snapshot is a consistent copy of the aggregate state for readers.
type Snapshot struct {
	WorldID     string
	Actors      map[string]types.ActorRecord
	Scene       *types.SceneRecord
	Combat      *types.CombatRecord
	ChatLen     int
	Connected   bool
	ConnectedAt time.Time
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		WorldID: s.worldID,
		Actors:  make(map[string]types.ActorRecord, len(s.actors)),
		Scene:   copyScene(s.scene),
		Combat:  copyCombat(s.combat),
		ChatLen: len(s.chat),
	}
	for id, actor := range s.actors {
		snap.Actors[id] = actor
	}
	if s.connectedAt != nil {
		snap.Connected = true
		snap.ConnectedAt = *s.connectedAt
	}
	return snap
}

func (s *Store) Actor(id string) (types.ActorRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	actor, ok := s.actors[id]
	return actor, ok
}

func (s *Store) Actors() map[string]types.ActorRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]types.ActorRecord, len(s.actors))
	for id, actor := range s.actors {
		out[id] = actor
	}
	return out
}

func (s *Store) Scene() *types.SceneRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyScene(s.scene)
}

func (s *Store) Combat() *types.CombatRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyCombat(s.combat)
}

// RecentChat returns the last n entries, oldest first. n <= 0 uses the
// default.
func (s *Store) RecentChat(n int) []types.ChatRecord {
	if n <= 0 {
		n = DefaultRecentChat
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := len(s.chat) - n
	if start < 0 {
		start = 0
	}
	return append([]types.ChatRecord(nil), s.chat[start:]...)
}

func (s *Store) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connectedAt != nil
}

func copyScene(scene *types.SceneRecord) *types.SceneRecord {
	if scene == nil {
		return nil
	}
	out := *scene
	return &out
}

func copyCombat(combat *types.CombatRecord) *types.CombatRecord {
	if combat == nil {
		return nil
	}
	out := *combat
	out.Combatants = append([]types.Combatant(nil), combat.Combatants...)
	return &out
}
