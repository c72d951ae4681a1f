package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownType = errors.New("unknown message type")

// Inbound is the closed set of messages the game client can send. Adding a
// tag means adding a struct here and a case in DecodeInbound, so dispatch
// stays exhaustive at compile time.
type Inbound interface{ isInbound() }

type GameReady struct {
	WorldID     string                 `json:"worldId,omitempty"`
	Actors      map[string]ActorRecord `json:"actors"`
	Scene       *SceneRecord           `json:"scene"`
	Combat      *CombatRecord          `json:"combat"`
	ChatHistory []ChatRecord           `json:"chatHistory"`
}

type ChatMessage struct {
	Message ChatRecord `json:"message"`
}

type ChatMessageUpdate struct {
	Message ChatRecord `json:"message"`
}

type ActorUpdate struct {
	ActorID string      `json:"actorId"`
	Actor   ActorRecord `json:"actor"`
}

type CombatUpdate struct {
	Combat *CombatRecord `json:"combat"` // nil means combat ended
}

type SceneChange struct {
	Scene *SceneRecord `json:"scene"` // nil means no active scene
}

type VideoChunk struct {
	Data      string  `json:"data"` // base64-encoded container fragment
	Timestamp float64 `json:"timestamp"`
}

type Pong struct{}

func (GameReady) isInbound()         {}
func (ChatMessage) isInbound()       {}
func (ChatMessageUpdate) isInbound() {}
func (ActorUpdate) isInbound()       {}
func (CombatUpdate) isInbound()      {}
func (SceneChange) isInbound()       {}
func (VideoChunk) isInbound()        {}
func (Pong) isInbound()              {}

// DecodeInbound parses one peer frame. Unknown tags return ErrUnknownType so
// the caller can log and drop without touching connection state.
func DecodeInbound(data []byte) (Inbound, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	switch envelope.Type {
	case "gameReady":
		var m GameReady
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode gameReady: %w", err)
		}
		return m, nil
	case "chatMessage":
		var m ChatMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode chatMessage: %w", err)
		}
		return m, nil
	case "chatMessageUpdate":
		var m ChatMessageUpdate
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode chatMessageUpdate: %w", err)
		}
		return m, nil
	case "actorUpdate":
		var m ActorUpdate
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode actorUpdate: %w", err)
		}
		return m, nil
	case "combatUpdate":
		var m CombatUpdate
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode combatUpdate: %w", err)
		}
		return m, nil
	case "sceneChange":
		var m SceneChange
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode sceneChange: %w", err)
		}
		return m, nil
	case "videoChunk":
		var m VideoChunk
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode videoChunk: %w", err)
		}
		return m, nil
	case "pong":
		return Pong{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, envelope.Type)
	}
}

// Outbound messages carry their tag explicitly so a plain json.Marshal
// produces the wire shape.

type Whisper struct {
	Type    string `json:"type"` // "whisper"
	Content string `json:"content"`
	Title   string `json:"title,omitempty"`
}

func NewWhisper(content, title string) Whisper {
	return Whisper{Type: "whisper", Content: content, Title: title}
}

type QueryState struct {
	Type string `json:"type"` // "queryState"
}

func NewQueryState() QueryState { return QueryState{Type: "queryState"} }

type Ping struct {
	Type string `json:"type"` // "ping"
}

func NewPing() Ping { return Ping{Type: "ping"} }
