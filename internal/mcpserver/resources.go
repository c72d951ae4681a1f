package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/DoyleJ11/fate-bridge/internal/rolls"
	"github.com/DoyleJ11/fate-bridge/internal/state"
	"github.com/DoyleJ11/fate-bridge/internal/types"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerResources() {
	s.mcp.AddResource(&mcp.Resource{
		Name:        "state",
		Title:       "Session State",
		Description: "Aggregate view of the bridged game session",
		MIMEType:    "application/json",
		URI:         state.ResourceState,
	}, s.stateResource)

	s.mcp.AddResource(&mcp.Resource{
		Name:        "actors",
		Title:       "Actors",
		Description: "All actors in the current session",
		MIMEType:    "application/json",
		URI:         state.ResourceActors,
	}, s.actorsResource)

	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		Name:        "actor",
		Title:       "Actor",
		Description: "One actor by id. URI format: fate://actors/{id}",
		MIMEType:    "application/json",
		URITemplate: state.ResourceActors + "/{id}",
	}, s.actorResource)

	s.mcp.AddResource(&mcp.Resource{
		Name:        "scene",
		Title:       "Active Scene",
		Description: "The currently active scene, null when none",
		MIMEType:    "application/json",
		URI:         state.ResourceScene,
	}, s.sceneResource)

	s.mcp.AddResource(&mcp.Resource{
		Name:        "combat",
		Title:       "Active Combat",
		Description: "The currently active combat, null when none",
		MIMEType:    "application/json",
		URI:         state.ResourceCombat,
	}, s.combatResource)

	s.mcp.AddResource(&mcp.Resource{
		Name:        "chat",
		Title:       "Recent Chat",
		Description: "Recent chat messages with rolls rendered on the Fate ladder",
		MIMEType:    "application/json",
		URI:         state.ResourceChat,
	}, s.chatResource)

	s.mcp.AddResource(&mcp.Resource{
		Name:        "capture",
		Title:       "Capture Status",
		Description: "Media capture file status and counters",
		MIMEType:    "application/json",
		URI:         state.ResourceCapture,
	}, s.captureResource)
}

func jsonResult(uri string, payload any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, MIMEType: "application/json", Text: string(data)},
		},
	}, nil
}

type statePayload struct {
	Connected   bool      `json:"connected"`
	ConnectedAt time.Time `json:"connectedAt,omitzero"`
	WorldID     string    `json:"worldId,omitempty"`
	ActorCount  int       `json:"actorCount"`
	ChatCount   int       `json:"chatCount"`
	SceneActive bool      `json:"sceneActive"`
	InCombat    bool      `json:"inCombat"`
}

func (s *Server) stateResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	snap := s.store.Snapshot()
	return jsonResult(state.ResourceState, statePayload{
		Connected:   snap.Connected,
		ConnectedAt: snap.ConnectedAt,
		WorldID:     snap.WorldID,
		ActorCount:  len(snap.Actors),
		ChatCount:   snap.ChatLen,
		SceneActive: snap.Scene != nil,
		InCombat:    snap.Combat != nil,
	})
}

func (s *Server) actorsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return jsonResult(state.ResourceActors, s.store.Actors())
}

func (s *Server) actorResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	if req == nil || req.Params == nil || req.Params.URI == "" {
		return nil, fmt.Errorf("actor id is required; use URI format %s/{id}", state.ResourceActors)
	}
	id := strings.TrimPrefix(req.Params.URI, state.ResourceActors+"/")
	if id == "" || id == req.Params.URI {
		return nil, fmt.Errorf("malformed actor URI %q", req.Params.URI)
	}
	actor, ok := s.store.Actor(id)
	if !ok {
		return nil, fmt.Errorf("actor %q not found", id)
	}
	return jsonResult(req.Params.URI, actor)
}

func (s *Server) sceneResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return jsonResult(state.ResourceScene, s.store.Scene())
}

func (s *Server) combatResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return jsonResult(state.ResourceCombat, s.store.Combat())
}

type chatEntry struct {
	ID        string       `json:"id"`
	Speaker   string       `json:"speaker,omitempty"`
	Content   string       `json:"content,omitempty"`
	Timestamp int64        `json:"timestamp,omitempty"`
	Rolls     []rolls.Roll `json:"rolls,omitempty"`
}

func chatEntries(records []types.ChatRecord) []chatEntry {
	out := make([]chatEntry, len(records))
	for i, record := range records {
		out[i] = chatEntry{
			ID:        record.ID,
			Speaker:   record.Speaker,
			Content:   record.Content,
			Timestamp: record.Timestamp,
			Rolls:     rolls.DescribeAll(record.Rolls),
		}
	}
	return out
}

func (s *Server) chatResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return jsonResult(state.ResourceChat, chatEntries(s.store.RecentChat(0)))
}

func (s *Server) captureResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return jsonResult(state.ResourceCapture, s.capture.Status())
}
