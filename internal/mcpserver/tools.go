package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/DoyleJ11/fate-bridge/internal/assets"
	"github.com/DoyleJ11/fate-bridge/internal/rolls"
	"github.com/DoyleJ11/fate-bridge/internal/types"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// searchLimit caps search_chat results.
const searchLimit = 50

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "send_whisper",
		Description: "Sends a whisper to the connected game client",
	}, s.sendWhisper)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_actor",
		Description: "Fetches one actor's full record by id",
	}, s.getActor)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_chat",
		Description: "Searches recent chat by case-insensitive substring",
	}, s.searchChat)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "ladder",
		Description: "Looks up the Fate ladder label for a numeric value",
	}, s.ladderLookup)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "refresh_state",
		Description: "Asks the game client to resend a full session snapshot",
	}, s.refreshState)

	if s.assetsDir != "" {
		mcp.AddTool(s.mcp, &mcp.Tool{
			Name:        "list_assets",
			Description: "Lists image assets under the configured asset root",
		}, s.listAssets)
	}
}

type WhisperInput struct {
	Content string `json:"content" jsonschema:"whisper body"`
	Title   string `json:"title,omitempty" jsonschema:"optional whisper title"`
}

type WhisperResult struct {
	Delivered bool `json:"delivered" jsonschema:"whether delivery to the peer was attempted"`
}

func (s *Server) sendWhisper(ctx context.Context, _ *mcp.CallToolRequest, input WhisperInput) (*mcp.CallToolResult, WhisperResult, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, WhisperResult{}, fmt.Errorf("whisper content is required")
	}
	delivered := s.bridge.Send(types.NewWhisper(input.Content, input.Title))
	return nil, WhisperResult{Delivered: delivered}, nil
}

type GetActorInput struct {
	ActorID string `json:"actor_id" jsonschema:"actor id to fetch"`
}

type GetActorResult struct {
	Actor types.ActorRecord `json:"actor" jsonschema:"full actor record"`
}

func (s *Server) getActor(ctx context.Context, _ *mcp.CallToolRequest, input GetActorInput) (*mcp.CallToolResult, GetActorResult, error) {
	actor, ok := s.store.Actor(input.ActorID)
	if !ok {
		return nil, GetActorResult{}, fmt.Errorf("actor %q not found", input.ActorID)
	}
	return nil, GetActorResult{Actor: actor}, nil
}

type SearchChatInput struct {
	Query string `json:"query" jsonschema:"substring to search for, case-insensitive"`
	Limit int    `json:"limit,omitempty" jsonschema:"max results, capped at 50"`
}

type SearchChatResult struct {
	Matches []chatEntry `json:"matches" jsonschema:"matching chat entries, oldest first"`
}

func (s *Server) searchChat(ctx context.Context, _ *mcp.CallToolRequest, input SearchChatInput) (*mcp.CallToolResult, SearchChatResult, error) {
	query := strings.ToLower(strings.TrimSpace(input.Query))
	if query == "" {
		return nil, SearchChatResult{}, fmt.Errorf("search query is required")
	}
	limit := input.Limit
	if limit <= 0 || limit > searchLimit {
		limit = searchLimit
	}

	var matched []types.ChatRecord
	for _, record := range s.store.RecentChat(0) {
		if strings.Contains(strings.ToLower(record.Content), query) ||
			strings.Contains(strings.ToLower(record.Speaker), query) {
			matched = append(matched, record)
			if len(matched) >= limit {
				break
			}
		}
	}
	return nil, SearchChatResult{Matches: chatEntries(matched)}, nil
}

type LadderInput struct {
	Value int `json:"value" jsonschema:"numeric result to map onto the ladder"`
}

type LadderResult struct {
	Value int    `json:"value" jsonschema:"the value looked up"`
	Label string `json:"label" jsonschema:"Fate ladder label"`
}

func (s *Server) ladderLookup(ctx context.Context, _ *mcp.CallToolRequest, input LadderInput) (*mcp.CallToolResult, LadderResult, error) {
	return nil, LadderResult{Value: input.Value, Label: rolls.LadderLabel(input.Value)}, nil
}

type RefreshStateInput struct{}

type RefreshStateResult struct {
	Requested bool `json:"requested" jsonschema:"whether the request reached the peer"`
}

func (s *Server) refreshState(ctx context.Context, _ *mcp.CallToolRequest, _ RefreshStateInput) (*mcp.CallToolResult, RefreshStateResult, error) {
	return nil, RefreshStateResult{Requested: s.bridge.Send(types.NewQueryState())}, nil
}

type ListAssetsInput struct {
	Dir string `json:"dir,omitempty" jsonschema:"optional subdirectory under the asset root"`
}

type ListAssetsResult struct {
	Assets []string `json:"assets" jsonschema:"root-relative image paths"`
}

func (s *Server) listAssets(ctx context.Context, _ *mcp.CallToolRequest, input ListAssetsInput) (*mcp.CallToolResult, ListAssetsResult, error) {
	paths, err := assets.List(s.assetsDir, input.Dir, 0)
	if err != nil {
		return nil, ListAssetsResult{}, err
	}
	return nil, ListAssetsResult{Assets: paths}, nil
}
