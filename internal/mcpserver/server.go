// Package mcpserver is the downstream consumer surface: read-only resources
// over the session snapshot, tools for the few actions the peer supports,
// and a single resource-updated push meaning "re-read what you care about".
package mcpserver

import (
	"context"
	"errors"

	"github.com/DoyleJ11/fate-bridge/internal/bridge"
	"github.com/DoyleJ11/fate-bridge/internal/capture"
	"github.com/DoyleJ11/fate-bridge/internal/state"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

const (
	serverName    = "fate-bridge"
	serverVersion = "0.1.0"
)

type Server struct {
	log     *zap.Logger
	mcp     *mcp.Server
	store   *state.Store
	bridge  *bridge.Bridge
	capture *capture.Coordinator

	// assetsDir enables the asset listing tool when non-empty.
	assetsDir string
}

func New(store *state.Store, b *bridge.Bridge, media *capture.Coordinator, assetsDir string, log *zap.Logger) *Server {
	s := &Server{
		log:       log,
		store:     store,
		bridge:    b,
		capture:   media,
		assetsDir: assetsDir,
	}
	s.mcp = mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	s.registerResources()
	s.registerTools()
	return s
}

// Run serves MCP over stdio until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// NotifyChanged is the store observer. Whatever changed, consumers get one
// aggregate-state update signal; per-resource granularity is deliberately
// not exposed.
func (s *Server) NotifyChanged(resources []string) {
	s.log.Debug("state changed", zap.Strings("resources", resources))
	params := &mcp.ResourceUpdatedNotificationParams{URI: state.ResourceState}
	if err := s.mcp.ResourceUpdated(context.Background(), params); err != nil {
		s.log.Debug("resource update notify failed", zap.Error(err))
	}
}
