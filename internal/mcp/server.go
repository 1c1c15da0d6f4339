package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/seedsort/internal/domain/session"
	"github.com/rpggio/seedsort/internal/engine"
)

// SessionService defines session operations needed by MCP.
type SessionService interface {
	StartSession(ctx context.Context, label string) (*session.Session, error)
	StopSession(ctx context.Context, id string) (*session.Session, error)
	SubmitItem(ctx context.Context, id, itemID string) error
	GetSessionStats(ctx context.Context, id string) (*engine.Stats, error)
	SampledItems(ctx context.Context, id string) ([]string, error)
	ListHistoricalSessions(ctx context.Context) ([]session.Summary, error)
}

// Config contains server configuration.
type Config struct {
	Sessions      SessionService
	TransportMode string // "stdio" or "http"
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "seedsort",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       logger,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(trafficLoggingMiddleware(logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(logger, "outbound"))

	registerTools(server, cfg.Sessions, logger)

	return server
}
