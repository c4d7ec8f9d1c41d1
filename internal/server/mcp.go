package server

import (
	"context"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/fabioc-aloha/spotify-mcpb/internal/cache"
	"github.com/fabioc-aloha/spotify-mcpb/internal/formatter"
	"github.com/fabioc-aloha/spotify-mcpb/internal/models"
	"github.com/fabioc-aloha/spotify-mcpb/internal/services"
	"github.com/fabioc-aloha/spotify-mcpb/internal/shared"
	"github.com/fabioc-aloha/spotify-mcpb/internal/tasks"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

const (
	Name    = "spotify-mcpb"
	Version = "0.2.2"
)

// Authority is the part of [services.TokenAuthority] the tools depend on.
type Authority interface {
	EnsureReady() error
	ResolveIdentity(ctx context.Context) (string, error)
}

// PlaylistTasks runs the long-running playlist operations.
type PlaylistTasks interface {
	Analyze(ctx context.Context, progress chan<- tasks.ProgressUpdate, playlistID string) (*models.PlaylistAnalysis, error)
	AddTracksWithDedup(ctx context.Context, progress chan<- tasks.ProgressUpdate, playlistID string, uris []string, deduplicate bool) (models.AddResult, error)
}

// CacheStats reports feature cache counters.
type CacheStats interface {
	Stats() cache.Stats
}

// NotifyFunc delivers a notification to the connected client.
type NotifyFunc func(ctx context.Context, method string, params map[string]any) error

// ToolServerOpts wires a [ToolServer]. Authority, API, Invoker, Tasks, Features and Cache are required.
type ToolServerOpts struct {
	Authority Authority
	API       services.API
	Invoker   *services.Invoker
	Tasks     PlaylistTasks
	Features  tasks.FeatureFetcher
	Cache     CacheStats
	Market    string
	Logger    *log.Logger

	// TokenURL and HTTPClient are used by refresh-token issuance. Empty values select production.
	TokenURL   string
	HTTPClient *http.Client

	// Notify overrides how progress notifications reach the client.
	Notify NotifyFunc
}

// ToolServer exposes the Spotify operations as MCP tools.
type ToolServer struct {
	auth       Authority
	api        services.API
	inv        *services.Invoker
	tasks      PlaylistTasks
	features   tasks.FeatureFetcher
	cache      CacheStats
	market     string
	logger     *log.Logger
	tokenURL   string
	httpClient *http.Client
	notify     NotifyFunc

	mcp *mcpserver.MCPServer
}

// NewToolServer registers every tool on a new MCP server.
func NewToolServer(opts ToolServerOpts) *ToolServer {
	s := &ToolServer{
		auth:       opts.Authority,
		api:        opts.API,
		inv:        opts.Invoker,
		tasks:      opts.Tasks,
		features:   opts.Features,
		cache:      opts.Cache,
		market:     opts.Market,
		logger:     opts.Logger,
		tokenURL:   opts.TokenURL,
		httpClient: opts.HTTPClient,
		notify:     opts.Notify,
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}
	if s.httpClient == nil {
		s.httpClient = http.DefaultClient
	}
	if s.notify == nil {
		s.notify = notifyClient
	}

	s.mcp = mcpserver.NewMCPServer(
		Name,
		Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)
	s.registerPlayback()
	s.registerCatalog()
	s.registerPlaylists()
	s.registerLibrary()
	s.registerAuth()
	return s
}

// MCP returns the underlying server.
func (s *ToolServer) MCP() *mcpserver.MCPServer {
	return s.mcp
}

// Serve speaks MCP over in and out until ctx is cancelled or in is closed.
// Diagnostics from the transport go to the logger, never to out.
func (s *ToolServer) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := mcpserver.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(s.logger.StandardLog(log.StandardLogOptions{ForceLevel: log.ErrorLevel}))
	s.logger.Info("server_started", "name", Name, "version", Version)
	return stdio.Listen(ctx, in, out)
}

func notifyClient(ctx context.Context, method string, params map[string]any) error {
	srv := mcpserver.ServerFromContext(ctx)
	if srv == nil {
		return mcpserver.ErrNotificationNotInitialized
	}
	return srv.SendNotificationToClient(ctx, method, params)
}

// toolFunc is a tool body. A returned *mcp.CallToolResult is sent as is; any other value is encoded as JSON.
type toolFunc func(ctx context.Context, req mcp.CallToolRequest) (any, error)

// add registers fn under tool. Unless open is set, the call is refused before fn runs when the
// authority is not ready. Every failure is rendered once as an error envelope.
func (s *ToolServer) add(tool mcp.Tool, open bool, fn toolFunc) {
	name := tool.Name
	s.mcp.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger := shared.WithLogger(s.logger, "tool", name, "request_id", shared.GenerateID())
		logger.Info("tool_call", "args", shared.SanitizeForLog(req.GetArguments()))

		if !open {
			if err := s.auth.EnsureReady(); err != nil {
				logger.Warn("tool_refused", "error", err)
				return formatter.Error(err, name), nil
			}
		}

		v, err := fn(ctx, req)
		if err != nil {
			logger.Warn("tool_failed", "code", shared.KindOf(err).Code(), "error", err)
			return formatter.Error(err, name), nil
		}
		if r, ok := v.(*mcp.CallToolResult); ok {
			return r, nil
		}
		return formatter.Result(v), nil
	})
}
