package server

import (
	"context"

	"github.com/fabioc-aloha/spotify-mcpb/internal/tasks"
	"github.com/mark3labs/mcp-go/mcp"
)

const progressMethod = "notifications/progress"

// progressBuffer bounds how far updates may run ahead of delivery; the engine drops updates beyond it.
const progressBuffer = 32

// progress returns a channel whose updates are forwarded to the client as progress notifications,
// and a stop function that drains it. Both are no-ops when the caller sent no progress token.
func (s *ToolServer) progress(ctx context.Context, req mcp.CallToolRequest) (chan<- tasks.ProgressUpdate, func()) {
	if req.Params.Meta == nil || req.Params.Meta.ProgressToken == nil {
		return nil, func() {}
	}
	token := req.Params.Meta.ProgressToken

	updates := make(chan tasks.ProgressUpdate, progressBuffer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		seq := 0
		for u := range updates {
			seq++
			params := map[string]any{
				"progressToken": token,
				"progress":      seq,
				"message":       u.Phase.String() + ": " + u.Message,
			}
			if err := s.notify(ctx, progressMethod, params); err != nil {
				s.logger.Debug("progress_notification_failed", "error", err)
			}
		}
	}()

	return updates, func() {
		close(updates)
		<-done
	}
}
