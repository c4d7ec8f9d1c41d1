// Package server exposes the Spotify operations as MCP tools and hosts the OAuth callback listener.
//
// # Tools
//
// [ToolServer] registers every tool on a [github.com/mark3labs/mcp-go/server.MCPServer]. Each tool body
// validates its arguments, runs remote calls through the resilient invoker and returns a JSON text
// result. Failures are rendered exactly once as {"error":{"code","message","details"}} with isError set.
// Every tool except spotify_get_refresh_token is refused until the token authority is ready.
//
// Playlist analysis and deduplicating adds forward their progress as notifications/progress when the
// caller supplied a progress token.
//
// # OAuth callback
//
// [OAuthHandler] implements the authorization-code redirect for the auth command. It validates the
// state parameter, exchanges the code and sends the token through a channel. It only processes one
// callback. [BasicRouter] mounts it behind optional [Middleware] such as [RequestLogger].
package server
