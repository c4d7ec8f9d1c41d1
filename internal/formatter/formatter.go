// package formatter renders tool results and error envelopes as MCP text content
package formatter

import (
	"fmt"

	"github.com/fabioc-aloha/spotify-mcpb/internal/shared"
	"github.com/mark3labs/mcp-go/mcp"
)

// ErrorBody is the payload of an error envelope.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details shared.Details `json:"details"`
}

// ErrorEnvelope is the JSON document returned as the text of a failed tool call.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// Status is the body of playback commands that have nothing else to report.
type Status struct {
	Status string `json:"status"`
}

// ToText marshals v as compact JSON.
func ToText(v any) (string, error) {
	data, err := shared.MarshalJSON(v, false)
	if err != nil {
		return "", fmt.Errorf("failed to encode tool result: %w", err)
	}
	return string(data), nil
}

// ToPrettyText marshals v as JSON indented with two spaces.
func ToPrettyText(v any) (string, error) {
	data, err := shared.MarshalJSON(v, true)
	if err != nil {
		return "", fmt.Errorf("failed to encode tool result: %w", err)
	}
	return string(data), nil
}

// Envelope converts err into the error envelope. Errors that are not tool errors are reported as
// internal errors tagged with context.
func Envelope(err error, context string) ErrorEnvelope {
	te := shared.AsToolError(err, context)
	if te == nil {
		te = shared.Internal("", shared.Details{"context": context})
	}
	details := te.Details
	if details == nil {
		details = shared.Details{}
	}
	return ErrorEnvelope{Error: ErrorBody{Code: te.Kind.Code(), Message: te.Message, Details: details}}
}

// Result renders v as a successful text result.
func Result(v any) *mcp.CallToolResult {
	text, err := ToText(v)
	if err != nil {
		return Error(err, "encode_result")
	}
	return mcp.NewToolResultText(text)
}

// PrettyResult is [Result] with indented output.
func PrettyResult(v any) *mcp.CallToolResult {
	text, err := ToPrettyText(v)
	if err != nil {
		return Error(err, "encode_result")
	}
	return mcp.NewToolResultText(text)
}

// Error renders err as an error result. The envelope is always encodable, so the only failure path
// is a details value that cannot be marshalled, which falls back to an envelope without details.
func Error(err error, context string) *mcp.CallToolResult {
	env := Envelope(err, context)
	text, mErr := ToText(env)
	if mErr != nil {
		env.Error.Details = shared.Details{}
		text, _ = ToText(env)
	}
	return mcp.NewToolResultError(text)
}
