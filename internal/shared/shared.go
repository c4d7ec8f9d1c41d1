// package shared defines shared helpers
package shared

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]. Stdout is reserved for the stdio transport, so nothing here ever defaults to it.
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// ConfigureLogger applies a [LogConfig] to l. Unknown levels fall back to info.
func ConfigureLogger(l *log.Logger, c LogConfig) {
	level, err := log.ParseLevel(strings.ToLower(c.Level))
	if err != nil {
		level = log.InfoLevel
	}
	SetLogLevel(l, level)
	if strings.EqualFold(c.Format, "json") {
		l.SetFormatter(log.JSONFormatter)
	}
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

// GenerateState returns a random OAuth state value.
func GenerateState() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(id.String(), "-", ""), nil
}

// MarshalJSON marshals data, indenting with two spaces when pretty is set.
func MarshalJSON(data any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(data, "", "  ")
	}
	return json.Marshal(data)
}

var sensitiveKeys = []string{"token", "secret", "password", "authorization"}

// SanitizeForLog returns a copy of m with values under sensitive keys redacted. Nested maps are walked.
func SanitizeForLog(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		lower := strings.ToLower(k)
		redact := false
		for _, s := range sensitiveKeys {
			if strings.Contains(lower, s) {
				redact = true
				break
			}
		}
		switch {
		case redact:
			out[k] = "[REDACTED]"
		default:
			if nested, ok := v.(map[string]any); ok {
				out[k] = SanitizeForLog(nested)
			} else {
				out[k] = v
			}
		}
	}
	return out
}
