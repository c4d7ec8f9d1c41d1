package server

import (
	"fmt"
	"math"
	"strings"

	"github.com/fabioc-aloha/spotify-mcpb/internal/shared"
	"github.com/mark3labs/mcp-go/mcp"
)

// args wraps the raw argument map of a tool call. Numbers arrive as float64 from JSON.
type args struct {
	m map[string]any
}

func argsOf(req mcp.CallToolRequest) args {
	m := req.GetArguments()
	if m == nil {
		m = map[string]any{}
	}
	return args{m: m}
}

func (a args) has(name string) bool {
	v, ok := a.m[name]
	return ok && v != nil
}

// require fails with one error naming every missing argument.
func (a args) require(names ...string) error {
	fields := make(map[string]string, len(names))
	for _, n := range names {
		switch v := a.m[n].(type) {
		case nil:
			fields[n] = ""
		case string:
			fields[n] = v
		default:
			fields[n] = "present"
		}
	}
	return shared.RequireFields(fields)
}

func (a args) str(name string) (string, error) {
	if !a.has(name) {
		return "", nil
	}
	s, ok := a.m[name].(string)
	if !ok {
		return "", shared.InvalidArgument(name+" must be a string", shared.Details{"field": name})
	}
	return s, nil
}

// requiredString returns a present string argument of at least min runes (and at most max when max > 0).
func (a args) requiredString(name string, min, max int) (string, error) {
	if err := a.require(name); err != nil {
		return "", err
	}
	s, err := a.str(name)
	if err != nil {
		return "", err
	}
	if max <= 0 {
		max = math.MaxInt
	}
	if err := shared.ValidateLength(name, s, min, max); err != nil {
		return "", err
	}
	return s, nil
}

func (a args) number(name string) (float64, bool, error) {
	if !a.has(name) {
		return 0, false, nil
	}
	switch v := a.m[name].(type) {
	case float64:
		return v, true, nil
	case int:
		return float64(v), true, nil
	case int64:
		return float64(v), true, nil
	}
	return 0, false, shared.InvalidArgument(name+" must be a number", shared.Details{"field": name})
}

// integer returns an integral argument within [min, max], or def when absent.
func (a args) integer(name string, def, min, max int) (int, error) {
	v, ok, err := a.number(name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	if v != math.Trunc(v) {
		return 0, shared.InvalidArgument(name+" must be an integer", shared.Details{"value": v})
	}
	if err := shared.ValidateRange(name, int(v), min, max); err != nil {
		return 0, err
	}
	return int(v), nil
}

// optionalFloat returns nil when the argument is absent.
func (a args) optionalFloat(name string, min, max float64) (*float64, error) {
	v, ok, err := a.number(name)
	if err != nil || !ok {
		return nil, err
	}
	if err := shared.ValidateFloatRange(name, v, min, max); err != nil {
		return nil, err
	}
	return &v, nil
}

func (a args) boolean(name string, def bool) (bool, error) {
	if !a.has(name) {
		return def, nil
	}
	b, ok := a.m[name].(bool)
	if !ok {
		return false, shared.InvalidArgument(name+" must be a boolean", shared.Details{"field": name})
	}
	return b, nil
}

// list returns a string list argument with between min and max items. Blank items are rejected.
func (a args) list(name string, min, max int) ([]string, error) {
	if !a.has(name) {
		if min > 0 {
			return nil, a.require(name)
		}
		return nil, nil
	}

	var out []string
	switch v := a.m[name].(type) {
	case []string:
		out = append(out, v...)
	case []any:
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, shared.InvalidArgument(
					fmt.Sprintf("%s[%d] must be a string", name, i),
					shared.Details{"field": name, "index": i},
				)
			}
			out = append(out, s)
		}
	default:
		return nil, shared.InvalidArgument(name+" must be an array of strings", shared.Details{"field": name})
	}

	for i, s := range out {
		out[i] = strings.TrimSpace(s)
		if out[i] == "" {
			return nil, shared.InvalidArgument(
				fmt.Sprintf("%s[%d] must not be empty", name, i),
				shared.Details{"field": name, "index": i},
			)
		}
	}
	if max <= 0 {
		max = math.MaxInt
	}
	if err := shared.ValidateCount(name, len(out), min, max); err != nil {
		return nil, err
	}
	return out, nil
}
