package probe

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// State values produced by the built-in extractors.
const (
	StateUp       = "up"
	StateDegraded = "degraded"
	StateDown     = "down"
	StateUnknown  = "unknown"
)

// Extractor turns an HTTP response into a state string.
//
// Extractors must be pure; the scheduler calls them inside a panic recovery
// boundary and maps a panic to [StateDown].
type Extractor func(body []byte, statusCode int) string

// HTTPStatus maps 2xx to "up", 4xx to "degraded" and anything else to
// "down", ignoring the body.
func HTTPStatus(_ []byte, statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return StateUp
	case statusCode >= 400 && statusCode < 500:
		return StateDegraded
	default:
		return StateDown
	}
}

// JSONField returns an [Extractor] reporting the lower-cased value found at
// a dot-separated path, e.g. "player.state" for {"player":{"state":"Paused"}}.
//
// Booleans become "true"/"false" and numbers their shortest decimal form.
// Invalid JSON, a missing field or a non-scalar value yields "unknown".
func JSONField(path string) Extractor {
	parts := strings.Split(path, ".")

	return func(body []byte, _ int) string {
		var doc any
		if err := json.Unmarshal(body, &doc); err != nil {
			return StateUnknown
		}

		current := doc
		for _, part := range parts {
			obj, ok := current.(map[string]any)
			if !ok {
				return StateUnknown
			}
			if current, ok = obj[part]; !ok {
				return StateUnknown
			}
		}

		switch v := current.(type) {
		case string:
			if v == "" {
				return StateUnknown
			}
			return strings.ToLower(v)
		case bool:
			return strconv.FormatBool(v)
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return StateUnknown
		}
	}
}

// Contains returns an [Extractor] reporting "up" when the body contains
// text (case-insensitive) and "down" otherwise.
func Contains(text string) Extractor {
	needle := strings.ToLower(text)
	return func(body []byte, _ int) string {
		if strings.Contains(strings.ToLower(string(body)), needle) {
			return StateUp
		}
		return StateDown
	}
}

// Regex returns an [Extractor] reporting the lower-cased first capture group
// of pattern, or "unknown" when the body does not match.
//
// Returns an error if pattern does not compile or has no capture group.
func Regex(pattern string) (Extractor, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("pattern %q has no capture group", pattern)
	}

	return func(body []byte, _ int) string {
		m := re.FindSubmatch(body)
		if len(m) < 2 || len(m[1]) == 0 {
			return StateUnknown
		}
		return strings.ToLower(string(m[1]))
	}, nil
}

// ParseExtractor builds an [Extractor] from its config spelling:
// "" or "http", "json:<path>", "contains:<text>", "regex:<pattern>".
func ParseExtractor(expr string) (Extractor, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" || expr == "http" {
		return HTTPStatus, nil
	}

	kind, arg, ok := strings.Cut(expr, ":")
	if !ok {
		return nil, fmt.Errorf("unknown extractor %q (expected 'http', 'json:path', 'contains:text' or 'regex:pattern')", expr)
	}
	if arg == "" {
		return nil, fmt.Errorf("extractor %q requires an argument", kind)
	}

	switch kind {
	case "json":
		return JSONField(arg), nil
	case "contains":
		return Contains(arg), nil
	case "regex":
		return Regex(arg)
	default:
		return nil, fmt.Errorf("unknown extractor type %q", kind)
	}
}
