package types

import (
	"encoding/json"
	"errors"
	"strings"

	"uml-architect/api/internal/util"
)

// ParseReply locates and decodes the JSON object embedded in a model reply.
// The result is untyped on purpose; NormalizeDiagram and NormalizeCode turn
// it into records.
func ParseReply(content string) (map[string]any, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyReply
	}
	payload, ok := util.ExtractJSONPayload(content)
	if !ok {
		return nil, ErrNoJSONPayload
	}

	var v any
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return nil, &PayloadParseError{Err: err}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &PayloadParseError{Err: errors.New("payload is not a JSON object")}
	}
	return obj, nil
}
