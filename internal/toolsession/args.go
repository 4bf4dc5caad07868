package toolsession

import (
	"encoding/json"
	"fmt"
)

// parseArguments decodes a tool call's JSON arguments into a flat string
// map; non-string values are rendered with their natural JSON formatting.
func parseArguments(raw string) (map[string]string, error) {
	if raw == "" {
		return map[string]string{}, nil
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(decoded))
	for k, v := range decoded {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal argument %q: %w", k, err)
		}
		out[k] = string(b)
	}
	return out, nil
}
