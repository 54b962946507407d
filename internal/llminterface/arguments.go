package llminterface

import (
	"bytes"
	"encoding/json"
)

// RawArgumentsKey holds the original text of arguments that could not be
// decoded into an object.
const RawArgumentsKey = "raw"

// ParseArguments decodes a serialized argument blob. Anything that is not a
// JSON object is kept verbatim under RawArgumentsKey.
func ParseArguments(text string) map[string]any {
	var args map[string]any
	if err := json.Unmarshal([]byte(text), &args); err != nil || args == nil {
		return map[string]any{RawArgumentsKey: text}
	}
	return args
}

// DecodeArguments accepts arguments either as a JSON string holding the
// document (OpenAI) or as the document itself (Ollama, Anthropic input).
func DecodeArguments(raw json.RawMessage) map[string]any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]any{}
	}
	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return map[string]any{RawArgumentsKey: string(trimmed)}
		}
		return ParseArguments(text)
	}
	return ParseArguments(string(trimmed))
}
