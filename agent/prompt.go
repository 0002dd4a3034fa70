package agent

import (
	"encoding/json"
	"sort"
	"strings"
)

// BuildSystemPrompt assembles the system prompt for a request: the agent's
// base prompt, its behavior-setting description, and a serialization of the
// per-call context. Context keys are sorted so the prompt is deterministic
// for identical inputs.
func BuildSystemPrompt(cfg Config, context map[string]any) string {
	var b strings.Builder

	if cfg.SystemPrompt != "" {
		b.WriteString(cfg.SystemPrompt)
	}
	if cfg.Behavior != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(cfg.Behavior)
	}

	if serialized := serializeContext(context); serialized != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Conversation context:\n")
		b.WriteString(serialized)
	}

	return b.String()
}

func serializeContext(context map[string]any) string {
	if len(context) == 0 {
		return ""
	}
	keys := make([]string, 0, len(context))
	for k := range context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		v, err := json.Marshal(context[k])
		if err != nil {
			continue
		}
		b.WriteString("- ")
		b.WriteString(k)
		b.WriteString(": ")
		b.Write(v)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
