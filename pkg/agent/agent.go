// Package agent implements the run state machine that interleaves streamed
// LLM output with tool execution, emitting SSE-encoded events throughout.
package agent

import (
	"fmt"
	"strings"

	"github.com/tripflow/tripflow/pkg/domain"
)

// DetectionMode selects how a persona's tool calls are discovered.
type DetectionMode string

const (
	// DetectionNone runs pure conversation, no tools.
	DetectionNone DetectionMode = "none"
	// DetectionStructured consumes provider-native tool_calls deltas.
	DetectionStructured DetectionMode = "structured"
	// DetectionTextual scans the accumulated response for embedded
	// [TOOL_CALL:name:{json}] markers.
	DetectionTextual DetectionMode = "textual"
)

// Agent is one persona: a system prompt, a tool subset, and a detection mode.
// Control flow is shared by the runner; personas differ only in this data.
type Agent struct {
	ID           string
	Name         string
	Description  string
	SystemPrompt string
	ToolNames    []string
	Detection    DetectionMode
	// Announce, when set, is sent as a SYSTEM_MESSAGE right after RUN_STARTED.
	Announce string
}

// systemPrompt resolves the effective system prompt: a caller-supplied one
// wins, otherwise the persona default enriched with conversation context.
func (a *Agent) systemPrompt(custom string, context map[string]interface{}) string {
	if custom != "" {
		return custom
	}

	prompt := a.SystemPrompt
	if len(context) == 0 {
		return prompt
	}

	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\n当前对话上下文：\n")
	if names := contextNames(context, "previous_pois", "name"); names != "" {
		fmt.Fprintf(&b, "之前搜索过的POI: %s\n", names)
	}
	if routes := contextRoutes(context); routes != "" {
		fmt.Fprintf(&b, "之前计算过的路线: %s\n", routes)
	}
	if names := contextNames(context, "map_markers", "name"); names != "" {
		fmt.Fprintf(&b, "地图上的标记: %s\n", names)
	}
	return b.String()
}

func contextNames(context map[string]interface{}, key, field string) string {
	items, ok := context[key].([]interface{})
	if !ok {
		return ""
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			if name, ok := m[field].(string); ok {
				names = append(names, name)
			}
		}
	}
	return strings.Join(names, ", ")
}

func contextRoutes(context map[string]interface{}) string {
	items, ok := context["previous_routes"].([]interface{})
	if !ok {
		return ""
	}
	routes := make([]string, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		origin, _ := m["origin"].(string)
		destination, _ := m["destination"].(string)
		if origin != "" && destination != "" {
			routes = append(routes, fmt.Sprintf("%s到%s", origin, destination))
		}
	}
	return strings.Join(routes, ", ")
}

// buildMessages assembles [system?] + history + [user].
func buildMessages(systemPrompt string, history []domain.Message, userInput string) []domain.Message {
	messages := make([]domain.Message, 0, len(history)+2)
	if systemPrompt != "" {
		messages = append(messages, domain.Message{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, history...)
	messages = append(messages, domain.Message{Role: "user", Content: userInput})
	return messages
}
