// Package tools defines the agent-callable tools, their registry, and the
// executor that runs them with uniform result handling.
package tools

import (
	"context"
	"errors"

	"github.com/tripflow/tripflow/pkg/domain"
)

// Tool is one callable function exposed to the LLM.
type Tool interface {
	Name() string
	Definition() domain.ToolDefinition
	Execute(ctx context.Context, args map[string]interface{}) (*Result, error)
}

// Result is the uniform outcome every tool execution produces. Failed calls
// set Success false and Error; they are still delivered to the model as
// regular results.
type Result struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

type contextKey int

const userIDKey contextKey = 0

// WithUserID returns a context carrying the acting user's id for tools that
// touch per-user data.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext retrieves the acting user's id, or "" when absent.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

func stringArg(args map[string]interface{}, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func floatArg(args map[string]interface{}, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func intArg(args map[string]interface{}, key string, fallback int) int {
	if v, ok := floatArg(args, key); ok {
		return int(v)
	}
	return fallback
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

func stringSliceArg(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
