package domain

import (
	"context"
)

// Message represents a conversation message sent to or received from the LLM
type Message struct {
	Role       string     `json:"role"` // system, user, assistant, tool
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolDefinition represents a tool that can be called by the LLM
type ToolDefinition struct {
	Type     string       `json:"type"` // Always "function"
	Function ToolFunction `json:"function"`
}

// ToolFunction defines a function that can be called
type ToolFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolCall represents a call to a tool made by the LLM
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"` // "function"
	Function FunctionCall `json:"function"`
}

// FunctionCall represents the function call details
type FunctionCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// GenerationOptions controls a single LLM request
type GenerationOptions struct {
	Temperature float64
	MaxTokens   int
	ToolChoice  string // "auto", "required", "none", or specific function name
}

// GenerationResult represents the result of LLM generation with potential tool calls
type GenerationResult struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Finished  bool       `json:"finished"`
}

// StreamCallback receives one content fragment per invocation. Returning an
// error stops the stream.
type StreamCallback func(chunk string) error

// ToolCallCallback receives content fragments and any tool calls detected in
// the same delta chunk. Returning an error stops the stream.
type ToolCallCallback func(chunk string, toolCalls []ToolCall) error

// Generator is the LLM collaborator consumed by the agent runner and the AI
// services. Streaming methods block until the provider stream is drained or
// the context is cancelled.
type Generator interface {
	Generate(ctx context.Context, messages []Message, opts *GenerationOptions) (string, error)
	Stream(ctx context.Context, messages []Message, opts *GenerationOptions, callback StreamCallback) error
	GenerateWithTools(ctx context.Context, messages []Message, tools []ToolDefinition, opts *GenerationOptions) (*GenerationResult, error)
	StreamWithTools(ctx context.Context, messages []Message, tools []ToolDefinition, opts *GenerationOptions, callback ToolCallCallback) error
}

// Coordinates is a WGS-ish lat/lng pair as returned by the map provider.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// POI is one point of interest returned by the map collaborator.
type POI struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Address      string      `json:"address"`
	Location     Coordinates `json:"location"`
	Category     string      `json:"category"`
	Rating       float64     `json:"rating"`
	Price        string      `json:"price"`
	Phone        string      `json:"phone,omitempty"`
	Website      string      `json:"website,omitempty"`
	OpeningHours string      `json:"opening_hours,omitempty"`
	Description  string      `json:"description,omitempty"`
}

// RouteBounds is the bounding box of a computed route.
type RouteBounds struct {
	Southwest Coordinates `json:"southwest"`
	Northeast Coordinates `json:"northeast"`
}

// Route is a computed route between two coordinates.
type Route struct {
	Distance         int                      `json:"distance"` // meters
	Duration         int                      `json:"duration"` // seconds
	OverviewPolyline string                   `json:"overview_polyline"`
	Bounds           RouteBounds              `json:"bounds"`
	Steps            []map[string]interface{} `json:"steps"`
	Mode             string                   `json:"mode"`
	Origin           Coordinates              `json:"origin"`
	Destination      Coordinates              `json:"destination"`
}
