package tools

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Executor runs tools from a registry and folds every failure mode into a
// Result, so a broken tool can never abort the surrounding agent run.
type Executor struct {
	registry *Registry
	timeout  time.Duration
}

// NewExecutor creates an executor over the given registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{
		registry: registry,
		timeout:  30 * time.Second,
	}
}

// Execute runs one tool call. Unknown tools, tool errors, and panics all
// come back as failed Results rather than Go errors.
func (e *Executor) Execute(ctx context.Context, toolName string, args map[string]interface{}) *Result {
	tool, err := e.registry.Get(toolName)
	if err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("未知的工具: %s", toolName)}
	}

	if args == nil {
		args = map[string]interface{}{}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	result := e.executeSafely(ctx, tool, args)
	log.Printf("[Tools] %s success=%t elapsed=%s", toolName, result.Success, time.Since(start).Round(time.Millisecond))
	return result
}

func (e *Executor) executeSafely(ctx context.Context, tool Tool, args map[string]interface{}) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Tools] panic in %s: %v", tool.Name(), r)
			result = &Result{Success: false, Error: fmt.Sprintf("工具执行失败: %v", r)}
		}
	}()

	result, err := tool.Execute(ctx, args)
	if err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("工具执行失败: %v", err)}
	}
	if result == nil {
		return &Result{Success: false, Error: "工具执行失败: empty result"}
	}
	return result
}
