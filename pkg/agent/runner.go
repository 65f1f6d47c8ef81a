package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/tripflow/tripflow/pkg/agui"
	"github.com/tripflow/tripflow/pkg/domain"
	"github.com/tripflow/tripflow/pkg/tools"
)

// Runner drives one persona through the run state machine. A Runner holds
// configuration only and is safe for concurrent runs.
type Runner struct {
	agent    *Agent
	llm      domain.Generator
	registry *tools.Registry
	executor *tools.Executor
	encoder  agui.Encoder
}

// NewRunner wires a persona to its collaborators.
func NewRunner(agent *Agent, llm domain.Generator, registry *tools.Registry, executor *tools.Executor) *Runner {
	return &Runner{
		agent:    agent,
		llm:      llm,
		registry: registry,
		executor: executor,
	}
}

// Agent returns the persona this runner drives.
func (r *Runner) Agent() *Agent { return r.agent }

// RunRequest carries the inputs for one run.
type RunRequest struct {
	UserInput    string
	SystemPrompt string
	History      []domain.Message
	RunID        string
	UserID       string
	Context      map[string]interface{}
}

// detectedCall is one tool invocation the run discovered, by either
// detection mechanism.
type detectedCall struct {
	Name   string
	Args   map[string]interface{}
	CallID string
}

// toolOutcome pairs a detected call with its execution result for the
// synthesis round.
type toolOutcome struct {
	Name   string                 `json:"name"`
	Args   map[string]interface{} `json:"args"`
	Result *tools.Result          `json:"result"`
}

// Run executes the state machine and returns an ordered stream of SSE wire
// frames. The channel closes when the run reaches a terminal event or the
// context is cancelled; cancelling the context stops all work.
func (r *Runner) Run(ctx context.Context, req RunRequest) <-chan string {
	frames := make(chan string)
	go func() {
		defer close(frames)
		r.run(ctx, req, frames)
	}()
	return frames
}

func (r *Runner) run(ctx context.Context, req RunRequest, frames chan<- string) {
	runID := req.RunID
	if runID == "" {
		runID = agui.NewRunID()
	}
	if req.UserID != "" {
		ctx = tools.WithUserID(ctx, req.UserID)
	}

	if !r.emit(ctx, frames, r.encoder.EncodeRunStarted(runID, r.agent.ID)) {
		return
	}
	if r.agent.Announce != "" {
		if !r.emit(ctx, frames, r.encoder.EncodeSystemMessage(r.agent.Announce, "info")) {
			return
		}
	}

	prompt := r.agent.systemPrompt(req.SystemPrompt, req.Context)
	messages := buildMessages(prompt, req.History, req.UserInput)
	messageID := agui.NewMessageID()

	full, detected, err := r.streamCompletion(ctx, frames, messages, messageID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		r.emit(ctx, frames, r.encoder.EncodeRunError(runID, err.Error()))
		return
	}

	if len(detected) > 0 {
		outcomes, ok := r.executeCalls(ctx, frames, detected)
		if !ok {
			return
		}
		if !r.deliverAfterTools(ctx, frames, req.UserInput, full, messageID, outcomes) {
			return
		}
	} else if r.agent.Detection != DetectionTextual || strings.TrimSpace(full) != "" {
		// Buffered mode never streamed deltas; either way the terminal
		// content event carries the complete text.
		if !r.emit(ctx, frames, r.encoder.EncodeTextMessageContent(full, messageID)) {
			return
		}
	}

	r.emit(ctx, frames, r.encoder.EncodeRunFinished(runID, map[string]interface{}{
		"messageId": messageID,
		"content":   full,
		"runId":     runID,
		"agentId":   r.agent.ID,
	}))
}

// streamCompletion consumes the provider stream according to the persona's
// detection mode and returns the accumulated text plus any detected calls.
func (r *Runner) streamCompletion(ctx context.Context, frames chan<- string, messages []domain.Message, messageID string) (string, []detectedCall, error) {
	var full strings.Builder

	switch r.agent.Detection {
	case DetectionStructured:
		var detected []detectedCall
		defs := r.registry.Definitions(r.agent.ToolNames)
		err := r.llm.StreamWithTools(ctx, messages, defs, nil, func(chunk string, toolCalls []domain.ToolCall) error {
			if chunk != "" {
				full.WriteString(chunk)
				if !r.emit(ctx, frames, r.encoder.EncodeTextStream(chunk, messageID)) {
					return context.Canceled
				}
			}
			for _, tc := range toolCalls {
				if tc.Function.Name == "" {
					log.Printf("[Agent] %s: skipping structured tool call without a name", r.agent.ID)
					continue
				}
				args := tc.Function.Arguments
				if args == nil {
					args = map[string]interface{}{}
				}
				detected = append(detected, detectedCall{Name: tc.Function.Name, Args: args, CallID: tc.ID})
			}
			return nil
		})
		return full.String(), detected, err

	case DetectionTextual:
		// Buffer the whole response so markers never leak to the client.
		err := r.llm.Stream(ctx, messages, nil, func(chunk string) error {
			full.WriteString(chunk)
			return nil
		})
		if err != nil {
			return "", nil, err
		}
		text := full.String()
		parsed := ParseToolCalls(text)
		detected := make([]detectedCall, 0, len(parsed))
		for _, call := range parsed {
			detected = append(detected, detectedCall{Name: call.Name, Args: call.Args})
		}
		return text, detected, nil

	default:
		err := r.llm.Stream(ctx, messages, nil, func(chunk string) error {
			full.WriteString(chunk)
			if !r.emit(ctx, frames, r.encoder.EncodeTextStream(chunk, messageID)) {
				return context.Canceled
			}
			return nil
		})
		return full.String(), nil, err
	}
}

// executeCalls runs each detected call in order, emitting the request/result
// pair per call. Tool failures are delivered as results, never raised.
func (r *Runner) executeCalls(ctx context.Context, frames chan<- string, detected []detectedCall) ([]toolOutcome, bool) {
	outcomes := make([]toolOutcome, 0, len(detected))
	for _, call := range detected {
		callID := call.CallID
		if callID == "" {
			callID = agui.NewCallID()
		}

		request := agui.NewEvent(agui.EventToolCallRequest, map[string]interface{}{
			"toolName":   call.Name,
			"parameters": call.Args,
			"callId":     callID,
		})
		if !r.emit(ctx, frames, r.encoder.Encode(request)) {
			return nil, false
		}

		result := r.executor.Execute(ctx, call.Name, call.Args)

		response := agui.NewEvent(agui.EventToolCallResult, map[string]interface{}{
			"callId": callID,
			"result": result,
		})
		if !r.emit(ctx, frames, r.encoder.Encode(response)) {
			return nil, false
		}

		outcomes = append(outcomes, toolOutcome{Name: call.Name, Args: call.Args, Result: result})
	}
	return outcomes, true
}

// deliverAfterTools runs the optional synthesis round over the tool results
// and emits the terminal text for the run. Whatever happens, the delivered
// text never contains raw marker syntax.
func (r *Runner) deliverAfterTools(ctx context.Context, frames chan<- string, userInput, full, messageID string, outcomes []toolOutcome) bool {
	anySuccess := false
	for _, outcome := range outcomes {
		if outcome.Result != nil && outcome.Result.Success {
			anySuccess = true
			break
		}
	}

	if anySuccess {
		synthMessageID := agui.NewMessageID()
		synthesis, err := r.synthesize(ctx, frames, userInput, full, outcomes, synthMessageID)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return false
			}
			log.Printf("[Agent] %s: synthesis round failed: %v", r.agent.ID, err)
		}
		if strings.TrimSpace(synthesis) != "" {
			return r.emit(ctx, frames, r.encoder.EncodeTextMessageContent(synthesis, synthMessageID))
		}
	}

	clean := StripToolCalls(full)
	if clean == "" {
		clean = "我已经完成了您请求的操作，请查看地图上的标记获取详细信息。"
	}
	return r.emit(ctx, frames, r.encoder.EncodeTextMessageContent(clean, messageID))
}

// synthesize performs the second LLM round, streaming its text under a fresh
// message id.
func (r *Runner) synthesize(ctx context.Context, frames chan<- string, userInput, full string, outcomes []toolOutcome, messageID string) (string, error) {
	serialized, err := json.MarshalIndent(outcomes, "", "  ")
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(`基于以下工具调用结果，为用户提供更详细和准确的回复：

原始回复：%s

工具调用结果：
%s

请结合结果，为用户提供具体、实用的建议。不要在回复中包含任何工具调用指令。`, StripToolCalls(full), serialized)

	messages := []domain.Message{
		{Role: "system", Content: prompt},
		{Role: "user", Content: userInput},
	}

	var synthesis strings.Builder
	err = r.llm.Stream(ctx, messages, nil, func(chunk string) error {
		synthesis.WriteString(chunk)
		if !r.emit(ctx, frames, r.encoder.EncodeTextStream(chunk, messageID)) {
			return context.Canceled
		}
		return nil
	})
	return synthesis.String(), err
}

// emit delivers one frame unless the consumer is gone.
func (r *Runner) emit(ctx context.Context, frames chan<- string, frame string) bool {
	select {
	case frames <- frame:
		return true
	case <-ctx.Done():
		return false
	}
}
