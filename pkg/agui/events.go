package agui

import (
	"time"
)

// EventType identifies one of the 17 standard AG-UI event kinds.
type EventType string

const (
	// Core events
	EventRunStarted  EventType = "RUN_STARTED"
	EventRunFinished EventType = "RUN_FINISHED"
	EventRunError    EventType = "RUN_ERROR"

	// Message events
	EventTextMessageContent EventType = "TEXT_MESSAGE_CONTENT"
	EventTextMessageDelta   EventType = "TEXT_MESSAGE_DELTA"
	EventTextMessageDone    EventType = "TEXT_MESSAGE_DONE"

	// Tool events
	EventToolCallStarted  EventType = "TOOL_CALL_STARTED"
	EventToolCallFinished EventType = "TOOL_CALL_FINISHED"
	EventToolCallError    EventType = "TOOL_CALL_ERROR"
	EventToolCallRequest  EventType = "TOOL_CALL_REQUEST"
	EventToolCallResult   EventType = "TOOL_CALL_RESULT"

	// State events
	EventStateSnapshot EventType = "STATE_SNAPSHOT"
	EventStateDelta    EventType = "STATE_DELTA"

	// User events
	EventUserInputRequested EventType = "USER_INPUT_REQUESTED"
	EventUserInputReceived  EventType = "USER_INPUT_RECEIVED"

	// System events
	EventSystemMessage EventType = "SYSTEM_MESSAGE"
	EventSystemError   EventType = "SYSTEM_ERROR"
)

// Event is the AG-UI event envelope. Data always carries the kind's required
// fields; construction through NewEvent fills any the caller omits.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp float64                `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// eventDefaults maps each event kind to the payload fields it must carry.
// Values here are substituted for anything the caller leaves out so that a
// client never sees a missing required display field.
var eventDefaults = map[EventType]map[string]interface{}{
	EventRunStarted:         {"runId": "", "agentId": "", "timestamp": 0.0},
	EventRunFinished:        {"runId": "", "result": map[string]interface{}{}, "timestamp": 0.0},
	EventRunError:           {"runId": "", "error": "", "timestamp": 0.0},
	EventTextMessageContent: {"content": "", "messageId": "", "role": "assistant"},
	EventTextMessageDelta:   {"delta": "", "messageId": ""},
	EventTextMessageDone:    {"messageId": ""},
	EventToolCallStarted:    {"toolCallId": "", "toolName": "", "parameters": map[string]interface{}{}},
	EventToolCallFinished:   {"toolCallId": "", "result": map[string]interface{}{}},
	EventToolCallError:      {"toolCallId": "", "error": ""},
	EventToolCallRequest:    {"toolName": "", "parameters": map[string]interface{}{}, "callId": ""},
	EventToolCallResult:     {"callId": "", "result": map[string]interface{}{}},
	EventStateSnapshot:      {"state": map[string]interface{}{}},
	EventStateDelta:         {"delta": map[string]interface{}{}},
	EventUserInputRequested: {"prompt": "", "inputType": "text"},
	EventUserInputReceived:  {"input": "", "inputType": "text"},
	EventSystemMessage:      {"message": "", "level": "info"},
	EventSystemError:        {"error": "", "level": "error"},
}

// NewEvent creates an event of the given kind, merging data over the kind's
// required-field defaults. It never fails: a nil data map is treated as empty
// and an unknown kind gets an empty payload.
func NewEvent(eventType EventType, data map[string]interface{}) *Event {
	merged := make(map[string]interface{})
	for k, v := range eventDefaults[eventType] {
		merged[k] = v
	}
	for k, v := range data {
		if v == nil {
			continue
		}
		merged[k] = v
	}

	return &Event{
		Type:      eventType,
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
		Data:      merged,
	}
}

// IsCoreEvent reports whether the kind is a run lifecycle event.
func IsCoreEvent(t EventType) bool {
	switch t {
	case EventRunStarted, EventRunFinished, EventRunError:
		return true
	}
	return false
}

// IsMessageEvent reports whether the kind carries assistant text.
func IsMessageEvent(t EventType) bool {
	switch t {
	case EventTextMessageContent, EventTextMessageDelta, EventTextMessageDone:
		return true
	}
	return false
}

// IsToolEvent reports whether the kind belongs to the tool-call exchange.
func IsToolEvent(t EventType) bool {
	switch t {
	case EventToolCallStarted, EventToolCallFinished, EventToolCallError,
		EventToolCallRequest, EventToolCallResult:
		return true
	}
	return false
}

// KnownEventType reports whether t is one of the closed set of kinds.
func KnownEventType(t EventType) bool {
	_, ok := eventDefaults[t]
	return ok
}
