package agui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventFillsDefaults(t *testing.T) {
	tests := []struct {
		name      string
		eventType EventType
		data      map[string]interface{}
		wantKeys  []string
	}{
		{
			name:      "run started without data",
			eventType: EventRunStarted,
			data:      nil,
			wantKeys:  []string{"runId", "agentId", "timestamp"},
		},
		{
			name:      "text delta without message id",
			eventType: EventTextMessageDelta,
			data:      map[string]interface{}{"delta": "hello"},
			wantKeys:  []string{"delta", "messageId"},
		},
		{
			name:      "tool call request",
			eventType: EventToolCallRequest,
			data:      nil,
			wantKeys:  []string{"toolName", "parameters", "callId"},
		},
		{
			name:      "run error",
			eventType: EventRunError,
			data:      nil,
			wantKeys:  []string{"runId", "error", "timestamp"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := NewEvent(tt.eventType, tt.data)
			require.NotNil(t, event)
			assert.Equal(t, tt.eventType, event.Type)
			for _, key := range tt.wantKeys {
				assert.Contains(t, event.Data, key, "missing default field %q", key)
			}
		})
	}
}

func TestNewEventCallerDataWins(t *testing.T) {
	event := NewEvent(EventTextMessageDelta, map[string]interface{}{
		"delta":     "world",
		"messageId": "msg_deadbeef",
	})

	assert.Equal(t, "world", event.Data["delta"])
	assert.Equal(t, "msg_deadbeef", event.Data["messageId"])
}

func TestNewEventSkipsNilValues(t *testing.T) {
	event := NewEvent(EventRunFinished, map[string]interface{}{
		"runId":  "run_12345678",
		"result": nil,
	})

	// A nil value must not clobber the default.
	assert.Equal(t, "run_12345678", event.Data["runId"])
	assert.NotNil(t, event.Data["result"])
}

func TestNewEventTimestamp(t *testing.T) {
	before := float64(time.Now().UnixNano()) / float64(time.Second)
	event := NewEvent(EventSystemMessage, nil)
	after := float64(time.Now().UnixNano()) / float64(time.Second)

	assert.GreaterOrEqual(t, event.Timestamp, before)
	assert.LessOrEqual(t, event.Timestamp, after)
}

func TestKnownEventType(t *testing.T) {
	for _, eventType := range []EventType{
		EventRunStarted, EventRunFinished, EventRunError,
		EventTextMessageContent, EventTextMessageDelta, EventTextMessageDone,
		EventToolCallStarted, EventToolCallFinished, EventToolCallError,
		EventToolCallRequest, EventToolCallResult,
		EventStateSnapshot, EventStateDelta,
		EventUserInputRequested, EventUserInputReceived,
		EventSystemMessage, EventSystemError,
	} {
		assert.True(t, KnownEventType(eventType), "expected %s to be known", eventType)
	}

	assert.False(t, KnownEventType(EventType("BOGUS_EVENT")))
}

func TestIDGenerators(t *testing.T) {
	runID := NewRunID()
	msgID := NewMessageID()

	assert.Regexp(t, `^run_[0-9a-f]{8}$`, runID)
	assert.Regexp(t, `^msg_[0-9a-f]{8}$`, msgID)
	assert.Regexp(t, `^call_[0-9a-f]{8}$`, NewCallID())
	assert.Regexp(t, `^marker_[0-9a-f]{8}$`, NewMarkerID())
	assert.NotEqual(t, NewRunID(), runID)
}
