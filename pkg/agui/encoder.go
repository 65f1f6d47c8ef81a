package agui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Encoder turns AG-UI events into SSE frames:
//
//	event: <KIND>
//	data: <json envelope>
//	<blank line>
//
// Encoding never fails the stream: a malformed event degrades to a frame with
// type "UNKNOWN" or a zero timestamp instead of aborting delivery of the
// events around it.
type Encoder struct{}

// frame is the JSON envelope written on the data line.
type frame struct {
	Type      string                 `json:"type"`
	Timestamp float64                `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// Encode serializes one event to its SSE wire form.
func (Encoder) Encode(event *Event) string {
	eventType := "UNKNOWN"
	var timestamp float64
	data := map[string]interface{}{}
	var metadata map[string]interface{}

	if event != nil {
		if event.Type != "" {
			eventType = string(event.Type)
		}
		timestamp = event.Timestamp
		if event.Data != nil {
			data = event.Data
		}
		metadata = event.Metadata
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(frame{
		Type:      eventType,
		Timestamp: timestamp,
		Data:      data,
		Metadata:  metadata,
	}); err != nil {
		// Unserializable payloads become an error envelope rather than a
		// broken stream.
		return fmt.Sprintf("event: %s\ndata: {\"type\": %q, \"timestamp\": %g, \"data\": {}, \"metadata\": null}\n\n",
			eventType, eventType, timestamp)
	}

	// json.Encoder appends a trailing newline; the SSE frame supplies its own.
	payload := bytes.TrimRight(buf.Bytes(), "\n")

	return fmt.Sprintf("event: %s\ndata: %s\n\n", eventType, payload)
}

// EncodeRunStarted builds and encodes a RUN_STARTED frame.
func (e Encoder) EncodeRunStarted(runID, agentID string) string {
	return e.Encode(NewEvent(EventRunStarted, map[string]interface{}{
		"runId":     runID,
		"agentId":   agentID,
		"timestamp": now(),
	}))
}

// EncodeRunFinished builds and encodes a RUN_FINISHED frame.
func (e Encoder) EncodeRunFinished(runID string, result map[string]interface{}) string {
	if result == nil {
		result = map[string]interface{}{}
	}
	return e.Encode(NewEvent(EventRunFinished, map[string]interface{}{
		"runId":     runID,
		"result":    result,
		"timestamp": now(),
	}))
}

// EncodeRunError builds and encodes a RUN_ERROR frame.
func (e Encoder) EncodeRunError(runID, errMsg string) string {
	return e.Encode(NewEvent(EventRunError, map[string]interface{}{
		"runId":     runID,
		"error":     errMsg,
		"timestamp": now(),
	}))
}

// EncodeTextStream builds and encodes a TEXT_MESSAGE_DELTA frame.
func (e Encoder) EncodeTextStream(chunk, messageID string) string {
	return e.Encode(NewEvent(EventTextMessageDelta, map[string]interface{}{
		"delta":     chunk,
		"messageId": messageID,
	}))
}

// EncodeTextMessageContent builds and encodes a TEXT_MESSAGE_CONTENT frame.
func (e Encoder) EncodeTextMessageContent(content, messageID string) string {
	return e.Encode(NewEvent(EventTextMessageContent, map[string]interface{}{
		"content":   content,
		"messageId": messageID,
	}))
}

// EncodeSystemMessage builds and encodes a SYSTEM_MESSAGE frame.
func (e Encoder) EncodeSystemMessage(message, level string) string {
	if level == "" {
		level = "info"
	}
	return e.Encode(NewEvent(EventSystemMessage, map[string]interface{}{
		"message": message,
		"level":   level,
	}))
}

// EncodeSystemError builds and encodes a SYSTEM_ERROR frame.
func (e Encoder) EncodeSystemError(errMsg string) string {
	return e.Encode(NewEvent(EventSystemError, map[string]interface{}{
		"error": errMsg,
		"level": "error",
	}))
}

func now() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
