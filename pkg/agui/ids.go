package agui

import (
	"fmt"

	"github.com/google/uuid"
)

// NewRunID generates an opaque run identifier.
func NewRunID() string {
	return fmt.Sprintf("run_%s", uuid.New().String()[:8])
}

// NewMessageID generates an opaque message identifier.
func NewMessageID() string {
	return fmt.Sprintf("msg_%s", uuid.New().String()[:8])
}

// NewCallID generates an opaque tool-call identifier.
func NewCallID() string {
	return fmt.Sprintf("call_%s", uuid.New().String()[:8])
}

// NewMarkerID generates an opaque map-marker identifier.
func NewMarkerID() string {
	return fmt.Sprintf("marker_%s", uuid.New().String()[:8])
}
