package types

import (
	"fmt"
	"strings"
)

// EventType is the direction of an access event.
type EventType string

const (
	EventEntry EventType = "entry"
	EventExit  EventType = "exit"
)

func (t EventType) Valid() bool {
	return t == EventEntry || t == EventExit
}

func (t EventType) String() string { return string(t) }

// ParseEventType accepts "entry" or "exit" (case-insensitive, trimmed).
func ParseEventType(s string) (EventType, error) {
	t := EventType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("invalid event type %q", s)
	}
	return t, nil
}
