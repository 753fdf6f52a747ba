package orch

import (
	"encoding/json"

	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
)

// Server to client event types.
const (
	EventEnter   = "enter"
	EventExit    = "exit"
	EventHistory = "history"
	EventMessage = "message"
	EventError   = "error"
	EventLeft    = "left"
	EventPong    = "pong"
)

type PresenceEvent struct {
	Type     string `json:"type"`
	Nickname string `json:"nickname"`
}

type HistoryEvent struct {
	Type     string           `json:"type"`
	Room     domain.RoomName  `json:"room"`
	Messages []domain.Message `json:"messages"`
}

type MessageEvent struct {
	Type string `json:"type"`
	domain.Message
}

type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type SimpleEvent struct {
	Type string `json:"type"`
}

func Encode(v any) (core.Frame, error) {
	return json.Marshal(v)
}
