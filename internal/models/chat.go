package models

import "time"

// ChatRole identifies the author of a chat turn.
type ChatRole string

const (
	ChatRoleUser  ChatRole = "user"
	ChatRoleModel ChatRole = "model"
)

// ChatMessage is one persisted turn of the companion conversation.
type ChatMessage struct {
	Role      ChatRole  `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatRequest is the payload of POST /chat/messages.
type ChatRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// EmergencyContact is a static crisis resource.
type EmergencyContact struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}
