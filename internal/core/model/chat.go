package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleModel     = "model"
)

type ChatMessage struct {
	Role      string `json:"role" validate:"required,oneof=user assistant model"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type ChatMetadata struct {
	CreatedAt           time.Time `json:"createdAt"`
	MessageCount        int       `json:"messageCount"`
	LastInteractionTime time.Time `json:"lastInteractionTime"`
}

// ChatHistory is the append-only transcript of one conversation.
type ChatHistory struct {
	UserID   string        `json:"userId"`
	ChatID   string        `json:"chatId"`
	Messages []ChatMessage `json:"messages"`
	Metadata ChatMetadata  `json:"metadata"`
}

func NewChatHistory(userID, chatID string, now time.Time) *ChatHistory {
	return &ChatHistory{
		UserID:   userID,
		ChatID:   chatID,
		Messages: []ChatMessage{},
		Metadata: ChatMetadata{
			CreatedAt:           now,
			LastInteractionTime: now,
		},
	}
}

func NewMessage(role, content string, now time.Time) ChatMessage {
	return ChatMessage{
		Role:      role,
		Content:   content,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}

// Append adds messages and refreshes the metadata counters.
func (h *ChatHistory) Append(now time.Time, msgs ...ChatMessage) {
	h.Messages = append(h.Messages, msgs...)
	h.Metadata.MessageCount = len(h.Messages)
	h.Metadata.LastInteractionTime = now
}

func (h *ChatHistory) IsEmpty() bool {
	return len(h.Messages) == 0
}
