package core

import "github.com/agenthands/notalone/internal/core/model"

// Request values are validated with go-playground/validator tags at the RPC
// boundary before they reach the Orchestrator.

type SendMessageRequest struct {
	Message string `json:"message" validate:"max=10000"`
	ChatID  string `json:"chatId" validate:"omitempty,max=128"`
}

type SendMessageResponse struct {
	Message   string       `json:"message"`
	ChatID    string       `json:"chatId"`
	GraphData *model.Graph `json:"graphData"`
}

type GetChatHistoryRequest struct {
	UserID string `json:"userId" validate:"required"`
	ChatID string `json:"chatId" validate:"omitempty,max=128"`
}

type GetChatHistoryResponse struct {
	Success       bool                 `json:"success"`
	ChatHistories []*model.ChatHistory `json:"chatHistories"`
}

type SaveChatHistoryRequest struct {
	UserID   string              `json:"userId" validate:"required"`
	ChatID   string              `json:"chatId" validate:"required,max=128"`
	Messages []model.ChatMessage `json:"messages" validate:"dive"`
}

type DeleteChatHistoryRequest struct {
	UserID string `json:"userId" validate:"required"`
	ChatID string `json:"chatId" validate:"required,max=128"`
}

// StatusResponse is returned by operations that only report success.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SaveProfileHistoryRequest carries a partial graph. Metadata is accepted
// for compatibility but always recomputed by the merge.
type SaveProfileHistoryRequest struct {
	UserID   string         `json:"userId" validate:"required"`
	Nodes    []model.Node   `json:"nodes"`
	Links    []model.Link   `json:"links"`
	Metadata map[string]any `json:"metadata"`
}

type AnalyzeProfileRequest struct {
	UserID   string              `json:"userId" validate:"required"`
	ChatID   string              `json:"chatId" validate:"required,max=128"`
	Messages []model.ChatMessage `json:"messages" validate:"dive"`
}

type ProfileResponse struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message"`
	GraphData *model.Graph `json:"graphData"`
}

type UserRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type SuggestionsResponse struct {
	Success     bool               `json:"success"`
	Suggestions []model.Suggestion `json:"suggestions"`
}

type GraphResponse struct {
	Success   bool         `json:"success"`
	GraphData *model.Graph `json:"graphData"`
}

type CirclesResponse struct {
	Success bool           `json:"success"`
	Circles []model.Circle `json:"circles"`
}
