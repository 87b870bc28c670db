// Package core implements the chat and profile operations of the service.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agenthands/notalone/internal/apperr"
	"github.com/agenthands/notalone/internal/core/community"
	"github.com/agenthands/notalone/internal/core/extraction"
	"github.com/agenthands/notalone/internal/core/merge"
	"github.com/agenthands/notalone/internal/core/model"
	"github.com/agenthands/notalone/internal/core/prompt"
	"github.com/agenthands/notalone/internal/llm"
	"github.com/agenthands/notalone/internal/logger"
	"github.com/agenthands/notalone/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const rateLimitedMessage = "The AI service is busy right now. Please try again in a moment."

// Orchestrator ties the completion service, the stores and the graph
// pipeline together. It holds no per-request state and is safe for
// concurrent use.
type Orchestrator struct {
	Chats    store.ChatStore
	Graphs   store.GraphStore
	LLM      llm.LLMClient
	Prompts  *prompt.Builder
	Merger   *merge.Merger
	Detector community.Detector
	Log      *zap.Logger

	// Now and NewID are replaceable in tests.
	Now   func() time.Time
	NewID func() string
}

func NewOrchestrator(s store.Store, client llm.LLMClient, prompts *prompt.Builder, log *zap.Logger) *Orchestrator {
	o := &Orchestrator{
		Chats:    s,
		Graphs:   s,
		LLM:      client,
		Prompts:  prompts,
		Detector: &community.FallbackDetector{Primary: community.NewLabelPropagationDetector(), Fallback: community.NewComponentDetector()},
		Log:      logger.OrNop(log),
		Now:      time.Now,
		NewID:    uuid.NewString,
	}
	o.Merger = &merge.Merger{Now: o.now}
	return o
}

// SendMessage runs one conversational turn and updates the caller's graph
// from the whole transcript.
func (o *Orchestrator) SendMessage(ctx context.Context, callerID string, req SendMessageRequest) (*SendMessageResponse, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	log := o.Log.With(zap.String("user_id", callerID))

	history, err := o.loadOrCreateChat(ctx, callerID, req.ChatID)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("chat_id", history.ChatID))

	graph, err := store.GetGraphOrEmpty(ctx, o.Graphs, callerID)
	if err != nil {
		log.Error("Failed to load graph", zap.Error(err))
		return nil, apperr.Internal("Failed to load relationship graph", err)
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		if !history.IsEmpty() {
			return &SendMessageResponse{Message: "", ChatID: history.ChatID, GraphData: graph}, nil
		}
		return o.openChat(ctx, log, history, graph)
	}

	reply, err := o.LLM.Chat(ctx, o.Prompts.System, o.llmHistory(history.Messages), message)
	if err != nil {
		log.Error("Completion call failed", zap.Error(err))
		return nil, llmError("Failed to get a response from the AI service", err)
	}

	now := o.now()
	history.Append(now,
		model.NewMessage(model.RoleUser, message, now),
		model.NewMessage(model.RoleAssistant, reply, now),
	)
	if err := o.Chats.SaveChat(ctx, history); err != nil {
		log.Error("Failed to save chat history", zap.Error(err))
		return nil, apperr.Internal("Failed to save chat history", err)
	}

	updated, err := o.analyze(ctx, callerID, history.Messages, message, graph)
	switch {
	case errors.Is(err, extraction.ErrExtraction):
		log.Warn("Could not extract graph from analysis", zap.Error(err))
		updated = graph
	case err != nil:
		log.Error("Graph analysis failed", zap.Error(err))
		return nil, llmError("Failed to analyze the conversation", err)
	}

	log.Debug("Message processed",
		zap.Int("message_count", history.Metadata.MessageCount),
		zap.Int("nodes", len(updated.Nodes)),
		zap.Int("links", len(updated.Links)),
	)
	return &SendMessageResponse{Message: reply, ChatID: history.ChatID, GraphData: updated}, nil
}

// openChat asks the model to start an empty conversation. The graph is not
// analyzed since the user has not said anything yet.
func (o *Orchestrator) openChat(ctx context.Context, log *zap.Logger, history *model.ChatHistory, graph *model.Graph) (*SendMessageResponse, error) {
	reply, err := o.LLM.Chat(ctx, o.Prompts.System, nil, o.Prompts.Opener)
	if err != nil {
		log.Error("Opener completion failed", zap.Error(err))
		return nil, llmError("Failed to get a response from the AI service", err)
	}

	now := o.now()
	history.Append(now, model.NewMessage(model.RoleAssistant, reply, now))
	if err := o.Chats.SaveChat(ctx, history); err != nil {
		log.Error("Failed to save chat history", zap.Error(err))
		return nil, apperr.Internal("Failed to save chat history", err)
	}
	return &SendMessageResponse{Message: reply, ChatID: history.ChatID, GraphData: graph}, nil
}

// GetChatHistory lists the caller's chats, newest first, or returns the one
// chat named in the request.
func (o *Orchestrator) GetChatHistory(ctx context.Context, callerID string, req GetChatHistoryRequest) (*GetChatHistoryResponse, error) {
	if err := requireOwner(callerID, req.UserID); err != nil {
		return nil, err
	}

	if req.ChatID != "" {
		h, err := o.ownedChat(ctx, callerID, req.ChatID)
		if err != nil {
			return nil, err
		}
		return &GetChatHistoryResponse{Success: true, ChatHistories: []*model.ChatHistory{h}}, nil
	}

	chats, err := o.Chats.ListChats(ctx, callerID)
	if err != nil {
		o.Log.Error("Failed to list chats", zap.String("user_id", callerID), zap.Error(err))
		return nil, apperr.Internal("Failed to get chat history", err)
	}
	return &GetChatHistoryResponse{Success: true, ChatHistories: chats}, nil
}

// SaveChatHistory replaces the messages of a chat. The creation time of an
// existing chat is kept.
func (o *Orchestrator) SaveChatHistory(ctx context.Context, callerID string, req SaveChatHistoryRequest) (*StatusResponse, error) {
	if err := requireOwner(callerID, req.UserID); err != nil {
		return nil, err
	}

	now := o.now()
	h := model.NewChatHistory(callerID, req.ChatID, now)

	existing, err := o.Chats.GetChat(ctx, req.ChatID)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		o.Log.Error("Failed to load chat", zap.String("chat_id", req.ChatID), zap.Error(err))
		return nil, apperr.Internal("Failed to save chat history", err)
	case existing.UserID != callerID:
		return nil, apperr.PermissionDenied("You do not have access to this chat")
	default:
		h.Metadata.CreatedAt = existing.Metadata.CreatedAt
	}

	h.Append(now, req.Messages...)
	if err := o.Chats.SaveChat(ctx, h); err != nil {
		o.Log.Error("Failed to save chat history", zap.String("chat_id", req.ChatID), zap.Error(err))
		return nil, apperr.Internal("Failed to save chat history", err)
	}
	return &StatusResponse{Success: true, Message: "Chat history saved successfully"}, nil
}

func (o *Orchestrator) DeleteChatHistory(ctx context.Context, callerID string, req DeleteChatHistoryRequest) (*StatusResponse, error) {
	if err := requireOwner(callerID, req.UserID); err != nil {
		return nil, err
	}
	if _, err := o.ownedChat(ctx, callerID, req.ChatID); err != nil {
		return nil, err
	}

	err := o.Chats.DeleteChat(ctx, req.ChatID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.NotFound("Chat history not found")
	case err != nil:
		o.Log.Error("Failed to delete chat history", zap.String("chat_id", req.ChatID), zap.Error(err))
		return nil, apperr.Internal("Failed to delete chat history", err)
	}
	return &StatusResponse{Success: true, Message: "Chat history deleted successfully"}, nil
}

// SaveProfileHistory merges client-supplied nodes and links into the
// caller's graph.
func (o *Orchestrator) SaveProfileHistory(ctx context.Context, callerID string, req SaveProfileHistoryRequest) (*ProfileResponse, error) {
	if err := requireOwner(callerID, req.UserID); err != nil {
		return nil, err
	}
	for i, n := range req.Nodes {
		if !n.HasID() {
			return nil, apperr.InvalidArgument(fmt.Sprintf("nodes[%d] must have a string id", i))
		}
	}
	for i, l := range req.Links {
		if !l.HasEndpoints() {
			return nil, apperr.InvalidArgument(fmt.Sprintf("links[%d] must have a string source and target", i))
		}
	}

	current, err := store.GetGraphOrEmpty(ctx, o.Graphs, callerID)
	if err != nil {
		o.Log.Error("Failed to load graph", zap.String("user_id", callerID), zap.Error(err))
		return nil, apperr.Internal("Failed to save profile", err)
	}

	merged := o.Merger.Merge(current, &model.Graph{Nodes: req.Nodes, Links: req.Links})
	if err := o.Graphs.SaveGraph(ctx, callerID, merged); err != nil {
		o.Log.Error("Failed to save graph", zap.String("user_id", callerID), zap.Error(err))
		return nil, apperr.Internal("Failed to save profile", err)
	}
	return &ProfileResponse{Success: true, Message: "Profile saved successfully", GraphData: merged}, nil
}

// AnalyzeProfileFromChat runs graph analysis over the supplied messages, or
// over the stored chat when none are supplied.
func (o *Orchestrator) AnalyzeProfileFromChat(ctx context.Context, callerID string, req AnalyzeProfileRequest) (*ProfileResponse, error) {
	if err := requireOwner(callerID, req.UserID); err != nil {
		return nil, err
	}
	log := o.Log.With(zap.String("user_id", callerID), zap.String("chat_id", req.ChatID))

	transcript := req.Messages
	if len(transcript) == 0 {
		h, err := o.ownedChat(ctx, callerID, req.ChatID)
		if err != nil {
			return nil, err
		}
		transcript = h.Messages
	}
	if len(transcript) == 0 {
		return nil, apperr.InvalidArgument("There are no messages to analyze")
	}

	current, err := store.GetGraphOrEmpty(ctx, o.Graphs, callerID)
	if err != nil {
		log.Error("Failed to load graph", zap.Error(err))
		return nil, apperr.Internal("Failed to analyze profile", err)
	}

	updated, err := o.analyze(ctx, callerID, transcript, "", current)
	if err != nil {
		log.Error("Profile analysis failed", zap.Error(err))
		return nil, llmError("Failed to analyze profile", err)
	}
	return &ProfileResponse{Success: true, Message: "Profile analyzed successfully", GraphData: updated}, nil
}

func (o *Orchestrator) GetSuggestions(ctx context.Context, callerID string) (*SuggestionsResponse, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	return &SuggestionsResponse{Success: true, Suggestions: Suggestions()}, nil
}

func (o *Orchestrator) GetProfileGraph(ctx context.Context, callerID string, req UserRequest) (*GraphResponse, error) {
	if err := requireOwner(callerID, req.UserID); err != nil {
		return nil, err
	}
	g, err := store.GetGraphOrEmpty(ctx, o.Graphs, callerID)
	if err != nil {
		o.Log.Error("Failed to load graph", zap.String("user_id", callerID), zap.Error(err))
		return nil, apperr.Internal("Failed to load relationship graph", err)
	}
	return &GraphResponse{Success: true, GraphData: g}, nil
}

// GetRelationshipCircles groups the people in the caller's graph into
// circles of closely connected people.
func (o *Orchestrator) GetRelationshipCircles(ctx context.Context, callerID string, req UserRequest) (*CirclesResponse, error) {
	if err := requireOwner(callerID, req.UserID); err != nil {
		return nil, err
	}
	g, err := store.GetGraphOrEmpty(ctx, o.Graphs, callerID)
	if err != nil {
		o.Log.Error("Failed to load graph", zap.String("user_id", callerID), zap.Error(err))
		return nil, apperr.Internal("Failed to load relationship graph", err)
	}

	circles, err := community.Circles(g, o.Detector)
	if err != nil {
		return nil, apperr.Internal("Failed to compute relationship circles", err)
	}
	return &CirclesResponse{Success: true, Circles: circles}, nil
}

// analyze asks the model for a partial graph and merges it into current.
// latest is the message that triggered the analysis, if any.
// Errors wrapping extraction.ErrExtraction mean the model answered but no
// usable graph could be read from it.
func (o *Orchestrator) analyze(ctx context.Context, userID string, transcript []model.ChatMessage, latest string, current *model.Graph) (*model.Graph, error) {
	p, err := o.Prompts.BuildAnalysis(transcript, latest, current)
	if err != nil {
		return nil, err
	}

	text, err := o.LLM.Generate(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("analysis completion failed: %w", err)
	}

	partial, err := extraction.Extract(text)
	if err != nil {
		return nil, err
	}

	merged := o.Merger.Merge(current, partial)
	if err := o.Graphs.SaveGraph(ctx, userID, merged); err != nil {
		return nil, fmt.Errorf("failed to save graph: %w", err)
	}
	return merged, nil
}

// loadOrCreateChat returns the caller's chat, or a new empty one when chatID
// is blank.
func (o *Orchestrator) loadOrCreateChat(ctx context.Context, callerID, chatID string) (*model.ChatHistory, error) {
	if chatID == "" {
		return model.NewChatHistory(callerID, o.NewID(), o.now()), nil
	}
	return o.ownedChat(ctx, callerID, chatID)
}

func (o *Orchestrator) ownedChat(ctx context.Context, callerID, chatID string) (*model.ChatHistory, error) {
	h, err := o.Chats.GetChat(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Chat history not found")
	}
	if err != nil {
		o.Log.Error("Failed to load chat", zap.String("chat_id", chatID), zap.Error(err))
		return nil, apperr.Internal("Failed to load chat history", err)
	}
	if h.UserID != callerID {
		return nil, apperr.PermissionDenied("You do not have access to this chat")
	}
	return h, nil
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

func requireCaller(callerID string) error {
	if callerID == "" {
		return apperr.Unauthenticated("The function must be called while authenticated.")
	}
	return nil
}

func requireOwner(callerID, userID string) error {
	if err := requireCaller(callerID); err != nil {
		return err
	}
	if callerID != userID {
		return apperr.PermissionDenied("You can only access your own data")
	}
	return nil
}

func llmError(message string, err error) error {
	if errors.Is(err, llm.ErrRateLimited) {
		return apperr.ResourceExhausted(rateLimitedMessage, err)
	}
	return apperr.Internal(message, err)
}

// llmHistory converts stored messages to completion turns. A chat started
// by the opener begins with an assistant message; the opener prompt is put
// back in front of it since providers expect the user to speak first.
func (o *Orchestrator) llmHistory(msgs []model.ChatMessage) []llm.Message {
	out := make([]llm.Message, 0, len(msgs)+1)
	for i, m := range msgs {
		role := llm.RoleUser
		if m.Role == model.RoleAssistant || m.Role == model.RoleModel {
			role = llm.RoleAssistant
		}
		if i == 0 && role == llm.RoleAssistant {
			out = append(out, llm.Message{Role: llm.RoleUser, Content: o.Prompts.Opener})
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out
}
