package store

import (
	"context"
	"fmt"
	"time"

	"github.com/agenthands/notalone/internal/core/model"
	"github.com/agenthands/notalone/internal/driver"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// GraphDBStore keeps chats and graphs in Neo4j:
//
//	(:User {id})-[:OWNS]->(:Chat {chat_id, user_id, messages, ...})
//	(:User {id})-[:HAS_GRAPH]->(:RelationshipGraph {user_id, nodes, links, ...})
//
// Messages, nodes and links are stored as JSON strings since node documents
// are free-form and nested.
type GraphDBStore struct {
	Driver driver.GraphDriver
}

func NewGraphDBStore(d driver.GraphDriver) *GraphDBStore {
	return &GraphDBStore{Driver: d}
}

func (s *GraphDBStore) Init(ctx context.Context) error {
	return s.Driver.BuildIndices(ctx)
}

func (s *GraphDBStore) Close(ctx context.Context) error {
	return s.Driver.Close(ctx)
}

func (s *GraphDBStore) GetChat(ctx context.Context, chatID string) (*model.ChatHistory, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.GetChatQuery, map[string]any{"chat_id": chatID})
	if err != nil {
		return nil, fmt.Errorf("failed to load chat %s: %w", chatID, err)
	}
	if len(res.Records) == 0 {
		return nil, ErrNotFound
	}
	return chatFromRecord(res.Records[0])
}

func (s *GraphDBStore) ListChats(ctx context.Context, userID string) ([]*model.ChatHistory, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.ListChatsQuery, map[string]any{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}

	chats := make([]*model.ChatHistory, 0, len(res.Records))
	for _, rec := range res.Records {
		h, err := chatFromRecord(rec)
		if err != nil {
			return nil, err
		}
		chats = append(chats, h)
	}
	sortNewestFirst(chats)
	return chats, nil
}

func (s *GraphDBStore) SaveChat(ctx context.Context, h *model.ChatHistory) error {
	messages, err := encodeMessages(h.Messages)
	if err != nil {
		return err
	}

	params := map[string]any{
		"chat_id":               h.ChatID,
		"user_id":               h.UserID,
		"messages":              messages,
		"created_at":            formatTime(h.Metadata.CreatedAt),
		"message_count":         int64(h.Metadata.MessageCount),
		"last_interaction_time": formatTime(h.Metadata.LastInteractionTime),
	}
	if _, err := s.Driver.ExecuteQuery(ctx, driver.SaveChatQuery, params); err != nil {
		return fmt.Errorf("failed to save chat %s: %w", h.ChatID, err)
	}
	return nil
}

func (s *GraphDBStore) DeleteChat(ctx context.Context, chatID string) error {
	res, err := s.Driver.ExecuteQuery(ctx, driver.DeleteChatQuery, map[string]any{"chat_id": chatID})
	if err != nil {
		return fmt.Errorf("failed to delete chat %s: %w", chatID, err)
	}
	if len(res.Records) == 0 {
		return ErrNotFound
	}
	if deleted, _ := res.Records[0].Get("deleted"); deleted == int64(0) {
		return ErrNotFound
	}
	return nil
}

func (s *GraphDBStore) GetGraph(ctx context.Context, userID string) (*model.Graph, error) {
	res, err := s.Driver.ExecuteQuery(ctx, driver.GetGraphQuery, map[string]any{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}
	if len(res.Records) == 0 {
		return nil, ErrNotFound
	}
	rec := res.Records[0]

	nodesJSON, _ := rec.Get("nodes")
	linksJSON, _ := rec.Get("links")
	lastUpdated, _ := rec.Get("last_updated")
	version, _ := rec.Get("version")

	g := model.NewGraph()
	if g.Nodes, err = decodeDocuments[model.Node](asString(nodesJSON)); err != nil {
		return nil, err
	}
	if g.Links, err = decodeDocuments[model.Link](asString(linksJSON)); err != nil {
		return nil, err
	}
	g.Metadata.LastUpdated = parseTime(asString(lastUpdated))
	g.Metadata.Version = asString(version)
	return g, nil
}

func (s *GraphDBStore) SaveGraph(ctx context.Context, userID string, g *model.Graph) error {
	nodes, err := encodeDocuments(g.Nodes)
	if err != nil {
		return err
	}
	links, err := encodeDocuments(g.Links)
	if err != nil {
		return err
	}

	params := map[string]any{
		"user_id":      userID,
		"nodes":        nodes,
		"links":        links,
		"last_updated": formatTime(g.Metadata.LastUpdated),
		"version":      g.Metadata.Version,
	}
	if _, err := s.Driver.ExecuteQuery(ctx, driver.SaveGraphQuery, params); err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}
	return nil
}

func chatFromRecord(rec *neo4j.Record) (*model.ChatHistory, error) {
	chatID, _ := rec.Get("chat_id")
	userID, _ := rec.Get("user_id")
	messagesJSON, _ := rec.Get("messages")
	createdAt, _ := rec.Get("created_at")
	count, _ := rec.Get("message_count")
	lastInteraction, _ := rec.Get("last_interaction_time")

	msgs, err := decodeMessages(asString(messagesJSON))
	if err != nil {
		return nil, err
	}

	h := &model.ChatHistory{
		ChatID:   asString(chatID),
		UserID:   asString(userID),
		Messages: msgs,
		Metadata: model.ChatMetadata{
			CreatedAt:           parseTime(asString(createdAt)),
			MessageCount:        len(msgs),
			LastInteractionTime: parseTime(asString(lastInteraction)),
		},
	}
	if n, ok := count.(int64); ok {
		h.Metadata.MessageCount = int(n)
	}
	return h, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
