// Package store persists chat histories and relationship graphs.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/agenthands/notalone/internal/config"
	"github.com/agenthands/notalone/internal/core/model"
	"github.com/agenthands/notalone/internal/driver"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a chat or graph does not exist.
var ErrNotFound = errors.New("not found")

// ChatStore keeps one document per chat, keyed by chat id.
type ChatStore interface {
	GetChat(ctx context.Context, chatID string) (*model.ChatHistory, error)
	// ListChats returns the chats owned by userID, newest interaction first.
	ListChats(ctx context.Context, userID string) ([]*model.ChatHistory, error)
	// SaveChat creates or replaces the document for h.ChatID.
	SaveChat(ctx context.Context, h *model.ChatHistory) error
	DeleteChat(ctx context.Context, chatID string) error
}

// GraphStore keeps one relationship graph per user.
type GraphStore interface {
	GetGraph(ctx context.Context, userID string) (*model.Graph, error)
	SaveGraph(ctx context.Context, userID string, g *model.Graph) error
}

// Store is a complete persistence backend. Individual operations are safe for
// concurrent use; read-modify-write sequences are not serialized.
type Store interface {
	ChatStore
	GraphStore
	// Init creates indices or tables. It is idempotent.
	Init(ctx context.Context) error
	Close(ctx context.Context) error
}

// Open builds the store selected by cfg.Store.Driver.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (Store, error) {
	switch cfg.Store.Driver {
	case "neo4j":
		d, err := driver.NewNeo4jDriver(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, log)
		if err != nil {
			return nil, err
		}
		return NewGraphDBStore(d), nil
	case "sqlite":
		return NewSQLiteStore(cfg.SQLite.Path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// GetGraphOrEmpty returns the stored graph of userID, or an empty graph when
// none exists yet.
func GetGraphOrEmpty(ctx context.Context, s GraphStore, userID string) (*model.Graph, error) {
	g, err := s.GetGraph(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return model.NewGraph(), nil
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

func sortNewestFirst(chats []*model.ChatHistory) {
	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].Metadata.LastInteractionTime.After(chats[j].Metadata.LastInteractionTime)
	})
}

func encodeMessages(msgs []model.ChatMessage) (string, error) {
	if msgs == nil {
		msgs = []model.ChatMessage{}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal messages: %w", err)
	}
	return string(data), nil
}

func decodeMessages(data string) ([]model.ChatMessage, error) {
	msgs := []model.ChatMessage{}
	if data == "" {
		return msgs, nil
	}
	if err := json.Unmarshal([]byte(data), &msgs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}
	return msgs, nil
}

func encodeDocuments[T ~map[string]any](docs []T) (string, error) {
	if docs == nil {
		docs = []T{}
	}
	data, err := json.Marshal(docs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal graph: %w", err)
	}
	return string(data), nil
}

func decodeDocuments[T ~map[string]any](data string) ([]T, error) {
	docs := []T{}
	if data == "" {
		return docs, nil
	}
	if err := json.Unmarshal([]byte(data), &docs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph: %w", err)
	}
	return docs, nil
}
