package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/agenthands/notalone/internal/core/model"
)

// MemoryStore keeps encoded documents in maps. Values are stored as JSON so
// callers never share state with the store, as with a real database.
type MemoryStore struct {
	mu     sync.RWMutex
	chats  map[string][]byte
	graphs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chats:  make(map[string][]byte),
		graphs: make(map[string][]byte),
	}
}

func (s *MemoryStore) Init(ctx context.Context) error  { return nil }
func (s *MemoryStore) Close(ctx context.Context) error { return nil }

func (s *MemoryStore) GetChat(ctx context.Context, chatID string) (*model.ChatHistory, error) {
	s.mu.RLock()
	data, ok := s.chats[chatID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodeChat(data)
}

func (s *MemoryStore) ListChats(ctx context.Context, userID string) ([]*model.ChatHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chats := []*model.ChatHistory{}
	for _, data := range s.chats {
		h, err := decodeChat(data)
		if err != nil {
			return nil, err
		}
		if h.UserID == userID {
			chats = append(chats, h)
		}
	}
	sortNewestFirst(chats)
	return chats, nil
}

func (s *MemoryStore) SaveChat(ctx context.Context, h *model.ChatHistory) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("failed to marshal chat: %w", err)
	}
	s.mu.Lock()
	s.chats[h.ChatID] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) DeleteChat(ctx context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[chatID]; !ok {
		return ErrNotFound
	}
	delete(s.chats, chatID)
	return nil
}

func (s *MemoryStore) GetGraph(ctx context.Context, userID string) (*model.Graph, error) {
	s.mu.RLock()
	data, ok := s.graphs[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	g := model.NewGraph()
	if err := json.Unmarshal(data, g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph: %w", err)
	}
	if g.Nodes == nil {
		g.Nodes = []model.Node{}
	}
	if g.Links == nil {
		g.Links = []model.Link{}
	}
	return g, nil
}

func (s *MemoryStore) SaveGraph(ctx context.Context, userID string, g *model.Graph) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}
	s.mu.Lock()
	s.graphs[userID] = data
	s.mu.Unlock()
	return nil
}

func decodeChat(data []byte) (*model.ChatHistory, error) {
	var h model.ChatHistory
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chat: %w", err)
	}
	return &h, nil
}
