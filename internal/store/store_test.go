package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/agenthands/notalone/internal/core/merge"
	"github.com/agenthands/notalone/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func chat(userID, chatID string, at time.Time, contents ...string) *model.ChatHistory {
	h := model.NewChatHistory(userID, chatID, at)
	for _, c := range contents {
		h.Append(at, model.NewMessage(model.RoleUser, c, at))
	}
	return h
}

// runStoreSuite checks the behaviour every backend must share.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("chat round trip", func(t *testing.T) {
		s := newStore(t)
		h := chat("alice", "c1", t0, "hello", "my sister called")

		require.NoError(t, s.SaveChat(ctx, h))
		got, err := s.GetChat(ctx, "c1")
		require.NoError(t, err)

		assert.Equal(t, "alice", got.UserID)
		assert.Equal(t, "c1", got.ChatID)
		require.Len(t, got.Messages, 2)
		assert.Equal(t, "my sister called", got.Messages[1].Content)
		assert.Equal(t, 2, got.Metadata.MessageCount)
		assert.True(t, t0.Equal(got.Metadata.CreatedAt))
		assert.True(t, t0.Equal(got.Metadata.LastInteractionTime))
	})

	t.Run("missing chat", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetChat(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.DeleteChat(ctx, "nope"), ErrNotFound)
	})

	t.Run("save replaces", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SaveChat(ctx, chat("alice", "c1", t0, "one")))
		require.NoError(t, s.SaveChat(ctx, chat("alice", "c1", t0, "one", "two", "three")))

		got, err := s.GetChat(ctx, "c1")
		require.NoError(t, err)
		assert.Len(t, got.Messages, 3)
	})

	t.Run("list newest first per user", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SaveChat(ctx, chat("alice", "old", t0, "a")))
		require.NoError(t, s.SaveChat(ctx, chat("alice", "new", t0.Add(time.Hour), "b")))
		require.NoError(t, s.SaveChat(ctx, chat("bob", "other", t0.Add(2*time.Hour), "c")))

		chats, err := s.ListChats(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, chats, 2)
		assert.Equal(t, "new", chats[0].ChatID)
		assert.Equal(t, "old", chats[1].ChatID)

		none, err := s.ListChats(ctx, "carol")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.SaveChat(ctx, chat("alice", "c1", t0, "a")))
		require.NoError(t, s.DeleteChat(ctx, "c1"))
		_, err := s.GetChat(ctx, "c1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("graph round trip", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetGraph(ctx, "alice")
		assert.ErrorIs(t, err, ErrNotFound)

		empty, err := GetGraphOrEmpty(ctx, s, "alice")
		require.NoError(t, err)
		assert.Empty(t, empty.Nodes)

		g := model.NewGraph()
		g.Nodes = append(g.Nodes, model.Node{"id": "anna", "name": "Anna", "details": map[string]any{"occupation": "nurse"}})
		g.Links = append(g.Links, model.Link{"source": "user", "target": "anna", "label": "sister"})
		g.Metadata = model.GraphMetadata{LastUpdated: t0, Version: model.GraphVersion}
		require.NoError(t, s.SaveGraph(ctx, "alice", g))

		got, err := s.GetGraph(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, got.Nodes, 1)
		require.Len(t, got.Links, 1)
		assert.Equal(t, "Anna", got.Nodes[0].Name())
		assert.Equal(t, "nurse", got.Nodes[0].Details()["occupation"])
		assert.Equal(t, "sister", got.Links[0]["label"])
		assert.Equal(t, model.GraphVersion, got.Metadata.Version)
		assert.True(t, t0.Equal(got.Metadata.LastUpdated))
	})

	t.Run("raced merges keep the last write", func(t *testing.T) {
		s := newStore(t)
		m := &merge.Merger{Now: func() time.Time { return t0 }}

		base, err := GetGraphOrEmpty(ctx, s, "alice")
		require.NoError(t, err)

		// Both writers read the same snapshot before either saves.
		var read sync.WaitGroup
		read.Add(2)
		snapshots := make([]*model.Graph, 2)
		for i := range snapshots {
			go func(i int) {
				defer read.Done()
				snapshots[i], _ = GetGraphOrEmpty(ctx, s, "alice")
			}(i)
		}
		read.Wait()
		require.Empty(t, base.Nodes)

		first := m.Merge(snapshots[0], &model.Graph{Nodes: []model.Node{{"id": "anna"}}})
		second := m.Merge(snapshots[1], &model.Graph{Nodes: []model.Node{{"id": "ben"}}})
		require.NoError(t, s.SaveGraph(ctx, "alice", first))
		require.NoError(t, s.SaveGraph(ctx, "alice", second))

		got, err := s.GetGraph(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, got.Nodes, 1)
		assert.Equal(t, "ben", got.Nodes[0].ID())
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		s, err := NewSQLiteStore(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close(context.Background()) })
		return s
	})
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	h := chat("alice", "c1", t0, "hello")
	require.NoError(t, s.SaveChat(ctx, h))

	h.Messages[0].Content = "changed"
	got, err := s.GetChat(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Messages[0].Content)
}
