//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/agenthands/notalone/internal/config"
	"github.com/agenthands/notalone/internal/core"
	"github.com/agenthands/notalone/internal/core/model"
	"github.com/agenthands/notalone/internal/core/prompt"
	"github.com/agenthands/notalone/internal/driver"
	"github.com/agenthands/notalone/internal/llm"
	"github.com/agenthands/notalone/internal/store"
)

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	_ = godotenv.Load("../../.env")
	cfg, err := config.Load("../../config/config.toml")
	require.NoError(t, err)
	return cfg
}

func neo4jStore(t *testing.T, cfg *config.Config) *store.GraphDBStore {
	t.Helper()
	if os.Getenv("NEO4J_URI") == "" {
		t.Skip("NEO4J_URI not set, skipping Neo4j integration test")
	}

	ctx := context.Background()
	d, err := driver.NewNeo4jDriver(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, zaptest.NewLogger(t))
	require.NoError(t, err)

	s := store.NewGraphDBStore(d)
	require.NoError(t, s.Init(ctx))
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestNeo4jStore_ChatLifecycle(t *testing.T) {
	cfg := loadConfig(t)
	s := neo4jStore(t, cfg)
	ctx := context.Background()

	userID := "it-user-" + uuid.NewString()
	chatID := "it-chat-" + uuid.NewString()
	now := time.Now().UTC()

	h := model.NewChatHistory(userID, chatID, now)
	h.Append(now, model.NewMessage(model.RoleUser, "My brother Tom moved to Lisbon.", now))
	require.NoError(t, s.SaveChat(ctx, h))

	got, err := s.GetChat(ctx, chatID)
	require.NoError(t, err)
	assert.Equal(t, userID, got.UserID)
	require.Len(t, got.Messages, 1)
	assert.True(t, now.Equal(got.Metadata.CreatedAt))

	chats, err := s.ListChats(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, chats, 1)

	require.NoError(t, s.DeleteChat(ctx, chatID))
	_, err = s.GetChat(ctx, chatID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteChat(ctx, chatID), store.ErrNotFound)
}

func TestNeo4jStore_Graph(t *testing.T) {
	cfg := loadConfig(t)
	s := neo4jStore(t, cfg)
	ctx := context.Background()
	userID := "it-user-" + uuid.NewString()

	_, err := s.GetGraph(ctx, userID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	g := model.NewGraph()
	g.Nodes = append(g.Nodes, model.Node{"id": "tom", "name": "Tom", "details": map[string]any{"occupation": "chef"}})
	g.Links = append(g.Links, model.Link{"source": "user", "target": "tom", "label": "brother"})
	g.Metadata = model.GraphMetadata{LastUpdated: time.Now().UTC(), Version: model.GraphVersion}
	require.NoError(t, s.SaveGraph(ctx, userID, g))

	got, err := s.GetGraph(ctx, userID)
	require.NoError(t, err)
	require.Len(t, got.Nodes, 1)
	assert.Equal(t, "chef", got.Nodes[0].Details()["occupation"])
	assert.Equal(t, model.GraphVersion, got.Metadata.Version)
}

// TestConversationPipeline talks to the configured completion service.
func TestConversationPipeline(t *testing.T) {
	if os.Getenv("LLM_INTEGRATION") == "" {
		t.Skip("LLM_INTEGRATION not set, skipping completion service test")
	}
	cfg := loadConfig(t)
	log := zaptest.NewLogger(t)
	ctx := context.Background()

	client, err := llm.NewClient(ctx, cfg.LLM, log)
	require.NoError(t, err)

	o := core.NewOrchestrator(store.NewMemoryStore(), client, prompt.NewBuilder(cfg.Prompts), log)
	userID := fmt.Sprintf("it-user-%d", time.Now().Unix())

	opened, err := o.SendMessage(ctx, userID, core.SendMessageRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, opened.Message)

	resp, err := o.SendMessage(ctx, userID, core.SendMessageRequest{
		ChatID:  opened.ChatID,
		Message: "My sister Anna is a nurse in Porto. We used to be close but lately we barely talk.",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Message)
	t.Logf("graph after turn: %d nodes, %d links", len(resp.GraphData.Nodes), len(resp.GraphData.Links))
}
