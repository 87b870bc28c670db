package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/agenthands/notalone/internal/core/model"

	// Registers the pure Go "sqlite" driver.
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chat_histories (
	chat_id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	messages TEXT NOT NULL,
	message_count INTEGER NOT NULL DEFAULT 0,
	created_ts INTEGER NOT NULL,
	last_interaction_ts INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_histories_user ON chat_histories (user_id, last_interaction_ts);
CREATE TABLE IF NOT EXISTS relationship_graphs (
	user_id TEXT PRIMARY KEY,
	nodes TEXT NOT NULL,
	links TEXT NOT NULL,
	version TEXT NOT NULL,
	updated_ts INTEGER NOT NULL
);
`

// SQLiteStore is a single-file backend for development and small
// deployments. Timestamps are stored as unix nanoseconds.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at path and creates the schema.
// ":memory:" gives a private in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// Each connection to :memory: is a separate database, and SQLite allows
	// one writer anyway.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.Init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to create sqlite schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close(ctx context.Context) error {
	return s.db.Close()
}

func (s *SQLiteStore) GetChat(ctx context.Context, chatID string) (*model.ChatHistory, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT chat_id, user_id, messages, message_count, created_ts, last_interaction_ts
		FROM chat_histories
		WHERE chat_id = ?`, chatID)

	h, err := scanChat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chat %s: %w", chatID, err)
	}
	return h, nil
}

func (s *SQLiteStore) ListChats(ctx context.Context, userID string) ([]*model.ChatHistory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chat_id, user_id, messages, message_count, created_ts, last_interaction_ts
		FROM chat_histories
		WHERE user_id = ?
		ORDER BY last_interaction_ts DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	chats := []*model.ChatHistory{}
	for rows.Next() {
		h, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		chats = append(chats, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	return chats, nil
}

func (s *SQLiteStore) SaveChat(ctx context.Context, h *model.ChatHistory) error {
	messages, err := encodeMessages(h.Messages)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chat_histories (chat_id, user_id, messages, message_count, created_ts, last_interaction_ts)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (chat_id)
		DO UPDATE SET
			user_id = excluded.user_id,
			messages = excluded.messages,
			message_count = excluded.message_count,
			created_ts = excluded.created_ts,
			last_interaction_ts = excluded.last_interaction_ts`,
		h.ChatID, h.UserID, messages, h.Metadata.MessageCount,
		h.Metadata.CreatedAt.UnixNano(), h.Metadata.LastInteractionTime.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save chat %s: %w", h.ChatID, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteChat(ctx context.Context, chatID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_histories WHERE chat_id = ?`, chatID)
	if err != nil {
		return fmt.Errorf("failed to delete chat %s: %w", chatID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete chat %s: %w", chatID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) GetGraph(ctx context.Context, userID string) (*model.Graph, error) {
	var (
		nodes, links, version string
		updated               int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT nodes, links, version, updated_ts
		FROM relationship_graphs
		WHERE user_id = ?`, userID).Scan(&nodes, &links, &version, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}

	g := model.NewGraph()
	if g.Nodes, err = decodeDocuments[model.Node](nodes); err != nil {
		return nil, err
	}
	if g.Links, err = decodeDocuments[model.Link](links); err != nil {
		return nil, err
	}
	g.Metadata = model.GraphMetadata{LastUpdated: fromUnixNano(updated), Version: version}
	return g, nil
}

func (s *SQLiteStore) SaveGraph(ctx context.Context, userID string, g *model.Graph) error {
	nodes, err := encodeDocuments(g.Nodes)
	if err != nil {
		return err
	}
	links, err := encodeDocuments(g.Links)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO relationship_graphs (user_id, nodes, links, version, updated_ts)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id)
		DO UPDATE SET
			nodes = excluded.nodes,
			links = excluded.links,
			version = excluded.version,
			updated_ts = excluded.updated_ts`,
		userID, nodes, links, g.Metadata.Version, g.Metadata.LastUpdated.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanChat(row scanner) (*model.ChatHistory, error) {
	var (
		h                model.ChatHistory
		messages         string
		count            int
		created, lastAct int64
	)
	if err := row.Scan(&h.ChatID, &h.UserID, &messages, &count, &created, &lastAct); err != nil {
		return nil, err
	}

	msgs, err := decodeMessages(messages)
	if err != nil {
		return nil, err
	}
	h.Messages = msgs
	h.Metadata = model.ChatMetadata{
		CreatedAt:           fromUnixNano(created),
		MessageCount:        count,
		LastInteractionTime: fromUnixNano(lastAct),
	}
	return &h, nil
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
