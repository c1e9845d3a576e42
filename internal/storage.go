package internal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrAmbiguousID          = errors.New("conversation id prefix is ambiguous")
)

// ConversationSummary is a row of the history listing
type ConversationSummary struct {
	ID           string
	Title        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
}

// HistoryStore persists conversations in SQLite
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStore wraps an open, migrated database
func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// SaveConversation inserts or replaces conv and all of its messages
func (s *HistoryStore) SaveConversation(ctx context.Context, conv *Conversation) error {
	if conv == nil || conv.ID == "" {
		return &ValidationError{Field: "conversation", Reason: "missing id"}
	}
	if conv.Title == "" {
		conv.Title = DeriveTitle(conv.Messages)
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = conv.CreatedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin failed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`,
		conv.ID, conv.Title, formatTime(conv.CreatedAt), formatTime(conv.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert conversation failed: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, conv.ID); err != nil {
		return fmt.Errorf("clear messages failed: %w", err)
	}

	for i, msg := range conv.Messages {
		prediction, err := marshalNullable(msg.Prediction != nil, msg.Prediction)
		if err != nil {
			return fmt.Errorf("failed to marshal prediction: %w", err)
		}
		dlogic, err := marshalNullable(msg.DLogic != nil, msg.DLogic)
		if err != nil {
			return fmt.Errorf("failed to marshal d-logic result: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO messages (id, conversation_id, seq, role, content, created_at, prediction_json, dlogic_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			msg.ID, conv.ID, i, string(msg.Role), msg.Content, formatTime(msg.Timestamp), prediction, dlogic)
		if err != nil {
			return fmt.Errorf("insert message %d failed: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

// ListConversations returns conversations, most recently updated first.
// A limit of zero returns all of them.
func (s *HistoryStore) ListConversations(ctx context.Context, limit int) ([]ConversationSummary, error) {
	query := `
		SELECT c.id, c.title, c.created_at, c.updated_at, COUNT(m.id)
		FROM conversations c LEFT JOIN messages m ON m.conversation_id = c.id
		GROUP BY c.id
		ORDER BY c.updated_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []ConversationSummary
	for rows.Next() {
		var sum ConversationSummary
		var created, updated string
		if err := rows.Scan(&sum.ID, &sum.Title, &created, &updated, &sum.MessageCount); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		sum.CreatedAt = parseTime(created)
		sum.UpdatedAt = parseTime(updated)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

// ResolveID expands a unique id prefix to the full conversation id
func (s *HistoryStore) ResolveID(ctx context.Context, idOrPrefix string) (string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM conversations WHERE id = ? OR id LIKE ? ESCAPE '\' ORDER BY id LIMIT 3`,
		idOrPrefix, likePrefix(idOrPrefix))
	if err != nil {
		return "", fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan failed: %w", err)
		}
		if id == idOrPrefix {
			return id, nil
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("rows iteration error: %w", err)
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrConversationNotFound, idOrPrefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousID, idOrPrefix)
	}
}

// likePrefix builds a LIKE pattern matching ids that start with prefix,
// with the wildcards in prefix taken literally
func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LoadConversation loads a conversation by id or unique id prefix
func (s *HistoryStore) LoadConversation(ctx context.Context, idOrPrefix string) (*Conversation, error) {
	id, err := s.ResolveID(ctx, idOrPrefix)
	if err != nil {
		return nil, err
	}

	conv := &Conversation{ID: id}
	var created, updated string
	err = s.db.QueryRowContext(ctx,
		`SELECT title, created_at, updated_at FROM conversations WHERE id = ?`, id).
		Scan(&conv.Title, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	conv.CreatedAt = parseTime(created)
	conv.UpdatedAt = parseTime(updated)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, content, created_at, prediction_json, dlogic_json
		FROM messages WHERE conversation_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg Message
		var role, ts string
		var prediction, dlogic sql.NullString
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &ts, &prediction, &dlogic); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		msg.Role = Role(role)
		msg.Timestamp = parseTime(ts)
		if prediction.Valid && prediction.String != "" {
			var p PredictionResult
			if err := sonic.UnmarshalString(prediction.String, &p); err != nil {
				LogWarn("Skipping unreadable prediction on message %s: %v", msg.ID, err)
			} else {
				msg.Prediction = &p
			}
		}
		if dlogic.Valid && dlogic.String != "" {
			var r DLogicResult
			if err := sonic.UnmarshalString(dlogic.String, &r); err != nil {
				LogWarn("Skipping unreadable d-logic result on message %s: %v", msg.ID, err)
			} else {
				msg.DLogic = &r
			}
		}
		conv.Messages = append(conv.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return conv, nil
}

// LoadAllConversations loads every stored conversation
func (s *HistoryStore) LoadAllConversations(ctx context.Context) ([]*Conversation, error) {
	summaries, err := s.ListConversations(ctx, 0)
	if err != nil {
		return nil, err
	}

	out := make([]*Conversation, 0, len(summaries))
	for _, sum := range summaries {
		conv, err := s.LoadConversation(ctx, sum.ID)
		if err != nil {
			LogWarn("Failed to load conversation %s: %v", sum.ID, err)
			continue
		}
		out = append(out, conv)
	}
	return out, nil
}

// DeleteConversation removes a conversation and its messages
func (s *HistoryStore) DeleteConversation(ctx context.Context, idOrPrefix string) (string, error) {
	id, err := s.ResolveID(ctx, idOrPrefix)
	if err != nil {
		return "", err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return "", fmt.Errorf("delete messages failed: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id); err != nil {
		return "", fmt.Errorf("delete failed: %w", err)
	}
	return id, nil
}

// marshalNullable encodes v as a JSON column value, NULL when !present
func marshalNullable(present bool, v interface{}) (sql.NullString, error) {
	if !present {
		return sql.NullString{}, nil
	}
	b, err := sonic.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// storedTimeLayout is fixed width so stored timestamps sort as text
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
