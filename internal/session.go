package internal

import "time"

// Role identifies the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat message
type Message struct {
	ID         string            `json:"id" yaml:"id"`
	Role       Role              `json:"role" yaml:"role"`
	Content    string            `json:"content" yaml:"content"`
	Timestamp  time.Time         `json:"timestamp" yaml:"timestamp"`
	Prediction *PredictionResult `json:"prediction,omitempty" yaml:"prediction,omitempty"`
	DLogic     *DLogicResult     `json:"d_logic_result,omitempty" yaml:"d_logic_result,omitempty"`
}

// Conversation is a persisted chat session
type Conversation struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title,omitempty" yaml:"title,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
	Messages  []Message `json:"messages" yaml:"messages"`
}

// History converts the conversation into the turn list sent with a chat message
func (c *Conversation) History() []HistoryEntry {
	return historyOf(c.Messages)
}

func historyOf(messages []Message) []HistoryEntry {
	history := make([]HistoryEntry, 0, len(messages))
	for _, msg := range messages {
		history = append(history, HistoryEntry{Role: msg.Role, Content: msg.Content})
	}
	return history
}

// DeriveTitle returns the first user message, truncated, as a title
func DeriveTitle(messages []Message) string {
	for _, msg := range messages {
		if msg.Role != RoleUser {
			continue
		}
		r := []rune(msg.Content)
		if len(r) > 40 {
			return string(r[:40]) + "…"
		}
		return string(r)
	}
	return "Untitled"
}
