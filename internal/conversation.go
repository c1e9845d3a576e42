package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// chatFailureMessage is shown when the backend reports an error without text
	chatFailureMessage = "申し訳ございません。チャット処理中にエラーが発生しました。"
	dlogicOnlyMessage  = "D-Logic指数を算出しました。"
)

// ErrStaleResponse is returned when a reply arrived after a newer request
// had been issued. The reply is not added to the conversation.
var ErrStaleResponse = errors.New("response superseded by a newer request")

// ChatBackend is the part of the API a chat session needs
type ChatBackend interface {
	Predictor
	Chat(ctx context.Context, message string, history []HistoryEntry) (*ChatReply, error)
}

// LegacyChatter is implemented by backends that still serve the older
// POST /chat endpoint. Sessions use it when /api/chat/message is missing.
type LegacyChatter interface {
	LegacyChat(ctx context.Context, message, raceInfo string) (*LegacyChatReply, error)
}

// ChatSession drives one conversation: it records user input in the
// store, calls the backend and records the reply or a readable error.
type ChatSession struct {
	mu        sync.Mutex
	id        string
	createdAt time.Time

	store    *ChatStore
	api      ChatBackend
	selector *Selector
	history  *HistoryStore
}

// NewChatSession starts a new conversation
func NewChatSession(api ChatBackend, selector *Selector) *ChatSession {
	if selector == nil {
		selector = NewSelector()
	}
	return &ChatSession{
		id:        uuid.NewString(),
		createdAt: time.Now(),
		store:     NewChatStore(),
		api:       api,
		selector:  selector,
	}
}

// ResumeChatSession continues a stored conversation
func ResumeChatSession(api ChatBackend, selector *Selector, conv *Conversation) *ChatSession {
	s := NewChatSession(api, selector)
	s.id = conv.ID
	s.createdAt = conv.CreatedAt
	s.store = NewChatStoreFrom(conv.Messages)
	return s
}

// SetHistory persists the conversation after every exchange
func (s *ChatSession) SetHistory(h *HistoryStore) {
	s.history = h
}

// ID returns the conversation id
func (s *ChatSession) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Store returns the session's store
func (s *ChatSession) Store() *ChatStore { return s.store }

// Selector returns the session's condition selector
func (s *ChatSession) Selector() *Selector { return s.selector }

// Send posts text with the prior turns and appends the reply. On failure a
// readable error message is appended instead and the error is returned.
func (s *ChatSession) Send(ctx context.Context, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, &ValidationError{Field: "message", Reason: "must not be empty"}
	}

	history := historyOf(s.store.Messages())
	s.store.AddMessage(RoleUser, text)

	ticket := s.store.BeginRequest()

	msg, err := s.chat(ctx, text, history)
	if err != nil {
		LogDebug("Chat request failed: %v", err)
		msg = Message{Role: RoleAssistant, Content: UserMessage(err)}
	}

	return s.finish(ctx, ticket, msg, err)
}

// chat calls the chat endpoint, falling back to the legacy one when the
// backend does not serve it
func (s *ChatSession) chat(ctx context.Context, text string, history []HistoryEntry) (Message, error) {
	reply, err := s.api.Chat(ctx, text, history)
	if err == nil {
		return replyMessage(reply), nil
	}

	var apiErr *APIError
	legacy, ok := s.api.(LegacyChatter)
	if !ok || !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		return Message{}, err
	}
	LogDebug("Chat endpoint missing, retrying on %s", endpointLegacyChat)
	old, legacyErr := legacy.LegacyChat(ctx, text, s.store.Snapshot().CurrentRace)
	if legacyErr != nil {
		return Message{}, legacyErr
	}
	content := old.Message
	if content == "" {
		content = chatFailureMessage
	}
	return Message{Role: RoleAssistant, Content: content}, nil
}

// Predict submits the selected conditions for raceID and appends the
// ranked result.
func (s *ChatSession) Predict(ctx context.Context, raceID string) (Message, error) {
	raceID = strings.TrimSpace(raceID)
	if raceID == "" {
		return Message{}, &ValidationError{Field: "race_id", Reason: "must not be empty"}
	}
	if s.selector.State() == StateSubmitting {
		return Message{}, ErrBusy
	}
	if !s.selector.CanSubmit() {
		return Message{}, fmt.Errorf("%w: %d selected", ErrNotReady, len(s.selector.Selected()))
	}

	weights := s.selector.Weights()
	s.store.SetCurrentRace(raceID)
	s.store.SetSelectedConditions(s.selector.Selected())
	s.store.AddMessage(RoleUser, predictionRequestText(raceID, weights))

	ticket := s.store.BeginRequest()

	result, err := s.selector.Submit(ctx, s.api, raceID)
	msg := Message{Role: RoleAssistant}
	if err != nil {
		LogDebug("Prediction for %s failed: %v", raceID, err)
		msg.Content = UserMessage(err)
	} else {
		msg.Content = PredictionText(result)
		msg.Prediction = result
	}

	return s.finish(ctx, ticket, msg, err)
}

// finish records msg if ticket is still current and persists the session
func (s *ChatSession) finish(ctx context.Context, ticket uint64, msg Message, reqErr error) (Message, error) {
	stored, ok := s.store.Complete(ticket, msg)
	if !ok {
		LogDebug("Dropping stale response for request %d", ticket)
		return msg, ErrStaleResponse
	}

	s.persist(ctx)
	return stored, reqErr
}

func (s *ChatSession) persist(ctx context.Context) {
	if s.history == nil {
		return
	}
	if err := s.history.SaveConversation(ctx, s.Conversation()); err != nil {
		LogWarn("Failed to save conversation %s: %v", s.ID(), err)
	}
}

// Conversation returns the session as a persistable conversation
func (s *ChatSession) Conversation() *Conversation {
	s.mu.Lock()
	id, created := s.id, s.createdAt
	s.mu.Unlock()

	msgs := s.store.Messages()
	updated := created
	if len(msgs) > 0 {
		updated = msgs[len(msgs)-1].Timestamp
	}
	return &Conversation{
		ID:        id,
		Title:     DeriveTitle(msgs),
		CreatedAt: created,
		UpdatedAt: updated,
		Messages:  msgs,
	}
}

// Reset clears the conversation and starts a new one
func (s *ChatSession) Reset() {
	s.store.Clear()
	s.selector.Reset()

	s.mu.Lock()
	s.id = uuid.NewString()
	s.createdAt = time.Now()
	s.mu.Unlock()
}

// replyMessage turns a chat reply into an assistant message. A D-Logic
// score table travels with the message rather than inside its text.
func replyMessage(r *ChatReply) Message {
	msg := Message{Role: RoleAssistant, Content: r.Message}
	if r.HasDLogic && r.DLogicResult != nil && len(r.DLogicResult.Horses) > 0 {
		msg.DLogic = r.DLogicResult
		if msg.Content == "" {
			msg.Content = dlogicOnlyMessage
		}
	}
	if msg.Content == "" {
		msg.Content = chatFailureMessage
	}
	return msg
}

func predictionRequestText(raceID string, weights []WeightedCondition) string {
	parts := make([]string, 0, len(weights))
	for _, w := range weights {
		parts = append(parts, fmt.Sprintf("%s(%d%%)", w.Name, w.Weight))
	}
	return fmt.Sprintf("レース %s を予想: %s", raceID, strings.Join(parts, " > "))
}

// PredictionText renders a result as plain text in response order
func PredictionText(p *PredictionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "予想結果 (信頼度: %s)", p.Confidence)
	for _, h := range p.Horses {
		fmt.Fprintf(&b, "\n%d. %s %.1f", h.Rank, h.Name, h.FinalScore)
	}
	if p.Analysis != "" {
		b.WriteString("\n\n")
		b.WriteString(p.Analysis)
	}
	return b.String()
}
