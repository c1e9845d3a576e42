package internal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedBackend answers chat and predict calls from queued responses.
// A gate, when set, blocks the call until a value arrives on it.
type scriptedBackend struct {
	mu        sync.Mutex
	replies   []*ChatReply
	errs      []error
	histories [][]HistoryEntry
	gates     []chan struct{}
	entered   chan string

	prediction *PredictionResult
	predictErr error
}

func (b *scriptedBackend) Chat(ctx context.Context, message string, history []HistoryEntry) (*ChatReply, error) {
	b.mu.Lock()
	i := len(b.histories)
	b.histories = append(b.histories, history)
	var gate chan struct{}
	if i < len(b.gates) {
		gate = b.gates[i]
	}
	b.mu.Unlock()

	if b.entered != nil {
		b.entered <- message
	}
	if gate != nil {
		<-gate
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	var err error
	if i < len(b.errs) {
		err = b.errs[i]
	}
	if err != nil {
		return nil, err
	}
	return b.replies[i], nil
}

func (b *scriptedBackend) Predict(ctx context.Context, raceID string, conditions []string) (*PredictionResult, error) {
	if b.predictErr != nil {
		return nil, b.predictErr
	}
	return NormalizePrediction(b.prediction, conditions), nil
}

func TestChatSession_Send(t *testing.T) {
	backend := &scriptedBackend{replies: []*ChatReply{
		{Status: "success", Message: "こんにちは"},
		{Status: "success", Message: "分析です", HasDLogic: true, DLogicResult: &DLogicResult{Horses: []DLogicHorse{{HorseName: "A", TotalScore: 110.5}}}},
	}}
	s := NewChatSession(backend, nil)
	ctx := context.Background()

	msg, err := s.Send(ctx, "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, RoleAssistant, msg.Role)
	assert.Equal(t, "こんにちは", msg.Content)
	assert.Empty(t, backend.histories[0], "first message has no prior turns")

	msg, err = s.Send(ctx, "東京1R")
	require.NoError(t, err)
	assert.Equal(t, "分析です", msg.Content)
	require.NotNil(t, msg.DLogic)
	assert.Equal(t, "A", msg.DLogic.Horses[0].HorseName)

	// the second request carries both earlier turns, not the new text
	require.Len(t, backend.histories[1], 2)
	assert.Equal(t, "hello", backend.histories[1][0].Content)
	assert.Equal(t, "こんにちは", backend.histories[1][1].Content)

	snap := s.Store().Snapshot()
	assert.False(t, snap.Loading)
	require.Len(t, snap.Messages, 4)
	assert.Equal(t, []Role{RoleUser, RoleAssistant, RoleUser, RoleAssistant},
		[]Role{snap.Messages[0].Role, snap.Messages[1].Role, snap.Messages[2].Role, snap.Messages[3].Role})
}

func TestChatSession_SendEmpty(t *testing.T) {
	s := NewChatSession(&scriptedBackend{}, nil)
	_, err := s.Send(context.Background(), "   ")
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
	assert.Empty(t, s.Store().Messages())
}

func TestChatSession_SendFailureBecomesMessage(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		reply *ChatReply
		want  string
	}{
		{
			name: "server error",
			err:  &APIError{Op: "chat", StatusCode: 500},
			want: "サーバー内部エラーが発生しました。",
		},
		{
			name: "network error",
			err:  &NetworkError{Op: "chat", Err: errors.New("dial tcp: connection refused")},
			want: "バックエンドサーバーに接続できません",
		},
		{
			name:  "error status without text",
			reply: &ChatReply{Status: "error"},
			want:  chatFailureMessage,
		},
		{
			name:  "empty success",
			reply: &ChatReply{Status: "success"},
			want:  chatFailureMessage,
		},
		{
			name:  "score table without text",
			reply: &ChatReply{Status: "success", HasDLogic: true, DLogicResult: &DLogicResult{Horses: []DLogicHorse{{HorseName: "B", TotalScore: 101}}}},
			want:  dlogicOnlyMessage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &scriptedBackend{replies: []*ChatReply{tt.reply}, errs: []error{tt.err}}
			s := NewChatSession(backend, nil)

			msg, err := s.Send(context.Background(), "hi")
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			} else {
				assert.NoError(t, err)
			}
			assert.True(t, strings.HasPrefix(msg.Content, tt.want), "got %q", msg.Content)
			assert.NotEmpty(t, msg.Content)

			snap := s.Store().Snapshot()
			assert.False(t, snap.Loading)
			require.Len(t, snap.Messages, 2)
			assert.Equal(t, RoleAssistant, snap.Messages[1].Role)
		})
	}
}

func TestChatSession_StaleReplyDropped(t *testing.T) {
	first := make(chan struct{})
	second := make(chan struct{})
	backend := &scriptedBackend{
		replies: []*ChatReply{{Message: "old answer"}, {Message: "new answer"}},
		gates:   []chan struct{}{first, second},
		entered: make(chan string, 2),
	}
	s := NewChatSession(backend, nil)
	ctx := context.Background()

	type result struct {
		msg Message
		err error
	}
	r1 := make(chan result, 1)
	go func() {
		m, err := s.Send(ctx, "one")
		r1 <- result{m, err}
	}()
	<-backend.entered

	r2 := make(chan result, 1)
	go func() {
		m, err := s.Send(ctx, "two")
		r2 <- result{m, err}
	}()
	<-backend.entered

	// the newer request finishes first, then the old one arrives late
	close(second)
	res2 := <-r2
	require.NoError(t, res2.err)
	close(first)
	res1 := <-r1
	assert.ErrorIs(t, res1.err, ErrStaleResponse)

	msgs := s.Store().Messages()
	var contents []string
	for _, m := range msgs {
		contents = append(contents, m.Content)
	}
	assert.Equal(t, []string{"one", "two", "new answer"}, contents)
	assert.False(t, s.Store().Snapshot().Loading)
}

func TestChatSession_Predict(t *testing.T) {
	backend := &scriptedBackend{prediction: CreateTestPrediction()}
	sel := NewSelector()
	s := NewChatSession(backend, sel)
	ctx := context.Background()

	_, err := s.Predict(ctx, "202412010101")
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Empty(t, s.Store().Messages())

	require.NoError(t, sel.Set(catalogIDs(4)))
	msg, err := s.Predict(ctx, "202412010101")
	require.NoError(t, err)
	require.NotNil(t, msg.Prediction)

	names := []string{}
	for _, h := range msg.Prediction.Horses {
		names = append(names, h.Name)
	}
	assert.Equal(t, []string{"イクイノックス", "リバティアイランド", "ドウデュース"}, names)
	assert.Contains(t, msg.Content, "1. イクイノックス")

	snap := s.Store().Snapshot()
	assert.Equal(t, "202412010101", snap.CurrentRace)
	assert.Equal(t, catalogIDs(4), snap.SelectedConditions)
	assert.False(t, snap.Loading)
	require.Len(t, snap.Messages, 2)
	assert.Contains(t, snap.Messages[0].Content, "脚質(40%)")
	assert.Contains(t, snap.Messages[0].Content, "(10%)")
	assert.Equal(t, StateResult, sel.State())
}

func TestChatSession_PredictFailure(t *testing.T) {
	backend := &scriptedBackend{predictErr: &APIError{Op: "predict", StatusCode: 404}}
	sel := NewSelector()
	require.NoError(t, sel.Set(catalogIDs(4)))
	s := NewChatSession(backend, sel)

	msg, err := s.Predict(context.Background(), "r1")
	assert.Error(t, err)
	assert.Equal(t, "APIエンドポイントが見つかりません。", msg.Content)
	assert.Nil(t, msg.Prediction)
	assert.Equal(t, StateError, sel.State())
	assert.False(t, s.Store().Snapshot().Loading)
}

func TestChatSession_PersistsToHistory(t *testing.T) {
	hs := newTestHistoryStore(t)
	backend := &scriptedBackend{replies: []*ChatReply{{Message: "ok"}}}
	s := NewChatSession(backend, nil)
	s.SetHistory(hs)

	_, err := s.Send(context.Background(), "保存して")
	require.NoError(t, err)

	conv, err := hs.LoadConversation(context.Background(), s.ID())
	require.NoError(t, err)
	assert.Equal(t, "保存して", conv.Title)
	assert.Len(t, conv.Messages, 2)
}

func TestResumeChatSession(t *testing.T) {
	conv := CreateTestConversation("resume-1")
	backend := &scriptedBackend{replies: []*ChatReply{{Message: "続きです"}}}
	s := ResumeChatSession(backend, nil, conv)

	assert.Equal(t, "resume-1", s.ID())
	_, err := s.Send(context.Background(), "続けて")
	require.NoError(t, err)
	assert.Len(t, backend.histories[0], 2)

	out := s.Conversation()
	assert.Equal(t, "resume-1", out.ID)
	assert.True(t, out.CreatedAt.Equal(conv.CreatedAt))
	assert.Len(t, out.Messages, 4)
}

// legacyBackend serves only the older /chat endpoint
type legacyBackend struct {
	scriptedBackend
	legacyReply *LegacyChatReply
	legacyErr   error
	legacyCalls []string
	raceInfos   []string
}

func (b *legacyBackend) LegacyChat(ctx context.Context, message, raceInfo string) (*LegacyChatReply, error) {
	b.legacyCalls = append(b.legacyCalls, message)
	b.raceInfos = append(b.raceInfos, raceInfo)
	if b.legacyErr != nil {
		return nil, b.legacyErr
	}
	return b.legacyReply, nil
}

func TestChatSession_LegacyChatFallback(t *testing.T) {
	tests := []struct {
		name      string
		chatErr   error
		reply     *LegacyChatReply
		legacyErr error
		wantCalls int
		want      string
		wantErr   bool
	}{
		{
			name:      "missing endpoint falls back",
			chatErr:   &APIError{Op: "chat", StatusCode: 404},
			reply:     &LegacyChatReply{Message: "旧APIの回答です", Type: ChatResponseText},
			wantCalls: 1,
			want:      "旧APIの回答です",
		},
		{
			name:      "empty legacy reply",
			chatErr:   &APIError{Op: "chat", StatusCode: 404},
			reply:     &LegacyChatReply{Type: ChatResponseText},
			wantCalls: 1,
			want:      chatFailureMessage,
		},
		{
			name:      "legacy failure is reported",
			chatErr:   &APIError{Op: "chat", StatusCode: 404},
			legacyErr: &APIError{Op: "legacy_chat", StatusCode: 500},
			wantCalls: 1,
			want:      "サーバー内部エラーが発生しました。",
			wantErr:   true,
		},
		{
			name:      "server error does not fall back",
			chatErr:   &APIError{Op: "chat", StatusCode: 500},
			wantCalls: 0,
			want:      "サーバー内部エラーが発生しました。",
			wantErr:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &legacyBackend{
				scriptedBackend: scriptedBackend{errs: []error{tt.chatErr}},
				legacyReply:     tt.reply,
				legacyErr:       tt.legacyErr,
			}
			s := NewChatSession(backend, nil)
			s.Store().SetCurrentRace("202412010611")

			msg, err := s.Send(context.Background(), "こんにちは")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, msg.Content)
			assert.Len(t, backend.legacyCalls, tt.wantCalls)
			if tt.wantCalls > 0 {
				assert.Equal(t, "202412010611", backend.raceInfos[0])
			}
			assert.False(t, s.Store().Snapshot().Loading)
		})
	}
}

func TestChatSession_ResetWhilePersisting(t *testing.T) {
	backend := &scriptedBackend{replies: []*ChatReply{{Message: "a"}, {Message: "b"}, {Message: "c"}, {Message: "d"}}}
	s := NewChatSession(backend, nil)
	s.SetHistory(newTestHistoryStore(t))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for _, text := range []string{"1", "2", "3", "4"} {
			_, _ = s.Send(context.Background(), text)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 4; i++ {
			s.Reset()
			_ = s.Conversation()
		}
	}()
	wg.Wait()

	assert.NotEmpty(t, s.ID())
	assert.Equal(t, s.ID(), s.Conversation().ID)
}

func TestChatSession_Reset(t *testing.T) {
	backend := &scriptedBackend{replies: []*ChatReply{{Message: "ok"}}}
	s := NewChatSession(backend, nil)
	oldID := s.ID()
	_, _ = s.Send(context.Background(), "hi")

	s.Reset()
	assert.NotEqual(t, oldID, s.ID())
	assert.Empty(t, s.Store().Messages())
	assert.Equal(t, StateIdle, s.Selector().State())
}
