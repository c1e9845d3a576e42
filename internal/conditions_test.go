package internal

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPredictor struct {
	mu      sync.Mutex
	calls   [][]string
	result  *PredictionResult
	err     error
	release chan struct{}
	entered chan struct{}
}

func (p *stubPredictor) Predict(ctx context.Context, raceID string, conditions []string) (*PredictionResult, error) {
	p.mu.Lock()
	p.calls = append(p.calls, conditions)
	p.mu.Unlock()
	if p.entered != nil {
		p.entered <- struct{}{}
	}
	if p.release != nil {
		<-p.release
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

func catalogIDs(n int) []string {
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = Catalog[i].ID
	}
	return ids
}

func TestCatalog(t *testing.T) {
	assert.Len(t, Catalog, 8)
	seen := map[string]bool{}
	for _, c := range Catalog {
		assert.False(t, seen[c.ID], "duplicate id %s", c.ID)
		seen[c.ID] = true
		got, ok := LookupCondition(c.ID)
		assert.True(t, ok)
		assert.Equal(t, c.Name, got.Name)
	}
	_, ok := LookupCondition("9_moon_phase")
	assert.False(t, ok)

	assert.Equal(t, 100, PriorityWeights[0]+PriorityWeights[1]+PriorityWeights[2]+PriorityWeights[3])
	assert.Equal(t, "1st", PriorityLabel(1))
	assert.Equal(t, "4th", PriorityLabel(4))
	assert.Equal(t, "", PriorityLabel(5))
}

func TestSelector_ToggleStates(t *testing.T) {
	s := NewSelector()
	assert.Equal(t, StateIdle, s.State())

	ids := catalogIDs(5)
	for i, id := range ids[:4] {
		selected, err := s.Toggle(id)
		require.NoError(t, err)
		assert.True(t, selected)
		if i < 3 {
			assert.Equal(t, StateSelecting, s.State())
		}
	}
	assert.Equal(t, StateReady, s.State())
	assert.True(t, s.CanSubmit())

	selected, err := s.Toggle(ids[4])
	assert.ErrorIs(t, err, ErrSelectionFull)
	assert.False(t, selected)
	assert.Equal(t, ids[:4], s.Selected(), "a fifth pick must not change the selection")

	selected, err = s.Toggle(ids[1])
	require.NoError(t, err)
	assert.False(t, selected)
	assert.Equal(t, []string{ids[0], ids[2], ids[3]}, s.Selected())
	assert.Equal(t, StateSelecting, s.State())
	assert.Equal(t, 2, s.Priority(ids[2]))
	assert.Equal(t, 0, s.Priority(ids[1]))

	for _, id := range []string{ids[0], ids[2], ids[3]} {
		_, err := s.Toggle(id)
		require.NoError(t, err)
	}
	assert.Equal(t, StateIdle, s.State())
}

func TestSelector_ToggleUnknown(t *testing.T) {
	s := NewSelector()
	_, err := s.Toggle("nope")
	assert.ErrorIs(t, err, ErrUnknownCondition)
	assert.Empty(t, s.Selected())
}

func TestSelector_Weights(t *testing.T) {
	s := NewSelector()
	ids := catalogIDs(4)
	require.NoError(t, s.Set([]string{ids[3], ids[0], ids[2], ids[1]}))

	w := s.Weights()
	require.Len(t, w, 4)
	wantOrder := []string{ids[3], ids[0], ids[2], ids[1]}
	for i, wc := range w {
		assert.Equal(t, wantOrder[i], wc.ID)
		assert.Equal(t, i+1, wc.Priority)
		assert.Equal(t, PriorityWeights[i], wc.Weight)
	}
}

func TestSelector_SetValidation(t *testing.T) {
	s := NewSelector()
	ids := catalogIDs(5)

	assert.ErrorIs(t, s.Set(ids), ErrSelectionFull)
	assert.ErrorIs(t, s.Set([]string{"bogus"}), ErrUnknownCondition)

	var vErr *ValidationError
	assert.True(t, errors.As(s.Set([]string{ids[0], ids[0]}), &vErr))
	assert.Empty(t, s.Selected())
}

func TestSelector_WithMinPicks(t *testing.T) {
	s := NewSelector(WithMinPicks(2))
	_, _ = s.Toggle(Catalog[0].ID)
	assert.Equal(t, StateSelecting, s.State())
	_, _ = s.Toggle(Catalog[1].ID)
	assert.Equal(t, StateReady, s.State())

	// out of range values keep the default of four
	strict := NewSelector(WithMinPicks(9))
	require.NoError(t, strict.Set(catalogIDs(3)))
	assert.False(t, strict.CanSubmit())
}

func TestSelector_Submit(t *testing.T) {
	ctx := context.Background()
	p := &stubPredictor{result: CreateTestPrediction()}
	s := NewSelector()

	_, err := s.Submit(ctx, p, "r1")
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Empty(t, p.calls)

	require.NoError(t, s.Set(catalogIDs(4)))
	_, err = s.Submit(ctx, p, "")
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))

	result, err := s.Submit(ctx, p, "r1")
	require.NoError(t, err)
	assert.Same(t, p.result, result)
	assert.Equal(t, StateResult, s.State())
	assert.Equal(t, catalogIDs(4), p.calls[0])

	got, gotErr := s.Result()
	assert.Same(t, result, got)
	assert.NoError(t, gotErr)

	// resubmitting from the result state is allowed
	_, err = s.Submit(ctx, p, "r2")
	require.NoError(t, err)
	assert.Len(t, p.calls, 2)
}

func TestSelector_SubmitError(t *testing.T) {
	boom := &APIError{Op: "predict", StatusCode: 500}
	p := &stubPredictor{err: boom}
	s := NewSelector()
	require.NoError(t, s.Set(catalogIDs(4)))

	_, err := s.Submit(context.Background(), p, "r1")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateError, s.State())
	_, lastErr := s.Result()
	assert.ErrorIs(t, lastErr, boom)

	// changing the selection clears the error
	_, err = s.Toggle(Catalog[0].ID)
	require.NoError(t, err)
	assert.Equal(t, StateSelecting, s.State())
	_, lastErr = s.Result()
	assert.NoError(t, lastErr)
}

func TestSelector_BusyWhileSubmitting(t *testing.T) {
	p := &stubPredictor{
		result:  CreateTestPrediction(),
		release: make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	s := NewSelector()
	require.NoError(t, s.Set(catalogIDs(4)))

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), p, "r1")
		done <- err
	}()
	<-p.entered

	assert.Equal(t, StateSubmitting, s.State())
	assert.False(t, s.CanSubmit())
	_, err := s.Submit(context.Background(), p, "r1")
	assert.ErrorIs(t, err, ErrBusy)
	_, err = s.Toggle(Catalog[5].ID)
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, s.Set(nil), ErrBusy)

	close(p.release)
	require.NoError(t, <-done)
	assert.Equal(t, StateResult, s.State())
	assert.Equal(t, catalogIDs(4), s.Selected())
}

func TestSelector_Reset(t *testing.T) {
	s := NewSelector()
	require.NoError(t, s.Set(catalogIDs(4)))
	s.Reset()
	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, s.Selected())
}

func TestSelectorState_String(t *testing.T) {
	tests := map[SelectorState]string{
		StateIdle:         "idle",
		StateSelecting:    "selecting",
		StateReady:        "ready",
		StateSubmitting:   "submitting",
		StateResult:       "result",
		StateError:        "error",
		SelectorState(99): "SelectorState(99)",
	}
	for state, want := range tests {
		assert.Equal(t, want, state.String())
	}
}
