package internal

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// MaxConditions is the number of priority slots a prediction can use
const MaxConditions = 4

// Condition is one of the fixed statistical filters
type Condition struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Catalog is the fixed list of conditions in display order
var Catalog = []Condition{
	{ID: "1_running_style", Name: "脚質", Description: "逃げ、先行、差し、追込の適性"},
	{ID: "2_course_direction", Name: "右周り・左周り複勝率", Description: "コース回り方向別成績"},
	{ID: "3_distance_category", Name: "距離毎複勝率", Description: "1000-3600mの距離別成績"},
	{ID: "4_interval_category", Name: "出走間隔毎複勝率", Description: "連闘、中1、中2、中3-4、中5-8、中9-12、中13以上"},
	{ID: "5_course_specific", Name: "コース毎複勝率", Description: "競馬場・芝ダート・距離の組み合わせ"},
	{ID: "6_horse_count", Name: "出走頭数毎複勝率", Description: "7頭以下、8-12頭、13-16頭、16-17頭、16-18頭"},
	{ID: "7_track_condition", Name: "馬場毎複勝率", Description: "良、重、やや重、不良"},
	{ID: "8_season_category", Name: "季節毎複勝率", Description: "1-3月、4-6月、7-9月、10-12月"},
}

// PriorityWeights maps priority position (0-based) to its weight in percent
var PriorityWeights = [MaxConditions]int{40, 30, 20, 10}

var priorityLabels = [MaxConditions]string{"1st", "2nd", "3rd", "4th"}

var (
	ErrSelectionFull    = errors.New("condition selection is full")
	ErrUnknownCondition = errors.New("unknown condition")
	ErrNotReady         = errors.New("condition selection is not ready to submit")
	ErrBusy             = errors.New("a prediction is already being submitted")
)

// LookupCondition finds a condition in the catalog by id
func LookupCondition(id string) (Condition, bool) {
	for _, c := range Catalog {
		if c.ID == id {
			return c, true
		}
	}
	return Condition{}, false
}

// PriorityLabel returns the ordinal label for a 1-based priority
func PriorityLabel(priority int) string {
	if priority < 1 || priority > MaxConditions {
		return ""
	}
	return priorityLabels[priority-1]
}

// SelectorState is a step of the condition selection flow
type SelectorState int

const (
	StateIdle SelectorState = iota
	StateSelecting
	StateReady
	StateSubmitting
	StateResult
	StateError
)

func (s SelectorState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelecting:
		return "selecting"
	case StateReady:
		return "ready"
	case StateSubmitting:
		return "submitting"
	case StateResult:
		return "result"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("SelectorState(%d)", int(s))
	}
}

// WeightedCondition is a selected condition with its priority and weight
type WeightedCondition struct {
	Condition
	Priority int `json:"priority" yaml:"priority"`
	Weight   int `json:"weight" yaml:"weight"`
}

// Predictor issues a prediction request for a race
type Predictor interface {
	Predict(ctx context.Context, raceID string, conditions []string) (*PredictionResult, error)
}

// SelectorOption configures a Selector
type SelectorOption func(*Selector)

// WithMinPicks lets a prediction be submitted with fewer than four
// conditions. Values outside 1..4 are ignored.
func WithMinPicks(n int) SelectorOption {
	return func(s *Selector) {
		if n >= 1 && n <= MaxConditions {
			s.minPicks = n
		}
	}
}

// Selector tracks an ordered pick of up to four conditions and the
// lifecycle of the prediction request made with them.
type Selector struct {
	mu       sync.Mutex
	selected []string
	minPicks int
	state    SelectorState
	result   *PredictionResult
	err      error
}

// NewSelector creates an idle selector
func NewSelector(opts ...SelectorOption) *Selector {
	s := &Selector{minPicks: MaxConditions}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Toggle selects id, or deselects it when already selected. It reports
// whether id is selected afterwards.
func (s *Selector) Toggle(id string) (bool, error) {
	if _, ok := LookupCondition(id); !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownCondition, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSubmitting {
		return s.indexOf(id) >= 0, ErrBusy
	}

	if i := s.indexOf(id); i >= 0 {
		s.selected = append(s.selected[:i:i], s.selected[i+1:]...)
		s.settle()
		return false, nil
	}

	if len(s.selected) >= MaxConditions {
		return false, ErrSelectionFull
	}
	s.selected = append(s.selected, id)
	s.settle()
	return true, nil
}

// Set replaces the selection with ids in priority order
func (s *Selector) Set(ids []string) error {
	if len(ids) > MaxConditions {
		return ErrSelectionFull
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := LookupCondition(id); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownCondition, id)
		}
		if seen[id] {
			return &ValidationError{Field: "conditions", Reason: "duplicate " + id}
		}
		seen[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitting {
		return ErrBusy
	}
	s.selected = append([]string(nil), ids...)
	s.settle()
	return nil
}

// settle derives the selection state from the pick count. Caller holds mu.
func (s *Selector) settle() {
	s.result = nil
	s.err = nil
	switch {
	case len(s.selected) == 0:
		s.state = StateIdle
	case len(s.selected) >= s.minPicks:
		s.state = StateReady
	default:
		s.state = StateSelecting
	}
}

func (s *Selector) indexOf(id string) int {
	for i, sel := range s.selected {
		if sel == id {
			return i
		}
	}
	return -1
}

// Selected returns the selected ids in priority order
func (s *Selector) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.selected...)
}

// Priority returns the 1-based priority of id, or 0 when not selected
func (s *Selector) Priority(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(id) + 1
}

// Weights returns the selected conditions with their weights
func (s *Selector) Weights() []WeightedCondition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return weigh(s.selected)
}

func weigh(ids []string) []WeightedCondition {
	out := make([]WeightedCondition, 0, len(ids))
	for i, id := range ids {
		c, _ := LookupCondition(id)
		out = append(out, WeightedCondition{Condition: c, Priority: i + 1, Weight: PriorityWeights[i]})
	}
	return out
}

// State returns the current state
func (s *Selector) State() SelectorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CanSubmit reports whether the required number of conditions is selected
func (s *Selector) CanSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readyLocked()
}

// readyLocked reports whether a submit is allowed. Caller holds mu.
func (s *Selector) readyLocked() bool {
	switch s.state {
	case StateReady:
		return true
	case StateResult, StateError:
		return len(s.selected) >= s.minPicks
	}
	return false
}

// Result returns the last prediction result and error
func (s *Selector) Result() (*PredictionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.err
}

// Submit requests a prediction with the current selection. The selector
// moves to submitting for the duration of the call and ends in result or
// error.
func (s *Selector) Submit(ctx context.Context, p Predictor, raceID string) (*PredictionResult, error) {
	if raceID == "" {
		return nil, &ValidationError{Field: "race_id", Reason: "must not be empty"}
	}

	s.mu.Lock()
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if !s.readyLocked() {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %d of %d selected", ErrNotReady, len(s.selected), s.minPicks)
	}
	conditions := append([]string(nil), s.selected...)
	s.state = StateSubmitting
	s.mu.Unlock()

	LogDebugFields("submitting prediction", "race", raceID, "conditions", conditions)
	result, err := p.Predict(ctx, raceID, conditions)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateError
		s.err = err
		s.result = nil
		return nil, err
	}
	s.state = StateResult
	s.result = result
	s.err = nil
	return result, nil
}

// Reset clears the selection and returns to idle
func (s *Selector) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
	s.state = StateIdle
	s.result = nil
	s.err = nil
}
