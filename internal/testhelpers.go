package internal

import (
	"time"
)

// testEpoch is the fixed clock used by test fixtures
var testEpoch = time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC)

// CreateTestConversation creates a test conversation with sample data
func CreateTestConversation(id string) *Conversation {
	return &Conversation{
		ID:        id,
		Title:     "今日の東京1Rはどう？",
		CreatedAt: testEpoch,
		UpdatedAt: testEpoch.Add(time.Minute),
		Messages: []Message{
			{
				ID:        id + "-1",
				Role:      RoleUser,
				Content:   "今日の東京1Rはどう？",
				Timestamp: testEpoch,
			},
			{
				ID:        id + "-2",
				Role:      RoleAssistant,
				Content:   "東京1Rの注目馬はサンプルホースです。",
				Timestamp: testEpoch.Add(time.Minute),
			},
		},
	}
}

// CreateTestConversationWithMessages creates a test conversation with custom messages
func CreateTestConversationWithMessages(id string, messages []Message) *Conversation {
	conv := &Conversation{
		ID:        id,
		Title:     DeriveTitle(messages),
		CreatedAt: testEpoch,
		UpdatedAt: testEpoch,
		Messages:  messages,
	}
	if n := len(messages); n > 0 && !messages[n-1].Timestamp.IsZero() {
		conv.UpdatedAt = messages[n-1].Timestamp
	}
	return conv
}

// CreateTestPrediction creates a normalized prediction with three horses,
// deliberately not sorted by score.
func CreateTestPrediction() *PredictionResult {
	return &PredictionResult{
		Horses: []Horse{
			{ID: "h1", Name: "イクイノックス", BaseScore: 118.5, FinalScore: 121.0, Rank: 1, Confidence: ConfidenceHigh},
			{ID: "h2", Name: "リバティアイランド", BaseScore: 120.0, FinalScore: 125.5, Rank: 2, Confidence: ConfidenceMedium},
			{ID: "h3", Name: "ドウデュース", BaseScore: 99.0, FinalScore: 98.0, Rank: 3, Confidence: ConfidenceLow},
		},
		Confidence:         ConfidenceHigh,
		SelectedConditions: []string{"3_distance_category", "1_running_style"},
		CalculationTime:    testEpoch.Format(time.RFC3339),
		Analysis:           "距離適性を重視した結果です。",
	}
}
