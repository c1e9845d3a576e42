package export

import (
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"
	"github.com/uma-oracle/dlogic/internal"
)

// JSONLExporter exports conversations in JSONL format (one message per line)
type JSONLExporter struct{}

type jsonlLine struct {
	Conversation string                     `json:"conversation"`
	Role         internal.Role              `json:"role"`
	Content      string                     `json:"content"`
	Timestamp    string                     `json:"timestamp,omitempty"`
	Prediction   *internal.PredictionResult `json:"prediction,omitempty"`
	DLogic       *internal.DLogicResult     `json:"d_logic_result,omitempty"`
}

// Export writes one line per message
func (e *JSONLExporter) Export(conv *internal.Conversation, w io.Writer) error {
	enc := sonic.ConfigStd.NewEncoder(w)

	for _, msg := range conv.Messages {
		line := jsonlLine{
			Conversation: conv.ID,
			Role:         msg.Role,
			Content:      msg.Content,
			Prediction:   msg.Prediction,
			DLogic:       msg.DLogic,
		}
		if !msg.Timestamp.IsZero() {
			line.Timestamp = msg.Timestamp.Format(time.RFC3339)
		}

		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
