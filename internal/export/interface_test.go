package export

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/uma-oracle/dlogic/internal"
)

func TestNewExporter(t *testing.T) {
	tests := []struct {
		format   string
		wantType string
		wantExt  string
		wantErr  bool
	}{
		{format: "jsonl", wantType: "*export.JSONLExporter", wantExt: "jsonl"},
		{format: "md", wantType: "*export.MarkdownExporter", wantExt: "md"},
		{format: "markdown", wantType: "*export.MarkdownExporter", wantExt: "md"},
		{format: "yaml", wantType: "*export.YAMLExporter", wantExt: "yaml"},
		{format: "json", wantType: "*export.JSONExporter", wantExt: "json"},
		{format: "xml", wantErr: true},
		{format: "csv", wantErr: true},
		{format: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("format "+tt.format, func(t *testing.T) {
			exporter, err := NewExporter(tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewExporter(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
			}
			if tt.wantErr {
				if exporter != nil {
					t.Errorf("NewExporter(%q) returned %T, want nil", tt.format, exporter)
				}
				if !strings.Contains(err.Error(), "jsonl, md, yaml, json") {
					t.Errorf("error %q should list the supported formats", err)
				}
				return
			}

			if got := fmt.Sprintf("%T", exporter); got != tt.wantType {
				t.Errorf("NewExporter(%q) = %s, want %s", tt.format, got, tt.wantType)
			}
			if got := exporter.Extension(); got != tt.wantExt {
				t.Errorf("Extension() = %v, want %v", got, tt.wantExt)
			}
		})
	}
}

// Every format carries the conversation id, both turns and the score tables
// attached to the replies.
func TestExporters_ConversationWithScores(t *testing.T) {
	conv := internal.CreateTestConversation("conv-scores")
	conv.Messages[1].DLogic = &internal.DLogicResult{Horses: []internal.DLogicHorse{
		{HorseName: "サンプルホース", TotalScore: 112.3},
	}}
	conv.Messages = append(conv.Messages, internal.Message{
		ID:         "conv-scores-3",
		Role:       internal.RoleAssistant,
		Content:    "予想結果",
		Prediction: internal.CreateTestPrediction(),
	})

	for _, format := range []string{"jsonl", "md", "yaml", "json"} {
		t.Run(format, func(t *testing.T) {
			exporter, err := NewExporter(format)
			if err != nil {
				t.Fatalf("NewExporter(%q) error = %v", format, err)
			}

			var buf bytes.Buffer
			if err := exporter.Export(conv, &buf); err != nil {
				t.Fatalf("Export() error = %v", err)
			}
			out := buf.String()
			for _, want := range []string{"conv-scores", "今日の東京1Rはどう", "東京1Rの注目馬", "サンプルホース", "112.3", "イクイノックス"} {
				if !strings.Contains(out, want) {
					t.Errorf("%s export missing %q:\n%s", format, want, out)
				}
			}
		})
	}
}
