package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/uma-oracle/dlogic/internal"
)

// MarkdownExporter exports conversations in Markdown format
type MarkdownExporter struct{}

// Export exports a conversation to Markdown format
func (e *MarkdownExporter) Export(conv *internal.Conversation, w io.Writer) error {
	title := conv.Title
	if title == "" {
		title = conv.ID
	}
	_, _ = fmt.Fprintf(w, "# %s\n\n", title)

	_, _ = fmt.Fprintf(w, "**ID:** %s  \n", conv.ID)
	if !conv.CreatedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "**Started:** %s  \n", conv.CreatedAt.Format(time.RFC3339))
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(conv.Messages))

	_, _ = fmt.Fprintf(w, "---\n\n")
	_, _ = fmt.Fprintf(w, "## Messages\n\n")

	for i, msg := range conv.Messages {
		timestamp := ""
		if !msg.Timestamp.IsZero() {
			timestamp = fmt.Sprintf(" (%s)", msg.Timestamp.Format(time.RFC3339))
		}

		content := escapeMarkdown(msg.Content)
		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", msg.Role, timestamp, content)

		if msg.Prediction != nil {
			writePredictionTable(w, msg.Prediction)
		}
		if msg.DLogic != nil {
			writeDLogicTable(w, msg.DLogic)
		}

		if i < len(conv.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// writePredictionTable writes horses in the order the backend ranked them
func writePredictionTable(w io.Writer, p *internal.PredictionResult) {
	_, _ = fmt.Fprintf(w, "| Rank | Horse | Score |\n|---:|---|---:|\n")
	for _, h := range p.Horses {
		_, _ = fmt.Fprintf(w, "| %d | %s | %.1f |\n", h.Rank, strings.ReplaceAll(h.Name, "|", "\\|"), h.FinalScore)
	}
	_, _ = fmt.Fprintf(w, "\n*Confidence: %s*\n\n", p.Confidence)
}

func writeDLogicTable(w io.Writer, r *internal.DLogicResult) {
	_, _ = fmt.Fprintf(w, "| # | Horse | D-Logic |\n|---:|---|---:|\n")
	for i, h := range r.Horses {
		_, _ = fmt.Fprintf(w, "| %d | %s | %.1f |\n", i+1, strings.ReplaceAll(h.HorseName, "|", "\\|"), h.TotalScore)
	}
	_, _ = fmt.Fprintln(w)
}

// escapeMarkdown escapes markdown special characters
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
