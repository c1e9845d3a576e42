package export

import (
	"io"

	"github.com/bytedance/sonic"
	"github.com/uma-oracle/dlogic/internal"
)

// JSONExporter exports conversations in JSON format (pretty-printed)
type JSONExporter struct{}

// Export writes the whole conversation, predictions included
func (e *JSONExporter) Export(conv *internal.Conversation, w io.Writer) error {
	data, err := sonic.ConfigStd.MarshalIndent(conv, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
