package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/uma-oracle/dlogic/internal"
	"github.com/uma-oracle/dlogic/internal/export"
)

var (
	format         string
	outputDir      string
	conversationID string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export conversations to file",
	Long: `Export stored conversations to various formats (jsonl, md, yaml, json).

You can export all conversations or a specific one by id.
Use 'dlogic history list' to see available conversation ids.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		return withHistory(func(h *internal.HistoryStore) error {
			var convs []*internal.Conversation
			exported := 0
			steps := []internal.ProgressStep{
				{
					Message: "Loading conversations",
					Fn: func() error {
						var err error
						convs, err = loadExportConversations(cmd.Context(), h)
						return err
					},
				},
				{
					Message: fmt.Sprintf("Writing %s files to %s", format, outputDir),
					Fn: func() error {
						if len(convs) == 0 {
							return nil
						}
						if err := os.MkdirAll(outputDir, 0755); err != nil {
							return &internal.ExportError{Format: format, Path: outputDir, Err: err}
						}
						for _, conv := range convs {
							if err := exportConversation(exporter, conv); err != nil {
								internal.LogError("%v", err)
								continue
							}
							exported++
						}
						return nil
					},
				},
			}
			if err := internal.ShowProgressWithSteps(cmd.Context(), steps); err != nil {
				return err
			}

			if len(convs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No conversations to export.")
				return nil
			}
			if exported < len(convs) {
				return &internal.ExportError{
					Format: format,
					Path:   outputDir,
					Err:    fmt.Errorf("%d of %d conversation(s) failed", len(convs)-exported, len(convs)),
				}
			}
			internal.PrintSuccess(fmt.Sprintf("Export complete: %d conversation(s) exported to %s", exported, outputDir))
			return nil
		})
	},
}

// loadExportConversations loads the requested conversation, or all of them
// with duplicates removed.
func loadExportConversations(ctx context.Context, h *internal.HistoryStore) ([]*internal.Conversation, error) {
	if conversationID != "" {
		conv, err := h.LoadConversation(ctx, conversationID)
		if err != nil {
			return nil, fmt.Errorf("%w (use 'dlogic history list' to see available conversations)", err)
		}
		return []*internal.Conversation{conv}, nil
	}

	all, err := h.LoadAllConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}
	convs := internal.NewDeduplicator().Deduplicate(all)
	if skipped := len(all) - len(convs); skipped > 0 {
		internal.LogInfo("Skipped %d duplicate conversation(s)", skipped)
	}
	return convs, nil
}

func exportConversation(exporter export.Exporter, conv *internal.Conversation) error {
	path := filepath.Join(outputDir, fmt.Sprintf("conversation_%s.%s", conv.ID, exporter.Extension()))

	file, err := os.Create(path)
	if err != nil {
		return &internal.ExportError{Format: format, Path: path, Err: err}
	}
	if err := exporter.Export(conv, file); err != nil {
		_ = file.Close()
		return &internal.ExportError{Format: format, Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &internal.ExportError{Format: format, Path: path, Err: err}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory")
	exportCmd.Flags().StringVar(&conversationID, "id", "", "Export a specific conversation by id or prefix")
}
