package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage indexed documents",
	Long:  `List, count, delete or clear indexed document metadata.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentCount,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document's metadata",
	Long: `Removes the metadata row only. The document's vectors stay in the
index as dangling slots; queries matching them return no results.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentDelete,
}

var documentClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all documents and reset the vector index",
	Args:  cobra.NoArgs,
	RunE:  runDocumentClear,
}

func init() {
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentCountCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	documentCmd.AddCommand(documentClearCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentStore == nil {
		return errors.New("document store not configured")
	}

	docs, err := documentStore.ListDocuments(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}

	cmd.Printf("Indexed documents (%d):\n\n", len(docs))
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("      Title:  %s\n", docs[i].Title)
		cmd.Printf("      Source: %s\n", docs[i].SourcePath)
	}
	return nil
}

func runDocumentCount(cmd *cobra.Command, _ []string) error {
	if documentStore == nil {
		return errors.New("document store not configured")
	}

	count, err := documentStore.Count(context.Background())
	if err != nil {
		return fmt.Errorf("failed to count documents: %w", err)
	}

	cmd.Printf("%d documents", count)
	if vectorIndex != nil {
		cmd.Printf(", %d vectors", vectorIndex.Size())
	}
	cmd.Println()
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentStore == nil {
		return errors.New("document store not configured")
	}

	if err := documentStore.Delete(context.Background(), args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Deleted %s (vectors remain in the index as dangling slots)\n", args[0])
	return nil
}

func runDocumentClear(cmd *cobra.Command, _ []string) error {
	if documentStore == nil || vectorIndex == nil {
		return errors.New("document store not configured")
	}

	ctx := context.Background()
	if err := documentStore.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	if err := vectorIndex.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset vector index: %w", err)
	}
	if slotIDMap != nil {
		if err := slotIDMap.Reset(); err != nil {
			return fmt.Errorf("failed to reset id map: %w", err)
		}
	}

	cmd.Println("Cleared all documents and reset the vector index.")
	return nil
}
