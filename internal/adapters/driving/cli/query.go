package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/embedx-labs/embedx-cli/internal/core/domain"
	"github.com/embedx-labs/embedx-cli/internal/logger"
)

var (
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Find the documents nearest to a query",
	Long: `Embeds the query and returns the metadata of the documents whose
chunks lie nearest in the vector index, ranked by distance.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of neighbours to consider (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if retrieverService == nil {
		return errors.New("retrieval service not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := pingEmbedder(ctx); err != nil {
		return err
	}
	if vectorIndex != nil {
		logger.Debug("Index holds %d vectors", vectorIndex.Size())
	}

	results, err := retrieverService.Retrieve(ctx, args[0], domain.RetrieveOptions{TopK: queryTopK})
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	if queryJSON {
		return outputQueryJSON(cmd, results)
	}
	return outputQueryTable(cmd, results)
}

func outputQueryJSON(cmd *cobra.Command, results []domain.RetrievedDocument) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputQueryTable(cmd *cobra.Command, results []domain.RetrievedDocument) error {
	if len(results) == 0 {
		// An empty result is not an error; it may also mean nothing is
		// indexed yet, which `document count` distinguishes.
		cmd.Println("No matching documents.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for _, r := range results {
		cmd.Printf("  [%d] %s (distance %.4f)\n", r.Rank, r.Document.Title, r.Distance)
		cmd.Printf("      %s\n", r.Document.SourcePath)
		cmd.Println()
	}
	return nil
}
