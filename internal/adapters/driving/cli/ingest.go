package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/embedx-labs/embedx-cli/internal/core/domain"
	"github.com/embedx-labs/embedx-cli/internal/logger"
)

var ingestWatch bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [directory]",
	Short: "Ingest documents from a directory",
	Long: `Extracts text from every supported file in the directory, embeds the
content and stores it in the vector index. Files whose content was
already ingested are skipped. With --watch, keeps running and ingests
files as they appear.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep watching the directory for new files")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	dir := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := pingEmbedder(ctx); err != nil {
		return err
	}

	outcomes, err := ingestService.IngestDir(ctx, dir)
	printOutcomes(cmd, outcomes)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if ingestWatch {
		return watchDir(ctx, cmd, dir)
	}
	return nil
}

func printOutcomes(cmd *cobra.Command, outcomes []domain.IngestOutcome) {
	var processed, skipped, failed int
	for _, o := range outcomes {
		switch o.State {
		case domain.IngestProcessed:
			processed++
			cmd.Printf("  processed  %s (%d chunks)\n", o.Path, o.Chunks)
		case domain.IngestSkipped:
			skipped++
			cmd.Printf("  skipped    %s (duplicate)\n", o.Path)
		case domain.IngestFailed:
			failed++
			cmd.Printf("  failed     %s: %v\n", o.Path, o.Err)
		}
	}
	cmd.Printf("\n%d processed, %d skipped, %d failed\n", processed, skipped, failed)
}

// watchDir ingests files as they are created or written in the
// directory until interrupted.
func watchDir(ctx context.Context, cmd *cobra.Command, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	cmd.Printf("Watching %s for new files (ctrl-c to stop)\n", dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sigCh:
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil || info.IsDir() {
				continue
			}

			outcome, err := ingestService.IngestFile(ctx, event.Name)
			if err != nil {
				return fmt.Errorf("ingestion failed for %s: %w", event.Name, err)
			}
			cmd.Printf("  %s  %s\n", outcome.State, filepath.Clean(event.Name))
		}
	}
}
