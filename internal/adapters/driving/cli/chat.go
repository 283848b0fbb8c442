package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	chatSessionFlag string
	historyLimit    int
)

// defaultSessionID groups exchanges made without an explicit --session
// into one shared conversation.
const defaultSessionID = "default"

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Ask a question about the indexed documents",
	Long: `Retrieves the documents most relevant to the question, generates a
response over each of them and records the exchange in the session's
conversation log.

Sessions keep conversations apart. Without --session, exchanges go to a
shared "default" session; pass "new" to start a fresh one.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

var chatHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past exchanges for a session",
	Args:  cobra.NoArgs,
	RunE:  runChatHistory,
}

var chatClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete a session's conversation log",
	Args:  cobra.NoArgs,
	RunE:  runChatClear,
}

func init() {
	chatCmd.PersistentFlags().StringVarP(&chatSessionFlag, "session", "s", defaultSessionID,
		`conversation session id ("new" generates one)`)
	chatHistoryCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum exchanges to show")

	chatCmd.AddCommand(chatHistoryCmd)
	chatCmd.AddCommand(chatClearCmd)
	rootCmd.AddCommand(chatCmd)
}

// resolveSession expands the "new" sentinel into a generated session id.
func resolveSession() string {
	if chatSessionFlag == "new" {
		return uuid.NewString()
	}
	return chatSessionFlag
}

func runChat(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured (is an LLM provider set?)")
	}

	question := strings.Join(args, " ")
	sessionID := resolveSession()
	if sessionID != defaultSessionID {
		cmd.Printf("Session: %s\n\n", sessionID)
	}

	response, err := chatService.Ask(context.Background(), sessionID, question)
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	cmd.Println(response)
	return nil
}

func runChatHistory(cmd *cobra.Command, _ []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	entries, err := chatService.History(context.Background(), resolveSession(), historyLimit)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if len(entries) == 0 {
		cmd.Println("No conversation history for this session.")
		return nil
	}

	for i := range entries {
		cmd.Printf("[%s]\n", entries[i].Timestamp.Format("2006-01-02 15:04:05"))
		cmd.Printf("> %s\n", entries[i].Prompt)
		cmd.Printf("%s\n\n", entries[i].Response)
	}
	return nil
}

func runChatClear(cmd *cobra.Command, _ []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	sessionID := resolveSession()
	if err := chatService.ClearHistory(context.Background(), sessionID); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	cmd.Printf("Cleared conversation history for session %q.\n", sessionID)
	return nil
}
