package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/chatlog"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/resolver"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/config"
)

var (
	searchLimit      int
	searchFormat     string
	searchChatlogDir string
	searchContext    int
)

func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum results, 0 for all")
	cmd.Flags().StringVar(&searchFormat, "format", "", "index format to load, overrides search.format")
	cmd.Flags().StringVar(&searchChatlogDir, "chatlog-dir", "", "directory holding the chatlogs, used to print message text")
}

var searchCmd = &cobra.Command{
	Use:   "search <conversation> <query>",
	Short: "Search one conversation",
	Long: `Search one conversation. Plain words are ranked with BM25; queries using
AND, OR, NOT, "phrases" or #N(a, b) proximity are evaluated as boolean queries.

Examples:
  chatsearch search whatsapp__family "dinner tonight"
  chatsearch search whatsapp__family 'dinner AND NOT "last week"'
  chatsearch search --chatlog-dir exports --context 2 whatsapp__family pizza`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSearch,
}

var searchAllCmd = &cobra.Command{
	Use:   "search-all <query>",
	Short: "Search every stored conversation",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearchAll,
}

func init() {
	addSearchFlags(searchCmd)
	addSearchFlags(searchAllCmd)
	searchCmd.Flags().IntVar(&searchContext, "context", 0, "messages of context to print around each hit (needs --chatlog-dir)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	exec, _, err := e.executor(searchFormat)
	if err != nil {
		return err
	}
	conv, raw := args[0], strings.Join(args[1:], " ")

	res, err := exec.Execute(cmd.Context(), conv, raw, searchLimit)
	if err != nil {
		return err
	}

	var msgs *resolver.MemoryResolver
	if searchChatlogDir != "" {
		if msgs, err = loadMessages(cmd.Context(), e.cfg.Indexer, searchChatlogDir, conv); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d hits (%s query)\n", conv, res.TotalHits, res.Mode)
	rows := make([][]string, 0, len(res.Results))
	for i, hit := range res.Results {
		row := []string{strconv.Itoa(i + 1), string(hit.DocID), formatScore(hit.Score)}
		if msgs != nil {
			row = append(row, messageText(cmd.Context(), msgs, conv, hit.DocID))
		}
		rows = append(rows, row)
	}
	headers := []string{"rank", "doc", "score"}
	if msgs != nil {
		headers = append(headers, "message")
	}
	if err := renderTable(out, headers, rows); err != nil {
		return err
	}

	if msgs != nil && searchContext > 0 {
		for _, hit := range res.Results {
			if err := printWindow(cmd.Context(), out, msgs, conv, hit.DocID, searchContext); err != nil {
				return err
			}
		}
	}
	return nil
}

func runSearchAll(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	exec, _, err := e.executor(searchFormat)
	if err != nil {
		return err
	}
	raw := strings.Join(args, " ")

	res, err := exec.ExecuteAll(cmd.Context(), raw, searchLimit)
	if err != nil {
		return err
	}

	resolvers := make(map[string]*resolver.MemoryResolver)
	rows := make([][]string, 0, len(res.Results))
	for i, hit := range res.Results {
		row := []string{strconv.Itoa(i + 1), hit.Conversation, string(hit.DocID), formatScore(hit.Score)}
		if searchChatlogDir != "" {
			msgs, ok := resolvers[hit.Conversation]
			if !ok {
				if msgs, err = loadMessages(cmd.Context(), e.cfg.Indexer, searchChatlogDir, hit.Conversation); err != nil {
					return err
				}
				resolvers[hit.Conversation] = msgs
			}
			row = append(row, messageText(cmd.Context(), msgs, hit.Conversation, hit.DocID))
		}
		rows = append(rows, row)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d hits across %d conversations (%s query)\n", res.TotalHits, res.Conversations, res.Mode)
	headers := []string{"rank", "conversation", "doc", "score"}
	if searchChatlogDir != "" {
		headers = append(headers, "message")
	}
	if err := renderTable(out, headers, rows); err != nil {
		return err
	}
	if len(res.Failed) > 0 {
		return fmt.Errorf("could not search: %s", strings.Join(res.Failed, ", "))
	}
	return nil
}

// loadMessages reads a conversation's chatlog into memory so hits can be
// printed with their text.
func loadMessages(ctx context.Context, cfg config.IndexerConfig, dir, conv string) (*resolver.MemoryResolver, error) {
	path := filepath.Join(dir, conv+chatlog.ChatlogSuffix)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	msgs, err := chatlog.ReadChatlog(f, chatlog.Columns{DocID: cfg.DocIDColumn, Message: cfg.MessageColumn})
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	r := resolver.NewMemoryResolver()
	info := chatlog.Info{InternalName: conv, DisplayName: conv, Platform: chatlog.PlatformOf(conv)}
	if err := r.Store(ctx, resolver.Conversation{Info: info}, msgs); err != nil {
		return nil, err
	}
	return r, nil
}

func messageText(ctx context.Context, r resolver.Resolver, conv string, doc index.DocID) string {
	m, err := r.Message(ctx, conv, doc)
	if err != nil {
		return "(message not found)"
	}
	return m.Text
}

func printWindow(ctx context.Context, w io.Writer, r resolver.Resolver, conv string, doc index.DocID, n int) error {
	msgs, err := r.Window(ctx, conv, doc, n, false)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n-- %s #%s --\n", conv, doc)
	for _, m := range msgs {
		marker := "  "
		if m.DocNo == doc {
			marker = "> "
		}
		fmt.Fprintf(w, "%s[%s] %s: %s\n", marker, m.Time, m.Sender, m.Text)
	}
	return nil
}
