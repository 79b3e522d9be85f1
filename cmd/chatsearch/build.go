package main

import (
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/config"
)

var (
	buildLanguage string
	buildFormats  []string
)

var buildCmd = &cobra.Command{
	Use:   "build <chatlog.csv|dir>",
	Short: "Index one chatlog or every chatlog in a directory",
	Long: `Build replaces the stored index of each conversation it reads.

Examples:
  chatsearch build exports/whatsapp__family.chatlog.csv
  chatsearch build --language turkish exports/`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildLanguage, "language", "", "tokenizer language, overrides indexer.language")
	buildCmd.Flags().StringSliceVar(&buildFormats, "format", nil, "formats to write (text, binary)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	if len(buildFormats) > 0 {
		e.cfg.Indexer.Formats = buildFormats
	}
	engine, err := indexer.NewEngine(e.cfg.Indexer, e.store)
	if err != nil {
		return err
	}

	target := args[0]
	fi, err := os.Stat(target)
	if err != nil {
		return err
	}

	var results []*indexer.BuildResult
	var buildErr error
	if fi.IsDir() {
		if buildLanguage != "" {
			return fmt.Errorf("--language applies to a single chatlog; set indexer.language for a folder")
		}
		results, buildErr = engine.BuildFolder(cmd.Context(), target)
	} else {
		res, err := engine.Build(cmd.Context(), indexer.BuildRequest{ChatlogPath: target, Language: buildLanguage})
		if err != nil {
			return err
		}
		results = append(results, res)
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.Conversation,
			r.Language.String(),
			strconv.Itoa(r.Messages),
			strconv.Itoa(r.Stats.Indexed),
			strconv.Itoa(r.Stats.Skipped),
			strconv.Itoa(r.Stats.Terms),
			r.Stats.Duration.String(),
		})
	}
	if len(rows) > 0 {
		headers := []string{"conversation", "language", "messages", "indexed", "skipped", "terms", "duration"}
		if err := renderTable(cmd.OutOrStdout(), headers, rows); err != nil {
			return err
		}
	}
	return buildErr
}

var convertTo string

var convertCmd = &cobra.Command{
	Use:   "convert <conversation>",
	Short: "Rewrite a stored index in the other file format",
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

func init() {
	convertCmd.Flags().StringVar(&convertTo, "to", config.FormatBinary, "target format (text, binary)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	name := args[0]
	var from string
	switch convertTo {
	case config.FormatBinary:
		from = config.FormatText
	case config.FormatText:
		from = config.FormatBinary
	default:
		return fmt.Errorf("unknown format %q", convertTo)
	}

	idx, err := e.store.Load(name, from)
	if err != nil {
		return err
	}
	if err := e.store.Save(name, idx, convertTo); err != nil {
		return err
	}

	// Older indexes may have no manifest; there is nothing to update then.
	if m, err := e.store.LoadManifest(name); err == nil {
		if !slices.Contains(m.Formats, convertTo) {
			m.Formats = append(m.Formats, convertTo)
			if err := e.store.SaveManifest(m); err != nil {
				return err
			}
		}
	}
	path, _ := e.store.Path(name, convertTo)
	fmt.Fprintf(cmd.OutOrStdout(), "%s: wrote %s (%d terms)\n", name, path, idx.Len())
	return nil
}
