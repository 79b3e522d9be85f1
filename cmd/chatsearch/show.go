package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var showFormat string

var showCmd = &cobra.Command{
	Use:   "show <conversation> <term>",
	Short: "Print the postings of one term",
	Long: `Show normalizes term with the conversation's tokenizer and prints its
document frequency and every (document, positions) posting.`,
	Args: cobra.ExactArgs(2),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVar(&showFormat, "format", "", "index format to load, overrides search.format")
}

func runShow(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	reg, err := e.registry(showFormat)
	if err != nil {
		return err
	}
	conv, err := reg.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	term := args[1]
	terms, err := conv.Tokenizer.Tokenize(term)
	if err != nil {
		return err
	}
	switch len(terms) {
	case 0:
		return fmt.Errorf("%q is a stopword or has no indexable characters", term)
	case 1:
		term = terms[0]
	default:
		return fmt.Errorf("%q normalizes to %d terms, show takes one", args[1], len(terms))
	}

	out := cmd.OutOrStdout()
	postings := conv.Index.Postings(term)
	fmt.Fprintf(out, "%s: term %q, document frequency %d\n", conv.Name, term, len(postings))
	rows := make([][]string, len(postings))
	for i, p := range postings {
		pos := make([]string, len(p.Positions))
		for j, v := range p.Positions {
			pos[j] = strconv.Itoa(v)
		}
		rows[i] = []string{string(p.DocID), strconv.Itoa(len(p.Positions)), strings.Join(pos, ",")}
	}
	return renderTable(out, []string{"doc", "tf", "positions"}, rows)
}
