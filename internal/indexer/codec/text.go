// Package codec reads and writes the human-readable text form of a
// conversation index:
//
//	term: document_frequency
//	\tdoc_id: pos1, pos2, ...
//	\tdoc_id: pos1, pos2, ...
//
//	term2: document_frequency
//	...
//
// Terms are written in lexical order and documents in natural order, each
// block followed by one blank line. The reader is tolerant: blank lines are
// optional, posting lines may be indented with tabs or spaces, and malformed
// lines are logged and skipped rather than failing the load.
package codec

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
)

const maxLineSize = 16 << 20

// ReadStats describes a ReadText call.
type ReadStats struct {
	Terms        int
	Postings     int
	Skipped      int
	DFMismatches int
	// DuplicateTerms counts term blocks dropped because the term had
	// already been read.
	DuplicateTerms int
}

// WriteText writes idx to w in the text format.
func WriteText(w io.Writer, idx *index.Index) error {
	bw := bufio.NewWriter(w)
	var line []byte
	for _, entry := range idx.Entries() {
		line = append(line[:0], entry.Term...)
		line = append(line, ": "...)
		line = strconv.AppendInt(line, int64(entry.DocumentFrequency), 10)
		line = append(line, '\n')
		for _, p := range entry.Postings {
			line = append(line, '\t')
			line = append(line, p.DocID...)
			line = append(line, ": "...)
			for i, pos := range p.Positions {
				if i > 0 {
					line = append(line, ", "...)
				}
				line = strconv.AppendInt(line, int64(pos), 10)
			}
			line = append(line, '\n')
		}
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return fmt.Errorf("writing term %q: %w", entry.Term, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing index text: %w", err)
	}
	return nil
}

type textReader struct {
	idx    *index.Index
	stats  ReadStats
	logger *slog.Logger

	term     string
	declared int
	seen     map[index.DocID]struct{}
	headers  map[string]struct{}
}

// ReadText parses the text format. Only I/O errors fail the read; document
// frequencies are recomputed from the postings actually loaded.
func ReadText(r io.Reader) (*index.Index, ReadStats, error) {
	tr := &textReader{
		idx:     index.New(),
		headers: make(map[string]struct{}),
		logger:  slog.Default().With("component", "pii-codec"),
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		switch {
		case strings.TrimSpace(line) == "":
			continue
		case line[0] == '\t' || line[0] == ' ':
			tr.posting(lineNo, strings.TrimSpace(line))
		default:
			tr.endTerm()
			tr.startTerm(lineNo, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, tr.stats, fmt.Errorf("reading index text at line %d: %w", lineNo+1, err)
	}
	tr.endTerm()
	tr.stats.Terms = tr.idx.Len()
	return tr.idx, tr.stats, nil
}

func (tr *textReader) skip(lineNo int, reason string, line string) {
	tr.stats.Skipped++
	tr.logger.Warn("skipping malformed index line", "line", lineNo, "reason", reason, "text", line)
}

func (tr *textReader) startTerm(lineNo int, line string) {
	i := strings.LastIndex(line, ":")
	if i <= 0 {
		tr.skip(lineNo, "term line without ':'", line)
		return
	}
	df, err := strconv.Atoi(strings.TrimSpace(line[i+1:]))
	term := strings.TrimSpace(line[:i])
	if err != nil || df < 0 || term == "" {
		tr.skip(lineNo, "bad term header", line)
		return
	}
	// The first block wins; the postings of a repeated block are skipped
	// as orphans.
	if _, dup := tr.headers[term]; dup {
		tr.stats.DuplicateTerms++
		tr.skip(lineNo, "duplicate term block", line)
		return
	}
	tr.headers[term] = struct{}{}
	tr.term = term
	tr.declared = df
	tr.seen = make(map[index.DocID]struct{})
}

func (tr *textReader) endTerm() {
	if tr.term == "" {
		return
	}
	if got := len(tr.seen); got != tr.declared {
		tr.stats.DFMismatches++
		tr.logger.Warn("document frequency mismatch, using posting count",
			"term", tr.term, "declared", tr.declared, "postings", got)
	}
	tr.term = ""
	tr.seen = nil
}

func (tr *textReader) posting(lineNo int, line string) {
	if tr.term == "" {
		tr.skip(lineNo, "posting outside a term block", line)
		return
	}
	i := strings.LastIndex(line, ":")
	if i <= 0 {
		tr.skip(lineNo, "posting line without ':'", line)
		return
	}
	doc := index.DocID(strings.TrimSpace(line[:i]))
	if _, dup := tr.seen[doc]; dup {
		tr.skip(lineNo, "duplicate document in term block", line)
		return
	}
	positions, err := parsePositions(line[i+1:])
	if err != nil {
		tr.skip(lineNo, err.Error(), line)
		return
	}
	for _, p := range positions {
		tr.idx.Add(tr.term, doc, p)
	}
	tr.seen[doc] = struct{}{}
	tr.stats.Postings++
}

func parsePositions(s string) (index.Positions, error) {
	fields := strings.Split(s, ",")
	positions := make(index.Positions, 0, len(fields))
	prev := 0
	for _, f := range fields {
		p, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("bad position %q", strings.TrimSpace(f))
		}
		if p <= prev {
			return nil, fmt.Errorf("positions not strictly increasing from 1")
		}
		positions = append(positions, p)
		prev = p
	}
	return positions, nil
}
