// Package query classifies and parses search strings.
//
// A query is ranked (BM25 over its tokens) unless it contains a
// whitespace-delimited uppercase AND, OR or NOT, a '#' proximity marker or a
// '"'. Boolean queries are a sequence of operands joined by operators and
// are evaluated strictly left to right with no precedence:
//
//	cat OR dog AND NOT "sat on"   ==   ((cat OR dog) AND NOT "sat on")
//
// Operands are bare words, quoted phrases, or proximity groups
// #N(term, term, ...). AND NOT is one operator; OR NOT is read as OR.
// Adjacent operands with no operator between them are joined with AND.
package query

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/searcher/match"
	apperrors "github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/errors"
)

type Mode int

const (
	ModeRanked Mode = iota
	ModeBoolean
)

func (m Mode) String() string {
	if m == ModeBoolean {
		return "boolean"
	}
	return "ranked"
}

// MarshalText lets Mode appear by name in JSON responses.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "ranked":
		*m = ModeRanked
	case "boolean":
		*m = ModeBoolean
	default:
		return fmt.Errorf("unknown query mode %q", b)
	}
	return nil
}

// Op combines an operand's matches into the running result.
type Op int

const (
	OpOr Op = iota
	OpAnd
	OpNot
)

func (o Op) String() string {
	switch o {
	case OpAnd:
		return "AND"
	case OpNot:
		return "NOT"
	default:
		return "OR"
	}
}

// Operand resolves to a set of documents in one index.
type Operand interface {
	Match(idx *index.Index) match.DocSet
	// QueryTerms lists the normalised terms the operand searches for.
	QueryTerms() []string
	String() string
}

// TermOperand is a bare word (or run of words). Every term must be present
// in a document for it to match; no terms matches nothing.
type TermOperand struct {
	Terms []string
}

func (o TermOperand) Match(idx *index.Index) match.DocSet {
	if len(o.Terms) == 0 {
		return match.DocSet{}
	}
	docs := match.Term(idx, o.Terms[0])
	for _, t := range o.Terms[1:] {
		docs = docs.Intersect(match.Term(idx, t))
	}
	return docs
}

func (o TermOperand) QueryTerms() []string { return o.Terms }
func (o TermOperand) String() string       { return strings.Join(o.Terms, " ") }

// PhraseOperand matches its terms at consecutive positions.
type PhraseOperand struct {
	Terms []string
}

func (o PhraseOperand) Match(idx *index.Index) match.DocSet { return match.Phrase(idx, o.Terms) }
func (o PhraseOperand) QueryTerms() []string                { return o.Terms }
func (o PhraseOperand) String() string                      { return `"` + strings.Join(o.Terms, " ") + `"` }

// ProximityOperand matches when all terms fall within Window positions.
type ProximityOperand struct {
	Window int
	Terms  []string
}

func (o ProximityOperand) Match(idx *index.Index) match.DocSet {
	return match.Proximity(idx, o.Window, o.Terms)
}
func (o ProximityOperand) QueryTerms() []string { return o.Terms }
func (o ProximityOperand) String() string {
	return fmt.Sprintf("#%d(%s)", o.Window, strings.Join(o.Terms, ", "))
}

// Clause applies Op with Operand to the result so far.
type Clause struct {
	Op      Op
	Operand Operand
}

// Plan is a parsed query. Ranked plans carry Terms; boolean plans carry
// Clauses, whose first entry is applied to the empty set.
type Plan struct {
	Raw     string
	Mode    Mode
	Terms   []string
	Clauses []Clause
}

// Evaluate folds the clauses left to right over idx.
func (p *Plan) Evaluate(idx *index.Index) match.DocSet {
	result := match.DocSet{}
	for _, c := range p.Clauses {
		docs := c.Operand.Match(idx)
		switch c.Op {
		case OpAnd:
			result = result.Intersect(docs)
		case OpOr:
			result = result.Union(docs)
		case OpNot:
			result = result.Difference(docs)
		}
	}
	return result
}

// PositiveTerms lists the terms of every operand not under NOT, used to
// order boolean hits. Ranked plans return Terms.
func (p *Plan) PositiveTerms() []string {
	if p.Mode == ModeRanked {
		return p.Terms
	}
	var terms []string
	for _, c := range p.Clauses {
		if c.Op != OpNot {
			terms = append(terms, c.Operand.QueryTerms()...)
		}
	}
	return terms
}

func (p *Plan) String() string {
	if p.Mode == ModeRanked {
		return strings.Join(p.Terms, " ")
	}
	var b strings.Builder
	for i, c := range p.Clauses {
		if i > 0 || c.Op == OpNot {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(c.Op.String())
			b.WriteByte(' ')
		}
		b.WriteString(c.Operand.String())
	}
	return b.String()
}

// Classify decides how raw should be evaluated.
func Classify(raw string) Mode {
	if strings.ContainsAny(raw, `#"`) {
		return ModeBoolean
	}
	for _, f := range strings.Fields(raw) {
		if f == "AND" || f == "OR" || f == "NOT" {
			return ModeBoolean
		}
	}
	return ModeRanked
}

// Parse classifies raw and normalises its terms with tok, which must be the
// tokenizer the index was built with.
func Parse(raw string, tok tokenizer.Tokenizer) (*Plan, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperrors.New(apperrors.ErrInvalidQuery, http.StatusBadRequest, "empty query")
	}
	plan := &Plan{Raw: raw, Mode: Classify(raw)}
	if plan.Mode == ModeRanked {
		terms, err := tok.Tokenize(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidQuery, err)
		}
		plan.Terms = terms
		return plan, nil
	}

	lexemes, err := lex(raw)
	if err != nil {
		return nil, err
	}
	clauses, err := build(lexemes, tok)
	if err != nil {
		return nil, err
	}
	plan.Clauses = clauses
	return plan, nil
}
