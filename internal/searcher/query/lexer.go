package query

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/errors"
)

type lexKind int

const (
	lexWord lexKind = iota
	lexPhrase
	lexProximity
	lexAnd
	lexOr
	lexNot
)

type lexeme struct {
	kind   lexKind
	text   string
	window int
	items  []string
}

func invalid(format string, args ...any) error {
	return apperrors.Newf(apperrors.ErrInvalidQuery, http.StatusBadRequest, format, args...)
}

func lex(raw string) ([]lexeme, error) {
	var out []lexeme
	rs := []rune(raw)
	i := 0
	for i < len(rs) {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '"':
			end := indexRune(rs, i+1, '"')
			if end < 0 {
				return nil, invalid("unterminated quote at offset %d", i)
			}
			out = append(out, lexeme{kind: lexPhrase, text: string(rs[i+1 : end])})
			i = end + 1
		case r == '#':
			lx, next, err := lexProximityGroup(rs, i)
			if err != nil {
				return nil, err
			}
			out = append(out, lx)
			i = next
		default:
			start := i
			for i < len(rs) && !unicode.IsSpace(rs[i]) && rs[i] != '"' && rs[i] != '#' {
				i++
			}
			word := string(rs[start:i])
			switch word {
			case "AND":
				out = append(out, lexeme{kind: lexAnd})
			case "OR":
				out = append(out, lexeme{kind: lexOr})
			case "NOT":
				out = append(out, lexeme{kind: lexNot})
			default:
				out = append(out, lexeme{kind: lexWord, text: word})
			}
		}
	}
	return out, nil
}

// lexProximityGroup reads #N(a, b, ...) starting at the '#'. A malformed
// group, such as a hashtag, is logged and becomes an empty group that matches
// nothing. Only an unclosed parenthesis is an error.
func lexProximityGroup(rs []rune, start int) (lexeme, int, error) {
	i := start + 1
	digits := i
	for i < len(rs) && rs[i] >= '0' && rs[i] <= '9' {
		i++
	}
	if i == digits || i >= len(rs) || rs[i] != '(' {
		return malformedGroup(rs, start)
	}
	end := indexRune(rs, i+1, ')')
	if end < 0 {
		return lexeme{}, 0, invalid("unclosed proximity group at offset %d", start)
	}
	window, err := strconv.Atoi(string(rs[digits:i]))
	if err != nil {
		return malformedGroup(rs, start)
	}
	var items []string
	for _, item := range strings.Split(string(rs[i+1:end]), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		slog.Default().With("component", "query-parser").Warn("empty proximity group", "group", string(rs[start:end+1]))
		return lexeme{kind: lexProximity}, end + 1, nil
	}
	return lexeme{kind: lexProximity, window: window, items: items}, end + 1, nil
}

// malformedGroup skips a '#' token that is not a proximity group. The token
// runs to the closing parenthesis when it opens one, otherwise to the next
// space.
func malformedGroup(rs []rune, start int) (lexeme, int, error) {
	end := start + 1
	for end < len(rs) && !unicode.IsSpace(rs[end]) && rs[end] != '(' {
		end++
	}
	if end < len(rs) && rs[end] == '(' {
		closing := indexRune(rs, end+1, ')')
		if closing < 0 {
			return lexeme{}, 0, invalid("unclosed proximity group at offset %d", start)
		}
		end = closing + 1
	}
	slog.Default().With("component", "query-parser").Warn("invalid proximity group, matching nothing", "group", string(rs[start:end]))
	return lexeme{kind: lexProximity}, end, nil
}

func indexRune(rs []rune, from int, target rune) int {
	for j := from; j < len(rs); j++ {
		if rs[j] == target {
			return j
		}
	}
	return -1
}

// build turns lexemes into clauses. Consecutive bare words form a single
// operand.
func build(lexemes []lexeme, tok tokenizer.Tokenizer) ([]Clause, error) {
	var clauses []Clause
	pending := OpOr
	haveOp := true
	var words []string

	emit := func(op Operand) {
		if !haveOp {
			pending = OpAnd
		}
		clauses = append(clauses, Clause{Op: pending, Operand: op})
		haveOp = false
	}
	flushWords := func() error {
		if len(words) == 0 {
			return nil
		}
		terms, err := normalise(tok, strings.Join(words, " "))
		if err != nil {
			return err
		}
		words = nil
		emit(TermOperand{Terms: terms})
		return nil
	}
	setOp := func(op Op) error {
		if haveOp && len(clauses) > 0 {
			return invalid("operator %s follows another operator", op)
		}
		pending = op
		haveOp = true
		return nil
	}

	for i := 0; i < len(lexemes); i++ {
		lx := lexemes[i]
		if lx.kind != lexWord {
			if err := flushWords(); err != nil {
				return nil, err
			}
		}
		switch lx.kind {
		case lexWord:
			words = append(words, lx.text)
		case lexPhrase:
			terms, err := normalise(tok, lx.text)
			if err != nil {
				return nil, err
			}
			emit(PhraseOperand{Terms: terms})
		case lexProximity:
			terms, err := proximityTerms(tok, lx.items)
			if err != nil {
				return nil, err
			}
			emit(ProximityOperand{Window: lx.window, Terms: terms})
		case lexAnd, lexOr:
			op := OpAnd
			if lx.kind == lexOr {
				op = OpOr
			}
			if i+1 < len(lexemes) && lexemes[i+1].kind == lexNot {
				i++
				if op == OpAnd {
					op = OpNot
				}
			}
			if len(clauses) == 0 {
				return nil, invalid("query cannot start with %s", op)
			}
			if err := setOp(op); err != nil {
				return nil, err
			}
		case lexNot:
			if err := setOp(OpNot); err != nil {
				return nil, err
			}
		}
	}
	if err := flushWords(); err != nil {
		return nil, err
	}
	if haveOp && len(clauses) > 0 {
		return nil, invalid("query ends with operator %s", pending)
	}
	if len(clauses) == 0 {
		return nil, invalid("query has no operands")
	}
	return clauses, nil
}

// proximityTerms normalises each item of a proximity group. If any item
// normalises to nothing it can never be found, so the group gets no terms
// and matches nothing.
func proximityTerms(tok tokenizer.Tokenizer, items []string) ([]string, error) {
	var terms []string
	for _, item := range items {
		t, err := normalise(tok, item)
		if err != nil {
			return nil, err
		}
		if len(t) == 0 {
			return nil, nil
		}
		terms = append(terms, t...)
	}
	return terms, nil
}

func normalise(tok tokenizer.Tokenizer, text string) ([]string, error) {
	terms, err := tok.Tokenize(text)
	if err != nil {
		return nil, invalid("normalising %q: %v", text, err)
	}
	return terms, nil
}
