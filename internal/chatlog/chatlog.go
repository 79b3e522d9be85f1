// Package chatlog reads the CSV files produced by the platform exporters:
// <name>.chatlog.csv with one row per message, and <name>.info.csv with the
// conversation's display name and participants.
package chatlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/errors"
)

const (
	ChatlogSuffix = ".chatlog.csv"
	InfoSuffix    = ".info.csv"

	// DefaultPlatform is assumed for conversation names without a
	// "<platform>__" prefix.
	DefaultPlatform = "whatsapp"
)

// Message is one chatlog row.
type Message struct {
	DocNo        index.DocID `json:"doc_id"`
	Seq          int         `json:"seq"`
	Time         string      `json:"time"`
	Sender       string      `json:"sender"`
	Text         string      `json:"message"`
	IsReply      bool        `json:"is_reply"`
	ReplyTo      string      `json:"reply_to,omitempty"`
	HasReactions bool        `json:"has_reactions"`
	Reactions    string      `json:"reactions,omitempty"`
	Translated   string      `json:"translated,omitempty"`
	IsMedia      bool        `json:"is_media"`
	IsOCR        bool        `json:"is_ocr"`
	LocalURI     string      `json:"local_uri,omitempty"`
	RemoteURL    string      `json:"remote_url,omitempty"`
}

// Indexable reports whether the message carries searchable text. Media
// rows only do when their text is an OCR transcription.
func (m Message) Indexable() bool {
	if strings.TrimSpace(m.Text) == "" {
		return false
	}
	return !m.IsMedia || m.IsOCR
}

// Columns names the header fields holding the document id and message
// text. Every other column is optional.
type Columns struct {
	DocID   string
	Message string
}

// DefaultColumns matches the exporter output.
func DefaultColumns() Columns {
	return Columns{DocID: "docNo", Message: "message"}
}

// ReadChatlog parses a chatlog CSV. The header row is required and must
// contain cols.DocID and cols.Message. Rows that are too short, fail to
// parse, or repeat an earlier doc id are logged and skipped.
func ReadChatlog(r io.Reader, cols Columns) ([]Message, error) {
	logger := slog.Default().With("component", "chatlog")
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: chatlog has no header row", apperrors.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("reading chatlog header: %w", err)
	}
	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	idCol, ok := pos[cols.DocID]
	if !ok {
		return nil, fmt.Errorf("%w: chatlog header lacks id column %q", apperrors.ErrInvalidInput, cols.DocID)
	}
	textCol, ok := pos[cols.Message]
	if !ok {
		return nil, fmt.Errorf("%w: chatlog header lacks message column %q", apperrors.ErrInvalidInput, cols.Message)
	}
	field := func(row []string, name string) string {
		if i, ok := pos[name]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}

	var msgs []Message
	seen := make(map[index.DocID]struct{})
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				logger.Warn("skipping unparseable chatlog row", "line", perr.Line, "error", perr.Err)
				continue
			}
			return nil, fmt.Errorf("reading chatlog: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if idCol >= len(row) || textCol >= len(row) {
			logger.Warn("skipping short chatlog row", "line", line, "fields", len(row))
			continue
		}
		id := index.DocID(strings.TrimSpace(row[idCol]))
		if id == "" {
			logger.Warn("skipping chatlog row without id", "line", line)
			continue
		}
		if _, dup := seen[id]; dup {
			logger.Warn("skipping duplicate chatlog id", "line", line, "doc_id", id)
			continue
		}
		seen[id] = struct{}{}
		msgs = append(msgs, Message{
			DocNo:        id,
			Seq:          len(msgs),
			Time:         field(row, "time"),
			Sender:       field(row, "sender"),
			Text:         row[textCol],
			IsReply:      parseBool(field(row, "isReply")),
			ReplyTo:      field(row, "who_replied_to"),
			HasReactions: parseBool(field(row, "has_reactions")),
			Reactions:    field(row, "reactions"),
			Translated:   field(row, "translated"),
			IsMedia:      parseBool(field(row, "is_media")),
			IsOCR:        parseBool(field(row, "is_OCR")),
			LocalURI:     field(row, "local_uri"),
			RemoteURL:    field(row, "remote_url"),
		})
	}
	return msgs, nil
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

// Info is the per-conversation metadata file.
type Info struct {
	InternalName string   `json:"internal_name"`
	DisplayName  string   `json:"display_name"`
	Platform     string   `json:"platform"`
	Participants []string `json:"participants"`
}

// ReadInfo parses an info CSV: a header row followed by one row of
// internal name, display name and a bracketed participant list such as
// "[Alice, Bob]".
func ReadInfo(r io.Reader) (Info, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return Info{}, fmt.Errorf("reading info csv: %w", err)
	}
	if len(rows) < 2 || len(rows[1]) < 2 {
		return Info{}, fmt.Errorf("%w: info csv needs a header and a data row", apperrors.ErrInvalidInput)
	}
	row := rows[1]
	info := Info{
		InternalName: strings.TrimSpace(row[0]),
		DisplayName:  strings.TrimSpace(row[1]),
	}
	info.Platform = PlatformOf(info.InternalName)
	if len(row) > 2 {
		info.Participants = parseParticipants(row[2])
	}
	return info, nil
}

func parseParticipants(s string) []string {
	s = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(s), "["), "]")
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.Trim(strings.TrimSpace(p), `'"`)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ConversationName derives the conversation name from a chatlog or info
// file path: "exports/instagram__team.chatlog.csv" -> "instagram__team".
func ConversationName(path string) string {
	base := filepath.Base(path)
	for _, suffix := range []string{ChatlogSuffix, InfoSuffix, ".csv"} {
		if strings.HasSuffix(base, suffix) {
			return strings.TrimSuffix(base, suffix)
		}
	}
	return base
}

// InfoPath returns the info file that sits next to a chatlog.
func InfoPath(chatlogPath string) string {
	return filepath.Join(filepath.Dir(chatlogPath), ConversationName(chatlogPath)+InfoSuffix)
}

// PlatformOf returns the platform prefix of a conversation name.
func PlatformOf(name string) string {
	if platform, _, ok := strings.Cut(name, "__"); ok && platform != "" {
		return strings.ToLower(platform)
	}
	return DefaultPlatform
}
