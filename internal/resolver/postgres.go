package resolver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/chatlog"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/postgres"
)

const messageColumns = `doc_id, seq, sent_at, sender, body, is_reply, reply_to, has_reactions,
	reactions, translated, is_media, is_ocr, local_uri, remote_url`

// PostgresResolver reads and writes the messages and conversations tables.
type PostgresResolver struct {
	pg     *postgres.Client
	logger *slog.Logger
}

func NewPostgresResolver(pg *postgres.Client) *PostgresResolver {
	return &PostgresResolver{
		pg:     pg,
		logger: slog.Default().With("component", "postgres-resolver"),
	}
}

// Store replaces a conversation's metadata and messages in one transaction.
// Messages are bulk loaded with COPY.
func (r *PostgresResolver) Store(ctx context.Context, conv Conversation, msgs []chatlog.Message) error {
	err := r.pg.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO conversations (name, display_name, participants, platform, language, message_count, indexed_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
			ON CONFLICT (name) DO UPDATE SET
				display_name = EXCLUDED.display_name,
				participants = EXCLUDED.participants,
				platform = EXCLUDED.platform,
				language = EXCLUDED.language,
				message_count = EXCLUDED.message_count,
				indexed_at = EXCLUDED.indexed_at`,
			conv.InternalName, conv.DisplayName, pq.Array(conv.Participants),
			conv.Platform, conv.Language, len(msgs),
		)
		if err != nil {
			return fmt.Errorf("upserting conversation: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation = $1`, conv.InternalName); err != nil {
			return fmt.Errorf("clearing messages: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("messages",
			"conversation", "doc_id", "seq", "sent_at", "sender", "body", "is_reply", "reply_to",
			"has_reactions", "reactions", "translated", "is_media", "is_ocr", "local_uri", "remote_url"))
		if err != nil {
			return fmt.Errorf("preparing copy: %w", err)
		}
		defer stmt.Close()
		for _, m := range msgs {
			_, err := stmt.ExecContext(ctx, conv.InternalName, string(m.DocNo), m.Seq, m.Time, m.Sender,
				m.Text, m.IsReply, m.ReplyTo, m.HasReactions, m.Reactions, m.Translated,
				m.IsMedia, m.IsOCR, m.LocalURI, m.RemoteURL)
			if err != nil {
				return fmt.Errorf("copying message %s: %w", m.DocNo, err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			return fmt.Errorf("flushing copy: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.logger.Info("conversation stored", "conversation", conv.InternalName, "messages", len(msgs))
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (chatlog.Message, error) {
	var m chatlog.Message
	var id string
	err := row.Scan(&id, &m.Seq, &m.Time, &m.Sender, &m.Text, &m.IsReply, &m.ReplyTo,
		&m.HasReactions, &m.Reactions, &m.Translated, &m.IsMedia, &m.IsOCR, &m.LocalURI, &m.RemoteURL)
	m.DocNo = index.DocID(id)
	return m, err
}

func (r *PostgresResolver) Message(ctx context.Context, conv string, doc index.DocID) (chatlog.Message, error) {
	row := r.pg.DB.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE conversation = $1 AND doc_id = $2`, conv, string(doc))
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		if _, cerr := r.Conversation(ctx, conv); cerr != nil {
			return chatlog.Message{}, cerr
		}
		return chatlog.Message{}, apperrors.Newf(apperrors.ErrDocumentNotFound, http.StatusNotFound, "message %q not found in %q", doc, conv)
	}
	if err != nil {
		return chatlog.Message{}, fmt.Errorf("querying message: %w", err)
	}
	return m, nil
}

func (r *PostgresResolver) Window(ctx context.Context, conv string, doc index.DocID, n int, includeMedia bool) ([]chatlog.Message, error) {
	target, err := r.Message(ctx, conv, doc)
	if err != nil {
		return nil, err
	}
	n = max(n, 0)

	before, err := r.query(ctx, `SELECT `+messageColumns+` FROM messages
		WHERE conversation = $1 AND seq < $2 AND ($3 OR NOT is_media)
		ORDER BY seq DESC LIMIT $4`, conv, target.Seq, includeMedia, n)
	if err != nil {
		return nil, err
	}

	after := n
	out := make([]chatlog.Message, 0, 2*n+1)
	for i := len(before) - 1; i >= 0; i-- {
		out = append(out, before[i])
	}
	if includeMedia || !target.IsMedia {
		out = append(out, target)
	} else {
		after++
	}

	rest, err := r.query(ctx, `SELECT `+messageColumns+` FROM messages
		WHERE conversation = $1 AND seq > $2 AND ($3 OR NOT is_media)
		ORDER BY seq ASC LIMIT $4`, conv, target.Seq, includeMedia, after)
	if err != nil {
		return nil, err
	}
	return append(out, rest...), nil
}

func (r *PostgresResolver) query(ctx context.Context, q string, args ...any) ([]chatlog.Message, error) {
	rows, err := r.pg.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()
	var out []chatlog.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PostgresResolver) Conversation(ctx context.Context, conv string) (Conversation, error) {
	var c Conversation
	err := r.pg.DB.QueryRowContext(ctx, `
		SELECT name, display_name, participants, platform, language, message_count, indexed_at
		FROM conversations WHERE name = $1`, conv,
	).Scan(&c.InternalName, &c.DisplayName, pq.Array(&c.Participants), &c.Platform,
		&c.Language, &c.MessageCount, &c.IndexedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Conversation{}, apperrors.Newf(apperrors.ErrConversationNotFound, http.StatusNotFound, "conversation %q not found", conv)
	}
	if err != nil {
		return Conversation{}, fmt.Errorf("querying conversation: %w", err)
	}
	return c, nil
}
