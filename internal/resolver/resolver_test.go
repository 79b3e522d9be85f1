package resolver

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/chatlog"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/postgres"
)

// fixture builds ten messages; ids 3 and 6 are media.
func fixture() (Conversation, []chatlog.Message) {
	msgs := make([]chatlog.Message, 10)
	for i := range msgs {
		msgs[i] = chatlog.Message{
			DocNo:  index.DocID(strconv.Itoa(i)),
			Seq:    i,
			Sender: "alice",
			Text:   "message " + strconv.Itoa(i),
		}
	}
	msgs[3].IsMedia = true
	msgs[6].IsMedia = true
	conv := Conversation{Info: chatlog.Info{
		InternalName: "whatsapp__group",
		DisplayName:  "Group",
		Platform:     "whatsapp",
		Participants: []string{"alice", "bob"},
	}, Language: "english"}
	return conv, msgs
}

func ids(msgs []chatlog.Message) []index.DocID {
	out := make([]index.DocID, len(msgs))
	for i, m := range msgs {
		out[i] = m.DocNo
	}
	return out
}

func resolverContract(t *testing.T, r Store) {
	ctx := context.Background()
	conv, msgs := fixture()
	require.NoError(t, r.Store(ctx, conv, msgs))

	m, err := r.Message(ctx, "whatsapp__group", "4")
	require.NoError(t, err)
	assert.Equal(t, "message 4", m.Text)

	got, err := r.Conversation(ctx, "whatsapp__group")
	require.NoError(t, err)
	assert.Equal(t, "Group", got.DisplayName)
	assert.Equal(t, []string{"alice", "bob"}, got.Participants)
	assert.Equal(t, 10, got.MessageCount)

	cases := []struct {
		name  string
		doc   index.DocID
		n     int
		media bool
		want  []index.DocID
	}{
		{"skips media", "5", 2, false, []index.DocID{"2", "4", "5", "7", "8"}},
		{"with media", "5", 2, true, []index.DocID{"3", "4", "5", "6", "7"}},
		{"media target", "6", 1, false, []index.DocID{"5", "7", "8"}},
		{"clipped at start", "0", 2, false, []index.DocID{"0", "1", "2"}},
		{"clipped at end", "9", 3, true, []index.DocID{"6", "7", "8", "9"}},
		{"zero width", "4", 0, false, []index.DocID{"4"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, err := r.Window(ctx, "whatsapp__group", tc.doc, tc.n, tc.media)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(w))
		})
	}

	_, err = r.Message(ctx, "whatsapp__group", "99")
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
	assert.Equal(t, http.StatusNotFound, apperrors.HTTPStatusCode(err))
	_, err = r.Message(ctx, "nope", "1")
	assert.ErrorIs(t, err, apperrors.ErrConversationNotFound)
	assert.Equal(t, http.StatusNotFound, apperrors.HTTPStatusCode(err))
	_, err = r.Window(ctx, "nope", "1", 1, false)
	assert.ErrorIs(t, err, apperrors.ErrConversationNotFound)
	_, err = r.Conversation(ctx, "nope")
	assert.ErrorIs(t, err, apperrors.ErrConversationNotFound)
}

func TestMemoryResolver(t *testing.T) {
	resolverContract(t, NewMemoryResolver())
}

func TestPostgresResolver(t *testing.T) {
	if os.Getenv("CS_TEST_POSTGRES") == "" {
		t.Skip("set CS_TEST_POSTGRES to run against a live database")
	}
	cfg := config.Default()
	ctx := context.Background()
	pg, err := postgres.New(ctx, cfg.Postgres)
	require.NoError(t, err)
	t.Cleanup(func() { pg.Close() })
	require.NoError(t, pg.Migrate(ctx))
	_, err = pg.DB.ExecContext(ctx, `DELETE FROM conversations WHERE name = 'nope'`)
	require.NoError(t, err)

	resolverContract(t, NewPostgresResolver(pg))
}
