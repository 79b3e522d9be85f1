package chatlog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/errors"
)

const sampleChatlog = `docNo,time,sender,message,isReply,who_replied_to,has_reactions,reactions,translated,is_media,is_OCR,local_uri,remote_url
0,1700000000,Alice,the cat sat on the mat,False,,True,['Bob: 😂'],,False,False,,
1,1700000010,Bob,,False,,False,,,True,False,media/1.jpg,
2,1700000020,Bob,"a receipt, total 12",False,,False,,,True,True,media/2.jpg,
3,1700000030
1,1700000040,Eve,duplicate id,False,,False,,,False,False,,
4,1700000050,Alice,the dog sat on the log,True,Bob,False,,,False,False,,
`

func TestReadChatlog(t *testing.T) {
	msgs, err := ReadChatlog(strings.NewReader(sampleChatlog), DefaultColumns())
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	ids := make([]index.DocID, len(msgs))
	for i, m := range msgs {
		ids[i] = m.DocNo
		assert.Equal(t, i, m.Seq)
	}
	assert.Equal(t, []index.DocID{"0", "1", "2", "4"}, ids)

	assert.Equal(t, "Alice", msgs[0].Sender)
	assert.True(t, msgs[0].HasReactions)
	assert.True(t, msgs[0].Indexable())
	assert.False(t, msgs[1].Indexable(), "media without OCR")
	assert.True(t, msgs[2].Indexable(), "OCR transcription")
	assert.Equal(t, "a receipt, total 12", msgs[2].Text)
	assert.True(t, msgs[3].IsReply)
	assert.Equal(t, "Bob", msgs[3].ReplyTo)
}

func TestReadChatlogCustomColumns(t *testing.T) {
	in := "id,body\nm1,hello\nm2,world\n"
	msgs, err := ReadChatlog(strings.NewReader(in), Columns{DocID: "id", Message: "body"})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "world", msgs[1].Text)
}

func TestReadChatlogErrors(t *testing.T) {
	_, err := ReadChatlog(strings.NewReader(""), DefaultColumns())
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = ReadChatlog(strings.NewReader("docNo,text\n1,hi\n"), DefaultColumns())
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestReadInfo(t *testing.T) {
	in := "Internal chat name,Display name,Participants\ninstagram__team,Team Chat,\"[Alice, Bob, Carol]\"\n"
	info, err := ReadInfo(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, Info{
		InternalName: "instagram__team",
		DisplayName:  "Team Chat",
		Platform:     "instagram",
		Participants: []string{"Alice", "Bob", "Carol"},
	}, info)

	_, err = ReadInfo(strings.NewReader("Internal chat name,Display name,Participants\n"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "line__family", ConversationName("/data/line__family.chatlog.csv"))
	assert.Equal(t, "line__family", ConversationName("line__family.info.csv"))
	assert.Equal(t, "/data/line__family.info.csv", InfoPath("/data/line__family.chatlog.csv"))
	assert.Equal(t, "wechat", PlatformOf("WeChat__group"))
	assert.Equal(t, DefaultPlatform, PlatformOf("family"))
}
