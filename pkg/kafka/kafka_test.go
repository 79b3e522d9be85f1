package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Chat-Search-Platform/pkg/config"
)

type buildRequest struct {
	Conversation string `json:"conversation"`
	Language     string `json:"language"`
}

func TestDecodeJSON(t *testing.T) {
	req, err := DecodeJSON[buildRequest]([]byte(`{"conversation":"team","language":"turkish"}`))
	require.NoError(t, err)
	assert.Equal(t, buildRequest{Conversation: "team", Language: "turkish"}, req)

	_, err = DecodeJSON[buildRequest]([]byte(`{not json`))
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	msg, err := encode(Event{Key: "team", Value: buildRequest{Conversation: "team"}})
	require.NoError(t, err)
	assert.Equal(t, "team", string(msg.Key))
	assert.JSONEq(t, `{"conversation":"team","language":""}`, string(msg.Value))

	_, err = encode(Event{Key: "bad", Value: make(chan int)})
	assert.Error(t, err)
}

func TestEnabled(t *testing.T) {
	assert.False(t, Enabled(config.KafkaConfig{}))
	assert.True(t, Enabled(config.KafkaConfig{Brokers: []string{"localhost:9092"}}))
}
