package delta_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deltasync/peersync/internal/delta"
	"github.com/deltasync/peersync/internal/model"
)

func msg(id model.MessageID, created model.Timestamp, text string) model.Message {
	return model.Message{
		MessageID:    id,
		CreatedDate:  created,
		ModifiedDate: created,
		Content:      model.Content{Kind: model.ContentPost, SenderID: "a", Text: text},
	}
}

func TestChunkMessagesEmptyInput(t *testing.T) {
	chunks, err := delta.ChunkMessages(nil, delta.DefaultMaxChunkSize)
	require.NoError(t, err)
	assert.Nil(t, chunks)
}

func TestChunkMessagesUnderBudgetIsOneChunk(t *testing.T) {
	messages := []model.Message{msg("a", 1, "x"), msg("b", 2, "y")}
	chunks, err := delta.ChunkMessages(messages, delta.DefaultMaxChunkSize)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Len(t, chunks[0], 2)
}

func TestChunkMessagesSplitsOnBudget(t *testing.T) {
	size, err := delta.MessageSize(msg("a", 1, "x"))
	require.NoError(t, err)

	messages := []model.Message{msg("a", 1, "x"), msg("b", 2, "y"), msg("c", 3, "z")}
	// Cap fits exactly two equal-sized messages, forcing the third into its
	// own chunk.
	chunks, err := delta.ChunkMessages(messages, size*2)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], 2)
	assert.Len(t, chunks[1], 1)
}

func TestChunkMessagesOversizedMessageGetsOwnChunk(t *testing.T) {
	big := msg("big", 1, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bigSize, err := delta.MessageSize(big)
	require.NoError(t, err)

	messages := []model.Message{msg("a", 1, "x"), big, msg("b", 2, "y")}
	chunks, err := delta.ChunkMessages(messages, bigSize-1)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 1)
	assert.Len(t, chunks[1], 1)
	assert.Equal(t, model.MessageID("big"), chunks[1][0].MessageID)
	assert.Len(t, chunks[2], 1)
}

func TestChunkMessagesPreservesOrder(t *testing.T) {
	messages := []model.Message{msg("a", 1, "x"), msg("b", 2, "y"), msg("c", 3, "z")}
	chunks, err := delta.ChunkMessages(messages, delta.DefaultMaxChunkSize)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, model.MessageID("a"), chunks[0][0].MessageID)
	assert.Equal(t, model.MessageID("b"), chunks[0][1].MessageID)
	assert.Equal(t, model.MessageID("c"), chunks[0][2].MessageID)
}
