package delta_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deltasync/peersync/internal/delta"
	"github.com/deltasync/peersync/internal/model"
)

func TestAssembleEmptyInputYieldsSingleFinalPayload(t *testing.T) {
	payloads, err := delta.Assemble(delta.AssembleInput{})
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.True(t, payloads[0].IsFinal)
}

func TestAssembleExactlyOnePayloadIsFinalAndItIsLast(t *testing.T) {
	payloads, err := delta.Assemble(delta.AssembleInput{
		NewMessages: []model.Message{msg("a", 1, "x"), msg("b", 2, "y")},
		MemberDelta: &model.MemberDelta{UpsertedMembers: []model.Member{{Address: "alice"}}},
	})
	require.NoError(t, err)

	finalCount := 0
	for i, p := range payloads {
		if p.IsFinal {
			finalCount++
			assert.Equal(t, len(payloads)-1, i)
		}
	}
	assert.Equal(t, 1, finalCount)
}

func TestAssembleDeletionsAttachOnlyToLastMessageChunk(t *testing.T) {
	size, err := delta.MessageSize(msg("a", 1, "x"))
	require.NoError(t, err)

	payloads, err := delta.Assemble(delta.AssembleInput{
		NewMessages:       []model.Message{msg("a", 1, "x"), msg("b", 2, "y")},
		DeletedMessageIDs: []model.MessageID{"gone"},
		MaxChunkSize:      size, // forces one message per chunk
	})
	require.NoError(t, err)
	require.Len(t, payloads, 2)

	assert.Empty(t, payloads[0].MessageDelta.DeletedMessageIDs)
	assert.Equal(t, []model.MessageID{"gone"}, payloads[1].MessageDelta.DeletedMessageIDs)
	assert.True(t, payloads[1].IsFinal)
}

func TestAssembleNewVsUpdatedClassification(t *testing.T) {
	updated := msg("b", 2, "y")
	payloads, err := delta.Assemble(delta.AssembleInput{
		NewMessages:     []model.Message{msg("a", 1, "x")},
		UpdatedMessages: []model.Message{updated},
	})
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	require.NotNil(t, payloads[0].MessageDelta)
	assert.Len(t, payloads[0].MessageDelta.NewMessages, 1)
	assert.Len(t, payloads[0].MessageDelta.UpdatedMessages, 1)
	assert.Equal(t, model.MessageID("a"), payloads[0].MessageDelta.NewMessages[0].MessageID)
	assert.Equal(t, model.MessageID("b"), payloads[0].MessageDelta.UpdatedMessages[0].MessageID)
}

func TestAssembleSynthesizesCarrierChunkWhenNoMessages(t *testing.T) {
	payloads, err := delta.Assemble(delta.AssembleInput{
		DeletedMessageIDs: []model.MessageID{"gone"},
	})
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	require.NotNil(t, payloads[0].MessageDelta)
	assert.Equal(t, []model.MessageID{"gone"}, payloads[0].MessageDelta.DeletedMessageIDs)
	assert.True(t, payloads[0].IsFinal)
}

func TestAssembleMemberOnlyDeltaProducesTrailingFinalPayload(t *testing.T) {
	payloads, err := delta.Assemble(delta.AssembleInput{
		MemberDelta: &model.MemberDelta{RemovedAddresses: []model.Address{"bob"}},
	})
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.True(t, payloads[0].IsFinal)
	require.NotNil(t, payloads[0].MemberDelta)
	assert.Equal(t, []model.Address{"bob"}, payloads[0].MemberDelta.RemovedAddresses)
}
