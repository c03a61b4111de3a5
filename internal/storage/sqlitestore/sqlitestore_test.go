package sqlitestore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deltasync/peersync/internal/model"
	"github.com/deltasync/peersync/internal/storage"
	"github.com/deltasync/peersync/internal/storage/sqlitestore"
)

func openTestStore(t *testing.T) *sqlitestore.Store {
	t.Helper()
	s, err := sqlitestore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleMessage(id model.MessageID, created model.Timestamp) model.Message {
	return model.Message{
		MessageID:    id,
		SpaceID:      "space1",
		ChannelID:    "chan1",
		CreatedDate:  created,
		ModifiedDate: created,
		Content:      model.Content{Kind: model.ContentPost, SenderID: "a", Text: "hi"},
	}
}

func TestSaveAndGetMessageRoundTrips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveMessage(ctx, sampleMessage("m1", 100)))

	got, err := s.GetMessage(ctx, "space1", "chan1", "m1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.MessageID("m1"), got.MessageID)
	assert.Equal(t, "hi", got.Content.Text)
}

func TestGetMessageMissingReturnsNilNoError(t *testing.T) {
	s := openTestStore(t)
	got, err := s.GetMessage(context.Background(), "space1", "chan1", "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveMessageUpsertsOnConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveMessage(ctx, sampleMessage("m1", 100)))
	edited := sampleMessage("m1", 100)
	edited.Content.Text = "edited"
	require.NoError(t, s.SaveMessage(ctx, edited))

	got, err := s.GetMessage(ctx, "space1", "chan1", "m1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "edited", got.Content.Text)
}

func TestGetMessagesOrdersByCreatedDateAscending(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveMessage(ctx, sampleMessage("b", 2)))
	require.NoError(t, s.SaveMessage(ctx, sampleMessage("a", 1)))
	require.NoError(t, s.SaveMessage(ctx, sampleMessage("c", 3)))

	result, err := s.GetMessages(ctx, storage.GetMessagesParams{
		Space: "space1", Channel: "chan1", Direction: storage.DirectionAsc,
	})
	require.NoError(t, err)
	require.Len(t, result.Messages, 3)
	assert.Equal(t, model.MessageID("a"), result.Messages[0].MessageID)
	assert.Equal(t, model.MessageID("b"), result.Messages[1].MessageID)
	assert.Equal(t, model.MessageID("c"), result.Messages[2].MessageID)
}

func TestGetMessagesRespectsLimitAndReturnsNextCursor(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveMessage(ctx, sampleMessage("a", 1)))
	require.NoError(t, s.SaveMessage(ctx, sampleMessage("b", 2)))
	require.NoError(t, s.SaveMessage(ctx, sampleMessage("c", 3)))

	result, err := s.GetMessages(ctx, storage.GetMessagesParams{
		Space: "space1", Channel: "chan1", Direction: storage.DirectionAsc, Limit: 2,
	})
	require.NoError(t, err)
	require.Len(t, result.Messages, 2)
	assert.NotEmpty(t, result.NextCursor)
}

func TestDeleteMessageRemovesIt(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveMessage(ctx, sampleMessage("m1", 100)))
	require.NoError(t, s.DeleteMessage(ctx, "space1", "chan1", "m1"))

	got, err := s.GetMessage(ctx, "space1", "chan1", "m1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveAndGetSpaceMembers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveSpaceMember(ctx, "space1", model.Member{Address: "alice", DisplayName: "Alice"}))
	require.NoError(t, s.SaveSpaceMember(ctx, "space1", model.Member{Address: "bob", DisplayName: "Bob"}))

	members, err := s.GetSpaceMembers(ctx, "space1")
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestSaveSpaceMemberUpsertsOnConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveSpaceMember(ctx, "space1", model.Member{Address: "alice", DisplayName: "Alice"}))
	require.NoError(t, s.SaveSpaceMember(ctx, "space1", model.Member{Address: "alice", DisplayName: "Alicia"}))

	members, err := s.GetSpaceMembers(ctx, "space1")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "Alicia", members[0].DisplayName)
}

func TestRemoveSpaceMemberDeletesIt(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveSpaceMember(ctx, "space1", model.Member{Address: "alice"}))
	require.NoError(t, s.RemoveSpaceMember(ctx, "space1", "alice"))

	members, err := s.GetSpaceMembers(ctx, "space1")
	require.NoError(t, err)
	assert.Empty(t, members)
}
