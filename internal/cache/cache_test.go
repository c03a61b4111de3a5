package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deltasync/peersync/internal/cache"
	"github.com/deltasync/peersync/internal/model"
)

func post(id model.MessageID, created model.Timestamp, text string) model.Message {
	return model.Message{
		MessageID:    id,
		CreatedDate:  created,
		ModifiedDate: created,
		Content:      model.Content{Kind: model.ContentPost, SenderID: "alice", Text: text},
	}
}

func TestManifestHashCommutative(t *testing.T) {
	c1 := cache.New("space", "chan")
	require.NoError(t, c1.UpsertMessage(post("a", 1, "x")))
	require.NoError(t, c1.UpsertMessage(post("b", 2, "y")))
	require.NoError(t, c1.UpsertMessage(post("c", 3, "z")))

	c2 := cache.New("space", "chan")
	require.NoError(t, c2.UpsertMessage(post("c", 3, "z")))
	require.NoError(t, c2.UpsertMessage(post("a", 1, "x")))
	require.NoError(t, c2.UpsertMessage(post("b", 2, "y")))

	assert.Equal(t, c1.Summary().ManifestHash, c2.Summary().ManifestHash)
}

func TestManifestHashXorIsSelfInverse(t *testing.T) {
	c := cache.New("space", "chan")
	empty := c.Summary().ManifestHash

	require.NoError(t, c.UpsertMessage(post("a", 1, "x")))
	c.RemoveMessage("a")

	assert.Equal(t, empty, c.Summary().ManifestHash)
}

func TestContentOnlyUpdateLeavesManifestHashUnchanged(t *testing.T) {
	c := cache.New("space", "chan")
	require.NoError(t, c.UpsertMessage(post("a", 1, "original")))
	before := c.Summary().ManifestHash

	edited := post("a", 1, "edited")
	edited.ModifiedDate = 2
	require.NoError(t, c.UpsertMessage(edited))

	assert.Equal(t, before, c.Summary().ManifestHash)
	msg, ok := c.Message("a")
	require.True(t, ok)
	assert.Equal(t, "edited", msg.Content.Text)
}

func TestBoundaryTimestampsTrackInsertAndRemove(t *testing.T) {
	c := cache.New("space", "chan")
	require.NoError(t, c.UpsertMessage(post("a", 10, "x")))
	require.NoError(t, c.UpsertMessage(post("b", 30, "y")))
	require.NoError(t, c.UpsertMessage(post("c", 20, "z")))

	s := c.Summary()
	assert.Equal(t, model.Timestamp(10), s.OldestMessageTimestamp)
	assert.Equal(t, model.Timestamp(30), s.NewestMessageTimestamp)

	c.RemoveMessage("b")
	s = c.Summary()
	assert.Equal(t, model.Timestamp(10), s.OldestMessageTimestamp)
	assert.Equal(t, model.Timestamp(20), s.NewestMessageTimestamp)
}

func TestRemovingNonBoundaryMessageLeavesBoundariesUnchanged(t *testing.T) {
	c := cache.New("space", "chan")
	require.NoError(t, c.UpsertMessage(post("a", 10, "x")))
	require.NoError(t, c.UpsertMessage(post("b", 20, "y")))
	require.NoError(t, c.UpsertMessage(post("c", 30, "z")))

	c.RemoveMessage("b")
	s := c.Summary()
	assert.Equal(t, model.Timestamp(10), s.OldestMessageTimestamp)
	assert.Equal(t, model.Timestamp(30), s.NewestMessageTimestamp)
}

func TestManifestDigestsSortedByCreatedDate(t *testing.T) {
	c := cache.New("space", "chan")
	require.NoError(t, c.UpsertMessage(post("c", 30, "z")))
	require.NoError(t, c.UpsertMessage(post("a", 10, "x")))
	require.NoError(t, c.UpsertMessage(post("b", 20, "y")))

	m := c.Manifest()
	require.Len(t, m.Digests, 3)
	assert.Equal(t, model.MessageID("a"), m.Digests[0].MessageID)
	assert.Equal(t, model.MessageID("b"), m.Digests[1].MessageID)
	assert.Equal(t, model.MessageID("c"), m.Digests[2].MessageID)
}

func TestMemberUpsertAndRemove(t *testing.T) {
	c := cache.New("space", "chan")
	c.UpsertMember(model.Member{Address: "alice", DisplayName: "Alice"})
	require.Len(t, c.MemberDigests(), 1)

	c.RemoveMember("alice")
	assert.Empty(t, c.MemberDigests())
}

func TestMessagesAndMembersAreDefensiveCopies(t *testing.T) {
	c := cache.New("space", "chan")
	require.NoError(t, c.UpsertMessage(post("a", 1, "x")))

	snapshot := c.Messages()
	snapshot["a"] = post("a", 1, "mutated-in-caller-copy")

	msg, ok := c.Message("a")
	require.True(t, ok)
	assert.Equal(t, "x", msg.Content.Text)
}
