package hashutil_test

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deltasync/peersync/internal/hashutil"
	"github.com/deltasync/peersync/internal/model"
)

func TestContentHashDeterministic(t *testing.T) {
	c := model.Content{Kind: model.ContentPost, SenderID: "alice", Text: "hello"}
	h1, err := hashutil.ContentHash(c)
	require.NoError(t, err)
	h2, err := hashutil.ContentHash(c)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestContentHashDiffersByField(t *testing.T) {
	base := model.Content{Kind: model.ContentPost, SenderID: "alice", Text: "hello"}
	other := model.Content{Kind: model.ContentPost, SenderID: "alice", Text: "goodbye"}

	h1, err := hashutil.ContentHash(base)
	require.NoError(t, err)
	h2, err := hashutil.ContentHash(other)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestContentHashUnsupportedKind(t *testing.T) {
	_, err := hashutil.ContentHash(model.Content{Kind: model.ContentKind("bogus")})
	require.Error(t, err)
	var unsupported *hashutil.UnsupportedContentError
	assert.ErrorAs(t, err, &unsupported)
}

func TestMembersHashOrderIndependent(t *testing.T) {
	a := hashutil.MembersHash([]model.Address{"bob", "alice", "carol"})
	b := hashutil.MembersHash([]model.Address{"carol", "bob", "alice"})
	assert.Equal(t, a, b)
}

func TestIDHashIsSha256OfTheID(t *testing.T) {
	h1 := hashutil.IDHash("msg-1")
	h2 := hashutil.IDHash("msg-1")
	h3 := hashutil.IDHash("msg-2")
	assert.Equal(t, sha256.Sum256([]byte("msg-1")), h1)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}
