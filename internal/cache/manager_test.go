package cache_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deltasync/peersync/internal/cache"
	"github.com/deltasync/peersync/internal/model"
	"github.com/deltasync/peersync/internal/storage"
)

type fakeStore struct {
	messages []model.Message
	members  []model.Member
	loads    int
}

func (f *fakeStore) GetMessages(_ context.Context, _ storage.GetMessagesParams) (storage.GetMessagesResult, error) {
	f.loads++
	return storage.GetMessagesResult{Messages: f.messages}, nil
}
func (f *fakeStore) GetMessage(_ context.Context, _ model.SpaceID, _ model.ChannelID, id model.MessageID) (*model.Message, error) {
	for _, m := range f.messages {
		if m.MessageID == id {
			return &m, nil
		}
	}
	return nil, nil
}
func (f *fakeStore) SaveMessage(_ context.Context, m model.Message) error {
	f.messages = append(f.messages, m)
	return nil
}
func (f *fakeStore) DeleteMessage(_ context.Context, _ model.SpaceID, _ model.ChannelID, _ model.MessageID) error {
	return nil
}
func (f *fakeStore) GetSpaceMembers(_ context.Context, _ model.SpaceID) ([]model.Member, error) {
	return f.members, nil
}
func (f *fakeStore) SaveSpaceMember(_ context.Context, _ model.SpaceID, m model.Member) error {
	f.members = append(f.members, m)
	return nil
}
func (f *fakeStore) RemoveSpaceMember(_ context.Context, _ model.SpaceID, _ model.Address) error {
	return nil
}

var _ storage.Storage = (*fakeStore)(nil)

func TestManagerGetLoadsOnceAndCaches(t *testing.T) {
	store := &fakeStore{messages: []model.Message{post("a", 1, "x")}}
	m := cache.NewManager(store)

	c1, err := m.Get(context.Background(), "space", "chan")
	require.NoError(t, err)
	c2, err := m.Get(context.Background(), "space", "chan")
	require.NoError(t, err)

	assert.Same(t, c1, c2)
	assert.Equal(t, 1, store.loads)
}

func TestManagerInvalidateSingleChannel(t *testing.T) {
	store := &fakeStore{messages: []model.Message{post("a", 1, "x")}}
	m := cache.NewManager(store)

	c1, err := m.Get(context.Background(), "space", "chan")
	require.NoError(t, err)

	ch := model.ChannelID("chan")
	m.Invalidate("space", &ch)

	c2, err := m.Get(context.Background(), "space", "chan")
	require.NoError(t, err)
	assert.NotSame(t, c1, c2)
	assert.Equal(t, 2, store.loads)
}

func TestManagerInvalidateWholeSpace(t *testing.T) {
	store := &fakeStore{messages: []model.Message{post("a", 1, "x")}}
	m := cache.NewManager(store)

	_, err := m.Get(context.Background(), "space", "chan1")
	require.NoError(t, err)
	_, err = m.Get(context.Background(), "space", "chan2")
	require.NoError(t, err)

	m.Invalidate("space", nil)

	_, err = m.Get(context.Background(), "space", "chan1")
	require.NoError(t, err)
	_, err = m.Get(context.Background(), "space", "chan2")
	require.NoError(t, err)
	assert.Equal(t, 4, store.loads)
}

func TestManagerEvictionBoundsResidentChannels(t *testing.T) {
	store := &fakeStore{}
	m := cache.NewManager(store, cache.WithMaxCachedChannels(1))

	_, err := m.Get(context.Background(), "space", "chan1")
	require.NoError(t, err)
	_, err = m.Get(context.Background(), "space", "chan2")
	require.NoError(t, err)

	// chan1 was evicted to make room for chan2; loading it again reloads.
	_, err = m.Get(context.Background(), "space", "chan1")
	require.NoError(t, err)
	assert.Equal(t, 3, store.loads)
}
