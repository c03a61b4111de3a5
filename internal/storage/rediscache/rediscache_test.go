package rediscache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deltasync/peersync/internal/model"
	"github.com/deltasync/peersync/internal/storage"
)

type fakeRedis struct {
	data map[string]string
	sets int
	dels int
}

func newFakeRedis() *fakeRedis { return &fakeRedis{data: map[string]string{}} }

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if v, ok := f.data[key]; ok {
		cmd.SetVal(v)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.sets++
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.dels++
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(n)
	return cmd
}

type fakeBackingStore struct {
	messages []model.Message
	loads    int
}

func (f *fakeBackingStore) GetMessages(context.Context, storage.GetMessagesParams) (storage.GetMessagesResult, error) {
	return storage.GetMessagesResult{Messages: f.messages}, nil
}
func (f *fakeBackingStore) GetMessage(_ context.Context, _ model.SpaceID, _ model.ChannelID, id model.MessageID) (*model.Message, error) {
	f.loads++
	for _, m := range f.messages {
		if m.MessageID == id {
			cp := m
			return &cp, nil
		}
	}
	return nil, nil
}
func (f *fakeBackingStore) SaveMessage(_ context.Context, m model.Message) error {
	f.messages = append(f.messages, m)
	return nil
}
func (f *fakeBackingStore) DeleteMessage(context.Context, model.SpaceID, model.ChannelID, model.MessageID) error {
	return nil
}
func (f *fakeBackingStore) GetSpaceMembers(context.Context, model.SpaceID) ([]model.Member, error) {
	return nil, nil
}
func (f *fakeBackingStore) SaveSpaceMember(context.Context, model.SpaceID, model.Member) error {
	return nil
}
func (f *fakeBackingStore) RemoveSpaceMember(context.Context, model.SpaceID, model.Address) error {
	return nil
}

var _ storage.Storage = (*fakeBackingStore)(nil)

func TestGetMessageFallsThroughOnMissThenCaches(t *testing.T) {
	backing := &fakeBackingStore{messages: []model.Message{{MessageID: "m1", SpaceID: "s1", ChannelID: "c1"}}}
	rdb := newFakeRedis()
	s := New(backing, rdb, time.Minute)

	m1, err := s.GetMessage(context.Background(), "s1", "c1", "m1")
	require.NoError(t, err)
	require.NotNil(t, m1)
	assert.Equal(t, 1, backing.loads)
	assert.Equal(t, 1, rdb.sets)

	m2, err := s.GetMessage(context.Background(), "s1", "c1", "m1")
	require.NoError(t, err)
	require.NotNil(t, m2)
	assert.Equal(t, 1, backing.loads, "second read should be served from cache")
}

func TestGetMessageMissOnBackingStoreIsNotCached(t *testing.T) {
	backing := &fakeBackingStore{}
	rdb := newFakeRedis()
	s := New(backing, rdb, time.Minute)

	m, err := s.GetMessage(context.Background(), "s1", "c1", "missing")
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.Equal(t, 0, rdb.sets)
}

func TestSaveMessageInvalidatesCache(t *testing.T) {
	backing := &fakeBackingStore{messages: []model.Message{{MessageID: "m1", SpaceID: "s1", ChannelID: "c1"}}}
	rdb := newFakeRedis()
	s := New(backing, rdb, time.Minute)

	_, err := s.GetMessage(context.Background(), "s1", "c1", "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, rdb.sets)

	require.NoError(t, s.SaveMessage(context.Background(), model.Message{MessageID: "m1", SpaceID: "s1", ChannelID: "c1"}))
	assert.Equal(t, 1, rdb.dels)
	_, ok := rdb.data[messageKey("s1", "c1", "m1")]
	assert.False(t, ok)
}

func TestMessageKeyFormatsNamespacedKey(t *testing.T) {
	assert.Equal(t, "message:s1:c1:m1", messageKey("s1", "c1", "m1"))
}

func TestNewDefaultsZeroTTL(t *testing.T) {
	s := New(&fakeBackingStore{}, newFakeRedis(), 0)
	assert.Equal(t, defaultTTL, s.ttl)
}

func TestGetMessageReadsCachedJSON(t *testing.T) {
	backing := &fakeBackingStore{}
	rdb := newFakeRedis()
	cached := model.Message{MessageID: "cached", SpaceID: "s1", ChannelID: "c1"}
	b, err := json.Marshal(cached)
	require.NoError(t, err)
	rdb.data[messageKey("s1", "c1", "cached")] = string(b)

	s := New(backing, rdb, time.Minute)
	got, err := s.GetMessage(context.Background(), "s1", "c1", "cached")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.MessageID("cached"), got.MessageID)
	assert.Equal(t, 0, backing.loads)
}
