package cache

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/deltasync/peersync/internal/model"
	"github.com/deltasync/peersync/internal/storage"
)

const defaultMaxMessages = 1000
const defaultMaxCachedChannels = 4096

// Manager owns every (space, channel) payload cache, bounded by an LRU so a
// host with many channels doesn't grow unbounded memory. Eviction here is
// distinct from Invalidate: an evicted entry is just reloaded from storage
// on next Get, the same as a cold cache.
type Manager struct {
	store storage.Storage

	maxMessages int

	mu  sync.Mutex
	lru *lru.Cache[model.ChannelKey, *Cache]
	// bySpace indexes channel keys by space for Invalidate(space, nil).
	bySpace map[model.SpaceID]map[model.ChannelID]struct{}
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithMaxMessages caps how many messages Get loads per channel on a cold
// load. Default 1000.
func WithMaxMessages(n int) ManagerOption {
	return func(m *Manager) { m.maxMessages = n }
}

// WithMaxCachedChannels bounds the LRU's resident channel count. Default 4096.
func WithMaxCachedChannels(n int) ManagerOption {
	return func(m *Manager) {
		l, err := lru.NewWithEvict(n, m.onEvict)
		if err == nil {
			m.lru = l
		}
	}
}

// NewManager returns a Manager backed by store.
func NewManager(store storage.Storage, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:       store,
		maxMessages: defaultMaxMessages,
		bySpace:     make(map[model.SpaceID]map[model.ChannelID]struct{}),
	}
	l, _ := lru.NewWithEvict[model.ChannelKey, *Cache](defaultMaxCachedChannels, m.onEvict)
	m.lru = l
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) onEvict(key model.ChannelKey, _ *Cache) {
	// The LRU runs this callback synchronously inside lru.Add/lru.Remove,
	// which are only ever called with m.mu already held.
	m.forgetIndexLocked(key)
}

func (m *Manager) forgetIndexLocked(key model.ChannelKey) {
	if chans, ok := m.bySpace[key.Space]; ok {
		delete(chans, key.Channel)
		if len(chans) == 0 {
			delete(m.bySpace, key.Space)
		}
	}
}

// Get returns the cache for (space, channel), loading it from storage on
// first access. Loading is the only suspension point in this package.
func (m *Manager) Get(ctx context.Context, space model.SpaceID, channel model.ChannelID) (*Cache, error) {
	key := model.ChannelKey{Space: space, Channel: channel}

	m.mu.Lock()
	if c, ok := m.lru.Get(key); ok {
		m.mu.Unlock()
		return c, nil
	}
	m.mu.Unlock()

	c, err := m.load(ctx, space, channel)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another goroutine may have loaded the same key first; keep whichever
	// is already resident so concurrent loads agree on one Cache instance.
	if existing, ok := m.lru.Get(key); ok {
		return existing, nil
	}
	m.lru.Add(key, c)
	if m.bySpace[space] == nil {
		m.bySpace[space] = make(map[model.ChannelID]struct{})
	}
	m.bySpace[space][channel] = struct{}{}
	return c, nil
}

func (m *Manager) load(ctx context.Context, space model.SpaceID, channel model.ChannelID) (*Cache, error) {
	c := New(space, channel)

	result, err := m.store.GetMessages(ctx, storage.GetMessagesParams{
		Space:     space,
		Channel:   channel,
		Limit:     m.maxMessages,
		Direction: storage.DirectionAsc,
	})
	if err != nil {
		return nil, err
	}
	for _, msg := range result.Messages {
		if err := c.UpsertMessage(msg); err != nil {
			return nil, err
		}
	}

	members, err := m.store.GetSpaceMembers(ctx, space)
	if err != nil {
		return nil, err
	}
	for _, mem := range members {
		c.UpsertMember(mem)
	}

	return c, nil
}

// Invalidate drops the cache for a single channel, or every channel cached
// for space when channel is nil.
func (m *Manager) Invalidate(space model.SpaceID, channel *model.ChannelID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if channel != nil {
		key := model.ChannelKey{Space: space, Channel: *channel}
		m.lru.Remove(key)
		m.forgetIndexLocked(key)
		return
	}

	for ch := range m.bySpace[space] {
		m.lru.Remove(model.ChannelKey{Space: space, Channel: ch})
	}
	delete(m.bySpace, space)
}
