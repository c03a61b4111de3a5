// Package rediscache wraps a storage.Storage with a Redis-backed read cache
// for single-message lookups, grounded in the teacher's message_service.go
// cache-aside idiom (messaging-app/internal/services/message_service.go):
// check Redis first, fall through to the backing store on a miss, then
// populate the cache with a TTL. Writes invalidate rather than update the
// cached entry, the simplest correct option against concurrent writers.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deltasync/peersync/internal/model"
	"github.com/deltasync/peersync/internal/storage"
)

const defaultTTL = 5 * time.Minute

// client is the slice of redis.UniversalClient this package actually calls;
// *redis.Client and *redis.ClusterClient both satisfy it, and a test fake
// only has three methods to implement instead of the whole client surface.
type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Store decorates a storage.Storage with a Redis read-through cache for
// GetMessage. Every other method passes straight through, invalidating the
// cached entry where a write could make it stale.
type Store struct {
	inner storage.Storage
	rdb   client
	ttl   time.Duration
}

// New wraps inner with a Redis cache reachable through rdb. ttl of zero uses
// defaultTTL.
func New(inner storage.Storage, rdb client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{inner: inner, rdb: rdb, ttl: ttl}
}

func messageKey(space model.SpaceID, channel model.ChannelID, id model.MessageID) string {
	return fmt.Sprintf("message:%s:%s:%s", space, channel, id)
}

func (s *Store) GetMessage(ctx context.Context, space model.SpaceID, channel model.ChannelID, id model.MessageID) (*model.Message, error) {
	key := messageKey(space, channel, id)

	cached, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		var m model.Message
		if jsonErr := json.Unmarshal([]byte(cached), &m); jsonErr == nil {
			return &m, nil
		}
	}

	m, err := s.inner.GetMessage(ctx, space, channel, id)
	if err != nil || m == nil {
		return m, err
	}

	if b, marshalErr := json.Marshal(m); marshalErr == nil {
		s.rdb.Set(ctx, key, b, s.ttl)
	}
	return m, nil
}

func (s *Store) GetMessages(ctx context.Context, params storage.GetMessagesParams) (storage.GetMessagesResult, error) {
	return s.inner.GetMessages(ctx, params)
}

func (s *Store) SaveMessage(ctx context.Context, m model.Message) error {
	if err := s.inner.SaveMessage(ctx, m); err != nil {
		return err
	}
	s.rdb.Del(ctx, messageKey(m.SpaceID, m.ChannelID, m.MessageID))
	return nil
}

func (s *Store) DeleteMessage(ctx context.Context, space model.SpaceID, channel model.ChannelID, id model.MessageID) error {
	if err := s.inner.DeleteMessage(ctx, space, channel, id); err != nil {
		return err
	}
	s.rdb.Del(ctx, messageKey(space, channel, id))
	return nil
}

func (s *Store) GetSpaceMembers(ctx context.Context, space model.SpaceID) ([]model.Member, error) {
	return s.inner.GetSpaceMembers(ctx, space)
}

func (s *Store) SaveSpaceMember(ctx context.Context, space model.SpaceID, m model.Member) error {
	return s.inner.SaveSpaceMember(ctx, space, m)
}

func (s *Store) RemoveSpaceMember(ctx context.Context, space model.SpaceID, address model.Address) error {
	return s.inner.RemoveSpaceMember(ctx, space, address)
}

var _ storage.Storage = (*Store)(nil)
