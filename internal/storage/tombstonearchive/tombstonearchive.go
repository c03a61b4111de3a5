// Package tombstonearchive implements storage.TombstoneStore against
// Cassandra, grounded in the teacher's MessageCassandraRepository (messaging-app
// internal/repositories/message_cassandra_repo.go): a raw *gocql.Session,
// CQL query strings built as constants, Query(...).Exec()/.Iter() calls, no
// ORM layer. Tombstones are cold, append-mostly, and keyed for range scans
// by (space_id, channel_id) the same way the teacher partitions messages by
// conversation id.
package tombstonearchive

import (
	"context"

	"github.com/gocql/gocql"

	"github.com/deltasync/peersync/internal/model"
	"github.com/deltasync/peersync/internal/storage"
)

const (
	insertTombstoneQuery = `INSERT INTO tombstones (space_id, channel_id, message_id, deleted_at) VALUES (?, ?, ?, ?)`
	listTombstonesQuery  = `SELECT message_id, deleted_at FROM tombstones WHERE space_id = ? AND channel_id = ?`
	deleteOlderQuery     = `SELECT space_id, channel_id, message_id, deleted_at FROM tombstones WHERE deleted_at < ? ALLOW FILTERING`
	deleteOneQuery       = `DELETE FROM tombstones WHERE space_id = ? AND channel_id = ? AND message_id = ?`
)

// Schema is the keyspace DDL an operator runs once before pointing a Store
// at a cluster; the core never issues DDL itself.
const Schema = `
CREATE TABLE IF NOT EXISTS tombstones (
	space_id text,
	channel_id text,
	message_id text,
	deleted_at bigint,
	PRIMARY KEY ((space_id, channel_id), message_id)
);`

// Store implements storage.TombstoneStore over a gocql session.
type Store struct {
	session *gocql.Session
}

// New wraps an already-connected gocql session. Connection setup (cluster
// config, consistency level, retry policy) is the host's responsibility,
// the same division of labor the teacher's db.CassandraClient draws.
func New(session *gocql.Session) *Store {
	return &Store{session: session}
}

// SaveTombstone appends a deletion record.
func (s *Store) SaveTombstone(ctx context.Context, t model.Tombstone) error {
	return s.session.Query(insertTombstoneQuery,
		string(t.SpaceID), string(t.ChannelID), string(t.MessageID), int64(t.DeletedAt),
	).WithContext(ctx).Exec()
}

// ListTombstones returns every tombstone recorded for one channel.
func (s *Store) ListTombstones(ctx context.Context, space model.SpaceID, channel model.ChannelID) ([]model.Tombstone, error) {
	iter := s.session.Query(listTombstonesQuery, string(space), string(channel)).WithContext(ctx).Iter()

	var out []model.Tombstone
	var messageID string
	var deletedAt int64
	for iter.Scan(&messageID, &deletedAt) {
		out = append(out, model.Tombstone{
			MessageID: model.MessageID(messageID),
			SpaceID:   space,
			ChannelID: channel,
			DeletedAt: model.Timestamp(deletedAt),
		})
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

// CleanupTombstones scans for tombstones older than before and deletes them
// one row at a time; ALLOW FILTERING is acceptable here because
// cleanup is an infrequent maintenance pass, not a hot-path query.
func (s *Store) CleanupTombstones(ctx context.Context, before model.Timestamp) (int, error) {
	iter := s.session.Query(deleteOlderQuery, int64(before)).WithContext(ctx).Iter()

	var toDelete []model.Tombstone
	var spaceID, channelID, messageID string
	var deletedAt int64
	for iter.Scan(&spaceID, &channelID, &messageID, &deletedAt) {
		toDelete = append(toDelete, model.Tombstone{
			SpaceID:   model.SpaceID(spaceID),
			ChannelID: model.ChannelID(channelID),
			MessageID: model.MessageID(messageID),
		})
	}
	if err := iter.Close(); err != nil {
		return 0, err
	}

	for _, t := range toDelete {
		if err := s.session.Query(deleteOneQuery,
			string(t.SpaceID), string(t.ChannelID), string(t.MessageID),
		).WithContext(ctx).Exec(); err != nil {
			return 0, err
		}
	}
	return len(toDelete), nil
}

var _ storage.TombstoneStore = (*Store)(nil)
