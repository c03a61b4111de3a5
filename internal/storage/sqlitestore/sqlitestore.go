// Package sqlitestore implements storage.Storage on top of an embedded
// SQLite database via mattn/go-sqlite3, for single-process hosts (CLI tools,
// local-first clients) that don't want to run a Mongo deployment just to
// exercise the sync core. It uses the standard database/sql pool the way the
// rest of the corpus uses its SQL drivers: a schema bootstrapped on Open,
// parameterised queries issued directly on the pool, JSON-encoded leaf
// fields for anything without a natural column.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/deltasync/peersync/internal/model"
	"github.com/deltasync/peersync/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS sync_messages (
	message_id TEXT NOT NULL,
	space_id TEXT NOT NULL,
	channel_id TEXT NOT NULL,
	created_date INTEGER NOT NULL,
	modified_date INTEGER NOT NULL,
	content_json TEXT NOT NULL,
	reactions_json TEXT,
	mentions_json TEXT,
	nonce TEXT,
	digest_algorithm TEXT NOT NULL,
	last_modified_hash TEXT,
	PRIMARY KEY (space_id, channel_id, message_id)
);
CREATE INDEX IF NOT EXISTS idx_sync_messages_paging
	ON sync_messages (space_id, channel_id, created_date);

CREATE TABLE IF NOT EXISTS sync_space_members (
	space_id TEXT NOT NULL,
	address TEXT NOT NULL,
	inbox_address TEXT,
	display_name TEXT,
	profile_image TEXT,
	PRIMARY KEY (space_id, address)
);
`

// Store implements storage.Storage over a *sql.DB opened against a SQLite
// file (or ":memory:" for tests).
type Store struct {
	db *sql.DB
}

// Open creates/migrates the schema and returns a ready Store.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// GetMessages pages messages for (space, channel) ordered by created_date.
func (s *Store) GetMessages(ctx context.Context, params storage.GetMessagesParams) (storage.GetMessagesResult, error) {
	order := "ASC"
	cmp := ">"
	if params.Direction == storage.DirectionDesc {
		order = "DESC"
		cmp = "<"
	}

	query := `
		SELECT message_id, space_id, channel_id, created_date, modified_date,
		       content_json, reactions_json, mentions_json, nonce,
		       digest_algorithm, last_modified_hash
		FROM sync_messages
		WHERE space_id = ? AND channel_id = ?`
	args := []interface{}{params.Space, params.Channel}

	if params.Cursor != "" {
		var cursorTS int64
		if _, err := fmt.Sscanf(params.Cursor, "%d", &cursorTS); err != nil {
			return storage.GetMessagesResult{}, fmt.Errorf("sqlitestore: malformed cursor: %w", err)
		}
		query += fmt.Sprintf(" AND created_date %s ?", cmp)
		args = append(args, cursorTS)
	}
	query += fmt.Sprintf(" ORDER BY created_date %s", order)

	limit := params.Limit
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit+1)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.GetMessagesResult{}, err
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return storage.GetMessagesResult{}, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return storage.GetMessagesResult{}, err
	}

	result := storage.GetMessagesResult{Messages: messages}
	if limit > 0 && len(messages) > limit {
		result.Messages = messages[:limit]
		result.NextCursor = fmt.Sprintf("%d", result.Messages[len(result.Messages)-1].CreatedDate)
	}
	return result, nil
}

// GetMessage fetches a single message by id, scoped to (space, channel).
func (s *Store) GetMessage(ctx context.Context, space model.SpaceID, channel model.ChannelID, id model.MessageID) (*model.Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT message_id, space_id, channel_id, created_date, modified_date,
		       content_json, reactions_json, mentions_json, nonce,
		       digest_algorithm, last_modified_hash
		FROM sync_messages WHERE space_id = ? AND channel_id = ? AND message_id = ?`,
		space, channel, id)
	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row scanner) (model.Message, error) {
	var (
		m                              model.Message
		contentJSON                    string
		reactionsJSON, mentionsJSON    sql.NullString
		nonce, lastModifiedHash        sql.NullString
	)
	if err := row.Scan(
		&m.MessageID, &m.SpaceID, &m.ChannelID, &m.CreatedDate, &m.ModifiedDate,
		&contentJSON, &reactionsJSON, &mentionsJSON, &nonce,
		&m.DigestAlgorithm, &lastModifiedHash,
	); err != nil {
		return model.Message{}, err
	}
	if err := json.Unmarshal([]byte(contentJSON), &m.Content); err != nil {
		return model.Message{}, err
	}
	if reactionsJSON.Valid && reactionsJSON.String != "" {
		if err := json.Unmarshal([]byte(reactionsJSON.String), &m.Reactions); err != nil {
			return model.Message{}, err
		}
	}
	if mentionsJSON.Valid && mentionsJSON.String != "" {
		if err := json.Unmarshal([]byte(mentionsJSON.String), &m.Mentions); err != nil {
			return model.Message{}, err
		}
	}
	m.Nonce = nonce.String
	m.LastModifiedHash = lastModifiedHash.String
	return m, nil
}

// SaveMessage upserts a message by (space, channel, messageId).
func (s *Store) SaveMessage(ctx context.Context, m model.Message) error {
	contentJSON, err := json.Marshal(m.Content)
	if err != nil {
		return err
	}
	reactionsJSON, err := json.Marshal(m.Reactions)
	if err != nil {
		return err
	}
	mentionsJSON, err := json.Marshal(m.Mentions)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sync_messages (
			message_id, space_id, channel_id, created_date, modified_date,
			content_json, reactions_json, mentions_json, nonce,
			digest_algorithm, last_modified_hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (space_id, channel_id, message_id) DO UPDATE SET
			created_date = excluded.created_date,
			modified_date = excluded.modified_date,
			content_json = excluded.content_json,
			reactions_json = excluded.reactions_json,
			mentions_json = excluded.mentions_json,
			nonce = excluded.nonce,
			digest_algorithm = excluded.digest_algorithm,
			last_modified_hash = excluded.last_modified_hash`,
		m.MessageID, m.SpaceID, m.ChannelID, m.CreatedDate, m.ModifiedDate,
		string(contentJSON), string(reactionsJSON), string(mentionsJSON), m.Nonce,
		m.DigestAlgorithm, m.LastModifiedHash,
	)
	return err
}

// DeleteMessage removes a message by (space, channel, messageId).
func (s *Store) DeleteMessage(ctx context.Context, space model.SpaceID, channel model.ChannelID, id model.MessageID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM sync_messages WHERE space_id = ? AND channel_id = ? AND message_id = ?`,
		space, channel, id)
	return err
}

// GetSpaceMembers returns every member of a space.
func (s *Store) GetSpaceMembers(ctx context.Context, space model.SpaceID) ([]model.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT address, inbox_address, display_name, profile_image
		FROM sync_space_members WHERE space_id = ?`, space)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Member
	for rows.Next() {
		var m model.Member
		var inbox, displayName, profileImage sql.NullString
		if err := rows.Scan(&m.Address, &inbox, &displayName, &profileImage); err != nil {
			return nil, err
		}
		m.InboxAddress = model.InboxAddress(inbox.String)
		m.DisplayName = displayName.String
		m.ProfileImage = profileImage.String
		out = append(out, m)
	}
	return out, rows.Err()
}

// SaveSpaceMember upserts a member by (space, address).
func (s *Store) SaveSpaceMember(ctx context.Context, space model.SpaceID, m model.Member) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_space_members (space_id, address, inbox_address, display_name, profile_image)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (space_id, address) DO UPDATE SET
			inbox_address = excluded.inbox_address,
			display_name = excluded.display_name,
			profile_image = excluded.profile_image`,
		space, m.Address, m.InboxAddress, m.DisplayName, m.ProfileImage,
	)
	return err
}

// RemoveSpaceMember deletes a member by (space, address).
func (s *Store) RemoveSpaceMember(ctx context.Context, space model.SpaceID, address model.Address) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM sync_space_members WHERE space_id = ? AND address = ?`, space, address)
	return err
}

var _ storage.Storage = (*Store)(nil)
