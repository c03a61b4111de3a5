// Package mongostore implements storage.Storage against MongoDB, grounded
// in the teacher's message/group repositories (messaging-app
// internal/repositories/{message_repo,group_repo}.go): compound indexes
// created at construction time, bson.M filters, cursor-based Find with
// sort+limit, and the same "collection per concern" layout.
package mongostore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/deltasync/peersync/internal/model"
	"github.com/deltasync/peersync/internal/storage"
)

// Store implements storage.Storage over two collections: sync_messages and
// sync_space_members.
type Store struct {
	messages *mongo.Collection
	members  *mongo.Collection
}

// messageDoc is the wire shape stored in Mongo; it mirrors model.Message
// field for field, with MessageID stored as _id. Paging sorts on
// created_date, not on _id.
type messageDoc struct {
	MessageID        model.MessageID  `bson:"_id"`
	SpaceID          model.SpaceID    `bson:"space_id"`
	ChannelID        model.ChannelID  `bson:"channel_id"`
	CreatedDate      model.Timestamp  `bson:"created_date"`
	ModifiedDate     model.Timestamp  `bson:"modified_date"`
	Content          model.Content    `bson:"content"`
	Reactions        []model.Reaction `bson:"reactions,omitempty"`
	Mentions         []model.Address  `bson:"mentions,omitempty"`
	Nonce            string           `bson:"nonce,omitempty"`
	DigestAlgorithm  string           `bson:"digest_algorithm"`
	LastModifiedHash string           `bson:"last_modified_hash,omitempty"`
}

func toDoc(m model.Message) messageDoc {
	return messageDoc{
		MessageID:        m.MessageID,
		SpaceID:          m.SpaceID,
		ChannelID:        m.ChannelID,
		CreatedDate:      m.CreatedDate,
		ModifiedDate:     m.ModifiedDate,
		Content:          m.Content,
		Reactions:        m.Reactions,
		Mentions:         m.Mentions,
		Nonce:            m.Nonce,
		DigestAlgorithm:  m.DigestAlgorithm,
		LastModifiedHash: m.LastModifiedHash,
	}
}

func (d messageDoc) toModel() model.Message {
	return model.Message{
		MessageID:        d.MessageID,
		SpaceID:          d.SpaceID,
		ChannelID:        d.ChannelID,
		CreatedDate:      d.CreatedDate,
		ModifiedDate:     d.ModifiedDate,
		Content:          d.Content,
		Reactions:        d.Reactions,
		Mentions:         d.Mentions,
		Nonce:            d.Nonce,
		DigestAlgorithm:  d.DigestAlgorithm,
		LastModifiedHash: d.LastModifiedHash,
	}
}

type memberDoc struct {
	SpaceID      model.SpaceID      `bson:"space_id"`
	Address      model.Address      `bson:"address"`
	InboxAddress model.InboxAddress `bson:"inbox_address,omitempty"`
	DisplayName  string             `bson:"display_name,omitempty"`
	ProfileImage string             `bson:"profile_image,omitempty"`
}

// New returns a Store backed by db, creating the indexes the core's access
// patterns need: (space, channel, created_date) for paged message reads and
// a unique (space, address) for member upserts.
func New(ctx context.Context, db *mongo.Database) (*Store, error) {
	messages := db.Collection("sync_messages")
	members := db.Collection("sync_space_members")

	if _, err := messages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "space_id", Value: 1},
				{Key: "channel_id", Value: 1},
				{Key: "created_date", Value: 1},
			},
		},
	}); err != nil {
		return nil, err
	}

	if _, err := members.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "space_id", Value: 1}, {Key: "address", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}); err != nil {
		return nil, err
	}

	return &Store{messages: messages, members: members}, nil
}

// GetMessages pages messages for (space, channel) by created_date, ascending
// or descending per params.Direction. Cursor is the last-seen created_date
// formatted as a decimal string; the empty cursor starts at either boundary.
func (s *Store) GetMessages(ctx context.Context, params storage.GetMessagesParams) (storage.GetMessagesResult, error) {
	filter := bson.M{"space_id": params.Space, "channel_id": params.Channel}

	sortDir := 1
	if params.Direction == storage.DirectionDesc {
		sortDir = -1
	}

	if params.Cursor != "" {
		var cursorTS model.Timestamp
		if _, err := parseCursor(params.Cursor, &cursorTS); err != nil {
			return storage.GetMessagesResult{}, err
		}
		op := "$gt"
		if sortDir == -1 {
			op = "$lt"
		}
		filter["created_date"] = bson.M{op: cursorTS}
	}

	limit := int64(params.Limit)
	opts := options.Find().SetSort(bson.D{{Key: "created_date", Value: sortDir}})
	if limit > 0 {
		opts.SetLimit(limit + 1)
	}

	cursor, err := s.messages.Find(ctx, filter, opts)
	if err != nil {
		return storage.GetMessagesResult{}, err
	}
	defer cursor.Close(ctx)

	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return storage.GetMessagesResult{}, err
	}

	result := storage.GetMessagesResult{}
	hasMore := limit > 0 && len(docs) > int(limit)
	if hasMore {
		docs = docs[:limit]
	}
	result.Messages = make([]model.Message, 0, len(docs))
	for _, d := range docs {
		result.Messages = append(result.Messages, d.toModel())
	}
	if hasMore && len(docs) > 0 {
		result.NextCursor = formatCursor(docs[len(docs)-1].CreatedDate)
	}
	return result, nil
}

// GetMessage fetches a single message by id, scoped to (space, channel).
func (s *Store) GetMessage(ctx context.Context, space model.SpaceID, channel model.ChannelID, id model.MessageID) (*model.Message, error) {
	var doc messageDoc
	err := s.messages.FindOne(ctx, bson.M{
		"_id":        id,
		"space_id":   space,
		"channel_id": channel,
	}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m := doc.toModel()
	return &m, nil
}

// SaveMessage upserts a message by id.
func (s *Store) SaveMessage(ctx context.Context, m model.Message) error {
	_, err := s.messages.ReplaceOne(ctx,
		bson.M{"_id": m.MessageID},
		toDoc(m),
		options.Replace().SetUpsert(true),
	)
	return err
}

// DeleteMessage removes a message by id, scoped to (space, channel).
func (s *Store) DeleteMessage(ctx context.Context, space model.SpaceID, channel model.ChannelID, id model.MessageID) error {
	_, err := s.messages.DeleteOne(ctx, bson.M{
		"_id":        id,
		"space_id":   space,
		"channel_id": channel,
	})
	return err
}

// GetSpaceMembers returns every member of a space.
func (s *Store) GetSpaceMembers(ctx context.Context, space model.SpaceID) ([]model.Member, error) {
	cursor, err := s.members.Find(ctx, bson.M{"space_id": space})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []memberDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]model.Member, 0, len(docs))
	for _, d := range docs {
		out = append(out, model.Member{
			Address:      d.Address,
			InboxAddress: d.InboxAddress,
			DisplayName:  d.DisplayName,
			ProfileImage: d.ProfileImage,
		})
	}
	return out, nil
}

// SaveSpaceMember upserts a member by (space, address).
func (s *Store) SaveSpaceMember(ctx context.Context, space model.SpaceID, m model.Member) error {
	_, err := s.members.ReplaceOne(ctx,
		bson.M{"space_id": space, "address": m.Address},
		memberDoc{
			SpaceID:      space,
			Address:      m.Address,
			InboxAddress: m.InboxAddress,
			DisplayName:  m.DisplayName,
			ProfileImage: m.ProfileImage,
		},
		options.Replace().SetUpsert(true),
	)
	return err
}

// RemoveSpaceMember deletes a member by (space, address).
func (s *Store) RemoveSpaceMember(ctx context.Context, space model.SpaceID, address model.Address) error {
	_, err := s.members.DeleteOne(ctx, bson.M{"space_id": space, "address": address})
	return err
}

var _ storage.Storage = (*Store)(nil)

func formatCursor(ts model.Timestamp) string {
	return decimalString(uint64(ts))
}

func decimalString(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func parseCursor(cursor string, out *model.Timestamp) (int, error) {
	var n uint64
	for _, r := range cursor {
		if r < '0' || r > '9' {
			return 0, errors.New("mongostore: malformed cursor")
		}
		n = n*10 + uint64(r-'0')
	}
	*out = model.Timestamp(n)
	return len(cursor), nil
}
