// Package storage declares the interfaces the sync core consumes but never
// implements itself (spec.md §6: "the storage layer ... persists
// messages/members/tombstones"). Concrete adapters live in the storage/*
// subpackages; the core only ever depends on these interfaces.
package storage

import (
	"context"

	"github.com/deltasync/peersync/internal/model"
)

// Direction controls which way a paged message query walks.
type Direction int

const (
	DirectionAsc Direction = iota
	DirectionDesc
)

// GetMessagesParams describes a paged message fetch.
type GetMessagesParams struct {
	Space     model.SpaceID
	Channel   model.ChannelID
	Limit     int
	Cursor    string
	Direction Direction
}

// GetMessagesResult is a page of messages plus cursors for the adjacent pages.
type GetMessagesResult struct {
	Messages   []model.Message
	NextCursor string
	PrevCursor string
}

// MessageStore is the message-persistence surface the core requires.
type MessageStore interface {
	GetMessages(ctx context.Context, params GetMessagesParams) (GetMessagesResult, error)
	GetMessage(ctx context.Context, space model.SpaceID, channel model.ChannelID, id model.MessageID) (*model.Message, error)
	SaveMessage(ctx context.Context, m model.Message) error
	DeleteMessage(ctx context.Context, space model.SpaceID, channel model.ChannelID, id model.MessageID) error
}

// MemberStore is the member-persistence surface the core requires.
// RemoveSpaceMember has no counterpart in spec.md's original storage
// interface; DESIGN.md resolves the member-removal open question by
// adding it so memberDelta.removedAddresses has somewhere to land.
type MemberStore interface {
	GetSpaceMembers(ctx context.Context, space model.SpaceID) ([]model.Member, error)
	SaveSpaceMember(ctx context.Context, space model.SpaceID, m model.Member) error
	RemoveSpaceMember(ctx context.Context, space model.SpaceID, address model.Address) error
}

// Storage is the full consumed storage surface.
type Storage interface {
	MessageStore
	MemberStore
}

// TombstoneStore is an optional fast path: hosts that can persist tombstones
// durably implement it; hosts that can't leave it nil and the orchestrator
// falls back to an in-process tombstone log (see tombstone.Log).
type TombstoneStore interface {
	ListTombstones(ctx context.Context, space model.SpaceID, channel model.ChannelID) ([]model.Tombstone, error)
	SaveTombstone(ctx context.Context, t model.Tombstone) error
	CleanupTombstones(ctx context.Context, before model.Timestamp) (int, error)
}
