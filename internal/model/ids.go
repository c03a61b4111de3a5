// Package model holds the wire-visible data model shared by every
// component of the sync core: identifiers, messages, digests, manifests,
// summaries, tombstones and peer-map entries.
package model

// SpaceID identifies a logical container for channels.
type SpaceID string

// ChannelID identifies a sub-container of messages within a space.
type ChannelID string

// MessageID identifies a single message within a channel.
type MessageID string

// Address identifies a member, stable across devices.
type Address string

// InboxAddress is an opaque routing identifier used for direct control-message
// delivery; it says nothing about the member's identity.
type InboxAddress string

// PeerID identifies an entry in a space's group-key peer map.
type PeerID uint32

// Timestamp is milliseconds since the Unix epoch.
type Timestamp uint64

// ChannelKey identifies a payload cache entry.
type ChannelKey struct {
	Space   SpaceID
	Channel ChannelID
}
