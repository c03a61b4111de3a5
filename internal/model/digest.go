package model

// MessageDigest is a compact, hashed summary of a message's identity and
// content. ModifiedDate is only set when it differs from CreatedDate, so
// digests for never-edited messages stay minimal on the wire.
type MessageDigest struct {
	MessageID    MessageID  `json:"message_id"`
	CreatedDate  Timestamp  `json:"created_date"`
	ContentHash  string     `json:"content_hash"`
	ModifiedDate *Timestamp `json:"modified_date,omitempty"`
}

// ReactionDigest summarises one reaction on one message.
type ReactionDigest struct {
	MessageID   MessageID `json:"message_id"`
	EmojiID     string    `json:"emoji_id"`
	Count       int       `json:"count"`
	MembersHash string    `json:"members_hash"`
}

// MemberDigest summarises a member's identity and mutable profile fields.
type MemberDigest struct {
	Address         Address      `json:"address"`
	InboxAddress    InboxAddress `json:"inbox_address"`
	DisplayNameHash string       `json:"display_name_hash"`
	IconHash        string       `json:"icon_hash"`
}

// Manifest describes a channel's full message set at a point in time.
// Digests is sorted by CreatedDate ascending, per the wire contract.
type Manifest struct {
	SpaceID         SpaceID          `json:"space_id"`
	ChannelID       ChannelID        `json:"channel_id"`
	MessageCount    int              `json:"message_count"`
	OldestTimestamp Timestamp        `json:"oldest_timestamp"`
	NewestTimestamp Timestamp        `json:"newest_timestamp"`
	Digests         []MessageDigest  `json:"digests"`
	ReactionDigests []ReactionDigest `json:"reaction_digests"`
}

// Summary is the cheap, fixed-size stand-in for a Manifest used to decide
// whether a full exchange is worth the bandwidth.
type Summary struct {
	MessageCount           int       `json:"message_count"`
	MemberCount            int       `json:"member_count"`
	OldestMessageTimestamp Timestamp `json:"oldest_message_timestamp"`
	NewestMessageTimestamp Timestamp `json:"newest_message_timestamp"`
	// ManifestHash is 64 lower-case hex characters: the XOR accumulator of
	// every cached message's SHA-256 id hash.
	ManifestHash string `json:"manifest_hash"`
}
