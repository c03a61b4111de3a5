package model

// Payload kinds for the five-step control protocol. Every payload carries
// its Type on the wire so a transport can route generically on a single
// tagged-union field, the same shape the teacher corpus uses for its
// WebSocketEvent{Type, Data} envelope.
const (
	PayloadSyncRequest  = "sync-request"
	PayloadSyncInfo     = "sync-info"
	PayloadSyncInitiate = "sync-initiate"
	PayloadSyncManifest = "sync-manifest"
	PayloadSyncDelta    = "sync-delta"
)

// SyncRequest opens candidate collection for a channel.
type SyncRequest struct {
	Type         string       `json:"type"`
	InboxAddress InboxAddress `json:"inboxAddress"`
	Expiry       Timestamp    `json:"expiry"`
	Summary      Summary      `json:"summary"`
}

// SyncInfo answers a SyncRequest, offering our summary as a sync candidate.
type SyncInfo struct {
	Type         string       `json:"type"`
	InboxAddress InboxAddress `json:"inboxAddress"`
	Summary      Summary      `json:"summary"`
}

// SyncInitiate is sent to the selected candidate to start the manifest
// exchange. Manifest/MemberDigests/PeerIDs are optional: the initiator may
// choose to wait for the candidate's own SyncManifest instead.
type SyncInitiate struct {
	Type          string         `json:"type"`
	InboxAddress  InboxAddress   `json:"inboxAddress"`
	Manifest      *Manifest      `json:"manifest,omitempty"`
	MemberDigests []MemberDigest `json:"memberDigests,omitempty"`
	PeerIDs       []PeerID       `json:"peerIds,omitempty"`
}

// SyncManifest carries the full comparison material for a channel.
type SyncManifest struct {
	Type          string         `json:"type"`
	InboxAddress  InboxAddress   `json:"inboxAddress"`
	Manifest      Manifest       `json:"manifest"`
	MemberDigests []MemberDigest `json:"memberDigests"`
	PeerIDs       []PeerID       `json:"peerIds"`
}

// MessageDelta carries full message records and deletions.
type MessageDelta struct {
	NewMessages       []Message   `json:"newMessages,omitempty"`
	UpdatedMessages   []Message   `json:"updatedMessages,omitempty"`
	DeletedMessageIDs []MessageID `json:"deletedMessageIds,omitempty"`
}

// ReactionDeltaEntry is the full reaction state for one message; applying it
// replaces that message's reaction set wholesale.
type ReactionDeltaEntry struct {
	MessageID MessageID  `json:"messageId"`
	Reactions []Reaction `json:"reactions"`
}

// ReactionDelta carries full-replacement reaction state for a set of messages.
type ReactionDelta struct {
	Entries []ReactionDeltaEntry `json:"entries"`
}

// MemberDelta carries member upserts and, per the open question in
// SPEC_FULL.md, explicit removals.
type MemberDelta struct {
	UpsertedMembers  []Member  `json:"upsertedMembers,omitempty"`
	RemovedAddresses []Address `json:"removedAddresses,omitempty"`
}

// PeerMapDelta carries group-key peer map changes, opaque beyond the ID.
type PeerMapDelta struct {
	UpsertedPeers  []PeerEntry `json:"upsertedPeers,omitempty"`
	RemovedPeerIDs []PeerID    `json:"removedPeerIds,omitempty"`
}

// SyncDelta is one chunk of the delta-assembly output. Exactly one payload
// in a returned sequence has IsFinal set, and it is always the last one.
type SyncDelta struct {
	Type          string         `json:"type"`
	MessageDelta  *MessageDelta  `json:"messageDelta,omitempty"`
	ReactionDelta *ReactionDelta `json:"reactionDelta,omitempty"`
	MemberDelta   *MemberDelta   `json:"memberDelta,omitempty"`
	PeerMapDelta  *PeerMapDelta  `json:"peerMapDelta,omitempty"`
	IsFinal       bool           `json:"isFinal,omitempty"`
}
