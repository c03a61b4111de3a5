// Package protocol produces and consumes the five sync control payloads of
// spec.md §4.G: sync-request, sync-info, sync-initiate, sync-manifest, and
// sync-delta, delegating cache reads to cache.Manager, diffing to the diff
// package, and payload assembly to the delta package.
package protocol

import (
	"context"
	"time"

	"github.com/deltasync/peersync/internal/cache"
	"github.com/deltasync/peersync/internal/delta"
	"github.com/deltasync/peersync/internal/diff"
	"github.com/deltasync/peersync/internal/model"
	"github.com/deltasync/peersync/internal/session"
	"github.com/deltasync/peersync/internal/storage"
	"github.com/deltasync/peersync/internal/tombstone"
)

// Config carries the external-interface configuration table of spec.md §6.
// The orchestrator itself reads only MaxChunkSize; RequestExpiry and
// TombstoneMaxAge are carried for the host (session timeouts live in
// session.Config; CleanupTombstones takes its cutoff from the caller; cache
// sizing lives in cache's functional options).
type Config struct {
	RequestExpiry   time.Duration
	MaxChunkSize    int
	TombstoneMaxAge time.Duration
}

// DefaultConfig matches spec.md §6's defaults.
func DefaultConfig() Config {
	return Config{
		RequestExpiry:   30 * time.Second,
		MaxChunkSize:    delta.DefaultMaxChunkSize,
		TombstoneMaxAge: 30 * 24 * time.Hour,
	}
}

// Orchestrator is the Protocol Orchestrator of spec.md §4.G.
type Orchestrator struct {
	caches     *cache.Manager
	storage    storage.Storage
	tombstones storage.TombstoneStore
	sessions   *session.Manager
	cfg        Config
}

// New constructs an Orchestrator. tombstones may be nil, in which case an
// in-process tombstone.Log is used (the default per spec.md §9).
func New(caches *cache.Manager, store storage.Storage, tombstones storage.TombstoneStore, sessions *session.Manager, cfg Config) *Orchestrator {
	guarded := newGuardedStorage(store)
	if tombstones == nil {
		tombstones = tombstone.NewLog()
	}
	return &Orchestrator{
		caches:     caches,
		storage:    guarded,
		tombstones: tombstones,
		sessions:   sessions,
		cfg:        cfg,
	}
}

// BuildSyncRequest loads the cache, opens a Collecting session, and returns
// the opening control payload.
func (o *Orchestrator) BuildSyncRequest(ctx context.Context, space model.SpaceID, channel model.ChannelID, ourInbox model.InboxAddress) (model.SyncRequest, error) {
	c, err := o.caches.Get(ctx, space, channel)
	if err != nil {
		return model.SyncRequest{}, &StorageFailureError{Op: "loadCache", Err: err}
	}

	s := o.sessions.OpenCollecting(space)
	return model.SyncRequest{
		Type:         model.PayloadSyncRequest,
		InboxAddress: ourInbox,
		Expiry:       s.Expiry,
		Summary:      c.Summary(),
	}, nil
}

// BuildSyncInfo answers a SyncRequest with our own summary, or nil if there
// is nothing to offer or nothing has diverged.
func (o *Orchestrator) BuildSyncInfo(ctx context.Context, space model.SpaceID, channel model.ChannelID, ourInbox model.InboxAddress, theirSummary model.Summary) (*model.SyncInfo, error) {
	c, err := o.caches.Get(ctx, space, channel)
	if err != nil {
		return nil, &StorageFailureError{Op: "loadCache", Err: err}
	}

	ours := c.Summary()
	if ours.MessageCount == 0 && ours.MemberCount == 0 {
		return nil, nil
	}
	if ours.ManifestHash == theirSummary.ManifestHash && ours.MemberCount == theirSummary.MemberCount {
		return nil, nil
	}

	moreMessages := ours.MessageCount > theirSummary.MessageCount
	moreMembers := ours.MemberCount > theirSummary.MemberCount
	newerMessages := ours.NewestMessageTimestamp > theirSummary.NewestMessageTimestamp
	olderMessages := ours.OldestMessageTimestamp < theirSummary.OldestMessageTimestamp
	differentManifestHash := ours.ManifestHash != theirSummary.ManifestHash

	if !(moreMessages || moreMembers || newerMessages || olderMessages || differentManifestHash) {
		return nil, nil
	}

	return &model.SyncInfo{
		Type:         model.PayloadSyncInfo,
		InboxAddress: ourInbox,
		Summary:      ours,
	}, nil
}

// AddCandidate forwards an incoming SyncInfo offer to the session manager.
func (o *Orchestrator) AddCandidate(space model.SpaceID, info model.SyncInfo) {
	o.sessions.AddCandidate(space, session.Candidate{
		InboxAddress: info.InboxAddress,
		Summary:      info.Summary,
	})
}

// BuildSyncInitiate selects the best candidate and transitions the session
// to Syncing. Returns ok=false (after deleting the session) if there is no
// candidate to select.
func (o *Orchestrator) BuildSyncInitiate(ctx context.Context, space model.SpaceID, channel model.ChannelID, ourInbox model.InboxAddress, peerIDs []model.PeerID) (model.InboxAddress, model.SyncInitiate, bool, error) {
	target, ok := o.sessions.BuildInitiate(space)
	if !ok {
		return "", model.SyncInitiate{}, false, nil
	}

	c, err := o.caches.Get(ctx, space, channel)
	if err != nil {
		return "", model.SyncInitiate{}, false, &StorageFailureError{Op: "loadCache", Err: err}
	}
	manifest := c.Manifest()
	memberDigests := c.MemberDigests()

	return target, model.SyncInitiate{
		Type:          model.PayloadSyncInitiate,
		InboxAddress:  ourInbox,
		Manifest:      &manifest,
		MemberDigests: memberDigests,
		PeerIDs:       peerIDs,
	}, true, nil
}

// BuildSyncManifest returns the full comparison material for a channel.
func (o *Orchestrator) BuildSyncManifest(ctx context.Context, space model.SpaceID, channel model.ChannelID, peerIDs []model.PeerID, ourInbox model.InboxAddress) (model.SyncManifest, error) {
	c, err := o.caches.Get(ctx, space, channel)
	if err != nil {
		return model.SyncManifest{}, &StorageFailureError{Op: "loadCache", Err: err}
	}
	return model.SyncManifest{
		Type:          model.PayloadSyncManifest,
		InboxAddress:  ourInbox,
		Manifest:      c.Manifest(),
		MemberDigests: c.MemberDigests(),
		PeerIDs:       peerIDs,
	}, nil
}

// BuildSyncDelta computes the outbound diff against the remote's manifest,
// member digests, and peer ids, then assembles + chunks the payload
// sequence (spec.md §4.E). ourPeerEntries supplies key material for any
// peer-map upserts; it is the host's responsibility to source it.
func (o *Orchestrator) BuildSyncDelta(
	ctx context.Context,
	space model.SpaceID,
	channel model.ChannelID,
	theirManifest model.Manifest,
	theirMemberDigests []model.MemberDigest,
	theirPeerIDs []model.PeerID,
	ourPeerEntries []model.PeerEntry,
) ([]model.SyncDelta, error) {
	c, err := o.caches.Get(ctx, space, channel)
	if err != nil {
		return nil, &StorageFailureError{Op: "loadCache", Err: err}
	}

	localManifest := c.Manifest()
	msgDiff := diff.ComputeOutboundMessageDiff(localManifest, theirManifest)

	ourMemberDigests := c.MemberDigests()
	// Unlike messages, member comparison needs no swap: ExtraAddresses is
	// already "ours only" and OutdatedAddresses is already "present both
	// sides but differs". DESIGN.md resolves the tie-break by having
	// the source always push its own state for both sets, since member
	// digests carry no timestamp to arbitrate "newer".
	memberDiff := diff.ComputeMemberDiff(ourMemberDigests, theirMemberDigests)
	upsertAddresses := append(append([]model.Address{}, memberDiff.ExtraAddresses...), memberDiff.OutdatedAddresses...)

	ourPeerIDs := make([]model.PeerID, 0, len(ourPeerEntries))
	for _, e := range ourPeerEntries {
		ourPeerIDs = append(ourPeerIDs, e.PeerID)
	}
	// Same reasoning as members: ExtraPeerIDs is already "ours only", no
	// swap needed.
	peerDiff := diff.ComputePeerDiff(ourPeerIDs, theirPeerIDs)
	peerPushIDs := peerDiff.ExtraPeerIDs

	messageDelta := delta.BuildMessageDelta(c, delta.MessageIDSet{
		New:     msgDiff.MissingIDs,
		Updated: msgDiff.OutdatedIDs,
	})

	affectedReactions := delta.AffectedReactionMessages(localManifest, theirManifest)
	reactionDelta := delta.BuildReactionDelta(c, affectedReactions)

	var memberDeltaPtr *model.MemberDelta
	if len(upsertAddresses) > 0 {
		md := delta.BuildMemberDelta(c, upsertAddresses, nil)
		memberDeltaPtr = &md
	}

	var peerMapDeltaPtr *model.PeerMapDelta
	if len(peerPushIDs) > 0 {
		pd := delta.BuildPeerMapDelta(ourPeerEntries, peerPushIDs, nil)
		peerMapDeltaPtr = &pd
	}

	newMessages := make([]model.Message, 0, len(messageDelta.NewMessages))
	newMessages = append(newMessages, messageDelta.NewMessages...)
	updatedMessages := make([]model.Message, 0, len(messageDelta.UpdatedMessages))
	updatedMessages = append(updatedMessages, messageDelta.UpdatedMessages...)

	tombstones, err := o.tombstones.ListTombstones(ctx, space, channel)
	if err != nil {
		return nil, &StorageFailureError{Op: "listTombstones", Err: err}
	}
	deletedIDs := make([]model.MessageID, 0, len(tombstones))
	for _, t := range tombstones {
		deletedIDs = append(deletedIDs, t.MessageID)
	}

	return delta.Assemble(delta.AssembleInput{
		NewMessages:       newMessages,
		UpdatedMessages:   updatedMessages,
		DeletedMessageIDs: deletedIDs,
		ReactionDelta:     reactionDelta,
		MemberDelta:       memberDeltaPtr,
		PeerMapDelta:      peerMapDeltaPtr,
		MaxChunkSize:      o.cfg.MaxChunkSize,
	})
}

// ApplyMessageDelta persists new/updated messages and deletes tombstoned
// ids, invalidating the cache entry so the next Get reloads fresh state.
func (o *Orchestrator) ApplyMessageDelta(ctx context.Context, space model.SpaceID, channel model.ChannelID, d model.MessageDelta) error {
	for _, m := range d.NewMessages {
		if err := o.storage.SaveMessage(ctx, m); err != nil {
			return err
		}
	}
	for _, m := range d.UpdatedMessages {
		if err := o.storage.SaveMessage(ctx, m); err != nil {
			return err
		}
	}
	for _, id := range d.DeletedMessageIDs {
		if err := o.storage.DeleteMessage(ctx, space, channel, id); err != nil {
			return err
		}
		if err := o.tombstones.SaveTombstone(ctx, model.Tombstone{
			MessageID: id,
			SpaceID:   space,
			ChannelID: channel,
			DeletedAt: model.Timestamp(time.Now().UnixMilli()),
		}); err != nil {
			return &StorageFailureError{Op: "saveTombstone", Err: err}
		}
	}
	o.caches.Invalidate(space, &channel)
	return nil
}

// ApplyReactionDelta merges/un-merges reaction member sets per message: a
// message's stored Reactions slice is replaced wholesale by the entry's
// Reactions (an empty slice drops every reaction), count is always derived.
func (o *Orchestrator) ApplyReactionDelta(ctx context.Context, space model.SpaceID, channel model.ChannelID, d model.ReactionDelta) error {
	for _, entry := range d.Entries {
		m, err := o.storage.GetMessage(ctx, space, channel, entry.MessageID)
		if err != nil {
			return err
		}
		if m == nil {
			continue
		}
		m.Reactions = entry.Reactions
		if err := o.storage.SaveMessage(ctx, *m); err != nil {
			return err
		}
	}
	o.caches.Invalidate(space, &channel)
	return nil
}

// ApplyMemberDelta saves upserted members and removes the addresses named in
// RemovedAddresses (DESIGN.md's resolution of the member-removal open
// question via storage.MemberStore.RemoveSpaceMember).
func (o *Orchestrator) ApplyMemberDelta(ctx context.Context, space model.SpaceID, d model.MemberDelta) error {
	for _, m := range d.UpsertedMembers {
		if err := o.storage.SaveSpaceMember(ctx, space, m); err != nil {
			return err
		}
	}
	for _, addr := range d.RemovedAddresses {
		if err := o.storage.RemoveSpaceMember(ctx, space, addr); err != nil {
			return err
		}
	}
	o.caches.Invalidate(space, nil)
	return nil
}

// FinishSync is called once a SyncDelta payload carrying isFinal has been
// applied: Syncing→Done.
func (o *Orchestrator) FinishSync(space model.SpaceID) {
	o.sessions.MarkDone(space)
}

// CancelSync implements any→Cancelled.
func (o *Orchestrator) CancelSync(space model.SpaceID) {
	o.sessions.CancelSync(space)
}

// CleanupTombstones reaps tombstones deleted before the caller-supplied
// cutoff; it does not consult cfg.TombstoneMaxAge itself.
func (o *Orchestrator) CleanupTombstones(ctx context.Context, before model.Timestamp) (int, error) {
	return o.tombstones.CleanupTombstones(ctx, before)
}
