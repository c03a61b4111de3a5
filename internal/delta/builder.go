// Package delta materialises full records from a payload cache for a set of
// message/reaction/member/peer ids, and assembles + chunks the resulting
// sync-delta payload sequence under a byte budget.
package delta

import (
	"github.com/deltasync/peersync/internal/cache"
	"github.com/deltasync/peersync/internal/model"
)

// MessageIDSet names the ids a delta should materialise, already decided by
// the diff engine (outbound orientation: new = we have it, they don't;
// updated = we have it newer than them).
type MessageIDSet struct {
	New     []model.MessageID
	Updated []model.MessageID
	Deleted []model.MessageID
}

// BuildMessageDelta pulls full records for New/Updated ids out of the cache
// and attaches the deleted id list as-is (tombstones are filtered to the
// channel before this is called).
func BuildMessageDelta(c *cache.Cache, ids MessageIDSet) model.MessageDelta {
	messages := c.Messages()

	d := model.MessageDelta{
		DeletedMessageIDs: ids.Deleted,
	}
	for _, id := range ids.New {
		if m, ok := messages[id]; ok {
			d.NewMessages = append(d.NewMessages, m)
		}
	}
	for _, id := range ids.Updated {
		if m, ok := messages[id]; ok {
			d.UpdatedMessages = append(d.UpdatedMessages, m)
		}
	}
	return d
}

// BuildMemberDelta pulls full member records for upserted addresses and
// attaches a removed-address list (DESIGN.md's resolution of the
// member-removal open question).
func BuildMemberDelta(c *cache.Cache, upsertAddresses, removedAddresses []model.Address) model.MemberDelta {
	members := c.Members()
	d := model.MemberDelta{RemovedAddresses: removedAddresses}
	for _, addr := range upsertAddresses {
		if m, ok := members[addr]; ok {
			d.UpsertedMembers = append(d.UpsertedMembers, m)
		}
	}
	return d
}

// BuildPeerMapDelta materialises peer entries for a set of peer ids from the
// host-supplied full entry list (peer-map entries live outside the payload
// cache: they carry key material the encryption layer owns).
func BuildPeerMapDelta(ourPeerEntries []model.PeerEntry, upsertIDs, removedIDs []model.PeerID) model.PeerMapDelta {
	byID := make(map[model.PeerID]model.PeerEntry, len(ourPeerEntries))
	for _, e := range ourPeerEntries {
		byID[e.PeerID] = e
	}
	d := model.PeerMapDelta{RemovedPeerIDs: removedIDs}
	for _, id := range upsertIDs {
		if e, ok := byID[id]; ok {
			d.UpsertedPeers = append(d.UpsertedPeers, e)
		}
	}
	return d
}
