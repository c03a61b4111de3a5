// Package diff compares manifests, member digest sets, and peer id sets to
// produce missing/outdated/extra id sets.
package diff

import (
	roaring "github.com/RoaringBitmap/roaring/v2"

	"github.com/deltasync/peersync/internal/model"
)

// MessageDiff is the result of comparing our manifest against theirs.
type MessageDiff struct {
	MissingIDs  []model.MessageID // present in theirs, absent in ours
	OutdatedIDs []model.MessageID // in both, theirs newer and different content
	ExtraIDs    []model.MessageID // present in ours, absent in theirs
}

func isNewer(theirCreated model.Timestamp, theirModified *model.Timestamp, ourCreated model.Timestamp, ourModified *model.Timestamp) bool {
	their := theirCreated
	if theirModified != nil {
		their = *theirModified
	}
	our := ourCreated
	if ourModified != nil {
		our = *ourModified
	}
	return their > our
}

// ComputeMessageDiff compares ourManifest against theirManifest. If content
// hashes differ but theirs is not newer, we deliberately do nothing: we keep
// ours and they will detect the discrepancy reciprocally on their side.
func ComputeMessageDiff(ourManifest, theirManifest model.Manifest) MessageDiff {
	ours := make(map[model.MessageID]model.MessageDigest, len(ourManifest.Digests))
	for _, d := range ourManifest.Digests {
		ours[d.MessageID] = d
	}
	theirs := make(map[model.MessageID]model.MessageDigest, len(theirManifest.Digests))
	for _, d := range theirManifest.Digests {
		theirs[d.MessageID] = d
	}

	var result MessageDiff
	for id, theirDigest := range theirs {
		ourDigest, ok := ours[id]
		if !ok {
			result.MissingIDs = append(result.MissingIDs, id)
			continue
		}
		if theirDigest.ContentHash != ourDigest.ContentHash &&
			isNewer(theirDigest.CreatedDate, theirDigest.ModifiedDate, ourDigest.CreatedDate, ourDigest.ModifiedDate) {
			result.OutdatedIDs = append(result.OutdatedIDs, id)
		}
	}
	for id := range ours {
		if _, ok := theirs[id]; !ok {
			result.ExtraIDs = append(result.ExtraIDs, id)
		}
	}
	return result
}

// ComputeOutboundMessageDiff answers "what does remote need from us": it
// reuses ComputeMessageDiff by swapping which manifest plays the "ours" role,
// since that function's own missing/outdated sets are phrased the other way
// round (what we would pull from them). With the arguments swapped,
// MissingIDs becomes "ids we hold that remote lacks" (push as new) and
// OutdatedIDs becomes "ids where our content is newer than remote's" (push
// as updated); ExtraIDs is remote's own unique content and is irrelevant to
// a push and should be ignored by the caller.
func ComputeOutboundMessageDiff(local, remote model.Manifest) MessageDiff {
	return ComputeMessageDiff(remote, local)
}

// MemberDiff is the result of comparing our member digests against theirs.
type MemberDiff struct {
	MissingAddresses  []model.Address // present in theirs, absent in ours
	OutdatedAddresses []model.Address // in both, displayNameHash or iconHash differs
	ExtraAddresses    []model.Address // present in ours, absent in theirs
}

// ComputeMemberDiff compares MemberDigest maps by address.
func ComputeMemberDiff(ours, theirs []model.MemberDigest) MemberDiff {
	ourByAddr := make(map[model.Address]model.MemberDigest, len(ours))
	for _, d := range ours {
		ourByAddr[d.Address] = d
	}
	theirByAddr := make(map[model.Address]model.MemberDigest, len(theirs))
	for _, d := range theirs {
		theirByAddr[d.Address] = d
	}

	var result MemberDiff
	for addr, theirDigest := range theirByAddr {
		ourDigest, ok := ourByAddr[addr]
		if !ok {
			result.MissingAddresses = append(result.MissingAddresses, addr)
			continue
		}
		if theirDigest.DisplayNameHash != ourDigest.DisplayNameHash || theirDigest.IconHash != ourDigest.IconHash {
			result.OutdatedAddresses = append(result.OutdatedAddresses, addr)
		}
	}
	for addr := range ourByAddr {
		if _, ok := theirByAddr[addr]; !ok {
			result.ExtraAddresses = append(result.ExtraAddresses, addr)
		}
	}
	return result
}

// PeerDiff is a set difference over integer peer ids.
type PeerDiff struct {
	MissingPeerIDs []model.PeerID
	ExtraPeerIDs   []model.PeerID
}

// ComputePeerDiff represents both peer id sets as roaring bitmaps and takes
// their symmetric difference via AndNot, the natural fit for a "set of
// 32-bit ints" comparison.
func ComputePeerDiff(ours, theirs []model.PeerID) PeerDiff {
	ourBitmap := roaring.New()
	for _, id := range ours {
		ourBitmap.Add(uint32(id))
	}
	theirBitmap := roaring.New()
	for _, id := range theirs {
		theirBitmap.Add(uint32(id))
	}

	missing := roaring.AndNot(theirBitmap, ourBitmap)
	extra := roaring.AndNot(ourBitmap, theirBitmap)

	var result PeerDiff
	missing.Iterate(func(x uint32) bool {
		result.MissingPeerIDs = append(result.MissingPeerIDs, model.PeerID(x))
		return true
	})
	extra.Iterate(func(x uint32) bool {
		result.ExtraPeerIDs = append(result.ExtraPeerIDs, model.PeerID(x))
		return true
	})
	return result
}
