// Package digest builds MessageDigest, ReactionDigest and MemberDigest
// values from authoritative storage records.
package digest

import (
	"sort"

	"github.com/deltasync/peersync/internal/hashutil"
	"github.com/deltasync/peersync/internal/model"
)

// BuildMessage builds the digest for a single message. ModifiedDate is set
// only when it differs from CreatedDate.
func BuildMessage(m model.Message) (model.MessageDigest, error) {
	contentHash, err := hashutil.ContentHash(m.Content)
	if err != nil {
		return model.MessageDigest{}, err
	}
	d := model.MessageDigest{
		MessageID:   m.MessageID,
		CreatedDate: m.CreatedDate,
		ContentHash: contentHash,
	}
	if m.ModifiedDate != m.CreatedDate {
		modified := m.ModifiedDate
		d.ModifiedDate = &modified
	}
	return d, nil
}

// BuildReactions returns one digest per reaction on the message. An empty
// reaction list yields an empty (never nil-vs-empty-significant) slice.
func BuildReactions(messageID model.MessageID, reactions []model.Reaction) []model.ReactionDigest {
	out := make([]model.ReactionDigest, 0, len(reactions))
	for _, r := range reactions {
		out = append(out, model.ReactionDigest{
			MessageID:   messageID,
			EmojiID:     r.EmojiID,
			Count:       r.Count(),
			MembersHash: hashutil.MembersHash(r.MemberIDs),
		})
	}
	return out
}

// BuildMember builds a member's digest, defaulting a missing inbox address
// to the empty string.
func BuildMember(m model.Member) model.MemberDigest {
	return model.MemberDigest{
		Address:         m.Address,
		InboxAddress:    m.InboxAddress,
		DisplayNameHash: hashutil.DisplayNameHash(m.DisplayName),
		IconHash:        hashutil.IconHash(m.ProfileImage),
	}
}

// ComputeManifestHash folds the id hashes of a whole digest list into one
// manifest hash with XOR, so the result does not depend on the order of
// digests. It is a standalone batch helper: the cache keeps its own
// incrementally maintained XOR accumulator and does not call it.
func ComputeManifestHash(digests []model.MessageDigest) string {
	var acc [32]byte
	for _, d := range digests {
		h := hashutil.IDHash(string(d.MessageID))
		for i := range acc {
			acc[i] ^= h[i]
		}
	}
	return bytesToHex(acc)
}

func bytesToHex(b [32]byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, 64)
	for i, c := range b {
		out[i*2] = hextable[c>>4]
		out[i*2+1] = hextable[c&0x0f]
	}
	return string(out)
}

// SortByCreatedDate returns digests ordered by CreatedDate ascending, the
// order a Manifest must carry on the wire.
func SortByCreatedDate(digests []model.MessageDigest) []model.MessageDigest {
	sorted := make([]model.MessageDigest, len(digests))
	copy(sorted, digests)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedDate < sorted[j].CreatedDate
	})
	return sorted
}
