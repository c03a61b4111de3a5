package delta

import (
	"github.com/deltasync/peersync/internal/cache"
	"github.com/deltasync/peersync/internal/model"
)

// AffectedReactionMessages returns the ids of messages whose locally-known
// reaction state differs from what the remote manifest reports. Ids that only
// the remote manifest carries reaction digests for are included as well.
func AffectedReactionMessages(localManifest, remoteManifest model.Manifest) []model.MessageID {
	localByMsg := groupReactionDigests(localManifest.ReactionDigests)
	remoteByMsg := groupReactionDigests(remoteManifest.ReactionDigests)

	seen := make(map[model.MessageID]struct{})
	var affected []model.MessageID
	for id, localEmojis := range localByMsg {
		if _, done := seen[id]; done {
			continue
		}
		seen[id] = struct{}{}
		if !sameEmojiHashes(localEmojis, remoteByMsg[id]) {
			affected = append(affected, id)
		}
	}
	for id, remoteEmojis := range remoteByMsg {
		if _, done := seen[id]; done {
			continue
		}
		seen[id] = struct{}{}
		if !sameEmojiHashes(localByMsg[id], remoteEmojis) {
			affected = append(affected, id)
		}
	}
	return affected
}

func groupReactionDigests(digests []model.ReactionDigest) map[model.MessageID]map[string]string {
	out := make(map[model.MessageID]map[string]string)
	for _, d := range digests {
		if out[d.MessageID] == nil {
			out[d.MessageID] = make(map[string]string)
		}
		out[d.MessageID][d.EmojiID] = d.MembersHash
	}
	return out
}

func sameEmojiHashes(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for emoji, hash := range a {
		if b[emoji] != hash {
			return false
		}
	}
	return true
}

// BuildReactionDelta materialises full reaction state for every affected
// message id we still hold. Applying a ReactionDeltaEntry replaces the
// target message's reaction set wholesale; a message with no current
// reactions produces an entry with an empty Reactions slice, which the
// apply side reads as "drop every reaction this message had."
func BuildReactionDelta(c *cache.Cache, affectedIDs []model.MessageID) *model.ReactionDelta {
	if len(affectedIDs) == 0 {
		return nil
	}
	messages := c.Messages()
	d := &model.ReactionDelta{}
	for _, id := range affectedIDs {
		m, ok := messages[id]
		if !ok {
			continue
		}
		d.Entries = append(d.Entries, model.ReactionDeltaEntry{
			MessageID: id,
			Reactions: m.Reactions,
		})
	}
	if len(d.Entries) == 0 {
		return nil
	}
	return d
}
