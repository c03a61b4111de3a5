// Package cache implements the per-channel payload cache: an in-memory
// snapshot of a channel's messages and members with O(1) incremental
// updates to counts, boundary timestamps, and a commutative manifest hash.
package cache

import (
	"sync"

	"github.com/deltasync/peersync/internal/digest"
	"github.com/deltasync/peersync/internal/hashutil"
	"github.com/deltasync/peersync/internal/model"
)

// Cache is one (space, channel)'s payload cache. All mutating methods are
// synchronous and safe for concurrent use: each Cache owns its own mutex, so
// two different channels never contend with each other (spec.md §5's
// "independent locks" guidance for multi-threaded runtimes).
type Cache struct {
	Space   model.SpaceID
	Channel model.ChannelID

	mu sync.RWMutex

	messageMap      map[model.MessageID]model.Message
	memberMap       map[model.Address]model.Member
	digestMap       map[model.MessageID]model.MessageDigest
	memberDigestMap map[model.Address]model.MemberDigest

	oldestTimestamp model.Timestamp
	newestTimestamp model.Timestamp

	// manifestHashBytes is the XOR of H(messageId) over every cached
	// message. XOR is commutative and self-inverse, so insertion and
	// removal are both O(1) and order never matters (invariant 2).
	manifestHashBytes [32]byte
}

// New returns an empty cache for (space, channel).
func New(space model.SpaceID, channel model.ChannelID) *Cache {
	return &Cache{
		Space:           space,
		Channel:         channel,
		messageMap:      make(map[model.MessageID]model.Message),
		memberMap:       make(map[model.Address]model.Member),
		digestMap:       make(map[model.MessageID]model.MessageDigest),
		memberDigestMap: make(map[model.Address]model.MemberDigest),
	}
}

// UpsertMessage inserts or replaces a message in O(1). The manifest hash is
// only touched when the message id is new to the cache (invariant 4: a
// content-only update of an already-cached id leaves the hash unchanged).
func (c *Cache) UpsertMessage(m model.Message) error {
	d, err := digest.BuildMessage(m)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.messageMap[m.MessageID]; !exists {
		h := hashutil.IDHash(string(m.MessageID))
		xorInto(&c.manifestHashBytes, h)
	}
	c.messageMap[m.MessageID] = m
	c.digestMap[m.MessageID] = d

	if len(c.messageMap) == 1 {
		c.oldestTimestamp = m.CreatedDate
		c.newestTimestamp = m.CreatedDate
	} else {
		if m.CreatedDate < c.oldestTimestamp {
			c.oldestTimestamp = m.CreatedDate
		}
		if m.CreatedDate > c.newestTimestamp {
			c.newestTimestamp = m.CreatedDate
		}
	}
	return nil
}

// RemoveMessage deletes a message in O(1) in the common case. If the
// removed message sat on a boundary timestamp, boundaries are recomputed in
// O(n) (spec.md invariant: "removing others does not").
func (c *Cache) RemoveMessage(id model.MessageID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, exists := c.messageMap[id]
	if !exists {
		return
	}

	h := hashutil.IDHash(string(id))
	xorInto(&c.manifestHashBytes, h)

	delete(c.messageMap, id)
	delete(c.digestMap, id)

	if m.CreatedDate == c.oldestTimestamp || m.CreatedDate == c.newestTimestamp {
		c.recomputeBoundariesLocked()
	}
}

func (c *Cache) recomputeBoundariesLocked() {
	if len(c.messageMap) == 0 {
		c.oldestTimestamp = 0
		c.newestTimestamp = 0
		return
	}
	first := true
	for _, m := range c.messageMap {
		if first {
			c.oldestTimestamp = m.CreatedDate
			c.newestTimestamp = m.CreatedDate
			first = false
			continue
		}
		if m.CreatedDate < c.oldestTimestamp {
			c.oldestTimestamp = m.CreatedDate
		}
		if m.CreatedDate > c.newestTimestamp {
			c.newestTimestamp = m.CreatedDate
		}
	}
}

// UpsertMember inserts or replaces a member and its digest in O(1).
func (c *Cache) UpsertMember(m model.Member) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memberMap[m.Address] = m
	c.memberDigestMap[m.Address] = digest.BuildMember(m)
}

// RemoveMember deletes a member and its digest in O(1).
func (c *Cache) RemoveMember(addr model.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.memberMap, addr)
	delete(c.memberDigestMap, addr)
}

// Summary is an O(1) read of the cache's fixed-size stand-in for a Manifest.
func (c *Cache) Summary() model.Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return model.Summary{
		MessageCount:           len(c.messageMap),
		MemberCount:            len(c.memberMap),
		OldestMessageTimestamp: c.oldestTimestamp,
		NewestMessageTimestamp: c.newestTimestamp,
		ManifestHash:           hexBytes(c.manifestHashBytes),
	}
}

// Manifest is an O(n log n) read: it sorts digests by CreatedDate and
// collects every message's reaction digests.
func (c *Cache) Manifest() model.Manifest {
	c.mu.RLock()
	defer c.mu.RUnlock()

	digests := make([]model.MessageDigest, 0, len(c.digestMap))
	var reactionDigests []model.ReactionDigest
	for id, d := range c.digestMap {
		digests = append(digests, d)
		if m, ok := c.messageMap[id]; ok && len(m.Reactions) > 0 {
			reactionDigests = append(reactionDigests, digest.BuildReactions(id, m.Reactions)...)
		}
	}
	sorted := digest.SortByCreatedDate(digests)

	return model.Manifest{
		SpaceID:         c.Space,
		ChannelID:       c.Channel,
		MessageCount:    len(sorted),
		OldestTimestamp: c.oldestTimestamp,
		NewestTimestamp: c.newestTimestamp,
		Digests:         sorted,
		ReactionDigests: reactionDigests,
	}
}

// MemberDigests is an O(m) read of every cached member's digest.
func (c *Cache) MemberDigests() []model.MemberDigest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.MemberDigest, 0, len(c.memberDigestMap))
	for _, d := range c.memberDigestMap {
		out = append(out, d)
	}
	return out
}

// Message returns a defensive copy of one cached message, if present.
func (c *Cache) Message(id model.MessageID) (model.Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.messageMap[id]
	return m, ok
}

// Messages returns a defensive copy of the whole message map.
func (c *Cache) Messages() map[model.MessageID]model.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[model.MessageID]model.Message, len(c.messageMap))
	for k, v := range c.messageMap {
		out[k] = v
	}
	return out
}

// Members returns a defensive copy of the whole member map.
func (c *Cache) Members() map[model.Address]model.Member {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[model.Address]model.Member, len(c.memberMap))
	for k, v := range c.memberMap {
		out[k] = v
	}
	return out
}

// DigestMap returns a defensive copy of the message digest map.
func (c *Cache) DigestMap() map[model.MessageID]model.MessageDigest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[model.MessageID]model.MessageDigest, len(c.digestMap))
	for k, v := range c.digestMap {
		out[k] = v
	}
	return out
}

func xorInto(acc *[32]byte, h [32]byte) {
	for i := range acc {
		acc[i] ^= h[i]
	}
}

func hexBytes(b [32]byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, 64)
	for i, c := range b {
		out[i*2] = hextable[c>>4]
		out[i*2+1] = hextable[c&0x0f]
	}
	return string(out)
}
