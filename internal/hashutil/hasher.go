// Package hashutil implements the canonical hasher: deterministic,
// collision-resistant hashes over message content, reactions, members and
// ids. Every hash in this package is SHA-256, hex-encoded lower-case when
// held as a string. This is the one place SPEC_FULL.md pins a stdlib
// algorithm over a third-party one — SHA-256 is the wire format, not a free
// implementation choice.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/deltasync/peersync/internal/model"
)

// Sum256Hex returns the lower-case hex SHA-256 digest of s.
func Sum256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Sum256Bytes returns the raw 32-byte SHA-256 digest of s.
func Sum256Bytes(s string) [32]byte {
	return sha256.Sum256([]byte(s))
}

// IDHash hashes an opaque id (a MessageID, typically) for use in the
// commutative manifest hash accumulator.
func IDHash(id string) [32]byte {
	return Sum256Bytes(id)
}

// ContentHash builds the canonical string for a message's content variant
// and returns its SHA-256 hex digest. Unknown variants fail with
// UnsupportedContentError rather than silently hashing something.
func ContentHash(c model.Content) (string, error) {
	canon, err := canonicalContent(c)
	if err != nil {
		return "", err
	}
	return Sum256Hex(canon), nil
}

func canonicalContent(c model.Content) (string, error) {
	sender := string(c.SenderID)
	switch c.Kind {
	case model.ContentPost:
		s := join(sender, "post", c.Text)
		return withReply(s, c.ReplyID), nil
	case model.ContentEmbed:
		s := join(sender, "embed", c.ImageURL, c.VideoURL)
		return withReply(s, c.ReplyID), nil
	case model.ContentSticker:
		s := join(sender, "sticker", c.StickerID)
		return withReply(s, c.ReplyID), nil
	case model.ContentEditMessage:
		return join(sender, "edit-message", string(c.OrigID), c.EditedText, strconv.FormatUint(uint64(c.EditedAt), 10)), nil
	case model.ContentRemoveMessage:
		return join(sender, "remove-message", string(c.RemoveID)), nil
	case model.ContentJoin:
		return join(sender, "join"), nil
	case model.ContentLeave:
		return join(sender, "leave"), nil
	case model.ContentKick:
		return join(sender, "kick"), nil
	case model.ContentEvent:
		return join(sender, "event", c.Text), nil
	case model.ContentUpdateProfile:
		return join(sender, "update-profile", c.DisplayName, c.UserIcon), nil
	case model.ContentMute:
		return join(sender, "mute", c.MuteTarget, c.MuteAction, c.MuteID), nil
	case model.ContentPin:
		return join(sender, "pin", string(c.PinTargetMessageID), c.PinAction), nil
	case model.ContentReaction:
		return join(sender, "reaction", string(c.ReactionMessageID), c.ReactionEmoji), nil
	case model.ContentRemoveReaction:
		return join(sender, "remove-reaction", string(c.ReactionMessageID), c.ReactionEmoji), nil
	case model.ContentDeleteConversation:
		return join(sender, "delete-conversation"), nil
	default:
		return "", &UnsupportedContentError{Kind: string(c.Kind)}
	}
}

func withReply(s string, replyID model.MessageID) string {
	if replyID == "" {
		return s
	}
	return join(s, "reply", string(replyID))
}

func join(parts ...string) string {
	return strings.Join(parts, ":")
}

// MembersHash hashes a sorted, comma-joined member id list, used for
// ReactionDigest.MembersHash.
func MembersHash(memberIDs []model.Address) string {
	ids := make([]string, len(memberIDs))
	for i, id := range memberIDs {
		ids[i] = string(id)
	}
	sort.Strings(ids)
	return Sum256Hex(strings.Join(ids, ","))
}

// ReactionsHash canonicalises a message's full reaction set: reactions
// sorted by emoji id, member ids within each reaction sorted, newline-joined.
// It is a general-purpose integrity hash, not otherwise consumed by the
// digest/diff pipeline (which compares reactions digest-by-digest instead).
func ReactionsHash(reactions []model.Reaction) string {
	lines := make([]string, len(reactions))
	for i, r := range reactions {
		members := make([]string, len(r.MemberIDs))
		for j, m := range r.MemberIDs {
			members[j] = string(m)
		}
		sort.Strings(members)
		lines[i] = r.EmojiID + ":" + strings.Join(members, ",")
	}
	sort.Strings(lines)
	return Sum256Hex(strings.Join(lines, "\n"))
}

// DisplayNameHash hashes a member's display name, defaulting missing values
// to empty string per the displayNameHash = H(displayName ∥ "") rule.
func DisplayNameHash(displayName string) string {
	return Sum256Hex(displayName)
}

// IconHash hashes a member's profile image URL, same empty-default rule.
func IconHash(profileImage string) string {
	return Sum256Hex(profileImage)
}
