package model

// ContentKind discriminates the tagged content union carried by a Message.
// Implementers of contentHash must dispatch exhaustively over these kinds;
// an unrecognised kind is an UnsupportedContent error, never a silent default.
type ContentKind string

const (
	ContentPost               ContentKind = "post"
	ContentEmbed              ContentKind = "embed"
	ContentSticker            ContentKind = "sticker"
	ContentEditMessage        ContentKind = "edit-message"
	ContentRemoveMessage      ContentKind = "remove-message"
	ContentJoin               ContentKind = "join"
	ContentLeave              ContentKind = "leave"
	ContentKick               ContentKind = "kick"
	ContentEvent              ContentKind = "event"
	ContentUpdateProfile      ContentKind = "update-profile"
	ContentMute               ContentKind = "mute"
	ContentPin                ContentKind = "pin"
	ContentReaction           ContentKind = "reaction"
	ContentRemoveReaction     ContentKind = "remove-reaction"
	ContentDeleteConversation ContentKind = "delete-conversation"
)

// Content is the tagged union of everything a Message can carry. Only the
// fields relevant to Kind are populated; the rest are left at zero value and
// canonicalise as empty strings (see hashutil).
type Content struct {
	Kind ContentKind `bson:"kind" json:"kind"`

	SenderID Address `bson:"sender_id" json:"sender_id"`

	// post / embed / sticker / event
	Text    string    `bson:"text,omitempty" json:"text,omitempty"`
	ReplyID MessageID `bson:"reply_id,omitempty" json:"reply_id,omitempty"`

	// embed
	ImageURL string `bson:"image_url,omitempty" json:"image_url,omitempty"`
	VideoURL string `bson:"video_url,omitempty" json:"video_url,omitempty"`

	// sticker
	StickerID string `bson:"sticker_id,omitempty" json:"sticker_id,omitempty"`

	// edit-message
	OrigID     MessageID `bson:"orig_id,omitempty" json:"orig_id,omitempty"`
	EditedText string    `bson:"edited_text,omitempty" json:"edited_text,omitempty"`
	EditedAt   Timestamp `bson:"edited_at,omitempty" json:"edited_at,omitempty"`

	// remove-message
	RemoveID MessageID `bson:"remove_id,omitempty" json:"remove_id,omitempty"`

	// update-profile
	DisplayName string `bson:"display_name,omitempty" json:"display_name,omitempty"`
	UserIcon    string `bson:"user_icon,omitempty" json:"user_icon,omitempty"`

	// mute
	MuteTarget string `bson:"mute_target,omitempty" json:"mute_target,omitempty"`
	MuteAction string `bson:"mute_action,omitempty" json:"mute_action,omitempty"`
	MuteID     string `bson:"mute_id,omitempty" json:"mute_id,omitempty"`

	// pin
	PinTargetMessageID MessageID `bson:"pin_target_message_id,omitempty" json:"pin_target_message_id,omitempty"`
	PinAction          string    `bson:"pin_action,omitempty" json:"pin_action,omitempty"`

	// reaction / remove-reaction
	ReactionMessageID MessageID `bson:"reaction_message_id,omitempty" json:"reaction_message_id,omitempty"`
	ReactionEmoji     string    `bson:"reaction_emoji,omitempty" json:"reaction_emoji,omitempty"`
}
