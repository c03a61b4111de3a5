package delta

import (
	"encoding/json"
	"sort"

	"github.com/deltasync/peersync/internal/model"
	"github.com/deltasync/peersync/internal/observability"
)

// AssembleInput bundles everything needed to assemble a sync-delta payload
// sequence for one channel.
type AssembleInput struct {
	NewMessages       []model.Message
	UpdatedMessages   []model.Message
	DeletedMessageIDs []model.MessageID
	ReactionDelta     *model.ReactionDelta
	MemberDelta       *model.MemberDelta
	PeerMapDelta      *model.PeerMapDelta
	MaxChunkSize      int
}

// Assemble implements the delta payload assembly rules of spec.md §4.E:
//  1. new+updated messages are chunked together in source order; each
//     chunk's messageDelta holds only the subset that is new or updated.
//  2. deletedMessageIds attach only to the last message chunk.
//  3. a non-empty reactionDelta attaches only to the last message chunk.
//  4. member/peer changes (or the total absence of message chunks) produce
//     a trailing payload with isFinal=true.
//  5. otherwise the last message chunk itself is marked isFinal.
//  6. an entirely empty result is a single {isFinal:true}.
//  7. exactly one payload has isFinal=true, and it is the last one.
func Assemble(in AssembleInput) ([]model.SyncDelta, error) {
	maxChunkSize := in.MaxChunkSize
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}

	updatedSet := make(map[model.MessageID]struct{}, len(in.UpdatedMessages))
	for _, m := range in.UpdatedMessages {
		updatedSet[m.MessageID] = struct{}{}
	}

	all := make([]model.Message, 0, len(in.NewMessages)+len(in.UpdatedMessages))
	all = append(all, in.NewMessages...)
	all = append(all, in.UpdatedMessages...)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedDate < all[j].CreatedDate
	})

	needsDeletionCarrier := len(in.DeletedMessageIDs) > 0 || in.ReactionDelta != nil
	chunks, err := ChunkMessages(all, maxChunkSize)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 && needsDeletionCarrier {
		// Synthesize an empty message chunk so deletions/reaction changes
		// have a "last message chunk" to ride on, per rule 2/3.
		chunks = [][]model.Message{{}}
	}

	var payloads []model.SyncDelta
	for i, chunk := range chunks {
		isLastMessageChunk := i == len(chunks)-1

		md := &model.MessageDelta{}
		for _, m := range chunk {
			if _, updated := updatedSet[m.MessageID]; updated {
				md.UpdatedMessages = append(md.UpdatedMessages, m)
			} else {
				md.NewMessages = append(md.NewMessages, m)
			}
		}
		if isLastMessageChunk {
			md.DeletedMessageIDs = in.DeletedMessageIDs
		}

		payload := model.SyncDelta{
			Type:         model.PayloadSyncDelta,
			MessageDelta: md,
		}
		if isLastMessageChunk && in.ReactionDelta != nil {
			payload.ReactionDelta = in.ReactionDelta
		}
		payloads = append(payloads, payload)
	}

	hasTrailing := in.MemberDelta != nil || in.PeerMapDelta != nil || len(chunks) == 0
	if hasTrailing {
		payloads = append(payloads, model.SyncDelta{
			Type:         model.PayloadSyncDelta,
			MemberDelta:  in.MemberDelta,
			PeerMapDelta: in.PeerMapDelta,
			IsFinal:      true,
		})
	} else if len(payloads) > 0 {
		payloads[len(payloads)-1].IsFinal = true
	}

	if len(payloads) == 0 {
		payloads = append(payloads, model.SyncDelta{Type: model.PayloadSyncDelta, IsFinal: true})
	}

	observeChunkSizes(payloads)

	return payloads, nil
}

// observeChunkSizes records each payload's serialized size for the
// peersync_delta_chunk_bytes histogram. Marshal failures here are not
// assembly errors - observability is best-effort, so they are skipped
// rather than surfaced to the caller.
func observeChunkSizes(payloads []model.SyncDelta) {
	for _, p := range payloads {
		b, err := json.Marshal(p)
		if err != nil {
			continue
		}
		observability.DeltaChunkBytes.Observe(float64(len(b)))
	}
}
