package protocol

import (
	"context"

	"github.com/sony/gobreaker"

	"github.com/deltasync/peersync/internal/model"
	"github.com/deltasync/peersync/internal/observability"
	"github.com/deltasync/peersync/internal/storage"
)

// fail records a storage failure metric and wraps err as StorageFailureError.
// A nil err passes through untouched.
func fail(op string, err error) error {
	if err == nil {
		return nil
	}
	observability.StorageFailures.WithLabelValues(op).Inc()
	return &StorageFailureError{Op: op, Err: err}
}

// guardedStorage wraps a storage.Storage with a gobreaker circuit breaker
// per storage kind (messages, members), so a storage layer that is already
// down fails fast instead of being hammered on every sync round. This never
// retries: a tripped breaker surfaces StorageFailure immediately, per
// spec.md §7's "no retry is performed inside the core".
type guardedStorage struct {
	inner    storage.Storage
	messages *gobreaker.CircuitBreaker
	members  *gobreaker.CircuitBreaker
}

func newGuardedStorage(inner storage.Storage) *guardedStorage {
	return &guardedStorage{
		inner:    inner,
		messages: gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "storage.messages"}),
		members:  gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "storage.members"}),
	}
}

func (g *guardedStorage) GetMessages(ctx context.Context, params storage.GetMessagesParams) (storage.GetMessagesResult, error) {
	res, err := g.messages.Execute(func() (interface{}, error) {
		return g.inner.GetMessages(ctx, params)
	})
	if err != nil {
		return storage.GetMessagesResult{}, fail("getMessages", err)
	}
	return res.(storage.GetMessagesResult), nil
}

func (g *guardedStorage) GetMessage(ctx context.Context, space model.SpaceID, channel model.ChannelID, id model.MessageID) (*model.Message, error) {
	res, err := g.messages.Execute(func() (interface{}, error) {
		return g.inner.GetMessage(ctx, space, channel, id)
	})
	if err != nil {
		return nil, fail("getMessage", err)
	}
	if res == nil {
		return nil, nil
	}
	return res.(*model.Message), nil
}

func (g *guardedStorage) SaveMessage(ctx context.Context, m model.Message) error {
	_, err := g.messages.Execute(func() (interface{}, error) {
		return nil, g.inner.SaveMessage(ctx, m)
	})
	if err != nil {
		return fail("saveMessage", err)
	}
	return nil
}

func (g *guardedStorage) DeleteMessage(ctx context.Context, space model.SpaceID, channel model.ChannelID, id model.MessageID) error {
	_, err := g.messages.Execute(func() (interface{}, error) {
		return nil, g.inner.DeleteMessage(ctx, space, channel, id)
	})
	if err != nil {
		return fail("deleteMessage", err)
	}
	return nil
}

func (g *guardedStorage) GetSpaceMembers(ctx context.Context, space model.SpaceID) ([]model.Member, error) {
	res, err := g.members.Execute(func() (interface{}, error) {
		return g.inner.GetSpaceMembers(ctx, space)
	})
	if err != nil {
		return nil, fail("getSpaceMembers", err)
	}
	return res.([]model.Member), nil
}

func (g *guardedStorage) SaveSpaceMember(ctx context.Context, space model.SpaceID, m model.Member) error {
	_, err := g.members.Execute(func() (interface{}, error) {
		return nil, g.inner.SaveSpaceMember(ctx, space, m)
	})
	if err != nil {
		return fail("saveSpaceMember", err)
	}
	return nil
}

func (g *guardedStorage) RemoveSpaceMember(ctx context.Context, space model.SpaceID, address model.Address) error {
	_, err := g.members.Execute(func() (interface{}, error) {
		return nil, g.inner.RemoveSpaceMember(ctx, space, address)
	})
	if err != nil {
		return fail("removeSpaceMember", err)
	}
	return nil
}

var _ storage.Storage = (*guardedStorage)(nil)
