package coordinator

import (
	"context"

	"github.com/user/finsight/internal/types"
	"github.com/user/finsight/pkg/insights"
)

// MessageStream yields decoded stream messages until io.EOF.
type MessageStream interface {
	Next() (types.StreamMessage, error)
	Close() error
}

// Backend is the part of the insights API the coordinator drives.
type Backend interface {
	PrepareStream(ctx context.Context, req insights.PrepareRequest) error
	OpenStream(ctx context.Context, requestID types.RequestID) (MessageStream, error)
	Generate(ctx context.Context, req insights.GenerateRequest) (*insights.GenerateResult, error)
}

// Sessions exposes the adopted session to the coordinator.
type Sessions interface {
	Current() (types.SessionID, bool)
	Adopt(ctx context.Context, id types.SessionID) error
}

type clientBackend struct {
	client *insights.Client
}

// NewClientBackend adapts an insights client to Backend.
func NewClientBackend(client *insights.Client) Backend {
	return &clientBackend{client: client}
}

func (b *clientBackend) PrepareStream(ctx context.Context, req insights.PrepareRequest) error {
	return b.client.PrepareStream(ctx, req)
}

func (b *clientBackend) OpenStream(ctx context.Context, requestID types.RequestID) (MessageStream, error) {
	stream, err := b.client.OpenStream(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

func (b *clientBackend) Generate(ctx context.Context, req insights.GenerateRequest) (*insights.GenerateResult, error) {
	return b.client.Generate(ctx, req)
}

type noSessions struct{}

func (noSessions) Current() (types.SessionID, bool) {
	return "", false
}

func (noSessions) Adopt(context.Context, types.SessionID) error {
	return nil
}
