package coordinator

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/user/finsight/pkg/insights"
)

// StreamConsumer opens the incremental channel for a request and feeds
// every frame to the request's state machine.
type StreamConsumer struct {
	backend Backend
	opts    *Options
	log     *slog.Logger
}

// Open prepares and consumes the stream for r. It returns once r has left
// the streaming states or the stream ended. The stream is always closed.
func (s *StreamConsumer) Open(ctx context.Context, r *run) {
	req := insights.PrepareRequest{
		Query:            r.query,
		RequestID:        string(r.record.ID),
		UseConnectedData: s.opts.UseConnectedData,
		UserID:           string(s.opts.UserID),
		SessionID:        string(r.session),
	}
	if err := s.backend.PrepareStream(ctx, req); err != nil {
		r.dispatch(ctx, event{kind: evTransportError, err: err})
		return
	}

	stream, err := s.backend.OpenStream(ctx, r.record.ID)
	if err != nil {
		r.dispatch(ctx, event{kind: evTransportError, err: err})
		return
	}
	defer stream.Close()

	if !r.dispatch(ctx, event{kind: evStreamOpened}) {
		return
	}
	s.log.Debug("stream opened", "request_id", string(r.record.ID))

	for {
		msg, err := stream.Next()
		if errors.Is(err, io.EOF) {
			r.dispatch(ctx, event{kind: evStreamEnded})
			return
		}
		if err != nil {
			r.dispatch(ctx, event{kind: evTransportError, err: err})
			return
		}
		if !r.dispatch(ctx, event{kind: evMessage, msg: msg}) {
			return
		}
	}
}
