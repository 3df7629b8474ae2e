package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/finsight/internal/transcript"
	"github.com/user/finsight/internal/types"
	"github.com/user/finsight/pkg/insights"
)

// runState is the lifecycle of one request:
//
//	Idle -> Streaming -> {Complete, Errored, FellBack} -> Terminal
type runState int

const (
	stateIdle runState = iota
	stateStreaming
	stateComplete
	stateErrored
	stateFellBack
	stateTerminal
)

func (s runState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateStreaming:
		return "streaming"
	case stateComplete:
		return "complete"
	case stateErrored:
		return "errored"
	case stateFellBack:
		return "fell_back"
	case stateTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type eventKind int

const (
	evStreamOpened eventKind = iota
	evMessage
	evStreamEnded
	evTransportError
	evFallbackResult
	evFallbackError
)

func (k eventKind) String() string {
	switch k {
	case evStreamOpened:
		return "stream_opened"
	case evMessage:
		return "message"
	case evStreamEnded:
		return "stream_ended"
	case evTransportError:
		return "transport_error"
	case evFallbackResult:
		return "fallback_result"
	case evFallbackError:
		return "fallback_error"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

type event struct {
	kind      eventKind
	msg       types.StreamMessage
	err       error
	text      string
	userID    types.UserID
	sessionID types.SessionID
}

// run is the state of one submitted request.
type run struct {
	record  types.RequestRecord
	query   string
	session types.SessionID
	entry   types.EntryID

	state     runState
	outcome   runState
	fallbacks int

	// applied records whether the final mutation reached the transcript.
	applied bool

	c   *Coordinator
	log *slog.Logger
}

// isCurrent is the single staleness guard: the request must still be the
// latest one and the session it was opened against must still be adopted.
func (r *run) isCurrent() bool {
	if !r.c.filter.IsCurrent(r.record.ID) {
		return false
	}
	sid, _ := r.c.sessions.Current()
	return sid == r.session
}

// apply mutates the request's assistant entry if the request is still
// current. The check runs under the transcript lock, in the same critical
// section as the mutation.
func (r *run) apply(fn transcript.Mutation) bool {
	id := r.c.transcript.UpdateOrAppend(r.entry, r.isCurrent, fn)
	if id == "" {
		return false
	}
	r.entry = id
	return true
}

func (r *run) terminal() bool {
	return r.state == stateTerminal
}

// dispatch feeds ev through the state machine. It reports whether the
// stream should keep delivering messages.
func (r *run) dispatch(ctx context.Context, ev event) bool {
	switch r.state {
	case stateTerminal:
		return false

	case stateIdle:
		switch ev.kind {
		case evStreamOpened:
			r.state = stateStreaming
			return true
		case evTransportError:
			r.fail(ctx, ev.err)
			return false
		}

	case stateStreaming:
		switch ev.kind {
		case evMessage:
			return r.onMessage(ctx, ev.msg)
		case evStreamEnded:
			// A close without a completion frame is a dropped stream.
			r.fail(ctx, fmt.Errorf("%w: stream ended before completion", insights.ErrTransport))
			return false
		case evTransportError:
			r.fail(ctx, ev.err)
			return false
		}

	case stateFellBack:
		switch ev.kind {
		case evFallbackResult:
			if r.foreign(ev.userID) {
				r.finish(ctx, stateErrored, setText(MsgRetryLater), "")
				return false
			}
			r.finish(ctx, stateFellBack, setText(ev.text), ev.sessionID)
			return false
		case evFallbackError:
			r.log.Warn("fallback failed", "error", ev.err)
			r.finish(ctx, stateErrored, setText(UserMessage(ev.err)), "")
			return false
		}
	}

	r.log.Warn("unexpected event", "state", r.state.String(), "event", ev.kind.String())
	return false
}

func (r *run) onMessage(ctx context.Context, msg types.StreamMessage) bool {
	if r.foreign(msg.UserID) {
		r.finish(ctx, stateErrored, setText(MsgRetryLater), "")
		return false
	}

	if msg.Error != nil {
		r.finish(ctx, stateErrored, setText(*msg.Error), "")
		return false
	}

	if msg.Marker == types.MarkerUsingRealData {
		r.apply(func(e *types.ConversationEntry) {
			e.UsingRealData = true
		})
		return true
	}

	if msg.IsComplete {
		r.finish(ctx, stateComplete, func(e *types.ConversationEntry) {
			if msg.Chunk != nil {
				e.Content += *msg.Chunk
			}
			e.IsStreaming = false
		}, msg.SessionID)
		return false
	}

	if msg.Chunk != nil {
		r.apply(func(e *types.ConversationEntry) {
			e.Content += *msg.Chunk
		})
	}
	return true
}

// fail routes a stream failure. Transport failures fall back once;
// everything else ends the request with a mapped message.
func (r *run) fail(ctx context.Context, err error) {
	if insights.IsTransport(err) && r.fallbacks == 0 {
		r.log.Warn("stream failed, falling back", "error", err)
		r.state = stateFellBack
		return
	}
	r.log.Warn("request failed", "error", err)
	r.finish(ctx, stateErrored, setText(UserMessage(err)), "")
}

// finish applies the last mutation, records the outcome and, when the
// request was still current, adopts a session id issued with the result.
func (r *run) finish(ctx context.Context, outcome runState, fn transcript.Mutation, sessionID types.SessionID) {
	r.applied = r.apply(fn)
	r.outcome = outcome
	r.state = stateTerminal
	if !r.applied {
		r.log.Debug("dropped stale result", "outcome", outcome.String())
		return
	}
	if sessionID != "" && sessionID != r.session {
		if err := r.c.sessions.Adopt(ctx, sessionID); err != nil {
			r.log.Warn("adopt issued session", "session_id", string(sessionID), "error", err)
		}
	}
}

// foreign reports whether a response carries another user's id.
func (r *run) foreign(userID types.UserID) bool {
	if userID == "" || r.c.opts.UserID == "" || userID == r.c.opts.UserID {
		return false
	}
	r.log.Error("discarding response", "error", insights.ErrOwnershipMismatch, "response_user", string(userID))
	return true
}

func setText(text string) transcript.Mutation {
	return func(e *types.ConversationEntry) {
		e.Content = text
		e.IsStreaming = false
	}
}
