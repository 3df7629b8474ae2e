// Package coordinator runs insight requests against the backend and
// applies their results to the transcript. Only the latest request may
// change shared state.
package coordinator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/user/finsight/internal/transcript"
	"github.com/user/finsight/internal/types"
)

// QueryLimiter shortens a query before it is sent to the backend.
type QueryLimiter interface {
	Trim(query string) string
}

// Options configures a Coordinator.
type Options struct {
	UserID           types.UserID
	UseConnectedData bool
	UseDirectData    bool
	IntegrationMode  string
	Limiter          QueryLimiter
	Now              func() time.Time
	Logger           *slog.Logger
}

// Outcome is how a request ended.
type Outcome string

const (
	OutcomeNone     Outcome = ""
	OutcomeStreamed Outcome = "streamed"
	OutcomeFellBack Outcome = "fell_back"
	OutcomeErrored  Outcome = "errored"
)

// Result describes a finished Submit call.
type Result struct {
	RequestID types.RequestID
	Entry     types.EntryID
	Outcome   Outcome
	// Stale is set when a newer request or a session rotation superseded
	// this one before it finished, so none of its late output was applied.
	Stale bool
}

// Coordinator owns the request lifecycle.
type Coordinator struct {
	backend    Backend
	sessions   Sessions
	transcript *transcript.Transcript
	filter     *Filter
	stream     *StreamConsumer
	fallback   *FallbackInvoker
	opts       Options
	log        *slog.Logger

	submitMu sync.Mutex
}

// New creates a Coordinator. A nil sessions source means requests never
// carry a session.
func New(backend Backend, sessions Sessions, tr *transcript.Transcript, opts Options) *Coordinator {
	if sessions == nil {
		sessions = noSessions{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	c := &Coordinator{
		backend:    backend,
		sessions:   sessions,
		transcript: tr,
		filter:     NewFilter(),
		opts:       opts,
		log:        opts.Logger.With("module", "coordinator"),
	}
	c.stream = &StreamConsumer{backend: backend, opts: &c.opts, log: c.log}
	c.fallback = &FallbackInvoker{backend: backend, opts: &c.opts, log: c.log}
	return c
}

// Transcript returns the transcript the coordinator writes to.
func (c *Coordinator) Transcript() *transcript.Transcript {
	return c.transcript
}

// Filter returns the latest-request filter.
func (c *Coordinator) Filter() *Filter {
	return c.filter
}

// Submit sends a free-text query. Blank input is a no-op and returns a
// zero Result. Submit blocks until the request reaches a terminal state.
func (c *Coordinator) Submit(ctx context.Context, text string) Result {
	return c.submit(ctx, text, types.ScopeQuery)
}

// SubmitSuggested sends one of the suggested prompts.
func (c *Coordinator) SubmitSuggested(ctx context.Context, prompt string) Result {
	return c.submit(ctx, prompt, types.ScopeSuggested)
}

// ResetTranscript clears the transcript back to the greeting without
// rotating the session.
func (c *Coordinator) ResetTranscript() {
	c.transcript.Reset()
}

func (c *Coordinator) submit(ctx context.Context, text string, scope types.RequestScope) Result {
	display := strings.TrimSpace(text)
	if display == "" {
		return Result{}
	}
	query := display
	if c.opts.Limiter != nil {
		query = c.opts.Limiter.Trim(query)
	}

	r := c.begin(display, query, scope)
	log := r.log
	log.Info("request submitted", "scope", string(scope))

	c.stream.Open(ctx, r)
	if r.state == stateFellBack {
		c.fallback.Run(ctx, r)
	}
	if !r.terminal() {
		// Every path above ends in a terminal event; this only catches a
		// stream that returned without one.
		log.Error("request left without terminal state", "state", r.state.String())
		r.finish(ctx, stateErrored, setText(MsgRetryLater), "")
	}

	res := Result{
		RequestID: r.record.ID,
		Entry:     r.entry,
		Stale:     !r.applied,
	}
	switch r.outcome {
	case stateComplete:
		res.Outcome = OutcomeStreamed
	case stateFellBack:
		res.Outcome = OutcomeFellBack
	default:
		res.Outcome = OutcomeErrored
	}
	log.Info("request finished", "outcome", string(res.Outcome), "stale", res.Stale)
	return res
}

// begin records the request, appends its entries and makes it current as
// one step so concurrent submits cannot interleave.
func (c *Coordinator) begin(display, query string, scope types.RequestScope) *run {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	record := types.NewRequestRecord(scope, c.opts.Now())
	session, _ := c.sessions.Current()

	c.transcript.AppendUser(display)
	entry := c.transcript.AppendAssistant("", true)
	c.filter.MarkCurrent(record.ID)

	return &run{
		record:  record,
		query:   query,
		session: session,
		entry:   entry,
		state:   stateIdle,
		c:       c,
		log:     c.log.With("request_id", string(record.ID)),
	}
}
