package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/finsight/internal/types"
	"github.com/user/finsight/pkg/insights"
)

// FallbackInvoker makes the single non-streaming attempt for a request
// whose stream failed in transport.
type FallbackInvoker struct {
	backend Backend
	opts    *Options
	log     *slog.Logger
}

// Run calls generate for r and feeds the outcome to its state machine.
func (f *FallbackInvoker) Run(ctx context.Context, r *run) {
	if r.fallbacks > 0 {
		f.log.Warn("fallback already attempted", "request_id", string(r.record.ID))
		return
	}
	r.fallbacks++

	res, err := f.backend.Generate(ctx, insights.GenerateRequest{
		Query:            r.query,
		RequestID:        string(r.record.ID),
		UserID:           string(f.opts.UserID),
		SessionID:        string(r.session),
		IntegrationMode:  f.opts.IntegrationMode,
		UseConnectedData: f.opts.UseConnectedData,
		UseDirectData:    f.opts.UseDirectData,
	})
	if err != nil {
		r.dispatch(ctx, event{kind: evFallbackError, err: err})
		return
	}
	if res.RequestID != "" && res.RequestID != string(r.record.ID) {
		err := fmt.Errorf("%w: generate answered request %s", insights.ErrTransport, res.RequestID)
		r.dispatch(ctx, event{kind: evFallbackError, err: err})
		return
	}

	r.dispatch(ctx, event{
		kind:      evFallbackResult,
		text:      NormalizeInsight(res.Insights),
		userID:    types.UserID(res.UserID),
		sessionID: types.SessionID(res.SessionID),
	})
}
