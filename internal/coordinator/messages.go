package coordinator

import (
	"errors"

	"github.com/user/finsight/pkg/insights"
)

// User-facing messages for terminal error states.
const (
	MsgSessionExpired = "Your session has expired. Please sign in again."
	MsgPolicyRefusal  = "This request can't be answered because it conflicts with our usage policy."
	MsgRetryLater     = "Something went wrong generating insights. Please try again later."
)

// messageTable maps error kinds to what the user sees. The first match wins.
var messageTable = []struct {
	kind    error
	message string
}{
	{insights.ErrUnauthorized, MsgSessionExpired},
	{insights.ErrForbidden, MsgPolicyRefusal},
	{insights.ErrOwnershipMismatch, MsgRetryLater},
	{insights.ErrRateLimited, MsgRetryLater},
	{insights.ErrServer, MsgRetryLater},
	{insights.ErrTransport, MsgRetryLater},
}

// UserMessage returns the text shown in the transcript for err.
// Backend-reported application errors are shown verbatim.
func UserMessage(err error) string {
	var appErr *insights.ApplicationError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	for _, m := range messageTable {
		if errors.Is(err, m.kind) {
			return m.message
		}
	}
	return MsgRetryLater
}
