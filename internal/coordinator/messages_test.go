package coordinator

import (
	"errors"
	"fmt"
	"testing"

	"github.com/user/finsight/pkg/insights"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unauthorized", &insights.APIError{StatusCode: 401, Err: insights.ErrUnauthorized}, MsgSessionExpired},
		{"forbidden", &insights.APIError{StatusCode: 403, Err: insights.ErrForbidden}, MsgPolicyRefusal},
		{"rate limited", &insights.APIError{StatusCode: 429, Err: insights.ErrRateLimited}, MsgRetryLater},
		{"server", &insights.APIError{StatusCode: 502, Err: insights.ErrServer}, MsgRetryLater},
		{"transport", fmt.Errorf("%w: EOF", insights.ErrTransport), MsgRetryLater},
		{"ownership", insights.ErrOwnershipMismatch, MsgRetryLater},
		{"application", &insights.ApplicationError{Message: "Quota exceeded."}, "Quota exceeded."},
		{"application without message", &insights.ApplicationError{}, MsgRetryLater},
		{"unknown", errors.New("boom"), MsgRetryLater},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
