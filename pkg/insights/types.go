package insights

import "time"

// Config holds connection settings for the insights backend.
type Config struct {
	BaseURL string
	Token   string
	// Timeout bounds every unary call.
	Timeout time.Duration
	// StreamTimeout bounds a whole stream from open to last frame.
	StreamTimeout time.Duration
}

// envelope is the common {success, data, error, message} response wrapper.
type envelope[T any] struct {
	Success *bool  `json:"success,omitempty"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// PrepareRequest registers a pending streaming job.
type PrepareRequest struct {
	Query            string `json:"query"`
	RequestID        string `json:"requestId"`
	UseConnectedData bool   `json:"useConnectedData"`
	UserID           string `json:"userId"`
	SessionID        string `json:"sessionId,omitempty"`
}

// GenerateRequest is the body of the non-streaming insight call.
type GenerateRequest struct {
	Query            string `json:"query"`
	RequestID        string `json:"requestId"`
	UserID           string `json:"userId"`
	SessionID        string `json:"sessionId,omitempty"`
	IntegrationMode  string `json:"integrationMode,omitempty"`
	UseConnectedData bool   `json:"useConnectedData"`
	UseDirectData    bool   `json:"useDirectData"`
}

// GenerateResult is the data block of a generate response. Insights is
// left undecoded because the backend sends several legacy shapes.
type GenerateResult struct {
	Insights  any    `json:"insights"`
	Timestamp string `json:"timestamp,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	UserID    string `json:"userId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// frame is one line of the insight stream as sent on the wire. Error is
// either the message text or a boolean flag paired with Message.
type frame struct {
	Chunk      *string `json:"chunk,omitempty"`
	IsComplete bool    `json:"isComplete,omitempty"`
	Error      any     `json:"error,omitempty"`
	Message    string  `json:"message,omitempty"`
	UserID     string  `json:"userId,omitempty"`
	SessionID  string  `json:"sessionId,omitempty"`
}

type sessionStatusData struct {
	HasSession bool `json:"hasSession"`
}

type dropSessionRequest struct {
	SessionID string `json:"sessionId,omitempty"`
}

type dropSessionData struct {
	SessionID string `json:"sessionId"`
}

type clientStatusData struct {
	Status string `json:"status"`
}

// UserClient is the client record linked to the authenticated user.
type UserClient struct {
	ClientID string `json:"clientId"`
	Status   string `json:"status"`
}
