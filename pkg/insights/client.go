package insights

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/user/finsight/internal/types"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultStreamTimeout = 2 * time.Minute
)

// SessionSource supplies the session id attached to outgoing calls.
type SessionSource interface {
	Current() (types.SessionID, bool)
}

// Client talks to the insights backend over HTTP.
type Client struct {
	config       *Config
	httpClient   *http.Client
	streamClient *http.Client
	log          *slog.Logger

	mu      sync.RWMutex
	session SessionSource
}

// New creates a client with the given configuration. Zero timeouts use
// the defaults (30s unary, 2m stream).
func New(config *Config, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	streamTimeout := config.StreamTimeout
	if streamTimeout <= 0 {
		streamTimeout = defaultStreamTimeout
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		streamClient: &http.Client{
			Timeout: streamTimeout,
		},
		log: log.With("module", "insights"),
	}
}

// SetSessionSource wires the provider of the X-Session-ID header.
func (c *Client) SetSessionSource(src SessionSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = src
}

func (c *Client) sessionHeader() string {
	c.mu.RLock()
	src := c.session
	c.mu.RUnlock()
	if src == nil {
		return ""
	}
	id, ok := src.Current()
	if !ok {
		return ""
	}
	return string(id)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	if sid := c.sessionHeader(); sid != "" {
		req.Header.Set(HeaderSessionID, sid)
	}
	return req, nil
}

// do sends a unary request and decodes the envelope's data into out.
// out may be nil when the caller only cares about the status code.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, respBody)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}

	if err := unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing response: %w: %w", ErrTransport, err)
	}
	return nil
}

// PrepareStream registers a pending streaming job for req.RequestID.
func (c *Client) PrepareStream(ctx context.Context, req PrepareRequest) error {
	httpReq, err := c.newRequest(ctx, http.MethodPost, endpointStreamPrepare, req)
	if err != nil {
		return err
	}
	if err := c.do(httpReq, nil); err != nil {
		return fmt.Errorf("prepare stream: %w", err)
	}
	return nil
}

// OpenStream opens the push stream for a prepared request. The caller must
// Close the returned Stream.
func (c *Client) OpenStream(ctx context.Context, requestID types.RequestID) (*Stream, error) {
	path := fmt.Sprintf(endpointStream, requestID)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w: %w", ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("open stream: %w", newAPIError(resp.StatusCode, body))
	}

	c.log.Debug("stream opened", "request_id", string(requestID))
	return newStream(requestID, resp.Body), nil
}

// Generate performs the non-streaming insight call.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	httpReq, err := c.newRequest(ctx, http.MethodPost, endpointGenerate, req)
	if err != nil {
		return nil, err
	}

	var env envelope[GenerateResult]
	if err := c.do(httpReq, &env); err != nil {
		return nil, fmt.Errorf("generate insights: %w", err)
	}
	if env.Success != nil && !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		return nil, fmt.Errorf("generate insights: %w", &ApplicationError{Message: msg})
	}
	return &env.Data, nil
}

// SessionStatus reports whether the backend still holds a conversation
// session for the caller.
func (c *Client) SessionStatus(ctx context.Context) (bool, error) {
	req, err := c.newRequest(ctx, http.MethodGet, endpointSessionStatus, nil)
	if err != nil {
		return false, err
	}

	var env envelope[sessionStatusData]
	if err := c.do(req, &env); err != nil {
		return false, fmt.Errorf("session status: %w", err)
	}
	return env.Data.HasSession, nil
}

// DropSession discards the backend conversation context for sessionID and
// returns the replacement session id.
func (c *Client) DropSession(ctx context.Context, sessionID types.SessionID) (types.SessionID, error) {
	req, err := c.newRequest(ctx, http.MethodDelete, endpointSession, dropSessionRequest{SessionID: string(sessionID)})
	if err != nil {
		return "", err
	}

	var env envelope[dropSessionData]
	if err := c.do(req, &env); err != nil {
		return "", fmt.Errorf("drop session: %w", err)
	}
	if env.Data.SessionID == "" {
		return "", fmt.Errorf("drop session: %w", ErrNoSession)
	}
	return types.SessionID(env.Data.SessionID), nil
}

// ClientStatus returns the raw access status of clientID.
func (c *Client) ClientStatus(ctx context.Context, clientID types.ClientID) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf(endpointClientStatus, clientID), nil)
	if err != nil {
		return "", err
	}

	var env envelope[clientStatusData]
	if err := c.do(req, &env); err != nil {
		return "", fmt.Errorf("client status: %w", err)
	}
	return env.Data.Status, nil
}

// UserClient returns the client record linked to the authenticated user.
func (c *Client) UserClient(ctx context.Context) (*UserClient, error) {
	req, err := c.newRequest(ctx, http.MethodGet, endpointUserClient, nil)
	if err != nil {
		return nil, err
	}

	var env envelope[UserClient]
	if err := c.do(req, &env); err != nil {
		return nil, fmt.Errorf("user client: %w", err)
	}
	return &env.Data, nil
}
