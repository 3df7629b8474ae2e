package insights

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/user/finsight/internal/types"
)

// maxFrameSize bounds a single newline-delimited frame.
const maxFrameSize = 1024 * 1024 // 1MB

// Stream decodes newline-delimited JSON frames from an open insight stream.
// Lines prefixed with "data:" are accepted so SSE-framed streams decode
// the same way.
type Stream struct {
	requestID types.RequestID
	body      io.ReadCloser
	scanner   *bufio.Scanner

	closeOnce sync.Once
}

func newStream(requestID types.RequestID, body io.ReadCloser) *Stream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxFrameSize)
	return &Stream{
		requestID: requestID,
		body:      body,
		scanner:   scanner,
	}
}

// Next returns the next message. It returns io.EOF when the server closes
// the stream cleanly and an error wrapping ErrTransport for read or decode
// failures.
func (s *Stream) Next() (types.StreamMessage, error) {
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())

		// Skip blank lines and SSE comments
		if len(line) == 0 || line[0] == ':' {
			continue
		}
		if bytes.HasPrefix(line, []byte("data:")) {
			line = bytes.TrimSpace(line[len("data:"):])
			if len(line) == 0 {
				continue
			}
		}
		// SSE event/id/retry fields carry nothing we use
		if bytes.HasPrefix(line, []byte("event:")) || bytes.HasPrefix(line, []byte("id:")) || bytes.HasPrefix(line, []byte("retry:")) {
			continue
		}

		return DecodeFrame(s.requestID, line)
	}
	if err := s.scanner.Err(); err != nil {
		return types.StreamMessage{}, fmt.Errorf("read stream: %w: %w", ErrTransport, err)
	}
	return types.StreamMessage{}, io.EOF
}

// Close releases the underlying connection. It is safe to call more than once.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.body.Close()
	})
	return err
}

// DecodeFrame turns one wire frame into a StreamMessage.
func DecodeFrame(requestID types.RequestID, line []byte) (types.StreamMessage, error) {
	var f frame
	if err := unmarshal(line, &f); err != nil {
		return types.StreamMessage{}, fmt.Errorf("decode frame: %w: %w", ErrTransport, err)
	}

	msg := types.StreamMessage{
		RequestID:  requestID,
		IsComplete: f.IsComplete,
		UserID:     types.UserID(f.UserID),
		SessionID:  types.SessionID(f.SessionID),
	}

	if text, ok := frameError(f); ok {
		msg.Error = &text
		return msg, nil
	}

	if f.Chunk != nil && *f.Chunk == UsingRealDataSentinel {
		msg.Marker = types.MarkerUsingRealData
		return msg, nil
	}

	msg.Chunk = f.Chunk
	return msg, nil
}

// frameError reports the application error carried by f, if any.
func frameError(f frame) (string, bool) {
	switch v := f.Error.(type) {
	case string:
		if v == "" {
			return "", false
		}
		return v, true
	case bool:
		if !v {
			return "", false
		}
		if f.Message != "" {
			return f.Message, true
		}
		return "The insight service reported an error.", true
	case nil:
		return "", false
	default:
		if f.Message != "" {
			return f.Message, true
		}
		s, err := MarshalString(v)
		if err != nil {
			return "The insight service reported an error.", true
		}
		return s, true
	}
}
