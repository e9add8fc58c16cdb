package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"conduit/internal/logging"
	"conduit/internal/types"
)

const doneSentinel = "[DONE]"

var (
	// ErrNoStreamBody means the query endpoint answered without a body;
	// nothing can be streamed and the turn fails immediately.
	ErrNoStreamBody = errors.New("stream response has no body")
	// ErrStreamEmpty means the stream closed before a single frame arrived.
	ErrStreamEmpty = errors.New("stream closed without any frames")
)

// FrameDecoder reassembles discrete frames from arbitrary byte chunks of a
// live event stream. Frames are delimited by a blank line; a delimiter
// split across two chunks is handled naturally because splitting always
// happens on the concatenated buffer, never per chunk. No byte is ever
// dropped or emitted twice.
type FrameDecoder struct {
	buf []byte
}

// Write appends one chunk and returns the payload of every frame the chunk
// completed, in order. Frames without data lines (comments, keep-alives)
// produce nothing.
func (d *FrameDecoder) Write(chunk []byte) []string {
	if len(chunk) > 0 {
		d.buf = append(d.buf, bytes.ReplaceAll(chunk, []byte("\r"), nil)...)
	}
	var payloads []string
	for {
		idx := bytes.Index(d.buf, []byte("\n\n"))
		if idx < 0 {
			return payloads
		}
		frame := string(d.buf[:idx])
		d.buf = d.buf[idx+2:]
		if payload, ok := framePayload(frame); ok {
			payloads = append(payloads, payload)
		}
	}
}

// Flush returns the payload of a trailing unterminated frame at end of
// input, if any.
func (d *FrameDecoder) Flush() (string, bool) {
	frame := string(d.buf)
	d.buf = nil
	return framePayload(frame)
}

func framePayload(frame string) (string, bool) {
	var dataLines []string
	for _, line := range strings.Split(frame, "\n") {
		if strings.HasPrefix(line, "data:") {
			dataLines = append(dataLines, strings.TrimSpace(line[len("data:"):]))
		}
	}
	if len(dataLines) == 0 {
		return "", false
	}
	return strings.Join(dataLines, "\n"), true
}

// EventStream is one turn's lazy, non-restartable sequence of execution
// events. The channel closes when the stream ends for any reason; Err
// reports why when the ending was not clean.
type EventStream struct {
	events chan types.ExecutionEvent
	cancel func()

	mu  sync.Mutex
	err error
}

func (s *EventStream) Events() <-chan types.ExecutionEvent {
	return s.events
}

// Cancel tears down the underlying request. Safe to call more than once.
func (s *EventStream) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Err reports the terminal stream error, if any. Only meaningful after the
// events channel has closed.
func (s *EventStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *EventStream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// SetStreamLogger enables frame-level debug logging on query streams.
func (c *Client) SetStreamLogger(logger logging.Logger) {
	c.streamLog = logger
}

func (c *Client) streamLogf(format string, args ...any) {
	if c.streamLog == nil {
		return
	}
	c.streamLog.Debug(fmt.Sprintf(format, args...))
}

// QueryStream sends one user query and returns the stream of execution
// events for the turn. Events are delivered strictly in arrival order; the
// caller owns applying them sequentially.
func (c *Client) QueryStream(ctx context.Context, sessionID, query string) (*EventStream, error) {
	payload, err := json.Marshal(queryRequest{SessionID: sessionID, Query: query})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/chat/query", bytes.NewReader(payload))
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	c.streamLogf("stream open session=%s", sessionID)
	resp, err := c.streamHTTP.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		cancel()
		c.streamLogf("stream error session=%s status=%d", sessionID, resp.StatusCode)
		return nil, decodeAPIError(resp)
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		cancel()
		return nil, ErrNoStreamBody
	}

	stream := &EventStream{
		events: make(chan types.ExecutionEvent, 256),
		cancel: cancel,
	}

	go func() {
		defer close(stream.events)
		defer resp.Body.Close()

		start := time.Now()
		count := 0
		var decoder FrameDecoder
		chunk := make([]byte, 4096)

		emit := func(payload string) bool {
			if payload == doneSentinel {
				return false
			}
			event := types.ParseExecutionEvent(payload)
			select {
			case stream.events <- event:
			case <-ctx.Done():
				return false
			}
			count++
			if count == 1 {
				c.streamLogf("stream first session=%s kind=%s", sessionID, event.Kind)
			}
			return true
		}

	read:
		for {
			n, rerr := resp.Body.Read(chunk)
			if n > 0 {
				for _, payload := range decoder.Write(chunk[:n]) {
					if !emit(payload) {
						break read
					}
				}
			}
			if rerr != nil {
				if errors.Is(rerr, io.EOF) {
					if payload, ok := decoder.Flush(); ok {
						emit(payload)
					}
				} else if !errors.Is(rerr, context.Canceled) {
					stream.setErr(fmt.Errorf("stream read: %w", rerr))
				}
				break
			}
		}

		if count == 0 && stream.Err() == nil && ctx.Err() == nil {
			stream.setErr(ErrStreamEmpty)
		}
		c.streamLogf("stream close session=%s count=%d dur=%s", sessionID, count, time.Since(start))
	}()

	return stream, nil
}
