package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"conduit/internal/types"
)

func decodeAll(t *testing.T, raw string, chunkSizes []int) []string {
	t.Helper()
	var decoder FrameDecoder
	var payloads []string
	rest := []byte(raw)
	i := 0
	for len(rest) > 0 {
		size := chunkSizes[i%len(chunkSizes)]
		i++
		if size > len(rest) {
			size = len(rest)
		}
		payloads = append(payloads, decoder.Write(rest[:size])...)
		rest = rest[size:]
	}
	if payload, ok := decoder.Flush(); ok {
		payloads = append(payloads, payload)
	}
	return payloads
}

func TestFrameDecoderChunkBoundaryInvariance(t *testing.T) {
	raw := "data: {\"sse_type\":1}\n\n" +
		"data: {\"sse_type\":3,\"content\":\"Hel\"}\n\n" +
		"data: {\"sse_type\":3,\"content\":\"lo\"}\n\n" +
		": keep-alive\n\n" +
		"data: {\"sse_type\":4,\"final_response\":\"done\"}\n\n"

	want := decodeAll(t, raw, []int{len(raw)})
	if len(want) != 4 {
		t.Fatalf("whole-buffer decode produced %d frames: %v", len(want), want)
	}

	chunkings := [][]int{
		{1},
		{2},
		{3, 1},
		{7},
		{5, 11, 2},
		{len(raw) - 1, 1},
	}
	for _, sizes := range chunkings {
		got := decodeAll(t, raw, sizes)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("chunking %v produced %v, want %v", sizes, got, want)
		}
	}
}

func TestFrameDecoderDelimiterSplitAcrossChunks(t *testing.T) {
	var decoder FrameDecoder
	if got := decoder.Write([]byte("data: one\n")); len(got) != 0 {
		t.Fatalf("premature frame: %v", got)
	}
	got := decoder.Write([]byte("\ndata: two\n\n"))
	if !reflect.DeepEqual(got, []string{"one", "two"}) {
		t.Fatalf("frames = %v", got)
	}
}

func TestFrameDecoderCRLF(t *testing.T) {
	var decoder FrameDecoder
	got := decoder.Write([]byte("data: one\r\n\r\ndata: two\r\n\r\n"))
	if !reflect.DeepEqual(got, []string{"one", "two"}) {
		t.Fatalf("frames = %v", got)
	}
}

func TestFrameDecoderMultiLineData(t *testing.T) {
	var decoder FrameDecoder
	got := decoder.Write([]byte("data: line1\ndata: line2\n\n"))
	if !reflect.DeepEqual(got, []string{"line1\nline2"}) {
		t.Fatalf("frames = %v", got)
	}
}

func TestFrameDecoderFlushEmitsRemainder(t *testing.T) {
	var decoder FrameDecoder
	_ = decoder.Write([]byte("data: tail"))
	payload, ok := decoder.Flush()
	if !ok || payload != "tail" {
		t.Fatalf("flush = %q, %v", payload, ok)
	}
	if _, ok := decoder.Flush(); ok {
		t.Fatalf("second flush should be empty")
	}
}

func streamServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/chat/query" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)
		for _, frame := range frames {
			_, _ = w.Write([]byte("data: " + frame + "\n\n"))
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
}

func TestQueryStreamParsesEvents(t *testing.T) {
	server := streamServer(t, []string{
		`{"sse_type":1,"session_title":"Trip planning"}`,
		`{"sse_type":3,"content":"Hello"}`,
		`{"sse_type":4,"status":"completed"}`,
		doneSentinel,
	})
	defer server.Close()

	c := New(server.URL, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	stream, err := c.QueryStream(ctx, "s-1", "hi")
	if err != nil {
		t.Fatalf("QueryStream: %v", err)
	}
	defer stream.Cancel()

	var kinds []types.EventKind
	for event := range stream.Events() {
		kinds = append(kinds, event.Kind)
	}
	want := []types.EventKind{types.KindStart, types.KindResponse, types.KindEnd}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	if stream.Err() != nil {
		t.Fatalf("stream err = %v", stream.Err())
	}
}

func TestQueryStreamMalformedFrameDegradesToRaw(t *testing.T) {
	server := streamServer(t, []string{
		`{"sse_type":3,"content":"ok"}`,
		`%% not json %%`,
		doneSentinel,
	})
	defer server.Close()

	c := New(server.URL, nil)
	stream, err := c.QueryStream(context.Background(), "s-1", "hi")
	if err != nil {
		t.Fatalf("QueryStream: %v", err)
	}
	defer stream.Cancel()

	var events []types.ExecutionEvent
	for event := range stream.Events() {
		events = append(events, event)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[1].Kind != types.KindUnknown || events[1].Raw != "%% not json %%" {
		t.Fatalf("malformed frame not preserved: %+v", events[1])
	}
}

func TestQueryStreamNoBodyError(t *testing.T) {
	// Writing nothing produces a Content-Length: 0 response, which the
	// client sees as http.NoBody.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
	}))
	defer server.Close()

	c := New(server.URL, nil)
	if _, err := c.QueryStream(context.Background(), "s-1", "hi"); !errors.Is(err, ErrNoStreamBody) {
		t.Fatalf("err = %v, want %v", err, ErrNoStreamBody)
	}
}

func TestQueryStreamEmptyStreamError(t *testing.T) {
	// A body exists (keep-alive comment) but no frame ever arrives.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(": keep-alive\n\n"))
	}))
	defer server.Close()

	c := New(server.URL, nil)
	stream, err := c.QueryStream(context.Background(), "s-1", "hi")
	if err != nil {
		t.Fatalf("QueryStream: %v", err)
	}
	for range stream.Events() {
	}
	if !errors.Is(stream.Err(), ErrStreamEmpty) || !strings.Contains(stream.Err().Error(), "without any frames") {
		t.Fatalf("err = %v, want empty-stream error", stream.Err())
	}
}

func TestQueryStreamErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"upstream down"}`))
	}))
	defer server.Close()

	c := New(server.URL, nil)
	if _, err := c.QueryStream(context.Background(), "s-1", "hi"); err == nil {
		t.Fatalf("expected error")
	} else if apiErr := AsAPIError(err); apiErr == nil || apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("err = %v", err)
	}
}

func TestQueryStreamUnterminatedFinalFrame(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		// The last frame lacks its closing blank line; stream closure must
		// still deliver it.
		_, _ = w.Write([]byte("data: {\"sse_type\":3,\"content\":\"partial\"}"))
	}))
	defer server.Close()

	c := New(server.URL, nil)
	stream, err := c.QueryStream(context.Background(), "s-1", "hi")
	if err != nil {
		t.Fatalf("QueryStream: %v", err)
	}
	var events []types.ExecutionEvent
	for event := range stream.Events() {
		events = append(events, event)
	}
	if len(events) != 1 || events[0].Content != "partial" {
		t.Fatalf("events = %+v", events)
	}
}
