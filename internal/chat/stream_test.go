package chat

import (
	"errors"
	"testing"

	"conduit/internal/types"
)

func TestTurnControllerConsumeTickBounded(t *testing.T) {
	events := make(chan types.ExecutionEvent, 16)
	for i := 0; i < 10; i++ {
		events <- types.ExecutionEvent{Kind: types.KindResponse, Content: "x"}
	}

	c := NewTurnController(4)
	c.Begin("m-1", NewReducer(types.Message{ID: "m-1"}, nil), events, func() {}, nil)

	changed, closed := c.ConsumeTick()
	if !changed || closed {
		t.Fatalf("tick: changed=%v closed=%v", changed, closed)
	}
	if got := c.Reducer().Message().Content; got != "xxxx" {
		t.Fatalf("content after one tick = %q, want 4 chunks", got)
	}
}

func TestTurnControllerAppliesInOrderAndCloses(t *testing.T) {
	events := make(chan types.ExecutionEvent, 8)
	events <- types.ExecutionEvent{Kind: types.KindStart}
	events <- types.ExecutionEvent{Kind: types.KindResponse, Content: "a"}
	events <- types.ExecutionEvent{Kind: types.KindResponse, Content: "b"}
	events <- types.ExecutionEvent{Kind: types.KindEnd}
	close(events)

	c := NewTurnController(64)
	c.Begin("m-1", NewReducer(types.Message{ID: "m-1"}, nil), events, func() {}, func() error { return nil })

	_, closed := c.ConsumeTick()
	if !closed {
		t.Fatalf("stream should be closed")
	}
	msg := c.Reducer().Message()
	if msg.Content != "ab" || msg.Progress != 100 || msg.IsStreaming {
		t.Fatalf("final message = %+v", msg)
	}
	if c.Active() {
		t.Fatalf("controller still active after close")
	}
}

func TestTurnControllerStreamErrorFailsTurn(t *testing.T) {
	events := make(chan types.ExecutionEvent)
	close(events)

	c := NewTurnController(64)
	c.Begin("m-1", NewReducer(types.Message{ID: "m-1"}, nil), events, func() {}, func() error {
		return errors.New("connection reset")
	})

	changed, closed := c.ConsumeTick()
	if !changed || !closed {
		t.Fatalf("tick: changed=%v closed=%v", changed, closed)
	}
	if got := c.Reducer().Message().Status; got != types.MessageStatusError {
		t.Fatalf("status = %s", got)
	}
}

func TestTurnControllerCloseWithoutEndFailsMessage(t *testing.T) {
	events := make(chan types.ExecutionEvent, 8)
	events <- types.ExecutionEvent{Kind: types.KindStart}
	events <- types.ExecutionEvent{Kind: types.KindResponse, Content: "partial"}
	close(events)

	cancelled := false
	c := NewTurnController(64)
	c.Begin("m-1", NewReducer(types.Message{ID: "m-1"}, nil), events, func() { cancelled = true }, func() error { return nil })

	changed, closed := c.ConsumeTick()
	if !changed || !closed {
		t.Fatalf("tick: changed=%v closed=%v", changed, closed)
	}
	msg := c.Reducer().Message()
	if msg.Status != types.MessageStatusError || msg.IsStreaming {
		t.Fatalf("message left mid-stream: %+v", msg)
	}
	if msg.Content != "partial" {
		t.Fatalf("partial content lost: %q", msg.Content)
	}
	if !cancelled {
		t.Fatalf("turn context not released on close")
	}
}

func TestTurnControllerCancelStopsMutation(t *testing.T) {
	events := make(chan types.ExecutionEvent, 8)
	cancelled := false

	c := NewTurnController(64)
	reducer := NewReducer(types.Message{ID: "m-1"}, nil)
	c.Begin("m-1", reducer, events, func() { cancelled = true }, nil)
	c.Cancel()

	if !cancelled {
		t.Fatalf("cancel func not invoked")
	}
	// A late frame from the abandoned stream must not mutate anything.
	events <- types.ExecutionEvent{Kind: types.KindResponse, Content: "stale"}
	if changed, _ := c.ConsumeTick(); changed {
		t.Fatalf("cancelled turn applied an event")
	}
	if reducer.Message().Content != "" {
		t.Fatalf("state mutated after cancel: %q", reducer.Message().Content)
	}
}

func TestTurnControllerBeginCancelsPreviousTurn(t *testing.T) {
	first := make(chan types.ExecutionEvent, 1)
	firstCancelled := false

	c := NewTurnController(64)
	c.Begin("m-1", NewReducer(types.Message{ID: "m-1"}, nil), first, func() { firstCancelled = true }, nil)
	c.Begin("m-2", NewReducer(types.Message{ID: "m-2"}, nil), make(chan types.ExecutionEvent), func() {}, nil)

	if !firstCancelled {
		t.Fatalf("starting a new turn must cancel the previous one")
	}
	if c.MessageID() != "m-2" {
		t.Fatalf("target message = %q", c.MessageID())
	}
}
