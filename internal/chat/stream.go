package chat

import (
	"errors"

	"conduit/internal/types"
)

// TurnController drives one conversational turn: it pulls typed events off
// the stream and applies them to the reducer, a bounded batch per UI tick
// so a chatty backend cannot starve rendering. Events are applied strictly
// in arrival order; after Cancel no further state mutation happens.
type TurnController struct {
	events           <-chan types.ExecutionEvent
	cancel           func()
	errFn            func() error
	reducer          *Reducer
	messageID        string
	maxEventsPerTick int
}

func NewTurnController(maxEventsPerTick int) *TurnController {
	if maxEventsPerTick <= 0 {
		maxEventsPerTick = 64
	}
	return &TurnController{maxEventsPerTick: maxEventsPerTick}
}

// Begin attaches a new turn. Any previous turn is cancelled first so a
// stale stream can never overwrite a newer one's state.
func (c *TurnController) Begin(messageID string, reducer *Reducer, events <-chan types.ExecutionEvent, cancel func(), errFn func() error) {
	c.Cancel()
	c.messageID = messageID
	c.reducer = reducer
	c.events = events
	c.cancel = cancel
	c.errFn = errFn
}

// Active reports whether a turn is currently streaming.
func (c *TurnController) Active() bool {
	return c != nil && c.events != nil
}

// MessageID identifies the assistant message this turn targets. Callers
// discard the turn when it no longer matches the active message.
func (c *TurnController) MessageID() string {
	if c == nil {
		return ""
	}
	return c.messageID
}

func (c *TurnController) Reducer() *Reducer {
	if c == nil {
		return nil
	}
	return c.reducer
}

// Cancel abandons the turn: the stream is torn down and no event received
// afterwards is ever applied.
func (c *TurnController) Cancel() {
	if c == nil {
		return
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.events = nil
	c.cancel = nil
	c.errFn = nil
}

// ConsumeTick applies up to maxEventsPerTick pending events and reports
// whether state changed and whether the stream ended. A stream that ends
// with a transport error, or closes while the message is still
// non-terminal, fails the reducer terminally.
func (c *TurnController) ConsumeTick() (changed, closed bool) {
	if c == nil || c.events == nil {
		return false, false
	}
	for i := 0; i < c.maxEventsPerTick; i++ {
		select {
		case event, ok := <-c.events:
			if !ok {
				if c.errFn != nil {
					if err := c.errFn(); err != nil {
						c.reducer.Fail(err)
						changed = true
					}
				}
				// A stream may close without a final event; an indefinite
				// "working" message is worse than an honest failure.
				if msg := c.reducer.Message(); !msg.Terminal() {
					c.reducer.Fail(errors.New("stream ended before completion"))
					changed = true
				}
				if c.cancel != nil {
					c.cancel()
				}
				c.events = nil
				c.cancel = nil
				c.errFn = nil
				return changed, true
			}
			c.reducer.Apply(event)
			changed = true
		default:
			return changed, false
		}
	}
	return changed, false
}
