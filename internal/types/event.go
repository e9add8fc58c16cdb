package types

import (
	"encoding/json"
	"strings"
)

// EventKind identifies one kind of execution event on the query stream.
// The wire representation is either a numeric sse_type (1..4) or a string
// type alias; both normalize to the same kind here so nothing downstream
// ever inspects the wire shape again.
type EventKind int

const (
	KindUnknown EventKind = iota
	KindStart
	KindPlan
	KindResponse
	KindEnd
)

func (k EventKind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindPlan:
		return "plan_execution"
	case KindResponse:
		return "response"
	case KindEnd:
		return "end"
	default:
		return "unknown"
	}
}

// ContentTypeExecutePlan marks response content that belongs to the
// planning side channel rather than the visible answer text.
const ContentTypeExecutePlan = "executeplan"

// ExecutionEvent is a parsed, typed unit of execution progress. Fields are
// populated per kind; absent wire fields stay zero.
type ExecutionEvent struct {
	Kind EventKind

	SessionTitle  string
	Content       string
	ContentType   string
	Message       string
	Status        string
	Progress      *int
	IsComplete    bool
	FinalResponse string

	SemanticRouting  map[string]any
	ExecutionPlan    *ExecutionPlan
	ExecutionDetails json.RawMessage
	FormattedTasks   []Task
	Metadata         map[string]any
	Sources          []Source

	// Raw holds the verbatim payload when the frame was not well-formed
	// JSON. The stream degrades to raw-text display instead of dropping
	// the frame.
	Raw string
}

type wireEvent struct {
	SSEType          *int            `json:"sse_type"`
	Type             string          `json:"type"`
	SessionTitle     string          `json:"session_title"`
	Content          string          `json:"content"`
	ContentType      string          `json:"content_type"`
	Message          string          `json:"message"`
	Status           string          `json:"status"`
	Progress         *int            `json:"progress"`
	IsComplete       bool            `json:"is_complete"`
	FinalResponse    string          `json:"final_response"`
	SemanticRouting  map[string]any  `json:"semantic_routing"`
	ExecutionPlan    *ExecutionPlan  `json:"execution_plan"`
	ExecutionDetails json.RawMessage `json:"execution_details"`
	FormattedTasks   []Task          `json:"formatted_tasks"`
	Metadata         map[string]any  `json:"execution_metadata"`
	Sources          []Source        `json:"sources"`
}

// ParseExecutionEvent turns one frame payload into a typed event. Malformed
// payloads are never an error: they come back as KindUnknown with Raw (and
// Content) set to the verbatim payload.
func ParseExecutionEvent(payload string) ExecutionEvent {
	var wire wireEvent
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return ExecutionEvent{Kind: KindUnknown, Content: payload, Raw: payload}
	}

	event := ExecutionEvent{
		Kind:             kindOf(wire),
		SessionTitle:     wire.SessionTitle,
		Content:          wire.Content,
		ContentType:      wire.ContentType,
		Message:          wire.Message,
		Status:           wire.Status,
		Progress:         wire.Progress,
		IsComplete:       wire.IsComplete,
		FinalResponse:    wire.FinalResponse,
		SemanticRouting:  wire.SemanticRouting,
		ExecutionPlan:    wire.ExecutionPlan,
		ExecutionDetails: wire.ExecutionDetails,
		FormattedTasks:   wire.FormattedTasks,
		Metadata:         wire.Metadata,
		Sources:          wire.Sources,
	}
	if event.Kind == KindUnknown {
		event.Raw = payload
		if event.ContentType == "" {
			event.ContentType = wire.Type
		}
	}
	return event
}

func kindOf(wire wireEvent) EventKind {
	if wire.SSEType != nil {
		switch *wire.SSEType {
		case 1:
			return KindStart
		case 2:
			return KindPlan
		case 3:
			return KindResponse
		case 4:
			return KindEnd
		}
		return KindUnknown
	}
	switch strings.ToLower(strings.TrimSpace(wire.Type)) {
	case "start":
		return KindStart
	case "plan_execution", "plan":
		return KindPlan
	case "response":
		return KindResponse
	case "end":
		return KindEnd
	}
	return KindUnknown
}
