package chat

import (
	"strings"

	"conduit/internal/types"
)

// PlanView is the structured side channel of one assistant message: the
// execution plan, per-task retry state and routing detail, kept apart from
// the visible answer text.
type PlanView struct {
	SemanticRouting  map[string]any
	Plan             *types.ExecutionPlan
	Progress         int
	Status           string
	Message          string
	ExecutionDetails []string
	Tasks            []types.Task
	Metadata         map[string]any
	Sources          []types.Source
}

// Reducer applies one turn's execution events, in strict arrival order, to
// an assistant message and its plan view. It is the only writer of both
// while the message streams; once the message reaches a terminal status
// every further event is ignored.
type Reducer struct {
	message types.Message
	plan    PlanView

	// onSessionTitle is invoked when a Start event reports the title the
	// backend assigned to a fresh session.
	onSessionTitle func(title string)
}

func NewReducer(message types.Message, onSessionTitle func(string)) *Reducer {
	message.Role = types.RoleAssistant
	if message.Status == "" {
		message.Status = types.MessageStatusPending
	}
	return &Reducer{message: message, onSessionTitle: onSessionTitle}
}

func (r *Reducer) Message() types.Message {
	return r.message
}

func (r *Reducer) Plan() PlanView {
	return r.plan
}

// Apply advances the state machine by one event.
func (r *Reducer) Apply(event types.ExecutionEvent) {
	if r.message.Terminal() {
		return
	}
	switch event.Kind {
	case types.KindStart:
		r.applyStart(event)
	case types.KindPlan:
		r.applyPlan(event)
	case types.KindResponse:
		r.applyResponse(event)
	case types.KindEnd:
		r.applyEnd(event)
	case types.KindUnknown:
		r.applyUnknown(event)
	}
}

// Fail terminates the turn with a transport-level error.
func (r *Reducer) Fail(err error) {
	if r.message.Terminal() {
		return
	}
	r.message.IsStreaming = false
	r.message.Status = types.MessageStatusError
	if strings.TrimSpace(r.message.Content) == "" && err != nil {
		r.message.Content = "The response stream failed: " + err.Error()
	}
}

func (r *Reducer) applyStart(event types.ExecutionEvent) {
	r.message.IsStreaming = true
	r.message.Status = types.MessageStatusRunning
	if title := strings.TrimSpace(event.SessionTitle); title != "" && r.onSessionTitle != nil {
		r.onSessionTitle(title)
	}
}

func (r *Reducer) applyPlan(event types.ExecutionEvent) {
	r.message.IsStreaming = true
	r.message.Status = types.MessageStatusRunning
	r.mergePlan(event)
	if event.Progress != nil {
		// The server is expected to send non-decreasing progress, but the
		// latest value is trusted either way.
		r.plan.Progress = *event.Progress
		r.message.Progress = *event.Progress
	}
}

func (r *Reducer) applyResponse(event types.ExecutionEvent) {
	if event.Content != "" {
		if event.ContentType == types.ContentTypeExecutePlan {
			r.plan.ExecutionDetails = append(r.plan.ExecutionDetails, event.Content)
		} else {
			r.message.Content += event.Content
		}
	}
	if len(event.ExecutionDetails) > 0 {
		r.plan.ExecutionDetails = append(r.plan.ExecutionDetails, string(event.ExecutionDetails))
	}
	if event.IsComplete {
		// No more visible content will arrive, but the turn is not
		// terminal until End.
		r.message.IsStreaming = false
	}
}

func (r *Reducer) applyEnd(event types.ExecutionEvent) {
	r.mergePlan(event)
	r.message.Progress = 100
	r.plan.Progress = 100
	r.message.IsStreaming = false
	r.message.Status = terminalStatus(event.Status)
	// The fallback never overrides streamed content.
	if strings.TrimSpace(r.message.Content) == "" && event.FinalResponse != "" {
		r.message.Content = event.FinalResponse
	}
	if event.Metadata != nil {
		r.plan.Metadata = event.Metadata
	}
	if len(event.Sources) > 0 {
		r.plan.Sources = event.Sources
	}
}

func (r *Reducer) applyUnknown(event types.ExecutionEvent) {
	if event.Content == "" || planRelated(event.ContentType) {
		return
	}
	// Degraded path for unrecognized payload shapes: last write wins.
	r.message.Content = event.Content
}

func (r *Reducer) mergePlan(event types.ExecutionEvent) {
	if event.SemanticRouting != nil {
		r.plan.SemanticRouting = event.SemanticRouting
	}
	if event.ExecutionPlan != nil {
		r.plan.Plan = event.ExecutionPlan
	}
	if event.Status != "" {
		r.plan.Status = event.Status
	}
	if event.Message != "" {
		r.plan.Message = event.Message
	}
	if len(event.FormattedTasks) > 0 {
		r.plan.Tasks = mergeTasks(r.plan.Tasks, event.FormattedTasks)
	}
}

// mergeTasks adopts the incoming task list but never lets a task's retry
// history shrink or reorder: the history reflects exactly what the server
// appended over the turn.
func mergeTasks(existing, incoming []types.Task) []types.Task {
	byIndex := make(map[int]types.Task, len(existing))
	for _, task := range existing {
		byIndex[task.Index] = task
	}
	merged := make([]types.Task, len(incoming))
	for i, task := range incoming {
		if prev, ok := byIndex[task.Index]; ok && len(prev.RetryHistory) > len(task.RetryHistory) {
			task.RetryHistory = prev.RetryHistory
		}
		merged[i] = task
	}
	return merged
}

func terminalStatus(raw string) types.MessageStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "failed":
		return types.MessageStatusFailed
	case "error":
		return types.MessageStatusError
	default:
		return types.MessageStatusCompleted
	}
}

func planRelated(contentType string) bool {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType == types.ContentTypeExecutePlan {
		return true
	}
	return strings.Contains(contentType, "plan")
}
