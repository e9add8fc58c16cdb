package types

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusRetrying   TaskStatus = "retrying"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
)

// RetryAttempt is one entry in a task's retry history. The backend appends
// these as a task is retried; clients never reorder or deduplicate them.
type RetryAttempt struct {
	Attempt int        `json:"attempt"`
	Tool    string     `json:"tool,omitempty"`
	Status  TaskStatus `json:"status"`
	Error   string     `json:"error,omitempty"`
}

type Task struct {
	Index        int            `json:"index"`
	Name         string         `json:"name"`
	Agent        string         `json:"agent,omitempty"`
	Status       TaskStatus     `json:"status"`
	Error        string         `json:"error,omitempty"`
	RetryCount   int            `json:"retry_count,omitempty"`
	RetryHistory []RetryAttempt `json:"retry_history,omitempty"`
}

type Step struct {
	ID     string     `json:"id"`
	Status StepStatus `json:"status"`
	Tasks  []Task     `json:"tasks,omitempty"`
}

type ExecutionPlan struct {
	TotalSteps  int    `json:"total_steps"`
	CurrentStep int    `json:"current_step"`
	Steps       []Step `json:"steps,omitempty"`
	Status      string `json:"status,omitempty"`
}

type Source struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
}

// TaskSeverity classifies a task status for display.
type TaskSeverity int

const (
	SeverityNeutral TaskSeverity = iota
	SeverityActive
	SeverityWarn
	SeverityOK
	SeverityError
)

// Severity maps a task's status to a display classification. A task that
// needed retries but ultimately completed is reported as recovered so the
// UI can distinguish it from a clean pass.
func (t Task) Severity() (severity TaskSeverity, recovered bool) {
	switch t.Status {
	case TaskStatusCompleted:
		return SeverityOK, t.Retries() > 0
	case TaskStatusFailed:
		return SeverityError, false
	case TaskStatusInProgress:
		return SeverityActive, false
	case TaskStatusRetrying:
		return SeverityWarn, false
	default:
		return SeverityNeutral, false
	}
}

// Retries reports how many retry attempts the task has accumulated. The
// explicit count wins when the backend sends one; otherwise it is derived
// from the history length.
func (t Task) Retries() int {
	if t.RetryCount > 0 {
		return t.RetryCount
	}
	return len(t.RetryHistory)
}
