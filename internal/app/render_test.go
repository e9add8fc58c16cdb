package app

import (
	"reflect"
	"strings"
	"testing"

	"conduit/internal/types"
)

func TestWrapTextWordBoundaries(t *testing.T) {
	got := wrapText("one two three four", 9)
	want := []string{"one two", "three", "four"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("wrapped = %q, want %q", got, want)
	}
}

func TestWrapTextHardBreaksLongWord(t *testing.T) {
	got := wrapText("abcdefghijklmnop", 8)
	if len(got) != 2 || got[0] != "abcdefgh" || got[1] != "ijklmnop" {
		t.Fatalf("wrapped = %q", got)
	}
}

func TestWrapTextPreservesBlankLines(t *testing.T) {
	got := wrapText("first\n\nsecond", 20)
	want := []string{"first", "", "second"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("wrapped = %q, want %q", got, want)
	}
}

func TestRenderTaskLineRecovered(t *testing.T) {
	task := types.Task{
		Index:  1,
		Name:   "fetch docs",
		Status: types.TaskStatusCompleted,
		RetryHistory: []types.RetryAttempt{
			{Attempt: 1, Status: "failed"},
			{Attempt: 2, Status: "failed"},
		},
	}
	line := renderTaskLine(task, 80)
	if !strings.Contains(line, "✓") || !strings.Contains(line, "recovered after 2 retries") {
		t.Fatalf("line = %q", line)
	}
}

func TestRenderTaskLineFailedShowsError(t *testing.T) {
	task := types.Task{Name: "deploy", Status: types.TaskStatusFailed, Error: "quota exceeded"}
	line := renderTaskLine(task, 80)
	if !strings.Contains(line, "✗") || !strings.Contains(line, "quota exceeded") {
		t.Fatalf("line = %q", line)
	}
}

func TestRenderSidebarMarksActive(t *testing.T) {
	first := &types.ChatSession{ID: "s-1"}
	first.SetTitle("Budget review")
	second := &types.ChatSession{ID: "s-2"}

	sidebar := renderSidebar([]*types.ChatSession{first, second}, "s-2", 24, 10)
	lines := strings.Split(sidebar, "\n")
	if len(lines) != 10 {
		t.Fatalf("sidebar height = %d", len(lines))
	}
	if !strings.Contains(lines[2], "▸") || strings.Contains(lines[1], "▸") {
		t.Fatalf("active marker misplaced:\n%s", sidebar)
	}
}

func TestRenderProgressBarClamps(t *testing.T) {
	over := renderProgressBar(150, 60)
	if !strings.Contains(over, "100%") {
		t.Fatalf("overflow = %q", over)
	}
	under := renderProgressBar(-5, 60)
	if !strings.Contains(under, "  0%") {
		t.Fatalf("underflow = %q", under)
	}
}

func TestRenderTranscriptErrorMessage(t *testing.T) {
	lines := renderTranscript([]*types.Message{
		{Role: types.RoleUser, Content: "hi", Status: types.MessageStatusCompleted},
		{Role: types.RoleAssistant, Content: "request failed", Status: types.MessageStatusError},
	}, 40)
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "you") || !strings.Contains(joined, "request failed") {
		t.Fatalf("transcript:\n%s", joined)
	}
}
