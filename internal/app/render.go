package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"conduit/internal/chat"
	"conduit/internal/types"
)

var (
	userLabelStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	dividerStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	helpStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	activeSessionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	planHeaderStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)

	taskOKStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	taskErrStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	taskWarnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	taskActiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

func renderSidebar(sessions []*types.ChatSession, activeID string, width, height int) string {
	lines := make([]string, 0, height)
	lines = append(lines, dimStyle.Render(padLine("sessions", width)))
	for _, session := range sessions {
		if len(lines) >= height {
			break
		}
		title := runewidth.Truncate(session.DisplayTitle(), width-2, "…")
		if session.ID == activeID {
			lines = append(lines, activeSessionStyle.Render(padLine("▸ "+title, width)))
		} else {
			lines = append(lines, padLine("  "+title, width))
		}
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func renderTranscript(messages []*types.Message, width int) []string {
	var lines []string
	for _, message := range messages {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, roleHeader(message))
		body := message.Content
		if body == "" && message.IsStreaming {
			body = dimStyle.Render("…")
		}
		if message.Status == types.MessageStatusError {
			lines = append(lines, wrapStyled(body, width, errorStyle)...)
		} else {
			lines = append(lines, wrapText(body, width)...)
		}
		if message.IsStreaming && message.Progress > 0 {
			lines = append(lines, dimStyle.Render(fmt.Sprintf("  %d%%", message.Progress)))
		}
	}
	return lines
}

func roleHeader(message *types.Message) string {
	switch message.Role {
	case types.RoleUser:
		return userLabelStyle.Render("you")
	default:
		label := "agents"
		if message.IsStreaming {
			label += " (working)"
		}
		return assistantLabelStyle.Render(label)
	}
}

func renderPlan(plan chat.PlanView, width int) []string {
	if len(plan.Tasks) == 0 && plan.Plan == nil && len(plan.ExecutionDetails) == 0 {
		return nil
	}
	lines := []string{"", planHeaderStyle.Render("── plan ──")}

	if plan.Message != "" {
		lines = append(lines, wrapStyled(plan.Message, width, dimStyle)...)
	}
	if plan.Plan != nil && plan.Plan.TotalSteps > 0 {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("step %d of %d (%s)",
			plan.Plan.CurrentStep, plan.Plan.TotalSteps, plan.Plan.Status)))
	}
	for _, task := range plan.Tasks {
		lines = append(lines, renderTaskLine(task, width))
	}
	if plan.Progress > 0 {
		lines = append(lines, renderProgressBar(plan.Progress, width))
	}
	for _, detail := range plan.ExecutionDetails {
		lines = append(lines, wrapStyled(detail, width, dimStyle)...)
	}
	if len(plan.Sources) > 0 {
		lines = append(lines, dimStyle.Render("sources: "+strings.Join(sourceNames(plan.Sources), ", ")))
	}
	return lines
}

func renderTaskLine(task types.Task, width int) string {
	severity, recovered := task.Severity()
	label := task.Name
	if label == "" {
		label = fmt.Sprintf("task %d", task.Index)
	}
	if task.Agent != "" {
		label += " [" + task.Agent + "]"
	}
	if recovered {
		label += fmt.Sprintf(" (recovered after %d retries)", task.Retries())
	} else if task.Status == types.TaskStatusRetrying {
		label += fmt.Sprintf(" (attempt %d)", task.Retries()+1)
	}
	if task.Error != "" && severity == types.SeverityError {
		label += ": " + task.Error
	}
	label = runewidth.Truncate(label, width-4, "…")

	switch severity {
	case types.SeverityOK:
		return taskOKStyle.Render("  ✓ " + label)
	case types.SeverityError:
		return taskErrStyle.Render("  ✗ " + label)
	case types.SeverityWarn:
		return taskWarnStyle.Render("  ↻ " + label)
	case types.SeverityActive:
		return taskActiveStyle.Render("  … " + label)
	default:
		return dimStyle.Render("  ○ " + label)
	}
}

func renderProgressBar(progress, width int) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	barWidth := width - 10
	if barWidth > 40 {
		barWidth = 40
	}
	if barWidth < 4 {
		barWidth = 4
	}
	filled := barWidth * progress / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	return dimStyle.Render(fmt.Sprintf("  %s %3d%%", bar, progress))
}

func sourceNames(sources []types.Source) []string {
	names := make([]string, 0, len(sources))
	for _, source := range sources {
		if source.Title != "" {
			names = append(names, source.Title)
		} else if source.URL != "" {
			names = append(names, source.URL)
		}
	}
	return names
}

func padLine(text string, width int) string {
	gap := width - runewidth.StringWidth(text)
	if gap < 0 {
		return runewidth.Truncate(text, width, "…")
	}
	return text + strings.Repeat(" ", gap)
}

func wrapStyled(text string, width int, style lipgloss.Style) []string {
	wrapped := wrapText(text, width)
	for i := range wrapped {
		wrapped[i] = style.Render(wrapped[i])
	}
	return wrapped
}

// wrapText wraps on word boundaries using display width so CJK and wide
// runes line up; words longer than the line are hard-broken.
func wrapText(text string, width int) []string {
	if width < 8 {
		width = 8
	}
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		if paragraph == "" {
			lines = append(lines, "")
			continue
		}
		var line strings.Builder
		lineWidth := 0
		for _, word := range strings.Fields(paragraph) {
			wordWidth := runewidth.StringWidth(word)
			if lineWidth > 0 && lineWidth+1+wordWidth > width {
				lines = append(lines, line.String())
				line.Reset()
				lineWidth = 0
			}
			if wordWidth > width {
				for _, chunk := range hardBreak(word, width) {
					if lineWidth > 0 {
						lines = append(lines, line.String())
						line.Reset()
						lineWidth = 0
					}
					line.WriteString(chunk)
					lineWidth = runewidth.StringWidth(chunk)
					if lineWidth >= width {
						lines = append(lines, line.String())
						line.Reset()
						lineWidth = 0
					}
				}
				continue
			}
			if lineWidth > 0 {
				line.WriteString(" ")
				lineWidth++
			}
			line.WriteString(word)
			lineWidth += wordWidth
		}
		if lineWidth > 0 {
			lines = append(lines, line.String())
		}
	}
	return lines
}

func hardBreak(word string, width int) []string {
	var chunks []string
	var chunk strings.Builder
	chunkWidth := 0
	for _, r := range word {
		w := runewidth.RuneWidth(r)
		if chunkWidth+w > width && chunkWidth > 0 {
			chunks = append(chunks, chunk.String())
			chunk.Reset()
			chunkWidth = 0
		}
		chunk.WriteRune(r)
		chunkWidth += w
	}
	if chunk.Len() > 0 {
		chunks = append(chunks, chunk.String())
	}
	return chunks
}
