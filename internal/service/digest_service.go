package service

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"timeblock-planner/internal/clock"
	"timeblock-planner/internal/model"
)

// DigestService renders Telegram-HTML summaries of a planner day and a month
// calendar. Partial snapshot failures become notice lines instead of errors.
type DigestService struct {
	planner    *Planner
	categories CategorySource
}

func NewDigestService(planner *Planner, categories CategorySource) *DigestService {
	return &DigestService{planner: planner, categories: categories}
}

func scheduleLabel(scheduleType string) string {
	switch scheduleType {
	case model.ScheduleFull:
		return "Full day"
	case model.ScheduleMorning:
		return "Morning"
	case model.ScheduleAfternoon:
		return "Afternoon"
	default:
		return scheduleType
	}
}

// DayDigest builds the day summary: work schedule banner, sorted time blocks
// with durations and linked tasks, and the unscheduled list.
func (s *DigestService) DayDigest(ctx context.Context, date time.Time) string {
	snap := s.planner.LoadDay(ctx, date)
	catNames := s.categoryNames(ctx)
	taskIndex := snap.TaskIndex()

	var b strings.Builder
	b.WriteString("📋 <b>Daily Plan</b>\n")
	b.WriteString(fmt.Sprintf("🗓 %s\n", date.Format("Monday, January 2, 2006")))

	if snap.WorkDay != nil {
		b.WriteString(fmt.Sprintf("💼 <b>%s</b> (%s – %s)\n",
			scheduleLabel(snap.WorkDay.Type), snap.WorkDay.StartTime, snap.WorkDay.EndTime))
	}
	b.WriteString("\n⏰ <b>Time blocks</b>\n")

	switch {
	case snap.DayBlocksErr != nil:
		b.WriteString("⚠️ time blocks could not be loaded\n")
	case len(snap.DayBlocks) == 0:
		b.WriteString("— no time blocks for this day\n")
	default:
		for _, block := range snap.DayBlocks {
			b.WriteString(formatBlock(block, snap.WorkDay, taskIndex, catNames))
		}
	}

	b.WriteString("\n🗂 <b>Unscheduled tasks</b>\n")
	switch {
	case snap.TasksErr != nil:
		b.WriteString("⚠️ tasks could not be loaded\n")
	case snap.AllBlocksErr != nil:
		b.WriteString("⚠️ unscheduled tasks could not be determined\n")
	case len(snap.Unscheduled) == 0:
		b.WriteString("— every open task is scheduled\n")
	default:
		for _, task := range snap.Unscheduled {
			b.WriteString(formatTaskLine(task, catNames))
		}
	}

	return strings.TrimSpace(b.String())
}

func formatBlock(block model.TimeBlock, workDay *model.WorkDay, taskIndex map[uint]model.Task, catNames map[uint]string) string {
	var b strings.Builder

	line := fmt.Sprintf("• <b>%s – %s</b> %s", block.StartTime, block.EndTime, html.EscapeString(block.Title))
	if span, err := clock.Duration(block.StartTime, block.EndTime); err == nil {
		line += fmt.Sprintf(" (%s)", span)
	}
	if workDay != nil && clock.OverlapsRange(block.StartTime, block.EndTime, workDay.StartTime, workDay.EndTime) {
		line += " 💼"
	}
	b.WriteString(line)
	b.WriteByte('\n')

	for _, task := range LinkedTasks(block, taskIndex) {
		box := "☐"
		if task.Completed {
			box = "☑"
		}
		b.WriteString(fmt.Sprintf("   %s %s", box, html.EscapeString(strings.TrimSpace(task.Title))))
		if task.CategoryID != nil {
			if name, ok := catNames[*task.CategoryID]; ok && name != "" {
				b.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(name)))
			}
		}
		b.WriteByte('\n')
	}

	return b.String()
}

func formatTaskLine(task model.Task, catNames map[uint]string) string {
	icon := "🟢"
	if task.Priority != nil {
		switch *task.Priority {
		case model.PriorityHigh:
			icon = "🔴"
		case model.PriorityMedium:
			icon = "🟡"
		}
	}

	line := fmt.Sprintf("%s %s", icon, html.EscapeString(strings.TrimSpace(task.Title)))
	if task.CategoryID != nil {
		if name, ok := catNames[*task.CategoryID]; ok && name != "" {
			line += fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(name))
		}
	}
	if task.EstimatedMinutes != nil && *task.EstimatedMinutes > 0 {
		span := clock.Span{Hours: *task.EstimatedMinutes / 60, Minutes: *task.EstimatedMinutes % 60}
		line += fmt.Sprintf(" · ≈%s", span)
	}
	return line + "\n"
}

// MonthCalendar renders a text month grid with task and schedule markers
// derived from the modifier sets.
func (s *DigestService) MonthCalendar(ctx context.Context, year int, month time.Month) (string, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	last := first.AddDate(0, 1, -1)

	set, err := s.planner.MonthModifiers(ctx, first, last)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("🗓 <b>%s</b>\n<pre>", first.Format("January 2006")))
	b.WriteString("Mo Tu We Th Fr Sa Su\n")

	// Monday-first offset of the 1st.
	offset := (int(first.Weekday()) + 6) % 7
	b.WriteString(strings.Repeat("   ", offset))

	column := offset
	for _, day := range clock.DaysBetween(first, last) {
		marker := " "
		switch {
		case set.HasHighPriorityTasks.Contains(day):
			marker = "!"
		case set.HasTasks.Contains(day):
			marker = "*"
		case set.FullDaySchedule.Contains(day) || set.MorningSchedule.Contains(day) || set.AfternoonSchedule.Contains(day):
			marker = "·"
		}
		b.WriteString(fmt.Sprintf("%2d%s", day.Day(), marker))

		column++
		if column%7 == 0 {
			b.WriteByte('\n')
		}
	}
	if column%7 != 0 {
		b.WriteByte('\n')
	}
	b.WriteString("</pre>\n! high priority · * has tasks · · work day")

	return b.String(), nil
}

func (s *DigestService) categoryNames(ctx context.Context) map[uint]string {
	names := make(map[uint]string)
	if s.categories == nil {
		return names
	}
	categories, err := s.categories.List(ctx)
	if err != nil {
		log.Printf("list categories: %v", err)
		return names
	}
	for _, category := range categories {
		names[category.ID] = category.Title
	}
	return names
}
