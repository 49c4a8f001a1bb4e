package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"timeblock-planner/internal/clock"
	"timeblock-planner/internal/model"
	"timeblock-planner/internal/repository"
	"timeblock-planner/internal/service"
)

const helpText = `📖 <b>Commands</b>
/day [YYYY-MM-DD] — show the plan for a day (sets the selected day)
/today — jump back to today
/prev /next — move the selected day
/month [YYYY-MM] — month calendar with task and schedule markers
/addblock [HH:MM-HH:MM Title] — add a time block (no args: one-hour draft)
/block ID [HH:MM-HH:MM] [Title] — edit a time block's times and title
/delblock ID — delete a time block
/link BLOCK TASK — link a task to a time block
/unlink BLOCK TASK — unlink one task
/unlinkall BLOCK — unlink every task from a block
/newtask Title [#category] — quick-create a task due on the selected day
/done TASK · /reopen TASK — toggle completion
/unscheduled — open tasks not placed on any block
/schedule [mon..sun full|morning|afternoon|off] — recurring work schedule
/help — this message`

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Bot is the Telegram surface over the planner engine. It issues one
// mutation at a time per incoming command and re-renders from a fresh
// snapshot after every write.
type Bot struct {
	api        *tgbotapi.BotAPI
	users      *repository.UserRepository
	rules      *repository.ScheduleRuleRepository
	categories *repository.CategoryRepository
	planner    *service.Planner
	digest     *service.DigestService
	selected   map[int64]time.Time
	mu         sync.Mutex
}

func New(token string, users *repository.UserRepository, rules *repository.ScheduleRuleRepository, categories *repository.CategoryRepository, planner *service.Planner, digest *service.DigestService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:        api,
		users:      users,
		rules:      rules,
		categories: categories,
		planner:    planner,
		digest:     digest,
		selected:   make(map[int64]time.Time),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.Message == nil {
			continue
		}
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			continue
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			log.Printf("handle message: %v", err)
		}
	}

	return nil
}

// SendDailyDigests pushes today's plan to every known user.
func (b *Bot) SendDailyDigests(ctx context.Context) error {
	users, err := b.users.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	today := time.Now()
	text := b.digest.DayDigest(ctx, today)
	for _, user := range users {
		if err := b.sendHTML(user.TelegramID, text); err != nil {
			log.Printf("send digest to %d: %v", user.TelegramID, err)
		}
	}
	return nil
}

// SendUnscheduledReports nudges every known user about open tasks that are
// not placed on any time block. Quiet when there is nothing to report.
func (b *Bot) SendUnscheduledReports(ctx context.Context) error {
	snap := b.planner.LoadDay(ctx, time.Now())
	if snap.TasksErr != nil || snap.AllBlocksErr != nil {
		return fmt.Errorf("load unscheduled tasks: %w", snap.Err())
	}
	if len(snap.Unscheduled) == 0 {
		return nil
	}

	users, err := b.users.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	text := unscheduledText(snap.Unscheduled)
	for _, user := range users {
		if err := b.sendHTML(user.TelegramID, text); err != nil {
			log.Printf("send unscheduled report to %d: %v", user.TelegramID, err)
		}
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	if !msg.IsCommand() {
		return b.sendText(msg.Chat.ID, "I only speak commands here. Try /help.")
	}

	log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
	return b.handleCommand(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.sendHTML(msg.Chat.ID, helpText)
	case "today":
		b.setSelected(msg.Chat.ID, time.Now())
		return b.renderDay(ctx, msg.Chat.ID)
	case "day":
		return b.handleDay(ctx, msg.Chat.ID, args)
	case "prev":
		b.setSelected(msg.Chat.ID, b.selectedDay(msg.Chat.ID).AddDate(0, 0, -1))
		return b.renderDay(ctx, msg.Chat.ID)
	case "next":
		b.setSelected(msg.Chat.ID, b.selectedDay(msg.Chat.ID).AddDate(0, 0, 1))
		return b.renderDay(ctx, msg.Chat.ID)
	case "month":
		return b.handleMonth(ctx, msg.Chat.ID, args)
	case "addblock":
		return b.handleAddBlock(ctx, msg.Chat.ID, args)
	case "block":
		return b.handleEditBlock(ctx, msg.Chat.ID, args)
	case "delblock":
		return b.handleDeleteBlock(ctx, msg.Chat.ID, args)
	case "link":
		return b.handleLink(ctx, msg.Chat.ID, args)
	case "unlink":
		return b.handleUnlink(ctx, msg.Chat.ID, args)
	case "unlinkall":
		return b.handleUnlinkAll(ctx, msg.Chat.ID, args)
	case "newtask":
		return b.handleNewTask(ctx, msg.Chat.ID, args)
	case "done":
		return b.handleToggle(ctx, msg.Chat.ID, args, true)
	case "reopen":
		return b.handleToggle(ctx, msg.Chat.ID, args, false)
	case "unscheduled":
		return b.handleUnscheduled(ctx, msg.Chat.ID)
	case "schedule":
		return b.handleSchedule(ctx, msg.Chat.ID, args)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.users.UpsertFromTelegram(ctx, msg.From.ID, msg.From.FirstName, msg.From.LastName, msg.From.UserName); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("👋 Hi, %s!\n<b>I plan your days in time blocks and keep them linked to tasks.</b>\n\n%s", name, helpText)
	return b.sendHTML(msg.Chat.ID, text)
}

func (b *Bot) handleDay(ctx context.Context, chatID int64, args string) error {
	if args != "" {
		day, err := clock.ParseDay(args)
		if err != nil {
			return b.sendText(chatID, "Usage: /day YYYY-MM-DD")
		}
		b.setSelected(chatID, day)
	}
	return b.renderDay(ctx, chatID)
}

func (b *Bot) handleMonth(ctx context.Context, chatID int64, args string) error {
	now := b.selectedDay(chatID)
	year, month := now.Year(), now.Month()
	if args != "" {
		parsed, err := time.ParseInLocation("2006-01", args, time.Local)
		if err != nil {
			return b.sendText(chatID, "Usage: /month YYYY-MM")
		}
		year, month = parsed.Year(), parsed.Month()
	}

	text, err := b.digest.MonthCalendar(ctx, year, month)
	if err != nil {
		return b.sendText(chatID, "⚠️ Could not build the month view. Please try again.")
	}
	return b.sendHTML(chatID, text)
}

func (b *Bot) handleAddBlock(ctx context.Context, chatID int64, args string) error {
	day := b.selectedDay(chatID)

	block := b.planner.NewDraftBlock(day, time.Now())
	if args != "" {
		times, title, ok := strings.Cut(args, " ")
		startTime, endTime, hasRange := strings.Cut(times, "-")
		if !ok || !hasRange {
			return b.sendText(chatID, "Usage: /addblock HH:MM-HH:MM Title")
		}
		block.StartTime = startTime
		block.EndTime = endTime
		block.Title = strings.TrimSpace(title)
	}

	saved, err := b.planner.SaveBlock(ctx, block)
	switch {
	case err == nil:
		if sendErr := b.sendText(chatID, fmt.Sprintf("✅ Block %d created: %s – %s %s", saved.ID, saved.StartTime, saved.EndTime, saved.Title)); sendErr != nil {
			return sendErr
		}
		return b.renderDay(ctx, chatID)
	case errors.Is(err, clock.ErrInvalidTimeFormat), errors.Is(err, clock.ErrNegativeDuration):
		return b.sendText(chatID, fmt.Sprintf("⚠️ %v", err))
	case errors.Is(err, service.ErrPersistFailure):
		return b.sendText(chatID, "⚠️ Could not save the time block. Nothing was changed, please try again.")
	default:
		return b.sendText(chatID, fmt.Sprintf("⚠️ %v", err))
	}
}

// applyBlockEdit overlays the command arguments onto a block: an optional
// leading "HH:MM-HH:MM" range, the rest becomes the title. Reports whether
// anything was given to change.
func applyBlockEdit(block *model.TimeBlock, args string) bool {
	args = strings.TrimSpace(args)
	if args == "" {
		return false
	}

	first, rest, _ := strings.Cut(args, " ")
	if len(first) == 11 && first[5] == '-' {
		block.StartTime = first[:5]
		block.EndTime = first[6:]
		args = strings.TrimSpace(rest)
	}
	if args != "" {
		block.Title = args
	}
	return true
}

func (b *Bot) handleEditBlock(ctx context.Context, chatID int64, args string) error {
	idArg, rest, _ := strings.Cut(strings.TrimSpace(args), " ")
	id, err := parseID(idArg)
	if err != nil {
		return b.sendText(chatID, "Usage: /block ID [HH:MM-HH:MM] [Title]")
	}

	block, err := b.planner.FindBlock(ctx, id)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("ℹ️ %v — nothing changed.", err))
	}
	if !applyBlockEdit(block, rest) {
		return b.sendText(chatID, "Usage: /block ID [HH:MM-HH:MM] [Title]")
	}

	saved, err := b.planner.SaveBlock(ctx, *block)
	switch {
	case err == nil:
		if sendErr := b.sendText(chatID, fmt.Sprintf("✏️ Block %d updated: %s – %s %s", saved.ID, saved.StartTime, saved.EndTime, saved.Title)); sendErr != nil {
			return sendErr
		}
		return b.renderDay(ctx, chatID)
	case errors.Is(err, clock.ErrInvalidTimeFormat), errors.Is(err, clock.ErrNegativeDuration):
		return b.sendText(chatID, fmt.Sprintf("⚠️ %v", err))
	case errors.Is(err, service.ErrPersistFailure):
		return b.sendText(chatID, "⚠️ Could not save the time block. Nothing was changed, please try again.")
	default:
		return b.sendText(chatID, fmt.Sprintf("⚠️ %v", err))
	}
}

func (b *Bot) handleDeleteBlock(ctx context.Context, chatID int64, args string) error {
	id, err := parseID(args)
	if err != nil {
		return b.sendText(chatID, "Usage: /delblock ID")
	}

	if err := b.planner.DeleteBlock(ctx, id); err != nil {
		return b.sendText(chatID, fmt.Sprintf("⚠️ Could not delete block %d. Please try again.", id))
	}
	if err := b.sendText(chatID, fmt.Sprintf("🗑 Block %d deleted.", id)); err != nil {
		return err
	}
	return b.renderDay(ctx, chatID)
}

func (b *Bot) handleLink(ctx context.Context, chatID int64, args string) error {
	blockID, taskID, err := parseIDPair(args)
	if err != nil {
		return b.sendText(chatID, "Usage: /link BLOCK_ID TASK_ID")
	}

	_, err = b.planner.DropTaskOnBlock(ctx, blockID, taskID)
	switch {
	case err == nil:
		if sendErr := b.sendText(chatID, "🔗 Task linked to time block."); sendErr != nil {
			return sendErr
		}
		return b.renderDay(ctx, chatID)
	case errors.Is(err, service.ErrAlreadyLinked):
		return b.sendText(chatID, "ℹ️ This task is already linked to this time block.")
	case errors.Is(err, service.ErrTaskNotFound), errors.Is(err, service.ErrBlockNotFound):
		return b.sendText(chatID, fmt.Sprintf("ℹ️ %v — nothing linked.", err))
	default:
		return b.sendText(chatID, "⚠️ Could not link the task. Please try again.")
	}
}

func (b *Bot) handleUnlink(ctx context.Context, chatID int64, args string) error {
	blockID, taskID, err := parseIDPair(args)
	if err != nil {
		return b.sendText(chatID, "Usage: /unlink BLOCK_ID TASK_ID")
	}

	_, err = b.planner.UnlinkTaskFromBlock(ctx, blockID, taskID)
	switch {
	case err == nil:
		if sendErr := b.sendText(chatID, "✂️ Task unlinked from time block."); sendErr != nil {
			return sendErr
		}
		return b.renderDay(ctx, chatID)
	case errors.Is(err, service.ErrTaskNotLinked):
		return b.sendText(chatID, "ℹ️ That task is not linked to this block.")
	case errors.Is(err, service.ErrBlockNotFound):
		return b.sendText(chatID, fmt.Sprintf("ℹ️ %v.", err))
	default:
		return b.sendText(chatID, "⚠️ Could not unlink the task. Please try again.")
	}
}

func (b *Bot) handleUnlinkAll(ctx context.Context, chatID int64, args string) error {
	blockID, err := parseID(args)
	if err != nil {
		return b.sendText(chatID, "Usage: /unlinkall BLOCK_ID")
	}

	_, err = b.planner.UnlinkAllFromBlock(ctx, blockID)
	switch {
	case err == nil:
		if sendErr := b.sendText(chatID, "✂️ All tasks unlinked from the block."); sendErr != nil {
			return sendErr
		}
		return b.renderDay(ctx, chatID)
	case errors.Is(err, service.ErrNothingToUnlink):
		return b.sendText(chatID, "ℹ️ No tasks to unlink from this time block.")
	case errors.Is(err, service.ErrBlockNotFound):
		return b.sendText(chatID, fmt.Sprintf("ℹ️ %v.", err))
	default:
		return b.sendText(chatID, "⚠️ Could not unlink tasks. Please try again.")
	}
}

func (b *Bot) handleNewTask(ctx context.Context, chatID int64, args string) error {
	if args == "" {
		return b.sendText(chatID, "Usage: /newtask Title [#category]")
	}

	title := args
	var categoryID *uint
	if base, category, ok := strings.Cut(args, "#"); ok {
		title = strings.TrimSpace(base)
		if cat, err := b.categories.GetOrCreate(ctx, strings.TrimSpace(category)); err == nil && cat != nil {
			categoryID = &cat.ID
		}
	}

	task, err := b.planner.QuickCreateTask(ctx, title, b.selectedDay(chatID), categoryID)
	if err != nil {
		return b.sendText(chatID, "⚠️ Could not create the task. Please try again.")
	}
	return b.sendText(chatID, fmt.Sprintf("✅ Task %d created: %s", task.ID, task.Title))
}

func (b *Bot) handleToggle(ctx context.Context, chatID int64, args string, completed bool) error {
	id, err := parseID(args)
	if err != nil {
		return b.sendText(chatID, "Usage: /done TASK_ID (or /reopen TASK_ID)")
	}

	task, err := b.planner.ToggleTask(ctx, id, completed)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("⚠️ Could not update task %d. Please try again.", id))
	}

	state := "pending"
	if task.Completed {
		state = "completed"
	}
	return b.sendText(chatID, fmt.Sprintf("✅ Task %q marked as %s.", task.Title, state))
}

func (b *Bot) handleUnscheduled(ctx context.Context, chatID int64) error {
	snap := b.planner.LoadDay(ctx, b.selectedDay(chatID))
	if snap.TasksErr != nil || snap.AllBlocksErr != nil {
		return b.sendText(chatID, "⚠️ Tasks could not be loaded. Please try again.")
	}
	if len(snap.Unscheduled) == 0 {
		return b.sendText(chatID, "🎉 Every open task is placed on a time block.")
	}
	return b.sendHTML(chatID, unscheduledText(snap.Unscheduled))
}

func unscheduledText(tasks []model.Task) string {
	var sb strings.Builder
	sb.WriteString("🗂 <b>Unscheduled tasks</b>\n")
	for _, task := range tasks {
		sb.WriteString(fmt.Sprintf("• [%d] %s\n", task.ID, task.Title))
	}
	return sb.String()
}

func (b *Bot) handleSchedule(ctx context.Context, chatID int64, args string) error {
	if args == "" {
		return b.renderScheduleRules(ctx, chatID)
	}

	fields := strings.Fields(strings.ToLower(args))
	if len(fields) != 2 {
		return b.sendText(chatID, "Usage: /schedule mon..sun full|morning|afternoon|off")
	}

	weekday, ok := weekdayNames[fields[0]]
	if !ok {
		return b.sendText(chatID, "Unknown weekday, use mon..sun.")
	}

	switch fields[1] {
	case "off":
		if err := b.rules.ClearDay(ctx, int(weekday)); err != nil {
			return b.sendText(chatID, "⚠️ Could not update the schedule. Please try again.")
		}
		return b.sendText(chatID, fmt.Sprintf("🕐 %s is now a day off.", weekday))
	case model.ScheduleFull, model.ScheduleMorning, model.ScheduleAfternoon:
		if _, err := b.rules.Upsert(ctx, int(weekday), fields[1]); err != nil {
			return b.sendText(chatID, "⚠️ Could not update the schedule. Please try again.")
		}
		start, end := model.ScheduleBounds(fields[1])
		return b.sendText(chatID, fmt.Sprintf("🕐 %s: %s (%s – %s).", weekday, fields[1], start, end))
	default:
		return b.sendText(chatID, "Schedule type must be full, morning, afternoon or off.")
	}
}

func (b *Bot) renderScheduleRules(ctx context.Context, chatID int64) error {
	rules, err := b.rules.Rules(ctx)
	if err != nil {
		return b.sendText(chatID, "⚠️ Schedule unavailable right now; days resolve as unscheduled.")
	}
	if len(rules) == 0 {
		return b.sendText(chatID, "No recurring work schedule configured. Try /schedule mon full.")
	}

	var sb strings.Builder
	sb.WriteString("🕐 <b>Work schedule</b>\n")
	for _, rule := range rules {
		start, end := model.ScheduleBounds(rule.Type)
		sb.WriteString(fmt.Sprintf("• %s — %s (%s – %s)\n", rule.Weekday, rule.Type, start, end))
	}
	return b.sendHTML(chatID, sb.String())
}

func (b *Bot) renderDay(ctx context.Context, chatID int64) error {
	return b.sendHTML(chatID, b.digest.DayDigest(ctx, b.selectedDay(chatID)))
}

func (b *Bot) selectedDay(chatID int64) time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	if day, ok := b.selected[chatID]; ok {
		return day
	}
	return time.Now()
}

func (b *Bot) setSelected(chatID int64, day time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selected[chatID] = clock.Midnight(day)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendHTML(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func parseID(arg string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(arg), 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return uint(id), nil
}

func parseIDPair(args string) (uint, uint, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected two ids")
	}
	first, err := parseID(fields[0])
	if err != nil {
		return 0, 0, err
	}
	second, err := parseID(fields[1])
	if err != nil {
		return 0, 0, err
	}
	return first, second, nil
}
