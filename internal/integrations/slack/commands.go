package slackbot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"tasklens/internal/domain"
	"tasklens/internal/insights"
	"tasklens/internal/tasks"
)

const actionTaskDone = "task_done"

func (b *Bot) handleTask(ctx context.Context, cmd slack.SlashCommand) {
	title, description := parseTaskText(cmd.Text)
	t, err := b.tasks.Create(ctx, cmd.UserID, title, description)
	switch {
	case errors.Is(err, tasks.ErrTaskLimit):
		b.postEphemeral(cmd, "That's plenty for today. Finish one before adding another.")
		log.Printf("task limit user=%s", cmd.UserID)
		return
	case domain.IsInputError(err):
		b.postEphemeral(cmd, "Usage: `/task <what you want to do>` (optional details on the next line)")
		return
	case err != nil:
		b.postEphemeral(cmd, fmt.Sprintf("Error saving task: %v", err))
		log.Printf("task create error user=%s: %v", cmd.UserID, err)
		return
	}
	b.postEphemeral(cmd, fmt.Sprintf("Logged: %s", t.Title))
	log.Printf("task saved user=%s task=%s tagged=%t", cmd.UserID, t.ID, t.Tagged())
}

func (b *Bot) handleTasks(ctx context.Context, cmd slack.SlashCommand) {
	open, err := b.tasks.List(ctx, cmd.UserID, false)
	if err != nil {
		b.postEphemeral(cmd, fmt.Sprintf("Error: %v", err))
		log.Printf("tasks list error user=%s: %v", cmd.UserID, err)
		return
	}
	if len(open) == 0 {
		b.postEphemeral(cmd, "No open tasks. Add one with `/task`.")
		return
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType,
			fmt.Sprintf("Open tasks (%d)", len(open)), false, false)),
	}
	for i, t := range open {
		done := slack.NewButtonBlockElement(actionTaskDone, t.ID,
			slack.NewTextBlockObject(slack.PlainTextType, "Done", false, false))
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, formatTaskLine(i+1, t.Task), false, false),
			nil,
			slack.NewAccessory(done),
		))
	}

	if _, err := b.api.PostEphemeral(cmd.ChannelID, cmd.UserID, slack.MsgOptionBlocks(blocks...)); err != nil {
		log.Printf("Error posting tasks blocks: %v", err)
		b.postEphemeral(cmd, "Error rendering tasks.")
		return
	}
	log.Printf("tasks list user=%s count=%d", cmd.UserID, len(open))
}

func (b *Bot) handleDone(ctx context.Context, cmd slack.SlashCommand) {
	open, err := b.tasks.List(ctx, cmd.UserID, false)
	if err != nil {
		b.postEphemeral(cmd, fmt.Sprintf("Error: %v", err))
		return
	}
	n, err := parseDoneArg(cmd.Text, len(open))
	if err != nil {
		b.postEphemeral(cmd, err.Error())
		return
	}
	b.completeTask(ctx, cmd.ChannelID, cmd.UserID, open[n-1].ID)
}

func (b *Bot) completeTask(ctx context.Context, channelID, userID, taskID string) {
	t, err := b.tasks.Complete(ctx, userID, taskID)
	if errors.Is(err, domain.ErrNotFound) {
		b.postEphemeralTo(channelID, userID, "That task no longer exists.")
		return
	}
	if err != nil {
		b.postEphemeralTo(channelID, userID, fmt.Sprintf("Error completing task: %v", err))
		log.Printf("task complete error user=%s task=%s: %v", userID, taskID, err)
		return
	}
	b.postEphemeralTo(channelID, userID, fmt.Sprintf("Done: %s", t.Title))
	log.Printf("task completed user=%s task=%s", userID, taskID)
}

func (b *Bot) handleInsights(ctx context.Context, cmd slack.SlashCommand) {
	start, end := domain.InsightWeekRange(time.Now().In(b.cfg.Location), b.cfg.MondayCutoffTime)
	if _, err := b.insights.CreateInsightsForPeriod(ctx, cmd.UserID, start, end); err != nil {
		b.postEphemeral(cmd, fmt.Sprintf("Error generating insights: %v", err))
		log.Printf("insights generate error user=%s: %v", cmd.UserID, err)
		return
	}
	unviewed, err := b.insights.Unviewed(ctx, cmd.UserID)
	if err != nil {
		b.postEphemeral(cmd, fmt.Sprintf("Error loading insights: %v", err))
		return
	}

	shown := latestPeriod(unviewed, start)
	b.postEphemeral(cmd, insights.FormatMessage(start, end, shown))
	for _, in := range shown {
		if err := b.insights.MarkViewed(ctx, in.ID); err != nil {
			log.Printf("insights mark viewed error id=%s: %v", in.ID, err)
		}
	}
	log.Printf("insights sent user=%s count=%d", cmd.UserID, len(shown))
}

func (b *Bot) handleTagStats(ctx context.Context, cmd slack.SlashCommand) {
	if !b.cfg.IsManagerID(cmd.UserID) {
		b.postEphemeral(cmd, "Sorry, only managers can use this command.")
		log.Printf("tag-stats denied user=%s", cmd.UserID)
		return
	}

	allTime, err := b.stats.GetClassificationStats(ctx, time.Time{})
	if err != nil {
		b.postEphemeral(cmd, fmt.Sprintf("Error loading stats: %v", err))
		log.Printf("tag-stats all-time error: %v", err)
		return
	}
	fourWeeksAgo := time.Now().In(b.cfg.Location).AddDate(0, 0, -28)
	recent, err := b.stats.GetClassificationStats(ctx, fourWeeksAgo)
	if err != nil {
		log.Printf("tag-stats recent error (non-fatal): %v", err)
		recent = domain.ClassificationStats{}
	}

	b.postEphemeral(cmd, formatStats(allTime, recent))
	log.Printf("tag-stats sent user=%s", cmd.UserID)
}

func (b *Bot) handleHelp(cmd slack.SlashCommand) {
	b.postEphemeral(cmd, strings.Join(helpLines(b.cfg.IsManagerID(cmd.UserID)), "\n"))
}
