// Package slackbot exposes tasks and insights through Slack slash commands.
package slackbot

import (
	"context"
	"log"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"tasklens/internal/config"
	"tasklens/internal/domain"
)

const commandTimeout = 30 * time.Second

type TaskService interface {
	Create(ctx context.Context, userID, title, description string) (domain.TaggedTask, error)
	List(ctx context.Context, userID string, includeCompleted bool) ([]domain.TaggedTask, error)
	Complete(ctx context.Context, userID, id string) (domain.TaggedTask, error)
}

type InsightService interface {
	CreateInsightsForPeriod(ctx context.Context, userID string, start, end time.Time) ([]domain.Insight, error)
	Unviewed(ctx context.Context, userID string) ([]domain.Insight, error)
	MarkViewed(ctx context.Context, id string) error
}

type StatsSource interface {
	GetClassificationStats(ctx context.Context, since time.Time) (domain.ClassificationStats, error)
}

type Bot struct {
	api      *slack.Client
	cfg      config.Config
	tasks    TaskService
	insights InsightService
	stats    StatsSource
}

func New(api *slack.Client, cfg config.Config, tasks TaskService, insights InsightService, stats StatsSource) *Bot {
	return &Bot{api: api, cfg: cfg, tasks: tasks, insights: insights, stats: stats}
}

// Run connects over Socket Mode and dispatches events until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	client := socketmode.New(b.api)

	go func() {
		for evt := range client.Events {
			switch evt.Type {
			case socketmode.EventTypeSlashCommand:
				client.Ack(*evt.Request)
				cmd, ok := evt.Data.(slack.SlashCommand)
				if !ok {
					continue
				}
				log.Printf("Slash command received: %s from user=%s channel=%s", cmd.Command, cmd.UserID, cmd.ChannelID)
				go b.handleSlashCommand(cmd)
			case socketmode.EventTypeInteractive:
				client.Ack(*evt.Request)
				callback, ok := evt.Data.(slack.InteractionCallback)
				if !ok {
					continue
				}
				go b.handleInteraction(callback)
			}
		}
	}()

	log.Println("Slack bot connected via Socket Mode")
	return client.RunContext(ctx)
}

func (b *Bot) handleSlashCommand(cmd slack.SlashCommand) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch cmd.Command {
	case "/task":
		b.handleTask(ctx, cmd)
	case "/tasks":
		b.handleTasks(ctx, cmd)
	case "/done":
		b.handleDone(ctx, cmd)
	case "/insights":
		b.handleInsights(ctx, cmd)
	case "/tag-stats":
		b.handleTagStats(ctx, cmd)
	case "/help":
		b.handleHelp(cmd)
	}
}

func (b *Bot) handleInteraction(cb slack.InteractionCallback) {
	if cb.Type != slack.InteractionTypeBlockActions || len(cb.ActionCallback.BlockActions) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	act := cb.ActionCallback.BlockActions[0]
	channelID := cb.Channel.ID
	if channelID == "" {
		channelID = cb.Container.ChannelID
	}
	switch act.ActionID {
	case actionTaskDone:
		b.completeTask(ctx, channelID, cb.User.ID, act.Value)
	}
}

func (b *Bot) postEphemeral(cmd slack.SlashCommand, text string) {
	b.postEphemeralTo(cmd.ChannelID, cmd.UserID, text)
}

func (b *Bot) postEphemeralTo(channelID, userID, text string) {
	_, err := b.api.PostEphemeral(channelID, userID, slack.MsgOptionText(text, false))
	if err != nil {
		log.Printf("Error posting ephemeral: %v", err)
	}
}
