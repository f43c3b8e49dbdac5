package slackbot

import (
	"fmt"

	"github.com/slack-go/slack"
)

// DMSender delivers direct messages through a Slack client.
type DMSender struct {
	api *slack.Client
}

func NewDMSender(api *slack.Client) *DMSender {
	return &DMSender{api: api}
}

func (s *DMSender) SendDM(userID, text string) error {
	channel, _, _, err := s.api.OpenConversation(&slack.OpenConversationParameters{
		Users: []string{userID},
	})
	if err != nil {
		return fmt.Errorf("open conversation with %s: %w", userID, err)
	}
	if _, _, err := s.api.PostMessage(channel.ID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("post message to %s: %w", userID, err)
	}
	return nil
}
