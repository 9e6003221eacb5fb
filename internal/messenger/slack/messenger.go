package slack

import (
	"context"
	"fmt"

	slacklib "github.com/slack-go/slack"

	"github.com/citylaw/docket/internal/messenger"
)

// SlackAPI abstracts the subset of the Slack client used by SlackMessenger.
// This allows testing without real HTTP calls.
type SlackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// SlackMessenger implements messenger.Messenger for Slack.
type SlackMessenger struct {
	api SlackAPI
}

// Compile-time interface check.
var _ messenger.Messenger = (*SlackMessenger)(nil) //nolint:gochecknoglobals // compile-time check

// NewSlackMessenger creates a SlackMessenger with the given API client.
func NewSlackMessenger(api SlackAPI) *SlackMessenger {
	return &SlackMessenger{api: api}
}

// NewFromToken builds a SlackMessenger over the real Slack web API.
func NewFromToken(botToken string) *SlackMessenger {
	return NewSlackMessenger(slacklib.New(botToken))
}

// SendNotification posts a direct message to a Slack user. Posting to a
// user ID delivers into the bot's DM with that user. The plain text doubles
// as the fallback for clients that cannot render blocks.
func (m *SlackMessenger) SendNotification(ctx context.Context, userExternalID string, n messenger.Notice) error {
	_, _, err := m.api.PostMessageContext(ctx, userExternalID,
		slacklib.MsgOptionText(n.Title+": "+n.Message, false),
		slacklib.MsgOptionBlocks(BuildNoticeBlocks(n)...),
	)
	if err != nil {
		return fmt.Errorf("slack.SlackMessenger.SendNotification: %w", err)
	}

	return nil
}

// Platform returns the messenger platform identifier.
func (m *SlackMessenger) Platform() string {
	return "slack"
}
