package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/citylaw/docket/internal/domain"
	"github.com/citylaw/docket/internal/messenger"
	redisstore "github.com/citylaw/docket/internal/store/redis"
)

// MessengerRegistry maps platform names to Messenger implementations.
type MessengerRegistry interface {
	Get(platform string) (messenger.Messenger, bool)
}

// Publisher fans realtime events out to connected clients.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// UserLookup resolves the recipient's chat identity.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Notifier delivers a notification on every channel the recipient has:
// the in-app inbox, the realtime stream and a Slack DM.
type Notifier struct {
	inbox      domain.NotificationRepository
	users      UserLookup
	publisher  Publisher
	messengers MessengerRegistry
	baseURL    string
}

// New creates a Notifier. publisher and messengers may be nil; the channel
// they serve is then skipped.
func New(inbox domain.NotificationRepository, users UserLookup, publisher Publisher, messengers MessengerRegistry, baseURL string) *Notifier {
	return &Notifier{
		inbox:      inbox,
		users:      users,
		publisher:  publisher,
		messengers: messengers,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Notify stores n in the recipient's inbox and pushes it out. Only the inbox
// write can fail the call; push channels are logged and skipped.
func (n *Notifier) Notify(ctx context.Context, note *domain.Notification) error {
	if err := n.inbox.Create(ctx, note); err != nil {
		return fmt.Errorf("notify.Notifier.Notify: store: %w", err)
	}

	logger := log.With().
		Str("user_id", note.UserID.String()).
		Str("type", string(note.Type)).
		Logger()

	if n.publisher != nil {
		if err := n.publish(ctx, note); err != nil {
			logger.Warn().Err(err).Msg("notify: realtime publish failed")
		}
	}

	if n.messengers != nil {
		if err := n.sendChat(ctx, note); err != nil {
			logger.Warn().Err(err).Msg("notify: chat delivery failed")
		}
	}

	return nil
}

func (n *Notifier) publish(ctx context.Context, note *domain.Notification) error {
	payload, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return n.publisher.Publish(ctx, redisstore.UserChannel(note.UserID), payload)
}

func (n *Notifier) sendChat(ctx context.Context, note *domain.Notification) error {
	m, ok := n.messengers.Get("slack")
	if !ok {
		return nil
	}
	u, err := n.users.GetByID(ctx, note.UserID)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if u.SlackUserID == "" || !u.Active {
		return nil
	}

	notice := messenger.Notice{Title: note.Title, Message: note.Message}
	if note.TaskID != nil && n.baseURL != "" {
		notice.Link = n.baseURL + "/tasks/" + note.TaskID.String()
	}
	return m.SendNotification(ctx, u.SlackUserID, notice)
}
