package messenger

import "context"

// Notice is a platform-neutral task notification.
type Notice struct {
	Title   string
	Message string
	Status  string // optional task status shown as context
	Link    string // optional deep link to the task
}

// Messenger abstracts delivery to a chat platform (Slack today).
// Implementations handle platform-specific API calls; the interface is platform-agnostic.
type Messenger interface {
	// SendNotification sends a direct message to a user by their external
	// platform ID (e.g. Slack user ID).
	SendNotification(ctx context.Context, userExternalID string, n Notice) error

	// Platform returns the messenger platform identifier (e.g. "slack").
	Platform() string
}
