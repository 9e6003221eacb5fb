package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/citylaw/docket/internal/domain"
)

type ListNotificationsInput struct {
	UnreadOnly bool `query:"unreadOnly" doc:"Only unread notifications"`
	Limit      int  `query:"limit" default:"50" minimum:"1" maximum:"200" doc:"Maximum notifications"`
}

type ListNotificationsOutput struct {
	Body struct {
		Notifications []*domain.Notification `json:"notifications"`
	}
}

type MarkNotificationReadInput struct {
	ID uuid.UUID `path:"id" doc:"Notification ID"`
}

func RegisterNotificationRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-notifications",
		Method:      http.MethodGet,
		Path:        "/notifications",
		Summary:     "List the caller's notifications, newest first",
		Tags:        []string{"Notifications"},
	}, func(ctx context.Context, input *ListNotificationsInput) (*ListNotificationsOutput, error) {
		p, err := principal(ctx)
		if err != nil {
			return nil, err
		}

		notes, err := store.Notifications().ListByUser(ctx, p.UserID, input.UnreadOnly, input.Limit)
		if err != nil {
			return nil, toHTTPError(err, "notification")
		}

		out := &ListNotificationsOutput{}
		out.Body.Notifications = notes
		if out.Body.Notifications == nil {
			out.Body.Notifications = []*domain.Notification{}
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "mark-notification-read",
		Method:      http.MethodPost,
		Path:        "/notifications/{id}/read",
		Summary:     "Mark a notification as read",
		Tags:        []string{"Notifications"},
	}, func(ctx context.Context, input *MarkNotificationReadInput) (*SuccessOutput, error) {
		p, err := principal(ctx)
		if err != nil {
			return nil, err
		}

		// Other users' notifications are reported as missing.
		if err := store.Notifications().MarkRead(ctx, p.UserID, input.ID); err != nil {
			return nil, toHTTPError(err, "notification")
		}

		out := &SuccessOutput{}
		out.Body.Success = true
		return out, nil
	})
}
