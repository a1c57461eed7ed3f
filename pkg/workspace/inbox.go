package workspace

import (
	"context"
	"time"

	"github.com/notewave/notewave/pkg/cache"
	"github.com/notewave/notewave/pkg/models"
)

// The inbox and the meeting calendar are plain read-mostly surfaces: writes
// persist first and invalidate the cached list, with no optimistic patch.
// Neither record kind is ever edited concurrently, so there is nothing to
// roll back.

// Notifications lists the acting user's inbox, newest first, cache-first.
func (c *Client) Notifications(ctx context.Context) ([]*models.Notification, error) {
	userID, err := c.userID()
	if err != nil {
		return nil, err
	}
	key := cache.NotificationsKey(userID)
	if v, ok, stale := c.cache.Read(key); ok && !stale {
		return v.([]*models.Notification), nil
	}
	notifications, err := c.store.ListNotifications(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.cache.Put(key, notifications)
	return notifications, nil
}

// UnreadCount reports how many inbox entries are unread.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	notifications, err := c.Notifications(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range notifications {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

// Notify delivers a notification to a user's inbox.
func (c *Client) Notify(ctx context.Context, userID models.UserID, kind models.NotificationKind, title, message, link string) (*models.Notification, error) {
	notification := &models.Notification{
		UserID:  userID,
		Kind:    kind,
		Title:   title,
		Message: message,
		Link:    link,
	}
	err := c.persist(ctx, "notify", func(ctx context.Context) error {
		return c.store.CreateNotification(ctx, notification)
	})
	if err != nil {
		return nil, err
	}
	c.cache.Invalidate(cache.NotificationsKey(userID))
	return notification, nil
}

// MarkAllNotificationsRead marks the acting user's whole inbox read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	userID, err := c.userID()
	if err != nil {
		return err
	}
	err = c.persist(ctx, "mark_notifications_read", func(ctx context.Context) error {
		return c.store.MarkNotificationsRead(ctx, userID)
	})
	if err != nil {
		return err
	}
	c.cache.Invalidate(cache.NotificationsKey(userID))
	return nil
}

// CreateMeetingParams are the caller-supplied meeting fields.
type CreateMeetingParams struct {
	Title        string
	Date         time.Time
	Participants []string
	Notes        string
}

// Meetings lists all meetings ordered by date, cache-first.
func (c *Client) Meetings(ctx context.Context) ([]*models.Meeting, error) {
	key := cache.MeetingsKey()
	if v, ok, stale := c.cache.Read(key); ok && !stale {
		return v.([]*models.Meeting), nil
	}
	meetings, err := c.store.ListMeetings(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Put(key, meetings)
	return meetings, nil
}

// CreateMeeting schedules a meeting as the acting user.
func (c *Client) CreateMeeting(ctx context.Context, params CreateMeetingParams) (*models.Meeting, error) {
	userID, err := c.userID()
	if err != nil {
		return nil, err
	}
	meeting := &models.Meeting{
		Title:        params.Title,
		Date:         params.Date,
		Participants: models.StringList(params.Participants).Clone(),
		Notes:        params.Notes,
		CreatedBy:    userID,
	}
	err = c.persist(ctx, "create_meeting", func(ctx context.Context) error {
		return c.store.CreateMeeting(ctx, meeting)
	})
	if err != nil {
		return nil, err
	}
	c.cache.Invalidate(cache.MeetingsKey())
	return meeting, nil
}
