package store

import (
	"context"

	"github.com/notewave/notewave/pkg/models"
)

// ReadOnly wraps a Store and rejects write operations while the supplied
// check reports read-only mode. Used for maintenance windows: reads and
// subscriptions keep working, every write fails with a ValidationError so
// the mutation engine rolls its optimistic patch back cleanly.
//
// The check is evaluated per call, so the mode can be toggled at runtime
// without recreating the store.
type ReadOnly struct {
	Store
	isReadOnly func() bool
}

// NewReadOnly creates a read-only wrapper around a store.
func NewReadOnly(store Store, isReadOnly func() bool) *ReadOnly {
	return &ReadOnly{Store: store, isReadOnly: isReadOnly}
}

// Unwrap returns the underlying store.
func (r *ReadOnly) Unwrap() Store { return r.Store }

func (r *ReadOnly) check() error {
	if r.isReadOnly() {
		return &ValidationError{Field: "operation", Reason: "workspace is in read-only mode"}
	}
	return nil
}

func (r *ReadOnly) CreatePage(ctx context.Context, page *models.Page) error {
	if err := r.check(); err != nil {
		return err
	}
	return r.Store.CreatePage(ctx, page)
}

func (r *ReadOnly) UpdatePage(ctx context.Context, page *models.Page) error {
	if err := r.check(); err != nil {
		return err
	}
	return r.Store.UpdatePage(ctx, page)
}

func (r *ReadOnly) TrashPage(ctx context.Context, id models.PageID) error {
	if err := r.check(); err != nil {
		return err
	}
	return r.Store.TrashPage(ctx, id)
}

func (r *ReadOnly) RestorePage(ctx context.Context, id models.PageID) error {
	if err := r.check(); err != nil {
		return err
	}
	return r.Store.RestorePage(ctx, id)
}

func (r *ReadOnly) DeletePage(ctx context.Context, id models.PageID) error {
	if err := r.check(); err != nil {
		return err
	}
	return r.Store.DeletePage(ctx, id)
}

func (r *ReadOnly) CreateBlock(ctx context.Context, block *models.Block) error {
	if err := r.check(); err != nil {
		return err
	}
	return r.Store.CreateBlock(ctx, block)
}

func (r *ReadOnly) UpdateBlockContent(ctx context.Context, id models.BlockID, patch ContentPatch, expectedVersion int64) (*models.Block, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	return r.Store.UpdateBlockContent(ctx, id, patch, expectedVersion)
}

func (r *ReadOnly) UpdateBlockOrder(ctx context.Context, id models.BlockID, order int) error {
	if err := r.check(); err != nil {
		return err
	}
	return r.Store.UpdateBlockOrder(ctx, id, order)
}

func (r *ReadOnly) UpdateBlockType(ctx context.Context, id models.BlockID, blockType models.BlockType) error {
	if err := r.check(); err != nil {
		return err
	}
	return r.Store.UpdateBlockType(ctx, id, blockType)
}

func (r *ReadOnly) DeleteBlock(ctx context.Context, id models.BlockID) error {
	if err := r.check(); err != nil {
		return err
	}
	return r.Store.DeleteBlock(ctx, id)
}

func (r *ReadOnly) CreateDatabase(ctx context.Context, database *models.Database) error {
	if err := r.check(); err != nil {
		return err
	}
	return r.Store.CreateDatabase(ctx, database)
}

func (r *ReadOnly) CreateProperty(ctx context.Context, property *models.DatabaseProperty) error {
	if err := r.check(); err != nil {
		return err
	}
	return r.Store.CreateProperty(ctx, property)
}

func (r *ReadOnly) UpdateProperty(ctx context.Context, property *models.DatabaseProperty) error {
	if err := r.check(); err != nil {
		return err
	}
	return r.Store.UpdateProperty(ctx, property)
}

func (r *ReadOnly) DeleteProperty(ctx context.Context, id models.PropertyID) error {
	if err := r.check(); err != nil {
		return err
	}
	return r.Store.DeleteProperty(ctx, id)
}

func (r *ReadOnly) UpsertPropertyValue(ctx context.Context, value *models.PagePropertyValue) error {
	if err := r.check(); err != nil {
		return err
	}
	return r.Store.UpsertPropertyValue(ctx, value)
}

func (r *ReadOnly) CreateTeamSpace(ctx context.Context, space *models.TeamSpace) error {
	if err := r.check(); err != nil {
		return err
	}
	return r.Store.CreateTeamSpace(ctx, space)
}

func (r *ReadOnly) AddTeamMember(ctx context.Context, member *models.TeamSpaceMember) error {
	if err := r.check(); err != nil {
		return err
	}
	return r.Store.AddTeamMember(ctx, member)
}

func (r *ReadOnly) RemoveTeamMember(ctx context.Context, id models.MemberID) error {
	if err := r.check(); err != nil {
		return err
	}
	return r.Store.RemoveTeamMember(ctx, id)
}

func (r *ReadOnly) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.check(); err != nil {
		return err
	}
	return r.Store.CreateUser(ctx, user)
}

func (r *ReadOnly) CreateNotification(ctx context.Context, notification *models.Notification) error {
	if err := r.check(); err != nil {
		return err
	}
	return r.Store.CreateNotification(ctx, notification)
}

func (r *ReadOnly) MarkNotificationsRead(ctx context.Context, userID models.UserID) error {
	if err := r.check(); err != nil {
		return err
	}
	return r.Store.MarkNotificationsRead(ctx, userID)
}

func (r *ReadOnly) CreateMeeting(ctx context.Context, meeting *models.Meeting) error {
	if err := r.check(); err != nil {
		return err
	}
	return r.Store.CreateMeeting(ctx, meeting)
}

func (r *ReadOnly) CreateComment(ctx context.Context, comment *models.Comment) error {
	if err := r.check(); err != nil {
		return err
	}
	return r.Store.CreateComment(ctx, comment)
}

func (r *ReadOnly) ResolveComment(ctx context.Context, id models.CommentID) error {
	if err := r.check(); err != nil {
		return err
	}
	return r.Store.ResolveComment(ctx, id)
}

func (r *ReadOnly) DeleteComment(ctx context.Context, id models.CommentID) error {
	if err := r.check(); err != nil {
		return err
	}
	return r.Store.DeleteComment(ctx, id)
}
