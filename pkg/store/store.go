// Package store defines the persistence contract the workspace core is built
// against, together with the error taxonomy every backend maps onto.
//
// Three backends implement [Store]:
//
//   - memory.Store: the reference implementation with an in-process change
//     feed, used by tests and as the semantic baseline
//   - postgres.Store: GORM on PostgreSQL; the version precondition is a
//     conditional UPDATE whose zero-rows-affected outcome maps to
//     [ErrVersionConflict]
//   - surreal.Store: SurrealDB over websocket; live queries back [Store.Subscribe]
//
// The contract deliberately exposes one conditional write,
// [Store.UpdateBlockContent]: content edits are the only writes guarded by an
// optimistic version. Property values are upserted last-write-wins without a
// version; that weaker tier is intentional and documented on
// [models.PagePropertyValue].
package store

import (
	"context"

	"github.com/notewave/notewave/pkg/models"
)

// EventAction is the kind of change a subscription delivers.
type EventAction string

const (
	ActionCreate EventAction = "CREATE"
	ActionUpdate EventAction = "UPDATE"
	ActionDelete EventAction = "DELETE"
)

// Event is a change notification. It identifies what changed but carries no
// payload: consumers invalidate and refetch rather than apply pushed state,
// so a stale or reordered delivery can never corrupt a cache.
type Event struct {
	Table  string
	Action EventAction
	// PageID scopes the event: for block and comment events the owning
	// page, for page events the page itself, for property-value events
	// the row page.
	PageID models.PageID
}

// EventFilter selects which change events a subscription receives. Exactly
// one field must be set.
type EventFilter struct {
	// PageID matches events whose scope is this page.
	PageID *models.PageID
	// DatabaseID matches property-value and row-page events for any row of
	// this database.
	DatabaseID *models.DatabaseID
}

// Subscription is a live change feed. Events are delivered at least once and
// unordered across tables; Close releases the feed and closes the channel.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// ContentPatch is the payload of a versioned block content write. PlainText
// is the denormalized projection kept in sync with Content on every write.
type ContentPatch struct {
	Content   models.JSONMap
	PlainText string
}

// Store is the persistence boundary of the workspace core.
//
// Get methods return NotFoundError for missing records. List methods return
// empty slices, never nil errors for empty results. Create methods fill in
// generated IDs and timestamps on the passed record. All writes are atomic
// per call; cross-call consistency is the caller's concern.
type Store interface {
	// Pages

	CreatePage(ctx context.Context, page *models.Page) error
	GetPage(ctx context.Context, id models.PageID) (*models.Page, error)
	// UpdatePage replaces the page's mutable fields (title, icon, cover,
	// favorite, position, parents). Unversioned, last write wins.
	UpdatePage(ctx context.Context, page *models.Page) error
	// TrashPage sets the soft-delete marker; the page disappears from
	// listings but remains restorable.
	TrashPage(ctx context.Context, id models.PageID) error
	RestorePage(ctx context.Context, id models.PageID) error
	// DeletePage permanently removes the page and its blocks, values and
	// comments.
	DeletePage(ctx context.Context, id models.PageID) error
	// ListPrivatePages returns the owner's pages outside any team space,
	// excluding database rows and trashed pages, ordered by position.
	ListPrivatePages(ctx context.Context, ownerID models.UserID) ([]*models.Page, error)
	ListTeamPages(ctx context.Context, teamSpaceID models.TeamSpaceID) ([]*models.Page, error)
	ListChildPages(ctx context.Context, parentPageID models.PageID) ([]*models.Page, error)
	ListTrashedPages(ctx context.Context, ownerID models.UserID) ([]*models.Page, error)
	// ListDatabaseRows returns the row pages of a database, ordered by
	// position ascending then ID.
	ListDatabaseRows(ctx context.Context, databaseID models.DatabaseID) ([]*models.Page, error)

	// Blocks

	CreateBlock(ctx context.Context, block *models.Block) error
	GetBlock(ctx context.Context, id models.BlockID) (*models.Block, error)
	// ListBlocks returns the page's blocks ordered by sort key ascending,
	// ties broken by ID.
	ListBlocks(ctx context.Context, pageID models.PageID) ([]*models.Block, error)
	// UpdateBlockContent atomically writes content and plain text if and
	// only if the stored version equals expectedVersion, incrementing the
	// version. A stale version yields ConflictError; a missing block
	// yields NotFoundError. The returned block is the server-confirmed
	// row.
	UpdateBlockContent(ctx context.Context, id models.BlockID, patch ContentPatch, expectedVersion int64) (*models.Block, error)
	// UpdateBlockOrder writes a block's sort key. Unversioned: ordering
	// conflicts resolve through reorder-level reconciliation, not
	// per-row preconditions.
	UpdateBlockOrder(ctx context.Context, id models.BlockID, order int) error
	UpdateBlockType(ctx context.Context, id models.BlockID, blockType models.BlockType) error
	DeleteBlock(ctx context.Context, id models.BlockID) error

	// Databases and properties

	CreateDatabase(ctx context.Context, database *models.Database) error
	// GetDatabaseByPage returns the sidecar for a database page, or
	// NotFoundError when the sidecar has not been bootstrapped yet.
	GetDatabaseByPage(ctx context.Context, pageID models.PageID) (*models.Database, error)
	CreateProperty(ctx context.Context, property *models.DatabaseProperty) error
	UpdateProperty(ctx context.Context, property *models.DatabaseProperty) error
	DeleteProperty(ctx context.Context, id models.PropertyID) error
	ListProperties(ctx context.Context, databaseID models.DatabaseID) ([]*models.DatabaseProperty, error)

	// Property values

	// UpsertPropertyValue inserts or replaces the value row keyed by
	// (page, property). Unversioned, last write wins.
	UpsertPropertyValue(ctx context.Context, value *models.PagePropertyValue) error
	// ListPropertyValues returns all value rows for the given pages in one
	// batched query.
	ListPropertyValues(ctx context.Context, pageIDs []models.PageID) ([]*models.PagePropertyValue, error)

	// Team spaces

	CreateTeamSpace(ctx context.Context, space *models.TeamSpace) error
	GetTeamSpace(ctx context.Context, id models.TeamSpaceID) (*models.TeamSpace, error)
	ListTeamSpaces(ctx context.Context, userID models.UserID) ([]*models.TeamSpace, error)
	AddTeamMember(ctx context.Context, member *models.TeamSpaceMember) error
	RemoveTeamMember(ctx context.Context, id models.MemberID) error
	ListTeamMembers(ctx context.Context, teamSpaceID models.TeamSpaceID) ([]*models.TeamSpaceMember, error)

	// Users

	// CreateUser registers a profile. A duplicate email yields
	// ValidationError.
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id models.UserID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// Comments

	CreateComment(ctx context.Context, comment *models.Comment) error
	ListComments(ctx context.Context, pageID models.PageID) ([]*models.Comment, error)
	ResolveComment(ctx context.Context, id models.CommentID) error
	DeleteComment(ctx context.Context, id models.CommentID) error

	// Notifications

	CreateNotification(ctx context.Context, notification *models.Notification) error
	// ListNotifications returns a user's inbox, newest first.
	ListNotifications(ctx context.Context, userID models.UserID) ([]*models.Notification, error)
	// MarkNotificationsRead marks every unread notification of the user
	// read.
	MarkNotificationsRead(ctx context.Context, userID models.UserID) error

	// Meetings

	CreateMeeting(ctx context.Context, meeting *models.Meeting) error
	// ListMeetings returns all meetings ordered by date ascending.
	ListMeetings(ctx context.Context) ([]*models.Meeting, error)

	// Realtime

	// Subscribe opens a change feed matching the filter. Backends without
	// realtime return ErrRealtimeUnsupported; callers then degrade to
	// manual refetch.
	Subscribe(ctx context.Context, table string, filter EventFilter) (Subscription, error)

	// Lifecycle

	// Migrate initializes or updates backend schema. Idempotent.
	Migrate(ctx context.Context) error
	Close() error
}
