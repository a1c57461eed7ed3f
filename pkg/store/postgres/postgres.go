// Package postgres implements store.Store on PostgreSQL via GORM. Block
// version checks compile to a conditional UPDATE (WHERE id AND version), so
// the precondition is enforced by the database, not by application-level
// read-modify-write. The backend has no realtime feed; Subscribe reports
// store.ErrRealtimeUnsupported and callers fall back to polling or layer a
// feed-capable store on top.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/notewave/notewave/pkg/models"
	"github.com/notewave/notewave/pkg/store"
)

// Store is the PostgreSQL-backed store.
type Store struct {
	db *gorm.DB
}

// New connects to the database at dsn.
func New(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, &store.TransportError{Op: "connect", Err: err}
	}
	return &Store{db: db}, nil
}

// gormConfig builds the session config. TranslateError must stay on: the
// duplicate-key branches in AddTeamMember and CreateUser match against
// gorm.ErrDuplicatedKey, which the driver only produces when translation
// is enabled.
func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}
}

// NewWithDB wraps an existing GORM handle. Used by tests running against a
// shared database.
func NewWithDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&models.Page{},
		&models.Block{},
		&models.Database{},
		&models.DatabaseProperty{},
		&models.PagePropertyValue{},
		&models.TeamSpace{},
		&models.TeamSpaceMember{},
		&models.Comment{},
		&models.User{},
		&models.Notification{},
		&models.Meeting{},
	)
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// wrapErr translates GORM errors into the store taxonomy.
func wrapErr(err error, table, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &store.NotFoundError{Table: table, ID: id}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &store.TransportError{Op: table, Err: err}
	}
	return fmt.Errorf("postgres: %w", err)
}

// Pages

func (s *Store) CreatePage(ctx context.Context, page *models.Page) error {
	if page.Type == "" {
		page.Type = models.PageTypeBlank
	}
	return wrapErr(s.db.WithContext(ctx).Create(page).Error, models.TablePages, page.ID.String())
}

func (s *Store) GetPage(ctx context.Context, id models.PageID) (*models.Page, error) {
	var page models.Page
	err := s.db.WithContext(ctx).First(&page, "id = ?", id).Error
	if err != nil {
		return nil, wrapErr(err, models.TablePages, id.String())
	}
	return &page, nil
}

func (s *Store) UpdatePage(ctx context.Context, page *models.Page) error {
	res := s.db.WithContext(ctx).Model(&models.Page{}).Where("id = ?", page.ID).
		Select("title", "icon", "cover_image", "type", "team_space_id", "parent_page_id", "favorite", "position").
		Updates(page)
	if res.Error != nil {
		return wrapErr(res.Error, models.TablePages, page.ID.String())
	}
	if res.RowsAffected == 0 {
		return &store.NotFoundError{Table: models.TablePages, ID: page.ID.String()}
	}
	return nil
}

func (s *Store) TrashPage(ctx context.Context, id models.PageID) error {
	res := s.db.WithContext(ctx).Delete(&models.Page{}, "id = ?", id)
	if res.Error != nil {
		return wrapErr(res.Error, models.TablePages, id.String())
	}
	if res.RowsAffected == 0 {
		return &store.NotFoundError{Table: models.TablePages, ID: id.String()}
	}
	return nil
}

func (s *Store) RestorePage(ctx context.Context, id models.PageID) error {
	res := s.db.WithContext(ctx).Unscoped().Model(&models.Page{}).
		Where("id = ?", id).Update("deleted_at", nil)
	if res.Error != nil {
		return wrapErr(res.Error, models.TablePages, id.String())
	}
	if res.RowsAffected == 0 {
		return &store.NotFoundError{Table: models.TablePages, ID: id.String()}
	}
	return nil
}

func (s *Store) DeletePage(ctx context.Context, id models.PageID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var page models.Page
		if err := tx.Unscoped().First(&page, "id = ?", id).Error; err != nil {
			return wrapErr(err, models.TablePages, id.String())
		}
		if err := tx.Unscoped().Delete(&models.Block{}, "page_id = ?", id).Error; err != nil {
			return wrapErr(err, models.TableBlocks, "")
		}
		if err := tx.Unscoped().Delete(&models.PagePropertyValue{}, "page_id = ?", id).Error; err != nil {
			return wrapErr(err, models.TablePropertyValues, "")
		}
		if err := tx.Unscoped().Delete(&models.Comment{}, "page_id = ?", id).Error; err != nil {
			return wrapErr(err, models.TableComments, "")
		}
		var database models.Database
		err := tx.First(&database, "page_id = ?", id).Error
		if err == nil {
			if err := tx.Unscoped().Delete(&models.DatabaseProperty{}, "database_id = ?", database.ID).Error; err != nil {
				return wrapErr(err, models.TableProperties, "")
			}
			if err := tx.Unscoped().Delete(&database).Error; err != nil {
				return wrapErr(err, models.TableDatabases, "")
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return wrapErr(err, models.TableDatabases, "")
		}
		return wrapErr(tx.Unscoped().Delete(&page).Error, models.TablePages, id.String())
	})
}

func (s *Store) ListPrivatePages(ctx context.Context, ownerID models.UserID) ([]*models.Page, error) {
	var pages []*models.Page
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND team_space_id IS NULL AND parent_database_id IS NULL", ownerID).
		Order("position, id").Find(&pages).Error
	return pages, wrapErr(err, models.TablePages, "")
}

func (s *Store) ListTeamPages(ctx context.Context, teamSpaceID models.TeamSpaceID) ([]*models.Page, error) {
	var pages []*models.Page
	err := s.db.WithContext(ctx).
		Where("team_space_id = ? AND parent_database_id IS NULL", teamSpaceID).
		Order("position, id").Find(&pages).Error
	return pages, wrapErr(err, models.TablePages, "")
}

func (s *Store) ListChildPages(ctx context.Context, parentPageID models.PageID) ([]*models.Page, error) {
	var pages []*models.Page
	err := s.db.WithContext(ctx).
		Where("parent_page_id = ?", parentPageID).
		Order("position, id").Find(&pages).Error
	return pages, wrapErr(err, models.TablePages, "")
}

func (s *Store) ListTrashedPages(ctx context.Context, ownerID models.UserID) ([]*models.Page, error) {
	var pages []*models.Page
	err := s.db.WithContext(ctx).Unscoped().
		Where("owner_id = ? AND deleted_at IS NOT NULL", ownerID).
		Order("deleted_at DESC").Find(&pages).Error
	return pages, wrapErr(err, models.TablePages, "")
}

func (s *Store) ListDatabaseRows(ctx context.Context, databaseID models.DatabaseID) ([]*models.Page, error) {
	var pages []*models.Page
	err := s.db.WithContext(ctx).
		Where("parent_database_id = ?", databaseID).
		Order("position, id").Find(&pages).Error
	return pages, wrapErr(err, models.TablePages, "")
}

// Blocks

func (s *Store) CreateBlock(ctx context.Context, block *models.Block) error {
	if block.Type == "" {
		return &store.ValidationError{Field: "type", Reason: "block type is required"}
	}
	block.Version = 0
	return wrapErr(s.db.WithContext(ctx).Create(block).Error, models.TableBlocks, block.ID.String())
}

func (s *Store) GetBlock(ctx context.Context, id models.BlockID) (*models.Block, error) {
	var block models.Block
	err := s.db.WithContext(ctx).First(&block, "id = ?", id).Error
	if err != nil {
		return nil, wrapErr(err, models.TableBlocks, id.String())
	}
	return &block, nil
}

func (s *Store) ListBlocks(ctx context.Context, pageID models.PageID) ([]*models.Block, error) {
	var blocks []*models.Block
	err := s.db.WithContext(ctx).
		Where("page_id = ?", pageID).
		Order("sort_order, id").Find(&blocks).Error
	return blocks, wrapErr(err, models.TableBlocks, "")
}

// UpdateBlockContent is the version-checked write: the UPDATE matches only
// when the stored version equals the one the caller read. Zero rows
// affected with the row present means someone else committed first.
func (s *Store) UpdateBlockContent(ctx context.Context, id models.BlockID, patch store.ContentPatch, expectedVersion int64) (*models.Block, error) {
	var confirmed models.Block
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Block{}).
			Where("id = ? AND version = ?", id, expectedVersion).
			Updates(map[string]any{
				"content":    patch.Content,
				"plain_text": patch.PlainText,
				"version":    gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return wrapErr(res.Error, models.TableBlocks, id.String())
		}
		if res.RowsAffected == 0 {
			var current models.Block
			if err := tx.First(&current, "id = ?", id).Error; err != nil {
				return wrapErr(err, models.TableBlocks, id.String())
			}
			return &store.ConflictError{
				BlockID:         id,
				ExpectedVersion: expectedVersion,
				CurrentVersion:  current.Version,
			}
		}
		return wrapErr(tx.First(&confirmed, "id = ?", id).Error, models.TableBlocks, id.String())
	})
	if err != nil {
		return nil, err
	}
	return &confirmed, nil
}

func (s *Store) UpdateBlockOrder(ctx context.Context, id models.BlockID, order int) error {
	res := s.db.WithContext(ctx).Model(&models.Block{}).
		Where("id = ?", id).Update("sort_order", order)
	if res.Error != nil {
		return wrapErr(res.Error, models.TableBlocks, id.String())
	}
	if res.RowsAffected == 0 {
		return &store.NotFoundError{Table: models.TableBlocks, ID: id.String()}
	}
	return nil
}

func (s *Store) UpdateBlockType(ctx context.Context, id models.BlockID, blockType models.BlockType) error {
	if blockType == "" {
		return &store.ValidationError{Field: "type", Reason: "block type is required"}
	}
	res := s.db.WithContext(ctx).Model(&models.Block{}).
		Where("id = ?", id).Update("type", blockType)
	if res.Error != nil {
		return wrapErr(res.Error, models.TableBlocks, id.String())
	}
	if res.RowsAffected == 0 {
		return &store.NotFoundError{Table: models.TableBlocks, ID: id.String()}
	}
	return nil
}

func (s *Store) DeleteBlock(ctx context.Context, id models.BlockID) error {
	res := s.db.WithContext(ctx).Unscoped().Delete(&models.Block{}, "id = ?", id)
	if res.Error != nil {
		return wrapErr(res.Error, models.TableBlocks, id.String())
	}
	if res.RowsAffected == 0 {
		return &store.NotFoundError{Table: models.TableBlocks, ID: id.String()}
	}
	return nil
}

// Databases and properties

func (s *Store) CreateDatabase(ctx context.Context, database *models.Database) error {
	return wrapErr(s.db.WithContext(ctx).Create(database).Error, models.TableDatabases, database.ID.String())
}

func (s *Store) GetDatabaseByPage(ctx context.Context, pageID models.PageID) (*models.Database, error) {
	var database models.Database
	err := s.db.WithContext(ctx).First(&database, "page_id = ?", pageID).Error
	if err != nil {
		return nil, wrapErr(err, models.TableDatabases, pageID.String())
	}
	return &database, nil
}

func (s *Store) CreateProperty(ctx context.Context, property *models.DatabaseProperty) error {
	if property.Name == "" {
		return &store.ValidationError{Field: "name", Reason: "property name is required"}
	}
	return wrapErr(s.db.WithContext(ctx).Create(property).Error, models.TableProperties, property.ID.String())
}

func (s *Store) UpdateProperty(ctx context.Context, property *models.DatabaseProperty) error {
	res := s.db.WithContext(ctx).Model(&models.DatabaseProperty{}).
		Where("id = ?", property.ID).
		Select("name", "type", "config", "position").
		Updates(property)
	if res.Error != nil {
		return wrapErr(res.Error, models.TableProperties, property.ID.String())
	}
	if res.RowsAffected == 0 {
		return &store.NotFoundError{Table: models.TableProperties, ID: property.ID.String()}
	}
	return nil
}

func (s *Store) DeleteProperty(ctx context.Context, id models.PropertyID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Delete(&models.PagePropertyValue{}, "property_id = ?", id).Error; err != nil {
			return wrapErr(err, models.TablePropertyValues, "")
		}
		res := tx.Unscoped().Delete(&models.DatabaseProperty{}, "id = ?", id)
		if res.Error != nil {
			return wrapErr(res.Error, models.TableProperties, id.String())
		}
		if res.RowsAffected == 0 {
			return &store.NotFoundError{Table: models.TableProperties, ID: id.String()}
		}
		return nil
	})
}

func (s *Store) ListProperties(ctx context.Context, databaseID models.DatabaseID) ([]*models.DatabaseProperty, error) {
	var properties []*models.DatabaseProperty
	err := s.db.WithContext(ctx).
		Where("database_id = ?", databaseID).
		Order("position, id").Find(&properties).Error
	return properties, wrapErr(err, models.TableProperties, "")
}

// Property values

// UpsertPropertyValue is a single INSERT ... ON CONFLICT on the
// (page_id, property_id) unique index. Last write wins; no version check.
func (s *Store) UpsertPropertyValue(ctx context.Context, value *models.PagePropertyValue) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "page_id"}, {Name: "property_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(value).Error
	return wrapErr(err, models.TablePropertyValues, value.ID.String())
}

// ListPropertyValues fetches the values of all the given pages in one IN
// query, so a database view never issues one query per row.
func (s *Store) ListPropertyValues(ctx context.Context, pageIDs []models.PageID) ([]*models.PagePropertyValue, error) {
	if len(pageIDs) == 0 {
		return []*models.PagePropertyValue{}, nil
	}
	var values []*models.PagePropertyValue
	err := s.db.WithContext(ctx).
		Where("page_id IN ?", pageIDs).
		Order("id").Find(&values).Error
	return values, wrapErr(err, models.TablePropertyValues, "")
}

// Team spaces

func (s *Store) CreateTeamSpace(ctx context.Context, space *models.TeamSpace) error {
	if space.Name == "" {
		return &store.ValidationError{Field: "name", Reason: "team space name is required"}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(space).Error; err != nil {
			return wrapErr(err, models.TableTeamSpaces, space.ID.String())
		}
		owner := &models.TeamSpaceMember{
			TeamSpaceID: space.ID,
			UserID:      space.CreatedBy,
			Role:        models.RoleOwner,
		}
		return wrapErr(tx.Create(owner).Error, models.TableTeamMembers, "")
	})
}

func (s *Store) GetTeamSpace(ctx context.Context, id models.TeamSpaceID) (*models.TeamSpace, error) {
	var space models.TeamSpace
	err := s.db.WithContext(ctx).First(&space, "id = ?", id).Error
	if err != nil {
		return nil, wrapErr(err, models.TableTeamSpaces, id.String())
	}
	return &space, nil
}

func (s *Store) ListTeamSpaces(ctx context.Context, userID models.UserID) ([]*models.TeamSpace, error) {
	var spaces []*models.TeamSpace
	err := s.db.WithContext(ctx).
		Joins("JOIN team_space_members ON team_space_members.team_space_id = team_spaces.id").
		Where("team_space_members.user_id = ?", userID).
		Order("team_spaces.name").Find(&spaces).Error
	return spaces, wrapErr(err, models.TableTeamSpaces, "")
}

func (s *Store) AddTeamMember(ctx context.Context, member *models.TeamSpaceMember) error {
	if member.Role == "" {
		return &store.ValidationError{Field: "role", Reason: "member role is required"}
	}
	err := s.db.WithContext(ctx).Create(member).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return &store.ValidationError{Field: "user_id", Reason: "user is already a member"}
	}
	return wrapErr(err, models.TableTeamMembers, member.ID.String())
}

func (s *Store) RemoveTeamMember(ctx context.Context, id models.MemberID) error {
	res := s.db.WithContext(ctx).Delete(&models.TeamSpaceMember{}, "id = ?", id)
	if res.Error != nil {
		return wrapErr(res.Error, models.TableTeamMembers, id.String())
	}
	if res.RowsAffected == 0 {
		return &store.NotFoundError{Table: models.TableTeamMembers, ID: id.String()}
	}
	return nil
}

func (s *Store) ListTeamMembers(ctx context.Context, teamSpaceID models.TeamSpaceID) ([]*models.TeamSpaceMember, error) {
	var members []*models.TeamSpaceMember
	err := s.db.WithContext(ctx).
		Where("team_space_id = ?", teamSpaceID).
		Order("id").Find(&members).Error
	return members, wrapErr(err, models.TableTeamMembers, "")
}

// Users

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.Email == "" {
		return &store.ValidationError{Field: "email", Reason: "email is required"}
	}
	err := s.db.WithContext(ctx).Create(user).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return &store.ValidationError{Field: "email", Reason: "email is already registered"}
	}
	return wrapErr(err, models.TableUsers, user.ID.String())
}

func (s *Store) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, wrapErr(err, models.TableUsers, id.String())
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		return nil, wrapErr(err, models.TableUsers, email)
	}
	return &user, nil
}

// Comments

func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment.Content == "" {
		return &store.ValidationError{Field: "content", Reason: "comment content is required"}
	}
	return wrapErr(s.db.WithContext(ctx).Create(comment).Error, models.TableComments, comment.ID.String())
}

func (s *Store) ListComments(ctx context.Context, pageID models.PageID) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := s.db.WithContext(ctx).
		Where("page_id = ?", pageID).
		Order("created_at, id").Find(&comments).Error
	return comments, wrapErr(err, models.TableComments, "")
}

func (s *Store) ResolveComment(ctx context.Context, id models.CommentID) error {
	res := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", id).Update("resolved_at", gorm.Expr("now()"))
	if res.Error != nil {
		return wrapErr(res.Error, models.TableComments, id.String())
	}
	if res.RowsAffected == 0 {
		return &store.NotFoundError{Table: models.TableComments, ID: id.String()}
	}
	return nil
}

func (s *Store) DeleteComment(ctx context.Context, id models.CommentID) error {
	res := s.db.WithContext(ctx).Unscoped().Delete(&models.Comment{}, "id = ?", id)
	if res.Error != nil {
		return wrapErr(res.Error, models.TableComments, id.String())
	}
	if res.RowsAffected == 0 {
		return &store.NotFoundError{Table: models.TableComments, ID: id.String()}
	}
	return nil
}

// Notifications

func (s *Store) CreateNotification(ctx context.Context, notification *models.Notification) error {
	if notification.UserID.IsZero() {
		return &store.ValidationError{Field: "user_id", Reason: "notification needs a recipient"}
	}
	if notification.Title == "" {
		return &store.ValidationError{Field: "title", Reason: "notification title is required"}
	}
	if notification.Kind == "" {
		notification.Kind = models.NotificationInfo
	}
	return wrapErr(s.db.WithContext(ctx).Create(notification).Error, models.TableNotifications, notification.ID.String())
}

func (s *Store) ListNotifications(ctx context.Context, userID models.UserID) ([]*models.Notification, error) {
	var notifications []*models.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id").Find(&notifications).Error
	return notifications, wrapErr(err, models.TableNotifications, "")
}

func (s *Store) MarkNotificationsRead(ctx context.Context, userID models.UserID) error {
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true).Error
	return wrapErr(err, models.TableNotifications, "")
}

// Meetings

func (s *Store) CreateMeeting(ctx context.Context, meeting *models.Meeting) error {
	if meeting.Title == "" {
		return &store.ValidationError{Field: "title", Reason: "meeting title is required"}
	}
	if meeting.Date.IsZero() {
		return &store.ValidationError{Field: "date", Reason: "meeting date is required"}
	}
	return wrapErr(s.db.WithContext(ctx).Create(meeting).Error, models.TableMeetings, meeting.ID.String())
}

func (s *Store) ListMeetings(ctx context.Context) ([]*models.Meeting, error) {
	var meetings []*models.Meeting
	err := s.db.WithContext(ctx).Order("date, id").Find(&meetings).Error
	return meetings, wrapErr(err, models.TableMeetings, "")
}

// Realtime

// Subscribe is unsupported: PostgreSQL carries no change feed here.
func (s *Store) Subscribe(ctx context.Context, table string, filter store.EventFilter) (store.Subscription, error) {
	return nil, store.ErrRealtimeUnsupported
}
