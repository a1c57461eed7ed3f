package surreal

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/notewave/notewave/pkg/models"
)

// The record types mirror the shared models with the shapes SurrealDB
// stores natively: deletion stamps are optional datetimes rather than the
// relational soft-delete wrapper. Conversion happens at the store boundary
// so the rest of the system sees one set of models.

type pageRecord struct {
	ID               models.PageID       `json:"id"`
	Title            string              `json:"title"`
	Icon             string              `json:"icon,omitempty"`
	CoverImage       string              `json:"cover_image,omitempty"`
	Type             models.PageType     `json:"type"`
	OwnerID          models.UserID       `json:"owner_id"`
	TeamSpaceID      *models.TeamSpaceID `json:"team_space_id,omitempty"`
	ParentPageID     *models.PageID      `json:"parent_page_id,omitempty"`
	ParentDatabaseID *models.DatabaseID  `json:"parent_database_id,omitempty"`
	Favorite         bool                `json:"favorite"`
	Position         int                 `json:"position"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	DeletedAt        *time.Time          `json:"deleted_at,omitempty"`
}

func pageToRecord(p *models.Page) *pageRecord {
	rec := &pageRecord{
		ID:               p.ID,
		Title:            p.Title,
		Icon:             p.Icon,
		CoverImage:       p.CoverImage,
		Type:             p.Type,
		OwnerID:          p.OwnerID,
		TeamSpaceID:      p.TeamSpaceID,
		ParentPageID:     p.ParentPageID,
		ParentDatabaseID: p.ParentDatabaseID,
		Favorite:         p.Favorite,
		Position:         p.Position,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	if p.DeletedAt.Valid {
		t := p.DeletedAt.Time
		rec.DeletedAt = &t
	}
	return rec
}

func (r *pageRecord) toModel() *models.Page {
	p := &models.Page{
		ID:               r.ID,
		Title:            r.Title,
		Icon:             r.Icon,
		CoverImage:       r.CoverImage,
		Type:             r.Type,
		OwnerID:          r.OwnerID,
		TeamSpaceID:      r.TeamSpaceID,
		ParentPageID:     r.ParentPageID,
		ParentDatabaseID: r.ParentDatabaseID,
		Favorite:         r.Favorite,
		Position:         r.Position,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.DeletedAt != nil {
		p.DeletedAt = gorm.DeletedAt{Time: *r.DeletedAt, Valid: true}
	}
	return p
}

func pagesToModels(recs []pageRecord) []*models.Page {
	out := make([]*models.Page, len(recs))
	for i := range recs {
		out[i] = recs[i].toModel()
	}
	return out
}

type blockRecord struct {
	ID            models.BlockID   `json:"id"`
	PageID        models.PageID    `json:"page_id"`
	ParentBlockID *models.BlockID  `json:"parent_block_id,omitempty"`
	Type          models.BlockType `json:"type"`
	Content       models.JSONMap   `json:"content"`
	PlainText     string           `json:"plain_text"`
	Version       int64            `json:"version"`
	Order         int              `json:"sort_order"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	DeletedAt     *time.Time       `json:"deleted_at,omitempty"`
}

func blockToRecord(b *models.Block) *blockRecord {
	return &blockRecord{
		ID:            b.ID,
		PageID:        b.PageID,
		ParentBlockID: b.ParentBlockID,
		Type:          b.Type,
		Content:       b.Content,
		PlainText:     b.PlainText,
		Version:       b.Version,
		Order:         b.Order,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func (r *blockRecord) toModel() *models.Block {
	b := &models.Block{
		ID:            r.ID,
		PageID:        r.PageID,
		ParentBlockID: r.ParentBlockID,
		Type:          r.Type,
		Content:       r.Content,
		PlainText:     r.PlainText,
		Version:       r.Version,
		Order:         r.Order,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.DeletedAt != nil {
		b.DeletedAt = gorm.DeletedAt{Time: *r.DeletedAt, Valid: true}
	}
	return b
}

type databaseRecord struct {
	ID        models.DatabaseID `json:"id"`
	PageID    models.PageID     `json:"page_id"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func databaseToRecord(d *models.Database) *databaseRecord {
	return &databaseRecord{ID: d.ID, PageID: d.PageID, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
}

func (r *databaseRecord) toModel() *models.Database {
	return &models.Database{ID: r.ID, PageID: r.PageID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

type propertyRecord struct {
	ID         models.PropertyID   `json:"id"`
	DatabaseID models.DatabaseID   `json:"database_id"`
	Name       string              `json:"name"`
	Type       models.PropertyType `json:"type"`
	Config     models.JSONMap      `json:"config,omitempty"`
	Position   int                 `json:"position"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

func propertyToRecord(p *models.DatabaseProperty) *propertyRecord {
	return &propertyRecord{
		ID:         p.ID,
		DatabaseID: p.DatabaseID,
		Name:       p.Name,
		Type:       p.Type,
		Config:     p.Config,
		Position:   p.Position,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func (r *propertyRecord) toModel() *models.DatabaseProperty {
	return &models.DatabaseProperty{
		ID:         r.ID,
		DatabaseID: r.DatabaseID,
		Name:       r.Name,
		Type:       r.Type,
		Config:     r.Config,
		Position:   r.Position,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type valueRecord struct {
	ID         models.PropertyValueID `json:"id"`
	PageID     models.PageID          `json:"page_id"`
	PropertyID models.PropertyID      `json:"property_id"`
	Value      models.JSONMap         `json:"value"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// propertyValueID derives the cell's record ID from its (page, property)
// pair. Every writer of the same cell computes the same ID, so an upsert
// addresses one known record instead of searching for it first.
func propertyValueID(pageID models.PageID, propertyID models.PropertyID) models.PropertyValueID {
	seed := pageID.String() + "/" + propertyID.String()
	return models.NewPropertyValueIDFromUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)))
}

func (r *valueRecord) toModel() *models.PagePropertyValue {
	return &models.PagePropertyValue{
		ID:         r.ID,
		PageID:     r.PageID,
		PropertyID: r.PropertyID,
		Value:      r.Value,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type teamSpaceRecord struct {
	ID        models.TeamSpaceID `json:"id"`
	Name      string             `json:"name"`
	Icon      string             `json:"icon,omitempty"`
	CreatedBy models.UserID      `json:"created_by"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func teamSpaceToRecord(t *models.TeamSpace) *teamSpaceRecord {
	return &teamSpaceRecord{
		ID:        t.ID,
		Name:      t.Name,
		Icon:      t.Icon,
		CreatedBy: t.CreatedBy,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func (r *teamSpaceRecord) toModel() *models.TeamSpace {
	return &models.TeamSpace{
		ID:        r.ID,
		Name:      r.Name,
		Icon:      r.Icon,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type memberRecord struct {
	ID          models.MemberID    `json:"id"`
	TeamSpaceID models.TeamSpaceID `json:"team_space_id"`
	UserID      models.UserID      `json:"user_id"`
	Role        models.MemberRole  `json:"role"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func memberToRecord(m *models.TeamSpaceMember) *memberRecord {
	return &memberRecord{
		ID:          m.ID,
		TeamSpaceID: m.TeamSpaceID,
		UserID:      m.UserID,
		Role:        m.Role,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func (r *memberRecord) toModel() *models.TeamSpaceMember {
	return &models.TeamSpaceMember{
		ID:          r.ID,
		TeamSpaceID: r.TeamSpaceID,
		UserID:      r.UserID,
		Role:        r.Role,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type commentRecord struct {
	ID         models.CommentID `json:"id"`
	PageID     models.PageID    `json:"page_id"`
	UserID     models.UserID    `json:"user_id"`
	Content    string           `json:"content"`
	ResolvedAt *time.Time       `json:"resolved_at,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	DeletedAt  *time.Time       `json:"deleted_at,omitempty"`
}

func commentToRecord(c *models.Comment) *commentRecord {
	return &commentRecord{
		ID:         c.ID,
		PageID:     c.PageID,
		UserID:     c.UserID,
		Content:    c.Content,
		ResolvedAt: c.ResolvedAt,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func (r *commentRecord) toModel() *models.Comment {
	c := &models.Comment{
		ID:         r.ID,
		PageID:     r.PageID,
		UserID:     r.UserID,
		Content:    r.Content,
		ResolvedAt: r.ResolvedAt,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.DeletedAt != nil {
		c.DeletedAt = gorm.DeletedAt{Time: *r.DeletedAt, Valid: true}
	}
	return c
}

type userRecord struct {
	ID        models.UserID `json:"id"`
	Email     string        `json:"email"`
	Name      string        `json:"name"`
	AvatarURL string        `json:"avatar_url,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	DeletedAt *time.Time    `json:"deleted_at,omitempty"`
}

func userToRecord(u *models.User) *userRecord {
	return &userRecord{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (r *userRecord) toModel() *models.User {
	u := &models.User{
		ID:        r.ID,
		Email:     r.Email,
		Name:      r.Name,
		AvatarURL: r.AvatarURL,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.DeletedAt != nil {
		u.DeletedAt = gorm.DeletedAt{Time: *r.DeletedAt, Valid: true}
	}
	return u
}

type notificationRecord struct {
	ID        models.NotificationID   `json:"id"`
	UserID    models.UserID           `json:"user_id"`
	Kind      models.NotificationKind `json:"kind"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message,omitempty"`
	Link      string                  `json:"link,omitempty"`
	Read      bool                    `json:"read"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

func notificationToRecord(n *models.Notification) *notificationRecord {
	return &notificationRecord{
		ID:        n.ID,
		UserID:    n.UserID,
		Kind:      n.Kind,
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

func (r *notificationRecord) toModel() *models.Notification {
	return &models.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Kind:      r.Kind,
		Title:     r.Title,
		Message:   r.Message,
		Link:      r.Link,
		Read:      r.Read,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type meetingRecord struct {
	ID           models.MeetingID  `json:"id"`
	Title        string            `json:"title"`
	Date         time.Time         `json:"date"`
	Participants models.StringList `json:"participants,omitempty"`
	Notes        string            `json:"notes,omitempty"`
	CreatedBy    models.UserID     `json:"created_by"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func meetingToRecord(m *models.Meeting) *meetingRecord {
	return &meetingRecord{
		ID:           m.ID,
		Title:        m.Title,
		Date:         m.Date,
		Participants: m.Participants,
		Notes:        m.Notes,
		CreatedBy:    m.CreatedBy,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func (r *meetingRecord) toModel() *models.Meeting {
	return &models.Meeting{
		ID:           r.ID,
		Title:        r.Title,
		Date:         r.Date,
		Participants: r.Participants,
		Notes:        r.Notes,
		CreatedBy:    r.CreatedBy,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
