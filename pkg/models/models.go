// Package models defines the persistent record types of the workspace: pages,
// content blocks, typed databases with their properties and per-row values,
// team spaces and comments. The same structs are stored by every backend
// (in-memory, PostgreSQL via GORM, SurrealDB via CBOR); struct tags carry the
// mapping for each.
//
// Block content is an opaque structured document produced by the editor. The
// core never interprets it; it persists the JSON payload together with a
// denormalized plain-text projection used for search and previews.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// PageType distinguishes plain documents from database pages and templates.
type PageType string

const (
	PageTypeBlank    PageType = "blank"
	PageTypeDatabase PageType = "database"
	PageTypeTemplate PageType = "template"
)

// BlockType is the kind of a content block. The set mirrors what the editor
// can produce; the core treats all of them uniformly.
type BlockType string

const (
	BlockTypeText         BlockType = "text"
	BlockTypeHeading1     BlockType = "h1"
	BlockTypeHeading2     BlockType = "h2"
	BlockTypeHeading3     BlockType = "h3"
	BlockTypeBulletList   BlockType = "bullet-list"
	BlockTypeNumberedList BlockType = "numbered-list"
	BlockTypeTodo         BlockType = "todo"
	BlockTypeQuote        BlockType = "quote"
	BlockTypeToggle       BlockType = "toggle"
	BlockTypeImage        BlockType = "image"
	BlockTypeVideo        BlockType = "video"
	BlockTypeBookmark     BlockType = "bookmark"
	BlockTypeCode         BlockType = "code"
	BlockTypeCallout      BlockType = "callout"
	BlockTypeDivider      BlockType = "divider"
)

// PropertyType is the declared type of a database property (column).
type PropertyType string

const (
	PropertyTypeText        PropertyType = "text"
	PropertyTypeNumber      PropertyType = "number"
	PropertyTypeSelect      PropertyType = "select"
	PropertyTypeMultiSelect PropertyType = "multi_select"
	PropertyTypeStatus      PropertyType = "status"
	PropertyTypeDate        PropertyType = "date"
	PropertyTypePerson      PropertyType = "person"
	PropertyTypeCheckbox    PropertyType = "checkbox"
	PropertyTypeURL         PropertyType = "url"
	PropertyTypeEmail       PropertyType = "email"
	PropertyTypePhone       PropertyType = "phone"
)

// MemberRole is a team space member's role.
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleEditor MemberRole = "editor"
	RoleViewer MemberRole = "viewer"
)

// JSONMap is the flexible payload container used for block content, property
// configuration and property values. PostgreSQL stores it as JSONB, SurrealDB
// as a native object. The shape varies by block/property type and is owned by
// the rendering layer, not by this core.
type JSONMap map[string]any

// Value implements driver.Valuer for database storage.
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner for database retrieval.
func (j *JSONMap) Scan(value any) error {
	if value == nil {
		*j = make(map[string]any)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		bytes = []byte(value.(string))
	}
	return json.Unmarshal(bytes, j)
}

// Clone returns a deep copy produced by a JSON round trip. Cached values must
// never share mutable state with optimistic patches, so every patch works on
// a clone.
func (j JSONMap) Clone() JSONMap {
	if j == nil {
		return nil
	}
	raw, err := json.Marshal(j)
	if err != nil {
		// JSONMap values come from JSON in the first place; a marshal
		// failure here means a caller stored a non-serializable value.
		panic("models: unserializable JSONMap: " + err.Error())
	}
	var out JSONMap
	if err := json.Unmarshal(raw, &out); err != nil {
		panic("models: clone round trip failed: " + err.Error())
	}
	return out
}

// Page is a node in the workspace forest. A page belongs to exactly one scope:
// either a private owner or a team space. A page whose ParentDatabaseID is set
// is a row of that database.
type Page struct {
	ID               PageID         `gorm:"type:uuid;primary_key" json:"id"`
	Title            string         `gorm:"not null" json:"title"`
	Icon             string         `json:"icon,omitempty"`
	CoverImage       string         `json:"cover_image,omitempty"`
	Type             PageType       `gorm:"not null;default:blank" json:"type"`
	OwnerID          UserID         `gorm:"type:uuid;not null" json:"owner_id"`
	TeamSpaceID      *TeamSpaceID   `gorm:"type:uuid;index" json:"team_space_id,omitempty"`
	ParentPageID     *PageID        `gorm:"type:uuid;index" json:"parent_page_id,omitempty"`
	ParentDatabaseID *DatabaseID    `gorm:"type:uuid;index" json:"parent_database_id,omitempty"`
	Favorite         bool           `json:"favorite"`
	Position         int            `gorm:"not null;default:0" json:"position"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BeforeCreate generates an ID if not set.
func (p *Page) BeforeCreate(tx *gorm.DB) error {
	if p.ID.IsZero() {
		p.ID = NewPageID()
	}
	return nil
}

// IsRow reports whether the page is a database row.
func (p *Page) IsRow() bool { return p.ParentDatabaseID != nil }

// Clone returns a deep copy.
func (p *Page) Clone() *Page {
	cp := *p
	if p.TeamSpaceID != nil {
		id := *p.TeamSpaceID
		cp.TeamSpaceID = &id
	}
	if p.ParentPageID != nil {
		id := *p.ParentPageID
		cp.ParentPageID = &id
	}
	if p.ParentDatabaseID != nil {
		id := *p.ParentDatabaseID
		cp.ParentDatabaseID = &id
	}
	return &cp
}

// Block is a unit of page content. Version increments on every successful
// content write; a content write must supply the version it read, and a
// stale-version write fails with a version conflict. Order values form a
// strict total order within a parent scope, ties broken by ID.
type Block struct {
	ID            BlockID        `gorm:"type:uuid;primary_key" json:"id"`
	PageID        PageID         `gorm:"type:uuid;not null;index" json:"page_id"`
	ParentBlockID *BlockID       `gorm:"type:uuid" json:"parent_block_id,omitempty"`
	Type          BlockType      `gorm:"not null" json:"type"`
	Content       JSONMap        `gorm:"type:jsonb" json:"content"`
	PlainText     string         `gorm:"type:text" json:"plain_text"`
	Version       int64          `gorm:"not null;default:0" json:"version"`
	Order         int            `gorm:"column:sort_order;not null" json:"order"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BeforeCreate generates an ID if not set.
func (b *Block) BeforeCreate(tx *gorm.DB) error {
	if b.ID.IsZero() {
		b.ID = NewBlockID()
	}
	return nil
}

// Clone returns a deep copy, including the content document.
func (b *Block) Clone() *Block {
	cb := *b
	cb.Content = b.Content.Clone()
	if b.ParentBlockID != nil {
		id := *b.ParentBlockID
		cb.ParentBlockID = &id
	}
	return &cb
}

// Less orders blocks by sort key ascending, ID ascending on ties. Every
// listing and every reorder uses this single definition.
func (b *Block) Less(other *Block) bool {
	if b.Order != other.Order {
		return b.Order < other.Order
	}
	return b.ID.String() < other.ID.String()
}

// Database is the 1:1 sidecar attached to a page of type database. It owns
// the property definitions; the rows are pages whose ParentDatabaseID points
// here.
type Database struct {
	ID        DatabaseID     `gorm:"type:uuid;primary_key" json:"id"`
	PageID    PageID         `gorm:"type:uuid;not null;uniqueIndex" json:"page_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BeforeCreate generates an ID if not set.
func (d *Database) BeforeCreate(tx *gorm.DB) error {
	if d.ID.IsZero() {
		d.ID = NewDatabaseID()
	}
	return nil
}

// SelectOption is one choice of a select/status/multi-select property.
type SelectOption struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// DatabaseProperty is a column definition: name, declared type and
// type-specific configuration (select options and the like).
type DatabaseProperty struct {
	ID         PropertyID     `gorm:"type:uuid;primary_key" json:"id"`
	DatabaseID DatabaseID     `gorm:"type:uuid;not null;index" json:"database_id"`
	Name       string         `gorm:"not null" json:"name"`
	Type       PropertyType   `gorm:"not null" json:"type"`
	Config     JSONMap        `gorm:"type:jsonb" json:"config,omitempty"`
	Position   int            `gorm:"not null;default:0" json:"position"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BeforeCreate generates an ID if not set.
func (p *DatabaseProperty) BeforeCreate(tx *gorm.DB) error {
	if p.ID.IsZero() {
		p.ID = NewPropertyID()
	}
	return nil
}

// Options decodes the select/status option set from Config. Returns nil when
// the property has no options configured.
func (p *DatabaseProperty) Options() []SelectOption {
	raw, ok := p.Config["options"]
	if !ok {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var opts []SelectOption
	if err := json.Unmarshal(data, &opts); err != nil {
		return nil
	}
	return opts
}

// Clone returns a deep copy.
func (p *DatabaseProperty) Clone() *DatabaseProperty {
	cp := *p
	cp.Config = p.Config.Clone()
	return &cp
}

// PagePropertyValue binds a (page, property) pair to a typed value: the cell
// of a database row. At most one value row exists per pair; writes go through
// upsert-on-conflict. Values are not versioned; concurrent writes are
// last-write-wins with no conflict surfaced.
type PagePropertyValue struct {
	ID         PropertyValueID `gorm:"type:uuid;primary_key" json:"id"`
	PageID     PageID          `gorm:"type:uuid;not null;uniqueIndex:idx_page_property" json:"page_id"`
	PropertyID PropertyID      `gorm:"type:uuid;not null;uniqueIndex:idx_page_property" json:"property_id"`
	Value      JSONMap         `gorm:"type:jsonb" json:"value"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// BeforeCreate generates an ID if not set.
func (v *PagePropertyValue) BeforeCreate(tx *gorm.DB) error {
	if v.ID.IsZero() {
		v.ID = NewPropertyValueID()
	}
	return nil
}

// Clone returns a deep copy.
func (v *PagePropertyValue) Clone() *PagePropertyValue {
	cv := *v
	cv.Value = v.Value.Clone()
	return &cv
}

// TeamSpace is a named collaboration scope. Pages carrying its ID fall under
// its membership and permission rules.
type TeamSpace struct {
	ID        TeamSpaceID    `gorm:"type:uuid;primary_key" json:"id"`
	Name      string         `gorm:"not null" json:"name"`
	Icon      string         `json:"icon,omitempty"`
	CreatedBy UserID         `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BeforeCreate generates an ID if not set.
func (t *TeamSpace) BeforeCreate(tx *gorm.DB) error {
	if t.ID.IsZero() {
		t.ID = NewTeamSpaceID()
	}
	return nil
}

// TeamSpaceMember is a membership row carrying the member's role.
type TeamSpaceMember struct {
	ID          MemberID    `gorm:"type:uuid;primary_key" json:"id"`
	TeamSpaceID TeamSpaceID `gorm:"type:uuid;not null;uniqueIndex:idx_space_user" json:"team_space_id"`
	UserID      UserID      `gorm:"type:uuid;not null;uniqueIndex:idx_space_user" json:"user_id"`
	Role        MemberRole  `gorm:"not null" json:"role"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// BeforeCreate generates an ID if not set.
func (m *TeamSpaceMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID.IsZero() {
		m.ID = NewMemberID()
	}
	return nil
}

// Comment is an annotation on a page, attributed to a user.
type Comment struct {
	ID         CommentID      `gorm:"type:uuid;primary_key" json:"id"`
	PageID     PageID         `gorm:"type:uuid;not null;index" json:"page_id"`
	UserID     UserID         `gorm:"type:uuid;not null" json:"user_id"`
	Content    string         `gorm:"type:text;not null" json:"content"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BeforeCreate generates an ID if not set.
func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID.IsZero() {
		c.ID = NewCommentID()
	}
	return nil
}

// User is an account profile. Authentication lives outside this service;
// the profile exists so owners, members and comment authors resolve to
// something displayable.
type User struct {
	ID        UserID         `gorm:"type:uuid;primary_key" json:"id"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Name      string         `gorm:"not null" json:"name"`
	AvatarURL string         `json:"avatar_url,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BeforeCreate generates an ID if not set.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID.IsZero() {
		u.ID = NewUserID()
	}
	return nil
}

// Clone deep-copies the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

// NotificationKind classifies an inbox notification.
type NotificationKind string

const (
	NotificationMention      NotificationKind = "mention"
	NotificationAssignment   NotificationKind = "assignment"
	NotificationStatusChange NotificationKind = "status-change"
	NotificationComment      NotificationKind = "comment"
	NotificationInfo         NotificationKind = "info"
)

// Notification is one inbox entry for a user. Notifications are append-only
// signals: they are never versioned or edited, only marked read in bulk.
type Notification struct {
	ID        NotificationID   `gorm:"type:uuid;primary_key" json:"id"`
	UserID    UserID           `gorm:"type:uuid;not null;index" json:"user_id"`
	Kind      NotificationKind `gorm:"not null;default:info" json:"kind"`
	Title     string           `gorm:"not null" json:"title"`
	Message   string           `gorm:"type:text" json:"message,omitempty"`
	Link      string           `json:"link,omitempty"`
	Read      bool             `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// BeforeCreate generates an ID if not set.
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID.IsZero() {
		n.ID = NewNotificationID()
	}
	return nil
}

// Clone returns a copy.
func (n *Notification) Clone() *Notification {
	cp := *n
	return &cp
}

// StringList stores a list of strings as a JSON array. PostgreSQL keeps it
// in a JSONB column; SurrealDB stores it as a native array.
type StringList []string

// Value implements driver.Valuer for database storage.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for database retrieval.
func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		bytes = []byte(value.(string))
	}
	return json.Unmarshal(bytes, l)
}

// Clone returns a copy of the list.
func (l StringList) Clone() StringList {
	if l == nil {
		return nil
	}
	out := make(StringList, len(l))
	copy(out, l)
	return out
}

// Meeting is a scheduled meeting on the workspace calendar, with free-form
// notes and an email list of participants.
type Meeting struct {
	ID           MeetingID  `gorm:"type:uuid;primary_key" json:"id"`
	Title        string     `gorm:"not null" json:"title"`
	Date         time.Time  `gorm:"not null;index" json:"date"`
	Participants StringList `gorm:"type:jsonb" json:"participants,omitempty"`
	Notes        string     `gorm:"type:text" json:"notes,omitempty"`
	CreatedBy    UserID     `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// BeforeCreate generates an ID if not set.
func (m *Meeting) BeforeCreate(tx *gorm.DB) error {
	if m.ID.IsZero() {
		m.ID = NewMeetingID()
	}
	return nil
}

// Clone returns a deep copy.
func (m *Meeting) Clone() *Meeting {
	cp := *m
	cp.Participants = m.Participants.Clone()
	return &cp
}
