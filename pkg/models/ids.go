package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Each entity gets its own ID type so a BlockID can never be passed where a
// PageID is expected. The wrappers marshal to plain UUID strings for JSON and
// PostgreSQL, and to SurrealDB RecordIDs (CBOR tag 8) for the surreal backend.

// PageID identifies a page.
type PageID struct {
	uuid uuid.UUID
}

func NewPageID() PageID                       { return PageID{uuid: uuid.New()} }
func NewPageIDFromUUID(id uuid.UUID) PageID   { return PageID{uuid: id} }

func ParsePageID(s string) (PageID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return PageID{}, fmt.Errorf("invalid page ID: %w", err)
	}
	return PageID{uuid: id}, nil
}

func (p PageID) UUID() uuid.UUID { return p.uuid }
func (p PageID) String() string  { return p.uuid.String() }
func (p PageID) IsZero() bool    { return p.uuid == uuid.Nil }

func (p PageID) RecordID() surrealmodels.RecordID {
	return surrealmodels.RecordID{Table: TablePages, ID: p.uuid.String()}
}

func (p PageID) MarshalJSON() ([]byte, error) { return marshalIDJSON(p.uuid) }
func (p *PageID) UnmarshalJSON(data []byte) error {
	return unmarshalIDJSON(data, &p.uuid)
}

func (p PageID) MarshalCBOR() ([]byte, error) { return marshalCBORID(TablePages, p.uuid) }
func (p *PageID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TablePages, &p.uuid)
}

func (p PageID) Value() (driver.Value, error) { return idValue(p.uuid) }
func (p *PageID) Scan(value any) error        { return scanUUID(value, &p.uuid) }
func (PageID) GormDataType() string           { return "uuid" }

// BlockID identifies a content block.
type BlockID struct {
	uuid uuid.UUID
}

func NewBlockID() BlockID                     { return BlockID{uuid: uuid.New()} }
func NewBlockIDFromUUID(id uuid.UUID) BlockID { return BlockID{uuid: id} }

func ParseBlockID(s string) (BlockID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return BlockID{}, fmt.Errorf("invalid block ID: %w", err)
	}
	return BlockID{uuid: id}, nil
}

func (b BlockID) UUID() uuid.UUID { return b.uuid }
func (b BlockID) String() string  { return b.uuid.String() }
func (b BlockID) IsZero() bool    { return b.uuid == uuid.Nil }

func (b BlockID) RecordID() surrealmodels.RecordID {
	return surrealmodels.RecordID{Table: TableBlocks, ID: b.uuid.String()}
}

func (b BlockID) MarshalJSON() ([]byte, error) { return marshalIDJSON(b.uuid) }
func (b *BlockID) UnmarshalJSON(data []byte) error {
	return unmarshalIDJSON(data, &b.uuid)
}

func (b BlockID) MarshalCBOR() ([]byte, error) { return marshalCBORID(TableBlocks, b.uuid) }
func (b *BlockID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TableBlocks, &b.uuid)
}

func (b BlockID) Value() (driver.Value, error) { return idValue(b.uuid) }
func (b *BlockID) Scan(value any) error        { return scanUUID(value, &b.uuid) }
func (BlockID) GormDataType() string           { return "uuid" }

// DatabaseID identifies a database sidecar record.
type DatabaseID struct {
	uuid uuid.UUID
}

func NewDatabaseID() DatabaseID                       { return DatabaseID{uuid: uuid.New()} }
func NewDatabaseIDFromUUID(id uuid.UUID) DatabaseID   { return DatabaseID{uuid: id} }

func ParseDatabaseID(s string) (DatabaseID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return DatabaseID{}, fmt.Errorf("invalid database ID: %w", err)
	}
	return DatabaseID{uuid: id}, nil
}

func (d DatabaseID) UUID() uuid.UUID { return d.uuid }
func (d DatabaseID) String() string  { return d.uuid.String() }
func (d DatabaseID) IsZero() bool    { return d.uuid == uuid.Nil }

func (d DatabaseID) RecordID() surrealmodels.RecordID {
	return surrealmodels.RecordID{Table: TableDatabases, ID: d.uuid.String()}
}

func (d DatabaseID) MarshalJSON() ([]byte, error) { return marshalIDJSON(d.uuid) }
func (d *DatabaseID) UnmarshalJSON(data []byte) error {
	return unmarshalIDJSON(data, &d.uuid)
}

func (d DatabaseID) MarshalCBOR() ([]byte, error) { return marshalCBORID(TableDatabases, d.uuid) }
func (d *DatabaseID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TableDatabases, &d.uuid)
}

func (d DatabaseID) Value() (driver.Value, error) { return idValue(d.uuid) }
func (d *DatabaseID) Scan(value any) error        { return scanUUID(value, &d.uuid) }
func (DatabaseID) GormDataType() string           { return "uuid" }

// PropertyID identifies a database property definition.
type PropertyID struct {
	uuid uuid.UUID
}

func NewPropertyID() PropertyID                     { return PropertyID{uuid: uuid.New()} }
func NewPropertyIDFromUUID(id uuid.UUID) PropertyID { return PropertyID{uuid: id} }

func ParsePropertyID(s string) (PropertyID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return PropertyID{}, fmt.Errorf("invalid property ID: %w", err)
	}
	return PropertyID{uuid: id}, nil
}

func (p PropertyID) UUID() uuid.UUID { return p.uuid }
func (p PropertyID) String() string  { return p.uuid.String() }
func (p PropertyID) IsZero() bool    { return p.uuid == uuid.Nil }

func (p PropertyID) RecordID() surrealmodels.RecordID {
	return surrealmodels.RecordID{Table: TableProperties, ID: p.uuid.String()}
}

func (p PropertyID) MarshalJSON() ([]byte, error) { return marshalIDJSON(p.uuid) }
func (p *PropertyID) UnmarshalJSON(data []byte) error {
	return unmarshalIDJSON(data, &p.uuid)
}

// Text marshaling lets PropertyID key JSON maps (row values are keyed by
// property).
func (p PropertyID) MarshalText() ([]byte, error) { return []byte(p.uuid.String()), nil }
func (p *PropertyID) UnmarshalText(data []byte) error {
	id, err := uuid.Parse(string(data))
	if err != nil {
		return fmt.Errorf("invalid property ID: %w", err)
	}
	p.uuid = id
	return nil
}

func (p PropertyID) MarshalCBOR() ([]byte, error) { return marshalCBORID(TableProperties, p.uuid) }
func (p *PropertyID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TableProperties, &p.uuid)
}

func (p PropertyID) Value() (driver.Value, error) { return idValue(p.uuid) }
func (p *PropertyID) Scan(value any) error        { return scanUUID(value, &p.uuid) }
func (PropertyID) GormDataType() string           { return "uuid" }

// PropertyValueID identifies a (page, property) value row.
type PropertyValueID struct {
	uuid uuid.UUID
}

func NewPropertyValueID() PropertyValueID                     { return PropertyValueID{uuid: uuid.New()} }
func NewPropertyValueIDFromUUID(id uuid.UUID) PropertyValueID { return PropertyValueID{uuid: id} }

func ParsePropertyValueID(s string) (PropertyValueID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return PropertyValueID{}, fmt.Errorf("invalid property value ID: %w", err)
	}
	return PropertyValueID{uuid: id}, nil
}

func (v PropertyValueID) UUID() uuid.UUID { return v.uuid }
func (v PropertyValueID) String() string  { return v.uuid.String() }
func (v PropertyValueID) IsZero() bool    { return v.uuid == uuid.Nil }

func (v PropertyValueID) RecordID() surrealmodels.RecordID {
	return surrealmodels.RecordID{Table: TablePropertyValues, ID: v.uuid.String()}
}

func (v PropertyValueID) MarshalJSON() ([]byte, error) { return marshalIDJSON(v.uuid) }
func (v *PropertyValueID) UnmarshalJSON(data []byte) error {
	return unmarshalIDJSON(data, &v.uuid)
}

func (v PropertyValueID) MarshalCBOR() ([]byte, error) {
	return marshalCBORID(TablePropertyValues, v.uuid)
}
func (v *PropertyValueID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TablePropertyValues, &v.uuid)
}

func (v PropertyValueID) Value() (driver.Value, error) { return idValue(v.uuid) }
func (v *PropertyValueID) Scan(value any) error        { return scanUUID(value, &v.uuid) }
func (PropertyValueID) GormDataType() string           { return "uuid" }

// TeamSpaceID identifies a team space.
type TeamSpaceID struct {
	uuid uuid.UUID
}

func NewTeamSpaceID() TeamSpaceID                     { return TeamSpaceID{uuid: uuid.New()} }
func NewTeamSpaceIDFromUUID(id uuid.UUID) TeamSpaceID { return TeamSpaceID{uuid: id} }

func ParseTeamSpaceID(s string) (TeamSpaceID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return TeamSpaceID{}, fmt.Errorf("invalid team space ID: %w", err)
	}
	return TeamSpaceID{uuid: id}, nil
}

func (t TeamSpaceID) UUID() uuid.UUID { return t.uuid }
func (t TeamSpaceID) String() string  { return t.uuid.String() }
func (t TeamSpaceID) IsZero() bool    { return t.uuid == uuid.Nil }

func (t TeamSpaceID) RecordID() surrealmodels.RecordID {
	return surrealmodels.RecordID{Table: TableTeamSpaces, ID: t.uuid.String()}
}

func (t TeamSpaceID) MarshalJSON() ([]byte, error) { return marshalIDJSON(t.uuid) }
func (t *TeamSpaceID) UnmarshalJSON(data []byte) error {
	return unmarshalIDJSON(data, &t.uuid)
}

func (t TeamSpaceID) MarshalCBOR() ([]byte, error) { return marshalCBORID(TableTeamSpaces, t.uuid) }
func (t *TeamSpaceID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TableTeamSpaces, &t.uuid)
}

func (t TeamSpaceID) Value() (driver.Value, error) { return idValue(t.uuid) }
func (t *TeamSpaceID) Scan(value any) error        { return scanUUID(value, &t.uuid) }
func (TeamSpaceID) GormDataType() string           { return "uuid" }

// MemberID identifies a team space membership row.
type MemberID struct {
	uuid uuid.UUID
}

func NewMemberID() MemberID                     { return MemberID{uuid: uuid.New()} }
func NewMemberIDFromUUID(id uuid.UUID) MemberID { return MemberID{uuid: id} }

func ParseMemberID(s string) (MemberID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return MemberID{}, fmt.Errorf("invalid member ID: %w", err)
	}
	return MemberID{uuid: id}, nil
}

func (m MemberID) UUID() uuid.UUID { return m.uuid }
func (m MemberID) String() string  { return m.uuid.String() }
func (m MemberID) IsZero() bool    { return m.uuid == uuid.Nil }

func (m MemberID) RecordID() surrealmodels.RecordID {
	return surrealmodels.RecordID{Table: TableTeamMembers, ID: m.uuid.String()}
}

func (m MemberID) MarshalJSON() ([]byte, error) { return marshalIDJSON(m.uuid) }
func (m *MemberID) UnmarshalJSON(data []byte) error {
	return unmarshalIDJSON(data, &m.uuid)
}

func (m MemberID) MarshalCBOR() ([]byte, error) { return marshalCBORID(TableTeamMembers, m.uuid) }
func (m *MemberID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TableTeamMembers, &m.uuid)
}

func (m MemberID) Value() (driver.Value, error) { return idValue(m.uuid) }
func (m *MemberID) Scan(value any) error        { return scanUUID(value, &m.uuid) }
func (MemberID) GormDataType() string           { return "uuid" }

// UserID identifies a user. Users are owned by the external identity
// provider; the core only ever references them.
type UserID struct {
	uuid uuid.UUID
}

func NewUserID() UserID                     { return UserID{uuid: uuid.New()} }
func NewUserIDFromUUID(id uuid.UUID) UserID { return UserID{uuid: id} }

func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, fmt.Errorf("invalid user ID: %w", err)
	}
	return UserID{uuid: id}, nil
}

func (u UserID) UUID() uuid.UUID { return u.uuid }
func (u UserID) String() string  { return u.uuid.String() }
func (u UserID) IsZero() bool    { return u.uuid == uuid.Nil }

func (u UserID) RecordID() surrealmodels.RecordID {
	return surrealmodels.RecordID{Table: TableUsers, ID: u.uuid.String()}
}

func (u UserID) MarshalJSON() ([]byte, error) { return marshalIDJSON(u.uuid) }
func (u *UserID) UnmarshalJSON(data []byte) error {
	return unmarshalIDJSON(data, &u.uuid)
}

func (u UserID) MarshalCBOR() ([]byte, error) { return marshalCBORID(TableUsers, u.uuid) }
func (u *UserID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TableUsers, &u.uuid)
}

func (u UserID) Value() (driver.Value, error) { return idValue(u.uuid) }
func (u *UserID) Scan(value any) error        { return scanUUID(value, &u.uuid) }
func (UserID) GormDataType() string           { return "uuid" }

// CommentID identifies a comment.
type CommentID struct {
	uuid uuid.UUID
}

func NewCommentID() CommentID                     { return CommentID{uuid: uuid.New()} }
func NewCommentIDFromUUID(id uuid.UUID) CommentID { return CommentID{uuid: id} }

func ParseCommentID(s string) (CommentID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return CommentID{}, fmt.Errorf("invalid comment ID: %w", err)
	}
	return CommentID{uuid: id}, nil
}

func (c CommentID) UUID() uuid.UUID { return c.uuid }
func (c CommentID) String() string  { return c.uuid.String() }
func (c CommentID) IsZero() bool    { return c.uuid == uuid.Nil }

func (c CommentID) RecordID() surrealmodels.RecordID {
	return surrealmodels.RecordID{Table: TableComments, ID: c.uuid.String()}
}

func (c CommentID) MarshalJSON() ([]byte, error) { return marshalIDJSON(c.uuid) }
func (c *CommentID) UnmarshalJSON(data []byte) error {
	return unmarshalIDJSON(data, &c.uuid)
}

func (c CommentID) MarshalCBOR() ([]byte, error) { return marshalCBORID(TableComments, c.uuid) }
func (c *CommentID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TableComments, &c.uuid)
}

func (c CommentID) Value() (driver.Value, error) { return idValue(c.uuid) }
func (c *CommentID) Scan(value any) error        { return scanUUID(value, &c.uuid) }
func (CommentID) GormDataType() string           { return "uuid" }

// NotificationID identifies an inbox notification.
type NotificationID struct {
	uuid uuid.UUID
}

func NewNotificationID() NotificationID                     { return NotificationID{uuid: uuid.New()} }
func NewNotificationIDFromUUID(id uuid.UUID) NotificationID { return NotificationID{uuid: id} }

func ParseNotificationID(s string) (NotificationID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NotificationID{}, fmt.Errorf("invalid notification ID: %w", err)
	}
	return NotificationID{uuid: id}, nil
}

func (n NotificationID) UUID() uuid.UUID { return n.uuid }
func (n NotificationID) String() string  { return n.uuid.String() }
func (n NotificationID) IsZero() bool    { return n.uuid == uuid.Nil }

func (n NotificationID) RecordID() surrealmodels.RecordID {
	return surrealmodels.RecordID{Table: TableNotifications, ID: n.uuid.String()}
}

func (n NotificationID) MarshalJSON() ([]byte, error) { return marshalIDJSON(n.uuid) }
func (n *NotificationID) UnmarshalJSON(data []byte) error {
	return unmarshalIDJSON(data, &n.uuid)
}

func (n NotificationID) MarshalCBOR() ([]byte, error) {
	return marshalCBORID(TableNotifications, n.uuid)
}
func (n *NotificationID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TableNotifications, &n.uuid)
}

func (n NotificationID) Value() (driver.Value, error) { return idValue(n.uuid) }
func (n *NotificationID) Scan(value any) error        { return scanUUID(value, &n.uuid) }
func (NotificationID) GormDataType() string           { return "uuid" }

// MeetingID identifies a meeting.
type MeetingID struct {
	uuid uuid.UUID
}

func NewMeetingID() MeetingID                     { return MeetingID{uuid: uuid.New()} }
func NewMeetingIDFromUUID(id uuid.UUID) MeetingID { return MeetingID{uuid: id} }

func ParseMeetingID(s string) (MeetingID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return MeetingID{}, fmt.Errorf("invalid meeting ID: %w", err)
	}
	return MeetingID{uuid: id}, nil
}

func (m MeetingID) UUID() uuid.UUID { return m.uuid }
func (m MeetingID) String() string  { return m.uuid.String() }
func (m MeetingID) IsZero() bool    { return m.uuid == uuid.Nil }

func (m MeetingID) RecordID() surrealmodels.RecordID {
	return surrealmodels.RecordID{Table: TableMeetings, ID: m.uuid.String()}
}

func (m MeetingID) MarshalJSON() ([]byte, error) { return marshalIDJSON(m.uuid) }
func (m *MeetingID) UnmarshalJSON(data []byte) error {
	return unmarshalIDJSON(data, &m.uuid)
}

func (m MeetingID) MarshalCBOR() ([]byte, error) { return marshalCBORID(TableMeetings, m.uuid) }
func (m *MeetingID) UnmarshalCBOR(data []byte) error {
	return unmarshalCBORID(data, TableMeetings, &m.uuid)
}

func (m MeetingID) Value() (driver.Value, error) { return idValue(m.uuid) }
func (m *MeetingID) Scan(value any) error        { return scanUUID(value, &m.uuid) }
func (MeetingID) GormDataType() string           { return "uuid" }

// Table names shared by every backend. The PostgreSQL schema, the SurrealDB
// record IDs and the realtime change events all use these.
const (
	TablePages          = "pages"
	TableBlocks         = "blocks"
	TableDatabases      = "databases"
	TableProperties     = "database_properties"
	TablePropertyValues = "page_property_values"
	TableTeamSpaces     = "team_spaces"
	TableTeamMembers    = "team_members"
	TableComments       = "comments"
	TableUsers          = "users"
	TableNotifications  = "notifications"
	TableMeetings       = "meetings"
)

func marshalIDJSON(id uuid.UUID) ([]byte, error) {
	return json.Marshal(id.String())
}

func unmarshalIDJSON(data []byte, target *uuid.UUID) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	*target = id
	return nil
}

// marshalCBORID encodes the ID as a SurrealDB RecordID (CBOR tag 8,
// [table, id] content) so typed IDs stored through the surreal backend become
// real record links rather than bare strings.
func marshalCBORID(table string, id uuid.UUID) ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  8,
		Content: []any{table, id.String()},
	})
}

func unmarshalCBORID(data []byte, expectedTable string, target *uuid.UUID) error {
	if len(data) == 0 {
		return fmt.Errorf("empty CBOR data")
	}
	if majorType := data[0] >> 5; majorType != 6 {
		return fmt.Errorf("expected CBOR tag for RecordID, got major type %d", majorType)
	}

	var tag cbor.Tag
	if err := cbor.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("failed to unmarshal CBOR tag: %w", err)
	}
	if tag.Number != 8 {
		return fmt.Errorf("expected RecordID tag (8), got %d", tag.Number)
	}

	arr, ok := tag.Content.([]any)
	if !ok || len(arr) != 2 {
		return fmt.Errorf("invalid RecordID format: expected [table, id] array")
	}
	table, ok := arr[0].(string)
	if !ok {
		return fmt.Errorf("invalid RecordID format: table name must be string")
	}
	if table != expectedTable {
		return fmt.Errorf("expected table %s, got %s", expectedTable, table)
	}
	idStr, ok := arr[1].(string)
	if !ok {
		return fmt.Errorf("invalid RecordID format: ID must be string")
	}
	parsed, err := uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("invalid UUID in RecordID: %w", err)
	}

	*target = parsed
	return nil
}

func idValue(id uuid.UUID) (driver.Value, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return id.String(), nil
}

func scanUUID(value any, target *uuid.UUID) error {
	if value == nil {
		*target = uuid.Nil
		return nil
	}
	switch v := value.(type) {
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return err
		}
		*target = id
	case []byte:
		id, err := uuid.ParseBytes(v)
		if err != nil {
			return err
		}
		*target = id
	default:
		return fmt.Errorf("cannot scan type %T into UUID", value)
	}
	return nil
}
