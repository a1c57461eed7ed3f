// Package memory provides the in-process reference implementation of
// [store.Store]. It backs the test suites and doubles as the semantic
// baseline the PostgreSQL and SurrealDB backends are held to: conditional
// block writes, upsert-on-conflict property values, soft-deleted trash and
// an at-least-once change feed.
//
// Every record handed out is a deep copy; callers can never mutate the
// store's state through a returned pointer.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/notewave/notewave/pkg/models"
	"github.com/notewave/notewave/pkg/store"
	"gorm.io/gorm"
)

type valueKey struct {
	page     models.PageID
	property models.PropertyID
}

// Store is an in-memory store.Store with a realtime hub.
type Store struct {
	mu sync.RWMutex

	pages         map[models.PageID]*models.Page
	blocks        map[models.BlockID]*models.Block
	databases     map[models.DatabaseID]*models.Database
	dbByPage      map[models.PageID]models.DatabaseID
	properties    map[models.PropertyID]*models.DatabaseProperty
	values        map[valueKey]*models.PagePropertyValue
	spaces        map[models.TeamSpaceID]*models.TeamSpace
	members       map[models.MemberID]*models.TeamSpaceMember
	comments      map[models.CommentID]*models.Comment
	users         map[models.UserID]*models.User
	notifications map[models.NotificationID]*models.Notification
	meetings      map[models.MeetingID]*models.Meeting

	hub *hub
	now func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		pages:         make(map[models.PageID]*models.Page),
		blocks:        make(map[models.BlockID]*models.Block),
		databases:     make(map[models.DatabaseID]*models.Database),
		dbByPage:      make(map[models.PageID]models.DatabaseID),
		properties:    make(map[models.PropertyID]*models.DatabaseProperty),
		values:        make(map[valueKey]*models.PagePropertyValue),
		spaces:        make(map[models.TeamSpaceID]*models.TeamSpace),
		members:       make(map[models.MemberID]*models.TeamSpaceMember),
		comments:      make(map[models.CommentID]*models.Comment),
		users:         make(map[models.UserID]*models.User),
		notifications: make(map[models.NotificationID]*models.Notification),
		meetings:      make(map[models.MeetingID]*models.Meeting),
		hub:           newHub(),
		now:           time.Now,
	}
}

// SetClock replaces the timestamp source. Test hook.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// Migrate is a no-op: maps need no schema.
func (s *Store) Migrate(ctx context.Context) error { return nil }

// Close tears down the hub; open subscriptions are closed.
func (s *Store) Close() error {
	s.hub.closeAll()
	return nil
}

// publish resolves the database scope of the event's page (if it is a
// database row) and fans out to matching subscribers. Called outside the
// store lock so slow consumers cannot block writers.
func (s *Store) publish(ev store.Event) {
	var dbID *models.DatabaseID
	s.mu.RLock()
	if p, ok := s.pages[ev.PageID]; ok && p.ParentDatabaseID != nil {
		id := *p.ParentDatabaseID
		dbID = &id
	}
	s.mu.RUnlock()
	s.hub.publish(ev, dbID)
}

// Pages

func (s *Store) CreatePage(ctx context.Context, page *models.Page) error {
	if page.ID.IsZero() {
		page.ID = models.NewPageID()
	}
	if page.Type == "" {
		page.Type = models.PageTypeBlank
	}
	now := s.now()
	page.CreatedAt = now
	page.UpdatedAt = now

	s.mu.Lock()
	s.pages[page.ID] = page.Clone()
	s.mu.Unlock()

	s.publish(store.Event{Table: models.TablePages, Action: store.ActionCreate, PageID: page.ID})
	return nil
}

func (s *Store) GetPage(ctx context.Context, id models.PageID) (*models.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pages[id]
	if !ok {
		return nil, &store.NotFoundError{Table: models.TablePages, ID: id.String()}
	}
	return p.Clone(), nil
}

func (s *Store) UpdatePage(ctx context.Context, page *models.Page) error {
	s.mu.Lock()
	cur, ok := s.pages[page.ID]
	if !ok {
		s.mu.Unlock()
		return &store.NotFoundError{Table: models.TablePages, ID: page.ID.String()}
	}
	up := page.Clone()
	up.CreatedAt = cur.CreatedAt
	up.UpdatedAt = s.now()
	up.DeletedAt = cur.DeletedAt
	s.pages[page.ID] = up
	s.mu.Unlock()

	*page = *up.Clone()
	s.publish(store.Event{Table: models.TablePages, Action: store.ActionUpdate, PageID: page.ID})
	return nil
}

func (s *Store) TrashPage(ctx context.Context, id models.PageID) error {
	s.mu.Lock()
	p, ok := s.pages[id]
	if !ok {
		s.mu.Unlock()
		return &store.NotFoundError{Table: models.TablePages, ID: id.String()}
	}
	p.DeletedAt = gorm.DeletedAt{Time: s.now(), Valid: true}
	s.mu.Unlock()

	s.publish(store.Event{Table: models.TablePages, Action: store.ActionUpdate, PageID: id})
	return nil
}

func (s *Store) RestorePage(ctx context.Context, id models.PageID) error {
	s.mu.Lock()
	p, ok := s.pages[id]
	if !ok {
		s.mu.Unlock()
		return &store.NotFoundError{Table: models.TablePages, ID: id.String()}
	}
	p.DeletedAt = gorm.DeletedAt{}
	s.mu.Unlock()

	s.publish(store.Event{Table: models.TablePages, Action: store.ActionUpdate, PageID: id})
	return nil
}

func (s *Store) DeletePage(ctx context.Context, id models.PageID) error {
	s.mu.Lock()
	if _, ok := s.pages[id]; !ok {
		s.mu.Unlock()
		return &store.NotFoundError{Table: models.TablePages, ID: id.String()}
	}
	delete(s.pages, id)
	for bid, b := range s.blocks {
		if b.PageID == id {
			delete(s.blocks, bid)
		}
	}
	for key := range s.values {
		if key.page == id {
			delete(s.values, key)
		}
	}
	for cid, c := range s.comments {
		if c.PageID == id {
			delete(s.comments, cid)
		}
	}
	if dbID, ok := s.dbByPage[id]; ok {
		for pid, prop := range s.properties {
			if prop.DatabaseID == dbID {
				delete(s.properties, pid)
			}
		}
		delete(s.databases, dbID)
		delete(s.dbByPage, id)
	}
	s.mu.Unlock()

	s.publish(store.Event{Table: models.TablePages, Action: store.ActionDelete, PageID: id})
	return nil
}

func (s *Store) listPages(match func(*models.Page) bool) []*models.Page {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Page
	for _, p := range s.pages {
		if match(p) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if out == nil {
		out = []*models.Page{}
	}
	return out
}

func (s *Store) ListPrivatePages(ctx context.Context, ownerID models.UserID) ([]*models.Page, error) {
	return s.listPages(func(p *models.Page) bool {
		return !p.DeletedAt.Valid && p.OwnerID == ownerID &&
			p.TeamSpaceID == nil && p.ParentDatabaseID == nil
	}), nil
}

func (s *Store) ListTeamPages(ctx context.Context, teamSpaceID models.TeamSpaceID) ([]*models.Page, error) {
	return s.listPages(func(p *models.Page) bool {
		return !p.DeletedAt.Valid && p.TeamSpaceID != nil && *p.TeamSpaceID == teamSpaceID &&
			p.ParentDatabaseID == nil
	}), nil
}

func (s *Store) ListChildPages(ctx context.Context, parentPageID models.PageID) ([]*models.Page, error) {
	return s.listPages(func(p *models.Page) bool {
		return !p.DeletedAt.Valid && p.ParentPageID != nil && *p.ParentPageID == parentPageID
	}), nil
}

func (s *Store) ListTrashedPages(ctx context.Context, ownerID models.UserID) ([]*models.Page, error) {
	return s.listPages(func(p *models.Page) bool {
		return p.DeletedAt.Valid && p.OwnerID == ownerID
	}), nil
}

func (s *Store) ListDatabaseRows(ctx context.Context, databaseID models.DatabaseID) ([]*models.Page, error) {
	return s.listPages(func(p *models.Page) bool {
		return !p.DeletedAt.Valid && p.ParentDatabaseID != nil && *p.ParentDatabaseID == databaseID
	}), nil
}

// Blocks

func (s *Store) CreateBlock(ctx context.Context, block *models.Block) error {
	if block.ID.IsZero() {
		block.ID = models.NewBlockID()
	}
	if block.Type == "" {
		return &store.ValidationError{Field: "type", Reason: "block type is required"}
	}
	now := s.now()
	block.CreatedAt = now
	block.UpdatedAt = now
	block.Version = 0

	s.mu.Lock()
	if _, ok := s.pages[block.PageID]; !ok {
		s.mu.Unlock()
		return &store.NotFoundError{Table: models.TablePages, ID: block.PageID.String()}
	}
	s.blocks[block.ID] = block.Clone()
	s.mu.Unlock()

	s.publish(store.Event{Table: models.TableBlocks, Action: store.ActionCreate, PageID: block.PageID})
	return nil
}

func (s *Store) GetBlock(ctx context.Context, id models.BlockID) (*models.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blocks[id]
	if !ok || b.DeletedAt.Valid {
		return nil, &store.NotFoundError{Table: models.TableBlocks, ID: id.String()}
	}
	return b.Clone(), nil
}

func (s *Store) ListBlocks(ctx context.Context, pageID models.PageID) ([]*models.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Block{}
	for _, b := range s.blocks {
		if b.PageID == pageID && !b.DeletedAt.Valid {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out, nil
}

func (s *Store) UpdateBlockContent(ctx context.Context, id models.BlockID, patch store.ContentPatch, expectedVersion int64) (*models.Block, error) {
	s.mu.Lock()
	b, ok := s.blocks[id]
	if !ok || b.DeletedAt.Valid {
		s.mu.Unlock()
		return nil, &store.NotFoundError{Table: models.TableBlocks, ID: id.String()}
	}
	if b.Version != expectedVersion {
		current := b.Version
		s.mu.Unlock()
		return nil, &store.ConflictError{BlockID: id, ExpectedVersion: expectedVersion, CurrentVersion: current}
	}
	b.Content = patch.Content.Clone()
	b.PlainText = patch.PlainText
	b.Version++
	b.UpdatedAt = s.now()
	confirmed := b.Clone()
	pageID := b.PageID
	s.mu.Unlock()

	s.publish(store.Event{Table: models.TableBlocks, Action: store.ActionUpdate, PageID: pageID})
	return confirmed, nil
}

func (s *Store) UpdateBlockOrder(ctx context.Context, id models.BlockID, order int) error {
	s.mu.Lock()
	b, ok := s.blocks[id]
	if !ok || b.DeletedAt.Valid {
		s.mu.Unlock()
		return &store.NotFoundError{Table: models.TableBlocks, ID: id.String()}
	}
	b.Order = order
	b.UpdatedAt = s.now()
	pageID := b.PageID
	s.mu.Unlock()

	s.publish(store.Event{Table: models.TableBlocks, Action: store.ActionUpdate, PageID: pageID})
	return nil
}

func (s *Store) UpdateBlockType(ctx context.Context, id models.BlockID, blockType models.BlockType) error {
	if blockType == "" {
		return &store.ValidationError{Field: "type", Reason: "block type is required"}
	}
	s.mu.Lock()
	b, ok := s.blocks[id]
	if !ok || b.DeletedAt.Valid {
		s.mu.Unlock()
		return &store.NotFoundError{Table: models.TableBlocks, ID: id.String()}
	}
	b.Type = blockType
	b.UpdatedAt = s.now()
	pageID := b.PageID
	s.mu.Unlock()

	s.publish(store.Event{Table: models.TableBlocks, Action: store.ActionUpdate, PageID: pageID})
	return nil
}

func (s *Store) DeleteBlock(ctx context.Context, id models.BlockID) error {
	s.mu.Lock()
	b, ok := s.blocks[id]
	if !ok || b.DeletedAt.Valid {
		s.mu.Unlock()
		return &store.NotFoundError{Table: models.TableBlocks, ID: id.String()}
	}
	pageID := b.PageID
	delete(s.blocks, id)
	s.mu.Unlock()

	s.publish(store.Event{Table: models.TableBlocks, Action: store.ActionDelete, PageID: pageID})
	return nil
}

// Databases and properties

func (s *Store) CreateDatabase(ctx context.Context, database *models.Database) error {
	if database.ID.IsZero() {
		database.ID = models.NewDatabaseID()
	}
	now := s.now()
	database.CreatedAt = now
	database.UpdatedAt = now

	s.mu.Lock()
	if _, ok := s.pages[database.PageID]; !ok {
		s.mu.Unlock()
		return &store.NotFoundError{Table: models.TablePages, ID: database.PageID.String()}
	}
	if _, dup := s.dbByPage[database.PageID]; dup {
		s.mu.Unlock()
		return &store.ValidationError{Field: "page_id", Reason: "page already has a database"}
	}
	cp := *database
	s.databases[database.ID] = &cp
	s.dbByPage[database.PageID] = database.ID
	s.mu.Unlock()

	s.publish(store.Event{Table: models.TableDatabases, Action: store.ActionCreate, PageID: database.PageID})
	return nil
}

func (s *Store) GetDatabaseByPage(ctx context.Context, pageID models.PageID) (*models.Database, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dbID, ok := s.dbByPage[pageID]
	if !ok {
		return nil, &store.NotFoundError{Table: models.TableDatabases, ID: pageID.String()}
	}
	db := *s.databases[dbID]
	return &db, nil
}

func (s *Store) CreateProperty(ctx context.Context, property *models.DatabaseProperty) error {
	if property.ID.IsZero() {
		property.ID = models.NewPropertyID()
	}
	if property.Name == "" {
		return &store.ValidationError{Field: "name", Reason: "property name is required"}
	}
	now := s.now()
	property.CreatedAt = now
	property.UpdatedAt = now

	s.mu.Lock()
	db, ok := s.databases[property.DatabaseID]
	if !ok {
		s.mu.Unlock()
		return &store.NotFoundError{Table: models.TableDatabases, ID: property.DatabaseID.String()}
	}
	s.properties[property.ID] = property.Clone()
	pageID := db.PageID
	s.mu.Unlock()

	s.publish(store.Event{Table: models.TableProperties, Action: store.ActionCreate, PageID: pageID})
	return nil
}

func (s *Store) UpdateProperty(ctx context.Context, property *models.DatabaseProperty) error {
	s.mu.Lock()
	cur, ok := s.properties[property.ID]
	if !ok {
		s.mu.Unlock()
		return &store.NotFoundError{Table: models.TableProperties, ID: property.ID.String()}
	}
	up := property.Clone()
	up.DatabaseID = cur.DatabaseID
	up.CreatedAt = cur.CreatedAt
	up.UpdatedAt = s.now()
	s.properties[property.ID] = up
	pageID := s.databases[cur.DatabaseID].PageID
	s.mu.Unlock()

	s.publish(store.Event{Table: models.TableProperties, Action: store.ActionUpdate, PageID: pageID})
	return nil
}

func (s *Store) DeleteProperty(ctx context.Context, id models.PropertyID) error {
	s.mu.Lock()
	prop, ok := s.properties[id]
	if !ok {
		s.mu.Unlock()
		return &store.NotFoundError{Table: models.TableProperties, ID: id.String()}
	}
	delete(s.properties, id)
	for key := range s.values {
		if key.property == id {
			delete(s.values, key)
		}
	}
	pageID := s.databases[prop.DatabaseID].PageID
	s.mu.Unlock()

	s.publish(store.Event{Table: models.TableProperties, Action: store.ActionDelete, PageID: pageID})
	return nil
}

func (s *Store) ListProperties(ctx context.Context, databaseID models.DatabaseID) ([]*models.DatabaseProperty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.DatabaseProperty{}
	for _, p := range s.properties {
		if p.DatabaseID == databaseID {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// Property values

func (s *Store) UpsertPropertyValue(ctx context.Context, value *models.PagePropertyValue) error {
	s.mu.Lock()
	if _, ok := s.pages[value.PageID]; !ok {
		s.mu.Unlock()
		return &store.NotFoundError{Table: models.TablePages, ID: value.PageID.String()}
	}
	prop, ok := s.properties[value.PropertyID]
	if !ok {
		s.mu.Unlock()
		return &store.NotFoundError{Table: models.TableProperties, ID: value.PropertyID.String()}
	}
	if err := validateValue(prop, value.Value); err != nil {
		s.mu.Unlock()
		return err
	}

	key := valueKey{page: value.PageID, property: value.PropertyID}
	now := s.now()
	if existing, ok := s.values[key]; ok {
		existing.Value = value.Value.Clone()
		existing.UpdatedAt = now
		*value = *existing.Clone()
	} else {
		if value.ID.IsZero() {
			value.ID = models.NewPropertyValueID()
		}
		value.CreatedAt = now
		value.UpdatedAt = now
		s.values[key] = value.Clone()
	}
	pageID := value.PageID
	s.mu.Unlock()

	s.publish(store.Event{Table: models.TablePropertyValues, Action: store.ActionUpdate, PageID: pageID})
	return nil
}

func (s *Store) ListPropertyValues(ctx context.Context, pageIDs []models.PageID) ([]*models.PagePropertyValue, error) {
	wanted := make(map[models.PageID]bool, len(pageIDs))
	for _, id := range pageIDs {
		wanted[id] = true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.PagePropertyValue{}
	for _, v := range s.values {
		if wanted[v.PageID] {
			out = append(out, v.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// validateValue enforces the declared property type on the incoming value
// payload. Select and status values must reference a configured option name.
func validateValue(prop *models.DatabaseProperty, value models.JSONMap) error {
	if value == nil {
		return nil
	}
	raw, ok := value["value"]
	if !ok {
		return nil
	}
	switch prop.Type {
	case models.PropertyTypeNumber:
		switch raw.(type) {
		case float64, int, int64:
		default:
			return &store.ValidationError{Field: prop.Name, Reason: "number property requires a numeric value"}
		}
	case models.PropertyTypeCheckbox:
		if _, ok := raw.(bool); !ok {
			return &store.ValidationError{Field: prop.Name, Reason: "checkbox property requires a boolean value"}
		}
	case models.PropertyTypeSelect, models.PropertyTypeStatus:
		name, ok := raw.(string)
		if !ok {
			return &store.ValidationError{Field: prop.Name, Reason: "select property requires a string value"}
		}
		opts := prop.Options()
		if len(opts) == 0 {
			return nil
		}
		for _, o := range opts {
			if o.Name == name {
				return nil
			}
		}
		return &store.ValidationError{Field: prop.Name, Reason: "value is not one of the configured options"}
	}
	return nil
}

// Team spaces

func (s *Store) CreateTeamSpace(ctx context.Context, space *models.TeamSpace) error {
	if space.ID.IsZero() {
		space.ID = models.NewTeamSpaceID()
	}
	if space.Name == "" {
		return &store.ValidationError{Field: "name", Reason: "team space name is required"}
	}
	now := s.now()
	space.CreatedAt = now
	space.UpdatedAt = now

	s.mu.Lock()
	cp := *space
	s.spaces[space.ID] = &cp
	owner := &models.TeamSpaceMember{
		ID:          models.NewMemberID(),
		TeamSpaceID: space.ID,
		UserID:      space.CreatedBy,
		Role:        models.RoleOwner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.members[owner.ID] = owner
	s.mu.Unlock()
	return nil
}

func (s *Store) GetTeamSpace(ctx context.Context, id models.TeamSpaceID) (*models.TeamSpace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.spaces[id]
	if !ok {
		return nil, &store.NotFoundError{Table: models.TableTeamSpaces, ID: id.String()}
	}
	cp := *sp
	return &cp, nil
}

func (s *Store) ListTeamSpaces(ctx context.Context, userID models.UserID) ([]*models.TeamSpace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	memberOf := make(map[models.TeamSpaceID]bool)
	for _, m := range s.members {
		if m.UserID == userID {
			memberOf[m.TeamSpaceID] = true
		}
	}
	out := []*models.TeamSpace{}
	for id, sp := range s.spaces {
		if memberOf[id] {
			cp := *sp
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) AddTeamMember(ctx context.Context, member *models.TeamSpaceMember) error {
	if member.ID.IsZero() {
		member.ID = models.NewMemberID()
	}
	if member.Role == "" {
		return &store.ValidationError{Field: "role", Reason: "member role is required"}
	}
	now := s.now()
	member.CreatedAt = now
	member.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.spaces[member.TeamSpaceID]; !ok {
		return &store.NotFoundError{Table: models.TableTeamSpaces, ID: member.TeamSpaceID.String()}
	}
	for _, m := range s.members {
		if m.TeamSpaceID == member.TeamSpaceID && m.UserID == member.UserID {
			return &store.ValidationError{Field: "user_id", Reason: "user is already a member"}
		}
	}
	cp := *member
	s.members[member.ID] = &cp
	return nil
}

func (s *Store) RemoveTeamMember(ctx context.Context, id models.MemberID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[id]; !ok {
		return &store.NotFoundError{Table: models.TableTeamMembers, ID: id.String()}
	}
	delete(s.members, id)
	return nil
}

func (s *Store) ListTeamMembers(ctx context.Context, teamSpaceID models.TeamSpaceID) ([]*models.TeamSpaceMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.TeamSpaceMember{}
	for _, m := range s.members {
		if m.TeamSpaceID == teamSpaceID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// Users

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = models.NewUserID()
	}
	if user.Email == "" {
		return &store.ValidationError{Field: "email", Reason: "email is required"}
	}
	now := s.now()
	user.CreatedAt = now
	user.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return &store.ValidationError{Field: "email", Reason: "email is already registered"}
		}
	}
	s.users[user.ID] = user.Clone()
	return nil
}

func (s *Store) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, &store.NotFoundError{Table: models.TableUsers, ID: id.String()}
	}
	return u.Clone(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u.Clone(), nil
		}
	}
	return nil, &store.NotFoundError{Table: models.TableUsers, ID: email}
}

// Comments

func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment.ID.IsZero() {
		comment.ID = models.NewCommentID()
	}
	if comment.Content == "" {
		return &store.ValidationError{Field: "content", Reason: "comment content is required"}
	}
	now := s.now()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	s.mu.Lock()
	if _, ok := s.pages[comment.PageID]; !ok {
		s.mu.Unlock()
		return &store.NotFoundError{Table: models.TablePages, ID: comment.PageID.String()}
	}
	cp := *comment
	s.comments[comment.ID] = &cp
	s.mu.Unlock()

	s.publish(store.Event{Table: models.TableComments, Action: store.ActionCreate, PageID: comment.PageID})
	return nil
}

func (s *Store) ListComments(ctx context.Context, pageID models.PageID) ([]*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Comment{}
	for _, c := range s.comments {
		if c.PageID == pageID && !c.DeletedAt.Valid {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ResolveComment(ctx context.Context, id models.CommentID) error {
	s.mu.Lock()
	c, ok := s.comments[id]
	if !ok {
		s.mu.Unlock()
		return &store.NotFoundError{Table: models.TableComments, ID: id.String()}
	}
	now := s.now()
	c.ResolvedAt = &now
	c.UpdatedAt = now
	pageID := c.PageID
	s.mu.Unlock()

	s.publish(store.Event{Table: models.TableComments, Action: store.ActionUpdate, PageID: pageID})
	return nil
}

func (s *Store) DeleteComment(ctx context.Context, id models.CommentID) error {
	s.mu.Lock()
	c, ok := s.comments[id]
	if !ok {
		s.mu.Unlock()
		return &store.NotFoundError{Table: models.TableComments, ID: id.String()}
	}
	pageID := c.PageID
	delete(s.comments, id)
	s.mu.Unlock()

	s.publish(store.Event{Table: models.TableComments, Action: store.ActionDelete, PageID: pageID})
	return nil
}

// Notifications

func (s *Store) CreateNotification(ctx context.Context, notification *models.Notification) error {
	if notification.ID.IsZero() {
		notification.ID = models.NewNotificationID()
	}
	if notification.UserID.IsZero() {
		return &store.ValidationError{Field: "user_id", Reason: "notification needs a recipient"}
	}
	if notification.Title == "" {
		return &store.ValidationError{Field: "title", Reason: "notification title is required"}
	}
	if notification.Kind == "" {
		notification.Kind = models.NotificationInfo
	}
	now := s.now()
	notification.CreatedAt = now
	notification.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[notification.ID] = notification.Clone()
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, userID models.UserID) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Notification{}
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) MarkNotificationsRead(ctx context.Context, userID models.UserID) error {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			n.UpdatedAt = now
		}
	}
	return nil
}

// Meetings

func (s *Store) CreateMeeting(ctx context.Context, meeting *models.Meeting) error {
	if meeting.ID.IsZero() {
		meeting.ID = models.NewMeetingID()
	}
	if meeting.Title == "" {
		return &store.ValidationError{Field: "title", Reason: "meeting title is required"}
	}
	if meeting.Date.IsZero() {
		return &store.ValidationError{Field: "date", Reason: "meeting date is required"}
	}
	now := s.now()
	meeting.CreatedAt = now
	meeting.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings[meeting.ID] = meeting.Clone()
	return nil
}

func (s *Store) ListMeetings(ctx context.Context) ([]*models.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Meeting{}
	for _, m := range s.meetings {
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// Realtime

func (s *Store) Subscribe(ctx context.Context, table string, filter store.EventFilter) (store.Subscription, error) {
	return s.hub.subscribe(table, filter)
}
