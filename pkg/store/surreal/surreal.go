// Package surreal implements store.Store on SurrealDB over its websocket
// RPC, including the realtime feed: Subscribe opens a live query on the
// table and translates its notifications into invalidation events.
//
// All queries are parameterized SurrealQL; typed IDs marshal to record IDs
// through the CBOR codec, so no query ever interpolates a user-provided
// value. The version precondition on block content compiles to
// UPDATE ... WHERE version = $expected RETURN AFTER: an empty result with
// the record present means the caller lost the race.
package surreal

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/surrealcbor"

	"github.com/notewave/notewave/pkg/models"
	"github.com/notewave/notewave/pkg/store"
)

// Config holds the connection parameters.
type Config struct {
	URL       string // websocket endpoint, e.g. ws://localhost:8000/rpc
	Namespace string
	Database  string
	Username  string
	Password  string
}

// Store is the SurrealDB-backed store.
type Store struct {
	db *surrealdb.DB
}

// New connects to SurrealDB with the CBOR codec wired in. The codec is
// what keeps time.Time and record IDs intact across the wire; the default
// marshaling does not produce SurrealDB-compatible datetimes.
func New(ctx context.Context, cfg Config) (*Store, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, &store.ValidationError{Field: "url", Reason: err.Error()}
	}

	conf := connection.NewConfig(u)
	codec := surrealcbor.New()
	conf.Marshaler = codec
	conf.Unmarshaler = codec

	conn := gorillaws.New(conf)
	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		return nil, &store.TransportError{Op: "connect", Err: err}
	}

	if cfg.Username != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": cfg.Username,
			"pass": cfg.Password,
		}); err != nil {
			return nil, &store.TransportError{Op: "signin", Err: err}
		}
	}
	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		return nil, &store.TransportError{Op: "use", Err: err}
	}
	return &Store{db: db}, nil
}

// Migrate defines the unique index the upsert path depends on. SurrealDB
// creates tables on first insert, so this is all the schema there is.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		"DEFINE INDEX IF NOT EXISTS idx_page_property ON TABLE page_property_values COLUMNS page_id, property_id UNIQUE",
		"DEFINE INDEX IF NOT EXISTS idx_user_email ON TABLE users COLUMNS email UNIQUE",
	}
	for _, stmt := range stmts {
		if _, err := surrealdb.Query[any](ctx, s.db, stmt, nil); err != nil {
			return &store.TransportError{Op: "migrate", Err: err}
		}
	}
	return nil
}

// Close shuts down the websocket connection.
func (s *Store) Close() error {
	return s.db.Close(context.Background())
}

// querySlice runs q and returns the first statement's rows.
func querySlice[T any](ctx context.Context, s *Store, q string, vars map[string]any) ([]T, error) {
	res, err := surrealdb.Query[[]T](ctx, s.db, q, vars)
	if err != nil {
		return nil, &store.TransportError{Op: "query", Err: err}
	}
	if res == nil || len(*res) == 0 {
		return nil, nil
	}
	return (*res)[0].Result, nil
}

// queryOne runs q and returns the single row, or nil when none matched.
func queryOne[T any](ctx context.Context, s *Store, q string, vars map[string]any) (*T, error) {
	rows, err := querySlice[T](ctx, s, q, vars)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func exec(ctx context.Context, s *Store, q string, vars map[string]any) error {
	_, err := surrealdb.Query[any](ctx, s.db, q, vars)
	if err != nil {
		return &store.TransportError{Op: "query", Err: err}
	}
	return nil
}

// Pages

func (s *Store) CreatePage(ctx context.Context, page *models.Page) error {
	if page.ID.IsZero() {
		page.ID = models.NewPageID()
	}
	if page.Type == "" {
		page.Type = models.PageTypeBlank
	}
	now := time.Now().UTC()
	page.CreatedAt = now
	page.UpdatedAt = now

	rec := pageToRecord(page)
	created, err := queryOne[pageRecord](ctx, s, "CREATE $id CONTENT $data", map[string]any{
		"id":   page.ID,
		"data": rec,
	})
	if err != nil {
		return err
	}
	if created == nil {
		return &store.TransportError{Op: "create_page", Err: fmt.Errorf("empty create result")}
	}
	return nil
}

func (s *Store) GetPage(ctx context.Context, id models.PageID) (*models.Page, error) {
	rec, err := queryOne[pageRecord](ctx, s,
		"SELECT * FROM $id WHERE deleted_at IS NONE", map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &store.NotFoundError{Table: models.TablePages, ID: id.String()}
	}
	return rec.toModel(), nil
}

func (s *Store) UpdatePage(ctx context.Context, page *models.Page) error {
	page.UpdatedAt = time.Now().UTC()
	updated, err := queryOne[pageRecord](ctx, s, `
		UPDATE $id SET
			title = $title, icon = $icon, cover_image = $cover,
			type = $type, team_space_id = $team_space_id,
			parent_page_id = $parent_page_id, favorite = $favorite,
			position = $position, updated_at = $updated_at
		RETURN AFTER`,
		map[string]any{
			"id":             page.ID,
			"title":          page.Title,
			"icon":           page.Icon,
			"cover":          page.CoverImage,
			"type":           page.Type,
			"team_space_id":  page.TeamSpaceID,
			"parent_page_id": page.ParentPageID,
			"favorite":       page.Favorite,
			"position":       page.Position,
			"updated_at":     page.UpdatedAt,
		})
	if err != nil {
		return err
	}
	if updated == nil {
		return &store.NotFoundError{Table: models.TablePages, ID: page.ID.String()}
	}
	return nil
}

func (s *Store) TrashPage(ctx context.Context, id models.PageID) error {
	updated, err := queryOne[pageRecord](ctx, s,
		"UPDATE $id SET deleted_at = time::now() RETURN AFTER", map[string]any{"id": id})
	if err != nil {
		return err
	}
	if updated == nil {
		return &store.NotFoundError{Table: models.TablePages, ID: id.String()}
	}
	return nil
}

func (s *Store) RestorePage(ctx context.Context, id models.PageID) error {
	updated, err := queryOne[pageRecord](ctx, s,
		"UPDATE $id SET deleted_at = NONE RETURN AFTER", map[string]any{"id": id})
	if err != nil {
		return err
	}
	if updated == nil {
		return &store.NotFoundError{Table: models.TablePages, ID: id.String()}
	}
	return nil
}

func (s *Store) DeletePage(ctx context.Context, id models.PageID) error {
	page, err := queryOne[pageRecord](ctx, s, "SELECT * FROM $id", map[string]any{"id": id})
	if err != nil {
		return err
	}
	if page == nil {
		return &store.NotFoundError{Table: models.TablePages, ID: id.String()}
	}
	vars := map[string]any{"page": id}
	if err := exec(ctx, s, "DELETE blocks WHERE page_id = $page", vars); err != nil {
		return err
	}
	if err := exec(ctx, s, "DELETE page_property_values WHERE page_id = $page", vars); err != nil {
		return err
	}
	if err := exec(ctx, s, "DELETE comments WHERE page_id = $page", vars); err != nil {
		return err
	}
	database, err := queryOne[databaseRecord](ctx, s,
		"SELECT * FROM databases WHERE page_id = $page", vars)
	if err != nil {
		return err
	}
	if database != nil {
		if err := exec(ctx, s, "DELETE database_properties WHERE database_id = $db",
			map[string]any{"db": database.ID}); err != nil {
			return err
		}
		if err := exec(ctx, s, "DELETE $db", map[string]any{"db": database.ID}); err != nil {
			return err
		}
	}
	return exec(ctx, s, "DELETE $id", map[string]any{"id": id})
}

func (s *Store) ListPrivatePages(ctx context.Context, ownerID models.UserID) ([]*models.Page, error) {
	recs, err := querySlice[pageRecord](ctx, s, `
		SELECT * FROM pages
		WHERE owner_id = $owner AND team_space_id IS NONE
			AND parent_database_id IS NONE AND deleted_at IS NONE
		ORDER BY position, id`,
		map[string]any{"owner": ownerID})
	return pagesToModels(recs), err
}

func (s *Store) ListTeamPages(ctx context.Context, teamSpaceID models.TeamSpaceID) ([]*models.Page, error) {
	recs, err := querySlice[pageRecord](ctx, s, `
		SELECT * FROM pages
		WHERE team_space_id = $space AND parent_database_id IS NONE AND deleted_at IS NONE
		ORDER BY position, id`,
		map[string]any{"space": teamSpaceID})
	return pagesToModels(recs), err
}

func (s *Store) ListChildPages(ctx context.Context, parentPageID models.PageID) ([]*models.Page, error) {
	recs, err := querySlice[pageRecord](ctx, s, `
		SELECT * FROM pages
		WHERE parent_page_id = $parent AND deleted_at IS NONE
		ORDER BY position, id`,
		map[string]any{"parent": parentPageID})
	return pagesToModels(recs), err
}

func (s *Store) ListTrashedPages(ctx context.Context, ownerID models.UserID) ([]*models.Page, error) {
	recs, err := querySlice[pageRecord](ctx, s, `
		SELECT * FROM pages
		WHERE owner_id = $owner AND deleted_at IS NOT NONE
		ORDER BY deleted_at DESC`,
		map[string]any{"owner": ownerID})
	return pagesToModels(recs), err
}

func (s *Store) ListDatabaseRows(ctx context.Context, databaseID models.DatabaseID) ([]*models.Page, error) {
	recs, err := querySlice[pageRecord](ctx, s, `
		SELECT * FROM pages
		WHERE parent_database_id = $db AND deleted_at IS NONE
		ORDER BY position, id`,
		map[string]any{"db": databaseID})
	return pagesToModels(recs), err
}

// Blocks

func (s *Store) CreateBlock(ctx context.Context, block *models.Block) error {
	if block.ID.IsZero() {
		block.ID = models.NewBlockID()
	}
	if block.Type == "" {
		return &store.ValidationError{Field: "type", Reason: "block type is required"}
	}
	now := time.Now().UTC()
	block.CreatedAt = now
	block.UpdatedAt = now
	block.Version = 0

	created, err := queryOne[blockRecord](ctx, s, "CREATE $id CONTENT $data", map[string]any{
		"id":   block.ID,
		"data": blockToRecord(block),
	})
	if err != nil {
		return err
	}
	if created == nil {
		return &store.TransportError{Op: "create_block", Err: fmt.Errorf("empty create result")}
	}
	return nil
}

func (s *Store) GetBlock(ctx context.Context, id models.BlockID) (*models.Block, error) {
	rec, err := queryOne[blockRecord](ctx, s,
		"SELECT * FROM $id WHERE deleted_at IS NONE", map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &store.NotFoundError{Table: models.TableBlocks, ID: id.String()}
	}
	return rec.toModel(), nil
}

func (s *Store) ListBlocks(ctx context.Context, pageID models.PageID) ([]*models.Block, error) {
	recs, err := querySlice[blockRecord](ctx, s, `
		SELECT * FROM blocks
		WHERE page_id = $page AND deleted_at IS NONE
		ORDER BY sort_order, id`,
		map[string]any{"page": pageID})
	if err != nil {
		return nil, err
	}
	out := make([]*models.Block, len(recs))
	for i := range recs {
		out[i] = recs[i].toModel()
	}
	return out, nil
}

func (s *Store) UpdateBlockContent(ctx context.Context, id models.BlockID, patch store.ContentPatch, expectedVersion int64) (*models.Block, error) {
	updated, err := queryOne[blockRecord](ctx, s, `
		UPDATE $id SET
			content = $content, plain_text = $plain_text,
			version = version + 1, updated_at = time::now()
		WHERE version = $expected AND deleted_at IS NONE
		RETURN AFTER`,
		map[string]any{
			"id":         id,
			"content":    patch.Content,
			"plain_text": patch.PlainText,
			"expected":   expectedVersion,
		})
	if err != nil {
		return nil, err
	}
	if updated != nil {
		return updated.toModel(), nil
	}

	// Nothing matched: missing record or stale version.
	current, err := queryOne[blockRecord](ctx, s,
		"SELECT * FROM $id WHERE deleted_at IS NONE", map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, &store.NotFoundError{Table: models.TableBlocks, ID: id.String()}
	}
	return nil, &store.ConflictError{
		BlockID:         id,
		ExpectedVersion: expectedVersion,
		CurrentVersion:  current.Version,
	}
}

func (s *Store) UpdateBlockOrder(ctx context.Context, id models.BlockID, order int) error {
	updated, err := queryOne[blockRecord](ctx, s, `
		UPDATE $id SET sort_order = $order, updated_at = time::now()
		WHERE deleted_at IS NONE RETURN AFTER`,
		map[string]any{"id": id, "order": order})
	if err != nil {
		return err
	}
	if updated == nil {
		return &store.NotFoundError{Table: models.TableBlocks, ID: id.String()}
	}
	return nil
}

func (s *Store) UpdateBlockType(ctx context.Context, id models.BlockID, blockType models.BlockType) error {
	if blockType == "" {
		return &store.ValidationError{Field: "type", Reason: "block type is required"}
	}
	updated, err := queryOne[blockRecord](ctx, s, `
		UPDATE $id SET type = $type, updated_at = time::now()
		WHERE deleted_at IS NONE RETURN AFTER`,
		map[string]any{"id": id, "type": blockType})
	if err != nil {
		return err
	}
	if updated == nil {
		return &store.NotFoundError{Table: models.TableBlocks, ID: id.String()}
	}
	return nil
}

func (s *Store) DeleteBlock(ctx context.Context, id models.BlockID) error {
	existing, err := queryOne[blockRecord](ctx, s,
		"SELECT * FROM $id WHERE deleted_at IS NONE", map[string]any{"id": id})
	if err != nil {
		return err
	}
	if existing == nil {
		return &store.NotFoundError{Table: models.TableBlocks, ID: id.String()}
	}
	return exec(ctx, s, "DELETE $id", map[string]any{"id": id})
}

// Databases and properties

func (s *Store) CreateDatabase(ctx context.Context, database *models.Database) error {
	if database.ID.IsZero() {
		database.ID = models.NewDatabaseID()
	}
	now := time.Now().UTC()
	database.CreatedAt = now
	database.UpdatedAt = now

	existing, err := queryOne[databaseRecord](ctx, s,
		"SELECT * FROM databases WHERE page_id = $page", map[string]any{"page": database.PageID})
	if err != nil {
		return err
	}
	if existing != nil {
		return &store.ValidationError{Field: "page_id", Reason: "page already has a database"}
	}
	created, err := queryOne[databaseRecord](ctx, s, "CREATE $id CONTENT $data", map[string]any{
		"id":   database.ID,
		"data": databaseToRecord(database),
	})
	if err != nil {
		return err
	}
	if created == nil {
		return &store.TransportError{Op: "create_database", Err: fmt.Errorf("empty create result")}
	}
	return nil
}

func (s *Store) GetDatabaseByPage(ctx context.Context, pageID models.PageID) (*models.Database, error) {
	rec, err := queryOne[databaseRecord](ctx, s,
		"SELECT * FROM databases WHERE page_id = $page", map[string]any{"page": pageID})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &store.NotFoundError{Table: models.TableDatabases, ID: pageID.String()}
	}
	return rec.toModel(), nil
}

func (s *Store) CreateProperty(ctx context.Context, property *models.DatabaseProperty) error {
	if property.ID.IsZero() {
		property.ID = models.NewPropertyID()
	}
	if property.Name == "" {
		return &store.ValidationError{Field: "name", Reason: "property name is required"}
	}
	now := time.Now().UTC()
	property.CreatedAt = now
	property.UpdatedAt = now

	created, err := queryOne[propertyRecord](ctx, s, "CREATE $id CONTENT $data", map[string]any{
		"id":   property.ID,
		"data": propertyToRecord(property),
	})
	if err != nil {
		return err
	}
	if created == nil {
		return &store.TransportError{Op: "create_property", Err: fmt.Errorf("empty create result")}
	}
	return nil
}

func (s *Store) UpdateProperty(ctx context.Context, property *models.DatabaseProperty) error {
	property.UpdatedAt = time.Now().UTC()
	updated, err := queryOne[propertyRecord](ctx, s, `
		UPDATE $id SET
			name = $name, type = $type, config = $config,
			position = $position, updated_at = $updated_at
		RETURN AFTER`,
		map[string]any{
			"id":         property.ID,
			"name":       property.Name,
			"type":       property.Type,
			"config":     property.Config,
			"position":   property.Position,
			"updated_at": property.UpdatedAt,
		})
	if err != nil {
		return err
	}
	if updated == nil {
		return &store.NotFoundError{Table: models.TableProperties, ID: property.ID.String()}
	}
	return nil
}

func (s *Store) DeleteProperty(ctx context.Context, id models.PropertyID) error {
	existing, err := queryOne[propertyRecord](ctx, s,
		"SELECT * FROM $id", map[string]any{"id": id})
	if err != nil {
		return err
	}
	if existing == nil {
		return &store.NotFoundError{Table: models.TableProperties, ID: id.String()}
	}
	if err := exec(ctx, s, "DELETE page_property_values WHERE property_id = $prop",
		map[string]any{"prop": id}); err != nil {
		return err
	}
	return exec(ctx, s, "DELETE $id", map[string]any{"id": id})
}

func (s *Store) ListProperties(ctx context.Context, databaseID models.DatabaseID) ([]*models.DatabaseProperty, error) {
	recs, err := querySlice[propertyRecord](ctx, s, `
		SELECT * FROM database_properties
		WHERE database_id = $db
		ORDER BY position, id`,
		map[string]any{"db": databaseID})
	if err != nil {
		return nil, err
	}
	out := make([]*models.DatabaseProperty, len(recs))
	for i := range recs {
		out[i] = recs[i].toModel()
	}
	return out, nil
}

// Property values

func (s *Store) UpsertPropertyValue(ctx context.Context, value *models.PagePropertyValue) error {
	now := time.Now().UTC()
	// The record ID is derived from the (page, property) pair, so the write
	// is a single UPSERT against a known record: concurrent sessions target
	// the same record and stay last-write-wins, with no select-then-create
	// window for one of them to lose.
	id := propertyValueID(value.PageID, value.PropertyID)
	rec, err := queryOne[valueRecord](ctx, s, `
		UPSERT $id SET page_id = $page, property_id = $prop, value = $value,
			updated_at = $now, created_at = created_at ?? $now
		RETURN AFTER`,
		map[string]any{
			"id":    id,
			"page":  value.PageID,
			"prop":  value.PropertyID,
			"value": value.Value,
			"now":   now,
		})
	if err != nil {
		return err
	}
	if rec == nil {
		return &store.TransportError{Op: "upsert_value", Err: fmt.Errorf("empty upsert result")}
	}
	*value = *rec.toModel()
	return nil
}

func (s *Store) ListPropertyValues(ctx context.Context, pageIDs []models.PageID) ([]*models.PagePropertyValue, error) {
	if len(pageIDs) == 0 {
		return []*models.PagePropertyValue{}, nil
	}
	recs, err := querySlice[valueRecord](ctx, s, `
		SELECT * FROM page_property_values
		WHERE page_id IN $pages
		ORDER BY id`,
		map[string]any{"pages": pageIDs})
	if err != nil {
		return nil, err
	}
	out := make([]*models.PagePropertyValue, len(recs))
	for i := range recs {
		out[i] = recs[i].toModel()
	}
	return out, nil
}

// Team spaces

func (s *Store) CreateTeamSpace(ctx context.Context, space *models.TeamSpace) error {
	if space.ID.IsZero() {
		space.ID = models.NewTeamSpaceID()
	}
	if space.Name == "" {
		return &store.ValidationError{Field: "name", Reason: "team space name is required"}
	}
	now := time.Now().UTC()
	space.CreatedAt = now
	space.UpdatedAt = now

	created, err := queryOne[teamSpaceRecord](ctx, s, "CREATE $id CONTENT $data", map[string]any{
		"id":   space.ID,
		"data": teamSpaceToRecord(space),
	})
	if err != nil {
		return err
	}
	if created == nil {
		return &store.TransportError{Op: "create_team_space", Err: fmt.Errorf("empty create result")}
	}
	owner := &models.TeamSpaceMember{
		ID:          models.NewMemberID(),
		TeamSpaceID: space.ID,
		UserID:      space.CreatedBy,
		Role:        models.RoleOwner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return exec(ctx, s, "CREATE $id CONTENT $data", map[string]any{
		"id":   owner.ID,
		"data": memberToRecord(owner),
	})
}

func (s *Store) GetTeamSpace(ctx context.Context, id models.TeamSpaceID) (*models.TeamSpace, error) {
	rec, err := queryOne[teamSpaceRecord](ctx, s,
		"SELECT * FROM $id", map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &store.NotFoundError{Table: models.TableTeamSpaces, ID: id.String()}
	}
	return rec.toModel(), nil
}

func (s *Store) ListTeamSpaces(ctx context.Context, userID models.UserID) ([]*models.TeamSpace, error) {
	members, err := querySlice[memberRecord](ctx, s,
		"SELECT * FROM team_members WHERE user_id = $user", map[string]any{"user": userID})
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return []*models.TeamSpace{}, nil
	}
	spaceIDs := make([]models.TeamSpaceID, len(members))
	for i, m := range members {
		spaceIDs[i] = m.TeamSpaceID
	}
	recs, err := querySlice[teamSpaceRecord](ctx, s, `
		SELECT * FROM team_spaces WHERE id IN $spaces ORDER BY name`,
		map[string]any{"spaces": spaceIDs})
	if err != nil {
		return nil, err
	}
	out := make([]*models.TeamSpace, len(recs))
	for i := range recs {
		out[i] = recs[i].toModel()
	}
	return out, nil
}

func (s *Store) AddTeamMember(ctx context.Context, member *models.TeamSpaceMember) error {
	if member.ID.IsZero() {
		member.ID = models.NewMemberID()
	}
	if member.Role == "" {
		return &store.ValidationError{Field: "role", Reason: "member role is required"}
	}
	existing, err := queryOne[memberRecord](ctx, s, `
		SELECT * FROM team_members
		WHERE team_space_id = $space AND user_id = $user`,
		map[string]any{"space": member.TeamSpaceID, "user": member.UserID})
	if err != nil {
		return err
	}
	if existing != nil {
		return &store.ValidationError{Field: "user_id", Reason: "user is already a member"}
	}
	now := time.Now().UTC()
	member.CreatedAt = now
	member.UpdatedAt = now
	return exec(ctx, s, "CREATE $id CONTENT $data", map[string]any{
		"id":   member.ID,
		"data": memberToRecord(member),
	})
}

func (s *Store) RemoveTeamMember(ctx context.Context, id models.MemberID) error {
	existing, err := queryOne[memberRecord](ctx, s,
		"SELECT * FROM $id", map[string]any{"id": id})
	if err != nil {
		return err
	}
	if existing == nil {
		return &store.NotFoundError{Table: models.TableTeamMembers, ID: id.String()}
	}
	return exec(ctx, s, "DELETE $id", map[string]any{"id": id})
}

func (s *Store) ListTeamMembers(ctx context.Context, teamSpaceID models.TeamSpaceID) ([]*models.TeamSpaceMember, error) {
	recs, err := querySlice[memberRecord](ctx, s,
		"SELECT * FROM team_members WHERE team_space_id = $space ORDER BY id",
		map[string]any{"space": teamSpaceID})
	if err != nil {
		return nil, err
	}
	out := make([]*models.TeamSpaceMember, len(recs))
	for i := range recs {
		out[i] = recs[i].toModel()
	}
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
	existing, err := queryOne[userRecord](ctx, s,
		"SELECT * FROM users WHERE email = $email", map[string]any{"email": user.Email})
	if err != nil {
		return err
	}
	if existing != nil {
		return &store.ValidationError{Field: "email", Reason: "email is already registered"}
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	return exec(ctx, s, "CREATE $id CONTENT $data", map[string]any{
		"id":   user.ID,
		"data": userToRecord(user),
	})
}

func (s *Store) GetUser(ctx context.Context, id models.UserID) (*models.User, error) {
	rec, err := queryOne[userRecord](ctx, s,
		"SELECT * FROM $id WHERE deleted_at IS NONE", map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &store.NotFoundError{Table: models.TableUsers, ID: id.String()}
	}
	return rec.toModel(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	rec, err := queryOne[userRecord](ctx, s,
		"SELECT * FROM users WHERE email = $email AND deleted_at IS NONE",
		map[string]any{"email": email})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &store.NotFoundError{Table: models.TableUsers, ID: email}
	}
	return rec.toModel(), nil
}

// Comments

func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment.ID.IsZero() {
		comment.ID = models.NewCommentID()
	}
	if comment.Content == "" {
		return &store.ValidationError{Field: "content", Reason: "comment content is required"}
	}
	now := time.Now().UTC()
	comment.CreatedAt = now
	comment.UpdatedAt = now
	return exec(ctx, s, "CREATE $id CONTENT $data", map[string]any{
		"id":   comment.ID,
		"data": commentToRecord(comment),
	})
}

func (s *Store) ListComments(ctx context.Context, pageID models.PageID) ([]*models.Comment, error) {
	recs, err := querySlice[commentRecord](ctx, s, `
		SELECT * FROM comments
		WHERE page_id = $page AND deleted_at IS NONE
		ORDER BY created_at, id`,
		map[string]any{"page": pageID})
	if err != nil {
		return nil, err
	}
	out := make([]*models.Comment, len(recs))
	for i := range recs {
		out[i] = recs[i].toModel()
	}
	return out, nil
}

func (s *Store) ResolveComment(ctx context.Context, id models.CommentID) error {
	updated, err := queryOne[commentRecord](ctx, s, `
		UPDATE $id SET resolved_at = time::now(), updated_at = time::now()
		RETURN AFTER`,
		map[string]any{"id": id})
	if err != nil {
		return err
	}
	if updated == nil {
		return &store.NotFoundError{Table: models.TableComments, ID: id.String()}
	}
	return nil
}

func (s *Store) DeleteComment(ctx context.Context, id models.CommentID) error {
	existing, err := queryOne[commentRecord](ctx, s,
		"SELECT * FROM $id", map[string]any{"id": id})
	if err != nil {
		return err
	}
	if existing == nil {
		return &store.NotFoundError{Table: models.TableComments, ID: id.String()}
	}
	return exec(ctx, s, "DELETE $id", map[string]any{"id": id})
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
	now := time.Now().UTC()
	notification.CreatedAt = now
	notification.UpdatedAt = now
	return exec(ctx, s, "CREATE $id CONTENT $data", map[string]any{
		"id":   notification.ID,
		"data": notificationToRecord(notification),
	})
}

func (s *Store) ListNotifications(ctx context.Context, userID models.UserID) ([]*models.Notification, error) {
	recs, err := querySlice[notificationRecord](ctx, s, `
		SELECT * FROM notifications
		WHERE user_id = $user
		ORDER BY created_at DESC`,
		map[string]any{"user": userID})
	if err != nil {
		return nil, err
	}
	out := make([]*models.Notification, len(recs))
	for i := range recs {
		out[i] = recs[i].toModel()
	}
	return out, nil
}

func (s *Store) MarkNotificationsRead(ctx context.Context, userID models.UserID) error {
	return exec(ctx, s, `
		UPDATE notifications SET read = true, updated_at = time::now()
		WHERE user_id = $user AND read = false`,
		map[string]any{"user": userID})
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
	now := time.Now().UTC()
	meeting.CreatedAt = now
	meeting.UpdatedAt = now
	return exec(ctx, s, "CREATE $id CONTENT $data", map[string]any{
		"id":   meeting.ID,
		"data": meetingToRecord(meeting),
	})
}

func (s *Store) ListMeetings(ctx context.Context) ([]*models.Meeting, error) {
	recs, err := querySlice[meetingRecord](ctx, s, "SELECT * FROM meetings ORDER BY date, id", nil)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Meeting, len(recs))
	for i := range recs {
		out[i] = recs[i].toModel()
	}
	return out, nil
}
