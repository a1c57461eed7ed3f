package workspace

import (
	"context"
	"errors"

	"github.com/notewave/notewave/pkg/cache"
	"github.com/notewave/notewave/pkg/models"
	"github.com/notewave/notewave/pkg/store"
)

// Row is one database row joined with its property values, keyed by
// property. A property with no stored value for the row is simply absent
// from the map; callers render it empty.
type Row struct {
	Page   *models.Page                                    `json:"page"`
	Values map[models.PropertyID]*models.PagePropertyValue `json:"values"`
}

// Clone deep-copies the row.
func (r *Row) Clone() *Row {
	out := &Row{Page: r.Page.Clone(), Values: make(map[models.PropertyID]*models.PagePropertyValue, len(r.Values))}
	for k, v := range r.Values {
		out.Values[k] = v.Clone()
	}
	return out
}

// DatabaseView is a fully joined database: its definition, its properties
// in position order, and its rows with their values.
type DatabaseView struct {
	Database   *models.Database           `json:"database"`
	Properties []*models.DatabaseProperty `json:"properties"`
	Rows       []*Row                     `json:"rows"`
}

// Cells projects a row's values onto property names. Storage and the Row
// map stay keyed by property ID so renaming a column never orphans its
// values; the name keying exists only at this boundary, resolved against
// the view's current definitions. Values whose property was deleted are
// omitted.
func (v *DatabaseView) Cells(row *Row) map[string]*models.PagePropertyValue {
	out := make(map[string]*models.PagePropertyValue, len(row.Values))
	for _, p := range v.Properties {
		if val, ok := row.Values[p.ID]; ok {
			out[p.Name] = val
		}
	}
	return out
}

// CreateDatabasePage creates a database page with its sidecar definition
// and a default Status property, so a fresh database is immediately usable
// as a task board.
func (c *Client) CreateDatabasePage(ctx context.Context, params CreatePageParams) (*models.Page, *models.Database, error) {
	params.Type = models.PageTypeDatabase
	page, err := c.CreatePage(ctx, params)
	if err != nil {
		return nil, nil, err
	}
	database, err := c.bootstrapDatabase(ctx, page.ID)
	if err != nil {
		return nil, nil, err
	}
	return page, database, nil
}

// bootstrapDatabase creates the sidecar database record and a default
// Status property for a database page, seeding the caches so the database
// renders immediately.
func (c *Client) bootstrapDatabase(ctx context.Context, pageID models.PageID) (*models.Database, error) {
	database := &models.Database{ID: models.NewDatabaseID(), PageID: pageID}
	err := c.persist(ctx, "create_database", func(ctx context.Context) error {
		return c.store.CreateDatabase(ctx, database)
	})
	if err != nil {
		return nil, err
	}

	status := &models.DatabaseProperty{
		ID:         models.NewPropertyID(),
		DatabaseID: database.ID,
		Name:       "Status",
		Type:       models.PropertyTypeStatus,
		Config: models.JSONMap{"options": []any{
			map[string]any{"id": "not-started", "name": "not-started", "color": "gray"},
			map[string]any{"id": "in-progress", "name": "in-progress", "color": "blue"},
			map[string]any{"id": "completed", "name": "completed", "color": "green"},
		}},
	}
	err = c.persist(ctx, "create_default_property", func(ctx context.Context) error {
		return c.store.CreateProperty(ctx, status)
	})
	if err != nil {
		return nil, err
	}

	c.cache.Put(cache.DatabaseKey(pageID), database)
	c.cache.Put(cache.PropertiesKey(database.ID), []*models.DatabaseProperty{status})
	c.cache.Put(cache.RowsKey(database.ID), []*Row{})
	return database, nil
}

// Database loads the full joined view of the database attached to pageID,
// cache-first. On a miss the rows and their values load in two batched
// queries regardless of row count.
func (c *Client) Database(ctx context.Context, pageID models.PageID) (*DatabaseView, error) {
	database, err := c.loadDatabase(ctx, pageID)
	if errors.Is(err, store.ErrNotFound) {
		// A database page can predate its sidecar record (imported pages,
		// interrupted creates). First open repairs it.
		page, perr := c.loadPage(ctx, pageID)
		if perr != nil {
			return nil, perr
		}
		if page.Type != models.PageTypeDatabase {
			return nil, err
		}
		database, err = c.bootstrapDatabase(ctx, pageID)
	}
	if err != nil {
		return nil, err
	}
	properties, err := c.Properties(ctx, database.ID)
	if err != nil {
		return nil, err
	}
	rows, err := c.rows(ctx, database.ID)
	if err != nil {
		return nil, err
	}
	return &DatabaseView{Database: database, Properties: properties, Rows: rows}, nil
}

// Properties lists a database's property definitions, cache-first.
func (c *Client) Properties(ctx context.Context, databaseID models.DatabaseID) ([]*models.DatabaseProperty, error) {
	key := cache.PropertiesKey(databaseID)
	if v, ok, stale := c.cache.Read(key); ok && !stale {
		return v.([]*models.DatabaseProperty), nil
	}
	properties, err := c.store.ListProperties(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	c.cache.Put(key, properties)
	return properties, nil
}

// AddProperty adds a column to a database, appended optimistically.
func (c *Client) AddProperty(ctx context.Context, databaseID models.DatabaseID, name string, propType models.PropertyType, config models.JSONMap) (*models.DatabaseProperty, error) {
	existing, err := c.Properties(ctx, databaseID)
	if err != nil {
		return nil, err
	}

	property := &models.DatabaseProperty{
		ID:         models.NewPropertyID(),
		DatabaseID: databaseID,
		Name:       name,
		Type:       propType,
		Config:     config.Clone(),
		Position:   len(existing),
	}

	key := cache.PropertiesKey(databaseID)
	snap := c.cache.OptimisticWrite(key, func(cur any) any {
		list, _ := cur.([]*models.DatabaseProperty)
		out := make([]*models.DatabaseProperty, len(list), len(list)+1)
		copy(out, list)
		return append(out, property.Clone())
	})

	err = c.persist(ctx, "add_property", func(ctx context.Context) error {
		return c.store.CreateProperty(ctx, property)
	})
	if err != nil {
		c.cache.Rollback(snap)
		return nil, err
	}
	return property, nil
}

// UpdateProperty applies mutate to a property definition (rename, retype,
// option changes), optimistically.
func (c *Client) UpdateProperty(ctx context.Context, databaseID models.DatabaseID, propertyID models.PropertyID, mutate func(*models.DatabaseProperty)) (*models.DatabaseProperty, error) {
	properties, err := c.Properties(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	var current *models.DatabaseProperty
	for _, p := range properties {
		if p.ID == propertyID {
			current = p
			break
		}
	}
	if current == nil {
		return nil, &store.NotFoundError{Table: models.TableProperties, ID: propertyID.String()}
	}

	updated := current.Clone()
	mutate(updated)
	updated.ID = propertyID
	updated.DatabaseID = databaseID

	key := cache.PropertiesKey(databaseID)
	snap := c.cache.OptimisticWrite(key, func(cur any) any {
		list, _ := cur.([]*models.DatabaseProperty)
		out := make([]*models.DatabaseProperty, len(list))
		for i, p := range list {
			if p.ID == propertyID {
				out[i] = updated.Clone()
			} else {
				out[i] = p
			}
		}
		return out
	})

	err = c.persist(ctx, "update_property", func(ctx context.Context) error {
		return c.store.UpdateProperty(ctx, updated)
	})
	if err != nil {
		c.cache.Rollback(snap)
		return nil, err
	}
	return updated, nil
}

// DeleteProperty removes a column and, transitively, its stored values.
// Cached rows lose the column's cells; the rows scope goes stale so the
// joined view rebuilds.
func (c *Client) DeleteProperty(ctx context.Context, databaseID models.DatabaseID, propertyID models.PropertyID) error {
	if _, err := c.Properties(ctx, databaseID); err != nil {
		return err
	}

	key := cache.PropertiesKey(databaseID)
	snap := c.cache.OptimisticWrite(key, func(cur any) any {
		list, _ := cur.([]*models.DatabaseProperty)
		out := make([]*models.DatabaseProperty, 0, len(list))
		for _, p := range list {
			if p.ID != propertyID {
				out = append(out, p)
			}
		}
		return out
	})

	err := c.persist(ctx, "delete_property", func(ctx context.Context) error {
		return c.store.DeleteProperty(ctx, propertyID)
	})
	if err != nil {
		c.cache.Rollback(snap)
		return err
	}

	c.cache.Invalidate(cache.RowsKey(databaseID))
	return nil
}

// CreateRow adds a row page to the database, appearing immediately with no
// values set.
func (c *Client) CreateRow(ctx context.Context, databaseID models.DatabaseID, title string) (*models.Page, error) {
	userID, err := c.userID()
	if err != nil {
		return nil, err
	}
	rows, err := c.rows(ctx, databaseID)
	if err != nil {
		return nil, err
	}

	row := &models.Page{
		ID:               models.NewPageID(),
		Title:            title,
		OwnerID:          userID,
		ParentDatabaseID: &databaseID,
		Position:         len(rows),
	}

	key := cache.RowsKey(databaseID)
	snap := c.cache.OptimisticWrite(key, func(cur any) any {
		list, _ := cur.([]*Row)
		out := make([]*Row, len(list), len(list)+1)
		copy(out, list)
		return append(out, &Row{Page: row.Clone(), Values: map[models.PropertyID]*models.PagePropertyValue{}})
	})

	err = c.persist(ctx, "create_row", func(ctx context.Context) error {
		return c.store.CreatePage(ctx, row)
	})
	if err != nil {
		c.cache.Rollback(snap)
		return nil, err
	}

	// Re-append from the snapshot with the record the store stamped.
	var list []*Row
	if snap.Existed() && snap.Value() != nil {
		list, _ = snap.Value().([]*Row)
	}
	out := make([]*Row, len(list), len(list)+1)
	copy(out, list)
	out = append(out, &Row{Page: row.Clone(), Values: map[models.PropertyID]*models.PagePropertyValue{}})
	c.cache.Commit(key, out)

	c.cache.Put(cache.PageKey(row.ID), row.Clone())
	return row, nil
}

// SetPageProperty writes one cell: the value of property for the row page.
// Values are not versioned; concurrent writers are last-write-wins and no
// conflict is surfaced. The cached cell updates optimistically and rolls
// back if the store rejects the write.
func (c *Client) SetPageProperty(ctx context.Context, databaseID models.DatabaseID, pageID models.PageID, propertyID models.PropertyID, value models.JSONMap) (*models.PagePropertyValue, error) {
	record := &models.PagePropertyValue{
		PageID:     pageID,
		PropertyID: propertyID,
		Value:      value.Clone(),
	}

	key := cache.RowsKey(databaseID)
	snap := c.cache.OptimisticWrite(key, func(cur any) any {
		list, _ := cur.([]*Row)
		out := make([]*Row, len(list))
		for i, r := range list {
			if r.Page.ID == pageID {
				nr := r.Clone()
				nr.Values[propertyID] = record.Clone()
				out[i] = nr
			} else {
				out[i] = r
			}
		}
		return out
	})

	err := c.persist(ctx, "set_page_property", func(ctx context.Context) error {
		return c.store.UpsertPropertyValue(ctx, record)
	})
	if err != nil {
		c.cache.Rollback(snap)
		return nil, err
	}

	// The store filled in the value row's identity and timestamps.
	c.cache.Commit(key, patchRowValue(snap, pageID, propertyID, record))
	return record, nil
}

// loadDatabase reads the database attached to pageID, cache-first.
func (c *Client) loadDatabase(ctx context.Context, pageID models.PageID) (*models.Database, error) {
	key := cache.DatabaseKey(pageID)
	if v, ok, stale := c.cache.Read(key); ok && !stale {
		return v.(*models.Database), nil
	}
	database, err := c.store.GetDatabaseByPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	c.cache.Put(key, database)
	return database, nil
}

// rows loads a database's joined rows, cache-first: one query for the row
// pages and one batched IN query for all their values.
func (c *Client) rows(ctx context.Context, databaseID models.DatabaseID) ([]*Row, error) {
	key := cache.RowsKey(databaseID)
	if v, ok, stale := c.cache.Read(key); ok && !stale {
		return v.([]*Row), nil
	}

	pages, err := c.store.ListDatabaseRows(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	pageIDs := make([]models.PageID, len(pages))
	for i, p := range pages {
		pageIDs[i] = p.ID
	}
	values, err := c.store.ListPropertyValues(ctx, pageIDs)
	if err != nil {
		return nil, err
	}

	byPage := make(map[models.PageID]map[models.PropertyID]*models.PagePropertyValue)
	for _, v := range values {
		m, ok := byPage[v.PageID]
		if !ok {
			m = make(map[models.PropertyID]*models.PagePropertyValue)
			byPage[v.PageID] = m
		}
		m[v.PropertyID] = v
	}

	rows := make([]*Row, 0, len(pages))
	for _, page := range pages {
		vals := byPage[page.ID]
		if vals == nil {
			vals = map[models.PropertyID]*models.PagePropertyValue{}
		}
		rows = append(rows, &Row{Page: page, Values: vals})
	}
	c.cache.Put(key, rows)
	return rows, nil
}

// patchRowValue rebuilds the snapshot's row list with the confirmed value
// in place.
func patchRowValue(snap cache.Snapshot, pageID models.PageID, propertyID models.PropertyID, confirmed *models.PagePropertyValue) []*Row {
	var list []*Row
	if snap.Existed() && snap.Value() != nil {
		list, _ = snap.Value().([]*Row)
	}
	out := make([]*Row, len(list))
	for i, r := range list {
		if r.Page.ID == pageID {
			nr := r.Clone()
			nr.Values[propertyID] = confirmed.Clone()
			out[i] = nr
		} else {
			out[i] = r
		}
	}
	return out
}
