package workspace

import (
	"context"

	"github.com/notewave/notewave/pkg/cache"
	"github.com/notewave/notewave/pkg/models"
	"github.com/notewave/notewave/pkg/store"
)

// CreatePageParams describes a new page. Exactly one scope applies: a page
// with TeamSpaceID set is a team page, otherwise it is private to the
// creating user. ParentPageID nests it under another page.
type CreatePageParams struct {
	Title        string
	Icon         string
	Type         models.PageType
	TeamSpaceID  *models.TeamSpaceID
	ParentPageID *models.PageID
	Position     int
}

// CreatePage creates a page, stamps the acting user as owner and adds it to
// the relevant cached listing optimistically.
func (c *Client) CreatePage(ctx context.Context, params CreatePageParams) (*models.Page, error) {
	userID, err := c.userID()
	if err != nil {
		return nil, err
	}
	page := &models.Page{
		ID:           models.NewPageID(),
		Title:        params.Title,
		Icon:         params.Icon,
		Type:         params.Type,
		OwnerID:      userID,
		TeamSpaceID:  params.TeamSpaceID,
		ParentPageID: params.ParentPageID,
		Position:     params.Position,
	}

	listKey := c.pageListKey(page, userID)
	snap := c.cache.OptimisticWrite(listKey, appendPage(page))

	err = c.persist(ctx, "create_page", func(ctx context.Context) error {
		return c.store.CreatePage(ctx, page)
	})
	if err != nil {
		c.cache.Rollback(snap)
		return nil, err
	}

	c.cache.Commit(listKey, replacePage(snap, page))
	c.cache.Put(cache.PageKey(page.ID), page.Clone())
	return page, nil
}

// UpdatePage applies mutate to the page and persists the result, with the
// cached page entry updated optimistically. mutate works on a clone and may
// change title, icon, cover, favorite flag or position.
func (c *Client) UpdatePage(ctx context.Context, pageID models.PageID, mutate func(*models.Page)) (*models.Page, error) {
	current, err := c.loadPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	updated := current.Clone()
	mutate(updated)
	if updated.ID != pageID {
		return nil, &store.ValidationError{Field: "id", Reason: "page ID cannot change"}
	}

	key := cache.PageKey(pageID)
	snap := c.cache.OptimisticWrite(key, func(any) any { return updated.Clone() })

	err = c.persist(ctx, "update_page", func(ctx context.Context) error {
		return c.store.UpdatePage(ctx, updated)
	})
	if err != nil {
		c.cache.Rollback(snap)
		return nil, err
	}

	c.cache.Commit(key, updated.Clone())
	c.invalidatePageListings(updated)
	return updated, nil
}

// TrashPage soft-deletes a page. It disappears from listings and appears in
// the trash; RestorePage undoes it.
func (c *Client) TrashPage(ctx context.Context, pageID models.PageID) error {
	page, err := c.loadPage(ctx, pageID)
	if err != nil {
		return err
	}

	_, listSnap, dropped := c.removeFromListing(page)

	err = c.persist(ctx, "trash_page", func(ctx context.Context) error {
		return c.store.TrashPage(ctx, pageID)
	})
	if err != nil {
		if dropped {
			c.cache.Rollback(listSnap)
		}
		return err
	}

	c.cache.Drop(cache.PageKey(pageID))
	c.cache.Invalidate(cache.TrashKey(page.OwnerID))
	return nil
}

// RestorePage brings a trashed page back into its listing.
func (c *Client) RestorePage(ctx context.Context, pageID models.PageID) error {
	err := c.persist(ctx, "restore_page", func(ctx context.Context) error {
		return c.store.RestorePage(ctx, pageID)
	})
	if err != nil {
		return err
	}
	page, err := c.store.GetPage(ctx, pageID)
	if err != nil {
		return err
	}
	c.cache.Put(cache.PageKey(pageID), page)
	c.invalidatePageListings(page)
	c.cache.Invalidate(cache.TrashKey(page.OwnerID))
	return nil
}

// DeletePage permanently removes a page and everything under it. No
// optimistic phase: a hard delete that fails must not leave the page gone
// locally, so the cache is only touched after the store confirms.
func (c *Client) DeletePage(ctx context.Context, pageID models.PageID) error {
	page, err := c.loadPage(ctx, pageID)
	if err != nil {
		return err
	}
	err = c.persist(ctx, "delete_page", func(ctx context.Context) error {
		return c.store.DeletePage(ctx, pageID)
	})
	if err != nil {
		return err
	}
	c.cache.Drop(
		cache.PageKey(pageID),
		cache.BlocksKey(pageID),
		cache.ChildPagesKey(pageID),
		cache.CommentsKey(pageID),
		cache.DatabaseKey(pageID),
	)
	c.invalidatePageListings(page)
	c.cache.Invalidate(cache.TrashKey(page.OwnerID))
	return nil
}

// WorkspaceView is the sidebar: the user's private pages, favorites, and
// the team spaces they belong to.
type WorkspaceView struct {
	PrivatePages []*models.Page      `json:"private_pages"`
	Favorites    []*models.Page      `json:"favorites"`
	TeamSpaces   []*models.TeamSpace `json:"team_spaces"`
}

// Workspace loads the acting user's workspace overview. The private page
// list and team space list are cached under user-scoped keys.
func (c *Client) Workspace(ctx context.Context) (*WorkspaceView, error) {
	userID, err := c.userID()
	if err != nil {
		return nil, err
	}

	var pages []*models.Page
	pagesKey := cache.WorkspaceKey(userID)
	if v, ok, stale := c.cache.Read(pagesKey); ok && !stale {
		pages = v.([]*models.Page)
	} else {
		pages, err = c.store.ListPrivatePages(ctx, userID)
		if err != nil {
			return nil, err
		}
		c.cache.Put(pagesKey, pages)
	}

	var spaces []*models.TeamSpace
	spacesKey := cache.TeamSpacesKey(userID)
	if v, ok, stale := c.cache.Read(spacesKey); ok && !stale {
		spaces = v.([]*models.TeamSpace)
	} else {
		spaces, err = c.store.ListTeamSpaces(ctx, userID)
		if err != nil {
			return nil, err
		}
		c.cache.Put(spacesKey, spaces)
	}

	view := &WorkspaceView{TeamSpaces: spaces}
	for _, p := range pages {
		view.PrivatePages = append(view.PrivatePages, p)
		if p.Favorite {
			view.Favorites = append(view.Favorites, p)
		}
	}
	return view, nil
}

// ChildPages lists the sub-pages nested under a page, cache-first.
func (c *Client) ChildPages(ctx context.Context, pageID models.PageID) ([]*models.Page, error) {
	key := cache.ChildPagesKey(pageID)
	if v, ok, stale := c.cache.Read(key); ok && !stale {
		return v.([]*models.Page), nil
	}
	pages, err := c.store.ListChildPages(ctx, pageID)
	if err != nil {
		return nil, err
	}
	c.cache.Put(key, pages)
	return pages, nil
}

// TeamPages lists a team space's top-level pages, cache-first.
func (c *Client) TeamPages(ctx context.Context, spaceID models.TeamSpaceID) ([]*models.Page, error) {
	key := cache.TeamPagesKey(spaceID)
	if v, ok, stale := c.cache.Read(key); ok && !stale {
		return v.([]*models.Page), nil
	}
	pages, err := c.store.ListTeamPages(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	c.cache.Put(key, pages)
	return pages, nil
}

// TrashedPages lists the acting user's trashed pages. Not cached beyond the
// staleness-tracked trash key: the trash is visited rarely and reads cheap.
func (c *Client) TrashedPages(ctx context.Context) ([]*models.Page, error) {
	userID, err := c.userID()
	if err != nil {
		return nil, err
	}
	key := cache.TrashKey(userID)
	if v, ok, stale := c.cache.Read(key); ok && !stale {
		return v.([]*models.Page), nil
	}
	pages, err := c.store.ListTrashedPages(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.cache.Put(key, pages)
	return pages, nil
}

// Page reads a single page, cache-first.
func (c *Client) Page(ctx context.Context, pageID models.PageID) (*models.Page, error) {
	return c.loadPage(ctx, pageID)
}

// loadPage reads a page cache-first.
func (c *Client) loadPage(ctx context.Context, pageID models.PageID) (*models.Page, error) {
	if v, ok, stale := c.cache.Read(cache.PageKey(pageID)); ok && !stale {
		return v.(*models.Page), nil
	}
	page, err := c.store.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	c.cache.Put(cache.PageKey(pageID), page)
	return page, nil
}

// pageListKey picks the listing a page belongs to.
func (c *Client) pageListKey(page *models.Page, userID models.UserID) cache.Key {
	switch {
	case page.ParentDatabaseID != nil:
		return cache.RowsKey(*page.ParentDatabaseID)
	case page.ParentPageID != nil:
		return cache.ChildPagesKey(*page.ParentPageID)
	case page.TeamSpaceID != nil:
		return cache.TeamPagesKey(*page.TeamSpaceID)
	default:
		return cache.WorkspaceKey(userID)
	}
}

// invalidatePageListings marks every listing that could contain the page
// stale.
func (c *Client) invalidatePageListings(page *models.Page) {
	c.cache.Invalidate(c.pageListKey(page, page.OwnerID))
	if page.ParentPageID != nil {
		c.cache.Invalidate(cache.ChildPagesKey(*page.ParentPageID))
	}
}

// appendPage returns an optimistic updater that adds page to a cached
// []*models.Page without touching the existing slice.
func appendPage(page *models.Page) func(any) any {
	return func(current any) any {
		var list []*models.Page
		if current != nil {
			list = current.([]*models.Page)
		}
		out := make([]*models.Page, len(list), len(list)+1)
		copy(out, list)
		return append(out, page.Clone())
	}
}

// replacePage rebuilds the post-commit listing from the snapshot's value
// plus the confirmed page.
func replacePage(snap cache.Snapshot, page *models.Page) []*models.Page {
	var list []*models.Page
	if snap.Existed() && snap.Value() != nil {
		list = snap.Value().([]*models.Page)
	}
	out := make([]*models.Page, len(list), len(list)+1)
	copy(out, list)
	return append(out, page.Clone())
}

// removeFromListing drops page from its cached listing optimistically and
// returns the snapshot for rollback. dropped is false when the listing was
// not cached, in which case there is nothing to roll back.
func (c *Client) removeFromListing(page *models.Page) (cache.Key, cache.Snapshot, bool) {
	key := c.pageListKey(page, page.OwnerID)
	if _, ok, _ := c.cache.Read(key); !ok {
		return key, cache.Snapshot{}, false
	}
	snap := c.cache.OptimisticWrite(key, func(current any) any {
		switch list := current.(type) {
		case []*Row:
			out := make([]*Row, 0, len(list))
			for _, r := range list {
				if r.Page.ID != page.ID {
					out = append(out, r)
				}
			}
			return out
		case []*models.Page:
			out := make([]*models.Page, 0, len(list))
			for _, p := range list {
				if p.ID != page.ID {
					out = append(out, p)
				}
			}
			return out
		default:
			return current
		}
	})
	return key, snap, true
}
