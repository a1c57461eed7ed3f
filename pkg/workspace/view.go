package workspace

import (
	"context"
	"errors"
	"sync"

	"github.com/notewave/notewave/pkg/cache"
	"github.com/notewave/notewave/pkg/models"
	"github.com/notewave/notewave/pkg/store"
)

// PageView is an open page: its record, blocks, comments and property
// values, kept coherent by realtime change events. Events carry no data;
// they only mark the affected cache scope stale, and the next read reloads
// it. Applying event payloads directly would race in-flight optimistic
// writes; staleness cannot.
type PageView struct {
	client *Client
	pageID models.PageID
	// rowsScope is the database whose joined rows this page's property
	// events affect: the parent database for a row page, the page's own
	// sidecar for a database page. Nil for plain pages.
	rowsScope *models.DatabaseID

	mu     sync.Mutex
	subs   []store.Subscription
	cancel context.CancelFunc
	done   sync.WaitGroup
	closed bool
}

// OpenPage loads a page with its blocks and comments and subscribes to its
// change feed. Call Close when the page closes, or the subscriptions leak.
// A store without realtime support still opens; the view just never goes
// stale on its own.
func (c *Client) OpenPage(ctx context.Context, pageID models.PageID) (*PageView, error) {
	page, err := c.loadPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if _, err := c.Blocks(ctx, pageID); err != nil {
		return nil, err
	}
	if _, err := c.Comments(ctx, pageID); err != nil {
		return nil, err
	}

	view := &PageView{client: c, pageID: pageID}
	watchCtx, cancel := context.WithCancel(context.Background())
	view.cancel = cancel

	subscribe := func(table string, filter store.EventFilter) error {
		sub, err := c.store.Subscribe(watchCtx, table, filter)
		if err != nil {
			if errors.Is(err, store.ErrRealtimeUnsupported) {
				return nil
			}
			return err
		}
		view.subs = append(view.subs, sub)
		view.done.Add(1)
		go view.watch(sub)
		return nil
	}

	pageFilter := store.EventFilter{PageID: &pageID}
	for _, table := range []string{models.TablePages, models.TableBlocks, models.TableComments} {
		if err := subscribe(table, pageFilter); err != nil {
			view.Close()
			return nil, err
		}
	}

	// Property values: a row page watches its own cells, a database page
	// watches every row's cells plus row additions and removals.
	switch {
	case page.ParentDatabaseID != nil:
		view.rowsScope = page.ParentDatabaseID
		if err := subscribe(models.TablePropertyValues, pageFilter); err != nil {
			view.Close()
			return nil, err
		}
	case page.Type == models.PageTypeDatabase:
		database, err := c.loadDatabase(ctx, pageID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			view.Close()
			return nil, err
		}
		if database != nil {
			view.rowsScope = &database.ID
			dbFilter := store.EventFilter{DatabaseID: &database.ID}
			for _, table := range []string{models.TablePropertyValues, models.TablePages} {
				if err := subscribe(table, dbFilter); err != nil {
					view.Close()
					return nil, err
				}
			}
		}
	}
	return view, nil
}

// watch drains one subscription, translating events into staleness.
func (v *PageView) watch(sub store.Subscription) {
	defer v.done.Done()
	for ev := range sub.Events() {
		v.client.log.Debug().
			Str("table", ev.Table).
			Str("action", string(ev.Action)).
			Str("page_id", ev.PageID.String()).
			Msg("change event")
		switch ev.Table {
		case models.TablePages:
			// A pages event scoped to another page is a row of the watched
			// database appearing or disappearing.
			if ev.PageID != v.pageID {
				v.invalidateRows()
				continue
			}
			if ev.Action == store.ActionDelete {
				keys := []cache.Key{
					cache.PageKey(v.pageID),
					cache.BlocksKey(v.pageID),
					cache.CommentsKey(v.pageID),
				}
				if v.rowsScope != nil {
					keys = append(keys, cache.RowsKey(*v.rowsScope))
				}
				v.client.cache.Drop(keys...)
				continue
			}
			v.client.cache.Invalidate(cache.PageKey(v.pageID))
		case models.TableBlocks:
			v.client.cache.Invalidate(cache.BlocksKey(v.pageID))
		case models.TableComments:
			v.client.cache.Invalidate(cache.CommentsKey(v.pageID))
		case models.TablePropertyValues:
			v.invalidateRows()
		}
	}
}

// invalidateRows marks the joined rows of the watched database stale.
func (v *PageView) invalidateRows() {
	if v.rowsScope != nil {
		v.client.cache.Invalidate(cache.RowsKey(*v.rowsScope))
	}
}

// PageID returns the viewed page's ID.
func (v *PageView) PageID() models.PageID { return v.pageID }

// Page returns the page record, reloading if stale.
func (v *PageView) Page(ctx context.Context) (*models.Page, error) {
	return v.client.loadPage(ctx, v.pageID)
}

// Blocks returns the page's blocks in order, reloading if stale.
func (v *PageView) Blocks(ctx context.Context) ([]*models.Block, error) {
	return v.client.Blocks(ctx, v.pageID)
}

// Comments returns the page's comments, reloading if stale.
func (v *PageView) Comments(ctx context.Context) ([]*models.Comment, error) {
	return v.client.Comments(ctx, v.pageID)
}

// Stale reports whether any of the view's scopes has been invalidated and
// not yet reloaded.
func (v *PageView) Stale() bool {
	keys := []cache.Key{
		cache.PageKey(v.pageID),
		cache.BlocksKey(v.pageID),
		cache.CommentsKey(v.pageID),
	}
	if v.rowsScope != nil {
		keys = append(keys, cache.RowsKey(*v.rowsScope))
	}
	for _, key := range keys {
		if _, ok, stale := v.client.cache.Read(key); ok && stale {
			return true
		}
	}
	return false
}

// Close tears down the subscriptions and waits for the watchers to drain.
// Idempotent.
func (v *PageView) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	subs := v.subs
	v.mu.Unlock()

	v.cancel()
	for _, sub := range subs {
		sub.Close()
	}
	v.done.Wait()
	return nil
}
