package surreal

import (
	"context"
	"fmt"
	"sync"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/notewave/notewave/pkg/models"
	"github.com/notewave/notewave/pkg/store"
)

// liveSubscription adapts one SurrealDB live query to store.Subscription.
type liveSubscription struct {
	s      *Store
	liveID string
	out    chan store.Event

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
	done   sync.WaitGroup
}

func (l *liveSubscription) Events() <-chan store.Event { return l.out }

func (l *liveSubscription) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	l.cancel()
	err := surrealdb.Kill(context.Background(), l.s.db, l.liveID)
	l.done.Wait()
	close(l.out)
	if err != nil {
		return &store.TransportError{Op: "kill", Err: err}
	}
	return nil
}

// Subscribe opens a live query on table and streams matching change events.
// Filtering happens client-side: live queries deliver whole-table changes,
// and the page/database scope of each notification is resolved from its
// payload before it is forwarded.
func (s *Store) Subscribe(ctx context.Context, table string, filter store.EventFilter) (store.Subscription, error) {
	liveID, err := surrealdb.Live(ctx, s.db, surrealmodels.Table(table), false)
	if err != nil {
		return nil, &store.TransportError{Op: "live", Err: err}
	}
	notifications, err := s.db.LiveNotifications(liveID.String())
	if err != nil {
		_ = surrealdb.Kill(context.Background(), s.db, liveID.String())
		return nil, &store.TransportError{Op: "live_notifications", Err: err}
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	sub := &liveSubscription{
		s:      s,
		liveID: liveID.String(),
		out:    make(chan store.Event, 64),
		cancel: cancel,
	}
	sub.done.Add(1)
	go sub.pump(watchCtx, table, filter, notifications)
	return sub, nil
}

func (l *liveSubscription) pump(ctx context.Context, table string, filter store.EventFilter, in chan connection.Notification) {
	defer l.done.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-in:
			if !ok {
				return
			}
			ev, ok := l.s.toEvent(ctx, table, n)
			if !ok {
				continue
			}
			if filter.PageID != nil && *filter.PageID != ev.PageID {
				continue
			}
			if filter.DatabaseID != nil && !l.s.pageInDatabase(ctx, ev.PageID, *filter.DatabaseID) {
				continue
			}
			select {
			case l.out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// toEvent maps a live-query notification to an invalidation event. The
// notification payload is used only to locate the affected page; its data
// never enters any cache.
func (s *Store) toEvent(ctx context.Context, table string, n connection.Notification) (store.Event, bool) {
	var action store.EventAction
	switch n.Action {
	case connection.CreateAction:
		action = store.ActionCreate
	case connection.UpdateAction:
		action = store.ActionUpdate
	case connection.DeleteAction:
		action = store.ActionDelete
	default:
		return store.Event{}, false
	}

	record, ok := n.Result.(map[string]any)
	if !ok {
		return store.Event{}, false
	}
	var raw any
	if table == models.TablePages {
		raw = record["id"]
	} else {
		raw = record["page_id"]
	}
	pageID, err := recordPageID(raw)
	if err != nil {
		return store.Event{}, false
	}
	return store.Event{Table: table, Action: action, PageID: pageID}, true
}

// pageInDatabase reports whether the page is a row of the database. Used
// to resolve database-scoped filters, since notifications carry no
// database reference of their own.
func (s *Store) pageInDatabase(ctx context.Context, pageID models.PageID, databaseID models.DatabaseID) bool {
	rec, err := queryOne[pageRecord](ctx, s, "SELECT * FROM $id", map[string]any{"id": pageID})
	if err != nil || rec == nil || rec.ParentDatabaseID == nil {
		return false
	}
	return *rec.ParentDatabaseID == databaseID
}

// recordPageID extracts a PageID from a notification payload field, which
// arrives as a record ID or its string form depending on codec version.
func recordPageID(raw any) (models.PageID, error) {
	switch v := raw.(type) {
	case surrealmodels.RecordID:
		return models.ParsePageID(fmt.Sprint(v.ID))
	case *surrealmodels.RecordID:
		if v == nil {
			return models.PageID{}, fmt.Errorf("nil record id")
		}
		return models.ParsePageID(fmt.Sprint(v.ID))
	case string:
		return models.ParsePageID(v)
	default:
		return models.PageID{}, fmt.Errorf("unsupported record id type %T", raw)
	}
}
