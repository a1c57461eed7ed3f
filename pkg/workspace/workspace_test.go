package workspace

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewave/notewave/pkg/cache"
	"github.com/notewave/notewave/pkg/identity"
	"github.com/notewave/notewave/pkg/models"
	"github.com/notewave/notewave/pkg/store"
	"github.com/notewave/notewave/pkg/store/memory"
)

// The typed IDs hide their uuid behind an unexported field; cmp needs to be
// told they compare with ==.
var cmpIDs = cmpopts.EquateComparable(
	models.PageID{}, models.BlockID{}, models.DatabaseID{}, models.PropertyID{},
	models.PropertyValueID{}, models.TeamSpaceID{}, models.MemberID{},
	models.UserID{}, models.CommentID{},
)

// faultStore wraps a real store and lets tests fail specific operations on
// specific calls.
type faultStore struct {
	store.Store

	mu                sync.Mutex
	contentCalls      int
	orderCalls        int
	createBlockCalls  int
	deleteBlockCalls  int
	failUpdateContent func(call int) error
	failUpdateOrder   func(call int) error
	failCreateBlock   func(call int) error
	failDeleteBlock   func(call int) error
}

func (f *faultStore) UpdateBlockContent(ctx context.Context, id models.BlockID, patch store.ContentPatch, expectedVersion int64) (*models.Block, error) {
	f.mu.Lock()
	f.contentCalls++
	call := f.contentCalls
	hook := f.failUpdateContent
	f.mu.Unlock()
	if hook != nil {
		if err := hook(call); err != nil {
			return nil, err
		}
	}
	return f.Store.UpdateBlockContent(ctx, id, patch, expectedVersion)
}

func (f *faultStore) UpdateBlockOrder(ctx context.Context, id models.BlockID, order int) error {
	f.mu.Lock()
	f.orderCalls++
	call := f.orderCalls
	hook := f.failUpdateOrder
	f.mu.Unlock()
	if hook != nil {
		if err := hook(call); err != nil {
			return err
		}
	}
	return f.Store.UpdateBlockOrder(ctx, id, order)
}

func (f *faultStore) CreateBlock(ctx context.Context, block *models.Block) error {
	f.mu.Lock()
	f.createBlockCalls++
	call := f.createBlockCalls
	hook := f.failCreateBlock
	f.mu.Unlock()
	if hook != nil {
		if err := hook(call); err != nil {
			return err
		}
	}
	return f.Store.CreateBlock(ctx, block)
}

func (f *faultStore) DeleteBlock(ctx context.Context, id models.BlockID) error {
	f.mu.Lock()
	f.deleteBlockCalls++
	call := f.deleteBlockCalls
	hook := f.failDeleteBlock
	f.mu.Unlock()
	if hook != nil {
		if err := hook(call); err != nil {
			return err
		}
	}
	return f.Store.DeleteBlock(ctx, id)
}

func newTestClient(t *testing.T) (*Client, *memory.Store, models.UserID) {
	t.Helper()
	s := memory.New()
	t.Cleanup(func() { s.Close() })
	userID := models.NewUserID()
	c := New(s, identity.NewStatic(userID), WithRetry(2, time.Millisecond))
	return c, s, userID
}

func newFaultClient(t *testing.T) (*Client, *faultStore, models.UserID) {
	t.Helper()
	s := memory.New()
	t.Cleanup(func() { s.Close() })
	fs := &faultStore{Store: s}
	userID := models.NewUserID()
	c := New(fs, identity.NewStatic(userID), WithRetry(2, time.Millisecond))
	return c, fs, userID
}

func setupPageWithBlocks(t *testing.T, c *Client, n int) (*models.Page, []*models.Block) {
	t.Helper()
	ctx := context.Background()
	page, err := c.CreatePage(ctx, CreatePageParams{Title: "Doc"})
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		_, err := c.CreateBlock(ctx, page.ID, models.BlockTypeText, models.JSONMap{"text": "block"}, i)
		require.NoError(t, err)
	}
	blocks, err := c.Blocks(ctx, page.ID)
	require.NoError(t, err)
	require.Len(t, blocks, n)
	return page, blocks
}

func TestUpdateBlockContentHappyPath(t *testing.T) {
	c, s, _ := newTestClient(t)
	ctx := context.Background()
	page, blocks := setupPageWithBlocks(t, c, 1)
	block := blocks[0]

	patch := store.ContentPatch{
		Content:   models.JSONMap{"text": "edited"},
		PlainText: "edited",
	}
	confirmed, err := c.UpdateBlockContent(ctx, page.ID, block.ID, patch, block.Version)
	require.NoError(t, err)
	assert.Equal(t, block.Version+1, confirmed.Version)
	assert.Equal(t, "edited", confirmed.PlainText)

	// The cache holds the confirmed record, not the optimistic copy.
	cached, err := c.Blocks(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, confirmed.Version, cached[0].Version)
	assert.Equal(t, "edited", cached[0].PlainText)

	// And the store agrees.
	stored, err := s.GetBlock(ctx, block.ID)
	require.NoError(t, err)
	assert.Equal(t, confirmed.Version, stored.Version)
}

func TestUpdateBlockContentVisibleBeforeConfirm(t *testing.T) {
	c, fs, _ := newFaultClient(t)
	ctx := context.Background()
	page, blocks := setupPageWithBlocks(t, c, 1)
	block := blocks[0]

	// Capture the cached list mid-persist: the optimistic patch must
	// already be visible while the store call is still running.
	var midPersist []*models.Block
	fs.failUpdateContent = func(int) error {
		if v, ok, _ := c.Cache().Read(cache.BlocksKey(page.ID)); ok {
			midPersist = v.([]*models.Block)
		}
		return nil
	}

	patch := store.ContentPatch{Content: models.JSONMap{"text": "new"}, PlainText: "new"}
	_, err := c.UpdateBlockContent(ctx, page.ID, block.ID, patch, block.Version)
	require.NoError(t, err)
	require.Len(t, midPersist, 1)
	assert.Equal(t, "new", midPersist[0].PlainText)
	// Optimistic copy still carries the read version; only the server
	// increments.
	assert.Equal(t, block.Version, midPersist[0].Version)
}

func TestUpdateBlockContentConflict(t *testing.T) {
	c, s, _ := newTestClient(t)
	ctx := context.Background()
	page, blocks := setupPageWithBlocks(t, c, 1)
	block := blocks[0]

	// Another session wins the race directly against the store.
	theirPatch := store.ContentPatch{Content: models.JSONMap{"text": "theirs"}, PlainText: "theirs"}
	_, err := s.UpdateBlockContent(ctx, block.ID, theirPatch, block.Version)
	require.NoError(t, err)

	// Our write still carries the version we read.
	ourPatch := store.ContentPatch{Content: models.JSONMap{"text": "ours"}, PlainText: "ours"}
	_, err = c.UpdateBlockContent(ctx, page.ID, block.ID, ourPatch, block.Version)
	require.ErrorIs(t, err, store.ErrVersionConflict)

	// Rolled back and marked stale: the raw entry shows the pre-write
	// content, and the next Blocks call reloads the winner's.
	v, ok, stale := c.Cache().Read(cache.BlocksKey(page.ID))
	require.True(t, ok)
	assert.True(t, stale)
	assert.Equal(t, "block", v.([]*models.Block)[0].Content["text"])

	reloaded, err := c.Blocks(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, "theirs", reloaded[0].PlainText)
	assert.Equal(t, block.Version+1, reloaded[0].Version)

	// Retrying with the reloaded version succeeds.
	confirmed, err := c.UpdateBlockContent(ctx, page.ID, block.ID, ourPatch, reloaded[0].Version)
	require.NoError(t, err)
	assert.Equal(t, block.Version+2, confirmed.Version)
	assert.Equal(t, "ours", confirmed.PlainText)
}

func TestUpdateBlockContentRollbackIsExact(t *testing.T) {
	c, fs, _ := newFaultClient(t)
	ctx := context.Background()
	page, _ := setupPageWithBlocks(t, c, 2)

	before, err := c.Blocks(ctx, page.ID)
	require.NoError(t, err)

	fs.failUpdateContent = func(int) error {
		return &store.ValidationError{Field: "content", Reason: "rejected"}
	}
	patch := store.ContentPatch{Content: models.JSONMap{"text": "nope"}, PlainText: "nope"}
	_, err = c.UpdateBlockContent(ctx, page.ID, before[0].ID, patch, before[0].Version)
	require.ErrorIs(t, err, store.ErrValidation)

	after, ok, stale := c.Cache().Read(cache.BlocksKey(page.ID))
	require.True(t, ok)
	// Validation failures are not conflicts: nothing changed server-side,
	// so the scope stays fresh.
	assert.False(t, stale)
	if diff := cmp.Diff(before, after.([]*models.Block), cmpIDs); diff != "" {
		t.Errorf("cache after rollback differs from before (-want +got):\n%s", diff)
	}
	// Rollback restores the original slice, not a rebuild.
	assert.Same(t, before[0], after.([]*models.Block)[0])
}

func TestMoveBlockDenseReorder(t *testing.T) {
	c, s, _ := newTestClient(t)
	ctx := context.Background()
	page, blocks := setupPageWithBlocks(t, c, 3)

	require.NoError(t, c.MoveBlock(ctx, page.ID, blocks[0].ID, 2))

	cached, err := c.Blocks(ctx, page.ID)
	require.NoError(t, err)
	wantIDs := []models.BlockID{blocks[1].ID, blocks[2].ID, blocks[0].ID}
	for i, b := range cached {
		assert.Equal(t, wantIDs[i], b.ID)
		assert.Equal(t, i, b.Order, "orders must be dense after a move")
	}

	stored, err := s.ListBlocks(ctx, page.ID)
	require.NoError(t, err)
	for i, b := range stored {
		assert.Equal(t, wantIDs[i], b.ID)
		assert.Equal(t, i, b.Order)
	}
}

func TestMoveBlockFailureRestoresExactOrder(t *testing.T) {
	c, fs, _ := newFaultClient(t)
	ctx := context.Background()
	page, blocks := setupPageWithBlocks(t, c, 3)

	before, err := c.Blocks(ctx, page.ID)
	require.NoError(t, err)

	// First order write lands, second one is rejected outright.
	fs.failUpdateOrder = func(call int) error {
		if call == 2 {
			return &store.ValidationError{Field: "order", Reason: "rejected"}
		}
		return nil
	}
	err = c.MoveBlock(ctx, page.ID, blocks[0].ID, 2)
	require.ErrorIs(t, err, store.ErrValidation)

	// The cache shows the exact pre-move order, with no staleness: a
	// reload here would race the compensation writes.
	after, ok, stale := c.Cache().Read(cache.BlocksKey(page.ID))
	require.True(t, ok)
	assert.False(t, stale)
	if diff := cmp.Diff(before, after.([]*models.Block), cmpIDs); diff != "" {
		t.Errorf("cache after aborted move differs (-want +got):\n%s", diff)
	}

	// The landed write was compensated, so the store converged back too.
	fs.failUpdateOrder = nil
	stored, err := fs.ListBlocks(ctx, page.ID)
	require.NoError(t, err)
	for i, b := range stored {
		assert.Equal(t, before[i].ID, b.ID)
		assert.Equal(t, before[i].Order, b.Order)
	}
}

func TestTransportFailureRetriesSamePrecondition(t *testing.T) {
	c, fs, _ := newFaultClient(t)
	ctx := context.Background()
	page, blocks := setupPageWithBlocks(t, c, 1)
	block := blocks[0]

	fs.failUpdateContent = func(call int) error {
		if call == 1 {
			return &store.TransportError{Op: "update", Err: context.DeadlineExceeded}
		}
		return nil
	}

	patch := store.ContentPatch{Content: models.JSONMap{"text": "retried"}, PlainText: "retried"}
	confirmed, err := c.UpdateBlockContent(ctx, page.ID, block.ID, patch, block.Version)
	require.NoError(t, err)
	// Exactly one server-side apply: the retry used the same precondition
	// and the version advanced once.
	assert.Equal(t, block.Version+1, confirmed.Version)
	assert.Equal(t, 2, fs.contentCalls)
}

func TestTransportFailureExhaustedRollsBack(t *testing.T) {
	c, fs, _ := newFaultClient(t)
	ctx := context.Background()
	page, blocks := setupPageWithBlocks(t, c, 1)

	before, err := c.Blocks(ctx, page.ID)
	require.NoError(t, err)

	fs.failUpdateContent = func(int) error {
		return &store.TransportError{Op: "update", Err: context.DeadlineExceeded}
	}
	patch := store.ContentPatch{Content: models.JSONMap{"text": "lost"}, PlainText: "lost"}
	_, err = c.UpdateBlockContent(ctx, page.ID, blocks[0].ID, patch, blocks[0].Version)
	require.ErrorIs(t, err, store.ErrTransport)

	after, ok, _ := c.Cache().Read(cache.BlocksKey(page.ID))
	require.True(t, ok)
	if diff := cmp.Diff(before, after.([]*models.Block), cmpIDs); diff != "" {
		t.Errorf("cache after exhausted retries differs (-want +got):\n%s", diff)
	}
}

func TestCreateBlockRollbackRemovesPlaceholder(t *testing.T) {
	c, fs, _ := newFaultClient(t)
	ctx := context.Background()
	page, _ := setupPageWithBlocks(t, c, 2)

	before, err := c.Blocks(ctx, page.ID)
	require.NoError(t, err)

	fs.failCreateBlock = func(int) error {
		return &store.ValidationError{Field: "type", Reason: "rejected"}
	}
	_, err = c.CreateBlock(ctx, page.ID, models.BlockTypeText, models.JSONMap{"text": "x"}, 1)
	require.ErrorIs(t, err, store.ErrValidation)

	after, ok, _ := c.Cache().Read(cache.BlocksKey(page.ID))
	require.True(t, ok)
	if diff := cmp.Diff(before, after.([]*models.Block), cmpIDs); diff != "" {
		t.Errorf("placeholder survived rollback (-want +got):\n%s", diff)
	}
}

func TestCreateBlockMidListShiftsOrders(t *testing.T) {
	c, _, _ := newTestClient(t)
	ctx := context.Background()
	page, blocks := setupPageWithBlocks(t, c, 2)

	inserted, err := c.CreateBlock(ctx, page.ID, models.BlockTypeTodo, models.JSONMap{"text": "mid"}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted.Order)

	list, err := c.Blocks(ctx, page.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, blocks[0].ID, list[0].ID)
	assert.Equal(t, inserted.ID, list[1].ID)
	assert.Equal(t, blocks[1].ID, list[2].ID)
	for i, b := range list {
		assert.Equal(t, i, b.Order)
	}
}

func TestDeleteBlockOptimistic(t *testing.T) {
	c, s, _ := newTestClient(t)
	ctx := context.Background()
	page, blocks := setupPageWithBlocks(t, c, 2)

	require.NoError(t, c.DeleteBlock(ctx, page.ID, blocks[0].ID))

	list, err := c.Blocks(ctx, page.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, blocks[1].ID, list[0].ID)

	_, err = s.GetBlock(ctx, blocks[0].ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteBlockFailureRestoresPosition(t *testing.T) {
	c, fs, _ := newFaultClient(t)
	ctx := context.Background()
	page, blocks := setupPageWithBlocks(t, c, 3)

	before, err := c.Blocks(ctx, page.ID)
	require.NoError(t, err)

	fs.failDeleteBlock = func(call int) error {
		return &store.ValidationError{Field: "block", Reason: "rejected"}
	}
	err = c.DeleteBlock(ctx, page.ID, blocks[1].ID)
	require.ErrorIs(t, err, store.ErrValidation)

	// The deleted block reappears in its original slot, not at the end.
	after, err := c.Blocks(ctx, page.ID)
	require.NoError(t, err)
	require.Len(t, after, 3)
	assert.Equal(t, blocks[1].ID, after[1].ID)
	if diff := cmp.Diff(before, after, cmpIDs); diff != "" {
		t.Errorf("list after failed delete differs (-want +got):\n%s", diff)
	}
}

func TestEditorLifecycle(t *testing.T) {
	c, _, _ := newTestClient(t)
	ctx := context.Background()
	page, blocks := setupPageWithBlocks(t, c, 1)

	ed, err := c.EditBlock(ctx, page.ID, blocks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, StateViewing, ed.State())

	require.NoError(t, ed.SetDraft(models.JSONMap{"text": "draft"}, "draft"))
	assert.Equal(t, StateEditing, ed.State())
	assert.Equal(t, "draft", ed.Block().PlainText)

	require.NoError(t, ed.Save(ctx))
	assert.Equal(t, StateViewing, ed.State())
	assert.Equal(t, int64(1), ed.Block().Version)
	assert.NoError(t, ed.Err())
}

func TestEditorConflictKeepsDraft(t *testing.T) {
	c, s, _ := newTestClient(t)
	ctx := context.Background()
	page, blocks := setupPageWithBlocks(t, c, 1)

	ed, err := c.EditBlock(ctx, page.ID, blocks[0].ID)
	require.NoError(t, err)
	require.NoError(t, ed.SetDraft(models.JSONMap{"text": "mine"}, "mine"))

	// Someone else commits first.
	_, err = s.UpdateBlockContent(ctx, blocks[0].ID,
		store.ContentPatch{Content: models.JSONMap{"text": "theirs"}, PlainText: "theirs"}, 0)
	require.NoError(t, err)

	err = ed.Save(ctx)
	require.ErrorIs(t, err, store.ErrVersionConflict)
	assert.Equal(t, StateConflict, ed.State())
	assert.ErrorIs(t, ed.Err(), store.ErrVersionConflict)
	// The draft survives the conflict.
	assert.Equal(t, "mine", ed.Block().PlainText)

	// Saving while conflicted is refused until a reload.
	err = ed.Save(ctx)
	require.ErrorIs(t, err, store.ErrValidation)

	require.NoError(t, ed.Reload(ctx))
	assert.Equal(t, StateEditing, ed.State())

	require.NoError(t, ed.Save(ctx))
	assert.Equal(t, StateViewing, ed.State())
	assert.Equal(t, int64(2), ed.Block().Version)
	assert.Equal(t, "mine", ed.Block().PlainText)
}

func TestOpenPageRealtimeInvalidation(t *testing.T) {
	c, s, _ := newTestClient(t)
	ctx := context.Background()
	page, blocks := setupPageWithBlocks(t, c, 1)

	view, err := c.OpenPage(ctx, page.ID)
	require.NoError(t, err)
	defer view.Close()
	require.False(t, view.Stale())

	// Another session edits through the store; the event marks the block
	// scope stale but writes nothing into the cache.
	_, err = s.UpdateBlockContent(ctx, blocks[0].ID,
		store.ContentPatch{Content: models.JSONMap{"text": "remote"}, PlainText: "remote"}, 0)
	require.NoError(t, err)

	require.Eventually(t, view.Stale, time.Second, 5*time.Millisecond)

	fresh, err := view.Blocks(ctx)
	require.NoError(t, err)
	assert.Equal(t, "remote", fresh[0].PlainText)
	assert.False(t, view.Stale())
}

func TestOpenPageIgnoresOtherPages(t *testing.T) {
	c, s, _ := newTestClient(t)
	ctx := context.Background()
	page, _ := setupPageWithBlocks(t, c, 1)
	other, otherBlocks := setupPageWithBlocks(t, c, 1)

	view, err := c.OpenPage(ctx, page.ID)
	require.NoError(t, err)
	defer view.Close()

	_, err = s.UpdateBlockContent(ctx, otherBlocks[0].ID,
		store.ContentPatch{Content: models.JSONMap{"text": "elsewhere"}, PlainText: "elsewhere"}, 0)
	require.NoError(t, err)
	_ = other

	// Give the hub time to (not) deliver.
	time.Sleep(50 * time.Millisecond)
	assert.False(t, view.Stale())
}

func TestOpenRowPageInvalidatesRowsOnRemoteValueWrite(t *testing.T) {
	c, s, _ := newTestClient(t)
	ctx := context.Background()

	dbPage, db, err := c.CreateDatabasePage(ctx, CreatePageParams{Title: "Tasks"})
	require.NoError(t, err)
	props, err := c.Properties(ctx, db.ID)
	require.NoError(t, err)
	row, err := c.CreateRow(ctx, db.ID, "Task")
	require.NoError(t, err)

	// Warm the joined rows, then watch the row page.
	_, err = c.Database(ctx, dbPage.ID)
	require.NoError(t, err)
	view, err := c.OpenPage(ctx, row.ID)
	require.NoError(t, err)
	defer view.Close()
	require.False(t, view.Stale())

	// Another session sets a cell through the store; the event marks the
	// joined rows stale so the next read picks the value up.
	require.NoError(t, s.UpsertPropertyValue(ctx, &models.PagePropertyValue{
		PageID:     row.ID,
		PropertyID: props[0].ID,
		Value:      models.JSONMap{"value": "in-progress"},
	}))

	require.Eventually(t, func() bool {
		_, ok, stale := c.Cache().Read(cache.RowsKey(db.ID))
		return ok && stale
	}, time.Second, 5*time.Millisecond)
	assert.True(t, view.Stale())

	fresh, err := c.Database(ctx, dbPage.ID)
	require.NoError(t, err)
	require.Len(t, fresh.Rows, 1)
	got, ok := fresh.Rows[0].Values[props[0].ID]
	require.True(t, ok)
	assert.Equal(t, "in-progress", got.Value["value"])
}

func TestOpenDatabasePageTracksRemoteCellWrites(t *testing.T) {
	c, s, _ := newTestClient(t)
	ctx := context.Background()

	dbPage, db, err := c.CreateDatabasePage(ctx, CreatePageParams{Title: "Tasks"})
	require.NoError(t, err)
	props, err := c.Properties(ctx, db.ID)
	require.NoError(t, err)
	row, err := c.CreateRow(ctx, db.ID, "Task")
	require.NoError(t, err)

	_, err = c.Database(ctx, dbPage.ID)
	require.NoError(t, err)
	view, err := c.OpenPage(ctx, dbPage.ID)
	require.NoError(t, err)
	defer view.Close()
	require.False(t, view.Stale())

	require.NoError(t, s.UpsertPropertyValue(ctx, &models.PagePropertyValue{
		PageID:     row.ID,
		PropertyID: props[0].ID,
		Value:      models.JSONMap{"value": "completed"},
	}))

	require.Eventually(t, view.Stale, time.Second, 5*time.Millisecond)

	fresh, err := c.Database(ctx, dbPage.ID)
	require.NoError(t, err)
	got, ok := fresh.Rows[0].Values[props[0].ID]
	require.True(t, ok)
	assert.Equal(t, "completed", got.Value["value"])
}

func TestDatabaseViewJoin(t *testing.T) {
	c, _, _ := newTestClient(t)
	ctx := context.Background()

	dbPage, db, err := c.CreateDatabasePage(ctx, CreatePageParams{Title: "Tasks"})
	require.NoError(t, err)

	// A fresh database carries the default Status property.
	props, err := c.Properties(ctx, db.ID)
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, "Status", props[0].Name)
	assert.Equal(t, models.PropertyTypeStatus, props[0].Type)

	rowA, err := c.CreateRow(ctx, db.ID, "Task A")
	require.NoError(t, err)
	rowB, err := c.CreateRow(ctx, db.ID, "Task B")
	require.NoError(t, err)

	_, err = c.SetPageProperty(ctx, db.ID, rowA.ID, props[0].ID, models.JSONMap{"value": "in-progress"})
	require.NoError(t, err)

	view, err := c.Database(ctx, dbPage.ID)
	require.NoError(t, err)
	require.Len(t, view.Rows, 2)

	byPage := map[models.PageID]*Row{}
	for _, r := range view.Rows {
		byPage[r.Page.ID] = r
	}
	require.Contains(t, byPage, rowA.ID)
	require.Contains(t, byPage, rowB.ID)
	assert.Equal(t, "in-progress", byPage[rowA.ID].Values[props[0].ID].Value["value"])
	// A row with no stored value has no entry, not a null-filled one.
	_, has := byPage[rowB.ID].Values[props[0].ID]
	assert.False(t, has)

	// The name projection resolves against the current definitions.
	cells := view.Cells(byPage[rowA.ID])
	require.Contains(t, cells, "Status")
	assert.Equal(t, "in-progress", cells["Status"].Value["value"])
	assert.Empty(t, view.Cells(byPage[rowB.ID]))
}

func TestDatabaseBootstrapOnFirstOpen(t *testing.T) {
	c, _, _ := newTestClient(t)
	ctx := context.Background()

	// A database page without its sidecar record, as an import would
	// leave it.
	page, err := c.CreatePage(ctx, CreatePageParams{Title: "Imported", Type: models.PageTypeDatabase})
	require.NoError(t, err)

	view, err := c.Database(ctx, page.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Database)
	assert.Equal(t, page.ID, view.Database.PageID)
	require.Len(t, view.Properties, 1)
	assert.Equal(t, models.PropertyTypeStatus, view.Properties[0].Type)

	// The repair persisted, not just cached.
	again, err := c.Database(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, view.Database.ID, again.Database.ID)
}

func TestDatabaseOnNonDatabasePage(t *testing.T) {
	c, _, _ := newTestClient(t)
	ctx := context.Background()

	page, err := c.CreatePage(ctx, CreatePageParams{Title: "Just notes"})
	require.NoError(t, err)

	_, err = c.Database(ctx, page.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSetPagePropertyLastWriteWins(t *testing.T) {
	c, _, _ := newTestClient(t)
	ctx := context.Background()

	dbPage, db, err := c.CreateDatabasePage(ctx, CreatePageParams{Title: "Tasks"})
	require.NoError(t, err)
	props, err := c.Properties(ctx, db.ID)
	require.NoError(t, err)
	row, err := c.CreateRow(ctx, db.ID, "Task")
	require.NoError(t, err)

	// Two writes with no version handshake: both succeed, last wins.
	_, err = c.SetPageProperty(ctx, db.ID, row.ID, props[0].ID, models.JSONMap{"value": "not-started"})
	require.NoError(t, err)
	_, err = c.SetPageProperty(ctx, db.ID, row.ID, props[0].ID, models.JSONMap{"value": "completed"})
	require.NoError(t, err)

	view, err := c.Database(ctx, dbPage.ID)
	require.NoError(t, err)
	require.Len(t, view.Rows, 1)
	assert.Equal(t, "completed", view.Rows[0].Values[props[0].ID].Value["value"])
}

func TestSetPagePropertyRejectsUnknownOption(t *testing.T) {
	c, _, _ := newTestClient(t)
	ctx := context.Background()

	_, db, err := c.CreateDatabasePage(ctx, CreatePageParams{Title: "Tasks"})
	require.NoError(t, err)
	props, err := c.Properties(ctx, db.ID)
	require.NoError(t, err)
	row, err := c.CreateRow(ctx, db.ID, "Task")
	require.NoError(t, err)

	before, err := c.Database(ctx, db.PageID)
	require.NoError(t, err)
	require.Empty(t, before.Rows[0].Values)

	_, err = c.SetPageProperty(ctx, db.ID, row.ID, props[0].ID, models.JSONMap{"value": "bogus"})
	require.ErrorIs(t, err, store.ErrValidation)

	// The optimistic cell write rolled back.
	after, err := c.Database(ctx, db.PageID)
	require.NoError(t, err)
	assert.Empty(t, after.Rows[0].Values)
}

func TestPageLifecycle(t *testing.T) {
	c, _, _ := newTestClient(t)
	ctx := context.Background()

	page, err := c.CreatePage(ctx, CreatePageParams{Title: "Notes", Icon: "📝"})
	require.NoError(t, err)

	ws, err := c.Workspace(ctx)
	require.NoError(t, err)
	require.Len(t, ws.PrivatePages, 1)
	assert.Empty(t, ws.Favorites)

	_, err = c.UpdatePage(ctx, page.ID, func(p *models.Page) {
		p.Title = "Renamed"
		p.Favorite = true
	})
	require.NoError(t, err)

	ws, err = c.Workspace(ctx)
	require.NoError(t, err)
	require.Len(t, ws.Favorites, 1)
	assert.Equal(t, "Renamed", ws.Favorites[0].Title)

	require.NoError(t, c.TrashPage(ctx, page.ID))
	ws, err = c.Workspace(ctx)
	require.NoError(t, err)
	assert.Empty(t, ws.PrivatePages)

	trashed, err := c.TrashedPages(ctx)
	require.NoError(t, err)
	require.Len(t, trashed, 1)

	require.NoError(t, c.RestorePage(ctx, page.ID))
	ws, err = c.Workspace(ctx)
	require.NoError(t, err)
	require.Len(t, ws.PrivatePages, 1)
}

func TestCommentsFlow(t *testing.T) {
	c, _, _ := newTestClient(t)
	ctx := context.Background()
	page, _ := setupPageWithBlocks(t, c, 1)

	comment, err := c.AddComment(ctx, page.ID, "first!")
	require.NoError(t, err)

	list, err := c.Comments(ctx, page.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].ResolvedAt)

	require.NoError(t, c.ResolveComment(ctx, page.ID, comment.ID))
	list, err = c.Comments(ctx, page.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotNil(t, list[0].ResolvedAt)

	require.NoError(t, c.DeleteComment(ctx, page.ID, comment.ID))
	list, err = c.Comments(ctx, page.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTeamSpaceFlow(t *testing.T) {
	c, _, userID := newTestClient(t)
	ctx := context.Background()

	space, err := c.CreateTeamSpace(ctx, "Engineering", "🛠")
	require.NoError(t, err)

	members, err := c.Members(ctx, space.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, userID, members[0].UserID)
	assert.Equal(t, models.RoleOwner, members[0].Role)

	page, err := c.CreatePage(ctx, CreatePageParams{Title: "Team Doc", TeamSpaceID: &space.ID})
	require.NoError(t, err)

	pages, err := c.TeamPages(ctx, space.ID)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, page.ID, pages[0].ID)

	// Team pages do not show up in the private workspace list.
	ws, err := c.Workspace(ctx)
	require.NoError(t, err)
	assert.Empty(t, ws.PrivatePages)
}

func TestInboxFlow(t *testing.T) {
	c, _, userID := newTestClient(t)
	ctx := context.Background()

	_, err := c.Notify(ctx, userID, models.NotificationMention, "Mentioned you", "in Team Doc", "/pages/abc")
	require.NoError(t, err)
	_, err = c.Notify(ctx, userID, models.NotificationComment, "New comment", "on Team Doc", "")
	require.NoError(t, err)
	// Another user's inbox entry stays out of ours.
	_, err = c.Notify(ctx, models.NewUserID(), models.NotificationInfo, "Elsewhere", "", "")
	require.NoError(t, err)

	inbox, err := c.Notifications(ctx)
	require.NoError(t, err)
	require.Len(t, inbox, 2)

	count, err := c.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, c.MarkAllNotificationsRead(ctx))

	inbox, err = c.Notifications(ctx)
	require.NoError(t, err)
	for _, n := range inbox {
		assert.True(t, n.Read)
	}
	count, err = c.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMeetingsFlow(t *testing.T) {
	c, _, userID := newTestClient(t)
	ctx := context.Background()

	later := time.Now().Add(48 * time.Hour).UTC()
	sooner := time.Now().Add(time.Hour).UTC()
	_, err := c.CreateMeeting(ctx, CreateMeetingParams{Title: "Retro", Date: later})
	require.NoError(t, err)
	meeting, err := c.CreateMeeting(ctx, CreateMeetingParams{
		Title:        "Planning",
		Date:         sooner,
		Participants: []string{"ada@example.com"},
		Notes:        "agenda tbd",
	})
	require.NoError(t, err)
	assert.Equal(t, userID, meeting.CreatedBy)

	meetings, err := c.Meetings(ctx)
	require.NoError(t, err)
	require.Len(t, meetings, 2)
	// Calendar order, soonest first.
	assert.Equal(t, "Planning", meetings[0].Title)
	assert.Equal(t, "Retro", meetings[1].Title)

	_, err = c.CreateMeeting(ctx, CreateMeetingParams{Date: sooner})
	assert.ErrorIs(t, err, store.ErrValidation)
}
