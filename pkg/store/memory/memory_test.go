package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewave/notewave/pkg/models"
	"github.com/notewave/notewave/pkg/store"
)

func newTestPage(t *testing.T, s *Store, owner models.UserID) *models.Page {
	t.Helper()
	page := &models.Page{Title: "Test Page", OwnerID: owner}
	require.NoError(t, s.CreatePage(context.Background(), page))
	return page
}

func TestCreateAndGetPage(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	owner := models.NewUserID()
	page := newTestPage(t, s, owner)
	assert.False(t, page.ID.IsZero())
	assert.Equal(t, models.PageTypeBlank, page.Type)

	got, err := s.GetPage(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, page.ID, got.ID)
	assert.Equal(t, "Test Page", got.Title)
}

func TestGetPageNotFound(t *testing.T) {
	s := New()
	defer s.Close()

	_, err := s.GetPage(context.Background(), models.NewPageID())
	assert.ErrorIs(t, err, store.ErrNotFound)

	var nf *store.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, models.TablePages, nf.Table)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	page := newTestPage(t, s, models.NewUserID())
	got, err := s.GetPage(ctx, page.ID)
	require.NoError(t, err)

	got.Title = "mutated"
	again, err := s.GetPage(ctx, page.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test Page", again.Title)
}

func TestTrashRestorePage(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	owner := models.NewUserID()
	page := newTestPage(t, s, owner)

	require.NoError(t, s.TrashPage(ctx, page.ID))

	private, err := s.ListPrivatePages(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, private)

	trashed, err := s.ListTrashedPages(ctx, owner)
	require.NoError(t, err)
	require.Len(t, trashed, 1)
	assert.Equal(t, page.ID, trashed[0].ID)

	require.NoError(t, s.RestorePage(ctx, page.ID))

	private, err = s.ListPrivatePages(ctx, owner)
	require.NoError(t, err)
	require.Len(t, private, 1)

	trashed, err = s.ListTrashedPages(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, trashed)
}

func TestUpdateBlockContentVersionCheck(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	page := newTestPage(t, s, models.NewUserID())
	block := &models.Block{
		PageID:  page.ID,
		Type:    models.BlockTypeText,
		Content: models.JSONMap{"text": "hello"},
	}
	require.NoError(t, s.CreateBlock(ctx, block))
	assert.Equal(t, int64(0), block.Version)

	patch := store.ContentPatch{
		Content:   models.JSONMap{"text": "hello world"},
		PlainText: "hello world",
	}
	updated, err := s.UpdateBlockContent(ctx, block.ID, patch, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.Version)
	assert.Equal(t, "hello world", updated.PlainText)

	// A writer that still holds version 0 must be rejected.
	_, err = s.UpdateBlockContent(ctx, block.ID, patch, 0)
	assert.ErrorIs(t, err, store.ErrVersionConflict)

	var conflict *store.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, block.ID, conflict.BlockID)
	assert.Equal(t, int64(0), conflict.ExpectedVersion)
	assert.Equal(t, int64(1), conflict.CurrentVersion)
}

func TestUpdateBlockContentMissingBlock(t *testing.T) {
	s := New()
	defer s.Close()

	_, err := s.UpdateBlockContent(context.Background(), models.NewBlockID(), store.ContentPatch{}, 0)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NotErrorIs(t, err, store.ErrVersionConflict)
}

func TestListBlocksOrdering(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	page := newTestPage(t, s, models.NewUserID())
	for i, order := range []int{2, 0, 1} {
		block := &models.Block{
			PageID:  page.ID,
			Type:    models.BlockTypeText,
			Content: models.JSONMap{"n": i},
			Order:   order,
		}
		require.NoError(t, s.CreateBlock(ctx, block))
	}

	blocks, err := s.ListBlocks(ctx, page.ID)
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	for i, b := range blocks {
		assert.Equal(t, i, b.Order)
	}
}

func TestUpsertPropertyValue(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	owner := models.NewUserID()
	dbPage := &models.Page{Title: "Tasks", Type: models.PageTypeDatabase, OwnerID: owner}
	require.NoError(t, s.CreatePage(ctx, dbPage))
	db := &models.Database{PageID: dbPage.ID}
	require.NoError(t, s.CreateDatabase(ctx, db))
	prop := &models.DatabaseProperty{DatabaseID: db.ID, Name: "Notes", Type: models.PropertyTypeText}
	require.NoError(t, s.CreateProperty(ctx, prop))
	row := &models.Page{Title: "Row", OwnerID: owner, ParentDatabaseID: &db.ID}
	require.NoError(t, s.CreatePage(ctx, row))

	first := &models.PagePropertyValue{
		PageID:     row.ID,
		PropertyID: prop.ID,
		Value:      models.JSONMap{"value": "draft"},
	}
	require.NoError(t, s.UpsertPropertyValue(ctx, first))
	firstID := first.ID

	second := &models.PagePropertyValue{
		PageID:     row.ID,
		PropertyID: prop.ID,
		Value:      models.JSONMap{"value": "final"},
	}
	require.NoError(t, s.UpsertPropertyValue(ctx, second))

	// Same (page, property) pair: the upsert overwrote, it did not insert.
	assert.Equal(t, firstID, second.ID)

	values, err := s.ListPropertyValues(ctx, []models.PageID{row.ID})
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, "final", values[0].Value["value"])
}

func TestUpsertPropertyValueValidation(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	owner := models.NewUserID()
	dbPage := &models.Page{Title: "Tasks", Type: models.PageTypeDatabase, OwnerID: owner}
	require.NoError(t, s.CreatePage(ctx, dbPage))
	db := &models.Database{PageID: dbPage.ID}
	require.NoError(t, s.CreateDatabase(ctx, db))
	status := &models.DatabaseProperty{
		DatabaseID: db.ID,
		Name:       "Status",
		Type:       models.PropertyTypeStatus,
		Config: models.JSONMap{"options": []any{
			map[string]any{"id": "1", "name": "not-started"},
			map[string]any{"id": "2", "name": "completed"},
		}},
	}
	require.NoError(t, s.CreateProperty(ctx, status))
	row := &models.Page{Title: "Row", OwnerID: owner, ParentDatabaseID: &db.ID}
	require.NoError(t, s.CreatePage(ctx, row))

	bad := &models.PagePropertyValue{
		PageID:     row.ID,
		PropertyID: status.ID,
		Value:      models.JSONMap{"value": "no-such-option"},
	}
	err := s.UpsertPropertyValue(ctx, bad)
	assert.ErrorIs(t, err, store.ErrValidation)

	good := &models.PagePropertyValue{
		PageID:     row.ID,
		PropertyID: status.ID,
		Value:      models.JSONMap{"value": "completed"},
	}
	assert.NoError(t, s.UpsertPropertyValue(ctx, good))
}

func TestListPropertyValuesBatched(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	owner := models.NewUserID()
	dbPage := &models.Page{Title: "Tasks", Type: models.PageTypeDatabase, OwnerID: owner}
	require.NoError(t, s.CreatePage(ctx, dbPage))
	db := &models.Database{PageID: dbPage.ID}
	require.NoError(t, s.CreateDatabase(ctx, db))
	prop := &models.DatabaseProperty{DatabaseID: db.ID, Name: "Notes", Type: models.PropertyTypeText}
	require.NoError(t, s.CreateProperty(ctx, prop))

	var rowIDs []models.PageID
	for i := 0; i < 3; i++ {
		row := &models.Page{Title: "Row", OwnerID: owner, ParentDatabaseID: &db.ID}
		require.NoError(t, s.CreatePage(ctx, row))
		rowIDs = append(rowIDs, row.ID)
		v := &models.PagePropertyValue{
			PageID:     row.ID,
			PropertyID: prop.ID,
			Value:      models.JSONMap{"value": "x"},
		}
		require.NoError(t, s.UpsertPropertyValue(ctx, v))
	}

	// Only the requested pages' values come back.
	values, err := s.ListPropertyValues(ctx, rowIDs[:2])
	require.NoError(t, err)
	assert.Len(t, values, 2)
}

func TestDeletePageCascades(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	owner := models.NewUserID()
	dbPage := &models.Page{Title: "Tasks", Type: models.PageTypeDatabase, OwnerID: owner}
	require.NoError(t, s.CreatePage(ctx, dbPage))
	db := &models.Database{PageID: dbPage.ID}
	require.NoError(t, s.CreateDatabase(ctx, db))
	prop := &models.DatabaseProperty{DatabaseID: db.ID, Name: "Notes", Type: models.PropertyTypeText}
	require.NoError(t, s.CreateProperty(ctx, prop))
	block := &models.Block{PageID: dbPage.ID, Type: models.BlockTypeText}
	require.NoError(t, s.CreateBlock(ctx, block))
	comment := &models.Comment{PageID: dbPage.ID, UserID: owner, Content: "hi"}
	require.NoError(t, s.CreateComment(ctx, comment))

	require.NoError(t, s.DeletePage(ctx, dbPage.ID))

	_, err := s.GetPage(ctx, dbPage.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetBlock(ctx, block.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetDatabaseByPage(ctx, dbPage.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	props, err := s.ListProperties(ctx, db.ID)
	require.NoError(t, err)
	assert.Empty(t, props)
}

func TestTeamSpaceMembership(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	creator := models.NewUserID()
	space := &models.TeamSpace{Name: "Engineering", CreatedBy: creator}
	require.NoError(t, s.CreateTeamSpace(ctx, space))

	// The creator is enrolled as owner automatically.
	members, err := s.ListTeamMembers(ctx, space.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, creator, members[0].UserID)
	assert.Equal(t, models.RoleOwner, members[0].Role)

	other := models.NewUserID()
	member := &models.TeamSpaceMember{TeamSpaceID: space.ID, UserID: other, Role: models.RoleEditor}
	require.NoError(t, s.AddTeamMember(ctx, member))

	dup := &models.TeamSpaceMember{TeamSpaceID: space.ID, UserID: other, Role: models.RoleViewer}
	assert.ErrorIs(t, s.AddTeamMember(ctx, dup), store.ErrValidation)

	spaces, err := s.ListTeamSpaces(ctx, other)
	require.NoError(t, err)
	require.Len(t, spaces, 1)
	assert.Equal(t, space.ID, spaces[0].ID)

	require.NoError(t, s.RemoveTeamMember(ctx, member.ID))
	spaces, err = s.ListTeamSpaces(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, spaces)
}

func TestComments(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	owner := models.NewUserID()
	page := newTestPage(t, s, owner)

	c := &models.Comment{PageID: page.ID, UserID: owner, Content: "looks good"}
	require.NoError(t, s.CreateComment(ctx, c))

	require.NoError(t, s.ResolveComment(ctx, c.ID))
	list, err := s.ListComments(ctx, page.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotNil(t, list[0].ResolvedAt)

	require.NoError(t, s.DeleteComment(ctx, c.ID))
	list, err = s.ListComments(ctx, page.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func waitEvent(t *testing.T, sub store.Subscription) store.Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription closed before event arrived")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return store.Event{}
	}
}

func TestUsers(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	user := &models.User{Email: "ada@example.com", Name: "Ada"}
	require.NoError(t, s.CreateUser(ctx, user))
	assert.False(t, user.ID.IsZero())

	dup := &models.User{Email: "ada@example.com", Name: "Imposter"}
	err := s.CreateUser(ctx, dup)
	assert.ErrorIs(t, err, store.ErrValidation)

	got, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)

	byEmail, err := s.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNotificationsInbox(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()
	user := models.NewUserID()

	// Tick the clock so creation order is observable.
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	s.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})

	first := &models.Notification{UserID: user, Title: "Mentioned you", Kind: models.NotificationMention}
	require.NoError(t, s.CreateNotification(ctx, first))
	second := &models.Notification{UserID: user, Title: "New comment", Kind: models.NotificationComment}
	require.NoError(t, s.CreateNotification(ctx, second))
	other := &models.Notification{UserID: models.NewUserID(), Title: "Elsewhere"}
	require.NoError(t, s.CreateNotification(ctx, other))

	err := s.CreateNotification(ctx, &models.Notification{UserID: user})
	assert.ErrorIs(t, err, store.ErrValidation)
	err = s.CreateNotification(ctx, &models.Notification{Title: "No recipient"})
	assert.ErrorIs(t, err, store.ErrValidation)

	inbox, err := s.ListNotifications(ctx, user)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	// Newest first.
	assert.Equal(t, second.ID, inbox[0].ID)
	assert.Equal(t, first.ID, inbox[1].ID)
	assert.False(t, inbox[0].Read)

	require.NoError(t, s.MarkNotificationsRead(ctx, user))
	inbox, err = s.ListNotifications(ctx, user)
	require.NoError(t, err)
	for _, n := range inbox {
		assert.True(t, n.Read)
	}

	// The other user's entry is untouched.
	others, err := s.ListNotifications(ctx, other.UserID)
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.False(t, others[0].Read)
}

func TestMeetings(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	later := &models.Meeting{
		Title:     "Retro",
		Date:      time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC),
		CreatedBy: models.NewUserID(),
	}
	require.NoError(t, s.CreateMeeting(ctx, later))
	sooner := &models.Meeting{
		Title:        "Planning",
		Date:         time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
		Participants: models.StringList{"ada@example.com"},
		CreatedBy:    models.NewUserID(),
	}
	require.NoError(t, s.CreateMeeting(ctx, sooner))

	err := s.CreateMeeting(ctx, &models.Meeting{Date: later.Date})
	assert.ErrorIs(t, err, store.ErrValidation)
	err = s.CreateMeeting(ctx, &models.Meeting{Title: "No date"})
	assert.ErrorIs(t, err, store.ErrValidation)

	meetings, err := s.ListMeetings(ctx)
	require.NoError(t, err)
	require.Len(t, meetings, 2)
	assert.Equal(t, "Planning", meetings[0].Title)
	assert.Equal(t, "Retro", meetings[1].Title)
	assert.Equal(t, models.StringList{"ada@example.com"}, meetings[0].Participants)
}

func TestSubscribePageFilter(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	owner := models.NewUserID()
	watched := newTestPage(t, s, owner)
	other := newTestPage(t, s, owner)

	sub, err := s.Subscribe(ctx, models.TableBlocks, store.EventFilter{PageID: &watched.ID})
	require.NoError(t, err)
	defer sub.Close()

	// A block on the other page must not reach this subscriber.
	require.NoError(t, s.CreateBlock(ctx, &models.Block{PageID: other.ID, Type: models.BlockTypeText}))
	require.NoError(t, s.CreateBlock(ctx, &models.Block{PageID: watched.ID, Type: models.BlockTypeText}))

	ev := waitEvent(t, sub)
	assert.Equal(t, store.ActionCreate, ev.Action)
	assert.Equal(t, watched.ID, ev.PageID)
	assert.Equal(t, models.TableBlocks, ev.Table)

	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected extra event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeDatabaseFilter(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	owner := models.NewUserID()
	dbPage := &models.Page{Title: "Tasks", Type: models.PageTypeDatabase, OwnerID: owner}
	require.NoError(t, s.CreatePage(ctx, dbPage))
	db := &models.Database{PageID: dbPage.ID}
	require.NoError(t, s.CreateDatabase(ctx, db))
	prop := &models.DatabaseProperty{DatabaseID: db.ID, Name: "Notes", Type: models.PropertyTypeText}
	require.NoError(t, s.CreateProperty(ctx, prop))
	row := &models.Page{Title: "Row", OwnerID: owner, ParentDatabaseID: &db.ID}
	require.NoError(t, s.CreatePage(ctx, row))
	standalone := newTestPage(t, s, owner)

	sub, err := s.Subscribe(ctx, models.TablePropertyValues, store.EventFilter{DatabaseID: &db.ID})
	require.NoError(t, err)
	defer sub.Close()

	// Standalone pages carry no database scope; their value writes (none
	// are legal here, but block events use the same path) never match a
	// DatabaseID filter.
	_ = standalone

	v := &models.PagePropertyValue{
		PageID:     row.ID,
		PropertyID: prop.ID,
		Value:      models.JSONMap{"value": "x"},
	}
	require.NoError(t, s.UpsertPropertyValue(ctx, v))

	ev := waitEvent(t, sub)
	assert.Equal(t, store.ActionUpdate, ev.Action)
	assert.Equal(t, row.ID, ev.PageID)
}

func TestSubscriptionCloseIdempotent(t *testing.T) {
	s := New()
	defer s.Close()

	sub, err := s.Subscribe(context.Background(), models.TableBlocks, store.EventFilter{})
	require.NoError(t, err)
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	_, ok := <-sub.Events()
	assert.False(t, ok)
}

func TestStoreCloseClosesSubscriptions(t *testing.T) {
	s := New()

	sub, err := s.Subscribe(context.Background(), models.TableBlocks, store.EventFilter{})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, ok := <-sub.Events()
	assert.False(t, ok)
}

func TestReadOnlyWrapper(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	readOnly := false
	ro := store.NewReadOnly(s, func() bool { return readOnly })

	page := &models.Page{Title: "P", OwnerID: models.NewUserID()}
	require.NoError(t, ro.CreatePage(ctx, page))

	readOnly = true
	err := ro.CreatePage(ctx, &models.Page{Title: "Q", OwnerID: models.NewUserID()})
	assert.ErrorIs(t, err, store.ErrValidation)

	// Reads still pass through.
	_, err = ro.GetPage(ctx, page.ID)
	assert.NoError(t, err)
}
