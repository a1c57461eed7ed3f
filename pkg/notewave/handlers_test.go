package notewave

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewave/notewave/pkg/identity"
	"github.com/notewave/notewave/pkg/models"
	"github.com/notewave/notewave/pkg/workspace"
)

func newTestApp(t *testing.T, readOnly bool) *App {
	t.Helper()
	cfg := &Config{
		Addr:     ":0",
		Backend:  BackendMemory,
		LogLevel: "disabled",
		ReadOnly: readOnly,
	}
	app, err := New(context.Background(), cfg)
	require.NoError(t, err)
	return app
}

func do(t *testing.T, app *App, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, false)
	rec := do(t, app, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPageLifecycle(t *testing.T) {
	app := newTestApp(t, false)

	rec := do(t, app, http.MethodPost, "/api/pages", map[string]any{"title": "Roadmap"})
	require.Equal(t, http.StatusCreated, rec.Code)
	page := decode[models.Page](t, rec)
	assert.Equal(t, "Roadmap", page.Title)

	rec = do(t, app, http.MethodGet, "/api/pages/"+page.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	full := decode[pageResponse](t, rec)
	assert.Equal(t, page.ID, full.Page.ID)
	assert.Empty(t, full.Blocks)

	rec = do(t, app, http.MethodPatch, "/api/pages/"+page.ID.String(), map[string]any{"title": "Roadmap 2026"})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[models.Page](t, rec)
	assert.Equal(t, "Roadmap 2026", updated.Title)

	rec = do(t, app, http.MethodGet, "/api/workspace", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[workspace.WorkspaceView](t, rec)
	require.Len(t, view.PrivatePages, 1)

	rec = do(t, app, http.MethodDelete, "/api/pages/"+page.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, app, http.MethodGet, "/api/trash", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	trashed := decode[[]models.Page](t, rec)
	require.Len(t, trashed, 1)

	rec = do(t, app, http.MethodPost, "/api/pages/"+page.ID.String()+"/restore", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, app, http.MethodGet, "/api/pages/"+page.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBlockVersionConflict(t *testing.T) {
	app := newTestApp(t, false)

	rec := do(t, app, http.MethodPost, "/api/pages", map[string]any{"title": "Doc"})
	require.Equal(t, http.StatusCreated, rec.Code)
	page := decode[models.Page](t, rec)
	base := fmt.Sprintf("/api/pages/%s/blocks", page.ID)

	rec = do(t, app, http.MethodPost, base, map[string]any{
		"type":    "text",
		"content": map[string]any{"text": "draft"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	block := decode[models.Block](t, rec)
	require.EqualValues(t, 0, block.Version)

	rec = do(t, app, http.MethodPatch, base+"/"+block.ID.String(), map[string]any{
		"content": map[string]any{"text": "first edit"},
		"version": 0,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	edited := decode[models.Block](t, rec)
	assert.EqualValues(t, 1, edited.Version)

	// A second writer still holding version 0 must get a conflict, not a
	// silent overwrite.
	rec = do(t, app, http.MethodPatch, base+"/"+block.ID.String(), map[string]any{
		"content": map[string]any{"text": "stale edit"},
		"version": 0,
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	conflict := decode[errorResponse](t, rec)
	assert.EqualValues(t, 1, conflict.CurrentVersion)

	rec = do(t, app, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	blocks := decode[[]models.Block](t, rec)
	require.Len(t, blocks, 1)
	assert.Equal(t, "first edit", blocks[0].Content["text"])
}

func TestBlockReorder(t *testing.T) {
	app := newTestApp(t, false)

	rec := do(t, app, http.MethodPost, "/api/pages", map[string]any{"title": "List"})
	require.Equal(t, http.StatusCreated, rec.Code)
	page := decode[models.Page](t, rec)
	base := fmt.Sprintf("/api/pages/%s/blocks", page.ID)

	var ids []string
	for _, text := range []string{"a", "b", "c"} {
		rec = do(t, app, http.MethodPost, base, map[string]any{
			"type":    "text",
			"content": map[string]any{"text": text},
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		ids = append(ids, decode[models.Block](t, rec).ID.String())
	}

	rec = do(t, app, http.MethodPost, base+"/"+ids[2]+"/move", map[string]any{"to_index": 0})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, app, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	blocks := decode[[]models.Block](t, rec)
	require.Len(t, blocks, 3)
	assert.Equal(t, "c", blocks[0].Content["text"])
	assert.Equal(t, "a", blocks[1].Content["text"])
	assert.Equal(t, "b", blocks[2].Content["text"])
}

func TestDatabaseFlow(t *testing.T) {
	app := newTestApp(t, false)

	rec := do(t, app, http.MethodPost, "/api/databases", map[string]any{"title": "Tasks"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[struct {
		Page     models.Page     `json:"page"`
		Database models.Database `json:"database"`
	}](t, rec)

	rec = do(t, app, http.MethodGet, "/api/pages/"+created.Page.ID.String()+"/database", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[workspace.DatabaseView](t, rec)
	require.Len(t, view.Properties, 1)
	status := view.Properties[0]
	assert.Equal(t, models.PropertyTypeStatus, status.Type)

	dbBase := "/api/databases/" + created.Database.ID.String()
	rec = do(t, app, http.MethodPost, dbBase+"/rows", map[string]any{"title": "Ship it"})
	require.Equal(t, http.StatusCreated, rec.Code)
	row := decode[models.Page](t, rec)

	valuePath := fmt.Sprintf("%s/rows/%s/values/%s", dbBase, row.ID, status.ID)
	rec = do(t, app, http.MethodPut, valuePath, map[string]any{
		"value": map[string]any{"value": "in-progress"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, app, http.MethodPut, valuePath, map[string]any{
		"value": map[string]any{"value": "no-such-option"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, app, http.MethodGet, "/api/pages/"+created.Page.ID.String()+"/database", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decode[workspace.DatabaseView](t, rec)
	require.Len(t, view.Rows, 1)
	val, ok := view.Rows[0].Values[status.ID]
	require.True(t, ok)
	assert.Equal(t, "in-progress", val.Value["value"])
}

func TestCommentsOverHTTP(t *testing.T) {
	app := newTestApp(t, false)

	rec := do(t, app, http.MethodPost, "/api/pages", map[string]any{"title": "Doc"})
	require.Equal(t, http.StatusCreated, rec.Code)
	page := decode[models.Page](t, rec)
	base := "/api/pages/" + page.ID.String() + "/comments"

	rec = do(t, app, http.MethodPost, base, map[string]any{"content": "looks good"})
	require.Equal(t, http.StatusCreated, rec.Code)
	comment := decode[models.Comment](t, rec)

	rec = do(t, app, http.MethodPost, base+"/"+comment.ID.String()+"/resolve", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, app, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	comments := decode[[]models.Comment](t, rec)
	require.Len(t, comments, 1)
	assert.NotNil(t, comments[0].ResolvedAt)
}

func TestErrorMapping(t *testing.T) {
	app := newTestApp(t, false)

	rec := do(t, app, http.MethodGet, "/api/pages/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, app, http.MethodGet, "/api/pages/"+models.NewPageID().String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReadOnlyMode(t *testing.T) {
	app := newTestApp(t, true)

	rec := do(t, app, http.MethodPost, "/api/pages", map[string]any{"title": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, app, http.MethodGet, "/api/workspace", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUserRegistrationAndToken(t *testing.T) {
	app := newTestApp(t, false)
	app.cfg.AuthSecret = "test-secret"

	rec := do(t, app, http.MethodPost, "/api/users", map[string]any{
		"email": "ada@example.com",
		"name":  "Ada",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	user := decode[models.User](t, rec)
	assert.Equal(t, "ada@example.com", user.Email)

	// Same email again is a validation failure, not a second account.
	rec = do(t, app, http.MethodPost, "/api/users", map[string]any{
		"email": "ada@example.com",
		"name":  "Ada again",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, app, http.MethodGet, "/api/users/"+user.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, app, http.MethodPost, "/api/auth/token", map[string]any{"email": "ada@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	require.NotEmpty(t, body["token"])

	provider := identity.NewTokenProvider([]byte("test-secret"), body["token"])
	got, err := provider.CurrentUserID()
	require.NoError(t, err)
	assert.Equal(t, user.ID, got)
}

func TestIssueTokenWithoutSecret(t *testing.T) {
	app := newTestApp(t, false)
	rec := do(t, app, http.MethodPost, "/api/auth/token", map[string]any{"email": "x@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInboxAndMeetingsOverHTTP(t *testing.T) {
	app := newTestApp(t, false)

	// The acting user owns every page it creates; a throwaway page
	// surfaces its ID without a dedicated endpoint.
	rec := do(t, app, http.MethodPost, "/api/pages", map[string]any{"title": "Scratch"})
	require.Equal(t, http.StatusCreated, rec.Code)
	self := decode[models.Page](t, rec).OwnerID

	rec = do(t, app, http.MethodPost, "/api/notifications", map[string]any{
		"user_id": self.String(),
		"kind":    "mention",
		"title":   "Mentioned you",
		"message": "in Scratch",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[models.Notification](t, rec)
	assert.Equal(t, models.NotificationMention, created.Kind)
	assert.False(t, created.Read)

	rec = do(t, app, http.MethodPost, "/api/notifications", map[string]any{
		"user_id": "not-a-uuid",
		"title":   "Lost",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, app, http.MethodGet, "/api/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	inbox := decode[[]models.Notification](t, rec)
	require.Len(t, inbox, 1)

	rec = do(t, app, http.MethodPost, "/api/notifications/read", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, app, http.MethodGet, "/api/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	inbox = decode[[]models.Notification](t, rec)
	require.Len(t, inbox, 1)
	assert.True(t, inbox[0].Read)

	rec = do(t, app, http.MethodPost, "/api/meetings", map[string]any{
		"title":        "Planning",
		"date":         "2026-09-07T10:00:00Z",
		"participants": []string{"ada@example.com"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	meeting := decode[models.Meeting](t, rec)
	assert.Equal(t, "Planning", meeting.Title)

	rec = do(t, app, http.MethodPost, "/api/meetings", map[string]any{"title": "No date"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, app, http.MethodGet, "/api/meetings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	meetings := decode[[]models.Meeting](t, rec)
	require.Len(t, meetings, 1)
}
