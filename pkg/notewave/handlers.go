package notewave

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/notewave/notewave/pkg/identity"
	"github.com/notewave/notewave/pkg/models"
	"github.com/notewave/notewave/pkg/store"
	"github.com/notewave/notewave/pkg/workspace"
)

func (a *App) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", a.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/workspace", a.handleWorkspace).Methods(http.MethodGet)
	api.HandleFunc("/trash", a.handleTrash).Methods(http.MethodGet)

	api.HandleFunc("/pages", a.handleCreatePage).Methods(http.MethodPost)
	api.HandleFunc("/pages/{pageID}", a.handleGetPage).Methods(http.MethodGet)
	api.HandleFunc("/pages/{pageID}", a.handleUpdatePage).Methods(http.MethodPatch)
	api.HandleFunc("/pages/{pageID}", a.handleTrashPage).Methods(http.MethodDelete)
	api.HandleFunc("/pages/{pageID}/restore", a.handleRestorePage).Methods(http.MethodPost)
	api.HandleFunc("/pages/{pageID}/purge", a.handlePurgePage).Methods(http.MethodDelete)
	api.HandleFunc("/pages/{pageID}/children", a.handleChildPages).Methods(http.MethodGet)

	api.HandleFunc("/pages/{pageID}/blocks", a.handleListBlocks).Methods(http.MethodGet)
	api.HandleFunc("/pages/{pageID}/blocks", a.handleCreateBlock).Methods(http.MethodPost)
	api.HandleFunc("/pages/{pageID}/blocks/{blockID}", a.handleUpdateBlock).Methods(http.MethodPatch)
	api.HandleFunc("/pages/{pageID}/blocks/{blockID}", a.handleDeleteBlock).Methods(http.MethodDelete)
	api.HandleFunc("/pages/{pageID}/blocks/{blockID}/move", a.handleMoveBlock).Methods(http.MethodPost)
	api.HandleFunc("/pages/{pageID}/blocks/{blockID}/type", a.handleChangeBlockType).Methods(http.MethodPost)

	api.HandleFunc("/databases", a.handleCreateDatabase).Methods(http.MethodPost)
	api.HandleFunc("/pages/{pageID}/database", a.handleDatabaseView).Methods(http.MethodGet)
	api.HandleFunc("/databases/{databaseID}/properties", a.handleAddProperty).Methods(http.MethodPost)
	api.HandleFunc("/databases/{databaseID}/properties/{propertyID}", a.handleUpdateProperty).Methods(http.MethodPatch)
	api.HandleFunc("/databases/{databaseID}/properties/{propertyID}", a.handleDeleteProperty).Methods(http.MethodDelete)
	api.HandleFunc("/databases/{databaseID}/rows", a.handleCreateRow).Methods(http.MethodPost)
	api.HandleFunc("/databases/{databaseID}/rows/{pageID}/values/{propertyID}", a.handleSetPageProperty).Methods(http.MethodPut)

	api.HandleFunc("/pages/{pageID}/comments", a.handleListComments).Methods(http.MethodGet)
	api.HandleFunc("/pages/{pageID}/comments", a.handleAddComment).Methods(http.MethodPost)
	api.HandleFunc("/pages/{pageID}/comments/{commentID}/resolve", a.handleResolveComment).Methods(http.MethodPost)
	api.HandleFunc("/pages/{pageID}/comments/{commentID}", a.handleDeleteComment).Methods(http.MethodDelete)

	api.HandleFunc("/notifications", a.handleListNotifications).Methods(http.MethodGet)
	api.HandleFunc("/notifications", a.handleCreateNotification).Methods(http.MethodPost)
	api.HandleFunc("/notifications/read", a.handleMarkNotificationsRead).Methods(http.MethodPost)

	api.HandleFunc("/meetings", a.handleListMeetings).Methods(http.MethodGet)
	api.HandleFunc("/meetings", a.handleCreateMeeting).Methods(http.MethodPost)

	api.HandleFunc("/users", a.handleRegisterUser).Methods(http.MethodPost)
	api.HandleFunc("/users/{userID}", a.handleGetUser).Methods(http.MethodGet)
	api.HandleFunc("/auth/token", a.handleIssueToken).Methods(http.MethodPost)

	api.HandleFunc("/teamspaces", a.handleCreateTeamSpace).Methods(http.MethodPost)
	api.HandleFunc("/teamspaces/{spaceID}/members", a.handleListMembers).Methods(http.MethodGet)
	api.HandleFunc("/teamspaces/{spaceID}/members", a.handleInviteMember).Methods(http.MethodPost)
	api.HandleFunc("/members/{memberID}", a.handleRemoveMember).Methods(http.MethodDelete)

	return r
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

type errorResponse struct {
	Error           string `json:"error"`
	ExpectedVersion int64  `json:"expected_version,omitempty"`
	CurrentVersion  int64  `json:"current_version,omitempty"`
}

func (a *App) respondError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrVersionConflict):
		status = http.StatusConflict
		var conflict *store.ConflictError
		if errors.As(err, &conflict) {
			resp.ExpectedVersion = conflict.ExpectedVersion
			resp.CurrentVersion = conflict.CurrentVersion
		}
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrTransport):
		status = http.StatusBadGateway
	case errors.Is(err, identity.ErrNoIdentity):
		status = http.StatusUnauthorized
	}
	if status >= http.StatusInternalServerError {
		a.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	respondJSON(w, status, resp)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &store.ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}

// Path-variable parsers. Wrapping the parse failure as a validation error
// keeps malformed IDs at 400 instead of 500.
func badVar(name string, err error) error {
	return &store.ValidationError{Field: name, Reason: err.Error()}
}

func pageIDVar(r *http.Request) (models.PageID, error) {
	id, err := models.ParsePageID(mux.Vars(r)["pageID"])
	if err != nil {
		return id, badVar("pageID", err)
	}
	return id, nil
}

func blockIDVar(r *http.Request) (models.BlockID, error) {
	id, err := models.ParseBlockID(mux.Vars(r)["blockID"])
	if err != nil {
		return id, badVar("blockID", err)
	}
	return id, nil
}

func databaseIDVar(r *http.Request) (models.DatabaseID, error) {
	id, err := models.ParseDatabaseID(mux.Vars(r)["databaseID"])
	if err != nil {
		return id, badVar("databaseID", err)
	}
	return id, nil
}

func propertyIDVar(r *http.Request) (models.PropertyID, error) {
	id, err := models.ParsePropertyID(mux.Vars(r)["propertyID"])
	if err != nil {
		return id, badVar("propertyID", err)
	}
	return id, nil
}

func commentIDVar(r *http.Request) (models.CommentID, error) {
	id, err := models.ParseCommentID(mux.Vars(r)["commentID"])
	if err != nil {
		return id, badVar("commentID", err)
	}
	return id, nil
}

func spaceIDVar(r *http.Request) (models.TeamSpaceID, error) {
	id, err := models.ParseTeamSpaceID(mux.Vars(r)["spaceID"])
	if err != nil {
		return id, badVar("spaceID", err)
	}
	return id, nil
}

func memberIDVar(r *http.Request) (models.MemberID, error) {
	id, err := models.ParseMemberID(mux.Vars(r)["memberID"])
	if err != nil {
		return id, badVar("memberID", err)
	}
	return id, nil
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handleWorkspace(w http.ResponseWriter, r *http.Request) {
	view, err := a.client.Workspace(r.Context())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (a *App) handleTrash(w http.ResponseWriter, r *http.Request) {
	pages, err := a.client.TrashedPages(r.Context())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pages)
}

type createPageRequest struct {
	Title        string  `json:"title"`
	Icon         string  `json:"icon"`
	Type         string  `json:"type"`
	TeamSpaceID  *string `json:"team_space_id"`
	ParentPageID *string `json:"parent_page_id"`
	Position     int     `json:"position"`
}

func (req *createPageRequest) params() (workspace.CreatePageParams, error) {
	params := workspace.CreatePageParams{
		Title:    req.Title,
		Icon:     req.Icon,
		Position: req.Position,
	}
	if req.Type != "" {
		params.Type = models.PageType(req.Type)
	}
	if req.TeamSpaceID != nil {
		id, err := models.ParseTeamSpaceID(*req.TeamSpaceID)
		if err != nil {
			return params, badVar("team_space_id", err)
		}
		params.TeamSpaceID = &id
	}
	if req.ParentPageID != nil {
		id, err := models.ParsePageID(*req.ParentPageID)
		if err != nil {
			return params, badVar("parent_page_id", err)
		}
		params.ParentPageID = &id
	}
	return params, nil
}

func (a *App) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	var req createPageRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	params, err := req.params()
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	page, err := a.client.CreatePage(r.Context(), params)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, page)
}

type pageResponse struct {
	Page     *models.Page      `json:"page"`
	Blocks   []*models.Block   `json:"blocks"`
	Comments []*models.Comment `json:"comments"`
}

func (a *App) handleGetPage(w http.ResponseWriter, r *http.Request) {
	pageID, err := pageIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	page, err := a.client.Page(r.Context(), pageID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	blocks, err := a.client.Blocks(r.Context(), pageID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	comments, err := a.client.Comments(r.Context(), pageID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pageResponse{Page: page, Blocks: blocks, Comments: comments})
}

type updatePageRequest struct {
	Title    *string `json:"title"`
	Icon     *string `json:"icon"`
	Favorite *bool   `json:"favorite"`
	Position *int    `json:"position"`
}

func (a *App) handleUpdatePage(w http.ResponseWriter, r *http.Request) {
	pageID, err := pageIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	var req updatePageRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	page, err := a.client.UpdatePage(r.Context(), pageID, func(p *models.Page) {
		if req.Title != nil {
			p.Title = *req.Title
		}
		if req.Icon != nil {
			p.Icon = *req.Icon
		}
		if req.Favorite != nil {
			p.Favorite = *req.Favorite
		}
		if req.Position != nil {
			p.Position = *req.Position
		}
	})
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (a *App) handleTrashPage(w http.ResponseWriter, r *http.Request) {
	pageID, err := pageIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if err := a.client.TrashPage(r.Context(), pageID); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (a *App) handleRestorePage(w http.ResponseWriter, r *http.Request) {
	pageID, err := pageIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if err := a.client.RestorePage(r.Context(), pageID); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (a *App) handlePurgePage(w http.ResponseWriter, r *http.Request) {
	pageID, err := pageIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if err := a.client.DeletePage(r.Context(), pageID); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (a *App) handleChildPages(w http.ResponseWriter, r *http.Request) {
	pageID, err := pageIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	pages, err := a.client.ChildPages(r.Context(), pageID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pages)
}

func (a *App) handleListBlocks(w http.ResponseWriter, r *http.Request) {
	pageID, err := pageIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	blocks, err := a.client.Blocks(r.Context(), pageID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, blocks)
}

type createBlockRequest struct {
	Type    string         `json:"type"`
	Content models.JSONMap `json:"content"`
	Index   *int           `json:"index"`
}

func (a *App) handleCreateBlock(w http.ResponseWriter, r *http.Request) {
	pageID, err := pageIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	var req createBlockRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	index := -1 // append
	if req.Index != nil {
		index = *req.Index
	}
	block, err := a.client.CreateBlock(r.Context(), pageID, models.BlockType(req.Type), req.Content, index)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, block)
}

type updateBlockRequest struct {
	Content   models.JSONMap `json:"content"`
	PlainText string         `json:"plain_text"`
	Version   int64          `json:"version"`
}

func (a *App) handleUpdateBlock(w http.ResponseWriter, r *http.Request) {
	pageID, err := pageIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	blockID, err := blockIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	var req updateBlockRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	patch := store.ContentPatch{Content: req.Content, PlainText: req.PlainText}
	block, err := a.client.UpdateBlockContent(r.Context(), pageID, blockID, patch, req.Version)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, block)
}

func (a *App) handleDeleteBlock(w http.ResponseWriter, r *http.Request) {
	pageID, err := pageIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	blockID, err := blockIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if err := a.client.DeleteBlock(r.Context(), pageID, blockID); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (a *App) handleMoveBlock(w http.ResponseWriter, r *http.Request) {
	pageID, err := pageIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	blockID, err := blockIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	var req struct {
		ToIndex int `json:"to_index"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	if err := a.client.MoveBlock(r.Context(), pageID, blockID, req.ToIndex); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (a *App) handleChangeBlockType(w http.ResponseWriter, r *http.Request) {
	pageID, err := pageIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	blockID, err := blockIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	var req struct {
		Type string `json:"type"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	if err := a.client.ChangeBlockType(r.Context(), pageID, blockID, models.BlockType(req.Type)); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (a *App) handleCreateDatabase(w http.ResponseWriter, r *http.Request) {
	var req createPageRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	params, err := req.params()
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	page, database, err := a.client.CreateDatabasePage(r.Context(), params)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"page": page, "database": database})
}

func (a *App) handleDatabaseView(w http.ResponseWriter, r *http.Request) {
	pageID, err := pageIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	view, err := a.client.Database(r.Context(), pageID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (a *App) handleAddProperty(w http.ResponseWriter, r *http.Request) {
	databaseID, err := databaseIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	var req struct {
		Name   string         `json:"name"`
		Type   string         `json:"type"`
		Config models.JSONMap `json:"config"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	prop, err := a.client.AddProperty(r.Context(), databaseID, req.Name, models.PropertyType(req.Type), req.Config)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, prop)
}

func (a *App) handleUpdateProperty(w http.ResponseWriter, r *http.Request) {
	databaseID, err := databaseIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	propertyID, err := propertyIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	var req struct {
		Name     *string        `json:"name"`
		Config   models.JSONMap `json:"config"`
		Position *int           `json:"position"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	prop, err := a.client.UpdateProperty(r.Context(), databaseID, propertyID, func(p *models.DatabaseProperty) {
		if req.Name != nil {
			p.Name = *req.Name
		}
		if req.Config != nil {
			p.Config = req.Config.Clone()
		}
		if req.Position != nil {
			p.Position = *req.Position
		}
	})
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, prop)
}

func (a *App) handleDeleteProperty(w http.ResponseWriter, r *http.Request) {
	databaseID, err := databaseIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	propertyID, err := propertyIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if err := a.client.DeleteProperty(r.Context(), databaseID, propertyID); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (a *App) handleCreateRow(w http.ResponseWriter, r *http.Request) {
	databaseID, err := databaseIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	page, err := a.client.CreateRow(r.Context(), databaseID, req.Title)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, page)
}

func (a *App) handleSetPageProperty(w http.ResponseWriter, r *http.Request) {
	databaseID, err := databaseIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	pageID, err := pageIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	propertyID, err := propertyIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	var req struct {
		Value models.JSONMap `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	value, err := a.client.SetPageProperty(r.Context(), databaseID, pageID, propertyID, req.Value)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, value)
}

func (a *App) handleListComments(w http.ResponseWriter, r *http.Request) {
	pageID, err := pageIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	comments, err := a.client.Comments(r.Context(), pageID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, comments)
}

func (a *App) handleAddComment(w http.ResponseWriter, r *http.Request) {
	pageID, err := pageIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	comment, err := a.client.AddComment(r.Context(), pageID, req.Content)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, comment)
}

func (a *App) handleResolveComment(w http.ResponseWriter, r *http.Request) {
	pageID, err := pageIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	commentID, err := commentIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if err := a.client.ResolveComment(r.Context(), pageID, commentID); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (a *App) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	pageID, err := pageIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	commentID, err := commentIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if err := a.client.DeleteComment(r.Context(), pageID, commentID); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func userIDVar(r *http.Request) (models.UserID, error) {
	id, err := models.ParseUserID(mux.Vars(r)["userID"])
	if err != nil {
		return id, badVar("userID", err)
	}
	return id, nil
}

func (a *App) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := a.client.Notifications(r.Context())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, notifications)
}

func (a *App) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  string                  `json:"user_id"`
		Kind    models.NotificationKind `json:"kind"`
		Title   string                  `json:"title"`
		Message string                  `json:"message"`
		Link    string                  `json:"link"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	userID, err := models.ParseUserID(req.UserID)
	if err != nil {
		a.respondError(w, r, badVar("user_id", err))
		return
	}
	notification, err := a.client.Notify(r.Context(), userID, req.Kind, req.Title, req.Message, req.Link)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, notification)
}

func (a *App) handleMarkNotificationsRead(w http.ResponseWriter, r *http.Request) {
	if err := a.client.MarkAllNotificationsRead(r.Context()); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (a *App) handleListMeetings(w http.ResponseWriter, r *http.Request) {
	meetings, err := a.client.Meetings(r.Context())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, meetings)
}

func (a *App) handleCreateMeeting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title        string    `json:"title"`
		Date         time.Time `json:"date"`
		Participants []string  `json:"participants"`
		Notes        string    `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	meeting, err := a.client.CreateMeeting(r.Context(), workspace.CreateMeetingParams{
		Title:        req.Title,
		Date:         req.Date,
		Participants: req.Participants,
		Notes:        req.Notes,
	})
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, meeting)
}

func (a *App) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string `json:"email"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	user := &models.User{
		ID:        models.NewUserID(),
		Email:     req.Email,
		Name:      req.Name,
		AvatarURL: req.AvatarURL,
	}
	if err := a.store.CreateUser(r.Context(), user); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

func (a *App) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	user, err := a.store.GetUser(r.Context(), userID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (a *App) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	if a.cfg.AuthSecret == "" {
		a.respondError(w, r, &store.ValidationError{Field: "auth", Reason: "token auth is not configured"})
		return
	}
	var req struct {
		Email      string `json:"email"`
		TTLSeconds int64  `json:"ttl_seconds,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	user, err := a.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	token, err := identity.SignToken([]byte(a.cfg.AuthSecret), user.ID, ttl)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (a *App) handleCreateTeamSpace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Icon string `json:"icon"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	space, err := a.client.CreateTeamSpace(r.Context(), req.Name, req.Icon)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, space)
}

func (a *App) handleListMembers(w http.ResponseWriter, r *http.Request) {
	spaceID, err := spaceIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	members, err := a.client.Members(r.Context(), spaceID)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, members)
}

func (a *App) handleInviteMember(w http.ResponseWriter, r *http.Request) {
	spaceID, err := spaceIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	var req struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, r, err)
		return
	}
	userID, err := models.ParseUserID(req.UserID)
	if err != nil {
		a.respondError(w, r, badVar("user_id", err))
		return
	}
	member, err := a.client.InviteMember(r.Context(), spaceID, userID, models.MemberRole(req.Role))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, member)
}

func (a *App) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := memberIDVar(r)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	if err := a.client.RemoveMember(r.Context(), memberID); err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
