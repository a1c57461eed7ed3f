package workspace

import (
	"context"
	"errors"
	"sync"

	"github.com/notewave/notewave/pkg/models"
	"github.com/notewave/notewave/pkg/store"
)

// EditorState is the lifecycle state of a block editor.
type EditorState string

const (
	// StateViewing: showing the saved block; no draft.
	StateViewing EditorState = "viewing"
	// StateEditing: a draft diverges from the saved block.
	StateEditing EditorState = "editing"
	// StatePersisting: a save is in flight; further edits queue on it.
	StatePersisting EditorState = "persisting"
	// StateConflict: the save lost a version race; the draft is kept and
	// the caller must Reload before saving again.
	StateConflict EditorState = "conflict"
)

// BlockEditor drives the edit cycle of a single block. It tracks the
// version it last read and supplies it as the save precondition, so a
// concurrent edit by someone else surfaces as a conflict instead of being
// silently overwritten.
type BlockEditor struct {
	client  *Client
	pageID  models.PageID
	blockID models.BlockID

	mu      sync.Mutex
	state   EditorState
	block   *models.Block
	draft   *store.ContentPatch
	lastErr error
}

// EditBlock opens an editor for the block, reading through the client's
// cache.
func (c *Client) EditBlock(ctx context.Context, pageID models.PageID, blockID models.BlockID) (*BlockEditor, error) {
	blocks, err := c.Blocks(ctx, pageID)
	if err != nil {
		return nil, err
	}
	block := findBlock(blocks, blockID)
	if block == nil {
		return nil, &store.NotFoundError{Table: models.TableBlocks, ID: blockID.String()}
	}
	return &BlockEditor{
		client:  c,
		pageID:  pageID,
		blockID: blockID,
		state:   StateViewing,
		block:   block.Clone(),
	}, nil
}

// State returns the current editor state.
func (e *BlockEditor) State() EditorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Block returns the editor's copy of the block: the draft content when one
// exists, the saved content otherwise.
func (e *BlockEditor) Block() *models.Block {
	e.mu.Lock()
	defer e.mu.Unlock()
	b := e.block.Clone()
	if e.draft != nil {
		b.Content = e.draft.Content.Clone()
		b.PlainText = e.draft.PlainText
	}
	return b
}

// Err returns the error of the last failed save, cleared by the next
// successful one.
func (e *BlockEditor) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// SetDraft stages new content. Allowed while viewing or editing; a draft
// staged during a conflict is kept so the user's typing is never thrown
// away.
func (e *BlockEditor) SetDraft(content models.JSONMap, plainText string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StatePersisting {
		return &store.ValidationError{Field: "state", Reason: "a save is in flight"}
	}
	e.draft = &store.ContentPatch{Content: content.Clone(), PlainText: plainText}
	if e.state == StateViewing {
		e.state = StateEditing
	}
	return nil
}

// Save persists the draft with the version the editor last read. On
// success the editor returns to viewing with the confirmed block. On a
// version conflict it enters StateConflict, keeping the draft; on any
// other failure it returns to editing with the error recorded.
func (e *BlockEditor) Save(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateConflict {
		e.mu.Unlock()
		return &store.ValidationError{Field: "state", Reason: "conflicted editor must reload before saving"}
	}
	if e.draft == nil {
		e.mu.Unlock()
		return nil
	}
	if e.state == StatePersisting {
		e.mu.Unlock()
		return &store.ValidationError{Field: "state", Reason: "a save is in flight"}
	}
	patch := *e.draft
	readVersion := e.block.Version
	e.state = StatePersisting
	e.mu.Unlock()

	confirmed, err := e.client.UpdateBlockContent(ctx, e.pageID, e.blockID, patch, readVersion)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.lastErr = err
		if errors.Is(err, store.ErrVersionConflict) {
			e.state = StateConflict
		} else {
			e.state = StateEditing
		}
		return err
	}
	e.block = confirmed.Clone()
	e.draft = nil
	e.lastErr = nil
	e.state = StateViewing
	return nil
}

// Reload refetches the block after a conflict (or at any time), adopting
// the server's version as the new precondition. The draft survives: the
// caller can merge it against the fresh content and save again.
func (e *BlockEditor) Reload(ctx context.Context) error {
	fresh, err := e.client.store.GetBlock(ctx, e.blockID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.block = fresh
	if e.draft != nil {
		e.state = StateEditing
	} else {
		e.state = StateViewing
	}
	e.lastErr = nil
	return nil
}

// Discard drops the draft and returns to viewing.
func (e *BlockEditor) Discard() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft = nil
	e.lastErr = nil
	e.state = StateViewing
}
