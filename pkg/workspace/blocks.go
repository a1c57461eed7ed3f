package workspace

import (
	"context"
	"errors"

	"github.com/notewave/notewave/pkg/cache"
	"github.com/notewave/notewave/pkg/models"
	"github.com/notewave/notewave/pkg/store"
)

// Blocks lists a page's blocks in order, cache-first.
func (c *Client) Blocks(ctx context.Context, pageID models.PageID) ([]*models.Block, error) {
	key := cache.BlocksKey(pageID)
	if v, ok, stale := c.cache.Read(key); ok && !stale {
		return v.([]*models.Block), nil
	}
	blocks, err := c.store.ListBlocks(ctx, pageID)
	if err != nil {
		return nil, err
	}
	c.cache.Put(key, blocks)
	return blocks, nil
}

// UpdateBlockContent writes new content for a block. readVersion is the
// precondition: the version of the copy the caller actually read. If
// another writer committed in between, the store rejects the write with a
// version conflict, the local patch is rolled back and the block list is
// marked stale so the caller reloads before retrying.
func (c *Client) UpdateBlockContent(ctx context.Context, pageID models.PageID, blockID models.BlockID, patch store.ContentPatch, readVersion int64) (*models.Block, error) {
	blocks, err := c.Blocks(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if findBlock(blocks, blockID) == nil {
		return nil, &store.NotFoundError{Table: models.TableBlocks, ID: blockID.String()}
	}

	key := cache.BlocksKey(pageID)
	snap := c.cache.OptimisticWrite(key, func(cur any) any {
		list, _ := cur.([]*models.Block)
		out := make([]*models.Block, len(list))
		for i, b := range list {
			if b.ID == blockID {
				nb := b.Clone()
				nb.Content = patch.Content.Clone()
				nb.PlainText = patch.PlainText
				out[i] = nb
			} else {
				out[i] = b
			}
		}
		return out
	})

	var confirmed *models.Block
	err = c.persist(ctx, "update_block_content", func(ctx context.Context) error {
		var perr error
		confirmed, perr = c.store.UpdateBlockContent(ctx, blockID, patch, readVersion)
		return perr
	})
	if err != nil {
		c.cache.Rollback(snap)
		if errors.Is(err, store.ErrVersionConflict) {
			// Someone else won the race; the cached list is out of date.
			c.cache.Invalidate(key)
		}
		return nil, err
	}

	c.cache.Commit(key, withBlock(snap, confirmed))
	c.cache.Invalidate(cache.PageKey(pageID))
	return confirmed, nil
}

// CreateBlock inserts a new block at position index in the page's block
// list. The inserted list is reindexed to a dense 0..n order; the block
// renders immediately, and on failure the list is exactly what it was.
func (c *Client) CreateBlock(ctx context.Context, pageID models.PageID, blockType models.BlockType, content models.JSONMap, index int) (*models.Block, error) {
	blocks, err := c.Blocks(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index > len(blocks) {
		index = len(blocks)
	}

	block := &models.Block{
		ID:      models.NewBlockID(),
		PageID:  pageID,
		Type:    blockType,
		Content: content.Clone(),
	}

	inserted := make([]*models.Block, 0, len(blocks)+1)
	inserted = append(inserted, blocks[:index]...)
	inserted = append(inserted, block)
	inserted = append(inserted, blocks[index:]...)

	var shifted []*models.Block
	final := make([]*models.Block, len(inserted))
	for i, b := range inserted {
		nb := b.Clone()
		if nb.Order != i {
			nb.Order = i
			if b != block {
				shifted = append(shifted, nb)
			}
		}
		final[i] = nb
	}
	block.Order = index

	key := cache.BlocksKey(pageID)
	snap := c.cache.OptimisticWrite(key, func(any) any { return final })

	created := false
	err = c.persist(ctx, "create_block", func(ctx context.Context) error {
		if !created {
			if cerr := c.store.CreateBlock(ctx, block); cerr != nil {
				return cerr
			}
			created = true
		}
		for _, nb := range shifted {
			if oerr := c.store.UpdateBlockOrder(ctx, nb.ID, nb.Order); oerr != nil {
				return oerr
			}
		}
		return nil
	})
	if err != nil {
		c.cache.Rollback(snap)
		return nil, err
	}

	// Swap the optimistic copy for the record the store stamped.
	c.cache.Commit(key, withBlockAt(final, block))
	c.cache.Invalidate(cache.PageKey(pageID))
	return block, nil
}

// DeleteBlock removes a block, optimistically dropping it from the list.
func (c *Client) DeleteBlock(ctx context.Context, pageID models.PageID, blockID models.BlockID) error {
	if _, err := c.Blocks(ctx, pageID); err != nil {
		return err
	}

	key := cache.BlocksKey(pageID)
	snap := c.cache.OptimisticWrite(key, func(cur any) any {
		list, _ := cur.([]*models.Block)
		out := make([]*models.Block, 0, len(list))
		for _, b := range list {
			if b.ID != blockID {
				out = append(out, b)
			}
		}
		return out
	})

	err := c.persist(ctx, "delete_block", func(ctx context.Context) error {
		return c.store.DeleteBlock(ctx, blockID)
	})
	if err != nil {
		c.cache.Rollback(snap)
		return err
	}
	c.cache.Invalidate(cache.PageKey(pageID))
	return nil
}

// ChangeBlockType converts a block to another type, keeping its content.
func (c *Client) ChangeBlockType(ctx context.Context, pageID models.PageID, blockID models.BlockID, blockType models.BlockType) error {
	blocks, err := c.Blocks(ctx, pageID)
	if err != nil {
		return err
	}
	if findBlock(blocks, blockID) == nil {
		return &store.NotFoundError{Table: models.TableBlocks, ID: blockID.String()}
	}

	key := cache.BlocksKey(pageID)
	snap := c.cache.OptimisticWrite(key, func(cur any) any {
		list, _ := cur.([]*models.Block)
		out := make([]*models.Block, len(list))
		for i, b := range list {
			if b.ID == blockID {
				nb := b.Clone()
				nb.Type = blockType
				out[i] = nb
			} else {
				out[i] = b
			}
		}
		return out
	})

	err = c.persist(ctx, "change_block_type", func(ctx context.Context) error {
		return c.store.UpdateBlockType(ctx, blockID, blockType)
	})
	if err != nil {
		c.cache.Rollback(snap)
		return err
	}
	return nil
}

// MoveBlock moves a block to target index and recomputes the whole page's
// order values as a dense 0..n-1 sequence. The recomputed list is cached
// optimistically; the order writes go out as a batch. If any write fails,
// the cache rolls back to the exact pre-move order, and the orders already
// written are compensated best-effort so the server converges back too. The
// list is deliberately NOT marked stale on failure: a reload mid-compensation
// would show a half-moved order.
func (c *Client) MoveBlock(ctx context.Context, pageID models.PageID, blockID models.BlockID, toIndex int) error {
	blocks, err := c.Blocks(ctx, pageID)
	if err != nil {
		return err
	}
	fromIndex := -1
	for i, b := range blocks {
		if b.ID == blockID {
			fromIndex = i
			break
		}
	}
	if fromIndex == -1 {
		return &store.NotFoundError{Table: models.TableBlocks, ID: blockID.String()}
	}
	if toIndex < 0 {
		toIndex = 0
	}
	if toIndex >= len(blocks) {
		toIndex = len(blocks) - 1
	}
	if toIndex == fromIndex {
		return nil
	}

	// Recompute: remove, reinsert, then assign dense orders.
	reordered := make([]*models.Block, 0, len(blocks))
	for i, b := range blocks {
		if i != fromIndex {
			reordered = append(reordered, b)
		}
	}
	reordered = append(reordered[:toIndex], append([]*models.Block{blocks[fromIndex]}, reordered[toIndex:]...)...)

	type orderWrite struct {
		id       models.BlockID
		order    int
		previous int
	}
	var writes []orderWrite
	final := make([]*models.Block, len(reordered))
	for i, b := range reordered {
		nb := b.Clone()
		if nb.Order != i {
			writes = append(writes, orderWrite{id: nb.ID, order: i, previous: nb.Order})
			nb.Order = i
		}
		final[i] = nb
	}

	key := cache.BlocksKey(pageID)
	snap := c.cache.OptimisticWrite(key, func(any) any { return final })

	applied := 0
	err = c.persist(ctx, "move_block", func(ctx context.Context) error {
		for applied < len(writes) {
			w := writes[applied]
			if werr := c.store.UpdateBlockOrder(ctx, w.id, w.order); werr != nil {
				return werr
			}
			applied++
		}
		return nil
	})
	if err != nil {
		c.cache.Rollback(snap)
		for i := 0; i < applied; i++ {
			w := writes[i]
			if cerr := c.store.UpdateBlockOrder(ctx, w.id, w.previous); cerr != nil {
				c.log.Error().
					Str("block_id", w.id.String()).
					Int("order", w.previous).
					Err(cerr).
					Msg("failed to restore block order after aborted move")
			}
		}
		return err
	}
	return nil
}

// findBlock returns the block with id, or nil.
func findBlock(blocks []*models.Block, id models.BlockID) *models.Block {
	for _, b := range blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// withBlock rebuilds the snapshot's block list with confirmed substituted
// in place of the same ID.
func withBlock(snap cache.Snapshot, confirmed *models.Block) []*models.Block {
	var list []*models.Block
	if snap.Existed() && snap.Value() != nil {
		list, _ = snap.Value().([]*models.Block)
	}
	out := make([]*models.Block, len(list))
	for i, b := range list {
		if confirmed != nil && b.ID == confirmed.ID {
			out[i] = confirmed.Clone()
		} else {
			out[i] = b
		}
	}
	return out
}

// withBlockAt swaps confirmed into list by ID, cloning nothing else.
func withBlockAt(list []*models.Block, confirmed *models.Block) []*models.Block {
	out := make([]*models.Block, len(list))
	for i, b := range list {
		if b.ID == confirmed.ID {
			out[i] = confirmed.Clone()
		} else {
			out[i] = b
		}
	}
	return out
}
