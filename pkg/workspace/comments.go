package workspace

import (
	"context"

	"github.com/notewave/notewave/pkg/cache"
	"github.com/notewave/notewave/pkg/models"
)

// Comments lists a page's comments, cache-first.
func (c *Client) Comments(ctx context.Context, pageID models.PageID) ([]*models.Comment, error) {
	key := cache.CommentsKey(pageID)
	if v, ok, stale := c.cache.Read(key); ok && !stale {
		return v.([]*models.Comment), nil
	}
	comments, err := c.store.ListComments(ctx, pageID)
	if err != nil {
		return nil, err
	}
	c.cache.Put(key, comments)
	return comments, nil
}

// AddComment posts a comment on a page as the acting user, appended
// optimistically.
func (c *Client) AddComment(ctx context.Context, pageID models.PageID, content string) (*models.Comment, error) {
	userID, err := c.userID()
	if err != nil {
		return nil, err
	}
	if _, err := c.Comments(ctx, pageID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ID:      models.NewCommentID(),
		PageID:  pageID,
		UserID:  userID,
		Content: content,
	}

	key := cache.CommentsKey(pageID)
	snap := c.cache.OptimisticWrite(key, func(cur any) any {
		list, _ := cur.([]*models.Comment)
		out := make([]*models.Comment, len(list), len(list)+1)
		copy(out, list)
		cp := *comment
		return append(out, &cp)
	})

	err = c.persist(ctx, "add_comment", func(ctx context.Context) error {
		return c.store.CreateComment(ctx, comment)
	})
	if err != nil {
		c.cache.Rollback(snap)
		return nil, err
	}

	var list []*models.Comment
	if snap.Existed() && snap.Value() != nil {
		list, _ = snap.Value().([]*models.Comment)
	}
	out := make([]*models.Comment, len(list), len(list)+1)
	copy(out, list)
	cp := *comment
	c.cache.Commit(key, append(out, &cp))
	return comment, nil
}

// ResolveComment marks a comment resolved.
func (c *Client) ResolveComment(ctx context.Context, pageID models.PageID, commentID models.CommentID) error {
	err := c.persist(ctx, "resolve_comment", func(ctx context.Context) error {
		return c.store.ResolveComment(ctx, commentID)
	})
	if err != nil {
		return err
	}
	c.cache.Invalidate(cache.CommentsKey(pageID))
	return nil
}

// DeleteComment removes a comment, optimistically dropping it from the
// page's comment list.
func (c *Client) DeleteComment(ctx context.Context, pageID models.PageID, commentID models.CommentID) error {
	if _, err := c.Comments(ctx, pageID); err != nil {
		return err
	}

	key := cache.CommentsKey(pageID)
	snap := c.cache.OptimisticWrite(key, func(cur any) any {
		list, _ := cur.([]*models.Comment)
		out := make([]*models.Comment, 0, len(list))
		for _, cm := range list {
			if cm.ID != commentID {
				out = append(out, cm)
			}
		}
		return out
	})

	err := c.persist(ctx, "delete_comment", func(ctx context.Context) error {
		return c.store.DeleteComment(ctx, commentID)
	})
	if err != nil {
		c.cache.Rollback(snap)
		return err
	}
	return nil
}
