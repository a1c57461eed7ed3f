package workspace

import (
	"context"

	"github.com/notewave/notewave/pkg/cache"
	"github.com/notewave/notewave/pkg/models"
)

// CreateTeamSpace creates a team space with the acting user as owner.
func (c *Client) CreateTeamSpace(ctx context.Context, name, icon string) (*models.TeamSpace, error) {
	userID, err := c.userID()
	if err != nil {
		return nil, err
	}
	space := &models.TeamSpace{
		ID:        models.NewTeamSpaceID(),
		Name:      name,
		Icon:      icon,
		CreatedBy: userID,
	}
	err = c.persist(ctx, "create_team_space", func(ctx context.Context) error {
		return c.store.CreateTeamSpace(ctx, space)
	})
	if err != nil {
		return nil, err
	}
	c.cache.Invalidate(cache.TeamSpacesKey(userID))
	return space, nil
}

// InviteMember adds a user to a team space with the given role.
func (c *Client) InviteMember(ctx context.Context, spaceID models.TeamSpaceID, userID models.UserID, role models.MemberRole) (*models.TeamSpaceMember, error) {
	member := &models.TeamSpaceMember{
		ID:          models.NewMemberID(),
		TeamSpaceID: spaceID,
		UserID:      userID,
		Role:        role,
	}
	err := c.persist(ctx, "invite_member", func(ctx context.Context) error {
		return c.store.AddTeamMember(ctx, member)
	})
	if err != nil {
		return nil, err
	}
	c.cache.Invalidate(cache.TeamSpacesKey(userID))
	return member, nil
}

// RemoveMember removes a membership.
func (c *Client) RemoveMember(ctx context.Context, memberID models.MemberID) error {
	return c.persist(ctx, "remove_member", func(ctx context.Context) error {
		return c.store.RemoveTeamMember(ctx, memberID)
	})
}

// Members lists a team space's memberships.
func (c *Client) Members(ctx context.Context, spaceID models.TeamSpaceID) ([]*models.TeamSpaceMember, error) {
	return c.store.ListTeamMembers(ctx, spaceID)
}
