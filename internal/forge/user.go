package forge

import (
	"context"
	"log/slog"
)

type userProfileResponse struct {
	UserID        string            `json:"userId"`
	UserName      string            `json:"userName"`
	FirstName     string            `json:"firstName"`
	LastName      string            `json:"lastName"`
	EmailID       string            `json:"emailId"`
	ProfileImages map[string]string `json:"profileImages"`
}

// UserProfile reads the profile of the user the token was issued to.
func (c *Client) UserProfile(ctx context.Context) (*UserProfile, error) {
	c.logger.Debug("getting user profile")

	var ur userProfileResponse
	if err := c.getJSON(ctx, "/userprofile/v1/users/@me", &ur); err != nil {
		return nil, err
	}

	c.logger.Debug("got user profile", slog.String("user_id", ur.UserID))

	return &UserProfile{
		UserID:        ur.UserID,
		UserName:      ur.UserName,
		FirstName:     ur.FirstName,
		LastName:      ur.LastName,
		Email:         ur.EmailID,
		ProfileImages: ur.ProfileImages,
	}, nil
}

// ProfileImage returns the profile image URL for the given size key
// (e.g. "sizeX40"), or empty when the profile carries none.
func (p *UserProfile) ProfileImage(size string) string {
	if p == nil || p.ProfileImages == nil {
		return ""
	}

	return p.ProfileImages[size]
}
