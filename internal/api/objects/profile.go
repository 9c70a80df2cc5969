package objects

import (
	"github.com/calledit/calledit/internal/models"
)

// ProfileView is the client representation of a profile. Email and role are
// only filled for the profile's owner and admins.
type ProfileView struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	FullName    string `json:"fullName,omitempty"`
	Handle      string `json:"handle,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// MapProfile converts a profile; includePrivate exposes email and role
func MapProfile(profile *models.Profile, includePrivate bool) *ProfileView {
	if profile == nil {
		return nil
	}
	view := &ProfileView{
		ID:          profile.ID,
		DisplayName: DisplayName(profile),
		FullName:    profile.FullName.String,
		Handle:      profile.Handle.String,
		AvatarURL:   profile.AvatarURL.String,
	}
	if !profile.CreatedAt.IsZero() {
		view.CreatedAt = formatTime(profile.CreatedAt)
	}
	if includePrivate {
		view.Email = profile.Email
		view.Role = profile.Role
	}
	return view
}
