package domain

type Profile struct {
	ID          UserID `json:"id"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

const UnknownDisplayName = "Unknown"

// PlaceholderProfile is used when the directory lookup fails.
func PlaceholderProfile(id UserID) Profile {
	return Profile{ID: id, DisplayName: UnknownDisplayName}
}
