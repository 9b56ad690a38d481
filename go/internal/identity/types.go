package identity

// ExternalUser is the authenticated account delivered by the messenger
// platform. Its id is stable and is used directly as the player id on
// sessions.
type ExternalUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
}

// CreateProfileRequest is the repository input for a fresh profile.
type CreateProfileRequest struct {
	ID       int64   `json:"id"`
	Username *string `json:"username"`
	FullName string  `json:"full_name"`
	Coins    int64   `json:"coins"`
}
