package models

// Identity is the caller on whose behalf a section operation runs.
type Identity struct {
	UserID        string `json:"userId"`
	Authenticated bool   `json:"authenticated"`
}

// Anonymous returns the unauthenticated identity for the configured default user.
func Anonymous(defaultUserID string) Identity {
	return Identity{UserID: defaultUserID}
}
