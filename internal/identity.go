package internal

// Identity is the verified (user id, display name) pair supplied by the
// authentication collaborator for a connection. The coordinator trusts it for
// the lifetime of the connection.
type Identity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}
