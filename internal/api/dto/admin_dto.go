package dto

// UpdateUserRequest mutates one field of a user record.
type UpdateUserRequest struct {
	UserID string `json:"user_id"`
	Field  string `json:"field"`
	Value  string `json:"value"`
}

// PromoteRequest serves the admin bootstrap endpoint.
type PromoteRequest struct {
	UserEmail string `json:"user_email"`
	Secret    string `json:"secret"`
}
