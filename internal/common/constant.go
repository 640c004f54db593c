package common

// AuthorizationHeaderName carries the access token on protected requests.
const AuthorizationHeaderName = "Authorization"

// BearerTokenType is the token_type returned by login and the scheme
// expected in the Authorization header.
const BearerTokenType = "bearer"

// RoleUser and RoleAdmin are the user roles known to the service.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
