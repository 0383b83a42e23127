package domain

// UserIDContextKey is the echo context key under which the route guard
// stores the authenticated user's ID.
const UserIDContextKey = "auth-user-id"
