// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// WHY NO JSON TAGS?
// A User is a storage record, not a wire format. PasswordHash must never
// leave the process, and which fields a client may see differs per
// operation, so every response goes through an explicit view struct
// (service.UserView, service.ProfileView) instead of serializing this type.
//
// Username and Email are unique at the storage layer. Neither changes after
// registration; only FirstName and LastName are mutable.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	IsSuperuser  bool
	IsActive     bool
	DateJoined   time.Time
}
