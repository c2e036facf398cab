package model

import "time"

// Token is the opaque bearer credential of a user. There is at most one per
// user and it is never rotated.
type Token struct {
	Key     string
	UserID  int64
	Created time.Time
}
