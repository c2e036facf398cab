package model

import "time"

// Profile is the extended, mutable metadata tied 1:1 to a User.
//
// The free-text fields are nullable in storage, so they are pointers here:
// nil means "never set", which is different from an empty string.
//
// The statistics are maintained by the system. Nothing in the API writes
// them; they start at DefaultReputation and zero.
type Profile struct {
	ID     int64
	UserID int64

	DisplayName *string
	Bio         *string
	Location    *string
	Website     *string
	GitHub      *string
	Twitter     *string

	Reputation           int
	QuestionsCount       int
	AnswersCount         int
	BadgesCount          int
	UpvotesCount         int
	AcceptedAnswersCount int
}

// DefaultReputation is what every new profile starts with.
const DefaultReputation = 1

// NewProfileFor builds the profile that accompanies a freshly created user:
// display name defaulted to the username, statistics at their defaults.
func NewProfileFor(user *User) *Profile {
	name := user.Username
	return &Profile{
		UserID:      user.ID,
		DisplayName: &name,
		Reputation:  DefaultReputation,
	}
}

// ProfileWithUser is a profile joined with the identity fields the public
// profile view projects from its owner.
type ProfileWithUser struct {
	Profile
	Username   string
	Email      string
	DateJoined time.Time
}
