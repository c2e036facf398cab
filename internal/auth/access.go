package auth

import "github.com/sakif/accounts-api/internal/model"

// CanAccess is the single ownership rule of the API: superusers may act on
// anything, everyone else only on what they own. A nil actor may do nothing.
func CanAccess(actor *model.User, ownerID int64) bool {
	if actor == nil {
		return false
	}
	return actor.IsSuperuser || actor.ID == ownerID
}
