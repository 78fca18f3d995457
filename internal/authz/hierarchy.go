package authz

// Permitted evaluates the role hierarchy guard: may actor act on target?
// The guard is identical for every target-bearing capability and cannot be
// weakened by overrides. The returned string is a human-readable rejection
// reason, empty when permitted.
func Permitted(actor Actor, target Actor) (bool, string) {
	if target.IsOwner {
		return false, "You cannot act on the server owner."
	}
	if target.IsAdmin {
		return false, "You cannot act on an administrator."
	}
	if target.TopRoleRank >= actor.TopRoleRank {
		return false, "You cannot act on someone with an equal or higher role."
	}
	return true, ""
}
