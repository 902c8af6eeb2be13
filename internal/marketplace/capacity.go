package marketplace

import "github.com/dukerupert/toolshub/internal/model"

// AvailableSlots returns the seats left on l. When unlimited is true n is
// meaningless and the listing can never fill up.
func AvailableSlots(l model.Listing) (n int, unlimited bool) {
	if l.UnlimitedUsers {
		return 0, true
	}
	return l.TotalUsers - l.SubscribedUsers, false
}

// IsFull reports whether l has no seats left.
func IsFull(l model.Listing) bool {
	n, unlimited := AvailableSlots(l)
	return !unlimited && n <= 0
}

// IsOwnListing reports whether userID owns l. A zero userID is an anonymous
// viewer and owns nothing.
func IsOwnListing(l model.Listing, userID int64) bool {
	return userID != 0 && l.OwnerID == userID
}
