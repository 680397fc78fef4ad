package ports

// BroadcastGroup is the shared delivery group every connection joins.
const BroadcastGroup = "broadcast"

// UserGroup names a user's private delivery group.
func UserGroup(userID string) string {
	return "user_" + userID
}
