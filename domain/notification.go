package domain

// Notification is a reply on one of the viewer's echoes, joined with the parent echo.
// It is derived at query time and never stored.
type Notification struct {
	Reply
	EchoSignature SignatureID
	EchoContent   string
}

// HasUnread is true iff at least one notification has not been read.
func HasUnread(notifications []Notification) bool {
	for _, n := range notifications {
		if !n.IsRead {
			return true
		}
	}
	return false
}
