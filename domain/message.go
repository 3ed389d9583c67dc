// Package domain contains core concepts of the echo board.
// This file defines echoes and their replies.
// An echo is never mutated once created; it ages out of the live feed after LifetimeWindow.
package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MaxEchoLength  = 800
	MaxReplyLength = 1000
)

// Echo is an anonymous top-level message.
type Echo struct {
	ID        uuid.UUID
	Content   string
	Signature SignatureID // author device, never shown to other users
	CreatedAt time.Time
	Replies   []Reply
}

// Reply carries no author at all, not even a signature.
type Reply struct {
	ID        uuid.UUID
	EchoID    uuid.UUID
	Content   string
	CreatedAt time.Time
	IsRead    bool
}

// IsLive is computed from CreatedAt on every call and never cached.
func (e Echo) IsLive(now time.Time) bool {
	return IsLive(e.CreatedAt, now)
}

func (e Echo) Remaining(now time.Time) time.Duration {
	return Remaining(e.CreatedAt, now)
}
