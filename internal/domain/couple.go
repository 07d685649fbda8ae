package domain

import (
	"time"

	"github.com/google/uuid"
)

// Couple pairs at most two users through a shared invite code.
// User2ID is nil until the partner joins.
type Couple struct {
	ID         uuid.UUID
	User1ID    uuid.UUID
	User2ID    *uuid.UUID
	InviteCode string
	CreatedAt  time.Time
}

// HasMember reports whether userID is one of the couple's members.
func (c Couple) HasMember(userID uuid.UUID) bool {
	if c.User1ID == userID {
		return true
	}
	return c.User2ID != nil && *c.User2ID == userID
}

// Paired reports whether both seats are taken.
func (c Couple) Paired() bool {
	return c.User2ID != nil
}
