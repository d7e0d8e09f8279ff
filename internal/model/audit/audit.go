// Package audit describes the trail of user-management actions.
package audit

import (
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionUserCreated Action = "user.created"
	ActionUserDeleted Action = "user.deleted"
)

// Event records who did what to which identity.
type Event struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Action       Action    `json:"action" db:"action"`
	TargetUserID string    `json:"targetUserId" db:"target_user_id"`
	Actor        string    `json:"actor" db:"actor"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// NewEvent stamps a fresh id and the current time.
func NewEvent(action Action, targetUserID, actor string) *Event {
	return &Event{
		ID:           uuid.New(),
		Action:       action,
		TargetUserID: targetUserID,
		Actor:        actor,
		CreatedAt:    time.Now().UTC(),
	}
}
