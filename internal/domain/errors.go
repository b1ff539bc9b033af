package domain

import (
	"errors"
	"fmt"
)

var (
	ErrTemplateNotFound     = errors.New("scene template not found or disabled")
	ErrSessionNotFound      = errors.New("session not found")
	ErrRoleNotFound         = errors.New("role not found")
	ErrParticipantNotFound  = errors.New("participant not found")
	ErrRoleAlreadyJoined    = errors.New("role already joined this session")
	ErrMaxRolesExceeded     = errors.New("session role limit reached")
	ErrSessionNotActive     = errors.New("session is not active")
	ErrInvalidTransition    = errors.New("invalid session status transition")
	ErrNoActiveParticipants = errors.New("no active participants in session")
	ErrEmptyContent         = errors.New("message content is empty")
	ErrInvalidPersonality   = errors.New("invalid personality config")
	ErrUnknownStrategy      = errors.New("unknown response strategy")
	ErrEmptyRoleName        = errors.New("role name is empty")
)

// ResponderError reports an upstream reply failure for one speaker's turn.
// The turn is skipped, never retried; messages persisted earlier in the same
// turn stay persisted.
type ResponderError struct {
	RoleID int64
	Err    error
}

func (e *ResponderError) Error() string {
	return fmt.Sprintf("responder failed for role %d: %v", e.RoleID, e.Err)
}

func (e *ResponderError) Unwrap() error { return e.Err }
