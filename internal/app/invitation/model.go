package invitation

import (
	"time"

	"taskboard/internal/access"
)

type Invitation struct {
	ID         uint64     `json:"id" gorm:"primaryKey"`
	Token      string     `json:"token" gorm:"type:varchar(36);uniqueIndex;not null"`
	EntityKind string     `json:"entityKind" gorm:"type:varchar(16);not null;index:idx_invitation_entity"`
	EntityID   uint64     `json:"entityId" gorm:"not null;index:idx_invitation_entity"`
	Email      string     `json:"email" gorm:"not null;index"`
	Role       string     `json:"role" gorm:"type:varchar(16);not null"`
	InvitedBy  uint64     `json:"invitedBy" gorm:"not null"`
	Accepted   bool       `json:"accepted" gorm:"not null;default:false"`
	AcceptedBy *uint64    `json:"acceptedBy,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	AcceptedAt *time.Time `json:"acceptedAt,omitempty"`
}

// Membership is the outcome of an accepted invitation.
type Membership struct {
	EntityKind access.EntityKind `json:"entityKind"`
	EntityID   uint64            `json:"entityId"`
	UserID     uint64            `json:"userId"`
	Role       access.Role       `json:"role"`
}

type CreateBoardInvitationRequest struct {
	BoardID uint64 `json:"boardId" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Role    string `json:"role" binding:"required"`
}

type CreateTeamInvitationRequest struct {
	TeamID uint64 `json:"teamId" binding:"required"`
	Email  string `json:"email" binding:"required,email"`
	Role   string `json:"role" binding:"required"`
}

type AcceptRequest struct {
	Token string `json:"token" binding:"required"`
}
