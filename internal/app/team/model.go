package team

import "time"

type Team struct {
	ID        uint64    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	OwnerID   uint64    `json:"ownerId" gorm:"not null;index"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type TeamMember struct {
	TeamID    uint64    `json:"teamId" gorm:"primaryKey;autoIncrement:false"`
	UserID    uint64    `json:"userId" gorm:"primaryKey;autoIncrement:false;index"`
	Role      string    `json:"role" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type TeamSummary struct {
	Team
	Role string `json:"role"`
}

type CreateTeamRequest struct {
	Name string `json:"name" binding:"required,min=1,max=120"`
}

type UpdateMemberRequest struct {
	Role string `json:"role" binding:"required"`
}

type TeamListResponse struct {
	Teams []*TeamSummary `json:"teams"`
}
