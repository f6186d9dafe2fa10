package board

import (
	"time"

	"taskboard/internal/access"
)

type Board struct {
	ID        uint64    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	OwnerID   uint64    `json:"ownerId" gorm:"not null;index"`
	IsPublic  bool      `json:"isPublic" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BoardMember is keyed by (board, user); Role holds a lower-case role name.
type BoardMember struct {
	BoardID   uint64    `json:"boardId" gorm:"primaryKey;autoIncrement:false"`
	UserID    uint64    `json:"userId" gorm:"primaryKey;autoIncrement:false;index"`
	Role      string    `json:"role" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Column struct {
	ID        uint64    `json:"id" gorm:"primaryKey"`
	BoardID   uint64    `json:"boardId" gorm:"not null;index"`
	Title     string    `json:"title" gorm:"not null"`
	Position  int       `json:"order" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Column) TableName() string {
	return "board_columns"
}

type BoardSummary struct {
	Board
	Role string `json:"role"`
}

type BoardDetail struct {
	Board   *Board      `json:"board"`
	Role    access.Role `json:"role"`
	Columns []*Column   `json:"columns"`
}

type CreateBoardRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=120"`
	IsPublic bool   `json:"isPublic"`
}

type UpdateBoardRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=120"`
	IsPublic *bool   `json:"isPublic"`
}

type CreateColumnRequest struct {
	Title string `json:"title" binding:"required,min=1,max=120"`
	Order *int   `json:"order" binding:"omitempty,min=0"`
}

type UpdateColumnRequest struct {
	Title *string `json:"title" binding:"omitempty,min=1,max=120"`
	Order *int    `json:"order" binding:"omitempty,min=0"`
}

type UpdateMemberRequest struct {
	Role string `json:"role" binding:"required"`
}

type BoardListResponse struct {
	Boards []*BoardSummary `json:"boards"`
}
