package chat

import (
	"time"

	"taskboard/internal/access"
)

// Room is created on first use for a board or team.
type Room struct {
	ID        uint64    `json:"id" gorm:"primaryKey"`
	RoomType  string    `json:"roomType" gorm:"type:varchar(16);not null;uniqueIndex:idx_chat_room_entity"`
	EntityID  uint64    `json:"entityId" gorm:"not null;uniqueIndex:idx_chat_room_entity"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Room) TableName() string {
	return "chat_rooms"
}

type Message struct {
	ID       uint64    `json:"id" gorm:"primaryKey"`
	RoomID   uint64    `json:"roomId" gorm:"not null;index:idx_chat_messages_room_sent"`
	SenderID uint64    `json:"senderId" gorm:"not null"`
	Content  string    `json:"content" gorm:"type:text;not null"`
	SentAt   time.Time `json:"sentAt" gorm:"not null;index:idx_chat_messages_room_sent"`
}

func (Message) TableName() string {
	return "chat_messages"
}

// MessageDTO is what clients receive, over HTTP and in ReceiveMessage events.
type MessageDTO struct {
	ID       uint64            `json:"id"`
	RoomType access.EntityKind `json:"roomType"`
	EntityID uint64            `json:"entityId"`
	SenderID uint64            `json:"senderId"`
	Content  string            `json:"content"`
	SentAt   time.Time         `json:"sentAt"`
}

type SendRequest struct {
	Content string `json:"content" binding:"required,min=1,max=2000"`
}

type HistoryQuery struct {
	Before uint64 `form:"before"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
}
