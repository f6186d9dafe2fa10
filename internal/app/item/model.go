package item

import "time"

const DefaultDependencyType = "finish-to-start"

type Item struct {
	ID          uint64     `json:"id" gorm:"primaryKey"`
	BoardID     uint64     `json:"boardId" gorm:"not null;index"`
	ColumnID    uint64     `json:"columnId" gorm:"not null;index:idx_items_column_position"`
	Position    int        `json:"position" gorm:"not null;default:0;index:idx_items_column_position"`
	Title       string     `json:"title" gorm:"not null"`
	Description string     `json:"description"`
	AssigneeID  *uint64    `json:"assigneeId,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Completed   bool       `json:"completed" gorm:"not null;default:false"`
	CreatedBy   uint64     `json:"createdBy" gorm:"not null"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (Item) TableName() string {
	return "items"
}

type Subtask struct {
	ID        uint64    `json:"id" gorm:"primaryKey"`
	ItemID    uint64    `json:"itemId" gorm:"not null;index"`
	Title     string    `json:"title" gorm:"not null"`
	Completed bool      `json:"completed" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Subtask) TableName() string {
	return "subtasks"
}

type Comment struct {
	ID        uint64    `json:"id" gorm:"primaryKey"`
	ItemID    uint64    `json:"itemId" gorm:"not null;index"`
	AuthorID  uint64    `json:"authorId" gorm:"not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Comment) TableName() string {
	return "item_comments"
}

// Dependency is a directed edge: FromItemID depends on ToItemID.
type Dependency struct {
	ID         uint64    `json:"id" gorm:"primaryKey"`
	FromItemID uint64    `json:"fromItemId" gorm:"not null;uniqueIndex:idx_dependency_edge"`
	ToItemID   uint64    `json:"toItemId" gorm:"not null;uniqueIndex:idx_dependency_edge;index"`
	Type       string    `json:"type" gorm:"type:varchar(32);not null"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (Dependency) TableName() string {
	return "item_dependencies"
}

type Attachment struct {
	ID          uint64    `json:"id" gorm:"primaryKey"`
	ItemID      uint64    `json:"itemId" gorm:"not null;index"`
	UploaderID  uint64    `json:"uploaderId" gorm:"not null"`
	FileName    string    `json:"fileName" gorm:"not null"`
	ContentType string    `json:"contentType" gorm:"type:varchar(100);not null"`
	Size        int64     `json:"size" gorm:"not null"`
	ObjectName  string    `json:"-" gorm:"type:varchar(500);not null"`
	URL         string    `json:"url,omitempty" gorm:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (Attachment) TableName() string {
	return "item_attachments"
}

type ItemDetail struct {
	Item         *Item         `json:"item"`
	Subtasks     []*Subtask    `json:"subtasks"`
	Dependencies []*Dependency `json:"dependencies"`
	Attachments  []*Attachment `json:"attachments"`
}

type CreateItemRequest struct {
	Title       string     `json:"title" binding:"required,min=1,max=200"`
	Description string     `json:"description" binding:"max=10000"`
	AssigneeID  *uint64    `json:"assigneeId"`
	DueDate     *time.Time `json:"dueDate"`
}

type UpdateItemRequest struct {
	Title       *string    `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string    `json:"description" binding:"omitempty,max=10000"`
	AssigneeID  *uint64    `json:"assigneeId"`
	DueDate     *time.Time `json:"dueDate"`
	Completed   *bool      `json:"completed"`
}

type MoveItemRequest struct {
	ItemID       uint64 `json:"itemId" binding:"required"`
	FromColumnID uint64 `json:"fromColumnId" binding:"required"`
	ToColumnID   uint64 `json:"toColumnId" binding:"required"`
	BoardID      uint64 `json:"boardId" binding:"required"`
	Position     *int   `json:"position" binding:"omitempty,min=0"`
}

// ItemMoved is the payload of the ItemMoved realtime event.
type ItemMoved struct {
	ItemID       uint64 `json:"itemId"`
	FromColumnID uint64 `json:"fromColumnId"`
	ToColumnID   uint64 `json:"toColumnId"`
	Position     int    `json:"position"`
}

type CreateSubtaskRequest struct {
	Title string `json:"title" binding:"required,min=1,max=200"`
}

type UpdateSubtaskRequest struct {
	Title     *string `json:"title" binding:"omitempty,min=1,max=200"`
	Completed *bool   `json:"completed"`
}

type CreateCommentRequest struct {
	Content string `json:"content" binding:"required,min=1,max=4000"`
}

type CreateDependencyRequest struct {
	ToItemID uint64 `json:"toItemId" binding:"required"`
	Type     string `json:"type" binding:"omitempty,oneof=finish-to-start start-to-start finish-to-finish start-to-finish"`
}
