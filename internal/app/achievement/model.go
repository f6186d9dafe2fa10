package achievement

import (
	"time"

	"taskboard/internal/utils"
)

type Achievement struct {
	ID          uint64 `json:"id" gorm:"primaryKey"`
	Code        string `json:"code" gorm:"type:varchar(64);uniqueIndex;not null"`
	Title       string `json:"title" gorm:"type:varchar(128);not null"`
	Description string `json:"description" gorm:"type:text"`
	Event       string `json:"-" gorm:"type:varchar(64);index;not null"`
	Threshold   int    `json:"threshold" gorm:"not null"`
}

// UserAchievement tracks a user's progress towards one achievement.
type UserAchievement struct {
	UserID        uint64     `json:"userId" gorm:"primaryKey;autoIncrement:false"`
	AchievementID uint64     `json:"achievementId" gorm:"primaryKey;autoIncrement:false"`
	Progress      int        `json:"progress" gorm:"not null;default:0"`
	UnlockedAt    *time.Time `json:"unlockedAt"`
}

type UserProgress struct {
	Achievement
	Progress   int        `json:"progress"`
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlockedAt,omitempty"`
}

// Catalog is the set of achievements the seeder installs.
var Catalog = []Achievement{
	{Code: "first_board", Title: "Architect", Description: "Create your first board", Event: utils.EventBoardCreated, Threshold: 1},
	{Code: "team_player", Title: "Team Player", Description: "Accept your first invitation", Event: utils.EventInvitationAccepted, Threshold: 1},
	{Code: "chatterbox", Title: "Chatterbox", Description: "Send 10 chat messages", Event: utils.EventMessageSent, Threshold: 10},
	{Code: "reviewer", Title: "Reviewer", Description: "Write 5 comments", Event: utils.EventCommentCreated, Threshold: 5},
	{Code: "productive", Title: "Productive", Description: "Create 10 items", Event: utils.EventItemCreated, Threshold: 10},
}
