package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	LoginID      string `gorm:"uniqueIndex;not null"`
	Name         string
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

type CurriculumEntryModel struct {
	Step      int    `gorm:"primaryKey;autoIncrement:false"`
	Index     int    `gorm:"primaryKey;autoIncrement:false;column:idx"`
	Title     string `gorm:"not null"`
	Author    string
	Contents  string         `gorm:"type:text"`
	Questions datatypes.JSON `gorm:"type:jsonb"`
}

type ChatSessionModel struct {
	ID             string `gorm:"primaryKey"`
	UserID         string `gorm:"not null;index"`
	Title          string
	CreatedAt      time.Time `gorm:"not null;index"`
	CurrentStep    int       `gorm:"not null"`
	CurrentIndex   int       `gorm:"not null"`
	QuestionCursor *int
}

type MessageModel struct {
	ID        string    `gorm:"primaryKey"`
	ChatID    string    `gorm:"not null;index"`
	UserID    string    `gorm:"not null"`
	Stream    string    `gorm:"not null;index"`
	Role      string    `gorm:"not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}

type BookReportModel struct {
	ChatID       string `gorm:"primaryKey"`
	UserID       string `gorm:"not null;index"`
	Subject      string
	Summary      string    `gorm:"type:text"`
	BookReview   string    `gorm:"type:text"`
	DebateReview string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"not null"`
}

type FinalReportModel struct {
	ChatID          string `gorm:"primaryKey"`
	UserID          string `gorm:"not null;index"`
	Title           string
	Author          string
	Subject         string
	Summary         string `gorm:"type:text"`
	SummaryAccuracy int    `gorm:"not null"`
	Expression      int    `gorm:"not null"`
	LogicalThinking int    `gorm:"not null"`
	Manner          int    `gorm:"not null"`
	Reason          string `gorm:"type:text"`
	CreatedAt       time.Time `gorm:"not null"`
}

type AggregateReportModel struct {
	UserID    string `gorm:"primaryKey"`
	Pros      string `gorm:"type:text"`
	Cons      string `gorm:"type:text"`
	Reports   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"not null"`
}
