package db

import (
	"time"

	"gorm.io/datatypes"
)

type Room struct {
	ID                 uint           `gorm:"primaryKey"`
	Code               string         `gorm:"size:5;uniqueIndex;not null"`
	OwnerID            uint           `gorm:"index;not null"`
	MaxPlayers         int            `gorm:"not null;default:8"`
	IsPublic           bool           `gorm:"not null;default:true"`
	GameMode           string         `gorm:"size:16;not null;default:solo"`
	Language           string         `gorm:"size:16;not null;default:english"`
	Script             string         `gorm:"size:16;not null;default:default"`
	Country            string         `gorm:"size:2"`
	Category           datatypes.JSON `gorm:"type:jsonb"`
	EntryPoints        int            `gorm:"not null;default:0"`
	TargetPoints       int            `gorm:"not null;default:60"`
	VoiceEnabled       bool           `gorm:"not null;default:false"`
	Status             string         `gorm:"size:16;not null;default:lobby;index"`
	CurrentRound       int            `gorm:"not null;default:0"`
	RoundPhase         *string        `gorm:"size:32;index"`
	RoundPhaseEndTime  *time.Time
	CurrentDrawerID    *uint
	LastDrawerID       *uint
	CurrentWord        *string        `gorm:"size:128"`
	CurrentWordOptions datatypes.JSON `gorm:"type:jsonb"`
	DrawerPointerIndex int            `gorm:"not null;default:0"`
	DrawnUserIDs       datatypes.JSON `gorm:"type:jsonb"`
	UsedWords          datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt          time.Time      `gorm:"not null"`
	UpdatedAt          time.Time      `gorm:"not null"`
	Participants       []Participant
	Messages           []Message
}
