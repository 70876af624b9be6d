package db

import "time"

type Participant struct {
	ID                  uint      `gorm:"primaryKey"`
	RoomID              uint      `gorm:"not null;index;uniqueIndex:idx_participants_room_user"`
	UserID              uint      `gorm:"not null;index;uniqueIndex:idx_participants_room_user"`
	Team                *string   `gorm:"size:8"`
	IsDrawer            bool      `gorm:"not null;default:false"`
	Score               int       `gorm:"not null;default:0"`
	PointsUpdatedAt     time.Time `gorm:"type:timestamptz(6);not null"`
	HasGuessedThisRound bool      `gorm:"not null;default:false"`
	HasPaidEntry        bool      `gorm:"not null;default:false"`
	HasDrawn            bool      `gorm:"not null;default:false"`
	EliminationCount    int       `gorm:"not null;default:3"`
	SkipCount           int       `gorm:"not null;default:0"`
	IsActive            bool      `gorm:"not null;default:true"`
	SocketID            *string   `gorm:"size:64"`
	BannedAt            *time.Time
	CreatedAt           time.Time `gorm:"not null"`
	UpdatedAt           time.Time `gorm:"not null"`
}
