package db

import (
	"time"

	"gorm.io/datatypes"
)

type Report struct {
	ID           uint           `gorm:"primaryKey"`
	RoomID       uint           `gorm:"not null;uniqueIndex:idx_reports_room_target_kind"`
	TargetUserID uint           `gorm:"not null;uniqueIndex:idx_reports_room_target_kind"`
	Kind         string         `gorm:"size:16;not null;uniqueIndex:idx_reports_room_target_kind"`
	Reporters    datatypes.JSON `gorm:"type:jsonb"`
	StrikeCount  int            `gorm:"not null;default:0"`
	CreatedAt    time.Time      `gorm:"not null"`
	UpdatedAt    time.Time      `gorm:"not null"`
}
