package db

import "time"

type Message struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    uint      `gorm:"index;not null"`
	UserID    uint      `gorm:"index;not null"`
	Content   string    `gorm:"size:512;not null"`
	CreatedAt time.Time `gorm:"not null"`
}
