package db

import "time"

// CoinTransaction is the append-only wallet ledger. Amount is negative
// for debits.
type CoinTransaction struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"index;not null"`
	RoomID    *uint     `gorm:"index"`
	Amount    int       `gorm:"not null"`
	Kind      string    `gorm:"size:32;not null"`
	CreatedAt time.Time `gorm:"not null"`
}
