package db

import "time"

type Theme struct {
	ID        uint      `gorm:"primaryKey"`
	Title     string    `gorm:"size:64;uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Keyword holds the English (roman) base word.
type Keyword struct {
	ID        uint      `gorm:"primaryKey"`
	Word      string    `gorm:"size:64;uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type ThemeKeyword struct {
	ID        uint `gorm:"primaryKey"`
	ThemeID   uint `gorm:"not null;index;uniqueIndex:idx_theme_keywords_theme_keyword"`
	KeywordID uint `gorm:"not null;index;uniqueIndex:idx_theme_keywords_theme_keyword"`
}

type Language struct {
	ID        uint      `gorm:"primaryKey"`
	Code      string    `gorm:"size:16;uniqueIndex;not null"`
	Name      string    `gorm:"size:64;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Translation carries both the roman transliteration and the native
// script rendering of a keyword in one language.
type Translation struct {
	ID         uint      `gorm:"primaryKey"`
	KeywordID  uint      `gorm:"not null;index;uniqueIndex:idx_translations_keyword_language"`
	LanguageID uint      `gorm:"not null;index;uniqueIndex:idx_translations_keyword_language"`
	Roman      string    `gorm:"size:128"`
	Native     string    `gorm:"size:128"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}
