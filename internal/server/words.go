package server

import (
	"log"

	"quickdraw/internal/db"

	"gorm.io/gorm"
)

type wordSource int

const (
	srcEnglish wordSource = iota
	srcRoman
	srcNative
)

// lastResortWords is the fixed pool used when the catalog cannot produce
// three options at all.
var lastResortWords = []string{
	"tree", "house", "river", "apple", "train",
	"mountain", "guitar", "candle", "bridge", "rocket",
}

// wordSources maps the room's (language, script) combination to an
// ordered source chain: primary first, then the fallbacks.
func wordSources(language, script string) []wordSource {
	if language == "english" {
		return []wordSource{srcEnglish}
	}
	switch script {
	case scriptEnglish, scriptRoman:
		return []wordSource{srcEnglish}
	case scriptNative:
		return []wordSource{srcNative, srcRoman, srcEnglish}
	default:
		return []wordSource{srcRoman, srcNative, srcEnglish}
	}
}

// wordOptions draws three distinct words for the drawer: filtered by the
// game's used words first, recycled without the filter when the catalog
// runs dry, and finally the fixed pool.
func (s *Server) wordOptions(room *db.Room) []string {
	used := stringsFromJSON(room.UsedWords)
	categories := stringsFromJSON(room.Category)
	for _, source := range wordSources(room.Language, room.Script) {
		words, err := s.queryWords(source, room.Language, categories, used, 3)
		if err != nil {
			log.Printf("word query failed room=%s source=%d error=%v", room.Code, source, err)
			continue
		}
		if len(words) >= 3 {
			return words[:3]
		}
		recycled, err := s.queryWords(source, room.Language, categories, nil, 3)
		if err == nil && len(recycled) >= 3 {
			return recycled[:3]
		}
	}
	return pickFromPool(lastResortWords, used, 3)
}

func (s *Server) queryWords(source wordSource, language string, categories, used []string, limit int) ([]string, error) {
	var tx *gorm.DB
	switch source {
	case srcEnglish:
		tx = s.db.Table("keywords").Select("DISTINCT keywords.word AS word")
	case srcRoman:
		tx = s.db.Table("keywords").
			Select("DISTINCT translations.roman AS word").
			Joins("JOIN translations ON translations.keyword_id = keywords.id").
			Joins("JOIN languages ON languages.id = translations.language_id").
			Where("languages.code = ?", language).
			Where("translations.roman <> ''")
	case srcNative:
		tx = s.db.Table("keywords").
			Select("DISTINCT translations.native AS word").
			Joins("JOIN translations ON translations.keyword_id = keywords.id").
			Joins("JOIN languages ON languages.id = translations.language_id").
			Where("languages.code = ?", language).
			Where("translations.native <> ''")
	}
	if len(categories) > 0 {
		tx = tx.
			Joins("JOIN theme_keywords ON theme_keywords.keyword_id = keywords.id").
			Joins("JOIN themes ON themes.id = theme_keywords.theme_id").
			Where("themes.title IN ?", categories)
	}
	if len(used) > 0 {
		switch source {
		case srcEnglish:
			tx = tx.Where("keywords.word NOT IN ?", used)
		case srcRoman:
			tx = tx.Where("translations.roman NOT IN ?", used)
		case srcNative:
			tx = tx.Where("translations.native NOT IN ?", used)
		}
	}
	// Postgres rejects ORDER BY random() next to SELECT DISTINCT, so the
	// shuffle runs over the distinct set as a subquery.
	var words []string
	err := s.db.Table("(?) AS candidates", tx).Order("random()").Limit(limit).Pluck("word", &words).Error
	return words, err
}

func pickFromPool(pool, used []string, count int) []string {
	fresh := make([]string, 0, len(pool))
	for _, word := range pool {
		if !containsString(used, word) {
			fresh = append(fresh, word)
		}
	}
	if len(fresh) < count {
		fresh = append([]string{}, pool...)
	}
	if len(fresh) > count {
		fresh = fresh[:count]
	}
	return fresh
}
