package config

import (
	"os"
	"strconv"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Port        string
	DatabaseURL string
	RedisAddr   string
	RedisPass   string
	TokenSecret string

	// Voice collaborator announced address, passed through to the SFU.
	VoiceAnnouncedIP string
	VoiceCostPoints  int

	SelectingDrawerSeconds int
	ChoosingWordSeconds    int
	DrawingSeconds         int
	RevealSeconds          int
	IntervalSeconds        int
	LobbyTimeoutSeconds    int
	LobbyResponseSeconds   int

	PhaseJitterMs     int
	CacheTTLMs        int
	GraceMs           int
	LeaveGraceMs      int
	MaxPointsPerRound int

	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
}

func Default() Config {
	return Config{
		Port:                     "8080",
		RedisAddr:                "localhost:6379",
		VoiceCostPoints:          5,
		SelectingDrawerSeconds:   5,
		ChoosingWordSeconds:      10,
		DrawingSeconds:           80,
		RevealSeconds:            7,
		IntervalSeconds:          4,
		LobbyTimeoutSeconds:      120,
		LobbyResponseSeconds:     30,
		PhaseJitterMs:            250,
		CacheTTLMs:               5000,
		GraceMs:                  90000,
		LeaveGraceMs:             1000,
		MaxPointsPerRound:        10,
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
	}
}

func Load() Config {
	cfg := Default()
	if raw := os.Getenv("PORT"); raw != "" {
		cfg.Port = raw
	}
	if raw := os.Getenv("DATABASE_URL"); raw != "" {
		cfg.DatabaseURL = raw
	}
	if raw := os.Getenv("REDIS_ADDR"); raw != "" {
		cfg.RedisAddr = raw
	}
	if raw := os.Getenv("REDIS_PASSWORD"); raw != "" {
		cfg.RedisPass = raw
	}
	if raw := os.Getenv("TOKEN_SECRET"); raw != "" {
		cfg.TokenSecret = raw
	}
	if raw := os.Getenv("VOICE_ANNOUNCED_IP"); raw != "" {
		cfg.VoiceAnnouncedIP = raw
	}
	readInt("VOICE_COST_POINTS", &cfg.VoiceCostPoints)
	readInt("SELECTING_DRAWER_SECONDS", &cfg.SelectingDrawerSeconds)
	readInt("CHOOSING_WORD_SECONDS", &cfg.ChoosingWordSeconds)
	readInt("DRAWING_SECONDS", &cfg.DrawingSeconds)
	readInt("REVEAL_SECONDS", &cfg.RevealSeconds)
	readInt("INTERVAL_SECONDS", &cfg.IntervalSeconds)
	readInt("LOBBY_TIMEOUT_SECONDS", &cfg.LobbyTimeoutSeconds)
	readInt("LOBBY_RESPONSE_SECONDS", &cfg.LobbyResponseSeconds)
	readInt("PHASE_JITTER_MS", &cfg.PhaseJitterMs)
	readInt("CACHE_TTL_MS", &cfg.CacheTTLMs)
	readInt("GRACE_PERIOD_MS", &cfg.GraceMs)
	readInt("LEAVE_GRACE_MS", &cfg.LeaveGraceMs)
	readInt("MAX_POINTS_PER_ROUND", &cfg.MaxPointsPerRound)
	readInt("DB_MAX_OPEN_CONNS", &cfg.DBMaxOpenConns)
	readInt("DB_MAX_IDLE_CONNS", &cfg.DBMaxIdleConns)
	readInt("DB_CONN_MAX_LIFETIME_SECONDS", &cfg.DBConnMaxLifetimeSeconds)
	readInt("DB_CONN_MAX_IDLE_SECONDS", &cfg.DBConnMaxIdleTimeSeconds)
	return cfg
}

func readInt(key string, dst *int) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	if value, err := strconv.Atoi(raw); err == nil && value > 0 {
		*dst = value
	}
}

func InitRedis(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
	})
}
