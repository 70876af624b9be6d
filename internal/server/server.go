package server

import (
	"net/http"
	"sync/atomic"
	"time"

	"quickdraw/internal/config"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	db       *gorm.DB
	store    *roomStore
	cache    *roomCache
	cfg      config.Config
	hub      *wsHub
	sessions *sessionRegistry
	clock    *phaseClock
	voice    VoiceRelay

	// joinGate stays closed until the startup sweep and timer rebuild
	// complete; joins before that answer server_syncing.
	joinGate atomic.Bool
}

func New(conn *gorm.DB, rdb *redis.Client, cfg config.Config) *Server {
	return &Server{
		db:       conn,
		store:    newRoomStore(conn),
		cache:    newRoomCache(rdb, time.Duration(cfg.CacheTTLMs)*time.Millisecond),
		cfg:      cfg,
		hub:      newWSHub(),
		sessions: newSessionRegistry(),
		clock:    newPhaseClock(),
		voice:    noopVoice{},
	}
}

// SetVoiceRelay wires the external SFU collaborator.
func (s *Server) SetVoiceRelay(relay VoiceRelay) {
	if relay != nil {
		s.voice = relay
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebsocket)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Start runs the crash-recovery path: reap orphaned participants,
// rebuild every phase timer from the persistent record, then open the
// join gate.
func (s *Server) Start() error {
	if err := s.startupSweep(); err != nil {
		return err
	}
	if err := s.rebuildTimers(); err != nil {
		return err
	}
	s.joinGate.Store(true)
	return nil
}
