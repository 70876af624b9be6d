package main

import (
	"log"
	"net/http"
	"sync"
	"time"

	"quickdraw/internal/config"
	"quickdraw/internal/db"
	"quickdraw/internal/server"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	// The HTTP listener comes up first; startup problems retry behind
	// it instead of exiting. The server is installed only after its
	// recovery sweep finishes; until then every request gets 503.
	var (
		mu  sync.Mutex
		srv *server.Server
	)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		current := srv
		mu.Unlock()
		if current == nil {
			http.Error(w, "server starting", http.StatusServiceUnavailable)
			return
		}
		current.Handler().ServeHTTP(w, r)
	})

	go func() {
		for {
			built, err := buildServer(cfg)
			if err != nil {
				log.Printf("startup failed, retrying: %v", err)
				time.Sleep(5 * time.Second)
				continue
			}
			mu.Lock()
			srv = built
			mu.Unlock()
			log.Printf("quickdraw server ready")
			return
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("quickdraw server listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatal(err)
	}
}

func buildServer(cfg config.Config) (*server.Server, error) {
	if cfg.TokenSecret == "" {
		return nil, errTokenSecretMissing
	}
	conn, err := db.Open()
	if err != nil {
		return nil, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeSeconds) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.DBConnMaxIdleTimeSeconds) * time.Second)

	srv := server.New(conn, config.InitRedis(cfg), cfg)
	if err := srv.Start(); err != nil {
		return nil, err
	}
	return srv, nil
}

var errTokenSecretMissing = errString("TOKEN_SECRET is not set")

type errString string

func (e errString) Error() string { return string(e) }
