package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"quickdraw/internal/db"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

var errInvalidToken = errors.New("invalid token")

// authenticateRequest resolves the bearer token from the handshake. The
// token must both carry a valid signature and still exist in the tokens
// table, so issued tokens can be revoked server-side.
func (s *Server) authenticateRequest(r *http.Request) (uint, error) {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		header := r.Header.Get("Authorization")
		raw = strings.TrimPrefix(header, "Bearer ")
	}
	if raw == "" {
		return 0, errInvalidToken
	}
	return s.authenticateToken(raw)
}

func (s *Server) authenticateToken(raw string) (uint, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return []byte(s.cfg.TokenSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, errInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errInvalidToken
	}
	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return 0, errInvalidToken
	}
	userID, err := strconv.ParseUint(subject, 10, 64)
	if err != nil {
		return 0, errInvalidToken
	}

	var record db.Token
	err = s.db.Where("value = ?", raw).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, errInvalidToken
	}
	if err != nil {
		return 0, err
	}
	if record.UserID != uint(userID) || record.ExpiresAt.Before(time.Now().UTC()) {
		return 0, errInvalidToken
	}
	return uint(userID), nil
}

// requireAuth gates state-changing events; anonymous sockets get a
// structured error and no mutation happens.
func (s *Server) requireAuth(c *client) bool {
	if c.userID == 0 {
		s.sendError(c, errNotAuthenticated)
		return false
	}
	return true
}
