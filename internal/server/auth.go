package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"two-truths/internal/game"
	"two-truths/internal/identity"
)

const claimsKey = "claims"

// sessionClaims carry the Telegram identity between requests. The
// profile seed pre-fills registration.
type sessionClaims struct {
	jwt.RegisteredClaims
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

func (c *sessionClaims) seed() game.Profile {
	return game.Profile{Name: c.FirstName, Surname: c.LastName}
}

type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func (t tokenIssuer) issue(user identity.User) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	claims := &sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Username:  user.Username,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

func (t tokenIssuer) parse(raw string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", errUnauthorized)
		}
		return nil, fmt.Errorf("%w: invalid token", errUnauthorized)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: invalid token", errUnauthorized)
	}
	return claims, nil
}

// requireAuth rejects requests without a valid bearer token.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			s.writeError(c, fmt.Errorf("%w: missing bearer token", errUnauthorized))
			return
		}
		claims, err := s.tokens.parse(strings.TrimSpace(raw))
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// session builds the per-request flow session from the token claims.
func session(c *gin.Context) *game.Session {
	claims, ok := c.MustGet(claimsKey).(*sessionClaims)
	if !ok {
		return nil
	}
	return game.NewSession(claims.Subject, claims.seed())
}

type telegramAuthRequest struct {
	InitData string `json:"init_data" binding:"required"`
}

func (s *Server) handleTelegramAuth(c *gin.Context) {
	var req telegramAuthRequest
	if !bindJSON(c, &req, bindMessages{
		"InitData": {"required": "init_data is required"},
	}, "invalid request") {
		return
	}
	data, err := s.verifier.Verify(req.InitData)
	if err != nil {
		s.log.WithError(err).Warn("init data rejected")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "unauthorized"})
		return
	}
	token, expires, err := s.tokens.issue(data.User)
	if err != nil {
		s.writeError(c, err)
		return
	}

	sess := game.NewSession(data.User.ID, game.Profile{Name: data.User.FirstName, Surname: data.User.LastName})
	state, err := s.engine.Flow.Start(c.Request.Context(), sess)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.log.WithFields(logrus.Fields{
		"player_id": data.User.ID,
		"stage":     state.Stage(),
	}).Info("player authenticated")

	resp := gin.H{
		"token":      token,
		"expires_at": expires.UTC(),
		"user":       userView(data.User),
		"state":      stateView(state),
	}
	if roomID, ok := data.InviteRoom(); ok {
		resp["invite_room_id"] = roomID
	}
	c.JSON(http.StatusOK, resp)
}

func userView(user identity.User) gin.H {
	return gin.H{
		"id":            user.ID,
		"first_name":    user.FirstName,
		"last_name":     user.LastName,
		"username":      user.Username,
		"language_code": user.LanguageCode,
	}
}
