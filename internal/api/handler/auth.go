package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"matchlink/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	sessionIssuer = "matchlink-service"
	sessionTTL    = 72 * time.Hour
	walletClaim   = "wallet"
	walletKey     = "wallet"
)

var ErrInvalidSession = errors.New("invalid session token")

// Sessions signs and verifies wallet session tokens.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessions(secret string) *Sessions {
	return &Sessions{secret: []byte(secret), ttl: sessionTTL, now: time.Now}
}

// Generate issues a token bound to wallet.
func (s *Sessions) Generate(wallet string) (string, error) {
	wallet = models.NormalizeAddress(wallet)
	if !strings.HasPrefix(wallet, "0x") {
		return "", fmt.Errorf("wallet address %q must be 0x-prefixed", wallet)
	}
	now := s.now()
	claims := jwt.MapClaims{
		walletClaim: wallet,
		"jti":       uuid.NewString(),
		"iat":       now.Unix(),
		"exp":       now.Add(s.ttl).Unix(),
		"iss":       sessionIssuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse verifies the token and returns its wallet.
func (s *Sessions) Parse(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidSession
	}
	wallet, _ := claims[walletClaim].(string)
	if wallet == "" {
		return "", fmt.Errorf("%w: missing %s claim", ErrInvalidSession, walletClaim)
	}
	return wallet, nil
}

// RequireWallet authenticates the request from the Authorization header,
// or from the token query parameter for websocket upgrades.
func (h *Handler) RequireWallet() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			var ok bool
			tokenString, ok = strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				h.abortUnauthenticated(c)
				return
			}
		}
		if tokenString == "" {
			h.abortUnauthenticated(c)
			return
		}

		wallet, err := h.Sessions.Parse(tokenString)
		if err != nil {
			h.abortUnauthenticated(c)
			return
		}
		c.Set(walletKey, wallet)
		c.Next()
	}
}

// WalletFrom returns the wallet RequireWallet stored on the context.
func WalletFrom(c *gin.Context) string {
	return c.GetString(walletKey)
}

func (h *Handler) abortUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrorBody{
		Kind:       "UNAUTHENTICATED",
		MessageKey: "unauthenticated",
		Message:    h.message(c, "unauthenticated"),
	}})
}
