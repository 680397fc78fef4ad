package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"visitdesk/internal/models"
	"visitdesk/internal/ports"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const userContextKey = "auth_user"

// AuthService validates bearer credentials issued elsewhere: signature and
// expiry, revocation blacklist, then directory lookup. It never mints tokens.
type AuthService struct {
	users     ports.IUserDirectory
	tokenRepo ports.TokenRepository
	jwtKey    []byte
	logger    *slog.Logger
}

func NewAuthService(users ports.IUserDirectory, tokenRepo ports.TokenRepository, jwtKey []byte, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, tokenRepo: tokenRepo, jwtKey: jwtKey, logger: logger}
}

func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.User, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	hash := sha256.Sum256([]byte(tokenString))
	tokenHash := hex.EncodeToString(hash[:])

	revoked, err := s.tokenRepo.IsRevoked(ctx, tokenHash)
	if err != nil {
		s.logger.Error("revocation check failed", "error", err)
		return nil, err
	}
	if revoked {
		s.logger.Warn("revoked token presented")
		return nil, ErrInvalidToken
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtKey, nil
	})
	if err != nil || !token.Valid {
		s.logger.Warn("token validation failed", "error", err)
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Error("failed to resolve token user", "userID", userID, "error", err)
		return nil, err
	}
	if user == nil {
		s.logger.Warn("token for unknown user", "userID", userID)
		return nil, ErrInvalidToken
	}

	return user, nil
}

// AuthMiddleware authenticates a request from the Authorization header or
// the token cookie and stores the resolved user in the gin context.
func (s *AuthService) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		user, err := s.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		SetUser(c, user)
		c.Next()
	}
}

// SetUser stores the authenticated user in the gin context.
func SetUser(c *gin.Context, user *models.User) {
	c.Set(userContextKey, user)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := c.Request.Cookie("token"); err == nil {
		return cookie.Value
	}
	return ""
}

// UserFromContext returns the authenticated user set by AuthMiddleware.
func UserFromContext(c *gin.Context) *models.User {
	value, exists := c.Get(userContextKey)
	if !exists {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}
