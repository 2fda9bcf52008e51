// services/auth/jwt.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

var ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")

// JWTService signs short-lived access tokens and keeps opaque refresh
// tokens in Redis so they can be revoked on logout.
type JWTService struct {
	secretKey []byte
	rdb       *redis.Client
}

func NewJWTService(secretKey string, rdb *redis.Client) *JWTService {
	return &JWTService{secretKey: []byte(secretKey), rdb: rdb}
}

func (s *JWTService) GenerateTokens(ctx context.Context, userID, role string) (string, string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(accessTokenTTL).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessToken, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign token: %v", err)
	}

	refreshToken := uuid.NewString()
	err = s.rdb.Set(ctx, refreshKey(refreshToken), userID, refreshTokenTTL).Err()
	if err != nil {
		return "", "", fmt.Errorf("failed to store refresh token: %v", err)
	}
	return accessToken, refreshToken, nil
}

// ValidateRefreshToken resolves a refresh token back to its user id.
func (s *JWTService) ValidateRefreshToken(ctx context.Context, refreshToken string) (string, error) {
	userID, err := s.rdb.Get(ctx, refreshKey(refreshToken)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrInvalidRefreshToken
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *JWTService) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	return s.rdb.Del(ctx, refreshKey(refreshToken)).Err()
}

func refreshKey(token string) string {
	return "auth:refresh:" + token
}
