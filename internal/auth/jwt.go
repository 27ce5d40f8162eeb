package auth

import (
	"errors"
	"fmt"
	"pharmacist/internal/config"
	"pharmacist/internal/models"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrWrongTokenType = errors.New("wrong token type")
	ErrRevokedToken   = errors.New("token has been revoked")
)

// TokenType distinguishes short-lived access tokens from refresh tokens
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

var tokenConfig config.AuthConfig

// Configure sets the secret and lifetimes used to sign tokens
func Configure(cfg config.AuthConfig) {
	tokenConfig = cfg
}

// TokenClaims represents the claims in the JWT token
type TokenClaims struct {
	UserID       uint      `json:"user_id"`
	Type         TokenType `json:"type"`
	TokenVersion int       `json:"token_version"`
	jwt.RegisteredClaims
}

// TokenPair is returned on login and password change
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// GenerateToken creates a signed token of the given type for a user
func GenerateToken(user *models.User, typ TokenType) (string, error) {
	if tokenConfig.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	ttl := tokenConfig.AccessTTL
	if typ == RefreshToken {
		ttl = tokenConfig.RefreshTTL
	}

	now := time.Now()
	claims := TokenClaims{
		UserID:       user.ID,
		Type:         typ,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenConfig.Issuer,
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(tokenConfig.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, nil
}

// GenerateTokenPair creates an access and a refresh token for a user
func GenerateTokenPair(user *models.User) (TokenPair, error) {
	access, err := GenerateToken(user, AccessToken)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := GenerateToken(user, RefreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// ValidateToken validates and parses a JWT token of the expected type.
// It does not check the token version, that needs the user record.
func ValidateToken(tokenString string, want TokenType) (*TokenClaims, error) {
	if tokenConfig.JWTSecret == "" {
		return nil, fmt.Errorf("JWT secret not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tokenConfig.JWTSecret), nil
	}, jwt.WithIssuer(tokenConfig.Issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}

	if claims.Type != want {
		return nil, ErrWrongTokenType
	}

	return claims, nil
}

// CheckVersion rejects tokens issued before the user's last logout or password change
func CheckVersion(claims *TokenClaims, user *models.User) error {
	if claims.TokenVersion != user.TokenVersion {
		return ErrRevokedToken
	}
	return nil
}
