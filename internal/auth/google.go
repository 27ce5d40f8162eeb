package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"pharmacist/internal/config"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

const (
	// StateCookieName is the name of the cookie that temporarily stores the OAuth state
	StateCookieName = "pharmacist_oauth_state"
	// StateLength is the length of the random state string in bytes
	StateLength = 32
)

var (
	ErrGoogleDisabled = errors.New("google sign-in is not configured")
	ErrInvalidState   = errors.New("invalid oauth state")
)

var googleOAuthConfig *oauth2.Config

// InitOAuth initializes the Google OAuth configuration. Sign-in stays disabled without credentials.
func InitOAuth(cfg config.GoogleConfig) error {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		googleOAuthConfig = nil
		return ErrGoogleDisabled
	}

	googleOAuthConfig = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile", "openid"},
		Endpoint:     google.Endpoint,
	}

	return nil
}

// GoogleEnabled reports whether InitOAuth succeeded
func GoogleEnabled() bool {
	return googleOAuthConfig != nil
}

// GenerateRandomString creates a cryptographically secure random string
func GenerateRandomString(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes)[:length], nil
}

// GetLoginURL returns the Google OAuth login URL with a secure state parameter
func GetLoginURL(c *gin.Context) (string, error) {
	if googleOAuthConfig == nil {
		return "", ErrGoogleDisabled
	}

	state, err := SetOAuthState(c)
	if err != nil {
		return "", err
	}

	return googleOAuthConfig.AuthCodeURL(state,
		oauth2.SetAuthURLParam("prompt", "select_account"),
	), nil
}

// SetOAuthState generates and stores a random state for CSRF protection
func SetOAuthState(c *gin.Context) (string, error) {
	state, err := GenerateRandomString(StateLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	secure := gin.Mode() != gin.DebugMode
	c.SetCookie(StateCookieName, state, int((10 * time.Minute).Seconds()), "/", "", secure, true)

	return state, nil
}

// VerifyOAuthState verifies the state parameter from the OAuth callback
func VerifyOAuthState(c *gin.Context, receivedState string) bool {
	savedState, err := c.Cookie(StateCookieName)
	if err != nil {
		return false
	}

	// Clear the state cookie regardless of outcome
	c.SetCookie(StateCookieName, "", -1, "/", "", false, true)

	return receivedState != "" && savedState == receivedState
}

// ExchangeGoogleCode trades the callback code for tokens and returns the verified identity
func ExchangeGoogleCode(ctx context.Context, code string) (*UserInfo, error) {
	if googleOAuthConfig == nil {
		return nil, ErrGoogleDisabled
	}

	token, err := googleOAuthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("failed to get id_token")
	}

	payload, err := idtoken.Validate(ctx, rawIDToken, googleOAuthConfig.ClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to validate ID token: %w", err)
	}

	return extractUserInfoFromPayload(payload), nil
}

// extractUserInfoFromPayload extracts user info from the verified token payload
func extractUserInfoFromPayload(payload *idtoken.Payload) *UserInfo {
	userInfo := &UserInfo{Sub: payload.Subject}

	if email, ok := payload.Claims["email"].(string); ok {
		userInfo.Email = email
	}
	if name, ok := payload.Claims["name"].(string); ok {
		userInfo.Name = name
	}
	if picture, ok := payload.Claims["picture"].(string); ok {
		userInfo.Picture = picture
	}
	if givenName, ok := payload.Claims["given_name"].(string); ok {
		userInfo.GivenName = givenName
	}
	if familyName, ok := payload.Claims["family_name"].(string); ok {
		userInfo.FamilyName = familyName
	}
	if emailVerified, ok := payload.Claims["email_verified"].(bool); ok {
		userInfo.EmailVerified = emailVerified
	}

	return userInfo
}
