package handlers

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"pharmacist/internal/auth"
	"pharmacist/internal/database"
	"pharmacist/internal/models"
	"pharmacist/internal/utils"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	loginMethodPassword = "password"
	loginMethodGoogle   = "google"
)

// Register creates an account identified by phone number
func Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input: "+err.Error(), err)
		return
	}

	phone, err := auth.NormalizePhone(req.PhoneNumber)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "phone_number"})
		return
	}
	if req.Password != req.Password2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "passwords do not match", "field": "password2"})
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "password"})
		return
	}

	db := database.GetDB()

	// deleted accounts keep their phone number reserved
	var existing int64
	if err := db.Unscoped().Model(&models.User{}).Where("phone_number = ?", phone).Count(&existing).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to create account", err)
		return
	}
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "an account with this phone number already exists", "field": "phone_number"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to create account", err)
		return
	}

	user := models.User{PhoneNumber: &phone, HashedPass: hash}
	if err := db.Create(&user).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to create account", err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// ObtainToken exchanges phone number and password for a token pair
func ObtainToken(c *gin.Context) {
	var req models.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input: "+err.Error(), err)
		return
	}

	invalid := gin.H{"error": "no active account found with the given credentials"}

	phone, err := auth.NormalizePhone(req.PhoneNumber)
	if err != nil {
		c.JSON(http.StatusUnauthorized, invalid)
		return
	}

	var user models.User
	if err := database.GetDB().Where("phone_number = ?", phone).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, invalid)
			return
		}
		handleError(c, http.StatusInternalServerError, "Database error", err)
		return
	}

	if !auth.CheckPassword(user.HashedPass, req.Password) {
		c.JSON(http.StatusUnauthorized, invalid)
		return
	}

	issueTokens(c, &user, loginMethodPassword)
}

// issueTokens records the sign-in and answers with a fresh token pair
func issueTokens(c *gin.Context, user *models.User, method string) {
	pair, err := auth.GenerateTokenPair(user)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to generate token", err)
		return
	}
	recordLogin(c, user, method)
	c.JSON(http.StatusOK, pair)
}

// recordLogin updates last_login and writes a LoginLog. Failures are logged, never returned.
func recordLogin(c *gin.Context, user *models.User, method string) {
	db := database.GetDB()
	now := time.Now().UTC()

	if err := db.Model(user).UpdateColumn("last_login", now).Error; err != nil {
		log.Printf("Warning: Failed to update last login for user %d: %v", user.ID, err)
	}

	entry := models.LoginLog{
		UserID:    user.ID,
		Method:    method,
		ClientIP:  utils.GetRealClientIP(c),
		UserAgent: utils.Truncate(c.Request.UserAgent(), 255),
		Timestamp: now,
	}
	if err := db.Create(&entry).Error; err != nil {
		log.Printf("Warning: Failed to record login for user %d: %v", user.ID, err)
	}
}

// RefreshToken issues a new access token for a valid refresh token
func RefreshToken(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input: "+err.Error(), err)
		return
	}

	claims, err := auth.ValidateToken(req.Refresh, auth.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token is invalid or expired"})
		return
	}

	var user models.User
	if err := database.GetDB().First(&user, claims.UserID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token is invalid or expired"})
		return
	}
	if err := auth.CheckVersion(claims, &user); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token has been revoked"})
		return
	}

	access, err := auth.GenerateToken(&user, auth.AccessToken)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to generate token", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": access})
}

// Logout invalidates every token issued to the user
func Logout(c *gin.Context) {
	user := auth.CurrentUser(c)

	// Increment the token version to invalidate all existing tokens
	if err := database.GetDB().Model(user).
		UpdateColumn("token_version", gorm.Expr("token_version + 1")).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to log out", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logout successful"})
}

// ChangePassword verifies the old password, stores the new one and revokes older tokens
func ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input: "+err.Error(), err)
		return
	}

	user := auth.CurrentUser(c)
	if !auth.CheckPassword(user.HashedPass, req.OldPassword) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "old password is incorrect", "field": "old_password"})
		return
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "new_password"})
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to change password", err)
		return
	}

	user.HashedPass = hash
	user.TokenVersion++
	if err := database.GetDB().Model(user).Updates(map[string]interface{}{
		"hashed_pass":   user.HashedPass,
		"token_version": user.TokenVersion,
	}).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to change password", err)
		return
	}

	pair, err := auth.GenerateTokenPair(user)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to generate token", err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// GoogleLogin redirects to Google OAuth login
func GoogleLogin(c *gin.Context) {
	loginURL, err := auth.GetLoginURL(c)
	if err != nil {
		if errors.Is(err, auth.ErrGoogleDisabled) {
			handleError(c, http.StatusServiceUnavailable, "Google sign-in is not configured", err)
			return
		}
		handleError(c, http.StatusInternalServerError, "Failed to generate login URL", err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, loginURL)
}

// GoogleCallback finishes Google sign-in and hands the tokens to the frontend in the URL fragment
func GoogleCallback(c *gin.Context) {
	if !auth.VerifyOAuthState(c, c.Query("state")) {
		log.Printf("Error: Invalid OAuth state from %s", utils.GetRealClientIP(c))
		redirectToFrontend(c, "/login", url.Values{"error": {"invalid_state"}})
		return
	}

	code := c.Query("code")
	if code == "" {
		redirectToFrontend(c, "/login", url.Values{"error": {"access_denied"}})
		return
	}

	info, err := auth.ExchangeGoogleCode(c.Request.Context(), code)
	if err != nil {
		log.Printf("Error: Google code exchange failed: %v", err)
		redirectToFrontend(c, "/login", url.Values{"error": {"google_failed"}})
		return
	}

	user, err := findOrCreateGoogleUser(info)
	if err != nil {
		log.Printf("Error: Failed to resolve Google user %s: %v", info.Sub, err)
		redirectToFrontend(c, "/login", url.Values{"error": {"google_failed"}})
		return
	}

	pair, err := auth.GenerateTokenPair(user)
	if err != nil {
		log.Printf("Error: Failed to generate token: %v", err)
		redirectToFrontend(c, "/login", url.Values{"error": {"google_failed"}})
		return
	}
	recordLogin(c, user, loginMethodGoogle)

	redirectToFrontend(c, "/auth/google", url.Values{"access": {pair.Access}, "refresh": {pair.Refresh}})
}

// redirectToFrontend sends the browser to path on the frontend with values in the fragment,
// so tokens never reach server logs
func redirectToFrontend(c *gin.Context, path string, values url.Values) {
	target := strings.TrimRight(deps.Config.Frontend.URL, "/") + path + "#" + values.Encode()
	c.Redirect(http.StatusTemporaryRedirect, target)
}

// findOrCreateGoogleUser matches by Google subject first, then links an account with the same verified e-mail
func findOrCreateGoogleUser(info *auth.UserInfo) (*models.User, error) {
	db := database.GetDB()

	var user models.User
	err := db.Where("google_id = ?", info.Sub).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if info.Email != "" && info.EmailVerified {
		err = db.Where("email = ?", info.Email).First(&user).Error
		if err == nil {
			sub := info.Sub
			if err := db.Model(&user).UpdateColumn("google_id", sub).Error; err != nil {
				return nil, err
			}
			user.GoogleID = &sub
			return &user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	sub := info.Sub
	user = models.User{
		GoogleID:  &sub,
		FirstName: info.GivenName,
		LastName:  info.FamilyName,
		AvatarURL: info.Picture,
	}
	if info.Email != "" && info.EmailVerified {
		email := info.Email
		user.Email = &email
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
