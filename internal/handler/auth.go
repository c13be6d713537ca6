package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rigforge/rigforge/internal/identity"
	"github.com/rigforge/rigforge/internal/users"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// OAuthProviderConfig holds OAuth client credentials for a provider.
type OAuthProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// userSvc is the interface expected by AuthHandler, satisfied by *users.Service.
type userSvc interface {
	Signup(ctx context.Context, username, email, password string) (*users.User, error)
	VerifyOTP(ctx context.Context, userID uuid.UUID, otp string) error
	ResendOTP(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (*users.User, error)
	GetOrCreateFromGoogle(ctx context.Context, email, name, imageURL string) (*users.User, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*users.User, error)
}

// AuthHandler handles account signup, OTP verification, login, and the
// Google OAuth flow.
type AuthHandler struct {
	users       userSvc
	tokens      *identity.TokenIssuer
	googleCfg   *oauth2.Config // nil = Google login disabled
	frontendURL string
	logger      *zap.Logger
}

// NewAuthHandler creates an AuthHandler. google may have empty credentials to
// disable the OAuth routes.
func NewAuthHandler(userSvc userSvc, tokens *identity.TokenIssuer, google OAuthProviderConfig, frontendURL string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		users:       userSvc,
		tokens:      tokens,
		googleCfg:   buildGoogleConfig(google),
		frontendURL: frontendURL,
		logger:      logger,
	}
}

func buildGoogleConfig(p OAuthProviderConfig) *oauth2.Config {
	if p.ClientID == "" || p.ClientSecret == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		RedirectURL:  p.RedirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}
}

// Register mounts the auth routes.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	{
		auth.POST("/signup", h.Signup)
		auth.POST("/verify-otp", h.VerifyOTP)
		auth.POST("/resend-otp", h.ResendOTP)
		auth.POST("/login", h.Login)
		auth.GET("/oauth/google", h.GoogleRedirect)
		auth.GET("/oauth/google/callback", h.GoogleCallback)
	}
}

type signupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

type verifyOTPRequest struct {
	UserID string `json:"userId" binding:"required"`
	OTP    string `json:"otp"    binding:"required"`
}

type resendOTPRequest struct {
	Email string `json:"email" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := h.users.Signup(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		// Duplicate email/username and validation failures all surface as 400
		// with the service's message.
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	RecordSignup("email")
	c.JSON(http.StatusCreated, gin.H{
		"user":    u,
		"message": "Account created. Check your email for the verification code.",
	})
}

// VerifyOTP handles POST /auth/verify-otp — consumes the emailed code and
// issues a session token on success.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	uid, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.users.VerifyOTP(c.Request.Context(), uid, req.OTP); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := h.users.GetByID(c.Request.Context(), uid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	tok, err := h.tokens.Issue(u.ID.String(), u.Email, u.Username)
	if err != nil {
		h.logger.Error("issue token after otp verification", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Email verified successfully.",
		"user":    u,
		"token":   tok,
	})
}

// ResendOTP handles POST /auth/resend-otp. Always answers the same way so
// callers cannot probe which emails are registered.
func (h *AuthHandler) ResendOTP(c *gin.Context) {
	var req resendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_ = h.users.ResendOTP(c.Request.Context(), req.Email)
	c.JSON(http.StatusOK, gin.H{
		"message": "If an account with that email exists and is unverified, a new code has been sent.",
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrEmailNotVerified):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, users.ErrOAuthOnly):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		}
		return
	}

	tok, err := h.tokens.Issue(u.ID.String(), u.Email, u.Username)
	if err != nil {
		h.logger.Error("issue token after login", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": u, "token": tok})
}

// GoogleRedirect handles GET /auth/oauth/google — sends the browser to
// Google's consent screen with a signed state parameter.
func (h *AuthHandler) GoogleRedirect(c *gin.Context) {
	if h.googleCfg == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Google login is not configured"})
		return
	}

	state, err := h.tokens.IssueOAuthState("google")
	if err != nil {
		h.logger.Error("generate oauth state", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate OAuth state"})
		return
	}

	c.Redirect(http.StatusFound, h.googleCfg.AuthCodeURL(state, oauth2.AccessTypeOnline))
}

// GoogleCallback handles GET /auth/oauth/google/callback.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if h.googleCfg == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Google login is not configured"})
		return
	}

	// State check before anything else.
	if provider, err := h.tokens.VerifyOAuthState(c.Query("state")); err != nil || provider != "google" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid OAuth state"})
		return
	}

	code := c.Query("code")
	if code == "" {
		errMsg := c.Query("error_description")
		if errMsg == "" {
			errMsg = c.Query("error")
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "OAuth authorization failed: " + errMsg})
		return
	}

	oauthToken, err := h.googleCfg.Exchange(c.Request.Context(), code)
	if err != nil {
		h.logger.Error("oauth code exchange", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "OAuth code exchange failed"})
		return
	}

	email, name, picture, err := fetchGoogleUserInfo(c.Request.Context(), oauthToken.AccessToken)
	if err != nil {
		h.logger.Error("fetch google user info", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch user info from Google"})
		return
	}

	u, created, err := h.users.GetOrCreateFromGoogle(c.Request.Context(), email, name, picture)
	if err != nil {
		h.logger.Error("get or create google user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process Google login"})
		return
	}
	if created {
		RecordSignup("google")
	}

	tok, err := h.tokens.Issue(u.ID.String(), u.Email, u.Username)
	if err != nil {
		h.logger.Error("issue token after oauth", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}

	// Token rides in the URL fragment: fragments never reach the server, so
	// the token stays client-side only.
	c.Redirect(http.StatusFound, h.frontendURL+"/oauth/callback#token="+tok)
}

func fetchGoogleUserInfo(ctx context.Context, accessToken string) (email, name, picture string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://www.googleapis.com/oauth2/v2/userinfo", nil)
	if err != nil {
		return "", "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", "", "", fmt.Errorf("google userinfo: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", "", "", fmt.Errorf("read userinfo response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", "", "", fmt.Errorf("google userinfo returned %d", resp.StatusCode)
	}

	var info struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return "", "", "", fmt.Errorf("parse userinfo: %w", err)
	}
	return info.Email, info.Name, info.Picture, nil
}
