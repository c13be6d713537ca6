package users

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rigforge/rigforge/internal/email"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// otpTTL is how long a signup one-time code stays valid.
const otpTTL = 10 * time.Minute

// ErrInvalidCredentials is returned by Login for unknown emails and wrong
// passwords alike, so callers cannot probe which of the two failed.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrEmailNotVerified is returned when an unverified account tries to log in.
var ErrEmailNotVerified = errors.New("please verify your email first")

// ErrOAuthOnly is returned when a password login hits a federated account.
var ErrOAuthOnly = errors.New("account uses Google login; no password set")

// userRepo is the storage interface consumed by Service.
type userRepo interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	SetOTP(ctx context.Context, userID uuid.UUID, otp string, expiry time.Time) error
	MarkVerified(ctx context.Context, userID uuid.UUID) error
	UpdateProfile(ctx context.Context, userID uuid.UUID, username string, imageURL string, imageSet bool) error
}

// Service implements account management: signup with email OTP verification,
// login, Google federated login, and profile edits.
type Service struct {
	repo   userRepo
	mailer email.Sender
	logger *zap.Logger
}

// NewService creates a user Service.
func NewService(repo userRepo, mailer email.Sender, logger *zap.Logger) *Service {
	return &Service{repo: repo, mailer: mailer, logger: logger}
}

// Signup creates a credentials account and emails a 6-digit verification code.
// Email delivery failure is non-fatal: the account is created either way and
// the user can request a new code.
func (s *Service) Signup(ctx context.Context, username, emailAddr, password string) (*User, error) {
	username = strings.TrimSpace(username)
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))

	if username == "" || emailAddr == "" || password == "" {
		return nil, fmt.Errorf("all fields are required")
	}
	if len(username) < 3 {
		return nil, fmt.Errorf("username must be at least 3 characters long")
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("password must be at least 6 characters long")
	}
	if !strings.Contains(emailAddr, "@") {
		return nil, fmt.Errorf("please enter a valid email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	otp, err := generateOTP()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}
	expiry := time.Now().UTC().Add(otpTTL)

	u := &User{
		Username:     username,
		Email:        emailAddr,
		PasswordHash: string(hash),
		Provider:     ProviderCredentials,
		OTP:          otp,
		OTPExpiry:    &expiry,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicateEmail) || errors.Is(err, ErrDuplicateUsername) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.sendOTPEmail(ctx, u, otp)
	return u, nil
}

// VerifyOTP consumes a one-time code and marks the account verified.
// A welcome email is sent on success; its failure is non-fatal.
func (s *Service) VerifyOTP(ctx context.Context, userID uuid.UUID, otp string) error {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.EmailVerified {
		return fmt.Errorf("email already verified")
	}
	if u.OTP == "" || u.OTPExpiry == nil {
		return fmt.Errorf("no verification code found; please request a new one")
	}
	if time.Now().After(*u.OTPExpiry) {
		return fmt.Errorf("verification code has expired; please request a new one")
	}
	if u.OTP != otp {
		return fmt.Errorf("invalid verification code")
	}

	if err := s.repo.MarkVerified(ctx, u.ID); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}

	body := fmt.Sprintf(
		"Welcome to RigForge, %s!\n\nYour email is verified and your account is ready.\nStart a build, share it, and see what the community thinks.\n",
		u.Username,
	)
	if err := s.mailer.Send(ctx, u.Email, "Welcome to RigForge", body); err != nil {
		s.logger.Warn("send welcome email",
			zap.String("user_id", u.ID.String()),
			zap.Error(err),
		)
	}
	return nil
}

// ResendOTP regenerates the verification code for an unverified account.
// Always returns nil — callers must not learn whether the email is registered.
func (s *Service) ResendOTP(ctx context.Context, emailAddr string) error {
	u, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(emailAddr)))
	if err != nil {
		return nil // silent — don't reveal account existence
	}
	if u.EmailVerified {
		return nil
	}

	otp, err := generateOTP()
	if err != nil {
		s.logger.Error("generate otp for resend", zap.Error(err))
		return nil
	}
	if err := s.repo.SetOTP(ctx, u.ID, otp, time.Now().UTC().Add(otpTTL)); err != nil {
		s.logger.Error("persist resent otp", zap.String("user_id", u.ID.String()), zap.Error(err))
		return nil
	}
	s.sendOTPEmail(ctx, u, otp)
	return nil
}

// Login verifies email/password credentials. Unverified accounts are rejected.
func (s *Service) Login(ctx context.Context, emailAddr, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(emailAddr)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if u.PasswordHash == "" {
		return nil, ErrOAuthOnly
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	return u, nil
}

// GetOrCreateFromGoogle resolves a Google login to a local account, creating
// one on first login. Google-asserted emails count as verified. Returns the
// user and true when the account was newly created.
func (s *Service) GetOrCreateFromGoogle(ctx context.Context, emailAddr, name, imageURL string) (*User, bool, error) {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	if emailAddr == "" {
		return nil, false, fmt.Errorf("google profile has no email")
	}

	existing, err := s.repo.GetByEmail(ctx, emailAddr)
	if err == nil {
		if !existing.EmailVerified {
			if markErr := s.repo.MarkVerified(ctx, existing.ID); markErr != nil {
				s.logger.Warn("mark oauth account verified",
					zap.String("user_id", existing.ID.String()),
					zap.Error(markErr),
				)
			} else {
				existing.EmailVerified = true
			}
		}
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("lookup by email: %w", err)
	}

	username, err := s.uniqueUsername(ctx, name, emailAddr)
	if err != nil {
		return nil, false, fmt.Errorf("generate username: %w", err)
	}

	u := &User{
		Username:      username,
		Email:         emailAddr,
		ImageURL:      imageURL,
		Provider:      ProviderGoogle,
		EmailVerified: true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, false, fmt.Errorf("create google user: %w", err)
	}
	return u, true, nil
}

// GetByID retrieves a user by ID.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile renames the account and optionally replaces the avatar.
// An empty image with imageSet=true clears the avatar; imageSet=false leaves
// it untouched.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, username, imageURL string, imageSet bool) (*User, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 {
		return nil, fmt.Errorf("username must be at least 3 characters long")
	}

	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if username != u.Username {
		if _, lookupErr := s.repo.GetByUsername(ctx, username); lookupErr == nil {
			return nil, ErrDuplicateUsername
		} else if !errors.Is(lookupErr, ErrNotFound) {
			return nil, fmt.Errorf("check username: %w", lookupErr)
		}
	}

	if err := s.repo.UpdateProfile(ctx, userID, username, imageURL, imageSet); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, userID)
}

// sendOTPEmail delivers the verification code; failures are logged only.
func (s *Service) sendOTPEmail(ctx context.Context, u *User, otp string) {
	body := fmt.Sprintf(
		"Welcome to RigForge, %s!\n\nYour verification code is: %s\n\nThis code expires in 10 minutes.\n\nIf you didn't create an account with us, please ignore this email.\n",
		u.Username, otp,
	)
	if err := s.mailer.Send(ctx, u.Email, "Verify your email - RigForge", body); err != nil {
		s.logger.Warn("send verification email",
			zap.String("user_id", u.ID.String()),
			zap.Error(err),
		)
	}
}

// uniqueUsername derives a username from the Google display name or email and
// appends a numeric suffix until it is free.
func (s *Service) uniqueUsername(ctx context.Context, name, emailAddr string) (string, error) {
	base := strings.TrimSpace(name)
	if base == "" {
		base = emailAddr
		if at := strings.Index(emailAddr, "@"); at > 0 {
			base = emailAddr[:at]
		}
	}
	if len(base) < 3 {
		base = base + "-user"
	}

	if _, err := s.repo.GetByUsername(ctx, base); errors.Is(err, ErrNotFound) {
		return base, nil
	}
	for i := 2; i <= 9999; i++ {
		candidate := fmt.Sprintf("%s%d", base, i)
		if _, err := s.repo.GetByUsername(ctx, candidate); errors.Is(err, ErrNotFound) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not generate unique username for %q", emailAddr)
}

// generateOTP returns a 6-digit numeric one-time code.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
