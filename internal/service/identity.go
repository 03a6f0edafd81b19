package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/hash"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
	DefaultResetTTL   = time.Hour

	minPasswordLen = 8
)

// FederatedIdentity is what a verified third-party ID token tells us.
type FederatedIdentity struct {
	Email         string
	Name          string
	EmailVerified bool
}

type IDTokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*FederatedIdentity, error)
}

type IdentityService struct {
	Repo          *repo.GormRepo
	JWTSecret     []byte
	RefreshSecret []byte

	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration

	Notifier ResetNotifier
	Google   IDTokenVerifier
	Now      func() time.Time
}

type LoginResult struct {
	tokens.Pair
	User *models.User
}

func (s *IdentityService) ttl(v, def time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return def
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("%w: email required", ErrValidation)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email", ErrValidation)
	}
	return email, nil
}

func validatePassword(pw string) error {
	if len(pw) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLen)
	}
	if len(pw) > hash.MaxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, hash.MaxPasswordBytes)
	}
	return nil
}

func (s *IdentityService) Register(ctx context.Context, req transport.RegisterRequest) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "identity.register")

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: pwHash,
		IsActive:     true,
		Role:         models.RoleUser,
	}
	created, err := s.Repo.FirstOrCreateByEmail(ctx, user)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	if !created {
		l.Warn("register_error", "status", 409, "reason", "email already registered")
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	}
	return user, nil
}

func (s *IdentityService) Login(ctx context.Context, req transport.LoginRequest) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "identity.login")

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password required", ErrValidation)
	}

	user, err := s.Repo.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "unknown email")
			return nil, fmt.Errorf("%w: incorrect email or password", ErrUnauthorized)
		}
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		l.Warn("login_failed", "status", 401, "reason", "wrong password", "user_id", user.ID)
		return nil, fmt.Errorf("%w: incorrect email or password", ErrUnauthorized)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account disabled", ErrUnauthorized)
	}

	return s.issue(ctx, user)
}

func (s *IdentityService) issue(ctx context.Context, user *models.User) (*LoginResult, error) {
	now := clock(s.Now)
	subject := strconv.FormatUint(uint64(user.ID), 10)

	accessExp := now.Add(s.ttl(s.AccessTTL, DefaultAccessTTL))
	access, err := tokens.NewAccessToken(s.JWTSecret, subject, user.Role, accessExp)
	if err != nil {
		return nil, err
	}

	refreshExp := now.Add(s.ttl(s.RefreshTTL, DefaultRefreshTTL))
	refresh, jti, err := tokens.NewRefreshToken(s.RefreshSecret, subject, refreshExp)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.AddRefreshToken(ctx, user.ID, refresh, jti, refreshExp); err != nil {
		return nil, err
	}

	return &LoginResult{
		Pair: tokens.Pair{
			AccessToken:  access,
			RefreshToken: refresh,
			AccessExp:    accessExp,
			RefreshExp:   refreshExp,
		},
		User: user,
	}, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "identity.refresh")

	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
	}

	user, err := s.Repo.UserByID(ctx, uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: unknown user", ErrUnauthorized)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account disabled", ErrUnauthorized)
	}

	now := clock(s.Now)
	subject := claims.Subject

	accessExp := now.Add(s.ttl(s.AccessTTL, DefaultAccessTTL))
	access, err := tokens.NewAccessToken(s.JWTSecret, subject, user.Role, accessExp)
	if err != nil {
		return nil, err
	}
	refreshExp := now.Add(s.ttl(s.RefreshTTL, DefaultRefreshTTL))
	refresh, jti, err := tokens.NewRefreshToken(s.RefreshSecret, subject, refreshExp)
	if err != nil {
		return nil, err
	}

	next := models.RefreshToken{
		Token:     tokens.Sha256Hex(refresh),
		UserID:    user.ID,
		JTI:       jti,
		ExpiresAt: refreshExp,
	}
	if err := s.Repo.RotateRefreshToken(ctx, claims.ID, now, next); err != nil {
		if errors.Is(err, repo.ErrRefreshRevoked) || errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("refresh_failed", "status", 401, "reason", "token expired, revoked or unknown", "user_id", user.ID)
			return nil, fmt.Errorf("%w: refresh token expired or revoked", ErrUnauthorized)
		}
		return nil, err
	}

	return &LoginResult{
		Pair: tokens.Pair{
			AccessToken:  access,
			RefreshToken: refresh,
			AccessExp:    accessExp,
			RefreshExp:   refreshExp,
		},
		User: user,
	}, nil
}

// RefreshPair satisfies the auth middleware's Refresher.
func (s *IdentityService) RefreshPair(ctx context.Context, refreshToken string) (*tokens.Pair, error) {
	res, err := s.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return &res.Pair, nil
}

func (s *IdentityService) LogOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.Repo.RevokeRefreshToken(ctx, refreshToken)
}

func (s *IdentityService) UserByID(ctx context.Context, id uint) (*models.User, error) {
	u, err := s.Repo.UserByID(ctx, id)
	return u, storeErr(err, "user")
}

func (s *IdentityService) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := s.Repo.UserByEmail(ctx, email)
	return u, storeErr(err, "user")
}

func (s *IdentityService) ListUsers(ctx context.Context, offset, limit int) (int64, []models.User, error) {
	return s.Repo.ListUsers(ctx, offset, limit)
}

// ForgotPassword issues a reset token when the email is known. Unknown emails
// are not reported to the caller.
func (s *IdentityService) ForgotPassword(ctx context.Context, email string) error {
	l := logging.FromContext(ctx).With("svc", "identity.forgot_password")

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("%w: email required", ErrValidation)
	}

	user, err := s.Repo.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Info("reset_skipped", "reason", "unknown email")
			return nil
		}
		return err
	}

	token, err := newResetToken()
	if err != nil {
		return err
	}
	expires := clock(s.Now).Add(s.ttl(s.ResetTTL, DefaultResetTTL))
	if err := s.Repo.SetResetToken(ctx, user.ID, tokens.Sha256Hex(token), expires); err != nil {
		return err
	}

	if s.Notifier != nil {
		s.Notifier.PasswordReset(ctx, user, token)
	}
	l.Info("reset_token_issued", "user_id", user.ID)
	return nil
}

// ResetPassword consumes a reset token. The token is valid strictly before its
// expiry instant and only once.
func (s *IdentityService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	invalid := fmt.Errorf("%w: invalid or expired token", ErrNotFound)
	if token == "" {
		return invalid
	}

	pwHash, err := hash.HashPassword(newPassword)
	if err != nil {
		return err
	}

	now := clock(s.Now)
	return s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		user, err := tx.UserByResetToken(ctx, tokens.Sha256Hex(token))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid
			}
			return err
		}
		if user.ResetTokenExpires == nil || !now.Before(*user.ResetTokenExpires) {
			return invalid
		}
		if err := tx.ConsumeResetToken(ctx, user.ID, pwHash); err != nil {
			return err
		}
		return tx.RevokeUserRefreshTokens(ctx, user.ID)
	})
}

func (s *IdentityService) FederatedLogin(ctx context.Context, idToken string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "identity.federated_login")

	if s.Google == nil {
		return nil, fmt.Errorf("%w: federated login is not configured", ErrUnauthorized)
	}
	if strings.TrimSpace(idToken) == "" {
		return nil, fmt.Errorf("%w: token required", ErrValidation)
	}

	ident, err := s.Google.Verify(ctx, idToken)
	if err != nil {
		l.Warn("federated_login_failed", "status", 401, "reason", "token rejected", "error", err)
		return nil, fmt.Errorf("%w: invalid google token", ErrUnauthorized)
	}
	email := strings.ToLower(strings.TrimSpace(ident.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: email not found in google token", ErrValidation)
	}
	if !ident.EmailVerified {
		return nil, fmt.Errorf("%w: google email not verified", ErrUnauthorized)
	}

	name := strings.TrimSpace(ident.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	user := &models.User{Name: name, Email: email, IsActive: true, Role: models.RoleUser}
	created, err := s.Repo.FirstOrCreateByEmail(ctx, user)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	if created {
		l.Info("federated_user_created", "user_id", user.ID)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: account disabled", ErrUnauthorized)
	}
	return s.issue(ctx, user)
}

// EnsureAdmin creates an admin account or promotes an existing one and sets its password.
func (s *IdentityService) EnsureAdmin(ctx context.Context, email, password string) (*models.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         strings.SplitN(email, "@", 2)[0],
		Email:        email,
		PasswordHash: pwHash,
		IsActive:     true,
		Role:         models.RoleAdmin,
	}
	created, err := s.Repo.FirstOrCreateByEmail(ctx, user)
	if err != nil {
		return nil, err
	}
	if !created {
		if err := s.Repo.UpdateUserFields(ctx, user.ID, map[string]any{
			"role":          models.RoleAdmin,
			"password_hash": pwHash,
			"is_active":     true,
		}); err != nil {
			return nil, err
		}
		user.Role = models.RoleAdmin
	}
	return user, nil
}

func newResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
