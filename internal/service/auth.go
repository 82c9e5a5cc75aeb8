package service

import (
	"context"
	"errors"
	"time"

	"sweetshop/internal/apperror"
	"sweetshop/internal/model"
	"sweetshop/internal/repository"
	"sweetshop/pkg/jwtutil"
	"sweetshop/pkg/logger"
	"sweetshop/prometheus"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Session is returned by a successful login
type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Profile   *model.Profile `json:"profile"`
}

// AuthService registers accounts, issues and revokes tokens and resolves
// bearer tokens into identities
type AuthService struct {
	users      repository.UserRepository
	tokens     repository.TokenRepository
	jwt        *jwtutil.JWTUtil
	bcryptCost int
	// dummyHash is compared against when the email is unknown so both
	// failure paths cost one bcrypt comparison
	dummyHash []byte
}

// NewAuthService creates the auth service
func NewAuthService(users repository.UserRepository, tokens repository.TokenRepository, jwt *jwtutil.JWTUtil, bcryptCost int) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("sweetshop-dummy-password"), bcryptCost)
	return &AuthService{
		users:      users,
		tokens:     tokens,
		jwt:        jwt,
		bcryptCost: bcryptCost,
		dummyHash:  dummy,
	}
}

// Register creates an account with role user. Email must already be normalized.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*model.Profile, error) {
	log := logger.FromStdContext(ctx)
	prometheus.RecordAuthAttempt("register")

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	user := &model.User{Email: email, PasswordHash: string(hash)}
	profile := &model.Profile{Name: name, Role: model.RoleUser}
	if err := s.users.CreateWithProfile(ctx, user, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			prometheus.RecordAuthError("email_taken")
			return nil, apperror.Conflict("an account with this email already exists")
		}
		return nil, apperror.InternalError(err)
	}

	log.Info("Account registered", zap.String("user_id", user.ID.String()))
	return profile, nil
}

// Login verifies credentials and issues a token. Unknown email and wrong
// password produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	log := logger.FromStdContext(ctx)
	prometheus.RecordAuthAttempt("login")

	invalid := apperror.Unauthorized("invalid email or password")

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.InternalError(err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		prometheus.RecordAuthError("invalid_credentials")
		return nil, invalid
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		prometheus.RecordAuthError("invalid_credentials")
		log.Warn("Login with wrong password", zap.String("user_id", user.ID.String()))
		return nil, invalid
	}

	profile, err := s.users.GetProfile(ctx, user.ID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	token, claims, err := s.jwt.GenerateToken(user.ID, user.Email, string(profile.Role))
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	log.Info("User logged in", zap.String("user_id", user.ID.String()))
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, Profile: profile}, nil
}

// Logout revokes the token the identity was resolved from
func (s *AuthService) Logout(ctx context.Context, id Identity) error {
	if err := id.RequireUser(); err != nil {
		return err
	}
	prometheus.RecordAuthAttempt("logout")

	if id.TokenID == "" {
		return apperror.Unauthorized("no token to revoke")
	}
	if err := s.tokens.Revoke(ctx, id.TokenID, id.TokenExpiry); err != nil {
		return apperror.InternalError(err)
	}

	logger.FromStdContext(ctx).Info("Token revoked", zap.String("user_id", id.UserID().String()))
	return nil
}

// Resolve turns a bearer token into an identity. The role comes from the
// stored profile, never from the token.
func (s *AuthService) Resolve(ctx context.Context, token string) (Identity, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		prometheus.RecordAuthError("invalid_token")
		logger.FromStdContext(ctx).Debug("Rejected bearer token", zap.Error(err))
		return AnonymousIdentity, apperror.Unauthorized("invalid or expired token")
	}

	revoked, err := s.tokens.IsRevoked(ctx, claims.ID)
	if err != nil {
		return AnonymousIdentity, apperror.InternalError(err)
	}
	if revoked {
		prometheus.RecordAuthError("revoked_token")
		return AnonymousIdentity, apperror.Unauthorized("token has been revoked")
	}

	// Validated tokens always carry a UUID subject
	userID, _ := claims.UserID()
	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			prometheus.RecordAuthError("unknown_account")
			return AnonymousIdentity, apperror.Unauthorized("account no longer exists")
		}
		return AnonymousIdentity, apperror.InternalError(err)
	}

	id := IdentityFor(profile)
	id.TokenID = claims.ID
	id.TokenExpiry = claims.ExpiresAt.Time
	return id, nil
}

// EnsureAdmin creates the configured administrator when missing and grants
// the admin role. It is the only path that elevates a role.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, name string) error {
	log := logger.FromStdContext(ctx)

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
		if err != nil {
			return err
		}
		user = &model.User{Email: email, PasswordHash: string(hash)}
		if err := s.users.CreateWithProfile(ctx, user, &model.Profile{Name: name, Role: model.RoleAdmin}); err != nil {
			return err
		}
		log.Info("Admin account created", zap.String("user_id", user.ID.String()))
		return nil
	case err != nil:
		return err
	}

	if err := s.users.SetRole(ctx, user.ID, model.RoleAdmin); err != nil {
		return err
	}
	log.Info("Admin role ensured", zap.String("user_id", user.ID.String()))
	return nil
}

// PurgeRevoked drops revocations of tokens that have expired anyway
func (s *AuthService) PurgeRevoked(ctx context.Context) (int64, error) {
	return s.tokens.PurgeExpired(ctx, time.Now())
}
