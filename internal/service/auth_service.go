package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/ceama-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/ceama-enrollment-api/pkg/errors"
)

const (
	tokenTypeBearer = "Bearer"
	tokenLeeway     = 30 * time.Second
)

type staffDirectory interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
}

// AuthConfig configures staff access tokens.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
	Audience          []string
}

// AuthService signs reviewers in and verifies their bearer tokens.
// Only active accounts holding a staff role are accepted.
type AuthService struct {
	users     staffDirectory
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users staffDirectory, audit auditLogger, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 12 * time.Hour
	}
	return &AuthService{
		users:     users,
		audit:     audit,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Login checks the credentials and issues an access token.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	req.Normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid login payload")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordLogin(ctx, nil, req, "unknown_email")
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.recordLogin(ctx, user, req, "bad_password")
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}
	if !user.Active {
		s.recordLogin(ctx, user, req, "inactive")
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "")
	}
	if !user.Role.IsStaff() {
		s.recordLogin(ctx, user, req, "not_staff")
		return nil, appErrors.Clone(appErrors.ErrForbidden, "account has no back-office access")
	}

	issuedAt := s.now()
	token, expiresAt, err := s.sign(user, issuedAt)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to create access token")
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, issuedAt); err != nil {
		s.logger.Warn("failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	}
	s.recordLogin(ctx, user, req, "")

	profile := user.Profile()
	profile.LastLogin = &issuedAt
	return &models.LoginResponse{
		AccessToken: token,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		ExpiresAt:   expiresAt,
		User:        profile,
	}, nil
}

// ValidateToken parses a bearer token and returns its claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(tokenLeeway),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.config.AccessTokenSecret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.WrapAs(err, appErrors.ErrUnauthorized, "token expired")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrUnauthorized, "invalid token")
	}
	if !token.Valid || claims.UserID == "" || !claims.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// Me reloads the signed-in account so deactivation takes effect before the token expires.
func (s *AuthService) Me(ctx context.Context, claims *models.JWTClaims) (*models.StaffProfile, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to fetch user")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "")
	}
	profile := user.Profile()
	return &profile, nil
}

func (s *AuthService) sign(user *models.User, issuedAt time.Time) (string, time.Time, error) {
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		UserID:   user.ID,
		Role:     user.Role,
		Email:    user.Email,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			Audience:  s.config.Audience,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// recordLogin writes a LOGIN entry, or LOGIN_FAILED when reason is set.
func (s *AuthService) recordLogin(ctx context.Context, user *models.User, req models.LoginRequest, reason string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:    models.AuditActionLogin,
		Resource:  models.AuditResourceAuth,
		IPAddress: req.IP,
		UserAgent: req.UserAgent,
	}
	if user != nil {
		id := user.ID
		entry.UserID = &id
		entry.ResourceID = &id
	}
	values := map[string]string{"status": "success"}
	if reason != "" {
		entry.Action = models.AuditActionLoginFailed
		values = map[string]string{"status": "failed", "reason": reason, "email": req.Email}
		s.logger.Info("staff login rejected", zap.String("reason", reason), zap.String("ip", req.IP))
	}
	entry.NewValues, _ = json.Marshal(values)
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record login audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}
