package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ternarybob/arbor"
	"golang.org/x/crypto/bcrypt"

	"github.com/sentinelai/sentinel/internal/common"
	"github.com/sentinelai/sentinel/internal/interfaces"
	"github.com/sentinelai/sentinel/internal/models"
)

// ErrInvalidCredentials is returned for unknown emails and wrong secrets
// alike, so login failures do not leak which one it was.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidToken is returned for expired, malformed, or mis-signed tokens
var ErrInvalidToken = errors.New("invalid token")

// Claims is the JWT payload minted at login
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Service authenticates principals and derives their job visibility scope
type Service struct {
	users    interfaces.UserStorage
	secret   []byte
	tokenTTL time.Duration
	logger   arbor.ILogger
}

// NewService creates an auth service from configuration
func NewService(users interfaces.UserStorage, cfg *common.Config, logger arbor.ILogger) (*Service, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth jwt_secret is required")
	}
	return &Service{
		users:    users,
		secret:   []byte(cfg.Auth.JWTSecret),
		tokenTTL: common.ParseDurationOr(cfg.Auth.TokenTTL, 12*time.Hour),
		logger:   logger,
	}, nil
}

// Login verifies the email/secret pair and mints a bearer token
func (s *Service) Login(ctx context.Context, email, secret string) (string, *models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.SecretHash), []byte(secret)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now()
	claims := Claims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("User authenticated")
	return token, user, nil
}

// Verify validates a bearer token and loads its principal
func (s *Service) Verify(ctx context.Context, token string) (*models.User, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

// ScopeFor derives the job visibility scope for a principal:
// admins see everything, managers see their own jobs plus those of their
// analysts, analysts see only their own.
func (s *Service) ScopeFor(ctx context.Context, user *models.User) (*interfaces.JobScope, error) {
	switch user.Role {
	case models.RoleAdmin:
		return &interfaces.JobScope{}, nil

	case models.RoleManager:
		analysts, err := s.users.ListAnalystsBySupervisor(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve supervised analysts: %w", err)
		}
		owners := make([]string, 0, len(analysts)+1)
		owners = append(owners, user.ID)
		for _, analyst := range analysts {
			owners = append(owners, analyst.ID)
		}
		// The manager's ID is the supervisor component of both their own
		// job IDs and their analysts', so one prefix covers the team
		return &interfaces.JobScope{Prefix: user.ID + "/", OwnerIDs: owners}, nil

	case models.RoleAnalyst:
		supervisor := user.SupervisorID
		if supervisor == "" {
			supervisor = user.ID
		}
		return &interfaces.JobScope{
			Prefix:   supervisor + "/" + user.ID + "/",
			OwnerIDs: []string{user.ID},
		}, nil

	default:
		return nil, fmt.Errorf("unknown role: %s", user.Role)
	}
}

// JobIDFor mints a hierarchical job ID owned by the principal
func (s *Service) JobIDFor(user *models.User) string {
	return common.NewJobID(user.SupervisorID, user.ID)
}
