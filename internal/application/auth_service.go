package application

import (
	"errors"
	"fmt"
	"time"

	"vendhub-portal-api/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Sentinel errors handlers map to HTTP statuses.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotConfigured      = errors.New("server configuration error")
)

const tokenTTL = 24 * time.Hour

// AuthService is the back-office credential gate. It validates the single
// operator credential pair and issues short-lived signed admin tokens. It is
// explicitly not a multi-user identity system.
type AuthService struct {
	adminEmail    string
	adminPassword string
	jwtSecret     []byte
	now           func() time.Time
	logger        zerolog.Logger
}

// NewAuthService creates the credential gate.
func NewAuthService(adminEmail, adminPassword, jwtSecret string, logger zerolog.Logger) *AuthService {
	return &AuthService{
		adminEmail:    adminEmail,
		adminPassword: adminPassword,
		jwtSecret:     []byte(jwtSecret),
		now:           time.Now,
		logger:        logger,
	}
}

// Login checks the credential pair by exact string equality and issues a
// signed admin token on success. The failure message never distinguishes
// which field was wrong.
func (s *AuthService) Login(email, password string) (string, *domain.AdminUser, error) {
	if s.adminEmail == "" || s.adminPassword == "" || len(s.jwtSecret) == 0 {
		s.logger.Error().Msg("Missing admin configuration")
		return "", nil, ErrNotConfigured
	}

	if email != s.adminEmail || password != s.adminPassword {
		return "", nil, ErrInvalidCredentials
	}

	now := s.now()
	claims := &domain.AdminClaims{
		Email: s.adminEmail,
		Role:  domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	s.logger.Info().Str("email", email).Msg("Admin login succeeded")
	return signed, &domain.AdminUser{Email: s.adminEmail, Role: domain.RoleAdmin}, nil
}

// VerifyToken validates a bearer token's signature, expiry and role claim.
// Any decode failure is reported as an error, never propagated as a panic or
// distinguished for the caller.
func (s *AuthService) VerifyToken(tokenString string) (*domain.AdminClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &domain.AdminClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*domain.AdminClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if !claims.IsAdmin() {
		return nil, errors.New("token does not carry the admin role")
	}
	return claims, nil
}
