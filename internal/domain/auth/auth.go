// Package auth implements authentication and credential issuance: password
// login for customers and admins, bearer token verification, and the admin
// impersonation flow.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/halleyx/storefront-api/internal/domain/user"
)

// Sentinel errors surfaced by the auth service.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrBlocked            = errors.New("account is blocked")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrForbidden          = errors.New("forbidden")
)

// ValidationError indicates malformed registration or login input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SessionKind marks what sort of credential a token represents.
type SessionKind string

const (
	KindSession       SessionKind = "session"
	KindImpersonation SessionKind = "impersonation"
)

// Identity is the authenticated principal attached to each request. For
// impersonation sessions UserID is the impersonated customer and
// ActingAdminID attributes the session to the admin who opened it.
type Identity struct {
	UserID        string
	Role          user.Role
	Kind          SessionKind
	ActingAdminID string
}

// Impersonated reports whether this identity was issued via admin
// impersonation rather than a direct login.
func (id Identity) Impersonated() bool {
	return id.Kind == KindImpersonation
}

type claims struct {
	Role        string `json:"role"`
	Kind        string `json:"kind,omitempty"`
	ActingAdmin string `json:"act,omitempty"`
	jwt.RegisteredClaims
}

// Config holds token issuance parameters.
type Config struct {
	Secret           []byte
	SessionTTL       time.Duration
	ImpersonationTTL time.Duration
}

// Service issues and verifies credentials and performs password login.
type Service struct {
	users user.Repository
	cfg   Config
}

// NewService creates an auth Service backed by the given account repository.
func NewService(users user.Repository, cfg Config) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.ImpersonationTTL <= 0 {
		cfg.ImpersonationTTL = time.Hour
	}
	return &Service{users: users, cfg: cfg}
}

// RegisterInput holds the fields for a new customer account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates an ACTIVE customer account and logs it in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*user.User, string, error) {
	if !strings.Contains(in.Email, "@") {
		return nil, "", &ValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	if len(in.Password) < 8 {
		return nil, "", &ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, "", err
	}

	u := &user.User{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(in.Email),
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         user.RoleCustomer,
		Status:       user.StatusActive,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, "", err
	}

	token, err := s.issue(Identity{UserID: u.ID, Role: u.Role, Kind: KindSession}, s.cfg.SessionTTL)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Login authenticates an email/password pair against accounts of the given
// role. A blocked customer fails with ErrBlocked even when the password is
// correct. Role mismatches surface as ErrInvalidCredentials so the customer
// login endpoint does not reveal which emails belong to admins.
func (s *Service) Login(ctx context.Context, email, password string, role user.Role) (*user.User, string, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", errors.Wrap(err, "lookup account")
	}
	if u.Role != role {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if u.Status == user.StatusBlocked {
		return nil, "", ErrBlocked
	}

	token, err := s.issue(Identity{UserID: u.ID, Role: u.Role, Kind: KindSession}, s.cfg.SessionTTL)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Impersonate issues a short-lived customer-scoped credential on behalf of an
// admin. The token carries the customer's identity plus the acting admin's ID
// and an impersonation marker, so audit trails can attribute actions to the
// admin and the session can never reach admin-only operations.
func (s *Service) Impersonate(ctx context.Context, admin Identity, customerID string) (*user.User, string, error) {
	if admin.Role != user.RoleAdmin || admin.Impersonated() {
		return nil, "", ErrForbidden
	}

	target, err := s.users.GetByID(ctx, customerID)
	if err != nil {
		return nil, "", err
	}
	if target.Role != user.RoleCustomer {
		return nil, "", ErrForbidden
	}
	if target.Status == user.StatusBlocked {
		return nil, "", ErrBlocked
	}

	token, err := s.issue(Identity{
		UserID:        target.ID,
		Role:          user.RoleCustomer,
		Kind:          KindImpersonation,
		ActingAdminID: admin.UserID,
	}, s.cfg.ImpersonationTTL)
	if err != nil {
		return nil, "", err
	}
	return target, token, nil
}

// Verify parses a bearer token and re-checks the account's current status, so
// a customer blocked mid-session loses access on their next request.
func (s *Service) Verify(ctx context.Context, token string) (Identity, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.cfg.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}

	id := Identity{
		UserID:        c.Subject,
		Role:          user.Role(c.Role),
		Kind:          SessionKind(c.Kind),
		ActingAdminID: c.ActingAdmin,
	}
	if id.Kind == "" {
		id.Kind = KindSession
	}

	u, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Identity{}, ErrInvalidToken
		}
		return Identity{}, errors.Wrap(err, "verify account")
	}
	if u.Status == user.StatusBlocked {
		return Identity{}, ErrBlocked
	}
	// The role claim is informational; the account row is authoritative.
	id.Role = u.Role
	return id, nil
}

// HashPassword produces a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(hash), nil
}

func (s *Service) issue(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		Role: string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if id.Kind == KindImpersonation {
		c.Kind = string(KindImpersonation)
		c.ActingAdmin = id.ActingAdminID
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.cfg.Secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return token, nil
}
