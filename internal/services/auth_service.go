package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
	"storefront/internal/repos"
	"storefront/internal/validate"
)

var (
	ErrBadCreds = errors.New("invalid email or password")
	ErrBadToken = errors.New("invalid or expired token")
)

type AuthService struct {
	Users  *repos.UserRepo
	Audit  *AuditService
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func NewAuthService(users *repos.UserRepo, audit *AuditService, secret string, ttl time.Duration) *AuthService {
	return &AuthService{Users: users, Audit: audit, Secret: []byte(secret), TTL: ttl}
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type RegisterInput struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email, ok := validate.Email(in.Email)
	if !ok {
		return nil, domain.Invalid("email", "must be a valid email address")
	}
	first, ok := validate.Name(in.FirstName)
	if !ok {
		return nil, domain.Invalid("first_name", "is required (max 50 characters)")
	}
	last, ok := validate.OptionalName(in.LastName)
	if !ok {
		return nil, domain.Invalid("last_name", "must be at most 50 characters")
	}
	if !validate.Password(in.Password) {
		return nil, domain.Invalid("password", "must be 8-64 characters with upper, lower, digit and symbol")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		ID:        uuid.NewString(),
		Email:     email,
		FirstName: first,
		LastName:  last,
		Hash:      string(h),
		Role:      domain.RoleUser,
	}
	if err := s.Users.Create(u); err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, domain.ActionRegister, email, "New account registered", map[string]any{"user_id": u.ID})
	return u, nil
}

// Login checks credentials, binds sid to the user and returns a bearer token
// for API clients.
func (s *AuthService) Login(ctx context.Context, sid, email, password string) (*domain.User, string, error) {
	u, err := s.Users.ByEmail(email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", ErrBadCreds
		}
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, "", ErrBadCreds
	}
	if err := s.Users.BindSession(sid, u.ID); err != nil {
		return nil, "", err
	}
	tok, err := s.IssueToken(u)
	if err != nil {
		return nil, "", err
	}
	s.Audit.Record(ctx, domain.ActionLogin, u.Email, "Login", map[string]any{"user_id": u.ID})
	return u, tok, nil
}

// Logout drops the session binding. Bearer tokens simply expire.
func (s *AuthService) Logout(ctx context.Context, sid string, u *domain.User) error {
	if sid != "" {
		if err := s.Users.UnbindSession(sid); err != nil {
			return err
		}
	}
	s.Audit.Record(ctx, domain.ActionLogout, actorEmail(u), "Logout", nil)
	return nil
}

func (s *AuthService) CurrentUser(sid string) (*domain.User, error) {
	return s.Users.SessionUser(sid)
}

func (s *AuthService) IssueToken(u *domain.User) (string, error) {
	now := clock(s.Now).now()
	claims := Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
}

// UserFromToken verifies an HS256 token and loads its subject. The role is
// taken from the database, not from the claims.
func (s *AuthService) UserFromToken(token string) (*domain.User, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(clock(s.Now).now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	u, err := s.Users.ByID(claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrBadToken
		}
		return nil, err
	}
	return u, nil
}
