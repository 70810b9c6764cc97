package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/yoockh/yoodesk/internal/models"
	pgrepo "github.com/yoockh/yoodesk/internal/repositories/postgres"
	"github.com/yoockh/yoodesk/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	maxUsernameLength = 64
)

func init() {
	// logout revokes by timestamp; second-resolution iat would let a token
	// minted just before logout survive it
	jwt.TimePrecision = time.Millisecond
}

type AuthResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type AuthService interface {
	Register(ctx context.Context, username, password string) (*AuthResult, error)
	Login(ctx context.Context, username, password string) (*AuthResult, error)
	Logout(ctx context.Context, userID string) error
	Refresh(ctx context.Context, userID string) (*AuthResult, error)
	Me(ctx context.Context, userID string) (*models.User, error)
	// Authenticate resolves a bearer token to a user id.
	Authenticate(ctx context.Context, token string) (string, error)
}

type AuthOptions struct {
	Secret     string
	TokenTTL   time.Duration
	BcryptCost int
}

type authService struct {
	users  pgrepo.UserRepository
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

func NewAuthService(users pgrepo.UserRepository, o AuthOptions) AuthService {
	if o.TokenTTL <= 0 {
		o.TokenTTL = 24 * time.Hour
	}
	if o.BcryptCost == 0 {
		o.BcryptCost = bcrypt.DefaultCost
	}
	return &authService{
		users:  users,
		secret: []byte(o.Secret),
		ttl:    o.TokenTTL,
		cost:   o.BcryptCost,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *authService) Register(ctx context.Context, username, password string) (*AuthResult, error) {
	const op = "AuthService.Register"

	username = strings.TrimSpace(username)
	switch {
	case username == "":
		return nil, utils.E(utils.CodeInvalidArgument, op, "username can't be blank", nil)
	case len(username) > maxUsernameLength:
		return nil, utils.E(utils.CodeInvalidArgument, op, "username is too long", nil)
	case len(password) < minPasswordLength:
		return nil, utils.E(utils.CodeInvalidArgument, op, "password is too short", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "password cannot be hashed", err)
	}

	u := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, u, uuid.NewString()); err != nil {
		if errors.Is(err, utils.ErrDuplicate) {
			return nil, utils.E(utils.CodeConflict, op, "username has already been taken", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to create user", err)
	}
	return s.issue(u, op)
}

func (s *authService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	const op = "AuthService.Login"

	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeUnauthorized, op, "invalid username or password", nil)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load user", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, utils.E(utils.CodeUnauthorized, op, "invalid username or password", nil)
	}

	now := s.now()
	if err := s.users.TouchLastActive(ctx, u.ID, now); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to update user", err)
	}
	u.LastActiveAt = &now
	return s.issue(u, op)
}

func (s *authService) Logout(ctx context.Context, userID string) error {
	const op = "AuthService.Logout"

	if err := s.users.RevokeTokens(ctx, userID, s.now()); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to revoke tokens", err)
	}
	return nil
}

func (s *authService) Refresh(ctx context.Context, userID string) (*AuthResult, error) {
	const op = "AuthService.Refresh"

	u, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.issue(u, op)
}

func (s *authService) Me(ctx context.Context, userID string) (*models.User, error) {
	const op = "AuthService.Me"

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeUnauthorized, op, "no session found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load user", err)
	}
	return u, nil
}

func (s *authService) Authenticate(ctx context.Context, raw string) (string, error) {
	const op = "AuthService.Authenticate"

	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuedAt())
	if err != nil || tok == nil || !tok.Valid {
		return "", utils.E(utils.CodeUnauthorized, op, "invalid token", err)
	}
	if claims.Subject == "" || claims.IssuedAt == nil {
		return "", utils.E(utils.CodeUnauthorized, op, "invalid token", nil)
	}

	u, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return "", utils.E(utils.CodeUnauthorized, op, "invalid token", err)
		}
		return "", utils.E(utils.CodeInternal, op, "failed to load user", err)
	}
	if u.JWTRevokedAt != nil && !claims.IssuedAt.Time.After(*u.JWTRevokedAt) {
		return "", utils.E(utils.CodeUnauthorized, op, "token has been revoked", nil)
	}
	return u.ID, nil
}

func (s *authService) issue(u *models.User, op string) (*AuthResult, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   u.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to sign token", err)
	}
	return &AuthResult{User: u, Token: signed}, nil
}
