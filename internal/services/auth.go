package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pubfeed/apiserver/internal/auth"
	"github.com/pubfeed/apiserver/internal/store"
	"github.com/pubfeed/apiserver/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	// TokenTTL is the fixed session token lifetime.
	TokenTTL = time.Hour

	bcryptCost = 12
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateStatus(ctx context.Context, id, status string) (types.User, error)
	AddPost(ctx context.Context, userID, postID string) error
	RemovePost(ctx context.Context, userID, postID string) error
}

// TokenClaims are embedded in issued session tokens.
type TokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AuthService registers and authenticates users and manages their profile.
type AuthService struct {
	users  UserRepository
	secret []byte
	log    *logrus.Logger
}

func NewAuthService(users UserRepository, jwtSecret string, log *logrus.Logger) *AuthService {
	return &AuthService{
		users:  users,
		secret: []byte(jwtSecret),
		log:    log,
	}
}

// RegisterInput carries the registration fields.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// Register creates a new account. The email must not already be taken;
// the pre-check is not atomic, so the unique index on email backstops
// concurrent registrations.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (types.UserPublic, error) {
	violations := ValidateEmail(input.Email)
	violations = append(violations, ValidatePassword(input.Password)...)
	if len(violations) > 0 {
		return types.UserPublic{}, ErrValidation(violations)
	}

	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return types.UserPublic{}, ErrConflict("user exists already")
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.UserPublic{}, ErrInternal(fmt.Errorf("check existing user: %w", err))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return types.UserPublic{}, ErrInternal(fmt.Errorf("hash password: %w", err))
	}

	user, err := s.users.Create(ctx, types.User{
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: string(hashed),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.UserPublic{}, ErrConflict("user exists already")
		}
		return types.UserPublic{}, ErrInternal(fmt.Errorf("create user: %w", err))
	}

	s.log.WithField("email", user.Email).Info("user registered")
	return user.Public(), nil
}

// LoginResult is the outcome of a successful authentication.
type LoginResult struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// Login verifies credentials and issues a signed, time-limited session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials("user not found")
		}
		return LoginResult{}, ErrInternal(fmt.Errorf("find user: %w", err))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, ErrInvalidCredentials("password is incorrect")
	}

	token, err := s.issueToken(user)
	if err != nil {
		return LoginResult{}, ErrInternal(fmt.Errorf("issue token: %w", err))
	}

	s.log.WithField("email", user.Email).Info("user logged in")
	return LoginResult{Token: token, UserID: user.ID.Hex()}, nil
}

// CurrentUser returns the authenticated caller's profile.
func (s *AuthService) CurrentUser(ctx context.Context) (types.UserPublic, error) {
	identity := auth.IdentityFromContext(ctx)
	if !identity.Authenticated {
		return types.UserPublic{}, ErrUnauthenticated()
	}

	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidID) {
			return types.UserPublic{}, ErrNotFound("no user found")
		}
		return types.UserPublic{}, ErrInternal(fmt.Errorf("load user: %w", err))
	}
	return user.Public(), nil
}

// UpdateStatus replaces the caller's status line.
func (s *AuthService) UpdateStatus(ctx context.Context, status string) (types.UserPublic, error) {
	identity := auth.IdentityFromContext(ctx)
	if !identity.Authenticated {
		return types.UserPublic{}, ErrUnauthenticated()
	}

	user, err := s.users.UpdateStatus(ctx, identity.UserID, status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidID) {
			return types.UserPublic{}, ErrNotFound("no user found")
		}
		return types.UserPublic{}, ErrInternal(fmt.Errorf("update status: %w", err))
	}
	return user.Public(), nil
}

// VerifyToken parses a session token and returns the embedded user id.
func (s *AuthService) VerifyToken(tokenString string) (string, error) {
	claims := TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}

func (s *AuthService) issueToken(user types.User) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}
