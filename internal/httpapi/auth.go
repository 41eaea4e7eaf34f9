package httpapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"shopstack/backend/internal/domain"
	"shopstack/backend/internal/store"
	"shopstack/backend/internal/xid"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

const (
	minPasswordLength = 6
	// bcrypt only reads the first 72 bytes and rejects longer input.
	maxPasswordBytes = 72
)

type AuthManager struct {
	secret    []byte
	tokenTTL  time.Duration
	userStore UserStore
}

type UserStore interface {
	CreateAccount(ctx context.Context, user domain.UserAccount, profile domain.Profile) error
	GetUserByEmail(ctx context.Context, email string) (domain.UserAccount, error)
	GetUserByID(ctx context.Context, userID string) (domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, userID string, passwordHash string) error
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)
}

type shopClaims struct {
	jwtlib.RegisteredClaims
	Email string `json:"email"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, userStore UserStore) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}

	return &AuthManager{
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
		userStore: userStore,
	}
}

// Signup registers an account with its profile and signs the new user in.
func (a *AuthManager) Signup(ctx context.Context, req domain.SignupRequest) (domain.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !looksLikeEmail(email) {
		return domain.LoginResponse{}, fmt.Errorf("%w: a valid email is required", store.ErrInvalidInput)
	}
	if err := checkPasswordLength(req.Password); err != nil {
		return domain.LoginResponse{}, err
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return domain.LoginResponse{}, fmt.Errorf("%w: full name is required", store.ErrInvalidInput)
	}

	passwordHash, err := hashPassword(req.Password)
	if err != nil {
		return domain.LoginResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := domain.UserAccount{
		ID:           xid.New("user"),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}
	profile := domain.Profile{
		UserID:    user.ID,
		Email:     email,
		FullName:  fullName,
		CreatedAt: now,
	}
	if err := a.userStore.CreateAccount(ctx, user, profile); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.LoginResponse{}, fmt.Errorf("%w: email is already registered", store.ErrDuplicate)
		}
		return domain.LoginResponse{}, err
	}

	return a.issue(user, profile)
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	user, err := a.userStore.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginResponse{}, ErrInvalidCredentials
		}
		return domain.LoginResponse{}, err
	}
	if !verifyPassword(user.PasswordHash, req.Password) {
		return domain.LoginResponse{}, ErrInvalidCredentials
	}

	profile, err := a.userStore.GetProfile(ctx, user.ID)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return a.issue(user, profile)
}

func (a *AuthManager) ChangePassword(ctx context.Context, actor domain.Actor, req domain.PasswordChangeRequest) error {
	user, err := a.userStore.GetUserByID(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if !verifyPassword(user.PasswordHash, req.CurrentPassword) {
		return ErrInvalidCredentials
	}
	if err := checkPasswordLength(req.NewPassword); err != nil {
		return err
	}

	passwordHash, err := hashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return a.userStore.UpdateUserPassword(ctx, user.ID, passwordHash)
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &shopClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{UserID: sub, Email: claims.Email}, nil
}

func (a *AuthManager) issue(user domain.UserAccount, profile domain.Profile) (domain.LoginResponse, error) {
	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(user.ID, user.Email, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return domain.LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
		Profile:     profile,
	}, nil
}

func (a *AuthManager) sign(userID, email string, expiresAt time.Time) (string, error) {
	claims := shopClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "shopstack",
		},
		Email: email,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func checkPasswordLength(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", store.ErrInvalidInput, minPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", store.ErrInvalidInput, maxPasswordBytes)
	}
	return nil
}

func looksLikeEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n")
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
