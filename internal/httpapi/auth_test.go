package httpapi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"shopstack/backend/internal/domain"
	"shopstack/backend/internal/store"
)

type userStoreStub struct {
	mu       sync.Mutex
	users    map[string]domain.UserAccount
	profiles map[string]domain.Profile
	updates  int
	// failNext, when set, is returned by the next CreateAccount call.
	failNext error
}

func newUserStoreStub() *userStoreStub {
	return &userStoreStub{
		users:    make(map[string]domain.UserAccount),
		profiles: make(map[string]domain.Profile),
	}
}

func (s *userStoreStub) CreateAccount(_ context.Context, user domain.UserAccount, profile domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failNext; err != nil {
		s.failNext = nil
		return err
	}
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return store.ErrDuplicate
		}
	}
	s.users[user.ID] = user
	s.profiles[profile.UserID] = profile
	return nil
}

func (s *userStoreStub) GetUserByEmail(_ context.Context, email string) (domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return domain.UserAccount{}, store.ErrNotFound
}

func (s *userStoreStub) GetUserByID(_ context.Context, userID string) (domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.UserAccount{}, store.ErrNotFound
	}
	return user, nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, userID string, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[userID]
	user.PasswordHash = passwordHash
	s.users[userID] = user
	s.updates++
	return nil
}

func (s *userStoreStub) GetProfile(_ context.Context, userID string) (domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return domain.Profile{}, store.ErrNotFound
	}
	return profile, nil
}

func TestSignupStoresPasswordHashAndIssuesToken(t *testing.T) {
	users := newUserStoreStub()
	manager := NewAuthManager("test-secret", time.Hour, users)
	ctx := context.Background()

	resp, err := manager.Signup(ctx, domain.SignupRequest{
		Email:    "  Ada@Shop.Test ",
		Password: "pass1234",
		FullName: "Ada",
	})
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if resp.Profile.Email != "ada@shop.test" || resp.Profile.ShopID != "" {
		t.Fatalf("unexpected profile %+v", resp.Profile)
	}

	stored, err := users.GetUserByEmail(ctx, "ada@shop.test")
	if err != nil {
		t.Fatalf("expected user to be saved: %v", err)
	}
	if stored.PasswordHash == "pass1234" || !strings.HasPrefix(stored.PasswordHash, "$2") {
		t.Fatalf("expected bcrypt hash, got %s", stored.PasswordHash)
	}

	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.UserID != stored.ID || actor.Email != "ada@shop.test" {
		t.Fatalf("unexpected actor %+v", actor)
	}

	if _, err := manager.Login(ctx, domain.LoginRequest{Email: "ADA@shop.test", Password: "pass1234"}); err != nil {
		t.Fatalf("login after signup failed: %v", err)
	}
}

func TestSignupValidation(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, newUserStoreStub())
	ctx := context.Background()

	cases := []domain.SignupRequest{
		{Email: "not-an-email", Password: "pass1234", FullName: "X"},
		{Email: "x@shop.test", Password: "123", FullName: "X"},
		{Email: "x@shop.test", Password: "pass1234", FullName: "  "},
	}
	for _, req := range cases {
		if _, err := manager.Signup(ctx, req); !errors.Is(err, store.ErrInvalidInput) {
			t.Fatalf("%+v: expected invalid input, got %v", req, err)
		}
	}

	if _, err := manager.Signup(ctx, domain.SignupRequest{Email: "x@shop.test", Password: "pass1234", FullName: "X"}); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if _, err := manager.Signup(ctx, domain.SignupRequest{Email: "x@shop.test", Password: "pass5678", FullName: "Y"}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected duplicate email to be rejected, got %v", err)
	}
}

func TestLoginRejectsUnknownAndWrongPassword(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, newUserStoreStub())
	ctx := context.Background()

	if _, err := manager.Signup(ctx, domain.SignupRequest{Email: "b@shop.test", Password: "pass1234", FullName: "B"}); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if _, err := manager.Login(ctx, domain.LoginRequest{Email: "b@shop.test", Password: "nope1234"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := manager.Login(ctx, domain.LoginRequest{Email: "ghost@shop.test", Password: "pass1234"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown email, got %v", err)
	}
}

func TestChangePasswordRequiresCurrentPassword(t *testing.T) {
	users := newUserStoreStub()
	manager := NewAuthManager("test-secret", time.Hour, users)
	ctx := context.Background()

	resp, err := manager.Signup(ctx, domain.SignupRequest{Email: "c@shop.test", Password: "pass1234", FullName: "C"})
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	actor := domain.Actor{UserID: resp.Profile.UserID, Email: resp.Profile.Email}

	err = manager.ChangePassword(ctx, actor, domain.PasswordChangeRequest{CurrentPassword: "wrong", NewPassword: "newpass99"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if users.updates != 0 {
		t.Fatalf("expected no password update")
	}

	if err := manager.ChangePassword(ctx, actor, domain.PasswordChangeRequest{CurrentPassword: "pass1234", NewPassword: "newpass99"}); err != nil {
		t.Fatalf("change password failed: %v", err)
	}
	if _, err := manager.Login(ctx, domain.LoginRequest{Email: "c@shop.test", Password: "pass1234"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password to stop working, got %v", err)
	}
	if _, err := manager.Login(ctx, domain.LoginRequest{Email: "c@shop.test", Password: "newpass99"}); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestParseTokenRejectsForeignSecretAndExpiry(t *testing.T) {
	users := newUserStoreStub()
	issuer := NewAuthManager("secret-one", time.Hour, users)
	verifier := NewAuthManager("secret-two", time.Hour, users)

	token, err := issuer.sign("user-1", "u@shop.test", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := verifier.ParseToken(token); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}

	expired, err := issuer.sign("user-1", "u@shop.test", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := issuer.ParseToken(expired); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestPasswordLongerThanBcryptLimitIsInvalidInput(t *testing.T) {
	users := newUserStoreStub()
	manager := NewAuthManager("test-secret", time.Hour, users)
	ctx := context.Background()
	tooLong := strings.Repeat("p", 73)

	_, err := manager.Signup(ctx, domain.SignupRequest{Email: "long@shop.test", Password: tooLong, FullName: "Long"})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input for 73-byte password, got %v", err)
	}
	if _, err := users.GetUserByEmail(ctx, "long@shop.test"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected no account to be stored, got %v", err)
	}

	if _, err := manager.Signup(ctx, domain.SignupRequest{Email: "long@shop.test", Password: strings.Repeat("p", 72), FullName: "Long"}); err != nil {
		t.Fatalf("72-byte password should be accepted, got %v", err)
	}
	user, err := users.GetUserByEmail(ctx, "long@shop.test")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	actor := domain.Actor{UserID: user.ID, Email: user.Email}
	err = manager.ChangePassword(ctx, actor, domain.PasswordChangeRequest{CurrentPassword: strings.Repeat("p", 72), NewPassword: tooLong})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input when changing to a 73-byte password, got %v", err)
	}
}

func TestSignupFailureLeavesEmailAvailable(t *testing.T) {
	users := newUserStoreStub()
	users.failNext = store.ErrUnavailable
	manager := NewAuthManager("test-secret", time.Hour, users)
	ctx := context.Background()
	req := domain.SignupRequest{Email: "retry@shop.test", Password: "pass1234", FullName: "Retry"}

	if _, err := manager.Signup(ctx, req); !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if _, err := users.GetUserByEmail(ctx, "retry@shop.test"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected failed signup to store nothing, got %v", err)
	}

	if _, err := manager.Signup(ctx, req); err != nil {
		t.Fatalf("retry after failed signup: %v", err)
	}
	if _, err := manager.Login(ctx, domain.LoginRequest{Email: req.Email, Password: req.Password}); err != nil {
		t.Fatalf("login after retried signup: %v", err)
	}
}
