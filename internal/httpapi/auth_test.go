package httpapi

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"servisaja/backend/internal/domain"
)

type userStoreStub struct {
	mu      sync.Mutex
	users   map[string]domain.UserAccount
	updates int
}

func (s *userStoreStub) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[string]domain.UserAccount)
	}
	s.users[user.Username] = user
	return nil
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	user.Password = password
	s.users[username] = user
	s.updates++
	return nil
}

func adminStore() *userStoreStub {
	return &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {
				Username:  "admin",
				Password:  "admin123",
				Role:      "admin",
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
	}
}

func TestAuthManagerUpgradesLegacyPlainPassword(t *testing.T) {
	store := adminStore()

	manager := NewAuthManager("test-secret", time.Hour, store)
	if _, err := manager.Login(domain.LoginRequest{Username: "admin", Password: "admin123"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	users, err := store.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	if users[0].Password == "admin123" {
		t.Fatalf("expected password to be upgraded from plain-text")
	}
	if !strings.HasPrefix(users[0].Password, "$2") {
		t.Fatalf("expected bcrypt password hash, got %s", users[0].Password)
	}
}

func TestLoginRejectsWrongPasswordAndInactiveAccount(t *testing.T) {
	store := adminStore()
	store.users["sleeper"] = domain.UserAccount{
		Username: "sleeper", Password: "sleep123", Role: "staff", Active: false, CreatedAt: time.Now().UTC(),
	}

	manager := NewAuthManager("test-secret", time.Hour, store)
	if _, err := manager.Login(domain.LoginRequest{Username: "admin", Password: "wrong"}); err == nil {
		t.Fatalf("expected wrong password to fail")
	}
	if _, err := manager.Login(domain.LoginRequest{Username: "sleeper", Password: "sleep123"}); err == nil {
		t.Fatalf("expected inactive account to fail")
	}
}

func TestParseTokenRoundTrip(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, adminStore())

	resp, err := manager.Login(domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "admin" || actor.Role != "admin" {
		t.Fatalf("unexpected actor: %+v", actor)
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	issuer := NewAuthManager("secret-one", time.Hour, adminStore())
	verifier := NewAuthManager("secret-two", time.Hour, adminStore())

	resp, err := issuer.Login(domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := verifier.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, adminStore())

	token, err := manager.sign("admin", "admin", time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := manager.ParseToken(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestCreateStaffStoresPasswordHash(t *testing.T) {
	store := adminStore()
	manager := NewAuthManager("test-secret", time.Hour, store)

	staff, err := manager.CreateStaff(domain.StaffCreateRequest{Username: "TeknisiBaru", Password: "pass1234"})
	if err != nil {
		t.Fatalf("create staff failed: %v", err)
	}
	if staff.Username != "teknisibaru" {
		t.Fatalf("expected lowercased username, got %s", staff.Username)
	}
	if staff.Role != "staff" {
		t.Fatalf("expected staff role, got %s", staff.Role)
	}

	users, err := store.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	var found *domain.UserAccount
	for i := range users {
		if users[i].Username == "teknisibaru" {
			found = &users[i]
			break
		}
	}
	if found == nil {
		t.Fatalf("expected staff account to be saved")
	}
	if found.Password == "pass1234" {
		t.Fatalf("expected staff password to be hashed")
	}
	if !strings.HasPrefix(found.Password, "$2") {
		t.Fatalf("expected bcrypt hash prefix, got %s", found.Password)
	}

	if _, err := manager.Login(domain.LoginRequest{Username: "teknisibaru", Password: "pass1234"}); err != nil {
		t.Fatalf("login with new staff account failed: %v", err)
	}
}

func TestCreateStaffValidation(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, adminStore())

	if _, err := manager.CreateStaff(domain.StaffCreateRequest{Username: "ab", Password: "pass1234"}); err == nil {
		t.Fatalf("expected short username to be rejected")
	}
	if _, err := manager.CreateStaff(domain.StaffCreateRequest{Username: "valid-user", Password: "123"}); err == nil {
		t.Fatalf("expected short password to be rejected")
	}
	if _, err := manager.CreateStaff(domain.StaffCreateRequest{Username: "admin", Password: "pass1234"}); err == nil {
		t.Fatalf("expected duplicate username to be rejected")
	}
}

func TestListStaffExcludesAdmins(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, adminStore())

	if _, err := manager.CreateStaff(domain.StaffCreateRequest{Username: "budi", Password: "pass1234"}); err != nil {
		t.Fatalf("create staff: %v", err)
	}
	if _, err := manager.CreateStaff(domain.StaffCreateRequest{Username: "agus", Password: "pass1234"}); err != nil {
		t.Fatalf("create staff: %v", err)
	}

	staff := manager.ListStaff()
	if len(staff) != 2 {
		t.Fatalf("expected 2 staff accounts, got %d", len(staff))
	}
	// Sorted by username.
	if staff[0].Username != "agus" || staff[1].Username != "budi" {
		t.Fatalf("expected sorted staff list, got %+v", staff)
	}
	for _, user := range staff {
		if user.Role != "staff" {
			t.Fatalf("expected only staff roles in list, got %+v", user)
		}
	}
}
