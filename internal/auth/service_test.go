package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/safar/go-ticket-desk/internal/clock"
	"github.com/safar/go-ticket-desk/internal/database"
	"github.com/safar/go-ticket-desk/internal/models"
	"golang.org/x/crypto/bcrypt"
)

type fakeAdminStore struct {
	admins map[string]*models.Admin
}

func (f *fakeAdminStore) CreateAdmin(_ context.Context, username, displayName, hash string) (*models.Admin, error) {
	if _, ok := f.admins[username]; ok {
		return nil, database.ErrUsernameTaken
	}
	admin := &models.Admin{ID: int64(len(f.admins) + 1), Username: username, DisplayName: displayName, PasswordHash: hash}
	f.admins[username] = admin
	return admin, nil
}

func (f *fakeAdminStore) GetAdminByUsername(_ context.Context, username string) (*models.Admin, error) {
	admin, ok := f.admins[username]
	if !ok {
		return nil, database.ErrAdminNotFound
	}
	return admin, nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	signer, err := NewSigner(testSecret, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	store := &fakeAdminStore{admins: map[string]*models.Admin{}}
	return NewService(store, signer, bcrypt.MinCost, clock.NewSystem(), nil)
}

func TestService_RegisterAndLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, " alice ", "", "correct horse")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if session.Admin.Username != "alice" || session.Admin.DisplayName != "alice" {
		t.Fatalf("unexpected admin %+v", session.Admin)
	}
	if session.Admin.PasswordHash == "correct horse" {
		t.Fatal("password stored in clear")
	}

	claims, err := svc.Authenticate(session.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if claims.AdminID != session.Admin.ID {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := svc.Register(ctx, "alice", "", "another pass"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	if _, err := svc.Login(ctx, "alice", "correct horse"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := svc.Login(ctx, "alice", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "whatever1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestService_RegisterValidation(t *testing.T) {
	svc := newTestService(t)

	tests := []struct {
		name     string
		username string
		password string
		field    string
	}{
		{"short username", "ab", "longenough", "username"},
		{"short password", "alice", "short", "password"},
		{"long password", "alice", string(make([]byte, 73)), "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.username, "", tt.password)
			var inputErr *InputError
			if !errors.As(err, &inputErr) || inputErr.Field != tt.field {
				t.Fatalf("expected %s input error, got %v", tt.field, err)
			}
		})
	}
}
