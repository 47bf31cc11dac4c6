package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/safar/go-ticket-desk/internal/clock"
	"github.com/safar/go-ticket-desk/internal/database"
	"github.com/safar/go-ticket-desk/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = database.ErrUsernameTaken
)

const (
	minUsernameLen = 3
	minPasswordLen = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordLen = 72
)

// InputError reports a rejected registration field.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return e.Field + ": " + e.Message
}

type AdminStore interface {
	CreateAdmin(ctx context.Context, username, displayName, passwordHash string) (*models.Admin, error)
	GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error)
}

// Session is an authenticated admin and the token that proves it.
type Session struct {
	Token     string        `json:"token"`
	ExpiresAt int64         `json:"expires_at"`
	Admin     *models.Admin `json:"admin"`
}

type Service struct {
	store      AdminStore
	signer     *Signer
	bcryptCost int
	clock      clock.Clock
	logger     *zap.Logger
}

func NewService(store AdminStore, signer *Signer, bcryptCost int, clk clock.Clock, logger *zap.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:      store,
		signer:     signer,
		bcryptCost: bcryptCost,
		clock:      clk,
		logger:     logger,
	}
}

func (s *Service) Register(ctx context.Context, username, displayName, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	displayName = strings.TrimSpace(displayName)
	switch {
	case len(username) < minUsernameLen:
		return nil, &InputError{Field: "username", Message: fmt.Sprintf("must be at least %d characters", minUsernameLen)}
	case len(password) < minPasswordLen:
		return nil, &InputError{Field: "password", Message: fmt.Sprintf("must be at least %d characters", minPasswordLen)}
	case len(password) > maxPasswordLen:
		return nil, &InputError{Field: "password", Message: fmt.Sprintf("must be at most %d bytes", maxPasswordLen)}
	}
	if displayName == "" {
		displayName = username
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	admin, err := s.store.CreateAdmin(ctx, username, displayName, string(hash))
	if err != nil {
		return nil, err
	}

	s.logger.Info("admin registered", zap.Int64("admin_id", admin.ID), zap.String("username", admin.Username))
	return s.session(admin)
}

func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	admin, err := s.store.GetAdminByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, database.ErrAdminNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("admin login rejected", zap.String("username", admin.Username))
		return nil, ErrInvalidCredentials
	}

	return s.session(admin)
}

// Authenticate verifies a bearer token.
func (s *Service) Authenticate(token string) (*Claims, error) {
	return s.signer.VerifyAt(token, s.clock.Now())
}

func (s *Service) session(admin *models.Admin) (*Session, error) {
	token, claims, err := s.signer.Mint(admin.ID, admin.Username, s.clock.Now())
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt, Admin: admin}, nil
}
