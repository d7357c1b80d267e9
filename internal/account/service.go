// Package account registers users and logs them in.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/siyabuilds/carbontrackr/internal/analysis"
	"github.com/siyabuilds/carbontrackr/internal/auth"
	"github.com/siyabuilds/carbontrackr/internal/domain"
)

var (
	// ErrInvalidCredentials is returned for an unknown identifier or wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserExists is returned when the username or email is taken.
	ErrUserExists = domain.ErrUserExists
)

var emailPattern = regexp.MustCompile(`^[\w.-]+@([\w-]+\.)+[\w-]{2,4}$`)

const (
	minUsername = 5
	maxUsername = 17
	minPassword = 8
	maxPassword = 32
)

// Analyzer refreshes the current-week summary for a user.
type Analyzer interface {
	RunCurrentWeekAnalysis(ctx context.Context, userID string, ref time.Time) (analysis.RunResult, error)
}

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for token issuance.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithHashCost overrides the bcrypt cost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hashCost = cost }
}

// Service handles registration and login.
type Service struct {
	users    domain.UserRepository
	tokens   auth.Config
	analyzer Analyzer
	logger   *slog.Logger
	now      func() time.Time
	hashCost int
}

// NewService constructs a Service. analyzer may be nil.
func NewService(users domain.UserRepository, tokens auth.Config, analyzer Analyzer, opts ...Option) *Service {
	s := &Service{
		users:    users,
		tokens:   tokens,
		analyzer: analyzer,
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
		hashCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterInput carries the registration form.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register validates the input and stores a new user with a bcrypt hash.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	switch {
	case username == "" || email == "" || input.Password == "":
		return nil, &domain.ValidationError{Field: "body", Reason: "username, email and password are required"}
	case len(username) < minUsername || len(username) > maxUsername:
		return nil, &domain.ValidationError{Field: "username", Reason: fmt.Sprintf("must be %d-%d characters", minUsername, maxUsername)}
	case !emailPattern.MatchString(email):
		return nil, &domain.ValidationError{Field: "email", Reason: "invalid email format"}
	case len(input.Password) < minPassword || len(input.Password) > maxPassword:
		return nil, &domain.ValidationError{Field: "password", Reason: fmt.Sprintf("must be %d-%d characters", minPassword, maxPassword)}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return &user, nil
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      domain.User
}

// Login authenticates by email or username, issues a token, then refreshes the
// user's current-week summary. A failed refresh is logged and never fails the login.
func (s *Service) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, &domain.ValidationError{Field: "identifier", Reason: "email or username is required"}
	}
	if len(password) < minPassword {
		return nil, &domain.ValidationError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", minPassword)}
	}

	user, err := s.users.FindUser(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	token, expires, err := auth.Issue(s.tokens, user.ID, user.Username, now)
	if err != nil {
		return nil, err
	}

	if s.analyzer != nil {
		if result, err := s.analyzer.RunCurrentWeekAnalysis(ctx, user.ID, now); err != nil {
			s.logger.Error("current week analysis on login failed", "user_id", user.ID, "error", err)
		} else {
			s.logger.Info("current week summary generated on login", "user_id", user.ID, "processed_users", result.ProcessedUsers)
		}
	}

	return &LoginResult{Token: token, ExpiresAt: expires, User: *user}, nil
}
