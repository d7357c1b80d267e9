package account

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/siyabuilds/carbontrackr/internal/analysis"
	"github.com/siyabuilds/carbontrackr/internal/auth"
	"github.com/siyabuilds/carbontrackr/internal/domain"
	"github.com/siyabuilds/carbontrackr/internal/persistence/memory"
)

var tokenConfig = auth.Config{Secret: "secret", Issuer: "carbontrackr-test", TTL: time.Hour}

type stubAnalyzer struct {
	calls []string
	err   error
}

func (s *stubAnalyzer) RunCurrentWeekAnalysis(_ context.Context, userID string, _ time.Time) (analysis.RunResult, error) {
	s.calls = append(s.calls, userID)
	return analysis.RunResult{ProcessedUsers: 1}, s.err
}

func newTestService(analyzer Analyzer) (*Service, *memory.Store) {
	store := memory.NewStore()
	svc := NewService(store, tokenConfig, analyzer,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithHashCost(bcrypt.MinCost),
	)
	return svc, store
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(nil)

	tests := []struct {
		name  string
		input RegisterInput
		field string
	}{
		{name: "missing", input: RegisterInput{Username: "greta"}, field: "body"},
		{name: "short username", input: RegisterInput{Username: "gr", Email: "g@example.com", Password: "password1"}, field: "username"},
		{name: "bad email", input: RegisterInput{Username: "gretaT", Email: "not-an-email", Password: "password1"}, field: "email"},
		{name: "short password", input: RegisterInput{Username: "gretaT", Email: "g@example.com", Password: "short"}, field: "password"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.input)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestRegisterAndLogin(t *testing.T) {
	analyzer := &stubAnalyzer{}
	svc, _ := newTestService(analyzer)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Username: "gretaT", Email: " Greta@Example.com ", Password: "password1"})
	require.NoError(t, err)
	require.Equal(t, "greta@example.com", user.Email)
	require.NotEqual(t, "password1", user.PasswordHash)

	_, err = svc.Register(ctx, RegisterInput{Username: "gretaT", Email: "other@example.com", Password: "password1"})
	require.ErrorIs(t, err, ErrUserExists)

	for _, identifier := range []string{"gretaT", "greta@example.com"} {
		result, err := svc.Login(ctx, identifier, "password1")
		require.NoError(t, err)
		claims, err := auth.Parse(result.Token, tokenConfig)
		require.NoError(t, err)
		require.Equal(t, user.ID, claims.Subject)
	}
	require.Equal(t, []string{user.ID, user.ID}, analyzer.calls)

	_, err = svc.Login(ctx, "gretaT", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody", "password1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginSucceedsWhenAnalysisFails(t *testing.T) {
	analyzer := &stubAnalyzer{err: errors.New("aggregation timed out")}
	svc, _ := newTestService(analyzer)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "gretaT", Email: "greta@example.com", Password: "password1"})
	require.NoError(t, err)

	result, err := svc.Login(ctx, "gretaT", "password1")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	require.Len(t, analyzer.calls, 1)
}
