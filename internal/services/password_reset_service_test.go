package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/swgfv/internal/auth"
	"github.com/BradenHooton/swgfv/internal/models"
	pkgauth "github.com/BradenHooton/swgfv/pkg/auth"
)

type resetFixture struct {
	svc      *PasswordResetService
	users    *MockUserRepository
	user     *models.User
	audit    *MockAuditor
	sessions *MockSessionRevoker
	sent     []string
	stored   string
}

func newResetFixture(t *testing.T) *resetFixture {
	t.Helper()
	f := &resetFixture{user: NewTestUser(5, "luis@example.com", "Old-Password-1"), audit: &MockAuditor{}, sessions: &MockSessionRevoker{}}

	users := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			if email == f.user.Email {
				return f.user, nil
			}
			return nil, models.ErrNotFound
		},
		GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			if id == f.user.ID {
				return f.user, nil
			}
			return nil, models.ErrNotFound
		},
		ReplacePasswordFunc: func(ctx context.Context, id int64, current, hash string) error {
			if id != f.user.ID || current != f.user.PasswordHash {
				return models.ErrConflict
			}
			f.stored = hash
			f.user.PasswordHash = hash
			return nil
		},
	}
	f.users = users
	email := &MockEmailService{
		SendPasswordResetEmailFunc: func(ctx context.Context, to, link string, expiresAt time.Time) error {
			f.sent = append(f.sent, link)
			return nil
		},
	}

	signer := auth.NewSigner("reset-test-secret-of-sufficient-length")
	tokens := auth.NewResetTokenIssuer(signer, 15*time.Minute)
	f.svc = NewPasswordResetService(users, tokens, f.sessions, email, f.audit, testLogger(), "https://swgfv.example.com/", 15*time.Minute)
	return f
}

func (f *resetFixture) token(t *testing.T) string {
	t.Helper()
	require.Len(t, f.sent, 1)
	_, token, ok := strings.Cut(f.sent[0], "token=")
	require.True(t, ok)
	return token
}

func TestPasswordResetService_Request_SendsLink(t *testing.T) {
	f := newResetFixture(t)

	f.svc.Request(context.Background(), " LUIS@example.com", RequestMeta{IPAddress: "198.51.100.1"})

	require.Len(t, f.sent, 1)
	assert.True(t, strings.HasPrefix(f.sent[0], "https://swgfv.example.com/password-reset/confirm?token="))
	assert.True(t, f.audit.Last().Success)
	assert.Equal(t, models.AuditActionPasswordResetReq, f.audit.Last().Action)
}

func TestPasswordResetService_Request_UnknownOrInactiveIsSilent(t *testing.T) {
	f := newResetFixture(t)

	f.svc.Request(context.Background(), "ghost@example.com", RequestMeta{})
	f.user.Active = false
	f.svc.Request(context.Background(), "luis@example.com", RequestMeta{})

	assert.Empty(t, f.sent)
	require.Len(t, f.audit.Entries, 2)
	for _, e := range f.audit.Entries {
		assert.False(t, e.Success)
	}
}

func TestPasswordResetService_Confirm(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()
	f.svc.Request(ctx, "luis@example.com", RequestMeta{})
	token := f.token(t)

	err := f.svc.Confirm(ctx, token, "New-Password-2", "New-Password-2", RequestMeta{})
	require.NoError(t, err)
	assert.NoError(t, pkgauth.ComparePassword(f.stored, "New-Password-2"))
	assert.Equal(t, models.AuditActionPasswordResetDone, f.audit.Last().Action)
	assert.Equal(t, []int64{5}, f.sessions.Users)

	// the fingerprint no longer matches, so the link is single use
	err = f.svc.Confirm(ctx, token, "Third-Password-3", "Third-Password-3", RequestMeta{})
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestPasswordResetService_Confirm_Rejections(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()
	f.svc.Request(ctx, "luis@example.com", RequestMeta{})
	token := f.token(t)

	assert.ErrorIs(t, f.svc.Confirm(ctx, "garbage", "New-Password-2", "New-Password-2", RequestMeta{}), models.ErrInvalidToken)

	err := f.svc.Confirm(ctx, token, "New-Password-2", "Different-2", RequestMeta{})
	var ve *models.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "password_confirmation", ve.Field)

	f.user.Active = false
	assert.ErrorIs(t, f.svc.Confirm(ctx, token, "New-Password-2", "New-Password-2", RequestMeta{}), models.ErrInvalidToken)
	assert.Empty(t, f.stored)
}

func TestPasswordResetService_Confirm_ConcurrentRedeemWritesOnce(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()
	f.svc.Request(ctx, "luis@example.com", RequestMeta{})
	token := f.token(t)

	// both confirms read the account before either write lands
	snapshot := *f.user
	f.users.GetByIDFunc = func(ctx context.Context, id int64) (*models.User, error) {
		u := snapshot
		return &u, nil
	}

	require.NoError(t, f.svc.Confirm(ctx, token, "New-Password-2", "New-Password-2", RequestMeta{}))
	first := f.stored

	err := f.svc.Confirm(ctx, token, "Third-Password-3", "Third-Password-3", RequestMeta{})
	assert.ErrorIs(t, err, models.ErrInvalidToken)
	assert.Equal(t, first, f.stored)
	assert.NoError(t, pkgauth.ComparePassword(f.stored, "New-Password-2"))
}

func TestPasswordResetService_Confirm_StoreFailure(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()
	f.svc.Request(ctx, "luis@example.com", RequestMeta{})
	token := f.token(t)

	f.users.ReplacePasswordFunc = func(ctx context.Context, id int64, current, hash string) error {
		return errors.New("connection reset")
	}

	err := f.svc.Confirm(ctx, token, "New-Password-2", "New-Password-2", RequestMeta{})
	assert.ErrorIs(t, err, models.ErrInternalServer)
	assert.Empty(t, f.sessions.Users)
}

func TestPasswordResetService_Confirm_SessionRevokeFailureStillSucceeds(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()
	f.svc.Request(ctx, "luis@example.com", RequestMeta{})
	token := f.token(t)
	f.sessions.Err = errors.New("timeout")

	require.NoError(t, f.svc.Confirm(ctx, token, "New-Password-2", "New-Password-2", RequestMeta{}))
	assert.NoError(t, pkgauth.ComparePassword(f.stored, "New-Password-2"))
}
