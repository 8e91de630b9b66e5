//go:build integration

package integration

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/swgfv/internal/handlers"
	"github.com/BradenHooton/swgfv/internal/models"
	"github.com/BradenHooton/swgfv/internal/repositories"
	"github.com/BradenHooton/swgfv/internal/services"
)

func TestLockout_ConcurrentFailuresEngageLockOnce(t *testing.T) {
	resetDatabase(t)
	ctx := context.Background()

	lockout := services.NewLockoutService(
		repositories.NewCredentialLockRepository(testDB.DB),
		services.LockoutConfig{MaxFailedAttempts: 3, Duration: 15 * time.Minute},
		slog.New(slog.NewJSONHandler(io.Discard, nil)),
	)

	const workers = 10
	outcomes := make([]*services.FailureOutcome, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := lockout.RecordFailure(ctx, "race@example.com")
			assert.NoError(t, err)
			outcomes[i] = out
		}(i)
	}
	wg.Wait()

	lockedNow := 0
	for _, out := range outcomes {
		require.NotNil(t, out)
		assert.True(t, out.Attempts <= 3, "counter must stop at the threshold, got %d", out.Attempts)
		if out.LockedNow {
			lockedNow++
		}
	}
	assert.Equal(t, 1, lockedNow)

	status, err := lockout.Check(ctx, "race@example.com")
	require.NoError(t, err)
	assert.True(t, status.Locked)
	assert.Equal(t, 3, status.FailedAttempts)
	assert.Equal(t, 15, status.RetryAfterMinutes)
}

func TestLogin_LocksAfterThresholdAndRejectsCorrectPassword(t *testing.T) {
	resetDatabase(t)
	ctx := context.Background()
	srv := NewTestServer(testDB.DB)
	defer srv.Close()

	email := TestEmail("lock")
	_, err := SeedUser(ctx, testDB.DB, email, TestPassword, models.RoleGeneral)
	require.NoError(t, err)
	client := srv.NewClient()

	for i := 1; i < testMaxAttempts; i++ {
		var body handlers.LoginFailureResponse
		resp, err := srv.Login(client, email, "Wrong-Password-1", &body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, i, body.Attempts)
		assert.NotNil(t, body.Challenge, "every failure carries a fresh challenge")
	}

	var locked handlers.LoginFailureResponse
	resp, err := srv.Login(client, email, "Wrong-Password-1", &locked)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "Account locked for 15 minutes", locked.Message)
	assert.Equal(t, strconv.Itoa(15*60), resp.Header.Get("Retry-After"))

	resp, err = srv.Login(client, email, TestPassword, &locked)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, 3, locked.Attempts, "rejections while locked are not counted")
}

func TestLogin_SuccessResetsCounterAndOpensSession(t *testing.T) {
	resetDatabase(t)
	ctx := context.Background()
	srv := NewTestServer(testDB.DB)
	defer srv.Close()

	email := TestEmail("ok")
	user, err := SeedUser(ctx, testDB.DB, email, TestPassword, models.RoleGeneral)
	require.NoError(t, err)
	client := srv.NewClient()

	resp, err := srv.Login(client, email, "Wrong-Password-1", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	locks := repositories.NewCredentialLockRepository(testDB.DB)
	failed, err := locks.Get(ctx, email)
	require.NoError(t, err)
	require.NotNil(t, failed.LastFailureAt)

	var ok handlers.LoginResponse
	resp, err = srv.Login(client, "  "+email+"  ", TestPassword, &ok)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, user.ID, ok.UserID)

	var rows, attempts int
	var lockedUntil, lastFailure *time.Time
	err = testDB.DB.Pool.QueryRow(ctx, `
		SELECT COUNT(*) OVER (), failed_attempts, locked_until, last_failure_at
		FROM credential_locks WHERE identifier = $1`, email,
	).Scan(&rows, &attempts, &lockedUntil, &lastFailure)
	require.NoError(t, err, "lock row must be kept after a successful login")
	assert.Equal(t, 1, rows)
	assert.Equal(t, 0, attempts)
	assert.Nil(t, lockedUntil)
	require.NotNil(t, lastFailure)
	assert.WithinDuration(t, *failed.LastFailureAt, *lastFailure, time.Millisecond)

	var me handlers.UserResponse
	resp, err = srv.DoJSON(client, http.MethodGet, "/account", nil, &me)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, email, me.Email)

	// a second browser holding a copy of the same cookie
	serverURL, err := url.Parse(srv.Server.URL)
	require.NoError(t, err)
	copied := srv.NewClient()
	copied.Jar.SetCookies(serverURL, client.Jar.Cookies(serverURL))

	resp, err = srv.DoJSON(copied, http.MethodGet, "/account", nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = srv.DoJSON(client, http.MethodPost, "/auth/logout", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = srv.DoJSON(client, http.MethodGet, "/account", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = srv.DoJSON(copied, http.MethodGet, "/account", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "logout must revoke every copy of the cookie")

	var live int
	require.NoError(t, testDB.DB.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM sessions WHERE user_id = $1`, user.ID).Scan(&live))
	assert.Zero(t, live)
}

func TestLogin_WrongCaptchaCountsTowardLock(t *testing.T) {
	resetDatabase(t)
	ctx := context.Background()
	srv := NewTestServer(testDB.DB)
	defer srv.Close()

	email := TestEmail("captcha")
	_, err := SeedUser(ctx, testDB.DB, email, TestPassword, models.RoleGeneral)
	require.NoError(t, err)
	client := srv.NewClient()

	token, answer, err := srv.Challenge(client)
	require.NoError(t, err)
	wrong, _ := strconv.Atoi(answer)

	var body handlers.LoginFailureResponse
	resp, err := srv.DoJSON(client, http.MethodPost, "/auth/login", handlers.LoginRequest{
		Username:        email,
		Password:        TestPassword,
		ChallengeToken:  token,
		ChallengeAnswer: strconv.Itoa(wrong + 1),
	}, &body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Incorrect captcha. Attempt 1/3.", body.Message)
}
