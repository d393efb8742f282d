package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jwelary/internal/auth/models"
	"jwelary/internal/auth/password"
	"jwelary/internal/auth/store/revocation"
	"jwelary/internal/auth/store/user"
	jwttoken "jwelary/internal/jwt_token"
	"jwelary/internal/platform/logger"
	dErrors "jwelary/pkg/domain-errors"
	"jwelary/pkg/platform/audit"
	"jwelary/pkg/requestcontext"
	"jwelary/pkg/testutil"
)

// rotationHarness wires real in-memory stores so the denylist semantics are
// exercised end to end.
type rotationHarness struct {
	svc     *Service
	trl     *revocation.InMemoryTRL
	auditor *recordingAuditor
	now     time.Time
}

func newRotationHarness(t *testing.T, rotation bool) *rotationHarness {
	t.Helper()
	h := &rotationHarness{
		auditor: &recordingAuditor{},
		now:     time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return h.now }
	h.trl = revocation.NewInMemoryTRL(revocation.WithClock(clock))
	h.svc = New(
		user.New(),
		password.NewHasher(password.WithCost(4)),
		jwttoken.NewJWTService("test-secret", "jwelary", jwttoken.WithClock(clock)),
		h.trl,
		logger.Discard(),
		WithRefreshRotation(rotation),
		WithAuditPublisher(h.auditor),
	)
	return h
}

func (h *rotationHarness) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), h.now)
}

func (h *rotationHarness) login(t *testing.T) *models.LoginResult {
	t.Helper()
	_, err := h.svc.Register(h.ctx(), models.Registration{Email: "alice@example.com", Password: "secret123", Name: "Alice"})
	require.NoError(t, err)
	result, err := h.svc.Login(h.ctx(), models.Credentials{Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)
	return result
}

func TestRefreshRotation(t *testing.T) {
	testutil.Given(t, "rotation is enabled", func(t *testing.T) {
		h := newRotationHarness(t, true)
		login := h.login(t)

		testutil.When(t, "the refresh token is used once", func(t *testing.T) {
			first, err := h.svc.Refresh(h.ctx(), login.Refresh.Value)
			require.NoError(t, err)
			require.NotNil(t, first.Refresh)
			assert.NotEqual(t, login.Refresh.Value, first.Refresh.Value)

			testutil.Then(t, "the successor works and the original is reuse", func(t *testing.T) {
				second, err := h.svc.Refresh(h.ctx(), first.Refresh.Value)
				require.NoError(t, err)

				_, err = h.svc.Refresh(h.ctx(), login.Refresh.Value)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
				assert.Contains(t, h.auditor.actions(), audit.EventRefreshReuseDetected)

				_, err = h.svc.Refresh(h.ctx(), second.Refresh.Value)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized), "family is revoked after reuse")
			})
		})
	})

	testutil.Given(t, "rotation is disabled", func(t *testing.T) {
		h := newRotationHarness(t, false)
		login := h.login(t)

		testutil.Then(t, "the same refresh token keeps working", func(t *testing.T) {
			for range 3 {
				result, err := h.svc.Refresh(h.ctx(), login.Refresh.Value)
				require.NoError(t, err)
				assert.Nil(t, result.Refresh)
			}
		})
	})
}

func TestRotationRejectsRefreshAtExpiry(t *testing.T) {
	h := newRotationHarness(t, true)
	login := h.login(t)

	claims, err := jwttoken.ParseUnverified(login.Refresh.Value)
	require.NoError(t, err)
	atExpiry := requestcontext.WithTime(context.Background(), claims.ExpiresAt.Time)

	_, err = h.svc.Refresh(atExpiry, login.Refresh.Value)
	assert.True(t, errors.Is(err, dErrors.New(dErrors.CodeUnauthorized, "Invalid refresh token")))
	assert.NotContains(t, h.auditor.actions(), audit.EventRefreshReuseDetected)
}

func TestLogoutRevokesSession(t *testing.T) {
	h := newRotationHarness(t, false)
	login := h.login(t)

	access, err := jwttoken.ParseUnverified(login.Access.Value)
	require.NoError(t, err)

	h.svc.Logout(h.ctx(), models.LogoutRequest{AccessToken: login.Access.Value, RefreshToken: login.Refresh.Value})
	h.svc.Logout(h.ctx(), models.LogoutRequest{AccessToken: login.Access.Value, RefreshToken: login.Refresh.Value})

	revoked, err := h.svc.IsTokenRevoked(h.ctx(), access.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	_, err = h.svc.Refresh(h.ctx(), login.Refresh.Value)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	h.now = h.now.Add(3 * time.Hour)
	revoked, err = h.svc.IsTokenRevoked(h.ctx(), access.ID)
	require.NoError(t, err)
	assert.False(t, revoked, "denylist entry expires with the token")
}
