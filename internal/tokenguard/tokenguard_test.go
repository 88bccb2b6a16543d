package tokenguard

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/prepd/internal/model"
	"github.com/codeready-toolchain/prepd/internal/store"
)

type fakeRefresher struct {
	calls       int32
	failUntil   int32 // fail this many calls before succeeding
	revoked     bool
	accessToken string
	ttl         time.Duration
}

func (f *fakeRefresher) Refresh(_ context.Context, account *model.Account) (string, time.Time, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if f.revoked {
		return "", time.Time{}, &model.RevokedTokenError{AccountID: account.ID, Email: account.Email}
	}
	if n <= f.failUntil {
		return "", time.Time{}, assertErr("transient refresh failure")
	}
	token := f.accessToken
	if token == "" {
		token = "refreshed-token"
	}
	return token, time.Now().Add(f.ttl), nil
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func newTestAccount(id string, expiresIn time.Duration) *model.Account {
	exp := time.Now().Add(expiresIn)
	return &model.Account{
		ID:           id,
		UserID:       "u1",
		Provider:     model.ProviderGoogle,
		Email:        id + "@example.com",
		AccessToken:  "stale-token",
		RefreshToken: "refresh-" + id,
		ExpiresAt:    &exp,
		Status:       model.AccountStatusActive,
	}
}

func TestEnsureValid_SkipsFreshToken(t *testing.T) {
	fs := store.NewFakeStore()
	acc := newTestAccount("a1", time.Hour)
	fs.SeedUser(&model.User{ID: "u1", Email: "u1@example.com"}, acc)

	refresher := &fakeRefresher{}
	g := New(fs, refresher, 5*time.Minute)

	got, err := g.EnsureValid(context.Background(), acc)
	require.NoError(t, err)
	assert.Equal(t, "stale-token", got.AccessToken)
	assert.Equal(t, int32(0), refresher.calls)
}

func TestEnsureValid_RefreshesExpiringToken(t *testing.T) {
	fs := store.NewFakeStore()
	acc := newTestAccount("a1", 1*time.Minute) // within the 5-minute buffer
	fs.SeedUser(&model.User{ID: "u1", Email: "u1@example.com"}, acc)

	refresher := &fakeRefresher{accessToken: "new-token", ttl: time.Hour}
	g := New(fs, refresher, 5*time.Minute)

	got, err := g.EnsureValid(context.Background(), acc)
	require.NoError(t, err)
	assert.Equal(t, "new-token", got.AccessToken)
	assert.Equal(t, model.AccountStatusActive, got.Status)
	assert.Equal(t, int32(1), refresher.calls)

	stored, err := fs.GetAccount(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "new-token", stored.AccessToken)
}

func TestEnsureValid_RetriesTransientFailureOnce(t *testing.T) {
	fs := store.NewFakeStore()
	acc := newTestAccount("a1", 1*time.Minute)
	fs.SeedUser(&model.User{ID: "u1", Email: "u1@example.com"}, acc)

	refresher := &fakeRefresher{failUntil: 1, accessToken: "new-token", ttl: time.Hour}
	g := New(fs, refresher, 5*time.Minute)

	got, err := g.EnsureValid(context.Background(), acc)
	require.NoError(t, err)
	assert.Equal(t, "new-token", got.AccessToken)
	assert.Equal(t, int32(2), refresher.calls)
}

func TestEnsureValid_RevokedIsTerminalNoRetry(t *testing.T) {
	fs := store.NewFakeStore()
	acc := newTestAccount("a1", 1*time.Minute)
	fs.SeedUser(&model.User{ID: "u1", Email: "u1@example.com"}, acc)

	refresher := &fakeRefresher{revoked: true}
	g := New(fs, refresher, 5*time.Minute)

	_, err := g.EnsureValid(context.Background(), acc)
	require.Error(t, err)
	assert.True(t, model.IsRevoked(err))
	assert.Equal(t, int32(1), refresher.calls)

	stored, err := fs.GetAccount(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, model.AccountStatusRevoked, stored.Status)
}

func TestEnsureAllValid_PartitionsResults(t *testing.T) {
	fs := store.NewFakeStore()
	good := newTestAccount("good", time.Hour)
	bad := newTestAccount("bad", 1*time.Minute)
	fs.SeedUser(&model.User{ID: "u1", Email: "u1@example.com"}, good, bad)

	refreshers := map[string]*fakeRefresher{
		"good": {},
		"bad":  {revoked: true},
	}
	g := New(fs, dispatchingRefresher{byAccount: refreshers}, 5*time.Minute)

	res := g.EnsureAllValid(context.Background(), []*model.Account{good, bad})
	assert.True(t, res.PartialSuccess)
	assert.Len(t, res.Valid, 1)
	assert.Len(t, res.Failed, 1)
	assert.Equal(t, "bad", res.Failed[0].AccountID)
	assert.True(t, res.Failed[0].IsRevoked)
	assert.False(t, res.AllRevoked()) // one of the two accounts failed, not all
}

// dispatchingRefresher routes to a per-account fake so a batch test can mix
// outcomes without requiring the real Guard to expose per-account hooks.
type dispatchingRefresher struct {
	byAccount map[string]*fakeRefresher
}

func (d dispatchingRefresher) Refresh(ctx context.Context, account *model.Account) (string, time.Time, error) {
	return d.byAccount[account.ID].Refresh(ctx, account)
}
