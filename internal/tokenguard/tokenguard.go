// Package tokenguard ensures every Account used by a prep request carries
// a live access token before the harvester touches it, refreshing via the
// provider's OAuth2 token endpoint and marking permanently revoked
// accounts so they are never retried within the process.
package tokenguard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/codeready-toolchain/prepd/internal/config"
	"github.com/codeready-toolchain/prepd/internal/model"
	"github.com/codeready-toolchain/prepd/internal/store"
)

// Retry bounds for a transient (network/5xx) refresh failure — the spec
// calls for exactly one retry with exponential backoff.
const (
	retryBackoffBase = 500 * time.Millisecond
	retryBackoffMax  = 4 * time.Second
)

// Refresher performs the provider-specific OAuth2 refresh call. Production
// code uses googleRefresher; tests inject a fake.
type Refresher interface {
	Refresh(ctx context.Context, account *model.Account) (accessToken string, expiresAt time.Time, err error)
}

// Guard ensures accounts carry a live access token, refreshing lazily and
// serializing concurrent refreshes of the same account. The per-account
// mutex table is grounded in the teacher's WorkerPool.activeSessions
// registry (a map guarded by sync.RWMutex, keyed by the entity being
// coordinated) — here keyed by account ID instead of session ID, and
// holding a *sync.Mutex instead of a context.CancelFunc.
type Guard struct {
	store     store.Store
	refresher Refresher
	buffer    time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New builds a Guard backed by s, refreshing via r, treating an account as
// expiring once less than buffer remains on its access token.
func New(s store.Store, r Refresher, buffer time.Duration) *Guard {
	return &Guard{
		store:     s,
		refresher: r,
		buffer:    buffer,
		locks:     make(map[string]*sync.Mutex),
	}
}

// NewGoogle builds a Guard wired to the Google OAuth2 token endpoint.
func NewGoogle(s store.Store, cfg *config.GoogleOAuthConfig) *Guard {
	return New(s, newGoogleRefresher(cfg), cfg.RefreshBuffer)
}

func (g *Guard) lockFor(accountID string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[accountID]
	if !ok {
		l = &sync.Mutex{}
		g.locks[accountID] = l
	}
	return l
}

func (g *Guard) expiring(account *model.Account, now time.Time) bool {
	if account.AccessToken == "" {
		return true
	}
	if account.ExpiresAt == nil {
		return true
	}
	return account.ExpiresAt.Sub(now) <= g.buffer
}

// EnsureValid returns account unchanged if its token has more than the
// refresh buffer left. Otherwise it refreshes it, serializing concurrent
// callers on the same account ID and re-checking after acquiring the lock
// in case another goroutine already refreshed it.
func (g *Guard) EnsureValid(ctx context.Context, account *model.Account) (*model.Account, error) {
	now := time.Now()
	if !g.expiring(account, now) {
		return account, nil
	}

	lock := g.lockFor(account.ID)
	lock.Lock()
	defer lock.Unlock()

	current, err := g.store.GetAccount(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("tokenguard: reload account %s: %w", account.ID, err)
	}
	if current == nil {
		current = account
	}
	if !g.expiring(current, time.Now()) {
		return current, nil
	}
	if current.Status == model.AccountStatusRevoked {
		return nil, &model.RevokedTokenError{AccountID: current.ID, Email: current.Email, Cause: errors.New("account previously revoked")}
	}

	accessToken, expiresAt, err := g.refreshWithRetry(ctx, current)
	if err != nil {
		var revoked *model.RevokedTokenError
		if errors.As(err, &revoked) {
			if markErr := g.store.MarkAccountRevoked(ctx, current.ID, err.Error()); markErr != nil {
				slog.Warn("tokenguard: failed to persist revoked status", "account_id", current.ID, "error", markErr)
			}
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", model.ErrTransientProvider, err)
	}

	if err := g.store.UpdateAccountToken(ctx, current.ID, accessToken, expiresAt); err != nil {
		return nil, fmt.Errorf("tokenguard: persist refreshed token: %w", err)
	}

	current.AccessToken = accessToken
	current.ExpiresAt = &expiresAt
	current.Status = model.AccountStatusActive
	return current, nil
}

// refreshWithRetry calls the refresher once, and once more after a
// jittered backoff if the first attempt failed with a non-revocation
// error — network/5xx failures are retried once, per the specification.
func (g *Guard) refreshWithRetry(ctx context.Context, account *model.Account) (string, time.Time, error) {
	accessToken, expiresAt, err := g.refresher.Refresh(ctx, account)
	if err == nil {
		return accessToken, expiresAt, nil
	}

	var revoked *model.RevokedTokenError
	if errors.As(err, &revoked) {
		return "", time.Time{}, err
	}

	backoff := retryBackoffBase + time.Duration(rand.Int64N(int64(retryBackoffMax-retryBackoffBase)))
	select {
	case <-time.After(backoff):
	case <-ctx.Done():
		return "", time.Time{}, ctx.Err()
	}

	return g.refresher.Refresh(ctx, account)
}

// BatchResult partitions the outcome of validating a set of accounts.
type BatchResult struct {
	Valid  []*model.Account
	Failed []model.FailedAccount

	AllSucceeded  bool
	PartialSuccess bool
	AllFailed     bool
}

// EnsureAllValid runs EnsureValid concurrently across accounts and
// partitions the results, in the teacher's hand-rolled fan-out idiom
// (a goroutine per item, a buffered results slice, a WaitGroup) rather
// than a queue/worker-pool abstraction, since this is a one-shot batch of
// at most a handful of accounts, not a long-lived polling pool.
func (g *Guard) EnsureAllValid(ctx context.Context, accounts []*model.Account) *BatchResult {
	type outcome struct {
		account *model.Account
		err     error
		orig    *model.Account
	}

	results := make([]outcome, len(accounts))
	var wg sync.WaitGroup
	for i, acc := range accounts {
		wg.Add(1)
		go func(i int, acc *model.Account) {
			defer wg.Done()
			valid, err := g.EnsureValid(ctx, acc)
			results[i] = outcome{account: valid, err: err, orig: acc}
		}(i, acc)
	}
	wg.Wait()

	res := &BatchResult{}
	for _, o := range results {
		if o.err == nil {
			res.Valid = append(res.Valid, o.account)
			continue
		}
		fa := model.FailedAccount{
			Email:     o.orig.Email,
			AccountID: o.orig.ID,
			Error:     o.err.Error(),
			IsRevoked: model.IsRevoked(o.err),
		}
		res.Failed = append(res.Failed, fa)
	}

	switch {
	case len(res.Failed) == 0:
		res.AllSucceeded = true
	case len(res.Valid) == 0:
		res.AllFailed = true
	default:
		res.PartialSuccess = true
	}
	return res
}

// AllRevoked reports whether every account in the batch failed with a
// revocation (no valid account and no other kind of failure), the
// condition that selects a 401-equivalent "re-authenticate" response over
// a generic 503-equivalent.
func (r *BatchResult) AllRevoked() bool {
	if len(r.Failed) == 0 || len(r.Valid) > 0 {
		return false
	}
	for _, f := range r.Failed {
		if !f.IsRevoked {
			return false
		}
	}
	return true
}

// isRevocationSignal classifies a provider error body by substring match,
// the same heuristic shadow-python/services/token_refresh.py uses
// (`invalid_grant`, `REVOKED_TOKEN`, `REVOKED_REFRESH_TOKEN`).
func isRevocationSignal(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "invalid_grant") ||
		strings.Contains(lower, "revoked_token") ||
		strings.Contains(lower, "revoked_refresh_token")
}
