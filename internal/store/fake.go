package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/codeready-toolchain/prepd/internal/model"
)

// FakeStore is an in-memory Store used by pipeline and scheduler unit
// tests, grounded in the teacher's test/e2e idiom of fully-faked external
// dependencies wrapped around a real internal pipeline.
type FakeStore struct {
	mu        sync.Mutex
	users     map[string]*model.User
	accounts  map[string]*model.Account
	briefs    map[string]*model.Brief // key: userID+"/"+meetingID
	buckets   map[string]time.Time    // key: task+"/"+bucketKey+"/"+userID, value: MarkBucketDone time
	reminders map[string]time.Time    // key: userID+"/"+meetingID+"/"+day, value: MarkReminderSent time
	now       func() time.Time
}

// NewFakeStore builds an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		users:     map[string]*model.User{},
		accounts:  map[string]*model.Account{},
		briefs:    map[string]*model.Brief{},
		buckets:   map[string]time.Time{},
		reminders: map[string]time.Time{},
		now:       time.Now,
	}
}

// SeedUser adds a user+accounts fixture for a test to build on.
func (f *FakeStore) SeedUser(u *model.User, accounts ...*model.Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
	for _, a := range accounts {
		f.accounts[a.ID] = a
	}
}

func (f *FakeStore) Close() error { return nil }

func (f *FakeStore) GetAccount(_ context.Context, accountID string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (f *FakeStore) ListAccountsForUser(_ context.Context, userID string) ([]*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Account
	for _, a := range f.accounts {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *FakeStore) UpdateAccountToken(_ context.Context, accountID, accessToken string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return fmt.Errorf("fake store: account %s not found", accountID)
	}
	a.AccessToken = accessToken
	a.ExpiresAt = &expiresAt
	a.Status = model.AccountStatusActive
	a.LastSyncError = ""
	return nil
}

func (f *FakeStore) MarkAccountRevoked(_ context.Context, accountID string, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return fmt.Errorf("fake store: account %s not found", accountID)
	}
	a.Status = model.AccountStatusRevoked
	a.LastSyncError = reason
	return nil
}

func (f *FakeStore) ListUsers(_ context.Context) ([]*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.User, 0, len(f.users))
	for _, u := range f.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (f *FakeStore) GetUser(_ context.Context, userID string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *FakeStore) UpsertBrief(_ context.Context, brief *model.Brief) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *brief
	f.briefs[brief.UserID+"/"+brief.MeetingID] = &cp
	return nil
}

func (f *FakeStore) GetBrief(_ context.Context, userID, meetingID string) (*model.Brief, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.briefs[userID+"/"+meetingID]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (f *FakeStore) BucketDone(_ context.Context, task, bucketKey, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.buckets[task+"/"+bucketKey+"/"+userID]
	return ok, nil
}

func (f *FakeStore) MarkBucketDone(_ context.Context, task, bucketKey, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buckets[task+"/"+bucketKey+"/"+userID] = f.now()
	return nil
}

func (f *FakeStore) ReminderSent(_ context.Context, userID, meetingID string, day time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.reminders[reminderKey(userID, meetingID, day)]
	return ok, nil
}

func (f *FakeStore) MarkReminderSent(_ context.Context, userID, meetingID string, day time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reminders[reminderKey(userID, meetingID, day)] = f.now()
	return nil
}

func (f *FakeStore) PurgeOldBriefs(_ context.Context, cutoff time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k, b := range f.briefs {
		if b.GeneratedAt.Before(cutoff) {
			delete(f.briefs, k)
			n++
		}
	}
	return n, nil
}

func (f *FakeStore) PurgeStaleBucketState(_ context.Context, cutoff time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k, t := range f.buckets {
		if t.Before(cutoff) {
			delete(f.buckets, k)
			n++
		}
	}
	for k, t := range f.reminders {
		if t.Before(cutoff) {
			delete(f.reminders, k)
			n++
		}
	}
	return n, nil
}

func reminderKey(userID, meetingID string, day time.Time) string {
	return userID + "/" + meetingID + "/" + day.Format("2006-01-02")
}

var _ Store = (*FakeStore)(nil)
