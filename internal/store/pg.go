package store

import (
	"context"
	stdsql "database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver for database/sql

	"github.com/codeready-toolchain/prepd/internal/config"
	"github.com/codeready-toolchain/prepd/internal/model"
)

//go:embed migrations
var migrationsFS embed.FS

// PGStore is the Postgres-backed Store implementation, grounded in the
// teacher's database.Client connection/migration flow but built on plain
// database/sql queries instead of an ent-generated client (see DESIGN.md).
type PGStore struct {
	db *stdsql.DB
}

// NewPGStore opens a connection pool against cfg.DSN and applies any
// pending embedded migrations before returning.
func NewPGStore(ctx context.Context, cfg *config.StoreConfig) (*PGStore, error) {
	db, err := stdsql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	db.SetMaxOpenConns(int(cfg.MaxConns))

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping database: %w", err)
	}

	if err := runMigrations(db, cfg.MigrationsTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: run migrations: %w", err)
	}

	return &PGStore{db: db}, nil
}

func runMigrations(db *stdsql.DB, migrationsTable string) error {
	if entries, err := fs.ReadDir(migrationsFS, "migrations"); err != nil || len(entries) == 0 {
		return fmt.Errorf("no embedded migration files found: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return fmt.Errorf("create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "prepd", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	// Close only the source driver — calling m.Close() would also close the
	// shared *sql.DB via the postgres driver, which this Store still needs.
	return sourceDriver.Close()
}

// Close releases the underlying connection pool.
func (s *PGStore) Close() error { return s.db.Close() }

func (s *PGStore) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, provider, email, access_token, refresh_token, expires_at,
		       scopes, is_primary, status, last_sync_at, last_sync_error, created_at, updated_at
		FROM accounts WHERE id = $1`, accountID)
	return scanAccount(row)
}

func (s *PGStore) ListAccountsForUser(ctx context.Context, userID string) ([]*model.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, provider, email, access_token, refresh_token, expires_at,
		       scopes, is_primary, status, last_sync_at, last_sync_error, created_at, updated_at
		FROM accounts WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list accounts: %w", err)
	}
	defer rows.Close()

	var out []*model.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

func (s *PGStore) UpdateAccountToken(ctx context.Context, accountID, accessToken string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET access_token = $2, expires_at = $3, status = 'active',
		       last_sync_at = now(), last_sync_error = '', updated_at = now()
		WHERE id = $1`, accountID, accessToken, expiresAt)
	if err != nil {
		return fmt.Errorf("store: update account token: %w", err)
	}
	return nil
}

func (s *PGStore) MarkAccountRevoked(ctx context.Context, accountID string, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET status = 'revoked', last_sync_error = $2, updated_at = now()
		WHERE id = $1`, accountID, reason)
	if err != nil {
		return fmt.Errorf("store: mark account revoked: %w", err)
	}
	return nil
}

func (s *PGStore) ListUsers(ctx context.Context) ([]*model.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, emails, name, timezone, company, created_at, updated_at FROM users`)
	if err != nil {
		return nil, fmt.Errorf("store: list users: %w", err)
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *PGStore) GetUser(ctx context.Context, userID string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, emails, name, timezone, company, created_at, updated_at
		FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

func (s *PGStore) UpsertBrief(ctx context.Context, brief *model.Brief) error {
	payload, err := json.Marshal(brief)
	if err != nil {
		return fmt.Errorf("store: marshal brief: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO briefs (user_id, meeting_id, brief_json, generated_at, model_version)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, meeting_id) DO UPDATE
		SET brief_json = EXCLUDED.brief_json,
		    generated_at = EXCLUDED.generated_at,
		    model_version = EXCLUDED.model_version`,
		brief.UserID, brief.MeetingID, payload, brief.GeneratedAt, brief.ModelVersion)
	if err != nil {
		return fmt.Errorf("store: upsert brief: %w", err)
	}
	return nil
}

func (s *PGStore) GetBrief(ctx context.Context, userID, meetingID string) (*model.Brief, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT brief_json FROM briefs WHERE user_id = $1 AND meeting_id = $2`,
		userID, meetingID).Scan(&payload)
	if err == stdsql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get brief: %w", err)
	}
	var brief model.Brief
	if err := json.Unmarshal(payload, &brief); err != nil {
		return nil, fmt.Errorf("store: unmarshal brief: %w", err)
	}
	return &brief, nil
}

func (s *PGStore) BucketDone(ctx context.Context, task, bucketKey, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM scheduler_buckets WHERE task = $1 AND bucket_key = $2 AND user_id = $3)`,
		task, bucketKey, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("store: check bucket: %w", err)
	}
	return exists, nil
}

func (s *PGStore) MarkBucketDone(ctx context.Context, task, bucketKey, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scheduler_buckets (task, bucket_key, user_id) VALUES ($1, $2, $3)
		ON CONFLICT (task, bucket_key, user_id) DO NOTHING`, task, bucketKey, userID)
	if err != nil {
		return fmt.Errorf("store: mark bucket done: %w", err)
	}
	return nil
}

func (s *PGStore) ReminderSent(ctx context.Context, userID, meetingID string, day time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM reminders_sent WHERE user_id = $1 AND meeting_id = $2 AND day = $3)`,
		userID, meetingID, day.Format("2006-01-02")).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("store: check reminder sent: %w", err)
	}
	return exists, nil
}

func (s *PGStore) MarkReminderSent(ctx context.Context, userID, meetingID string, day time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reminders_sent (user_id, meeting_id, day) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, meeting_id, day) DO NOTHING`,
		userID, meetingID, day.Format("2006-01-02"))
	if err != nil {
		return fmt.Errorf("store: mark reminder sent: %w", err)
	}
	return nil
}

func (s *PGStore) PurgeOldBriefs(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM briefs WHERE generated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: purge old briefs: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *PGStore) PurgeStaleBucketState(ctx context.Context, cutoff time.Time) (int, error) {
	var total int64
	res, err := s.db.ExecContext(ctx, `DELETE FROM scheduler_buckets WHERE completed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: purge stale buckets: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: purge stale buckets: %w", err)
	}
	total += n

	res, err = s.db.ExecContext(ctx, `DELETE FROM reminders_sent WHERE sent_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: purge stale reminders: %w", err)
	}
	n, err = res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: purge stale reminders: %w", err)
	}
	total += n

	return int(total), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*model.Account, error) {
	var a model.Account
	var expiresAt stdsql.NullTime
	var lastSyncAt stdsql.NullTime
	if err := row.Scan(&a.ID, &a.UserID, &a.Provider, &a.Email, &a.AccessToken, &a.RefreshToken,
		&expiresAt, &a.Scopes, &a.IsPrimary, &a.Status, &lastSyncAt, &a.LastSyncError,
		&a.CreatedAt, &a.UpdatedAt); err != nil {
		if err == stdsql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: scan account: %w", err)
	}
	if expiresAt.Valid {
		a.ExpiresAt = &expiresAt.Time
	}
	if lastSyncAt.Valid {
		a.LastSyncAt = &lastSyncAt.Time
	}
	return &a, nil
}

func scanUser(row scanner) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.Emails, &u.Name, &u.Timezone, &u.Company,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		if err == stdsql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: scan user: %w", err)
	}
	return &u, nil
}
