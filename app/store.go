package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/IsaacKoome/glowscanweb/app/config"
	"github.com/IsaacKoome/glowscanweb/app/models"

	_ "github.com/lib/pq"
)

// UserStore persists per-user usage records. Records are lazily created:
// reads of unknown users return an all-defaults record rather than an
// error. Implementations must be safe for concurrent use.
type UserStore interface {
	// GetUser loads the record for userID, defaulting missing users to
	// the free plan with zero counters.
	GetUser(ctx context.Context, userID string) (models.User, error)

	// MutateUser applies mutate to the record for userID inside a single
	// transaction and persists the outcome. The record is created with
	// defaults first if missing. If mutate returns an error nothing is
	// written and the error is returned with the pre-mutation record.
	MutateUser(ctx context.Context, userID string, mutate func(*models.User) error) (models.User, error)

	// FindByCustomerCode looks a user up by stored Paystack customer code.
	// Returns ErrUserNotFound when no record matches.
	FindByCustomerCode(ctx context.Context, code string) (models.User, error)
}

// OpenDB connects to Postgres using the split host/port/name env layout and
// verifies the connection.
func OpenDB(cfg config.PostgresConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Username,
		cfg.Password,
		cfg.URL,
		cfg.Port,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	return db, nil
}

// Migrate creates the users table if it does not exist. Idempotent; runs
// at startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id                      TEXT PRIMARY KEY,
			plan                         TEXT NOT NULL DEFAULT 'free',
			last_analysis_date           TEXT NOT NULL DEFAULT '',
			gemini_count_today           INT  NOT NULL DEFAULT 0,
			gpt4o_count_today            INT  NOT NULL DEFAULT 0,
			paystack_customer_id         TEXT NOT NULL DEFAULT '',
			paystack_subscription_code   TEXT NOT NULL DEFAULT '',
			paystack_subscription_status TEXT NOT NULL DEFAULT '',
			created_at                   TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at                   TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS users_paystack_customer_idx
			ON users (paystack_customer_id);`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate users: %w", err)
		}
	}
	return nil
}

// PostgresStore implements UserStore over database/sql + lib/pq.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `plan, last_analysis_date, gemini_count_today, gpt4o_count_today,
		paystack_customer_id, paystack_subscription_code, paystack_subscription_status`

func scanUser(row *sql.Row, userID string) (models.User, error) {
	user := models.User{UserID: userID}
	err := row.Scan(
		&user.Plan,
		&user.LastAnalysisDate,
		&user.GeminiCountToday,
		&user.GPT4oCountToday,
		&user.PaystackCustomerID,
		&user.PaystackSubscriptionCode,
		&user.PaystackSubscriptionStatus,
	)
	return user, err
}

func defaultUser(userID string) models.User {
	return models.User{UserID: userID, Plan: models.PlanFree}
}

func (s *PostgresStore) GetUser(ctx context.Context, userID string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE user_id = $1;
	`, userID)

	user, err := scanUser(row, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return defaultUser(userID), nil
		}
		return models.User{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return user, nil
}

func (s *PostgresStore) MutateUser(ctx context.Context, userID string, mutate func(*models.User) error) (models.User, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	user, err := getUserForUpdate(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if err := insertDefaultUser(ctx, tx, userID); err != nil {
				return models.User{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			user, err = getUserForUpdate(ctx, tx, userID)
		}
		if err != nil {
			return models.User{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	if err := mutate(&user); err != nil {
		return user, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE users
		SET plan = $1,
			last_analysis_date = $2,
			gemini_count_today = $3,
			gpt4o_count_today = $4,
			paystack_customer_id = $5,
			paystack_subscription_code = $6,
			paystack_subscription_status = $7,
			updated_at = now()
		WHERE user_id = $8;
	`,
		user.Plan,
		user.LastAnalysisDate,
		user.GeminiCountToday,
		user.GPT4oCountToday,
		user.PaystackCustomerID,
		user.PaystackSubscriptionCode,
		user.PaystackSubscriptionStatus,
		userID,
	)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return user, nil
}

func (s *PostgresStore) FindByCustomerCode(ctx context.Context, code string) (models.User, error) {
	if code == "" {
		return models.User{}, ErrUserNotFound
	}

	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id
		FROM users
		WHERE paystack_customer_id = $1;
	`, code).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return s.GetUser(ctx, userID)
}

func getUserForUpdate(ctx context.Context, tx *sql.Tx, userID string) (models.User, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE user_id = $1
		FOR UPDATE;
	`, userID)

	return scanUser(row, userID)
}

func insertDefaultUser(ctx context.Context, tx *sql.Tx, userID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO users (user_id, plan)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING;
	`, userID, models.PlanFree)
	return err
}
