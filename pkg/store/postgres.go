package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/inzo-ai/core-contracts/pkg/claims"
	"github.com/inzo-ai/core-contracts/pkg/fault"
	"github.com/inzo-ai/core-contracts/pkg/policy"
)

// Postgres persists records in a shared database with the same layout the
// SQLite backend uses.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects with a lib/pq DSN and migrates.
func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	return NewPostgres(db)
}

// NewPostgres wraps an existing handle and migrates it.
func NewPostgres(db *sql.DB) (*Postgres, error) {
	s := &Postgres{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Postgres) migrate() error {
	query := `
    CREATE TABLE IF NOT EXISTS policies (
        id TEXT PRIMARY KEY,
        status TEXT NOT NULL,
        record JSONB NOT NULL
    );
    CREATE TABLE IF NOT EXISTS claims (
        id TEXT PRIMARY KEY,
        policy_id TEXT NOT NULL,
        status TEXT NOT NULL,
        record JSONB NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_claims_policy ON claims (policy_id, status);
    CREATE TABLE IF NOT EXISTS vault (
        id INTEGER PRIMARY KEY CHECK (id = 1),
        balance BIGINT NOT NULL
    );`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

// Close closes the underlying handle.
func (s *Postgres) Close() error { return s.db.Close() }

func (s *Postgres) Put(ctx context.Context, p *policy.Policy) error {
	record, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO policies (id, status, record) VALUES ($1, $2, $3)
        ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, record = EXCLUDED.record`,
		p.ID, string(p.Status), string(record))
	if err != nil {
		return fmt.Errorf("persist policy %s: %w", p.ID, err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, id string) (*policy.Policy, error) {
	var record string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM policies WHERE id = $1`, id).Scan(&record)
	if err == sql.ErrNoRows {
		return nil, fault.New(fault.KindNotFound, "policy %s", id)
	}
	if err != nil {
		return nil, err
	}
	var p policy.Policy
	if err := json.Unmarshal([]byte(record), &p); err != nil {
		return nil, fmt.Errorf("decode policy %s: %w", id, err)
	}
	return &p, nil
}

// Claims returns a claim-store view backed by the same database.
func (s *Postgres) Claims() *PostgresClaims { return &PostgresClaims{db: s.db} }

// PostgresClaims adapts Postgres to the claim store interface.
type PostgresClaims struct{ db *sql.DB }

func (s *PostgresClaims) Put(ctx context.Context, c *claims.Claim) error {
	record, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO claims (id, policy_id, status, record) VALUES ($1, $2, $3, $4)
        ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, record = EXCLUDED.record`,
		c.ID, c.PolicyID, string(c.Status), string(record))
	if err != nil {
		return fmt.Errorf("persist claim %s: %w", c.ID, err)
	}
	return nil
}

func (s *PostgresClaims) Get(ctx context.Context, id string) (*claims.Claim, error) {
	var record string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM claims WHERE id = $1`, id).Scan(&record)
	if err == sql.ErrNoRows {
		return nil, fault.New(fault.KindNotFound, "claim %s", id)
	}
	if err != nil {
		return nil, err
	}
	var c claims.Claim
	if err := json.Unmarshal([]byte(record), &c); err != nil {
		return nil, fmt.Errorf("decode claim %s: %w", id, err)
	}
	return &c, nil
}

func (s *PostgresClaims) OpenByPolicy(ctx context.Context, policyID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
        SELECT id FROM claims
        WHERE policy_id = $1 AND status NOT IN ($2, $3)
        LIMIT 1`,
		policyID, string(claims.StatusClosedPaid), string(claims.StatusClosedRejectedFinal)).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Postgres) SaveBalance(ctx context.Context, balance int64) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO vault (id, balance) VALUES (1, $1)
        ON CONFLICT (id) DO UPDATE SET balance = EXCLUDED.balance`, balance)
	return err
}

func (s *Postgres) LoadBalance(ctx context.Context) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, `SELECT balance FROM vault WHERE id = 1`).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}
