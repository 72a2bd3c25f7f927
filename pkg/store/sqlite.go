package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/inzo-ai/core-contracts/pkg/claims"
	"github.com/inzo-ai/core-contracts/pkg/fault"
	"github.com/inzo-ai/core-contracts/pkg/policy"
)

// SQLite persists records in an embedded database. Full records are stored
// as JSON; the columns queried by lookups are lifted out alongside.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and migrates it.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	return NewSQLite(db)
}

// NewSQLite wraps an existing handle and migrates it.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	query := `
    CREATE TABLE IF NOT EXISTS policies (
        id TEXT PRIMARY KEY,
        status TEXT NOT NULL,
        record JSON NOT NULL
    );
    CREATE TABLE IF NOT EXISTS claims (
        id TEXT PRIMARY KEY,
        policy_id TEXT NOT NULL,
        status TEXT NOT NULL,
        record JSON NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_claims_policy ON claims (policy_id, status);
    CREATE TABLE IF NOT EXISTS vault (
        id INTEGER PRIMARY KEY CHECK (id = 1),
        balance INTEGER NOT NULL
    );`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

// Close closes the underlying handle.
func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Put(ctx context.Context, p *policy.Policy) error {
	record, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO policies (id, status, record) VALUES (?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET status = excluded.status, record = excluded.record`,
		p.ID, string(p.Status), string(record))
	if err != nil {
		return fmt.Errorf("persist policy %s: %w", p.ID, err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, id string) (*policy.Policy, error) {
	var record string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM policies WHERE id = ?`, id).Scan(&record)
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
func (s *SQLite) Claims() *SQLiteClaims { return &SQLiteClaims{db: s.db} }

// SQLiteClaims adapts SQLite to the claim store interface.
type SQLiteClaims struct{ db *sql.DB }

func (s *SQLiteClaims) Put(ctx context.Context, c *claims.Claim) error {
	record, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO claims (id, policy_id, status, record) VALUES (?, ?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET status = excluded.status, record = excluded.record`,
		c.ID, c.PolicyID, string(c.Status), string(record))
	if err != nil {
		return fmt.Errorf("persist claim %s: %w", c.ID, err)
	}
	return nil
}

func (s *SQLiteClaims) Get(ctx context.Context, id string) (*claims.Claim, error) {
	var record string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM claims WHERE id = ?`, id).Scan(&record)
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

func (s *SQLiteClaims) OpenByPolicy(ctx context.Context, policyID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
        SELECT id FROM claims
        WHERE policy_id = ? AND status NOT IN (?, ?)
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

func (s *SQLite) SaveBalance(ctx context.Context, balance int64) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO vault (id, balance) VALUES (1, ?)
        ON CONFLICT (id) DO UPDATE SET balance = excluded.balance`, balance)
	return err
}

func (s *SQLite) LoadBalance(ctx context.Context) (int64, error) {
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
