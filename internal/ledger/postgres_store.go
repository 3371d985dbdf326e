package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/paymentmate/paymentmate/internal/scoring"
)

// PostgresStore keeps a durable audit copy of scored transactions.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed transaction store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the scored_transactions table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS scored_transactions (
			id             VARCHAR(40) PRIMARY KEY,
			user_id        BIGINT NOT NULL,
			amount         NUMERIC(14,2) NOT NULL CHECK (amount > 0),
			merchant_id    VARCHAR(100) NOT NULL,
			category       VARCHAR(50) NOT NULL DEFAULT '',
			currency       VARCHAR(3) NOT NULL DEFAULT 'USD',
			country        VARCHAR(2) NOT NULL DEFAULT '',
			payment_method VARCHAR(30) NOT NULL DEFAULT '',
			score          NUMERIC(3,2) NOT NULL CHECK (score >= 0 AND score <= 1),
			decision       VARCHAR(10) NOT NULL CHECK (decision IN ('ALLOW', 'FLAG', 'DECLINE')),
			explanation    JSONB NOT NULL DEFAULT '{}',
			txn_timestamp  TIMESTAMPTZ NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			processing_ms  DOUBLE PRECISION NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_scored_transactions_created
			ON scored_transactions (created_at DESC);

		CREATE INDEX IF NOT EXISTS idx_scored_transactions_decision
			ON scored_transactions (decision, created_at DESC);
	`)
	return err
}

func (s *PostgresStore) Append(ctx context.Context, txn *scoring.ScoredTransaction) error {
	explanationJSON, err := json.Marshal(txn.Explanation)
	if err != nil {
		return fmt.Errorf("marshal explanation: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scored_transactions
			(id, user_id, amount, merchant_id, category, currency, country,
			 payment_method, score, decision, explanation, txn_timestamp,
			 created_at, processing_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`,
		txn.ID,
		txn.Input.UserID,
		txn.Input.Amount,
		txn.Input.MerchantID,
		txn.Input.MerchantCategory,
		txn.Input.Currency,
		txn.Input.Country,
		txn.Input.PaymentMethod,
		txn.Score,
		string(txn.Decision),
		explanationJSON,
		txn.Input.Timestamp,
		txn.CreatedAt,
		txn.ProcessingMS,
	)
	if err != nil {
		return fmt.Errorf("record scored transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Matching(ctx context.Context, filter scoring.Decision) ([]*scoring.ScoredTransaction, error) {
	query := `
		SELECT id, user_id, amount, merchant_id, category, currency, country,
		       payment_method, score, decision, explanation, txn_timestamp,
		       created_at, processing_ms
		FROM scored_transactions`
	args := []any{}
	if filter != "" {
		query += ` WHERE decision = $1`
		args = append(args, string(filter))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scored transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*scoring.ScoredTransaction
	for rows.Next() {
		var txn scoring.ScoredTransaction
		var explanationJSON []byte
		var decision string

		err := rows.Scan(
			&txn.ID,
			&txn.Input.UserID,
			&txn.Input.Amount,
			&txn.Input.MerchantID,
			&txn.Input.MerchantCategory,
			&txn.Input.Currency,
			&txn.Input.Country,
			&txn.Input.PaymentMethod,
			&txn.Score,
			&decision,
			&explanationJSON,
			&txn.Input.Timestamp,
			&txn.CreatedAt,
			&txn.ProcessingMS,
		)
		if err != nil {
			return nil, fmt.Errorf("scan scored transaction: %w", err)
		}
		txn.Decision = scoring.Decision(decision)
		txn.Explanation = &scoring.Explanation{}
		if len(explanationJSON) > 0 {
			if err := json.Unmarshal(explanationJSON, txn.Explanation); err != nil {
				return nil, fmt.Errorf("decode explanation for %s: %w", txn.ID, err)
			}
		}
		result = append(result, &txn)
	}
	return result, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scored_transactions`).Scan(&n)
	return n, err
}

func (s *PostgresStore) CountByDecision(ctx context.Context) (map[scoring.Decision]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT decision, COUNT(*) FROM scored_transactions GROUP BY decision
	`)
	if err != nil {
		return nil, fmt.Errorf("count by decision: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := map[scoring.Decision]int{
		scoring.DecisionAllow:   0,
		scoring.DecisionFlag:    0,
		scoring.DecisionDecline: 0,
	}
	for rows.Next() {
		var decision string
		var n int
		if err := rows.Scan(&decision, &n); err != nil {
			return nil, err
		}
		counts[scoring.Decision(decision)] = n
	}
	return counts, rows.Err()
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `TRUNCATE scored_transactions`)
	return err
}
